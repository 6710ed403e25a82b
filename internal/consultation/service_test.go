package consultation

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"clinical-scribe/internal/notegen"
	"clinical-scribe/internal/transcribe"
)

type stubTranscriber struct {
	text      string
	err       error
	started   chan struct{}
	release   chan struct{}
	startOnce sync.Once
}

func (s *stubTranscriber) Transcribe(ctx context.Context, audio []byte, meta transcribe.Metadata) (string, error) {
	if s.started != nil {
		s.startOnce.Do(func() { close(s.started) })
	}
	if s.release != nil {
		<-s.release
	}
	return s.text, s.err
}

type stubNoteGen struct {
	note *notegen.GeneratedNote
	err  error
}

func (s *stubNoteGen) Generate(ctx context.Context, message string, patient notegen.RequestPatient) (*notegen.GeneratedNote, error) {
	return s.note, s.err
}

func newTestService(t *testing.T, tr Transcriber, ng NoteGenerator) (Service, *Store) {
	t.Helper()
	store := NewStore(filepath.Join(t.TempDir(), "transcriptions.json"), zap.NewNop())
	return NewService(store, tr, ng, zap.NewNop()), store
}

func TestService_ProcessRecording_Success(t *testing.T) {
	note := &notegen.GeneratedNote{ID: 1}
	svc, store := newTestService(t,
		&stubTranscriber{text: "patient reports headaches"},
		&stubNoteGen{note: note})

	rec, err := svc.ProcessRecording(context.Background(), "owner", []byte{1},
		transcribe.Metadata{PatientName: "Sarah Johnson", EncounterType: EncounterFollowUp})
	require.NoError(t, err)

	assert.Equal(t, "patient reports headaches", rec.Transcription)
	assert.Equal(t, note, rec.GeneratedNote)

	records, err := store.List()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.NotNil(t, records[0].GeneratedNote)
}

func TestService_TranscriptionFailureStoresNothing(t *testing.T) {
	svc, store := newTestService(t,
		&stubTranscriber{err: errors.New("upstream down")},
		&stubNoteGen{})

	rec, err := svc.ProcessRecording(context.Background(), "owner", []byte{1}, transcribe.Metadata{})
	assert.Nil(t, rec)
	assert.ErrorContains(t, err, "upstream down")

	records, listErr := store.List()
	require.NoError(t, listErr)
	assert.Empty(t, records)
}

func TestService_NoteFailureKeepsTranscript(t *testing.T) {
	svc, store := newTestService(t,
		&stubTranscriber{text: "the transcript"},
		&stubNoteGen{err: errors.New("model overloaded")})

	rec, err := svc.ProcessRecording(context.Background(), "owner", []byte{1},
		transcribe.Metadata{PatientName: "X"})
	assert.ErrorIs(t, err, ErrNoteGeneration)
	require.NotNil(t, rec)

	records, listErr := store.List()
	require.NoError(t, listErr)
	require.Len(t, records, 1)
	assert.Equal(t, "the transcript", records[0].Transcription)
	assert.Nil(t, records[0].GeneratedNote)
}

func TestService_ValidationBeforeNetwork(t *testing.T) {
	svc, _ := newTestService(t, &stubTranscriber{text: "x"}, &stubNoteGen{})

	_, err := svc.ProcessRecording(context.Background(), "owner", nil, transcribe.Metadata{})
	assert.ErrorIs(t, err, ErrEmptyAudio)

	_, err = svc.ProcessRecording(context.Background(), "owner", []byte{1},
		transcribe.Metadata{EncounterType: "House Call"})
	assert.ErrorIs(t, err, ErrInvalidEncounterType)
}

func TestService_RejectsConcurrentProcessingForSameOwner(t *testing.T) {
	tr := &stubTranscriber{
		text:    "slow transcript",
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	svc, _ := newTestService(t, tr, &stubNoteGen{note: &notegen.GeneratedNote{}})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := svc.ProcessRecording(context.Background(), "owner", []byte{1}, transcribe.Metadata{})
		assert.NoError(t, err)
	}()

	<-tr.started
	_, err := svc.ProcessRecording(context.Background(), "owner", []byte{1}, transcribe.Metadata{})
	assert.ErrorIs(t, err, ErrProcessingInProgress)

	close(tr.release)
	wg.Wait()

	// The guard clears once the first run finishes.
	_, err = svc.ProcessRecording(context.Background(), "owner", []byte{1}, transcribe.Metadata{})
	assert.NoError(t, err)
}
