package consultation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"clinical-scribe/internal/notegen"
	"clinical-scribe/internal/transcribe"
)

// Transcriber turns finalized audio into transcript text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, meta transcribe.Metadata) (string, error)
}

// NoteGenerator turns a transcript into a structured SOAP note.
type NoteGenerator interface {
	Generate(ctx context.Context, message string, patient notegen.RequestPatient) (*notegen.GeneratedNote, error)
}

var (
	ErrProcessingInProgress = errors.New("a recording is already being processed")
	ErrEmptyAudio           = errors.New("audio is required")
	ErrInvalidEncounterType = errors.New("unknown encounter type")

	// ErrNoteGeneration marks the partial-success path: the transcript was
	// stored, only the structured note is missing.
	ErrNoteGeneration = errors.New("note generation failed")
)

type Service interface {
	ProcessRecording(ctx context.Context, owner string, audio []byte, meta transcribe.Metadata) (*Record, error)
	List(ctx context.Context) ([]Record, error)
	Get(ctx context.Context, id int64) (*Record, error)
}

type service struct {
	store       *Store
	transcriber Transcriber
	noteGen     NoteGenerator
	logger      *zap.Logger
	now         func() time.Time

	mu       sync.Mutex
	inFlight map[string]bool
}

func NewService(store *Store, t Transcriber, n NoteGenerator, logger *zap.Logger) Service {
	return &service{
		store:       store,
		transcriber: t,
		noteGen:     n,
		logger:      logger,
		now:         time.Now,
		inFlight:    make(map[string]bool),
	}
}

// ProcessRecording runs the pipeline: transcribe, generate a note, append
// to the log. Only one recording per owner may be processing at a time;
// a second attempt is rejected up front rather than de-duplicated.
//
// If transcription fails nothing is stored. If only note generation fails
// the transcript is still appended (a transcript without a note beats
// losing everything) and the record is returned together with
// ErrNoteGeneration so the caller can surface the degradation.
func (s *service) ProcessRecording(ctx context.Context, owner string, audio []byte, meta transcribe.Metadata) (*Record, error) {
	if len(audio) == 0 {
		return nil, ErrEmptyAudio
	}
	if meta.EncounterType != "" && !ValidEncounterType(meta.EncounterType) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEncounterType, meta.EncounterType)
	}

	if !s.acquire(owner) {
		return nil, ErrProcessingInProgress
	}
	defer s.release(owner)

	text, err := s.transcriber.Transcribe(ctx, audio, meta)
	if err != nil {
		s.logger.Warn("transcription failed", zap.String("owner", owner), zap.Error(err))
		return nil, err
	}

	rec := Record{
		ID:            newRecordID(s.now()),
		PatientName:   patientNameOrDefault(meta.PatientName),
		EncounterType: meta.EncounterType,
		Date:          s.now().UTC().Format(time.RFC3339),
		Transcription: text,
		Notes:         meta.Notes,
	}

	note, err := s.noteGen.Generate(ctx, text, requestPatient(meta))
	if err != nil {
		s.logger.Warn("note generation failed, keeping transcript",
			zap.String("owner", owner), zap.Error(err))
		if appendErr := s.store.Append(rec); appendErr != nil {
			return nil, appendErr
		}
		return &rec, fmt.Errorf("%w: %v", ErrNoteGeneration, err)
	}

	rec.GeneratedNote = note
	if note.Result.PatientInfo.Name != "" && meta.PatientName == "" {
		rec.PatientName = note.Result.PatientInfo.Name
	}
	if err := s.store.Append(rec); err != nil {
		return nil, err
	}

	s.logger.Info("consultation processed",
		zap.Int64("record_id", rec.ID),
		zap.String("patient", rec.PatientName),
		zap.String("encounter_type", rec.EncounterType))
	return &rec, nil
}

func (s *service) List(ctx context.Context) ([]Record, error) {
	return s.store.List()
}

func (s *service) Get(ctx context.Context, id int64) (*Record, error) {
	return s.store.Get(id)
}

func (s *service) acquire(owner string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[owner] {
		return false
	}
	s.inFlight[owner] = true
	return true
}

func (s *service) release(owner string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, owner)
}

func patientNameOrDefault(name string) string {
	if name == "" {
		return "Unnamed Patient"
	}
	return name
}

func requestPatient(meta transcribe.Metadata) notegen.RequestPatient {
	return notegen.RequestPatient{
		Name:           meta.PatientName,
		DOB:            meta.PatientDOB,
		Gender:         meta.PatientGender,
		ID:             meta.PatientID,
		Contact:        meta.PatientContact,
		Insurance:      meta.PatientInsurance,
		PCP:            meta.PatientPCP,
		Allergies:      meta.PatientAllergies,
		Medications:    meta.PatientMedications,
		ChiefComplaint: meta.ChiefComplaint,
		VitalSigns:     meta.VitalSigns,
	}
}
