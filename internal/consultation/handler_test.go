package consultation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"clinical-scribe/internal/transcribe"
)

type stubService struct {
	rec     *Record
	err     error
	records []Record

	gotOwner string
	gotMeta  transcribe.Metadata
}

func (s *stubService) ProcessRecording(ctx context.Context, owner string, audio []byte, meta transcribe.Metadata) (*Record, error) {
	s.gotOwner = owner
	s.gotMeta = meta
	return s.rec, s.err
}

func (s *stubService) List(ctx context.Context) ([]Record, error) { return s.records, nil }

func (s *stubService) Get(ctx context.Context, id int64) (*Record, error) {
	for i := range s.records {
		if s.records[i].ID == id {
			return &s.records[i], nil
		}
	}
	return nil, ErrRecordNotFound
}

type stubRenderer struct {
	out []byte
	err error
}

func (r stubRenderer) Render(rec Record) ([]byte, error) { return r.out, r.err }

func newConsultationRouter(svc Service, rend ReportRenderer) *chi.Mux {
	h := NewHandler(svc, rend, zap.NewNop())
	r := chi.NewRouter()
	RegisterRoutes(r, h)
	return r
}

func multipartBody(t *testing.T, fields map[string]string, withAudio bool) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if withAudio {
		fw, err := w.CreateFormFile("audio", "recording.wav")
		require.NoError(t, err)
		_, err = fw.Write([]byte("RIFFfakewav"))
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestHandleProcess_Success(t *testing.T) {
	svc := &stubService{rec: &Record{ID: 42, PatientName: "Ada", Transcription: "hello"}}
	router := newConsultationRouter(svc, stubRenderer{})

	body, ct := multipartBody(t, map[string]string{
		"sessionId":        "sess-1",
		"patientName":      "Ada",
		"encounterType":    EncounterInitial,
		"vitalSigns.pulse": "72",
	}, true)

	req := httptest.NewRequest("POST", "/consultations", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "sess-1", svc.gotOwner)
	assert.Equal(t, "Ada", svc.gotMeta.PatientName)
	assert.Equal(t, "72", svc.gotMeta.VitalSigns["pulse"])

	var resp processResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Warning)
	assert.Equal(t, int64(42), resp.Record.ID)
}

func TestHandleProcess_NoteFailureIsWarningNotError(t *testing.T) {
	rec42 := &Record{ID: 42, Transcription: "kept"}
	svc := &stubService{rec: rec42, err: fmt.Errorf("%w: upstream 503", ErrNoteGeneration)}
	router := newConsultationRouter(svc, stubRenderer{})

	body, ct := multipartBody(t, nil, true)
	req := httptest.NewRequest("POST", "/consultations", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp processResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Warning)
	assert.Equal(t, "kept", resp.Record.Transcription)
}

func TestHandleProcess_InProgressConflicts(t *testing.T) {
	svc := &stubService{err: ErrProcessingInProgress}
	router := newConsultationRouter(svc, stubRenderer{})

	body, ct := multipartBody(t, nil, true)
	req := httptest.NewRequest("POST", "/consultations", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandleProcess_MissingAudio(t *testing.T) {
	svc := &stubService{}
	router := newConsultationRouter(svc, stubRenderer{})

	body, ct := multipartBody(t, map[string]string{"patientName": "Ada"}, false)
	req := httptest.NewRequest("POST", "/consultations", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, svc.gotOwner, "service must not be reached")
}

func TestHandleList(t *testing.T) {
	svc := &stubService{records: []Record{{ID: 1}, {ID: 2}}}
	router := newConsultationRouter(svc, stubRenderer{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/consultations", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got []Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got, 2)
}

func TestHandleReport(t *testing.T) {
	svc := &stubService{records: []Record{{ID: 7, PatientName: "Ada"}}}
	router := newConsultationRouter(svc, stubRenderer{out: []byte("%PDF-1.4 fake")})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/consultations/7/report", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "consultation_7.pdf")
	assert.Equal(t, "%PDF-1.4 fake", rec.Body.String())
}

func TestHandleReport_NotFound(t *testing.T) {
	router := newConsultationRouter(&stubService{}, stubRenderer{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/consultations/99/report", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
