package capture

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRouter(t *testing.T) *chi.Mux {
	t.Helper()
	m := NewManager(StreamOpener{SampleRate: 16000, Channels: 1}, zap.NewNop())
	h := NewHandler(m, zap.NewNop())
	r := chi.NewRouter()
	RegisterRoutes(r, h)
	return r
}

func startSession(t *testing.T, router *chi.Mux) string {
	t.Helper()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", "/capture", nil))
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, StateRecording, resp.State)
	return resp.ID
}

func TestHandler_ChunkThenStopReturnsWAV(t *testing.T) {
	router := newTestRouter(t)
	id := startSession(t, router)

	chunk := httptest.NewRecorder()
	router.ServeHTTP(chunk, httptest.NewRequest("POST", "/capture/"+id+"/chunks", bytes.NewReader(secondOfPCM())))
	require.Equal(t, http.StatusOK, chunk.Code)

	stop := httptest.NewRecorder()
	router.ServeHTTP(stop, httptest.NewRequest("POST", "/capture/"+id+"/stop", nil))
	require.Equal(t, http.StatusOK, stop.Code)
	assert.Equal(t, "audio/wav", stop.Header().Get("Content-Type"))

	// One second of 16kHz mono 16-bit PCM plus the 44-byte header.
	assert.Equal(t, 44+16000*2, stop.Body.Len())
	assert.Equal(t, 1.0, wavDuration(stop.Body.Bytes(), 16000, 1))
}

func TestHandler_StopIsIdempotentOverHTTP(t *testing.T) {
	router := newTestRouter(t)
	id := startSession(t, router)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/capture/"+id+"/chunks", bytes.NewReader(secondOfPCM())))

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest("POST", "/capture/"+id+"/stop", nil))
	second := httptest.NewRecorder()
	router.ServeHTTP(second, httptest.NewRequest("POST", "/capture/"+id+"/stop", nil))

	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, first.Body.Bytes(), second.Body.Bytes())
}

func TestHandler_ChunkWhilePausedConflicts(t *testing.T) {
	router := newTestRouter(t)
	id := startSession(t, router)

	pause := httptest.NewRecorder()
	router.ServeHTTP(pause, httptest.NewRequest("POST", "/capture/"+id+"/pause", nil))
	require.Equal(t, http.StatusOK, pause.Code)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", "/capture/"+id+"/chunks", bytes.NewReader(secondOfPCM())))
	assert.Equal(t, http.StatusConflict, rec.Code)

	resume := httptest.NewRecorder()
	router.ServeHTTP(resume, httptest.NewRequest("POST", "/capture/"+id+"/resume", nil))
	require.Equal(t, http.StatusOK, resume.Code)

	ok := httptest.NewRecorder()
	router.ServeHTTP(ok, httptest.NewRequest("POST", "/capture/"+id+"/chunks", bytes.NewReader(secondOfPCM())))
	assert.Equal(t, http.StatusOK, ok.Code)
}

func TestHandler_ResumeWhileRecordingConflicts(t *testing.T) {
	router := newTestRouter(t)
	id := startSession(t, router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", "/capture/"+id+"/resume", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandler_StatusReportsLevels(t *testing.T) {
	router := newTestRouter(t)
	id := startSession(t, router)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/capture/"+id+"/chunks", bytes.NewReader(secondOfPCM())))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/capture/"+id, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, StateRecording, resp.State)
	assert.NotEmpty(t, resp.Levels)
}

func TestHandler_UnknownSession(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", "/capture/3b241101-e2bb-4255-8caf-4136c566a962/pause", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	bad := httptest.NewRecorder()
	router.ServeHTTP(bad, httptest.NewRequest("GET", "/capture/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, bad.Code)
}

func TestHandler_DiscardRemovesSession(t *testing.T) {
	router := newTestRouter(t)
	id := startSession(t, router)

	del := httptest.NewRecorder()
	router.ServeHTTP(del, httptest.NewRequest("DELETE", "/capture/"+id, nil))
	require.Equal(t, http.StatusNoContent, del.Code)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/capture/"+id, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
