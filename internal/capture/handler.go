package capture

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxChunkBytes = 1 << 20 // 1 MiB per pushed chunk

type Handler struct {
	manager *Manager
	logger  *zap.Logger
}

func NewHandler(manager *Manager, logger *zap.Logger) *Handler {
	return &Handler{manager: manager, logger: logger}
}

type sessionResponse struct {
	ID             string    `json:"id"`
	State          State     `json:"state"`
	ElapsedSeconds int       `json:"elapsedSeconds"`
	SampleRate     int       `json:"sampleRate,omitempty"`
	Channels       int       `json:"channels,omitempty"`
	Levels         []float64 `json:"levels,omitempty"`
}

func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	owner := r.URL.Query().Get("owner")
	if owner == "" {
		owner = "default"
	}

	s, err := h.manager.Open(r.Context(), owner)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, sessionResponse{
		ID:    s.ID.String(),
		State: s.State(),
	})
}

func (h *Handler) HandleChunk(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	chunk, err := io.ReadAll(io.LimitReader(r.Body, maxChunkBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read audio chunk")
		return
	}

	if err := s.Append(chunk); err != nil {
		h.stateError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		ID:             s.ID.String(),
		State:          s.State(),
		ElapsedSeconds: int(s.Elapsed().Seconds()),
	})
}

func (h *Handler) HandlePause(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.Pause(); err != nil {
		h.stateError(w, err)
		return
	}
	h.writeStatus(w, s)
}

func (h *Handler) HandleResume(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.Resume(); err != nil {
		h.stateError(w, err)
		return
	}
	h.writeStatus(w, s)
}

// HandleStop finalizes the recording and streams the playable WAV back.
// Repeated stops return the same object.
func (h *Handler) HandleStop(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	wav, err := s.Stop()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.logger.Info("recording stopped",
		zap.String("session", s.ID.String()),
		zap.Int("bytes", len(wav)))

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Length", strconv.Itoa(len(wav)))
	w.Header().Set("X-Elapsed-Seconds", strconv.Itoa(int(s.Elapsed().Seconds())))
	w.WriteHeader(http.StatusOK)
	w.Write(wav)
}

func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.writeStatus(w, s)
}

func (h *Handler) HandleDiscard(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}
	h.manager.Remove(id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return nil, false
	}
	s, err := h.manager.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return nil, false
	}
	return s, true
}

func (h *Handler) writeStatus(w http.ResponseWriter, s *Session) {
	writeJSON(w, http.StatusOK, sessionResponse{
		ID:             s.ID.String(),
		State:          s.State(),
		ElapsedSeconds: int(s.Elapsed().Seconds()),
		Levels:         s.Levels(),
	})
}

func (h *Handler) stateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrSessionStopped):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrNotRecording), errors.Is(err, ErrNotPaused):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Route("/capture", func(r chi.Router) {
		r.Post("/", h.HandleStart)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.HandleStatus)
			r.Delete("/", h.HandleDiscard)
			r.Post("/chunks", h.HandleChunk)
			r.Post("/pause", h.HandlePause)
			r.Post("/resume", h.HandleResume)
			r.Post("/stop", h.HandleStop)
		})
	})
}
