package consultation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"clinical-scribe/internal/transcribe"
)

// ReportRenderer renders a consultation record to a downloadable PDF.
type ReportRenderer interface {
	Render(rec Record) ([]byte, error)
}

type Handler struct {
	svc     Service
	reports ReportRenderer
	logger  *zap.Logger
}

func NewHandler(svc Service, reports ReportRenderer, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, reports: reports, logger: logger}
}

type processResponse struct {
	Record  *Record `json:"record"`
	Warning string  `json:"warning,omitempty"`
}

// HandleProcess accepts the finalized recording plus encounter metadata as
// one multipart request and runs the transcription/note pipeline.
func (h *Handler) HandleProcess(w http.ResponseWriter, r *http.Request) {
	// Limit upload size (25MB covers a long consultation at 16kHz mono)
	if err := r.ParseMultipartForm(25 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart request")
		return
	}

	file, _, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, file); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read audio")
		return
	}

	meta := metadataFromForm(r)
	owner := r.FormValue("sessionId")
	if owner == "" {
		owner = "default"
	}

	rec, err := h.svc.ProcessRecording(r.Context(), owner, buf.Bytes(), meta)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, processResponse{Record: rec})
	case errors.Is(err, ErrNoteGeneration) && rec != nil:
		// Transcript survived; tell the caller the note is missing.
		writeJSON(w, http.StatusOK, processResponse{Record: rec, Warning: err.Error()})
	case errors.Is(err, ErrProcessingInProgress):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrEmptyAudio), errors.Is(err, ErrInvalidEncounterType):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	records, err := h.svc.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *Handler) HandleReport(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid record id")
		return
	}

	rec, err := h.svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	pdf, err := h.reports.Render(*rec)
	if err != nil {
		h.logger.Error("report rendering failed", zap.Int64("record_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to render report")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=consultation_%d.pdf", id))
	w.Write(pdf)
}

func metadataFromForm(r *http.Request) (meta transcribe.Metadata) {
	meta.PatientName = r.FormValue("patientName")
	meta.PatientDOB = r.FormValue("patientDOB")
	meta.PatientGender = r.FormValue("patientGender")
	meta.PatientID = r.FormValue("patientID")
	meta.PatientContact = r.FormValue("patientContact")
	meta.PatientInsurance = r.FormValue("patientInsurance")
	meta.PatientPCP = r.FormValue("patientPCP")
	meta.PatientAllergies = r.FormValue("patientAllergies")
	meta.PatientMedications = r.FormValue("patientMedications")
	meta.ChiefComplaint = r.FormValue("chiefComplaint")
	meta.EncounterType = r.FormValue("encounterType")
	meta.Notes = r.FormValue("notes")

	for key, vals := range r.MultipartForm.Value {
		if strings.HasPrefix(key, "vitalSigns.") && len(vals) > 0 && vals[0] != "" {
			if meta.VitalSigns == nil {
				meta.VitalSigns = make(map[string]string)
			}
			meta.VitalSigns[strings.TrimPrefix(key, "vitalSigns.")] = vals[0]
		}
	}
	return meta
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post("/consultations", h.HandleProcess)
	r.Get("/consultations", h.HandleList)
	r.Get("/consultations/{id}/report", h.HandleReport)
}
