package doctor

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"clinical-scribe/internal/cache"
)

type Handler struct {
	repo   Repository
	cache  *cache.QueryCache
	logger *zap.Logger
}

func NewHandler(repo Repository, qc *cache.QueryCache, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, cache: qc, logger: logger}
}

type QueryResponse struct {
	Success    bool       `json:"success"`
	Data       []Doctor   `json:"data"`
	Pagination Pagination `json:"pagination"`
}

type failureResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// HandleQuery serves the paginated, filtered directory. Results are
// cached per normalized parameter set; fresh=true bypasses the cache
// unconditionally.
func (h *Handler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	params := ParseParams(r.URL.Query())
	cacheParams := params.CacheParams()
	forceFresh := r.URL.Query().Get("fresh") == "true"

	if !forceFresh && h.cache != nil {
		if data, err := h.cache.Get(r.Context(), cacheParams); err == nil {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("X-Cache", "hit")
			w.Write(data)
			return
		} else if !errors.Is(err, cache.ErrMiss) {
			// A broken cache never blocks the query path.
			h.logger.Warn("cache lookup failed", zap.Error(err))
		}
	}

	doctors, total, err := h.repo.Find(r.Context(), params)
	if err != nil {
		h.logger.Error("directory query failed", zap.Error(err))
		writeFailure(w, http.StatusInternalServerError, err.Error())
		return
	}
	if doctors == nil {
		doctors = []Doctor{}
	}

	resp := QueryResponse{
		Success:    true,
		Data:       doctors,
		Pagination: NewPagination(total, params.Page, params.Limit),
	}
	body, err := json.Marshal(resp)
	if err != nil {
		writeFailure(w, http.StatusInternalServerError, err.Error())
		return
	}

	if h.cache != nil {
		if err := h.cache.Set(r.Context(), cacheParams, body); err != nil {
			h.logger.Warn("cache store failed", zap.Error(err))
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}

type bulkUpdateRequest struct {
	IDs       []string `json:"ids"`
	EmailSent *bool    `json:"email_sent"`
}

type bulkUpdateResponse struct {
	Success       bool   `json:"success"`
	ModifiedCount int64  `json:"modifiedCount"`
	Message       string `json:"message"`
}

// HandleBulkUpdate sets the contacted flag on a set of records. Invalid
// identifiers are filtered out rather than failing the request; a request
// that contains no valid identifier at all is a validation failure,
// distinct from a valid request that matched nothing.
func (h *Handler) HandleBulkUpdate(w http.ResponseWriter, r *http.Request) {
	var req bulkUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.IDs) == 0 {
		writeFailure(w, http.StatusBadRequest, "Doctor IDs are required")
		return
	}
	if req.EmailSent == nil {
		writeFailure(w, http.StatusBadRequest, "Email sent status is required")
		return
	}

	validIDs := make([]uuid.UUID, 0, len(req.IDs))
	for _, raw := range req.IDs {
		if id, err := uuid.Parse(raw); err == nil {
			validIDs = append(validIDs, id)
		}
	}
	if len(validIDs) == 0 {
		writeFailure(w, http.StatusBadRequest, "No valid doctor IDs provided")
		return
	}

	count, err := h.repo.BulkSetEmailSent(r.Context(), validIDs, *req.EmailSent)
	if err != nil {
		writeFailure(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.invalidateCache(r)

	writeJSON(w, http.StatusOK, bulkUpdateResponse{
		Success:       true,
		ModifiedCount: count,
		Message:       updatedMessage(count),
	})
}

type toggleResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		ID        string `json:"id"`
		EmailSent bool   `json:"email_sent"`
	} `json:"data"`
}

func (h *Handler) HandleToggle(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeFailure(w, http.StatusBadRequest, "Invalid doctor ID format")
		return
	}

	d, err := h.repo.ToggleEmailSent(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			writeFailure(w, http.StatusNotFound, "Doctor not found")
			return
		}
		writeFailure(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.invalidateCache(r)

	resp := toggleResponse{Success: true}
	if d.EmailSent {
		resp.Message = "Doctor marked as contacted"
	} else {
		resp.Message = "Doctor marked as not contacted"
	}
	resp.Data.ID = d.ID.String()
	resp.Data.EmailSent = d.EmailSent
	writeJSON(w, http.StatusOK, resp)
}

// HandleExport streams the filtered directory (unpaginated, capped) as a
// spreadsheet.
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	params := ParseParams(r.URL.Query())

	doctors, err := h.repo.FindAll(r.Context(), params, exportCap)
	if err != nil {
		writeFailure(w, http.StatusInternalServerError, err.Error())
		return
	}

	book, err := buildWorkbook(doctors)
	if err != nil {
		h.logger.Error("export workbook failed", zap.Error(err))
		writeFailure(w, http.StatusInternalServerError, "failed to build export")
		return
	}
	defer book.Close()

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition",
		"attachment; filename=doctors_"+time.Now().Format("20060102")+".xlsx")
	if _, err := book.WriteTo(w); err != nil {
		h.logger.Error("export write failed", zap.Error(err))
	}
}

// invalidateCache drops every cached page after a mutation so the next
// read reconciles against the database instead of stale optimistic state.
func (h *Handler) invalidateCache(r *http.Request) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Warn("cache invalidation failed", zap.Error(err))
	}
}

func updatedMessage(count int64) string {
	return fmt.Sprintf("Updated %d doctor records", count)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeFailure(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, failureResponse{Success: false, Message: msg})
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Get("/doctors", h.HandleQuery)
	r.Post("/doctors", h.HandleBulkUpdate)
	r.Post("/doctors/{id}/toggle", h.HandleToggle)
	r.Get("/doctors/export", h.HandleExport)
}
