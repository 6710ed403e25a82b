package auth

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// Handler answers the page-level authorization check. It is a coarse
// gate, not a full auth system: any failure means "unauthorized", never
// an error page.
type Handler struct {
	secret string
	logger *zap.Logger
}

func NewHandler(secret string, logger *zap.Logger) *Handler {
	return &Handler{secret: secret, logger: logger}
}

type verifyResponse struct {
	Authorized bool   `json:"authorized"`
	Error      string `json:"error,omitempty"`
}

func (h *Handler) HandleVerifyToken(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeVerify(w, http.StatusUnauthorized, verifyResponse{Authorized: false})
		return
	}
	if h.secret == "" {
		writeVerify(w, http.StatusInternalServerError,
			verifyResponse{Authorized: false, Error: "JWT secret is not configured"})
		return
	}

	_, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(h.secret), nil
	})
	if err != nil {
		h.logger.Debug("token verification failed", zap.Error(err))
		writeVerify(w, http.StatusUnauthorized, verifyResponse{Authorized: false, Error: err.Error()})
		return
	}

	writeVerify(w, http.StatusOK, verifyResponse{Authorized: true})
}

func writeVerify(w http.ResponseWriter, status int, v verifyResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Get("/verify-token", h.HandleVerifyToken)
}
