package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, expiry time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "clinician",
		ExpiresAt: jwt.NewNumericDate(expiry),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func verify(t *testing.T, secret, token string) (int, verifyResponse) {
	t.Helper()
	h := NewHandler(secret, zap.NewNop())
	rec := httptest.NewRecorder()
	h.HandleVerifyToken(rec, httptest.NewRequest("GET", "/verify-token?token="+token, nil))

	var resp verifyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec.Code, resp
}

func TestVerifyToken_Valid(t *testing.T) {
	token := signToken(t, testSecret, time.Now().Add(time.Hour))
	code, resp := verify(t, testSecret, token)

	assert.Equal(t, http.StatusOK, code)
	assert.True(t, resp.Authorized)
}

func TestVerifyToken_Missing(t *testing.T) {
	code, resp := verify(t, testSecret, "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.False(t, resp.Authorized)
}

func TestVerifyToken_WrongSecret(t *testing.T) {
	token := signToken(t, "other-secret", time.Now().Add(time.Hour))
	code, resp := verify(t, testSecret, token)

	assert.Equal(t, http.StatusUnauthorized, code)
	assert.False(t, resp.Authorized)
}

func TestVerifyToken_Expired(t *testing.T) {
	token := signToken(t, testSecret, time.Now().Add(-time.Hour))
	code, resp := verify(t, testSecret, token)

	assert.Equal(t, http.StatusUnauthorized, code)
	assert.False(t, resp.Authorized)
}

func TestVerifyToken_SecretNotConfigured(t *testing.T) {
	token := signToken(t, testSecret, time.Now().Add(time.Hour))
	code, resp := verify(t, "", token)

	assert.Equal(t, http.StatusInternalServerError, code)
	assert.False(t, resp.Authorized)
}
