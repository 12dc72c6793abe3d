package auth

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "orgportal/pkg/domain"
)

const testSigningKey = "test-signing-key"

func mintToken(t *testing.T, subject, key string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(key))
	require.NoError(t, err)
	return signed
}

func protectedHandler(t *testing.T, gotUserID *id.UserID) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*gotUserID = GetUserID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	return RequireToken(testSigningKey, logger)(next)
}

func TestRequireToken_ValidToken(t *testing.T) {
	var gotUserID id.UserID
	handler := protectedHandler(t, &gotUserID)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, "ACMEMA001", testSigningKey))
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, id.UserID("ACMEMA001"), gotUserID)
}

func TestRequireToken_MissingHeader(t *testing.T) {
	var gotUserID id.UserID
	handler := protectedHandler(t, &gotUserID)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.True(t, gotUserID.IsNil())
}

func TestRequireToken_WrongKey(t *testing.T) {
	var gotUserID id.UserID
	handler := protectedHandler(t, &gotUserID)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, "ACMEMA001", "other-key"))
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireToken_InvalidSubject(t *testing.T) {
	var gotUserID id.UserID
	handler := protectedHandler(t, &gotUserID)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, "not-an-id", testSigningKey))
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetUserID_Unauthenticated(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.True(t, GetUserID(req.Context()).IsNil())
}
