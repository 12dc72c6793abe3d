package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orgportal/internal/notification/models"
	"orgportal/internal/notification/store"
	id "orgportal/pkg/domain"
	"orgportal/pkg/platform/middleware/auth"
)

func setup(t *testing.T) (*store.InMemory, chi.Router) {
	t.Helper()
	s := store.NewInMemory()
	h := New(s, slog.Default())
	r := chi.NewRouter()
	h.Register(r)
	return s, r
}

func seed(t *testing.T, s *store.InMemory, notificationID id.NotificationID, userID id.UserID) {
	t.Helper()
	n, err := models.NewNotification(notificationID, userID, "A registration request awaits you.", "RR001", time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, s.Create(context.Background(), n))
}

func asUser(r *http.Request, userID id.UserID) *http.Request {
	return r.WithContext(auth.WithUserID(r.Context(), userID))
}

func TestHandleListForUser(t *testing.T) {
	s, router := setup(t)
	seed(t, s, "N001", "ACMA001")
	seed(t, s, "N002", "ACMA001")
	seed(t, s, "N003", "ADMIN001")

	t.Run("own notifications", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/users/ACMA001/notifications", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, asUser(req, "ACMA001"))

		assert.Equal(t, http.StatusOK, rec.Code)
		var got ListResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Len(t, got.Notifications, 2)
	})

	t.Run("someone else's notifications", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/users/ADMIN001/notifications", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, asUser(req, "ACMA001"))

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/users/ACMA001/notifications", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestHandleMarkRead(t *testing.T) {
	s, router := setup(t)
	seed(t, s, "N001", "ACMA001")

	t.Run("recipient marks read", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPut, "/notifications/N001/read", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, asUser(req, "ACMA001"))

		assert.Equal(t, http.StatusNoContent, rec.Code)
		n, err := s.FindByID(context.Background(), "N001")
		require.NoError(t, err)
		assert.True(t, n.IsRead)
	})

	t.Run("non-recipient is refused", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPut, "/notifications/N001/read", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, asUser(req, "ADMIN001"))

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("unknown notification", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPut, "/notifications/N404/read", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, asUser(req, "ACMA001"))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
