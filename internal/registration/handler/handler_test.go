package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	directory "orgportal/internal/directory/models"
	"orgportal/internal/registration/models"
	"orgportal/internal/registration/service"
	id "orgportal/pkg/domain"
	dErrors "orgportal/pkg/domain-errors"
	"orgportal/pkg/platform/middleware/auth"
)

type stubService struct {
	submitFn func(ctx context.Context, c service.Candidate) (*models.Request, error)
	decideFn func(ctx context.Context, requestID id.RegistrationID, decision models.Decision, actorID id.UserID) (*models.Request, error)
	deleteFn func(ctx context.Context, requestID id.RegistrationID, actorID id.UserID) error
	listFn   func(ctx context.Context, actorID id.UserID) ([]*models.Request, error)
	getFn    func(ctx context.Context, requestID id.RegistrationID, actorID id.UserID) (*models.Request, error)
}

func (s *stubService) Submit(ctx context.Context, c service.Candidate) (*models.Request, error) {
	return s.submitFn(ctx, c)
}

func (s *stubService) Decide(ctx context.Context, requestID id.RegistrationID, decision models.Decision, actorID id.UserID) (*models.Request, error) {
	return s.decideFn(ctx, requestID, decision, actorID)
}

func (s *stubService) Delete(ctx context.Context, requestID id.RegistrationID, actorID id.UserID) error {
	return s.deleteFn(ctx, requestID, actorID)
}

func (s *stubService) ListForActor(ctx context.Context, actorID id.UserID) ([]*models.Request, error) {
	return s.listFn(ctx, actorID)
}

func (s *stubService) Get(ctx context.Context, requestID id.RegistrationID, actorID id.UserID) (*models.Request, error) {
	return s.getFn(ctx, requestID, actorID)
}

func newRouter(svc Service) chi.Router {
	h := New(svc, slog.Default())
	r := chi.NewRouter()
	h.RegisterPublic(r)
	h.RegisterProtected(r)
	return r
}

func pendingRequest(t *testing.T) *models.Request {
	t.Helper()
	r, err := models.NewRequest("RR001", "Alice Chen", "alice@gmail.com", "hash",
		directory.RoleManager, "", "Acme", time.Now().UTC())
	require.NoError(t, err)
	return r
}

func asUser(r *http.Request, userID id.UserID) *http.Request {
	return r.WithContext(auth.WithUserID(r.Context(), userID))
}

func TestHandleSubmit(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		svc := &stubService{
			submitFn: func(_ context.Context, c service.Candidate) (*models.Request, error) {
				assert.Equal(t, "alice@gmail.com", c.Email)
				assert.Equal(t, directory.RoleManager, c.Role)
				return pendingRequest(t), nil
			},
		}
		body := `{"user_name":"Alice Chen","email":" ALICE@gmail.com ","password":"Str0ng!Pass","confirm_password":"Str0ng!Pass","role":"manager","company_name":"Acme"}`
		req := httptest.NewRequest(http.MethodPost, "/registration-requests", strings.NewReader(body))
		rec := httptest.NewRecorder()
		newRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
		var got RequestResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, id.RegistrationID("RR001"), got.ID)
		assert.Equal(t, "pending", got.Status)
		assert.NotContains(t, rec.Body.String(), "hash")
	})

	t.Run("password mismatch", func(t *testing.T) {
		body := `{"user_name":"A","email":"a@gmail.com","password":"Str0ng!Pass","confirm_password":"other","role":"manager","company_name":"Acme"}`
		req := httptest.NewRequest(http.MethodPost, "/registration-requests", strings.NewReader(body))
		rec := httptest.NewRecorder()
		newRouter(&stubService{}).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "confirm_password")
	})

	t.Run("admin role rejected", func(t *testing.T) {
		body := `{"user_name":"A","email":"a@gmail.com","password":"p","confirm_password":"p","role":"admin","company_name":"Acme"}`
		req := httptest.NewRequest(http.MethodPost, "/registration-requests", strings.NewReader(body))
		rec := httptest.NewRecorder()
		newRouter(&stubService{}).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("conflict surfaces as 409", func(t *testing.T) {
		svc := &stubService{
			submitFn: func(context.Context, service.Candidate) (*models.Request, error) {
				return nil, dErrors.New(dErrors.CodeConflict, "company already exists")
			},
		}
		body := `{"user_name":"A","email":"a@gmail.com","password":"Str0ng!Pass","confirm_password":"Str0ng!Pass","role":"manager","company_name":"Acme"}`
		req := httptest.NewRequest(http.MethodPost, "/registration-requests", strings.NewReader(body))
		rec := httptest.NewRecorder()
		newRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestHandleDecide(t *testing.T) {
	t.Run("accepted", func(t *testing.T) {
		svc := &stubService{
			decideFn: func(_ context.Context, requestID id.RegistrationID, decision models.Decision, actorID id.UserID) (*models.Request, error) {
				assert.Equal(t, id.RegistrationID("RR001"), requestID)
				assert.Equal(t, models.StatusAccepted, decision)
				assert.Equal(t, id.UserID("ADMIN001"), actorID)
				r := pendingRequest(t)
				require.NoError(t, r.Decide(models.StatusAccepted, time.Now().UTC()))
				return r, nil
			},
		}
		req := httptest.NewRequest(http.MethodPut, "/registration-requests/RR001/status", strings.NewReader(`{"status":"Accepted"}`))
		rec := httptest.NewRecorder()
		newRouter(svc).ServeHTTP(rec, asUser(req, "ADMIN001"))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"status":"accepted"`)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPut, "/registration-requests/RR001/status", strings.NewReader(`{"status":"accepted"}`))
		rec := httptest.NewRecorder()
		newRouter(&stubService{}).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("pending is not a decision", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPut, "/registration-requests/RR001/status", strings.NewReader(`{"status":"pending"}`))
		rec := httptest.NewRecorder()
		newRouter(&stubService{}).ServeHTTP(rec, asUser(req, "ADMIN001"))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("already decided surfaces as 422", func(t *testing.T) {
		svc := &stubService{
			decideFn: func(context.Context, id.RegistrationID, models.Decision, id.UserID) (*models.Request, error) {
				return nil, dErrors.New(dErrors.CodeInvalidState, "request already decided")
			},
		}
		req := httptest.NewRequest(http.MethodPut, "/registration-requests/RR001/status", strings.NewReader(`{"status":"rejected"}`))
		rec := httptest.NewRecorder()
		newRouter(svc).ServeHTTP(rec, asUser(req, "ADMIN001"))

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestHandleDelete(t *testing.T) {
	t.Run("no content", func(t *testing.T) {
		svc := &stubService{
			deleteFn: func(_ context.Context, requestID id.RegistrationID, actorID id.UserID) error {
				assert.Equal(t, id.RegistrationID("RR001"), requestID)
				return nil
			},
		}
		req := httptest.NewRequest(http.MethodDelete, "/registration-requests/RR001", nil)
		rec := httptest.NewRecorder()
		newRouter(svc).ServeHTTP(rec, asUser(req, "ADMIN001"))

		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("still pending surfaces as 422", func(t *testing.T) {
		svc := &stubService{
			deleteFn: func(context.Context, id.RegistrationID, id.UserID) error {
				return dErrors.New(dErrors.CodeInvalidState, "pending requests must be decided before deletion")
			},
		}
		req := httptest.NewRequest(http.MethodDelete, "/registration-requests/RR001", nil)
		rec := httptest.NewRecorder()
		newRouter(svc).ServeHTTP(rec, asUser(req, "ADMIN001"))

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestHandleList(t *testing.T) {
	svc := &stubService{
		listFn: func(_ context.Context, actorID id.UserID) ([]*models.Request, error) {
			assert.Equal(t, id.UserID("ADMIN001"), actorID)
			return []*models.Request{pendingRequest(t)}, nil
		},
	}
	req := httptest.NewRequest(http.MethodGet, "/registration-requests", nil)
	rec := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, asUser(req, "ADMIN001"))

	assert.Equal(t, http.StatusOK, rec.Code)
	var got ListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Requests, 1)
	assert.Equal(t, id.RegistrationID("RR001"), got.Requests[0].ID)
}
