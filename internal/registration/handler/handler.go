package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"orgportal/internal/platform/middleware"
	"orgportal/internal/registration/models"
	"orgportal/internal/registration/service"
	id "orgportal/pkg/domain"
	dErrors "orgportal/pkg/domain-errors"
	"orgportal/pkg/platform/httputil"
	"orgportal/pkg/platform/middleware/auth"
)

// Service defines the workflow operations exposed over HTTP.
type Service interface {
	Submit(ctx context.Context, c service.Candidate) (*models.Request, error)
	Decide(ctx context.Context, requestID id.RegistrationID, decision models.Decision, actorID id.UserID) (*models.Request, error)
	Delete(ctx context.Context, requestID id.RegistrationID, actorID id.UserID) error
	ListForActor(ctx context.Context, actorID id.UserID) ([]*models.Request, error)
	Get(ctx context.Context, requestID id.RegistrationID, actorID id.UserID) (*models.Request, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterPublic mounts the anonymous submission endpoint.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/registration-requests", h.HandleSubmit)
}

// RegisterProtected mounts the endpoints that require an authenticated
// approver.
func (h *Handler) RegisterProtected(r chi.Router) {
	r.Get("/registration-requests", h.HandleList)
	r.Get("/registration-requests/{id}", h.HandleGet)
	r.Put("/registration-requests/{id}/status", h.HandleDecide)
	r.Delete("/registration-requests/{id}", h.HandleDelete)
}

// RequestResponse is the wire shape of a registration request.
type RequestResponse struct {
	ID                id.RegistrationID `json:"id"`
	UserName          string            `json:"user_name"`
	Email             string            `json:"email"`
	Role              string            `json:"role"`
	Department        string            `json:"department,omitempty"`
	CompanyName       string            `json:"company_name"`
	Status            string            `json:"status"`
	AssignedManagerID id.UserID         `json:"assigned_manager_id,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	DecidedAt         *time.Time        `json:"decided_at,omitempty"`
}

func toResponse(r *models.Request) RequestResponse {
	return RequestResponse{
		ID:                r.ID,
		UserName:          r.UserName,
		Email:             r.Email,
		Role:              r.Role.String(),
		Department:        r.Department,
		CompanyName:       r.CompanyName,
		Status:            r.Status.String(),
		AssignedManagerID: r.AssignedManagerID,
		CreatedAt:         r.CreatedAt,
		DecidedAt:         r.DecidedAt,
	}
}

// ListResponse wraps the visible requests for an approver.
type ListResponse struct {
	Requests []RequestResponse `json:"requests"`
}

// HandleSubmit accepts an anonymous registration submission.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[SubmitRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	created, err := h.service.Submit(ctx, req.Candidate())
	if err != nil {
		h.logger.WarnContext(ctx, "submit rejected", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, toResponse(created))
}

// HandleList returns the requests the caller may decide.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	actorID := auth.GetUserID(ctx)
	if actorID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	requests, err := h.service.ListForActor(ctx, actorID)
	if err != nil {
		h.logger.WarnContext(ctx, "list requests failed", "error", err, "request_id", requestID, "actor_id", actorID)
		httputil.WriteError(w, err)
		return
	}

	out := make([]RequestResponse, 0, len(requests))
	for _, req := range requests {
		out = append(out, toResponse(req))
	}
	httputil.WriteJSON(w, http.StatusOK, ListResponse{Requests: out})
}

// HandleGet returns one request visible to the caller.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	actorID := auth.GetUserID(ctx)
	if actorID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	regID, err := id.ParseRegistrationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid registration id"))
		return
	}

	request, err := h.service.Get(ctx, regID, actorID)
	if err != nil {
		h.logger.WarnContext(ctx, "get request failed", "error", err, "request_id", requestID, "registration_id", regID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toResponse(request))
}

// HandleDecide applies an accept/reject decision; the acting approver is the
// authenticated caller.
func (h *Handler) HandleDecide(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	actorID := auth.GetUserID(ctx)
	if actorID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	regID, err := id.ParseRegistrationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid registration id"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[DecideRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	decided, err := h.service.Decide(ctx, regID, req.Decision(), actorID)
	if err != nil {
		h.logger.WarnContext(ctx, "decision failed",
			"error", err,
			"request_id", requestID,
			"registration_id", regID,
			"actor_id", actorID,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toResponse(decided))
}

// HandleDelete removes a decided request.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	actorID := auth.GetUserID(ctx)
	if actorID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	regID, err := id.ParseRegistrationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid registration id"))
		return
	}

	if err := h.service.Delete(ctx, regID, actorID); err != nil {
		h.logger.WarnContext(ctx, "delete failed",
			"error", err,
			"request_id", requestID,
			"registration_id", regID,
			"actor_id", actorID,
		)
		httputil.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
