package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"orgportal/internal/notification/models"
	"orgportal/internal/platform/middleware"
	"orgportal/internal/sentinel"
	id "orgportal/pkg/domain"
	dErrors "orgportal/pkg/domain-errors"
	"orgportal/pkg/platform/httputil"
	"orgportal/pkg/platform/middleware/auth"
)

// Store defines the notification reads exposed over HTTP.
type Store interface {
	FindByID(ctx context.Context, notificationID id.NotificationID) (*models.Notification, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]*models.Notification, error)
	MarkRead(ctx context.Context, notificationID id.NotificationID) error
}

type Handler struct {
	store  Store
	logger *slog.Logger
}

func New(store Store, logger *slog.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/users/{id}/notifications", h.HandleListForUser)
	r.Put("/notifications/{id}/read", h.HandleMarkRead)
}

// ListResponse wraps a user's notifications, newest first.
type ListResponse struct {
	Notifications []*models.Notification `json:"notifications"`
}

// HandleListForUser returns the caller's notifications. Users may only read
// their own.
func (h *Handler) HandleListForUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	actorID := auth.GetUserID(ctx)
	if actorID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	userID, err := id.ParseUserID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid user id"))
		return
	}
	if userID != actorID {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "you may only read your own notifications"))
		return
	}

	notifications, err := h.store.ListByUser(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "list notifications failed", "error", err, "request_id", requestID, "user_id", userID)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list notifications"))
		return
	}
	if notifications == nil {
		notifications = []*models.Notification{}
	}

	httputil.WriteJSON(w, http.StatusOK, ListResponse{Notifications: notifications})
}

// HandleMarkRead flags a notification as read. Only its recipient may do so.
func (h *Handler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	actorID := auth.GetUserID(ctx)
	if actorID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	notificationID, err := id.ParseNotificationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid notification id"))
		return
	}

	notification, err := h.store.FindByID(ctx, notificationID)
	if errors.Is(err, sentinel.ErrNotFound) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "notification not found"))
		return
	}
	if err != nil {
		h.logger.ErrorContext(ctx, "load notification failed", "error", err, "request_id", requestID, "notification_id", notificationID)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load notification"))
		return
	}
	if notification.UserID != actorID {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "you may only update your own notifications"))
		return
	}

	if err := h.store.MarkRead(ctx, notificationID); err != nil {
		h.logger.ErrorContext(ctx, "mark notification read failed", "error", err, "request_id", requestID, "notification_id", notificationID)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark notification read"))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
