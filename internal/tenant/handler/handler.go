package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"orgportal/internal/platform/middleware"
	id "orgportal/pkg/domain"
	dErrors "orgportal/pkg/domain-errors"
	"orgportal/pkg/platform/httputil"
)

// Service defines the tenant lookups exposed over HTTP.
type Service interface {
	ListCompanies(ctx context.Context) ([]string, error)
	ListDepartments(ctx context.Context, tenantID id.TenantID) ([]string, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/tenants/companies", h.HandleListCompanies)
	r.Get("/tenants/{id}/departments", h.HandleListDepartments)
}

// CompaniesResponse lists selectable company names for the submission form.
type CompaniesResponse struct {
	Companies []string `json:"companies"`
}

// DepartmentsResponse lists the departments of one company.
type DepartmentsResponse struct {
	Departments []string `json:"departments"`
}

// HandleListCompanies returns all company names.
func (h *Handler) HandleListCompanies(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	companies, err := h.service.ListCompanies(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "list companies failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, CompaniesResponse{Companies: companies})
}

// HandleListDepartments returns the departments of one tenant.
func (h *Handler) HandleListDepartments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	tenantID, err := id.ParseTenantID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid tenant id"))
		return
	}

	departments, err := h.service.ListDepartments(ctx, tenantID)
	if err != nil {
		h.logger.ErrorContext(ctx, "list departments failed", "error", err, "request_id", requestID, "tenant_id", tenantID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, DepartmentsResponse{Departments: departments})
}
