// Package service exposes the read-only tenant lookups the registration form
// is built from: company names and the departments of one company.
package service

import (
	"context"
	"errors"

	"orgportal/internal/sentinel"
	"orgportal/internal/tenant/models"
	id "orgportal/pkg/domain"
	dErrors "orgportal/pkg/domain-errors"
)

// TenantStore is the persistence port for tenants.
type TenantStore interface {
	CreateIfNameAvailable(ctx context.Context, t *models.Tenant) error
	FindByID(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error)
	FindByName(ctx context.Context, name string) (*models.Tenant, error)
	ListNames(ctx context.Context) ([]string, error)
	AllIDs(ctx context.Context) ([]string, error)
}

// DepartmentLister reads the distinct department names of a tenant from the
// user directory.
type DepartmentLister interface {
	ListDepartments(ctx context.Context, tenantID id.TenantID) ([]string, error)
}

// Service answers tenant lookups.
type Service struct {
	tenants     TenantStore
	departments DepartmentLister
}

func New(tenants TenantStore, departments DepartmentLister) *Service {
	return &Service{tenants: tenants, departments: departments}
}

// ListCompanies returns all tenant names.
func (s *Service) ListCompanies(ctx context.Context) ([]string, error) {
	names, err := s.tenants.ListNames(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list companies")
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

// ListDepartments returns the distinct department names of a tenant.
func (s *Service) ListDepartments(ctx context.Context, tenantID id.TenantID) ([]string, error) {
	if tenantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "tenant id is required")
	}
	if _, err := s.tenants.FindByID(ctx, tenantID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "tenant not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load tenant")
	}

	departments, err := s.departments.ListDepartments(ctx, tenantID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list departments")
	}
	if departments == nil {
		departments = []string{}
	}
	return departments, nil
}
