package models

import (
	"time"

	id "orgportal/pkg/domain"
	dErrors "orgportal/pkg/domain-errors"
)

// Tenant is a company-level organizational unit, the root of the hierarchy.
// Names are unique across all tenants (case-insensitive).
type Tenant struct {
	ID        id.TenantID `json:"id"`
	Name      string      `json:"name"`
	CreatedAt time.Time   `json:"created_at"`
}

const maxTenantNameLength = 128

// NewTenant constructs a tenant with a validated name.
func NewTenant(tenantID id.TenantID, name string, now time.Time) (*Tenant, error) {
	if tenantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "tenant id is required")
	}
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "tenant name cannot be empty")
	}
	if len(name) > maxTenantNameLength {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "tenant name must be 128 characters or less")
	}
	return &Tenant{
		ID:        tenantID,
		Name:      name,
		CreatedAt: now,
	}, nil
}
