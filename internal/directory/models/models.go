// Package models defines the organizational directory: users and the closed
// role hierarchy they occupy.
package models

import (
	"strings"
	"time"

	id "orgportal/pkg/domain"
	dErrors "orgportal/pkg/domain-errors"
)

// Role is the closed set of organizational roles. Every switch over Role must
// be total; there is no free-form fallthrough.
type Role string

const (
	// RoleAdmin is the platform operator. Admins belong to no tenant and
	// approve new Manager registrations.
	RoleAdmin Role = "admin"
	// RoleManager heads a tenant. At most one per tenant.
	RoleManager Role = "manager"
	// RoleDeptManager heads one department within a tenant. At most one per
	// (tenant, department) pair.
	RoleDeptManager Role = "dept_manager"
	// RoleEmployee is a rank-and-file member of a department.
	RoleEmployee Role = "employee"
)

// ParseRole validates a wire-level role string.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleManager:
		return RoleManager, nil
	case RoleDeptManager:
		return RoleDeptManager, nil
	case RoleEmployee:
		return RoleEmployee, nil
	default:
		return "", dErrors.New(dErrors.CodeValidation, "unknown role: "+s)
	}
}

func (r Role) String() string { return string(r) }

// RequiresDepartment reports whether users with this role are attached to a
// named department.
func (r Role) RequiresDepartment() bool {
	return r == RoleDeptManager || r == RoleEmployee
}

// User is a provisioned member of the portal. Admin users carry no tenant;
// department is set only for department-scoped roles.
type User struct {
	ID             id.UserID         `json:"id"`
	Name           string            `json:"name"`
	Email          string            `json:"email"`
	PasswordHash   string            `json:"-"`
	Role           Role              `json:"role"`
	TenantID       id.TenantID       `json:"tenant_id,omitempty"`
	Department     string            `json:"department,omitempty"`
	RegistrationID id.RegistrationID `json:"registration_id,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

// NewUser constructs a user, enforcing role/field coherence.
func NewUser(userID id.UserID, name, email, passwordHash string, role Role, tenantID id.TenantID, department string, now time.Time) (*User, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "user id is required")
	}
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "user name is required")
	}
	if email == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "user email is required")
	}
	switch role {
	case RoleAdmin:
		if !tenantID.IsNil() {
			return nil, dErrors.New(dErrors.CodeInvariantViolation, "admin users belong to no tenant")
		}
	case RoleManager, RoleDeptManager, RoleEmployee:
		if tenantID.IsNil() {
			return nil, dErrors.New(dErrors.CodeInvariantViolation, "tenant is required for role "+role.String())
		}
		if role.RequiresDepartment() && department == "" {
			return nil, dErrors.New(dErrors.CodeInvariantViolation, "department is required for role "+role.String())
		}
	default:
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "unknown role")
	}
	return &User{
		ID:           userID,
		Name:         name,
		Email:        strings.ToLower(email),
		PasswordHash: passwordHash,
		Role:         role,
		TenantID:     tenantID,
		Department:   department,
		CreatedAt:    now,
	}, nil
}
