// Package models defines the registration request workflow entity and its
// state machine.
package models

import (
	"strings"
	"time"

	"orgportal/internal/directory/models"
	id "orgportal/pkg/domain"
	dErrors "orgportal/pkg/domain-errors"
)

// Status is the closed lifecycle of a registration request. Pending is the
// only non-terminal state; a request leaves it exactly once.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// ParseStatus validates a wire-level status string.
func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusPending:
		return StatusPending, nil
	case StatusAccepted:
		return StatusAccepted, nil
	case StatusRejected:
		return StatusRejected, nil
	default:
		return "", dErrors.New(dErrors.CodeValidation, "unknown status: "+s)
	}
}

func (s Status) String() string { return string(s) }

// Terminal reports whether the status permits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusAccepted || s == StatusRejected
}

// Decision is a requested terminal transition.
type Decision = Status

// Request is a pending ask to become a user at a given role/department/company.
// Once accepted it is immutable history linked from the user it produced.
type Request struct {
	ID                id.RegistrationID `json:"id"`
	UserName          string            `json:"user_name"`
	Email             string            `json:"email"`
	PasswordHash      string            `json:"-"`
	Role              models.Role       `json:"role"`
	Department        string            `json:"department,omitempty"`
	CompanyName       string            `json:"company_name"`
	Status            Status            `json:"status"`
	AssignedManagerID id.UserID         `json:"assigned_manager_id,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	DecidedAt         *time.Time        `json:"decided_at,omitempty"`
}

// NewRequest constructs a pending request. Field coherence beyond what the
// invariant validator covers is enforced here as a last line of defense.
func NewRequest(requestID id.RegistrationID, userName, email, passwordHash string, role models.Role, department, companyName string, now time.Time) (*Request, error) {
	if requestID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "registration id is required")
	}
	if userName == "" || email == "" || passwordHash == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "user name, email, and password are required")
	}
	switch role {
	case models.RoleManager, models.RoleDeptManager, models.RoleEmployee:
	default:
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "role "+role.String()+" cannot be requested")
	}
	if companyName == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "company name is required")
	}
	if role.RequiresDepartment() && department == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "department is required for role "+role.String())
	}
	return &Request{
		ID:           requestID,
		UserName:     userName,
		Email:        strings.ToLower(email),
		PasswordHash: passwordHash,
		Role:         role,
		Department:   department,
		CompanyName:  companyName,
		Status:       StatusPending,
		CreatedAt:    now,
	}, nil
}

// Decide transitions the request out of Pending. The transition is terminal;
// deciding an already-decided request is an invalid-state error, never a
// silent overwrite.
func (r *Request) Decide(decision Decision, now time.Time) error {
	if r.Status.Terminal() {
		return dErrors.New(dErrors.CodeInvalidState, "request has already been decided")
	}
	if !decision.Terminal() {
		return dErrors.New(dErrors.CodeInvalidState, "decision must be accepted or rejected")
	}
	r.Status = decision
	r.DecidedAt = &now
	return nil
}

// Deletable reports whether the request may be removed. Pending requests must
// be decided first.
func (r *Request) Deletable() bool {
	return r.Status.Terminal()
}
