package handler

import (
	"strings"

	directory "orgportal/internal/directory/models"
	"orgportal/internal/registration/models"
	"orgportal/internal/registration/service"
	dErrors "orgportal/pkg/domain-errors"
)

// SubmitRequest is the payload for submitting a registration request.
type SubmitRequest struct {
	UserName        string `json:"user_name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	Role            string `json:"role"`
	Department      string `json:"department,omitempty"`
	CompanyName     string `json:"company_name"`
}

// Normalize trims whitespace and lowercases the email. The password is left
// untouched.
func (r *SubmitRequest) Normalize() {
	r.UserName = strings.TrimSpace(r.UserName)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Role = strings.ToLower(strings.TrimSpace(r.Role))
	r.Department = strings.TrimSpace(r.Department)
	r.CompanyName = strings.TrimSpace(r.CompanyName)
}

// Validate checks the shape of the payload. Organizational invariants are
// the workflow service's job; this only rejects structurally broken input.
func (r *SubmitRequest) Validate() error {
	if r.UserName == "" {
		return dErrors.New(dErrors.CodeValidation, "user_name is required")
	}
	if r.Email == "" {
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}
	if r.Password == "" {
		return dErrors.New(dErrors.CodeValidation, "password is required")
	}
	if r.Password != r.ConfirmPassword {
		return dErrors.New(dErrors.CodeValidation, "password and confirm_password do not match")
	}
	role, err := directory.ParseRole(r.Role)
	if err != nil {
		return err
	}
	if role == directory.RoleAdmin {
		return dErrors.New(dErrors.CodeValidation, "admin accounts cannot be requested")
	}
	if r.CompanyName == "" {
		return dErrors.New(dErrors.CodeValidation, "company_name is required")
	}
	return nil
}

// Candidate converts the payload for the workflow service. Validate must
// have succeeded first.
func (r *SubmitRequest) Candidate() service.Candidate {
	role, _ := directory.ParseRole(r.Role)
	return service.Candidate{
		UserName:    r.UserName,
		Email:       r.Email,
		Password:    r.Password,
		Role:        role,
		Department:  r.Department,
		CompanyName: r.CompanyName,
	}
}

// DecideRequest is the payload for deciding a pending request.
type DecideRequest struct {
	Status string `json:"status"`
}

func (r *DecideRequest) Normalize() {
	r.Status = strings.ToLower(strings.TrimSpace(r.Status))
}

func (r *DecideRequest) Validate() error {
	status, err := models.ParseStatus(r.Status)
	if err != nil {
		return err
	}
	if !status.Terminal() {
		return dErrors.New(dErrors.CodeValidation, "status must be accepted or rejected")
	}
	return nil
}

// Decision returns the parsed decision. Validate must have succeeded first.
func (r *DecideRequest) Decision() models.Decision {
	status, _ := models.ParseStatus(r.Status)
	return status
}
