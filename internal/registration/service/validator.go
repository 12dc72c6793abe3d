package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	directory "orgportal/internal/directory/models"
	"orgportal/internal/sentinel"
	dErrors "orgportal/pkg/domain-errors"
)

// Policy holds the configurable parts of submission validation.
type Policy struct {
	// EmailDomains is the allow-list of email domains. Empty means any
	// domain is accepted.
	EmailDomains []string
	// MinPasswordLength is the minimum accepted password length.
	MinPasswordLength int
}

// Candidate is a registration submission before it becomes a Request.
// Password is the plaintext credential; it is hashed only after validation
// passes.
type Candidate struct {
	UserName    string
	Email       string
	Password    string
	Role        directory.Role
	Department  string
	CompanyName string
}

// Validator runs the organizational invariant checks a submission must pass
// before it enters the workflow. Checks run in a fixed order and fail fast;
// each failure is caller-correctable and maps to a validation or conflict
// error.
type Validator struct {
	policy   Policy
	users    UserStore
	requests RequestStore
	tenants  TenantStore
}

// NewValidator creates a validator over the given stores.
func NewValidator(policy Policy, users UserStore, requests RequestStore, tenants TenantStore) *Validator {
	return &Validator{policy: policy, users: users, requests: requests, tenants: tenants}
}

// Validate checks a candidate submission against the organizational
// invariants. It never writes.
func (v *Validator) Validate(ctx context.Context, c Candidate) error {
	checks := []func(context.Context, Candidate) error{
		v.checkEmail,
		v.checkPassword,
		v.checkRequiredFields,
		v.checkCompanyExistence,
		v.checkDeptManagerUniqueness,
		v.checkDuplicatePending,
		v.checkEmployeeHasManager,
	}
	for _, check := range checks {
		if err := check(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

// checkEmail verifies the domain allow-list and that the email is not
// already taken by a user or another registration request.
func (v *Validator) checkEmail(ctx context.Context, c Candidate) error {
	addr := strings.ToLower(strings.TrimSpace(c.Email))
	at := strings.LastIndex(addr, "@")
	if at <= 0 || at == len(addr)-1 {
		return dErrors.New(dErrors.CodeValidation, "email address is malformed")
	}
	if len(v.policy.EmailDomains) > 0 {
		domain := addr[at+1:]
		allowed := false
		for _, d := range v.policy.EmailDomains {
			if strings.EqualFold(d, domain) {
				allowed = true
				break
			}
		}
		if !allowed {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("email domain %q is not allowed", domain))
		}
	}

	if _, err := v.users.FindByEmail(ctx, addr); err == nil {
		return dErrors.New(dErrors.CodeValidation, "email is already registered")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check user email")
	}

	exists, err := v.requests.ExistsEmail(ctx, addr)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check registration email")
	}
	if exists {
		return dErrors.New(dErrors.CodeValidation, "email is already used by another registration request")
	}
	return nil
}

// checkPassword enforces minimum length plus at least one uppercase letter,
// one lowercase letter, one digit, and one symbol.
func (v *Validator) checkPassword(_ context.Context, c Candidate) error {
	if len(c.Password) < v.policy.MinPasswordLength {
		return dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("password must be at least %d characters", v.policy.MinPasswordLength))
	}
	var upper, lower, digit, symbol bool
	for _, r := range c.Password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		default:
			symbol = true
		}
	}
	if !upper || !lower || !digit || !symbol {
		return dErrors.New(dErrors.CodeValidation,
			"password must contain an uppercase letter, a lowercase letter, a digit, and a symbol")
	}
	return nil
}

// checkRequiredFields enforces the role-dependent field requirements.
func (v *Validator) checkRequiredFields(_ context.Context, c Candidate) error {
	if strings.TrimSpace(c.UserName) == "" {
		return dErrors.New(dErrors.CodeValidation, "user name is required")
	}
	if strings.TrimSpace(c.CompanyName) == "" {
		return dErrors.New(dErrors.CodeValidation, "company name is required")
	}
	if c.Role.RequiresDepartment() {
		dept := strings.TrimSpace(c.Department)
		if dept == "" || strings.EqualFold(dept, "none") {
			return dErrors.New(dErrors.CodeValidation, "department is required for this role")
		}
	}
	return nil
}

// checkCompanyExistence is role-conditional: a Manager proposes a new
// company, so the name must be free; everyone else joins an existing one.
func (v *Validator) checkCompanyExistence(ctx context.Context, c Candidate) error {
	_, err := v.tenants.FindByName(ctx, c.CompanyName)
	switch {
	case err == nil:
		if c.Role == directory.RoleManager {
			return dErrors.New(dErrors.CodeConflict, "company already exists")
		}
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		if c.Role != directory.RoleManager {
			return dErrors.New(dErrors.CodeValidation, "company does not exist")
		}
		return nil
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up company")
	}
}

// checkDeptManagerUniqueness rejects a DeptManager submission when the
// target department already has one.
func (v *Validator) checkDeptManagerUniqueness(ctx context.Context, c Candidate) error {
	if c.Role != directory.RoleDeptManager {
		return nil
	}
	tenant, err := v.tenants.FindByName(ctx, c.CompanyName)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up company")
	}
	_, err = v.users.FindByTenantDeptRole(ctx, tenant.ID, c.Department, directory.RoleDeptManager)
	switch {
	case err == nil:
		return dErrors.New(dErrors.CodeConflict, "department already has a department manager")
	case errors.Is(err, sentinel.ErrNotFound):
		return nil
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check department manager")
	}
}

// checkDuplicatePending rejects a submission when a pending request for the
// same role, company, and (for department-scoped roles) department already
// exists.
func (v *Validator) checkDuplicatePending(ctx context.Context, c Candidate) error {
	_, err := v.requests.FindPendingDuplicate(ctx, c.Role, c.CompanyName, c.Department)
	switch {
	case err == nil:
		return dErrors.New(dErrors.CodeConflict, "a pending registration request already exists for this position")
	case errors.Is(err, sentinel.ErrNotFound):
		return nil
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check pending requests")
	}
}

// checkEmployeeHasManager requires an existing department manager before an
// employee can be provisioned into a department.
func (v *Validator) checkEmployeeHasManager(ctx context.Context, c Candidate) error {
	if c.Role != directory.RoleEmployee {
		return nil
	}
	tenant, err := v.tenants.FindByName(ctx, c.CompanyName)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up company")
	}
	_, err = v.users.FindByTenantDeptRole(ctx, tenant.ID, c.Department, directory.RoleDeptManager)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeValidation, "department has no department manager yet")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check department manager")
	}
}
