package service

import (
	"context"
	"errors"
	"fmt"

	directory "orgportal/internal/directory/models"
	"orgportal/internal/registration/models"
	"orgportal/internal/sentinel"
	dErrors "orgportal/pkg/domain-errors"
)

// Router computes who holds approval authority over a registration request.
//
// Routing is evaluated against live org state: a Manager request goes to the
// Admin, a DeptManager request to the target company's Manager, an Employee
// request to the target department's DeptManager. The same rules back both
// initial assignment and the authorization check at decision time.
type Router struct {
	users   UserStore
	tenants TenantStore
}

// NewRouter creates a router over the given stores.
func NewRouter(users UserStore, tenants TenantStore) *Router {
	return &Router{users: users, tenants: tenants}
}

// ApproverFor returns the user currently empowered to decide a request for
// the given role, company, and department. A nil user with a nil error means
// no approver currently exists; that is tolerated at submission time.
func (r *Router) ApproverFor(ctx context.Context, role directory.Role, companyName, department string) (*directory.User, error) {
	switch role {
	case directory.RoleManager:
		return r.findApprover(r.users.FindFirstByRole(ctx, directory.RoleAdmin))
	case directory.RoleDeptManager:
		tenant, err := r.tenants.FindByName(ctx, companyName)
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up company")
		}
		return r.findApprover(r.users.FindByTenantRole(ctx, tenant.ID, directory.RoleManager))
	case directory.RoleEmployee:
		tenant, err := r.tenants.FindByName(ctx, companyName)
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up company")
		}
		return r.findApprover(r.users.FindByTenantDeptRole(ctx, tenant.ID, department, directory.RoleDeptManager))
	case directory.RoleAdmin:
		// Admin accounts are seeded, never requested.
		return nil, dErrors.New(dErrors.CodeValidation, "admin role cannot be requested")
	default:
		return nil, dErrors.New(dErrors.CodeInternal, fmt.Sprintf("unknown role %q", role))
	}
}

// CanApprove reports whether the candidate is currently authorized to decide
// the request. It mirrors ApproverFor against live org state, so a replaced
// department manager loses authority over requests routed while they held
// the post.
func (r *Router) CanApprove(ctx context.Context, candidate *directory.User, request *models.Request) (bool, error) {
	approver, err := r.ApproverFor(ctx, request.Role, request.CompanyName, request.Department)
	if err != nil {
		return false, err
	}
	if approver == nil {
		return false, nil
	}
	return approver.ID == candidate.ID, nil
}

func (r *Router) findApprover(u *directory.User, err error) (*directory.User, error) {
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up approver")
	}
	return u, nil
}
