package service

import (
	"context"

	directory "orgportal/internal/directory/models"
	notifmodels "orgportal/internal/notification/models"
	"orgportal/internal/registration/models"
	tenantmodels "orgportal/internal/tenant/models"
	id "orgportal/pkg/domain"
)

// Store interfaces define persistence contracts. The in-memory and postgres
// stores both satisfy them.

type RequestStore interface {
	Create(ctx context.Context, r *models.Request) error
	FindByID(ctx context.Context, requestID id.RegistrationID) (*models.Request, error)
	Update(ctx context.Context, r *models.Request) error
	Delete(ctx context.Context, requestID id.RegistrationID) error
	ExistsEmail(ctx context.Context, email string) (bool, error)
	FindPendingDuplicate(ctx context.Context, role directory.Role, companyName, department string) (*models.Request, error)
	List(ctx context.Context, filter models.Filter) ([]*models.Request, error)
	AllIDs(ctx context.Context) ([]string, error)
}

type UserStore interface {
	Create(ctx context.Context, u *directory.User) error
	FindByID(ctx context.Context, userID id.UserID) (*directory.User, error)
	FindByEmail(ctx context.Context, email string) (*directory.User, error)
	FindFirstByRole(ctx context.Context, role directory.Role) (*directory.User, error)
	FindByTenantRole(ctx context.Context, tenantID id.TenantID, role directory.Role) (*directory.User, error)
	FindByTenantDeptRole(ctx context.Context, tenantID id.TenantID, department string, role directory.Role) (*directory.User, error)
	ListByTenant(ctx context.Context, tenantID id.TenantID) ([]*directory.User, error)
	AllIDs(ctx context.Context) ([]string, error)
}

type TenantStore interface {
	CreateIfNameAvailable(ctx context.Context, t *tenantmodels.Tenant) error
	FindByID(ctx context.Context, tenantID id.TenantID) (*tenantmodels.Tenant, error)
	FindByName(ctx context.Context, name string) (*tenantmodels.Tenant, error)
	AllIDs(ctx context.Context) ([]string, error)
}

type NotificationStore interface {
	Create(ctx context.Context, n *notifmodels.Notification) error
	AllIDs(ctx context.Context) ([]string, error)
}

// DecisionNotifier delivers the outcome of a decided request to the
// requester. Delivery is best-effort; the workflow never rolls back on a
// notifier failure.
type DecisionNotifier interface {
	NotifyDecision(ctx context.Context, address, userName string, accepted bool, newUserID id.UserID) error
}
