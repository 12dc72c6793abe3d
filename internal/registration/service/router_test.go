package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	directory "orgportal/internal/directory/models"
	directorystore "orgportal/internal/directory/store"
	"orgportal/internal/registration/models"
	tenantmodels "orgportal/internal/tenant/models"
	tenantstore "orgportal/internal/tenant/store"
	id "orgportal/pkg/domain"
)

type routerFixture struct {
	r       *Router
	users   *directorystore.InMemory
	tenants *tenantstore.InMemory
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	f := &routerFixture{
		users:   directorystore.NewInMemory(),
		tenants: tenantstore.NewInMemory(),
	}
	f.r = NewRouter(f.users, f.tenants)
	return f
}

func (f *routerFixture) seedUser(t *testing.T, userID id.UserID, role directory.Role, tenantID id.TenantID, department string) *directory.User {
	t.Helper()
	u, err := directory.NewUser(userID, "User "+userID.String(), userID.String()+"@gmail.com", "hash",
		role, tenantID, department, time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func (f *routerFixture) seedTenant(t *testing.T, tenantID id.TenantID, name string) {
	t.Helper()
	tenant, err := tenantmodels.NewTenant(tenantID, name, time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, f.tenants.CreateIfNameAvailable(context.Background(), tenant))
}

func TestRouter_ApproverFor(t *testing.T) {
	ctx := context.Background()
	f := newRouterFixture(t)

	admin := f.seedUser(t, "ADMIN001", directory.RoleAdmin, "", "")
	f.seedTenant(t, "T001", "Acme")
	manager := f.seedUser(t, "ACMA001", directory.RoleManager, "T001", "")
	deptManager := f.seedUser(t, "ACDMA001", directory.RoleDeptManager, "T001", "HR")

	t.Run("manager request routes to admin", func(t *testing.T) {
		got, err := f.r.ApproverFor(ctx, directory.RoleManager, "New Co", "")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, admin.ID, got.ID)
	})

	t.Run("dept manager request routes to company manager", func(t *testing.T) {
		got, err := f.r.ApproverFor(ctx, directory.RoleDeptManager, "Acme", "HR")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, manager.ID, got.ID)
	})

	t.Run("employee request routes to department manager", func(t *testing.T) {
		got, err := f.r.ApproverFor(ctx, directory.RoleEmployee, "Acme", "HR")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, deptManager.ID, got.ID)
	})

	t.Run("employee request with no dept manager yields nobody", func(t *testing.T) {
		got, err := f.r.ApproverFor(ctx, directory.RoleEmployee, "Acme", "Sales")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("unknown company yields nobody", func(t *testing.T) {
		got, err := f.r.ApproverFor(ctx, directory.RoleDeptManager, "Nowhere Inc", "HR")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("admin role cannot be requested", func(t *testing.T) {
		_, err := f.r.ApproverFor(ctx, directory.RoleAdmin, "", "")
		assert.Error(t, err)
	})
}

func TestRouter_CanApprove(t *testing.T) {
	ctx := context.Background()
	f := newRouterFixture(t)

	f.seedUser(t, "ADMIN001", directory.RoleAdmin, "", "")
	f.seedTenant(t, "T001", "Acme")
	manager := f.seedUser(t, "ACMA001", directory.RoleManager, "T001", "")
	deptManager := f.seedUser(t, "ACDMA001", directory.RoleDeptManager, "T001", "HR")

	request, err := models.NewRequest("RR001", "Carol Wu", "carol@gmail.com", "hash",
		directory.RoleEmployee, "HR", "Acme", time.Now().UTC())
	require.NoError(t, err)

	t.Run("current dept manager may approve", func(t *testing.T) {
		ok, err := f.r.CanApprove(ctx, deptManager, request)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("company manager may not approve employee requests", func(t *testing.T) {
		ok, err := f.r.CanApprove(ctx, manager, request)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("authority follows live org state", func(t *testing.T) {
		// The routing recorded at submission is not trusted at decision
		// time; a request for a department with no current manager has no
		// valid approver at all.
		other, err := models.NewRequest("RR002", "Dana Lee", "dana@gmail.com", "hash",
			directory.RoleEmployee, "Sales", "Acme", time.Now().UTC())
		require.NoError(t, err)

		ok, err := f.r.CanApprove(ctx, deptManager, other)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
