package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orgportal/internal/directory/models"
	"orgportal/internal/sentinel"
	id "orgportal/pkg/domain"
)

func newUser(t *testing.T, userID, email string, role models.Role, tenantID, department string) *models.User {
	t.Helper()
	u, err := models.NewUser(id.UserID(userID), "Test User", email, "hash", role, id.TenantID(tenantID), department, time.Now())
	require.NoError(t, err)
	return u
}

func TestCreate_DuplicateID(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newUser(t, "ACMA001", "a@gmail.com", models.RoleManager, "T001", "")))

	err := store.Create(ctx, newUser(t, "ACMA001", "b@gmail.com", models.RoleManager, "T002", ""))
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel.ErrAlreadyUsed)
}

func TestCreate_DuplicateEmailCaseInsensitive(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newUser(t, "ACMA001", "a@gmail.com", models.RoleManager, "T001", "")))

	err := store.Create(ctx, newUser(t, "ACMA002", "A@Gmail.com", models.RoleManager, "T002", ""))
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel.ErrAlreadyUsed)
}

func TestFindByEmail_CaseInsensitive(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newUser(t, "ACMA001", "Boss@Gmail.com", models.RoleManager, "T001", "")))

	found, err := store.FindByEmail(ctx, "boss@gmail.com")
	require.NoError(t, err)
	assert.Equal(t, id.UserID("ACMA001"), found.ID)
}

func TestFindByTenantDeptRole(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newUser(t, "ACDMA001", "hr@gmail.com", models.RoleDeptManager, "T001", "HR")))
	require.NoError(t, store.Create(ctx, newUser(t, "ACEMP001", "emp@gmail.com", models.RoleEmployee, "T001", "HR")))

	found, err := store.FindByTenantDeptRole(ctx, "T001", "hr", models.RoleDeptManager)
	require.NoError(t, err)
	assert.Equal(t, id.UserID("ACDMA001"), found.ID)

	_, err = store.FindByTenantDeptRole(ctx, "T001", "Sales", models.RoleDeptManager)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindFirstByRole_Deterministic(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newUser(t, "ADMIN002", "a2@gmail.com", models.RoleAdmin, "", "")))
	require.NoError(t, store.Create(ctx, newUser(t, "ADMIN001", "a1@gmail.com", models.RoleAdmin, "", "")))

	found, err := store.FindFirstByRole(ctx, models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, id.UserID("ADMIN001"), found.ID)
}

func TestListDepartments_DistinctSorted(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newUser(t, "ACDMA001", "hr@gmail.com", models.RoleDeptManager, "T001", "HR")))
	require.NoError(t, store.Create(ctx, newUser(t, "ACEMP001", "e1@gmail.com", models.RoleEmployee, "T001", "hr")))
	require.NoError(t, store.Create(ctx, newUser(t, "ACDMA002", "it@gmail.com", models.RoleDeptManager, "T001", "Engineering")))

	depts, err := store.ListDepartments(ctx, "T001")
	require.NoError(t, err)
	assert.Len(t, depts, 2)
}

func TestAllIDs(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newUser(t, "ACMA001", "a@gmail.com", models.RoleManager, "T001", "")))
	require.NoError(t, store.Create(ctx, newUser(t, "ACDMA001", "b@gmail.com", models.RoleDeptManager, "T001", "HR")))

	ids, err := store.AllIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ACDMA001", "ACMA001"}, ids)
}
