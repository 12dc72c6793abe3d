package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	directory "orgportal/internal/directory/models"
	"orgportal/internal/registration/models"
	"orgportal/internal/sentinel"
	id "orgportal/pkg/domain"
)

func newRequest(t *testing.T, requestID, email string, role directory.Role, company, department string) *models.Request {
	t.Helper()
	r, err := models.NewRequest(id.RegistrationID(requestID), "Test User", email, "hash", role, department, company, time.Now().UTC())
	require.NoError(t, err)
	return r
}

func TestInMemory_Create(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()

	r := newRequest(t, "RR001", "alice@gmail.com", directory.RoleManager, "Acme", "")
	require.NoError(t, s.Create(ctx, r))

	t.Run("duplicate id", func(t *testing.T) {
		dup := newRequest(t, "RR001", "other@gmail.com", directory.RoleManager, "Acme", "")
		assert.ErrorIs(t, s.Create(ctx, dup), sentinel.ErrAlreadyUsed)
	})

	t.Run("duplicate email case-insensitive", func(t *testing.T) {
		dup := newRequest(t, "RR002", "ALICE@gmail.com", directory.RoleManager, "Beta", "")
		assert.ErrorIs(t, s.Create(ctx, dup), sentinel.ErrAlreadyUsed)
	})
}

func TestInMemory_FindUpdateDelete(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()

	r := newRequest(t, "RR001", "bob@gmail.com", directory.RoleEmployee, "Acme", "Sales")
	require.NoError(t, s.Create(ctx, r))

	found, err := s.FindByID(ctx, "RR001")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, found.Status)

	require.NoError(t, found.Decide(models.StatusAccepted, time.Now().UTC()))
	require.NoError(t, s.Update(ctx, found))

	again, err := s.FindByID(ctx, "RR001")
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, again.Status)
	require.NotNil(t, again.DecidedAt)

	require.NoError(t, s.Delete(ctx, "RR001"))
	_, err = s.FindByID(ctx, "RR001")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "RR001"), sentinel.ErrNotFound)
	assert.ErrorIs(t, s.Update(ctx, found), sentinel.ErrNotFound)
}

func TestInMemory_ExistsEmail(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	require.NoError(t, s.Create(ctx, newRequest(t, "RR001", "carol@gmail.com", directory.RoleManager, "Acme", "")))

	exists, err := s.ExistsEmail(ctx, "CAROL@gmail.com")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = s.ExistsEmail(ctx, "nobody@gmail.com")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestInMemory_FindPendingDuplicate(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()

	require.NoError(t, s.Create(ctx, newRequest(t, "RR001", "a@gmail.com", directory.RoleDeptManager, "Acme", "Sales")))
	require.NoError(t, s.Create(ctx, newRequest(t, "RR002", "b@gmail.com", directory.RoleManager, "Acme", "")))

	t.Run("matches role company and department", func(t *testing.T) {
		found, err := s.FindPendingDuplicate(ctx, directory.RoleDeptManager, "ACME", "sales")
		require.NoError(t, err)
		assert.Equal(t, id.RegistrationID("RR001"), found.ID)
	})

	t.Run("manager ignores department", func(t *testing.T) {
		found, err := s.FindPendingDuplicate(ctx, directory.RoleManager, "acme", "")
		require.NoError(t, err)
		assert.Equal(t, id.RegistrationID("RR002"), found.ID)
	})

	t.Run("different department does not match", func(t *testing.T) {
		_, err := s.FindPendingDuplicate(ctx, directory.RoleDeptManager, "Acme", "Marketing")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("decided requests are skipped", func(t *testing.T) {
		r, err := s.FindByID(ctx, "RR002")
		require.NoError(t, err)
		require.NoError(t, r.Decide(models.StatusRejected, time.Now().UTC()))
		require.NoError(t, s.Update(ctx, r))

		_, err = s.FindPendingDuplicate(ctx, directory.RoleManager, "Acme", "")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})
}

func TestInMemory_List(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mk := func(requestID, email string, role directory.Role, company, department string, at time.Time) {
		r, err := models.NewRequest(id.RegistrationID(requestID), "U", email, "h", role, department, company, at)
		require.NoError(t, err)
		require.NoError(t, s.Create(ctx, r))
	}
	mk("RR003", "c@gmail.com", directory.RoleEmployee, "Acme", "Sales", base.Add(2*time.Hour))
	mk("RR001", "a@gmail.com", directory.RoleManager, "Acme", "", base)
	mk("RR002", "b@gmail.com", directory.RoleEmployee, "Beta", "Ops", base.Add(time.Hour))

	t.Run("no filter returns all oldest first", func(t *testing.T) {
		all, err := s.List(ctx, models.Filter{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, id.RegistrationID("RR001"), all[0].ID)
		assert.Equal(t, id.RegistrationID("RR003"), all[2].ID)
	})

	t.Run("filter by role and company", func(t *testing.T) {
		out, err := s.List(ctx, models.Filter{Role: directory.RoleEmployee, CompanyName: "acme"})
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, id.RegistrationID("RR003"), out[0].ID)
	})

	t.Run("filter by status", func(t *testing.T) {
		out, err := s.List(ctx, models.Filter{Status: models.StatusAccepted})
		require.NoError(t, err)
		assert.Empty(t, out)
	})
}

func TestInMemory_AllIDs(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	require.NoError(t, s.Create(ctx, newRequest(t, "RR002", "a@gmail.com", directory.RoleManager, "Acme", "")))
	require.NoError(t, s.Create(ctx, newRequest(t, "RR001", "b@gmail.com", directory.RoleManager, "Beta", "")))

	ids, err := s.AllIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"RR001", "RR002"}, ids)
}
