package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"orgportal/internal/directory/models"
	"orgportal/internal/sentinel"
	id "orgportal/pkg/domain"
)

// ErrNotFound is returned when a user is not found.
var ErrNotFound = sentinel.ErrNotFound

// InMemory stores users in memory for the demo environment and tests.
type InMemory struct {
	mu       sync.RWMutex
	users    map[id.UserID]*models.User
	emailIdx map[string]id.UserID
}

// NewInMemory creates an in-memory user store.
func NewInMemory() *InMemory {
	return &InMemory{
		users:    make(map[id.UserID]*models.User),
		emailIdx: make(map[string]id.UserID),
	}
}

// Create persists a new user. ID and email must both be unused.
func (s *InMemory) Create(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[u.ID]; exists {
		return fmt.Errorf("user id must be unique: %w", sentinel.ErrAlreadyUsed)
	}
	lower := strings.ToLower(u.Email)
	if _, exists := s.emailIdx[lower]; exists {
		return fmt.Errorf("user email must be unique: %w", sentinel.ErrAlreadyUsed)
	}
	cp := *u
	s.users[u.ID] = &cp
	s.emailIdx[lower] = u.ID
	return nil
}

// FindByID retrieves a user by ID.
func (s *InMemory) FindByID(_ context.Context, userID id.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.users[userID]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, ErrNotFound
}

// FindByEmail retrieves a user by email (case-insensitive).
func (s *InMemory) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if userID, ok := s.emailIdx[strings.ToLower(email)]; ok {
		cp := *s.users[userID]
		return &cp, nil
	}
	return nil, ErrNotFound
}

// FindFirstByRole returns the first user holding the given role, ordered by ID
// for determinism.
func (s *InMemory) FindFirstByRole(_ context.Context, role models.Role) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var match *models.User
	for _, u := range s.users {
		if u.Role != role {
			continue
		}
		if match == nil || u.ID < match.ID {
			match = u
		}
	}
	if match == nil {
		return nil, ErrNotFound
	}
	cp := *match
	return &cp, nil
}

// FindByTenantRole returns the user holding the given role within a tenant.
func (s *InMemory) FindByTenantRole(_ context.Context, tenantID id.TenantID, role models.Role) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.TenantID == tenantID && u.Role == role {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

// FindByTenantDeptRole returns the user holding the given role within a
// (tenant, department) pair. Department comparison is case-insensitive.
func (s *InMemory) FindByTenantDeptRole(_ context.Context, tenantID id.TenantID, department string, role models.Role) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.TenantID == tenantID && u.Role == role && strings.EqualFold(u.Department, department) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

// ListByTenant returns all users of a tenant, ordered by ID.
func (s *InMemory) ListByTenant(_ context.Context, tenantID id.TenantID) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.User
	for _, u := range s.users {
		if u.TenantID == tenantID {
			cp := *u
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ListDepartments returns the distinct department names of a tenant, sorted.
func (s *InMemory) ListDepartments(_ context.Context, tenantID id.TenantID) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]string)
	for _, u := range s.users {
		if u.TenantID == tenantID && u.Department != "" {
			seen[strings.ToLower(u.Department)] = u.Department
		}
	}
	out := make([]string, 0, len(seen))
	for _, d := range seen {
		out = append(out, d)
	}
	sort.Strings(out)
	return out, nil
}

// AllIDs returns every user ID. The identifier allocator scans these.
func (s *InMemory) AllIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.users))
	for userID := range s.users {
		out = append(out, userID.String())
	}
	sort.Strings(out)
	return out, nil
}

// Snapshot copies the current tables and returns a function that restores
// them. Stored values are never mutated in place, so sharing entry pointers
// between the live maps and the snapshot is safe.
func (s *InMemory) Snapshot() func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := make(map[id.UserID]*models.User, len(s.users))
	for k, v := range s.users {
		users[k] = v
	}
	emailIdx := make(map[string]id.UserID, len(s.emailIdx))
	for k, v := range s.emailIdx {
		emailIdx[k] = v
	}
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.users = users
		s.emailIdx = emailIdx
	}
}
