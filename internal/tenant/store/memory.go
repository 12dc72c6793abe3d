package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"orgportal/internal/sentinel"
	"orgportal/internal/tenant/models"
	id "orgportal/pkg/domain"
)

// ErrNotFound is returned when a tenant is not found.
var ErrNotFound = sentinel.ErrNotFound

// InMemory stores tenants in memory for the demo environment and tests.
type InMemory struct {
	mu      sync.RWMutex
	tenants map[id.TenantID]*models.Tenant
	nameIdx map[string]id.TenantID
}

// NewInMemory creates an in-memory tenant store.
func NewInMemory() *InMemory {
	return &InMemory{
		tenants: make(map[id.TenantID]*models.Tenant),
		nameIdx: make(map[string]id.TenantID),
	}
}

// CreateIfNameAvailable atomically creates the tenant if the name is not already taken (case-insensitive).
func (s *InMemory) CreateIfNameAvailable(_ context.Context, t *models.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lower := strings.ToLower(t.Name)
	if _, exists := s.nameIdx[lower]; exists {
		return fmt.Errorf("tenant name must be unique: %w", sentinel.ErrAlreadyUsed)
	}
	if _, exists := s.tenants[t.ID]; exists {
		return fmt.Errorf("tenant id must be unique: %w", sentinel.ErrAlreadyUsed)
	}
	cp := *t
	s.tenants[t.ID] = &cp
	s.nameIdx[lower] = t.ID
	return nil
}

// FindByID retrieves a tenant by ID.
func (s *InMemory) FindByID(_ context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.tenants[tenantID]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, ErrNotFound
}

// FindByName retrieves a tenant by name (case-insensitive).
func (s *InMemory) FindByName(_ context.Context, name string) (*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if tenantID, ok := s.nameIdx[strings.ToLower(name)]; ok {
		cp := *s.tenants[tenantID]
		return &cp, nil
	}
	return nil, ErrNotFound
}

// ListNames returns all tenant names, sorted.
func (s *InMemory) ListNames(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.tenants))
	for _, t := range s.tenants {
		out = append(out, t.Name)
	}
	sort.Strings(out)
	return out, nil
}

// AllIDs returns every tenant ID. The identifier allocator scans these.
func (s *InMemory) AllIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.tenants))
	for tenantID := range s.tenants {
		out = append(out, tenantID.String())
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
	tenants := make(map[id.TenantID]*models.Tenant, len(s.tenants))
	for k, v := range s.tenants {
		tenants[k] = v
	}
	nameIdx := make(map[string]id.TenantID, len(s.nameIdx))
	for k, v := range s.nameIdx {
		nameIdx[k] = v
	}
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.tenants = tenants
		s.nameIdx = nameIdx
	}
}
