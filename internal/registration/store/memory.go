package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	directory "orgportal/internal/directory/models"
	"orgportal/internal/registration/models"
	"orgportal/internal/sentinel"
	id "orgportal/pkg/domain"
)

// ErrNotFound is returned when a registration request is not found.
var ErrNotFound = sentinel.ErrNotFound

// InMemory stores registration requests in memory for the demo environment
// and tests.
type InMemory struct {
	mu       sync.RWMutex
	requests map[id.RegistrationID]*models.Request
}

// NewInMemory creates an in-memory registration request store.
func NewInMemory() *InMemory {
	return &InMemory{requests: make(map[id.RegistrationID]*models.Request)}
}

// Create persists a new request. ID and email must both be unused.
func (s *InMemory) Create(_ context.Context, r *models.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.requests[r.ID]; exists {
		return fmt.Errorf("registration id must be unique: %w", sentinel.ErrAlreadyUsed)
	}
	for _, existing := range s.requests {
		if strings.EqualFold(existing.Email, r.Email) {
			return fmt.Errorf("registration email must be unique: %w", sentinel.ErrAlreadyUsed)
		}
	}
	cp := *r
	s.requests[r.ID] = &cp
	return nil
}

// FindByID retrieves a request by ID.
func (s *InMemory) FindByID(_ context.Context, requestID id.RegistrationID) (*models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.requests[requestID]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, ErrNotFound
}

// Update replaces a stored request.
func (s *InMemory) Update(_ context.Context, r *models.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[r.ID]; !ok {
		return ErrNotFound
	}
	cp := *r
	s.requests[r.ID] = &cp
	return nil
}

// Delete removes a request.
func (s *InMemory) Delete(_ context.Context, requestID id.RegistrationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[requestID]; !ok {
		return ErrNotFound
	}
	delete(s.requests, requestID)
	return nil
}

// ExistsEmail reports whether any request carries the given email
// (case-insensitive, any status).
func (s *InMemory) ExistsEmail(_ context.Context, email string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.requests {
		if strings.EqualFold(r.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

// FindPendingDuplicate returns a pending request matching the same role,
// company, and (for department-scoped roles) department.
func (s *InMemory) FindPendingDuplicate(_ context.Context, role directory.Role, companyName, department string) (*models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.requests {
		if r.Status != models.StatusPending || r.Role != role || !strings.EqualFold(r.CompanyName, companyName) {
			continue
		}
		if role.RequiresDepartment() && !strings.EqualFold(r.Department, department) {
			continue
		}
		cp := *r
		return &cp, nil
	}
	return nil, ErrNotFound
}

// List returns requests matching the filter, oldest first.
func (s *InMemory) List(_ context.Context, filter models.Filter) ([]*models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Request
	for _, r := range s.requests {
		if filter.Role != "" && r.Role != filter.Role {
			continue
		}
		if filter.CompanyName != "" && !strings.EqualFold(r.CompanyName, filter.CompanyName) {
			continue
		}
		if filter.Department != "" && !strings.EqualFold(r.Department, filter.Department) {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// AllIDs returns every registration ID. The identifier allocator scans these.
func (s *InMemory) AllIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.requests))
	for requestID := range s.requests {
		out = append(out, requestID.String())
	}
	sort.Strings(out)
	return out, nil
}

// Snapshot copies the current table and returns a function that restores it.
// Stored values are never mutated in place, so sharing entry pointers between
// the live map and the snapshot is safe.
func (s *InMemory) Snapshot() func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	requests := make(map[id.RegistrationID]*models.Request, len(s.requests))
	for k, v := range s.requests {
		requests[k] = v
	}
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.requests = requests
	}
}
