package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"orgportal/internal/notification/models"
	"orgportal/internal/sentinel"
	id "orgportal/pkg/domain"
)

// ErrNotFound is returned when a notification is not found.
var ErrNotFound = sentinel.ErrNotFound

// InMemory stores notifications in memory for the demo environment and tests.
type InMemory struct {
	mu            sync.RWMutex
	notifications map[id.NotificationID]*models.Notification
}

// NewInMemory creates an in-memory notification store.
func NewInMemory() *InMemory {
	return &InMemory{notifications: make(map[id.NotificationID]*models.Notification)}
}

// Create persists a new notification.
func (s *InMemory) Create(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.notifications[n.ID]; exists {
		return fmt.Errorf("notification id must be unique: %w", sentinel.ErrAlreadyUsed)
	}
	cp := *n
	s.notifications[n.ID] = &cp
	return nil
}

// FindByID retrieves a notification by ID.
func (s *InMemory) FindByID(_ context.Context, notificationID id.NotificationID) (*models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n, ok := s.notifications[notificationID]; ok {
		cp := *n
		return &cp, nil
	}
	return nil, ErrNotFound
}

// ListByUser returns a user's notifications, newest first.
func (s *InMemory) ListByUser(_ context.Context, userID id.UserID) ([]*models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Notification
	for _, n := range s.notifications {
		if n.UserID == userID {
			cp := *n
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// MarkRead flags a notification as read.
func (s *InMemory) MarkRead(_ context.Context, notificationID id.NotificationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[notificationID]
	if !ok {
		return ErrNotFound
	}
	cp := *n
	cp.IsRead = true
	s.notifications[notificationID] = &cp
	return nil
}

// AllIDs returns every notification ID. The identifier allocator scans these.
func (s *InMemory) AllIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.notifications))
	for notificationID := range s.notifications {
		out = append(out, notificationID.String())
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
	notifications := make(map[id.NotificationID]*models.Notification, len(s.notifications))
	for k, v := range s.notifications {
		notifications[k] = v
	}
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.notifications = notifications
	}
}
