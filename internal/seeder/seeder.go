package seeder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	directory "orgportal/internal/directory/models"
	"orgportal/internal/platform/config"
	"orgportal/internal/sentinel"
	id "orgportal/pkg/domain"
)

// UserStore defines the methods needed for seeding users.
type UserStore interface {
	Create(ctx context.Context, u *directory.User) error
	FindByEmail(ctx context.Context, email string) (*directory.User, error)
}

// Seeder bootstraps the platform administrator. Every registration of a new
// company routes to this account, so the portal is unusable without it.
type Seeder struct {
	users  UserStore
	admin  config.Admin
	logger *slog.Logger
}

// New creates a new seeder.
func New(users UserStore, admin config.Admin, logger *slog.Logger) *Seeder {
	return &Seeder{users: users, admin: admin, logger: logger}
}

// SeedAdmin creates the administrator account if it does not exist yet.
// Idempotent across restarts.
func (s *Seeder) SeedAdmin(ctx context.Context) error {
	existing, err := s.users.FindByEmail(ctx, s.admin.Email)
	if err == nil {
		s.logger.Info("admin account already present", "user_id", existing.ID)
		return nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return fmt.Errorf("check admin account: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(s.admin.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	userID, err := id.ParseUserID(s.admin.UserID)
	if err != nil {
		return fmt.Errorf("invalid admin user id: %w", err)
	}
	admin, err := directory.NewUser(userID, s.admin.Name, s.admin.Email, string(hash),
		directory.RoleAdmin, "", "", time.Now().UTC())
	if err != nil {
		return fmt.Errorf("build admin account: %w", err)
	}

	if err := s.users.Create(ctx, admin); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			// Lost a race against a concurrent instance; the account exists.
			return nil
		}
		return fmt.Errorf("create admin account: %w", err)
	}

	s.logger.Info("admin account seeded", "user_id", admin.ID, "email", admin.Email)
	return nil
}
