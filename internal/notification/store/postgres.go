package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"orgportal/internal/notification/models"
	"orgportal/internal/sentinel"
	id "orgportal/pkg/domain"
	txcontext "orgportal/pkg/platform/tx"
)

// PostgresStore persists notifications in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed notification store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Create persists a new notification.
func (s *PostgresStore) Create(ctx context.Context, n *models.Notification) error {
	if n == nil {
		return fmt.Errorf("notification is required")
	}
	query := `
		INSERT INTO notifications (notification_id, user_id, message, is_read, registration_id, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		n.ID.String(),
		n.UserID.String(),
		n.Message,
		n.IsRead,
		n.RegistrationID.String(),
		n.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("notification id must be unique: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// FindByID retrieves a notification by ID.
func (s *PostgresStore) FindByID(ctx context.Context, notificationID id.NotificationID) (*models.Notification, error) {
	query := `
		SELECT notification_id, user_id, message, is_read, registration_id, created_at
		FROM notifications
		WHERE notification_id = $1
	`
	n, err := scanNotification(s.execer(ctx).QueryRowContext(ctx, query, notificationID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find notification: %w", err)
	}
	return n, nil
}

// ListByUser returns a user's notifications, newest first.
func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID) ([]*models.Notification, error) {
	query := `
		SELECT notification_id, user_id, message, is_read, registration_id, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC, notification_id DESC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, userID.String())
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []*models.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkRead flags a notification as read.
func (s *PostgresStore) MarkRead(ctx context.Context, notificationID id.NotificationID) error {
	res, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE notification_id = $1`,
		notificationID.String(),
	)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark notification read rows: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// AllIDs returns every notification ID. The identifier allocator scans these.
func (s *PostgresStore) AllIDs(ctx context.Context) ([]string, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `SELECT notification_id FROM notifications ORDER BY notification_id`)
	if err != nil {
		return nil, fmt.Errorf("list notification ids: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var notificationID string
		if err := rows.Scan(&notificationID); err != nil {
			return nil, fmt.Errorf("scan notification id: %w", err)
		}
		out = append(out, notificationID)
	}
	return out, rows.Err()
}

type notificationRow interface {
	Scan(dest ...any) error
}

func scanNotification(row notificationRow) (*models.Notification, error) {
	var n models.Notification
	var registrationID sql.NullString
	if err := row.Scan(&n.ID, &n.UserID, &n.Message, &n.IsRead, &registrationID, &n.CreatedAt); err != nil {
		return nil, err
	}
	n.RegistrationID = id.RegistrationID(registrationID.String)
	return &n, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
