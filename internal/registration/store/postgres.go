package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	directory "orgportal/internal/directory/models"
	"orgportal/internal/registration/models"
	"orgportal/internal/sentinel"
	id "orgportal/pkg/domain"
	"orgportal/pkg/platform/tx"
)

const requestColumns = `registration_id, user_name, email, password_hash, role, department_name, company_name, status, assigned_manager_id, created_at, decided_at`

// Postgres persists registration requests in PostgreSQL.
type Postgres struct {
	db *sql.DB
}

// NewPostgres creates a PostgreSQL-backed registration request store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) execer(ctx context.Context) executor {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return s.db
}

// Create persists a new request. Unique violations on the ID or email map to
// sentinel.ErrAlreadyUsed.
func (s *Postgres) Create(ctx context.Context, r *models.Request) error {
	const q = `
		INSERT INTO registration_requests (` + requestColumns + `)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, NULLIF($9, ''), $10, $11)`
	_, err := s.execer(ctx).ExecContext(ctx, q,
		r.ID.String(), r.UserName, r.Email, r.PasswordHash, string(r.Role),
		r.Department, r.CompanyName, string(r.Status), r.AssignedManagerID.String(),
		r.CreatedAt, r.DecidedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create registration request: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("create registration request: %w", err)
	}
	return nil
}

// FindByID retrieves a request by ID.
func (s *Postgres) FindByID(ctx context.Context, requestID id.RegistrationID) (*models.Request, error) {
	const q = `SELECT ` + requestColumns + ` FROM registration_requests WHERE registration_id = $1`
	return scanRequest(s.execer(ctx).QueryRowContext(ctx, q, requestID.String()))
}

// Update persists the mutable fields of a request.
func (s *Postgres) Update(ctx context.Context, r *models.Request) error {
	const q = `
		UPDATE registration_requests
		SET status = $2, assigned_manager_id = NULLIF($3, ''), decided_at = $4
		WHERE registration_id = $1`
	res, err := s.execer(ctx).ExecContext(ctx, q,
		r.ID.String(), string(r.Status), r.AssignedManagerID.String(), r.DecidedAt,
	)
	if err != nil {
		return fmt.Errorf("update registration request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update registration request: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a request.
func (s *Postgres) Delete(ctx context.Context, requestID id.RegistrationID) error {
	const q = `DELETE FROM registration_requests WHERE registration_id = $1`
	res, err := s.execer(ctx).ExecContext(ctx, q, requestID.String())
	if err != nil {
		return fmt.Errorf("delete registration request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete registration request: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ExistsEmail reports whether any request carries the given email, any status.
func (s *Postgres) ExistsEmail(ctx context.Context, email string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM registration_requests WHERE lower(email) = lower($1))`
	var exists bool
	if err := s.execer(ctx).QueryRowContext(ctx, q, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("check registration email: %w", err)
	}
	return exists, nil
}

// FindPendingDuplicate returns a pending request for the same role, company,
// and (when the role is department-scoped) department.
func (s *Postgres) FindPendingDuplicate(ctx context.Context, role directory.Role, companyName, department string) (*models.Request, error) {
	q := `SELECT ` + requestColumns + `
		FROM registration_requests
		WHERE status = 'pending' AND role = $1 AND lower(company_name) = lower($2)`
	args := []any{string(role), companyName}
	if role.RequiresDepartment() {
		q += ` AND lower(department_name) = lower($3)`
		args = append(args, department)
	}
	q += ` ORDER BY created_at LIMIT 1`
	return scanRequest(s.execer(ctx).QueryRowContext(ctx, q, args...))
}

// List returns requests matching the filter, oldest first.
func (s *Postgres) List(ctx context.Context, filter models.Filter) ([]*models.Request, error) {
	q := `SELECT ` + requestColumns + ` FROM registration_requests WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.Role != "" {
		q += ` AND role = ` + arg(string(filter.Role))
	}
	if filter.CompanyName != "" {
		q += ` AND lower(company_name) = lower(` + arg(filter.CompanyName) + `)`
	}
	if filter.Department != "" {
		q += ` AND lower(department_name) = lower(` + arg(filter.Department) + `)`
	}
	if filter.Status != "" {
		q += ` AND status = ` + arg(string(filter.Status))
	}
	q += ` ORDER BY created_at, registration_id`

	rows, err := s.execer(ctx).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list registration requests: %w", err)
	}
	defer rows.Close()

	var out []*models.Request
	for rows.Next() {
		r, err := scanRequestRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list registration requests: %w", err)
	}
	return out, nil
}

// AllIDs returns every registration ID.
func (s *Postgres) AllIDs(ctx context.Context) ([]string, error) {
	const q = `SELECT registration_id FROM registration_requests ORDER BY registration_id`
	rows, err := s.execer(ctx).QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list registration ids: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var requestID string
		if err := rows.Scan(&requestID); err != nil {
			return nil, fmt.Errorf("scan registration id: %w", err)
		}
		out = append(out, requestID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list registration ids: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row *sql.Row) (*models.Request, error) {
	r, err := scanRequestRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return r, err
}

func scanRequestRow(row rowScanner) (*models.Request, error) {
	var (
		r          models.Request
		department sql.NullString
		manager    sql.NullString
		decidedAt  sql.NullTime
	)
	err := row.Scan(&r.ID, &r.UserName, &r.Email, &r.PasswordHash, &r.Role,
		&department, &r.CompanyName, &r.Status, &manager, &r.CreatedAt, &decidedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan registration request: %w", err)
	}
	r.Department = department.String
	r.AssignedManagerID = id.UserID(manager.String)
	if decidedAt.Valid {
		t := decidedAt.Time.UTC()
		r.DecidedAt = &t
	}
	return &r, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
