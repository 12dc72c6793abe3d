package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"orgportal/internal/directory/models"
	"orgportal/internal/sentinel"
	id "orgportal/pkg/domain"
	txcontext "orgportal/pkg/platform/tx"
)

// PostgresStore persists users in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed user store.
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

const userColumns = `user_id, name, email, password_hash, role, tenant_id, department_name, registration_id, created_at`

// Create persists a new user.
func (s *PostgresStore) Create(ctx context.Context, u *models.User) error {
	if u == nil {
		return fmt.Errorf("user is required")
	}
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, lower($3), $4, $5, NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''), $9)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		u.ID.String(),
		u.Name,
		u.Email,
		u.PasswordHash,
		string(u.Role),
		u.TenantID.String(),
		u.Department,
		u.RegistrationID.String(),
		u.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user id or email must be unique: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// FindByID retrieves a user by ID.
func (s *PostgresStore) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE user_id = $1`
	return s.findOne(ctx, query, userID.String())
}

// FindByEmail retrieves a user by email (case-insensitive).
func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = lower($1)`
	return s.findOne(ctx, query, email)
}

// FindFirstByRole returns the first user holding the given role, ordered by ID.
func (s *PostgresStore) FindFirstByRole(ctx context.Context, role models.Role) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE role = $1 ORDER BY user_id LIMIT 1`
	return s.findOne(ctx, query, string(role))
}

// FindByTenantRole returns the user holding the given role within a tenant.
func (s *PostgresStore) FindByTenantRole(ctx context.Context, tenantID id.TenantID, role models.Role) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE tenant_id = $1 AND role = $2 ORDER BY user_id LIMIT 1`
	return s.findOne(ctx, query, tenantID.String(), string(role))
}

// FindByTenantDeptRole returns the user holding the given role within a
// (tenant, department) pair. Department comparison is case-insensitive.
func (s *PostgresStore) FindByTenantDeptRole(ctx context.Context, tenantID id.TenantID, department string, role models.Role) (*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE tenant_id = $1 AND lower(department_name) = lower($2) AND role = $3
		ORDER BY user_id
		LIMIT 1
	`
	return s.findOne(ctx, query, tenantID.String(), department, string(role))
}

// ListByTenant returns all users of a tenant, ordered by ID.
func (s *PostgresStore) ListByTenant(ctx context.Context, tenantID id.TenantID) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE tenant_id = $1 ORDER BY user_id`
	rows, err := s.execer(ctx).QueryContext(ctx, query, tenantID.String())
	if err != nil {
		return nil, fmt.Errorf("list users by tenant: %w", err)
	}
	defer rows.Close()

	var out []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// ListDepartments returns the distinct department names of a tenant, sorted.
func (s *PostgresStore) ListDepartments(ctx context.Context, tenantID id.TenantID) ([]string, error) {
	query := `
		SELECT DISTINCT department_name
		FROM users
		WHERE tenant_id = $1 AND department_name IS NOT NULL
		ORDER BY department_name
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, tenantID.String())
	if err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan department: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// AllIDs returns every user ID. The identifier allocator scans these.
func (s *PostgresStore) AllIDs(ctx context.Context) ([]string, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `SELECT user_id FROM users ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list user ids: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		out = append(out, userID)
	}
	return out, rows.Err()
}

func (s *PostgresStore) findOne(ctx context.Context, query string, args ...any) (*models.User, error) {
	u, err := scanUser(s.execer(ctx).QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

type userRow interface {
	Scan(dest ...any) error
}

func scanUser(row userRow) (*models.User, error) {
	var u models.User
	var role string
	var tenantID, department, registrationID sql.NullString
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &tenantID, &department, &registrationID, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.Role = models.Role(role)
	u.TenantID = id.TenantID(tenantID.String)
	u.Department = department.String
	u.RegistrationID = id.RegistrationID(registrationID.String)
	return &u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
