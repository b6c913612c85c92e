package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bloodbank/internal/identity/models"
	"bloodbank/internal/platform/postgres"
	"bloodbank/pkg/domain"
	"bloodbank/pkg/platform/sentinel"
	"bloodbank/pkg/platform/tx"
)

// PostgresStore persists users and credentials.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const userColumns = `u.id, u.username, u.email, u.password_hash, u.is_superuser, u.created_at`

// Create inserts the user and its credential. A taken username surfaces as
// sentinel.ErrConflict. Callers wanting atomicity run it inside a transaction.
func (s *PostgresStore) Create(ctx context.Context, u *models.User, cred models.Credential) error {
	exec := tx.ExecerFor(ctx, s.db)
	_, err := exec.ExecContext(ctx, `
		INSERT INTO users (id, username, email, password_hash, is_superuser, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID.String(), u.Username, u.Email, u.PasswordHash, u.IsSuperuser, u.CreatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}
	_, err = exec.ExecContext(ctx,
		`INSERT INTO credentials (user_id, role) VALUES ($1, $2)`,
		cred.UserID.String(), string(cred.Role),
	)
	if err != nil {
		return fmt.Errorf("insert credential: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.UserID) (*models.User, error) {
	row := tx.ExecerFor(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users u WHERE u.id = $1`, id.String())
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return u, nil
}

func (s *PostgresStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	row := tx.ExecerFor(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users u WHERE LOWER(u.username) = LOWER($1)`, username)
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("find user by username: %w", err)
	}
	return u, nil
}

func (s *PostgresStore) FindCredential(ctx context.Context, id domain.UserID) (*models.Credential, error) {
	var role string
	err := tx.ExecerFor(ctx, s.db).QueryRowContext(ctx,
		`SELECT role FROM credentials WHERE user_id = $1`, id.String()).Scan(&role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("find credential: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find credential: %w", err)
	}
	return &models.Credential{UserID: id, Role: domain.Role(role)}, nil
}

func (s *PostgresStore) ListByRole(ctx context.Context, role domain.Role) ([]*models.Account, error) {
	rows, err := tx.ExecerFor(ctx, s.db).QueryContext(ctx, `
		SELECT `+userColumns+`
		FROM users u JOIN credentials c ON c.user_id = u.id
		WHERE c.role = $1
		ORDER BY LOWER(u.username)`, string(role))
	if err != nil {
		return nil, fmt.Errorf("list users by role: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*models.Account
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("list users by role: %w", err)
		}
		out = append(out, &models.Account{User: u, Role: role})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users by role: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u  models.User
		id string
	)
	if err := row.Scan(&id, &u.Username, &u.Email, &u.PasswordHash, &u.IsSuperuser, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	parsed, err := domain.ParseUserID(id)
	if err != nil {
		return nil, err
	}
	u.ID = parsed
	return &u, nil
}
