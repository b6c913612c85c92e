package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bloodbank/internal/stock/models"
	"bloodbank/pkg/domain"
	"bloodbank/pkg/platform/sentinel"
	"bloodbank/pkg/platform/tx"
	"bloodbank/pkg/requestcontext"
)

// PostgresStore persists entries in blood_stock.
// Locking reads only hold their row lock when ctx carries a transaction.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const stockColumns = `id, blood_group, units, collected_date, expiry_date, updated_at`

func (s *PostgresStore) FindByGroup(ctx context.Context, group domain.BloodGroup) (*models.Entry, error) {
	row := tx.ExecerFor(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+stockColumns+` FROM blood_stock WHERE blood_group = $1`, string(group))
	e, err := scanEntry(row)
	if err != nil {
		return nil, fmt.Errorf("find stock by group: %w", err)
	}
	return e, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.StockID) (*models.Entry, error) {
	row := tx.ExecerFor(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+stockColumns+` FROM blood_stock WHERE id = $1`, id.String())
	e, err := scanEntry(row)
	if err != nil {
		return nil, fmt.Errorf("find stock by id: %w", err)
	}
	return e, nil
}

// GetOrCreateForUpdate inserts an empty entry when the group has none, then
// locks the row with SELECT ... FOR UPDATE.
func (s *PostgresStore) GetOrCreateForUpdate(ctx context.Context, group domain.BloodGroup, now time.Time) (*models.Entry, error) {
	fresh, err := models.NewEntry(domain.NewStockID(), group, now)
	if err != nil {
		return nil, err
	}
	exec := tx.ExecerFor(ctx, s.db)
	_, err = exec.ExecContext(ctx, `
		INSERT INTO blood_stock (`+stockColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (blood_group) DO NOTHING`,
		fresh.ID.String(), string(fresh.BloodGroup), fresh.Units, fresh.CollectedDate, fresh.ExpiryDate, fresh.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("ensure stock row: %w", err)
	}

	row := exec.QueryRowContext(ctx,
		`SELECT `+stockColumns+` FROM blood_stock WHERE blood_group = $1 FOR UPDATE`, string(group))
	e, err := scanEntry(row)
	if err != nil {
		return nil, fmt.Errorf("lock stock row: %w", err)
	}
	return e, nil
}

func (s *PostgresStore) Save(ctx context.Context, e *models.Entry) error {
	res, err := tx.ExecerFor(ctx, s.db).ExecContext(ctx, `
		UPDATE blood_stock
		SET units = $2, collected_date = $3, expiry_date = $4, updated_at = $5
		WHERE id = $1`,
		e.ID.String(), e.Units, e.CollectedDate, e.ExpiryDate, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save stock: %w", err)
	}
	return requireOneRow(res, "save stock")
}

func (s *PostgresStore) ListAll(ctx context.Context) ([]*models.Entry, error) {
	rows, err := tx.ExecerFor(ctx, s.db).QueryContext(ctx, `SELECT `+stockColumns+` FROM blood_stock`)
	if err != nil {
		return nil, fmt.Errorf("list stock: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*models.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("list stock: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list stock: %w", err)
	}
	SortCanonical(out)
	return out, nil
}

// Execute locks the row, validates, mutates and writes it back.
func (s *PostgresStore) Execute(ctx context.Context, id domain.StockID, validate func(*models.Entry) error, mutate func(*models.Entry)) (*models.Entry, error) {
	exec := tx.ExecerFor(ctx, s.db)
	row := exec.QueryRowContext(ctx,
		`SELECT `+stockColumns+` FROM blood_stock WHERE id = $1 FOR UPDATE`, id.String())
	e, err := scanEntry(row)
	if err != nil {
		return nil, fmt.Errorf("lock stock row: %w", err)
	}
	if err := validate(e); err != nil {
		return nil, err
	}
	mutate(e)
	if err := s.Save(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id domain.StockID) error {
	res, err := tx.ExecerFor(ctx, s.db).ExecContext(ctx, `DELETE FROM blood_stock WHERE id = $1`, id.String())
	if err != nil {
		return fmt.Errorf("delete stock: %w", err)
	}
	return requireOneRow(res, "delete stock")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*models.Entry, error) {
	var (
		e     models.Entry
		id    string
		group string
	)
	if err := row.Scan(&id, &group, &e.Units, &e.CollectedDate, &e.ExpiryDate, &e.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	parsed, err := domain.ParseStockID(id)
	if err != nil {
		return nil, err
	}
	e.ID = parsed
	e.BloodGroup = domain.BloodGroup(group)
	e.CollectedDate = requestcontext.DateOf(e.CollectedDate)
	e.ExpiryDate = requestcontext.DateOf(e.ExpiryDate)
	return &e, nil
}

func requireOneRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
