package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"bloodbank/internal/donation/models"
	"bloodbank/pkg/domain"
	"bloodbank/pkg/platform/sentinel"
	"bloodbank/pkg/platform/tx"
)

// PostgresStore persists offers in donation_offers.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const offerColumns = `id, user_id, first_name, email, phone, age, blood_group, units, gender,
	last_donation_date, last_receipt_date, consent, status, approved_by, created_at`

func (s *PostgresStore) Create(ctx context.Context, o *models.Offer) error {
	_, err := tx.ExecerFor(ctx, s.db).ExecContext(ctx, `
		INSERT INTO donation_offers (`+offerColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		o.ID.String(), o.UserID.String(), o.FirstName, o.Email, o.Phone, o.Age,
		string(o.BloodGroup), o.Units, string(o.Gender),
		nullTime(o.LastDonationDate), nullTime(o.LastReceiptDate), o.Consent, string(o.Status),
		nullUser(o.ApprovedBy), o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert donation offer: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.DonationID) (*models.Offer, error) {
	return s.findOne(ctx, `SELECT `+offerColumns+` FROM donation_offers WHERE id = $1`, id.String())
}

func (s *PostgresStore) FindForUpdate(ctx context.Context, id domain.DonationID) (*models.Offer, error) {
	return s.findOne(ctx, `SELECT `+offerColumns+` FROM donation_offers WHERE id = $1 FOR UPDATE`, id.String())
}

func (s *PostgresStore) Save(ctx context.Context, o *models.Offer) error {
	res, err := tx.ExecerFor(ctx, s.db).ExecContext(ctx,
		`UPDATE donation_offers SET status = $2, approved_by = $3 WHERE id = $1`,
		o.ID.String(), string(o.Status), nullUser(o.ApprovedBy),
	)
	if err != nil {
		return fmt.Errorf("save donation offer: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save donation offer: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, f models.Filter) ([]*models.Offer, error) {
	where, args := filterClause(f)
	rows, err := tx.ExecerFor(ctx, s.db).QueryContext(ctx,
		`SELECT `+offerColumns+` FROM donation_offers`+where+` ORDER BY created_at DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list donation offers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*models.Offer
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, fmt.Errorf("list donation offers: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list donation offers: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Count(ctx context.Context, f models.Filter) (int, error) {
	where, args := filterClause(f)
	var n int
	if err := tx.ExecerFor(ctx, s.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM donation_offers`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count donation offers: %w", err)
	}
	return n, nil
}

// Delete removes matching offers. Linked requests lose their offer reference
// through ON DELETE SET NULL.
func (s *PostgresStore) Delete(ctx context.Context, f models.Filter) ([]domain.DonationID, error) {
	where, args := filterClause(f)
	rows, err := tx.ExecerFor(ctx, s.db).QueryContext(ctx, `DELETE FROM donation_offers`+where+` RETURNING id`, args...)
	if err != nil {
		return nil, fmt.Errorf("delete donation offers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []domain.DonationID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("delete donation offers: %w", err)
		}
		id, err := domain.ParseDonationID(raw)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("delete donation offers: %w", err)
	}
	return ids, nil
}

func (s *PostgresStore) findOne(ctx context.Context, query string, args ...any) (*models.Offer, error) {
	o, err := scanOffer(tx.ExecerFor(ctx, s.db).QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("find donation offer: %w", err)
	}
	return o, nil
}

func filterClause(f models.Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.UserID != nil {
		args = append(args, f.UserID.String())
		conds = append(conds, "user_id = $"+strconv.Itoa(len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		conds = append(conds, "status = $"+strconv.Itoa(len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOffer(row rowScanner) (*models.Offer, error) {
	var (
		o                       models.Offer
		id, userID              string
		group, gender, status   string
		lastDonation, lastRecpt sql.NullTime
		approvedBy              sql.NullString
	)
	err := row.Scan(&id, &userID, &o.FirstName, &o.Email, &o.Phone, &o.Age, &group, &o.Units, &gender,
		&lastDonation, &lastRecpt, &o.Consent, &status, &approvedBy, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	if o.ID, err = domain.ParseDonationID(id); err != nil {
		return nil, err
	}
	if o.UserID, err = domain.ParseUserID(userID); err != nil {
		return nil, err
	}
	if approvedBy.Valid {
		by, err := domain.ParseUserID(approvedBy.String)
		if err != nil {
			return nil, err
		}
		o.ApprovedBy = &by
	}
	if lastDonation.Valid {
		o.LastDonationDate = &lastDonation.Time
	}
	if lastRecpt.Valid {
		o.LastReceiptDate = &lastRecpt.Time
	}
	o.BloodGroup = domain.BloodGroup(group)
	o.Gender = domain.Gender(gender)
	o.Status = models.Status(status)
	return &o, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullUser(id *domain.UserID) sql.NullString {
	if id == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: id.String(), Valid: true}
}
