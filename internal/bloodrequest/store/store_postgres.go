package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"bloodbank/internal/bloodrequest/models"
	"bloodbank/internal/platform/postgres"
	"bloodbank/pkg/domain"
	"bloodbank/pkg/platform/sentinel"
	"bloodbank/pkg/platform/tx"
)

// PostgresStore persists requests in blood_requests.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const requestColumns = `id, user_id, donation_offer_id, first_name, email, phone, age, reason,
	blood_group, units, gender, role, status, admin_message, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, r *models.BloodRequest) error {
	_, err := tx.ExecerFor(ctx, s.db).ExecContext(ctx, `
		INSERT INTO blood_requests (`+requestColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		r.ID.String(), nullable(r.UserID), nullable(r.DonationOfferID),
		r.FirstName, r.Email, r.Phone, r.Age, r.Reason,
		string(r.BloodGroup), r.Units, string(r.Gender), string(r.Role), string(r.Status), r.AdminMessage,
		r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert blood request: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.BloodRequestID) (*models.BloodRequest, error) {
	return s.findOne(ctx, `SELECT `+requestColumns+` FROM blood_requests WHERE id = $1`, id.String())
}

// FindForUpdate locks the row until the surrounding transaction ends.
func (s *PostgresStore) FindForUpdate(ctx context.Context, id domain.BloodRequestID) (*models.BloodRequest, error) {
	return s.findOne(ctx, `SELECT `+requestColumns+` FROM blood_requests WHERE id = $1 FOR UPDATE`, id.String())
}

func (s *PostgresStore) FindByOffer(ctx context.Context, offerID domain.DonationID) (*models.BloodRequest, error) {
	return s.findOne(ctx, `SELECT `+requestColumns+` FROM blood_requests WHERE donation_offer_id = $1`, offerID.String())
}

func (s *PostgresStore) Save(ctx context.Context, r *models.BloodRequest) error {
	res, err := tx.ExecerFor(ctx, s.db).ExecContext(ctx, `
		UPDATE blood_requests
		SET status = $2, admin_message = $3, donation_offer_id = $4, updated_at = $5
		WHERE id = $1`,
		r.ID.String(), string(r.Status), r.AdminMessage, nullable(r.DonationOfferID), r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save blood request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save blood request: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, f models.Filter) ([]*models.BloodRequest, error) {
	where, args := filterClause(f)
	rows, err := tx.ExecerFor(ctx, s.db).QueryContext(ctx,
		`SELECT `+requestColumns+` FROM blood_requests`+where+` ORDER BY created_at DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list blood requests: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*models.BloodRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("list blood requests: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list blood requests: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Count(ctx context.Context, f models.Filter) (int, error) {
	where, args := filterClause(f)
	var n int
	err := tx.ExecerFor(ctx, s.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM blood_requests`+where, args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count blood requests: %w", err)
	}
	return n, nil
}

// DetachOffers clears the offer link of requests pointing at ids, ahead of
// deleting those offers.
func (s *PostgresStore) DetachOffers(ctx context.Context, ids []domain.DonationID) error {
	if len(ids) == 0 {
		return nil
	}
	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = id.String()
	}
	_, err := tx.ExecerFor(ctx, s.db).ExecContext(ctx, `
		UPDATE blood_requests SET donation_offer_id = NULL
		WHERE donation_offer_id = ANY($1::uuid[])`, pq.Array(raw))
	if err != nil {
		return fmt.Errorf("detach donation offers: %w", err)
	}
	return nil
}

func (s *PostgresStore) findOne(ctx context.Context, query string, args ...any) (*models.BloodRequest, error) {
	r, err := scanRequest(tx.ExecerFor(ctx, s.db).QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("find blood request: %w", err)
	}
	return r, nil
}

func filterClause(f models.Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	next := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if f.UserID != nil {
		conds = append(conds, "user_id = "+next(f.UserID.String()))
	}
	if len(f.Roles) > 0 {
		roles := make([]string, len(f.Roles))
		for i, r := range f.Roles {
			roles[i] = string(r)
		}
		conds = append(conds, "role = ANY("+next(pq.Array(roles))+")")
	}
	if f.Status != "" {
		conds = append(conds, "status = "+next(string(f.Status)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*models.BloodRequest, error) {
	var (
		r                   models.BloodRequest
		id                  string
		userID, offerID     sql.NullString
		group, gender, role string
		status              string
	)
	err := row.Scan(&id, &userID, &offerID, &r.FirstName, &r.Email, &r.Phone, &r.Age, &r.Reason,
		&group, &r.Units, &gender, &role, &status, &r.AdminMessage, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	parsed, err := domain.ParseBloodRequestID(id)
	if err != nil {
		return nil, err
	}
	r.ID = parsed
	if userID.Valid {
		uid, err := domain.ParseUserID(userID.String)
		if err != nil {
			return nil, err
		}
		r.UserID = &uid
	}
	if offerID.Valid {
		oid, err := domain.ParseDonationID(offerID.String)
		if err != nil {
			return nil, err
		}
		r.DonationOfferID = &oid
	}
	r.BloodGroup = domain.BloodGroup(group)
	r.Gender = domain.Gender(gender)
	r.Role = domain.Role(role)
	r.Status = models.Status(status)
	return &r, nil
}

func nullable[T fmt.Stringer](id *T) sql.NullString {
	if id == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: (*id).String(), Valid: true}
}
