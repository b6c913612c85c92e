package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	stockmetrics "bloodbank/internal/stock/metrics"
	"bloodbank/internal/stock/models"
	"bloodbank/pkg/domain"
	dErrors "bloodbank/pkg/domain-errors"
	"bloodbank/pkg/platform/sentinel"
	"bloodbank/pkg/platform/tx"
	"bloodbank/pkg/requestcontext"
)

// Store persists one entry per blood group.
type Store interface {
	FindByGroup(ctx context.Context, group domain.BloodGroup) (*models.Entry, error)
	FindByID(ctx context.Context, id domain.StockID) (*models.Entry, error)
	GetOrCreateForUpdate(ctx context.Context, group domain.BloodGroup, now time.Time) (*models.Entry, error)
	Save(ctx context.Context, entry *models.Entry) error
	ListAll(ctx context.Context) ([]*models.Entry, error)
	Execute(ctx context.Context, id domain.StockID, validate func(*models.Entry) error, mutate func(*models.Entry)) (*models.Entry, error)
	Delete(ctx context.Context, id domain.StockID) error
}

// StoreTx runs a unit of work atomically. Nested calls join the outer unit.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

// Service is the stock ledger.
type Service struct {
	store   Store
	tx      StoreTx
	logger  *slog.Logger
	metrics *stockmetrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *stockmetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithTx shares a transaction runner with the other services.
func WithTx(runner StoreTx) Option {
	return func(s *Service) {
		s.tx = runner
	}
}

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store}
	for _, opt := range opts {
		opt(s)
	}
	if s.tx == nil {
		s.tx = tx.NewInMemoryRunner()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// GetOrCreate returns the group's entry, creating an empty one on first use.
// An existing entry is read without taking its row lock.
func (s *Service) GetOrCreate(ctx context.Context, group domain.BloodGroup) (*models.Entry, error) {
	if !group.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown blood group")
	}
	var entry *models.Entry
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		found, err := s.store.FindByGroup(txCtx, group)
		if err == nil {
			entry = found
			return nil
		}
		if !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load stock")
		}
		e, err := s.store.GetOrCreateForUpdate(txCtx, group, requestcontext.Now(txCtx))
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load stock")
		}
		entry = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Adjust applies a signed delta to a group. A debit that would go negative
// fails with CodeInsufficientStock and writes nothing.
func (s *Service) Adjust(ctx context.Context, group domain.BloodGroup, delta int) (*models.Entry, error) {
	if !group.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown blood group")
	}
	if delta == 0 {
		return s.GetOrCreate(ctx, group)
	}

	var entry *models.Entry
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		now := requestcontext.Now(txCtx)
		e, err := s.store.GetOrCreateForUpdate(txCtx, group, now)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to lock stock")
		}
		if delta > 0 {
			err = e.Credit(delta, now)
		} else {
			err = e.Debit(-delta, now)
		}
		if err != nil {
			return err
		}
		if err := s.store.Save(txCtx, e); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save stock")
		}
		entry = e
		return nil
	})
	if err != nil {
		return nil, err
	}

	kind := "credit"
	if delta < 0 {
		kind = "debit"
	}
	s.observe(ctx, kind, entry)
	return entry, nil
}

// AddStock credits units outside the approval workflow.
func (s *Service) AddStock(ctx context.Context, req *models.AddStockRequest) (*models.Entry, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	group, _ := domain.ParseBloodGroup(req.BloodGroup)
	entry, err := s.Adjust(ctx, group, req.Units)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "stock added",
		"request_id", requestcontext.RequestID(ctx),
		"blood_group", group,
		"units_added", req.Units,
		"units", entry.Units,
	)
	return entry, nil
}

// UpdateStock overwrites the unit count of one entry.
func (s *Service) UpdateStock(ctx context.Context, id domain.StockID, req *models.UpdateStockRequest) (*models.Entry, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	units := *req.Units

	var entry *models.Entry
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		now := requestcontext.Now(txCtx)
		e, err := s.store.Execute(txCtx, id,
			func(e *models.Entry) error {
				probe := *e
				return probe.SetUnits(units, now)
			},
			func(e *models.Entry) {
				_ = e.SetUnits(units, now)
			},
		)
		if err != nil {
			return wrapStockErr(err)
		}
		entry = e
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.observe(ctx, "set", entry)
	s.logger.InfoContext(ctx, "stock updated",
		"request_id", requestcontext.RequestID(ctx),
		"stock_id", id,
		"blood_group", entry.BloodGroup,
		"units", entry.Units,
	)
	return entry, nil
}

// DeleteStock removes an entry. The group is recreated empty on its next contribution.
func (s *Service) DeleteStock(ctx context.Context, id domain.StockID) error {
	var deleted *models.Entry
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		e, err := s.store.FindByID(txCtx, id)
		if err != nil {
			return wrapStockErr(err)
		}
		if err := s.store.Delete(txCtx, id); err != nil {
			return wrapStockErr(err)
		}
		deleted = e
		return nil
	})
	if err != nil {
		return err
	}

	s.observe(ctx, "delete", &models.Entry{BloodGroup: deleted.BloodGroup})
	s.logger.InfoContext(ctx, "stock deleted",
		"request_id", requestcontext.RequestID(ctx),
		"stock_id", id,
		"blood_group", deleted.BloodGroup,
	)
	return nil
}

// List returns every entry in canonical order. It runs as its own unit of
// work so it never sees a decision that is still in flight.
func (s *Service) List(ctx context.Context) ([]*models.Entry, error) {
	var entries []*models.Entry
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		entries, err = s.store.ListAll(txCtx)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list stock")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Expired lists entries past their expiry date as of the request's today.
func (s *Service) Expired(ctx context.Context) ([]*models.Entry, error) {
	return s.filter(ctx, (*models.Entry).IsExpired)
}

// NearExpiry lists entries expiring within the next NearExpiryDays.
func (s *Service) NearExpiry(ctx context.Context) ([]*models.Entry, error) {
	return s.filter(ctx, (*models.Entry).IsNearExpiry)
}

// Overview bundles the ledger with its expiry views for the admin screen.
func (s *Service) Overview(ctx context.Context) (*models.Overview, error) {
	entries, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	today := requestcontext.Today(ctx)
	ov := &models.Overview{
		Entries:    entries,
		Expired:    []*models.Entry{},
		NearExpiry: []*models.Entry{},
		Today:      today,
	}
	for _, e := range entries {
		if e.IsExpired(today) {
			ov.Expired = append(ov.Expired, e)
		}
		if e.IsNearExpiry(today) {
			ov.NearExpiry = append(ov.NearExpiry, e)
		}
	}
	return ov, nil
}

// Breakdown returns units for all eight groups in canonical order, zero when absent.
func (s *Service) Breakdown(ctx context.Context) ([]models.GroupUnits, error) {
	entries, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return models.BreakdownOf(entries), nil
}

func (s *Service) filter(ctx context.Context, keep func(*models.Entry, time.Time) bool) ([]*models.Entry, error) {
	entries, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	today := requestcontext.Today(ctx)
	out := []*models.Entry{}
	for _, e := range entries {
		if keep(e, today) {
			out = append(out, e)
		}
	}
	return out, nil
}

// observe records a change once the enclosing unit of work commits.
func (s *Service) observe(ctx context.Context, kind string, e *models.Entry) {
	if s.metrics == nil || e == nil {
		return
	}
	group, units := string(e.BloodGroup), e.Units
	tx.AfterCommit(ctx, func() {
		s.metrics.SetUnits(group, units)
		s.metrics.IncrementAdjustment(kind)
	})
}

func wrapStockErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "stock entry not found")
	case dErrors.HasCode(err, dErrors.CodeInvariantViolation):
		return dErrors.New(dErrors.CodeValidation, dErrors.MessageOf(err))
	case dErrors.CodeOf(err) != dErrors.CodeInternal:
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update stock")
	}
}
