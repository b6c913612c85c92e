package service

import (
	"context"
	"errors"
	"log/slog"

	requestmetrics "bloodbank/internal/bloodrequest/metrics"
	"bloodbank/internal/bloodrequest/models"
	"bloodbank/pkg/domain"
	dErrors "bloodbank/pkg/domain-errors"
	"bloodbank/pkg/platform/sentinel"
	"bloodbank/pkg/platform/tx"
	"bloodbank/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, r *models.BloodRequest) error
	FindByID(ctx context.Context, id domain.BloodRequestID) (*models.BloodRequest, error)
	List(ctx context.Context, f models.Filter) ([]*models.BloodRequest, error)
	Count(ctx context.Context, f models.Filter) (int, error)
}

type StoreTx interface {
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

// Service accepts patient and hospital requests and serves the queue.
type Service struct {
	store   Store
	tx      StoreTx
	logger  *slog.Logger
	metrics *requestmetrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *requestmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithTx shares the runner the approval engine decides under, so reads never
// see a decision that is still in flight.
func WithTx(runner StoreTx) Option {
	return func(s *Service) { s.tx = runner }
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

// SubmitPatient queues a patient request. A nil principal files it anonymously;
// a signed-in caller must be a patient.
func (s *Service) SubmitPatient(ctx context.Context, p *domain.Principal, req *models.SubmitRequest) (*models.BloodRequest, error) {
	if p != nil && !p.Is(domain.RolePatient) {
		return nil, dErrors.New(dErrors.CodeForbidden, "patient requests are filed by patients or anonymously")
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	group, _ := domain.ParseBloodGroup(req.BloodGroup)
	gender, _ := domain.ParseGender(req.Gender)
	now := requestcontext.Now(ctx)
	r := &models.BloodRequest{
		ID:         domain.NewBloodRequestID(),
		FirstName:  req.FirstName,
		Email:      req.Email,
		Phone:      req.Phone,
		Age:        req.Age,
		Reason:     req.Reason,
		BloodGroup: group,
		Units:      req.Units,
		Gender:     gender,
		Role:       domain.RolePatient,
		Status:     models.StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if p != nil {
		uid := p.UserID
		r.UserID = &uid
		if r.Email == "" {
			r.Email = p.Email
		}
	}
	if err := s.create(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// SubmitHospital queues a hospital request. The hospital name is stored as the
// requester name and the address as the reason.
func (s *Service) SubmitHospital(ctx context.Context, p *domain.Principal, req *models.SubmitHospitalRequest) (*models.BloodRequest, error) {
	if !p.Is(domain.RoleHospital) {
		return nil, dErrors.New(dErrors.CodeForbidden, "only hospitals can file hospital requests")
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	group, _ := domain.ParseBloodGroup(req.BloodGroup)
	now := requestcontext.Now(ctx)
	uid := p.UserID
	email := req.Email
	if email == "" {
		email = p.Email
	}
	r := &models.BloodRequest{
		ID:         domain.NewBloodRequestID(),
		UserID:     &uid,
		FirstName:  req.HospitalName,
		Email:      email,
		Phone:      req.Phone,
		Age:        0,
		Reason:     req.Address,
		BloodGroup: group,
		Units:      req.Units,
		Gender:     domain.GenderNotApplicable,
		Role:       domain.RoleHospital,
		Status:     models.StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.create(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Service) create(ctx context.Context, r *models.BloodRequest) error {
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.store.Create(txCtx, r); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save request")
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.metrics.IncrementSubmitted(string(r.Role))
	s.logger.InfoContext(ctx, "blood request submitted",
		"request_id", requestcontext.RequestID(ctx),
		"blood_request_id", r.ID.String(),
		"role", string(r.Role),
		"blood_group", string(r.BloodGroup),
		"units", r.Units,
		"anonymous", r.IsAnonymous(),
	)
	return nil
}

// ListByUser returns the caller's own requests of one role, newest first.
func (s *Service) ListByUser(ctx context.Context, userID domain.UserID, role domain.Role) ([]*models.BloodRequest, error) {
	return s.list(ctx, models.Filter{UserID: &userID, Roles: []domain.Role{role}})
}

// Queue lists requests for the admin, newest first. An empty role set means every role.
func (s *Service) Queue(ctx context.Context, f models.Filter) ([]*models.BloodRequest, error) {
	return s.list(ctx, f)
}

func (s *Service) Count(ctx context.Context, f models.Filter) (int, error) {
	var n int
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		if n, err = s.store.Count(txCtx, f); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to count requests")
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Service) FindByID(ctx context.Context, id domain.BloodRequestID) (*models.BloodRequest, error) {
	var r *models.BloodRequest
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		r, err = s.store.FindByID(txCtx, id)
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "blood request not found")
		}
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load request")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Service) list(ctx context.Context, f models.Filter) ([]*models.BloodRequest, error) {
	var out []*models.BloodRequest
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		if out, err = s.store.List(txCtx, f); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list requests")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
