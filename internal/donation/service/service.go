package service

import (
	"context"
	"errors"
	"log/slog"

	requestmodels "bloodbank/internal/bloodrequest/models"
	donationmetrics "bloodbank/internal/donation/metrics"
	"bloodbank/internal/donation/models"
	"bloodbank/pkg/domain"
	dErrors "bloodbank/pkg/domain-errors"
	"bloodbank/pkg/platform/sentinel"
	"bloodbank/pkg/platform/tx"
	"bloodbank/pkg/requestcontext"
)

type OfferStore interface {
	Create(ctx context.Context, o *models.Offer) error
	FindByID(ctx context.Context, id domain.DonationID) (*models.Offer, error)
	List(ctx context.Context, f models.Filter) ([]*models.Offer, error)
	Count(ctx context.Context, f models.Filter) (int, error)
	Delete(ctx context.Context, f models.Filter) ([]domain.DonationID, error)
}

// RequestStore is the slice of the request queue that intake writes to.
type RequestStore interface {
	Create(ctx context.Context, r *requestmodels.BloodRequest) error
	DetachOffers(ctx context.Context, ids []domain.DonationID) error
}

type StoreTx interface {
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

// Service takes donation offers and mirrors each into the approval queue.
type Service struct {
	offers   OfferStore
	requests RequestStore
	tx       StoreTx
	logger   *slog.Logger
	metrics  *donationmetrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *donationmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithTx(runner StoreTx) Option {
	return func(s *Service) { s.tx = runner }
}

func New(offers OfferStore, requests RequestStore, opts ...Option) *Service {
	s := &Service{offers: offers, requests: requests}
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

// Submit records a pending offer and its Donor queue entry in one transaction.
// The email comes from the donor's account.
func (s *Service) Submit(ctx context.Context, donor *domain.Principal, req *models.SubmitDonationRequest) (*models.Offer, error) {
	if !donor.Is(domain.RoleDonor) {
		return nil, dErrors.New(dErrors.CodeForbidden, "only donors can submit donations")
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	group, _ := domain.ParseBloodGroup(req.BloodGroup)
	gender, _ := domain.ParseGender(req.Gender)
	lastDonation, _ := models.ParseOptionalDate(req.LastDonationDate)
	lastReceipt, _ := models.ParseOptionalDate(req.LastReceiptDate)

	now := requestcontext.Now(ctx)
	offer := &models.Offer{
		ID:               domain.NewDonationID(),
		UserID:           donor.UserID,
		FirstName:        req.FirstName,
		Email:            donor.Email,
		Phone:            req.Phone,
		Age:              req.AgeOrDefault(),
		BloodGroup:       group,
		Units:            req.Units,
		Gender:           gender,
		LastDonationDate: lastDonation,
		LastReceiptDate:  lastReceipt,
		Consent:          req.Consent != nil && *req.Consent,
		Status:           models.StatusPending,
		CreatedAt:        now,
	}
	mirror := requestmodels.NewDonorRequest(offer.ID, donor.UserID, offer.FirstName, offer.Email, offer.Phone,
		offer.Age, group, offer.Units, gender, now)

	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.offers.Create(txCtx, offer); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save donation offer")
		}
		if err := s.requests.Create(txCtx, mirror); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to queue donation")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementSubmitted()
	s.logger.InfoContext(ctx, "donation offer submitted",
		"request_id", requestcontext.RequestID(ctx),
		"donation_id", offer.ID.String(),
		"blood_request_id", mirror.ID.String(),
		"blood_group", string(group),
		"units", offer.Units,
	)
	return offer, nil
}

// History lists the donor's own offers newest first.
func (s *Service) History(ctx context.Context, userID domain.UserID) ([]*models.Offer, error) {
	return s.list(ctx, models.Filter{UserID: &userID})
}

// ListAll lists every offer newest first.
func (s *Service) ListAll(ctx context.Context) ([]*models.Offer, error) {
	return s.list(ctx, models.Filter{})
}

func (s *Service) Count(ctx context.Context, f models.Filter) (int, error) {
	var n int
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		if n, err = s.offers.Count(txCtx, f); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to count donation offers")
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Service) FindByID(ctx context.Context, id domain.DonationID) (*models.Offer, error) {
	var o *models.Offer
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		o, err = s.offers.FindByID(txCtx, id)
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "donation offer not found")
		}
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load donation offer")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

// DeleteMine deletes the donor's own offers. Their queue entries stay and lose the link.
func (s *Service) DeleteMine(ctx context.Context, userID domain.UserID) (int, error) {
	return s.delete(ctx, models.Filter{UserID: &userID}, "own")
}

// DeleteAll deletes every offer.
func (s *Service) DeleteAll(ctx context.Context) (int, error) {
	return s.delete(ctx, models.Filter{}, "all")
}

func (s *Service) delete(ctx context.Context, f models.Filter, scope string) (int, error) {
	var n int
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		ids, err := s.offers.Delete(txCtx, f)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete donation offers")
		}
		if err := s.requests.DetachOffers(txCtx, ids); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to unlink donation offers")
		}
		n = len(ids)
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.metrics.AddDeleted(scope, n)
	s.logger.InfoContext(ctx, "donation offers deleted",
		"request_id", requestcontext.RequestID(ctx),
		"scope", scope,
		"count", n,
	)
	return n, nil
}

func (s *Service) list(ctx context.Context, f models.Filter) ([]*models.Offer, error) {
	var out []*models.Offer
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		if out, err = s.offers.List(txCtx, f); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list donation offers")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
