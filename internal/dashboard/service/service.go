package service

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	requestmodels "bloodbank/internal/bloodrequest/models"
	"bloodbank/internal/dashboard/models"
	donationmodels "bloodbank/internal/donation/models"
	stockmodels "bloodbank/internal/stock/models"
	"bloodbank/pkg/domain"
	dErrors "bloodbank/pkg/domain-errors"
	"bloodbank/pkg/requestcontext"
)

type StockReader interface {
	List(ctx context.Context) ([]*stockmodels.Entry, error)
}

type OfferCounter interface {
	Count(ctx context.Context, f donationmodels.Filter) (int, error)
}

type RequestCounter interface {
	Count(ctx context.Context, f requestmodels.Filter) (int, error)
}

// Service assembles read-only summaries. Independent reads run concurrently.
type Service struct {
	stock    StockReader
	offers   OfferCounter
	requests RequestCounter
	logger   *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(stock StockReader, offers OfferCounter, requests RequestCounter, opts ...Option) *Service {
	s := &Service{stock: stock, offers: offers, requests: requests}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

var nonDonorRoles = []domain.Role{domain.RolePatient, domain.RoleHospital}

// AdminSummary counts approved work as approved offers plus accepted
// Patient and Hospital requests, so a donation is never counted twice.
func (s *Service) AdminSummary(ctx context.Context) (*models.AdminSummary, error) {
	var (
		out     models.AdminSummary
		entries []*stockmodels.Entry
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		entries, err = s.stock.List(gctx)
		return err
	})
	g.Go(func() (err error) {
		out.AvailableDonors, err = s.offers.Count(gctx, donationmodels.Filter{})
		return err
	})
	g.Go(func() (err error) {
		out.ApprovedDonations, err = s.offers.Count(gctx, donationmodels.Filter{Status: donationmodels.StatusApproved})
		return err
	})
	g.Go(func() (err error) {
		out.TotalRequests, err = s.requests.Count(gctx, requestmodels.Filter{})
		return err
	})
	g.Go(func() (err error) {
		out.AcceptedRequests, err = s.requests.Count(gctx, requestmodels.Filter{Roles: nonDonorRoles, Status: requestmodels.StatusAccepted})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, s.fail(ctx, "admin summary", err)
	}

	out.TotalUnits = stockmodels.TotalUnits(entries)
	out.ApprovedRequests = out.ApprovedDonations + out.AcceptedRequests
	out.Breakdown = stockmodels.BreakdownOf(entries)
	return &out, nil
}

func (s *Service) DonorHome(ctx context.Context, userID domain.UserID) (*models.DonorHome, error) {
	var out models.DonorHome
	g, gctx := errgroup.WithContext(ctx)
	count := func(status donationmodels.Status, dst *int) {
		g.Go(func() (err error) {
			*dst, err = s.offers.Count(gctx, donationmodels.Filter{UserID: &userID, Status: status})
			return err
		})
	}
	count("", &out.Donations.Total)
	count(donationmodels.StatusPending, &out.Donations.Pending)
	count(donationmodels.StatusApproved, &out.Donations.Approved)
	count(donationmodels.StatusRejected, &out.Donations.Rejected)
	g.Go(func() (err error) {
		out.Stock, err = s.stock.List(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, s.fail(ctx, "donor home", err)
	}
	return &out, nil
}

func (s *Service) PatientHome(ctx context.Context, userID domain.UserID) (*models.PatientHome, error) {
	var out models.PatientHome
	g, gctx := errgroup.WithContext(ctx)
	counts := s.requestCounts(gctx, g, userID, domain.RolePatient)
	g.Go(func() (err error) {
		out.Stock, err = s.stock.List(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, s.fail(ctx, "patient home", err)
	}
	out.Requests = *counts
	return &out, nil
}

func (s *Service) HospitalHome(ctx context.Context, userID domain.UserID) (*models.HospitalHome, error) {
	var out models.HospitalHome
	g, gctx := errgroup.WithContext(ctx)
	counts := s.requestCounts(gctx, g, userID, domain.RoleHospital)
	g.Go(func() (err error) {
		out.AvailableDonors, err = s.offers.Count(gctx, donationmodels.Filter{})
		return err
	})
	g.Go(func() (err error) {
		out.Stock, err = s.stock.List(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, s.fail(ctx, "hospital home", err)
	}
	out.TotalRequests = counts.Total
	out.ApprovedRequests = counts.Approved
	return &out, nil
}

// requestCounts schedules the per-status counts of one user's requests on g.
// The result is complete once g.Wait returns nil.
func (s *Service) requestCounts(ctx context.Context, g *errgroup.Group, userID domain.UserID, role domain.Role) *models.StatusCounts {
	var out models.StatusCounts
	count := func(status requestmodels.Status, dst *int) {
		g.Go(func() (err error) {
			*dst, err = s.requests.Count(ctx, requestmodels.Filter{UserID: &userID, Roles: []domain.Role{role}, Status: status})
			return err
		})
	}
	count("", &out.Total)
	count(requestmodels.StatusPending, &out.Pending)
	count(requestmodels.StatusAccepted, &out.Approved)
	count(requestmodels.StatusRejected, &out.Rejected)
	return &out
}

func (s *Service) fail(ctx context.Context, view string, err error) error {
	s.logger.ErrorContext(ctx, "failed to build dashboard",
		"request_id", requestcontext.RequestID(ctx),
		"view", view,
		"error", err,
	)
	if dErrors.CodeOf(err) != dErrors.CodeInternal {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load dashboard")
}
