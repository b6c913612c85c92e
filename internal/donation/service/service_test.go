package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	requestmodels "bloodbank/internal/bloodrequest/models"
	requeststore "bloodbank/internal/bloodrequest/store"
	donationmetrics "bloodbank/internal/donation/metrics"
	"bloodbank/internal/donation/models"
	"bloodbank/internal/donation/store"
	"bloodbank/pkg/domain"
	dErrors "bloodbank/pkg/domain-errors"
	"bloodbank/pkg/platform/tx"
	"bloodbank/pkg/testutil"
)

type DonationServiceSuite struct {
	suite.Suite
	ctx      context.Context
	offers   *store.InMemoryStore
	requests *requeststore.InMemoryStore
	metrics  *donationmetrics.Metrics
	service  *Service
	donor    *domain.Principal
}

func TestDonationServiceSuite(t *testing.T) {
	suite.Run(t, new(DonationServiceSuite))
}

func (s *DonationServiceSuite) SetupTest() {
	s.ctx = testutil.ContextAt(time.Date(2024, 6, 10, 10, 0, 0, 0, time.UTC))
	s.offers = store.NewInMemoryStore()
	s.requests = requeststore.NewInMemoryStore()
	s.metrics = donationmetrics.New(prometheus.NewRegistry())
	s.service = New(s.offers, s.requests,
		WithTx(tx.NewInMemoryRunner()),
		WithMetrics(s.metrics),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	s.donor = &domain.Principal{UserID: domain.NewUserID(), Username: "dana", Email: "dana@example.com", Role: domain.RoleDonor}
}

func form() *models.SubmitDonationRequest {
	return &models.SubmitDonationRequest{FirstName: "Dana", Phone: "555", BloodGroup: "B-", Units: 3, Gender: "Female"}
}

func (s *DonationServiceSuite) TestSubmitCreatesOfferAndQueueEntry() {
	offer, err := s.service.Submit(s.ctx, s.donor, form())
	s.Require().NoError(err)

	s.Equal(models.StatusPending, offer.Status)
	s.Equal("dana@example.com", offer.Email)
	s.Equal(models.DefaultAge, offer.Age)
	s.False(offer.Consent)
	s.Nil(offer.LastDonationDate)

	mirror, err := s.requests.FindByOffer(s.ctx, offer.ID)
	s.Require().NoError(err)
	s.Equal(domain.RoleDonor, mirror.Role)
	s.Equal(requestmodels.StatusPending, mirror.Status)
	s.Equal("Blood donation", mirror.Reason)
	s.Equal(3, mirror.Units)
	s.Equal(domain.BloodGroupBNeg, mirror.BloodGroup)
	s.Require().NotNil(mirror.UserID)
	s.Equal(s.donor.UserID, *mirror.UserID)
	s.Equal(1.0, promtest.ToFloat64(s.metrics.Submitted))
}

func (s *DonationServiceSuite) TestSubmitKeepsOptionalFields() {
	age := 30
	consent := true
	req := form()
	req.Age = &age
	req.Consent = &consent
	req.LastDonationDate = "2024-01-15"

	offer, err := s.service.Submit(s.ctx, s.donor, req)
	s.Require().NoError(err)
	s.Equal(30, offer.Age)
	s.True(offer.Consent)
	s.Equal("2024-01-15", models.FormatOptionalDate(offer.LastDonationDate))
	s.Equal("", models.FormatOptionalDate(offer.LastReceiptDate))
}

func (s *DonationServiceSuite) TestSubmitRequiresDonor() {
	for _, p := range []*domain.Principal{nil, {UserID: domain.NewUserID(), Role: domain.RolePatient}} {
		_, err := s.service.Submit(s.ctx, p, form())
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	}
	n, err := s.service.Count(s.ctx, models.Filter{})
	s.Require().NoError(err)
	s.Zero(n)
}

func (s *DonationServiceSuite) TestSubmitValidatesForm() {
	missingName := form()
	missingName.FirstName = "  "
	negativeUnits := form()
	negativeUnits.Units = -3
	badDate := form()
	badDate.LastDonationDate = "10/06/2024"

	for _, req := range []*models.SubmitDonationRequest{missingName, negativeUnits, badDate} {
		_, err := s.service.Submit(s.ctx, s.donor, req)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	}

	n, err := s.service.Count(s.ctx, models.Filter{})
	s.Require().NoError(err)
	s.Zero(n)
	queued, err := s.requests.Count(s.ctx, requestmodels.Filter{})
	s.Require().NoError(err)
	s.Zero(queued)
}

func (s *DonationServiceSuite) TestHistoryIsScopedToDonor() {
	other := &domain.Principal{UserID: domain.NewUserID(), Email: "o@example.com", Role: domain.RoleDonor}
	_, err := s.service.Submit(s.ctx, s.donor, form())
	s.Require().NoError(err)
	_, err = s.service.Submit(testutil.ContextAt(time.Date(2024, 6, 11, 10, 0, 0, 0, time.UTC)), s.donor, form())
	s.Require().NoError(err)
	_, err = s.service.Submit(s.ctx, other, form())
	s.Require().NoError(err)

	mine, err := s.service.History(s.ctx, s.donor.UserID)
	s.Require().NoError(err)
	s.Require().Len(mine, 2)
	s.True(mine[0].CreatedAt.After(mine[1].CreatedAt))

	all, err := s.service.ListAll(s.ctx)
	s.Require().NoError(err)
	s.Len(all, 3)
}

func (s *DonationServiceSuite) TestDeleteMineDetachesQueueEntries() {
	offer, err := s.service.Submit(s.ctx, s.donor, form())
	s.Require().NoError(err)
	other := &domain.Principal{UserID: domain.NewUserID(), Email: "o@example.com", Role: domain.RoleDonor}
	kept, err := s.service.Submit(s.ctx, other, form())
	s.Require().NoError(err)

	n, err := s.service.DeleteMine(s.ctx, s.donor.UserID)
	s.Require().NoError(err)
	s.Equal(1, n)

	_, err = s.service.FindByID(s.ctx, offer.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	_, err = s.service.FindByID(s.ctx, kept.ID)
	s.NoError(err)

	queue, err := s.requests.List(s.ctx, requestmodels.Filter{})
	s.Require().NoError(err)
	s.Len(queue, 2)
	detached := 0
	for _, r := range queue {
		if r.DonationOfferID == nil {
			detached++
		}
	}
	s.Equal(1, detached)
	s.Equal(1.0, promtest.ToFloat64(s.metrics.Deleted.WithLabelValues("own")))
}

func (s *DonationServiceSuite) TestDeleteAll() {
	for range 3 {
		_, err := s.service.Submit(s.ctx, s.donor, form())
		s.Require().NoError(err)
	}
	n, err := s.service.DeleteAll(s.ctx)
	s.Require().NoError(err)
	s.Equal(3, n)

	n, err = s.service.DeleteAll(s.ctx)
	s.Require().NoError(err)
	s.Zero(n)
}

type failingRequests struct{}

func (failingRequests) Create(context.Context, *requestmodels.BloodRequest) error {
	return errors.New("connection reset")
}

func (failingRequests) DetachOffers(context.Context, []domain.DonationID) error { return nil }

func (s *DonationServiceSuite) TestSubmitSurfacesQueueFailureAsInternal() {
	svc := New(s.offers, failingRequests{}, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	_, err := svc.Submit(s.ctx, s.donor, form())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))

	n, err := s.offers.Count(s.ctx, models.Filter{})
	s.Require().NoError(err)
	s.Zero(n, "offer is rolled back with its queue entry")
}
