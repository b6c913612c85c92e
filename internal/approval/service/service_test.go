package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.opentelemetry.io/otel/trace/noop"

	approvalmetrics "bloodbank/internal/approval/metrics"
	"bloodbank/internal/approval/models"
	requestmodels "bloodbank/internal/bloodrequest/models"
	requeststore "bloodbank/internal/bloodrequest/store"
	donationmodels "bloodbank/internal/donation/models"
	donationstore "bloodbank/internal/donation/store"
	stockservice "bloodbank/internal/stock/service"
	stockstore "bloodbank/internal/stock/store"
	"bloodbank/pkg/domain"
	dErrors "bloodbank/pkg/domain-errors"
	"bloodbank/pkg/platform/tx"
	"bloodbank/pkg/testutil"
)

type EngineSuite struct {
	suite.Suite
	ctx      context.Context
	now      time.Time
	requests *requeststore.InMemoryStore
	offers   *donationstore.InMemoryStore
	ledger   *stockservice.Service
	metrics  *approvalmetrics.Metrics
	engine   *Engine
	runner   *tx.InMemoryRunner
	admin    domain.UserID
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.now = time.Date(2024, 6, 10, 10, 0, 0, 0, time.UTC)
	s.ctx = testutil.ContextAt(s.now)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	runner := tx.NewInMemoryRunner()
	s.runner = runner

	s.requests = requeststore.NewInMemoryStore()
	s.offers = donationstore.NewInMemoryStore()
	s.ledger = stockservice.New(stockstore.NewInMemoryStore(), stockservice.WithTx(runner), stockservice.WithLogger(logger))
	s.metrics = approvalmetrics.New(prometheus.NewRegistry())
	s.engine = New(s.requests, s.offers, s.ledger,
		WithTx(runner),
		WithLogger(logger),
		WithMetrics(s.metrics),
		WithTracer(noop.NewTracerProvider().Tracer("test")),
	)
	s.admin = domain.NewUserID()
}

func (s *EngineSuite) stock(group domain.BloodGroup, units int) {
	if units == 0 {
		_, err := s.ledger.GetOrCreate(s.ctx, group)
		s.Require().NoError(err)
		return
	}
	_, err := s.ledger.Adjust(s.ctx, group, units)
	s.Require().NoError(err)
}

func (s *EngineSuite) units(group domain.BloodGroup) int {
	e, err := s.ledger.GetOrCreate(s.ctx, group)
	s.Require().NoError(err)
	return e.Units
}

func (s *EngineSuite) queue(role domain.Role, group domain.BloodGroup, units int) *requestmodels.BloodRequest {
	r := &requestmodels.BloodRequest{
		ID:         domain.NewBloodRequestID(),
		FirstName:  "Req",
		BloodGroup: group,
		Units:      units,
		Gender:     domain.GenderFemale,
		Role:       role,
		Status:     requestmodels.StatusPending,
		CreatedAt:  s.now,
		UpdatedAt:  s.now,
	}
	s.Require().NoError(s.requests.Create(s.ctx, r))
	return r
}

func (s *EngineSuite) donate(group domain.BloodGroup, units int) (*donationmodels.Offer, *requestmodels.BloodRequest) {
	o := &donationmodels.Offer{
		ID:         domain.NewDonationID(),
		UserID:     domain.NewUserID(),
		FirstName:  "Dana",
		Email:      "dana@example.com",
		Age:        donationmodels.DefaultAge,
		BloodGroup: group,
		Units:      units,
		Gender:     domain.GenderFemale,
		Status:     donationmodels.StatusPending,
		CreatedAt:  s.now,
	}
	s.Require().NoError(s.offers.Create(s.ctx, o))
	r := requestmodels.NewDonorRequest(o.ID, o.UserID, o.FirstName, o.Email, o.Phone, o.Age, group, units, o.Gender, s.now)
	s.Require().NoError(s.requests.Create(s.ctx, r))
	return o, r
}

func (s *EngineSuite) TestApproveWithInsufficientStockDefers() {
	s.stock(domain.BloodGroupOPos, 2)
	r := s.queue(domain.RolePatient, domain.BloodGroupOPos, 5)

	d, err := s.engine.Approve(s.ctx, r.ID, s.admin)
	s.Require().NoError(err)

	s.Equal(models.OutcomeDeferred, d.Outcome)
	s.Equal(requestmodels.StatusPending, d.Request.Status)
	s.Contains(d.Request.AdminMessage, "2 unit(s) of O+ available, 5 requested")
	s.Equal(2, s.units(domain.BloodGroupOPos))

	stored, err := s.requests.FindByID(s.ctx, r.ID)
	s.Require().NoError(err)
	s.Equal(requestmodels.StatusPending, stored.Status)
	s.Equal(d.Request.AdminMessage, stored.AdminMessage)
	s.Equal(1.0, promtest.ToFloat64(s.metrics.Decisions.WithLabelValues("approve", "deferred")))
}

func (s *EngineSuite) TestDeferredRequestCanBeApprovedLater() {
	s.stock(domain.BloodGroupOPos, 2)
	r := s.queue(domain.RoleHospital, domain.BloodGroupOPos, 5)
	_, err := s.engine.Approve(s.ctx, r.ID, s.admin)
	s.Require().NoError(err)

	s.stock(domain.BloodGroupOPos, 3)
	d, err := s.engine.Approve(s.ctx, r.ID, s.admin)
	s.Require().NoError(err)
	s.Equal(models.OutcomeAccepted, d.Outcome)
	s.Equal(0, s.units(domain.BloodGroupOPos))
}

func (s *EngineSuite) TestApproveDebitsExactUnits() {
	s.stock(domain.BloodGroupAPos, 10)
	r := s.queue(domain.RoleHospital, domain.BloodGroupAPos, 4)

	d, err := s.engine.Approve(s.ctx, r.ID, s.admin)
	s.Require().NoError(err)

	s.Equal(models.OutcomeAccepted, d.Outcome)
	s.Equal(requestmodels.StatusAccepted, d.Request.Status)
	s.Require().NotNil(d.Stock)
	s.Equal(6, d.Stock.Units)
	s.Equal(6, s.units(domain.BloodGroupAPos))
	s.Nil(d.Offer)
}

func (s *EngineSuite) TestApproveWithExactStockEmptiesGroup() {
	s.stock(domain.BloodGroupONeg, 1)
	r := s.queue(domain.RolePatient, domain.BloodGroupONeg, 1)

	d, err := s.engine.Approve(s.ctx, r.ID, s.admin)
	s.Require().NoError(err)
	s.Equal(models.OutcomeAccepted, d.Outcome)
	s.Equal(0, s.units(domain.BloodGroupONeg))
}

func (s *EngineSuite) TestApproveDonorCreditsAndApprovesOffer() {
	s.stock(domain.BloodGroupBNeg, 0)
	offer, r := s.donate(domain.BloodGroupBNeg, 3)

	d, err := s.engine.Approve(s.ctx, r.ID, s.admin)
	s.Require().NoError(err)

	s.Equal(models.OutcomeAccepted, d.Outcome)
	s.Equal(3, s.units(domain.BloodGroupBNeg))
	s.Require().NotNil(d.Offer)
	s.Equal(donationmodels.StatusApproved, d.Offer.Status)

	stored, err := s.offers.FindByID(s.ctx, offer.ID)
	s.Require().NoError(err)
	s.Equal(donationmodels.StatusApproved, stored.Status)
	s.Require().NotNil(stored.ApprovedBy)
	s.Equal(s.admin, *stored.ApprovedBy)
}

func (s *EngineSuite) TestReapproveDonorIsConflictWithoutDoubleCredit() {
	_, r := s.donate(domain.BloodGroupBNeg, 3)
	_, err := s.engine.Approve(s.ctx, r.ID, s.admin)
	s.Require().NoError(err)

	_, err = s.engine.Approve(s.ctx, r.ID, s.admin)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	s.Equal(3, s.units(domain.BloodGroupBNeg))
}

func (s *EngineSuite) TestRejectNeverTouchesStock() {
	s.stock(domain.BloodGroupABPos, 7)
	patient := s.queue(domain.RolePatient, domain.BloodGroupABPos, 2)
	offer, donor := s.donate(domain.BloodGroupABPos, 4)

	d, err := s.engine.Reject(s.ctx, patient.ID, s.admin, "")
	s.Require().NoError(err)
	s.Equal(models.OutcomeRejected, d.Outcome)
	s.Equal(requestmodels.StatusRejected, d.Request.Status)
	s.Equal(defaultRejectMessage, d.Request.AdminMessage)

	d, err = s.engine.Reject(s.ctx, donor.ID, s.admin, "deferral period not over")
	s.Require().NoError(err)
	s.Equal("deferral period not over", d.Request.AdminMessage)
	s.Require().NotNil(d.Offer)
	s.Equal(offer.ID, d.Offer.ID)
	s.Equal(donationmodels.StatusRejected, d.Offer.Status)

	s.Equal(7, s.units(domain.BloodGroupABPos))
}

func (s *EngineSuite) TestDecisionsAreTerminal() {
	r := s.queue(domain.RolePatient, domain.BloodGroupAPos, 1)
	_, err := s.engine.Reject(s.ctx, r.ID, s.admin, "")
	s.Require().NoError(err)

	_, err = s.engine.Approve(s.ctx, r.ID, s.admin)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	_, err = s.engine.Reject(s.ctx, r.ID, s.admin, "")
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *EngineSuite) TestUnknownRequest() {
	_, err := s.engine.Approve(s.ctx, domain.NewBloodRequestID(), s.admin)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *EngineSuite) TestApproveDonorWithDeletedOffer() {
	offer, r := s.donate(domain.BloodGroupOPos, 2)
	_, err := s.offers.Delete(s.ctx, donationmodels.Filter{UserID: &offer.UserID})
	s.Require().NoError(err)
	s.Require().NoError(s.requests.DetachOffers(s.ctx, []domain.DonationID{offer.ID}))

	d, err := s.engine.Approve(s.ctx, r.ID, s.admin)
	s.Require().NoError(err)
	s.Nil(d.Offer)
	s.Equal(2, s.units(domain.BloodGroupOPos))
}

func (s *EngineSuite) TestApproveOfferDelegatesToQueueEntry() {
	offer, r := s.donate(domain.BloodGroupANeg, 2)

	d, err := s.engine.ApproveOffer(s.ctx, offer.ID, s.admin)
	s.Require().NoError(err)
	s.Equal(r.ID, d.Request.ID)
	s.Equal(requestmodels.StatusAccepted, d.Request.Status)
	s.Equal(donationmodels.StatusApproved, d.Offer.Status)
	s.Equal(2, s.units(domain.BloodGroupANeg))

	_, err = s.engine.ApproveOffer(s.ctx, offer.ID, s.admin)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	s.Equal(2, s.units(domain.BloodGroupANeg))
}

func (s *EngineSuite) TestRejectOffer() {
	offer, r := s.donate(domain.BloodGroupANeg, 2)

	d, err := s.engine.RejectOffer(s.ctx, offer.ID, s.admin, "")
	s.Require().NoError(err)
	s.Equal(donationmodels.StatusRejected, d.Offer.Status)

	stored, err := s.requests.FindByID(s.ctx, r.ID)
	s.Require().NoError(err)
	s.Equal(requestmodels.StatusRejected, stored.Status)
	s.Equal(0, s.units(domain.BloodGroupANeg))

	_, err = s.engine.RejectOffer(s.ctx, domain.NewDonationID(), s.admin, "")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *EngineSuite) TestConcurrentApprovalsNeverOverdraw() {
	s.stock(domain.BloodGroupOPos, 5)
	ids := make([]domain.BloodRequestID, 8)
	for i := range ids {
		ids[i] = s.queue(domain.RolePatient, domain.BloodGroupOPos, 1).ID
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for _, id := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := s.engine.Approve(s.ctx, id, s.admin)
			if err != nil {
				return
			}
			if d.Outcome == models.OutcomeAccepted {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	s.Equal(5, accepted)
	s.Equal(0, s.units(domain.BloodGroupOPos))
}

type failingSave struct {
	*requeststore.InMemoryStore
}

func (failingSave) Save(context.Context, *requestmodels.BloodRequest) error {
	return errors.New("disk full")
}

func (s *EngineSuite) TestSaveFailureIsInternal() {
	r := s.queue(domain.RolePatient, domain.BloodGroupAPos, 1)
	engine := New(failingSave{s.requests}, s.offers, s.ledger, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	_, err := engine.Reject(s.ctx, r.ID, s.admin, "")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *EngineSuite) TestSaveFailureRollsBackStock() {
	s.stock(domain.BloodGroupAPos, 10)
	r := s.queue(domain.RolePatient, domain.BloodGroupAPos, 4)
	offer, donation := s.donate(domain.BloodGroupBNeg, 3)
	engine := New(failingSave{s.requests}, s.offers, s.ledger,
		WithTx(s.runner),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)

	_, err := engine.Approve(s.ctx, r.ID, s.admin)
	s.Require().Error(err)
	s.Equal(10, s.units(domain.BloodGroupAPos))
	stored, err := s.requests.FindByID(s.ctx, r.ID)
	s.Require().NoError(err)
	s.Equal(requestmodels.StatusPending, stored.Status)

	_, err = engine.Approve(s.ctx, donation.ID, s.admin)
	s.Require().Error(err)
	s.Equal(0, s.units(domain.BloodGroupBNeg))
	storedOffer, err := s.offers.FindByID(s.ctx, offer.ID)
	s.Require().NoError(err)
	s.Equal(donationmodels.StatusPending, storedOffer.Status)
}

func (s *EngineSuite) TestApproveRefusesNonPositiveUnits() {
	s.stock(domain.BloodGroupONeg, 5)
	_, donation := s.donate(domain.BloodGroupONeg, -3)

	_, err := s.engine.Approve(s.ctx, donation.ID, s.admin)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	s.Equal(5, s.units(domain.BloodGroupONeg))
}

type blockingSave struct {
	*requeststore.InMemoryStore
	reached chan struct{}
	release chan struct{}
}

func (b blockingSave) Save(context.Context, *requestmodels.BloodRequest) error {
	close(b.reached)
	<-b.release
	return errors.New("disk full")
}

func (s *EngineSuite) TestStockReadsWaitForDecisionOutcome() {
	s.stock(domain.BloodGroupAPos, 10)
	r := s.queue(domain.RolePatient, domain.BloodGroupAPos, 4)
	save := blockingSave{InMemoryStore: s.requests, reached: make(chan struct{}), release: make(chan struct{})}
	engine := New(save, s.offers, s.ledger,
		WithTx(s.runner),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)

	decided := make(chan error, 1)
	go func() {
		_, err := engine.Approve(s.ctx, r.ID, s.admin)
		decided <- err
	}()
	<-save.reached

	seen := make(chan int, 1)
	go func() {
		entries, err := s.ledger.List(s.ctx)
		if err != nil || len(entries) != 1 {
			seen <- -1
			return
		}
		seen <- entries[0].Units
	}()

	select {
	case units := <-seen:
		close(save.release)
		s.FailNowf("read an in-flight decision", "saw %d units", units)
	case <-time.After(50 * time.Millisecond):
	}
	close(save.release)

	s.Require().Error(<-decided)
	s.Equal(10, <-seen)
}
