package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	requestmodels "bloodbank/internal/bloodrequest/models"
	requeststore "bloodbank/internal/bloodrequest/store"
	"bloodbank/internal/dashboard/models"
	donationmodels "bloodbank/internal/donation/models"
	donationstore "bloodbank/internal/donation/store"
	stockmodels "bloodbank/internal/stock/models"
	stockservice "bloodbank/internal/stock/service"
	stockstore "bloodbank/internal/stock/store"
	"bloodbank/pkg/domain"
	dErrors "bloodbank/pkg/domain-errors"
	"bloodbank/pkg/testutil"
)

type DashboardSuite struct {
	suite.Suite
	ctx      context.Context
	now      time.Time
	stock    *stockservice.Service
	offers   *donationstore.InMemoryStore
	requests *requeststore.InMemoryStore
	service  *Service
}

func TestDashboardSuite(t *testing.T) {
	suite.Run(t, new(DashboardSuite))
}

func (s *DashboardSuite) SetupTest() {
	s.now = time.Date(2024, 6, 10, 10, 0, 0, 0, time.UTC)
	s.ctx = testutil.ContextAt(s.now)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.stock = stockservice.New(stockstore.NewInMemoryStore(), stockservice.WithLogger(logger))
	s.offers = donationstore.NewInMemoryStore()
	s.requests = requeststore.NewInMemoryStore()
	s.service = New(s.stock, s.offers, s.requests, WithLogger(logger))
}

func (s *DashboardSuite) offer(user domain.UserID, status donationmodels.Status) {
	o := &donationmodels.Offer{
		ID: domain.NewDonationID(), UserID: user, FirstName: "D", BloodGroup: domain.BloodGroupAPos,
		Units: 1, Gender: domain.GenderMale, Status: status, CreatedAt: s.now,
	}
	s.Require().NoError(s.offers.Create(s.ctx, o))
	r := requestmodels.NewDonorRequest(o.ID, user, "D", "", "", 18, o.BloodGroup, 1, o.Gender, s.now)
	if status == donationmodels.StatusApproved {
		r.Status = requestmodels.StatusAccepted
	}
	s.Require().NoError(s.requests.Create(s.ctx, r))
}

func (s *DashboardSuite) request(user *domain.UserID, role domain.Role, status requestmodels.Status) {
	r := &requestmodels.BloodRequest{
		ID: domain.NewBloodRequestID(), UserID: user, FirstName: "R", BloodGroup: domain.BloodGroupONeg,
		Units: 1, Gender: domain.GenderFemale, Role: role, Status: status, CreatedAt: s.now, UpdatedAt: s.now,
	}
	s.Require().NoError(s.requests.Create(s.ctx, r))
}

func (s *DashboardSuite) TestAdminSummaryTotalAtCapacity() {
	_, err := s.stock.Adjust(s.ctx, domain.BloodGroupAPos, domain.MaxUnits)
	s.Require().NoError(err)
	_, err = s.stock.Adjust(s.ctx, domain.BloodGroupBPos, domain.MaxUnits)
	s.Require().NoError(err)
	_, err = s.stock.Adjust(s.ctx, domain.BloodGroupBPos, 1)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	sum, err := s.service.AdminSummary(s.ctx)
	s.Require().NoError(err)
	s.Equal(2*domain.MaxUnits, sum.TotalUnits)
}

func (s *DashboardSuite) TestAdminSummary() {
	_, err := s.stock.Adjust(s.ctx, domain.BloodGroupAPos, 4)
	s.Require().NoError(err)
	_, err = s.stock.Adjust(s.ctx, domain.BloodGroupONeg, 3)
	s.Require().NoError(err)

	donor := domain.NewUserID()
	s.offer(donor, donationmodels.StatusApproved)
	s.offer(donor, donationmodels.StatusPending)
	s.request(nil, domain.RolePatient, requestmodels.StatusAccepted)
	s.request(nil, domain.RoleHospital, requestmodels.StatusRejected)

	sum, err := s.service.AdminSummary(s.ctx)
	s.Require().NoError(err)

	s.Equal(7, sum.TotalUnits)
	s.Equal(2, sum.AvailableDonors)
	s.Equal(4, sum.TotalRequests)
	s.Equal(1, sum.ApprovedDonations)
	s.Equal(1, sum.AcceptedRequests)
	s.Equal(2, sum.ApprovedRequests)
	s.Require().Len(sum.Breakdown, len(domain.BloodGroups))
	s.Equal(stockmodels.GroupUnits{BloodGroup: domain.BloodGroupAPos, Units: 4}, sum.Breakdown[0])
}

func (s *DashboardSuite) TestAdminSummaryEmpty() {
	sum, err := s.service.AdminSummary(s.ctx)
	s.Require().NoError(err)
	s.Zero(sum.TotalUnits)
	for _, g := range sum.Breakdown {
		s.Zero(g.Units)
	}
}

func (s *DashboardSuite) TestDonorHome() {
	donor := domain.NewUserID()
	s.offer(donor, donationmodels.StatusApproved)
	s.offer(donor, donationmodels.StatusPending)
	s.offer(donor, donationmodels.StatusRejected)
	s.offer(domain.NewUserID(), donationmodels.StatusPending)

	home, err := s.service.DonorHome(s.ctx, donor)
	s.Require().NoError(err)
	s.Equal(3, home.Donations.Total)
	s.Equal(1, home.Donations.Pending)
	s.Equal(1, home.Donations.Approved)
	s.Equal(1, home.Donations.Rejected)
}

func (s *DashboardSuite) TestPatientHomeCountsOwnPatientRequests() {
	patient := domain.NewUserID()
	s.request(&patient, domain.RolePatient, requestmodels.StatusPending)
	s.request(&patient, domain.RolePatient, requestmodels.StatusAccepted)
	s.request(nil, domain.RolePatient, requestmodels.StatusPending)

	home, err := s.service.PatientHome(s.ctx, patient)
	s.Require().NoError(err)
	s.Equal(models.StatusCounts{Total: 2, Pending: 1, Approved: 1}, home.Requests)
}

func (s *DashboardSuite) TestHospitalHome() {
	hospital := domain.NewUserID()
	s.request(&hospital, domain.RoleHospital, requestmodels.StatusAccepted)
	s.request(&hospital, domain.RoleHospital, requestmodels.StatusPending)
	s.offer(domain.NewUserID(), donationmodels.StatusPending)
	_, err := s.stock.Adjust(s.ctx, domain.BloodGroupBPos, 2)
	s.Require().NoError(err)

	home, err := s.service.HospitalHome(s.ctx, hospital)
	s.Require().NoError(err)
	s.Equal(2, home.TotalRequests)
	s.Equal(1, home.ApprovedRequests)
	s.Equal(1, home.AvailableDonors)
	s.Require().Len(home.Stock, 1)
	s.Equal(domain.BloodGroupBPos, home.Stock[0].BloodGroup)
}

type brokenCounter struct{}

func (brokenCounter) Count(context.Context, donationmodels.Filter) (int, error) {
	return 0, errors.New("connection refused")
}

func (s *DashboardSuite) TestFailureIsInternal() {
	svc := New(s.stock, brokenCounter{}, s.requests, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	_, err := svc.AdminSummary(s.ctx)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}
