package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"bloodbank/internal/approval/handler/mocks"
	"bloodbank/internal/approval/models"
	requestmodels "bloodbank/internal/bloodrequest/models"
	donationmodels "bloodbank/internal/donation/models"
	stockmodels "bloodbank/internal/stock/models"
	"bloodbank/pkg/domain"
	dErrors "bloodbank/pkg/domain-errors"
	"bloodbank/pkg/testutil"
)

type ApprovalHandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	router  chi.Router
	now     time.Time
}

func TestApprovalHandlerSuite(t *testing.T) {
	suite.Run(t, new(ApprovalHandlerSuite))
}

func (s *ApprovalHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	s.now = time.Date(2024, 6, 10, 10, 0, 0, 0, time.UTC)

	r := chi.NewRouter()
	New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil))).RegisterAdmin(r)
	s.router = r
}

func (s *ApprovalHandlerSuite) asAdmin(req *http.Request) (*http.Request, *domain.Principal) {
	req, p := testutil.As(req, domain.RoleAdmin)
	return testutil.WithTime(req, s.now), p
}

func (s *ApprovalHandlerSuite) request(status requestmodels.Status, msg string) *requestmodels.BloodRequest {
	return &requestmodels.BloodRequest{
		ID:           domain.NewBloodRequestID(),
		FirstName:    "Pat",
		BloodGroup:   domain.BloodGroupOPos,
		Units:        5,
		Gender:       domain.GenderMale,
		Role:         domain.RolePatient,
		Status:       status,
		AdminMessage: msg,
		CreatedAt:    s.now,
		UpdatedAt:    s.now,
	}
}

func (s *ApprovalHandlerSuite) TestApproveAccepted() {
	r := s.request(requestmodels.StatusAccepted, "Request approved: 5 unit(s) of O+ issued")
	entry, err := stockmodels.NewEntry(domain.NewStockID(), domain.BloodGroupOPos, s.now)
	s.Require().NoError(err)
	s.Require().NoError(entry.Credit(3, s.now))

	req, p := s.asAdmin(testutil.NewRequest(s.T(), http.MethodPost, "/admin/requests/"+r.ID.String()+"/approve"))
	s.service.EXPECT().Approve(gomock.Any(), r.ID, p.UserID).Return(&models.Decision{
		Outcome: models.OutcomeAccepted, Message: r.AdminMessage, Request: r, Stock: entry,
	}, nil)

	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	resp := testutil.UnmarshalResponse[DecisionResponse](s.T(), rr)
	s.Equal("accepted", resp.Outcome)
	s.Equal("Accepted", resp.Request.Status)
	s.Require().NotNil(resp.Stock)
	s.Equal(3, resp.Stock.Units)
	s.Equal("fresh", resp.Stock.Status)
	s.Nil(resp.Donation)
}

func (s *ApprovalHandlerSuite) TestApproveDeferredIsStillOK() {
	r := s.request(requestmodels.StatusPending, "Insufficient stock: 2 unit(s) of O+ available, 5 requested")
	req, _ := s.asAdmin(testutil.NewRequest(s.T(), http.MethodPost, "/admin/requests/"+r.ID.String()+"/approve"))
	s.service.EXPECT().Approve(gomock.Any(), r.ID, gomock.Any()).Return(&models.Decision{
		Outcome: models.OutcomeDeferred, Message: r.AdminMessage, Request: r,
	}, nil)

	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	testutil.AssertJSONContains(s.T(), rr, "outcome", "deferred")
}

func (s *ApprovalHandlerSuite) TestApproveConflict() {
	id := domain.NewBloodRequestID()
	req, _ := s.asAdmin(testutil.NewRequest(s.T(), http.MethodPost, "/admin/requests/"+id.String()+"/approve"))
	s.service.EXPECT().Approve(gomock.Any(), id, gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodeConflict, "request is already Accepted"))

	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, string(dErrors.CodeConflict))
}

func (s *ApprovalHandlerSuite) TestApproveInvalidID() {
	req, _ := s.asAdmin(testutil.NewRequest(s.T(), http.MethodPost, "/admin/requests/not-a-uuid/approve"))
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeInvalidInput))
}

func (s *ApprovalHandlerSuite) TestApproveRequiresPrincipal() {
	id := domain.NewBloodRequestID()
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodPost, "/admin/requests/"+id.String()+"/approve"))
	testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)
}

func (s *ApprovalHandlerSuite) TestRejectWithMessage() {
	r := s.request(requestmodels.StatusRejected, "duplicate request")
	body := map[string]any{"message": "  duplicate request  "}
	req, _ := s.asAdmin(testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/requests/"+r.ID.String()+"/reject", body))
	s.service.EXPECT().Reject(gomock.Any(), r.ID, gomock.Any(), "duplicate request").Return(&models.Decision{
		Outcome: models.OutcomeRejected, Message: r.AdminMessage, Request: r,
	}, nil)

	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	resp := testutil.UnmarshalResponse[DecisionResponse](s.T(), rr)
	s.Equal("rejected", resp.Outcome)
	s.Equal("duplicate request", resp.Request.AdminMessage)
}

func (s *ApprovalHandlerSuite) TestRejectWithoutBody() {
	r := s.request(requestmodels.StatusRejected, "")
	req, _ := s.asAdmin(testutil.NewRequest(s.T(), http.MethodPost, "/admin/requests/"+r.ID.String()+"/reject"))
	s.service.EXPECT().Reject(gomock.Any(), r.ID, gomock.Any(), "").Return(&models.Decision{
		Outcome: models.OutcomeRejected, Request: r,
	}, nil)

	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
}

func (s *ApprovalHandlerSuite) TestRejectMessageTooLong() {
	id := domain.NewBloodRequestID()
	body := map[string]any{"message": strings.Repeat("x", 501)}
	req, _ := s.asAdmin(testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/requests/"+id.String()+"/reject", body))

	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeValidation))
}

func (s *ApprovalHandlerSuite) TestApproveOffer() {
	approver := domain.NewUserID()
	offer := &donationmodels.Offer{
		ID:         domain.NewDonationID(),
		UserID:     domain.NewUserID(),
		BloodGroup: domain.BloodGroupBNeg,
		Units:      3,
		Gender:     domain.GenderFemale,
		Status:     donationmodels.StatusApproved,
		ApprovedBy: &approver,
		CreatedAt:  s.now,
	}
	r := requestmodels.NewDonorRequest(offer.ID, offer.UserID, "Dana", "", "", 18, offer.BloodGroup, 3, offer.Gender, s.now)
	r.Status = requestmodels.StatusAccepted

	req, _ := s.asAdmin(testutil.NewRequest(s.T(), http.MethodPost, "/admin/donations/"+offer.ID.String()+"/approve"))
	s.service.EXPECT().ApproveOffer(gomock.Any(), offer.ID, gomock.Any()).Return(&models.Decision{
		Outcome: models.OutcomeAccepted, Request: r, Offer: offer,
	}, nil)

	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	resp := testutil.UnmarshalResponse[DecisionResponse](s.T(), rr)
	s.Require().NotNil(resp.Donation)
	s.Equal("Approved", resp.Donation.Status)
	s.Equal(approver.String(), *resp.Donation.ApprovedBy)
	s.Equal(offer.ID.String(), *resp.Request.DonationOfferID)
}

func (s *ApprovalHandlerSuite) TestRejectOfferNotFound() {
	id := domain.NewDonationID()
	req, _ := s.asAdmin(testutil.NewRequest(s.T(), http.MethodPost, "/admin/donations/"+id.String()+"/reject"))
	s.service.EXPECT().RejectOffer(gomock.Any(), id, gomock.Any(), "").
		Return(nil, dErrors.New(dErrors.CodeNotFound, "donation offer not found"))

	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, string(dErrors.CodeNotFound))
}

func (s *ApprovalHandlerSuite) TestInternalErrorHidesDetail() {
	id := domain.NewBloodRequestID()
	req, _ := s.asAdmin(testutil.NewRequest(s.T(), http.MethodPost, "/admin/requests/"+id.String()+"/approve"))
	s.service.EXPECT().Approve(gomock.Any(), id, gomock.Any()).
		Return(nil, dErrors.Wrap(errors.New("pq: deadlock detected"), dErrors.CodeInternal, "failed to lock blood request"))

	rr := testutil.DoRequest(s.router, req)

	s.NotContains(rr.Body.String(), "deadlock")
	testutil.AssertStatusAndError(s.T(), rr, http.StatusInternalServerError, string(dErrors.CodeInternal))
}
