package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"bloodbank/internal/bloodrequest/models"
	"bloodbank/internal/bloodrequest/service"
	"bloodbank/internal/bloodrequest/store"
	"bloodbank/pkg/domain"
	dErrors "bloodbank/pkg/domain-errors"
	"bloodbank/pkg/testutil"
)

type RequestHandlerSuite struct {
	suite.Suite
	router chi.Router
	store  *store.InMemoryStore
	now    time.Time
}

func TestRequestHandlerSuite(t *testing.T) {
	suite.Run(t, new(RequestHandlerSuite))
}

func (s *RequestHandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.store = store.NewInMemoryStore()
	s.now = time.Date(2024, 6, 10, 10, 0, 0, 0, time.UTC)
	h := New(service.New(s.store, service.WithLogger(logger)), logger)

	r := chi.NewRouter()
	h.RegisterPublic(r)
	h.RegisterPatient(r)
	h.RegisterHospital(r)
	h.RegisterAdmin(r)
	s.router = r
}

func (s *RequestHandlerSuite) patientBody() map[string]any {
	return map[string]any{"first_name": "Pat", "blood_group": "o-", "units": 1, "gender": "Male", "age": 51}
}

func (s *RequestHandlerSuite) TestAnonymousSubmit() {
	req := testutil.WithTime(testutil.NewJSONRequest(s.T(), http.MethodPost, "/requests", s.patientBody()), s.now)
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusCreated)
	resp := testutil.UnmarshalResponse[SubmitResponse](s.T(), rr)
	s.Nil(resp.Request.UserID)
	s.Equal("O-", resp.Request.BloodGroup)
	s.Equal("Patient", resp.Request.Role)
	s.Equal("Pending", resp.Request.Status)
	s.Equal(s.now, resp.Request.CreatedAt)
}

func (s *RequestHandlerSuite) TestSubmitValidation() {
	body := s.patientBody()
	body["units"] = 0
	rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/requests", body))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeValidation))
}

func (s *RequestHandlerSuite) TestPatientHistoryIsOwnOnly() {
	req, p := testutil.As(testutil.NewJSONRequest(s.T(), http.MethodPost, "/requests", s.patientBody()), domain.RolePatient)
	testutil.AssertStatus(s.T(), testutil.DoRequest(s.router, req), http.StatusCreated)
	testutil.AssertStatus(s.T(), testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/requests", s.patientBody())), http.StatusCreated)

	list := testutil.WithPrincipal(testutil.NewRequest(s.T(), http.MethodGet, "/requests"), p)
	rr := testutil.DoRequest(s.router, list)

	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	resp := testutil.UnmarshalResponse[ListResponse](s.T(), rr)
	s.Equal(1, resp.Total)
	s.Equal(p.UserID.String(), *resp.Requests[0].UserID)
}

func (s *RequestHandlerSuite) TestHospitalSubmitAndHistory() {
	body := map[string]any{"hospital_name": "General", "address": "2 Elm St", "blood_group": "A+", "units": 3}
	req, p := testutil.As(testutil.NewJSONRequest(s.T(), http.MethodPost, "/hospital/requests", body), domain.RoleHospital)
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusCreated)
	created := testutil.UnmarshalResponse[SubmitResponse](s.T(), rr)
	s.Equal("General", created.Request.FirstName)
	s.Equal("N/A", created.Request.Gender)

	rr = testutil.DoRequest(s.router, testutil.WithPrincipal(testutil.NewRequest(s.T(), http.MethodGet, "/hospital/requests"), p))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	s.Equal(1, testutil.UnmarshalResponse[ListResponse](s.T(), rr).Total)
}

func (s *RequestHandlerSuite) TestHospitalSubmitNeedsPrincipal() {
	body := map[string]any{"hospital_name": "General", "blood_group": "A+", "units": 3}
	rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/hospital/requests", body))
	testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)
}

func (s *RequestHandlerSuite) TestQueueFilters() {
	testutil.AssertStatus(s.T(), testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/requests", s.patientBody())), http.StatusCreated)
	donor := models.NewDonorRequest(domain.NewDonationID(), domain.NewUserID(), "D", "", "", 20, domain.BloodGroupAPos, 1, domain.GenderMale, s.now)
	s.Require().NoError(s.store.Create(s.T().Context(), donor))

	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/admin/requests"))
	s.Equal(2, testutil.UnmarshalResponse[ListResponse](s.T(), rr).Total)

	rr = testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/admin/requests?role=Donor&status=Pending"))
	resp := testutil.UnmarshalResponse[ListResponse](s.T(), rr)
	s.Require().Equal(1, resp.Total)
	s.Equal("Donor", resp.Requests[0].Role)

	rr = testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/admin/requests?status=Approved"))
	testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)

	rr = testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/admin/requests?role=Admin"))
	testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
}
