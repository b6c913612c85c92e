package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"bloodbank/internal/dashboard/models"
	"bloodbank/pkg/domain"
	dErrors "bloodbank/pkg/domain-errors"
	"bloodbank/pkg/platform/httputil"
	"bloodbank/pkg/requestcontext"
)

type Service interface {
	AdminSummary(ctx context.Context) (*models.AdminSummary, error)
	DonorHome(ctx context.Context, userID domain.UserID) (*models.DonorHome, error)
	PatientHome(ctx context.Context, userID domain.UserID) (*models.PatientHome, error)
	HospitalHome(ctx context.Context, userID domain.UserID) (*models.HospitalHome, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/admin/dashboard", h.HandleAdminSummary)
}

func (h *Handler) RegisterDonor(r chi.Router) {
	r.Get("/donor/home", h.HandleDonorHome)
}

func (h *Handler) RegisterPatient(r chi.Router) {
	r.Get("/patient/home", h.HandlePatientHome)
}

func (h *Handler) RegisterHospital(r chi.Router) {
	r.Get("/hospital/home", h.HandleHospitalHome)
}

func (h *Handler) HandleAdminSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sum, err := h.service.AdminSummary(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, AdminSummaryResponse{
		TotalUnits:        sum.TotalUnits,
		AvailableDonors:   sum.AvailableDonors,
		TotalRequests:     sum.TotalRequests,
		ApprovedDonations: sum.ApprovedDonations,
		AcceptedRequests:  sum.AcceptedRequests,
		ApprovedRequests:  sum.ApprovedRequests,
		Breakdown:         sum.Breakdown,
	})
}

func (h *Handler) HandleDonorHome(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, ok := principal(w, r)
	if !ok {
		return
	}
	home, err := h.service.DonorHome(ctx, p.UserID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, HomeResponse{
		Username: p.Username,
		Counts:   toCounts(home.Donations),
		Stock:    toStock(home.Stock, requestcontext.Today(ctx)),
	})
}

func (h *Handler) HandlePatientHome(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, ok := principal(w, r)
	if !ok {
		return
	}
	home, err := h.service.PatientHome(ctx, p.UserID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, HomeResponse{
		Username: p.Username,
		Counts:   toCounts(home.Requests),
		Stock:    toStock(home.Stock, requestcontext.Today(ctx)),
	})
}

func (h *Handler) HandleHospitalHome(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, ok := principal(w, r)
	if !ok {
		return
	}
	home, err := h.service.HospitalHome(ctx, p.UserID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, HospitalHomeResponse{
		Username:         p.Username,
		TotalRequests:    home.TotalRequests,
		ApprovedRequests: home.ApprovedRequests,
		AvailableDonors:  home.AvailableDonors,
		Stock:            toStock(home.Stock, requestcontext.Today(ctx)),
	})
}

func principal(w http.ResponseWriter, r *http.Request) (*domain.Principal, bool) {
	p, ok := requestcontext.Principal(r.Context())
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
	}
	return p, ok
}
