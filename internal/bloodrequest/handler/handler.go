package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"bloodbank/internal/bloodrequest/models"
	"bloodbank/pkg/domain"
	dErrors "bloodbank/pkg/domain-errors"
	"bloodbank/pkg/platform/httputil"
	"bloodbank/pkg/requestcontext"
)

type Service interface {
	SubmitPatient(ctx context.Context, p *domain.Principal, req *models.SubmitRequest) (*models.BloodRequest, error)
	SubmitHospital(ctx context.Context, p *domain.Principal, req *models.SubmitHospitalRequest) (*models.BloodRequest, error)
	ListByUser(ctx context.Context, userID domain.UserID, role domain.Role) ([]*models.BloodRequest, error)
	Queue(ctx context.Context, f models.Filter) ([]*models.BloodRequest, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterPublic mounts the patient request form. Callers may be anonymous.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/requests", h.HandleSubmitPatient)
}

func (h *Handler) RegisterPatient(r chi.Router) {
	r.Get("/requests", h.HandlePatientHistory)
}

func (h *Handler) RegisterHospital(r chi.Router) {
	r.Post("/hospital/requests", h.HandleSubmitHospital)
	r.Get("/hospital/requests", h.HandleHospitalHistory)
}

func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/admin/requests", h.HandleQueue)
}

func (h *Handler) HandleSubmitPatient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.SubmitRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	p, _ := requestcontext.Principal(ctx)
	created, err := h.service.SubmitPatient(ctx, p, req)
	if err != nil {
		h.fail(ctx, "failed to submit patient request", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, SubmitResponse{
		Message: "Blood request submitted successfully",
		Request: ToResponse(created),
	})
}

func (h *Handler) HandleSubmitHospital(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	p, ok := requestcontext.Principal(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.SubmitHospitalRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	created, err := h.service.SubmitHospital(ctx, p, req)
	if err != nil {
		h.fail(ctx, "failed to submit hospital request", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, SubmitResponse{
		Message: "Hospital blood request submitted successfully",
		Request: ToResponse(created),
	})
}

func (h *Handler) HandlePatientHistory(w http.ResponseWriter, r *http.Request) {
	h.history(w, r, domain.RolePatient)
}

func (h *Handler) HandleHospitalHistory(w http.ResponseWriter, r *http.Request) {
	h.history(w, r, domain.RoleHospital)
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request, role domain.Role) {
	ctx := r.Context()
	p, ok := requestcontext.Principal(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	list, err := h.service.ListByUser(ctx, p.UserID, role)
	if err != nil {
		h.fail(ctx, "failed to list own requests", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ToListResponse(list))
}

// HandleQueue serves GET /admin/requests?role=Patient&role=Hospital&status=Pending.
func (h *Handler) HandleQueue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	f, err := parseFilter(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	list, err := h.service.Queue(ctx, f)
	if err != nil {
		h.fail(ctx, "failed to load request queue", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ToListResponse(list))
}

func parseFilter(r *http.Request) (models.Filter, error) {
	var f models.Filter
	q := r.URL.Query()
	for _, raw := range q["role"] {
		role, err := domain.ParseRole(raw)
		if err != nil || role == domain.RoleAdmin {
			return f, dErrors.New(dErrors.CodeInvalidInput, "role must be one of Patient, Hospital, Donor")
		}
		f.Roles = append(f.Roles, role)
	}
	if raw := q.Get("status"); raw != "" {
		status, err := models.ParseStatus(raw)
		if err != nil {
			return f, err
		}
		f.Status = status
	}
	return f, nil
}

func (h *Handler) fail(ctx context.Context, msg string, err error) {
	level := slog.LevelError
	if dErrors.CodeOf(err) != dErrors.CodeInternal {
		level = slog.LevelWarn
	}
	h.logger.Log(ctx, level, msg,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
}
