package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"bloodbank/internal/approval/models"
	"bloodbank/pkg/domain"
	dErrors "bloodbank/pkg/domain-errors"
	"bloodbank/pkg/platform/httputil"
	"bloodbank/pkg/requestcontext"
)

type Service interface {
	Approve(ctx context.Context, id domain.BloodRequestID, approver domain.UserID) (*models.Decision, error)
	Reject(ctx context.Context, id domain.BloodRequestID, approver domain.UserID, message string) (*models.Decision, error)
	ApproveOffer(ctx context.Context, offerID domain.DonationID, approver domain.UserID) (*models.Decision, error)
	RejectOffer(ctx context.Context, offerID domain.DonationID, approver domain.UserID, message string) (*models.Decision, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/admin/requests/{id}/approve", h.HandleApproveRequest)
	r.Post("/admin/requests/{id}/reject", h.HandleRejectRequest)
	r.Post("/admin/donations/{id}/approve", h.HandleApproveOffer)
	r.Post("/admin/donations/{id}/reject", h.HandleRejectOffer)
}

func (h *Handler) HandleApproveRequest(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseBloodRequestID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.respond(w, r, "approve request", func(ctx context.Context, approver domain.UserID) (*models.Decision, error) {
		return h.service.Approve(ctx, id, approver)
	})
}

func (h *Handler) HandleRejectRequest(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseBloodRequestID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	msg, ok := h.rejectMessage(w, r)
	if !ok {
		return
	}
	h.respond(w, r, "reject request", func(ctx context.Context, approver domain.UserID) (*models.Decision, error) {
		return h.service.Reject(ctx, id, approver, msg)
	})
}

func (h *Handler) HandleApproveOffer(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseDonationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.respond(w, r, "approve donation", func(ctx context.Context, approver domain.UserID) (*models.Decision, error) {
		return h.service.ApproveOffer(ctx, id, approver)
	})
}

func (h *Handler) HandleRejectOffer(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseDonationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	msg, ok := h.rejectMessage(w, r)
	if !ok {
		return
	}
	h.respond(w, r, "reject donation", func(ctx context.Context, approver domain.UserID) (*models.Decision, error) {
		return h.service.RejectOffer(ctx, id, approver, msg)
	})
}

// rejectMessage reads the optional {"message": ...} body. An empty body is allowed.
func (h *Handler) rejectMessage(w http.ResponseWriter, r *http.Request) (string, bool) {
	if r.ContentLength == 0 {
		return "", true
	}
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.RejectRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return "", false
	}
	return req.Message, true
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, action string,
	decide func(context.Context, domain.UserID) (*models.Decision, error)) {
	ctx := r.Context()
	p, ok := requestcontext.Principal(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	d, err := decide(ctx, p.UserID)
	if err != nil {
		level := slog.LevelError
		if dErrors.CodeOf(err) != dErrors.CodeInternal {
			level = slog.LevelWarn
		}
		h.logger.Log(ctx, level, "failed to "+action,
			"request_id", requestcontext.RequestID(ctx),
			"admin_id", p.UserID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toDecisionResponse(d, requestcontext.Today(ctx)))
}
