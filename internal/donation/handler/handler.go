package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"bloodbank/internal/donation/models"
	"bloodbank/pkg/domain"
	dErrors "bloodbank/pkg/domain-errors"
	"bloodbank/pkg/platform/httputil"
	"bloodbank/pkg/requestcontext"
)

type Service interface {
	Submit(ctx context.Context, donor *domain.Principal, req *models.SubmitDonationRequest) (*models.Offer, error)
	History(ctx context.Context, userID domain.UserID) ([]*models.Offer, error)
	DeleteMine(ctx context.Context, userID domain.UserID) (int, error)
	ListAll(ctx context.Context) ([]*models.Offer, error)
	DeleteAll(ctx context.Context) (int, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) RegisterDonor(r chi.Router) {
	r.Post("/donations", h.HandleSubmit)
	r.Get("/donations", h.HandleHistory)
	r.Delete("/donations", h.HandleDeleteMine)
}

func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/admin/donations", h.HandleListAll)
	r.Delete("/admin/donations", h.HandleDeleteAll)
}

func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	p, ok := requestcontext.Principal(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.SubmitDonationRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	offer, err := h.service.Submit(ctx, p, req)
	if err != nil {
		h.fail(ctx, "failed to submit donation", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, SubmitResponse{
		Message: "Donation submitted successfully",
		Offer:   ToResponse(offer),
	})
}

func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, ok := requestcontext.Principal(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	list, err := h.service.History(ctx, p.UserID)
	if err != nil {
		h.fail(ctx, "failed to list own donations", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toListResponse(list))
}

func (h *Handler) HandleDeleteMine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, ok := requestcontext.Principal(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	n, err := h.service.DeleteMine(ctx, p.UserID)
	if err != nil {
		h.fail(ctx, "failed to delete own donations", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, deleted(n))
}

func (h *Handler) HandleListAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	list, err := h.service.ListAll(ctx)
	if err != nil {
		h.fail(ctx, "failed to list donations", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toListResponse(list))
}

func (h *Handler) HandleDeleteAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	n, err := h.service.DeleteAll(ctx)
	if err != nil {
		h.fail(ctx, "failed to delete donations", err)
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "admin deleted all donations",
		"request_id", requestcontext.RequestID(ctx),
		"admin_id", requestcontext.UserID(ctx).String(),
		"count", n,
	)
	httputil.WriteJSON(w, http.StatusOK, deleted(n))
}

func deleted(n int) DeleteResponse {
	return DeleteResponse{Message: fmt.Sprintf("%d donation(s) deleted", n), Deleted: n}
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
