package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"bloodbank/internal/stock/models"
	"bloodbank/pkg/domain"
	"bloodbank/pkg/platform/httputil"
	"bloodbank/pkg/requestcontext"
)

// Service is the stock ledger as seen by HTTP.
type Service interface {
	List(ctx context.Context) ([]*models.Entry, error)
	Overview(ctx context.Context) (*models.Overview, error)
	Breakdown(ctx context.Context) ([]models.GroupUnits, error)
	AddStock(ctx context.Context, req *models.AddStockRequest) (*models.Entry, error)
	UpdateStock(ctx context.Context, id domain.StockID, req *models.UpdateStockRequest) (*models.Entry, error)
	DeleteStock(ctx context.Context, id domain.StockID) error
	Export(ctx context.Context) ([]byte, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterPublic mounts the read-only stock listing.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Get("/stock", h.HandleList)
}

// RegisterHospital mounts routes for hospital accounts.
func (h *Handler) RegisterHospital(r chi.Router) {
	r.Get("/hospital/stock", h.HandleBreakdown)
}

// RegisterAdmin mounts the stock overrides. The caller enforces the Admin role.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/admin/stock", h.HandleOverview)
	r.Post("/admin/stock", h.HandleAdd)
	r.Get("/admin/stock/export", h.HandleExport)
	r.Put("/admin/stock/{id}", h.HandleUpdate)
	r.Delete("/admin/stock/{id}", h.HandleDelete)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entries, err := h.service.List(ctx)
	if err != nil {
		h.fail(ctx, "failed to list stock", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, StockListResponse{Stock: toEntryResponses(entries, requestcontext.Today(ctx))})
}

func (h *Handler) HandleBreakdown(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rows, err := h.service.Breakdown(ctx)
	if err != nil {
		h.fail(ctx, "failed to build stock breakdown", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, BreakdownResponse{Groups: rows})
}

func (h *Handler) HandleOverview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ov, err := h.service.Overview(ctx)
	if err != nil {
		h.fail(ctx, "failed to load stock overview", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toOverviewResponse(ov))
}

func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.AddStockRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	entry, err := h.service.AddStock(ctx, req)
	if err != nil {
		h.fail(ctx, "failed to add stock", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, StockMutationResponse{
		Message: "Blood stock added successfully",
		Entry:   ToEntryResponse(entry, requestcontext.Today(ctx)),
	})
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	id, err := domain.ParseStockID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.UpdateStockRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	entry, err := h.service.UpdateStock(ctx, id, req)
	if err != nil {
		h.fail(ctx, "failed to update stock", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, StockMutationResponse{
		Message: "Blood stock updated successfully",
		Entry:   ToEntryResponse(entry, requestcontext.Today(ctx)),
	})
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := domain.ParseStockID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.DeleteStock(ctx, id); err != nil {
		h.fail(ctx, "failed to delete stock", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, StockMutationResponse{Message: "Blood stock deleted successfully"})
}

func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	data, err := h.service.Export(ctx)
	if err != nil {
		h.fail(ctx, "failed to export stock", err)
		httputil.WriteError(w, err)
		return
	}
	filename := "blood-stock-" + requestcontext.Today(ctx).Format("2006-01-02") + ".xlsx"
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) fail(ctx context.Context, msg string, err error) {
	h.logger.ErrorContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
}
