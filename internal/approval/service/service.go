package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	approvalmetrics "bloodbank/internal/approval/metrics"
	"bloodbank/internal/approval/models"
	requestmodels "bloodbank/internal/bloodrequest/models"
	donationmodels "bloodbank/internal/donation/models"
	stockmodels "bloodbank/internal/stock/models"
	"bloodbank/pkg/domain"
	dErrors "bloodbank/pkg/domain-errors"
	"bloodbank/pkg/platform/sentinel"
	"bloodbank/pkg/platform/tx"
	"bloodbank/pkg/requestcontext"
)

const tracerName = "bloodbank/approval"

const defaultRejectMessage = "Request rejected by the blood bank"

type RequestStore interface {
	FindForUpdate(ctx context.Context, id domain.BloodRequestID) (*requestmodels.BloodRequest, error)
	FindByOffer(ctx context.Context, offerID domain.DonationID) (*requestmodels.BloodRequest, error)
	Save(ctx context.Context, r *requestmodels.BloodRequest) error
}

type OfferStore interface {
	FindByID(ctx context.Context, id domain.DonationID) (*donationmodels.Offer, error)
	FindForUpdate(ctx context.Context, id domain.DonationID) (*donationmodels.Offer, error)
	Save(ctx context.Context, o *donationmodels.Offer) error
}

// Ledger is the stock ledger. Adjust locks the group's entry and fails with
// CodeInsufficientStock when a debit would go negative.
type Ledger interface {
	GetOrCreate(ctx context.Context, group domain.BloodGroup) (*stockmodels.Entry, error)
	Adjust(ctx context.Context, group domain.BloodGroup, delta int) (*stockmodels.Entry, error)
}

type StoreTx interface {
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

// Engine decides queued requests. Every decision writes the request, the
// stock entry and the linked offer in one transaction.
type Engine struct {
	requests RequestStore
	offers   OfferStore
	ledger   Ledger
	tx       StoreTx
	logger   *slog.Logger
	metrics  *approvalmetrics.Metrics
	tracer   trace.Tracer
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

func WithMetrics(m *approvalmetrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithTx must share its runner with the ledger so the stock write joins the decision.
func WithTx(runner StoreTx) Option {
	return func(e *Engine) { e.tx = runner }
}

func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) { e.tracer = t }
}

func New(requests RequestStore, offers OfferStore, ledger Ledger, opts ...Option) *Engine {
	e := &Engine{requests: requests, offers: offers, ledger: ledger}
	for _, opt := range opts {
		opt(e)
	}
	if e.tx == nil {
		e.tx = tx.NewInMemoryRunner()
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.tracer == nil {
		e.tracer = otel.Tracer(tracerName)
	}
	return e
}

// Approve accepts a pending request. Donor requests credit stock and approve the
// linked offer. Patient and Hospital requests debit stock when it covers them and
// otherwise stay pending with the shortfall recorded.
func (e *Engine) Approve(ctx context.Context, id domain.BloodRequestID, approver domain.UserID) (*models.Decision, error) {
	return e.decide(ctx, models.ActionApprove, id, func(txCtx context.Context, r *requestmodels.BloodRequest) (*models.Decision, error) {
		if r.Units <= 0 {
			return nil, dErrors.New(dErrors.CodeInvariantViolation, "request units must be positive")
		}
		if r.DebitsStock() {
			return e.fulfil(txCtx, r)
		}
		return e.receive(txCtx, r, approver)
	})
}

// Reject closes a pending request without touching stock. A linked pending
// offer is rejected with it.
func (e *Engine) Reject(ctx context.Context, id domain.BloodRequestID, approver domain.UserID, message string) (*models.Decision, error) {
	if message == "" {
		message = defaultRejectMessage
	}
	return e.decide(ctx, models.ActionReject, id, func(txCtx context.Context, r *requestmodels.BloodRequest) (*models.Decision, error) {
		if err := r.Reject(message, requestcontext.Now(txCtx)); err != nil {
			return nil, err
		}
		offer, err := e.mirrorOnOffer(txCtx, r, approver, (*donationmodels.Offer).Reject)
		if err != nil {
			return nil, err
		}
		if err := e.saveRequest(txCtx, r); err != nil {
			return nil, err
		}
		return &models.Decision{Outcome: models.OutcomeRejected, Message: message, Request: r, Offer: offer}, nil
	})
}

// ApproveOffer approves a donation offer through its queue entry.
func (e *Engine) ApproveOffer(ctx context.Context, offerID domain.DonationID, approver domain.UserID) (*models.Decision, error) {
	return e.viaOffer(ctx, offerID, func(txCtx context.Context, id domain.BloodRequestID) (*models.Decision, error) {
		return e.Approve(txCtx, id, approver)
	})
}

// RejectOffer rejects a donation offer through its queue entry.
func (e *Engine) RejectOffer(ctx context.Context, offerID domain.DonationID, approver domain.UserID, message string) (*models.Decision, error) {
	return e.viaOffer(ctx, offerID, func(txCtx context.Context, id domain.BloodRequestID) (*models.Decision, error) {
		return e.Reject(txCtx, id, approver, message)
	})
}

func (e *Engine) viaOffer(ctx context.Context, offerID domain.DonationID, fn func(context.Context, domain.BloodRequestID) (*models.Decision, error)) (*models.Decision, error) {
	var d *models.Decision
	err := e.tx.RunInTx(ctx, func(txCtx context.Context) error {
		offer, err := e.offers.FindByID(txCtx, offerID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "donation offer not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load donation offer")
		}
		if err := offer.CanDecide(); err != nil {
			return err
		}
		r, err := e.requests.FindByOffer(txCtx, offerID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "donation offer has no queue entry")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load queue entry")
		}
		d, err = fn(txCtx, r.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (e *Engine) decide(ctx context.Context, action models.Action, id domain.BloodRequestID,
	apply func(context.Context, *requestmodels.BloodRequest) (*models.Decision, error)) (*models.Decision, error) {
	ctx, span := e.tracer.Start(ctx, "approval."+string(action), trace.WithAttributes(
		attribute.String("blood_request.id", id.String()),
	))
	defer span.End()

	started := time.Now()
	var d *models.Decision
	err := e.tx.RunInTx(ctx, func(txCtx context.Context) error {
		r, err := e.requests.FindForUpdate(txCtx, id)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "blood request not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to lock blood request")
		}
		if err := r.CanTransition(); err != nil {
			return err
		}
		d, err = apply(txCtx, r)
		return err
	})
	e.metrics.ObserveDuration(string(action), started)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, dErrors.MessageOf(err))
		return nil, err
	}

	span.SetAttributes(
		attribute.String("blood_request.role", string(d.Request.Role)),
		attribute.String("approval.outcome", string(d.Outcome)),
	)
	outcome := string(d.Outcome)
	tx.AfterCommit(ctx, func() { e.metrics.ObserveDecision(string(action), outcome) })
	e.logger.InfoContext(ctx, "blood request decided",
		"request_id", requestcontext.RequestID(ctx),
		"blood_request_id", id.String(),
		"action", string(action),
		"outcome", string(d.Outcome),
		"role", string(d.Request.Role),
		"blood_group", string(d.Request.BloodGroup),
		"units", d.Request.Units,
	)
	return d, nil
}

// fulfil debits stock for a Patient or Hospital request.
func (e *Engine) fulfil(ctx context.Context, r *requestmodels.BloodRequest) (*models.Decision, error) {
	now := requestcontext.Now(ctx)
	entry, err := e.ledger.Adjust(ctx, r.BloodGroup, -r.Units)
	if err == nil {
		msg := fmt.Sprintf("Request approved: %d unit(s) of %s issued", r.Units, r.BloodGroup)
		if err := r.Accept(msg, now); err != nil {
			return nil, err
		}
		if err := e.saveRequest(ctx, r); err != nil {
			return nil, err
		}
		return &models.Decision{Outcome: models.OutcomeAccepted, Message: msg, Request: r, Stock: entry}, nil
	}
	if !dErrors.HasCode(err, dErrors.CodeInsufficientStock) {
		return nil, err
	}

	entry, err = e.ledger.GetOrCreate(ctx, r.BloodGroup)
	if err != nil {
		return nil, err
	}
	msg := fmt.Sprintf("Insufficient stock: %d unit(s) of %s available, %d requested", entry.Units, r.BloodGroup, r.Units)
	if err := r.Defer(msg, now); err != nil {
		return nil, err
	}
	if err := e.saveRequest(ctx, r); err != nil {
		return nil, err
	}
	return &models.Decision{Outcome: models.OutcomeDeferred, Message: msg, Request: r, Stock: entry}, nil
}

// receive credits stock for a Donor request and approves its offer.
func (e *Engine) receive(ctx context.Context, r *requestmodels.BloodRequest, approver domain.UserID) (*models.Decision, error) {
	msg := fmt.Sprintf("Donation approved: %d unit(s) of %s added to stock", r.Units, r.BloodGroup)
	if err := r.Accept(msg, requestcontext.Now(ctx)); err != nil {
		return nil, err
	}
	entry, err := e.ledger.Adjust(ctx, r.BloodGroup, r.Units)
	if err != nil {
		return nil, err
	}
	offer, err := e.mirrorOnOffer(ctx, r, approver, (*donationmodels.Offer).Approve)
	if err != nil {
		return nil, err
	}
	if err := e.saveRequest(ctx, r); err != nil {
		return nil, err
	}
	return &models.Decision{Outcome: models.OutcomeAccepted, Message: msg, Request: r, Stock: entry, Offer: offer}, nil
}

// mirrorOnOffer applies the decision to the request's offer when it is still
// linked and pending. A deleted offer is skipped.
func (e *Engine) mirrorOnOffer(ctx context.Context, r *requestmodels.BloodRequest, approver domain.UserID,
	apply func(*donationmodels.Offer, domain.UserID) error) (*donationmodels.Offer, error) {
	if r.DonationOfferID == nil {
		return nil, nil
	}
	offer, err := e.offers.FindForUpdate(ctx, *r.DonationOfferID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to lock donation offer")
	}
	if offer.Status != donationmodels.StatusPending {
		return offer, nil
	}
	if err := apply(offer, approver); err != nil {
		return nil, err
	}
	if err := e.offers.Save(ctx, offer); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save donation offer")
	}
	return offer, nil
}

func (e *Engine) saveRequest(ctx context.Context, r *requestmodels.BloodRequest) error {
	if err := e.requests.Save(ctx, r); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save blood request")
	}
	return nil
}
