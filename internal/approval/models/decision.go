package models

import (
	"strings"

	requestmodels "bloodbank/internal/bloodrequest/models"
	donationmodels "bloodbank/internal/donation/models"
	stockmodels "bloodbank/internal/stock/models"
	dErrors "bloodbank/pkg/domain-errors"
)

const maxMessageLen = 500

// Outcome is what an approval action did to the queue.
type Outcome string

const (
	OutcomeAccepted Outcome = "accepted"
	// OutcomeDeferred leaves the request pending because stock could not cover it.
	OutcomeDeferred Outcome = "deferred"
	OutcomeRejected Outcome = "rejected"
)

// Action labels the admin action that produced a decision.
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

// Decision is the result of one approval action. Stock is set when the ledger
// was read or written; Offer is set for Donor requests still linked to an offer.
type Decision struct {
	Outcome Outcome
	Message string
	Request *requestmodels.BloodRequest
	Stock   *stockmodels.Entry
	Offer   *donationmodels.Offer
}

// RejectRequest carries the optional note shown to the requester.
type RejectRequest struct {
	Message string `json:"message"`
}

func (r *RejectRequest) Normalize() {
	r.Message = strings.TrimSpace(r.Message)
}

func (r *RejectRequest) Validate() error {
	if len(r.Message) > maxMessageLen {
		return dErrors.New(dErrors.CodeValidation, "message must be at most 500 characters")
	}
	return nil
}
