package models

import (
	"time"

	"bloodbank/pkg/domain"
	dErrors "bloodbank/pkg/domain-errors"
)

type Status string

const (
	StatusPending  Status = "Pending"
	StatusApproved Status = "Approved"
	StatusRejected Status = "Rejected"
)

// DefaultAge is recorded when the donor leaves age blank.
const DefaultAge = 18

// Offer is a donor's offer to give blood. Only the approval engine changes its status.
type Offer struct {
	ID               domain.DonationID
	UserID           domain.UserID
	FirstName        string
	Email            string
	Phone            string
	Age              int
	BloodGroup       domain.BloodGroup
	Units            int
	Gender           domain.Gender
	LastDonationDate *time.Time
	LastReceiptDate  *time.Time
	Consent          bool
	Status           Status
	ApprovedBy       *domain.UserID
	CreatedAt        time.Time
}

func (o *Offer) CanDecide() error {
	if o.Status != StatusPending {
		return dErrors.New(dErrors.CodeConflict, "donation offer is already "+string(o.Status))
	}
	return nil
}

func (o *Offer) Approve(by domain.UserID) error {
	return o.decide(StatusApproved, by)
}

func (o *Offer) Reject(by domain.UserID) error {
	return o.decide(StatusRejected, by)
}

func (o *Offer) decide(to Status, by domain.UserID) error {
	if err := o.CanDecide(); err != nil {
		return err
	}
	o.Status = to
	approver := by
	o.ApprovedBy = &approver
	return nil
}

// Filter selects offers. Zero fields match everything.
type Filter struct {
	UserID *domain.UserID
	Status Status
}

func (f Filter) Matches(o *Offer) bool {
	if f.UserID != nil && o.UserID != *f.UserID {
		return false
	}
	return f.Status == "" || o.Status == f.Status
}
