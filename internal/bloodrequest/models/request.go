package models

import (
	"slices"
	"time"

	"bloodbank/pkg/domain"
	dErrors "bloodbank/pkg/domain-errors"
)

type Status string

const (
	StatusPending  Status = "Pending"
	StatusAccepted Status = "Accepted"
	StatusRejected Status = "Rejected"
)

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusAccepted, StatusRejected:
		return Status(s), nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "status must be one of Pending, Accepted, Rejected")
	}
}

// BloodRequest is a unit of work in the approval queue. Patient and Hospital
// requests debit stock when accepted; Donor requests mirror a donation offer
// and credit stock.
type BloodRequest struct {
	ID              domain.BloodRequestID
	UserID          *domain.UserID
	DonationOfferID *domain.DonationID
	FirstName       string
	Email           string
	Phone           string
	Age             int
	Reason          string
	BloodGroup      domain.BloodGroup
	Units           int
	Gender          domain.Gender
	Role            domain.Role
	Status          Status
	AdminMessage    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (r *BloodRequest) IsAnonymous() bool { return r.UserID == nil }

// DebitsStock reports whether accepting the request removes units.
func (r *BloodRequest) DebitsStock() bool { return r.Role != domain.RoleDonor }

// CanTransition allows decisions only on pending requests.
func (r *BloodRequest) CanTransition() error {
	if r.Status != StatusPending {
		return dErrors.New(dErrors.CodeConflict, "request is already "+string(r.Status))
	}
	return nil
}

func (r *BloodRequest) Accept(message string, now time.Time) error {
	return r.apply(StatusAccepted, message, now)
}

func (r *BloodRequest) Reject(message string, now time.Time) error {
	return r.apply(StatusRejected, message, now)
}

// Defer keeps the request pending and records why it could not be fulfilled.
func (r *BloodRequest) Defer(message string, now time.Time) error {
	return r.apply(StatusPending, message, now)
}

func (r *BloodRequest) apply(to Status, message string, now time.Time) error {
	if err := r.CanTransition(); err != nil {
		return err
	}
	r.Status = to
	r.AdminMessage = message
	r.UpdatedAt = now
	return nil
}

// NewDonorRequest builds the queue entry that stands for a donation offer.
func NewDonorRequest(offerID domain.DonationID, userID domain.UserID, firstName, email, phone string, age int,
	group domain.BloodGroup, units int, gender domain.Gender, now time.Time) *BloodRequest {
	uid := userID
	oid := offerID
	return &BloodRequest{
		ID:              domain.NewBloodRequestID(),
		UserID:          &uid,
		DonationOfferID: &oid,
		FirstName:       firstName,
		Email:           email,
		Phone:           phone,
		Age:             age,
		Reason:          "Blood donation",
		BloodGroup:      group,
		Units:           units,
		Gender:          gender,
		Role:            domain.RoleDonor,
		Status:          StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Filter selects requests. Zero fields match everything.
type Filter struct {
	UserID *domain.UserID
	Roles  []domain.Role
	Status Status
}

func (f Filter) Matches(r *BloodRequest) bool {
	if f.UserID != nil && (r.UserID == nil || *r.UserID != *f.UserID) {
		return false
	}
	if len(f.Roles) > 0 && !slices.Contains(f.Roles, r.Role) {
		return false
	}
	return f.Status == "" || r.Status == f.Status
}
