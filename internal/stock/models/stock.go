package models

import (
	"time"

	"bloodbank/pkg/domain"
	dErrors "bloodbank/pkg/domain-errors"
	"bloodbank/pkg/requestcontext"
)

const (
	// ShelfLifeDays is how long a unit count stays fresh after it last changed.
	ShelfLifeDays = 35
	// NearExpiryDays flags entries expiring within this many days.
	NearExpiryDays = 5
)

// Entry is the stock held for one blood group.
//
// Invariants:
//   - Units is never negative
//   - ExpiryDate is CollectedDate + ShelfLifeDays
//   - Dates carry no time of day (midnight UTC)
type Entry struct {
	ID            domain.StockID    `json:"id"`
	BloodGroup    domain.BloodGroup `json:"blood_group"`
	Units         int               `json:"units"`
	CollectedDate time.Time         `json:"collected_date"`
	ExpiryDate    time.Time         `json:"expiry_date"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// NewEntry creates an empty entry whose freshness window starts today.
func NewEntry(id domain.StockID, group domain.BloodGroup, now time.Time) (*Entry, error) {
	if !group.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "unknown blood group")
	}
	today := requestcontext.DateOf(now)
	return &Entry{
		ID:            id,
		BloodGroup:    group,
		Units:         0,
		CollectedDate: today,
		ExpiryDate:    expiryFor(today),
		UpdatedAt:     now,
	}, nil
}

// OnUnitsChanged restarts the freshness window at today. Every mutation that
// changes the unit count passes through it.
func OnUnitsChanged(e Entry, today time.Time) Entry {
	today = requestcontext.DateOf(today)
	e.CollectedDate = today
	e.ExpiryDate = expiryFor(today)
	return e
}

// Credit adds units and restarts the freshness window.
func (e *Entry) Credit(units int, now time.Time) error {
	if units <= 0 {
		return dErrors.New(dErrors.CodeInvariantViolation, "credit must be positive")
	}
	if units > domain.MaxUnits-e.Units {
		return dErrors.New(dErrors.CodeValidation, "credit would exceed the stock capacity of the group")
	}
	return e.SetUnits(e.Units+units, now)
}

// CanDebit reports whether units can be taken without going negative.
func (e *Entry) CanDebit(units int) error {
	if units <= 0 {
		return dErrors.New(dErrors.CodeInvariantViolation, "debit must be positive")
	}
	if units > e.Units {
		return dErrors.New(dErrors.CodeInsufficientStock, "insufficient stock")
	}
	return nil
}

// Debit removes units. Fails with CodeInsufficientStock when the entry holds fewer.
func (e *Entry) Debit(units int, now time.Time) error {
	if err := e.CanDebit(units); err != nil {
		return err
	}
	return e.SetUnits(e.Units-units, now)
}

// SetUnits overwrites the count. An unchanged count keeps the current dates.
func (e *Entry) SetUnits(units int, now time.Time) error {
	if units < 0 {
		return dErrors.New(dErrors.CodeInvariantViolation, "units cannot be negative")
	}
	if units > domain.MaxUnits {
		return dErrors.New(dErrors.CodeInvariantViolation, "units exceed the stock capacity of a group")
	}
	if units == e.Units {
		return nil
	}
	*e = OnUnitsChanged(*e, now)
	e.Units = units
	e.UpdatedAt = now
	return nil
}

// IsExpired reports today strictly after the expiry date.
func (e *Entry) IsExpired(today time.Time) bool {
	return requestcontext.DateOf(today).After(e.ExpiryDate)
}

// IsNearExpiry reports an expiry date between today and today+NearExpiryDays inclusive.
func (e *Entry) IsNearExpiry(today time.Time) bool {
	days := e.DaysUntilExpiry(today)
	return days >= 0 && days <= NearExpiryDays
}

// DaysUntilExpiry is negative once the entry has expired.
func (e *Entry) DaysUntilExpiry(today time.Time) int {
	return int(e.ExpiryDate.Sub(requestcontext.DateOf(today)).Hours() / 24)
}

// Freshness classifies an entry for reporting.
type Freshness string

const (
	FreshnessExpired    Freshness = "expired"
	FreshnessNearExpiry Freshness = "near_expiry"
	FreshnessFresh      Freshness = "fresh"
)

func (e *Entry) Freshness(today time.Time) Freshness {
	switch {
	case e.IsExpired(today):
		return FreshnessExpired
	case e.IsNearExpiry(today):
		return FreshnessNearExpiry
	default:
		return FreshnessFresh
	}
}

func expiryFor(collected time.Time) time.Time {
	return collected.AddDate(0, 0, ShelfLifeDays)
}
