package domain

import (
	"github.com/google/uuid"

	dErrors "bloodbank/pkg/domain-errors"
)

// Typed identifiers keep ids of different aggregates from being mixed up at
// compile time. Construct them with the Parse* functions at trust boundaries
// or with New* inside the domain.
type (
	UserID         uuid.UUID
	SessionID      uuid.UUID
	DonationID     uuid.UUID
	BloodRequestID uuid.UUID
	StockID        uuid.UUID
)

func NewUserID() UserID                 { return UserID(uuid.New()) }
func NewSessionID() SessionID           { return SessionID(uuid.New()) }
func NewDonationID() DonationID         { return DonationID(uuid.New()) }
func NewBloodRequestID() BloodRequestID { return BloodRequestID(uuid.New()) }
func NewStockID() StockID               { return StockID(uuid.New()) }

// parseUUID enforces "non-empty, well-formed, non-nil".
func parseUUID(s, kind string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" is required")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind)
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" cannot be nil")
	}
	return parsed, nil
}

func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user id")
	return UserID(u), err
}

func ParseSessionID(s string) (SessionID, error) {
	u, err := parseUUID(s, "session id")
	return SessionID(u), err
}

func ParseDonationID(s string) (DonationID, error) {
	u, err := parseUUID(s, "donation id")
	return DonationID(u), err
}

func ParseBloodRequestID(s string) (BloodRequestID, error) {
	u, err := parseUUID(s, "request id")
	return BloodRequestID(u), err
}

func ParseStockID(s string) (StockID, error) {
	u, err := parseUUID(s, "stock id")
	return StockID(u), err
}

func (id UserID) String() string { return uuid.UUID(id).String() }
func (id UserID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id UserID) MarshalText() ([]byte, error) {
	return uuid.UUID(id).MarshalText()
}
func (id *UserID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

func (id SessionID) String() string { return uuid.UUID(id).String() }
func (id SessionID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id SessionID) MarshalText() ([]byte, error) {
	return uuid.UUID(id).MarshalText()
}
func (id *SessionID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

func (id DonationID) String() string { return uuid.UUID(id).String() }
func (id DonationID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id DonationID) MarshalText() ([]byte, error) {
	return uuid.UUID(id).MarshalText()
}
func (id *DonationID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

func (id BloodRequestID) String() string { return uuid.UUID(id).String() }
func (id BloodRequestID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id BloodRequestID) MarshalText() ([]byte, error) {
	return uuid.UUID(id).MarshalText()
}
func (id *BloodRequestID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

func (id StockID) String() string { return uuid.UUID(id).String() }
func (id StockID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id StockID) MarshalText() ([]byte, error) {
	return uuid.UUID(id).MarshalText()
}
func (id *StockID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}
