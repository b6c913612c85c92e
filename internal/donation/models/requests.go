package models

import (
	"strings"
	"time"

	"bloodbank/pkg/domain"
	dErrors "bloodbank/pkg/domain-errors"
)

const dateLayout = "2006-01-02"

// SubmitDonationRequest is the donation form. Any status sent by the client is ignored.
type SubmitDonationRequest struct {
	FirstName        string `json:"first_name"`
	Phone            string `json:"phone"`
	Age              *int   `json:"age"`
	BloodGroup       string `json:"blood_group"`
	Units            int    `json:"units"`
	Gender           string `json:"gender"`
	LastDonationDate string `json:"last_donation_date"`
	LastReceiptDate  string `json:"last_receipt_date"`
	Consent          *bool  `json:"consent"`
	Status           string `json:"status,omitempty"`
}

func (r *SubmitDonationRequest) Normalize() {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.Phone = strings.TrimSpace(r.Phone)
	r.BloodGroup = strings.ToUpper(strings.TrimSpace(r.BloodGroup))
	r.Gender = strings.TrimSpace(r.Gender)
	r.LastDonationDate = strings.TrimSpace(r.LastDonationDate)
	r.LastReceiptDate = strings.TrimSpace(r.LastReceiptDate)
	r.Status = ""
}

func (r *SubmitDonationRequest) Validate() error {
	if r.FirstName == "" {
		return dErrors.New(dErrors.CodeValidation, "first_name is required")
	}
	if _, err := domain.ParseBloodGroup(r.BloodGroup); err != nil {
		return dErrors.New(dErrors.CodeValidation, "blood_group must be one of A+, A-, B+, B-, AB+, AB-, O+, O-")
	}
	if r.Units <= 0 {
		return dErrors.New(dErrors.CodeValidation, "units must be greater than zero")
	}
	if r.Units > domain.MaxUnits {
		return dErrors.New(dErrors.CodeValidation, "units is too large")
	}
	if _, err := domain.ParseGender(r.Gender); err != nil {
		return dErrors.New(dErrors.CodeValidation, "gender must be Male or Female")
	}
	if r.Age != nil && (*r.Age <= 0 || *r.Age > 150) {
		return dErrors.New(dErrors.CodeValidation, "age is out of range")
	}
	if _, err := ParseOptionalDate(r.LastDonationDate); err != nil {
		return dErrors.New(dErrors.CodeValidation, "last_donation_date must be YYYY-MM-DD")
	}
	if _, err := ParseOptionalDate(r.LastReceiptDate); err != nil {
		return dErrors.New(dErrors.CodeValidation, "last_receipt_date must be YYYY-MM-DD")
	}
	return nil
}

// AgeOrDefault returns the submitted age or DefaultAge.
func (r *SubmitDonationRequest) AgeOrDefault() int {
	if r.Age == nil {
		return DefaultAge
	}
	return *r.Age
}

// ParseOptionalDate treats "" as no value.
func ParseOptionalDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// FormatOptionalDate renders a date or "" when absent.
func FormatOptionalDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}
