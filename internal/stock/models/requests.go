package models

import (
	"strings"

	"bloodbank/pkg/domain"
	dErrors "bloodbank/pkg/domain-errors"
)

// AddStockRequest adds units to a group outside the approval workflow.
type AddStockRequest struct {
	BloodGroup string `json:"blood_group"`
	Units      int    `json:"units"`
}

func (r *AddStockRequest) Normalize() {
	r.BloodGroup = strings.ToUpper(strings.TrimSpace(r.BloodGroup))
}

func (r *AddStockRequest) Validate() error {
	if _, err := domain.ParseBloodGroup(r.BloodGroup); err != nil {
		return dErrors.New(dErrors.CodeValidation, "blood_group must be one of A+, A-, B+, B-, AB+, AB-, O+, O-")
	}
	if r.Units <= 0 {
		return dErrors.New(dErrors.CodeValidation, "units must be greater than zero")
	}
	if r.Units > domain.MaxUnits {
		return dErrors.New(dErrors.CodeValidation, "units is too large")
	}
	return nil
}

// UpdateStockRequest overwrites the unit count of one entry.
type UpdateStockRequest struct {
	Units *int `json:"units"`
}

func (r *UpdateStockRequest) Validate() error {
	if r.Units == nil {
		return dErrors.New(dErrors.CodeValidation, "units is required")
	}
	if *r.Units < 0 {
		return dErrors.New(dErrors.CodeValidation, "units cannot be negative")
	}
	if *r.Units > domain.MaxUnits {
		return dErrors.New(dErrors.CodeValidation, "units is too large")
	}
	return nil
}
