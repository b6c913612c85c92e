package models

import (
	"strings"

	"bloodbank/pkg/domain"
	dErrors "bloodbank/pkg/domain-errors"
)

const maxAge = 150

// SubmitRequest is the patient request form. Anonymous callers may submit it.
type SubmitRequest struct {
	FirstName  string `json:"first_name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Age        int    `json:"age"`
	Reason     string `json:"reason"`
	BloodGroup string `json:"blood_group"`
	Units      int    `json:"units"`
	Gender     string `json:"gender"`
}

func (r *SubmitRequest) Normalize() {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Phone = strings.TrimSpace(r.Phone)
	r.Reason = strings.TrimSpace(r.Reason)
	r.BloodGroup = strings.ToUpper(strings.TrimSpace(r.BloodGroup))
	r.Gender = strings.TrimSpace(r.Gender)
}

func (r *SubmitRequest) Validate() error {
	if r.FirstName == "" {
		return dErrors.New(dErrors.CodeValidation, "first_name is required")
	}
	if err := validateGroupAndUnits(r.BloodGroup, r.Units); err != nil {
		return err
	}
	if _, err := domain.ParseGender(r.Gender); err != nil {
		return dErrors.New(dErrors.CodeValidation, "gender must be Male or Female")
	}
	if r.Age < 0 || r.Age > maxAge {
		return dErrors.New(dErrors.CodeValidation, "age is out of range")
	}
	return nil
}

// SubmitHospitalRequest is the hospital request form.
type SubmitHospitalRequest struct {
	HospitalName string `json:"hospital_name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Address      string `json:"address"`
	BloodGroup   string `json:"blood_group"`
	Units        int    `json:"units"`
}

func (r *SubmitHospitalRequest) Normalize() {
	r.HospitalName = strings.TrimSpace(r.HospitalName)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Phone = strings.TrimSpace(r.Phone)
	r.Address = strings.TrimSpace(r.Address)
	r.BloodGroup = strings.ToUpper(strings.TrimSpace(r.BloodGroup))
}

func (r *SubmitHospitalRequest) Validate() error {
	if r.HospitalName == "" {
		return dErrors.New(dErrors.CodeValidation, "hospital_name is required")
	}
	return validateGroupAndUnits(r.BloodGroup, r.Units)
}

func validateGroupAndUnits(group string, units int) error {
	if _, err := domain.ParseBloodGroup(group); err != nil {
		return dErrors.New(dErrors.CodeValidation, "blood_group must be one of A+, A-, B+, B-, AB+, AB-, O+, O-")
	}
	if units <= 0 {
		return dErrors.New(dErrors.CodeValidation, "units must be greater than zero")
	}
	if units > domain.MaxUnits {
		return dErrors.New(dErrors.CodeValidation, "units is too large")
	}
	return nil
}
