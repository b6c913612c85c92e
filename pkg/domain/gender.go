package domain

import (
	"strings"

	dErrors "bloodbank/pkg/domain-errors"
)

type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	// GenderNotApplicable is stored for hospital requests.
	GenderNotApplicable Gender = "N/A"
)

// ParseGender accepts Male or Female case-insensitively.
func ParseGender(s string) (Gender, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male":
		return GenderMale, nil
	case "female":
		return GenderFemale, nil
	case "":
		return "", dErrors.New(dErrors.CodeInvalidInput, "gender is required")
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "gender must be Male or Female")
	}
}
