package models

import (
	"net/mail"
	"strings"

	"bloodbank/pkg/domain"
	dErrors "bloodbank/pkg/domain-errors"
)

const (
	minPasswordLength = 8
	maxUsernameLength = 150
)

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (r *RegisterRequest) Normalize() {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Role = strings.TrimSpace(r.Role)
}

func (r *RegisterRequest) Validate() error {
	if r.Username == "" {
		return dErrors.New(dErrors.CodeValidation, "username is required")
	}
	if len(r.Username) > maxUsernameLength {
		return dErrors.New(dErrors.CodeValidation, "username is too long")
	}
	if r.Email != "" {
		if _, err := mail.ParseAddress(r.Email); err != nil {
			return dErrors.New(dErrors.CodeValidation, "email is invalid")
		}
	}
	if len(r.Password) < minPasswordLength {
		return dErrors.New(dErrors.CodeValidation, "password must be at least 8 characters")
	}
	role, err := domain.ParseRole(r.Role)
	if err != nil || !role.IsSelfRegistrable() {
		return dErrors.New(dErrors.CodeValidation, "role must be one of Donor, Patient, Hospital")
	}
	return nil
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (r *LoginRequest) Normalize() {
	r.Username = strings.TrimSpace(r.Username)
	r.Role = strings.TrimSpace(r.Role)
}

func (r *LoginRequest) Validate() error {
	if r.Username == "" || r.Password == "" {
		return dErrors.New(dErrors.CodeValidation, "username and password are required")
	}
	if _, err := domain.ParseRole(r.Role); err != nil {
		return dErrors.New(dErrors.CodeValidation, "role must be one of Donor, Patient, Hospital, Admin")
	}
	return nil
}
