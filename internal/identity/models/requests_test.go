package models

import (
	"testing"

	"github.com/stretchr/testify/assert"

	dErrors "bloodbank/pkg/domain-errors"
)

func TestRegisterRequestValidate(t *testing.T) {
	valid := func() RegisterRequest {
		return RegisterRequest{Username: "alice", Email: "alice@example.com", Password: "s3cretpass", Role: "Donor"}
	}

	tests := []struct {
		name   string
		mutate func(*RegisterRequest)
		errMsg string
	}{
		{"valid", func(*RegisterRequest) {}, ""},
		{"missing username", func(r *RegisterRequest) { r.Username = "" }, "username is required"},
		{"bad email", func(r *RegisterRequest) { r.Email = "not-an-email" }, "email is invalid"},
		{"empty email allowed", func(r *RegisterRequest) { r.Email = "" }, ""},
		{"short password", func(r *RegisterRequest) { r.Password = "short" }, "password must be at least 8 characters"},
		{"admin not self registrable", func(r *RegisterRequest) { r.Role = "Admin" }, "role must be one of Donor, Patient, Hospital"},
		{"unknown role", func(r *RegisterRequest) { r.Role = "Nurse" }, "role must be one of Donor, Patient, Hospital"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid()
			tt.mutate(&req)
			req.Normalize()
			err := req.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
			assert.Equal(t, tt.errMsg, dErrors.MessageOf(err))
		})
	}
}

func TestRegisterRequestNormalize(t *testing.T) {
	req := RegisterRequest{Username: "  bob ", Email: " Bob@Example.COM ", Role: " patient "}
	req.Normalize()
	assert.Equal(t, "bob", req.Username)
	assert.Equal(t, "bob@example.com", req.Email)
	assert.Equal(t, "patient", req.Role)
}

func TestLoginRequestValidate(t *testing.T) {
	assert.NoError(t, (&LoginRequest{Username: "a", Password: "b", Role: "Admin"}).Validate())
	assert.Error(t, (&LoginRequest{Username: "a", Role: "Admin"}).Validate())
	assert.Error(t, (&LoginRequest{Username: "a", Password: "b", Role: ""}).Validate())
}
