package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bloodbank/pkg/domain"
	dErrors "bloodbank/pkg/domain-errors"
)

func TestOfferDecisionsOnlyFromPending(t *testing.T) {
	o := &Offer{ID: domain.NewDonationID(), Status: StatusPending}
	admin := domain.NewUserID()

	require.NoError(t, o.Approve(admin))
	assert.Equal(t, StatusApproved, o.Status)
	require.NotNil(t, o.ApprovedBy)
	assert.Equal(t, admin, *o.ApprovedBy)

	err := o.Reject(domain.NewUserID())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	assert.Equal(t, StatusApproved, o.Status)
	assert.Equal(t, admin, *o.ApprovedBy)
}

func TestFilterMatches(t *testing.T) {
	uid := domain.NewUserID()
	o := &Offer{UserID: uid, Status: StatusRejected}
	other := domain.NewUserID()

	assert.True(t, Filter{}.Matches(o))
	assert.True(t, Filter{UserID: &uid, Status: StatusRejected}.Matches(o))
	assert.False(t, Filter{UserID: &other}.Matches(o))
	assert.False(t, Filter{Status: StatusPending}.Matches(o))
}

func TestSubmitDonationRequest(t *testing.T) {
	valid := func() SubmitDonationRequest {
		return SubmitDonationRequest{FirstName: "Dana", BloodGroup: "b-", Units: 3, Gender: "Female"}
	}

	t.Run("normalizes and forces status", func(t *testing.T) {
		r := valid()
		r.Status = "Approved"
		r.Normalize()
		require.NoError(t, r.Validate())
		assert.Equal(t, "B-", r.BloodGroup)
		assert.Empty(t, r.Status)
		assert.Equal(t, DefaultAge, r.AgeOrDefault())
	})

	t.Run("empty dates are absent", func(t *testing.T) {
		r := valid()
		r.LastDonationDate = ""
		r.LastReceiptDate = "  "
		r.Normalize()
		assert.NoError(t, r.Validate())
	})

	tests := []struct {
		name   string
		mutate func(*SubmitDonationRequest)
		msg    string
	}{
		{"malformed donation date", func(r *SubmitDonationRequest) { r.LastDonationDate = "10/06/2024" }, "last_donation_date must be YYYY-MM-DD"},
		{"malformed receipt date", func(r *SubmitDonationRequest) { r.LastReceiptDate = "2024-13-01" }, "last_receipt_date must be YYYY-MM-DD"},
		{"missing name", func(r *SubmitDonationRequest) { r.FirstName = "" }, "first_name is required"},
		{"zero units", func(r *SubmitDonationRequest) { r.Units = 0 }, "units must be greater than zero"},
		{"units beyond capacity", func(r *SubmitDonationRequest) { r.Units = domain.MaxUnits + 1 }, "units is too large"},
		{"bad gender", func(r *SubmitDonationRequest) { r.Gender = "Other" }, "gender must be Male or Female"},
		{"unknown group", func(r *SubmitDonationRequest) { r.BloodGroup = "Z" }, "blood_group must be one of A+, A-, B+, B-, AB+, AB-, O+, O-"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid()
			tt.mutate(&r)
			r.Normalize()
			err := r.Validate()
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
			assert.Equal(t, tt.msg, dErrors.MessageOf(err))
		})
	}
}

func TestOptionalDates(t *testing.T) {
	d, err := ParseOptionalDate("2024-05-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), *d)
	assert.Equal(t, "2024-05-01", FormatOptionalDate(d))

	d, err = ParseOptionalDate("")
	require.NoError(t, err)
	assert.Nil(t, d)
	assert.Equal(t, "", FormatOptionalDate(nil))
}
