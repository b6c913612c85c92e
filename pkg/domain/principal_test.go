package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "bloodbank/pkg/domain-errors"
)

func TestParseRole(t *testing.T) {
	for input, want := range map[string]Role{
		"donor":     RoleDonor,
		" Patient ": RolePatient,
		"HOSPITAL":  RoleHospital,
		"Admin":     RoleAdmin,
	} {
		got, err := ParseRole(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got)
	}

	_, err := ParseRole("")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	_, err = ParseRole("nurse")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestRoleIsSelfRegistrable(t *testing.T) {
	assert.True(t, RoleDonor.IsSelfRegistrable())
	assert.True(t, RolePatient.IsSelfRegistrable())
	assert.True(t, RoleHospital.IsSelfRegistrable())
	assert.False(t, RoleAdmin.IsSelfRegistrable())
}

func TestPrincipalIs(t *testing.T) {
	var nilPrincipal *Principal
	assert.False(t, nilPrincipal.Is(RoleAdmin))

	p := &Principal{UserID: NewUserID(), Role: RoleHospital}
	assert.True(t, p.Is(RoleHospital))
	assert.False(t, p.Is(RoleAdmin))
}
