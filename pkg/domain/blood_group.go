package domain

import (
	"strings"

	dErrors "bloodbank/pkg/domain-errors"
)

// BloodGroup is one of the eight ABO/Rh types.
// Invariant: the value must be one of the supported groups.
//
// Usage: construct via ParseBloodGroup at trust boundaries; direct casting
// bypasses validation.
type BloodGroup string

const (
	BloodGroupAPos  BloodGroup = "A+"
	BloodGroupANeg  BloodGroup = "A-"
	BloodGroupBPos  BloodGroup = "B+"
	BloodGroupBNeg  BloodGroup = "B-"
	BloodGroupABPos BloodGroup = "AB+"
	BloodGroupABNeg BloodGroup = "AB-"
	BloodGroupOPos  BloodGroup = "O+"
	BloodGroupONeg  BloodGroup = "O-"
)

// BloodGroups lists every group in canonical display order.
var BloodGroups = []BloodGroup{
	BloodGroupAPos, BloodGroupANeg,
	BloodGroupBPos, BloodGroupBNeg,
	BloodGroupABPos, BloodGroupABNeg,
	BloodGroupOPos, BloodGroupONeg,
}

var bloodGroupOrder = func() map[BloodGroup]int {
	m := make(map[BloodGroup]int, len(BloodGroups))
	for i, g := range BloodGroups {
		m[g] = i
	}
	return m
}()

// ParseBloodGroup constructs a BloodGroup from external input.
// Letters are case-insensitive and surrounding whitespace is ignored.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported.
func ParseBloodGroup(s string) (BloodGroup, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "blood group cannot be empty")
	}
	g := BloodGroup(s)
	if !g.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid blood group: "+s)
	}
	return g, nil
}

// IsValid checks if the blood group is one of the supported values.
func (g BloodGroup) IsValid() bool {
	_, ok := bloodGroupOrder[g]
	return ok
}

// Order is the position of the group in BloodGroups, or -1 when invalid.
func (g BloodGroup) Order() int {
	if i, ok := bloodGroupOrder[g]; ok {
		return i
	}
	return -1
}

func (g BloodGroup) String() string {
	return string(g)
}
