package models

import (
	"time"

	"bloodbank/pkg/domain"
)

// Overview is the admin view of the ledger.
type Overview struct {
	Entries    []*Entry
	Expired    []*Entry
	NearExpiry []*Entry
	Today      time.Time
}

// GroupUnits is one row of a per-group breakdown.
type GroupUnits struct {
	BloodGroup domain.BloodGroup `json:"blood_group"`
	Units      int               `json:"units"`
}

// BreakdownOf lists every blood group in canonical order with its units, zero when absent.
func BreakdownOf(entries []*Entry) []GroupUnits {
	byGroup := make(map[domain.BloodGroup]int, len(entries))
	for _, e := range entries {
		byGroup[e.BloodGroup] += e.Units
	}
	out := make([]GroupUnits, 0, len(domain.BloodGroups))
	for _, g := range domain.BloodGroups {
		out = append(out, GroupUnits{BloodGroup: g, Units: byGroup[g]})
	}
	return out
}

// TotalUnits sums units across entries.
func TotalUnits(entries []*Entry) int {
	total := 0
	for _, e := range entries {
		total += e.Units
	}
	return total
}
