package handler

import (
	"time"

	"bloodbank/internal/stock/models"
)

const dateLayout = "2006-01-02"

type StockEntryResponse struct {
	ID              string `json:"id"`
	BloodGroup      string `json:"blood_group"`
	Units           int    `json:"units"`
	CollectedDate   string `json:"collected_date"`
	ExpiryDate      string `json:"expiry_date"`
	DaysUntilExpiry int    `json:"days_until_expiry"`
	Status          string `json:"status"`
}

type StockListResponse struct {
	Stock []StockEntryResponse `json:"stock"`
}

type StockOverviewResponse struct {
	Stock      []StockEntryResponse `json:"stock"`
	Expired    []StockEntryResponse `json:"expired"`
	NearExpiry []StockEntryResponse `json:"near_expiry"`
	TotalUnits int                  `json:"total_units"`
	Today      string               `json:"today"`
}

type BreakdownResponse struct {
	Groups []models.GroupUnits `json:"groups"`
}

type StockMutationResponse struct {
	Message string              `json:"message"`
	Entry   *StockEntryResponse `json:"entry,omitempty"`
}

// ToEntryResponse renders an entry with its freshness as of today.
func ToEntryResponse(e *models.Entry, today time.Time) *StockEntryResponse {
	return &StockEntryResponse{
		ID:              e.ID.String(),
		BloodGroup:      string(e.BloodGroup),
		Units:           e.Units,
		CollectedDate:   e.CollectedDate.Format(dateLayout),
		ExpiryDate:      e.ExpiryDate.Format(dateLayout),
		DaysUntilExpiry: e.DaysUntilExpiry(today),
		Status:          string(e.Freshness(today)),
	}
}

func toEntryResponses(entries []*models.Entry, today time.Time) []StockEntryResponse {
	out := make([]StockEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, *ToEntryResponse(e, today))
	}
	return out
}

func toOverviewResponse(ov *models.Overview) StockOverviewResponse {
	return StockOverviewResponse{
		Stock:      toEntryResponses(ov.Entries, ov.Today),
		Expired:    toEntryResponses(ov.Expired, ov.Today),
		NearExpiry: toEntryResponses(ov.NearExpiry, ov.Today),
		TotalUnits: models.TotalUnits(ov.Entries),
		Today:      ov.Today.Format(dateLayout),
	}
}
