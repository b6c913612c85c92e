package handler

import (
	"time"

	"bloodbank/internal/dashboard/models"
	stockhandler "bloodbank/internal/stock/handler"
	stockmodels "bloodbank/internal/stock/models"
)

type AdminSummaryResponse struct {
	TotalUnits        int                      `json:"total_blood_units"`
	AvailableDonors   int                      `json:"available_donors"`
	TotalRequests     int                      `json:"total_requests"`
	ApprovedDonations int                      `json:"approved_donations"`
	AcceptedRequests  int                      `json:"accepted_requests"`
	ApprovedRequests  int                      `json:"approved_requests"`
	Breakdown         []stockmodels.GroupUnits `json:"blood_groups"`
}

type CountsResponse struct {
	Total    int `json:"total_requests"`
	Pending  int `json:"pending_requests"`
	Approved int `json:"approved_requests"`
	Rejected int `json:"rejected_requests"`
}

type HomeResponse struct {
	Username string                            `json:"username"`
	Counts   CountsResponse                    `json:"counts"`
	Stock    []stockhandler.StockEntryResponse `json:"stock"`
}

type HospitalHomeResponse struct {
	Username         string                            `json:"username"`
	TotalRequests    int                               `json:"total_requests"`
	ApprovedRequests int                               `json:"approved_requests"`
	AvailableDonors  int                               `json:"available_donors"`
	Stock            []stockhandler.StockEntryResponse `json:"stock"`
}

func toCounts(c models.StatusCounts) CountsResponse {
	return CountsResponse{Total: c.Total, Pending: c.Pending, Approved: c.Approved, Rejected: c.Rejected}
}

func toStock(entries []*stockmodels.Entry, today time.Time) []stockhandler.StockEntryResponse {
	out := make([]stockhandler.StockEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, *stockhandler.ToEntryResponse(e, today))
	}
	return out
}
