package models

import (
	stockmodels "bloodbank/internal/stock/models"
)

// AdminSummary is the admin landing page. ApprovedRequests is
// ApprovedDonations plus AcceptedRequests.
type AdminSummary struct {
	TotalUnits        int
	AvailableDonors   int
	TotalRequests     int
	ApprovedDonations int
	AcceptedRequests  int
	ApprovedRequests  int
	Breakdown         []stockmodels.GroupUnits
}

// StatusCounts tallies a caller's own submissions.
type StatusCounts struct {
	Total    int
	Pending  int
	Approved int
	Rejected int
}

type DonorHome struct {
	Donations StatusCounts
	Stock     []*stockmodels.Entry
}

type PatientHome struct {
	Requests StatusCounts
	Stock    []*stockmodels.Entry
}

type HospitalHome struct {
	TotalRequests    int
	ApprovedRequests int
	AvailableDonors  int
	Stock            []*stockmodels.Entry
}
