package handler

import (
	"time"

	"bloodbank/internal/donation/models"
)

type OfferResponse struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	FirstName        string    `json:"first_name"`
	Email            string    `json:"email"`
	Phone            string    `json:"phone"`
	Age              int       `json:"age"`
	BloodGroup       string    `json:"blood_group"`
	Units            int       `json:"units"`
	Gender           string    `json:"gender"`
	LastDonationDate string    `json:"last_donation_date,omitempty"`
	LastReceiptDate  string    `json:"last_receipt_date,omitempty"`
	Consent          bool      `json:"consent"`
	Status           string    `json:"status"`
	ApprovedBy       *string   `json:"approved_by,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

type SubmitResponse struct {
	Message string         `json:"message"`
	Offer   *OfferResponse `json:"donation"`
}

type ListResponse struct {
	Donations []*OfferResponse `json:"donations"`
	Total     int              `json:"total"`
}

type DeleteResponse struct {
	Message string `json:"message"`
	Deleted int    `json:"deleted"`
}

// ToResponse renders an offer for JSON clients.
func ToResponse(o *models.Offer) *OfferResponse {
	if o == nil {
		return nil
	}
	out := &OfferResponse{
		ID:               o.ID.String(),
		UserID:           o.UserID.String(),
		FirstName:        o.FirstName,
		Email:            o.Email,
		Phone:            o.Phone,
		Age:              o.Age,
		BloodGroup:       string(o.BloodGroup),
		Units:            o.Units,
		Gender:           string(o.Gender),
		LastDonationDate: models.FormatOptionalDate(o.LastDonationDate),
		LastReceiptDate:  models.FormatOptionalDate(o.LastReceiptDate),
		Consent:          o.Consent,
		Status:           string(o.Status),
		CreatedAt:        o.CreatedAt,
	}
	if o.ApprovedBy != nil {
		s := o.ApprovedBy.String()
		out.ApprovedBy = &s
	}
	return out
}

func toListResponse(list []*models.Offer) ListResponse {
	out := make([]*OfferResponse, 0, len(list))
	for _, o := range list {
		out = append(out, ToResponse(o))
	}
	return ListResponse{Donations: out, Total: len(out)}
}
