package handler

import (
	"time"

	"bloodbank/internal/bloodrequest/models"
)

type RequestResponse struct {
	ID              string    `json:"id"`
	UserID          *string   `json:"user_id"`
	DonationOfferID *string   `json:"donation_offer_id,omitempty"`
	FirstName       string    `json:"first_name"`
	Email           string    `json:"email"`
	Phone           string    `json:"phone"`
	Age             int       `json:"age"`
	Reason          string    `json:"reason"`
	BloodGroup      string    `json:"blood_group"`
	Units           int       `json:"units"`
	Gender          string    `json:"gender"`
	Role            string    `json:"role"`
	Status          string    `json:"status"`
	AdminMessage    string    `json:"admin_message,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type SubmitResponse struct {
	Message string           `json:"message"`
	Request *RequestResponse `json:"request"`
}

type ListResponse struct {
	Requests []*RequestResponse `json:"requests"`
	Total    int                `json:"total"`
}

// ToResponse renders a request for JSON clients.
func ToResponse(r *models.BloodRequest) *RequestResponse {
	if r == nil {
		return nil
	}
	out := &RequestResponse{
		ID:           r.ID.String(),
		FirstName:    r.FirstName,
		Email:        r.Email,
		Phone:        r.Phone,
		Age:          r.Age,
		Reason:       r.Reason,
		BloodGroup:   string(r.BloodGroup),
		Units:        r.Units,
		Gender:       string(r.Gender),
		Role:         string(r.Role),
		Status:       string(r.Status),
		AdminMessage: r.AdminMessage,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if r.UserID != nil {
		s := r.UserID.String()
		out.UserID = &s
	}
	if r.DonationOfferID != nil {
		s := r.DonationOfferID.String()
		out.DonationOfferID = &s
	}
	return out
}

func ToListResponse(list []*models.BloodRequest) ListResponse {
	out := make([]*RequestResponse, 0, len(list))
	for _, r := range list {
		out = append(out, ToResponse(r))
	}
	return ListResponse{Requests: out, Total: len(out)}
}
