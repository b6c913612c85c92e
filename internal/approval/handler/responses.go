package handler

import (
	"time"

	"bloodbank/internal/approval/models"
	requesthandler "bloodbank/internal/bloodrequest/handler"
	donationhandler "bloodbank/internal/donation/handler"
	stockhandler "bloodbank/internal/stock/handler"
)

type DecisionResponse struct {
	Outcome  string                           `json:"outcome"`
	Message  string                           `json:"message"`
	Request  *requesthandler.RequestResponse  `json:"request"`
	Stock    *stockhandler.StockEntryResponse `json:"stock,omitempty"`
	Donation *donationhandler.OfferResponse   `json:"donation,omitempty"`
}

func toDecisionResponse(d *models.Decision, today time.Time) DecisionResponse {
	out := DecisionResponse{
		Outcome:  string(d.Outcome),
		Message:  d.Message,
		Request:  requesthandler.ToResponse(d.Request),
		Donation: donationhandler.ToResponse(d.Offer),
	}
	if d.Stock != nil {
		out.Stock = stockhandler.ToEntryResponse(d.Stock, today)
	}
	return out
}
