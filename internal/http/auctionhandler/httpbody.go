package auctionhandler

import (
	"time"

	"github.com/shopspring/decimal"
)

type CreateAuctionBody struct {
	Title       string    `json:"title"       binding:"required"           example:"Spring charity auction"`
	StartDate   time.Time `json:"start_date"  binding:"required"           example:"2025-07-27T16:05:05Z"`
	EndDate     time.Time `json:"end_date"    binding:"required"           example:"2025-07-27T20:05:05Z"`
	CutoffHours int       `json:"party_registration_cutoff_hours" binding:"gte=0" example:"1"`
} // @name CreateAuctionRequest

type AddPartyBody struct {
	ProductID            string          `json:"product_id" binding:"required" example:"prod123"`
	SellerID             string          `json:"seller_id"  binding:"required" example:"seller123"`
	StartingPrice        decimal.Decimal `json:"starting_price"`
	BidIncrement         decimal.Decimal `json:"bid_increment" binding:"required"`
	Position             int             `json:"position" binding:"required,gt=0" example:"1"`
	TimerDurationSeconds int             `json:"timer_duration_seconds" binding:"required,gt=0" example:"120"`
} // @name AddPartyRequest

type PlaceBidBody struct {
	CustomerID    string          `json:"customer_id" binding:"required" example:"user123"`
	Amount        decimal.Decimal `json:"amount"      binding:"required"`
	CorrelationID string          `json:"correlation_id" example:"req-8842"`
} // @name PlaceBidRequest

type BidResponse struct {
	BidID  string `json:"bid_id"`
	Status string `json:"status"           example:"accepted"`
	Reason string `json:"reason,omitempty" example:"BID_BELOW_MINIMUM"`
} // @name BidResponse

type CancelBody struct {
	Reason string `json:"reason" example:"seller withdrew"`
} // @name CancelRequest

type ErrorResponse struct {
	Error string `json:"error"`
} // @name ErrorResponse

type ListAuctionsQuery struct {
	Status string `form:"status"  binding:"omitempty,oneof=DRAFT SCHEDULED ACTIVE ENDED CANCELLED"`
	Limit  int    `form:"limit,default=10"  binding:"gte=0,lte=100"`
	Offset int    `form:"offset,default=0"  binding:"gte=0"`
} // @name ListAuctionsQuery
