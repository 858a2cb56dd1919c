package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type BidStatus string

// Bids leave the admission controller already decided, so there is no
// pending state.
const (
	BidAccepted BidStatus = "ACCEPTED"
	BidRejected BidStatus = "REJECTED"
	BidOutbid   BidStatus = "OUTBID"
)

// Rejection reason codes, surfaced verbatim on the submission boundary.
const (
	ReasonInvalidAmount          = "INVALID_AMOUNT"
	ReasonPartyNotActive         = "PARTY_NOT_ACTIVE"
	ReasonSelfOutbid             = "SELF_OUTBID"
	ReasonBidBelowMinimum        = "BID_BELOW_MINIMUM"
	ReasonOutbidBeforeProcessing = "OUTBID_BEFORE_PROCESSING"
	ReasonInsufficientFunds      = "INSUFFICIENT_FUNDS"
)

// Bid is an append-only audit row recorded with its final decision; the
// only later edit is the ACCEPTED→OUTBID demotion, corrections are new
// rows.
type Bid struct {
	ID              string          `json:"id"`
	PartyID         string          `json:"party_id"`
	CustomerID      string          `json:"customer_id"`
	Amount          decimal.Decimal `json:"amount"`
	Status          BidStatus       `json:"status"`
	RejectionReason string          `json:"rejection_reason,omitempty"`
	ProcessedAt     *time.Time      `json:"processed_at,omitempty"`
	CorrelationID   string          `json:"correlation_id,omitempty"`
	PlacedAt        time.Time       `json:"placed_at"`
}
