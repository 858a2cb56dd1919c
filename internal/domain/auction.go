package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type AuctionStatus string

const (
	AuctionDraft     AuctionStatus = "DRAFT"
	AuctionScheduled AuctionStatus = "SCHEDULED"
	AuctionActive    AuctionStatus = "ACTIVE"
	AuctionEnded     AuctionStatus = "ENDED"
	AuctionCancelled AuctionStatus = "CANCELLED"
)

// Terminal reports whether the status admits no further transition.
func (s AuctionStatus) Terminal() bool {
	return s == AuctionEnded || s == AuctionCancelled
}

type Auction struct {
	ID                      string        `json:"id"`
	Title                   string        `json:"title"`
	StartDate               time.Time     `json:"start_date"`
	EndDate                 time.Time     `json:"end_date"`
	Status                  AuctionStatus `json:"status"`
	IsEnabled               bool          `json:"is_enabled"`
	RegistrationCutoffHours int           `json:"party_registration_cutoff_hours"`
	CreatedAt               time.Time     `json:"created_at"`
}

// RegistrationDeadline is the instant after which no more parties may be
// added to the auction.
func (a *Auction) RegistrationDeadline() time.Time {
	return a.StartDate.Add(-time.Duration(a.RegistrationCutoffHours) * time.Hour)
}

type PartyStatus string

const (
	PartyPending   PartyStatus = "PENDING"
	PartyActive    PartyStatus = "ACTIVE"
	PartyCompleted PartyStatus = "COMPLETED"
	PartyCancelled PartyStatus = "CANCELLED"
	PartyFailed    PartyStatus = "FAILED"
)

func (s PartyStatus) Terminal() bool {
	return s == PartyCompleted || s == PartyCancelled || s == PartyFailed
}

// AuctionParty is one lot inside a multi-lot auction, run as an independent
// timed English auction while it is active.
type AuctionParty struct {
	ID              string           `json:"id"`
	AuctionID       string           `json:"auction_id"`
	ProductID       string           `json:"product_id"`
	SellerID        string           `json:"seller_id"`
	StartingPrice   decimal.Decimal  `json:"starting_price"`
	BidIncrement    decimal.Decimal  `json:"bid_increment"`
	CurrentBid      *decimal.Decimal `json:"current_bid,omitempty"`
	CurrentWinnerID string           `json:"current_winner_id,omitempty"`
	Status          PartyStatus      `json:"status"`
	Position        int              `json:"position"`
	TimerDuration   time.Duration    `json:"-"`
	TimerExpiresAt  *time.Time       `json:"timer_expires_at,omitempty"`
	StartedAt       *time.Time       `json:"started_at,omitempty"`
	EndedAt         *time.Time       `json:"ended_at,omitempty"`
}

// MinimumBid is the smallest amount an incoming bid must reach:
// starting price for a fresh lot, current bid plus increment afterwards.
func (p *AuctionParty) MinimumBid() decimal.Decimal {
	if p.CurrentBid == nil {
		return p.StartingPrice
	}
	return p.CurrentBid.Add(p.BidIncrement)
}
