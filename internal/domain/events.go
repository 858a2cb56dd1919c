package domain

import "time"

type EventType string

const (
	EventBidAccepted      EventType = "bid.accepted"
	EventBidRejected      EventType = "bid.rejected"
	EventBidOutbid        EventType = "bid.outbid"
	EventPartyActivated   EventType = "party.activated"
	EventPartyCompleted   EventType = "party.completed"
	EventPartyCancelled   EventType = "party.cancelled"
	EventPartyFailed      EventType = "party.failed"
	EventAuctionEnded     EventType = "auction.ended"
	EventAuctionCancelled EventType = "auction.cancelled"
)

// Event is the fire-and-forget notification handed to the publisher after
// a state transition has committed.
type Event struct {
	Type      EventType      `json:"event"`
	EntityID  string         `json:"entity_id"`
	PartyID   string         `json:"party_id,omitempty"`
	AuctionID string         `json:"auction_id"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty"`
}
