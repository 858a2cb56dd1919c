package sequencer

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"auctionlotgo/internal/domain"
	"auctionlotgo/internal/events"
	"auctionlotgo/internal/registry"
)

// PartyActivator is the slice of the lifecycle machine the sequencer
// drives.
type PartyActivator interface {
	Activate(ctx context.Context, partyID string) error
	Fail(ctx context.Context, partyID, reason string) error
}

// Sequencer activates lots strictly in position order: whenever a lot
// reaches a terminal state it brings up the pending lot with the next
// position, and ends the auction once none remains.
type Sequencer struct {
	reg       *registry.Registry
	activator PartyActivator
	pub       events.Publisher
}

func New(reg *registry.Registry, activator PartyActivator, pub events.Publisher) *Sequencer {
	return &Sequencer{reg: reg, activator: activator, pub: pub}
}

func (s *Sequencer) OnPartyTerminal(ctx context.Context, auctionID string, finishedPosition int) {
	a, ok := s.reg.Auction(auctionID)
	if !ok || a.Status != domain.AuctionActive {
		return
	}
	if s.reg.HasActiveParty(auctionID) {
		// A cancelled pending lot does not interrupt the live one.
		return
	}

	next := s.reg.NextPendingParty(auctionID, finishedPosition)
	if next == nil {
		s.endAuction(ctx, auctionID)
		return
	}

	if err := s.activator.Activate(ctx, next.ID); err != nil {
		zap.L().Warn("sequencer.activate_failed",
			zap.String("party_id", next.ID),
			zap.Int("position", next.Position),
			zap.Error(err),
		)
		if errors.Is(err, domain.ErrInvalidTransition) {
			// Mark the lot failed; its own terminal notification re-enters
			// the sequencer and the chain resumes past it.
			_ = s.activator.Fail(ctx, next.ID, "activation preconditions violated")
		}
	}
}

func (s *Sequencer) endAuction(ctx context.Context, auctionID string) {
	now := time.Now().UTC()
	changed := false
	s.reg.UpdateAuction(auctionID, func(a *domain.Auction) {
		if a.Status == domain.AuctionActive {
			a.Status = domain.AuctionEnded
			changed = true
		}
	})
	if !changed {
		return
	}
	zap.L().Info("auction_ended", zap.String("auction_id", auctionID))
	s.pub.Publish(ctx, domain.Event{
		Type:      domain.EventAuctionEnded,
		EntityID:  auctionID,
		AuctionID: auctionID,
		Timestamp: now,
	})
}
