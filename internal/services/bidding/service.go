package bidding

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"auctionlotgo/internal/domain"
	"auctionlotgo/internal/events"
	"auctionlotgo/internal/registry"
)

// Reserver is the slice of the fund reservation manager the controller
// drives on acceptance and displacement.
type Reserver interface {
	Reserve(customerID, partyID string, amount decimal.Decimal) error
	Release(customerID, partyID string) error
}

// AntiSniper receives the accepted-bid signal for timer extension. It is
// invoked while the party's critical section is held.
type AntiSniper interface {
	OnBidAccepted(partyID string)
}

type Config struct {
	// AllowSelfOutbid lets the current winner raise their own bid; the
	// reservation then moves by the delta only.
	AllowSelfOutbid bool
}

// Service is the serialization point for bid admission on a lot. All
// decisions for one party run under that party's critical section, so no
// two bids are ever evaluated against the same current_bid snapshot;
// unrelated lots admit bids in parallel.
type Service struct {
	reg    *registry.Registry
	rm     Reserver
	sniper AntiSniper
	pub    events.Publisher
	cfg    Config

	// sink receives every decided bid row, for asynchronous persistence.
	sink func(domain.Bid)
}

func New(reg *registry.Registry, rm Reserver, sniper AntiSniper, pub events.Publisher, cfg Config, sink func(domain.Bid)) *Service {
	return &Service{reg: reg, rm: rm, sniper: sniper, pub: pub, cfg: cfg, sink: sink}
}

// SubmitBid decides a single bid. Rejections come back as a REJECTED bid
// row with a reason code, not as an error; errors are reserved for
// not-found and internal failures, where no bid row is recorded.
func (s *Service) SubmitBid(ctx context.Context, partyID, customerID string, amount decimal.Decimal, correlationID string) (domain.Bid, error) {
	p, ok := s.reg.Party(partyID)
	if !ok {
		return domain.Bid{}, domain.ErrPartyNotFound
	}

	var pending []domain.Event
	defer func() {
		for _, e := range pending {
			s.pub.Publish(ctx, e)
		}
	}()

	lock := s.reg.PartyLock(partyID)
	lock.Lock()
	defer lock.Unlock()

	// Re-read inside the critical section: the pre-lock copy may predate
	// a bid admitted while this one waited.
	p, _ = s.reg.Party(partyID)

	// Replaying a processed correlation id returns the original decision.
	if correlationID != "" {
		if prior, ok := s.reg.SeenCorrelation(partyID, customerID, correlationID); ok {
			return prior, nil
		}
	}

	reject := func(reason string) (domain.Bid, error) {
		b := s.record(partyID, customerID, amount, correlationID, domain.BidRejected, reason)
		pending = append(pending, domain.Event{
			Type:      domain.EventBidRejected,
			EntityID:  b.ID,
			PartyID:   partyID,
			AuctionID: p.AuctionID,
			Timestamp: b.PlacedAt,
			Payload:   map[string]any{"customer_id": customerID, "amount": amount.String(), "reason": reason},
		})
		return b, nil
	}

	if !amount.IsPositive() {
		return reject(domain.ReasonInvalidAmount)
	}
	if p.Status != domain.PartyActive {
		return reject(domain.ReasonPartyNotActive)
	}
	if p.CurrentWinnerID == customerID && !s.cfg.AllowSelfOutbid {
		return reject(domain.ReasonSelfOutbid)
	}
	if amount.LessThan(p.MinimumBid()) {
		if p.CurrentBid != nil && amount.LessThanOrEqual(*p.CurrentBid) {
			// The amount would have cleared an earlier snapshot; another
			// bid won the critical section first.
			return reject(domain.ReasonOutbidBeforeProcessing)
		}
		return reject(domain.ReasonBidBelowMinimum)
	}

	// Reserve before any party mutation: an insufficient-funds failure
	// leaves the lot exactly as it was.
	if err := s.rm.Reserve(customerID, partyID, amount); err != nil {
		if errors.Is(err, domain.ErrInsufficientFunds) {
			return reject(domain.ReasonInsufficientFunds)
		}
		return domain.Bid{}, err
	}

	// Reservation held; from here every step must land, or the
	// reservation is compensated away.
	now := time.Now().UTC()
	if prev, ok := s.reg.AcceptedBid(partyID); ok {
		s.reg.UpdateBid(prev.ID, func(b *domain.Bid) {
			b.Status = domain.BidOutbid
		})
		if demoted, ok := s.reg.Bid(prev.ID); ok && s.sink != nil {
			s.sink(demoted)
		}
		if prev.CustomerID != customerID {
			if err := s.rm.Release(prev.CustomerID, partyID); err != nil {
				zap.L().Error("bid_release_displaced",
					zap.String("party_id", partyID),
					zap.String("customer_id", prev.CustomerID),
					zap.Error(err),
				)
			}
			pending = append(pending, domain.Event{
				Type:      domain.EventBidOutbid,
				EntityID:  prev.ID,
				PartyID:   partyID,
				AuctionID: p.AuctionID,
				Timestamp: now,
				Payload:   map[string]any{"customer_id": prev.CustomerID, "amount": prev.Amount.String()},
			})
		}
	}

	b := s.record(partyID, customerID, amount, correlationID, domain.BidAccepted, "")
	s.reg.SetAcceptedBid(partyID, b.ID)
	s.reg.UpdateParty(partyID, func(p *domain.AuctionParty) {
		amt := amount
		p.CurrentBid = &amt
		p.CurrentWinnerID = customerID
	})
	s.sniper.OnBidAccepted(partyID)

	zap.L().Info("bid_accepted",
		zap.String("party_id", partyID),
		zap.String("customer_id", customerID),
		zap.String("amount", amount.String()),
	)
	pending = append(pending, domain.Event{
		Type:      domain.EventBidAccepted,
		EntityID:  b.ID,
		PartyID:   partyID,
		AuctionID: p.AuctionID,
		Timestamp: now,
		Payload:   map[string]any{"customer_id": customerID, "amount": amount.String()},
	})
	return b, nil
}

// record writes the append-only audit row for a decided submission. Must
// be called with the party's critical section held.
func (s *Service) record(partyID, customerID string, amount decimal.Decimal, correlationID string, status domain.BidStatus, reason string) domain.Bid {
	now := time.Now().UTC()
	b := &domain.Bid{
		ID:              uuid.NewString(),
		PartyID:         partyID,
		CustomerID:      customerID,
		Amount:          amount,
		Status:          status,
		RejectionReason: reason,
		ProcessedAt:     &now,
		CorrelationID:   correlationID,
		PlacedAt:        now,
	}
	s.reg.AddBid(b)
	if correlationID != "" {
		s.reg.RememberCorrelation(partyID, customerID, correlationID, b.ID)
	}
	if s.sink != nil {
		s.sink(*b)
	}
	return *b
}
