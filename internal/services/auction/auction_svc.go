package auction

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

var (
	ErrStartAfterEnd    = errors.New("start_date must precede end_date")
	ErrBadIncrement     = errors.New("bid_increment must be positive")
	ErrBadStartingPrice = errors.New("starting_price must not be negative")
	ErrBadPosition      = errors.New("position must be positive")
	ErrAuctionDisabled  = errors.New("auction is disabled")
)

// PartyLifecycle is the slice of the lifecycle machine the auction service
// drives on start and cancel.
type PartyLifecycle interface {
	Activate(ctx context.Context, partyID string) error
	Cancel(ctx context.Context, partyID, reason string) error
}

// PartyInput carries the fields of a lot registration.
type PartyInput struct {
	ProductID     string
	SellerID      string
	StartingPrice decimal.Decimal
	BidIncrement  decimal.Decimal
	Position      int
	TimerDuration time.Duration
}

// PartyView is the read model served on the listing boundary: the lot plus
// the remaining clock.
type PartyView struct {
	domain.AuctionParty
	RemainingSeconds int64 `json:"remaining_seconds"`
}

type IAuctionService interface {
	CreateAuction(ctx context.Context, title string, start, end time.Time, cutoffHours int) (domain.Auction, error)
	AddParty(ctx context.Context, auctionID string, in PartyInput) (domain.AuctionParty, error)
	ScheduleAuction(ctx context.Context, id string) error
	StartAuction(ctx context.Context, id string) error
	CancelAuction(ctx context.Context, id, reason string) error
	SetEnabled(ctx context.Context, id string, enabled bool) error

	GetAuction(ctx context.Context, id string) (domain.Auction, error)
	ListAuctions(ctx context.Context, status string, limit, offset int) ([]domain.Auction, error)
	GetParty(ctx context.Context, partyID string) (PartyView, error)
	ListParties(ctx context.Context, auctionID string) ([]PartyView, error)
	ListBids(ctx context.Context, partyID string) ([]domain.Bid, error)
}

type auctionService struct {
	reg       *registry.Registry
	lifecycle PartyLifecycle
	pub       events.Publisher
}

func NewAuctionService(reg *registry.Registry, lifecycle PartyLifecycle, pub events.Publisher) IAuctionService {
	return &auctionService{reg: reg, lifecycle: lifecycle, pub: pub}
}

func (svc *auctionService) CreateAuction(ctx context.Context, title string, start, end time.Time, cutoffHours int) (domain.Auction, error) {
	if !start.Before(end) {
		return domain.Auction{}, ErrStartAfterEnd
	}
	a := &domain.Auction{
		ID:                      uuid.NewString(),
		Title:                   title,
		StartDate:               start.UTC(),
		EndDate:                 end.UTC(),
		Status:                  domain.AuctionDraft,
		IsEnabled:               true,
		RegistrationCutoffHours: cutoffHours,
		CreatedAt:               time.Now().UTC(),
	}
	svc.reg.PutAuction(a)
	zap.L().Info("auction_created", zap.String("auction_id", a.ID), zap.String("title", title))
	return *a, nil
}

// AddParty registers a lot. Registration closes cutoff_hours before the
// auction's start date.
func (svc *auctionService) AddParty(ctx context.Context, auctionID string, in PartyInput) (domain.AuctionParty, error) {
	a, ok := svc.reg.Auction(auctionID)
	if !ok {
		return domain.AuctionParty{}, domain.ErrAuctionNotFound
	}
	if a.Status != domain.AuctionDraft && a.Status != domain.AuctionScheduled {
		return domain.AuctionParty{}, domain.ErrInvalidTransition
	}
	if time.Now().UTC().After(a.RegistrationDeadline()) {
		return domain.AuctionParty{}, domain.ErrRegistrationClosed
	}
	if !in.BidIncrement.IsPositive() {
		return domain.AuctionParty{}, ErrBadIncrement
	}
	if in.StartingPrice.IsNegative() {
		return domain.AuctionParty{}, ErrBadStartingPrice
	}
	if in.Position <= 0 {
		return domain.AuctionParty{}, ErrBadPosition
	}

	p := &domain.AuctionParty{
		ID:            uuid.NewString(),
		AuctionID:     auctionID,
		ProductID:     in.ProductID,
		SellerID:      in.SellerID,
		StartingPrice: in.StartingPrice,
		BidIncrement:  in.BidIncrement,
		Status:        domain.PartyPending,
		Position:      in.Position,
		TimerDuration: in.TimerDuration,
	}
	if err := svc.reg.AddParty(p); err != nil {
		return domain.AuctionParty{}, err
	}
	zap.L().Info("party_registered",
		zap.String("auction_id", auctionID),
		zap.String("party_id", p.ID),
		zap.Int("position", in.Position),
	)
	return *p, nil
}

func (svc *auctionService) ScheduleAuction(ctx context.Context, id string) error {
	return svc.transition(id, domain.AuctionDraft, domain.AuctionScheduled)
}

// StartAuction moves the auction to active and brings up the first lot in
// position order.
func (svc *auctionService) StartAuction(ctx context.Context, id string) error {
	a, ok := svc.reg.Auction(id)
	if !ok {
		return domain.ErrAuctionNotFound
	}
	if !a.IsEnabled {
		return ErrAuctionDisabled
	}
	if err := svc.transition(id, domain.AuctionScheduled, domain.AuctionActive); err != nil {
		return err
	}

	first := svc.reg.NextPendingParty(id, 0)
	if first == nil {
		// Nothing to run; the auction ends right away.
		svc.reg.UpdateAuction(id, func(a *domain.Auction) { a.Status = domain.AuctionEnded })
		svc.pub.Publish(ctx, domain.Event{
			Type:      domain.EventAuctionEnded,
			EntityID:  id,
			AuctionID: id,
			Timestamp: time.Now().UTC(),
		})
		return nil
	}
	return svc.lifecycle.Activate(ctx, first.ID)
}

// CancelAuction is terminal and cascades to every non-terminal lot, each
// cancellation taking its own party lock. Bids accepted before the cancel
// signal keep their history; their reservations are released, never
// silently dropped.
func (svc *auctionService) CancelAuction(ctx context.Context, id, reason string) error {
	a, ok := svc.reg.Auction(id)
	if !ok {
		return domain.ErrAuctionNotFound
	}
	if a.Status.Terminal() {
		return domain.ErrInvalidTransition
	}
	svc.reg.UpdateAuction(id, func(a *domain.Auction) { a.Status = domain.AuctionCancelled })

	for _, p := range svc.reg.PartiesForAuction(id) {
		if p.Status.Terminal() {
			continue
		}
		if err := svc.lifecycle.Cancel(ctx, p.ID, reason); err != nil {
			zap.L().Warn("auction_cancel_party",
				zap.String("auction_id", id),
				zap.String("party_id", p.ID),
				zap.Error(err),
			)
		}
	}

	zap.L().Info("auction_cancelled", zap.String("auction_id", id), zap.String("reason", reason))
	svc.pub.Publish(ctx, domain.Event{
		Type:      domain.EventAuctionCancelled,
		EntityID:  id,
		AuctionID: id,
		Timestamp: time.Now().UTC(),
		Payload:   map[string]any{"reason": reason},
	})
	return nil
}

func (svc *auctionService) SetEnabled(ctx context.Context, id string, enabled bool) error {
	if ok := svc.reg.UpdateAuction(id, func(a *domain.Auction) { a.IsEnabled = enabled }); !ok {
		return domain.ErrAuctionNotFound
	}
	return nil
}

func (svc *auctionService) transition(id string, from, to domain.AuctionStatus) error {
	var transitionErr error
	ok := svc.reg.UpdateAuction(id, func(a *domain.Auction) {
		if a.Status != from {
			transitionErr = domain.ErrInvalidTransition
			return
		}
		a.Status = to
	})
	if !ok {
		return domain.ErrAuctionNotFound
	}
	return transitionErr
}

// ───────────────────────────── read models ──────────────────────────

func (svc *auctionService) GetAuction(ctx context.Context, id string) (domain.Auction, error) {
	a, ok := svc.reg.Auction(id)
	if !ok {
		return domain.Auction{}, domain.ErrAuctionNotFound
	}
	return a, nil
}

func (svc *auctionService) ListAuctions(ctx context.Context, status string, limit, offset int) ([]domain.Auction, error) {
	if limit == 0 {
		limit = 10
	}
	return svc.reg.ListAuctions(domain.AuctionStatus(status), limit, offset), nil
}

func (svc *auctionService) GetParty(ctx context.Context, partyID string) (PartyView, error) {
	p, ok := svc.reg.Party(partyID)
	if !ok {
		return PartyView{}, domain.ErrPartyNotFound
	}
	return newPartyView(p), nil
}

func (svc *auctionService) ListParties(ctx context.Context, auctionID string) ([]PartyView, error) {
	if _, ok := svc.reg.Auction(auctionID); !ok {
		return nil, domain.ErrAuctionNotFound
	}
	parties := svc.reg.PartiesForAuction(auctionID)
	out := make([]PartyView, 0, len(parties))
	for _, p := range parties {
		out = append(out, newPartyView(p))
	}
	return out, nil
}

func (svc *auctionService) ListBids(ctx context.Context, partyID string) ([]domain.Bid, error) {
	if _, ok := svc.reg.Party(partyID); !ok {
		return nil, domain.ErrPartyNotFound
	}
	return svc.reg.BidsForParty(partyID), nil
}

func newPartyView(p domain.AuctionParty) PartyView {
	v := PartyView{AuctionParty: p}
	if p.Status == domain.PartyActive && p.TimerExpiresAt != nil {
		if rem := time.Until(*p.TimerExpiresAt); rem > 0 {
			v.RemainingSeconds = int64(rem.Seconds())
		}
	}
	return v
}
