package lifecycle

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"auctionlotgo/internal/domain"
	"auctionlotgo/internal/events"
	"auctionlotgo/internal/registry"
)

// Settler is the slice of the fund reservation manager the machine needs
// when a lot reaches a terminal state.
type Settler interface {
	Settle(customerID, partyID string, amount decimal.Decimal) error
	ReleaseAll(partyID string) error
}

// TerminalNotifier is told whenever a lot reaches a terminal state, so the
// sequencer can bring up the next one.
type TerminalNotifier interface {
	OnPartyTerminal(ctx context.Context, auctionID string, finishedPosition int)
}

type Config struct {
	// GraceWindow is the anti-sniping horizon: a bid accepted with less
	// than this left on the clock pushes the deadline out to now+GraceWindow.
	GraceWindow time.Duration
	// MaxExtension caps the total sniping extension past the original
	// deadline, so a lot cannot be stalled indefinitely.
	MaxExtension time.Duration
}

// Machine drives a lot through pending → active → {completed, cancelled,
// failed}. It owns the lot's countdown: one cancellable timer per party,
// keyed by party id. Expiry processing takes the party's critical section,
// so a last-moment bid and an expiry are mutually exclusive.
type Machine struct {
	ctx context.Context
	reg *registry.Registry
	rm  Settler
	pub events.Publisher
	cfg Config

	notifier TerminalNotifier

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func New(ctx context.Context, reg *registry.Registry, rm Settler, pub events.Publisher, cfg Config) *Machine {
	return &Machine{
		ctx:    ctx,
		reg:    reg,
		rm:     rm,
		pub:    pub,
		cfg:    cfg,
		timers: make(map[string]*time.Timer),
	}
}

// SetNotifier breaks the machine/sequencer construction cycle; wire it
// before the first Activate.
func (m *Machine) SetNotifier(n TerminalNotifier) { m.notifier = n }

// Activate moves a pending lot to active and starts its countdown. Only
// the lowest-position pending lot of an active auction may start, and only
// while no sibling lot is live.
func (m *Machine) Activate(ctx context.Context, partyID string) error {
	p, ok := m.reg.Party(partyID)
	if !ok {
		return domain.ErrPartyNotFound
	}

	lock := m.reg.PartyLock(partyID)
	lock.Lock()
	p, _ = m.reg.Party(partyID)

	a, ok := m.reg.Auction(p.AuctionID)
	if !ok {
		lock.Unlock()
		return domain.ErrAuctionNotFound
	}
	if p.Status != domain.PartyPending ||
		a.Status != domain.AuctionActive ||
		m.reg.HasActiveParty(p.AuctionID) ||
		!m.reg.IsLowestPending(p) {
		lock.Unlock()
		return domain.ErrInvalidTransition
	}

	now := time.Now().UTC()
	expires := now.Add(p.TimerDuration)
	m.reg.UpdateParty(partyID, func(p *domain.AuctionParty) {
		p.Status = domain.PartyActive
		p.StartedAt = &now
		p.TimerExpiresAt = &expires
	})
	m.schedule(partyID, p.TimerDuration)
	lock.Unlock()

	zap.L().Info("party_activated",
		zap.String("party_id", partyID),
		zap.String("auction_id", p.AuctionID),
		zap.Time("expires_at", expires),
	)
	m.pub.Publish(ctx, domain.Event{
		Type:      domain.EventPartyActivated,
		EntityID:  partyID,
		PartyID:   partyID,
		AuctionID: p.AuctionID,
		Timestamp: now,
		Payload:   map[string]any{"timer_expires_at": expires},
	})
	return nil
}

// OnBidAccepted applies the anti-sniping rule. The caller already holds
// the party's critical section; this must not re-acquire it.
func (m *Machine) OnBidAccepted(partyID string) {
	p, ok := m.reg.Party(partyID)
	if !ok || p.Status != domain.PartyActive || p.TimerExpiresAt == nil || p.StartedAt == nil {
		return
	}

	now := time.Now().UTC()
	if p.TimerExpiresAt.Sub(now) >= m.cfg.GraceWindow {
		return
	}

	newExpiry := now.Add(m.cfg.GraceWindow)
	capEnd := p.StartedAt.Add(p.TimerDuration + m.cfg.MaxExtension)
	if newExpiry.After(capEnd) {
		newExpiry = capEnd
	}
	if !newExpiry.After(*p.TimerExpiresAt) {
		return // extension budget exhausted
	}

	m.reg.UpdateParty(partyID, func(p *domain.AuctionParty) {
		p.TimerExpiresAt = &newExpiry
	})
	m.schedule(partyID, time.Until(newExpiry))
	zap.L().Debug("party_timer_extended",
		zap.String("party_id", partyID),
		zap.Time("expires_at", newExpiry),
	)
}

// Expire completes an active lot whose deadline has passed. A fire that
// raced an anti-sniping extension reschedules itself instead.
func (m *Machine) Expire(partyID string) error {
	p, ok := m.reg.Party(partyID)
	if !ok {
		return domain.ErrPartyNotFound
	}

	lock := m.reg.PartyLock(partyID)
	lock.Lock()
	p, _ = m.reg.Party(partyID)

	if p.Status != domain.PartyActive {
		lock.Unlock()
		return nil // already closed by cancel or a concurrent expiry
	}
	now := time.Now().UTC()
	if p.TimerExpiresAt != nil && now.Before(*p.TimerExpiresAt) {
		m.schedule(partyID, time.Until(*p.TimerExpiresAt))
		lock.Unlock()
		return nil
	}

	m.reg.UpdateParty(partyID, func(p *domain.AuctionParty) {
		p.Status = domain.PartyCompleted
		p.EndedAt = &now
	})
	m.stopTimer(partyID)

	winner := p.CurrentWinnerID
	if winner != "" && p.CurrentBid != nil {
		if err := m.rm.Settle(winner, partyID, *p.CurrentBid); err != nil {
			zap.L().Error("party_settle_failed",
				zap.String("party_id", partyID),
				zap.String("customer_id", winner),
				zap.Error(err),
			)
		}
	}
	lock.Unlock()

	zap.L().Info("party_completed",
		zap.String("party_id", partyID),
		zap.String("winner_id", winner),
	)
	payload := map[string]any{}
	if winner != "" && p.CurrentBid != nil {
		payload["winner_id"] = winner
		payload["winning_bid"] = p.CurrentBid.String()
	}
	m.pub.Publish(m.ctx, domain.Event{
		Type:      domain.EventPartyCompleted,
		EntityID:  partyID,
		PartyID:   partyID,
		AuctionID: p.AuctionID,
		Timestamp: now,
		Payload:   payload,
	})
	if m.notifier != nil {
		m.notifier.OnPartyTerminal(m.ctx, p.AuctionID, p.Position)
	}
	return nil
}

// Cancel closes a pending or active lot. Outstanding reservations are
// explicitly released, never silently dropped; already-transitioned bids
// stay untouched as history.
func (m *Machine) Cancel(ctx context.Context, partyID, reason string) error {
	return m.terminate(ctx, partyID, reason, domain.PartyCancelled, domain.EventPartyCancelled)
}

// Fail marks a lot failed, e.g. when its activation preconditions turned
// out to be violated.
func (m *Machine) Fail(ctx context.Context, partyID, reason string) error {
	return m.terminate(ctx, partyID, reason, domain.PartyFailed, domain.EventPartyFailed)
}

func (m *Machine) terminate(ctx context.Context, partyID, reason string, to domain.PartyStatus, evt domain.EventType) error {
	p, ok := m.reg.Party(partyID)
	if !ok {
		return domain.ErrPartyNotFound
	}

	lock := m.reg.PartyLock(partyID)
	lock.Lock()
	p, _ = m.reg.Party(partyID)

	if p.Status != domain.PartyPending && p.Status != domain.PartyActive {
		lock.Unlock()
		return domain.ErrInvalidTransition
	}
	if err := m.rm.ReleaseAll(partyID); err != nil {
		zap.L().Error("party_release_all_failed", zap.String("party_id", partyID), zap.Error(err))
	}
	now := time.Now().UTC()
	m.reg.UpdateParty(partyID, func(p *domain.AuctionParty) {
		p.Status = to
		p.EndedAt = &now
	})
	m.stopTimer(partyID)
	lock.Unlock()

	zap.L().Info("party_closed",
		zap.String("party_id", partyID),
		zap.String("status", string(to)),
		zap.String("reason", reason),
	)
	m.pub.Publish(ctx, domain.Event{
		Type:      evt,
		EntityID:  partyID,
		PartyID:   partyID,
		AuctionID: p.AuctionID,
		Timestamp: now,
		Payload:   map[string]any{"reason": reason, "status": string(to)},
	})
	if m.notifier != nil {
		m.notifier.OnPartyTerminal(ctx, p.AuctionID, p.Position)
	}
	return nil
}

// ───────────────────────────── timers ───────────────────────────────

func (m *Machine) schedule(partyID string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.timers[partyID]; ok {
		t.Stop()
	}
	m.timers[partyID] = time.AfterFunc(d, func() {
		if err := m.Expire(partyID); err != nil {
			zap.L().Warn("party_expire", zap.String("party_id", partyID), zap.Error(err))
		}
	})
}

func (m *Machine) stopTimer(partyID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.timers[partyID]; ok {
		t.Stop()
		delete(m.timers, partyID)
	}
}

// Shutdown stops every outstanding timer.
func (m *Machine) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, t := range m.timers {
		t.Stop()
		delete(m.timers, id)
	}
}
