package lifecycle

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auctionlotgo/internal/domain"
	"auctionlotgo/internal/events"
	"auctionlotgo/internal/registry"
	"auctionlotgo/internal/reservation"
	"auctionlotgo/internal/wallet"
)

func dec(i int64) decimal.Decimal { return decimal.NewFromInt(i) }

type terminalLog struct {
	mu    sync.Mutex
	calls []int
}

func (l *terminalLog) OnPartyTerminal(_ context.Context, _ string, finishedPosition int) {
	l.mu.Lock()
	l.calls = append(l.calls, finishedPosition)
	l.mu.Unlock()
}

func (l *terminalLog) positions() []int {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]int, len(l.calls))
	copy(out, l.calls)
	return out
}

type fixture struct {
	reg    *registry.Registry
	ledger *wallet.Ledger
	rm     *reservation.Manager
	rec    *events.Recorder
	m      *Machine
	log    *terminalLog
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	f := &fixture{
		reg: registry.New(),
		rec: events.NewRecorder(),
		log: &terminalLog{},
	}
	f.ledger = wallet.NewLedger(nil)
	f.rm = reservation.NewManager(f.ledger)
	f.m = New(context.Background(), f.reg, f.rm, f.rec, cfg)
	f.m.SetNotifier(f.log)
	t.Cleanup(f.m.Shutdown)

	f.reg.PutAuction(&domain.Auction{ID: "a1", Status: domain.AuctionActive})
	return f
}

func (f *fixture) addParty(t *testing.T, id string, position int, status domain.PartyStatus, d time.Duration) {
	t.Helper()
	require.NoError(t, f.reg.AddParty(&domain.AuctionParty{
		ID:            id,
		AuctionID:     "a1",
		StartingPrice: dec(100),
		BidIncrement:  dec(10),
		Status:        status,
		Position:      position,
		TimerDuration: d,
	}))
}

func TestActivate(t *testing.T) {
	f := newFixture(t, Config{GraceWindow: 30 * time.Second, MaxExtension: 5 * time.Minute})
	f.addParty(t, "p1", 1, domain.PartyPending, time.Minute)

	require.NoError(t, f.m.Activate(context.Background(), "p1"))

	p, _ := f.reg.Party("p1")
	assert.Equal(t, domain.PartyActive, p.Status)
	require.NotNil(t, p.StartedAt)
	require.NotNil(t, p.TimerExpiresAt)
	assert.WithinDuration(t, p.StartedAt.Add(time.Minute), *p.TimerExpiresAt, time.Second)
	assert.Contains(t, f.rec.Types(), domain.EventPartyActivated)
}

func TestActivate_Preconditions(t *testing.T) {
	f := newFixture(t, Config{GraceWindow: time.Second, MaxExtension: time.Minute})
	f.addParty(t, "p1", 1, domain.PartyPending, time.Minute)
	f.addParty(t, "p2", 2, domain.PartyPending, time.Minute)

	// Not the lowest pending position.
	assert.ErrorIs(t, f.m.Activate(context.Background(), "p2"), domain.ErrInvalidTransition)

	// Auction not active.
	f.reg.UpdateAuction("a1", func(a *domain.Auction) { a.Status = domain.AuctionScheduled })
	assert.ErrorIs(t, f.m.Activate(context.Background(), "p1"), domain.ErrInvalidTransition)
	f.reg.UpdateAuction("a1", func(a *domain.Auction) { a.Status = domain.AuctionActive })

	// At most one live lot per auction.
	require.NoError(t, f.m.Activate(context.Background(), "p1"))
	assert.ErrorIs(t, f.m.Activate(context.Background(), "p2"), domain.ErrInvalidTransition)

	assert.ErrorIs(t, f.m.Activate(context.Background(), "ghost"), domain.ErrPartyNotFound)
}

func TestOnBidAccepted_ExtendsNearExpiry(t *testing.T) {
	grace := 30 * time.Second
	f := newFixture(t, Config{GraceWindow: grace, MaxExtension: 5 * time.Minute})
	f.addParty(t, "p1", 1, domain.PartyActive, time.Minute)

	now := time.Now().UTC()
	started := now.Add(-50 * time.Second)
	soon := now.Add(10 * time.Second)
	f.reg.UpdateParty("p1", func(p *domain.AuctionParty) {
		p.StartedAt = &started
		p.TimerExpiresAt = &soon
	})

	f.m.OnBidAccepted("p1")

	p, _ := f.reg.Party("p1")
	assert.WithinDuration(t, now.Add(grace), *p.TimerExpiresAt, time.Second)
}

func TestOnBidAccepted_NoExtensionWithTimeLeft(t *testing.T) {
	f := newFixture(t, Config{GraceWindow: 30 * time.Second, MaxExtension: 5 * time.Minute})
	f.addParty(t, "p1", 1, domain.PartyActive, time.Minute)

	now := time.Now().UTC()
	far := now.Add(45 * time.Second)
	f.reg.UpdateParty("p1", func(p *domain.AuctionParty) {
		p.StartedAt = &now
		p.TimerExpiresAt = &far
	})

	f.m.OnBidAccepted("p1")

	p, _ := f.reg.Party("p1")
	assert.True(t, p.TimerExpiresAt.Equal(far))
}

func TestOnBidAccepted_ExtensionCapped(t *testing.T) {
	f := newFixture(t, Config{GraceWindow: 30 * time.Second, MaxExtension: time.Minute})
	f.addParty(t, "p1", 1, domain.PartyActive, 10*time.Second)

	// The lot has already consumed its whole extension budget.
	now := time.Now().UTC()
	started := now.Add(-70 * time.Second)
	expiry := now.Add(5 * time.Second)
	f.reg.UpdateParty("p1", func(p *domain.AuctionParty) {
		p.StartedAt = &started
		p.TimerExpiresAt = &expiry
	})

	f.m.OnBidAccepted("p1")

	p, _ := f.reg.Party("p1")
	assert.True(t, p.TimerExpiresAt.Equal(expiry), "no extension past the cap")
}

func TestExpire_NoBidsRoundTrip(t *testing.T) {
	f := newFixture(t, Config{GraceWindow: time.Second, MaxExtension: time.Minute})
	f.addParty(t, "p1", 1, domain.PartyActive, time.Second)

	past := time.Now().UTC().Add(-time.Second)
	f.reg.UpdateParty("p1", func(p *domain.AuctionParty) { p.TimerExpiresAt = &past })

	require.NoError(t, f.m.Expire("p1"))

	p, _ := f.reg.Party("p1")
	assert.Equal(t, domain.PartyCompleted, p.Status)
	assert.Empty(t, p.CurrentWinnerID)
	require.NotNil(t, p.EndedAt)
	assert.Equal(t, []int{1}, f.log.positions())
	assert.Contains(t, f.rec.Types(), domain.EventPartyCompleted)

	// Expiry is idempotent once terminal.
	require.NoError(t, f.m.Expire("p1"))
	assert.Equal(t, []int{1}, f.log.positions())
}

func TestExpire_SettlesWinner(t *testing.T) {
	f := newFixture(t, Config{GraceWindow: time.Second, MaxExtension: time.Minute})
	f.addParty(t, "p1", 1, domain.PartyActive, time.Second)

	_, err := f.ledger.CreateWallet("c1", "USD")
	require.NoError(t, err)
	_, err = f.ledger.Deposit("c1", dec(500), "")
	require.NoError(t, err)
	require.NoError(t, f.rm.Reserve("c1", "p1", dec(120)))

	past := time.Now().UTC().Add(-time.Second)
	amt := dec(120)
	f.reg.UpdateParty("p1", func(p *domain.AuctionParty) {
		p.TimerExpiresAt = &past
		p.CurrentBid = &amt
		p.CurrentWinnerID = "c1"
	})

	require.NoError(t, f.m.Expire("p1"))

	w, _ := f.ledger.Get("c1")
	assert.True(t, w.Balance.Equal(dec(380)))
	assert.True(t, w.BlockedBalance.IsZero())
}

func TestExpire_BeforeDeadlineReschedules(t *testing.T) {
	f := newFixture(t, Config{GraceWindow: time.Second, MaxExtension: time.Minute})
	f.addParty(t, "p1", 1, domain.PartyActive, time.Minute)

	future := time.Now().UTC().Add(time.Hour)
	f.reg.UpdateParty("p1", func(p *domain.AuctionParty) { p.TimerExpiresAt = &future })

	require.NoError(t, f.m.Expire("p1"))

	p, _ := f.reg.Party("p1")
	assert.Equal(t, domain.PartyActive, p.Status, "a premature fire must not close the lot")
	assert.Empty(t, f.log.positions())
}

func TestTimerDrivesExpiry(t *testing.T) {
	f := newFixture(t, Config{GraceWindow: 10 * time.Millisecond, MaxExtension: time.Second})
	f.addParty(t, "p1", 1, domain.PartyPending, 30*time.Millisecond)

	require.NoError(t, f.m.Activate(context.Background(), "p1"))

	assert.Eventually(t, func() bool {
		p, _ := f.reg.Party("p1")
		return p.Status == domain.PartyCompleted
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCancel_ReleasesReservations(t *testing.T) {
	f := newFixture(t, Config{GraceWindow: time.Second, MaxExtension: time.Minute})
	f.addParty(t, "p1", 1, domain.PartyActive, time.Minute)

	_, err := f.ledger.CreateWallet("c1", "USD")
	require.NoError(t, err)
	_, err = f.ledger.Deposit("c1", dec(200), "")
	require.NoError(t, err)
	require.NoError(t, f.rm.Reserve("c1", "p1", dec(100)))

	require.NoError(t, f.m.Cancel(context.Background(), "p1", "seller withdrew"))

	p, _ := f.reg.Party("p1")
	assert.Equal(t, domain.PartyCancelled, p.Status)
	w, _ := f.ledger.Get("c1")
	assert.True(t, w.BlockedBalance.IsZero())
	assert.True(t, w.Balance.Equal(dec(200)))

	// Terminal lots cannot be cancelled again.
	assert.ErrorIs(t, f.m.Cancel(context.Background(), "p1", "again"), domain.ErrInvalidTransition)
}

func TestFail_PublishesFailedEvent(t *testing.T) {
	f := newFixture(t, Config{GraceWindow: time.Second, MaxExtension: time.Minute})
	f.addParty(t, "p1", 1, domain.PartyPending, time.Minute)

	require.NoError(t, f.m.Fail(context.Background(), "p1", "activation preconditions violated"))

	p, _ := f.reg.Party("p1")
	assert.Equal(t, domain.PartyFailed, p.Status)
	assert.Contains(t, f.rec.Types(), domain.EventPartyFailed)
	assert.NotContains(t, f.rec.Types(), domain.EventPartyCancelled)
	assert.Equal(t, []int{1}, f.log.positions())
}
