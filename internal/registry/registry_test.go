package registry

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auctionlotgo/internal/domain"
)

func seedAuction(r *Registry, id string) {
	r.PutAuction(&domain.Auction{ID: id, Status: domain.AuctionDraft})
}

func seedParty(t *testing.T, r *Registry, auctionID, id string, position int, status domain.PartyStatus) {
	t.Helper()
	require.NoError(t, r.AddParty(&domain.AuctionParty{
		ID: id, AuctionID: auctionID, Position: position, Status: status,
	}))
}

func TestAddParty_PositionUniquePerAuction(t *testing.T) {
	r := New()
	seedAuction(r, "a1")
	seedAuction(r, "a2")
	seedParty(t, r, "a1", "p1", 1, domain.PartyPending)

	err := r.AddParty(&domain.AuctionParty{ID: "p2", AuctionID: "a1", Position: 1})
	assert.ErrorIs(t, err, domain.ErrPositionTaken)

	// Same position in a different auction is fine.
	seedParty(t, r, "a2", "p3", 1, domain.PartyPending)
}

func TestPartiesForAuction_OrderedByPosition(t *testing.T) {
	r := New()
	seedAuction(r, "a1")
	seedParty(t, r, "a1", "p3", 3, domain.PartyPending)
	seedParty(t, r, "a1", "p1", 1, domain.PartyPending)
	seedParty(t, r, "a1", "p2", 2, domain.PartyPending)

	parties := r.PartiesForAuction("a1")
	require.Len(t, parties, 3)
	for i, p := range parties {
		assert.Equal(t, i+1, p.Position)
	}
}

func TestNextPendingParty(t *testing.T) {
	r := New()
	seedAuction(r, "a1")
	seedParty(t, r, "a1", "p1", 1, domain.PartyCompleted)
	seedParty(t, r, "a1", "p2", 2, domain.PartyCancelled)
	seedParty(t, r, "a1", "p3", 3, domain.PartyPending)
	seedParty(t, r, "a1", "p4", 4, domain.PartyPending)

	next := r.NextPendingParty("a1", 0)
	require.NotNil(t, next)
	assert.Equal(t, "p3", next.ID)

	next = r.NextPendingParty("a1", 3)
	require.NotNil(t, next)
	assert.Equal(t, "p4", next.ID)

	assert.Nil(t, r.NextPendingParty("a1", 4))
}

func TestIsLowestPendingAndHasActive(t *testing.T) {
	r := New()
	seedAuction(r, "a1")
	seedParty(t, r, "a1", "p1", 1, domain.PartyPending)
	seedParty(t, r, "a1", "p2", 2, domain.PartyPending)

	p1, _ := r.Party("p1")
	p2, _ := r.Party("p2")
	assert.True(t, r.IsLowestPending(p1))
	assert.False(t, r.IsLowestPending(p2))
	assert.False(t, r.HasActiveParty("a1"))

	r.UpdateParty("p1", func(p *domain.AuctionParty) { p.Status = domain.PartyActive })
	assert.True(t, r.HasActiveParty("a1"))
	assert.True(t, r.IsLowestPending(p2))
}

func TestListAuctions_FilterAndPaging(t *testing.T) {
	r := New()
	for i := 0; i < 5; i++ {
		r.PutAuction(&domain.Auction{ID: fmt.Sprintf("a%d", i), Status: domain.AuctionDraft})
	}
	r.UpdateAuction("a4", func(a *domain.Auction) { a.Status = domain.AuctionEnded })

	drafts := r.ListAuctions(domain.AuctionDraft, 10, 0)
	assert.Len(t, drafts, 4)

	page := r.ListAuctions("", 2, 1)
	require.Len(t, page, 2)
	assert.Equal(t, "a1", page[0].ID)
	assert.Equal(t, "a2", page[1].ID)

	assert.Empty(t, r.ListAuctions("", 10, 99))
}

func TestCorrelationIndex(t *testing.T) {
	r := New()
	r.AddBid(&domain.Bid{ID: "b1", PartyID: "p1", CustomerID: "c1"})
	r.RememberCorrelation("p1", "c1", "corr1", "b1")

	got, ok := r.SeenCorrelation("p1", "c1", "corr1")
	require.True(t, ok)
	assert.Equal(t, "b1", got.ID)

	// The index is scoped per party and customer.
	_, ok = r.SeenCorrelation("p1", "c2", "corr1")
	assert.False(t, ok)
	_, ok = r.SeenCorrelation("p2", "c1", "corr1")
	assert.False(t, ok)
}

func TestAcceptedBidTracking(t *testing.T) {
	r := New()
	r.AddBid(&domain.Bid{ID: "b1", PartyID: "p1", Status: domain.BidAccepted})

	_, ok := r.AcceptedBid("p1")
	assert.False(t, ok)

	r.SetAcceptedBid("p1", "b1")
	got, ok := r.AcceptedBid("p1")
	require.True(t, ok)
	assert.Equal(t, "b1", got.ID)
}

func TestAccessorsReturnCopies(t *testing.T) {
	r := New()
	seedAuction(r, "a1")
	seedParty(t, r, "a1", "p1", 1, domain.PartyPending)

	p, _ := r.Party("p1")
	p.Status = domain.PartyActive
	fresh, _ := r.Party("p1")
	assert.Equal(t, domain.PartyPending, fresh.Status)

	a, _ := r.Auction("a1")
	a.Status = domain.AuctionEnded
	freshA, _ := r.Auction("a1")
	assert.Equal(t, domain.AuctionDraft, freshA.Status)
}

func TestPartyLock_SameMutexPerParty(t *testing.T) {
	r := New()
	assert.Same(t, r.PartyLock("p1"), r.PartyLock("p1"))
	assert.NotSame(t, r.PartyLock("p1"), r.PartyLock("p2"))
}

func TestSnapshotsSafeUnderConcurrentMutation(t *testing.T) {
	r := New()
	seedAuction(r, "a1")
	seedParty(t, r, "a1", "p1", 1, domain.PartyPending)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				r.UpdateParty("p1", func(p *domain.AuctionParty) { p.Position = 1 })
				_ = r.PartySnapshots()
				_ = r.AuctionSnapshots()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, r.PartySnapshots(), 1)
}
