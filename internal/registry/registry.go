package registry

import (
	"sort"
	"sync"

	"auctionlotgo/internal/domain"
)

// Registry is the in-process source of truth for auctions, parties and
// bids. Map structure is guarded by mu; party field mutation happens under
// the per-party lock handed out by PartyLock, so bid admission and timer
// expiry for one lot are mutually exclusive while distinct lots proceed in
// parallel.
type Registry struct {
	mu               sync.RWMutex
	auctions         map[string]*domain.Auction
	parties          map[string]*domain.AuctionParty
	partiesByAuction map[string][]string
	bids             map[string]*domain.Bid
	bidsByParty      map[string][]string
	acceptedByParty  map[string]string
	correlation      map[string]string

	partyLocks sync.Map // partyID -> *sync.Mutex
}

func New() *Registry {
	return &Registry{
		auctions:         make(map[string]*domain.Auction),
		parties:          make(map[string]*domain.AuctionParty),
		partiesByAuction: make(map[string][]string),
		bids:             make(map[string]*domain.Bid),
		bidsByParty:      make(map[string][]string),
		acceptedByParty:  make(map[string]string),
		correlation:      make(map[string]string),
	}
}

// PartyLock returns the critical-section mutex for one lot.
func (r *Registry) PartyLock(partyID string) *sync.Mutex {
	v, _ := r.partyLocks.LoadOrStore(partyID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// ───────────────────────────── auctions ─────────────────────────────

func (r *Registry) PutAuction(a *domain.Auction) {
	r.mu.Lock()
	r.auctions[a.ID] = a
	r.mu.Unlock()
}

// Auction returns a copy taken under the registry lock, safe to read
// without further synchronization.
func (r *Registry) Auction(id string) (domain.Auction, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.auctions[id]
	if !ok {
		return domain.Auction{}, false
	}
	return *a, true
}

func (r *Registry) ListAuctions(status domain.AuctionStatus, limit, offset int) []domain.Auction {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.auctions))
	for id, a := range r.auctions {
		if status != "" && a.Status != status {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if offset >= len(ids) {
		return nil
	}
	ids = ids[offset:]
	if limit > 0 && limit < len(ids) {
		ids = ids[:limit]
	}
	out := make([]domain.Auction, 0, len(ids))
	for _, id := range ids {
		out = append(out, *r.auctions[id])
	}
	return out
}

// ───────────────────────────── parties ──────────────────────────────

// AddParty registers a lot; the position must be unique within its auction.
func (r *Registry) AddParty(p *domain.AuctionParty) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range r.partiesByAuction[p.AuctionID] {
		if r.parties[id].Position == p.Position {
			return domain.ErrPositionTaken
		}
	}
	r.parties[p.ID] = p
	r.partiesByAuction[p.AuctionID] = append(r.partiesByAuction[p.AuctionID], p.ID)
	return nil
}

// Party returns a copy taken under the registry lock. Callers inside a
// party's critical section re-fetch after acquiring it to observe the
// latest committed fields.
func (r *Registry) Party(id string) (domain.AuctionParty, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.parties[id]
	if !ok {
		return domain.AuctionParty{}, false
	}
	return *p, true
}

// PartiesForAuction returns copies ordered by position.
func (r *Registry) PartiesForAuction(auctionID string) []domain.AuctionParty {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.AuctionParty, 0, len(r.partiesByAuction[auctionID]))
	for _, id := range r.partiesByAuction[auctionID] {
		out = append(out, *r.parties[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

// NextPendingParty finds the pending lot with the smallest position greater
// than afterPosition, or nil when none remains.
func (r *Registry) NextPendingParty(auctionID string, afterPosition int) *domain.AuctionParty {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var next *domain.AuctionParty
	for _, id := range r.partiesByAuction[auctionID] {
		p := r.parties[id]
		if p.Status != domain.PartyPending || p.Position <= afterPosition {
			continue
		}
		if next == nil || p.Position < next.Position {
			next = p
		}
	}
	if next == nil {
		return nil
	}
	cp := *next
	return &cp
}

// IsLowestPending reports whether no other pending lot of the same auction
// has a smaller position. Activation order depends on it.
func (r *Registry) IsLowestPending(p domain.AuctionParty) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range r.partiesByAuction[p.AuctionID] {
		other := r.parties[id]
		if other.ID != p.ID && other.Status == domain.PartyPending && other.Position < p.Position {
			return false
		}
	}
	return true
}

// HasActiveParty reports whether some lot of the auction is currently live.
func (r *Registry) HasActiveParty(auctionID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range r.partiesByAuction[auctionID] {
		if r.parties[id].Status == domain.PartyActive {
			return true
		}
	}
	return false
}

// ─────────────────────────────── bids ───────────────────────────────

func (r *Registry) AddBid(b *domain.Bid) {
	r.mu.Lock()
	r.bids[b.ID] = b
	r.bidsByParty[b.PartyID] = append(r.bidsByParty[b.PartyID], b.ID)
	r.mu.Unlock()
}

func (r *Registry) Bid(id string) (domain.Bid, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bids[id]
	if !ok {
		return domain.Bid{}, false
	}
	return *b, true
}

// BidsForParty returns copies in submission order (audit ordering).
func (r *Registry) BidsForParty(partyID string) []domain.Bid {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Bid, 0, len(r.bidsByParty[partyID]))
	for _, id := range r.bidsByParty[partyID] {
		out = append(out, *r.bids[id])
	}
	return out
}

// AcceptedBid returns a copy of the single currently-accepted bid of a
// lot, if any.
func (r *Registry) AcceptedBid(partyID string) (domain.Bid, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.acceptedByParty[partyID]
	if !ok {
		return domain.Bid{}, false
	}
	return *r.bids[id], true
}

func (r *Registry) SetAcceptedBid(partyID, bidID string) {
	r.mu.Lock()
	r.acceptedByParty[partyID] = bidID
	r.mu.Unlock()
}

// ───────────────────────── idempotency index ────────────────────────

func corrKey(partyID, customerID, correlationID string) string {
	return partyID + "|" + customerID + "|" + correlationID
}

// SeenCorrelation returns the bid that a previous submission with the same
// correlation id produced, so retries replay the original decision.
func (r *Registry) SeenCorrelation(partyID, customerID, correlationID string) (domain.Bid, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.correlation[corrKey(partyID, customerID, correlationID)]
	if !ok {
		return domain.Bid{}, false
	}
	return *r.bids[id], true
}

func (r *Registry) RememberCorrelation(partyID, customerID, correlationID, bidID string) {
	r.mu.Lock()
	r.correlation[corrKey(partyID, customerID, correlationID)] = bidID
	r.mu.Unlock()
}

// ───────────────────────────── mutation ─────────────────────────────

// UpdateParty applies fn to the live party under the registry write lock.
// Callers serialize logically through PartyLock; the write lock here only
// makes the mutation safe against concurrent snapshot readers.
func (r *Registry) UpdateParty(id string, fn func(*domain.AuctionParty)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.parties[id]
	if ok {
		fn(p)
	}
	return ok
}

func (r *Registry) UpdateAuction(id string, fn func(*domain.Auction)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.auctions[id]
	if ok {
		fn(a)
	}
	return ok
}

func (r *Registry) UpdateBid(id string, fn func(*domain.Bid)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bids[id]
	if ok {
		fn(b)
	}
	return ok
}

// ───────────────────────────── snapshots ────────────────────────────

// Snapshots for the background Postgres mirror.

func (r *Registry) AuctionSnapshots() []domain.Auction {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Auction, 0, len(r.auctions))
	for _, a := range r.auctions {
		out = append(out, *a)
	}
	return out
}

func (r *Registry) PartySnapshots() []domain.AuctionParty {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.AuctionParty, 0, len(r.parties))
	for _, p := range r.parties {
		out = append(out, *p)
	}
	return out
}
