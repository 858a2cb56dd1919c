package reservation

import (
	"sync"

	"github.com/shopspring/decimal"

	"auctionlotgo/internal/domain"
	"auctionlotgo/internal/wallet"
)

// Manager translates bid lifecycle events into ledger operations. It keeps
// at most one outstanding block per (customer, party): raising a
// reservation blocks only the delta over the existing one, never the whole
// amount twice.
//
// Wallet mutations for one customer are serialized here with a per-customer
// lock, so a customer bidding on two lots at once cannot race the
// available-balance check.
type Manager struct {
	ledger *wallet.Ledger

	custLocks sync.Map // customerID -> *sync.Mutex

	mu      sync.Mutex
	held    map[resKey]decimal.Decimal
	byParty map[string]map[string]struct{} // partyID -> customer set
}

type resKey struct {
	customerID string
	partyID    string
}

func NewManager(ledger *wallet.Ledger) *Manager {
	return &Manager{
		ledger:  ledger,
		held:    make(map[resKey]decimal.Decimal),
		byParty: make(map[string]map[string]struct{}),
	}
}

func (m *Manager) customerLock(customerID string) *sync.Mutex {
	v, _ := m.custLocks.LoadOrStore(customerID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

func (m *Manager) holding(k resKey) (decimal.Decimal, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	amt, ok := m.held[k]
	return amt, ok
}

func (m *Manager) setHolding(k resKey, amount decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.held[k] = amount
	set, ok := m.byParty[k.partyID]
	if !ok {
		set = make(map[string]struct{})
		m.byParty[k.partyID] = set
	}
	set[k.customerID] = struct{}{}
}

func (m *Manager) dropHolding(k resKey) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.held, k)
	if set, ok := m.byParty[k.partyID]; ok {
		delete(set, k.customerID)
		if len(set) == 0 {
			delete(m.byParty, k.partyID)
		}
	}
}

// Held reports the outstanding block for a customer on a lot.
func (m *Manager) Held(customerID, partyID string) (decimal.Decimal, bool) {
	return m.holding(resKey{customerID, partyID})
}

// Reserve moves the customer's reservation on the lot to amount. On
// insufficient funds the wallet is left untouched and the existing
// reservation, if any, stays in place.
func (m *Manager) Reserve(customerID, partyID string, amount decimal.Decimal) error {
	lock := m.customerLock(customerID)
	lock.Lock()
	defer lock.Unlock()

	k := resKey{customerID, partyID}
	existing, _ := m.holding(k)
	delta := amount.Sub(existing)

	switch {
	case delta.IsPositive():
		if err := m.ledger.Block(customerID, delta, partyID); err != nil {
			return err
		}
	case delta.IsNegative():
		if err := m.ledger.Unblock(customerID, delta.Neg(), partyID); err != nil {
			return err
		}
	}
	m.setHolding(k, amount)
	return nil
}

// Release unblocks whatever the customer holds on the lot. Releasing a
// reservation that does not exist is a no-op.
func (m *Manager) Release(customerID, partyID string) error {
	lock := m.customerLock(customerID)
	lock.Lock()
	defer lock.Unlock()

	k := resKey{customerID, partyID}
	amount, ok := m.holding(k)
	if !ok || amount.IsZero() {
		return nil
	}
	if err := m.ledger.Unblock(customerID, amount, partyID); err != nil {
		return err
	}
	m.dropHolding(k)
	return nil
}

// Settle converts the winner's block into a permanent debit when the lot
// completes.
func (m *Manager) Settle(customerID, partyID string, amount decimal.Decimal) error {
	lock := m.customerLock(customerID)
	lock.Lock()
	defer lock.Unlock()

	k := resKey{customerID, partyID}
	held, ok := m.holding(k)
	if !ok || held.LessThan(amount) {
		return domain.ErrInvalidTransition
	}
	if err := m.ledger.Settle(customerID, amount, partyID); err != nil {
		return err
	}
	if rest := held.Sub(amount); rest.IsPositive() {
		// Held more than the settled amount; give the remainder back.
		if err := m.ledger.Unblock(customerID, rest, partyID); err != nil {
			return err
		}
	}
	m.dropHolding(k)
	return nil
}

// ReleaseAll releases every outstanding reservation on a lot, used when a
// lot is cancelled or fails. Each release is independent and best-effort.
func (m *Manager) ReleaseAll(partyID string) error {
	m.mu.Lock()
	customers := make([]string, 0, len(m.byParty[partyID]))
	for c := range m.byParty[partyID] {
		customers = append(customers, c)
	}
	m.mu.Unlock()

	var firstErr error
	for _, c := range customers {
		if err := m.Release(c, partyID); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
