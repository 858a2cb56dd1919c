package wallet

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"auctionlotgo/internal/domain"
)

var (
	ErrNonPositiveAmount = errors.New("amount must be positive")
	ErrExcessUnblock     = errors.New("unblock exceeds blocked balance")
)

// Ledger owns all wallet balances. Every mutation runs under the wallet's
// own mutex and appends exactly one WalletTransaction row before the
// balances change, so `blocked_balance <= balance` and a non-negative
// available balance hold at every observable instant.
type Ledger struct {
	mu         sync.RWMutex
	byCustomer map[string]*walletState

	// sink receives every journal row, for asynchronous persistence.
	sink func(domain.WalletTransaction)
}

type walletState struct {
	mu   sync.Mutex
	w    domain.Wallet
	txns []domain.WalletTransaction
}

func NewLedger(sink func(domain.WalletTransaction)) *Ledger {
	return &Ledger{
		byCustomer: make(map[string]*walletState),
		sink:       sink,
	}
}

func (l *Ledger) CreateWallet(customerID, currency string) (domain.Wallet, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.byCustomer[customerID]; ok {
		return domain.Wallet{}, domain.ErrWalletExists
	}
	now := time.Now().UTC()
	ws := &walletState{w: domain.Wallet{
		ID:             uuid.NewString(),
		CustomerID:     customerID,
		Balance:        decimal.Zero,
		BlockedBalance: decimal.Zero,
		Currency:       currency,
		CreatedAt:      now,
		UpdatedAt:      now,
	}}
	l.byCustomer[customerID] = ws
	return ws.w, nil
}

func (l *Ledger) wallet(customerID string) (*walletState, error) {
	l.mu.RLock()
	ws, ok := l.byCustomer[customerID]
	l.mu.RUnlock()
	if !ok {
		return nil, domain.ErrWalletNotFound
	}
	return ws, nil
}

// Get returns a copy of the wallet.
func (l *Ledger) Get(customerID string) (domain.Wallet, error) {
	ws, err := l.wallet(customerID)
	if err != nil {
		return domain.Wallet{}, err
	}
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.w, nil
}

// Transactions returns a copy of the wallet's journal, oldest first.
func (l *Ledger) Transactions(customerID string) ([]domain.WalletTransaction, error) {
	ws, err := l.wallet(customerID)
	if err != nil {
		return nil, err
	}
	ws.mu.Lock()
	defer ws.mu.Unlock()
	out := make([]domain.WalletTransaction, len(ws.txns))
	copy(out, ws.txns)
	return out, nil
}

// journal must be called with ws.mu held.
func (l *Ledger) journal(ws *walletState, typ domain.TransactionType, amount decimal.Decimal, ref, desc string) {
	txn := domain.WalletTransaction{
		ID:          uuid.NewString(),
		WalletID:    ws.w.ID,
		Type:        typ,
		Amount:      amount,
		Status:      "COMPLETED",
		ReferenceID: ref,
		Description: desc,
		CreatedAt:   time.Now().UTC(),
	}
	ws.txns = append(ws.txns, txn)
	ws.w.UpdatedAt = txn.CreatedAt
	if l.sink != nil {
		l.sink(txn)
	}
}

func (l *Ledger) Deposit(customerID string, amount decimal.Decimal, desc string) (domain.Wallet, error) {
	if !amount.IsPositive() {
		return domain.Wallet{}, ErrNonPositiveAmount
	}
	ws, err := l.wallet(customerID)
	if err != nil {
		return domain.Wallet{}, err
	}
	ws.mu.Lock()
	defer ws.mu.Unlock()

	l.journal(ws, domain.TxDeposit, amount, "", desc)
	ws.w.Balance = ws.w.Balance.Add(amount)
	return ws.w, nil
}

// Withdraw removes spendable funds; blocked funds are not withdrawable.
func (l *Ledger) Withdraw(customerID string, amount decimal.Decimal, desc string) (domain.Wallet, error) {
	if !amount.IsPositive() {
		return domain.Wallet{}, ErrNonPositiveAmount
	}
	ws, err := l.wallet(customerID)
	if err != nil {
		return domain.Wallet{}, err
	}
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if ws.w.Available().LessThan(amount) {
		return domain.Wallet{}, domain.ErrInsufficientFunds
	}
	l.journal(ws, domain.TxWithdraw, amount, "", desc)
	ws.w.Balance = ws.w.Balance.Sub(amount)
	return ws.w, nil
}

// Block reserves spendable funds against a bid. Fails without touching the
// wallet when the available balance does not cover the amount.
func (l *Ledger) Block(customerID string, amount decimal.Decimal, ref string) error {
	if !amount.IsPositive() {
		return ErrNonPositiveAmount
	}
	ws, err := l.wallet(customerID)
	if err != nil {
		return err
	}
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if ws.w.Available().LessThan(amount) {
		return domain.ErrInsufficientFunds
	}
	l.journal(ws, domain.TxBlock, amount, ref, "bid reservation")
	ws.w.BlockedBalance = ws.w.BlockedBalance.Add(amount)
	return nil
}

// Unblock releases previously blocked funds back to the spendable balance.
func (l *Ledger) Unblock(customerID string, amount decimal.Decimal, ref string) error {
	if !amount.IsPositive() {
		return ErrNonPositiveAmount
	}
	ws, err := l.wallet(customerID)
	if err != nil {
		return err
	}
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if ws.w.BlockedBalance.LessThan(amount) {
		return ErrExcessUnblock
	}
	l.journal(ws, domain.TxUnblock, amount, ref, "reservation released")
	ws.w.BlockedBalance = ws.w.BlockedBalance.Sub(amount)
	return nil
}

// Settle converts a block into a permanent debit when the customer won the
// lot: both balance and blocked balance drop by the amount.
func (l *Ledger) Settle(customerID string, amount decimal.Decimal, ref string) error {
	if !amount.IsPositive() {
		return ErrNonPositiveAmount
	}
	ws, err := l.wallet(customerID)
	if err != nil {
		return err
	}
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if ws.w.BlockedBalance.LessThan(amount) {
		return ErrExcessUnblock
	}
	l.journal(ws, domain.TxDebit, amount, ref, "winning bid settled")
	ws.w.BlockedBalance = ws.w.BlockedBalance.Sub(amount)
	ws.w.Balance = ws.w.Balance.Sub(amount)
	return nil
}

// Credit adds funds outside the deposit flow, e.g. seller proceeds.
func (l *Ledger) Credit(customerID string, amount decimal.Decimal, ref, desc string) error {
	if !amount.IsPositive() {
		return ErrNonPositiveAmount
	}
	ws, err := l.wallet(customerID)
	if err != nil {
		return err
	}
	ws.mu.Lock()
	defer ws.mu.Unlock()

	l.journal(ws, domain.TxCredit, amount, ref, desc)
	ws.w.Balance = ws.w.Balance.Add(amount)
	return nil
}
