package wallet

import (
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auctionlotgo/internal/domain"
)

func dec(i int64) decimal.Decimal { return decimal.NewFromInt(i) }

func TestLedger_CreateWallet(t *testing.T) {
	l := NewLedger(nil)

	w, err := l.CreateWallet("c1", "USD")
	require.NoError(t, err)
	assert.Equal(t, "c1", w.CustomerID)
	assert.True(t, w.Balance.IsZero())
	assert.True(t, w.BlockedBalance.IsZero())

	_, err = l.CreateWallet("c1", "USD")
	assert.ErrorIs(t, err, domain.ErrWalletExists)
}

func TestLedger_DepositWithdraw(t *testing.T) {
	l := NewLedger(nil)
	_, err := l.CreateWallet("c1", "USD")
	require.NoError(t, err)

	w, err := l.Deposit("c1", dec(500), "top-up")
	require.NoError(t, err)
	assert.True(t, w.Balance.Equal(dec(500)))

	w, err = l.Withdraw("c1", dec(200), "payout")
	require.NoError(t, err)
	assert.True(t, w.Balance.Equal(dec(300)))

	_, err = l.Withdraw("c1", dec(301), "too much")
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	_, err = l.Deposit("c1", dec(0), "zero")
	assert.ErrorIs(t, err, ErrNonPositiveAmount)

	_, err = l.Deposit("nobody", dec(10), "ghost")
	assert.ErrorIs(t, err, domain.ErrWalletNotFound)
}

func TestLedger_BlockRespectsAvailable(t *testing.T) {
	l := NewLedger(nil)
	_, _ = l.CreateWallet("c1", "USD")
	_, _ = l.Deposit("c1", dec(100), "")

	require.NoError(t, l.Block("c1", dec(80), "p1"))

	// 20 available; blocking 30 must fail and leave the wallet untouched.
	err := l.Block("c1", dec(30), "p2")
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	w, _ := l.Get("c1")
	assert.True(t, w.Balance.Equal(dec(100)))
	assert.True(t, w.BlockedBalance.Equal(dec(80)))
	assert.True(t, w.Available().Equal(dec(20)))
}

func TestLedger_BlockedFundsNotWithdrawable(t *testing.T) {
	l := NewLedger(nil)
	_, _ = l.CreateWallet("c1", "USD")
	_, _ = l.Deposit("c1", dec(100), "")
	require.NoError(t, l.Block("c1", dec(90), "p1"))

	_, err := l.Withdraw("c1", dec(20), "")
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
}

func TestLedger_UnblockAndSettle(t *testing.T) {
	l := NewLedger(nil)
	_, _ = l.CreateWallet("c1", "USD")
	_, _ = l.Deposit("c1", dec(100), "")
	require.NoError(t, l.Block("c1", dec(60), "p1"))

	assert.ErrorIs(t, l.Unblock("c1", dec(61), "p1"), ErrExcessUnblock)
	require.NoError(t, l.Unblock("c1", dec(10), "p1"))

	// Settle the remaining 50: block and balance both drop.
	require.NoError(t, l.Settle("c1", dec(50), "p1"))
	w, _ := l.Get("c1")
	assert.True(t, w.Balance.Equal(dec(50)))
	assert.True(t, w.BlockedBalance.IsZero())
}

func TestLedger_JournalRowPerMutation(t *testing.T) {
	var mu sync.Mutex
	var sunk []domain.WalletTransaction
	l := NewLedger(func(txn domain.WalletTransaction) {
		mu.Lock()
		sunk = append(sunk, txn)
		mu.Unlock()
	})
	_, _ = l.CreateWallet("c1", "USD")
	_, _ = l.Deposit("c1", dec(100), "")
	_ = l.Block("c1", dec(40), "p1")
	_ = l.Unblock("c1", dec(40), "p1")
	_ = l.Credit("c1", dec(5), "ref", "seller proceeds")

	txns, err := l.Transactions("c1")
	require.NoError(t, err)
	require.Len(t, txns, 4)
	assert.Equal(t, domain.TxDeposit, txns[0].Type)
	assert.Equal(t, domain.TxBlock, txns[1].Type)
	assert.Equal(t, domain.TxUnblock, txns[2].Type)
	assert.Equal(t, domain.TxCredit, txns[3].Type)
	assert.Len(t, sunk, 4)

	// Failed mutations never journal.
	_ = l.Block("c1", dec(1000), "p2")
	txns, _ = l.Transactions("c1")
	assert.Len(t, txns, 4)
}

func TestLedger_ConcurrentBlocksNeverOverdraw(t *testing.T) {
	l := NewLedger(nil)
	_, _ = l.CreateWallet("c1", "USD")
	_, _ = l.Deposit("c1", dec(100), "")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = l.Block("c1", dec(10), "p")
		}()
	}
	wg.Wait()

	w, _ := l.Get("c1")
	// At most 10 of the 50 blocks can have landed.
	assert.True(t, w.BlockedBalance.LessThanOrEqual(dec(100)))
	assert.False(t, w.Available().IsNegative())
}
