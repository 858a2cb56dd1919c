package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Wallet struct {
	ID             string          `json:"id"`
	CustomerID     string          `json:"customer_id"`
	Balance        decimal.Decimal `json:"balance"`
	BlockedBalance decimal.Decimal `json:"blocked_balance"`
	Currency       string          `json:"currency"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Available is the spendable part of the balance. It never goes negative
// through ledger operations.
func (w *Wallet) Available() decimal.Decimal {
	return w.Balance.Sub(w.BlockedBalance)
}

type TransactionType string

const (
	TxDeposit  TransactionType = "DEPOSIT"
	TxWithdraw TransactionType = "WITHDRAW"
	TxBlock    TransactionType = "BLOCK"
	TxUnblock  TransactionType = "UNBLOCK"
	TxDebit    TransactionType = "DEBIT"
	TxCredit   TransactionType = "CREDIT"
)

// WalletTransaction is the append-only journal row written for every
// balance mutation.
type WalletTransaction struct {
	ID          string          `json:"id"`
	WalletID    string          `json:"wallet_id"`
	Type        TransactionType `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Status      string          `json:"status"`
	ReferenceID string          `json:"reference_id,omitempty"`
	Description string          `json:"description,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}
