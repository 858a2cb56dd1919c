package persist

import (
	"sync/atomic"

	"go.uber.org/zap"

	"auctionlotgo/internal/domain"
)

// Journal decouples the bid/wallet hot path from Postgres: services push
// decided rows into buffered channels, the runner drains them in batches.
// Recording never blocks an admission decision; on overflow the row is
// dropped from the Postgres audit trail (it stays visible in the registry)
// and counted, so size the buffer for the peak bid rate.
type Journal struct {
	bids chan domain.Bid
	txns chan domain.WalletTransaction

	dropped atomic.Uint64
}

func NewJournal(buffer int) *Journal {
	return &Journal{
		bids: make(chan domain.Bid, buffer),
		txns: make(chan domain.WalletTransaction, buffer),
	}
}

func (j *Journal) RecordBid(b domain.Bid) {
	select {
	case j.bids <- b:
	default:
		zap.L().Warn("journal.bid_overflow",
			zap.String("bid_id", b.ID),
			zap.Uint64("dropped_total", j.dropped.Add(1)),
		)
	}
}

func (j *Journal) RecordWalletTxn(t domain.WalletTransaction) {
	select {
	case j.txns <- t:
	default:
		zap.L().Warn("journal.txn_overflow",
			zap.String("txn_id", t.ID),
			zap.Uint64("dropped_total", j.dropped.Add(1)),
		)
	}
}

// Dropped reports how many rows overflowed the buffers since start.
func (j *Journal) Dropped() uint64 { return j.dropped.Load() }
