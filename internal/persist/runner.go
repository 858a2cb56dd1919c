package persist

import (
	"context"
	"time"

	"go.uber.org/zap"

	"auctionlotgo/internal/domain"
	"auctionlotgo/internal/registry"
)

const (
	batchSize     = 100
	flushInterval = 2 * time.Second
)

// Run starts the background persisters: a journal drain for bid and wallet
// rows, and a periodic snapshot mirror for auctions/parties.
func Run(ctx context.Context, store *Store, reg *registry.Registry, j *Journal, mirrorEvery time.Duration) {
	go drainBids(ctx, store, j)
	go drainWalletTxns(ctx, store, j)
	go mirror(ctx, store, reg, mirrorEvery)
}

func drainBids(ctx context.Context, store *Store, j *Journal) {
	batch := make([]domain.Bid, 0, batchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		// Detached context so the final flush survives shutdown.
		ctx, cancel := context.WithTimeout(context.Background(), flushInterval)
		defer cancel()
		if err := store.InsertBids(ctx, batch); err != nil {
			zap.L().Error("persist.bids", zap.Int("count", len(batch)), zap.Error(err))
		}
		batch = batch[:0]
	}
	tk := time.NewTicker(flushInterval)
	defer tk.Stop()
	for {
		select {
		case <-ctx.Done():
			flush()
			return
		case b := <-j.bids:
			batch = append(batch, b)
			if len(batch) == batchSize {
				flush()
			}
		case <-tk.C:
			flush()
		}
	}
}

func drainWalletTxns(ctx context.Context, store *Store, j *Journal) {
	batch := make([]domain.WalletTransaction, 0, batchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), flushInterval)
		defer cancel()
		if err := store.InsertWalletTransactions(ctx, batch); err != nil {
			zap.L().Error("persist.wallet_txns", zap.Int("count", len(batch)), zap.Error(err))
		}
		batch = batch[:0]
	}
	tk := time.NewTicker(flushInterval)
	defer tk.Stop()
	for {
		select {
		case <-ctx.Done():
			flush()
			return
		case t := <-j.txns:
			batch = append(batch, t)
			if len(batch) == batchSize {
				flush()
			}
		case <-tk.C:
			flush()
		}
	}
}

// mirror upserts auction and party snapshots so external readers that only
// see Postgres stay close to live state.
func mirror(ctx context.Context, store *Store, reg *registry.Registry, every time.Duration) {
	tk := time.NewTicker(every)
	defer tk.Stop()
	for {
		select {
		case <-ctx.Done():
			final, cancel := context.WithTimeout(context.Background(), flushInterval)
			mirrorOnce(final, store, reg)
			cancel()
			return
		case <-tk.C:
			mirrorOnce(ctx, store, reg)
		}
	}
}

func mirrorOnce(ctx context.Context, store *Store, reg *registry.Registry) {
	if err := store.UpsertAuctions(ctx, reg.AuctionSnapshots()); err != nil {
		zap.L().Error("persist.auctions", zap.Error(err))
	}
	if err := store.UpsertParties(ctx, reg.PartySnapshots()); err != nil {
		zap.L().Error("persist.parties", zap.Error(err))
	}
}
