package persist

import (
	"context"
	"database/sql"

	"auctionlotgo/internal/domain"
)

// Store mirrors committed in-memory state into Postgres for the external
// read endpoints. Rows are only ever written from already-decided state,
// so readers never observe a partial transition.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// InsertBids writes a batch of decided bid rows. The audit trail is
// append-only except for the single ACCEPTED→OUTBID demotion, hence the
// upsert on status.
func (s *Store) InsertBids(ctx context.Context, bids []domain.Bid) error {
	if len(bids) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const ins = `
	  INSERT INTO bids (id, party_id, customer_id, amount, status,
	                    rejection_reason, processed_at, correlation_id, placed_at)
	       VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	  ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status`
	for _, b := range bids {
		if _, err := tx.ExecContext(ctx, ins,
			b.ID, b.PartyID, b.CustomerID, b.Amount, string(b.Status),
			b.RejectionReason, b.ProcessedAt, b.CorrelationID, b.PlacedAt,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) InsertWalletTransactions(ctx context.Context, txns []domain.WalletTransaction) error {
	if len(txns) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const ins = `
	  INSERT INTO wallet_transactions (id, wallet_id, type, amount, status,
	                                   reference_id, description, created_at)
	       VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	  ON CONFLICT (id) DO NOTHING`
	for _, t := range txns {
		if _, err := tx.ExecContext(ctx, ins,
			t.ID, t.WalletID, string(t.Type), t.Amount, t.Status,
			t.ReferenceID, t.Description, t.CreatedAt,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) UpsertAuctions(ctx context.Context, auctions []domain.Auction) error {
	if len(auctions) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const upsert = `
	  INSERT INTO auctions (id, title, start_date, end_date, status,
	                        is_enabled, registration_cutoff_hours, created_at)
	       VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	  ON CONFLICT (id) DO UPDATE
	        SET status     = EXCLUDED.status,
	            is_enabled = EXCLUDED.is_enabled`
	for _, a := range auctions {
		if _, err := tx.ExecContext(ctx, upsert,
			a.ID, a.Title, a.StartDate, a.EndDate, string(a.Status),
			a.IsEnabled, a.RegistrationCutoffHours, a.CreatedAt,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) UpsertParties(ctx context.Context, parties []domain.AuctionParty) error {
	if len(parties) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const upsert = `
	  INSERT INTO auction_parties (id, auction_id, product_id, seller_id,
	                               starting_price, bid_increment, current_bid,
	                               current_winner_id, status, position,
	                               timer_duration_seconds, timer_expires_at,
	                               started_at, ended_at)
	       VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	  ON CONFLICT (id) DO UPDATE
	        SET current_bid       = EXCLUDED.current_bid,
	            current_winner_id = EXCLUDED.current_winner_id,
	            status            = EXCLUDED.status,
	            timer_expires_at  = EXCLUDED.timer_expires_at,
	            started_at        = EXCLUDED.started_at,
	            ended_at          = EXCLUDED.ended_at`
	for _, p := range parties {
		if _, err := tx.ExecContext(ctx, upsert,
			p.ID, p.AuctionID, p.ProductID, p.SellerID,
			p.StartingPrice, p.BidIncrement, p.CurrentBid,
			p.CurrentWinnerID, string(p.Status), p.Position,
			int(p.TimerDuration.Seconds()), p.TimerExpiresAt,
			p.StartedAt, p.EndedAt,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}
