// ./internal/state/price_store.go
package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/elys-network/lp-tracker/internal/types"
)

var ErrNilDB = errors.New("database handle is nil")

// PriceStore persists historical token prices keyed by feed id and dd-mm-yyyy date.
// It backs the price resolver's historical table.
type PriceStore struct {
	db *sql.DB
}

func NewPriceStore(db *sql.DB) (*PriceStore, error) {
	if db == nil {
		return nil, ErrNilDB
	}
	return &PriceStore{db: db}, nil
}

// Lookup returns the stored price for a feed on a date. A missing row is not an error.
func (s *PriceStore) Lookup(ctx context.Context, feedID, date string) (float64, bool, error) {
	var price float64
	err := s.db.QueryRowContext(ctx,
		`SELECT price FROM historical_token_prices WHERE feed_id = $1 AND price_date = $2`,
		feedID, date,
	).Scan(&price)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to query historical price %s on %s: %w", feedID, date, err)
	}
	return price, true, nil
}

// Upsert stores prices in one transaction, replacing existing rows for the same feed and date.
func (s *PriceStore) Upsert(ctx context.Context, prices []types.PriceData) error {
	if len(prices) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO historical_token_prices (feed_id, price_date, price, source)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (feed_id, price_date)
		DO UPDATE SET price = EXCLUDED.price, source = EXCLUDED.source, updated_at = CURRENT_TIMESTAMP`)
	if err != nil {
		return fmt.Errorf("failed to prepare price upsert: %w", err)
	}
	defer stmt.Close()

	for _, p := range prices {
		if p.FeedID == "" || p.Date == "" {
			return fmt.Errorf("price record requires feed id and date: %+v", p)
		}
		if p.Price < 0 {
			return fmt.Errorf("negative price %f for %s on %s", p.Price, p.FeedID, p.Date)
		}
		source := p.Source
		if source == "" {
			source = "static"
		}
		if _, err := stmt.ExecContext(ctx, p.FeedID, p.Date, p.Price, source); err != nil {
			return fmt.Errorf("failed to upsert price %s on %s: %w", p.FeedID, p.Date, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit prices: %w", err)
	}
	return nil
}

// Count returns the number of stored prices.
func (s *PriceStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM historical_token_prices`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count historical prices: %w", err)
	}
	return n, nil
}
