package persist

import (
	"context"
	"fmt"
)

// LedgerEntry records one accepted transfer from the ground into an inventory.
type LedgerEntry struct {
	AccountID int64
	LootID    uint32
	ItemType  string
	Meta      string
	Amount    int
	IsAuto    bool
}

type LedgerRepo struct {
	db *DB
}

func NewLedgerRepo(db *DB) *LedgerRepo {
	return &LedgerRepo{db: db}
}

// Write inserts a batch of entries in a single transaction.
func (r *LedgerRepo) Write(ctx context.Context, entries []LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ledger begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, e := range entries {
		if _, err := tx.Exec(ctx,
			`INSERT INTO pickup_ledger (account_id, loot_id, item_type, meta, amount, is_auto)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			e.AccountID, int64(e.LootID), e.ItemType, e.Meta, e.Amount, e.IsAuto,
		); err != nil {
			return fmt.Errorf("ledger insert: %w", err)
		}
	}
	return tx.Commit(ctx)
}
