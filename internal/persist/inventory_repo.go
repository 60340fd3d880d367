package persist

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/lootgo/server/internal/loot"
)

// InventoryRow is one occupied slot.
type InventoryRow struct {
	Slot  int
	Type  string
	Meta  string
	Count int
}

// RowsFromSlots lists the occupied slots in slot order.
func RowsFromSlots(slots []loot.ItemStack) []InventoryRow {
	var rows []InventoryRow
	for i, s := range slots {
		if s.Empty() {
			continue
		}
		rows = append(rows, InventoryRow{Slot: i, Type: s.Type, Meta: s.Meta, Count: s.Count})
	}
	return rows
}

type InventoryRepo struct {
	db *DB
}

func NewInventoryRepo(db *DB) *InventoryRepo {
	return &InventoryRepo{db: db}
}

func (r *InventoryRepo) Load(ctx context.Context, accountID int64) ([]InventoryRow, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT slot, item_type, meta, count FROM inventories
		 WHERE account_id = $1 ORDER BY slot`, accountID,
	)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (InventoryRow, error) {
		var it InventoryRow
		var slot int16
		var count int32
		err := row.Scan(&slot, &it.Type, &it.Meta, &count)
		it.Slot, it.Count = int(slot), int(count)
		return it, err
	})
}

// Save replaces every slot of an account (delete + bulk copy) in one
// transaction.
func (r *InventoryRepo) Save(ctx context.Context, accountID int64, slots []loot.ItemStack) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("inventory begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM inventories WHERE account_id = $1`, accountID); err != nil {
		return fmt.Errorf("inventory clear: %w", err)
	}
	rows := RowsFromSlots(slots)
	if len(rows) > 0 {
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"inventories"},
			[]string{"account_id", "slot", "item_type", "meta", "count"},
			pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
				it := rows[i]
				return []any{accountID, int16(it.Slot), it.Type, it.Meta, int32(it.Count)}, nil
			}),
		)
		if err != nil {
			return fmt.Errorf("inventory copy: %w", err)
		}
	}
	return tx.Commit(ctx)
}
