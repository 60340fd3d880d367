package system

import (
	"context"
	"time"

	"go.uber.org/zap"

	coresys "github.com/lootgo/server/internal/core/system"
	"github.com/lootgo/server/internal/loot"
	"github.com/lootgo/server/internal/persist"
	"github.com/lootgo/server/internal/world"
)

// InventoryStore persists a player's slots.
type InventoryStore interface {
	Save(ctx context.Context, accountID int64, slots []loot.ItemStack) error
}

// PositionStore persists a player's last position.
type PositionStore interface {
	SavePosition(ctx context.Context, accountID int64, pos loot.Vec3) error
}

// LedgerStore appends pickup ledger rows.
type LedgerStore interface {
	Write(ctx context.Context, entries []persist.LedgerEntry) error
}

// maxPendingLedger bounds the rows kept for retry while the database is down.
const maxPendingLedger = 50_000

// PersistenceSystem flushes the pickup ledger every tick and periodically
// saves dirty players. Phase 5 (Persist).
type PersistenceSystem struct {
	world     *world.State
	inv       InventoryStore
	pos       PositionStore
	ledger    LedgerStore
	log       *zap.Logger
	tickCount int
	interval  int // auto-save every N ticks

	pending []persist.LedgerEntry
}

func NewPersistenceSystem(ws *world.State, inv InventoryStore, pos PositionStore, ledger LedgerStore, log *zap.Logger, intervalTicks int) *PersistenceSystem {
	return &PersistenceSystem{
		world:    ws,
		inv:      inv,
		pos:      pos,
		ledger:   ledger,
		log:      log,
		interval: intervalTicks,
	}
}

func (s *PersistenceSystem) Phase() coresys.Phase { return coresys.PhasePersist }

// Record queues ledger rows for the next flush.
func (s *PersistenceSystem) Record(entries ...persist.LedgerEntry) {
	s.pending = append(s.pending, entries...)
	if over := len(s.pending) - maxPendingLedger; over > 0 {
		s.log.Warn("帳本待寫入過多，丟棄最舊紀錄", zap.Int("dropped", over))
		s.pending = append(s.pending[:0], s.pending[over:]...)
	}
}

func (s *PersistenceSystem) Update(_ time.Duration) {
	s.flushLedger()
	if s.interval <= 0 {
		return
	}
	s.tickCount++
	if s.tickCount < s.interval {
		return
	}
	s.tickCount = 0
	s.savePlayers(true)
}

func (s *PersistenceSystem) flushLedger() {
	if len(s.pending) == 0 || s.ledger == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.ledger.Write(ctx, s.pending); err != nil {
		s.log.Error("寫入拾取帳本失敗", zap.Int("rows", len(s.pending)), zap.Error(err))
		return
	}
	s.pending = s.pending[:0]
}

// SaveAllPlayers persists every online player and the pending ledger,
// ignoring dirty flags. Called on graceful shutdown.
func (s *PersistenceSystem) SaveAllPlayers() {
	s.flushLedger()
	s.savePlayers(false)
}

// SavePlayer persists one player immediately. Used on disconnect.
func (s *PersistenceSystem) SavePlayer(p *world.Player) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if s.inv != nil {
		if err := s.inv.Save(ctx, p.AccountID, p.Inv.Slots); err != nil {
			s.log.Error("存檔背包失敗", zap.String("account", p.Account), zap.Error(err))
			return false
		}
	}
	if s.pos != nil {
		if err := s.pos.SavePosition(ctx, p.AccountID, p.Pos); err != nil {
			s.log.Error("存檔位置失敗", zap.String("account", p.Account), zap.Error(err))
		}
	}
	p.Dirty = false
	return true
}

func (s *PersistenceSystem) savePlayers(dirtyOnly bool) {
	count := 0
	s.world.AllPlayers(func(p *world.Player) {
		if dirtyOnly && !p.Dirty {
			return
		}
		if s.SavePlayer(p) {
			count++
		}
	})
	if count > 0 {
		s.log.Info("自動存檔完成", zap.Int("玩家數", count))
	}
}
