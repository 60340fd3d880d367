package system

import (
	"time"

	"go.uber.org/zap"

	"github.com/lootgo/server/internal/core/event"
	coresys "github.com/lootgo/server/internal/core/system"
	"github.com/lootgo/server/internal/world"
)

// LootTickSystem counts down pickup delays and despawn timers and drives
// spawn point respawns. Phase 3 (PostUpdate).
type LootTickSystem struct {
	world   *world.State
	bus     *event.Bus
	bc      *LootBroadcaster
	spawner *Spawner
	log     *zap.Logger
}

func NewLootTickSystem(ws *world.State, bus *event.Bus, bc *LootBroadcaster, spawner *Spawner, log *zap.Logger) *LootTickSystem {
	return &LootTickSystem{world: ws, bus: bus, bc: bc, spawner: spawner, log: log}
}

func (s *LootTickSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *LootTickSystem) Update(_ time.Duration) {
	ready, expired := s.world.TickLoot()
	for _, id := range ready {
		if e, ok := s.world.LootEntity(id); ok {
			s.bc.Changed(e)
		}
	}
	for _, id := range expired {
		s.bc.Removed(id)
		event.Emit(s.bus, event.LootRemoved{ID: id, Reason: "despawn"})
	}
	if len(expired) > 0 {
		s.log.Debug("loot despawned", zap.Int("count", len(expired)))
	}
	if s.spawner != nil {
		s.spawner.Tick()
	}
}
