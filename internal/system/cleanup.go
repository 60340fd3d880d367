package system

import (
	"time"

	coresys "github.com/lootgo/server/internal/core/system"
	"github.com/lootgo/server/internal/world"
)

// CleanupSystem recycles the entity slots of loot destroyed this tick.
// Phase 6 (Cleanup).
type CleanupSystem struct {
	world *world.State
}

func NewCleanupSystem(ws *world.State) *CleanupSystem {
	return &CleanupSystem{world: ws}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(_ time.Duration) {
	s.world.FlushDestroyed()
}
