package system

import (
	"time"

	"github.com/lootgo/server/internal/core/ecs"
	coresys "github.com/lootgo/server/internal/core/system"
	"github.com/lootgo/server/internal/world"
)

// VisibilitySystem reconciles every player's known loot against what is in
// view: drops entering view are spawned, drops leaving view are removed.
// Phase 3 (PostUpdate), every Interval ticks.
type VisibilitySystem struct {
	world    *world.State
	interval int
	ticks    int
}

func NewVisibilitySystem(ws *world.State, interval int) *VisibilitySystem {
	if interval <= 0 {
		interval = 1
	}
	return &VisibilitySystem{world: ws, interval: interval}
}

func (s *VisibilitySystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *VisibilitySystem) Update(_ time.Duration) {
	s.ticks++
	if s.ticks < s.interval {
		return
	}
	s.ticks = 0
	s.world.AllPlayers(s.Refresh)
}

// Refresh brings one player's view up to date immediately. Login calls it so
// the first loot list does not wait for the next pass.
func (s *VisibilitySystem) Refresh(p *world.Player) {
	nearby := s.world.GetNearbyLoot(p.Pos)
	current := make(map[ecs.EntityID]struct{}, len(nearby))
	for _, e := range nearby {
		id := ecs.EntityID(e.ID)
		current[id] = struct{}{}
		if _, known := p.Known[id]; !known {
			sendLootSpawn(p, e)
		}
	}
	for id := range p.Known {
		if _, still := current[id]; !still {
			sendLootRemove(p, id)
		}
	}
}
