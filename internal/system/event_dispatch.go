package system

import (
	"time"

	"github.com/lootgo/server/internal/core/event"
	coresys "github.com/lootgo/server/internal/core/system"
)

// EventDispatchSystem makes last tick's events visible and delivers them to
// subscribers. It also counts ticks for the audit trail. Phase 1 (PreUpdate).
type EventDispatchSystem struct {
	bus  *event.Bus
	tick uint64
}

func NewEventDispatchSystem(bus *event.Bus) *EventDispatchSystem {
	return &EventDispatchSystem{bus: bus}
}

func (s *EventDispatchSystem) Phase() coresys.Phase { return coresys.PhasePreUpdate }

func (s *EventDispatchSystem) Update(_ time.Duration) {
	s.tick++
	s.bus.SwapBuffers()
	s.bus.DispatchAll()
}

// Tick returns the number of ticks run so far.
func (s *EventDispatchSystem) Tick() uint64 { return s.tick }
