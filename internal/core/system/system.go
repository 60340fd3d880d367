package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseInput      Phase = iota // 0: drain packet queues
	PhasePreUpdate               // 1: process last tick's events
	PhaseUpdate                  // 2: pickup transactions
	PhasePostUpdate              // 3: loot cooldown, despawn, visibility
	PhaseOutput                  // 4: build + send packets
	PhasePersist                 // 5: ledger flush + inventory save
	PhaseCleanup                 // 6: destroy queued entities
)

// System is the interface every ECS system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
