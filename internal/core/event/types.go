package event

import "github.com/lootgo/server/internal/core/ecs"

type PlayerLoggedIn struct {
	SessionID   uint64
	AccountName string
}

type PlayerDisconnected struct {
	SessionID uint64
}

// LootSpawned is emitted when a loot entity enters the world.
type LootSpawned struct {
	ID ecs.EntityID
}

// LootChanged is emitted when a transaction shrinks a ground stack without
// destroying it.
type LootChanged struct {
	ID    ecs.EntityID
	Count int
}

// LootRemoved is emitted when a loot entity leaves the world. Reason is
// "pickup" or "despawn".
type LootRemoved struct {
	ID     ecs.EntityID
	Reason string
}

// PickupApplied summarises one finished pickup transaction.
type PickupApplied struct {
	SessionID uint64
	AccountID int64
	Account   string
	IsAuto    bool
	Limited   bool
	Requested int // target ids in the request
	Accepted  int // total items moved into the inventory
	Overflow  bool
	Taken     []Taken
}

// Taken records how many items one target contributed.
type Taken struct {
	ID     ecs.EntityID
	Type   string
	Meta   string
	Amount int
}
