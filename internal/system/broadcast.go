package system

import (
	"github.com/lootgo/server/internal/core/ecs"
	"github.com/lootgo/server/internal/loot"
	"github.com/lootgo/server/internal/protocol"
	"github.com/lootgo/server/internal/world"
)

// LootBroadcaster keeps each player's known-loot set in step with the
// packets it sends. Game loop only.
type LootBroadcaster struct {
	world *world.State
}

func NewLootBroadcaster(ws *world.State) *LootBroadcaster {
	return &LootBroadcaster{world: ws}
}

// Spawned announces a new drop to every player in view.
func (b *LootBroadcaster) Spawned(e loot.LootEntity) {
	for _, p := range b.world.GetNearbyPlayers(e.Pos, 0) {
		sendLootSpawn(p, e)
	}
}

// Changed sends the new count and delay to players that know the drop.
func (b *LootBroadcaster) Changed(e loot.LootEntity) {
	id := ecs.EntityID(e.ID)
	data := protocol.LootUpdate{ID: e.ID, Count: e.Stack.Count, Delay: e.PickupDelay}.Encode()
	for _, p := range b.world.GetNearbyPlayers(e.Pos, 0) {
		if _, ok := p.Known[id]; ok {
			p.Send(data)
		}
	}
}

// Removed tells every player that knows the drop to forget it.
func (b *LootBroadcaster) Removed(id ecs.EntityID) {
	b.world.AllPlayers(func(p *world.Player) {
		if _, ok := p.Known[id]; ok {
			sendLootRemove(p, id)
		}
	})
}

func sendLootSpawn(p *world.Player, e loot.LootEntity) {
	p.Send(protocol.LootSpawn{ID: e.ID, Pos: e.Pos, Delay: e.PickupDelay, Stack: e.Stack}.Encode())
	p.Known[ecs.EntityID(e.ID)] = struct{}{}
}

func sendLootRemove(p *world.Player, id ecs.EntityID) {
	p.Send(protocol.EncodeLootRemove(uint32(id)))
	delete(p.Known, id)
}
