package world

import (
	"testing"

	"github.com/lootgo/server/internal/loot"
)

func gem(n int) loot.ItemStack {
	return loot.ItemStack{Type: "minecraft:emerald", Name: "Emerald", Count: n, Stackable: true, MaxStack: 64}
}

func TestSpawnResolveDestroy(t *testing.T) {
	s := NewState()
	id := s.SpawnLoot(loot.Vec3{X: 1}, gem(5), 0, 0)
	if id.IsZero() {
		t.Fatalf("spawn failed")
	}
	if _, it, ok := s.ResolveLoot(uint32(id)); !ok || it.Stack.Count != 5 {
		t.Fatalf("fresh loot should resolve")
	}
	s.DestroyLoot(id)
	if _, _, ok := s.ResolveLoot(uint32(id)); ok {
		t.Fatalf("destroyed loot must not resolve before cleanup")
	}
	if got := s.QueryItemsInRegion(loot.AABB{Min: loot.Vec3{X: -5, Y: -5, Z: -5}, Max: loot.Vec3{X: 5, Y: 5, Z: 5}}); len(got) != 0 {
		t.Fatalf("destroyed loot must leave the region index, got %+v", got)
	}
	if n := s.FlushDestroyed(); n != 1 {
		t.Fatalf("flushed %d, want 1", n)
	}
	again := s.SpawnLoot(loot.Vec3{}, gem(1), 0, 0)
	if again.Index() != id.Index() || again == id {
		t.Fatalf("expected slot reuse with new generation: old=%d new=%d", id, again)
	}
	if _, _, ok := s.ResolveLoot(uint32(id)); ok {
		t.Fatalf("stale generational id resolved after reuse")
	}
}

func TestQueryAcrossCells(t *testing.T) {
	s := NewState()
	a := s.SpawnLoot(loot.Vec3{X: 31.5}, gem(1), 0, 0)
	b := s.SpawnLoot(loot.Vec3{X: 32.5}, gem(1), 0, 0)
	s.SpawnLoot(loot.Vec3{X: 40}, gem(1), 0, 0)
	got := s.QueryItemsInRegion(loot.AABB{Min: loot.Vec3{X: 31, Y: -1, Z: -1}, Max: loot.Vec3{X: 33, Y: 1, Z: 1}})
	if len(got) != 2 || got[0].ID != uint32(a) || got[1].ID != uint32(b) {
		t.Fatalf("unexpected query result %+v", got)
	}
}

func TestTickLoot(t *testing.T) {
	s := NewState()
	delayed := s.SpawnLoot(loot.Vec3{}, gem(1), 2, 0)
	mortal := s.SpawnLoot(loot.Vec3{}, gem(1), 0, 3)

	ready, expired := s.TickLoot()
	if len(ready) != 0 || len(expired) != 0 {
		t.Fatalf("tick 1: ready=%v expired=%v", ready, expired)
	}
	ready, _ = s.TickLoot()
	if len(ready) != 1 || ready[0] != delayed {
		t.Fatalf("tick 2: ready=%v", ready)
	}
	if e, _ := s.LootEntity(delayed); !e.CanPickup() {
		t.Fatalf("delay elapsed, entity should be pickable")
	}
	_, expired = s.TickLoot()
	if len(expired) != 1 || expired[0] != mortal {
		t.Fatalf("tick 3: expired=%v", expired)
	}
	if _, _, ok := s.ResolveLoot(uint32(mortal)); ok {
		t.Fatalf("expired loot must not resolve")
	}
	if s.LootCount() != 1 {
		t.Fatalf("live count = %d", s.LootCount())
	}
}

func TestNearbyPlayers(t *testing.T) {
	s := NewState()
	a := NewPlayer(nil, "a", 1, 9)
	a.SessionID = 1
	b := NewPlayer(nil, "b", 2, 9)
	b.SessionID = 2
	b.Pos = loot.Vec3{X: 20}
	c := NewPlayer(nil, "c", 3, 9)
	c.SessionID = 3
	c.Pos = loot.Vec3{X: 100}
	s.AddPlayer(a)
	s.AddPlayer(b)
	s.AddPlayer(c)

	near := s.GetNearbyPlayers(a.Pos, a.SessionID)
	if len(near) != 1 || near[0] != b {
		t.Fatalf("expected only b nearby, got %d", len(near))
	}
	s.UpdatePosition(3, loot.Vec3{X: 10})
	if near := s.GetNearbyPlayers(a.Pos, a.SessionID); len(near) != 2 {
		t.Fatalf("expected c nearby after move, got %d", len(near))
	}
	if s.RemovePlayer(2) != b || s.GetByName("b") != nil {
		t.Fatalf("remove failed")
	}
}

func TestInventoryTryMerge(t *testing.T) {
	inv := NewInventory(2)
	left := inv.TryMerge(gem(40))
	if left.Count != 0 {
		t.Fatalf("leftover %d", left.Count)
	}
	left = inv.TryMerge(gem(40))
	if left.Count != 0 || inv.Slots[0].Count != 64 || inv.Slots[1].Count != 16 {
		t.Fatalf("expected 64+16, got %d+%d", inv.Slots[0].Count, inv.Slots[1].Count)
	}
	left = inv.TryMerge(gem(100))
	if left.Count != 52 || inv.Count("minecraft:emerald") != 128 {
		t.Fatalf("leftover %d total %d", left.Count, inv.Count("minecraft:emerald"))
	}
	if changes := inv.TakeChanges(); len(changes) != 2 || changes[0] != 0 || changes[1] != 1 {
		t.Fatalf("changes = %v", changes)
	}
	if inv.TakeChanges() != nil {
		t.Fatalf("changes must be cleared")
	}
}

func TestInventoryNonStackable(t *testing.T) {
	inv := NewInventory(3)
	sword := loot.ItemStack{Type: "minecraft:iron_sword", Count: 1}
	inv.TryMerge(sword)
	inv.TryMerge(sword)
	if inv.FreeSlots() != 1 {
		t.Fatalf("each sword needs its own slot, free=%d", inv.FreeSlots())
	}
	if left := inv.TryMerge(loot.ItemStack{Type: "minecraft:iron_sword", Count: 2}); left.Count != 1 {
		t.Fatalf("two swords into one slot should leave 1, got %d", left.Count)
	}
}

func TestInventoryMetaKeepsStacksApart(t *testing.T) {
	inv := NewInventory(2)
	inv.TryMerge(gem(10))
	named := gem(10)
	named.Meta = `{display:{Name:"x"}}`
	inv.TryMerge(named)
	if inv.Slots[0].Count != 10 || inv.Slots[1].Meta != named.Meta {
		t.Fatalf("stacks with different meta must not merge")
	}
}
