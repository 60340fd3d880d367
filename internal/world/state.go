package world

import (
	"sort"

	"github.com/lootgo/server/internal/core/ecs"
	"github.com/lootgo/server/internal/loot"
)

// LootItem is the loot component stored per entity.
type LootItem struct {
	Pos         loot.Vec3
	Stack       loot.ItemStack
	PickupDelay int // ticks until pickable
	TTL         int // ticks until despawn, 0 = never
	Alive       bool
}

// State is the authoritative world: players, loot entities, and the AOI
// indexes over both. Accessed only from the game loop goroutine.
type State struct {
	players map[uint64]*Player // session ID → player
	byName  map[string]*Player // account name → player
	aoi     *AOIGrid[uint64]

	ecs       *ecs.World
	loot      *ecs.PtrComponentStore[LootItem]
	lootCells *AOIGrid[ecs.EntityID]
}

func NewState() *State {
	w := ecs.NewWorld()
	return &State{
		players:   make(map[uint64]*Player),
		byName:    make(map[string]*Player),
		aoi:       NewAOIGrid[uint64](),
		ecs:       w,
		loot:      ecs.NewRegisteredStore[LootItem](w),
		lootCells: NewAOIGrid[ecs.EntityID](),
	}
}

// --- players ---

func (s *State) AddPlayer(p *Player) {
	s.players[p.SessionID] = p
	s.byName[p.Account] = p
	s.aoi.Add(p.SessionID, p.Pos.X, p.Pos.Z)
}

func (s *State) RemovePlayer(sessionID uint64) *Player {
	p, ok := s.players[sessionID]
	if !ok {
		return nil
	}
	s.aoi.Remove(sessionID, p.Pos.X, p.Pos.Z)
	delete(s.players, sessionID)
	if s.byName[p.Account] == p {
		delete(s.byName, p.Account)
	}
	return p
}

func (s *State) GetBySession(sessionID uint64) *Player {
	return s.players[sessionID]
}

func (s *State) GetByName(account string) *Player {
	return s.byName[account]
}

// UpdatePosition moves a player and keeps the AOI grid in sync.
func (s *State) UpdatePosition(sessionID uint64, pos loot.Vec3) {
	p := s.players[sessionID]
	if p == nil {
		return
	}
	s.aoi.Move(sessionID, p.Pos.X, p.Pos.Z, pos.X, pos.Z)
	p.Pos = pos
}

// GetNearbyPlayers returns players within view of pos, excluding one session.
func (s *State) GetNearbyPlayers(pos loot.Vec3, excludeSession uint64) []*Player {
	var result []*Player
	for _, sid := range s.aoi.GetNearby(pos.X, pos.Z) {
		if sid == excludeSession {
			continue
		}
		p := s.players[sid]
		if p != nil && InView(pos.X, pos.Z, p.Pos.X, p.Pos.Z) {
			result = append(result, p)
		}
	}
	return result
}

func (s *State) PlayerCount() int {
	return len(s.players)
}

func (s *State) AllPlayers(fn func(*Player)) {
	for _, p := range s.players {
		fn(p)
	}
}

// --- loot ---

// SpawnLoot adds a drop. It returns the zero id when the entity table is full.
func (s *State) SpawnLoot(pos loot.Vec3, stack loot.ItemStack, pickupDelay, ttl int) ecs.EntityID {
	if stack.Empty() {
		return 0
	}
	id := s.ecs.CreateEntity()
	if id.IsZero() {
		return 0
	}
	s.loot.Set(id, &LootItem{Pos: pos, Stack: stack, PickupDelay: pickupDelay, TTL: ttl, Alive: true})
	s.lootCells.Add(id, pos.X, pos.Z)
	return id
}

// ResolveLoot maps a wire id to a live loot entity. Stale generations,
// destroyed entities and entities queued for destruction do not resolve.
func (s *State) ResolveLoot(id uint32) (ecs.EntityID, *LootItem, bool) {
	eid := ecs.EntityID(id)
	if !s.ecs.Alive(eid) {
		return 0, nil, false
	}
	it, ok := s.loot.Get(eid)
	if !ok || !it.Alive {
		return 0, nil, false
	}
	return eid, it, true
}

// LootEntity returns the pipeline view of one entity.
func (s *State) LootEntity(id ecs.EntityID) (loot.LootEntity, bool) {
	_, it, ok := s.ResolveLoot(uint32(id))
	if !ok {
		return loot.LootEntity{}, false
	}
	return toEntity(id, it), true
}

func toEntity(id ecs.EntityID, it *LootItem) loot.LootEntity {
	return loot.LootEntity{
		ID:          uint32(id),
		Pos:         it.Pos,
		Stack:       it.Stack,
		Alive:       it.Alive,
		PickupDelay: it.PickupDelay,
	}
}

// QueryItemsInRegion returns live, non-empty drops inside region ordered by id.
func (s *State) QueryItemsInRegion(region loot.AABB) []loot.LootEntity {
	var out []loot.LootEntity
	for _, id := range s.lootCells.InRect(region.Min.X, region.Min.Z, region.Max.X, region.Max.Z) {
		if !s.ecs.Alive(id) {
			continue
		}
		it, ok := s.loot.Get(id)
		if !ok || !it.Alive || it.Stack.Empty() || !region.Contains(it.Pos) {
			continue
		}
		out = append(out, toEntity(id, it))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// GetNearbyLoot returns live drops within view of pos.
func (s *State) GetNearbyLoot(pos loot.Vec3) []loot.LootEntity {
	var out []loot.LootEntity
	for _, id := range s.lootCells.GetNearby(pos.X, pos.Z) {
		e, ok := s.LootEntity(id)
		if ok && InView(pos.X, pos.Z, e.Pos.X, e.Pos.Z) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SetLootCount writes back a shrunk ground stack.
func (s *State) SetLootCount(id ecs.EntityID, count int) {
	if it, ok := s.loot.Get(id); ok {
		it.Stack.Count = count
	}
}

// DestroyLoot takes a drop out of the world immediately: it stops resolving
// and leaves the region index. The entity slot is recycled at cleanup.
func (s *State) DestroyLoot(id ecs.EntityID) *LootItem {
	it, ok := s.loot.Get(id)
	if !ok || !it.Alive {
		return nil
	}
	it.Alive = false
	s.lootCells.Remove(id, it.Pos.X, it.Pos.Z)
	s.ecs.MarkForDestruction(id)
	return it
}

// TickLoot advances pickup delays and despawn timers by one tick. It returns
// the entities whose delay just reached zero and those that expired; expired
// entities are already destroyed.
func (s *State) TickLoot() (ready, expired []ecs.EntityID) {
	s.loot.Each(func(id ecs.EntityID, it *LootItem) {
		if !it.Alive {
			return
		}
		if it.PickupDelay > 0 {
			it.PickupDelay--
			if it.PickupDelay == 0 {
				ready = append(ready, id)
			}
		}
		if it.TTL > 0 {
			it.TTL--
			if it.TTL == 0 {
				expired = append(expired, id)
			}
		}
	})
	for _, id := range expired {
		s.DestroyLoot(id)
	}
	return ready, expired
}

// FlushDestroyed recycles the slots of destroyed entities.
func (s *State) FlushDestroyed() int {
	return s.ecs.FlushDestroyQueue()
}

// LootCount returns the number of live drops.
func (s *State) LootCount() int {
	n := 0
	s.loot.Each(func(_ ecs.EntityID, it *LootItem) {
		if it.Alive {
			n++
		}
	})
	return n
}
