package system

import (
	"math/rand"

	"go.uber.org/zap"

	"github.com/lootgo/server/internal/core/ecs"
	"github.com/lootgo/server/internal/core/event"
	"github.com/lootgo/server/internal/data"
	"github.com/lootgo/server/internal/loot"
	"github.com/lootgo/server/internal/world"
)

// DespawnFunc picks the despawn timer for a new drop; def is the configured
// default. The Lua engine's DespawnTicks fits.
type DespawnFunc func(stack loot.ItemStack, def int) int

// Spawner seeds the world from spawn points and re-creates a point's drops
// RespawnTicks after the last of them is gone. Game loop only.
type Spawner struct {
	world *world.State
	bus   *event.Bus
	bc    *LootBroadcaster
	items *data.ItemTable
	rng   *rand.Rand
	log   *zap.Logger

	PickupDelay  int
	DespawnTicks int
	Despawn      DespawnFunc

	points []data.SpawnPoint
	live   []int                // live drops per point
	timers []int                // ticks until respawn; 0 = idle
	owner  map[ecs.EntityID]int // drop → point index
}

func NewSpawner(ws *world.State, bus *event.Bus, bc *LootBroadcaster, items *data.ItemTable, points []data.SpawnPoint, seed int64, log *zap.Logger) *Spawner {
	return &Spawner{
		world:  ws,
		bus:    bus,
		bc:     bc,
		items:  items,
		rng:    rand.New(rand.NewSource(seed)),
		log:    log,
		points: points,
		live:   make([]int, len(points)),
		timers: make([]int, len(points)),
		owner:  make(map[ecs.EntityID]int),
	}
}

// SpawnAll creates every point's drops and returns how many were created.
func (s *Spawner) SpawnAll() int {
	n := 0
	for i := range s.points {
		n += s.spawnPoint(i)
	}
	return n
}

func (s *Spawner) spawnPoint(i int) int {
	sp := s.points[i]
	n := 0
	for c := 0; c < sp.Copies; c++ {
		pos := loot.Vec3{X: sp.X, Y: sp.Y, Z: sp.Z}
		if sp.Spread > 0 {
			pos.X += (s.rng.Float64()*2 - 1) * sp.Spread
			pos.Z += (s.rng.Float64()*2 - 1) * sp.Spread
		}
		id := s.spawn(pos, s.items.Stack(sp.Type, sp.Count, sp.Meta))
		if id.IsZero() {
			s.log.Warn("掉落物實體已滿，略過生成", zap.String("type", sp.Type))
			break
		}
		s.owner[id] = i
		s.live[i]++
		n++
	}
	return n
}

func (s *Spawner) spawn(pos loot.Vec3, stack loot.ItemStack) ecs.EntityID {
	ttl := s.DespawnTicks
	if s.Despawn != nil {
		ttl = s.Despawn(stack, ttl)
	}
	id := s.world.SpawnLoot(pos, stack, s.PickupDelay, ttl)
	if id.IsZero() {
		return 0
	}
	if e, ok := s.world.LootEntity(id); ok {
		s.bc.Spawned(e)
	}
	event.Emit(s.bus, event.LootSpawned{ID: id})
	return id
}

// OnLootRemoved arms the respawn timer once a point has no drops left.
func (s *Spawner) OnLootRemoved(ev event.LootRemoved) {
	i, ok := s.owner[ev.ID]
	if !ok {
		return
	}
	delete(s.owner, ev.ID)
	s.live[i]--
	if s.live[i] == 0 && s.points[i].RespawnTicks > 0 {
		s.timers[i] = s.points[i].RespawnTicks
	}
}

// Tick advances respawn timers and returns the number of drops created.
func (s *Spawner) Tick() int {
	n := 0
	for i := range s.timers {
		if s.timers[i] == 0 {
			continue
		}
		s.timers[i]--
		if s.timers[i] == 0 {
			n += s.spawnPoint(i)
		}
	}
	return n
}
