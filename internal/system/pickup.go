package system

import (
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/lootgo/server/internal/core/ecs"
	"github.com/lootgo/server/internal/core/event"
	coresys "github.com/lootgo/server/internal/core/system"
	"github.com/lootgo/server/internal/i18n"
	"github.com/lootgo/server/internal/protocol"
	"github.com/lootgo/server/internal/world"
)

// PickupOutcome is what one transaction did to the world.
type PickupOutcome struct {
	Accepted int
	Overflow bool
	Taken    []event.Taken
	Changed  []ecs.EntityID // ground stacks that shrank but survive
	Removed  []ecs.EntityID // ground stacks taken completely
}

// ApplyPickup runs one authoritative pickup transaction for p. Targets are
// processed in request order; stale, dead, out of range and cooling-down
// targets are skipped. quota is the per-request cap used when the request
// asks for LimitToMaxStack. A target is in range when its squared distance
// to the player is strictly below maxDistSq.
func ApplyPickup(ws *world.State, p *world.Player, req protocol.PickupRequest, quota int, maxDistSq float64) PickupOutcome {
	var out PickupOutcome
	remaining := math.MaxInt
	if req.LimitToMaxStack {
		remaining = quota
	}
	for _, raw := range req.TargetIDs {
		if remaining <= 0 {
			break
		}
		id, it, ok := ws.ResolveLoot(raw)
		if !ok {
			continue
		}
		if it.Pos.DistanceSq(p.Pos) >= maxDistSq {
			continue
		}
		if it.PickupDelay > 0 {
			continue
		}
		amount := min(it.Stack.Count, remaining)
		leftover := p.Inv.TryMerge(it.Stack.WithCount(amount))
		accepted := amount - leftover.Count
		if leftover.Count > 0 {
			out.Overflow = true
		}
		if accepted <= 0 {
			continue
		}
		remaining -= accepted
		out.Accepted += accepted
		out.Taken = append(out.Taken, event.Taken{ID: id, Type: it.Stack.Type, Meta: it.Stack.Meta, Amount: accepted})

		if rest := it.Stack.Count - accepted; rest > 0 {
			ws.SetLootCount(id, rest)
			out.Changed = append(out.Changed, id)
		} else {
			ws.DestroyLoot(id)
			out.Removed = append(out.Removed, id)
		}
	}
	return out
}

// PickupConfig holds the transaction constants.
type PickupConfig struct {
	Quota         int
	MaxDistanceSq float64
	Language      string // fallback notice language
}

type pickupJob struct {
	sessionID uint64
	req       protocol.PickupRequest
}

// PickupSystem executes queued pickup requests on the game loop.
// Handlers call Submit during Phase 0; Update drains the queue in Phase 2.
type PickupSystem struct {
	world *world.State
	bus   *event.Bus
	bc    *LootBroadcaster
	cfg   PickupConfig
	rng   *rand.Rand
	log   *zap.Logger

	queue []pickupJob
}

func NewPickupSystem(ws *world.State, bus *event.Bus, bc *LootBroadcaster, cfg PickupConfig, log *zap.Logger) *PickupSystem {
	return &PickupSystem{
		world: ws,
		bus:   bus,
		bc:    bc,
		cfg:   cfg,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
		log:   log,
	}
}

func (s *PickupSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

// Submit queues a request. Game loop only.
func (s *PickupSystem) Submit(sessionID uint64, req protocol.PickupRequest) {
	if len(req.TargetIDs) == 0 {
		return
	}
	s.queue = append(s.queue, pickupJob{sessionID: sessionID, req: req})
}

// Pending returns the number of queued requests.
func (s *PickupSystem) Pending() int { return len(s.queue) }

func (s *PickupSystem) Update(_ time.Duration) {
	for _, job := range s.queue {
		p := s.world.GetBySession(job.sessionID)
		if p == nil {
			continue
		}
		s.execute(p, job.req)
	}
	s.queue = s.queue[:0]
}

func (s *PickupSystem) execute(p *world.Player, req protocol.PickupRequest) {
	out := ApplyPickup(s.world, p, req, s.cfg.Quota, s.cfg.MaxDistanceSq)

	for _, id := range out.Changed {
		if e, ok := s.world.LootEntity(id); ok {
			s.bc.Changed(e)
		}
	}
	for _, id := range out.Removed {
		s.bc.Removed(id)
		event.Emit(s.bus, event.LootRemoved{ID: id, Reason: "pickup"})
	}

	if out.Accepted > 0 {
		p.Dirty = true
		sendInventoryChanges(p)
		p.Send(protocol.SoundCue{
			Event:  protocol.SoundPickup,
			Volume: protocol.PickupVolume,
			Pitch:  protocol.PickupPitch(s.rng.Float64(), s.rng.Float64()),
		}.Encode())
	} else if out.Overflow && !req.IsAuto {
		p.Send(protocol.SoundCue{
			Event:  protocol.SoundFail,
			Volume: protocol.FailVolume,
			Pitch:  protocol.FailPitch,
		}.Encode())
	}
	if out.Overflow && !req.IsAuto {
		p.Send(protocol.Notice{
			Key:  protocol.NoticeInvFull,
			Text: i18n.Text(p.Lang, s.cfg.Language, protocol.NoticeInvFull),
		}.Encode())
	}

	s.log.Debug("pickup applied",
		zap.String("account", p.Account),
		zap.Int("targets", len(req.TargetIDs)),
		zap.Bool("auto", req.IsAuto),
		zap.Bool("limited", req.LimitToMaxStack),
		zap.Int("accepted", out.Accepted),
		zap.Bool("overflow", out.Overflow),
	)
	event.Emit(s.bus, event.PickupApplied{
		SessionID: p.SessionID,
		AccountID: p.AccountID,
		Account:   p.Account,
		IsAuto:    req.IsAuto,
		Limited:   req.LimitToMaxStack,
		Requested: len(req.TargetIDs),
		Accepted:  out.Accepted,
		Overflow:  out.Overflow,
		Taken:     out.Taken,
	})
}

// sendInventoryChanges pushes the slots touched since the last call.
func sendInventoryChanges(p *world.Player) {
	slots := p.Inv.TakeChanges()
	if len(slots) == 0 {
		return
	}
	p.Send(protocol.EncodeInventory(slotUpdates(p.Inv, slots)))
}

func slotUpdates(inv *world.Inventory, slots []int) []protocol.SlotUpdate {
	updates := make([]protocol.SlotUpdate, 0, len(slots))
	for _, i := range slots {
		st := inv.Slots[i]
		if st.Empty() {
			updates = append(updates, protocol.SlotUpdate{Slot: i})
			continue
		}
		updates = append(updates, protocol.SlotUpdate{Slot: i, Type: st.Type, Count: st.Count})
	}
	return updates
}
