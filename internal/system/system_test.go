package system

import (
	"context"
	"errors"
	stdnet "net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/lootgo/server/internal/core/ecs"
	"github.com/lootgo/server/internal/core/event"
	"github.com/lootgo/server/internal/data"
	"github.com/lootgo/server/internal/loot"
	"github.com/lootgo/server/internal/net"
	"github.com/lootgo/server/internal/net/packet"
	"github.com/lootgo/server/internal/persist"
	"github.com/lootgo/server/internal/protocol"
	"github.com/lootgo/server/internal/world"
)

var origin = loot.Vec3{X: 0, Y: 64, Z: 0}

func emerald(n int) loot.ItemStack {
	return loot.ItemStack{Type: "minecraft:emerald", Name: "Emerald", Count: n, Stackable: true, MaxStack: 64}
}

func dirt(n int) loot.ItemStack {
	return loot.ItemStack{Type: "minecraft:dirt", Name: "Dirt", Count: n, Stackable: true, MaxStack: 64}
}

// testSession returns a session whose output can be inspected with drain.
func testSession(t *testing.T, id uint64) *net.Session {
	t.Helper()
	a, b := stdnet.Pipe()
	t.Cleanup(func() { a.Close(); b.Close() })
	return net.NewSession(net.NewTCPConn(a), id, 16, 64, 0, time.Second, zap.NewNop())
}

func drain(sess *net.Session) [][]byte {
	sess.FlushOutput()
	var out [][]byte
	for {
		select {
		case d := <-sess.OutQueue:
			out = append(out, d)
		default:
			return out
		}
	}
}

func opcodes(pkts [][]byte) map[byte]int {
	m := make(map[byte]int)
	for _, p := range pkts {
		m[p[0]]++
	}
	return m
}

func addPlayer(ws *world.State, sess *net.Session, sid uint64, slots int) *world.Player {
	p := world.NewPlayer(sess, "p", int64(sid), slots)
	p.SessionID = sid
	p.Pos = origin
	ws.AddPlayer(p)
	return p
}

func ids(es ...ecs.EntityID) []uint32 {
	out := make([]uint32, len(es))
	for i, e := range es {
		out[i] = uint32(e)
	}
	return out
}

func TestQuotaConsumesTargetsInOrder(t *testing.T) {
	ws := world.NewState()
	p := addPlayer(ws, nil, 1, 36)
	a := ws.SpawnLoot(origin, emerald(40), 0, 0)
	b := ws.SpawnLoot(origin, emerald(40), 0, 0)
	c := ws.SpawnLoot(origin, emerald(40), 0, 0)

	out := ApplyPickup(ws, p, protocol.PickupRequest{TargetIDs: ids(a, b, c), LimitToMaxStack: true}, 64, 64)
	if out.Accepted != 64 || out.Overflow {
		t.Fatalf("expected 64 accepted without overflow, got %+v", out)
	}
	if _, _, ok := ws.ResolveLoot(uint32(a)); ok {
		t.Fatalf("first target should be gone")
	}
	if _, it, ok := ws.ResolveLoot(uint32(b)); !ok || it.Stack.Count != 16 {
		t.Fatalf("second target should hold 16")
	}
	if _, it, ok := ws.ResolveLoot(uint32(c)); !ok || it.Stack.Count != 40 {
		t.Fatalf("third target must be untouched")
	}
	if p.Inv.Count("minecraft:emerald") != 64 {
		t.Fatalf("inventory holds %d", p.Inv.Count("minecraft:emerald"))
	}
	if len(out.Removed) != 1 || out.Removed[0] != a || len(out.Changed) != 1 || out.Changed[0] != b {
		t.Fatalf("unexpected removed/changed: %+v", out)
	}
}

func TestUnboundedBatchTakesEverything(t *testing.T) {
	ws := world.NewState()
	p := addPlayer(ws, nil, 1, 36)
	a := ws.SpawnLoot(origin, emerald(40), 0, 0)
	b := ws.SpawnLoot(origin, emerald(40), 0, 0)
	c := ws.SpawnLoot(origin, emerald(40), 0, 0)

	out := ApplyPickup(ws, p, protocol.PickupRequest{TargetIDs: ids(a, b, c)}, 64, 64)
	if out.Accepted != 120 || len(out.Removed) != 3 {
		t.Fatalf("expected all 120 taken, got %+v", out)
	}
	if p.Inv.Slots[0].Count != 64 || p.Inv.Slots[1].Count != 56 {
		t.Fatalf("unexpected slots %d/%d", p.Inv.Slots[0].Count, p.Inv.Slots[1].Count)
	}
}

func TestSkipsOutOfRangeCoolingAndStale(t *testing.T) {
	ws := world.NewState()
	p := addPlayer(ws, nil, 1, 36)
	edge := ws.SpawnLoot(loot.Vec3{X: 8, Y: 64, Z: 0}, emerald(1), 0, 0)
	near := ws.SpawnLoot(loot.Vec3{X: 7.9, Y: 64, Z: 0}, emerald(1), 0, 0)
	cooling := ws.SpawnLoot(origin, emerald(1), 5, 0)

	gone := ws.SpawnLoot(origin, emerald(1), 0, 0)
	ws.DestroyLoot(gone)
	ws.FlushDestroyed()
	reused := ws.SpawnLoot(origin, dirt(1), 0, 0)
	if reused == gone {
		t.Fatalf("recycled slot must get a new generation")
	}

	out := ApplyPickup(ws, p, protocol.PickupRequest{TargetIDs: ids(edge, near, cooling, gone)}, 64, 64)
	if out.Accepted != 1 || len(out.Taken) != 1 || out.Taken[0].ID != near {
		t.Fatalf("only the near drop should be taken, got %+v", out)
	}
	if _, _, ok := ws.ResolveLoot(uint32(reused)); !ok {
		t.Fatalf("stale id must not touch the entity now in its slot")
	}
	if out.Overflow {
		t.Fatalf("skips are not overflow")
	}
}

func TestPartialFillLeavesRemainder(t *testing.T) {
	ws := world.NewState()
	p := addPlayer(ws, nil, 1, 1)
	p.Inv.Set(0, emerald(50))
	id := ws.SpawnLoot(origin, emerald(40), 0, 0)

	out := ApplyPickup(ws, p, protocol.PickupRequest{TargetIDs: ids(id)}, 64, 64)
	if out.Accepted != 14 || !out.Overflow {
		t.Fatalf("expected 14 accepted with overflow, got %+v", out)
	}
	if _, it, ok := ws.ResolveLoot(uint32(id)); !ok || it.Stack.Count != 26 {
		t.Fatalf("ground should keep 26")
	}
}

func TestFullInventoryKeepsEntity(t *testing.T) {
	ws := world.NewState()
	p := addPlayer(ws, nil, 1, 1)
	p.Inv.Set(0, dirt(64))
	id := ws.SpawnLoot(origin, emerald(5), 0, 0)

	out := ApplyPickup(ws, p, protocol.PickupRequest{TargetIDs: ids(id)}, 64, 64)
	if out.Accepted != 0 || !out.Overflow {
		t.Fatalf("expected overflow with nothing accepted, got %+v", out)
	}
	if _, it, ok := ws.ResolveLoot(uint32(id)); !ok || it.Stack.Count != 5 {
		t.Fatalf("entity must survive a rejected merge")
	}
}

func newPickupFixture(t *testing.T, slots int) (*world.State, *event.Bus, *PickupSystem, *net.Session, *world.Player) {
	t.Helper()
	ws := world.NewState()
	bus := event.NewBus()
	sess := testSession(t, 1)
	p := addPlayer(ws, sess, 1, slots)
	ps := NewPickupSystem(ws, bus, NewLootBroadcaster(ws), PickupConfig{Quota: 64, MaxDistanceSq: 64, Language: "en"}, zap.NewNop())
	return ws, bus, ps, sess, p
}

func TestAutoOverflowIsSilent(t *testing.T) {
	ws, _, ps, sess, p := newPickupFixture(t, 1)
	p.Inv.Set(0, dirt(64))
	id := ws.SpawnLoot(origin, emerald(5), 0, 0)

	ps.Submit(1, protocol.PickupRequest{TargetIDs: ids(id), IsAuto: true})
	ps.Update(0)
	ops := opcodes(drain(sess))
	if ops[packet.S_OPCODE_NOTICE] != 0 || ops[packet.S_OPCODE_SOUND] != 0 {
		t.Fatalf("auto request against full inventory must be silent, got %v", ops)
	}

	ps.Submit(1, protocol.PickupRequest{TargetIDs: ids(id)})
	ps.Update(0)
	pkts := drain(sess)
	ops = opcodes(pkts)
	if ops[packet.S_OPCODE_NOTICE] != 1 || ops[packet.S_OPCODE_SOUND] != 1 {
		t.Fatalf("manual request should notify and play the fail cue, got %v", ops)
	}
	for _, pkt := range pkts {
		switch pkt[0] {
		case packet.S_OPCODE_NOTICE:
			n, err := protocol.DecodeNotice(packet.NewReader(pkt))
			if err != nil || n.Key != protocol.NoticeInvFull || n.Text == "" {
				t.Fatalf("bad notice %+v %v", n, err)
			}
		case packet.S_OPCODE_SOUND:
			c, err := protocol.DecodeSoundCue(packet.NewReader(pkt))
			if err != nil || c.Event != protocol.SoundFail {
				t.Fatalf("expected fail cue, got %+v %v", c, err)
			}
		}
	}
}

func TestSuccessPlaysPickupCue(t *testing.T) {
	ws, bus, ps, sess, _ := newPickupFixture(t, 36)
	id := ws.SpawnLoot(origin, emerald(5), 0, 0)

	var applied []event.PickupApplied
	event.Subscribe(bus, func(e event.PickupApplied) { applied = append(applied, e) })

	ps.Submit(1, protocol.PickupRequest{TargetIDs: ids(id), LimitToMaxStack: true})
	if ps.Pending() != 1 {
		t.Fatalf("request should be queued until Update")
	}
	ps.Update(0)

	pkts := drain(sess)
	var sound *protocol.SoundCue
	for _, pkt := range pkts {
		if pkt[0] == packet.S_OPCODE_SOUND {
			c, err := protocol.DecodeSoundCue(packet.NewReader(pkt))
			if err != nil {
				t.Fatalf("decode sound: %v", err)
			}
			sound = &c
		}
	}
	if sound == nil || sound.Event != protocol.SoundPickup || sound.Pitch < 0.6 || sound.Pitch > 3.4 {
		t.Fatalf("expected pickup cue with randomized pitch, got %+v", sound)
	}
	if opcodes(pkts)[packet.S_OPCODE_INVENTORY] != 1 {
		t.Fatalf("expected an inventory update")
	}

	bus.SwapBuffers()
	bus.DispatchAll()
	if len(applied) != 1 || applied[0].Accepted != 5 || !applied[0].Limited {
		t.Fatalf("unexpected events %+v", applied)
	}
}

func TestSubmitForUnknownSessionIsDropped(t *testing.T) {
	ws, _, ps, _, _ := newPickupFixture(t, 36)
	id := ws.SpawnLoot(origin, emerald(5), 0, 0)
	ps.Submit(99, protocol.PickupRequest{TargetIDs: ids(id)})
	ps.Submit(1, protocol.PickupRequest{})
	if ps.Pending() != 1 {
		t.Fatalf("empty request should not queue")
	}
	ps.Update(0)
	if _, _, ok := ws.ResolveLoot(uint32(id)); !ok {
		t.Fatalf("nobody should have taken the drop")
	}
}

func TestVisibilitySpawnsAndRemoves(t *testing.T) {
	ws := world.NewState()
	sess := testSession(t, 1)
	p := addPlayer(ws, sess, 1, 36)
	id := ws.SpawnLoot(loot.Vec3{X: 5, Y: 64, Z: 5}, emerald(3), 0, 0)

	vis := NewVisibilitySystem(ws, 2)
	vis.Update(0)
	if len(drain(sess)) != 0 {
		t.Fatalf("first tick of a 2-tick interval sends nothing")
	}
	vis.Update(0)
	if _, ok := p.Known[id]; !ok {
		t.Fatalf("drop in view should be known")
	}
	if opcodes(drain(sess))[packet.S_OPCODE_LOOT_SPAWN] != 1 {
		t.Fatalf("expected one loot spawn")
	}

	ws.UpdatePosition(1, loot.Vec3{X: 500, Y: 64, Z: 500})
	vis.Refresh(p)
	if len(p.Known) != 0 {
		t.Fatalf("drop out of view should be forgotten")
	}
	if opcodes(drain(sess))[packet.S_OPCODE_LOOT_REMOVE] != 1 {
		t.Fatalf("expected one loot remove")
	}
}

func TestBroadcasterRemovedOnlyToKnowing(t *testing.T) {
	ws := world.NewState()
	s1, s2 := testSession(t, 1), testSession(t, 2)
	p1 := addPlayer(ws, s1, 1, 36)
	addPlayer(ws, s2, 2, 36)
	bc := NewLootBroadcaster(ws)
	id := ws.SpawnLoot(origin, emerald(1), 0, 0)
	e, _ := ws.LootEntity(id)
	sendLootSpawn(p1, e)
	drain(s1)

	bc.Removed(id)
	if opcodes(drain(s1))[packet.S_OPCODE_LOOT_REMOVE] != 1 {
		t.Fatalf("knowing player should get the remove")
	}
	if len(drain(s2)) != 0 {
		t.Fatalf("unaware player should get nothing")
	}
}

func writeItems(t *testing.T) *data.ItemTable {
	t.Helper()
	path := filepath.Join(t.TempDir(), "items.yaml")
	body := "items:\n  - type: minecraft:emerald\n    name: Emerald\n    stackable: true\n    max_stack: 64\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	items, err := data.LoadItemTable(path)
	if err != nil {
		t.Fatalf("load items: %v", err)
	}
	return items
}

func TestLootTickDelayDespawnAndRespawn(t *testing.T) {
	ws := world.NewState()
	bus := event.NewBus()
	bc := NewLootBroadcaster(ws)
	points := []data.SpawnPoint{{Type: "minecraft:emerald", Count: 4, Y: 64, Copies: 2, RespawnTicks: 2}}
	sp := NewSpawner(ws, bus, bc, writeItems(t), points, 1, zap.NewNop())
	sp.PickupDelay = 1
	sp.DespawnTicks = 3
	event.Subscribe(bus, sp.OnLootRemoved)

	if n := sp.SpawnAll(); n != 2 {
		t.Fatalf("expected 2 drops, got %d", n)
	}
	tick := NewLootTickSystem(ws, bus, bc, sp, zap.NewNop())
	dispatch := NewEventDispatchSystem(bus)
	run := func() {
		dispatch.Update(0)
		tick.Update(0)
		ws.FlushDestroyed()
	}

	run() // delay 1 -> 0, ttl 3 -> 2
	for _, e := range ws.QueryItemsInRegion(loot.AABB{Min: loot.Vec3{X: -1, Y: 63, Z: -1}, Max: loot.Vec3{X: 1, Y: 65, Z: 1}}) {
		if !e.CanPickup() {
			t.Fatalf("delay should have elapsed for %d", e.ID)
		}
	}
	run() // ttl 2 -> 1
	run() // ttl 1 -> 0: both despawn, removal events queued
	if ws.LootCount() != 0 {
		t.Fatalf("expected despawn, %d left", ws.LootCount())
	}
	run() // events dispatched, respawn timer armed at 2 then ticks to 1
	if ws.LootCount() != 0 {
		t.Fatalf("respawn too early")
	}
	run() // timer 1 -> 0: respawn
	if ws.LootCount() != 2 {
		t.Fatalf("expected respawned drops, got %d", ws.LootCount())
	}
	if dispatch.Tick() != 5 {
		t.Fatalf("tick counter %d", dispatch.Tick())
	}
}

type fakeLedger struct {
	rows [][]persist.LedgerEntry
	err  error
}

func (f *fakeLedger) Write(_ context.Context, e []persist.LedgerEntry) error {
	if f.err != nil {
		return f.err
	}
	f.rows = append(f.rows, append([]persist.LedgerEntry(nil), e...))
	return nil
}

type fakeInv struct{ saved map[int64]int }

func (f *fakeInv) Save(_ context.Context, id int64, slots []loot.ItemStack) error {
	n := 0
	for _, s := range slots {
		n += s.Count
	}
	f.saved[id] = n
	return nil
}

type fakeAudit struct{ entries []persist.AuditEntry }

func (f *fakeAudit) Write(v any) error {
	f.entries = append(f.entries, v.(persist.AuditEntry))
	return nil
}

func TestAuditSinkAndLedgerFlush(t *testing.T) {
	ws := world.NewState()
	ledger := &fakeLedger{err: errors.New("db down")}
	inv := &fakeInv{saved: map[int64]int{}}
	ps := NewPersistenceSystem(ws, inv, nil, ledger, zap.NewNop(), 2)
	audit := &fakeAudit{}
	sink := NewAuditSink(audit, ps, func() uint64 { return 42 }, zap.NewNop())

	sink.OnPickup(event.PickupApplied{
		AccountID: 7, Account: "alice", Requested: 2, Accepted: 5,
		Taken: []event.Taken{{ID: 1, Type: "a", Amount: 3}, {ID: 2, Type: "a", Amount: 2}},
	})
	if len(audit.entries) != 1 || audit.entries[0].Tick != 42 || len(audit.entries[0].Taken) != 2 {
		t.Fatalf("unexpected audit %+v", audit.entries)
	}

	ps.Update(0)
	if len(ledger.rows) != 0 {
		t.Fatalf("failed write should not be recorded")
	}
	ledger.err = nil
	ps.Update(0)
	if len(ledger.rows) != 1 || len(ledger.rows[0]) != 2 || ledger.rows[0][0].AccountID != 7 {
		t.Fatalf("pending rows should be retried, got %+v", ledger.rows)
	}

	p := addPlayer(ws, nil, 7, 4)
	p.Inv.Set(0, emerald(9))
	p.Dirty = true
	ps.Update(0)
	if inv.saved[7] != 0 {
		t.Fatalf("saved before the interval elapsed")
	}
	ps.Update(0)
	if inv.saved[7] != 9 || p.Dirty {
		t.Fatalf("dirty player not saved: %+v dirty=%v", inv.saved, p.Dirty)
	}
}
