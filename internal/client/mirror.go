package client

import (
	"fmt"
	"sort"

	"github.com/lootgo/server/internal/loot"
	"github.com/lootgo/server/internal/net/packet"
	"github.com/lootgo/server/internal/protocol"
)

// Player collision box used for the scan region.
const (
	PlayerHalfWidth = 0.3
	PlayerHeight    = 1.8
)

// WorldMirror replicates the drops the authority has shown this client and
// serves them to the pipeline as its SessionContext. Single goroutine.
type WorldMirror struct {
	PlayerID uint32
	pos      loot.Vec3
	items    map[uint32]*loot.LootEntity
	slots    map[int]protocol.SlotUpdate
}

func NewWorldMirror() *WorldMirror {
	return &WorldMirror{
		items: make(map[uint32]*loot.LootEntity, 64),
		slots: make(map[int]protocol.SlotUpdate, 36),
	}
}

func (m *WorldMirror) PlayerPos() loot.Vec3 { return m.pos }

func (m *WorldMirror) PlayerBounds() loot.AABB {
	return loot.BoxAround(m.pos, PlayerHalfWidth, PlayerHeight)
}

func (m *WorldMirror) SetPlayerPos(p loot.Vec3) { m.pos = p }

// QueryItemsInRegion returns mirrored drops inside region ordered by id, so
// discovery order is stable between steps.
func (m *WorldMirror) QueryItemsInRegion(region loot.AABB) []loot.LootEntity {
	var out []loot.LootEntity
	for _, e := range m.items {
		if region.Contains(e.Pos) {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of mirrored drops.
func (m *WorldMirror) Len() int { return len(m.items) }

// Slot returns the last known contents of an inventory slot.
func (m *WorldMirror) Slot(i int) (protocol.SlotUpdate, bool) {
	s, ok := m.slots[i]
	return s, ok
}

// InventoryCount sums the mirrored inventory for one item type.
func (m *WorldMirror) InventoryCount(typ string) int {
	n := 0
	for _, s := range m.slots {
		if s.Type == typ {
			n += s.Count
		}
	}
	return n
}

// Apply consumes one server packet. World packets update the mirror; the
// decoded message is returned so the caller can react to feedback packets.
// Unknown opcodes return nil, nil.
func (m *WorldMirror) Apply(data []byte) (any, error) {
	r := packet.NewReader(data)
	switch r.Opcode() {
	case packet.S_OPCODE_LOGIN_OK:
		msg, err := protocol.DecodeLoginOK(r)
		if err != nil {
			return nil, err
		}
		m.PlayerID = msg.PlayerID
		m.pos = msg.Pos
		return msg, nil
	case packet.S_OPCODE_PLAYER_POS:
		pos, err := protocol.DecodePlayerPos(r)
		if err != nil {
			return nil, err
		}
		m.pos = pos
		return pos, nil
	case packet.S_OPCODE_LOOT_SPAWN:
		msg, err := protocol.DecodeLootSpawn(r)
		if err != nil {
			return nil, err
		}
		m.items[msg.ID] = &loot.LootEntity{
			ID:          msg.ID,
			Pos:         msg.Pos,
			Stack:       msg.Stack,
			Alive:       true,
			PickupDelay: msg.Delay,
		}
		return msg, nil
	case packet.S_OPCODE_LOOT_UPDATE:
		msg, err := protocol.DecodeLootUpdate(r)
		if err != nil {
			return nil, err
		}
		if e, ok := m.items[msg.ID]; ok {
			e.Stack.Count = msg.Count
			e.PickupDelay = msg.Delay
		}
		return msg, nil
	case packet.S_OPCODE_LOOT_REMOVE:
		id, err := protocol.DecodeLootRemove(r)
		if err != nil {
			return nil, err
		}
		delete(m.items, id)
		return id, nil
	case packet.S_OPCODE_INVENTORY:
		updates, err := protocol.DecodeInventory(r)
		if err != nil {
			return nil, err
		}
		for _, u := range updates {
			if u.Count <= 0 {
				delete(m.slots, u.Slot)
				continue
			}
			m.slots[u.Slot] = u
		}
		return updates, nil
	case packet.S_OPCODE_SOUND:
		return protocol.DecodeSoundCue(r)
	case packet.S_OPCODE_NOTICE:
		return protocol.DecodeNotice(r)
	case packet.S_OPCODE_HELLO_OK:
		return packet.S_OPCODE_HELLO_OK, nil
	case packet.S_OPCODE_DISCONNECT, packet.S_OPCODE_LOGIN_FAIL:
		return nil, fmt.Errorf("%s: %s", packet.OpcodeName(r.Opcode()), protocol.DecodeReason(r))
	}
	return nil, nil
}
