package world

import (
	"slices"

	"github.com/lootgo/server/internal/loot"
)

// Inventory is a fixed number of slots. An empty slot has Count 0.
// Accessed only from the game loop goroutine.
type Inventory struct {
	Slots   []loot.ItemStack
	changed map[int]struct{}
}

func NewInventory(slots int) *Inventory {
	return &Inventory{
		Slots:   make([]loot.ItemStack, slots),
		changed: make(map[int]struct{}),
	}
}

// TryMerge moves as much of stack as fits: first onto matching partial
// stacks in slot order, then into empty slots. It returns what did not fit;
// a leftover with Count 0 means everything was accepted.
func (inv *Inventory) TryMerge(stack loot.ItemStack) loot.ItemStack {
	left := stack.Count
	limit := stack.MaxStackSize()
	if stack.Stackable {
		for i := range inv.Slots {
			if left == 0 {
				break
			}
			s := &inv.Slots[i]
			if s.Empty() || !s.Mergeable(stack) || s.Count >= limit {
				continue
			}
			n := min(left, limit-s.Count)
			s.Count += n
			left -= n
			inv.changed[i] = struct{}{}
		}
	}
	for i := range inv.Slots {
		if left == 0 {
			break
		}
		if !inv.Slots[i].Empty() {
			continue
		}
		n := min(left, limit)
		inv.Slots[i] = stack.WithCount(n)
		left -= n
		inv.changed[i] = struct{}{}
	}
	return stack.WithCount(left)
}

// Set replaces a slot, used when loading from storage.
func (inv *Inventory) Set(slot int, stack loot.ItemStack) bool {
	if slot < 0 || slot >= len(inv.Slots) {
		return false
	}
	inv.Slots[slot] = stack
	inv.changed[slot] = struct{}{}
	return true
}

// Count sums every slot holding typ.
func (inv *Inventory) Count(typ string) int {
	n := 0
	for _, s := range inv.Slots {
		if !s.Empty() && s.Type == typ {
			n += s.Count
		}
	}
	return n
}

// FreeSlots counts empty slots.
func (inv *Inventory) FreeSlots() int {
	n := 0
	for _, s := range inv.Slots {
		if s.Empty() {
			n++
		}
	}
	return n
}

// TakeChanges returns the slots modified since the last call, ascending.
func (inv *Inventory) TakeChanges() []int {
	if len(inv.changed) == 0 {
		return nil
	}
	out := make([]int, 0, len(inv.changed))
	for i := range inv.changed {
		out = append(out, i)
	}
	clear(inv.changed)
	slices.Sort(out)
	return out
}
