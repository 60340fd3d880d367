// Package loot holds the client-side loot model and the per-step aggregation
// pipeline: scan a region, filter, merge same-type drops, sort.
package loot

import "fmt"

// Rarity is an ordered tier; higher sorts first.
type Rarity uint8

const (
	Common Rarity = iota
	Uncommon
	Rare
	Epic
)

func (r Rarity) String() string {
	switch r {
	case Common:
		return "common"
	case Uncommon:
		return "uncommon"
	case Rare:
		return "rare"
	case Epic:
		return "epic"
	}
	return fmt.Sprintf("rarity(%d)", uint8(r))
}

// ParseRarity maps a catalog name to a tier. Unknown names are Common.
func ParseRarity(s string) Rarity {
	switch s {
	case "uncommon":
		return Uncommon
	case "rare":
		return Rare
	case "epic":
		return Epic
	}
	return Common
}

// DefaultMaxStack is the conventional stack size for stackable items.
const DefaultMaxStack = 64

// ItemStack is an item type plus quantity and the attributes the pipeline
// sorts and filters on. Meta is the canonical metadata string; empty means
// the stack carries none.
type ItemStack struct {
	Type          string
	Count         int
	Meta          string
	Stackable     bool
	MaxStack      int
	Rarity        Rarity
	Enchanted     bool
	MaxDurability int
	Category      string
	Name          string
}

func (s ItemStack) Empty() bool { return s.Type == "" || s.Count <= 0 }

// Mergeable reports whether two stacks describe the same item identity.
func (s ItemStack) Mergeable(o ItemStack) bool {
	return s.Type == o.Type && s.Stackable == o.Stackable && s.Meta == o.Meta
}

// MaxStackSize is 1 for non-stackable items.
func (s ItemStack) MaxStackSize() int {
	if !s.Stackable {
		return 1
	}
	if s.MaxStack > 0 {
		return s.MaxStack
	}
	return DefaultMaxStack
}

// DisplayName falls back to the type id when the stack has no name.
func (s ItemStack) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Type
}

// WithCount returns a copy of s holding n items.
func (s ItemStack) WithCount(n int) ItemStack {
	s.Count = n
	return s
}

// LootEntity is a world-visible drop as seen by the pipeline.
type LootEntity struct {
	ID          uint32
	Pos         Vec3
	Stack       ItemStack
	Alive       bool
	PickupDelay int // ticks until the drop may be taken
}

// CanPickup reports whether the cooldown has elapsed on a live, non-empty drop.
func (e LootEntity) CanPickup() bool {
	return e.Alive && e.PickupDelay <= 0 && !e.Stack.Empty()
}
