package loot

// FilterMode selects which drops the list shows.
type FilterMode uint8

const (
	FilterAll FilterMode = iota
	FilterRareOnly
)

func (m FilterMode) String() string {
	if m == FilterRareOnly {
		return "rare_only"
	}
	return "all"
}

// Next cycles to the other mode.
func (m FilterMode) Next() FilterMode {
	if m == FilterAll {
		return FilterRareOnly
	}
	return FilterAll
}

// Predicate tests a stack.
type Predicate func(ItemStack) bool

var interestingCategories = map[string]bool{
	"tool":    true,
	"weapon":  true,
	"armor":   true,
	"ranged":  true,
	"shield":  true,
	"elytra":  true,
	"trident": true,
}

// DefaultInteresting keeps gear and anything with durability or enchantments.
func DefaultInteresting(s ItemStack) bool {
	return s.MaxDurability > 0 || s.Enchanted || interestingCategories[s.Category]
}

// hidden reports whether RareOnly hides s. Allowlisted stacks are never hidden.
func hidden(s ItemStack, allowlisted, interesting Predicate) bool {
	if allowlisted != nil && allowlisted(s) {
		return false
	}
	if s.Rarity != Common || s.Enchanted {
		return false
	}
	if interesting == nil {
		interesting = DefaultInteresting
	}
	return !interesting(s)
}
