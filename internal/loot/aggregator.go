package loot

import (
	"sort"
	"strings"
)

// SessionContext is the player and world view the pipeline reads each step.
// The client's world mirror and the test fakes implement it.
type SessionContext interface {
	PlayerPos() Vec3
	PlayerBounds() AABB
	QueryItemsInRegion(region AABB) []LootEntity
}

// Aggregator turns the drops around the player into sorted display groups.
type Aggregator struct {
	MarginXZ      float64
	MarginY       float64
	IsAllowlisted Predicate // nil = nothing allowlisted
	IsInteresting Predicate // nil = DefaultInteresting
}

func NewAggregator(marginXZ, marginY float64) *Aggregator {
	return &Aggregator{MarginXZ: marginXZ, MarginY: marginY}
}

// ScanRegion is the player's bounding box inflated by the scan margins.
func (a *Aggregator) ScanRegion(sc SessionContext) AABB {
	return sc.PlayerBounds().Inflate(a.MarginXZ, a.MarginY)
}

type mergeKey struct {
	typ  string
	meta string
}

// Aggregate scans, filters, merges and sorts. An empty region yields nil.
func (a *Aggregator) Aggregate(sc SessionContext, mode FilterMode) []VisualGroup {
	entities := sc.QueryItemsInRegion(a.ScanRegion(sc))
	if len(entities) == 0 {
		return nil
	}

	var singles []VisualGroup
	merged := make([]VisualGroup, 0, len(entities))
	index := make(map[mergeKey]int, len(entities))

	for _, e := range entities {
		if !e.Alive || e.Stack.Empty() {
			continue
		}
		if mode == FilterRareOnly && hidden(e.Stack, a.IsAllowlisted, a.IsInteresting) {
			continue
		}
		src := Source{ID: e.ID, Pos: e.Pos}
		if !e.Stack.Stackable {
			singles = append(singles, VisualGroup{Stack: e.Stack, Sources: []Source{src}})
			continue
		}
		k := mergeKey{typ: e.Stack.Type, meta: e.Stack.Meta}
		if i, ok := index[k]; ok {
			merged[i].Stack.Count += e.Stack.Count
			merged[i].Sources = append(merged[i].Sources, src)
			continue
		}
		index[k] = len(merged)
		merged = append(merged, VisualGroup{Stack: e.Stack, Sources: []Source{src}})
	}

	groups := append(singles, merged...)
	SortGroups(groups)
	return groups
}

// Compare orders groups: rarity descending, enchanted first, display name
// ascending by bytes, then primary id ascending.
func Compare(a, b VisualGroup) int {
	if a.Stack.Rarity != b.Stack.Rarity {
		if a.Stack.Rarity > b.Stack.Rarity {
			return -1
		}
		return 1
	}
	if a.Stack.Enchanted != b.Stack.Enchanted {
		if a.Stack.Enchanted {
			return -1
		}
		return 1
	}
	if c := strings.Compare(a.Stack.DisplayName(), b.Stack.DisplayName()); c != 0 {
		return c
	}
	pa, pb := a.PrimaryID(), b.PrimaryID()
	switch {
	case pa < pb:
		return -1
	case pa > pb:
		return 1
	}
	return 0
}

// SortGroups sorts in place with Compare. The sort is stable.
func SortGroups(groups []VisualGroup) {
	sort.SliceStable(groups, func(i, j int) bool {
		return Compare(groups[i], groups[j]) < 0
	})
}
