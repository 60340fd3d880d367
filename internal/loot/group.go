package loot

import "sort"

// Source is one member entity of a group, captured at scan time.
type Source struct {
	ID  uint32
	Pos Vec3
}

// VisualGroup is one display row: a representative stack whose count is the
// sum of its members, plus the members in discovery order. Groups are built
// fresh every step and never mutated afterwards.
type VisualGroup struct {
	Stack   ItemStack
	Sources []Source
}

// PrimaryID is the first member's id, used as the final sort tie-break.
func (g VisualGroup) PrimaryID() uint32 {
	if len(g.Sources) == 0 {
		return 0
	}
	return g.Sources[0].ID
}

// IDs returns member ids in discovery order.
func (g VisualGroup) IDs() []uint32 {
	ids := make([]uint32, len(g.Sources))
	for i, s := range g.Sources {
		ids[i] = s.ID
	}
	return ids
}

// NearestIDs returns member ids ordered by distance to from, nearest first.
// Equal distances keep discovery order.
func (g VisualGroup) NearestIDs(from Vec3) []uint32 {
	src := make([]Source, len(g.Sources))
	copy(src, g.Sources)
	sort.SliceStable(src, func(i, j int) bool {
		return src[i].Pos.DistanceSq(from) < src[j].Pos.DistanceSq(from)
	})
	ids := make([]uint32, len(src))
	for i, s := range src {
		ids[i] = s.ID
	}
	return ids
}

// AllIDs flattens the members of every group in list order.
func AllIDs(groups []VisualGroup) []uint32 {
	n := 0
	for _, g := range groups {
		n += len(g.Sources)
	}
	ids := make([]uint32, 0, n)
	for _, g := range groups {
		for _, s := range g.Sources {
			ids = append(ids, s.ID)
		}
	}
	return ids
}
