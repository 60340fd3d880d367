package world

import "math"

// AOIGrid implements a cell-based Area of Interest system on the XZ plane.
// A 3x3 neighbourhood of cells fully covers the visibility range
// (Chebyshev distance ViewRange).
// Accessed only from the game loop goroutine; no locks.

const (
	cellSize  = 32.0
	ViewRange = 32.0
)

type cellKey struct {
	cx int32
	cz int32
}

func toCell(v float64) int32 {
	return int32(math.Floor(v / cellSize))
}

func keyOf(x, z float64) cellKey {
	return cellKey{cx: toCell(x), cz: toCell(z)}
}

// AOIGrid tracks which ids are in which cells. The world keeps one grid for
// sessions and one for loot entities.
type AOIGrid[K comparable] struct {
	cells map[cellKey]map[K]struct{}
}

func NewAOIGrid[K comparable]() *AOIGrid[K] {
	return &AOIGrid[K]{
		cells: make(map[cellKey]map[K]struct{}),
	}
}

// Add places an id into the grid.
func (g *AOIGrid[K]) Add(id K, x, z float64) {
	k := keyOf(x, z)
	cell := g.cells[k]
	if cell == nil {
		cell = make(map[K]struct{})
		g.cells[k] = cell
	}
	cell[id] = struct{}{}
}

// Remove takes an id out of the grid.
func (g *AOIGrid[K]) Remove(id K, x, z float64) {
	k := keyOf(x, z)
	cell := g.cells[k]
	if cell != nil {
		delete(cell, id)
		if len(cell) == 0 {
			delete(g.cells, k)
		}
	}
}

// Move updates an id's cell when its position changes.
func (g *AOIGrid[K]) Move(id K, oldX, oldZ, newX, newZ float64) {
	if keyOf(oldX, oldZ) == keyOf(newX, newZ) {
		return
	}
	g.Remove(id, oldX, oldZ)
	g.Add(id, newX, newZ)
}

// GetNearby returns all ids in a 3x3 neighbourhood of cells around the
// given position. Caller does fine-grained distance filtering.
func (g *AOIGrid[K]) GetNearby(x, z float64) []K {
	c := keyOf(x, z)
	var result []K
	for dx := int32(-1); dx <= 1; dx++ {
		for dz := int32(-1); dz <= 1; dz++ {
			for id := range g.cells[cellKey{cx: c.cx + dx, cz: c.cz + dz}] {
				result = append(result, id)
			}
		}
	}
	return result
}

// InRect returns all ids in cells overlapping the XZ rectangle.
func (g *AOIGrid[K]) InRect(minX, minZ, maxX, maxZ float64) []K {
	lo, hi := keyOf(minX, minZ), keyOf(maxX, maxZ)
	var result []K
	for cx := lo.cx; cx <= hi.cx; cx++ {
		for cz := lo.cz; cz <= hi.cz; cz++ {
			for id := range g.cells[cellKey{cx: cx, cz: cz}] {
				result = append(result, id)
			}
		}
	}
	return result
}

// InView reports whether b is within ViewRange of a on both horizontal axes.
func InView(ax, az, bx, bz float64) bool {
	return math.Abs(ax-bx) <= ViewRange && math.Abs(az-bz) <= ViewRange
}
