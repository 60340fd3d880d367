// Package client runs the per-step loot pipeline on the player's side:
// aggregation, selection, input disambiguation and auto pickup, producing
// pickup requests and an immutable frame for renderers.
package client

import "math"

// Viewport owns the selected row and the first visible row of the loot list.
// Rows may be fractional; a partially visible last row still counts.
type Viewport struct {
	Selected int
	Scroll   int
	rows     float64
}

func NewViewport(visibleRows float64) *Viewport {
	v := &Viewport{}
	v.SetVisibleRows(visibleRows)
	return v
}

// SetVisibleRows clamps rows to at least 1.
func (v *Viewport) SetVisibleRows(rows float64) {
	v.rows = math.Max(1, rows)
}

func (v *Viewport) VisibleRows() float64 { return v.rows }

// Move steps the selection by dir (+1 down, -1 up) over a list of n groups,
// wrapping at both ends, then reconciles.
func (v *Viewport) Move(dir, n int) {
	if n <= 0 {
		v.Reconcile(0)
		return
	}
	v.Selected += dir
	v.Reconcile(n)
}

// Reconcile restores the selection invariant against a list of n groups and
// keeps the selected row inside [Scroll, Scroll+rows).
func (v *Viewport) Reconcile(n int) {
	if n <= 0 {
		v.Selected, v.Scroll = 0, 0
		return
	}
	v.Selected = ((v.Selected % n) + n) % n

	if float64(n) <= v.rows {
		v.Scroll = 0
		return
	}
	if float64(v.Selected+1) > float64(v.Scroll)+v.rows {
		v.Scroll = int(math.Ceil(float64(v.Selected) - v.rows + 1))
	}
	if v.Selected < v.Scroll {
		v.Scroll = v.Selected
	}
	maxScroll := int(math.Ceil(math.Max(0, float64(n)-v.rows)))
	v.Scroll = max(0, min(v.Scroll, maxScroll))
}
