package loot

type Vec3 struct {
	X, Y, Z float64
}

func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

func (v Vec3) DistanceSq(o Vec3) float64 {
	dx, dy, dz := v.X-o.X, v.Y-o.Y, v.Z-o.Z
	return dx*dx + dy*dy + dz*dz
}

// AABB is an axis-aligned box with inclusive bounds.
type AABB struct {
	Min, Max Vec3
}

// BoxAround builds the box of a body standing at feet position pos.
func BoxAround(pos Vec3, halfWidth, height float64) AABB {
	return AABB{
		Min: Vec3{pos.X - halfWidth, pos.Y, pos.Z - halfWidth},
		Max: Vec3{pos.X + halfWidth, pos.Y + height, pos.Z + halfWidth},
	}
}

// Inflate grows the box by xz on both horizontal axes and y vertically.
func (b AABB) Inflate(xz, y float64) AABB {
	return AABB{
		Min: Vec3{b.Min.X - xz, b.Min.Y - y, b.Min.Z - xz},
		Max: Vec3{b.Max.X + xz, b.Max.Y + y, b.Max.Z + xz},
	}
}

func (b AABB) Contains(p Vec3) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}
