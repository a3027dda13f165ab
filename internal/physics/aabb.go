package physics

import (
	"github.com/chewxy/math32"
	rl "github.com/gen2brain/raylib-go/raylib"
)

// AABB is a world-space axis-aligned bounding box.
type AABB struct {
	Min rl.Vector3
	Max rl.Vector3
}

// NewAABBFromCenter creates an AABB from a center point and half-extents.
func NewAABBFromCenter(center, halfExtents rl.Vector3) AABB {
	return AABB{
		Min: rl.Vector3Subtract(center, halfExtents),
		Max: rl.Vector3Add(center, halfExtents),
	}
}

// EmptyAABB returns an inverted box that any Merge replaces.
func EmptyAABB() AABB {
	inf := math32.Inf(1)
	return AABB{
		Min: rl.Vector3{X: inf, Y: inf, Z: inf},
		Max: rl.Vector3{X: -inf, Y: -inf, Z: -inf},
	}
}

func (a AABB) Intersects(b AABB) bool {
	return a.Min.X <= b.Max.X && a.Max.X >= b.Min.X &&
		a.Min.Y <= b.Max.Y && a.Max.Y >= b.Min.Y &&
		a.Min.Z <= b.Max.Z && a.Max.Z >= b.Min.Z
}

// Contains reports whether b lies entirely inside a.
func (a AABB) Contains(b AABB) bool {
	return a.Min.X <= b.Min.X && a.Min.Y <= b.Min.Y && a.Min.Z <= b.Min.Z &&
		a.Max.X >= b.Max.X && a.Max.Y >= b.Max.Y && a.Max.Z >= b.Max.Z
}

// Merge returns the smallest box enclosing both a and b.
func (a AABB) Merge(b AABB) AABB {
	return AABB{
		Min: rl.Vector3Min(a.Min, b.Min),
		Max: rl.Vector3Max(a.Max, b.Max),
	}
}

func (a AABB) Center() rl.Vector3 {
	return rl.Vector3Scale(rl.Vector3Add(a.Min, a.Max), 0.5)
}

func (a AABB) HalfExtents() rl.Vector3 {
	return rl.Vector3Scale(rl.Vector3Subtract(a.Max, a.Min), 0.5)
}

// IsEmpty reports whether the box has been built from nothing.
func (a AABB) IsEmpty() bool {
	return a.Min.X > a.Max.X || a.Min.Y > a.Max.Y || a.Min.Z > a.Max.Z
}
