package physics

import (
	"fmt"

	"collide3d/internal/shape"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// OBB is an oriented box in world space.
type OBB struct {
	Center   rl.Vector3
	HalfSize rl.Vector3
	Axes     [3]rl.Vector3
}

// ColliderOBB returns the world-space box of collider i, inflated by its
// margin. ok is false when the collider is not a box.
func (b *Body) ColliderOBB(i int) (o OBB, ok bool, err error) {
	c := b.colliders[i]
	if c.Shape.Kind() != shape.Box {
		return OBB{}, false, nil
	}
	ext, err := c.Shape.LocalExtents(c.Shape.Margin())
	if err != nil {
		return OBB{}, false, fmt.Errorf("physics: body %d collider %d: %w", b.id, i, err)
	}
	return OBB{
		Center:   b.WorldCenter(i),
		HalfSize: ext,
		Axes:     b.transform.axes(),
	}, true, nil
}

// Intersects tests two boxes against the 15 separating axes.
func (a OBB) Intersects(b OBB) bool {
	t := rl.Vector3Subtract(b.Center, a.Center)

	for i := range 3 {
		if !a.overlapOnAxis(b, a.Axes[i], t) || !a.overlapOnAxis(b, b.Axes[i], t) {
			return false
		}
	}
	for i := range 3 {
		for j := range 3 {
			axis := rl.Vector3CrossProduct(a.Axes[i], b.Axes[j])
			// Parallel edges give no new axis.
			if rl.Vector3LengthSqr(axis) < 1e-8 {
				continue
			}
			if !a.overlapOnAxis(b, rl.Vector3Normalize(axis), t) {
				return false
			}
		}
	}
	return true
}

func (a OBB) overlapOnAxis(b OBB, axis, t rl.Vector3) bool {
	return absf(rl.Vector3DotProduct(t, axis)) <= a.project(axis)+b.project(axis)
}

func (o OBB) project(axis rl.Vector3) float32 {
	return o.HalfSize.X*absf(rl.Vector3DotProduct(o.Axes[0], axis)) +
		o.HalfSize.Y*absf(rl.Vector3DotProduct(o.Axes[1], axis)) +
		o.HalfSize.Z*absf(rl.Vector3DotProduct(o.Axes[2], axis))
}

// IntersectsSphere reports whether a sphere touches the box.
func (o OBB) IntersectsSphere(center rl.Vector3, radius float32) bool {
	d := rl.Vector3Subtract(center, o.ClosestPoint(center))
	return rl.Vector3LengthSqr(d) <= radius*radius
}

// ClosestPoint returns the point of the box nearest to p. A point inside the
// box is returned unchanged.
func (o OBB) ClosestPoint(p rl.Vector3) rl.Vector3 {
	local := rl.Vector3Subtract(p, o.Center)
	half := [3]float32{o.HalfSize.X, o.HalfSize.Y, o.HalfSize.Z}
	result := o.Center
	for i, axis := range o.Axes {
		d := clampf(rl.Vector3DotProduct(local, axis), -half[i], half[i])
		result = rl.Vector3Add(result, rl.Vector3Scale(axis, d))
	}
	return result
}

func clampf(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
