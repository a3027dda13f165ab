package physics

import (
	rl "github.com/gen2brain/raylib-go/raylib"
)

// RayHit describes where a ray enters a bounding box.
type RayHit struct {
	Point    rl.Vector3
	Normal   rl.Vector3
	Distance float32
}

// Raycast intersects a ray with the box using the slab method. direction is
// expected to be normalized so Distance is in world units. A ray starting
// inside the box reports the exit point.
func (a AABB) Raycast(origin, direction rl.Vector3, maxDistance float32) (RayHit, bool) {
	o := [3]float32{origin.X, origin.Y, origin.Z}
	d := [3]float32{direction.X, direction.Y, direction.Z}
	lo := [3]float32{a.Min.X, a.Min.Y, a.Min.Z}
	hi := [3]float32{a.Max.X, a.Max.Y, a.Max.Z}

	tmin := float32(-1e30)
	tmax := float32(1e30)
	for axis := 0; axis < 3; axis++ {
		if d[axis] == 0 {
			if o[axis] < lo[axis] || o[axis] > hi[axis] {
				return RayHit{}, false
			}
			continue
		}
		t1 := (lo[axis] - o[axis]) / d[axis]
		t2 := (hi[axis] - o[axis]) / d[axis]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = max(tmin, t1)
		tmax = min(tmax, t2)
		if tmin > tmax {
			return RayHit{}, false
		}
	}

	t := tmin
	if t < 0 {
		t = tmax
	}
	if t < 0 || t > maxDistance {
		return RayHit{}, false
	}

	point := rl.Vector3Add(origin, rl.Vector3Scale(direction, t))
	return RayHit{Point: point, Normal: a.faceNormal(point), Distance: t}, true
}

// faceNormal picks the face the point lies on.
func (a AABB) faceNormal(p rl.Vector3) rl.Vector3 {
	const eps = float32(0.001)
	switch {
	case absf(p.X-a.Min.X) < eps:
		return rl.Vector3{X: -1}
	case absf(p.X-a.Max.X) < eps:
		return rl.Vector3{X: 1}
	case absf(p.Y-a.Min.Y) < eps:
		return rl.Vector3{Y: -1}
	case absf(p.Y-a.Max.Y) < eps:
		return rl.Vector3{Y: 1}
	case absf(p.Z-a.Min.Z) < eps:
		return rl.Vector3{Z: -1}
	default:
		return rl.Vector3{Z: 1}
	}
}
