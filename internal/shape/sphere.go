package shape

import rl "github.com/gen2brain/raylib-go/raylib"

// NewSphere builds a sphere centred on the local origin.
func NewSphere(radius, margin float32) (Shape, error) {
	if err := checkDimension("sphere radius", radius); err != nil {
		return Shape{}, err
	}
	return Shape{kind: Sphere, margin: margin, radius: radius}, nil
}

// Radius returns the radius of a sphere, capsule, cone or cylinder.
func (s Shape) Radius() float32 { return s.radius }

// HalfHeight returns the half height along local Y of a capsule, cone or
// cylinder.
func (s Shape) HalfHeight() float32 { return s.halfHeight }

func (s Shape) sphereSupport(d rl.Vector3) rl.Vector3 {
	return rl.Vector3Scale(unitOr(d, rl.Vector3{Y: 1}), s.radius)
}
