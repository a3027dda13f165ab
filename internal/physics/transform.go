package physics

import (
	rl "github.com/gen2brain/raylib-go/raylib"
)

// Transform places a body in the world.
type Transform struct {
	Position rl.Vector3
	Rotation rl.Quaternion
}

// IdentityTransform places a body at the origin with no rotation.
func IdentityTransform() Transform {
	return Transform{Rotation: rl.QuaternionIdentity()}
}

// NewTransform builds a transform from a position and euler angles in
// degrees, matching how scene files store rotation.
func NewTransform(position, eulerDegrees rl.Vector3) Transform {
	return Transform{
		Position: position,
		Rotation: rl.QuaternionFromEuler(
			eulerDegrees.X*rl.Deg2rad,
			eulerDegrees.Y*rl.Deg2rad,
			eulerDegrees.Z*rl.Deg2rad,
		),
	}
}

// Apply maps a point from body space to world space.
func (t Transform) Apply(local rl.Vector3) rl.Vector3 {
	return rl.Vector3Add(t.Position, rl.Vector3RotateByQuaternion(local, t.Rotation))
}

// ToLocalDirection maps a world direction into body space.
func (t Transform) ToLocalDirection(world rl.Vector3) rl.Vector3 {
	return rl.Vector3RotateByQuaternion(world, rl.QuaternionInvert(t.Rotation))
}

// axes returns the body axes expressed in world space.
func (t Transform) axes() [3]rl.Vector3 {
	return [3]rl.Vector3{
		rl.Vector3RotateByQuaternion(rl.Vector3{X: 1}, t.Rotation),
		rl.Vector3RotateByQuaternion(rl.Vector3{Y: 1}, t.Rotation),
		rl.Vector3RotateByQuaternion(rl.Vector3{Z: 1}, t.Rotation),
	}
}
