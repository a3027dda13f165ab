package shape

import (
	"github.com/chewxy/math32"
	rl "github.com/gen2brain/raylib-go/raylib"
)

// NewCone builds a cone along local Y with its apex at +halfHeight and its
// base disc of the given radius at -halfHeight.
func NewCone(radius, halfHeight, margin float32) (Shape, error) {
	if err := checkDimension("cone radius", radius); err != nil {
		return Shape{}, err
	}
	if err := checkDimension("cone half height", halfHeight); err != nil {
		return Shape{}, err
	}
	return Shape{kind: Cone, margin: margin, radius: radius, halfHeight: halfHeight}, nil
}

func (s Shape) coneSupport(d rl.Vector3) rl.Vector3 {
	r, h := s.radius, s.halfHeight
	side := math32.Sqrt(r*r + 4*h*h)
	if side == 0 {
		return rl.Vector3{}
	}
	sinTheta := r / side

	if d.Y > sinTheta*rl.Vector3Length(d) {
		return rl.Vector3{Y: s.halfHeight}
	}
	projected := math32.Sqrt(d.X*d.X + d.Z*d.Z)
	if projected*projected > epsilon {
		k := r / projected
		return rl.Vector3{X: d.X * k, Y: -s.halfHeight, Z: d.Z * k}
	}
	return rl.Vector3{Y: -s.halfHeight}
}
