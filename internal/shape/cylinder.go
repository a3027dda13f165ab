package shape

import (
	"github.com/chewxy/math32"
	rl "github.com/gen2brain/raylib-go/raylib"
)

// NewCylinder builds a cylinder along local Y.
func NewCylinder(radius, halfHeight, margin float32) (Shape, error) {
	if err := checkDimension("cylinder radius", radius); err != nil {
		return Shape{}, err
	}
	if err := checkDimension("cylinder half height", halfHeight); err != nil {
		return Shape{}, err
	}
	return Shape{kind: Cylinder, margin: margin, radius: radius, halfHeight: halfHeight}, nil
}

func (s Shape) cylinderSupport(d rl.Vector3) rl.Vector3 {
	p := rl.Vector3{Y: signed(d.Y, s.halfHeight)}
	w := math32.Sqrt(d.X*d.X + d.Z*d.Z)
	if w*w > epsilon {
		k := s.radius / w
		p.X = d.X * k
		p.Z = d.Z * k
	}
	return p
}
