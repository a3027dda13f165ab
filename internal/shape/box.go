package shape

import rl "github.com/gen2brain/raylib-go/raylib"

// NewBox builds a box from its half-extents along the local x, y and z axes.
// A zero extent on an axis is a valid flat box.
func NewBox(extent rl.Vector3, margin float32) (Shape, error) {
	for _, c := range [...]struct {
		name string
		v    float32
	}{{"box extent x", extent.X}, {"box extent y", extent.Y}, {"box extent z", extent.Z}} {
		if err := checkDimension(c.name, c.v); err != nil {
			return Shape{}, err
		}
	}
	return Shape{kind: Box, margin: margin, extent: extent}, nil
}

// Extent returns the box half-extents.
func (s Shape) Extent() rl.Vector3 { return s.extent }

// WithExtent returns a new box with different half-extents. The owner must
// recompute its AABB afterwards.
func (s Shape) WithExtent(extent rl.Vector3) (Shape, error) {
	return NewBox(extent, s.margin)
}

// The margin is applied per axis, so the inflated box is a larger box and not
// a rounded one.
func (s Shape) boxSupportWithMargin(d rl.Vector3) rl.Vector3 {
	m := s.margin
	return rl.Vector3{
		X: signed(d.X, s.extent.X+m),
		Y: signed(d.Y, s.extent.Y+m),
		Z: signed(d.Z, s.extent.Z+m),
	}
}

func (s Shape) boxSupport(d rl.Vector3) rl.Vector3 {
	return rl.Vector3{
		X: signed(d.X, s.extent.X),
		Y: signed(d.Y, s.extent.Y),
		Z: signed(d.Z, s.extent.Z),
	}
}

func (s Shape) boxInertia(mass float32) rl.Matrix {
	return boxTensor(s.extent, mass)
}

// boxTensor is the solid box tensor for half-extents e. The 1/3 factor is
// (1/12)(2e)^2 folded together.
func boxTensor(e rl.Vector3, mass float32) rl.Matrix {
	factor := mass / 3
	xx := e.X * e.X
	yy := e.Y * e.Y
	zz := e.Z * e.Z
	return diagonal(factor*(yy+zz), factor*(xx+zz), factor*(xx+yy))
}

// signed picks +v for a non-negative component and -v otherwise.
func signed(component, v float32) float32 {
	if component < 0 {
		return -v
	}
	return v
}
