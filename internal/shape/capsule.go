package shape

import rl "github.com/gen2brain/raylib-go/raylib"

// NewCapsule builds a capsule along local Y: a segment of half length
// halfHeight swept by a sphere of radius radius.
func NewCapsule(radius, halfHeight, margin float32) (Shape, error) {
	if err := checkDimension("capsule radius", radius); err != nil {
		return Shape{}, err
	}
	if err := checkDimension("capsule half height", halfHeight); err != nil {
		return Shape{}, err
	}
	return Shape{kind: Capsule, margin: margin, radius: radius, halfHeight: halfHeight}, nil
}

func (s Shape) capsuleSupport(d rl.Vector3) rl.Vector3 {
	p := rl.Vector3Scale(unitOr(d, rl.Vector3{Y: 1}), s.radius)
	p.Y += signed(d.Y, s.halfHeight)
	return p
}

// capsuleInertia weights a cylinder and two hemispheres by their share of the
// capsule volume.
func (s Shape) capsuleInertia(mass float32) rl.Matrix {
	r := s.radius
	height := 2 * s.halfHeight
	denom := 4*r + 3*height
	if denom == 0 {
		return diagonal(0, 0, 0)
	}
	rr := r * r
	hh := height * height
	rrDouble := rr + rr

	caps := 2 * r / denom
	body := 3 * height / denom

	sum1 := 0.4 * rrDouble
	sum2 := 0.75*height*r + 0.5*hh
	sum3 := 0.25*rr + hh/12

	xz := caps*mass*(sum1+sum2) + body*mass*sum3
	yy := caps*mass*sum1 + body*mass*0.25*rrDouble
	return diagonal(xz, yy, xz)
}
