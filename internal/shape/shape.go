// Package shape implements the convex collision shapes used by the narrow
// phase. A Shape is an immutable tagged value: every query switches on its
// Kind, so adding a variant means touching every operation in this package.
package shape

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"
	rl "github.com/gen2brain/raylib-go/raylib"
)

// Precondition violations. Callers decide whether to abort the step or skip
// the offending entity; nothing here recovers silently.
var (
	ErrPrecondition     = errors.New("precondition violation")
	ErrNegativeMargin   = fmt.Errorf("%w: negative margin", ErrPrecondition)
	ErrInvalidDimension = fmt.Errorf("%w: invalid dimension", ErrPrecondition)
	ErrEmptyMesh        = fmt.Errorf("%w: convex mesh has no vertices", ErrPrecondition)
)

// DefaultMargin is the collision margin used when the configuration does not
// provide one.
const DefaultMargin = 0.04

// epsilon below which a direction is treated as zero
const epsilon = 1e-10

type Kind uint8

const (
	Box Kind = iota
	Sphere
	Capsule
	Cone
	Cylinder
	ConvexMesh
)

var kindNames = [...]string{
	Box:        "box",
	Sphere:     "sphere",
	Capsule:    "capsule",
	Cone:       "cone",
	Cylinder:   "cylinder",
	ConvexMesh: "convex_mesh",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// ParseKind maps a scene-file name back to a Kind.
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if n == name {
			return Kind(k), nil
		}
	}
	return 0, fmt.Errorf("shape: unknown kind %q", name)
}

// Shape is a convex collision shape in its local frame. The zero value is not
// usable; build shapes with the New* constructors.
type Shape struct {
	kind   Kind
	margin float32

	// Box half-extents.
	extent rl.Vector3

	// Sphere, capsule, cone and cylinder.
	radius     float32
	halfHeight float32

	// Convex mesh.
	mesh *meshData
}

// Kind returns the immutable variant tag.
func (s Shape) Kind() Kind { return s.kind }

// Margin returns the collision margin the shape was built with.
func (s Shape) Margin() float32 { return s.margin }

// WithMargin returns a copy of s using margin m. The value is not validated
// here; support queries reject a negative margin.
func (s Shape) WithMargin(m float32) Shape {
	s.margin = m
	return s
}

func (s Shape) checkMargin() error {
	if s.margin < 0 {
		return fmt.Errorf("shape: %s margin %v: %w", s.kind, s.margin, ErrNegativeMargin)
	}
	return nil
}

// LocalSupportPointWithMargin returns the point of the margin-inflated shape
// that is furthest along direction.
func (s Shape) LocalSupportPointWithMargin(direction rl.Vector3) (rl.Vector3, error) {
	if err := s.checkMargin(); err != nil {
		return rl.Vector3{}, err
	}
	switch s.kind {
	case Box:
		return s.boxSupportWithMargin(direction), nil
	case Sphere, Capsule, Cone, Cylinder, ConvexMesh:
		p := s.supportWithoutMargin(direction)
		return rl.Vector3Add(p, rl.Vector3Scale(unitOr(direction, rl.Vector3{Y: 1}), s.margin)), nil
	default:
		panic(fmt.Sprintf("shape: unknown kind %d", s.kind))
	}
}

// LocalSupportPointWithoutMargin returns the point of the exact shape that is
// furthest along direction.
func (s Shape) LocalSupportPointWithoutMargin(direction rl.Vector3) (rl.Vector3, error) {
	if err := s.checkMargin(); err != nil {
		return rl.Vector3{}, err
	}
	return s.supportWithoutMargin(direction), nil
}

func (s Shape) supportWithoutMargin(direction rl.Vector3) rl.Vector3 {
	switch s.kind {
	case Box:
		return s.boxSupport(direction)
	case Sphere:
		return s.sphereSupport(direction)
	case Capsule:
		return s.capsuleSupport(direction)
	case Cone:
		return s.coneSupport(direction)
	case Cylinder:
		return s.cylinderSupport(direction)
	case ConvexMesh:
		return s.meshSupport(direction)
	default:
		panic(fmt.Sprintf("shape: unknown kind %d", s.kind))
	}
}

// LocalExtents returns the local half-extents of the shape inflated by
// margin. The result is used to build the body AABB.
func (s Shape) LocalExtents(margin float32) (rl.Vector3, error) {
	if margin < 0 {
		return rl.Vector3{}, fmt.Errorf("shape: %s extents margin %v: %w", s.kind, margin, ErrNegativeMargin)
	}
	var e rl.Vector3
	switch s.kind {
	case Box:
		e = s.extent
	case Sphere:
		e = rl.Vector3{X: s.radius, Y: s.radius, Z: s.radius}
	case Capsule:
		e = rl.Vector3{X: s.radius, Y: s.halfHeight + s.radius, Z: s.radius}
	case Cone, Cylinder:
		e = rl.Vector3{X: s.radius, Y: s.halfHeight, Z: s.radius}
	case ConvexMesh:
		e = s.mesh.halfExtents
	default:
		panic(fmt.Sprintf("shape: unknown kind %d", s.kind))
	}
	return rl.Vector3{X: e.X + margin, Y: e.Y + margin, Z: e.Z + margin}, nil
}

// LocalInertiaTensor returns the inertia tensor of a solid of the given total
// mass in the shape's local axes. The tensor lives in the upper-left 3x3 of
// the returned matrix; M15 is 1 so the matrix stays invertible with raymath.
func (s Shape) LocalInertiaTensor(mass float32) rl.Matrix {
	switch s.kind {
	case Box:
		return s.boxInertia(mass)
	case Sphere:
		d := 0.4 * mass * s.radius * s.radius
		return diagonal(d, d, d)
	case Capsule:
		return s.capsuleInertia(mass)
	case Cone:
		rr := s.radius * s.radius
		xz := 0.15 * mass * (rr + s.halfHeight*s.halfHeight)
		return diagonal(xz, 0.3*mass*rr, xz)
	case Cylinder:
		rr := s.radius * s.radius
		xz := (1.0 / 12.0) * mass * (3*rr + 4*s.halfHeight*s.halfHeight)
		return diagonal(xz, 0.5*mass*rr, xz)
	case ConvexMesh:
		return boxTensor(s.mesh.halfExtents, mass)
	default:
		panic(fmt.Sprintf("shape: unknown kind %d", s.kind))
	}
}

func (s Shape) String() string {
	switch s.kind {
	case Box:
		return fmt.Sprintf("box(%v, %v, %v)", s.extent.X, s.extent.Y, s.extent.Z)
	case Sphere:
		return fmt.Sprintf("sphere(r=%v)", s.radius)
	case Capsule, Cone, Cylinder:
		return fmt.Sprintf("%s(r=%v, h=%v)", s.kind, s.radius, s.halfHeight)
	case ConvexMesh:
		return fmt.Sprintf("convex_mesh(%d vertices)", len(s.mesh.vertices))
	default:
		return s.kind.String()
	}
}

func diagonal(xx, yy, zz float32) rl.Matrix {
	return rl.Matrix{M0: xx, M5: yy, M10: zz, M15: 1}
}

func unitOr(v, fallback rl.Vector3) rl.Vector3 {
	l := rl.Vector3Length(v)
	if l*l <= epsilon {
		return fallback
	}
	return rl.Vector3Scale(v, 1/l)
}

func checkDimension(name string, v float32) error {
	if v < 0 || math32.IsNaN(v) || math32.IsInf(v, 0) {
		return fmt.Errorf("shape: %s %v: %w", name, v, ErrInvalidDimension)
	}
	return nil
}
