// Package physics holds the collision bodies the broad phase tracks: their
// identity, placement, colliders and bounding boxes.
package physics

import (
	"fmt"

	"collide3d/internal/shape"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// ErrPrecondition is shared with the shape package so a single errors.Is
// check covers every contract violation.
var ErrPrecondition = shape.ErrPrecondition

var (
	ErrNoColliders   = fmt.Errorf("%w: body has no colliders", ErrPrecondition)
	ErrColliderIndex = fmt.Errorf("%w: collider index out of range", ErrPrecondition)
)

// Collider attaches a shape to a body at a local offset. Mass is the share of
// the body mass carried by this collider.
type Collider struct {
	Shape  shape.Shape
	Offset rl.Vector3
	Mass   float32
}

// Body is a collision body. Static bodies never move; a pair of static
// bodies is never reported.
type Body struct {
	Name string

	id        BodyID
	movable   bool
	transform Transform
	colliders []Collider

	aabb  AABB
	stale bool
}

// NewBody creates a body with at least one collider. The AABB is computed
// immediately.
func NewBody(id BodyID, transform Transform, movable bool, colliders ...Collider) (*Body, error) {
	if len(colliders) == 0 {
		return nil, fmt.Errorf("physics: body %d: %w", id, ErrNoColliders)
	}
	b := &Body{
		id:        id,
		movable:   movable,
		transform: transform,
		colliders: append([]Collider(nil), colliders...),
		stale:     true,
	}
	if _, err := b.RecomputeAABB(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Body) ID() BodyID { return b.id }

// IsMovable reports whether the body can change pose during simulation.
func (b *Body) IsMovable() bool { return b.movable }

func (b *Body) Transform() Transform { return b.transform }

// SetTransform moves the body. The cached AABB is stale until recomputed.
func (b *Body) SetTransform(t Transform) {
	b.transform = t
	b.stale = true
}

// Colliders returns a copy of the body's colliders.
func (b *Body) Colliders() []Collider {
	return append([]Collider(nil), b.colliders...)
}

func (b *Body) ColliderCount() int { return len(b.colliders) }

func (b *Body) Collider(i int) Collider { return b.colliders[i] }

// ReplaceShape swaps the shape of collider i. The cached AABB is stale until
// recomputed.
func (b *Body) ReplaceShape(i int, s shape.Shape) error {
	if i < 0 || i >= len(b.colliders) {
		return fmt.Errorf("physics: body %d collider %d: %w", b.id, i, ErrColliderIndex)
	}
	b.colliders[i].Shape = s
	b.stale = true
	return nil
}

// AABB returns the cached world-space bounding box.
func (b *Body) AABB() AABB { return b.aabb }

// Stale reports whether the transform or a shape changed since the AABB was
// last computed.
func (b *Body) Stale() bool { return b.stale }

// RecomputeAABB rebuilds the world-space AABB from every collider inflated by
// its margin.
func (b *Body) RecomputeAABB() (AABB, error) {
	axes := b.transform.axes()
	box := EmptyAABB()
	for i, c := range b.colliders {
		local, err := c.Shape.LocalExtents(c.Shape.Margin())
		if err != nil {
			return b.aabb, fmt.Errorf("physics: body %d collider %d: %w", b.id, i, err)
		}
		// Half-extents of a rotated box: project every local axis onto the
		// world axes and sum the absolute contributions.
		half := rl.Vector3{
			X: absf(axes[0].X)*local.X + absf(axes[1].X)*local.Y + absf(axes[2].X)*local.Z,
			Y: absf(axes[0].Y)*local.X + absf(axes[1].Y)*local.Y + absf(axes[2].Y)*local.Z,
			Z: absf(axes[0].Z)*local.X + absf(axes[1].Z)*local.Y + absf(axes[2].Z)*local.Z,
		}
		box = box.Merge(NewAABBFromCenter(b.transform.Apply(c.Offset), half))
	}
	b.aabb = box
	b.stale = false
	return box, nil
}

// WorldSupport returns the world-space support point of collider i, margin
// included, along a world-space direction.
func (b *Body) WorldSupport(i int, direction rl.Vector3) (rl.Vector3, error) {
	c := b.colliders[i]
	p, err := c.Shape.LocalSupportPointWithMargin(b.transform.ToLocalDirection(direction))
	if err != nil {
		return rl.Vector3{}, fmt.Errorf("physics: body %d collider %d: %w", b.id, i, err)
	}
	return b.transform.Apply(rl.Vector3Add(c.Offset, p)), nil
}

// WorldCenter returns the world-space position of collider i.
func (b *Body) WorldCenter(i int) rl.Vector3 {
	return b.transform.Apply(b.colliders[i].Offset)
}

func (b *Body) String() string {
	if b.Name != "" {
		return fmt.Sprintf("%s#%d", b.Name, b.id)
	}
	return fmt.Sprintf("#%d", b.id)
}

func absf(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
