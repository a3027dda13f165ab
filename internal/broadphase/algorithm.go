// Package broadphase finds the pairs of bodies that may be touching and keeps
// them in a PairManager. Every strategy follows the same contract: adding a
// body pairs it with the eligible bodies already registered, removing it
// drops all of its pairs, and updating it reacts to a new AABB.
package broadphase

import (
	"fmt"

	"collide3d/internal/physics"
)

var (
	ErrNotRegistered     = fmt.Errorf("%w: body is not registered with the broad phase", physics.ErrPrecondition)
	ErrAlreadyRegistered = fmt.Errorf("%w: body is already registered with the broad phase", physics.ErrPrecondition)
)

// Algorithm is a broad-phase strategy. Calls happen on the goroutine that
// owns the simulation step.
type Algorithm interface {
	AddObject(body *physics.Body, aabb physics.AABB) error
	RemoveObject(body *physics.Body) error
	UpdateObject(body *physics.Body, aabb physics.AABB) error
}

// Flusher is implemented by strategies that defer pair discovery. The owner
// calls Flush once all add/remove/update calls of a step are done and before
// reading the pair set.
type Flusher interface {
	Flush() error
}

// Eligible reports whether two bodies may form a pair: at least one of them
// must be movable.
func Eligible(a, b *physics.Body) bool {
	return a.IsMovable() || b.IsMovable()
}

func notRegistered(b *physics.Body) error {
	return fmt.Errorf("broadphase: body %d: %w", b.ID(), ErrNotRegistered)
}

func alreadyRegistered(b *physics.Body) error {
	return fmt.Errorf("broadphase: body %d: %w", b.ID(), ErrAlreadyRegistered)
}
