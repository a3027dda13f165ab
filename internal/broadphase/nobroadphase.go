package broadphase

import (
	"slices"

	"collide3d/internal/physics"
)

// NoBroadPhase pairs every movable body with every other body and never
// looks at AABBs. It is the reference every culling strategy is checked
// against and the fallback when culling is disabled.
type NoBroadPhase struct {
	pairs  *PairManager
	bodies []*physics.Body
	index  map[physics.BodyID]int
}

func NewNoBroadPhase(pairs *PairManager) *NoBroadPhase {
	return &NoBroadPhase{
		pairs: pairs,
		index: make(map[physics.BodyID]int),
	}
}

// AddObject ignores aabb.
func (n *NoBroadPhase) AddObject(body *physics.Body, _ physics.AABB) error {
	if _, ok := n.index[body.ID()]; ok {
		return alreadyRegistered(body)
	}
	for _, other := range n.bodies {
		if !Eligible(body, other) {
			continue
		}
		if _, err := n.pairs.AddPair(other, body); err != nil {
			return err
		}
	}
	n.index[body.ID()] = len(n.bodies)
	n.bodies = append(n.bodies, body)
	return nil
}

func (n *NoBroadPhase) RemoveObject(body *physics.Body) error {
	i, ok := n.index[body.ID()]
	if !ok {
		return notRegistered(body)
	}
	for _, other := range n.bodies {
		if other.ID() != body.ID() {
			n.pairs.RemovePair(other.ID(), body.ID())
		}
	}
	n.bodies = slices.Delete(n.bodies, i, i+1)
	delete(n.index, body.ID())
	for j := i; j < len(n.bodies); j++ {
		n.index[n.bodies[j].ID()] = j
	}
	return nil
}

// UpdateObject does nothing beyond checking registration; pairs do not depend
// on AABBs here.
func (n *NoBroadPhase) UpdateObject(body *physics.Body, _ physics.AABB) error {
	if _, ok := n.index[body.ID()]; !ok {
		return notRegistered(body)
	}
	return nil
}

// Len returns the number of tracked bodies.
func (n *NoBroadPhase) Len() int { return len(n.bodies) }
