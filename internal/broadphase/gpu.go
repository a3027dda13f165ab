package broadphase

import (
	"log"
	"slices"

	"collide3d/internal/compute"
	"collide3d/internal/physics"
)

// DefaultGPUThreshold is the body count at which the GPU path takes over.
// Below it the upload and readback cost more than a CPU sweep.
const DefaultGPUThreshold = 750

// OverlapDetector finds overlapping boxes given in upload order.
// *compute.OverlapDetector implements it.
type OverlapDetector interface {
	DetectPairs(boxes []compute.Box) ([]compute.CollisionPair, error)
	MaxObjects() int
}

// GPU batches every change and rebuilds the pair set in Flush. Pairs created
// by AddObject or UpdateObject appear only after the next Flush; removals
// take effect at once.
type GPU struct {
	pairs     *PairManager
	detector  OverlapDetector
	threshold int

	bodies []*physics.Body
	boxes  []physics.AABB
	index  map[physics.BodyID]int
	dirty  bool

	usingGPU bool
}

// NewGPU creates the deferred variant. A nil detector keeps every flush on
// the CPU.
func NewGPU(pairs *PairManager, detector OverlapDetector, threshold int) *GPU {
	if threshold <= 0 {
		threshold = DefaultGPUThreshold
	}
	return &GPU{
		pairs:     pairs,
		detector:  detector,
		threshold: threshold,
		index:     make(map[physics.BodyID]int),
	}
}

func (g *GPU) AddObject(body *physics.Body, aabb physics.AABB) error {
	if _, ok := g.index[body.ID()]; ok {
		return alreadyRegistered(body)
	}
	g.index[body.ID()] = len(g.bodies)
	g.bodies = append(g.bodies, body)
	g.boxes = append(g.boxes, aabb)
	g.dirty = true
	return nil
}

func (g *GPU) RemoveObject(body *physics.Body) error {
	i, ok := g.index[body.ID()]
	if !ok {
		return notRegistered(body)
	}
	g.pairs.RemovePairsOf(body.ID())
	g.bodies = slices.Delete(g.bodies, i, i+1)
	g.boxes = slices.Delete(g.boxes, i, i+1)
	delete(g.index, body.ID())
	for j := i; j < len(g.bodies); j++ {
		g.index[g.bodies[j].ID()] = j
	}
	return nil
}

func (g *GPU) UpdateObject(body *physics.Body, aabb physics.AABB) error {
	i, ok := g.index[body.ID()]
	if !ok {
		return notRegistered(body)
	}
	g.boxes[i] = aabb
	g.dirty = true
	return nil
}

// Flush recomputes every overlap and reconciles the pair manager with it.
// A GPU failure falls back to the CPU sweep for this flush.
func (g *GPU) Flush() error {
	if !g.dirty {
		return nil
	}

	overlaps := g.overlaps()
	want := make(map[Pair]struct{}, len(overlaps))
	for _, p := range overlaps {
		a, b := g.bodies[p.A], g.bodies[p.B]
		if Eligible(a, b) {
			want[MakePair(a.ID(), b.ID())] = struct{}{}
		}
	}

	for _, bp := range g.pairs.Pairs() {
		if _, ok := want[bp.Pair]; !ok {
			g.pairs.RemovePair(bp.A, bp.B)
		}
	}
	for key := range want {
		a, b := g.bodies[g.index[key.A]], g.bodies[g.index[key.B]]
		if _, err := g.pairs.AddPair(a, b); err != nil {
			return err
		}
	}

	g.dirty = false
	return nil
}

func (g *GPU) overlaps() []compute.CollisionPair {
	n := len(g.boxes)
	gpu := g.detector != nil && n >= g.threshold && n <= g.detector.MaxObjects()
	if gpu != g.usingGPU {
		if gpu {
			log.Printf("Broadphase: switching to GPU (%d bodies)", n)
		} else {
			log.Printf("Broadphase: switching to CPU (%d bodies)", n)
		}
		g.usingGPU = gpu
	}
	if gpu {
		pairs, err := g.detector.DetectPairs(packBoxes(g.boxes))
		if err == nil {
			return pairs
		}
		log.Printf("Broadphase: GPU overlap failed, using CPU: %v", err)
	}
	return sweep(g.boxes)
}

func sweep(boxes []physics.AABB) []compute.CollisionPair {
	var out []compute.CollisionPair
	for i := range boxes {
		for j := i + 1; j < len(boxes); j++ {
			if boxes[i].Intersects(boxes[j]) {
				out = append(out, compute.CollisionPair{A: uint32(i), B: uint32(j)})
			}
		}
	}
	return out
}

func packBoxes(boxes []physics.AABB) []compute.Box {
	out := make([]compute.Box, len(boxes))
	for i, b := range boxes {
		out[i] = compute.Box{
			MinX: b.Min.X, MinY: b.Min.Y, MinZ: b.Min.Z,
			MaxX: b.Max.X, MaxY: b.Max.Y, MaxZ: b.Max.Z,
		}
	}
	return out
}

// Len returns the number of tracked bodies.
func (g *GPU) Len() int { return len(g.bodies) }

// UsingGPU reports whether the last flush ran on the GPU.
func (g *GPU) UsingGPU() bool { return g.usingGPU }
