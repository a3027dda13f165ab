package broadphase

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"collide3d/internal/physics"

	rl "github.com/gen2brain/raylib-go/raylib"
)

func TestGridPairsOverlapping(t *testing.T) {
	m := NewPairManager()
	g := NewGrid(m, 2, 0)

	a := newBody(t, 0, rl.Vector3{}, true)
	b := newBody(t, 1, rl.Vector3{X: 1.5}, true)
	c := newBody(t, 2, rl.Vector3{X: 20}, true)
	for _, body := range []*physics.Body{a, b, c} {
		if err := g.AddObject(body, body.AABB()); err != nil {
			t.Fatalf("AddObject failed: %v", err)
		}
	}

	if m.Len() != 1 || !m.Contains(0, 1) {
		t.Errorf("Expected only {0,1}, got %v", pairKeys(m))
	}
}

func TestGridUpdateMovesPairs(t *testing.T) {
	m := NewPairManager()
	g := NewGrid(m, 2, 0)

	a := newBody(t, 0, rl.Vector3{}, true)
	b := newBody(t, 1, rl.Vector3{X: 1.5}, false)
	c := newBody(t, 2, rl.Vector3{X: 20}, false)
	for _, body := range []*physics.Body{a, b, c} {
		g.AddObject(body, body.AABB())
	}

	tr := a.Transform()
	tr.Position = rl.Vector3{X: 19}
	a.SetTransform(tr)
	aabb, err := a.RecomputeAABB()
	if err != nil {
		t.Fatalf("RecomputeAABB failed: %v", err)
	}
	if err := g.UpdateObject(a, aabb); err != nil {
		t.Fatalf("UpdateObject failed: %v", err)
	}

	if m.Contains(0, 1) {
		t.Error("Pair {0,1} should be gone once A moved away")
	}
	if !m.Contains(0, 2) {
		t.Error("Pair {0,2} should exist once A overlaps C")
	}
	if m.Len() != 1 {
		t.Errorf("Expected 1 pair, got %v", pairKeys(m))
	}
}

func TestGridRemove(t *testing.T) {
	m := NewPairManager()
	g := NewGrid(m, 5, 0)

	a := newBody(t, 0, rl.Vector3{}, true)
	b := newBody(t, 1, rl.Vector3{}, true)
	g.AddObject(a, a.AABB())
	g.AddObject(b, b.AABB())

	if err := g.RemoveObject(a); err != nil {
		t.Fatalf("RemoveObject failed: %v", err)
	}
	if m.Len() != 0 {
		t.Errorf("Expected no pairs, got %v", pairKeys(m))
	}
	if err := g.RemoveObject(a); !errors.Is(err, ErrNotRegistered) {
		t.Errorf("Expected ErrNotRegistered, got %v", err)
	}
	if err := g.UpdateObject(a, a.AABB()); !errors.Is(err, ErrNotRegistered) {
		t.Errorf("Expected ErrNotRegistered, got %v", err)
	}
	if err := g.AddObject(b, b.AABB()); !errors.Is(err, ErrAlreadyRegistered) {
		t.Errorf("Expected ErrAlreadyRegistered, got %v", err)
	}
	if g.Len() != 1 {
		t.Errorf("Expected 1 body, got %d", g.Len())
	}
}

func TestGridOversizedBody(t *testing.T) {
	m := NewPairManager()
	g := NewGrid(m, 1, 64)

	ground := newBody(t, 0, rl.Vector3{}, false)
	huge := physics.AABB{
		Min: rl.Vector3{X: float32(math.Inf(-1)), Y: -1, Z: float32(math.Inf(-1))},
		Max: rl.Vector3{X: float32(math.Inf(1)), Y: 0, Z: float32(math.Inf(1))},
	}
	if err := g.AddObject(ground, huge); err != nil {
		t.Fatalf("AddObject failed: %v", err)
	}
	if g.CellCount() != 0 {
		t.Errorf("Oversized body should not occupy cells, got %d", g.CellCount())
	}

	a := newBody(t, 1, rl.Vector3{X: 500, Z: -300}, true)
	g.AddObject(a, a.AABB())
	if !m.Contains(0, 1) {
		t.Error("Body resting on the ground plane should pair with it")
	}
}

func TestGridFarAwayBodies(t *testing.T) {
	m := NewPairManager()
	g := NewGrid(m, 1, 64)

	far := rl.Vector3{X: 1e30, Y: -1e30}
	a := newBody(t, 0, far, true)
	b := newBody(t, 1, far, true)
	c := newBody(t, 2, rl.Vector3{}, true)
	for _, body := range []*physics.Body{a, b, c} {
		if err := g.AddObject(body, body.AABB()); err != nil {
			t.Fatalf("AddObject failed: %v", err)
		}
	}

	// Only c is hashed: its box covers cells -1..1 on each axis.
	if g.CellCount() != 27 {
		t.Errorf("Expected 27 occupied cells, got %d", g.CellCount())
	}
	if m.Len() != 1 || !m.Contains(0, 1) {
		t.Errorf("Expected only {0,1}, got %v", pairKeys(m))
	}

	tr := a.Transform()
	tr.Position = rl.Vector3{X: 0.5}
	a.SetTransform(tr)
	aabb, _ := a.RecomputeAABB()
	if err := g.UpdateObject(a, aabb); err != nil {
		t.Fatalf("UpdateObject failed: %v", err)
	}
	if m.Contains(0, 1) || !m.Contains(0, 2) {
		t.Errorf("Expected only {0,2} after the move, got %v", pairKeys(m))
	}
}

// The grid must agree with a brute-force AABB sweep.
func TestGridMatchesSweep(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	m := NewPairManager()
	g := NewGrid(m, 3, 0)

	var bodies []*physics.Body
	for i := range 60 {
		pos := rl.Vector3{X: rng.Float32() * 30, Y: rng.Float32() * 30, Z: rng.Float32() * 30}
		body := newBody(t, physics.BodyID(i), pos, i%4 != 0)
		bodies = append(bodies, body)
		g.AddObject(body, body.AABB())
	}

	// Move half of them and check again.
	for step := range 2 {
		for i, x := range bodies {
			for j := i + 1; j < len(bodies); j++ {
				y := bodies[j]
				want := Eligible(x, y) && x.AABB().Intersects(y.AABB())
				if got := m.Contains(x.ID(), y.ID()); got != want {
					t.Errorf("Step %d pair (%d,%d): expected %v, got %v", step, i, j, want, got)
				}
			}
		}
		for _, body := range bodies[:30] {
			tr := body.Transform()
			tr.Position = rl.Vector3{X: rng.Float32() * 30, Y: rng.Float32() * 30, Z: rng.Float32() * 30}
			body.SetTransform(tr)
			aabb, _ := body.RecomputeAABB()
			g.UpdateObject(body, aabb)
		}
	}
}
