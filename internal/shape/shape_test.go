package shape

import (
	"errors"
	"math"
	"testing"

	rl "github.com/gen2brain/raylib-go/raylib"
)

func mustShape(t *testing.T) func(Shape, error) Shape {
	return func(s Shape, err error) Shape {
		t.Helper()
		if err != nil {
			t.Fatalf("failed to build shape: %v", err)
		}
		return s
	}
}

func near(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-5
}

func nearVec(a, b rl.Vector3) bool {
	return near(a.X, b.X) && near(a.Y, b.Y) && near(a.Z, b.Z)
}

func TestBoxSupportDirectionality(t *testing.T) {
	box := mustShape(t)(NewBox(rl.Vector3{X: 1, Y: 2, Z: 3}, 0))

	tests := []struct {
		name string
		dir  rl.Vector3
		want rl.Vector3
	}{
		{"all positive", rl.Vector3{X: 1, Y: 1, Z: 1}, rl.Vector3{X: 1, Y: 2, Z: 3}},
		{"mixed", rl.Vector3{X: -1, Y: 1, Z: -1}, rl.Vector3{X: -1, Y: 2, Z: -3}},
		{"zero picks positive", rl.Vector3{}, rl.Vector3{X: 1, Y: 2, Z: 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := box.LocalSupportPointWithMargin(tt.dir)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
			got, err = box.LocalSupportPointWithoutMargin(tt.dir)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("without margin: expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestBoxSupportMarginIsPerAxis(t *testing.T) {
	box := mustShape(t)(NewBox(rl.Vector3{X: 1, Y: 2, Z: 3}, 0.5))

	got, err := box.LocalSupportPointWithMargin(rl.Vector3{X: -1, Y: 0.1, Z: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := rl.Vector3{X: -1.5, Y: 2.5, Z: 3.5}
	if got != want {
		t.Errorf("Expected %v, got %v", want, got)
	}

	exact, _ := box.LocalSupportPointWithoutMargin(rl.Vector3{X: -1, Y: 0.1, Z: 1})
	if exact != (rl.Vector3{X: -1, Y: 2, Z: 3}) {
		t.Errorf("Expected exact corner, got %v", exact)
	}
}

func TestBoxInertia(t *testing.T) {
	box := mustShape(t)(NewBox(rl.Vector3{X: 1, Y: 1, Z: 1}, 0))
	m := box.LocalInertiaTensor(6)

	if m.M0 != 4 || m.M5 != 4 || m.M10 != 4 {
		t.Errorf("Expected diag(4,4,4), got diag(%v,%v,%v)", m.M0, m.M5, m.M10)
	}
	for name, v := range map[string]float32{
		"M1": m.M1, "M2": m.M2, "M4": m.M4, "M6": m.M6, "M8": m.M8, "M9": m.M9,
	} {
		if v != 0 {
			t.Errorf("Expected off-diagonal %s to be exactly 0, got %v", name, v)
		}
	}
}

func TestFlatBoxInertia(t *testing.T) {
	box := mustShape(t)(NewBox(rl.Vector3{X: 1, Y: 2, Z: 0}, 0))
	m := box.LocalInertiaTensor(3)

	// Only the terms that use the z extent lose a contribution.
	if m.M0 != 4 || m.M5 != 1 || m.M10 != 5 {
		t.Errorf("Expected diag(4,1,5), got diag(%v,%v,%v)", m.M0, m.M5, m.M10)
	}
}

func TestBoxLocalExtents(t *testing.T) {
	box := mustShape(t)(NewBox(rl.Vector3{X: 1, Y: 2, Z: 3}, 0.04))

	got, err := box.LocalExtents(0.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != (rl.Vector3{X: 1.5, Y: 2.5, Z: 3.5}) {
		t.Errorf("Expected (1.5,2.5,3.5), got %v", got)
	}

	if _, err := box.LocalExtents(-1); !errors.Is(err, ErrNegativeMargin) {
		t.Errorf("Expected ErrNegativeMargin, got %v", err)
	}
}

func TestNegativeMarginFailsSupport(t *testing.T) {
	box := mustShape(t)(NewBox(rl.Vector3{X: 1, Y: 1, Z: 1}, 0.04)).WithMargin(-0.01)

	p, err := box.LocalSupportPointWithMargin(rl.Vector3{X: 1})
	if !errors.Is(err, ErrNegativeMargin) {
		t.Fatalf("Expected ErrNegativeMargin, got %v", err)
	}
	if !errors.Is(err, ErrPrecondition) {
		t.Errorf("Expected error to be a precondition violation, got %v", err)
	}
	if p != (rl.Vector3{}) {
		t.Errorf("Expected no value on failure, got %v", p)
	}

	if _, err := box.LocalSupportPointWithoutMargin(rl.Vector3{X: 1}); !errors.Is(err, ErrNegativeMargin) {
		t.Errorf("Expected ErrNegativeMargin without margin too, got %v", err)
	}
}

func TestNegativeDimensionRejected(t *testing.T) {
	if _, err := NewBox(rl.Vector3{X: -1, Y: 1, Z: 1}, 0); !errors.Is(err, ErrInvalidDimension) {
		t.Errorf("Expected ErrInvalidDimension for box, got %v", err)
	}
	if _, err := NewSphere(-1, 0); !errors.Is(err, ErrInvalidDimension) {
		t.Errorf("Expected ErrInvalidDimension for sphere, got %v", err)
	}
	if _, err := NewCapsule(1, -2, 0); !errors.Is(err, ErrInvalidDimension) {
		t.Errorf("Expected ErrInvalidDimension for capsule, got %v", err)
	}
	if _, err := NewConvexMesh(nil, 0); !errors.Is(err, ErrEmptyMesh) {
		t.Errorf("Expected ErrEmptyMesh, got %v", err)
	}
}

func TestWithExtentReturnsNewValue(t *testing.T) {
	box := mustShape(t)(NewBox(rl.Vector3{X: 1, Y: 1, Z: 1}, 0.1))
	bigger := mustShape(t)(box.WithExtent(rl.Vector3{X: 2, Y: 2, Z: 2}))

	if box.Extent() != (rl.Vector3{X: 1, Y: 1, Z: 1}) {
		t.Errorf("Original box was modified: %v", box.Extent())
	}
	if bigger.Extent() != (rl.Vector3{X: 2, Y: 2, Z: 2}) {
		t.Errorf("Expected new extent, got %v", bigger.Extent())
	}
	if bigger.Margin() != 0.1 {
		t.Errorf("Expected margin to carry over, got %v", bigger.Margin())
	}
}

func TestSphereSupport(t *testing.T) {
	sphere := mustShape(t)(NewSphere(2, 0.5))

	got, _ := sphere.LocalSupportPointWithoutMargin(rl.Vector3{X: 0, Y: 0, Z: -10})
	if !nearVec(got, rl.Vector3{Z: -2}) {
		t.Errorf("Expected (0,0,-2), got %v", got)
	}
	got, _ = sphere.LocalSupportPointWithMargin(rl.Vector3{X: 3, Y: 4})
	if !nearVec(got, rl.Vector3{X: 1.5, Y: 2}) {
		t.Errorf("Expected (1.5,2,0), got %v", got)
	}
	got, _ = sphere.LocalSupportPointWithoutMargin(rl.Vector3{})
	if !nearVec(got, rl.Vector3{Y: 2}) {
		t.Errorf("Expected zero direction to fall back to +Y, got %v", got)
	}

	m := sphere.LocalInertiaTensor(5)
	if !near(m.M0, 8) || !near(m.M5, 8) || !near(m.M10, 8) {
		t.Errorf("Expected diag(8,8,8), got diag(%v,%v,%v)", m.M0, m.M5, m.M10)
	}
}

func TestCapsuleSupportAndExtents(t *testing.T) {
	capsule := mustShape(t)(NewCapsule(1, 2, 0))

	got, _ := capsule.LocalSupportPointWithoutMargin(rl.Vector3{Y: 1})
	if !nearVec(got, rl.Vector3{Y: 3}) {
		t.Errorf("Expected top cap (0,3,0), got %v", got)
	}
	got, _ = capsule.LocalSupportPointWithoutMargin(rl.Vector3{X: 1, Y: -1e-7})
	if !nearVec(got, rl.Vector3{X: 1, Y: -2}) {
		t.Errorf("Expected lower side point, got %v", got)
	}

	ext, _ := capsule.LocalExtents(0.1)
	if !nearVec(ext, rl.Vector3{X: 1.1, Y: 3.1, Z: 1.1}) {
		t.Errorf("Expected (1.1,3.1,1.1), got %v", ext)
	}
}

func TestCapsuleWithoutHeightIsSphere(t *testing.T) {
	capsule := mustShape(t)(NewCapsule(1, 0, 0))
	sphere := mustShape(t)(NewSphere(1, 0))

	c := capsule.LocalInertiaTensor(10)
	s := sphere.LocalInertiaTensor(10)
	if !near(c.M0, s.M0) || !near(c.M5, s.M5) || !near(c.M10, s.M10) {
		t.Errorf("Expected sphere tensor %v, got %v", s, c)
	}
}

func TestConeSupport(t *testing.T) {
	cone := mustShape(t)(NewCone(1, 1, 0))

	tests := []struct {
		name string
		dir  rl.Vector3
		want rl.Vector3
	}{
		{"apex", rl.Vector3{Y: 1}, rl.Vector3{Y: 1}},
		{"rim", rl.Vector3{X: 1}, rl.Vector3{X: 1, Y: -1}},
		{"base centre", rl.Vector3{Y: -1}, rl.Vector3{Y: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cone.LocalSupportPointWithoutMargin(tt.dir)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !nearVec(got, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestCylinderSupportAndInertia(t *testing.T) {
	cyl := mustShape(t)(NewCylinder(2, 1, 0))

	got, _ := cyl.LocalSupportPointWithoutMargin(rl.Vector3{X: 0, Y: -1, Z: 5})
	if !nearVec(got, rl.Vector3{Y: -1, Z: 2}) {
		t.Errorf("Expected (0,-1,2), got %v", got)
	}
	got, _ = cyl.LocalSupportPointWithoutMargin(rl.Vector3{Y: 1})
	if !nearVec(got, rl.Vector3{Y: 1}) {
		t.Errorf("Expected axis endpoint, got %v", got)
	}

	m := cyl.LocalInertiaTensor(12)
	// (1/12)*12*(3*4 + 4*1) = 16 and 0.5*12*4 = 24
	if !near(m.M0, 16) || !near(m.M5, 24) || !near(m.M10, 16) {
		t.Errorf("Expected diag(16,24,16), got diag(%v,%v,%v)", m.M0, m.M5, m.M10)
	}
}

func cubeVertices() []rl.Vector3 {
	var vs []rl.Vector3
	for _, x := range []float32{-1, 1} {
		for _, y := range []float32{-1, 1} {
			for _, z := range []float32{-1, 1} {
				vs = append(vs, rl.Vector3{X: x, Y: y, Z: z})
			}
		}
	}
	return vs
}

func cubeEdges(vs []rl.Vector3) [][2]int {
	var edges [][2]int
	for i := range vs {
		for j := i + 1; j < len(vs); j++ {
			diff := 0
			if vs[i].X != vs[j].X {
				diff++
			}
			if vs[i].Y != vs[j].Y {
				diff++
			}
			if vs[i].Z != vs[j].Z {
				diff++
			}
			if diff == 1 {
				edges = append(edges, [2]int{i, j})
			}
		}
	}
	return edges
}

func TestConvexMeshSupport(t *testing.T) {
	vs := append(cubeVertices(), rl.Vector3{}) // interior point never wins
	brute := mustShape(t)(NewConvexMesh(vs, 0))
	climbing := mustShape(t)(NewConvexMeshWithEdges(vs[:8], cubeEdges(vs[:8]), 0))

	dirs := []rl.Vector3{
		{X: 1, Y: 1, Z: 1}, {X: -1, Y: 2, Z: -3}, {X: 0.2, Y: -1, Z: 0.4}, {X: -1, Y: -1, Z: -1},
	}
	for _, d := range dirs {
		want := rl.Vector3{X: signed(d.X, 1), Y: signed(d.Y, 1), Z: signed(d.Z, 1)}
		if got, _ := brute.LocalSupportPointWithoutMargin(d); got != want {
			t.Errorf("brute force %v: expected %v, got %v", d, want, got)
		}
		if got, _ := climbing.LocalSupportPointWithoutMargin(d); got != want {
			t.Errorf("hill climb %v: expected %v, got %v", d, want, got)
		}
	}
}

func TestConvexMeshMatchesBoxInertia(t *testing.T) {
	mesh := mustShape(t)(NewConvexMesh(cubeVertices(), 0))
	box := mustShape(t)(NewBox(rl.Vector3{X: 1, Y: 1, Z: 1}, 0))

	if mesh.LocalInertiaTensor(6) != box.LocalInertiaTensor(6) {
		t.Errorf("Expected cube mesh tensor to match box tensor")
	}
	ext, _ := mesh.LocalExtents(0)
	if ext != (rl.Vector3{X: 1, Y: 1, Z: 1}) {
		t.Errorf("Expected unit extents, got %v", ext)
	}
}

func TestConvexMeshCopiesVertices(t *testing.T) {
	vs := cubeVertices()
	mesh := mustShape(t)(NewConvexMesh(vs, 0))
	vs[0] = rl.Vector3{X: 100}

	for _, v := range mesh.Vertices() {
		if v.X == 100 {
			t.Fatal("mesh aliases the caller's vertex slice")
		}
	}
}

func TestRoundedMarginOnNonBoxShapes(t *testing.T) {
	cyl := mustShape(t)(NewCylinder(1, 1, 0.5))
	got, _ := cyl.LocalSupportPointWithMargin(rl.Vector3{X: 1})
	if !nearVec(got, rl.Vector3{X: 1.5, Y: 1}) {
		t.Errorf("Expected (1.5,1,0), got %v", got)
	}
}

func TestParseKind(t *testing.T) {
	for _, k := range []Kind{Box, Sphere, Capsule, Cone, Cylinder, ConvexMesh} {
		got, err := ParseKind(k.String())
		if err != nil {
			t.Fatalf("ParseKind(%q) failed: %v", k.String(), err)
		}
		if got != k {
			t.Errorf("Expected %v, got %v", k, got)
		}
	}
	if _, err := ParseKind("torus"); err == nil {
		t.Error("Expected error for unknown kind")
	}
}
