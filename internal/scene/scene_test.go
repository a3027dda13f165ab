package scene

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"collide3d/internal/physics"
	"collide3d/internal/shape"

	rl "github.com/gen2brain/raylib-go/raylib"
)

const sample = `{
  "bodies": [
    {
      "name": "ground",
      "position": [0, -1, 0],
      "static": true,
      "colliders": [{"type": "box", "extents": [10, 1, 10]}]
    },
    {
      "name": "ball",
      "position": [0, 1, 0],
      "colliders": [{"type": "sphere", "radius": 0.5, "mass": 2}]
    },
    {
      "name": "pill",
      "position": [3, 1, 0],
      "rotation": [0, 0, 90],
      "colliders": [
        {"type": "capsule", "radius": 0.25, "halfHeight": 0.5, "margin": 0},
        {"type": "cone", "radius": 0.5, "halfHeight": 0.5, "offset": [0, 1, 0]}
      ]
    }
  ]
}`

func near(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-4
}

func TestBuild(t *testing.T) {
	f, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	var pool physics.IDPool
	bodies, err := f.Build(&pool, 0.1)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(bodies) != 3 {
		t.Fatalf("Expected 3 bodies, got %d", len(bodies))
	}

	ground, ball, pill := bodies[0], bodies[1], bodies[2]
	if ground.ID() != 0 || ball.ID() != 1 || pill.ID() != 2 {
		t.Errorf("Expected IDs 0,1,2, got %d,%d,%d", ground.ID(), ball.ID(), pill.ID())
	}
	if ground.IsMovable() || !ball.IsMovable() {
		t.Error("Static flag not applied")
	}
	if ground.Name != "ground" {
		t.Errorf("Expected name ground, got %q", ground.Name)
	}

	// Box extents 10 plus the scene margin 0.1.
	if got := ground.AABB().Max.X; !near(got, 10.1) {
		t.Errorf("Expected ground max X 10.1, got %v", got)
	}
	if m := ball.Collider(0).Mass; m != 2 {
		t.Errorf("Expected mass 2, got %v", m)
	}
	if m := ground.Collider(0).Mass; m != 1 {
		t.Errorf("Expected default mass 1, got %v", m)
	}
	if got := pill.Collider(0).Shape.Margin(); got != 0 {
		t.Errorf("Expected margin override 0, got %v", got)
	}
	if got := pill.Collider(1).Shape.Kind(); got != shape.Cone {
		t.Errorf("Expected cone, got %v", got)
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte(`{"bodies": [{"positon": [0,0,0]}]}`))
	if err == nil {
		t.Error("Expected an error for a misspelled field")
	}
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name string
		json string
		want error
	}{
		{"unknown type", `{"bodies":[{"colliders":[{"type":"torus"}]}]}`, nil},
		{"no colliders", `{"bodies":[{"colliders":[]}]}`, physics.ErrNoColliders},
		{"negative radius", `{"bodies":[{"colliders":[{"type":"sphere","radius":-1}]}]}`, shape.ErrInvalidDimension},
		{"empty mesh", `{"bodies":[{"colliders":[{"type":"convex_mesh"}]}]}`, shape.ErrEmptyMesh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Parse([]byte(tt.json))
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			var pool physics.IDPool
			_, err = f.Build(&pool, 0)
			if err == nil {
				t.Fatal("Expected an error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestBuildErrorReleasesIDs(t *testing.T) {
	f, err := Parse([]byte(`{"bodies":[
		{"colliders":[{"type":"sphere","radius":1}]},
		{"colliders":[{"type":"sphere","radius":1}]},
		{"colliders":[{"type":"sphere","radius":-1}]}
	]}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	var pool physics.IDPool
	keep := pool.Acquire()
	if _, err := f.Build(&pool, 0); err == nil {
		t.Fatal("Expected an error")
	}

	// IDs 1, 2 and 3 were taken and must all be free again.
	for _, want := range []physics.BodyID{1, 2, 3} {
		if got := pool.Acquire(); got != want {
			t.Errorf("Expected ID %d, got %d", want, got)
		}
	}
	if got := pool.Acquire(); got != 4 {
		t.Errorf("Expected a fresh ID 4, got %d", got)
	}
	if keep != 0 {
		t.Errorf("Expected the first ID to be 0, got %d", keep)
	}
}

func TestSDFCollider(t *testing.T) {
	f, err := Parse([]byte(`{"bodies":[{"colliders":[{"type":"sdf_box","size":[2,2,2],"round":0.2,"cells":12}]}]}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	var pool physics.IDPool
	bodies, err := f.Build(&pool, 0)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	s := bodies[0].Collider(0).Shape
	if s.Kind() != shape.ConvexMesh {
		t.Fatalf("Expected convex mesh, got %v", s.Kind())
	}
	ext, _ := s.LocalExtents(0)
	if ext.X < 0.8 || ext.X > 1.1 {
		t.Errorf("Expected X extent near 1, got %v", ext.X)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	f, _ := Parse([]byte(sample))
	var pool physics.IDPool
	bodies, err := f.Build(&pool, 0.05)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	out := &File{}
	for _, b := range bodies {
		out.Bodies = append(out.Bodies, Describe(b))
	}
	path := filepath.Join(t.TempDir(), "scene.json")
	if err := out.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	var pool2 physics.IDPool
	again, err := loaded.Build(&pool2, 1)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	for i := range bodies {
		a, b := bodies[i].AABB(), again[i].AABB()
		if !near(a.Min.X, b.Min.X) || !near(a.Max.Y, b.Max.Y) || !near(a.Max.Z, b.Max.Z) {
			t.Errorf("Body %d: expected AABB %v, got %v", i, a, b)
		}
		if bodies[i].IsMovable() != again[i].IsMovable() {
			t.Errorf("Body %d: movable flag lost", i)
		}
	}

	pill := again[2]
	if v := pill.Transform().Position; v != (rl.Vector3{X: 3, Y: 1}) {
		t.Errorf("Expected position (3,1,0), got %v", v)
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("Expected an error for a missing file")
	}
}

func TestLoadSampleScene(t *testing.T) {
	f, err := Load(filepath.Join("..", "..", "testdata", "scene.json"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	var pool physics.IDPool
	bodies, err := f.Build(&pool, shape.DefaultMargin)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(bodies) != 7 {
		t.Errorf("Expected 7 bodies, got %d", len(bodies))
	}
	if n := bodies[4].ColliderCount(); n != 3 {
		t.Errorf("Expected the dumbbell to have 3 colliders, got %d", n)
	}
}
