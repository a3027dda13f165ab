// Package scene reads and writes JSON scene files describing collision
// bodies.
package scene

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"collide3d/internal/meshgen"
	"collide3d/internal/physics"
	"collide3d/internal/shape"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// Collider types beyond the shape kinds. They are tessellated into convex
// meshes when the scene is built.
const (
	TypeSDFBox      = "sdf_box"
	TypeSDFCylinder = "sdf_cylinder"
)

// --- JSON types ---

type File struct {
	Bodies []BodyDef `json:"bodies"`
}

type BodyDef struct {
	Name string `json:"name,omitempty"`
	// Rotation is in Euler degrees.
	Position  [3]float32    `json:"position"`
	Rotation  [3]float32    `json:"rotation,omitempty"`
	Static    bool          `json:"static,omitempty"`
	Colliders []ColliderDef `json:"colliders"`
}

type ColliderDef struct {
	Type   string     `json:"type"`
	Offset [3]float32 `json:"offset,omitempty"`
	Mass   float32    `json:"mass,omitempty"`
	// Margin overrides the scene-wide margin for this collider.
	Margin *float32 `json:"margin,omitempty"`

	// box
	Extents [3]float32 `json:"extents,omitempty"`
	// sphere, capsule, cone, cylinder, sdf_cylinder
	Radius     float32 `json:"radius,omitempty"`
	HalfHeight float32 `json:"halfHeight,omitempty"`
	// convex_mesh
	Vertices [][3]float32 `json:"vertices,omitempty"`
	Edges    [][2]int     `json:"edges,omitempty"`
	// sdf_box uses Size, sdf_cylinder uses Radius and HalfHeight
	Size  [3]float32 `json:"size,omitempty"`
	Round float32    `json:"round,omitempty"`
	Cells int        `json:"cells,omitempty"`
}

// --- Loading ---

func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scene: read %s: %w", path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("scene: %s: %w", path, err)
	}
	return f, nil
}

func Parse(data []byte) (*File, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var f File
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("scene: parse: %w", err)
	}
	return &f, nil
}

// Build creates one body per definition. IDs come from pool and colliders
// without their own margin get the given one. On error every ID taken by
// this call is handed back to pool.
func (f *File) Build(pool *physics.IDPool, margin float32) ([]*physics.Body, error) {
	bodies := make([]*physics.Body, 0, len(f.Bodies))
	for i, def := range f.Bodies {
		id := pool.Acquire()
		b, err := def.build(id, margin)
		if err != nil {
			pool.Release(id)
			for _, built := range bodies {
				pool.Release(built.ID())
			}
			return nil, fmt.Errorf("scene: body %d %q: %w", i, def.Name, err)
		}
		bodies = append(bodies, b)
	}
	return bodies, nil
}

func (def BodyDef) build(id physics.BodyID, margin float32) (*physics.Body, error) {
	colliders := make([]physics.Collider, 0, len(def.Colliders))
	for i, cd := range def.Colliders {
		m := margin
		if cd.Margin != nil {
			m = *cd.Margin
		}
		s, err := cd.shape(m)
		if err != nil {
			return nil, fmt.Errorf("collider %d: %w", i, err)
		}
		mass := cd.Mass
		if mass == 0 {
			mass = 1
		}
		colliders = append(colliders, physics.Collider{Shape: s, Offset: vec(cd.Offset), Mass: mass})
	}

	tr := physics.NewTransform(vec(def.Position), vec(def.Rotation))
	b, err := physics.NewBody(id, tr, !def.Static, colliders...)
	if err != nil {
		return nil, err
	}
	b.Name = def.Name
	return b, nil
}

func (cd ColliderDef) shape(margin float32) (shape.Shape, error) {
	switch cd.Type {
	case TypeSDFBox:
		solid, err := meshgen.Box(vec(cd.Size), cd.Round)
		if err != nil {
			return shape.Shape{}, err
		}
		return solid.ConvexMesh(cd.Cells, margin)
	case TypeSDFCylinder:
		solid, err := meshgen.Cylinder(2*cd.HalfHeight, cd.Radius, cd.Round)
		if err != nil {
			return shape.Shape{}, err
		}
		return solid.ConvexMesh(cd.Cells, margin)
	}

	kind, err := shape.ParseKind(cd.Type)
	if err != nil {
		return shape.Shape{}, err
	}
	switch kind {
	case shape.Box:
		return shape.NewBox(vec(cd.Extents), margin)
	case shape.Sphere:
		return shape.NewSphere(cd.Radius, margin)
	case shape.Capsule:
		return shape.NewCapsule(cd.Radius, cd.HalfHeight, margin)
	case shape.Cone:
		return shape.NewCone(cd.Radius, cd.HalfHeight, margin)
	case shape.Cylinder:
		return shape.NewCylinder(cd.Radius, cd.HalfHeight, margin)
	case shape.ConvexMesh:
		vs := make([]rl.Vector3, len(cd.Vertices))
		for i, v := range cd.Vertices {
			vs[i] = vec(v)
		}
		if len(cd.Edges) > 0 {
			return shape.NewConvexMeshWithEdges(vs, cd.Edges, margin)
		}
		return shape.NewConvexMesh(vs, margin)
	}
	return shape.Shape{}, fmt.Errorf("unsupported collider type %q", cd.Type)
}

// --- Saving ---

// Describe converts a body back to its definition. Tessellated colliders
// come back as plain convex meshes and edge graphs are not kept.
func Describe(b *physics.Body) BodyDef {
	tr := b.Transform()
	euler := rl.QuaternionToEuler(tr.Rotation)
	def := BodyDef{
		Name:     b.Name,
		Position: arr(tr.Position),
		Rotation: arr(rl.Vector3Scale(euler, rl.Rad2deg)),
		Static:   !b.IsMovable(),
	}
	for _, c := range b.Colliders() {
		m := c.Shape.Margin()
		cd := ColliderDef{Type: c.Shape.Kind().String(), Offset: arr(c.Offset), Mass: c.Mass, Margin: &m}
		switch c.Shape.Kind() {
		case shape.Box:
			cd.Extents = arr(c.Shape.Extent())
		case shape.Sphere:
			cd.Radius = c.Shape.Radius()
		case shape.Capsule, shape.Cone, shape.Cylinder:
			cd.Radius = c.Shape.Radius()
			cd.HalfHeight = c.Shape.HalfHeight()
		case shape.ConvexMesh:
			for _, v := range c.Shape.Vertices() {
				cd.Vertices = append(cd.Vertices, arr(v))
			}
		}
		def.Colliders = append(def.Colliders, cd)
	}
	return def
}

func (f *File) Save(path string) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("scene: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("scene: write %s: %w", path, err)
	}
	return nil
}

func vec(a [3]float32) rl.Vector3 {
	return rl.Vector3{X: a[0], Y: a[1], Z: a[2]}
}

func arr(v rl.Vector3) [3]float32 {
	return [3]float32{v.X, v.Y, v.Z}
}
