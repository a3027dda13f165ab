// Package meshgen turns signed distance fields into convex mesh shapes.
// Solids are built with sdfx, tessellated with marching cubes, and the
// resulting vertex cloud becomes a shape.ConvexMesh. A convex mesh answers
// support queries with its hull, so a concave solid collides as its hull.
package meshgen

import (
	"fmt"
	"math"

	"collide3d/internal/shape"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	rl "github.com/gen2brain/raylib-go/raylib"
)

// DefaultCells is the marching cubes resolution along the longest axis.
const DefaultCells = 24

// quantum is the grid vertices are snapped to when merging duplicates.
const quantum = 1e-5

// Solid is a signed distance field centred on the origin.
type Solid struct {
	sdf sdf.SDF3
}

// Box is a box of the given full size with edges rounded by round.
func Box(size rl.Vector3, round float32) (Solid, error) {
	s, err := sdf.Box3D(v3.Vec{X: float64(size.X), Y: float64(size.Y), Z: float64(size.Z)}, float64(round))
	if err != nil {
		return Solid{}, fmt.Errorf("meshgen: box: %w", err)
	}
	return Solid{sdf: s}, nil
}

// Cylinder is a cylinder along local Y. sdfx builds cylinders along Z, so
// the field is rotated to match the shape package convention.
func Cylinder(height, radius, round float32) (Solid, error) {
	s, err := sdf.Cylinder3D(float64(height), float64(radius), float64(round))
	if err != nil {
		return Solid{}, fmt.Errorf("meshgen: cylinder: %w", err)
	}
	return Solid{sdf: sdf.Transform3D(s, sdf.RotateX(math.Pi/2))}, nil
}

// Union merges two solids.
func Union(a, b Solid) Solid {
	return Solid{sdf: sdf.Union3D(a.sdf, b.sdf)}
}

// Translate moves a solid.
func (s Solid) Translate(offset rl.Vector3) Solid {
	m := sdf.Translate3d(v3.Vec{X: float64(offset.X), Y: float64(offset.Y), Z: float64(offset.Z)})
	return Solid{sdf: sdf.Transform3D(s.sdf, m)}
}

// Bounds returns the field's bounding box corners.
func (s Solid) Bounds() (lo, hi rl.Vector3) {
	bb := s.sdf.BoundingBox()
	return toVec(bb.Min), toVec(bb.Max)
}

// Vertices tessellates the solid and returns its unique surface vertices.
// cells <= 0 uses DefaultCells.
func (s Solid) Vertices(cells int) []rl.Vector3 {
	if cells <= 0 {
		cells = DefaultCells
	}
	triangles := render.ToTriangles(s.sdf, render.NewMarchingCubesUniform(cells))

	seen := make(map[[3]int64]struct{})
	var out []rl.Vector3
	for _, tri := range triangles {
		for j := 0; j < 3; j++ {
			v := tri[j]
			key := [3]int64{
				int64(math.Round(v.X / quantum)),
				int64(math.Round(v.Y / quantum)),
				int64(math.Round(v.Z / quantum)),
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, toVec(v))
		}
	}
	return out
}

// ConvexMesh tessellates the solid into a convex mesh shape.
func (s Solid) ConvexMesh(cells int, margin float32) (shape.Shape, error) {
	vertices := s.Vertices(cells)
	if len(vertices) == 0 {
		return shape.Shape{}, fmt.Errorf("meshgen: tessellation produced no vertices: %w", shape.ErrEmptyMesh)
	}
	return shape.NewConvexMesh(vertices, margin)
}

func toVec(v v3.Vec) rl.Vector3 {
	return rl.Vector3{X: float32(v.X), Y: float32(v.Y), Z: float32(v.Z)}
}
