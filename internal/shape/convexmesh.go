package shape

import (
	"fmt"

	"github.com/chewxy/math32"
	rl "github.com/gen2brain/raylib-go/raylib"
)

type meshData struct {
	vertices    []rl.Vector3
	neighbours  [][]int
	halfExtents rl.Vector3
}

// NewConvexMesh builds a convex mesh from a vertex cloud. The vertices do not
// need to lie on the hull; interior points never win a support query. The
// slice is copied.
func NewConvexMesh(vertices []rl.Vector3, margin float32) (Shape, error) {
	return newConvexMesh(vertices, nil, margin)
}

// NewConvexMeshWithEdges builds a convex mesh and its edge graph. The edges
// must connect the hull vertices so that a hill climb over them reaches the
// global support vertex; support queries then walk the graph instead of
// scanning every vertex.
func NewConvexMeshWithEdges(vertices []rl.Vector3, edges [][2]int, margin float32) (Shape, error) {
	if edges == nil {
		edges = [][2]int{}
	}
	return newConvexMesh(vertices, edges, margin)
}

func newConvexMesh(vertices []rl.Vector3, edges [][2]int, margin float32) (Shape, error) {
	if len(vertices) == 0 {
		return Shape{}, fmt.Errorf("shape: %w", ErrEmptyMesh)
	}
	m := &meshData{vertices: make([]rl.Vector3, len(vertices))}
	copy(m.vertices, vertices)

	for _, v := range m.vertices {
		m.halfExtents.X = max(m.halfExtents.X, abs(v.X))
		m.halfExtents.Y = max(m.halfExtents.Y, abs(v.Y))
		m.halfExtents.Z = max(m.halfExtents.Z, abs(v.Z))
	}

	if edges != nil {
		m.neighbours = make([][]int, len(vertices))
		for _, e := range edges {
			a, b := e[0], e[1]
			if a < 0 || b < 0 || a >= len(vertices) || b >= len(vertices) || a == b {
				return Shape{}, fmt.Errorf("shape: convex mesh edge %v: %w", e, ErrInvalidDimension)
			}
			m.neighbours[a] = append(m.neighbours[a], b)
			m.neighbours[b] = append(m.neighbours[b], a)
		}
	}
	return Shape{kind: ConvexMesh, margin: margin, mesh: m}, nil
}

// Vertices returns a copy of the mesh vertices.
func (s Shape) Vertices() []rl.Vector3 {
	if s.mesh == nil {
		return nil
	}
	out := make([]rl.Vector3, len(s.mesh.vertices))
	copy(out, s.mesh.vertices)
	return out
}

func (s Shape) meshSupport(d rl.Vector3) rl.Vector3 {
	if s.mesh.neighbours != nil {
		return s.mesh.vertices[s.mesh.climb(d)]
	}
	best := 0
	bestDot := math32.Inf(-1)
	for i, v := range s.mesh.vertices {
		if dot := rl.Vector3DotProduct(v, d); dot > bestDot {
			best, bestDot = i, dot
		}
	}
	return s.mesh.vertices[best]
}

// climb walks the edge graph from vertex 0 towards increasing dot products.
func (m *meshData) climb(d rl.Vector3) int {
	current := 0
	currentDot := rl.Vector3DotProduct(m.vertices[0], d)
	for {
		next := current
		for _, n := range m.neighbours[current] {
			if dot := rl.Vector3DotProduct(m.vertices[n], d); dot > currentDot {
				next, currentDot = n, dot
			}
		}
		if next == current {
			return current
		}
		current = next
	}
}

func abs(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
