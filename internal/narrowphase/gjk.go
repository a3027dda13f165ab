// Package narrowphase decides whether two bodies returned by the broad phase
// actually intersect. It works only through world-space support points, so
// every shape kind is handled by the same code.
//
// GJK searches the Minkowski difference A - B for the origin with a simplex
// of up to four points. The origin is inside exactly when the shapes
// (inflated by their margins) overlap.
package narrowphase

import (
	"fmt"

	"collide3d/internal/physics"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// DefaultMaxIterations bounds the simplex refinement loop.
const DefaultMaxIterations = 32

// Tolerances are relative so the test behaves the same at every scale.
const (
	// distTolerance is the squared distance at which the origin counts as
	// touching a simplex feature, relative to the squared collider sizes.
	distTolerance = 1e-10
	// flatTolerance is the squared sine below which two edges count as
	// parallel, and the matching bound for a flat tetrahedron.
	flatTolerance = 1e-12
)

// GJK is a boolean intersection test.
type GJK struct {
	MaxIterations int
}

// Intersect reports whether any collider of a overlaps any collider of b.
// seed is the first search direction to try; the caller can pass the axis
// returned by the previous query on the same pair. The returned axis
// separates the bodies when they do not intersect.
func (g GJK) Intersect(a, b *physics.Body, seed rl.Vector3) (bool, rl.Vector3, error) {
	axis := seed
	for i := range a.ColliderCount() {
		for j := range b.ColliderCount() {
			hit, dir, err := g.colliders(a, i, b, j, axis)
			if err != nil {
				return false, seed, err
			}
			if hit {
				return true, axis, nil
			}
			axis = dir
		}
	}
	return false, axis, nil
}

type simplex struct {
	points [4]rl.Vector3
	count  int
	tol    float32 // absolute squared distance
}

func (s *simplex) push(p rl.Vector3) {
	s.points[s.count] = p
	s.count++
}

func (s *simplex) set(points ...rl.Vector3) {
	s.count = copy(s.points[:], points)
}

func (g GJK) colliders(a *physics.Body, ia int, b *physics.Body, ib int, seed rl.Vector3) (bool, rl.Vector3, error) {
	support := func(d rl.Vector3) (rl.Vector3, error) {
		pa, err := a.WorldSupport(ia, d)
		if err != nil {
			return rl.Vector3{}, err
		}
		pb, err := b.WorldSupport(ib, rl.Vector3Negate(d))
		if err != nil {
			return rl.Vector3{}, err
		}
		return rl.Vector3Subtract(pa, pb), nil
	}

	dir := seed
	if lengthSqr(dir) == 0 {
		dir = rl.Vector3Subtract(b.WorldCenter(ib), a.WorldCenter(ia))
	}
	if lengthSqr(dir) == 0 {
		dir = rl.Vector3{X: 1}
	}
	dir = rl.Vector3Normalize(dir)

	first, err := support(dir)
	if err != nil {
		return false, dir, fmt.Errorf("narrowphase: bodies %d/%d: %w", a.ID(), b.ID(), err)
	}
	s := simplex{tol: distTolerance * (colliderSize(a, ia) + colliderSize(b, ib))}
	s.push(first)
	dir = rl.Vector3Negate(first)
	if lengthSqr(dir) <= s.tol {
		return true, dir, nil
	}
	dir = rl.Vector3Normalize(dir)

	limit := g.MaxIterations
	if limit <= 0 {
		limit = DefaultMaxIterations
	}
	for range limit {
		p, err := support(dir)
		if err != nil {
			return false, dir, fmt.Errorf("narrowphase: bodies %d/%d: %w", a.ID(), b.ID(), err)
		}
		// The new point did not pass the origin: dir separates the shapes.
		if rl.Vector3DotProduct(p, dir) <= 0 {
			return false, dir, nil
		}
		s.push(p)
		if s.refine(&dir) {
			return true, dir, nil
		}
		dir = rl.Vector3Normalize(dir)
	}
	// Not converged; report no contact rather than guess.
	return false, dir, nil
}

// refine reduces the simplex to the feature closest to the origin and points
// dir at the origin from it. It returns true once the origin is enclosed.
func (s *simplex) refine(dir *rl.Vector3) bool {
	switch s.count {
	case 2:
		return s.line(dir)
	case 3:
		return s.triangle(dir)
	case 4:
		return s.tetrahedron(dir)
	}
	return false
}

// The newest point is always last.

func (s *simplex) line(dir *rl.Vector3) bool {
	a, b := s.points[1], s.points[0]
	ab := rl.Vector3Subtract(b, a)
	ao := rl.Vector3Negate(a)

	ab2 := lengthSqr(ab)
	if ab2 <= s.tol || rl.Vector3DotProduct(ab, ao) <= 0 {
		if lengthSqr(ao) <= s.tol {
			return true
		}
		s.set(a)
		*dir = ao
		return false
	}

	// |perp| is |ab|² times the distance from the origin to the line.
	perp := tripleCross(ab, ao, ab)
	if lengthSqr(perp) <= s.tol*ab2*ab2 {
		// Origin lies on the segment.
		return true
	}
	*dir = perp
	return false
}

func (s *simplex) triangle(dir *rl.Vector3) bool {
	a, b, c := s.points[2], s.points[1], s.points[0]
	ab := rl.Vector3Subtract(b, a)
	ac := rl.Vector3Subtract(c, a)
	ao := rl.Vector3Negate(a)
	abc := rl.Vector3CrossProduct(ab, ac)

	if flat(abc, ab, ac) {
		s.set(b, a)
		return s.line(dir)
	}

	if rl.Vector3DotProduct(rl.Vector3CrossProduct(ab, abc), ao) > 0 {
		s.set(b, a)
		*dir = tripleCross(ab, ao, ab)
		return false
	}
	if rl.Vector3DotProduct(rl.Vector3CrossProduct(abc, ac), ao) > 0 {
		s.set(c, a)
		*dir = tripleCross(ac, ao, ac)
		return false
	}

	if rl.Vector3DotProduct(abc, ao) > 0 {
		*dir = abc
	} else {
		s.set(b, c, a)
		*dir = rl.Vector3Negate(abc)
	}
	return false
}

func (s *simplex) tetrahedron(dir *rl.Vector3) bool {
	a, b, c, d := s.points[3], s.points[2], s.points[1], s.points[0]
	ab := rl.Vector3Subtract(b, a)
	ac := rl.Vector3Subtract(c, a)
	ad := rl.Vector3Subtract(d, a)
	ao := rl.Vector3Negate(a)

	// Face normals, each flipped to point away from the opposite vertex.
	abc := outward(rl.Vector3CrossProduct(ab, ac), ad)
	acd := outward(rl.Vector3CrossProduct(ac, ad), ab)
	adb := outward(rl.Vector3CrossProduct(ad, ab), ac)

	volume := rl.Vector3DotProduct(abc, ad)
	if flat(abc, ab, ac) || flat(acd, ac, ad) || flat(adb, ad, ab) ||
		volume*volume <= flatTolerance*lengthSqr(ab)*lengthSqr(ac)*lengthSqr(ad) {
		s.set(c, b, a)
		return s.triangle(dir)
	}

	switch {
	case rl.Vector3DotProduct(abc, ao) > 0:
		s.set(c, b, a)
	case rl.Vector3DotProduct(acd, ao) > 0:
		s.set(d, c, a)
	case rl.Vector3DotProduct(adb, ao) > 0:
		s.set(b, d, a)
	default:
		return true
	}
	return s.triangle(dir)
}

// flat reports whether normal = e1 x e2 is too short to trust, i.e. the two
// edges are nearly parallel or one of them is degenerate.
func flat(normal, e1, e2 rl.Vector3) bool {
	return lengthSqr(normal) <= flatTolerance*lengthSqr(e1)*lengthSqr(e2)
}

func colliderSize(b *physics.Body, i int) float32 {
	s := b.Collider(i).Shape
	ext, err := s.LocalExtents(s.Margin())
	if err != nil {
		return 0
	}
	return lengthSqr(ext)
}

func outward(normal, toOpposite rl.Vector3) rl.Vector3 {
	if rl.Vector3DotProduct(normal, toOpposite) > 0 {
		return rl.Vector3Negate(normal)
	}
	return normal
}

// tripleCross computes (a x b) x c.
func tripleCross(a, b, c rl.Vector3) rl.Vector3 {
	return rl.Vector3CrossProduct(rl.Vector3CrossProduct(a, b), c)
}

func lengthSqr(v rl.Vector3) float32 {
	return rl.Vector3DotProduct(v, v)
}
