package narrowphase

import (
	"fmt"

	"collide3d/internal/physics"
	"collide3d/internal/shape"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// Primitive answers box and sphere pairs in closed form and hands every
// other collider pair to GJK. Results match GJK up to floating point on the
// contact boundary.
type Primitive struct {
	GJK GJK
}

// Intersect has the same contract as GJK.Intersect.
func (p Primitive) Intersect(a, b *physics.Body, seed rl.Vector3) (bool, rl.Vector3, error) {
	axis := seed
	for i := range a.ColliderCount() {
		for j := range b.ColliderCount() {
			handled, hit, err := closedForm(a, i, b, j)
			if err != nil {
				return false, seed, err
			}
			if !handled {
				var dir rl.Vector3
				hit, dir, err = p.GJK.colliders(a, i, b, j, axis)
				if err != nil {
					return false, seed, err
				}
				if !hit {
					axis = dir
				}
			} else if !hit {
				axis = rl.Vector3Subtract(b.WorldCenter(j), a.WorldCenter(i))
			}
			if hit {
				return true, axis, nil
			}
		}
	}
	return false, axis, nil
}

func closedForm(a *physics.Body, i int, b *physics.Body, j int) (handled, hit bool, err error) {
	ka, kb := a.Collider(i).Shape.Kind(), b.Collider(j).Shape.Kind()
	switch {
	case ka == shape.Box && kb == shape.Box:
		oa, _, err := a.ColliderOBB(i)
		if err != nil {
			return true, false, err
		}
		ob, _, err := b.ColliderOBB(j)
		if err != nil {
			return true, false, err
		}
		return true, oa.Intersects(ob), nil

	case ka == shape.Sphere && kb == shape.Sphere:
		ra, err := sphereRadius(a, i)
		if err != nil {
			return true, false, err
		}
		rb, err := sphereRadius(b, j)
		if err != nil {
			return true, false, err
		}
		d := rl.Vector3Subtract(b.WorldCenter(j), a.WorldCenter(i))
		return true, rl.Vector3LengthSqr(d) <= (ra+rb)*(ra+rb), nil

	case ka == shape.Box && kb == shape.Sphere:
		return boxSphere(a, i, b, j)
	case ka == shape.Sphere && kb == shape.Box:
		return boxSphere(b, j, a, i)
	}
	return false, false, nil
}

func boxSphere(box *physics.Body, i int, sphere *physics.Body, j int) (bool, bool, error) {
	o, _, err := box.ColliderOBB(i)
	if err != nil {
		return true, false, err
	}
	r, err := sphereRadius(sphere, j)
	if err != nil {
		return true, false, err
	}
	return true, o.IntersectsSphere(sphere.WorldCenter(j), r), nil
}

// sphereRadius includes the margin.
func sphereRadius(b *physics.Body, i int) (float32, error) {
	s := b.Collider(i).Shape
	ext, err := s.LocalExtents(s.Margin())
	if err != nil {
		return 0, fmt.Errorf("narrowphase: body %d collider %d: %w", b.ID(), i, err)
	}
	return ext.X, nil
}
