package collision

import (
	"log"

	"collide3d/internal/config"
	"collide3d/internal/physics"
	"collide3d/internal/shape"
)

// Reconfigure applies a new config between steps. A changed margin is given
// to every collider. The broad phase is rebuilt and every body registered
// again; contacts already active stay active, so they do not fire a second
// enter event. On error the detection keeps its previous config, broad phase
// and collider margins.
func (d *Detection) Reconfigure(cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Only detectors created here are rebuilt; a supplied one is kept.
	rebuild := d.release != nil && (cfg.BroadPhase != d.cfg.BroadPhase || cfg.GPU != d.cfg.GPU)
	detector, release := d.detector, d.release
	if rebuild {
		detector, release = nil, nil
	}
	bp, created := newBroadPhase(cfg, detector, release)

	var saved map[physics.BodyID][]shape.Shape
	if cfg.Margin != d.cfg.Margin {
		saved = make(map[physics.BodyID][]shape.Shape, len(d.order))
	}
	// Bodies touched before a failure are left stale so the next UpdateStale
	// feeds the old broad phase again.
	done := 0
	fail := func(err error) error {
		for id, shapes := range saved {
			b := d.bodies[id]
			for i, s := range shapes {
				b.ReplaceShape(i, s)
			}
		}
		for _, id := range d.order[:done+1] {
			b := d.bodies[id]
			b.SetTransform(b.Transform())
		}
		if created {
			bp.release()
		}
		return err
	}

	for k, id := range d.order {
		done = k
		b := d.bodies[id]
		if saved != nil {
			shapes := make([]shape.Shape, 0, b.ColliderCount())
			for i, c := range b.Colliders() {
				shapes = append(shapes, c.Shape)
				if err := b.ReplaceShape(i, c.Shape.WithMargin(cfg.Margin)); err != nil {
					saved[id] = shapes
					return fail(err)
				}
			}
			saved[id] = shapes
		}
		if b.Stale() {
			if _, err := b.RecomputeAABB(); err != nil {
				return fail(err)
			}
		}
		if err := bp.algo.AddObject(b, b.AABB()); err != nil {
			return fail(err)
		}
	}

	if rebuild {
		d.Close()
	}
	d.cfg = cfg
	d.broadPhase = bp
	log.Printf("Collision: reconfigured (%s, margin %v, %d workers)", d.strategy, cfg.Margin, cfg.Workers)
	return nil
}
