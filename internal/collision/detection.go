// Package collision runs collision detection for a set of bodies. Detection
// owns the pair manager and the broad-phase strategy, keeps them fed with
// fresh AABBs, runs the narrow phase over the live pairs and reports contacts
// starting and ending.
//
// Detection is driven from one goroutine. ComputeCollisions fans the narrow
// phase out over worker goroutines internally.
package collision

import (
	"cmp"
	"fmt"
	"log"
	"slices"
	"time"

	"collide3d/internal/broadphase"
	"collide3d/internal/compute"
	"collide3d/internal/config"
	"collide3d/internal/narrowphase"
	"collide3d/internal/physics"

	rl "github.com/gen2brain/raylib-go/raylib"
	"golang.org/x/sync/errgroup"
)

var ErrUnknownBody = fmt.Errorf("%w: unknown body", physics.ErrPrecondition)

// NarrowPhase decides whether a broad-phase pair really intersects. seed is
// the pair's cached separating axis; the returned axis replaces it.
type NarrowPhase interface {
	Intersect(a, b *physics.Body, seed rl.Vector3) (bool, rl.Vector3, error)
}

// Listener is told when two bodies start and stop touching.
type Listener interface {
	OnCollisionEnter(a, b *physics.Body)
	OnCollisionExit(a, b *physics.Body)
}

// Contact is a pair whose shapes intersect. Body1 has the smaller ID.
type Contact struct {
	broadphase.Pair
	Body1, Body2 *physics.Body
}

type Option func(*Detection)

// WithNarrowPhase replaces the default GJK test.
func WithNarrowPhase(np NarrowPhase) Option {
	return func(d *Detection) { d.narrow = np }
}

func WithListener(l Listener) Option {
	return func(d *Detection) { d.listeners = append(d.listeners, l) }
}

// WithOverlapDetector supplies the GPU overlap detector instead of creating
// one from the shared compute system.
func WithOverlapDetector(det broadphase.OverlapDetector) Option {
	return func(d *Detection) { d.detector = det }
}

type Detection struct {
	cfg config.Config
	broadPhase

	narrow    NarrowPhase
	listeners []Listener

	bodies map[physics.BodyID]*physics.Body
	order  []physics.BodyID

	active map[broadphase.Pair]Contact

	lastLog time.Time
}

// broadPhase is everything rebuilt when the strategy changes.
type broadPhase struct {
	strategy string
	pairs    *broadphase.PairManager
	algo     broadphase.Algorithm

	detector broadphase.OverlapDetector
	release  func()
}

// New builds a detection pipeline from cfg. A gpu strategy falls back to the
// grid when no GPU is available.
func New(cfg config.Config, opts ...Option) (*Detection, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d := &Detection{
		cfg:    cfg,
		narrow: narrowphase.GJK{},
		bodies: make(map[physics.BodyID]*physics.Body),
		active: make(map[broadphase.Pair]Contact),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.broadPhase, _ = newBroadPhase(cfg, d.detector, nil)
	return d, nil
}

// newBroadPhase builds an empty strategy for cfg around detector. created
// reports whether a GPU detector was made here and must be released by the
// caller if it is not kept.
func newBroadPhase(cfg config.Config, detector broadphase.OverlapDetector, release func()) (bp broadPhase, created bool) {
	bp = broadPhase{
		strategy: cfg.BroadPhase,
		pairs:    broadphase.NewPairManager(),
		detector: detector,
		release:  release,
	}

	if bp.strategy == config.StrategyGPU && bp.detector == nil {
		if det, err := newGPUDetector(cfg.GPU.MaxObjects); err != nil {
			log.Printf("Collision: GPU unavailable, using grid: %v", err)
			bp.strategy = config.StrategyGrid
		} else {
			bp.detector = det
			bp.release = det.Release
			created = true
		}
	}

	switch bp.strategy {
	case config.StrategyGrid:
		bp.algo = broadphase.NewGrid(bp.pairs, cfg.Grid.CellSize, cfg.Grid.MaxCellsPerBody)
	case config.StrategyGPU:
		bp.algo = broadphase.NewGPU(bp.pairs, bp.detector, cfg.GPU.Threshold)
	default:
		bp.algo = broadphase.NewNoBroadPhase(bp.pairs)
	}
	return bp, created
}

func newGPUDetector(maxObjects int) (*compute.OverlapDetector, error) {
	info, err := compute.Initialize()
	if err != nil {
		return nil, err
	}
	det, err := compute.NewOverlapDetector(uint32(maxObjects), uint32(maxObjects)*20)
	if err != nil {
		return nil, err
	}
	log.Printf("Collision: GPU broad phase on %s (%s)", info.Name, info.Backend)
	return det, nil
}

// Strategy returns the broad phase in use, after any fallback.
func (d *Detection) Strategy() string { return d.strategy }

func (d *Detection) Config() config.Config { return d.cfg }

// Close releases GPU resources owned by the detection.
func (d *Detection) Close() {
	if d.release != nil {
		d.release()
		d.release = nil
	}
}

// AddBody registers a body with the broad phase.
func (d *Detection) AddBody(b *physics.Body) error {
	if b.Stale() {
		if _, err := b.RecomputeAABB(); err != nil {
			return err
		}
	}
	if err := d.algo.AddObject(b, b.AABB()); err != nil {
		return err
	}
	d.bodies[b.ID()] = b
	d.order = append(d.order, b.ID())
	return nil
}

// RemoveBody drops a body and all of its pairs. Contacts it was part of end
// on the next ComputeCollisions.
func (d *Detection) RemoveBody(id physics.BodyID) error {
	b, ok := d.bodies[id]
	if !ok {
		return fmt.Errorf("collision: body %d: %w", id, ErrUnknownBody)
	}
	if err := d.algo.RemoveObject(b); err != nil {
		return err
	}
	delete(d.bodies, id)
	d.order = slices.DeleteFunc(d.order, func(o physics.BodyID) bool { return o == id })
	return nil
}

// UpdateBody refreshes the AABB of a body whose transform or shape changed
// and passes it to the broad phase.
func (d *Detection) UpdateBody(b *physics.Body) error {
	if _, ok := d.bodies[b.ID()]; !ok {
		return fmt.Errorf("collision: body %d: %w", b.ID(), ErrUnknownBody)
	}
	aabb := b.AABB()
	if b.Stale() {
		var err error
		if aabb, err = b.RecomputeAABB(); err != nil {
			return err
		}
	}
	return d.algo.UpdateObject(b, aabb)
}

// UpdateStale calls UpdateBody for every body whose AABB is out of date.
func (d *Detection) UpdateStale() error {
	for _, id := range d.order {
		if b := d.bodies[id]; b.Stale() {
			if err := d.UpdateBody(b); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *Detection) Body(id physics.BodyID) (*physics.Body, bool) {
	b, ok := d.bodies[id]
	return b, ok
}

// Bodies returns the registered bodies in the order they were added.
func (d *Detection) Bodies() []*physics.Body {
	out := make([]*physics.Body, len(d.order))
	for i, id := range d.order {
		out[i] = d.bodies[id]
	}
	return out
}

func (d *Detection) flush() error {
	if f, ok := d.algo.(broadphase.Flusher); ok {
		return f.Flush()
	}
	return nil
}

// Pairs returns the broad-phase pairs sorted by ID.
func (d *Detection) Pairs() ([]*broadphase.BodyPair, error) {
	if err := d.flush(); err != nil {
		return nil, err
	}
	return d.pairs.Pairs(), nil
}

// ComputeCollisions runs the narrow phase over every broad-phase pair and
// returns the intersecting ones sorted by ID. Listeners hear about contacts
// that started or ended since the previous call.
func (d *Detection) ComputeCollisions() ([]Contact, error) {
	pairs, err := d.Pairs()
	if err != nil {
		return nil, err
	}

	hits := make([]bool, len(pairs))
	var g errgroup.Group
	g.SetLimit(d.cfg.Workers)
	for i, bp := range pairs {
		g.Go(func() error {
			hit, axis, err := d.narrow.Intersect(bp.Body1, bp.Body2, bp.SeparatingAxis)
			if err != nil {
				return err
			}
			bp.SeparatingAxis = axis
			hits[i] = hit
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("collision: narrow phase: %w", err)
	}

	var contacts []Contact
	current := make(map[broadphase.Pair]Contact)
	for i, bp := range pairs {
		if !hits[i] {
			continue
		}
		c := Contact{Pair: bp.Pair, Body1: bp.Body1, Body2: bp.Body2}
		contacts = append(contacts, c)
		current[c.Pair] = c
	}

	d.dispatch(contacts, current)

	if time.Since(d.lastLog) >= time.Second {
		d.lastLog = time.Now()
		log.Printf("Collision: %d bodies, %d pairs, %d contacts (%s)", len(d.bodies), len(pairs), len(contacts), d.strategy)
	}
	return contacts, nil
}

// dispatch sends enter events for new contacts and exit events for ended
// ones, then makes current the active set.
func (d *Detection) dispatch(contacts []Contact, current map[broadphase.Pair]Contact) {
	for _, c := range contacts {
		if _, ok := d.active[c.Pair]; !ok {
			for _, l := range d.listeners {
				l.OnCollisionEnter(c.Body1, c.Body2)
			}
		}
	}

	var ended []Contact
	for key, c := range d.active {
		if _, ok := current[key]; !ok {
			ended = append(ended, c)
		}
	}
	slices.SortFunc(ended, func(x, y Contact) int {
		if c := cmp.Compare(x.A, y.A); c != 0 {
			return c
		}
		return cmp.Compare(x.B, y.B)
	})
	for _, c := range ended {
		for _, l := range d.listeners {
			l.OnCollisionExit(c.Body1, c.Body2)
		}
	}

	d.active = current
}

// RaycastHit is the nearest body whose AABB a ray enters.
type RaycastHit struct {
	physics.RayHit
	Body *physics.Body
}

// Raycast tests a ray against every body AABB and returns the closest hit.
func (d *Detection) Raycast(origin, direction rl.Vector3, maxDistance float32) (RaycastHit, bool) {
	if rl.Vector3Length(direction) == 0 {
		return RaycastHit{}, false
	}
	direction = rl.Vector3Normalize(direction)

	var best RaycastHit
	found := false
	for _, id := range d.order {
		b := d.bodies[id]
		hit, ok := b.AABB().Raycast(origin, direction, maxDistance)
		if !ok || (found && hit.Distance >= best.Distance) {
			continue
		}
		best = RaycastHit{RayHit: hit, Body: b}
		found = true
	}
	return best, found
}
