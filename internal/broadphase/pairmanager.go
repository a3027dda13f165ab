package broadphase

import (
	"cmp"
	"fmt"
	"iter"
	"slices"

	"collide3d/internal/physics"

	rl "github.com/gen2brain/raylib-go/raylib"
)

var ErrSelfPair = fmt.Errorf("%w: a body cannot pair with itself", physics.ErrPrecondition)

// Pair is an unordered pair of distinct bodies, stored with A < B.
type Pair struct {
	A, B physics.BodyID
}

// MakePair canonicalises the order of two IDs.
func MakePair(a, b physics.BodyID) Pair {
	if a > b {
		a, b = b, a
	}
	return Pair{A: a, B: b}
}

// Has reports whether id is a member of the pair.
func (p Pair) Has(id physics.BodyID) bool {
	return p.A == id || p.B == id
}

// Other returns the member that is not id.
func (p Pair) Other(id physics.BodyID) physics.BodyID {
	if p.A == id {
		return p.B
	}
	return p.A
}

// BodyPair is the record kept for a live pair. Body1 always holds the
// smaller ID.
type BodyPair struct {
	Pair
	Body1, Body2 *physics.Body

	// SeparatingAxis caches the last separating direction found by the
	// narrow phase; it seeds the next query for the same pair.
	SeparatingAxis rl.Vector3
}

// PairManager owns the set of overlapping pairs. It is not safe for
// concurrent mutation; readers may share it once all updates for a step are
// done.
type PairManager struct {
	pairs    map[Pair]*BodyPair
	partners map[physics.BodyID]map[physics.BodyID]struct{}
}

func NewPairManager() *PairManager {
	return &PairManager{
		pairs:    make(map[Pair]*BodyPair),
		partners: make(map[physics.BodyID]map[physics.BodyID]struct{}),
	}
}

// AddPair inserts the pair if it is absent and returns its record. Adding an
// existing pair returns the existing record.
func (m *PairManager) AddPair(b1, b2 *physics.Body) (*BodyPair, error) {
	if b1.ID() == b2.ID() {
		return nil, fmt.Errorf("broadphase: pair %d/%d: %w", b1.ID(), b2.ID(), ErrSelfPair)
	}
	key := MakePair(b1.ID(), b2.ID())
	if bp, ok := m.pairs[key]; ok {
		return bp, nil
	}
	if b1.ID() > b2.ID() {
		b1, b2 = b2, b1
	}
	bp := &BodyPair{Pair: key, Body1: b1, Body2: b2, SeparatingAxis: rl.Vector3{X: 1}}
	m.pairs[key] = bp
	m.link(key.A, key.B)
	m.link(key.B, key.A)
	return bp, nil
}

// RemovePair removes the pair if present and reports whether it was.
func (m *PairManager) RemovePair(a, b physics.BodyID) bool {
	key := MakePair(a, b)
	if _, ok := m.pairs[key]; !ok {
		return false
	}
	delete(m.pairs, key)
	m.unlink(key.A, key.B)
	m.unlink(key.B, key.A)
	return true
}

// RemovePairsOf removes every pair that mentions id and returns how many
// were removed.
func (m *PairManager) RemovePairsOf(id physics.BodyID) int {
	others := m.partners[id]
	n := 0
	for other := range others {
		if m.RemovePair(id, other) {
			n++
		}
	}
	return n
}

func (m *PairManager) Contains(a, b physics.BodyID) bool {
	_, ok := m.pairs[MakePair(a, b)]
	return ok
}

func (m *PairManager) Lookup(a, b physics.BodyID) (*BodyPair, bool) {
	bp, ok := m.pairs[MakePair(a, b)]
	return bp, ok
}

func (m *PairManager) Len() int { return len(m.pairs) }

// PartnersOf returns the IDs paired with id, in ascending order.
func (m *PairManager) PartnersOf(id physics.BodyID) []physics.BodyID {
	out := make([]physics.BodyID, 0, len(m.partners[id]))
	for other := range m.partners[id] {
		out = append(out, other)
	}
	slices.Sort(out)
	return out
}

// Pairs returns a snapshot of the live pairs sorted by (A, B).
func (m *PairManager) Pairs() []*BodyPair {
	out := make([]*BodyPair, 0, len(m.pairs))
	for _, bp := range m.pairs {
		out = append(out, bp)
	}
	slices.SortFunc(out, func(x, y *BodyPair) int {
		if c := cmp.Compare(x.A, y.A); c != 0 {
			return c
		}
		return cmp.Compare(x.B, y.B)
	})
	return out
}

// All iterates the live pairs in no particular order. The set must not be
// mutated during iteration.
func (m *PairManager) All() iter.Seq[*BodyPair] {
	return func(yield func(*BodyPair) bool) {
		for _, bp := range m.pairs {
			if !yield(bp) {
				return
			}
		}
	}
}

// Clear drops every pair.
func (m *PairManager) Clear() {
	clear(m.pairs)
	clear(m.partners)
}

func (m *PairManager) link(a, b physics.BodyID) {
	set, ok := m.partners[a]
	if !ok {
		set = make(map[physics.BodyID]struct{})
		m.partners[a] = set
	}
	set[b] = struct{}{}
}

func (m *PairManager) unlink(a, b physics.BodyID) {
	set := m.partners[a]
	delete(set, b)
	if len(set) == 0 {
		delete(m.partners, a)
	}
}
