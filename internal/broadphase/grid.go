package broadphase

import (
	"math"

	"collide3d/internal/physics"
)

// DefaultCellSize is the grid cell edge length used when none is configured.
const DefaultCellSize = 5.0

// DefaultMaxCellsPerBody caps how many cells one body may occupy before it is
// kept in the oversized list instead.
const DefaultMaxCellsPerBody = 4096

// Cell coordinates beyond this cannot be stored in a CellKey portably; bodies
// reaching them are kept in the oversized list.
const maxCellCoord = 1 << 30

// CellKey addresses one cell of the spatial hash.
type CellKey struct {
	X, Y, Z int
}

type gridEntry struct {
	body      *physics.Body
	aabb      physics.AABB
	lo, hi    CellKey
	oversized bool
}

// Grid is a uniform spatial hash. A pair exists while the two AABBs overlap
// and at least one body is movable.
type Grid struct {
	pairs    *PairManager
	cellSize float32
	maxCells int

	cells     map[CellKey]map[physics.BodyID]struct{}
	entries   map[physics.BodyID]*gridEntry
	oversized map[physics.BodyID]struct{}
}

// NewGrid creates a grid. Non-positive arguments fall back to the defaults.
func NewGrid(pairs *PairManager, cellSize float32, maxCellsPerBody int) *Grid {
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}
	if maxCellsPerBody <= 0 {
		maxCellsPerBody = DefaultMaxCellsPerBody
	}
	return &Grid{
		pairs:     pairs,
		cellSize:  cellSize,
		maxCells:  maxCellsPerBody,
		cells:     make(map[CellKey]map[physics.BodyID]struct{}),
		entries:   make(map[physics.BodyID]*gridEntry),
		oversized: make(map[physics.BodyID]struct{}),
	}
}

func (g *Grid) posToCell(x, y, z float32) CellKey {
	return CellKey{
		X: int(math.Floor(float64(x / g.cellSize))),
		Y: int(math.Floor(float64(y / g.cellSize))),
		Z: int(math.Floor(float64(z / g.cellSize))),
	}
}

// cellSpan counts the cells an AABB covers in floating point, so unbounded or
// inverted boxes come out as +Inf or NaN instead of overflowing. A box with a
// corner outside the addressable cell range also counts as +Inf.
func (g *Grid) cellSpan(a physics.AABB) float64 {
	size := float64(g.cellSize)
	for _, v := range [...]float32{a.Min.X, a.Min.Y, a.Min.Z, a.Max.X, a.Max.Y, a.Max.Z} {
		if math.Abs(float64(v)/size) >= maxCellCoord {
			return math.Inf(1)
		}
	}
	span := func(lo, hi float32) float64 {
		return math.Floor(float64(hi)/size) - math.Floor(float64(lo)/size) + 1
	}
	n := span(a.Min.X, a.Max.X) * span(a.Min.Y, a.Max.Y) * span(a.Min.Z, a.Max.Z)
	if math.IsNaN(n) || n <= 0 {
		return math.Inf(1)
	}
	return n
}

func (g *Grid) AddObject(body *physics.Body, aabb physics.AABB) error {
	if _, ok := g.entries[body.ID()]; ok {
		return alreadyRegistered(body)
	}
	e := &gridEntry{body: body, aabb: aabb}
	g.entries[body.ID()] = e
	g.insert(e)
	return g.pairOverlapping(e)
}

func (g *Grid) RemoveObject(body *physics.Body) error {
	e, ok := g.entries[body.ID()]
	if !ok {
		return notRegistered(body)
	}
	g.evict(e)
	delete(g.entries, body.ID())
	g.pairs.RemovePairsOf(body.ID())
	return nil
}

func (g *Grid) UpdateObject(body *physics.Body, aabb physics.AABB) error {
	e, ok := g.entries[body.ID()]
	if !ok {
		return notRegistered(body)
	}
	moved := e.oversized || g.cellSpan(aabb) > float64(g.maxCells)
	if !moved {
		lo := g.posToCell(aabb.Min.X, aabb.Min.Y, aabb.Min.Z)
		hi := g.posToCell(aabb.Max.X, aabb.Max.Y, aabb.Max.Z)
		moved = lo != e.lo || hi != e.hi
	}
	if moved {
		g.evict(e)
		e.aabb = aabb
		g.insert(e)
	} else {
		e.aabb = aabb
	}

	for _, other := range g.pairs.PartnersOf(body.ID()) {
		oe, ok := g.entries[other]
		if !ok || !e.aabb.Intersects(oe.aabb) {
			g.pairs.RemovePair(body.ID(), other)
		}
	}
	return g.pairOverlapping(e)
}

// pairOverlapping pairs e with every eligible body whose AABB overlaps it.
func (g *Grid) pairOverlapping(e *gridEntry) error {
	for _, other := range g.candidates(e) {
		if other.body.ID() == e.body.ID() || !Eligible(e.body, other.body) {
			continue
		}
		if !e.aabb.Intersects(other.aabb) {
			continue
		}
		if _, err := g.pairs.AddPair(other.body, e.body); err != nil {
			return err
		}
	}
	return nil
}

// candidates gathers every body sharing a cell with e plus the oversized
// bodies. An oversized entry is tested against everything.
func (g *Grid) candidates(e *gridEntry) []*gridEntry {
	if e.oversized {
		out := make([]*gridEntry, 0, len(g.entries))
		for _, other := range g.entries {
			out = append(out, other)
		}
		return out
	}
	seen := make(map[physics.BodyID]struct{})
	var out []*gridEntry
	add := func(id physics.BodyID) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, g.entries[id])
	}
	for x := e.lo.X; x <= e.hi.X; x++ {
		for y := e.lo.Y; y <= e.hi.Y; y++ {
			for z := e.lo.Z; z <= e.hi.Z; z++ {
				for id := range g.cells[CellKey{x, y, z}] {
					add(id)
				}
			}
		}
	}
	for id := range g.oversized {
		add(id)
	}
	return out
}

func (g *Grid) insert(e *gridEntry) {
	e.oversized = g.cellSpan(e.aabb) > float64(g.maxCells)
	if e.oversized {
		e.lo, e.hi = CellKey{}, CellKey{}
		g.oversized[e.body.ID()] = struct{}{}
		return
	}
	e.lo = g.posToCell(e.aabb.Min.X, e.aabb.Min.Y, e.aabb.Min.Z)
	e.hi = g.posToCell(e.aabb.Max.X, e.aabb.Max.Y, e.aabb.Max.Z)

	for x := e.lo.X; x <= e.hi.X; x++ {
		for y := e.lo.Y; y <= e.hi.Y; y++ {
			for z := e.lo.Z; z <= e.hi.Z; z++ {
				key := CellKey{x, y, z}
				cell, ok := g.cells[key]
				if !ok {
					cell = make(map[physics.BodyID]struct{})
					g.cells[key] = cell
				}
				cell[e.body.ID()] = struct{}{}
			}
		}
	}
}

func (g *Grid) evict(e *gridEntry) {
	if e.oversized {
		delete(g.oversized, e.body.ID())
		return
	}
	for x := e.lo.X; x <= e.hi.X; x++ {
		for y := e.lo.Y; y <= e.hi.Y; y++ {
			for z := e.lo.Z; z <= e.hi.Z; z++ {
				key := CellKey{x, y, z}
				delete(g.cells[key], e.body.ID())
				if len(g.cells[key]) == 0 {
					delete(g.cells, key)
				}
			}
		}
	}
}

// Len returns the number of tracked bodies.
func (g *Grid) Len() int { return len(g.entries) }

// CellCount returns the number of occupied cells.
func (g *Grid) CellCount() int { return len(g.cells) }
