package physics

import "slices"

// BodyID identifies a body for as long as it is part of the world.
type BodyID uint64

// IDPool hands out body IDs. Released IDs are reused smallest first, so a
// live world never holds two bodies with the same ID.
type IDPool struct {
	next  BodyID
	freed []BodyID
}

func (p *IDPool) Acquire() BodyID {
	if len(p.freed) > 0 {
		i := slices.Index(p.freed, slices.Min(p.freed))
		id := p.freed[i]
		p.freed = slices.Delete(p.freed, i, i+1)
		return id
	}
	id := p.next
	p.next++
	return id
}

// Release returns id to the pool. Releasing an ID that was never acquired, or
// releasing it twice, is ignored.
func (p *IDPool) Release(id BodyID) {
	if id >= p.next || slices.Contains(p.freed, id) {
		return
	}
	p.freed = append(p.freed, id)
}
