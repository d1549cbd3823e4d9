package world

import (
	"sync/atomic"

	"github.com/udisondev/scalekit/internal/scale"
)

// Object id ranges. Ids below playerBase are never allocated and stay free
// for callers that pick their own.
const (
	playerBase uint32 = 0x10000000
	otherBase  uint32 = 0x20000000
	rangeSize  uint32 = 0x10000000
)

// ObjectIDGenerator allocates entity ids: players from one range, every
// other kind from the next.
type ObjectIDGenerator struct {
	players atomic.Uint32
	others  atomic.Uint32
}

func NewObjectIDGenerator() *ObjectIDGenerator {
	g := &ObjectIDGenerator{}
	g.players.Store(playerBase)
	g.others.Store(otherBase)
	return g
}

// Next returns a fresh id for an entity of the given kind.
func (g *ObjectIDGenerator) Next(kind scale.Kind) uint32 {
	if kind == scale.KindPlayer {
		return g.players.Add(1)
	}
	return g.others.Add(1)
}

// Reserve moves the matching counter past id, so an entity spawned or
// restored with an explicit id never collides with a later allocation.
func (g *ObjectIDGenerator) Reserve(id uint32) {
	var c *atomic.Uint32
	switch {
	case id >= playerBase && id < playerBase+rangeSize:
		c = &g.players
	case id >= otherBase && id < otherBase+rangeSize:
		c = &g.others
	default:
		return
	}
	for {
		cur := c.Load()
		if id <= cur || c.CompareAndSwap(cur, id) {
			return
		}
	}
}
