package replication

import (
	"sync"

	"github.com/udisondev/scalekit/internal/world"
)

// Tracker turns world changes into batches. Flush and Keyframe must run on
// the simulation goroutine; Despawned may be called from anywhere.
type Tracker struct {
	world *world.World

	mu      sync.Mutex
	removed []uint32
}

// NewTracker creates a tracker over w.
func NewTracker(w *world.World) *Tracker {
	return &Tracker{world: w}
}

// Despawned queues a removal notice for the next flush.
func (t *Tracker) Despawned(objectID uint32) {
	t.mu.Lock()
	t.removed = append(t.removed, objectID)
	t.mu.Unlock()
}

// Flush drains the world's dirty states. Removals go first so a replica
// never applies a delta to an entity that is about to disappear.
func (t *Tracker) Flush() [][]byte {
	var out [][]byte

	t.mu.Lock()
	removed := t.removed
	t.removed = nil
	t.mu.Unlock()
	if len(removed) > 0 {
		out = append(out, EncodeDespawn(removed))
	}

	if dirty := t.world.Drain(); len(dirty) > 0 {
		out = append(out, EncodeStates(OpDelta, dirty))
	}
	return out
}

// Keyframe encodes every non-reset state of the world.
func (t *Tracker) Keyframe() []byte {
	return EncodeStates(OpKeyframe, t.world.Keyframe())
}
