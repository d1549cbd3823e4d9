package replication

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/udisondev/scalekit/internal/packet"
	"github.com/udisondev/scalekit/internal/registry"
	"github.com/udisondev/scalekit/internal/scale"
	"github.com/udisondev/scalekit/internal/world"
)

// EntityView is a render-ready copy of one replicated entity.
type EntityView struct {
	ObjectID uint32
	Kind     scale.Kind
	Scales   []scale.Snapshot
}

// Replica is the presentation-side mirror of the authoritative world. The
// network goroutine applies batches while the render loop ticks and reads
// views; both go through the replica's lock.
type Replica struct {
	mu    sync.Mutex
	world *world.World
	reg   *registry.Registry
	steps uint64
}

// NewReplica creates an empty replica resolving identifiers through reg.
// reg must have been applied with w as its holder so category modifiers read
// replicated states. w must not be shared with an authoritative simulation.
func NewReplica(reg *registry.Registry, w *world.World) *Replica {
	w.Track(reg.Categories()...)
	return &Replica{world: w, reg: reg}
}

// Apply decodes one batch. Entries before a truncation are kept.
func (r *Replica) Apply(batch []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rd := packet.NewReader(batch)
	op, err := rd.ReadByte()
	if err != nil {
		return fmt.Errorf("reading opcode: %w", err)
	}

	switch op {
	case OpKeyframe:
		for _, e := range r.world.Entities() {
			r.world.RemoveEntity(e.ObjectID())
		}
		return r.applyStates(rd)
	case OpDelta:
		return r.applyStates(rd)
	case OpDespawn:
		return r.applyDespawn(rd)
	default:
		return fmt.Errorf("%w: 0x%02x", ErrUnknownOp, op)
	}
}

func (r *Replica) applyStates(rd *packet.Reader) error {
	n, err := readCount(rd)
	if err != nil {
		return err
	}

	for i := range n {
		h, err := readEntryHeader(rd)
		if err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}

		e, ok := r.world.Entity(h.objectID)
		if !ok {
			e = world.NewEntity(h.objectID, h.kind, scale.SidePresentation)
			if err := r.world.AddEntity(e); err != nil {
				return fmt.Errorf("entry %d: %w", i, err)
			}
		}

		c := r.reg.CategoryOrInvalid(h.category)
		if c == r.reg.Invalid() {
			slog.Debug("replicated state for unknown category", "entity", h.objectID, "category", h.category)
		}
		if err := c.StateFor(r.world, e).ReadWire(rd, r.reg); err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
	}
	return nil
}

func (r *Replica) applyDespawn(rd *packet.Reader) error {
	n, err := readCount(rd)
	if err != nil {
		return err
	}
	for i := range n {
		id, err := rd.ReadUint()
		if err != nil {
			return fmt.Errorf("despawn %d: %w", i, err)
		}
		r.world.RemoveEntity(id)
	}
	return nil
}

// Tick advances the replicated ramps by one step so rendering keeps moving
// between batches.
func (r *Replica) Tick() {
	r.mu.Lock()
	r.world.Tick()
	r.steps++
	r.mu.Unlock()
}

// Steps returns how many local steps the replica has run.
func (r *Replica) Steps() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.steps
}

// Views returns snapshots of every entity, sorted by object id.
func (r *Replica) Views() []EntityView {
	r.mu.Lock()
	defer r.mu.Unlock()

	entities := r.world.Entities()
	out := make([]EntityView, 0, len(entities))
	for _, e := range entities {
		states := r.world.States(e.ObjectID())
		v := EntityView{ObjectID: e.ObjectID(), Kind: e.Kind(), Scales: make([]scale.Snapshot, len(states))}
		for i, s := range states {
			v.Scales[i] = s.Snapshot()
		}
		out = append(out, v)
	}
	return out
}
