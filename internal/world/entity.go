package world

import (
	"sync/atomic"

	"github.com/udisondev/scalekit/internal/scale"
)

// Entity is a host object scale states attach to.
type Entity struct {
	objectID uint32
	kind     scale.Kind
	side     scale.Side

	firstUpdate atomic.Bool // true until the entity completes its first step
	syncPending atomic.Bool // some state of this entity awaits replication
}

// NewEntity creates an entity that has not been stepped yet.
func NewEntity(objectID uint32, kind scale.Kind, side scale.Side) *Entity {
	e := &Entity{
		objectID: objectID,
		kind:     kind,
		side:     side,
	}
	e.firstUpdate.Store(true)
	return e
}

// ObjectID returns unique object ID
func (e *Entity) ObjectID() uint32 {
	return e.objectID
}

// Kind returns the entity kind (player, npc, item...).
func (e *Entity) Kind() scale.Kind {
	return e.kind
}

// Side returns which side of replication the entity lives on.
func (e *Entity) Side() scale.Side {
	return e.side
}

// FirstUpdate reports whether the entity has not completed a step yet.
func (e *Entity) FirstUpdate() bool {
	return e.firstUpdate.Load()
}

// MarkUpdated ends the first-update phase.
func (e *Entity) MarkUpdated() {
	e.firstUpdate.Store(false)
}

// MarkScalesForSync flags the entity for the next replication drain.
func (e *Entity) MarkScalesForSync() {
	e.syncPending.Store(true)
}

// SyncPending reports whether the entity is flagged for replication.
func (e *Entity) SyncPending() bool {
	return e.syncPending.Load()
}

// takeSync clears the replication flag and returns its previous value.
func (e *Entity) takeSync() bool {
	return e.syncPending.Swap(false)
}
