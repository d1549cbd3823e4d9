package scale

// Side tells which simulation context an attached entity lives in.
type Side uint8

const (
	// SideDetached: the entity is not (yet) part of a world.
	SideDetached Side = iota
	// SideAuthoritative: the server-side simulation that owns the truth.
	SideAuthoritative
	// SidePresentation: a replica that only renders replicated state.
	SidePresentation
)

// String returns a human-readable side name.
func (s Side) String() string {
	switch s {
	case SideAuthoritative:
		return "authoritative"
	case SidePresentation:
		return "presentation"
	default:
		return "detached"
	}
}

// Kind is an entity type name ("player", "npc", ...).
type Kind string

// KindPlayer is special-cased for categories that affect collision volume.
const KindPlayer Kind = "player"

// Entity is the attachment context a State sees of its owner.
// The state never reaches into entity internals beyond this.
type Entity interface {
	ObjectID() uint32
	Kind() Kind
	Side() Side
	// FirstUpdate is true until the entity completed its first simulation step.
	FirstUpdate() bool
	// MarkScalesForSync raises the entity-level replication flag.
	MarkScalesForSync()
}

// Holder owns the single authoritative State per (entity, category) pair.
type Holder interface {
	Load(e Entity, c *Category) (*State, bool)
	// LoadOrStore returns the existing state if present, otherwise stores s.
	LoadOrStore(e Entity, c *Category, s *State) (actual *State, loaded bool)
}

// Resolver maps stable identifiers to implementations during decoding.
type Resolver interface {
	Modifier(id string) (Modifier, bool)
	Easing(id string) (*Easing, bool)
}
