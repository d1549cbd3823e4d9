package replication

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/udisondev/scalekit/internal/registry"
	"github.com/udisondev/scalekit/internal/scale"
	"github.com/udisondev/scalekit/internal/storage"
	"github.com/udisondev/scalekit/internal/world"
)

// DefaultCategory is used by commands that name no category.
const DefaultCategory = "scale:base"

// Command names accepted from clients.
const (
	CmdSpawn          = "spawn"
	CmdDespawn        = "despawn"
	CmdTarget         = "target"
	CmdScale          = "scale"
	CmdDelay          = "delay"
	CmdEasing         = "easing"
	CmdPersist        = "persist"
	CmdModifierAdd    = "modifier_add"
	CmdModifierRemove = "modifier_remove"
	CmdReset          = "reset"
	CmdCopy           = "copy"
	CmdSave           = "save"
	CmdLoad           = "load"
)

var (
	ErrUnknownCommand  = errors.New("unknown command")
	ErrUnknownEntity   = errors.New("unknown entity")
	ErrMissingValue    = errors.New("missing value")
	ErrStorageDisabled = errors.New("storage disabled")
)

// Command is a JSON client request. Fields a command does not use are ignored.
type Command struct {
	Seq      uint64   `json:"seq,omitempty"`
	Cmd      string   `json:"cmd"`
	Entity   uint32   `json:"entity,omitempty"`
	Category string   `json:"category,omitempty"`
	Value    *float64 `json:"value,omitempty"`
	ID       string   `json:"id,omitempty"`
	Kind     string   `json:"kind,omitempty"`
	Source   uint32   `json:"source,omitempty"`
	Persist  *bool    `json:"persist,omitempty"`
}

// Reply answers one command.
type Reply struct {
	Type   string `json:"type"`
	Seq    uint64 `json:"seq,omitempty"`
	Cmd    string `json:"cmd"`
	Entity uint32 `json:"entity,omitempty"`
	Reason string `json:"reason,omitempty"`
}

func ack(cmd Command, entity uint32) Reply {
	return Reply{Type: "ack", Seq: cmd.Seq, Cmd: cmd.Cmd, Entity: entity}
}

func reject(cmd Command, err error) Reply {
	return Reply{Type: "reject", Seq: cmd.Seq, Cmd: cmd.Cmd, Entity: cmd.Entity, Reason: err.Error()}
}

// Executor applies commands to the authoritative world. Execute must run on
// the simulation goroutine; storage I/O is handed off to other goroutines
// and its results come back through sim.
type Executor struct {
	world   *world.World
	reg     *registry.Registry
	tracker *Tracker
	store   *storage.Service
	sim     storage.Submitter
}

// NewExecutor creates an executor. store may be nil.
func NewExecutor(w *world.World, reg *registry.Registry, t *Tracker, store *storage.Service, sim storage.Submitter) *Executor {
	return &Executor{world: w, reg: reg, tracker: t, store: store, sim: sim}
}

// Execute applies cmd and returns the reply to send back.
func (x *Executor) Execute(ctx context.Context, cmd Command) Reply {
	id, err := x.execute(ctx, cmd)
	if err != nil {
		slog.Debug("command rejected", "cmd", cmd.Cmd, "entity", cmd.Entity, "error", err)
		return reject(cmd, err)
	}
	return ack(cmd, id)
}

func (x *Executor) execute(ctx context.Context, cmd Command) (uint32, error) {
	switch cmd.Cmd {
	case CmdSpawn:
		return x.spawn(cmd)
	case CmdDespawn:
		if _, ok := x.world.Entity(cmd.Entity); !ok {
			return 0, fmt.Errorf("%w: %d", ErrUnknownEntity, cmd.Entity)
		}
		x.world.RemoveEntity(cmd.Entity)
		x.tracker.Despawned(cmd.Entity)
		return cmd.Entity, nil
	case CmdCopy:
		return x.copy(cmd)
	case CmdSave:
		return cmd.Entity, x.save(ctx, cmd)
	case CmdLoad:
		return cmd.Entity, x.load(ctx, cmd)
	}

	s, err := x.state(cmd)
	if err != nil {
		return 0, err
	}

	switch cmd.Cmd {
	case CmdTarget:
		v, err := value(cmd)
		if err != nil {
			return 0, err
		}
		s.SetTargetScale(float32(v))
	case CmdScale:
		v, err := value(cmd)
		if err != nil {
			return 0, err
		}
		s.SetScale(float32(v))
	case CmdDelay:
		v, err := value(cmd)
		if err != nil {
			return 0, err
		}
		s.SetScaleTickDelay(int32(v))
	case CmdEasing:
		if cmd.ID == "" {
			s.SetEasing(nil)
			break
		}
		e, ok := x.reg.Easing(cmd.ID)
		if !ok {
			return 0, fmt.Errorf("%w: %s", registry.ErrUnknownEasing, cmd.ID)
		}
		s.SetEasing(e)
	case CmdPersist:
		if cmd.Persist == nil {
			s.ClearPersistence()
		} else {
			s.SetPersistence(*cmd.Persist)
		}
	case CmdModifierAdd, CmdModifierRemove:
		m, ok := x.reg.Modifier(cmd.ID)
		if !ok {
			return 0, fmt.Errorf("%w: %s", registry.ErrUnknownModifier, cmd.ID)
		}
		if cmd.Cmd == CmdModifierAdd {
			s.AddModifier(m)
		} else {
			s.RemoveModifier(m)
		}
	case CmdReset:
		s.Reset(true)
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Cmd)
	}
	return cmd.Entity, nil
}

func value(cmd Command) (float64, error) {
	if cmd.Value == nil {
		return 0, fmt.Errorf("%w for %s", ErrMissingValue, cmd.Cmd)
	}
	return *cmd.Value, nil
}

func (x *Executor) entity(id uint32) (*world.Entity, error) {
	e, ok := x.world.Entity(id)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownEntity, id)
	}
	return e, nil
}

func (x *Executor) state(cmd Command) (*scale.State, error) {
	e, err := x.entity(cmd.Entity)
	if err != nil {
		return nil, err
	}
	id := cmd.Category
	if id == "" {
		id = DefaultCategory
	}
	c, err := x.reg.Category(id)
	if err != nil {
		return nil, err
	}
	return c.StateFor(x.world, e), nil
}

func (x *Executor) spawn(cmd Command) (uint32, error) {
	kind := scale.Kind(cmd.Kind)
	if kind == "" {
		kind = "npc"
	}
	id := cmd.Entity
	if id == 0 {
		id = x.world.IDs().Next(kind)
	}
	if err := x.world.AddEntity(world.NewEntity(id, kind, scale.SideAuthoritative)); err != nil {
		return 0, err
	}
	x.world.IDs().Reserve(id)
	return id, nil
}

func (x *Executor) copy(cmd Command) (uint32, error) {
	target, err := x.entity(cmd.Entity)
	if err != nil {
		return 0, err
	}
	source, err := x.entity(cmd.Source)
	if err != nil {
		return 0, err
	}
	x.world.CopyScales(target, source, x.reg)
	return target.ObjectID(), nil
}

func (x *Executor) save(ctx context.Context, cmd Command) error {
	if !x.store.Enabled() {
		return ErrStorageDisabled
	}
	if _, err := x.entity(cmd.Entity); err != nil {
		return err
	}
	rec := x.store.Capture(cmd.Entity)
	go func() {
		if err := x.store.Write(ctx, rec); err != nil {
			slog.Error("saving scales", "entity", rec.ObjectID, "error", err)
		}
	}()
	return nil
}

func (x *Executor) load(ctx context.Context, cmd Command) error {
	if !x.store.Enabled() {
		return ErrStorageDisabled
	}
	if _, err := x.entity(cmd.Entity); err != nil {
		return err
	}
	go func() {
		rec, err := x.store.Load(ctx, cmd.Entity)
		if err != nil {
			slog.Error("loading scales", "entity", cmd.Entity, "error", err)
			return
		}
		err = x.sim.Submit(func() {
			if e, ok := x.world.Entity(cmd.Entity); ok {
				x.store.Apply(e, rec)
			}
		})
		if err != nil {
			slog.Warn("dropping loaded scales", "entity", cmd.Entity, "error", err)
		}
	}()
	return nil
}
