package replication

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/udisondev/scalekit/internal/config"
	"github.com/udisondev/scalekit/internal/registry"
	"github.com/udisondev/scalekit/internal/scale"
	"github.com/udisondev/scalekit/internal/world"
)

type authority struct {
	world *world.World
	reg   *registry.Registry
}

func newAuthority(t *testing.T) *authority {
	t.Helper()
	w := world.New()
	reg := registry.New()
	require.NoError(t, reg.Apply(config.DefaultDefinitions(), w))
	w.Track(reg.Categories()...)
	return &authority{world: w, reg: reg}
}

func (a *authority) spawn(t *testing.T, id uint32, kind scale.Kind) *world.Entity {
	t.Helper()
	e := world.NewEntity(id, kind, scale.SideAuthoritative)
	require.NoError(t, a.world.AddEntity(e))
	return e
}

func (a *authority) state(t *testing.T, e *world.Entity, category string) *scale.State {
	t.Helper()
	c, err := a.reg.Category(category)
	require.NoError(t, err)
	return c.StateFor(a.world, e)
}

func newTestReplica(t *testing.T) *Replica {
	t.Helper()
	w := world.New()
	reg := registry.New()
	require.NoError(t, reg.Apply(config.DefaultDefinitions(), w))
	return NewReplica(reg, w)
}

func findView(views []EntityView, id uint32) (EntityView, bool) {
	for _, v := range views {
		if v.ObjectID == id {
			return v, true
		}
	}
	return EntityView{}, false
}

func findScale(v EntityView, category string) (scale.Snapshot, bool) {
	for _, sn := range v.Scales {
		if sn.Category == category {
			return sn, true
		}
	}
	return scale.Snapshot{}, false
}
