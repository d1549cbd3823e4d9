// Package storage saves and restores the persistent scale states of entities.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/udisondev/scalekit/internal/scale"
	"github.com/udisondev/scalekit/internal/tag"
	"github.com/udisondev/scalekit/internal/world"
)

// ErrNoBackend is returned when persistence is disabled.
var ErrNoBackend = errors.New("storage: no backend configured")

// Record holds the persistent encodings of one entity's scales, keyed by
// category id. An empty record clears everything stored for the entity.
type Record struct {
	ObjectID uint32
	Scales   map[string]tag.Compound
}

// Backend stores records. Implementations must be safe for concurrent use.
type Backend interface {
	// SaveScales replaces everything stored for the entity.
	SaveScales(ctx context.Context, objectID uint32, scales map[string]tag.Compound) error
	// LoadScales returns an empty map for unknown entities.
	LoadScales(ctx context.Context, objectID uint32) (map[string]tag.Compound, error)
	DeleteScales(ctx context.Context, objectID uint32) error
}

// Resolver finds categories, modifiers and easings by identifier.
type Resolver interface {
	scale.Resolver
	Category(id string) (*scale.Category, error)
}

// Service moves scale states between a world and a Backend.
//
// Capture*, Apply run on the simulation goroutine; Write*, Load, Delete do
// I/O and may run anywhere.
type Service struct {
	backend  Backend
	world    *world.World
	resolver Resolver
	workers  int
}

// NewService creates a storage service. A nil backend disables writes
// (methods doing I/O return ErrNoBackend).
func NewService(b Backend, w *world.World, r Resolver, workers int) *Service {
	if workers < 1 {
		workers = 1
	}
	return &Service{backend: b, world: w, resolver: r, workers: workers}
}

// Enabled reports whether a backend is configured.
func (s *Service) Enabled() bool {
	return s != nil && s.backend != nil
}

// Capture encodes the states of the entity that should persist and are not reset.
func (s *Service) Capture(objectID uint32) Record {
	rec := Record{ObjectID: objectID, Scales: make(map[string]tag.Compound)}
	for _, st := range s.world.States(objectID) {
		if st.IsReset() || !st.ShouldPersist() {
			continue
		}
		rec.Scales[st.Category().ID()] = st.WriteTag(tag.NewCompound())
	}
	return rec
}

// CaptureAll captures every authoritative entity.
func (s *Service) CaptureAll() []Record {
	entities := s.world.Entities()
	recs := make([]Record, 0, len(entities))
	for _, e := range entities {
		if e.Side() != scale.SideAuthoritative {
			continue
		}
		recs = append(recs, s.Capture(e.ObjectID()))
	}
	return recs
}

// Write stores one record.
func (s *Service) Write(ctx context.Context, rec Record) error {
	if s.backend == nil {
		return ErrNoBackend
	}
	if err := s.backend.SaveScales(ctx, rec.ObjectID, rec.Scales); err != nil {
		return fmt.Errorf("saving scales of entity %d: %w", rec.ObjectID, err)
	}
	return nil
}

// WriteAll stores records with at most workers concurrent writes.
// Returns the first error; remaining writes are canceled.
func (s *Service) WriteAll(ctx context.Context, recs []Record) error {
	if s.backend == nil {
		return ErrNoBackend
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, rec := range recs {
		g.Go(func() error {
			return s.Write(ctx, rec)
		})
	}
	return g.Wait()
}

// Load reads the stored record of the entity.
func (s *Service) Load(ctx context.Context, objectID uint32) (Record, error) {
	if s.backend == nil {
		return Record{}, ErrNoBackend
	}
	scales, err := s.backend.LoadScales(ctx, objectID)
	if err != nil {
		return Record{}, fmt.Errorf("loading scales of entity %d: %w", objectID, err)
	}
	return Record{ObjectID: objectID, Scales: scales}, nil
}

// Delete removes everything stored for the entity.
func (s *Service) Delete(ctx context.Context, objectID uint32) error {
	if s.backend == nil {
		return ErrNoBackend
	}
	if err := s.backend.DeleteScales(ctx, objectID); err != nil {
		return fmt.Errorf("deleting scales of entity %d: %w", objectID, err)
	}
	return nil
}

// Apply decodes rec onto the entity's states. Unknown categories are
// skipped. Returns the number of states restored.
func (s *Service) Apply(e *world.Entity, rec Record) int {
	applied := 0
	for id, c := range rec.Scales {
		cat, err := s.resolver.Category(id)
		if err != nil {
			slog.Warn("skipping stored scale", "entity", e.ObjectID(), "category", id, "error", err)
			continue
		}
		cat.StateFor(s.world, e).ReadTag(c, s.resolver)
		applied++
	}
	return applied
}

// Submitter runs a function on the simulation goroutine.
type Submitter interface {
	Submit(fn func()) error
}

// Autosave captures every entity on the simulation goroutine each interval
// and writes the records (blocks until context is canceled).
func (s *Service) Autosave(ctx context.Context, interval time.Duration, sim Submitter) error {
	if s.backend == nil {
		return ErrNoBackend
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("autosave started", "interval", interval, "workers", s.workers)

	for {
		select {
		case <-ctx.Done():
			slog.Info("autosave stopping")
			return ctx.Err()

		case <-ticker.C:
			if err := s.saveAll(ctx, sim); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				slog.Error("autosave failed", "error", err)
			}
		}
	}
}

// SaveAll captures and writes every entity once.
func (s *Service) SaveAll(ctx context.Context, sim Submitter) error {
	if s.backend == nil {
		return ErrNoBackend
	}
	return s.saveAll(ctx, sim)
}

func (s *Service) saveAll(ctx context.Context, sim Submitter) error {
	captured := make(chan []Record, 1)
	if err := sim.Submit(func() { captured <- s.CaptureAll() }); err != nil {
		return fmt.Errorf("scheduling capture: %w", err)
	}

	var recs []Record
	select {
	case recs = <-captured:
	case <-ctx.Done():
		return ctx.Err()
	}

	start := time.Now()
	if err := s.WriteAll(ctx, recs); err != nil {
		return err
	}
	slog.Debug("scales saved", "entities", len(recs), "duration", time.Since(start))
	return nil
}
