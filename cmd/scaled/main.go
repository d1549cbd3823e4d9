package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/udisondev/scalekit/internal/config"
	"github.com/udisondev/scalekit/internal/crypto"
	"github.com/udisondev/scalekit/internal/db"
	"github.com/udisondev/scalekit/internal/registry"
	"github.com/udisondev/scalekit/internal/replication"
	"github.com/udisondev/scalekit/internal/savefile"
	"github.com/udisondev/scalekit/internal/storage"
	"github.com/udisondev/scalekit/internal/ticker"
	"github.com/udisondev/scalekit/internal/world"
)

const (
	ServerConfigPath = "config/server.yaml"

	shutdownTimeout = 10 * time.Second
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// Load config FIRST to determine log level
	cfg, err := config.LoadServer(config.ServerPath(ServerConfigPath))
	if err != nil {
		return fmt.Errorf("loading server config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating server config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	})))

	slog.Info("scalekit server starting",
		"log_level", cfg.LogLevel,
		"addr", cfg.Addr(),
		"tick", cfg.TickInterval,
		"storage", cfg.Storage)

	defs, err := config.LoadCategories(cfg.CategoriesPath)
	if err != nil {
		return fmt.Errorf("loading categories: %w", err)
	}

	w := world.New()
	reg := registry.New()
	if err := reg.Apply(defs, w); err != nil {
		return fmt.Errorf("registering categories: %w", err)
	}
	w.Track(reg.Categories()...)
	slog.Info("registry initialized",
		"categories", len(defs.Categories),
		"modifiers", len(defs.Modifiers))

	backend, closeBackend, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeBackend()
	store := storage.NewService(backend, w, reg, cfg.SaveWorkers)

	cipher, err := crypto.NewFrameCipher([]byte(cfg.Replication.CipherKey))
	if err != nil {
		return fmt.Errorf("creating frame cipher: %w", err)
	}

	loop := ticker.New(w, cfg.TickInterval)
	tracker := replication.NewTracker(w)
	exec := replication.NewExecutor(w, reg, tracker, store, loop)
	hub := replication.NewHub(loop, tracker, exec, cipher, replication.HubConfig{
		WriteTimeout:  cfg.Replication.WriteTimeout,
		SendQueueSize: cfg.Replication.SendQueueSize,
	})
	loop.AddHook(hub.Broadcast)

	mux := http.NewServeMux()
	mux.HandleFunc(cfg.Replication.Path, hub.Handle)
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := loop.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("simulation loop: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		slog.Info("starting replication server", "addr", srv.Addr, "path", cfg.Replication.Path, "encrypted", cipher != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("replication server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("replication server shutdown: %w", err)
		}
		return nil
	})

	if store.Enabled() && cfg.AutosaveInterval > 0 {
		g.Go(func() error {
			if err := store.Autosave(gctx, cfg.AutosaveInterval, loop); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("autosave: %w", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	// The simulation goroutine has exited; capture runs here directly.
	if store.Enabled() {
		saveCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := store.SaveAll(saveCtx, direct{}); err != nil {
			return fmt.Errorf("final save: %w", err)
		}
		slog.Info("final save completed", "entities", w.EntityCount())
	}

	slog.Info("scalekit server stopped",
		"steps", loop.Steps(),
		"batches", hub.Batches(),
		"dropped_clients", hub.Dropped())
	return nil
}

// openBackend selects the persistence backend named by cfg.Storage.
// The returned close function is always non-nil.
func openBackend(ctx context.Context, cfg config.Server) (storage.Backend, func(), error) {
	noop := func() {}

	switch cfg.Storage {
	case config.StoragePostgres:
		database, err := db.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
		if err != nil {
			return nil, noop, fmt.Errorf("connecting to database: %w", err)
		}
		slog.Info("database connected")

		if err := database.Migrate(ctx); err != nil {
			database.Close()
			return nil, noop, fmt.Errorf("running migrations: %w", err)
		}
		slog.Info("database migrations applied")
		return database.Scales(), database.Close, nil

	case config.StorageFile:
		b, err := savefile.Open(cfg.SaveFile.AppName)
		if err != nil {
			return nil, noop, fmt.Errorf("opening save file: %w", err)
		}
		slog.Info("save file backend opened", "app", cfg.SaveFile.AppName)
		return b, noop, nil

	case config.StorageMemory:
		slog.Warn("memory storage selected, scales are lost on exit")
		return storage.NewMemoryBackend(), noop, nil

	default:
		slog.Info("persistence disabled")
		return nil, noop, nil
	}
}

// direct runs submitted functions on the calling goroutine.
type direct struct{}

func (direct) Submit(fn func()) error {
	fn()
	return nil
}
