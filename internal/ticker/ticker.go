// Package ticker drives the authoritative simulation at a fixed rate.
package ticker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultQueueSize is the command queue capacity used by New.
const DefaultQueueSize = 1024

// ErrQueueFull is returned by Submit when the command queue is saturated.
var ErrQueueFull = errors.New("ticker: command queue full")

// Stepper advances simulation state by one step and reports how many
// objects it touched.
type Stepper interface {
	Tick() int
}

// Hook runs on the simulation goroutine after every step.
type Hook func(step uint64)

// Loop runs queued commands, steps the world and runs hooks, once per interval.
type Loop struct {
	stepper  Stepper
	interval time.Duration

	commands chan func()

	hooksMu sync.Mutex
	hooks   []Hook

	stopOnce sync.Once
	stopCh   chan struct{}

	steps atomic.Uint64
}

// New creates a loop stepping s every interval.
func New(s Stepper, interval time.Duration) *Loop {
	return &Loop{
		stepper:  s,
		interval: interval,
		commands: make(chan func(), DefaultQueueSize),
		stopCh:   make(chan struct{}),
	}
}

// AddHook registers a post-step hook. Hooks run in registration order.
func (l *Loop) AddHook(h Hook) {
	l.hooksMu.Lock()
	defer l.hooksMu.Unlock()
	l.hooks = append(l.hooks, h)
}

// Submit queues fn to run on the simulation goroutine before the next step.
// Safe for concurrent use; never blocks.
func (l *Loop) Submit(fn func()) error {
	select {
	case l.commands <- fn:
		return nil
	default:
		return ErrQueueFull
	}
}

// Start starts the step loop (blocks until context is canceled)
func (l *Loop) Start(ctx context.Context) error {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	slog.Info("simulation loop started", "interval", l.interval)

	for {
		select {
		case <-ctx.Done():
			slog.Info("simulation loop stopping", "steps", l.Steps())
			return ctx.Err()

		case <-l.stopCh:
			slog.Info("simulation loop stopped", "steps", l.Steps())
			return nil

		case <-ticker.C:
			l.Step()
		}
	}
}

// Stop stops the step loop
func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.stopCh) })
}

// Step runs one full step synchronously: pending commands, the world step,
// then hooks. Exposed for tests and tools that drive the loop by hand.
func (l *Loop) Step() {
	applied := l.drainCommands()
	ticked := l.stepper.Tick()
	step := l.steps.Add(1)

	l.hooksMu.Lock()
	hooks := l.hooks
	l.hooksMu.Unlock()
	for _, h := range hooks {
		h(step)
	}

	if applied > 0 {
		slog.Debug("simulation step completed", "step", step, "commands", applied, "states", ticked)
	}
}

func (l *Loop) drainCommands() int {
	n := 0
	for {
		select {
		case fn := <-l.commands:
			fn()
			n++
		default:
			return n
		}
	}
}

// Steps returns the number of completed steps.
func (l *Loop) Steps() uint64 {
	return l.steps.Load()
}
