package ticker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingStepper struct {
	ticks atomic.Int32
	order *[]string
}

func (s *countingStepper) Tick() int {
	s.ticks.Add(1)
	if s.order != nil {
		*s.order = append(*s.order, "tick")
	}
	return 1
}

func TestLoop_StepOrder(t *testing.T) {
	var order []string
	l := New(&countingStepper{order: &order}, time.Hour)
	l.AddHook(func(step uint64) { order = append(order, "hook1") })
	l.AddHook(func(step uint64) { order = append(order, "hook2") })

	require.NoError(t, l.Submit(func() { order = append(order, "cmd1") }))
	require.NoError(t, l.Submit(func() { order = append(order, "cmd2") }))

	l.Step()

	assert.Equal(t, []string{"cmd1", "cmd2", "tick", "hook1", "hook2"}, order)
	assert.Equal(t, uint64(1), l.Steps())
}

func TestLoop_HookReceivesStepNumber(t *testing.T) {
	l := New(&countingStepper{}, time.Hour)
	var got []uint64
	l.AddHook(func(step uint64) { got = append(got, step) })

	l.Step()
	l.Step()
	l.Step()

	assert.Equal(t, []uint64{1, 2, 3}, got)
}

func TestLoop_SubmitQueueFull(t *testing.T) {
	l := New(&countingStepper{}, time.Hour)
	for range DefaultQueueSize {
		require.NoError(t, l.Submit(func() {}))
	}

	err := l.Submit(func() {})
	assert.True(t, errors.Is(err, ErrQueueFull))

	l.Step()
	assert.NoError(t, l.Submit(func() {}))
}

func TestLoop_Start(t *testing.T) {
	s := &countingStepper{}
	l := New(s, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- l.Start(ctx)
	}()

	require.Eventually(t, func() bool { return s.ticks.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Start() did not stop after context cancel")
	}
}

func TestLoop_Stop(t *testing.T) {
	l := New(&countingStepper{}, time.Millisecond)

	done := make(chan error, 1)
	go func() {
		done <- l.Start(context.Background())
	}()

	l.Stop()
	l.Stop() // idempotent

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start() did not return after Stop()")
	}
}
