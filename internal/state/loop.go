package state

import (
	"context"
	"errors"
	"log/slog"

	"go.uber.org/atomic"
)

// ErrLoopStopped is returned when an event is posted after the loop exited.
var ErrLoopStopped = errors.New("state loop stopped")

// Event mutates the state. It runs on the Loop goroutine.
type Event func(*AppState)

// Loop serialises every state mutation onto one goroutine and publishes an
// immutable View after each event.
type Loop struct {
	events chan Event
	done   chan struct{}
	state  *AppState
	view   atomic.Pointer[View]
	logger *slog.Logger
}

// NewLoop creates a Loop whose event queue holds up to buffer pending events.
func NewLoop(buffer int, logger *slog.Logger) *Loop {
	if buffer <= 0 {
		buffer = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	l := &Loop{
		events: make(chan Event, buffer),
		done:   make(chan struct{}),
		state:  &AppState{},
		logger: logger,
	}
	v := l.state.view()
	l.view.Store(&v)
	return l
}

// Run processes events until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)
	l.logger.Debug("state loop started")

	for {
		select {
		case <-ctx.Done():
			l.logger.Debug("state loop stopped")
			return ctx.Err()
		case ev := <-l.events:
			ev(l.state)
			v := l.state.view()
			l.view.Store(&v)
		}
	}
}

// Post queues ev without waiting for it to run. It is safe for concurrent use.
func (l *Loop) Post(ev Event) error {
	select {
	case <-l.done:
		return ErrLoopStopped
	default:
	}

	select {
	case l.events <- ev:
		return nil
	case <-l.done:
		return ErrLoopStopped
	}
}

// Do runs ev on the loop and waits until the View reflecting it is published.
func (l *Loop) Do(ctx context.Context, ev Event) error {
	if err := l.Post(ev); err != nil {
		return err
	}

	// Events run in order, so the barrier runs after ev's View was stored.
	published := make(chan struct{})
	if err := l.Post(func(*AppState) { close(published) }); err != nil {
		return err
	}

	select {
	case <-published:
		return nil
	case <-l.done:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// View returns the state as of the last processed event.
func (l *Loop) View() View {
	return *l.view.Load()
}
