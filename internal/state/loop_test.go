package state

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func startLoop(t *testing.T) *Loop {
	t.Helper()
	l := NewLoop(8, nil)
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		_ = l.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-stopped
	})
	return l
}

func TestDoPublishesView(t *testing.T) {
	l := startLoop(t)

	err := l.Do(context.Background(), func(s *AppState) { s.CurrentDate = "20240101" })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := l.View().CurrentDate; got != "20240101" {
		t.Fatalf("expected 20240101, got %q", got)
	}
}

func TestConcurrentPosts(t *testing.T) {
	l := startLoop(t)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Post(func(s *AppState) { s.issued++ }); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if err := l.Do(context.Background(), func(*AppState) {}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !l.View().Processing {
		t.Fatalf("expected posted events to be applied")
	}
	if l.state.issued != 50 {
		t.Fatalf("expected 50 events, got %d", l.state.issued)
	}
}

func TestPostAfterStop(t *testing.T) {
	l := NewLoop(1, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	if err := l.Post(func(*AppState) {}); !errors.Is(err, ErrLoopStopped) {
		t.Fatalf("expected ErrLoopStopped, got %v", err)
	}
	if err := l.Do(context.Background(), func(*AppState) {}); !errors.Is(err, ErrLoopStopped) {
		t.Fatalf("expected ErrLoopStopped, got %v", err)
	}
}

func TestDoHonoursContext(t *testing.T) {
	l := NewLoop(4, nil) // never started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := l.Do(ctx, func(*AppState) {}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
}
