package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSink captures written events and signals each delivery.
type recordingSink struct {
	mu        sync.Mutex
	events    []Event
	closed    bool
	delivered chan struct{}
}

func newRecordingSink() *recordingSink {
	return &recordingSink{delivered: make(chan struct{}, 64)}
}

func (s *recordingSink) Write(_ context.Context, event Event) error {
	s.mu.Lock()
	s.events = append(s.events, event)
	s.mu.Unlock()
	s.delivered <- struct{}{}
	return nil
}

func (s *recordingSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *recordingSink) snapshot() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

func TestPublisherDeliversInOrder(t *testing.T) {
	sink := newRecordingSink()
	p := NewPublisher(sink)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = p.Run(ctx)
		close(done)
	}()

	actions := []Action{ActionDomainRegistered, ActionDomainRenewed, ActionTargetUpdated}
	for _, a := range actions {
		p.Emit(ctx, Event{Action: a, Name: "ordered", TLD: "neo"})
	}

	for range actions {
		select {
		case <-sink.delivered:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for delivery")
		}
	}

	got := sink.snapshot()
	require.Len(t, got, 3)
	for i, a := range actions {
		assert.Equal(t, a, got[i].Action)
	}

	cancel()
	<-done
	assert.True(t, sink.closed)
}

func TestPublisherDropsWhenFull(t *testing.T) {
	sink := newRecordingSink()

	var drops int
	p := NewPublisher(sink,
		WithBuffer(1),
		WithDropCounter(func() { drops++ }),
	)

	// No worker running: the second emit cannot be enqueued.
	ctx := context.Background()
	p.Emit(ctx, Event{Action: ActionDomainRegistered})
	p.Emit(ctx, Event{Action: ActionDomainRenewed})

	assert.Equal(t, 1, drops)
}
