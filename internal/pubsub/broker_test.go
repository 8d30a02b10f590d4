package pubsub

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func receiveWithin(t *testing.T, ep *Endpoint, d time.Duration) (Message, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return ep.Receive(ctx)
}

// ============================================================================
// Fanout
// ============================================================================

func TestBroker_PublishDeliversToCurrentSubscribers(t *testing.T) {
	b := NewBroker(Config{})

	early := b.Subscribe("c")
	if n := b.Publish("c", "first"); n != 1 {
		t.Fatalf("Publish delivered %d, want 1", n)
	}
	late := b.Subscribe("c")
	if n := b.Publish("c", "second"); n != 2 {
		t.Fatalf("Publish delivered %d, want 2", n)
	}

	for _, want := range []string{"first", "second"} {
		msg, err := receiveWithin(t, early, time.Second)
		if err != nil {
			t.Fatalf("Receive: %v", err)
		}
		if msg.Payload != want || msg.Channel != "c" {
			t.Fatalf("early got %+v, want %q", msg, want)
		}
	}

	msg, err := receiveWithin(t, late, time.Second)
	if err != nil || msg.Payload != "second" {
		t.Fatalf("late got (%+v, %v), want second", msg, err)
	}
	if _, err := receiveWithin(t, late, 20*time.Millisecond); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("late subscriber should have nothing else, got %v", err)
	}
}

func TestBroker_PublishNoSubscribers(t *testing.T) {
	b := NewBroker(Config{})
	if n := b.Publish("nobody", "hi"); n != 0 {
		t.Errorf("Publish delivered %d, want 0", n)
	}
	if s := b.Stats(); s.Channels != 0 {
		t.Errorf("publish must not create channels, stats = %+v", s)
	}
}

func TestBroker_FIFOPerSubscriber(t *testing.T) {
	b := NewBroker(Config{MaxPending: 1000})
	ep := b.Subscribe("c")

	for i := 0; i < 500; i++ {
		b.Publish("c", fmt.Sprint(i))
	}
	for i := 0; i < 500; i++ {
		msg, err := receiveWithin(t, ep, time.Second)
		if err != nil {
			t.Fatalf("Receive #%d: %v", i, err)
		}
		if msg.Payload != fmt.Sprint(i) {
			t.Fatalf("message #%d = %q", i, msg.Payload)
		}
	}
}

// ============================================================================
// Pruning and overflow
// ============================================================================

func TestBroker_ClosedEndpointsArePruned(t *testing.T) {
	b := NewBroker(Config{})
	a := b.Subscribe("c")
	gone := b.Subscribe("c")

	gone.Close()
	if b.Subscribers("c") != 2 {
		t.Fatalf("closed endpoint should stay registered until the next publish")
	}
	if n := b.Publish("c", "x"); n != 1 {
		t.Fatalf("Publish delivered %d, want 1", n)
	}
	if b.Subscribers("c") != 1 {
		t.Fatalf("Subscribers = %d, want 1 after pruning", b.Subscribers("c"))
	}

	a.Close()
	b.Publish("c", "y")
	if s := b.Stats(); s.Channels != 0 || s.Subscribers != 0 {
		t.Fatalf("empty channel should be removed, stats = %+v", s)
	}
}

func TestBroker_OverflowDisconnects(t *testing.T) {
	b := NewBroker(Config{MaxPending: 2})
	slow := b.Subscribe("c")
	fast := b.Subscribe("c")

	b.Publish("c", "1")
	b.Publish("c", "2")
	if _, err := receiveWithin(t, fast, time.Second); err != nil {
		t.Fatal(err)
	}
	if _, err := receiveWithin(t, fast, time.Second); err != nil {
		t.Fatal(err)
	}

	if n := b.Publish("c", "3"); n != 1 {
		t.Fatalf("Publish delivered %d, want 1 (slow subscriber dropped)", n)
	}
	select {
	case <-slow.Done():
	default:
		t.Fatal("slow endpoint should be closed")
	}
	if _, err := slow.Receive(context.Background()); !errors.Is(err, ErrSlowSubscriber) {
		t.Fatalf("Receive err = %v, want ErrSlowSubscriber", err)
	}
	if b.Subscribers("c") != 1 {
		t.Fatalf("Subscribers = %d, want 1", b.Subscribers("c"))
	}
}

func TestBroker_Unsubscribe(t *testing.T) {
	b := NewBroker(Config{})
	ep := b.Subscribe("c")
	b.Unsubscribe(ep)

	if b.Subscribers("c") != 0 {
		t.Fatalf("Subscribers = %d, want 0", b.Subscribers("c"))
	}
	if _, err := ep.Receive(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("Receive err = %v, want ErrClosed", err)
	}
}

func TestBroker_Close(t *testing.T) {
	b := NewBroker(Config{})
	eps := []*Endpoint{b.Subscribe("a"), b.Subscribe("b"), b.Subscribe("b")}

	if s := b.Stats(); s.Channels != 2 || s.Subscribers != 3 {
		t.Fatalf("Stats = %+v", s)
	}
	b.Close()
	for _, ep := range eps {
		if ep.Err() == nil {
			t.Errorf("endpoint %d still open", ep.ID())
		}
	}
	if s := b.Stats(); s.Channels != 0 {
		t.Fatalf("Stats after Close = %+v", s)
	}
}

// ============================================================================
// Endpoint
// ============================================================================

func TestEndpoint_ReceiveUnblocksOnClose(t *testing.T) {
	b := NewBroker(Config{})
	ep := b.Subscribe("c")

	errCh := make(chan error, 1)
	go func() {
		_, err := ep.Receive(context.Background())
		errCh <- err
	}()

	time.Sleep(10 * time.Millisecond)
	ep.Close()

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrClosed) {
			t.Fatalf("err = %v, want ErrClosed", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Receive did not return after Close")
	}
}

func TestEndpoint_ReceiveContextCancel(t *testing.T) {
	b := NewBroker(Config{})
	ep := b.Subscribe("c")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := ep.Receive(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

// ============================================================================
// Concurrency
// ============================================================================

func TestBroker_ConcurrentPublishSubscribe(t *testing.T) {
	b := NewBroker(Config{MaxPending: 100000})

	const subscribers, publishers, perPublisher = 8, 4, 200
	eps := make([]*Endpoint, subscribers)
	for i := range eps {
		eps[i] = b.Subscribe("c")
	}

	var wg sync.WaitGroup
	for p := 0; p < publishers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perPublisher; i++ {
				if n := b.Publish("c", fmt.Sprintf("%d-%d", p, i)); n != subscribers {
					t.Errorf("Publish delivered %d, want %d", n, subscribers)
					return
				}
			}
		}(p)
	}
	wg.Wait()

	for _, ep := range eps {
		if ep.Pending() != publishers*perPublisher {
			t.Fatalf("endpoint %d pending = %d, want %d", ep.ID(), ep.Pending(), publishers*perPublisher)
		}
	}
}
