package pubsub

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrClosed is returned by Receive after the endpoint was closed.
	ErrClosed = errors.New("pubsub: endpoint closed")

	// ErrSlowSubscriber is returned by Receive after the endpoint was
	// disconnected for exceeding its pending-message bound.
	ErrSlowSubscriber = errors.New("pubsub: subscriber queue overflow")
)

// Message is one published payload.
type Message struct {
	Channel string
	Payload string
}

// Endpoint is a single subscription: one channel, one ordered queue.
type Endpoint struct {
	id         uint64
	channel    string
	maxPending int

	mu     sync.Mutex
	queue  []Message
	err    error
	notify chan struct{}
	done   chan struct{}
}

func newEndpoint(id uint64, channel string, maxPending int) *Endpoint {
	return &Endpoint{
		id:         id,
		channel:    channel,
		maxPending: maxPending,
		notify:     make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
}

// ID returns the broker-assigned endpoint ID.
func (e *Endpoint) ID() uint64 { return e.id }

// Channel returns the subscribed channel name.
func (e *Endpoint) Channel() string { return e.channel }

// Done is closed once the endpoint is closed.
func (e *Endpoint) Done() <-chan struct{} { return e.done }

// Err reports why the endpoint was closed, or nil while it is live.
func (e *Endpoint) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

// Pending returns the number of queued messages.
func (e *Endpoint) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}

// offer enqueues msg. It returns false when the endpoint is closed or
// has just been closed for overflow.
func (e *Endpoint) offer(msg Message) bool {
	e.mu.Lock()
	if e.err != nil {
		e.mu.Unlock()
		return false
	}
	if e.maxPending > 0 && len(e.queue) >= e.maxPending {
		e.closeLocked(ErrSlowSubscriber)
		e.mu.Unlock()
		return false
	}
	e.queue = append(e.queue, msg)
	e.mu.Unlock()

	select {
	case e.notify <- struct{}{}:
	default:
	}
	return true
}

// Receive blocks until a message is queued, the endpoint is closed or
// ctx is done. Messages come out in the order they were offered.
func (e *Endpoint) Receive(ctx context.Context) (Message, error) {
	for {
		e.mu.Lock()
		if e.err != nil {
			err := e.err
			e.mu.Unlock()
			return Message{}, err
		}
		if len(e.queue) > 0 {
			msg := e.queue[0]
			e.queue[0] = Message{}
			e.queue = e.queue[1:]
			if len(e.queue) == 0 {
				e.queue = nil
			}
			e.mu.Unlock()
			return msg, nil
		}
		e.mu.Unlock()

		select {
		case <-e.notify:
		case <-e.done:
		case <-ctx.Done():
			return Message{}, ctx.Err()
		}
	}
}

// Close detaches the endpoint. Queued messages are discarded; the next
// Publish on its channel prunes it from the registry.
func (e *Endpoint) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closeLocked(ErrClosed)
}

func (e *Endpoint) closeLocked(reason error) {
	if e.err != nil {
		return
	}
	e.err = reason
	e.queue = nil
	close(e.done)
}

// closed reports whether the endpoint no longer accepts messages.
func (e *Endpoint) closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err != nil
}
