package pubsub

import (
	"log/slog"
	"sync/atomic"

	"github.com/yndnr/kvmesh-go/internal/telemetry/metric"
	"github.com/yndnr/kvmesh-go/pkg/cmap"
)

// DefaultMaxPending is the per-endpoint queue bound.
const DefaultMaxPending = 1024

// Config configures a Broker.
type Config struct {
	// MaxPending bounds each endpoint's queue. Zero means DefaultMaxPending.
	MaxPending int

	Logger  *slog.Logger
	Metrics *metric.Registry
}

// Broker is the channel registry.
type Broker struct {
	channels   *cmap.Map[string, []*Endpoint]
	maxPending int
	nextID     atomic.Uint64
	logger     *slog.Logger
	metrics    *metric.Registry
}

// Stats is a point-in-time view of the registry.
type Stats struct {
	Channels    int `json:"channels"`
	Subscribers int `json:"subscribers"`
}

// NewBroker creates an empty broker.
func NewBroker(cfg Config) *Broker {
	if cfg.MaxPending <= 0 {
		cfg.MaxPending = DefaultMaxPending
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Broker{
		channels:   cmap.New[string, []*Endpoint](),
		maxPending: cfg.MaxPending,
		logger:     cfg.Logger.With("component", "pubsub"),
		metrics:    cfg.Metrics,
	}
}

// Subscribe registers a fresh endpoint on channel.
func (b *Broker) Subscribe(channel string) *Endpoint {
	ep := newEndpoint(b.nextID.Add(1), channel, b.maxPending)
	b.channels.Compute(channel, func(cur []*Endpoint, _ bool) ([]*Endpoint, bool) {
		next := make([]*Endpoint, 0, len(cur)+1)
		next = append(next, cur...)
		return append(next, ep), true
	})
	b.logger.Debug("subscribed", "channel", channel, "endpoint", ep.id)
	return ep
}

// Publish offers payload to every subscriber of channel and returns how
// many accepted it. Closed or overflowing endpoints are removed from the
// registry; a channel left without subscribers is removed too.
func (b *Broker) Publish(channel, payload string) int {
	msg := Message{Channel: channel, Payload: payload}
	delivered, dropped := 0, 0

	b.channels.Compute(channel, func(cur []*Endpoint, exists bool) ([]*Endpoint, bool) {
		if !exists {
			return nil, false
		}
		live := make([]*Endpoint, 0, len(cur))
		for _, ep := range cur {
			if ep.offer(msg) {
				delivered++
				live = append(live, ep)
				continue
			}
			dropped++
			if ep.Err() == ErrSlowSubscriber {
				b.logger.Warn("subscriber disconnected: queue overflow",
					"channel", channel,
					"endpoint", ep.id,
					"max_pending", b.maxPending)
			}
		}
		return live, len(live) > 0
	})

	b.metrics.ObservePublish(delivered, dropped)
	return delivered
}

// Unsubscribe closes ep and removes it from its channel.
func (b *Broker) Unsubscribe(ep *Endpoint) {
	ep.Close()
	b.channels.Compute(ep.channel, func(cur []*Endpoint, exists bool) ([]*Endpoint, bool) {
		if !exists {
			return nil, false
		}
		live := make([]*Endpoint, 0, len(cur))
		for _, other := range cur {
			if other != ep && !other.closed() {
				live = append(live, other)
			}
		}
		return live, len(live) > 0
	})
}

// Subscribers returns the number of registered endpoints on channel.
// Closed endpoints not yet pruned are counted.
func (b *Broker) Subscribers(channel string) int {
	eps, _ := b.channels.Get(channel)
	return len(eps)
}

// Stats returns channel and subscriber counts.
func (b *Broker) Stats() Stats {
	var s Stats
	b.channels.Range(func(_ string, eps []*Endpoint) bool {
		s.Channels++
		s.Subscribers += len(eps)
		return true
	})
	return s
}

// Close closes every endpoint and empties the registry.
func (b *Broker) Close() {
	for _, channel := range b.channels.Keys() {
		eps, ok := b.channels.Pop(channel)
		if !ok {
			continue
		}
		for _, ep := range eps {
			ep.Close()
		}
	}
}
