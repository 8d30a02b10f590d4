package redisserver

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/kvmesh-go/internal/pubsub"
)

// Conn is one client connection. It implements command.Session.
type Conn struct {
	id      string
	netConn net.Conn
	br      *bufio.Reader
	logger  *slog.Logger

	// writeMu serializes replies and message frames on bw.
	writeMu      sync.Mutex
	bw           *bufio.Writer
	writeTimeout time.Duration

	authed atomic.Bool
	quit   atomic.Bool
	closed atomic.Bool

	subMu   sync.Mutex
	subs    []*pubsub.Endpoint
	pending []*pubsub.Endpoint // attached, delivery not started yet

	// delivery loops stop when ctx is cancelled
	ctx       context.Context
	cancel    context.CancelFunc
	deliverWG sync.WaitGroup
}

func newConn(c net.Conn, logger *slog.Logger, writeTimeout time.Duration) *Conn {
	if logger == nil {
		logger = slog.Default()
	}
	id := "conn-" + strings.ToLower(ulid.Make().String())
	ctx, cancel := context.WithCancel(context.Background())
	return &Conn{
		id:           id,
		netConn:      c,
		br:           bufio.NewReader(c),
		bw:           bufio.NewWriter(c),
		writeTimeout: writeTimeout,
		logger:       logger.With("conn_id", id, "remote", c.RemoteAddr().String()),
		ctx:          ctx,
		cancel:       cancel,
	}
}

// ID returns the connection ID.
func (c *Conn) ID() string { return c.id }

func (c *Conn) RemoteAddr() net.Addr {
	return c.netConn.RemoteAddr()
}

// Close closes the socket and stops the delivery loops. It is safe to
// call more than once and from any goroutine.
func (c *Conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.cancel()
	return c.netConn.Close()
}

func (c *Conn) Authenticated() bool     { return c.authed.Load() }
func (c *Conn) SetAuthenticated(v bool) { c.authed.Store(v) }
func (c *Conn) Quit()                   { c.quit.Store(true) }

// Attach registers ep with the connection. Its delivery loop starts once
// the SUBSCRIBE reply has been written, so the confirmation frame always
// precedes the first message.
func (c *Conn) Attach(ep *pubsub.Endpoint) int {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	c.subs = append(c.subs, ep)
	c.pending = append(c.pending, ep)
	return len(c.subs)
}

// startDelivery launches delivery loops for endpoints attached since the
// last call.
func (c *Conn) startDelivery() {
	c.subMu.Lock()
	pending := c.pending
	c.pending = nil
	c.subMu.Unlock()

	for _, ep := range pending {
		c.deliverWG.Add(1)
		go c.deliver(ep)
	}
}

func (c *Conn) subscribed() bool {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	return len(c.subs) > 0
}

// subscriptions returns and forgets the attached endpoints.
func (c *Conn) subscriptions() []*pubsub.Endpoint {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	subs := c.subs
	c.subs = nil
	c.pending = nil
	return subs
}

// deliver forwards ep's messages to the client until the endpoint or the
// connection is closed. An overflowing endpoint closes the connection.
func (c *Conn) deliver(ep *pubsub.Endpoint) {
	defer c.deliverWG.Done()

	for {
		msg, err := ep.Receive(c.ctx)
		if err != nil {
			if errors.Is(err, pubsub.ErrSlowSubscriber) {
				c.logger.Warn("closing slow subscriber", "channel", ep.Channel())
				_ = c.Close()
			}
			return
		}
		if err := c.writeFrame(func(w *bufio.Writer) error {
			return WriteMessage(w, msg.Channel, msg.Payload)
		}); err != nil {
			c.logger.Debug("message delivery failed", "channel", ep.Channel(), "error", err)
			_ = c.Close()
			return
		}
	}
}

// writeFrame writes and flushes one frame under the write lock.
func (c *Conn) writeFrame(fn func(w *bufio.Writer) error) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.writeTimeout > 0 {
		if err := c.netConn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return err
		}
	}
	if err := fn(c.bw); err != nil {
		return err
	}
	return c.bw.Flush()
}
