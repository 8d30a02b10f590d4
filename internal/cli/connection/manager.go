package connection

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"

	"github.com/yndnr/kvmesh-go/internal/command"
)

// Manager owns the CLI's connection and redials after a broken one.
type Manager struct {
	addr string
	opts Options

	mu     sync.Mutex
	client *Client
}

// NewManager creates a manager. Nothing is dialed until first use.
func NewManager(addr string, opts Options) *Manager {
	return &Manager{addr: addr, opts: opts}
}

// Addr returns the server address.
func (m *Manager) Addr() string { return m.addr }

// Connected reports whether a connection is currently open.
func (m *Manager) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.client != nil
}

func (m *Manager) get(ctx context.Context) (*Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client != nil {
		return m.client, nil
	}
	c, err := Dial(ctx, m.addr, m.opts)
	if err != nil {
		return nil, err
	}
	m.client = c
	return c, nil
}

func (m *Manager) drop(c *Client) {
	m.mu.Lock()
	if m.client == c {
		m.client = nil
	}
	m.mu.Unlock()
	c.Close()
}

// Do runs a command. A connection-level failure on a reused connection is
// retried once on a fresh one.
func (m *Manager) Do(ctx context.Context, args ...string) (command.Reply, error) {
	for attempt := 0; ; attempt++ {
		reused := m.Connected()
		c, err := m.get(ctx)
		if err != nil {
			return command.Reply{}, err
		}
		r, err := c.Do(ctx, args...)
		if err == nil {
			return r, nil
		}
		m.drop(c)
		if !reused || attempt > 0 || ctx.Err() != nil || !retryable(err) {
			return command.Reply{}, err
		}
	}
}

// Receive reads the next pushed frame on the current connection.
func (m *Manager) Receive(ctx context.Context) (command.Reply, error) {
	c, err := m.get(ctx)
	if err != nil {
		return command.Reply{}, err
	}
	r, err := c.Receive(ctx)
	if err != nil && ctx.Err() == nil {
		m.drop(c)
	}
	return r, err
}

// Reset closes the current connection; the next call redials. The REPL
// uses it to leave subscriber mode.
func (m *Manager) Reset() {
	m.mu.Lock()
	c := m.client
	m.client = nil
	m.mu.Unlock()
	if c != nil {
		c.Close()
	}
}

// Close closes the current connection.
func (m *Manager) Close() error {
	m.Reset()
	return nil
}

// retryable reports whether err means the connection went away, as when
// the server restarted or dropped an idle client.
func retryable(err error) bool {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && !ne.Timeout()
}
