package connection

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/yndnr/kvmesh-go/internal/command"
	"github.com/yndnr/kvmesh-go/internal/server/redisserver"
)

// DefaultTimeout bounds dialing and each request/reply round trip.
const DefaultTimeout = 10 * time.Second

// ErrClosed is returned after Close.
var ErrClosed = errors.New("connection: client closed")

// Options configures Dial.
type Options struct {
	Timeout time.Duration
	// Password is sent with AUTH right after connecting when non-empty.
	Password string
}

// Client is a single RESP connection. It is safe for use by one caller at
// a time; the mutex only guards Close against an in-flight request.
type Client struct {
	addr    string
	timeout time.Duration

	mu     sync.Mutex
	conn   net.Conn
	br     *bufio.Reader
	bw     *bufio.Writer
	closed bool
}

// Dial connects to addr and authenticates if a password is set.
func Dial(ctx context.Context, addr string, opts Options) (*Client, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	d := net.Dialer{Timeout: opts.Timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	c := &Client{
		addr:    addr,
		timeout: opts.Timeout,
		conn:    conn,
		br:      bufio.NewReader(conn),
		bw:      bufio.NewWriter(conn),
	}

	if opts.Password != "" {
		r, err := c.Do(ctx, "AUTH", opts.Password)
		if err != nil {
			c.Close()
			return nil, err
		}
		if r.IsError() {
			c.Close()
			return nil, fmt.Errorf("auth: %s", command.ErrorLine(r.Err))
		}
	}
	return c, nil
}

// Addr returns the server address.
func (c *Client) Addr() string { return c.addr }

// Do sends one command and reads its reply. SUBSCRIBE with several
// channels answers with one frame per channel; those are collected into
// a single array reply. Error replies are returned as replies, not errors.
func (c *Client) Do(ctx context.Context, args ...string) (command.Reply, error) {
	if len(args) == 0 {
		return command.Reply{}, errors.New("connection: empty command")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return command.Reply{}, ErrClosed
	}

	stop := c.deadline(ctx, true)
	defer stop()

	if err := redisserver.WriteCommand(c.bw, args); err != nil {
		return command.Reply{}, err
	}
	if err := c.bw.Flush(); err != nil {
		return command.Reply{}, err
	}

	frames := 1
	if strings.EqualFold(args[0], "SUBSCRIBE") && len(args) > 2 {
		frames = len(args) - 1
	}

	first, err := redisserver.ReadReply(c.br)
	if err != nil || frames == 1 || first.IsError() {
		return first, err
	}
	items := []command.Reply{first}
	for i := 1; i < frames; i++ {
		r, err := redisserver.ReadReply(c.br)
		if err != nil {
			return command.Reply{}, err
		}
		items = append(items, r)
	}
	return command.Array(items...), nil
}

// Receive reads the next pushed frame, typically a pub/sub message. It
// blocks until a frame arrives or ctx is done.
func (c *Client) Receive(ctx context.Context) (command.Reply, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return command.Reply{}, ErrClosed
	}

	stop := c.deadline(ctx, false)
	defer stop()

	r, err := redisserver.ReadReply(c.br)
	if err != nil && ctx.Err() != nil {
		return command.Reply{}, ctx.Err()
	}
	return r, err
}

// deadline applies ctx's deadline (or the client timeout when bounded is
// set) and interrupts blocked I/O when ctx is cancelled.
func (c *Client) deadline(ctx context.Context, bounded bool) (stop func()) {
	var dl time.Time
	if d, ok := ctx.Deadline(); ok {
		dl = d
	}
	if bounded {
		if t := time.Now().Add(c.timeout); dl.IsZero() || t.Before(dl) {
			dl = t
		}
	}
	_ = c.conn.SetDeadline(dl)

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = c.conn.SetDeadline(time.Unix(1, 0))
		case <-done:
		}
	}()
	return func() { close(done) }
}

// Close closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close()
}
