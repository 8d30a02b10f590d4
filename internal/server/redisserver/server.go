package redisserver

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yndnr/kvmesh-go/internal/command"
	"github.com/yndnr/kvmesh-go/internal/pubsub"
	"github.com/yndnr/kvmesh-go/internal/telemetry/metric"
)

// Config holds the RESP listener configuration.
type Config struct {
	// Enabled turns the listener on.
	Enabled bool
	// Address is the TCP listen address.
	Address string
	// ReadTimeout bounds reading one command once its first byte arrived.
	ReadTimeout time.Duration
	// WriteTimeout bounds writing one reply or message frame.
	WriteTimeout time.Duration
	// IdleTimeout closes connections idle between commands. Connections
	// with active subscriptions are exempt.
	IdleTimeout time.Duration
	// RateLimit is the maximum number of commands per second per IP.
	// Zero disables rate limiting.
	RateLimit int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Enabled:      true,
		Address:      "127.0.0.1:6379",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  5 * time.Minute,
		RateLimit:    0,
	}
}

// Server is the RESP protocol server.
type Server struct {
	cfg      *Config
	exec     *command.Executor
	broker   *pubsub.Broker
	logger   *slog.Logger
	metrics  *metric.Registry
	limiter  *ipLimiter
	ln       net.Listener
	running  atomic.Bool
	wg       sync.WaitGroup
	connsMu  sync.Mutex
	conns    map[*Conn]struct{}
	addrOnce chan struct{}
}

// New creates a server.
func New(cfg *Config, exec *command.Executor, broker *pubsub.Broker, logger *slog.Logger, metrics *metric.Registry) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:      cfg,
		exec:     exec,
		broker:   broker,
		logger:   logger.With("component", "redisserver"),
		metrics:  metrics,
		limiter:  newIPLimiter(cfg.RateLimit),
		conns:    make(map[*Conn]struct{}),
		addrOnce: make(chan struct{}),
	}
}

// Start binds the listener and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	if !s.cfg.Enabled {
		s.logger.Info("redis listener disabled")
		return nil
	}

	ln, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return err
	}
	s.ln = ln
	s.running.Store(true)
	close(s.addrOnce)
	s.logger.Info("redis listener started", "address", ln.Addr().String())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.acceptLoop(ctx, ln); err != nil && s.running.Load() {
			s.logger.Error("redis accept loop failed", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	select {
	case <-s.addrOnce:
		return s.ln.Addr()
	default:
		return nil
	}
}

// Shutdown stops accepting, closes every connection and waits for the
// connection goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	s.running.Store(false)

	var firstErr error
	if s.ln != nil {
		if err := s.ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			firstErr = err
		}
	}

	s.connsMu.Lock()
	for c := range s.conns {
		_ = c.Close()
	}
	s.connsMu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return firstErr
}

// ConnCount returns the number of open connections.
func (s *Server) ConnCount() int {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	return len(s.conns)
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) error {
	for {
		c, err := ln.Accept()
		if err != nil {
			if !s.running.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			return err
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serveConn(ctx, s.newConn(c))
		}()
	}
}

func (s *Server) newConn(nc net.Conn) *Conn {
	c := newConn(nc, s.logger, s.cfg.WriteTimeout)
	c.SetAuthenticated(!s.exec.RequiresAuth())
	return c
}

func (s *Server) track(c *Conn) {
	s.connsMu.Lock()
	s.conns[c] = struct{}{}
	s.connsMu.Unlock()
	s.metrics.ConnOpened()

	// Lost the race with Shutdown.
	if s.ln != nil && !s.running.Load() {
		_ = c.Close()
	}
}

func (s *Server) untrack(c *Conn) {
	s.connsMu.Lock()
	delete(s.conns, c)
	s.connsMu.Unlock()
	s.metrics.ConnClosed()
}

func (s *Server) serveConn(ctx context.Context, c *Conn) {
	s.track(c)
	c.logger.Debug("connection opened")

	defer func() {
		_ = c.Close()
		for _, ep := range c.subscriptions() {
			s.broker.Unsubscribe(ep)
		}
		c.deliverWG.Wait()
		s.untrack(c)
		c.logger.Debug("connection closed")
	}()

	readTimeout := s.cfg.ReadTimeout
	if readTimeout == 0 {
		readTimeout = 30 * time.Second
	}
	idleTimeout := s.cfg.IdleTimeout
	if idleTimeout == 0 {
		idleTimeout = 5 * time.Minute
	}
	ip := hostOf(c.RemoteAddr())

	for {
		// Subscribed connections may sit idle indefinitely.
		idle := time.Now().Add(idleTimeout)
		if c.subscribed() {
			idle = time.Time{}
		}
		if err := c.netConn.SetReadDeadline(idle); err != nil {
			return
		}
		if _, err := c.br.Peek(1); err != nil {
			s.logReadErr(c, err)
			return
		}

		// After the first byte: per-command read timeout.
		if err := c.netConn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
			return
		}

		args, err := ReadCommand(c.br)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				c.logger.Debug("connection timed out")
				return
			}
			msg := "ERR protocol error: " + err.Error()
			if errors.Is(err, ErrLimitExceeded) {
				c.logger.Warn("protocol limit exceeded", "error", err)
				msg = "ERR protocol limit exceeded"
			}
			_ = c.writeFrame(func(w *bufio.Writer) error { return WriteError(w, msg) })
			return
		}
		if len(args) == 0 {
			continue
		}

		var reply command.Reply
		if !s.limiter.allow(ip) {
			s.metrics.ObserveRateLimited("redis")
			reply = command.Error(errRateLimited)
		} else {
			reply = s.exec.Execute(ctx, c, args)
		}

		if err := c.writeFrame(func(w *bufio.Writer) error { return WriteReply(w, reply) }); err != nil {
			c.logger.Debug("reply write failed", "error", err)
			return
		}
		c.startDelivery()
		if c.quit.Load() {
			return
		}
	}
}

func (s *Server) logReadErr(c *Conn, err error) {
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		c.logger.Debug("idle connection timed out")
		return
	}
	c.logger.Debug("connection read error", "error", err)
}

var errRateLimited = errors.New("rate limit exceeded")
