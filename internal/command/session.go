package command

import (
	"sync"

	"github.com/yndnr/kvmesh-go/internal/pubsub"
)

// Session is the per-connection state the executor needs.
type Session interface {
	// Authenticated reports whether AUTH has succeeded (or is not required).
	Authenticated() bool
	SetAuthenticated(bool)

	// Attach hands a new subscription to the connection, which starts a
	// delivery loop for it. It returns the number of channels the
	// connection is now subscribed to.
	Attach(ep *pubsub.Endpoint) int

	// Quit asks the transport to close the connection after the reply.
	Quit()
}

// LocalSession is an in-process Session. Subscriptions are collected,
// not delivered; callers drain them with Endpoints.
type LocalSession struct {
	mu        sync.Mutex
	authed    bool
	endpoints []*pubsub.Endpoint
	quit      bool
}

// NewLocalSession returns a session that starts out authenticated.
func NewLocalSession() *LocalSession {
	return &LocalSession{authed: true}
}

func (s *LocalSession) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authed
}

func (s *LocalSession) SetAuthenticated(v bool) {
	s.mu.Lock()
	s.authed = v
	s.mu.Unlock()
}

func (s *LocalSession) Attach(ep *pubsub.Endpoint) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endpoints = append(s.endpoints, ep)
	return len(s.endpoints)
}

func (s *LocalSession) Quit() {
	s.mu.Lock()
	s.quit = true
	s.mu.Unlock()
}

// Endpoints returns the attached subscriptions.
func (s *LocalSession) Endpoints() []*pubsub.Endpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*pubsub.Endpoint(nil), s.endpoints...)
}

// QuitRequested reports whether QUIT was executed.
func (s *LocalSession) QuitRequested() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quit
}
