package redisserver

import (
	"net"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// limiterIdleTTL is how long an unused per-IP limiter is kept.
const limiterIdleTTL = 10 * time.Minute

// ipLimiter keeps one token bucket per client IP.
type ipLimiter struct {
	mu        sync.Mutex
	perSecond int
	entries   map[string]*limiterEntry
	lastPrune time.Time
	now       func() time.Time
}

type limiterEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// newIPLimiter returns nil when perSecond <= 0; a nil limiter allows
// everything.
func newIPLimiter(perSecond int) *ipLimiter {
	if perSecond <= 0 {
		return nil
	}
	return &ipLimiter{
		perSecond: perSecond,
		entries:   make(map[string]*limiterEntry),
		now:       time.Now,
	}
}

// allow reports whether one more command from ip may run now.
func (l *ipLimiter) allow(ip string) bool {
	if l == nil {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.entries[ip]
	if !ok {
		// burst = rate, matching one second of traffic
		e = &limiterEntry{lim: rate.NewLimiter(rate.Limit(l.perSecond), l.perSecond)}
		l.entries[ip] = e
	}
	e.lastSeen = now

	if now.Sub(l.lastPrune) > limiterIdleTTL {
		for k, v := range l.entries {
			if now.Sub(v.lastSeen) > limiterIdleTTL {
				delete(l.entries, k)
			}
		}
		l.lastPrune = now
	}

	return e.lim.AllowN(now, 1)
}

func (l *ipLimiter) size() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// hostOf strips the port from a network address.
func hostOf(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	s := addr.String()
	if host, _, err := net.SplitHostPort(s); err == nil {
		return host
	}
	return s
}
