package http

import (
	"net"
	"sync"
	"time"
)

// callbackLimiter is a per-client token bucket. Buckets idle for longer
// than idleTTL are dropped on the next sweep.
type callbackLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	rate      float64
	burst     float64
	idleTTL   time.Duration
	lastSweep time.Time
}

type bucket struct {
	tokens float64
	seen   time.Time
}

func newCallbackLimiter(rps float64) *callbackLimiter {
	if rps <= 0 {
		return nil
	}
	burst := rps * 2
	if burst < 3 {
		burst = 3
	}
	return &callbackLimiter{
		buckets: make(map[string]*bucket),
		rate:    rps,
		burst:   burst,
		idleTTL: time.Minute,
	}
}

func (l *callbackLimiter) Allow(client string, now time.Time) bool {
	if l == nil {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > l.idleTTL {
		for k, b := range l.buckets {
			if now.Sub(b.seen) > l.idleTTL {
				delete(l.buckets, k)
			}
		}
		l.lastSweep = now
	}

	b, ok := l.buckets[client]
	if !ok {
		l.buckets[client] = &bucket{tokens: l.burst - 1, seen: now}
		return true
	}

	if elapsed := now.Sub(b.seen).Seconds(); elapsed > 0 {
		b.tokens = min(l.burst, b.tokens+elapsed*l.rate)
		b.seen = now
	}
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

func (l *callbackLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func clientHost(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
