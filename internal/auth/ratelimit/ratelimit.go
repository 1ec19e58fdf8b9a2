// Package ratelimit implements fixed window request rate limiting,
// keyed by client address. The window resets wholesale when it elapses.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

const (
	DefaultWindow      = 15 * time.Minute
	DefaultMaxAttempts = 5
)

type Result struct {
	Allowed    bool
	RetryAfter time.Duration
}

type Limiter interface {
	Allow(ctx context.Context, clientKey string) (*Result, error)
}

type window struct {
	count int
	start time.Time
}

var _ Limiter = (*WindowLimiter)(nil)

// WindowLimiter counts requests per client key in a process-local map.
// The per-key count update is a single locked read-modify-write, so
// concurrent attempts never under-count.
type WindowLimiter struct {
	windowDuration time.Duration
	maxAttempts    int

	mutex   sync.Mutex
	windows map[string]*window

	// injectable clock for window expiry tests
	NowFunc func() time.Time
}

func NewWindowLimiter(windowDuration time.Duration, maxAttempts int) *WindowLimiter {
	return &WindowLimiter{
		windowDuration: windowDuration,
		maxAttempts:    maxAttempts,
		windows:        make(map[string]*window),
		NowFunc:        time.Now,
	}
}

func (l *WindowLimiter) Allow(_ context.Context, clientKey string) (*Result, error) {
	now := l.NowFunc()

	l.mutex.Lock()
	defer l.mutex.Unlock()

	w, ok := l.windows[clientKey]
	if !ok || now.Sub(w.start) >= l.windowDuration {
		w = &window{start: now}
		l.windows[clientKey] = w
	}

	w.count++

	return &Result{
		Allowed:    w.count <= l.maxAttempts,
		RetryAfter: w.start.Add(l.windowDuration).Sub(now),
	}, nil
}
