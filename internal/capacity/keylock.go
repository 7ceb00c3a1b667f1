package capacity

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrLockTimeout is returned when a key lock cannot be acquired within the
// bounded wait. Callers surface it as an internal system failure rather than
// hanging indefinitely.
var ErrLockTimeout = errors.New("key lock acquisition timed out")

// KeyLocks serializes capacity-mutating operations per (product, date) key.
// Operations on different keys never block each other. Acquisition waits a
// bounded time per attempt and retries a few times before giving up.
type KeyLocks struct {
	mu      sync.Mutex
	entries map[Key]*lockEntry

	attemptTimeout time.Duration
	attempts       int
}

type lockEntry struct {
	ch   chan struct{}
	refs int
}

type KeyLocksOption func(*KeyLocks)

// WithAttemptTimeout overrides the per-attempt wait bound.
func WithAttemptTimeout(d time.Duration) KeyLocksOption {
	return func(l *KeyLocks) {
		if d > 0 {
			l.attemptTimeout = d
		}
	}
}

// WithAttempts overrides the number of acquisition attempts.
func WithAttempts(n int) KeyLocksOption {
	return func(l *KeyLocks) {
		if n > 0 {
			l.attempts = n
		}
	}
}

func NewKeyLocks(opts ...KeyLocksOption) *KeyLocks {
	l := &KeyLocks{
		entries:        make(map[Key]*lockEntry),
		attemptTimeout: 2 * time.Second,
		attempts:       3,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Acquire takes the lock for key, returning the release function. It fails
// with ErrLockTimeout after the configured attempts, or with the context
// error when ctx is done first.
func (l *KeyLocks) Acquire(ctx context.Context, key Key) (func(), error) {
	entry := l.retain(key)

	for attempt := 0; attempt < l.attempts; attempt++ {
		timer := time.NewTimer(l.attemptTimeout)
		select {
		case entry.ch <- struct{}{}:
			timer.Stop()
			return func() {
				<-entry.ch
				l.release(key)
			}, nil
		case <-ctx.Done():
			timer.Stop()
			l.release(key)
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	l.release(key)
	return nil, ErrLockTimeout
}

func (l *KeyLocks) retain(key Key) *lockEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.entries[key]
	if !ok {
		entry = &lockEntry{ch: make(chan struct{}, 1)}
		l.entries[key] = entry
	}
	entry.refs++
	return entry
}

func (l *KeyLocks) release(key Key) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.entries[key]
	if !ok {
		return
	}
	entry.refs--
	if entry.refs == 0 {
		delete(l.entries, key)
	}
}
