package lock

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/go-courier/logr"
)

const (
	DefaultAcquireTimeout = 10 * time.Second
	DefaultLeaseGrace     = 1 * time.Second
)

type Options struct {
	// AcquireTimeout bounds every Acquire; exceeding it yields ErrBusy,
	// never a silent hang.
	AcquireTimeout time.Duration
	// LeaseGrace controls which queued requests a store-wide lease yields
	// to: those already waiting longer than the grace period.
	LeaseGrace time.Duration
}

func NewManager(opt Options) *Manager {
	if opt.AcquireTimeout <= 0 {
		opt.AcquireTimeout = DefaultAcquireTimeout
	}
	if opt.LeaseGrace <= 0 {
		opt.LeaseGrace = DefaultLeaseGrace
	}
	return &Manager{
		opt:  opt,
		keys: map[string]*keyState{},
	}
}

type Manager struct {
	opt Options

	mu       sync.Mutex
	keys     map[string]*keyState
	inflight int
	lease    *leaseState
}

// Token represents shared or exclusive ownership of a single key, held by
// exactly one request at a time.
type Token struct {
	key      string
	mode     Mode
	released bool
}

func (t *Token) Key() string {
	return t.key
}

func (t *Token) Mode() Mode {
	return t.mode
}

type keyState struct {
	exclusive bool
	holders   map[*Token]struct{}
	waiters   []*waiter
}

type waiter struct {
	mode        Mode
	enqueuedAt  time.Time
	beforeLease bool
	ready       chan struct{}
	token       *Token
}

// Acquire blocks until no conflicting holder exists on key, or fails with
// ErrBusy once the configured ceiling passes.
func (m *Manager) Acquire(ctx context.Context, key string, mode Mode) (*Token, error) {
	m.mu.Lock()

	ks, ok := m.keys[key]
	if !ok {
		ks = &keyState{holders: map[*Token]struct{}{}}
		m.keys[key] = ks
	}

	if m.grantableLocked(ks, mode) {
		t := m.grantLocked(ks, key, mode)
		m.mu.Unlock()
		return t, nil
	}

	w := &waiter{
		mode:       mode,
		enqueuedAt: time.Now(),
		ready:      make(chan struct{}),
	}
	ks.waiters = append(ks.waiters, w)
	m.mu.Unlock()

	timer := time.NewTimer(m.opt.AcquireTimeout)
	defer timer.Stop()

	select {
	case <-w.ready:
		return w.token, nil
	case <-ctx.Done():
		m.abandon(ctx, key, w)
		return nil, ctx.Err()
	case <-timer.C:
		m.abandon(ctx, key, w)
		return nil, &ErrBusy{Key: key, Mode: mode}
	}
}

// AcquireAll takes every key in sorted order, all or nothing. Duplicate keys
// collapse to one token. The fixed global order keeps multi-key operations
// free of lock cycles.
func (m *Manager) AcquireAll(ctx context.Context, keys []string, mode Mode) ([]*Token, error) {
	sorted := slices.Clone(keys)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	tokens := make([]*Token, 0, len(sorted))

	for _, key := range sorted {
		t, err := m.Acquire(ctx, key, mode)
		if err != nil {
			m.ReleaseAll(ctx, tokens)
			return nil, err
		}
		tokens = append(tokens, t)
	}

	return tokens, nil
}

// Release is idempotent; releasing an already-released or nil token is a
// no-op, logged as a warning.
func (m *Manager) Release(ctx context.Context, t *Token) {
	if t == nil {
		logr.FromContext(ctx).Warn(errors.New("release of nil token"))
		return
	}

	m.mu.Lock()

	if t.released {
		m.mu.Unlock()
		logr.FromContext(ctx).
			WithValues(slog.String("key", t.key)).
			Warn(errors.New("double release"))
		return
	}
	t.released = true

	ks, ok := m.keys[t.key]
	if !ok {
		m.mu.Unlock()
		logr.FromContext(ctx).
			WithValues(slog.String("key", t.key)).
			Warn(errors.New("release of unknown key"))
		return
	}

	delete(ks.holders, t)
	m.inflight--

	m.promoteLocked(t.key, ks)
	m.maybeGrantLeaseLocked()

	m.mu.Unlock()
}

func (m *Manager) ReleaseAll(ctx context.Context, tokens []*Token) {
	for i := len(tokens) - 1; i >= 0; i-- {
		m.Release(ctx, tokens[i])
	}
}

func (m *Manager) grantableLocked(ks *keyState, mode Mode) bool {
	if m.lease != nil {
		return false
	}
	if len(ks.waiters) > 0 {
		return false
	}
	if len(ks.holders) == 0 {
		return true
	}
	return mode == Shared && !ks.exclusive
}

func (m *Manager) grantLocked(ks *keyState, key string, mode Mode) *Token {
	t := &Token{key: key, mode: mode}
	ks.exclusive = mode == Exclusive
	ks.holders[t] = struct{}{}
	m.inflight++
	return t
}

// promoteLocked hands the key to as many queued waiters as the mode allows:
// the next exclusive waiter alone, or every consecutive shared waiter.
// First requested, first granted.
func (m *Manager) promoteLocked(key string, ks *keyState) {
	for len(ks.waiters) > 0 {
		w := ks.waiters[0]

		if m.lease != nil && !w.beforeLease {
			return
		}

		if len(ks.holders) > 0 {
			if ks.exclusive || w.mode == Exclusive {
				return
			}
		}

		ks.waiters = ks.waiters[1:]

		if w.beforeLease && m.lease != nil {
			m.lease.priorWaiters--
		}

		w.token = m.grantLocked(ks, key, w.mode)
		close(w.ready)

		if w.mode == Exclusive {
			return
		}
	}

	if len(ks.holders) == 0 && len(ks.waiters) == 0 {
		delete(m.keys, key)
	}
}

func (m *Manager) abandon(ctx context.Context, key string, w *waiter) {
	m.mu.Lock()

	select {
	case <-w.ready:
		// granted while timing out; hand the token straight back
		m.mu.Unlock()
		m.Release(ctx, w.token)
		return
	default:
	}

	if ks, ok := m.keys[key]; ok {
		if i := slices.Index(ks.waiters, w); i >= 0 {
			ks.waiters = slices.Delete(ks.waiters, i, i+1)
		}
		if w.beforeLease && m.lease != nil {
			m.lease.priorWaiters--
			m.maybeGrantLeaseLocked()
		}
		m.promoteLocked(key, ks)
	}

	m.mu.Unlock()
}
