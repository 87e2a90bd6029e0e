package lock

import (
	"context"
	"time"
)

// Lease is the store-wide exclusive token held for a garbage-collection
// sweep. While held, every Acquire queues; nothing touches the store.
type Lease struct {
	m        *Manager
	released bool
}

type leaseState struct {
	// queued requests already waiting longer than the grace period when the
	// lease arrived; the lease yields to them so a long quiesce cannot starve
	// writers that were there first
	priorWaiters int
	ready        chan struct{}
	granted      bool
}

// Quiesce blocks new acquisitions, waits for all in-flight tokens and for
// queued requests older than the grace period to drain, then grants the
// store-wide lease. Only one lease may be pending or held at a time.
func (m *Manager) Quiesce(ctx context.Context) (*Lease, error) {
	m.mu.Lock()

	if m.lease != nil {
		m.mu.Unlock()
		return nil, &ErrBusy{Key: "*", Mode: Exclusive}
	}

	ls := &leaseState{ready: make(chan struct{})}

	cutoff := time.Now().Add(-m.opt.LeaseGrace)
	for _, ks := range m.keys {
		for _, w := range ks.waiters {
			if w.enqueuedAt.Before(cutoff) {
				w.beforeLease = true
				ls.priorWaiters++
			}
		}
	}

	m.lease = ls
	m.maybeGrantLeaseLocked()
	m.mu.Unlock()

	select {
	case <-ls.ready:
		return &Lease{m: m}, nil
	case <-ctx.Done():
		m.abortLease(ls)
		return nil, ctx.Err()
	}
}

func (m *Manager) maybeGrantLeaseLocked() {
	ls := m.lease
	if ls == nil || ls.granted {
		return
	}
	if m.inflight == 0 && ls.priorWaiters == 0 {
		ls.granted = true
		close(ls.ready)
	}
}

func (m *Manager) abortLease(ls *leaseState) {
	m.mu.Lock()

	select {
	case <-ls.ready:
		// granted while the context was ending; fall through to release
		m.mu.Unlock()
		(&Lease{m: m}).Release(context.Background())
		return
	default:
	}

	m.clearLeaseLocked()
	m.mu.Unlock()
}

// Release ends the quiesce and re-opens every queued key. Idempotent.
func (l *Lease) Release(ctx context.Context) {
	l.m.mu.Lock()
	defer l.m.mu.Unlock()

	if l.released {
		return
	}
	l.released = true

	l.m.clearLeaseLocked()
}

func (m *Manager) clearLeaseLocked() {
	m.lease = nil

	for key, ks := range m.keys {
		m.promoteLocked(key, ks)
	}
}
