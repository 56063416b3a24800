package tenants

import (
	"errors"
	"sync"
)

// ErrBusy is returned when a tenant already has a sync or bulk run in progress
var ErrBusy = errors.New("tenant has a run in progress")

// Locks admits at most one run per tenant at a time. Order sync and bulk updates share
// one Locks so a tenant's credential set is never driven by two pipelines at once.
type Locks struct {
	mu   sync.Mutex
	held map[uint]struct{}
}

// NewLocks creates an empty lock set
func NewLocks() *Locks {
	return &Locks{held: make(map[uint]struct{})}
}

// TryAcquire claims tenantID without waiting. The returned release func must be called
// exactly once; ok is false when another run holds the tenant.
func (l *Locks) TryAcquire(tenantID uint) (release func(), ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, busy := l.held[tenantID]; busy {
		return nil, false
	}
	l.held[tenantID] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, tenantID)
			l.mu.Unlock()
		})
	}, true
}

// Busy reports whether tenantID has a run in progress
func (l *Locks) Busy(tenantID uint) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, busy := l.held[tenantID]
	return busy
}
