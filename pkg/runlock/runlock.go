// Package runlock guards operations that must not run concurrently against
// the same registry, such as two imports merging into the same territories.
package runlock

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
)

var ErrLocked = errors.New("lock is held by another process")

// Lease is a held lock. Release is safe to call more than once.
type Lease interface {
	Release(ctx context.Context) error
}

// Locker hands out non-blocking leases: Acquire fails with ErrLocked
// instead of waiting.
type Locker interface {
	Acquire(ctx context.Context, key string) (Lease, error)
}

// Memory is a process-local Locker.
type Memory struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewMemory() *Memory {
	return &Memory{held: map[string]struct{}{}}
}

func (m *Memory) Acquire(_ context.Context, key string) (Lease, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.held[key]; ok {
		return nil, errors.Wrapf(ErrLocked, "key %s", key)
	}
	m.held[key] = struct{}{}
	return &memoryLease{m: m, key: key}, nil
}

type memoryLease struct {
	m    *Memory
	key  string
	once sync.Once
}

func (l *memoryLease) Release(context.Context) error {
	l.once.Do(func() {
		l.m.mu.Lock()
		delete(l.m.held, l.key)
		l.m.mu.Unlock()
	})
	return nil
}
