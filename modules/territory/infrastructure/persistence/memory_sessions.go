package persistence

import (
	"context"
	"sort"
	"sync"

	"github.com/iota-uz/territory-status/modules/territory/domain/importsession"
)

type MemorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]importsession.Session
}

func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{sessions: map[string]importsession.Session{}}
}

func cloneSession(s importsession.Session) *importsession.Session {
	out := s
	out.Unresolved = append([]importsession.UnresolvedRow(nil), s.Unresolved...)
	if s.FinishedAt != nil {
		f := *s.FinishedAt
		out.FinishedAt = &f
	}
	return &out
}

func (r *MemorySessionRepository) Create(_ context.Context, s *importsession.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = *cloneSession(*s)
	return nil
}

func (r *MemorySessionRepository) Save(_ context.Context, s *importsession.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[s.ID]; !ok {
		return importsession.ErrNotFound
	}
	r.sessions[s.ID] = *cloneSession(*s)
	return nil
}

func (r *MemorySessionRepository) Get(_ context.Context, id string) (*importsession.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, importsession.ErrNotFound
	}
	return cloneSession(s), nil
}

func (r *MemorySessionRepository) List(_ context.Context, limit int) ([]*importsession.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*importsession.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, cloneSession(s))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
