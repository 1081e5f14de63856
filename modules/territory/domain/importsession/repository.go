package importsession

import "context"

// Repository persists import sessions. Writes are best-effort bookkeeping
// and are not transactional with the history merges they describe.
type Repository interface {
	Create(ctx context.Context, s *Session) error
	Save(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	// List returns sessions newest first; limit <= 0 means all.
	List(ctx context.Context, limit int) ([]*Session, error)
}
