package runlock

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres holds a session-level advisory lock on a dedicated pool
// connection for the lifetime of the lease.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) Acquire(ctx context.Context, key string) (Lease, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "acquire connection")
	}
	lockKey := advisoryLockKey(key)
	var ok bool
	if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock($1::bigint)`, lockKey).Scan(&ok); err != nil {
		conn.Release()
		return nil, errors.Wrap(err, "try advisory lock")
	}
	if !ok {
		conn.Release()
		return nil, errors.Wrapf(ErrLocked, "key %s", key)
	}
	return &postgresLease{conn: conn, lockKey: lockKey}, nil
}

type postgresLease struct {
	conn    *pgxpool.Conn
	lockKey int64
	once    sync.Once
	err     error
}

func (l *postgresLease) Release(ctx context.Context) error {
	l.once.Do(func() {
		defer l.conn.Release()
		var ok bool
		if err := l.conn.QueryRow(ctx, `SELECT pg_advisory_unlock($1::bigint)`, l.lockKey).Scan(&ok); err != nil {
			l.err = errors.Wrap(err, "advisory unlock")
		}
	})
	return l.err
}

func advisoryLockKey(s string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return int64(h.Sum64())
}
