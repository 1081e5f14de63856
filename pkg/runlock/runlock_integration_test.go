//go:build integration

package runlock

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func TestRedis_AcquireRelease(t *testing.T) {
	ctx := context.Background()
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	addr, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	opts, err := redis.ParseURL(addr)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })

	locker := NewRedis(client, 0)
	lease, err := locker.Acquire(ctx, "territory-status:import")
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, "territory-status:import")
	require.ErrorIs(t, err, ErrLocked)

	require.NoError(t, lease.Release(ctx))
	again, err := locker.Acquire(ctx, "territory-status:import")
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}

func TestPostgres_AcquireRelease(t *testing.T) {
	ctx := context.Background()
	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("runlock"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	locker := NewPostgres(pool)
	lease, err := locker.Acquire(ctx, "territory-status:import")
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, "territory-status:import")
	require.ErrorIs(t, err, ErrLocked)

	require.NoError(t, lease.Release(ctx))
	again, err := locker.Acquire(ctx, "territory-status:import")
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}
