package persistence

import (
	"context"

	gerrors "github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/iota-uz/territory-status/modules/territory/domain/importsession"
	"github.com/iota-uz/territory-status/modules/territory/domain/territory"
)

type Driver string

const (
	DriverMemory   Driver = "memory"
	DriverPostgres Driver = "postgres"
	DriverMongo    Driver = "mongo"
)

type Options struct {
	Driver        Driver
	PostgresDSN   string
	MongoURI      string
	MongoDatabase string
	// Migrate applies the embedded schema before returning a postgres store.
	Migrate bool
}

// Store bundles the registry and session repository of one backend.
type Store struct {
	Driver   Driver
	Registry territory.Registry
	Sessions importsession.Repository
	// Pool is set for the postgres driver only.
	Pool *pgxpool.Pool

	closer func(context.Context) error
}

func (s *Store) Close(ctx context.Context) error {
	if s == nil || s.closer == nil {
		return nil
	}
	return s.closer(ctx)
}

func Open(ctx context.Context, opts Options) (*Store, error) {
	switch opts.Driver {
	case DriverMemory, "":
		return &Store{
			Driver:   DriverMemory,
			Registry: NewMemoryRegistry(),
			Sessions: NewMemorySessionRepository(),
		}, nil
	case DriverPostgres:
		return openPostgres(ctx, opts)
	case DriverMongo:
		return openMongo(ctx, opts)
	default:
		return nil, gerrors.Wrapf(ErrUnknownDriver, "%q", opts.Driver)
	}
}

func openPostgres(ctx context.Context, opts Options) (*Store, error) {
	pool, err := pgxpool.New(ctx, opts.PostgresDSN)
	if err != nil {
		return nil, gerrors.Wrap(err, "connect postgres")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, gerrors.Wrap(err, "ping postgres")
	}
	if opts.Migrate {
		if err := Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return &Store{
		Driver:   DriverPostgres,
		Registry: NewPostgresRegistry(pool),
		Sessions: NewPostgresSessionRepository(pool),
		Pool:     pool,
		closer: func(context.Context) error {
			pool.Close()
			return nil
		},
	}, nil
}

func openMongo(ctx context.Context, opts Options) (*Store, error) {
	if opts.MongoDatabase == "" {
		return nil, gerrors.New("mongo database name required")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(opts.MongoURI))
	if err != nil {
		return nil, gerrors.Wrap(err, "connect mongo")
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, gerrors.Wrap(err, "ping mongo")
	}
	db := client.Database(opts.MongoDatabase)
	return &Store{
		Driver:   DriverMongo,
		Registry: NewMongoRegistry(db),
		Sessions: NewMongoSessionRepository(db),
		closer:   client.Disconnect,
	}, nil
}
