package persistence

import (
	"context"
	"embed"
	"io/fs"

	gerrors "github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migrate applies the embedded schema migrations to the pool's database.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	sub, err := fs.Sub(migrationFS, "migrations")
	if err != nil {
		return gerrors.Wrap(err, "migrations fs")
	}
	db := stdlib.OpenDBFromPool(pool)
	provider, err := goose.NewProvider(goose.DialectPostgres, db, sub)
	if err != nil {
		_ = db.Close()
		return gerrors.Wrap(err, "goose provider")
	}
	defer provider.Close()
	if _, err := provider.Up(ctx); err != nil {
		return gerrors.Wrap(err, "apply migrations")
	}
	return nil
}
