package persistence

import (
	"context"
	"encoding/json"

	gerrors "github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iota-uz/territory-status/modules/territory/domain/importsession"
)

const (
	insertImportSession = `INSERT INTO import_sessions (id, import_id, state, started_at, finished_at, payload)
		VALUES ($1, $2, $3, $4, $5, $6)`
	updateImportSession = `UPDATE import_sessions SET state = $2, finished_at = $3, payload = $4 WHERE id = $1`
	selectImportSession = `SELECT payload FROM import_sessions WHERE id = $1`
	listImportSessions  = `SELECT payload FROM import_sessions ORDER BY started_at DESC, id DESC`
)

type PostgresSessionRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresSessionRepository(pool *pgxpool.Pool) importsession.Repository {
	return &PostgresSessionRepository{pool: pool}
}

func (r *PostgresSessionRepository) Create(ctx context.Context, s *importsession.Session) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return gerrors.Wrap(err, "encode session")
	}
	if _, err := r.pool.Exec(ctx, insertImportSession,
		s.ID, s.ImportID, string(s.State), s.StartedAt, s.FinishedAt, payload,
	); err != nil {
		return gerrors.Wrap(err, "insert import session")
	}
	return nil
}

func (r *PostgresSessionRepository) Save(ctx context.Context, s *importsession.Session) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return gerrors.Wrap(err, "encode session")
	}
	tag, err := r.pool.Exec(ctx, updateImportSession, s.ID, string(s.State), s.FinishedAt, payload)
	if err != nil {
		return gerrors.Wrap(err, "update import session")
	}
	if tag.RowsAffected() == 0 {
		return importsession.ErrNotFound
	}
	return nil
}

func decodeSession(raw []byte) (*importsession.Session, error) {
	var s importsession.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, gerrors.Wrap(err, "decode session")
	}
	return &s, nil
}

func (r *PostgresSessionRepository) Get(ctx context.Context, id string) (*importsession.Session, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx, selectImportSession, id).Scan(&raw)
	if gerrors.Is(err, pgx.ErrNoRows) {
		return nil, importsession.ErrNotFound
	}
	if err != nil {
		return nil, gerrors.Wrap(err, "select import session")
	}
	return decodeSession(raw)
}

func (r *PostgresSessionRepository) List(ctx context.Context, limit int) ([]*importsession.Session, error) {
	sql := listImportSessions
	args := []any{}
	if limit > 0 {
		sql += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, gerrors.Wrap(err, "list import sessions")
	}
	defer rows.Close()

	var out []*importsession.Session
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, gerrors.Wrap(err, "scan import session")
		}
		s, err := decodeSession(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
