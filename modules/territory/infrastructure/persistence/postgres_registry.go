package persistence

import (
	"context"
	"encoding/json"

	gerrors "github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iota-uz/territory-status/modules/territory/domain/territory"
)

const territoryColumns = `code, name, category, parent_code,
	occupation_history, combat_history, status_history,
	current_status, status_start_date, status_end_date, last_status_update, last_import_id`

const (
	selectTerritoryByCode = `SELECT ` + territoryColumns + ` FROM territories WHERE code = $1`

	selectTerritoryByName = `SELECT ` + territoryColumns + `
		FROM territories WHERE partition = $1 AND name = $2 ORDER BY code LIMIT 1`

	selectTerritoryByNameFold = `SELECT ` + territoryColumns + `
		FROM territories WHERE partition = $1 AND strpos(lower(name), lower($2)) > 0 ORDER BY code LIMIT 1`

	hasHistoryPredicate = `(occupation_history IS NOT NULL OR combat_history IS NOT NULL OR status_history IS NOT NULL)`

	selectTerritoriesWithStatus = `SELECT ` + territoryColumns + `
		FROM territories WHERE partition = $1 AND ` + hasHistoryPredicate + ` ORDER BY code`

	selectTerritoriesWithStatusLabel = `SELECT ` + territoryColumns + `
		FROM territories WHERE partition = $1 AND (
			occupation_history @> $2::jsonb OR combat_history @> $2::jsonb OR status_history @> $2::jsonb
		) ORDER BY code`

	updateTerritoryDerived = `current_status = $3, status_start_date = $4, status_end_date = $5,
		last_status_update = $6, last_import_id = $7 WHERE code = $1`

	clearTerritoryStatus = `UPDATE territories SET
		occupation_history = NULL, combat_history = NULL, status_history = NULL,
		current_status = NULL, status_start_date = NULL, status_end_date = NULL,
		last_status_update = NULL, last_import_id = NULL
		WHERE partition = $1 AND (` + hasHistoryPredicate + ` OR current_status IS NOT NULL
			OR status_start_date IS NOT NULL OR status_end_date IS NOT NULL
			OR last_status_update IS NOT NULL OR last_import_id IS NOT NULL)`

	replaceTerritoryHistories = `UPDATE territories SET
		occupation_history = $2, combat_history = $3, status_history = $4 WHERE code = $1`

	countTerritories           = `SELECT count(*) FROM territories WHERE partition = $1`
	countTerritoriesWithStatus = `SELECT count(*) FROM territories WHERE partition = $1 AND ` + hasHistoryPredicate

	upsertTerritory = `INSERT INTO territories (code, partition, name, category, parent_code)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (code) DO UPDATE SET
			partition = EXCLUDED.partition,
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			parent_code = EXCLUDED.parent_code`

	selectTerritoryNames = `SELECT code, name FROM territories WHERE partition = $1 ORDER BY code`
)

// bucketColumns is the whitelist of history columns an update may target.
var bucketColumns = map[territory.HistoryBucket]string{
	territory.BucketOccupation: "occupation_history",
	territory.BucketCombat:     "combat_history",
	territory.BucketGeneral:    "status_history",
}

type PostgresRegistry struct {
	pool *pgxpool.Pool
}

func NewPostgresRegistry(pool *pgxpool.Pool) territory.Registry {
	return &PostgresRegistry{pool: pool}
}

func encodeHistory(periods []territory.StatusPeriod) ([]byte, error) {
	if periods == nil {
		return nil, nil
	}
	return json.Marshal(periods)
}

func decodeHistory(raw []byte) ([]territory.StatusPeriod, error) {
	if raw == nil {
		return nil, nil
	}
	out := []territory.StatusPeriod{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func scanTerritory(row pgx.Row) (territory.Territory, error) {
	var (
		t                           territory.Territory
		category                    string
		occupation, combat, general []byte
		currentStatus, lastImportID *string
	)
	if err := row.Scan(
		&t.Code, &t.Name, &category, &t.ParentCode,
		&occupation, &combat, &general,
		&currentStatus, &t.StatusStartDate, &t.StatusEndDate, &t.LastStatusUpdate, &lastImportID,
	); err != nil {
		return territory.Territory{}, err
	}
	t.Category = territory.Category(category)
	if currentStatus != nil {
		t.CurrentStatus = territory.Status(*currentStatus)
	}
	if lastImportID != nil {
		t.LastImportID = *lastImportID
	}
	var err error
	if t.OccupationHistory, err = decodeHistory(occupation); err != nil {
		return territory.Territory{}, gerrors.Wrap(err, "decode occupation_history")
	}
	if t.CombatHistory, err = decodeHistory(combat); err != nil {
		return territory.Territory{}, gerrors.Wrap(err, "decode combat_history")
	}
	if t.StatusHistory, err = decodeHistory(general); err != nil {
		return territory.Territory{}, gerrors.Wrap(err, "decode status_history")
	}
	return t, nil
}

func (r *PostgresRegistry) queryOne(ctx context.Context, sql string, args ...any) (territory.Territory, error) {
	t, err := scanTerritory(r.pool.QueryRow(ctx, sql, args...))
	if gerrors.Is(err, pgx.ErrNoRows) {
		return territory.Territory{}, territory.ErrNotFound
	}
	if err != nil {
		return territory.Territory{}, gerrors.Wrap(err, "query territory")
	}
	return t, nil
}

func (r *PostgresRegistry) queryMany(ctx context.Context, sql string, args ...any) ([]territory.Territory, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, gerrors.Wrap(err, "query territories")
	}
	defer rows.Close()

	var out []territory.Territory
	for rows.Next() {
		t, err := scanTerritory(rows)
		if err != nil {
			return nil, gerrors.Wrap(err, "scan territory")
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *PostgresRegistry) GetByCode(ctx context.Context, code string) (territory.Territory, error) {
	return r.queryOne(ctx, selectTerritoryByCode, code)
}

func (r *PostgresRegistry) FindByName(ctx context.Context, p territory.Partition, name string) (territory.Territory, error) {
	return r.queryOne(ctx, selectTerritoryByName, string(p), name)
}

func (r *PostgresRegistry) FindByNameFold(ctx context.Context, p territory.Partition, fragment string) (territory.Territory, error) {
	return r.queryOne(ctx, selectTerritoryByNameFold, string(p), fragment)
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (r *PostgresRegistry) UpdateStatus(ctx context.Context, code string, upd territory.StatusUpdate) error {
	column, ok := bucketColumns[upd.Bucket]
	if !ok {
		return gerrors.Errorf("unknown history bucket %q", upd.Bucket)
	}
	history, err := encodeHistory(upd.History)
	if err != nil {
		return gerrors.Wrap(err, "encode history")
	}
	sql := `UPDATE territories SET ` + column + ` = $2, ` + updateTerritoryDerived
	tag, err := r.pool.Exec(ctx, sql,
		code, history,
		nullableString(string(upd.CurrentStatus)), upd.StatusStartDate, upd.StatusEndDate,
		upd.LastStatusUpdate.UTC(), nullableString(upd.LastImportID),
	)
	if err != nil {
		return gerrors.Wrapf(err, "update status of %s", code)
	}
	if tag.RowsAffected() == 0 {
		return territory.ErrNotFound
	}
	return nil
}

func (r *PostgresRegistry) ClearStatus(ctx context.Context, p territory.Partition) (int, error) {
	tag, err := r.pool.Exec(ctx, clearTerritoryStatus, string(p))
	if err != nil {
		return 0, gerrors.Wrapf(err, "clear status in %s", p)
	}
	return int(tag.RowsAffected()), nil
}

func (r *PostgresRegistry) ListWithStatus(ctx context.Context, p territory.Partition, filter territory.StatusFilter) ([]territory.Territory, error) {
	if filter.Status == "" {
		return r.queryMany(ctx, selectTerritoriesWithStatus, string(p))
	}
	probe, err := json.Marshal([]map[string]string{{"status": string(filter.Status)}})
	if err != nil {
		return nil, err
	}
	return r.queryMany(ctx, selectTerritoriesWithStatusLabel, string(p), string(probe))
}

func (r *PostgresRegistry) ReplaceHistories(ctx context.Context, t territory.Territory) error {
	var cols [3][]byte
	for i, periods := range [][]territory.StatusPeriod{t.OccupationHistory, t.CombatHistory, t.StatusHistory} {
		raw, err := encodeHistory(periods)
		if err != nil {
			return gerrors.Wrap(err, "encode history")
		}
		cols[i] = raw
	}
	tag, err := r.pool.Exec(ctx, replaceTerritoryHistories, t.Code, cols[0], cols[1], cols[2])
	if err != nil {
		return gerrors.Wrapf(err, "replace histories of %s", t.Code)
	}
	if tag.RowsAffected() == 0 {
		return territory.ErrNotFound
	}
	return nil
}

func (r *PostgresRegistry) count(ctx context.Context, sql string, p territory.Partition) (int, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, sql, string(p)).Scan(&n); err != nil {
		return 0, gerrors.Wrapf(err, "count %s", p)
	}
	return int(n), nil
}

func (r *PostgresRegistry) Count(ctx context.Context, p territory.Partition) (int, error) {
	return r.count(ctx, countTerritories, p)
}

func (r *PostgresRegistry) CountWithStatus(ctx context.Context, p territory.Partition) (int, error) {
	return r.count(ctx, countTerritoriesWithStatus, p)
}

func (r *PostgresRegistry) Upsert(ctx context.Context, t territory.Territory) error {
	p, ok := t.Category.Partition()
	if !ok {
		return ErrUnknownCategory
	}
	if _, err := r.pool.Exec(ctx, upsertTerritory, t.Code, string(p), t.Name, string(t.Category), t.ParentCode); err != nil {
		return gerrors.Wrapf(err, "upsert %s", t.Code)
	}
	return nil
}

func (r *PostgresRegistry) Names(ctx context.Context, p territory.Partition) ([]territory.NameRef, error) {
	rows, err := r.pool.Query(ctx, selectTerritoryNames, string(p))
	if err != nil {
		return nil, gerrors.Wrap(err, "query names")
	}
	defer rows.Close()

	var out []territory.NameRef
	for rows.Next() {
		ref := territory.NameRef{Partition: p}
		if err := rows.Scan(&ref.Code, &ref.Name); err != nil {
			return nil, gerrors.Wrap(err, "scan name")
		}
		out = append(out, ref)
	}
	return out, rows.Err()
}
