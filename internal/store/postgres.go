package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/tilemirror/internal/db"
	"github.com/sells-group/tilemirror/internal/tile"
)

// PostgresStore implements Store on a pgx connection pool.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgres wraps an existing pool as a Store.
func NewPostgres(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS tiles (
	id             BIGSERIAL PRIMARY KEY,
	x              INTEGER NOT NULL,
	y              INTEGER NOT NULL,
	z              INTEGER NOT NULL,
	data           BYTEA,
	last_requested TIMESTAMPTZ,
	updated_at     TIMESTAMPTZ,
	UNIQUE(x, y, z)
);

CREATE TABLE IF NOT EXISTS scrape_runs (
	id          TEXT PRIMARY KEY,
	zoom        INTEGER NOT NULL,
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ,
	attempted   INTEGER NOT NULL DEFAULT 0,
	succeeded   INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_tiles_xyz ON tiles(x, y, z);
CREATE INDEX IF NOT EXISTS idx_tiles_requested ON tiles(last_requested);
CREATE INDEX IF NOT EXISTS idx_tiles_updated ON tiles(updated_at);
CREATE INDEX IF NOT EXISTS idx_scrape_runs_started ON scrape_runs(started_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) GetTile(ctx context.Context, t tile.Tile) (*TileRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT data, last_requested, updated_at FROM tiles WHERE x = $1 AND y = $2 AND z = $3`,
		t.X, t.Y, t.Z,
	)

	rec := TileRecord{Tile: t}
	var requested, updated *time.Time
	err := row.Scan(&rec.Data, &requested, &updated)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "postgres: get tile %s", t)
	}
	if requested != nil {
		rec.LastRequested = requested.UTC()
	}
	if updated != nil {
		rec.UpdatedAt = updated.UTC()
	}
	return &rec, nil
}

func (s *PostgresStore) UpsertTile(ctx context.Context, t tile.Tile, data []byte, now time.Time) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO tiles (x, y, z, data, last_requested, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $5)
		 ON CONFLICT (x, y, z) DO UPDATE SET
			data = EXCLUDED.data,
			last_requested = EXCLUDED.last_requested,
			updated_at = EXCLUDED.updated_at`,
		t.X, t.Y, t.Z, data, now.UTC(),
	)
	return eris.Wrapf(err, "postgres: upsert tile %s", t)
}

func (s *PostgresStore) TouchRequested(ctx context.Context, t tile.Tile, now time.Time) error {
	// Missing rows are a deliberate no-op.
	_, err := s.pool.Exec(ctx,
		`UPDATE tiles SET last_requested = $1 WHERE x = $2 AND y = $3 AND z = $4`,
		now.UTC(), t.X, t.Y, t.Z,
	)
	return eris.Wrapf(err, "postgres: touch tile %s", t)
}

func (s *PostgresStore) SnapshotLastRequested(ctx context.Context, zoom int) (map[tile.Tile]time.Time, error) {
	return s.snapshotColumn(ctx, "last_requested", zoom)
}

func (s *PostgresStore) SnapshotUpdatedAt(ctx context.Context, zoom int) (map[tile.Tile]time.Time, error) {
	return s.snapshotColumn(ctx, "updated_at", zoom)
}

func (s *PostgresStore) snapshotColumn(ctx context.Context, column string, zoom int) (map[tile.Tile]time.Time, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT x, y, `+column+` FROM tiles WHERE z = $1`, zoom,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: snapshot %s zoom %d", column, zoom)
	}
	defer rows.Close()

	snap := make(map[tile.Tile]time.Time)
	for rows.Next() {
		var x, y int
		var ts *time.Time
		if err := rows.Scan(&x, &y, &ts); err != nil {
			return nil, eris.Wrap(err, "postgres: scan snapshot row")
		}
		if ts == nil {
			continue
		}
		snap[tile.Tile{Z: zoom, X: x, Y: y}] = ts.UTC()
	}
	return snap, eris.Wrap(rows.Err(), "postgres: snapshot iterate")
}

func (s *PostgresStore) StartRun(ctx context.Context, zoom int, now time.Time) (string, error) {
	id := uuid.New().String()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO scrape_runs (id, zoom, started_at) VALUES ($1, $2, $3)`,
		id, zoom, now.UTC(),
	)
	if err != nil {
		return "", eris.Wrap(err, "postgres: start run")
	}
	return id, nil
}

func (s *PostgresStore) FinishRun(ctx context.Context, id string, attempted, succeeded int, now time.Time) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE scrape_runs SET finished_at = $1, attempted = $2, succeeded = $3 WHERE id = $4`,
		now.UTC(), attempted, succeeded, id,
	)
	return eris.Wrapf(err, "postgres: finish run %s", id)
}

func (s *PostgresStore) LastRun(ctx context.Context) (*ScrapeRun, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, zoom, started_at, finished_at, attempted, succeeded
		 FROM scrape_runs ORDER BY started_at DESC LIMIT 1`,
	)

	var run ScrapeRun
	var finished *time.Time
	err := row.Scan(&run.ID, &run.Zoom, &run.StartedAt, &finished, &run.Attempted, &run.Succeeded)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrap(err, "postgres: last run")
	}
	run.StartedAt = run.StartedAt.UTC()
	if finished != nil {
		ts := finished.UTC()
		run.FinishedAt = &ts
	}
	return &run, nil
}
