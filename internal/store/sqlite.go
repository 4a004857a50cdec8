package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/tilemirror/internal/tile"
)

// timeLayout is the canonical timestamp encoding: RFC 3339 UTC with
// fixed-width nanoseconds, so lexical and chronological order stay identical
// and the timestamp indexes remain usable for range and order scans.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode
// so concurrent readers do not block the single writer.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(ErrUnavailable, err.Error())
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(ErrUnavailable, "exec %s: %v", pragma, err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS tiles (
	id             INTEGER PRIMARY KEY,
	x              INTEGER NOT NULL,
	y              INTEGER NOT NULL,
	z              INTEGER NOT NULL,
	data           BLOB,
	last_requested TEXT,
	updated_at     TEXT,
	UNIQUE(x, y, z)
);

CREATE TABLE IF NOT EXISTS scrape_runs (
	id          TEXT PRIMARY KEY,
	zoom        INTEGER NOT NULL,
	started_at  TEXT NOT NULL,
	finished_at TEXT,
	attempted   INTEGER NOT NULL DEFAULT 0,
	succeeded   INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_tiles_xyz ON tiles(x, y, z);
CREATE INDEX IF NOT EXISTS idx_tiles_requested ON tiles(last_requested);
CREATE INDEX IF NOT EXISTS idx_tiles_updated ON tiles(updated_at);
CREATE INDEX IF NOT EXISTS idx_scrape_runs_started ON scrape_runs(started_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetTile(ctx context.Context, t tile.Tile) (*TileRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT data, last_requested, updated_at FROM tiles WHERE x = ? AND y = ? AND z = ?`,
		t.X, t.Y, t.Z,
	)

	rec := TileRecord{Tile: t}
	var requested, updated sql.NullString
	err := row.Scan(&rec.Data, &requested, &updated)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get tile %s", t)
	}

	if rec.LastRequested, err = parseNullTime(requested); err != nil {
		return nil, eris.Wrapf(err, "sqlite: tile %s last_requested", t)
	}
	if rec.UpdatedAt, err = parseNullTime(updated); err != nil {
		return nil, eris.Wrapf(err, "sqlite: tile %s updated_at", t)
	}
	return &rec, nil
}

func (s *SQLiteStore) UpsertTile(ctx context.Context, t tile.Tile, data []byte, now time.Time) error {
	ts := now.UTC().Format(timeLayout)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tiles (x, y, z, data, last_requested, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(x, y, z) DO UPDATE SET
			data = excluded.data,
			last_requested = excluded.last_requested,
			updated_at = excluded.updated_at`,
		t.X, t.Y, t.Z, data, ts, ts,
	)
	return eris.Wrapf(err, "sqlite: upsert tile %s", t)
}

func (s *SQLiteStore) TouchRequested(ctx context.Context, t tile.Tile, now time.Time) error {
	// Missing rows are a deliberate no-op.
	_, err := s.db.ExecContext(ctx,
		`UPDATE tiles SET last_requested = ? WHERE x = ? AND y = ? AND z = ?`,
		now.UTC().Format(timeLayout), t.X, t.Y, t.Z,
	)
	return eris.Wrapf(err, "sqlite: touch tile %s", t)
}

func (s *SQLiteStore) SnapshotLastRequested(ctx context.Context, zoom int) (map[tile.Tile]time.Time, error) {
	return s.snapshotColumn(ctx, "last_requested", zoom)
}

func (s *SQLiteStore) SnapshotUpdatedAt(ctx context.Context, zoom int) (map[tile.Tile]time.Time, error) {
	return s.snapshotColumn(ctx, "updated_at", zoom)
}

// snapshotColumn bulk-reads one timestamp column for all records at a zoom.
// The column name is restricted to the two callers above.
func (s *SQLiteStore) snapshotColumn(ctx context.Context, column string, zoom int) (map[tile.Tile]time.Time, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT x, y, `+column+` FROM tiles WHERE z = ?`, zoom,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: snapshot %s zoom %d", column, zoom)
	}
	defer rows.Close()

	snap := make(map[tile.Tile]time.Time)
	for rows.Next() {
		var x, y int
		var raw sql.NullString
		if err := rows.Scan(&x, &y, &raw); err != nil {
			return nil, eris.Wrapf(err, "sqlite: scan snapshot row")
		}
		if !raw.Valid {
			continue
		}
		ts, err := time.Parse(time.RFC3339Nano, raw.String)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: parse %s %q", column, raw.String)
		}
		snap[tile.Tile{Z: zoom, X: x, Y: y}] = ts
	}
	return snap, eris.Wrap(rows.Err(), "sqlite: snapshot iterate")
}

func (s *SQLiteStore) StartRun(ctx context.Context, zoom int, now time.Time) (string, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scrape_runs (id, zoom, started_at) VALUES (?, ?, ?)`,
		id, zoom, now.UTC().Format(timeLayout),
	)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: start run")
	}
	return id, nil
}

func (s *SQLiteStore) FinishRun(ctx context.Context, id string, attempted, succeeded int, now time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE scrape_runs SET finished_at = ?, attempted = ?, succeeded = ? WHERE id = ?`,
		now.UTC().Format(timeLayout), attempted, succeeded, id,
	)
	return eris.Wrapf(err, "sqlite: finish run %s", id)
}

func (s *SQLiteStore) LastRun(ctx context.Context) (*ScrapeRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, zoom, started_at, finished_at, attempted, succeeded
		 FROM scrape_runs ORDER BY started_at DESC LIMIT 1`,
	)

	var run ScrapeRun
	var started string
	var finished sql.NullString
	err := row.Scan(&run.ID, &run.Zoom, &started, &finished, &run.Attempted, &run.Succeeded)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: last run")
	}

	if run.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
		return nil, eris.Wrap(err, "sqlite: parse run started_at")
	}
	if finished.Valid {
		ts, err := time.Parse(time.RFC3339Nano, finished.String)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: parse run finished_at")
		}
		run.FinishedAt = &ts
	}
	return &run, nil
}

// parseNullTime parses an optional RFC 3339 column; NULL maps to the zero time.
func parseNullTime(v sql.NullString) (time.Time, error) {
	if !v.Valid {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, v.String)
}
