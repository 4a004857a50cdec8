// Package store persists tile payloads and freshness metadata.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/tilemirror/internal/tile"
)

// ErrNotFound indicates no record exists for the requested tile coordinate.
// It is a normal "absent resource" condition, not a failure.
var ErrNotFound = eris.New("store: tile not found")

// ErrUnavailable indicates the persistence layer is unreachable. Fatal during
// setup; per-tile soft failure during a scrape run.
var ErrUnavailable = eris.New("store: unavailable")

// TileRecord is the persisted state of one tile. A record exists iff at least
// one fetch for the coordinate succeeded; coordinates without a record are
// "missing". LastRequested moves on both serves and fetches.
type TileRecord struct {
	Tile          tile.Tile `json:"tile"`
	Data          []byte    `json:"-"`
	LastRequested time.Time `json:"last_requested"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ScrapeRun is the persisted summary of one scraper pass.
type ScrapeRun struct {
	ID         string     `json:"id"`
	Zoom       int        `json:"zoom"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Attempted  int        `json:"attempted"`
	Succeeded  int        `json:"succeeded"`
}

// Store is the persistence interface for tile records and scrape runs.
// UpdatedAt never regresses on a coordinate as long as the wall clock passed
// in as now is non-decreasing; a clock that moves backwards is a documented
// limitation the store does not correct.
type Store interface {
	// GetTile returns the record for a coordinate, or ErrNotFound.
	GetTile(ctx context.Context, t tile.Tile) (*TileRecord, error)

	// UpsertTile atomically inserts or overwrites the record for a
	// coordinate, setting data and both timestamps to now.
	UpsertTile(ctx context.Context, t tile.Tile, data []byte, now time.Time) error

	// TouchRequested updates only last_requested. A missing coordinate is a
	// silent no-op; the serving layer handles the 404 separately.
	TouchRequested(ctx context.Context, t tile.Tile, now time.Time) error

	// SnapshotLastRequested bulk-reads last_requested for every record at a
	// zoom level, keyed by coordinate. Used by the scheduler.
	SnapshotLastRequested(ctx context.Context, zoom int) (map[tile.Tile]time.Time, error)

	// SnapshotUpdatedAt bulk-reads updated_at for every record at a zoom
	// level. Used by the freshness reporter.
	SnapshotUpdatedAt(ctx context.Context, zoom int) (map[tile.Tile]time.Time, error)

	// StartRun records the beginning of a scrape run and returns its id.
	StartRun(ctx context.Context, zoom int, now time.Time) (string, error)

	// FinishRun records the outcome of a scrape run.
	FinishRun(ctx context.Context, id string, attempted, succeeded int, now time.Time) error

	// LastRun returns the most recently started run, or ErrNotFound.
	LastRun(ctx context.Context) (*ScrapeRun, error)

	// Migrate applies the store schema.
	Migrate(ctx context.Context) error

	Close() error
}
