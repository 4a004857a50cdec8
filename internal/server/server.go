// Package server exposes cached tiles and freshness reports over HTTP.
package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/tilemirror/internal/boundary"
	"github.com/sells-group/tilemirror/internal/metrics"
	"github.com/sells-group/tilemirror/internal/status"
	"github.com/sells-group/tilemirror/internal/store"
	"github.com/sells-group/tilemirror/internal/tile"
)

// Options configures the HTTP server surface.
type Options struct {
	// ContentType is sent with tile payloads.
	ContentType string
	// MinZoom and MaxZoom are the /api/tile-status defaults.
	MinZoom int
	MaxZoom int
	// StaticDir, when set, is served at the root path for the frontend.
	StaticDir string
}

// Server routes tile and status requests against the store and boundary.
type Server struct {
	store    store.Store
	boundary *boundary.Boundary
	opts     Options
}

// New creates a Server. The boundary is the same immutable value the scraper
// uses, so serve-side reports and scrape-side enumeration always agree.
func New(st store.Store, b *boundary.Boundary, opts Options) *Server {
	if opts.ContentType == "" {
		opts.ContentType = "application/x-protobuf"
	}
	return &Server{store: st, boundary: b, opts: opts}
}

// Router builds the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
	}))

	r.Get("/tiles/{z}/{x}/{y}", s.handleTile)
	r.Get("/tile-status", s.handleTileStatus)
	r.Get("/api/tile-status", s.handleTileStatus)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	if s.opts.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(s.opts.StaticDir)))
	}

	return r
}

// handleTile serves GET /tiles/{z}/{x}/{y}[.ext]. A hit updates the tile's
// last_requested timestamp; a miss is a plain 404, not an error.
func (s *Server) handleTile(w http.ResponseWriter, r *http.Request) {
	t, err := parseTilePath(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rec, err := s.store.GetTile(r.Context(), t)
	if err != nil {
		if eris.Is(err, store.ErrNotFound) {
			metrics.ServeMisses.Inc()
			http.Error(w, "tile not found", http.StatusNotFound)
			return
		}
		zap.L().Error("tile lookup failed", zap.String("tile", t.String()), zap.Error(err))
		http.Error(w, "store unavailable", http.StatusInternalServerError)
		return
	}

	// A serve counts as a request for scheduling purposes. Failure to record
	// it must not fail the response.
	if err := s.store.TouchRequested(r.Context(), t, time.Now().UTC()); err != nil {
		zap.L().Warn("touch last_requested failed", zap.String("tile", t.String()), zap.Error(err))
	}

	metrics.ServeHits.Inc()
	w.Header().Set("Content-Type", s.opts.ContentType)
	_, _ = w.Write(rec.Data)
}

// handleTileStatus serves GET /api/tile-status?min_zoom=&max_zoom=&since=.
func (s *Server) handleTileStatus(w http.ResponseWriter, r *http.Request) {
	minZoom, err := queryInt(r, "min_zoom", s.opts.MinZoom)
	if err != nil {
		http.Error(w, "invalid min_zoom", http.StatusBadRequest)
		return
	}
	maxZoom, err := queryInt(r, "max_zoom", s.opts.MaxZoom)
	if err != nil {
		http.Error(w, "invalid max_zoom", http.StatusBadRequest)
		return
	}

	var since *time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		ts, err := parseSince(raw)
		if err != nil {
			http.Error(w, "invalid since timestamp", http.StatusBadRequest)
			return
		}
		since = &ts
	}

	rep, err := status.Report(r.Context(), s.store, s.boundary, minZoom, maxZoom, since)
	if err != nil {
		zap.L().Error("tile status report failed", zap.Error(err))
		http.Error(w, "status report failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(rep); err != nil {
		zap.L().Warn("encode tile status failed", zap.Error(err))
	}
}

// parseTilePath extracts the tile coordinate from chi URL params. The y
// segment may carry a file extension (e.g. 123.pbf).
func parseTilePath(r *http.Request) (tile.Tile, error) {
	z, err := strconv.Atoi(chi.URLParam(r, "z"))
	if err != nil {
		return tile.Tile{}, eris.New("invalid z coordinate")
	}
	x, err := strconv.Atoi(chi.URLParam(r, "x"))
	if err != nil {
		return tile.Tile{}, eris.New("invalid x coordinate")
	}
	yStr := chi.URLParam(r, "y")
	if i := strings.IndexByte(yStr, '.'); i >= 0 {
		yStr = yStr[:i]
	}
	y, err := strconv.Atoi(yStr)
	if err != nil {
		return tile.Tile{}, eris.New("invalid y coordinate")
	}

	t := tile.Tile{Z: z, X: x, Y: y}
	if !t.Valid() {
		return tile.Tile{}, eris.New("tile coordinate out of range")
	}
	return t, nil
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

// parseSince accepts RFC 3339 timestamps and bare dates.
func parseSince(raw string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, eris.Errorf("unparseable timestamp %q", raw)
}
