package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/tilemirror/internal/db"
	"github.com/sells-group/tilemirror/internal/store"
)

// openStore builds the tile store named by store.driver.
func openStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		return store.NewSQLite(cfg.Store.Path)
	case "postgres":
		pool, err := db.New(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return store.NewPostgres(pool), nil
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
