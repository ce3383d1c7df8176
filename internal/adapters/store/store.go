// Package store holds LastLocation backends for the location bridge.
package store

import (
	"context"
	"fmt"

	"github.com/dkeye/pulse/internal/app"
	"github.com/dkeye/pulse/internal/config"
)

// Open returns the backend named by cfg.Location.Backend and a close
// func for its resources.
func Open(ctx context.Context, cfg *config.Config) (app.LocationStore, func(), error) {
	switch cfg.Location.Backend {
	case "", "none":
		return Discard{}, func() {}, nil
	case "memory":
		return NewMemory(), func() {}, nil
	case "postgres":
		pg, err := NewPostgres(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres store: %w", err)
		}
		return pg, pg.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown location backend %q", cfg.Location.Backend)
}
