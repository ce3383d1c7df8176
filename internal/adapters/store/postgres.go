package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/pulse/internal/config"
	"github.com/dkeye/pulse/internal/domain"
)

const updateLastLocation = `
UPDATE users
SET last_latitude = $2, last_longitude = $3, last_location_at = $4
WHERE id = $1 AND (last_location_at IS NULL OR last_location_at <= $4)`

const selectLastLocation = `
SELECT last_latitude, last_longitude, last_location_at
FROM users
WHERE id = $1 AND last_location_at IS NOT NULL`

// execer is the subset of *pgxpool.Pool the store needs.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres writes the last location onto the users table.
type Postgres struct {
	db   execer
	pool *pgxpool.Pool
}

// NewPostgres creates a pool and verifies connectivity.
func NewPostgres(ctx context.Context, cfg config.PostgresConfig) (*Postgres, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = int32(cfg.MinConns)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	log.Info().Str("module", "store.postgres").Int32("max_conns", poolCfg.MaxConns).Msg("connected")
	return &Postgres{db: pool, pool: pool}, nil
}

func (p *Postgres) PersistLastLocation(ctx context.Context, userID domain.Identity, latitude, longitude float64, at time.Time) error {
	tag, err := p.db.Exec(ctx, updateLastLocation, string(userID), latitude, longitude, at)
	if err != nil {
		return fmt.Errorf("update last location: %w", err)
	}
	if tag.RowsAffected() == 0 {
		log.Debug().Str("module", "store.postgres").Str("user", string(userID)).Msg("no user row updated")
	}
	return nil
}

func (p *Postgres) LastLocation(ctx context.Context, userID domain.Identity) (domain.LocationUpdate, bool, error) {
	u := domain.LocationUpdate{UserID: userID}
	err := p.db.QueryRow(ctx, selectLastLocation, string(userID)).Scan(&u.Latitude, &u.Longitude, &u.At)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.LocationUpdate{}, false, nil
	}
	if err != nil {
		return domain.LocationUpdate{}, false, fmt.Errorf("select last location: %w", err)
	}
	return u, true, nil
}

func (p *Postgres) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}
