package store

import (
	"context"
	"sync"
	"time"

	"github.com/dkeye/pulse/internal/domain"
	"github.com/rs/zerolog/log"
)

// Discard drops every write.
type Discard struct{}

func (Discard) PersistLastLocation(_ context.Context, userID domain.Identity, _, _ float64, _ time.Time) error {
	log.Debug().Str("module", "store.discard").Str("user", string(userID)).Msg("location discarded")
	return nil
}

// Memory keeps the last location per user in process memory.
type Memory struct {
	mu   sync.RWMutex
	last map[domain.Identity]domain.LocationUpdate
}

func NewMemory() *Memory {
	return &Memory{last: make(map[domain.Identity]domain.LocationUpdate)}
}

func (m *Memory) PersistLastLocation(ctx context.Context, userID domain.Identity, latitude, longitude float64, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	// Out-of-order writes must not roll the location back.
	if prev, ok := m.last[userID]; ok && prev.At.After(at) {
		return nil
	}
	m.last[userID] = domain.LocationUpdate{UserID: userID, Latitude: latitude, Longitude: longitude, At: at}
	return nil
}

func (m *Memory) LastLocation(ctx context.Context, userID domain.Identity) (domain.LocationUpdate, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.LocationUpdate{}, false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.last[userID]
	return l, ok, nil
}
