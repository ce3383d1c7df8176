package app

import (
	"context"
	"sync"
	"time"

	"github.com/dkeye/pulse/internal/domain"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
)

// LocationStore persists a user's last known location. Implementations
// live in adapters/store.
type LocationStore interface {
	PersistLastLocation(ctx context.Context, userID domain.Identity, latitude, longitude float64, at time.Time) error
}

// LocationReader is implemented by stores that can serve the last
// persisted location back.
type LocationReader interface {
	LastLocation(ctx context.Context, userID domain.Identity) (domain.LocationUpdate, bool, error)
}

type LocationConfig struct {
	QueueSize int
	Workers   int
	Timeout   time.Duration
}

// LocationBridge writes location updates through to a LocationStore on
// its own workers, detached from the relay path. Failures are logged
// and never retried.
type LocationBridge struct {
	store LocationStore
	cfg   LocationConfig
	queue chan domain.LocationUpdate
	wg    conc.WaitGroup

	mu      sync.RWMutex
	closed  bool
	started bool
}

func NewLocationBridge(store LocationStore, cfg LocationConfig) *LocationBridge {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &LocationBridge{
		store: store,
		cfg:   cfg,
		queue: make(chan domain.LocationUpdate, cfg.QueueSize),
	}
}

// Start launches the workers. Pending updates are still persisted after
// ctx is cancelled, until Stop drains the queue.
func (b *LocationBridge) Start(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started || b.closed {
		return
	}
	b.started = true
	base := context.WithoutCancel(ctx)
	for range b.cfg.Workers {
		b.wg.Go(func() {
			for u := range b.queue {
				b.persist(base, u)
			}
		})
	}
	log.Info().Str("module", "app.location").Int("workers", b.cfg.Workers).Int("queue", b.cfg.QueueSize).Msg("location bridge started")
}

// Submit enqueues u without blocking. It reports false when the queue
// is full or the bridge is stopped.
func (b *LocationBridge) Submit(u domain.LocationUpdate) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return false
	}
	select {
	case b.queue <- u:
		return true
	default:
		log.Warn().Str("module", "app.location").Str("user", string(u.UserID)).Msg("location queue full, update dropped")
		return false
	}
}

// Stop closes the queue and waits for queued updates to be written.
func (b *LocationBridge) Stop() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	close(b.queue)
	b.mu.Unlock()
	b.wg.Wait()
	log.Info().Str("module", "app.location").Msg("location bridge stopped")
}

func (b *LocationBridge) persist(base context.Context, u domain.LocationUpdate) {
	ctx, cancel := context.WithTimeout(base, b.cfg.Timeout)
	defer cancel()

	var pc panics.Catcher
	var err error
	pc.Try(func() {
		err = b.store.PersistLastLocation(ctx, u.UserID, u.Latitude, u.Longitude, u.At)
	})
	if r := pc.Recovered(); r != nil {
		err = r.AsError()
	}
	if err != nil {
		log.Error().Err(err).Str("module", "app.location").Str("user", string(u.UserID)).Msg("error updating location")
		return
	}
	log.Debug().Str("module", "app.location").Str("user", string(u.UserID)).Msg("location persisted")
}
