package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/pulse/internal/domain"
)

type fakeLocationStore struct {
	mu      sync.Mutex
	calls   []domain.LocationUpdate
	err     error
	panic   bool
	block   chan struct{}
	written chan domain.LocationUpdate
}

func newFakeLocationStore() *fakeLocationStore {
	return &fakeLocationStore{written: make(chan domain.LocationUpdate, 64)}
}

func (s *fakeLocationStore) PersistLastLocation(ctx context.Context, userID domain.Identity, lat, lng float64, at time.Time) error {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if s.panic {
		panic("store exploded")
	}
	u := domain.LocationUpdate{UserID: userID, Latitude: lat, Longitude: lng, At: at}
	s.mu.Lock()
	s.calls = append(s.calls, u)
	s.mu.Unlock()
	s.written <- u
	return s.err
}

func waitWrite(t *testing.T, s *fakeLocationStore) domain.LocationUpdate {
	t.Helper()
	select {
	case u := <-s.written:
		return u
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for location write")
		return domain.LocationUpdate{}
	}
}

func TestLocationBridge_Persists(t *testing.T) {
	store := newFakeLocationStore()
	b := NewLocationBridge(store, LocationConfig{QueueSize: 4, Workers: 2, Timeout: time.Second})
	b.Start(context.Background())
	defer b.Stop()

	at := time.Date(2026, 2, 14, 12, 0, 0, 0, time.UTC)
	if !b.Submit(domain.LocationUpdate{UserID: "u1", Latitude: 48.85, Longitude: 2.35, At: at}) {
		t.Fatal("Submit = false, want true")
	}
	u := waitWrite(t, store)
	if u.UserID != "u1" || u.Latitude != 48.85 || u.Longitude != 2.35 || !u.At.Equal(at) {
		t.Errorf("written = %+v", u)
	}
}

func TestLocationBridge_FailureSwallowed(t *testing.T) {
	store := newFakeLocationStore()
	store.err = errors.New("db down")
	b := NewLocationBridge(store, LocationConfig{QueueSize: 4, Workers: 1, Timeout: time.Second})
	b.Start(context.Background())

	b.Submit(domain.LocationUpdate{UserID: "u1"})
	b.Submit(domain.LocationUpdate{UserID: "u2"})
	waitWrite(t, store)
	waitWrite(t, store)
	b.Stop()

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.calls) != 2 {
		t.Errorf("store calls = %d, want 2 (no retries)", len(store.calls))
	}
}

func TestLocationBridge_PanicRecovered(t *testing.T) {
	store := newFakeLocationStore()
	store.panic = true
	b := NewLocationBridge(store, LocationConfig{QueueSize: 4, Workers: 1, Timeout: time.Second})
	b.Start(context.Background())
	b.Submit(domain.LocationUpdate{UserID: "u1"})
	b.Stop()
}

func TestLocationBridge_SubmitNeverBlocks(t *testing.T) {
	store := newFakeLocationStore()
	store.block = make(chan struct{})
	b := NewLocationBridge(store, LocationConfig{QueueSize: 1, Workers: 1, Timeout: time.Minute})
	b.Start(context.Background())

	done := make(chan int)
	go func() {
		accepted := 0
		for range 10 {
			if b.Submit(domain.LocationUpdate{UserID: "u1"}) {
				accepted++
			}
		}
		done <- accepted
	}()

	select {
	case accepted := <-done:
		// one in flight at the worker plus one queued at most
		if accepted > 2 {
			t.Errorf("accepted = %d, want at most 2", accepted)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Submit blocked on a saturated queue")
	}
	close(store.block)
	b.Stop()
}

func TestLocationBridge_StopDrainsAndRejects(t *testing.T) {
	store := newFakeLocationStore()
	b := NewLocationBridge(store, LocationConfig{QueueSize: 8, Workers: 1, Timeout: time.Second})
	ctx, cancel := context.WithCancel(context.Background())
	b.Start(ctx)
	for range 3 {
		b.Submit(domain.LocationUpdate{UserID: "u1"})
	}
	cancel()
	b.Stop()

	store.mu.Lock()
	n := len(store.calls)
	store.mu.Unlock()
	if n != 3 {
		t.Errorf("persisted %d updates before stop, want 3", n)
	}
	if b.Submit(domain.LocationUpdate{UserID: "u1"}) {
		t.Error("Submit after Stop = true, want false")
	}
	b.Stop()
}
