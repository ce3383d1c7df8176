package app

import (
	"encoding/json"
	"os"
	"sync"
	"testing"

	"github.com/dkeye/pulse/internal/core"
	"github.com/rs/zerolog"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	os.Exit(m.Run())
}

// fakeSender records frames; full simulates a saturated send buffer.
type fakeSender struct {
	mu     sync.Mutex
	frames []core.Frame
	full   bool
	closed bool
}

func (s *fakeSender) TrySend(f core.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return core.ErrClosed
	}
	if s.full {
		return core.ErrBackpressure
	}
	s.frames = append(s.frames, f)
	return nil
}

func (s *fakeSender) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *fakeSender) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *fakeSender) envelopes(t *testing.T) []core.Envelope {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Envelope, 0, len(s.frames))
	for _, f := range s.frames {
		env, err := core.DecodeFrame(f)
		if err != nil {
			t.Fatalf("DecodeFrame(%s): %v", f, err)
		}
		out = append(out, env)
	}
	return out
}

func (s *fakeSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

type fixture struct {
	reg *Registry
	rel *Relay
	sig *SignalingRouter
}

func newFixture(policy IdentityPolicy) *fixture {
	reg := NewRegistry(policy)
	rel := NewRelay(reg, DropPolicy{})
	return &fixture{reg: reg, rel: rel, sig: NewSignalingRouter(reg, rel)}
}

func (f *fixture) connect() (core.ConnID, *fakeSender) {
	s := &fakeSender{}
	return f.reg.Register(s), s
}

func decodeData(t *testing.T, env core.Envelope, v any) {
	t.Helper()
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("unmarshal %s data %s: %v", env.Type, env.Data, err)
	}
}

func containsID(ids []core.ConnID, id core.ConnID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
