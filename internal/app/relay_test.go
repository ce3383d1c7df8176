package app

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/dkeye/pulse/internal/domain"
)

func TestRelay_BroadcastExcludesSender(t *testing.T) {
	f := newFixture(IdentitySupersede)
	a, sa := f.connect()
	b, sb := f.connect()
	c, sc := f.connect()
	f.reg.Join(a, "r1")
	f.reg.Join(b, "r1")
	f.reg.Join(c, "r1")

	payload := json.RawMessage(`{"room":"r1","index":4}`)
	res := f.rel.Broadcast(a, "r1", domain.EventReceiveMove, payload)
	if res.SendTo != 2 {
		t.Errorf("SendTo = %d, want 2", res.SendTo)
	}
	if sa.count() != 0 {
		t.Errorf("sender received %d frames, want 0", sa.count())
	}
	for name, s := range map[string]*fakeSender{"b": sb, "c": sc} {
		envs := s.envelopes(t)
		if len(envs) != 1 {
			t.Fatalf("%s received %d frames, want 1", name, len(envs))
		}
		if envs[0].Type != domain.EventReceiveMove {
			t.Errorf("%s Type = %s, want %s", name, envs[0].Type, domain.EventReceiveMove)
		}
		if string(envs[0].Data) != string(payload) {
			t.Errorf("%s Data = %s, want %s", name, envs[0].Data, payload)
		}
	}
}

func TestRelay_RoomIsolation(t *testing.T) {
	f := newFixture(IdentitySupersede)
	a, _ := f.connect()
	b, sb := f.connect()
	c, sc := f.connect()
	f.reg.Join(a, "r1")
	f.reg.Join(b, "r1")
	f.reg.Join(c, "r2")

	f.rel.Broadcast(a, "r1", domain.EventReceiveMove, json.RawMessage(`{}`))
	if sb.count() != 1 {
		t.Errorf("r1 member received %d frames, want 1", sb.count())
	}
	if sc.count() != 0 {
		t.Errorf("r2 member received %d frames, want 0", sc.count())
	}
}

func TestRelay_BroadcastNoRecipients(t *testing.T) {
	f := newFixture(IdentitySupersede)
	a, sa := f.connect()
	f.reg.Join(a, "solo")

	if res := f.rel.Broadcast(a, "solo", domain.EventReceiveMove, json.RawMessage(`{}`)); res.SendTo != 0 {
		t.Errorf("SendTo = %d, want 0", res.SendTo)
	}
	if res := f.rel.Broadcast(a, "ghost", domain.EventReceiveMove, json.RawMessage(`{}`)); res.SendTo != 0 {
		t.Errorf("SendTo(ghost) = %d, want 0", res.SendTo)
	}
	if sa.count() != 0 {
		t.Errorf("sender received %d frames, want 0", sa.count())
	}
}

func TestRelay_FIFOPerSender(t *testing.T) {
	f := newFixture(IdentitySupersede)
	a, _ := f.connect()
	b, sb := f.connect()
	f.reg.Join(a, "r1")
	f.reg.Join(b, "r1")

	const n = 100
	for i := range n {
		f.rel.Broadcast(a, "r1", domain.EventReceiveMove, json.RawMessage(fmt.Sprintf(`{"seq":%d}`, i)))
	}
	envs := sb.envelopes(t)
	if len(envs) != n {
		t.Fatalf("received %d frames, want %d", len(envs), n)
	}
	for i, env := range envs {
		var p struct{ Seq int }
		decodeData(t, env, &p)
		if p.Seq != i {
			t.Fatalf("frame %d has seq %d", i, p.Seq)
		}
	}
}

func TestRelay_ClosedRecipientIsSilent(t *testing.T) {
	f := newFixture(IdentitySupersede)
	a, _ := f.connect()
	b, sb := f.connect()
	c, sc := f.connect()
	f.reg.Join(a, "r1")
	f.reg.Join(b, "r1")
	f.reg.Join(c, "r1")
	sb.Close()

	res := f.rel.Broadcast(a, "r1", domain.EventReceiveMove, json.RawMessage(`{}`))
	if res.SendTo != 1 || res.Gone != 1 {
		t.Errorf("result = %+v, want SendTo=1 Gone=1", res)
	}
	if sc.count() != 1 {
		t.Errorf("live member received %d frames, want 1", sc.count())
	}
}

func TestRelay_BackpressurePolicies(t *testing.T) {
	tests := []struct {
		name       string
		policy     Policy
		wantClosed bool
	}{
		{name: "drop", policy: DropPolicy{}, wantClosed: false},
		{name: "kick", policy: KickPolicy{}, wantClosed: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegistry(IdentitySupersede)
			rel := NewRelay(reg, tt.policy)
			a := reg.Register(&fakeSender{})
			slow := &fakeSender{full: true}
			b := reg.Register(slow)
			reg.Join(a, "r1")
			reg.Join(b, "r1")

			res := rel.Broadcast(a, "r1", domain.EventReceiveMove, json.RawMessage(`{}`))
			if len(res.Dropped) != 1 || res.Dropped[0] != b {
				t.Errorf("Dropped = %v, want [%s]", res.Dropped, b)
			}
			if slow.isClosed() != tt.wantClosed {
				t.Errorf("slow closed = %v, want %v", slow.isClosed(), tt.wantClosed)
			}
		})
	}
}

func TestRelay_DirectMissingTarget(t *testing.T) {
	f := newFixture(IdentitySupersede)
	if f.rel.Direct("nobody", domain.EventOffer, "x") {
		t.Error("Direct(nobody) = true, want false")
	}
}

func TestRelay_EmitUnknown(t *testing.T) {
	f := newFixture(IdentitySupersede)
	if f.rel.Emit("nope", domain.EventPong, nil) {
		t.Error("Emit(unknown) = true, want false")
	}
	a, sa := f.connect()
	if !f.rel.Emit(a, domain.EventPong, nil) {
		t.Error("Emit = false, want true")
	}
	if envs := sa.envelopes(t); len(envs) != 1 || envs[0].Type != domain.EventPong {
		t.Errorf("envelopes = %+v, want one pong", envs)
	}
}

func TestParsePolicy(t *testing.T) {
	if p, err := ParsePolicy(""); err != nil || p != (DropPolicy{}) {
		t.Errorf("ParsePolicy(\"\") = %v, %v; want DropPolicy", p, err)
	}
	if p, err := ParsePolicy("kick"); err != nil || p != (KickPolicy{}) {
		t.Errorf("ParsePolicy(kick) = %v, %v; want KickPolicy", p, err)
	}
	if _, err := ParsePolicy("explode"); err == nil {
		t.Error("ParsePolicy(explode) error = nil, want error")
	}
	if p, err := ParseIdentityPolicy("evict"); err != nil || p != IdentityEvict {
		t.Errorf("ParseIdentityPolicy(evict) = %v, %v", p, err)
	}
	if _, err := ParseIdentityPolicy("share"); err == nil {
		t.Error("ParseIdentityPolicy(share) error = nil, want error")
	}
}
