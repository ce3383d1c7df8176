package signal

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/dkeye/pulse/internal/core"
	"github.com/dkeye/pulse/internal/domain"
)

func TestParseRoomRef(t *testing.T) {
	tests := []struct {
		in      string
		want    domain.RoomName
		wantErr bool
	}{
		{`"lobby"`, "lobby", false},
		{`{"room":"lobby"}`, "lobby", false},
		{`""`, "", true},
		{`{"name":"lobby"}`, "", true},
		{`42`, "", true},
	}
	for _, tt := range tests {
		got, err := parseRoomRef(json.RawMessage(tt.in))
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("parseRoomRef(%s) = %q, %v; want %q, err=%v", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
}

func TestParseRoomField(t *testing.T) {
	if got, err := parseRoomField(json.RawMessage(`{"room":"ttt","index":1}`)); err != nil || got != "ttt" {
		t.Errorf("parseRoomField = %q, %v; want ttt", got, err)
	}
	for _, in := range []string{``, `"ttt"`, `{"index":1}`} {
		if _, err := parseRoomField(json.RawMessage(in)); err == nil {
			t.Errorf("parseRoomField(%q) error = nil, want error", in)
		}
	}
}

func TestParseCallJoin(t *testing.T) {
	room, id, err := parseCallJoin(json.RawMessage(`{"roomId":"call","userId":"u1"}`))
	if err != nil || room != "call" || id != "u1" {
		t.Errorf("parseCallJoin = %q, %q, %v", room, id, err)
	}
	for _, in := range []string{`{"roomId":"call"}`, `{"userId":"u1"}`, `[]`} {
		if _, _, err := parseCallJoin(json.RawMessage(in)); err == nil {
			t.Errorf("parseCallJoin(%s) error = nil, want error", in)
		}
	}
}

func TestParseSignal(t *testing.T) {
	target, body, err := parseSignal(json.RawMessage(`{"candidate":{"candidate":"c1"},"targetUserId":"u2"}`), "candidate")
	if err != nil {
		t.Fatalf("parseSignal: %v", err)
	}
	if target != "u2" || string(body) != `{"candidate":"c1"}` {
		t.Errorf("parseSignal = %q, %s", target, body)
	}

	bad := []string{
		`{"candidate":{}}`,
		`{"targetUserId":"u2"}`,
		`{"candidate":{},"targetUserId":7}`,
		`"x"`,
	}
	for _, in := range bad {
		if _, _, err := parseSignal(json.RawMessage(in), "candidate"); err == nil {
			t.Errorf("parseSignal(%s) error = nil, want error", in)
		}
	}
}

func TestRateLimiter(t *testing.T) {
	now := time.Unix(1000, 0)
	rl := NewRateLimiter(2, time.Second)
	rl.now = func() time.Time { return now }
	sid := core.ConnID("c1")

	if !rl.Allow(sid) || !rl.Allow(sid) {
		t.Fatal("first two events rejected")
	}
	if rl.Allow(sid) {
		t.Error("third event allowed within window")
	}
	if !rl.Allow("c2") {
		t.Error("other connection throttled")
	}

	now = now.Add(1500 * time.Millisecond)
	if !rl.Allow(sid) {
		t.Error("event rejected after window passed")
	}

	rl.Forget(sid)
	if _, ok := rl.history[sid]; ok {
		t.Error("history kept after Forget")
	}
}

func TestParseLocation(t *testing.T) {
	loc := parseLocation(json.RawMessage(`{"room":"map","latitude":48.85,"longitude":-2.5,"userId":"u1"}`))
	if loc.Latitude == nil || *loc.Latitude != 48.85 || loc.Longitude == nil || *loc.Longitude != -2.5 || loc.UserID != "u1" {
		t.Errorf("parseLocation(full) = %+v", loc)
	}

	loc = parseLocation(json.RawMessage(`{"room":"map","latitude":"48.85","userId":42}`))
	if loc.Latitude != nil || loc.Longitude != nil || loc.UserID != "" {
		t.Errorf("parseLocation(mistyped) = %+v, want all unset", loc)
	}

	loc = parseLocation(json.RawMessage(`{"room":"map","latitude":0,"longitude":0}`))
	if loc.Latitude == nil || *loc.Latitude != 0 || loc.Longitude == nil {
		t.Errorf("parseLocation(zero) = %+v, want explicit zero kept", loc)
	}
}
