package signal

import (
	"encoding/json"

	"github.com/dkeye/pulse/internal/core"
	"github.com/dkeye/pulse/internal/domain"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

type callJoinPayload struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
}

func parseCallJoin(data json.RawMessage) (domain.RoomName, domain.Identity, error) {
	var p callJoinPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return "", "", err
	}
	room, err := domain.ParseRoomName(p.RoomID)
	if err != nil {
		return "", "", err
	}
	identity, err := domain.ParseIdentity(p.UserID)
	if err != nil {
		return "", "", err
	}
	return room, identity, nil
}

func (ctl *SignalWSController) handleCallJoin(sid core.ConnID, data json.RawMessage) {
	room, identity, err := parseCallJoin(data)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("bad join-room payload")
		return
	}
	ctl.Orch.JoinCall(sid, room, identity)
}

// handleDebugPing takes an optional target identity; anything that is
// not a usable string pings the sender's announced rooms.
func (ctl *SignalWSController) handleDebugPing(sid core.ConnID, data json.RawMessage) {
	var target domain.Identity
	if v := gjson.ParseBytes(data); v.Type == gjson.String {
		target, _ = domain.ParseIdentity(v.Str)
	}
	ctl.Orch.DebugPing(sid, target)
}
