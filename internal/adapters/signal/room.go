package signal

import (
	"encoding/json"
	"errors"

	"github.com/dkeye/pulse/internal/app/orch"
	"github.com/dkeye/pulse/internal/core"
	"github.com/dkeye/pulse/internal/domain"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

var errInvalidPayload = errors.New("invalid json payload")

// parseRoomRef accepts a bare room name or an object with a room field.
func parseRoomRef(data json.RawMessage) (domain.RoomName, error) {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		var obj struct {
			Room string `json:"room"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return "", err
		}
		name = obj.Room
	}
	return domain.ParseRoomName(name)
}

// parseRoomField reads the room out of a game or location payload
// without decoding the rest, which is forwarded as-is.
func parseRoomField(data json.RawMessage) (domain.RoomName, error) {
	if !gjson.ValidBytes(data) {
		return "", errInvalidPayload
	}
	room := gjson.GetBytes(data, "room")
	if room.Type != gjson.String {
		return "", errors.New("missing room")
	}
	return domain.ParseRoomName(room.Str)
}

func (ctl *SignalWSController) handleJoinRoom(sid core.ConnID, data json.RawMessage) {
	room, err := parseRoomRef(data)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("bad join_room payload")
		return
	}
	ctl.Orch.JoinRoom(sid, room)
}

func (ctl *SignalWSController) handleLeaveRoom(sid core.ConnID, data json.RawMessage) {
	room, err := parseRoomRef(data)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("bad leave_room payload")
		return
	}
	ctl.Orch.LeaveRoom(sid, room)
}

func (ctl *SignalWSController) handleSendMove(sid core.ConnID, data json.RawMessage) {
	room, err := parseRoomField(data)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("bad send_move payload")
		return
	}
	ctl.Orch.SendMove(sid, room, data)
}

func (ctl *SignalWSController) handleGameReset(sid core.ConnID, data json.RawMessage) {
	room, err := parseRoomField(data)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("bad game_reset payload")
		return
	}
	ctl.Orch.GameReset(sid, room, data)
}

// parseLocation pulls the persisted fields out of a send_location
// payload. Fields of the wrong type are left unset.
func parseLocation(data json.RawMessage) orch.Location {
	var loc orch.Location
	if v := gjson.GetBytes(data, "latitude"); v.Type == gjson.Number {
		lat := v.Float()
		loc.Latitude = &lat
	}
	if v := gjson.GetBytes(data, "longitude"); v.Type == gjson.Number {
		lng := v.Float()
		loc.Longitude = &lng
	}
	if v := gjson.GetBytes(data, "userId"); v.Type == gjson.String {
		loc.UserID = v.Str
	}
	return loc
}

func (ctl *SignalWSController) handleSendLocation(sid core.ConnID, data json.RawMessage) {
	room, err := parseRoomField(data)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("bad send_location payload")
		return
	}
	ctl.Orch.SendLocation(sid, room, parseLocation(data), data)
}
