package orch

import (
	"encoding/json"
	"time"

	"github.com/dkeye/pulse/internal/core"
	"github.com/dkeye/pulse/internal/domain"
	"github.com/rs/zerolog/log"
)

// Location is the semantic part of a send_location payload. Nil
// coordinates were absent or not numbers.
type Location struct {
	Latitude  *float64
	Longitude *float64
	UserID    string
}

func (o *Orchestrator) JoinRoom(sid core.ConnID, room domain.RoomName) {
	if o.Registry.Join(sid, room) {
		log.Info().Str("module", "orch").Str("sid", string(sid)).Str("room", string(room)).Msg("join_room")
	}
}

func (o *Orchestrator) LeaveRoom(sid core.ConnID, room domain.RoomName) {
	if o.Signaling.Leave(sid, room) {
		log.Info().Str("module", "orch").Str("sid", string(sid)).Str("room", string(room)).Msg("leave_room")
	}
}

func (o *Orchestrator) SendMove(sid core.ConnID, room domain.RoomName, payload json.RawMessage) {
	o.Relay.Broadcast(sid, room, domain.EventReceiveMove, payload)
}

func (o *Orchestrator) GameReset(sid core.ConnID, room domain.RoomName, payload json.RawMessage) {
	o.Relay.Broadcast(sid, room, domain.EventReceiveReset, payload)
}

// SendLocation broadcasts the ping, then hands the write-through to the
// location bridge. The user reference is the payload's userId, falling
// back to the sender's bound identity. Only supplied coordinates are
// persisted.
func (o *Orchestrator) SendLocation(sid core.ConnID, room domain.RoomName, loc Location, payload json.RawMessage) {
	o.Relay.Broadcast(sid, room, domain.EventReceiveLocation, payload)

	if o.Locations == nil {
		return
	}
	if loc.Latitude == nil || loc.Longitude == nil {
		log.Debug().Str("module", "orch").Str("sid", string(sid)).Msg("send_location without coordinates, not persisted")
		return
	}
	user, err := domain.ParseIdentity(loc.UserID)
	if err != nil {
		var ok bool
		if user, ok = o.Registry.IdentityOf(sid); !ok {
			return
		}
	}
	o.Locations.Submit(domain.LocationUpdate{
		UserID:    user,
		Latitude:  *loc.Latitude,
		Longitude: *loc.Longitude,
		At:        time.Now().UTC(),
	})
}
