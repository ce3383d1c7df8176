package app

import (
	"maps"
	"slices"

	"github.com/dkeye/pulse/internal/core"
	"github.com/dkeye/pulse/internal/domain"
	"github.com/rs/zerolog/log"
)

// recipient is a member snapshot with its transport endpoint.
type recipient struct {
	ID     core.ConnID
	Sender core.Sender
}

// Join adds the connection to room. It reports false when the
// connection is unknown or already a member.
func (r *Registry) Join(id core.ConnID, room domain.RoomName) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[id]
	if !ok {
		return false
	}
	return r.joinLocked(id, e, room)
}

// Announce joins room and marks the connection's presence as announced
// there, so that its departure is broadcast. It reports false only for
// an unknown connection.
func (r *Registry) Announce(id core.ConnID, room domain.RoomName) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[id]
	if !ok {
		return false
	}
	r.joinLocked(id, e, room)
	e.Announced[room] = struct{}{}
	return true
}

func (r *Registry) joinLocked(id core.ConnID, e *connEntry, room domain.RoomName) bool {
	if _, in := e.Rooms[room]; in {
		return false
	}
	members, ok := r.rooms[room]
	if !ok {
		members = make(map[core.ConnID]struct{})
		r.rooms[room] = members
	}
	members[id] = struct{}{}
	e.Rooms[room] = struct{}{}
	log.Info().Str("module", "app.membership").Str("sid", string(id)).Str("room", string(room)).Msg("joined room")
	return true
}

// Leave removes the pairing. announced reports whether presence had
// been announced in room.
func (r *Registry) Leave(id core.ConnID, room domain.RoomName) (left, announced bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[id]
	if !ok {
		return false, false
	}
	if _, in := e.Rooms[room]; !in {
		return false, false
	}
	_, announced = e.Announced[room]
	r.leaveLocked(id, e, room)
	return true, announced
}

func (r *Registry) leaveLocked(id core.ConnID, e *connEntry, room domain.RoomName) {
	delete(e.Rooms, room)
	delete(e.Announced, room)
	members := r.rooms[room]
	delete(members, id)
	if len(members) == 0 {
		delete(r.rooms, room)
		log.Debug().Str("module", "app.membership").Str("room", string(room)).Msg("dropped empty room")
	}
	log.Info().Str("module", "app.membership").Str("sid", string(id)).Str("room", string(room)).Msg("left room")
}

// MembersOf returns a point-in-time snapshot of room's members, empty
// when the room does not exist.
func (r *Registry) MembersOf(room domain.RoomName) []core.ConnID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members := r.rooms[room]
	out := make([]core.ConnID, 0, len(members))
	for id := range members {
		out = append(out, id)
	}
	return out
}

func (r *Registry) recipients(room domain.RoomName, except core.ConnID) []recipient {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members := r.rooms[room]
	out := make([]recipient, 0, len(members))
	for id := range members {
		if id == except {
			continue
		}
		if e, ok := r.conns[id]; ok {
			out = append(out, recipient{ID: id, Sender: e.Sender})
		}
	}
	return out
}

func (r *Registry) RoomsOf(id core.ConnID) []domain.RoomName {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[id]
	if !ok {
		return nil
	}
	return slices.Sorted(maps.Keys(e.Rooms))
}

// AnnouncedRooms lists the rooms the connection entered through the
// signaling router.
func (r *Registry) AnnouncedRooms(id core.ConnID) []domain.RoomName {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[id]
	if !ok {
		return nil
	}
	return slices.Sorted(maps.Keys(e.Announced))
}

func (r *Registry) Rooms() []core.RoomInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.RoomInfo, 0, len(r.rooms))
	for _, name := range slices.Sorted(maps.Keys(r.rooms)) {
		out = append(out, core.RoomInfo{Name: name, MemberCount: len(r.rooms[name])})
	}
	return out
}

func (r *Registry) MembersSnapshot(room domain.RoomName) []core.MemberDTO {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members := r.rooms[room]
	out := make([]core.MemberDTO, 0, len(members))
	for _, id := range slices.Sorted(maps.Keys(members)) {
		out = append(out, core.MemberDTO{ID: id, Identity: r.conns[id].Identity})
	}
	return out
}

// holderInRoom reports whether identity currently resolves to a
// connection other than id that is a member of room.
func (r *Registry) holderInRoom(identity domain.Identity, id core.ConnID, room domain.RoomName) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	holder, ok := r.identities[identity]
	if !ok || holder == id {
		return false
	}
	_, member := r.rooms[room][holder]
	return member
}
