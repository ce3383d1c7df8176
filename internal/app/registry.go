package app

import (
	"errors"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/dkeye/pulse/internal/core"
	"github.com/dkeye/pulse/internal/domain"
	"github.com/rs/zerolog/log"
)

var (
	ErrUnknownConnection = errors.New("unknown connection")
	ErrIdentityTaken     = errors.New("identity already bound to another connection")
)

type connEntry struct {
	Identity    domain.Identity
	Sender      core.Sender
	Rooms       map[domain.RoomName]struct{}
	Announced   map[domain.RoomName]struct{}
	ConnectedAt time.Time
}

// Registry tracks live connections, the identity index, and room
// membership. A single lock covers all three so that a reader never
// observes a half-applied join, leave or unregister.
type Registry struct {
	mu         sync.RWMutex
	conns      map[core.ConnID]*connEntry
	identities map[domain.Identity]core.ConnID
	rooms      map[domain.RoomName]map[core.ConnID]struct{}
	policy     IdentityPolicy
}

func NewRegistry(policy IdentityPolicy) *Registry {
	return &Registry{
		conns:      make(map[core.ConnID]*connEntry),
		identities: make(map[domain.Identity]core.ConnID),
		rooms:      make(map[domain.RoomName]map[core.ConnID]struct{}),
		policy:     policy,
	}
}

// Departure is the state a connection held when it was unregistered.
type Departure struct {
	ID        core.ConnID
	Identity  domain.Identity
	Sender    core.Sender
	Rooms     []domain.RoomName
	Announced []domain.RoomName
}

func (r *Registry) Register(sender core.Sender) core.ConnID {
	id := core.NewConnID()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[id] = &connEntry{
		Sender:      sender,
		Rooms:       make(map[domain.RoomName]struct{}),
		Announced:   make(map[domain.RoomName]struct{}),
		ConnectedAt: time.Now(),
	}
	log.Info().Str("module", "app.registry").Str("sid", string(id)).Msg("registered connection")
	return id
}

// SetIdentity binds identity to the connection. When another live
// connection holds the identity the registry's IdentityPolicy applies;
// under IdentityEvict the previous holder is returned so the caller can
// disconnect it.
func (r *Registry) SetIdentity(id core.ConnID, identity domain.Identity) (evicted core.ConnID, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.conns[id]
	if !ok {
		return "", ErrUnknownConnection
	}
	holder, taken := r.identities[identity]
	if taken && holder == id {
		return "", nil
	}
	if taken {
		switch r.policy {
		case IdentityReject:
			log.Warn().Str("module", "app.registry").Str("sid", string(id)).
				Str("identity", string(identity)).Str("holder", string(holder)).Msg("identity claim rejected")
			return "", ErrIdentityTaken
		case IdentityEvict:
			evicted = holder
		case IdentitySupersede:
		}
	}
	if e.Identity != "" && r.identities[e.Identity] == id {
		delete(r.identities, e.Identity)
	}
	e.Identity = identity
	r.identities[identity] = id

	ev := log.Info().Str("module", "app.registry").Str("sid", string(id)).Str("identity", string(identity))
	if taken {
		ev = ev.Str("superseded", string(holder)).Str("policy", r.policy.String())
	}
	ev.Msg("bound identity")
	return evicted, nil
}

func (r *Registry) LookupByIdentity(identity domain.Identity) (core.ConnID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.identities[identity]
	return id, ok
}

// resolve returns the holder of identity together with its sender.
func (r *Registry) resolve(identity domain.Identity) (core.ConnID, core.Sender, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.identities[identity]
	if !ok {
		return "", nil, false
	}
	e, ok := r.conns[id]
	if !ok {
		return "", nil, false
	}
	return id, e.Sender, true
}

func (r *Registry) IdentityOf(id core.ConnID) (domain.Identity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[id]
	if !ok || e.Identity == "" {
		return "", false
	}
	return e.Identity, true
}

func (r *Registry) Sender(id core.ConnID) (core.Sender, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[id]
	if !ok {
		return nil, false
	}
	return e.Sender, true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Unregister removes the connection from every index. Only the first
// call for an id reports a Departure; later calls are no-ops.
func (r *Registry) Unregister(id core.ConnID) (Departure, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.conns[id]
	if !ok {
		return Departure{}, false
	}
	if e.Identity != "" && r.identities[e.Identity] == id {
		delete(r.identities, e.Identity)
	}
	dep := Departure{
		ID:        id,
		Identity:  e.Identity,
		Sender:    e.Sender,
		Rooms:     slices.Sorted(maps.Keys(e.Rooms)),
		Announced: slices.Sorted(maps.Keys(e.Announced)),
	}
	for _, room := range dep.Rooms {
		r.leaveLocked(id, e, room)
	}
	delete(r.conns, id)

	log.Info().Str("module", "app.registry").Str("sid", string(id)).
		Str("identity", string(e.Identity)).Int("rooms", len(dep.Rooms)).
		Dur("uptime", time.Since(e.ConnectedAt)).Msg("unregistered connection")
	return dep, true
}
