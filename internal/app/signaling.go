package app

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/dkeye/pulse/internal/core"
	"github.com/dkeye/pulse/internal/domain"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

var ErrMalformedSignal = errors.New("malformed signaling payload")

// SignalingRouter relays call negotiation between identities. It keeps
// no call state; clients own the offer/answer state machine.
type SignalingRouter struct {
	Registry *Registry
	Relay    *Relay
}

func NewSignalingRouter(reg *Registry, relay *Relay) *SignalingRouter {
	return &SignalingRouter{Registry: reg, Relay: relay}
}

// Enter binds identity, joins room and announces the peer to the other
// members. An evicted previous holder is disconnected first so that its
// departure reaches peers before the new arrival.
func (s *SignalingRouter) Enter(id core.ConnID, room domain.RoomName, identity domain.Identity) error {
	evicted, err := s.Registry.SetIdentity(id, identity)
	if err != nil {
		return err
	}
	if evicted != "" {
		if dep, ok := s.Disconnect(evicted); ok && dep.Sender != nil {
			log.Info().Str("module", "app.signaling").Str("sid", string(evicted)).
				Str("identity", string(identity)).Msg("evicted previous identity holder")
			dep.Sender.Close()
		}
	}
	if !s.Registry.Announce(id, room) {
		return ErrUnknownConnection
	}
	log.Info().Str("module", "app.signaling").Str("sid", string(id)).Str("room", string(room)).
		Str("identity", string(identity)).Msg("peer entered")
	s.Relay.Broadcast(id, room, domain.EventUserConnected, identity)
	return nil
}

func (s *SignalingRouter) RelayOffer(from core.ConnID, to domain.Identity, body json.RawMessage) bool {
	if err := validateDescription(body); err != nil {
		log.Warn().Err(err).Str("module", "app.signaling").Str("sid", string(from)).Msg("bad offer")
		return false
	}
	return s.relay(from, to, domain.EventOffer, "offer", body)
}

func (s *SignalingRouter) RelayAnswer(from core.ConnID, to domain.Identity, body json.RawMessage) bool {
	if err := validateDescription(body); err != nil {
		log.Warn().Err(err).Str("module", "app.signaling").Str("sid", string(from)).Msg("bad answer")
		return false
	}
	return s.relay(from, to, domain.EventAnswer, "answer", body)
}

func (s *SignalingRouter) RelayIceCandidate(from core.ConnID, to domain.Identity, body json.RawMessage) bool {
	if err := validateCandidate(body); err != nil {
		log.Warn().Err(err).Str("module", "app.signaling").Str("sid", string(from)).Msg("bad candidate")
		return false
	}
	return s.relay(from, to, domain.EventIceCandidate, "candidate", body)
}

func (s *SignalingRouter) relay(from core.ConnID, to domain.Identity, event, field string, body json.RawMessage) bool {
	sender, ok := s.Registry.IdentityOf(from)
	if !ok {
		log.Debug().Str("module", "app.signaling").Str("sid", string(from)).Str("event", event).Msg("sender has no identity, dropped")
		return false
	}
	log.Info().Str("module", "app.signaling").Str("from", string(sender)).Str("to", string(to)).Str("event", event).Msg("relay")
	return s.Relay.Direct(to, event, map[string]any{
		field:      body,
		"senderId": sender,
	})
}

// DebugPing sends the sender's identity to target, or to every room the
// sender announced in when target is empty.
func (s *SignalingRouter) DebugPing(from core.ConnID, target domain.Identity) int {
	sender, ok := s.Registry.IdentityOf(from)
	if !ok {
		return 0
	}
	if target != "" {
		if s.Relay.Direct(target, domain.EventDebugPing, sender) {
			return 1
		}
		return 0
	}
	sent := 0
	for _, room := range s.Registry.AnnouncedRooms(from) {
		sent += s.Relay.Broadcast(from, room, domain.EventDebugPing, sender).SendTo
	}
	return sent
}

// Leave removes the connection from room, announcing the departure when
// presence had been announced there.
func (s *SignalingRouter) Leave(id core.ConnID, room domain.RoomName) bool {
	identity, hasIdentity := s.Registry.IdentityOf(id)
	left, announced := s.Registry.Leave(id, room)
	if left && announced && hasIdentity {
		s.announceDeparture(id, room, identity)
	}
	return left
}

// Disconnect unregisters the connection and announces its departure in
// every room it entered through Enter. It fires at most once per id.
func (s *SignalingRouter) Disconnect(id core.ConnID) (Departure, bool) {
	dep, ok := s.Registry.Unregister(id)
	if !ok {
		return dep, false
	}
	if dep.Identity == "" {
		return dep, true
	}
	for _, room := range dep.Announced {
		s.announceDeparture(id, room, dep.Identity)
	}
	return dep, true
}

// announceDeparture tells room that identity left, unless a newer
// connection holding the same identity is still a member there.
func (s *SignalingRouter) announceDeparture(id core.ConnID, room domain.RoomName, identity domain.Identity) {
	if s.Registry.holderInRoom(identity, id, room) {
		log.Debug().Str("module", "app.signaling").Str("sid", string(id)).Str("room", string(room)).
			Str("identity", string(identity)).Msg("departure hidden, identity still present")
		return
	}
	s.Relay.Broadcast(id, room, domain.EventUserDisconnected, identity)
}

func isEmptyJSON(body json.RawMessage) bool {
	b := bytes.TrimSpace(body)
	return len(b) == 0 || bytes.Equal(b, []byte("null"))
}

// validateDescription checks body is an RTCSessionDescriptionInit.
func validateDescription(body json.RawMessage) error {
	if isEmptyJSON(body) {
		return ErrMalformedSignal
	}
	var desc webrtc.SessionDescription
	if err := json.Unmarshal(body, &desc); err != nil {
		return errors.Join(ErrMalformedSignal, err)
	}
	if desc.SDP == "" {
		return ErrMalformedSignal
	}
	return nil
}

// validateCandidate checks body is an RTCIceCandidateInit. A null
// candidate marks end of gathering and is forwarded as is.
func validateCandidate(body json.RawMessage) error {
	b := bytes.TrimSpace(body)
	if len(b) == 0 {
		return ErrMalformedSignal
	}
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var cand webrtc.ICECandidateInit
	if err := json.Unmarshal(body, &cand); err != nil {
		return errors.Join(ErrMalformedSignal, err)
	}
	return nil
}
