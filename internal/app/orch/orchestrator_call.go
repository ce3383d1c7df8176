package orch

import (
	"encoding/json"
	"errors"

	"github.com/dkeye/pulse/internal/app"
	"github.com/dkeye/pulse/internal/core"
	"github.com/dkeye/pulse/internal/domain"
	"github.com/rs/zerolog/log"
)

// JoinCall handles the signaling join-room event. A rejected identity is
// the only signaling failure reported back, and only to the caller.
func (o *Orchestrator) JoinCall(sid core.ConnID, room domain.RoomName, identity domain.Identity) {
	err := o.Signaling.Enter(sid, room, identity)
	switch {
	case err == nil:
	case errors.Is(err, app.ErrIdentityTaken):
		o.Emit(sid, domain.EventError, map[string]string{"error": "identity_taken"})
	default:
		log.Warn().Err(err).Str("module", "orch").Str("sid", string(sid)).Msg("join-room")
	}
}

func (o *Orchestrator) Offer(sid core.ConnID, target domain.Identity, offer json.RawMessage) {
	o.Signaling.RelayOffer(sid, target, offer)
}

func (o *Orchestrator) Answer(sid core.ConnID, target domain.Identity, answer json.RawMessage) {
	o.Signaling.RelayAnswer(sid, target, answer)
}

func (o *Orchestrator) Candidate(sid core.ConnID, target domain.Identity, candidate json.RawMessage) {
	o.Signaling.RelayIceCandidate(sid, target, candidate)
}

func (o *Orchestrator) DebugPing(sid core.ConnID, target domain.Identity) {
	n := o.Signaling.DebugPing(sid, target)
	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("target", string(target)).Int("sent_to", n).Msg("debug_ping")
}
