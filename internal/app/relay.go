package app

import (
	"errors"

	"github.com/dkeye/pulse/internal/core"
	"github.com/dkeye/pulse/internal/domain"
	"github.com/rs/zerolog/log"
)

// Relay computes recipient sets and delivers encoded frames. Delivery
// is fire-and-forget: nothing is reported back to the sending client.
type Relay struct {
	Registry *Registry
	Policy   Policy
}

func NewRelay(reg *Registry, policy Policy) *Relay {
	if policy == nil {
		policy = DropPolicy{}
	}
	return &Relay{Registry: reg, Policy: policy}
}

// Broadcast delivers payload to every member of room except from.
func (r *Relay) Broadcast(from core.ConnID, room domain.RoomName, event string, payload any) core.PublishResult {
	res := core.PublishResult{}
	recipients := r.Registry.recipients(room, from)
	if len(recipients) == 0 {
		log.Debug().Str("module", "app.relay").Str("from", string(from)).Str("room", string(room)).
			Str("event", event).Msg("no recipients, dropped")
		return res
	}
	frame, err := core.EncodeFrame(event, payload)
	if err != nil {
		log.Warn().Err(err).Str("module", "app.relay").Str("event", event).Msg("encode broadcast")
		return res
	}
	for _, rc := range recipients {
		r.deliver(room, rc, frame, &res)
	}
	log.Debug().Str("module", "app.relay").Str("from", string(from)).Str("room", string(room)).Str("event", event).
		Int("sent_to", res.SendTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}

// Direct delivers payload to the connection currently holding target.
// It reports false when the identity is not bound.
func (r *Relay) Direct(target domain.Identity, event string, payload any) bool {
	id, sender, ok := r.Registry.resolve(target)
	if !ok {
		log.Debug().Str("module", "app.relay").Str("target", string(target)).Str("event", event).Msg("target not found, dropped")
		return false
	}
	return r.emit(id, sender, event, payload)
}

// Emit delivers payload to a single connection, used for control replies.
func (r *Relay) Emit(to core.ConnID, event string, payload any) bool {
	sender, ok := r.Registry.Sender(to)
	if !ok {
		return false
	}
	return r.emit(to, sender, event, payload)
}

func (r *Relay) emit(id core.ConnID, sender core.Sender, event string, payload any) bool {
	frame, err := core.EncodeFrame(event, payload)
	if err != nil {
		log.Warn().Err(err).Str("module", "app.relay").Str("event", event).Msg("encode direct")
		return false
	}
	res := core.PublishResult{}
	r.deliver("", recipient{ID: id, Sender: sender}, frame, &res)
	return res.SendTo == 1
}

func (r *Relay) deliver(room domain.RoomName, rc recipient, frame core.Frame, res *core.PublishResult) {
	err := rc.Sender.TrySend(frame)
	switch {
	case err == nil:
		res.SendTo++
	case errors.Is(err, core.ErrBackpressure):
		res.Dropped = append(res.Dropped, rc.ID)
		switch r.Policy.OnBackPressure(room, rc.ID) {
		case KickMember:
			log.Warn().Str("module", "app.relay").Str("sid", string(rc.ID)).Msg("slow consumer kicked")
			rc.Sender.Close()
		case DropFrame, NoAction:
			log.Debug().Str("module", "app.relay").Str("sid", string(rc.ID)).Msg("slow consumer, frame dropped")
		}
	default:
		// Recipient went away between lookup and send.
		res.Gone++
	}
}
