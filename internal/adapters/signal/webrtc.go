package signal

import (
	"encoding/json"
	"errors"

	"github.com/dkeye/pulse/internal/core"
	"github.com/dkeye/pulse/internal/domain"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

// parseSignal reads an offer, answer or candidate addressed to a peer.
// The body stays raw; the router validates it and forwards it untouched.
func parseSignal(data json.RawMessage, field string) (domain.Identity, json.RawMessage, error) {
	if !gjson.ValidBytes(data) {
		return "", nil, errInvalidPayload
	}
	t := gjson.GetBytes(data, "targetUserId")
	if t.Type != gjson.String {
		return "", nil, errors.New("missing targetUserId")
	}
	target, err := domain.ParseIdentity(t.Str)
	if err != nil {
		return "", nil, err
	}
	body := gjson.GetBytes(data, field)
	if !body.Exists() {
		return "", nil, errors.New("missing " + field)
	}
	return target, json.RawMessage(body.Raw), nil
}

func (ctl *SignalWSController) handleOffer(sid core.ConnID, data json.RawMessage) {
	target, body, err := parseSignal(data, "offer")
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("bad offer payload")
		return
	}
	ctl.Orch.Offer(sid, target, body)
}

func (ctl *SignalWSController) handleAnswer(sid core.ConnID, data json.RawMessage) {
	target, body, err := parseSignal(data, "answer")
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("bad answer payload")
		return
	}
	ctl.Orch.Answer(sid, target, body)
}

func (ctl *SignalWSController) handleCandidate(sid core.ConnID, data json.RawMessage) {
	target, body, err := parseSignal(data, "candidate")
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("bad ice-candidate payload")
		return
	}
	ctl.Orch.Candidate(sid, target, body)
}
