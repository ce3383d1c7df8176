package signal

import (
	"context"
	"time"

	"github.com/dkeye/pulse/internal/core"
	"github.com/dkeye/pulse/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.cfg.WriteWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(ctl.cfg.WriteWait)); err != nil {
				log.Debug().Err(err).Str("module", "signal").Msg("writePump ping")
				return
			}
		}
	}
}

// readPump owns the connection lifetime: whatever ends the read loop runs
// the single disconnect path.
func (ctl *SignalWSController) readPump(ctx context.Context, cancel context.CancelFunc, sid core.ConnID, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump closing")
		ctl.Orch.Disconnect(sid)
		if ctl.limiter != nil {
			ctl.limiter.Forget(sid)
		}
		c.Close()
		cancel()
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(ctl.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(ctl.cfg.PongWait))
	})

	for {
		if ctx.Err() != nil {
			return
		}
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("readPump read error")
			}
			return
		}
		if ctl.limiter != nil && !ctl.limiter.Allow(sid) {
			ctl.Orch.Emit(sid, domain.EventError, map[string]string{"error": "rate_limited"})
			continue
		}
		ctl.handleSignal(sid, data)
	}
}

func (ctl *SignalWSController) handleSignal(sid core.ConnID, data []byte) {
	env, err := core.DecodeFrame(data)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("bad json")
		return
	}

	switch env.Type {
	case domain.EventJoinRoom:
		ctl.handleJoinRoom(sid, env.Data)
	case domain.EventLeaveRoom:
		ctl.handleLeaveRoom(sid, env.Data)
	case domain.EventSendMove:
		ctl.handleSendMove(sid, env.Data)
	case domain.EventGameReset:
		ctl.handleGameReset(sid, env.Data)
	case domain.EventSendLocation:
		ctl.handleSendLocation(sid, env.Data)
	case domain.EventCallJoin:
		ctl.handleCallJoin(sid, env.Data)
	case domain.EventOffer:
		ctl.handleOffer(sid, env.Data)
	case domain.EventAnswer:
		ctl.handleAnswer(sid, env.Data)
	case domain.EventIceCandidate:
		ctl.handleCandidate(sid, env.Data)
	case domain.EventDebugPing:
		ctl.handleDebugPing(sid, env.Data)
	case domain.EventPing:
		ctl.handlePing(sid)
	default:
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Str("type", env.Type).Msg("unknown signal")
	}
}
