// Package orch routes decoded client events onto the registry, relay,
// signaling router and location bridge.
package orch

import (
	"github.com/dkeye/pulse/internal/app"
	"github.com/dkeye/pulse/internal/core"
	"github.com/rs/zerolog/log"
)

type Orchestrator struct {
	Registry  *app.Registry
	Relay     *app.Relay
	Signaling *app.SignalingRouter
	Locations *app.LocationBridge
}

// New wires the relay core around reg.
func New(reg *app.Registry, policy app.Policy, locations *app.LocationBridge) *Orchestrator {
	relay := app.NewRelay(reg, policy)
	return &Orchestrator{
		Registry:  reg,
		Relay:     relay,
		Signaling: app.NewSignalingRouter(reg, relay),
		Locations: locations,
	}
}

// Connect registers a freshly accepted transport.
func (o *Orchestrator) Connect(sender core.Sender) core.ConnID {
	return o.Registry.Register(sender)
}

// Disconnect runs the single cleanup path for a connection, whatever
// ended it.
func (o *Orchestrator) Disconnect(sid core.ConnID) {
	if dep, ok := o.Signaling.Disconnect(sid); ok {
		log.Info().Str("module", "orch").Str("sid", string(sid)).Str("identity", string(dep.Identity)).
			Int("rooms", len(dep.Rooms)).Msg("disconnected")
	}
}

// Emit sends a control event to a single connection.
func (o *Orchestrator) Emit(sid core.ConnID, event string, payload any) {
	o.Relay.Emit(sid, event, payload)
}
