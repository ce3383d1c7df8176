package signal

import (
	"github.com/dkeye/pulse/internal/core"
	"github.com/dkeye/pulse/internal/domain"
)

func (ctl *SignalWSController) handlePing(sid core.ConnID) {
	ctl.Orch.Emit(sid, domain.EventPong, nil)
}
