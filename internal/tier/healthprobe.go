package tier

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// startHealthProbe runs the registered lightweight LLM probe every
// ProbeInterval until it succeeds once (which calls ReportSuccess and
// cancels itself) or ctx is cancelled.
func (o *Orchestrator) startHealthProbe(ctx context.Context) {
	o.mu.Lock()
	if o.probeCancel != nil {
		o.mu.Unlock()
		return
	}
	probeCtx, cancel := context.WithCancel(ctx)
	o.probeCancel = cancel
	probe := o.probe
	o.mu.Unlock()

	if probe == nil {
		return
	}

	go func() {
		ticker := time.NewTicker(o.cfg.ProbeInterval)
		defer ticker.Stop()

		for {
			select {
			case <-probeCtx.Done():
				return
			case <-ticker.C:
				if err := probe(probeCtx); err == nil {
					o.logger.Info("health probe succeeded, re-escalating to tier 1")
					o.ReportSuccess()
					return
				}
				o.logger.Debug("health probe still failing")
			}
		}
	}()
}

func (o *Orchestrator) cancelProbeLocked() {
	if o.probeCancel != nil {
		o.probeCancel()
		o.probeCancel = nil
	}
}
