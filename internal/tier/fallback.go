package tier

import (
	"context"
	"time"
)

// WithFallback is the call-site contract of §4.3: in auto mode it tries
// t1 first (if the current tier is 1), falling through to t2 then t3 on
// error; in a forced mode, only the corresponding tier runs. t3 must
// never return an error — it is the safe default.
func WithFallback[T any](
	ctx context.Context,
	o *Orchestrator,
	t1 func(context.Context) (T, error),
	t2 func(context.Context) (T, error),
	t3 func(context.Context) T,
) T {
	switch o.mode {
	case ModeForceT1:
		v, err := t1(ctx)
		if err != nil {
			o.ReportFailure(ctx)
			return v
		}
		o.ReportSuccess()
		return v
	case ModeForceT2:
		v, _ := t2(ctx)
		return v
	case ModeForceT3:
		return t3(ctx)
	}

	// auto mode
	if o.CurrentTier(time.Now()) <= Tier1 {
		v, err := t1(ctx)
		if err == nil {
			o.ReportSuccess()
			return v
		}
		o.ReportFailure(ctx)
	}

	if v, err := t2(ctx); err == nil {
		return v
	}

	return t3(ctx)
}
