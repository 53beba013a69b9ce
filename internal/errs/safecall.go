package errs

import (
	"fmt"
	"runtime/debug"

	"go.uber.org/zap"
)

// SafeCallOptions configures SafeCall's dead-lettering and debug
// behavior.
type SafeCallOptions struct {
	DeadLetter    bool
	Operation     string
	Payload       any
	DebugRethrow  bool // re-throw instead of swallowing; not set from config.DebugErrors
}

// SafeCall runs fn; on failure, it logs with ctxMsg and returns
// fallback. If opts.DeadLetter is set, the failure (with opts.Payload)
// is appended to dlog. If opts.DebugRethrow is set, the error is
// returned instead of being swallowed.
func SafeCall[T any](logger *zap.Logger, dlog *DeadLetterLog, ctxMsg string, opts SafeCallOptions, fallback T, fn func() (T, error)) (T, error) {
	val, err := fn()
	if err == nil {
		return val, nil
	}

	if logger != nil {
		logger.Warn(fmt.Sprintf("safeCall failure: %s", ctxMsg), zap.Error(err))
	}

	if opts.DeadLetter && dlog != nil {
		op := opts.Operation
		if op == "" {
			op = ctxMsg
		}
		dlog.Append(op, opts.Payload, err, string(debug.Stack()))
	}

	if opts.DebugRethrow {
		return fallback, err
	}

	return fallback, nil
}
