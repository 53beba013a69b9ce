// Package tier implements the Tier Orchestrator (§4.3): a single
// process-wide controller that tracks LLM health and selects between
// T1 (LLM), T2 (deterministic heuristics), and T3 (cache/safe-default)
// on every AI-backed call.
package tier

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Mode is the orchestrator's forcing mode.
type Mode string

const (
	ModeAuto    Mode = "auto"
	ModeForceT1 Mode = "force-T1"
	ModeForceT2 Mode = "force-T2"
	ModeForceT3 Mode = "force-T3"
)

// Tier is which implementation tier is currently selected.
type Tier int

const (
	Tier1 Tier = 1
	Tier2 Tier = 2
	Tier3 Tier = 3
)

// Config controls the orchestrator's cooldown policy (§6:
// AI_TIER_MODE, AI_COOLDOWN_BASE_SEC).
type Config struct {
	Mode           Mode
	BaseCooldown   time.Duration // default 30s
	ProbeInterval  time.Duration // default 60s
}

// DefaultConfig returns §4.3/§6's defaults.
func DefaultConfig() Config {
	return Config{Mode: ModeAuto, BaseCooldown: 30 * time.Second, ProbeInterval: 60 * time.Second}
}

// Orchestrator is the single process-wide tier controller. All mutable
// state is guarded by mu (§5: "single-writer discipline").
type Orchestrator struct {
	cfg Config

	mu               sync.Mutex
	mode             Mode
	currentTier      Tier
	consecutiveFails int
	cooldownUntil    time.Time
	lastSuccess      time.Time
	lastFailure      time.Time

	probe      func(context.Context) error
	probeCancel context.CancelFunc
	logger     *zap.Logger
}

// New creates an Orchestrator starting in Tier1 with no cooldown.
func New(cfg Config, logger *zap.Logger) *Orchestrator {
	if cfg.BaseCooldown <= 0 {
		cfg.BaseCooldown = 30 * time.Second
	}
	if cfg.ProbeInterval <= 0 {
		cfg.ProbeInterval = 60 * time.Second
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeAuto
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		cfg:         cfg,
		mode:        cfg.Mode,
		currentTier: Tier1,
		logger:      logger.With(zap.String("component", "tier_orchestrator")),
	}
}

// RegisterHealthProbe sets the lightweight LLM probe used by the
// background health-probe loop (§4.3).
func (o *Orchestrator) RegisterHealthProbe(probe func(context.Context) error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.probe = probe
}

// SetMode switches the forcing mode (AI_TIER_MODE).
func (o *Orchestrator) SetMode(mode Mode) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.mode = mode
}

// CurrentTier returns the tier selected in auto mode as of now. It is a
// pure function of (now, cooldownUntil, currentTier) per §8 invariant 8
// — it never invokes t1/t2/t3 and never mutates the cooldown-until
// timestamp as a side effect visible to a second identical call at the
// same instant (the cooldown-clear below is the single state
// transition the spec allows inside tier selection itself).
func (o *Orchestrator) CurrentTier(now time.Time) Tier {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.currentTierLocked(now)
}

func (o *Orchestrator) currentTierLocked(now time.Time) Tier {
	switch o.mode {
	case ModeForceT1:
		return Tier1
	case ModeForceT2:
		return Tier2
	case ModeForceT3:
		return Tier3
	}

	if !o.cooldownUntil.IsZero() && now.After(o.cooldownUntil) {
		o.currentTier = Tier1
		o.cooldownUntil = time.Time{}
		o.cancelProbeLocked()
	}
	return o.currentTier
}

// ReportSuccess resets the orchestrator to Tier1 (§4.3 reset policy).
func (o *Orchestrator) ReportSuccess() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.currentTier = Tier1
	o.consecutiveFails = 0
	o.cooldownUntil = time.Time{}
	o.lastSuccess = time.Now()
	o.cancelProbeLocked()
}

// ReportFailure applies the escalation table (§4.3) and starts the
// health-probe loop if ctx is non-nil.
func (o *Orchestrator) ReportFailure(ctx context.Context) {
	o.mu.Lock()
	o.consecutiveFails++
	o.lastFailure = time.Now()

	var newTier Tier
	var cooldown time.Duration
	switch {
	case o.consecutiveFails >= 10:
		newTier = Tier3
		cooldown = 15 * time.Minute
	case o.consecutiveFails >= 3:
		newTier = Tier2
		cooldown = 5 * time.Minute
	default:
		newTier = Tier2
		cooldown = o.cfg.BaseCooldown
	}
	o.currentTier = newTier
	o.cooldownUntil = time.Now().Add(cooldown)
	needProbe := o.probe != nil && o.probeCancel == nil
	o.mu.Unlock()

	if needProbe && ctx != nil {
		o.startHealthProbe(ctx)
	}
}

// Snapshot exposes orchestrator state for /api/ai-status and /api/health.
type Snapshot struct {
	Mode               Mode
	CurrentTier        Tier
	ConsecutiveFails   int
	CooldownRemaining  time.Duration
	LastSuccess        time.Time
	LastFailure        time.Time
}

// Snapshot returns a read-only view of the orchestrator's state.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	var remaining time.Duration
	if !o.cooldownUntil.IsZero() {
		if d := time.Until(o.cooldownUntil); d > 0 {
			remaining = d
		}
	}

	return Snapshot{
		Mode:              o.mode,
		CurrentTier:       o.currentTierLocked(time.Now()),
		ConsecutiveFails:  o.consecutiveFails,
		CooldownRemaining: remaining,
		LastSuccess:       o.lastSuccess,
		LastFailure:       o.lastFailure,
	}
}
