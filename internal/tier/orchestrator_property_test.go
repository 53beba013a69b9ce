package tier

import (
	"testing"
	"time"

	"pgregory.net/rapid"
)

// Property (§8 invariant 8): CurrentTier in auto mode is a pure function
// of (now, cooldownUntil, currentTier) — calling it repeatedly at the
// same instant with no intervening failure/success report always
// returns the same tier.
func TestProperty_CurrentTierIsPureAtFixedInstant(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		fails := rapid.IntRange(0, 20).Draw(rt, "fails")
		elapsedMillis := rapid.IntRange(0, 20*60*1000).Draw(rt, "elapsedMillis")

		o := New(Config{Mode: ModeAuto, BaseCooldown: 30 * time.Second, ProbeInterval: time.Hour}, nil)
		for i := 0; i < fails; i++ {
			o.ReportFailure(nil)
		}

		now := time.Now().Add(time.Duration(elapsedMillis) * time.Millisecond)

		first := o.CurrentTier(now)
		second := o.CurrentTier(now)

		if fails == 0 {
			if first != Tier1 {
				rt.Fatalf("expected tier1 with zero failures, got %v", first)
			}
		}

		if first != second {
			rt.Fatalf("CurrentTier not stable across repeated calls at same instant: %v vs %v", first, second)
		}
	})
}

// Property: escalation tier is monotone non-decreasing in consecutive
// failures within a single escalation run (1-2 -> T2, 3-9 -> T2, 10+ -> T3).
func TestProperty_EscalationTableMatchesSpec(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		fails := rapid.IntRange(1, 30).Draw(rt, "fails")

		o := New(DefaultConfig(), nil)
		for i := 0; i < fails; i++ {
			o.ReportFailure(nil)
		}

		snap := o.Snapshot()
		switch {
		case fails >= 10:
			if snap.CurrentTier != Tier3 {
				rt.Fatalf("expected tier3 at %d failures, got %v", fails, snap.CurrentTier)
			}
		default:
			if snap.CurrentTier != Tier2 {
				rt.Fatalf("expected tier2 at %d failures, got %v", fails, snap.CurrentTier)
			}
		}
	})
}
