package tier

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEscalation1To2FailuresGoesToTier2WithBaseCooldown(t *testing.T) {
	o := New(DefaultConfig(), nil)
	o.ReportFailure(nil)

	snap := o.Snapshot()
	assert.Equal(t, Tier2, snap.CurrentTier)
	assert.Equal(t, 1, snap.ConsecutiveFails)
}

func TestEscalation3To9FailuresGoesToTier2With5MinCooldown(t *testing.T) {
	o := New(DefaultConfig(), nil)
	for i := 0; i < 3; i++ {
		o.ReportFailure(nil)
	}

	snap := o.Snapshot()
	assert.Equal(t, Tier2, snap.CurrentTier)
	assert.Equal(t, 3, snap.ConsecutiveFails)
	assert.Greater(t, snap.CooldownRemaining, 4*time.Minute)
}

func TestEscalation10PlusFailuresGoesToTier3With15MinCooldown(t *testing.T) {
	o := New(DefaultConfig(), nil)
	for i := 0; i < 10; i++ {
		o.ReportFailure(nil)
	}

	snap := o.Snapshot()
	assert.Equal(t, Tier3, snap.CurrentTier)
	assert.Greater(t, snap.CooldownRemaining, 14*time.Minute)
}

func TestReportSuccessResetsToTier1(t *testing.T) {
	o := New(DefaultConfig(), nil)
	for i := 0; i < 10; i++ {
		o.ReportFailure(nil)
	}
	o.ReportSuccess()

	snap := o.Snapshot()
	assert.Equal(t, Tier1, snap.CurrentTier)
	assert.Equal(t, 0, snap.ConsecutiveFails)
	assert.Equal(t, time.Duration(0), snap.CooldownRemaining)
}

func TestCooldownExpiryResetsToTier1Optimistically(t *testing.T) {
	o := New(Config{Mode: ModeAuto, BaseCooldown: time.Millisecond, ProbeInterval: time.Hour}, nil)
	o.ReportFailure(nil)

	time.Sleep(5 * time.Millisecond)

	tier := o.CurrentTier(time.Now())
	assert.Equal(t, Tier1, tier)
}

func TestForcedModesBypassEscalation(t *testing.T) {
	o := New(Config{Mode: ModeForceT3, BaseCooldown: time.Second, ProbeInterval: time.Hour}, nil)
	assert.Equal(t, Tier3, o.CurrentTier(time.Now()))

	o.ReportFailure(nil) // forced mode still records failures but tier stays forced
	assert.Equal(t, Tier3, o.CurrentTier(time.Now()))
}
