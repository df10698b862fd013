package sim

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yessjun/stay-sub000/models"
)

func TestCommandsApplyAtTickBoundary(t *testing.T) {
	cfg := quietConfig()
	clock := NewClock(cfg)

	clock.Tick(cfg.TickInterval)
	assert.InDelta(t, cfg.TickInterval, clock.Metrics().SimSeconds, 1e-9)

	clock.SetSpeed(2)
	assert.Equal(t, 1.0, clock.Metrics().SpeedFactor, "queued command must not apply mid-tick")

	clock.Tick(cfg.TickInterval)
	m := clock.Metrics()
	assert.Equal(t, 2.0, m.SpeedFactor)
	assert.InDelta(t, cfg.TickInterval*3, m.SimSeconds, 1e-9, "second tick runs scaled")
}

func TestSpeedFactorIsClamped(t *testing.T) {
	cfg := quietConfig()
	clock := NewClock(cfg)

	clock.SetSpeed(-5)
	clock.Tick(cfg.TickInterval)
	assert.Equal(t, 1.0, clock.Metrics().SpeedFactor)

	clock.SetSpeed(100)
	clock.Tick(cfg.TickInterval)
	assert.Equal(t, 10.0, clock.Metrics().SpeedFactor)
}

func TestSeededRunsReplayIdentically(t *testing.T) {
	cfg := DefaultConfig()
	a := NewClock(cfg)
	b := NewClock(cfg)

	for i := 0; i < 50; i++ {
		a.Tick(cfg.TickInterval)
		b.Tick(cfg.TickInterval)
	}

	if diff := cmp.Diff(a.Snapshot(), b.Snapshot()); diff != "" {
		t.Fatalf("same-seed runs diverged (-a +b):\n%s", diff)
	}
}

func TestPauseHaltsSimulationButDrainsCommands(t *testing.T) {
	cfg := DefaultConfig()
	clock := NewClock(cfg)

	clock.Tick(cfg.TickInterval)
	before := clock.Snapshot()

	clock.SetRunning(false)
	clock.SetSpeed(3)
	for i := 0; i < 10; i++ {
		clock.Tick(cfg.TickInterval)
	}

	m := clock.Metrics()
	assert.False(t, m.Running)
	assert.Equal(t, 3.0, m.SpeedFactor, "commands drain while paused")
	assert.Equal(t, before.Metrics.TickCount, m.TickCount)
	assert.InDelta(t, before.Metrics.SimSeconds, m.SimSeconds, 1e-9)
	assert.Empty(t, cmp.Diff(before.Vehicles, clock.Vehicles()))

	clock.SetRunning(true)
	clock.Tick(cfg.TickInterval)
	assert.Equal(t, before.Metrics.TickCount+1, clock.Metrics().TickCount)
}

func TestEmergencyCommandEndToEnd(t *testing.T) {
	cfg := quietConfig()
	clock := NewClock(cfg)

	// First tick rebalances the curb up to its base target.
	clock.Tick(cfg.TickInterval)
	require.NotEmpty(t, clock.Slots())

	clock.TriggerEmergency()
	clock.Tick(cfg.TickInterval)

	for _, sig := range clock.Signals() {
		assert.Equal(t, models.LightRed, sig.Through)
		assert.Equal(t, models.LightRed, sig.ProtectedLeft)
	}
	for _, s := range clock.Slots() {
		assert.False(t, s.AutoManaged)
		assert.Zero(t, s.Occupied)
		assert.Empty(t, s.VehicleID)
	}

	clock.ClearEmergency()
	clock.Tick(cfg.TickInterval)

	green := false
	for _, sig := range clock.Signals() {
		if sig.Through == models.LightGreen || sig.ProtectedLeft == models.LightGreen {
			green = true
		}
	}
	assert.True(t, green, "cycling resumes after the emergency clears")
	for _, s := range clock.Slots() {
		assert.True(t, s.AutoManaged)
	}
}

func TestCongestionTracksLoad(t *testing.T) {
	cfg := DefaultConfig()
	clock := NewClock(cfg)

	clock.Tick(cfg.TickInterval)
	c := clock.Congestion()
	assert.GreaterOrEqual(t, c.Value, 0.0)
	assert.LessOrEqual(t, c.Value, 100.0)
	assert.Equal(t, clock.Metrics().ActiveVehicles, c.ActiveVehicles)
}
