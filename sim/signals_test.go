package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yessjun/stay-sub000/models"
)

func signalsByApproach(s *SignalController) map[models.Direction]models.Signal {
	out := make(map[models.Direction]models.Signal)
	for _, sig := range s.Signals() {
		out[sig.Approach] = sig
	}
	return out
}

func TestOpposingApproachesShareState(t *testing.T) {
	for _, protected := range []bool{true, false} {
		cfg := DefaultConfig()
		cfg.ProtectedLeft = protected
		s := NewSignalController(cfg)

		for i := 0; i < 400; i++ {
			s.Update(0.5)
			sigs := signalsByApproach(s)

			assert.Equal(t, sigs[models.North].Through, sigs[models.South].Through)
			assert.Equal(t, sigs[models.East].Through, sigs[models.West].Through)
			assert.Equal(t, sigs[models.North].ProtectedLeft, sigs[models.South].ProtectedLeft)
			assert.Equal(t, sigs[models.East].ProtectedLeft, sigs[models.West].ProtectedLeft)

			nsGreen := sigs[models.North].Through == models.LightGreen
			ewGreen := sigs[models.East].Through == models.LightGreen
			assert.False(t, nsGreen && ewGreen, "both axes green at step %d", i)
		}
	}
}

func TestYellowAlwaysFollowsGreen(t *testing.T) {
	cfg := DefaultConfig()
	s := NewSignalController(cfg)

	last := signalsByApproach(s)[models.North].Through
	for i := 0; i < 2000; i++ {
		s.Update(0.25)
		cur := signalsByApproach(s)[models.North].Through
		if cur == last {
			continue
		}
		switch last {
		case models.LightGreen:
			assert.Equal(t, models.LightYellow, cur, "green must be followed by yellow")
		case models.LightYellow:
			assert.Equal(t, models.LightRed, cur, "yellow must be followed by red")
		}
		last = cur
	}
}

func TestProtectedLeftCycle(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ProtectedLeft = true
	s := NewSignalController(cfg)

	// Initial phase: N/S protected left.
	assert.True(t, s.CanPass(models.North, models.TurnLeft))
	assert.True(t, s.CanPass(models.South, models.TurnLeft))
	assert.False(t, s.CanPass(models.North, models.TurnStraight))
	assert.False(t, s.CanPass(models.East, models.TurnLeft))
	assert.False(t, s.CanPass(models.East, models.TurnStraight))

	// Past left green + yellow + all-red lands in N/S through green.
	s.Update(cfg.GreenLeft + cfg.Yellow + cfg.AllRed + 0.5)
	assert.True(t, s.CanPass(models.North, models.TurnStraight))
	assert.True(t, s.CanPass(models.North, models.TurnRight))
	assert.False(t, s.CanPass(models.North, models.TurnLeft), "left is protected-only")
	assert.False(t, s.CanPass(models.West, models.TurnStraight))
}

func TestPermissiveLeftCycle(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ProtectedLeft = false
	s := NewSignalController(cfg)

	// 4-phase mode starts in N/S through green; lefts are permitted at
	// the controller level and yield downstream.
	assert.True(t, s.CanPass(models.North, models.TurnStraight))
	assert.True(t, s.CanPass(models.North, models.TurnLeft))
	assert.False(t, s.CanPass(models.East, models.TurnStraight))

	s.Update(cfg.GreenThrough + cfg.Yellow + cfg.AllRed + 0.5)
	assert.True(t, s.CanPass(models.East, models.TurnStraight))
	assert.False(t, s.CanPass(models.North, models.TurnStraight))
}

func TestEmergencyOverride(t *testing.T) {
	cfg := DefaultConfig()
	s := NewSignalController(cfg)

	s.ForceAllRed()
	for _, d := range models.Directions {
		for _, intent := range []models.TurnIntent{models.TurnStraight, models.TurnLeft, models.TurnRight} {
			assert.False(t, s.CanPass(d, intent))
		}
	}
	for _, sig := range s.Signals() {
		assert.Equal(t, models.LightRed, sig.Through)
		assert.Equal(t, models.LightRed, sig.ProtectedLeft)
	}

	// Cycling stays suspended until reset.
	s.Update(1000)
	require.False(t, s.CanPass(models.North, models.TurnLeft))

	s.Reset()
	assert.True(t, s.CanPass(models.North, models.TurnLeft))
}
