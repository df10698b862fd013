package sim

import (
	"fmt"

	"github.com/yessjun/stay-sub000/models"
)

type movement int

const (
	movNone movement = iota
	movNSLeft
	movNSThrough
	movEWLeft
	movEWThrough
)

type phase struct {
	mov      movement
	state    models.LightState
	duration float64
}

// SignalController owns the per-approach light heads and cycles them
// through a fixed, purely time-driven phase sequence. Two cycle modes
// exist: an 8-phase cycle with protected left turns, and a 4-phase
// cycle where lefts are permitted on green but must yield to opposing
// through traffic (the yield itself is enforced by the kinematics).
type SignalController struct {
	phases    []phase
	index     int
	timer     float64
	protected bool
	emergency bool
}

func NewSignalController(cfg Config) *SignalController {
	s := &SignalController{protected: cfg.ProtectedLeft}
	if cfg.ProtectedLeft {
		s.phases = []phase{
			{movNSLeft, models.LightGreen, cfg.GreenLeft},
			{movNSLeft, models.LightYellow, cfg.Yellow},
			{movNone, models.LightRed, cfg.AllRed},
			{movNSThrough, models.LightGreen, cfg.GreenThrough},
			{movNSThrough, models.LightYellow, cfg.Yellow},
			{movNone, models.LightRed, cfg.AllRed},
			{movEWLeft, models.LightGreen, cfg.GreenLeft},
			{movEWLeft, models.LightYellow, cfg.Yellow},
			{movNone, models.LightRed, cfg.AllRed},
			{movEWThrough, models.LightGreen, cfg.GreenThrough},
			{movEWThrough, models.LightYellow, cfg.Yellow},
			{movNone, models.LightRed, cfg.AllRed},
		}
	} else {
		s.phases = []phase{
			{movNSThrough, models.LightGreen, cfg.GreenThrough},
			{movNSThrough, models.LightYellow, cfg.Yellow},
			{movNone, models.LightRed, cfg.AllRed},
			{movEWThrough, models.LightGreen, cfg.GreenThrough},
			{movEWThrough, models.LightYellow, cfg.Yellow},
			{movNone, models.LightRed, cfg.AllRed},
		}
	}
	s.Reset()
	return s
}

// Update advances the phase timer; cycling is suspended while the
// emergency override holds.
func (s *SignalController) Update(deltaSeconds float64) {
	if s.emergency {
		return
	}
	s.timer -= deltaSeconds
	for s.timer <= 0 {
		s.index = (s.index + 1) % len(s.phases)
		s.timer += s.phases[s.index].duration
	}
}

// CanPass answers right-of-way for an approach and intent. In the
// unprotected cycle a left on green returns true here; the
// oncoming-traffic yield is a kinematics concern.
func (s *SignalController) CanPass(dir models.Direction, intent models.TurnIntent) bool {
	if s.emergency {
		return false
	}
	p := s.phases[s.index]
	if p.state != models.LightGreen {
		return false
	}
	ns := dir == models.North || dir == models.South

	switch p.mov {
	case movNSThrough:
		if !ns {
			return false
		}
		if intent == models.TurnLeft && s.protected {
			return false
		}
		return true
	case movEWThrough:
		if ns {
			return false
		}
		if intent == models.TurnLeft && s.protected {
			return false
		}
		return true
	case movNSLeft:
		return ns && intent == models.TurnLeft
	case movEWLeft:
		return !ns && intent == models.TurnLeft
	default:
		return false
	}
}

func (s *SignalController) ForceAllRed() {
	s.emergency = true
}

// Reset returns to the start of the cycle and clears any emergency
// hold.
func (s *SignalController) Reset() {
	s.emergency = false
	s.index = 0
	s.timer = s.phases[0].duration
}

// Signals renders the current phase as four per-approach light heads;
// opposing approaches share a state by construction.
func (s *SignalController) Signals() []models.Signal {
	out := make([]models.Signal, 0, len(models.Directions))
	for _, d := range models.Directions {
		sig := models.Signal{
			ID:            fmt.Sprintf("signal_%s", d),
			Approach:      d,
			Through:       models.LightRed,
			ProtectedLeft: models.LightRed,
			Countdown:     s.timer,
		}
		if !s.emergency {
			p := s.phases[s.index]
			ns := d == models.North || d == models.South
			switch p.mov {
			case movNSThrough:
				if ns {
					sig.Through = p.state
					if !s.protected {
						sig.ProtectedLeft = p.state
					}
				}
			case movEWThrough:
				if !ns {
					sig.Through = p.state
					if !s.protected {
						sig.ProtectedLeft = p.state
					}
				}
			case movNSLeft:
				if ns {
					sig.ProtectedLeft = p.state
				}
			case movEWLeft:
				if !ns {
					sig.ProtectedLeft = p.state
				}
			}
		}
		out = append(out, sig)
	}
	return out
}
