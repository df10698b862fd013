package sim

import (
	log "github.com/sirupsen/logrus"

	"github.com/yessjun/stay-sub000/models"
)

// Deadlock escalation guarantees liveness inside the intersection: a
// stuck vehicle accrues wait time, gains a priority that yields only to
// strictly higher competitors, may back off, and finally advances
// regardless of conflict.

func turnWeight(intent models.TurnIntent) float64 {
	switch intent {
	case models.TurnStraight:
		return 3
	case models.TurnRight:
		return 2
	default:
		return 1
	}
}

func (e *Engine) resolveDeadlock(v *models.Vehicle, prev []models.Vehicle, dt float64) {
	if !e.geo.InFootprint(v.Pos) || v.Speed > 0.2 {
		v.IntersectionWait = 0
		v.Priority = 0
		return
	}

	v.IntersectionWait += dt
	if v.IntersectionWait < e.cfg.DeadlockWait {
		return
	}

	v.Priority = turnWeight(v.Intent)
	if v.Heading == models.North || v.Heading == models.South {
		v.Priority += e.cfg.MajorAxisBonus
	}

	if v.IntersectionWait >= e.cfg.ForcedAdvanceWait {
		// Bounded-wait guarantee: creep forward no matter what.
		v.WaitingForSignal = false
		v.Speed = e.cfg.ForcedAdvanceSpeed
		v.Pos = e.advancePoint(v, v.Speed*dt)
		log.Debugf("vehicle %s forced advance after %.1fs in intersection", v.ID, v.IntersectionWait)
		return
	}

	if e.yieldsToConflict(v, prev) {
		if v.IntersectionWait >= e.cfg.ReverseWait {
			e.reverseNudge(v, prev, dt)
		}
		return
	}

	// Highest priority among the conflict set: proceed at a crawl.
	v.WaitingForSignal = false
	if v.Speed < e.cfg.ForcedAdvanceSpeed {
		v.Speed = e.cfg.ForcedAdvanceSpeed
	}
	v.Pos = e.advancePoint(v, v.Speed*dt)
}

// Equal priority does not force a yield, which breaks symmetric
// standoffs.
func (e *Engine) yieldsToConflict(v *models.Vehicle, prev []models.Vehicle) bool {
	for i := range prev {
		o := &prev[i]
		if o.ID == v.ID || o.Parked || o.Heading == v.Heading {
			continue
		}
		if !e.geo.InFootprint(o.Pos) {
			continue
		}
		if Dist(o.Pos, v.Pos) > e.cfg.ConflictRadius {
			continue
		}
		op := o.Priority
		if op == 0 {
			op = turnWeight(o.Intent)
			if o.Heading == models.North || o.Heading == models.South {
				op += e.cfg.MajorAxisBonus
			}
		}
		if op > v.Priority {
			return true
		}
	}
	return false
}

// reverseNudge backs the vehicle off slightly while the space behind is
// clear.
func (e *Engine) reverseNudge(v *models.Vehicle, prev []models.Vehicle, dt float64) {
	back := e.advancePoint(v, -e.cfg.ReverseNudgeSpeed*dt)
	for i := range prev {
		o := &prev[i]
		if o.ID == v.ID {
			continue
		}
		if Dist(o.Pos, back) < e.cfg.HardRadius {
			return
		}
	}
	v.Pos = back
}
