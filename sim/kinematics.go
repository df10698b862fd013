package sim

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/yessjun/stay-sub000/models"
)

// updateSignalWait runs the stop-line check. A permitted left on a
// permissive green additionally yields to oncoming through traffic.
func (e *Engine) updateSignalWait(v *models.Vehicle, prev []models.Vehicle) {
	v.WaitingForSignal = false
	if v.Turning {
		return
	}

	d := e.geo.StopLineDist(v.Heading, v.Pos)
	if d <= 0 || d > e.cfg.ApproachZone {
		return
	}

	if !e.signals.CanPass(v.Heading, v.Intent) {
		v.WaitingForSignal = true
		return
	}

	if v.Intent == models.TurnLeft && !e.signals.protected {
		if e.oncomingThrough(v, prev) {
			v.WaitingForSignal = true
		}
	}
}

func (e *Engine) oncomingThrough(v *models.Vehicle, prev []models.Vehicle) bool {
	opp := v.Heading.Opposite()
	for i := range prev {
		o := &prev[i]
		if o.ID == v.ID || o.Heading != opp || o.Parked || o.ParkingTransition {
			continue
		}
		if o.Intent != models.TurnStraight {
			continue
		}
		d := e.geo.StopLineDist(opp, o.Pos)
		if d > -e.geo.HalfWidth*2 && d < e.cfg.OncomingScanWindow {
			return true
		}
	}
	return false
}

// findLead returns the nearest vehicle ahead in the same lane and
// heading, and the gap to it. A missing lead is an infinite gap.
func (e *Engine) findLead(v *models.Vehicle, prev []models.Vehicle) (*models.Vehicle, float64) {
	var lead *models.Vehicle
	minDist := e.cfg.LookaheadDistance + 1

	for i := range prev {
		o := &prev[i]
		if o.ID == v.ID || o.Heading != v.Heading {
			continue
		}
		lat := e.geo.Lateral(v.Heading, o.Pos)
		if abs(lat-e.geo.LaneCenter(v.Heading, v.Lane)) > e.geo.LaneWidth*0.6 {
			continue
		}
		d := e.geo.DistAhead(v.Heading, v.Pos, o.Pos)
		if d <= 0 || d > e.cfg.LookaheadDistance {
			continue
		}
		if d < minDist {
			minDist = d
			lead = o
		}
	}

	if lead == nil {
		return nil, math.Inf(1)
	}
	return lead, minDist
}

// dynamicSafeDistance is the speed- and reaction-time-dependent
// following gap that triggers braking.
func (e *Engine) dynamicSafeDistance(speed float64) float64 {
	return math.Max(e.cfg.MinSafeDistance, speed*e.cfg.ReactionTime+2*e.cfg.VehicleLength)
}

// applyAcceleration picks the new speed. Ordered precedence, first
// match wins.
func (e *Engine) applyAcceleration(v *models.Vehicle, lead *models.Vehicle, gap float64, prev []models.Vehicle, dt float64) {
	if e.contactImminent(v, prev, dt) {
		v.Speed = 0
		return
	}

	if v.WaitingForSignal {
		v.Speed = math.Max(0, v.Speed-e.cfg.Deceleration*dt)
		if e.geo.StopLineDist(v.Heading, v.Pos) < e.cfg.VehicleLength {
			v.Speed = 0
		}
		return
	}

	switch {
	case gap < e.cfg.MinSafeDistance:
		v.Speed = 0
	case gap < 2*e.cfg.VehicleLength:
		v.Speed = math.Max(0, v.Speed-e.cfg.Deceleration*dt)
	case gap < e.dynamicSafeDistance(v.Speed):
		// Damped controller toward the lead's speed.
		target := lead.Speed
		v.Speed += (target - v.Speed) * math.Min(1, 3*dt)
		v.Speed = math.Max(0, v.Speed)
	case gap < 2*e.dynamicSafeDistance(v.Speed):
		target := math.Min(v.MaxSpeed, lead.Speed*1.1)
		v.Speed += (target - v.Speed) * math.Min(1, dt)
	default:
		v.Speed = math.Min(v.MaxSpeed, v.Speed+e.cfg.Acceleration*dt)
	}
}

// contactImminent predicts the next position update and reports whether
// it would land within the hard collision radius of another vehicle.
func (e *Engine) contactImminent(v *models.Vehicle, prev []models.Vehicle, dt float64) bool {
	if v.Speed <= 0 {
		return false
	}
	next := e.advancePoint(v, v.Speed*dt)
	for i := range prev {
		o := &prev[i]
		if o.ID == v.ID {
			continue
		}
		if Dist(o.Pos, next) < e.cfg.HardRadius {
			return true
		}
	}
	return false
}

func (e *Engine) advancePoint(v *models.Vehicle, dist float64) orb.Point {
	h := e.geo.HeadingVec(v.Heading)
	return orb.Point{v.Pos[0] + h[0]*dist, v.Pos[1] + h[1]*dist}
}

// integrate commits the tentative move only after re-validating it
// against every previous-tick position; a conflicting move is cancelled
// and the speed zeroed instead.
func (e *Engine) integrate(v *models.Vehicle, prev []models.Vehicle, dt float64) {
	if v.Speed <= 0 {
		return
	}

	if v.Turning && e.turnBlocked(v, prev) {
		v.Speed = 0
		return
	}

	next := e.advancePoint(v, v.Speed*dt)
	for i := range prev {
		o := &prev[i]
		if o.ID == v.ID || o.Parked {
			continue
		}
		if Dist(o.Pos, next) < e.cfg.HardRadius {
			v.Speed = 0
			return
		}
	}
	v.Pos = next
}

// handleBoundary respawns a vehicle leaving the world at the opposite
// boundary once the entry area is clear. A blocked boundary is waited
// out for a bounded number of ticks; false means the wait expired.
func (e *Engine) handleBoundary(v *models.Vehicle, prev []models.Vehicle) bool {
	if !e.geo.OutOfBounds(v.Pos) {
		return true
	}

	spawn := e.geo.SpawnPoint(v.Heading, v.Lane)
	clear := true
	for i := range prev {
		o := &prev[i]
		if o.ID == v.ID {
			continue
		}
		if Dist(o.Pos, spawn) < e.cfg.BoundaryClearance {
			clear = false
			break
		}
	}

	if clear {
		v.Pos = spawn
		v.BoundaryWait = 0
		v.Intent = e.randomIntent()
		if lane, ok := e.geo.TurnLane(v.Intent); ok {
			v.Lane = lane
			v.TargetLane = lane
			v.Pos = e.geo.SpawnPoint(v.Heading, lane)
		}
		v.IntersectionWait = 0
		v.Priority = 0
		return true
	}

	v.Pos = e.clampToWorld(v.Pos)
	v.Speed = 0
	v.BoundaryWait++
	return v.BoundaryWait <= e.cfg.MaxBoundaryWait
}

func (e *Engine) clampToWorld(p orb.Point) orb.Point {
	p[0] = math.Max(0, math.Min(e.geo.World, p[0]))
	p[1] = math.Max(0, math.Min(e.geo.World, p[1]))
	return p
}
