package sim

import (
	"math"

	"github.com/yessjun/stay-sub000/models"
)

// maybeChangeLane triggers a lane change around a parked or mid-parking
// lead, or toward the lane the vehicle's turn intent requires. The move
// itself glides over several ticks.
func (e *Engine) maybeChangeLane(v *models.Vehicle, prev []models.Vehicle, lead *models.Vehicle, gap float64) {
	if v.ChangingLane || v.Turning || v.Parked || v.ParkingTransition {
		return
	}

	var want int
	switch {
	case lead != nil && (lead.Parked || lead.ParkingTransition) && gap < e.cfg.LaneChangeTrigger:
		want = e.otherLane(v.Lane)
	case e.needsTurnLane(v):
		want, _ = e.geo.TurnLane(v.Intent)
	default:
		return
	}

	if want == v.Lane || want < 0 || want >= e.cfg.NumLanes {
		return
	}
	if !e.laneClear(v, want, prev) {
		return
	}

	v.TargetLane = want
	v.ChangingLane = true
}

func (e *Engine) otherLane(lane int) int {
	if lane == 0 {
		return 1
	}
	return 0
}

func (e *Engine) needsTurnLane(v *models.Vehicle) bool {
	want, ok := e.geo.TurnLane(v.Intent)
	if !ok || want == v.Lane {
		return false
	}
	d := e.geo.StopLineDist(v.Heading, v.Pos)
	return d > 0 && d < e.cfg.ApproachZone*1.5
}

func (e *Engine) laneClear(v *models.Vehicle, lane int, prev []models.Vehicle) bool {
	center := e.geo.LaneCenter(v.Heading, lane)
	for i := range prev {
		o := &prev[i]
		if o.ID == v.ID || o.Heading != v.Heading {
			continue
		}
		if abs(e.geo.Lateral(v.Heading, o.Pos)-center) > e.geo.LaneWidth/2 {
			continue
		}
		if abs(e.geo.DistAhead(v.Heading, v.Pos, o.Pos)) < e.cfg.LaneClearance {
			return false
		}
	}
	return true
}

func (e *Engine) applyLateralGlide(v *models.Vehicle, dt float64) {
	if !v.ChangingLane {
		return
	}

	target := e.geo.LaneCenter(v.Heading, v.TargetLane)
	cur := e.geo.Lateral(v.Heading, v.Pos)
	step := e.cfg.LaneChangeRate * dt

	if math.Abs(target-cur) <= math.Max(step, 0.5) {
		v.Pos = e.geo.SetLateral(v.Heading, v.Pos, target)
		v.Lane = v.TargetLane
		v.ChangingLane = false
		return
	}

	if target > cur {
		cur += step
	} else {
		cur -= step
	}
	v.Pos = e.geo.SetLateral(v.Heading, v.Pos, cur)
}
