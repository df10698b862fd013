package sim

import (
	"github.com/yessjun/stay-sub000/models"
)

// advanceTurn runs the staged turn state machine. Stage 0 continues
// straight until the pivot (the target lane centerline on the new
// heading) is crossed; stage 1 holds the new heading until the vehicle
// clears the footprint and its intent resets to straight.
func (e *Engine) advanceTurn(v *models.Vehicle) {
	if v.Intent == models.TurnStraight {
		return
	}

	if !v.Turning {
		if e.geo.InFootprint(v.Pos) {
			v.Turning = true
			v.TurnStage = 0
		}
		return
	}

	switch v.TurnStage {
	case 0:
		to, lane, pivotLat := e.geo.TurnPivotLat(v.Heading, v.Intent)
		if e.longitudinal(v.Heading, v.Pos)*e.travelSign(v.Heading) >= pivotLat*e.travelSign(v.Heading) {
			// Rotate: the old longitudinal coordinate becomes the new
			// lateral one and is snapped onto the target centerline.
			v.Pos = e.geo.SetLateral(to, v.Pos, pivotLat)
			v.Heading = to
			v.Lane = lane
			v.TargetLane = lane
			v.TurnStage = 1
		}
	case 1:
		if !e.geo.InFootprint(v.Pos) {
			v.Pos = e.geo.SetLateral(v.Heading, v.Pos, e.geo.LaneCenter(v.Heading, v.Lane))
			v.Turning = false
			v.TurnStage = 0
			v.Intent = models.TurnStraight
		}
	}
}

func (e *Engine) longitudinal(d models.Direction, p [2]float64) float64 {
	if d.Vertical() {
		return p[1]
	}
	return p[0]
}

func (e *Engine) travelSign(d models.Direction) float64 {
	switch d {
	case models.South, models.East:
		return 1
	default:
		return -1
	}
}

// turnBlocked applies a wider exclusion radius against any other
// vehicle inside the footprint, independent of the forward-gap scan.
func (e *Engine) turnBlocked(v *models.Vehicle, prev []models.Vehicle) bool {
	for i := range prev {
		o := &prev[i]
		if o.ID == v.ID || o.Parked {
			continue
		}
		if !e.geo.InFootprint(o.Pos) {
			continue
		}
		if o.Heading == v.Heading {
			continue
		}
		if Dist(o.Pos, v.Pos) < e.cfg.TurnExclusionRadius {
			return true
		}
	}
	return false
}
