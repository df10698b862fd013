package sim

import (
	"github.com/paulmach/orb"
	log "github.com/sirupsen/logrus"

	"github.com/yessjun/stay-sub000/models"
)

// maybeStartParking rolls the rate trigger and, on success, asks the
// curb orchestrator for a slot ahead. No slot found means no parking
// this tick.
func (e *Engine) maybeStartParking(v *models.Vehicle, dt float64) {
	if v.Turning || v.WaitingForSignal || v.ChangingLane || e.geo.InFootprint(v.Pos) {
		return
	}
	if e.rng.Float64() >= e.cfg.ParkRate*dt {
		return
	}

	slot := e.curb.RequestSlotAhead(v.ID, v.Pos, v.Heading)
	if slot == nil {
		return
	}

	v.TargetSlot = slot.ID
	v.ParkingTransition = true
	log.Debugf("vehicle %s heading to slot %s", v.ID, slot.ID)
}

// advanceParking glides a vehicle toward its slot: longitudinal travel
// at reduced speed until level with the slot, then the lateral pull-in.
// Every tentative move passes the same hard-radius re-validation as
// integrate; the transition aborts safely if the slot disappears.
func (e *Engine) advanceParking(v *models.Vehicle, prev []models.Vehicle, dt float64) {
	slot := e.curb.SlotByID(v.TargetSlot)
	if slot == nil || slot.VehicleID != v.ID {
		e.abortParking(v)
		return
	}

	if Dist(v.Pos, slot.Pos) <= e.cfg.ParkTolerance {
		v.Pos = slot.Pos
		v.Speed = 0
		v.Parked = true
		v.ParkingTransition = false
		return
	}

	ahead := e.geo.DistAhead(v.Heading, v.Pos, slot.Pos)
	step := e.cfg.ParkingApproachSpd * dt

	var next orb.Point
	switch {
	case ahead > e.cfg.ParkTolerance:
		if ahead < step {
			step = ahead
		}
		next = e.advancePoint(v, step)
	case ahead < -e.cfg.ParkTolerance:
		// Overshot the slot; give it back and rejoin traffic.
		e.abortParking(v)
		return
	default:
		// Level with the slot: pull in laterally.
		target := e.geo.Lateral(v.Heading, slot.Pos)
		cur := e.geo.Lateral(v.Heading, v.Pos)
		if abs(target-cur) <= step {
			cur = target
		} else if target > cur {
			cur += step
		} else {
			cur -= step
		}
		next = e.geo.SetLateral(v.Heading, v.Pos, cur)
	}

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
	v.Speed = e.cfg.ParkingApproachSpd
	v.Pos = next
}

func (e *Engine) abortParking(v *models.Vehicle) {
	if v.TargetSlot != "" {
		e.curb.ReleaseSlot(v.TargetSlot)
	}
	v.TargetSlot = ""
	v.ParkingTransition = false
	v.Parked = false
	v.Speed = e.cfg.ResumeSpeed
	v.Pos = e.geo.SetLateral(v.Heading, v.Pos, e.geo.LaneCenter(v.Heading, 0))
	v.Lane = 0
	v.TargetLane = 0
}

func (e *Engine) maybeUnpark(v *models.Vehicle, prev []models.Vehicle, dt float64) {
	if e.rng.Float64() >= e.cfg.UnparkRate*dt {
		return
	}
	e.unpark(v, prev)
}

// unpark rejoins the curb lane at a nominal speed, but only when the
// lane is clear alongside.
func (e *Engine) unpark(v *models.Vehicle, prev []models.Vehicle) {
	rejoin := e.geo.SetLateral(v.Heading, v.Pos, e.geo.LaneCenter(v.Heading, 0))
	for i := range prev {
		o := &prev[i]
		if o.ID == v.ID || o.Parked {
			continue
		}
		if Dist(o.Pos, rejoin) < e.cfg.LaneClearance {
			return
		}
	}

	if v.TargetSlot != "" {
		e.curb.ReleaseSlot(v.TargetSlot)
	}
	v.TargetSlot = ""
	v.Parked = false
	v.ParkingTransition = false
	v.Pos = rejoin
	v.Lane = 0
	v.TargetLane = 0
	v.Speed = e.cfg.ResumeSpeed
	log.Debugf("vehicle %s unparked", v.ID)
}

// ForceUnpark is the curb orchestrator's eviction hook: the vehicle is
// returned to moving state immediately, clearance or not. The slot side
// is already cleared by the caller.
func (e *Engine) ForceUnpark(vehicleID string) {
	v, ok := e.vehicles[vehicleID]
	if !ok {
		return
	}
	v.TargetSlot = ""
	v.Parked = false
	v.ParkingTransition = false
	v.Pos = e.geo.SetLateral(v.Heading, v.Pos, e.geo.LaneCenter(v.Heading, 0))
	v.Lane = 0
	v.TargetLane = 0
	v.Speed = e.cfg.ResumeSpeed
	log.Printf("vehicle %s force released back to traffic", vehicleID)
}

// Unpark triggers the unpark path for a specific vehicle. Used by the
// command surface and tests.
func (e *Engine) Unpark(vehicleID string) {
	v, ok := e.vehicles[vehicleID]
	if !ok || !v.Parked {
		return
	}
	e.unpark(v, e.List())
}
