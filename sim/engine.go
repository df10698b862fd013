package sim

import (
	"math/rand"
	"sort"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"

	"github.com/yessjun/stay-sub000/models"
)

// Engine owns the vehicle registry and advances every vehicle once per
// tick. Proximity queries read the previous tick's committed positions;
// updates land in a working set that is committed atomically at the end
// of the pass.
type Engine struct {
	cfg     Config
	geo     Geometry
	rng     *rand.Rand
	signals *SignalController
	curb    *Curb

	vehicles map[string]*models.Vehicle
}

func NewEngine(cfg Config, geo Geometry, rng *rand.Rand, signals *SignalController, curb *Curb) *Engine {
	e := &Engine{
		cfg:      cfg,
		geo:      geo,
		rng:      rng,
		signals:  signals,
		curb:     curb,
		vehicles: make(map[string]*models.Vehicle),
	}
	e.seedVehicles()
	return e
}

func (e *Engine) seedVehicles() {
	for i := 0; i < e.cfg.InitialVehicles; i++ {
		d := models.Directions[e.rng.Intn(len(models.Directions))]
		intent := e.randomIntent()
		lane := e.laneForIntent(intent)
		s := 40 + e.rng.Float64()*240
		v := e.newVehicle(d, lane, intent)
		v.Pos = e.geo.PointAt(d, lane, s)
		v.Speed = e.rng.Float64() * e.cfg.MaxSpeed
		if !e.areaClear(v.Pos, e.cfg.BoundaryClearance, "") {
			continue
		}
		e.vehicles[v.ID] = v
	}
}

// Vehicle ids come from the injected rng so seeded runs replay
// identically.
func (e *Engine) newVehicle(d models.Direction, lane int, intent models.TurnIntent) *models.Vehicle {
	return &models.Vehicle{
		ID:         uuid.Must(uuid.NewRandomFromReader(e.rng)).String(),
		Pos:        e.geo.SpawnPoint(d, lane),
		MaxSpeed:   e.cfg.MaxSpeed,
		Heading:    d,
		Lane:       lane,
		TargetLane: lane,
		Intent:     intent,
	}
}

func (e *Engine) randomIntent() models.TurnIntent {
	switch r := e.rng.Float64(); {
	case r < 0.2:
		return models.TurnLeft
	case r < 0.4:
		return models.TurnRight
	default:
		return models.TurnStraight
	}
}

func (e *Engine) laneForIntent(intent models.TurnIntent) int {
	if lane, ok := e.geo.TurnLane(intent); ok {
		return lane
	}
	return e.rng.Intn(e.cfg.NumLanes)
}

// Step advances every vehicle by dt simulated seconds.
func (e *Engine) Step(dt float64) {
	if dt <= 0 {
		return
	}
	prev := e.List()

	working := make(map[string]*models.Vehicle, len(e.vehicles))
	for id, v := range e.vehicles {
		cp := *v
		working[id] = &cp
	}

	ids := lo.Keys(working)
	sort.Strings(ids)

	for _, id := range ids {
		v := working[id]
		var keep bool
		switch {
		case v.Parked:
			keep = true
			e.maybeUnpark(v, prev, dt)
		case v.ParkingTransition:
			keep = true
			e.advanceParking(v, prev, dt)
		default:
			keep = e.updateMoving(v, prev, dt)
		}
		if !keep {
			delete(working, id)
			log.Debugf("vehicle %s removed after bounded boundary wait", id)
		}
	}

	e.vehicles = working
}

// updateMoving runs the per-tick pipeline for a driving vehicle. False
// only when the bounded boundary wait expires.
func (e *Engine) updateMoving(v *models.Vehicle, prev []models.Vehicle, dt float64) bool {
	e.updateSignalWait(v, prev)

	lead, gap := e.findLead(v, prev)
	e.applyAcceleration(v, lead, gap, prev, dt)

	e.maybeChangeLane(v, prev, lead, gap)
	e.applyLateralGlide(v, dt)

	e.integrate(v, prev, dt)
	e.advanceTurn(v)
	e.resolveDeadlock(v, prev, dt)

	if !e.handleBoundary(v, prev) {
		return false
	}

	e.maybeStartParking(v, dt)
	return true
}

// Spawn gives each approach an independent rate-triggered chance to
// emit a vehicle when the entry area is clear.
func (e *Engine) Spawn(dt float64) {
	for _, d := range models.Directions {
		if len(e.vehicles) >= e.cfg.MaxVehicles {
			return
		}
		if e.rng.Float64() >= e.cfg.SpawnRate*dt {
			continue
		}
		intent := e.randomIntent()
		lane := e.laneForIntent(intent)
		v := e.newVehicle(d, lane, intent)
		if !e.areaClear(v.Pos, e.cfg.BoundaryClearance, "") {
			continue
		}
		v.Speed = e.cfg.MaxSpeed * 0.5
		e.vehicles[v.ID] = v
	}
}

func (e *Engine) areaClear(p orb.Point, radius float64, exclude string) bool {
	for _, o := range e.vehicles {
		if o.ID == exclude {
			continue
		}
		if Dist(o.Pos, p) < radius {
			return false
		}
	}
	return true
}

// LaneOccupancy counts active vehicles in the curb lane heading d.
func (e *Engine) LaneOccupancy(d models.Direction) int {
	n := 0
	for _, v := range e.vehicles {
		if v.Heading == d && v.Lane == 0 && !v.Parked {
			n++
		}
	}
	return n
}

// List returns value copies of every vehicle ordered by id: the
// committed snapshot the pipeline and outside consumers read.
func (e *Engine) List() []models.Vehicle {
	out := lo.Map(lo.Values(e.vehicles), func(v *models.Vehicle, _ int) models.Vehicle {
		return *v
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (e *Engine) Count() int { return len(e.vehicles) }

func (e *Engine) CountParked() int {
	n := 0
	for _, v := range e.vehicles {
		if v.Parked {
			n++
		}
	}
	return n
}

func (e *Engine) CountWaiting() int {
	n := 0
	for _, v := range e.vehicles {
		if v.WaitingForSignal {
			n++
		}
	}
	return n
}

func (e *Engine) CountInIntersection() int {
	n := 0
	for _, v := range e.vehicles {
		if !v.Parked && e.geo.InFootprint(v.Pos) {
			n++
		}
	}
	return n
}

// AddVehicle registers a prepared vehicle, for tests and synthetic
// scenarios.
func (e *Engine) AddVehicle(v *models.Vehicle) {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if v.MaxSpeed == 0 {
		v.MaxSpeed = e.cfg.MaxSpeed
	}
	cp := *v
	e.vehicles[cp.ID] = &cp
}

func (e *Engine) Vehicle(id string) *models.Vehicle {
	v, ok := e.vehicles[id]
	if !ok {
		return nil
	}
	cp := *v
	return &cp
}
