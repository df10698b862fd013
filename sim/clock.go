package sim

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/yessjun/stay-sub000/models"
)

// Snapshot is the read-only view handed to outside consumers.
type Snapshot struct {
	Vehicles []models.Vehicle     `json:"vehicles"`
	Signals  []models.Signal      `json:"signals"`
	Slots    []models.ParkingSlot `json:"slots"`
	Metrics  models.Metrics       `json:"metrics"`
}

// Clock is the tick driver. It owns every component and all simulation
// state; external mutations queue as commands and take effect at the
// next tick boundary.
type Clock struct {
	mu sync.Mutex

	cfg     Config
	geo     Geometry
	signals *SignalController
	engine  *Engine
	curb    *Curb

	running     bool
	speedFactor float64
	simSeconds  float64
	tickCount   int64
	congestion  models.CongestionSnapshot

	cmdMu   sync.Mutex
	pending []func()
}

func NewClock(cfg Config) *Clock {
	geo := NewGeometry(cfg)
	rng := rand.New(rand.NewSource(cfg.Seed))
	signals := NewSignalController(cfg)
	curb := NewCurb(cfg, geo)
	engine := NewEngine(cfg, geo, rng, signals, curb)

	curb.SetReleaseHook(engine.ForceUnpark)
	curb.SetOccupancyProbe(engine.LaneOccupancy)

	return &Clock{
		cfg:         cfg,
		geo:         geo,
		signals:     signals,
		engine:      engine,
		curb:        curb,
		running:     true,
		speedFactor: 1,
	}
}

// Tick advances the simulation by deltaSeconds scaled by the speed
// factor. Component order is fixed.
func (c *Clock) Tick(deltaSeconds float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.applyPending()
	if !c.running || deltaSeconds <= 0 {
		return
	}

	scaled := deltaSeconds * c.speedFactor
	c.tickCount++
	c.simSeconds += scaled

	c.signals.Update(scaled)
	c.engine.Step(scaled)
	c.engine.Spawn(scaled)

	c.congestion = c.computeCongestion()
	c.curb.UpdateSlots(c.congestion.Value, c.simSeconds)

	publishMetrics(c.snapshotLocked())
}

func (c *Clock) Run(ctx context.Context) error {
	interval := time.Duration(c.cfg.TickInterval * float64(time.Second))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("simulation loop running, tick interval %s", interval)
	for {
		select {
		case <-ctx.Done():
			log.Printf("simulation loop stopped")
			return ctx.Err()
		case <-ticker.C:
			c.Tick(c.cfg.TickInterval)
		}
	}
}

func (c *Clock) computeCongestion() models.CongestionSnapshot {
	active := c.engine.Count() - c.engine.CountParked()
	inInter := c.engine.CountInIntersection()

	load := float64(active) / float64(c.cfg.MaxVehicles) * 70
	occ := float64(inInter) / 8 * 30
	value := math.Min(100, load+occ)

	return models.CongestionSnapshot{
		Value:          value,
		ActiveVehicles: active,
		InIntersection: inInter,
		SimSeconds:     c.simSeconds,
	}
}

func (c *Clock) applyPending() {
	c.cmdMu.Lock()
	cmds := c.pending
	c.pending = nil
	c.cmdMu.Unlock()

	for _, cmd := range cmds {
		cmd()
	}
}

func (c *Clock) enqueue(cmd func()) {
	c.cmdMu.Lock()
	c.pending = append(c.pending, cmd)
	c.cmdMu.Unlock()
}

func (c *Clock) SetSpeed(factor float64) {
	if factor <= 0 {
		factor = 1
	}
	if factor > 10 {
		factor = 10
	}
	c.enqueue(func() {
		c.speedFactor = factor
		log.Printf("speed factor set to %.1f", factor)
	})
}

// Tick still drains commands while paused.
func (c *Clock) SetRunning(running bool) {
	c.enqueue(func() {
		c.running = running
		log.Printf("simulation running=%v", running)
	})
}

// TriggerEmergency forces all signals red and clears every managed
// slot.
func (c *Clock) TriggerEmergency() {
	c.enqueue(func() {
		c.signals.ForceAllRed()
		c.curb.ActivateEmergency(c.geo.Center, 0, c.simSeconds)
		log.Printf("emergency protocol activated")
	})
}

func (c *Clock) ClearEmergency() {
	c.enqueue(func() {
		c.signals.Reset()
		c.curb.DeactivateEmergency()
		log.Printf("emergency protocol cleared")
	})
}

func (c *Clock) SetZoneProtection(enabled bool) {
	c.enqueue(func() {
		c.curb.SetZoneProtection(enabled)
		log.Printf("zone protection enabled=%v", enabled)
	})
}

func (c *Clock) ForceReleaseSlot(id string) {
	c.enqueue(func() {
		c.curb.ForceReleaseSlot(id)
	})
}

func (c *Clock) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Clock) snapshotLocked() Snapshot {
	slots := c.curb.SlotList()
	m := models.Metrics{
		TickCount:       c.tickCount,
		SimSeconds:      c.simSeconds,
		SpeedFactor:     c.speedFactor,
		Running:         c.running,
		ActiveVehicles:  c.engine.Count() - c.engine.CountParked(),
		ParkedVehicles:  c.engine.CountParked(),
		WaitingVehicles: c.engine.CountWaiting(),
		Congestion:      c.congestion.Value,
		SlotCount:       len(slots),
		SlotUtilization: c.curb.Utilization(),
	}
	return Snapshot{
		Vehicles: c.engine.List(),
		Signals:  c.signals.Signals(),
		Slots:    slots,
		Metrics:  m,
	}
}

func (c *Clock) Vehicles() []models.Vehicle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine.List()
}

func (c *Clock) Signals() []models.Signal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.signals.Signals()
}

func (c *Clock) Slots() []models.ParkingSlot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.curb.SlotList()
}

func (c *Clock) Metrics() models.Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked().Metrics
}

func (c *Clock) Congestion() models.CongestionSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.congestion
}

// Engine and Curb expose the owned components for tests and synthetic
// scenarios; production callers go through commands and snapshots.
func (c *Clock) Engine() *Engine { return c.engine }
func (c *Clock) Curb() *Curb     { return c.curb }
