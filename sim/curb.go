package sim

import (
	"fmt"
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"

	"github.com/yessjun/stay-sub000/models"
)

// curbZone is a stretch of curb eligible for managed slots, addressed
// by travel direction and a longitudinal progress range.
type curbZone struct {
	ID             string
	Direction      models.Direction
	SStart         float64
	SEnd           float64
	Priority       int
	RiskBias       float64
	SchoolZone     bool
	EmergencyRoute bool
}

// Curb is the only component that creates or destroys parking slots;
// vehicles hold slot ids, never the slots themselves.
type Curb struct {
	cfg      Config
	geo      Geometry
	slots    map[string]*models.ParkingSlot
	zones    []curbZone
	nextSlot int

	lastRebalance  float64
	now            float64
	lastCongestion float64

	emergencyActive bool
	emergencyCenter orb.Point
	emergencyRadius float64
	emergencyUntil  float64

	zoneProtection bool

	// onForceRelease returns a bound vehicle to moving state. Wired by
	// the clock; nil in isolation.
	onForceRelease func(vehicleID string)

	laneOccupancy func(dir models.Direction) int
}

func NewCurb(cfg Config, geo Geometry) *Curb {
	c := &Curb{
		cfg:           cfg,
		geo:           geo,
		slots:         make(map[string]*models.ParkingSlot),
		lastRebalance: -cfg.RebalanceInterval,
	}
	for _, d := range models.Directions {
		c.zones = append(c.zones, curbZone{
			ID:        "curb_" + string(d) + "_in",
			Direction: d,
			SStart:    80,
			SEnd:      320,
			Priority:  1,
		}, curbZone{
			ID:        "curb_" + string(d) + "_out",
			Direction: d,
			SStart:    480,
			SEnd:      720,
			Priority:  2,
		})
	}
	// Static zone designations: the north approach fronts a school,
	// the east exit doubles as an emergency corridor.
	for i := range c.zones {
		switch c.zones[i].ID {
		case "curb_north_in":
			c.zones[i].SchoolZone = true
			c.zones[i].RiskBias = 0.1
		case "curb_east_out":
			c.zones[i].EmergencyRoute = true
			c.zones[i].RiskBias = 0.2
		}
	}
	return c
}

func (c *Curb) SetReleaseHook(fn func(vehicleID string)) { c.onForceRelease = fn }
func (c *Curb) SetOccupancyProbe(fn func(dir models.Direction) int) {
	c.laneOccupancy = fn
}

// TargetFor maps a congestion value onto the managed slot target.
func (c *Curb) TargetFor(congestion float64) int {
	switch {
	case congestion > c.cfg.BandHigh:
		return 0
	case congestion > c.cfg.BandMid:
		return c.cfg.MidTarget
	case congestion > c.cfg.BandLow:
		return c.cfg.LowTarget
	default:
		return c.cfg.BaseTarget
	}
}

// UpdateSlots is the periodic rebalance. It is called every tick but
// rate-limits itself; now is simulated seconds.
func (c *Curb) UpdateSlots(congestion float64, now float64) []models.ParkingSlot {
	c.now = now
	c.lastCongestion = congestion

	if c.emergencyActive && now >= c.emergencyUntil {
		c.DeactivateEmergency()
	}

	if now-c.lastRebalance < c.cfg.RebalanceInterval {
		return c.SlotList()
	}
	c.lastRebalance = now

	target := c.TargetFor(congestion)
	if target > c.cfg.SlotCeiling {
		target = c.cfg.SlotCeiling
	}

	if len(c.slots) < target {
		c.addSlots(target - len(c.slots))
	} else if len(c.slots) > target {
		c.removeSlots(len(c.slots) - target)
	}

	return c.SlotList()
}

func (c *Curb) addSlots(n int) {
	zones := make([]curbZone, len(c.zones))
	copy(zones, c.zones)
	sort.SliceStable(zones, func(i, j int) bool {
		oi, oj := c.zoneOccupancy(zones[i]), c.zoneOccupancy(zones[j])
		if oi != oj {
			return oi < oj
		}
		return zones[i].Priority > zones[j].Priority
	})

	added := 0
	for _, z := range zones {
		if added >= n {
			break
		}
		if c.emergencyActive && c.zoneInEmergency(z) {
			continue
		}
		for s := z.SStart; s <= z.SEnd && added < n; s += c.cfg.SlotSpacing {
			p := c.geo.CurbPoint(z.Direction, s, c.cfg.CurbOffset)
			if !c.positionClear(p) {
				continue
			}
			c.nextSlot++
			slot := &models.ParkingSlot{
				ID:          fmt.Sprintf("slot_%s_%03d", z.ID, c.nextSlot),
				Pos:         p,
				Orientation: z.Direction,
				ZoneID:      z.ID,
				Capacity:    c.cfg.SlotCapacity,
				Priority:    z.Priority,
				RiskScore:   c.riskScore(p, z),
				AutoManaged: true,
			}
			c.slots[slot.ID] = slot
			added++
		}
	}
	if added > 0 {
		log.Debugf("curb: added %d slots, now managing %d", added, len(c.slots))
	}
}

// removeSlots retires unoccupied slots only, lowest priority first.
func (c *Curb) removeSlots(n int) {
	free := make([]*models.ParkingSlot, 0, len(c.slots))
	for _, s := range c.slots {
		if s.Occupied == 0 && s.VehicleID == "" {
			free = append(free, s)
		}
	}
	sort.Slice(free, func(i, j int) bool {
		if free[i].Priority != free[j].Priority {
			return free[i].Priority < free[j].Priority
		}
		return free[i].ID < free[j].ID
	})

	removed := 0
	for _, s := range free {
		if removed >= n {
			break
		}
		delete(c.slots, s.ID)
		removed++
	}
	if removed > 0 {
		log.Debugf("curb: removed %d slots, now managing %d", removed, len(c.slots))
	}
}

func (c *Curb) zoneOccupancy(z curbZone) int {
	if c.laneOccupancy == nil {
		return 0
	}
	return c.laneOccupancy(z.Direction)
}

// zoneInEmergency reports whether any part of the zone's curb stretch
// lies inside the active emergency area.
func (c *Curb) zoneInEmergency(z curbZone) bool {
	if c.emergencyRadius <= 0 {
		return true
	}
	a := c.geo.CurbPoint(z.Direction, z.SStart, c.cfg.CurbOffset)
	b := c.geo.CurbPoint(z.Direction, z.SEnd, c.cfg.CurbOffset)
	return planar.DistanceFrom(orb.LineString{a, b}, c.emergencyCenter) <= c.emergencyRadius
}

func (c *Curb) positionClear(p orb.Point) bool {
	for _, s := range c.slots {
		if Dist(s.Pos, p) < c.cfg.SlotClearance {
			return false
		}
	}
	return true
}

// riskScore estimates hazard from intersection proximity plus the
// zone's static bias.
func (c *Curb) riskScore(p orb.Point, z curbZone) float64 {
	proximity := 1 - Dist(p, c.geo.Center)/(c.geo.World/2)
	if proximity < 0 {
		proximity = 0
	}
	return 0.7*proximity + z.RiskBias
}

// RequestSlotAhead finds the nearest unoccupied, assignable slot
// strictly ahead of pos along dir, binds it to vehicleID and returns a
// copy. Nil when nothing qualifies; callers treat that as normal.
func (c *Curb) RequestSlotAhead(vehicleID string, pos orb.Point, dir models.Direction) *models.ParkingSlot {
	var best *models.ParkingSlot
	bestDist := c.cfg.ParkingSearchRadius + 1

	for _, s := range c.slots {
		if s.Orientation != dir || s.Occupied >= s.Capacity || s.VehicleID != "" {
			continue
		}
		if !c.assignable(s) {
			continue
		}
		d := c.geo.DistAhead(dir, pos, s.Pos)
		if d <= 0 || d > c.cfg.ParkingSearchRadius {
			continue
		}
		if d < bestDist {
			bestDist = d
			best = s
		}
	}

	if best == nil {
		return nil
	}
	best.Occupied++
	best.VehicleID = vehicleID
	out := *best
	return &out
}

func (c *Curb) assignable(s *models.ParkingSlot) bool {
	if !s.AutoManaged {
		return false
	}
	z, ok := c.zoneByID(s.ZoneID)
	if !ok {
		return false
	}
	if z.EmergencyRoute {
		return false
	}
	if c.emergencyActive && c.inEmergencyRange(s.Pos) {
		return false
	}
	if c.zoneProtection && z.SchoolZone && c.schoolWindowActive() {
		return false
	}
	if s.RiskScore > c.cfg.RiskThreshold && c.lastCongestion >= c.cfg.RiskCongestionCap {
		return false
	}
	return true
}

// schoolWindowActive maps simulated time onto a 24h day: morning
// drop-off and afternoon pick-up.
func (c *Curb) schoolWindowActive() bool {
	day := math.Mod(c.now, 86400)
	h := day / 3600
	return (h >= 7 && h < 9) || (h >= 14 && h < 16)
}

func (c *Curb) ReleaseSlot(id string) {
	s, ok := c.slots[id]
	if !ok {
		return
	}
	s.VehicleID = ""
	if s.Occupied > 0 {
		s.Occupied--
	}
}

// ForceReleaseSlot evicts any bound vehicle back to moving state and
// frees the slot regardless of auto-management.
func (c *Curb) ForceReleaseSlot(id string) {
	s, ok := c.slots[id]
	if !ok {
		return
	}
	if s.VehicleID != "" && c.onForceRelease != nil {
		c.onForceRelease(s.VehicleID)
	}
	s.VehicleID = ""
	s.Occupied = 0
	log.Printf("curb: force released slot %s", id)
}

// ActivateEmergency force-clears every managed slot within radius of
// center (radius <= 0 means the whole world) and suspends assignment
// there until the configured timeout elapses.
func (c *Curb) ActivateEmergency(center orb.Point, radius float64, now float64) {
	c.emergencyActive = true
	c.emergencyCenter = center
	c.emergencyRadius = radius
	c.emergencyUntil = now + c.cfg.EmergencyDuration

	cleared := 0
	for _, s := range c.slots {
		if !c.inEmergencyRange(s.Pos) {
			continue
		}
		if s.VehicleID != "" {
			if c.onForceRelease != nil {
				c.onForceRelease(s.VehicleID)
			}
			cleared++
		}
		s.VehicleID = ""
		s.Occupied = 0
		s.AutoManaged = false
	}
	log.Printf("curb: emergency active, cleared %d occupied slots", cleared)
}

func (c *Curb) DeactivateEmergency() {
	if !c.emergencyActive {
		return
	}
	for _, s := range c.slots {
		if c.inEmergencyRange(s.Pos) {
			s.AutoManaged = true
		}
	}
	c.emergencyActive = false
	log.Printf("curb: emergency cleared")
}

func (c *Curb) inEmergencyRange(p orb.Point) bool {
	if c.emergencyRadius <= 0 {
		return true
	}
	return Dist(p, c.emergencyCenter) <= c.emergencyRadius
}

func (c *Curb) SetZoneProtection(enabled bool) { c.zoneProtection = enabled }

func (c *Curb) zoneByID(id string) (curbZone, bool) {
	for _, z := range c.zones {
		if z.ID == id {
			return z, true
		}
	}
	return curbZone{}, false
}

// SlotByID returns a copy of the slot, or nil if it no longer exists.
func (c *Curb) SlotByID(id string) *models.ParkingSlot {
	s, ok := c.slots[id]
	if !ok {
		return nil
	}
	out := *s
	return &out
}

// SlotList returns value copies of every managed slot, ordered by id.
func (c *Curb) SlotList() []models.ParkingSlot {
	out := lo.Map(lo.Values(c.slots), func(s *models.ParkingSlot, _ int) models.ParkingSlot {
		return *s
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Utilization is the occupied fraction of managed capacity, 0-100.
func (c *Curb) Utilization() float64 {
	total, used := 0, 0
	for _, s := range c.slots {
		total += s.Capacity
		used += s.Occupied
	}
	if total == 0 {
		return 0
	}
	return float64(used) / float64(total) * 100
}
