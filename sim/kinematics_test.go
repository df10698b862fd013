package sim

import (
	"fmt"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yessjun/stay-sub000/models"
)

// quietConfig disables random triggers so scenarios stay synthetic.
func quietConfig() Config {
	cfg := DefaultConfig()
	cfg.InitialVehicles = 0
	cfg.SpawnRate = 0
	cfg.ParkRate = 0
	cfg.UnparkRate = 0
	return cfg
}

func TestSpeedAndSeparationInvariants(t *testing.T) {
	for seed := int64(1); seed <= 3; seed++ {
		seed := seed
		t.Run(fmt.Sprintf("seed_%d", seed), func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Seed = seed
			clock := NewClock(cfg)
			geo := NewGeometry(cfg)

			for tick := 0; tick < 400; tick++ {
				clock.Tick(cfg.TickInterval)
				if tick%10 != 0 {
					continue
				}

				vehicles := clock.Vehicles()
				for _, v := range vehicles {
					assert.GreaterOrEqual(t, v.Speed, 0.0, "tick %d vehicle %s", tick, v.ID)
					assert.LessOrEqual(t, v.Speed, v.MaxSpeed+1e-9, "tick %d vehicle %s", tick, v.ID)
				}

				// Pairwise separation among non-parked vehicles,
				// transitions included. The footprint is excluded:
				// deadlock escalation may trade spacing for liveness
				// there. Both parties of a pair validate against the
				// same committed snapshot, so one tick of closing
				// travel on each side is tolerated.
				minSep := cfg.HardRadius - 2*cfg.MaxSpeed*cfg.TickInterval
				for i := 0; i < len(vehicles); i++ {
					for j := i + 1; j < len(vehicles); j++ {
						a, b := vehicles[i], vehicles[j]
						if a.Parked || b.Parked {
							continue
						}
						if geo.InFootprint(a.Pos) || geo.InFootprint(b.Pos) {
							continue
						}
						assert.GreaterOrEqual(t, Dist(a.Pos, b.Pos), minSep,
							"tick %d vehicles %s and %s", tick, a.ID, b.ID)
					}
				}

				slots := clock.Slots()
				assert.LessOrEqual(t, len(slots), cfg.SlotCeiling)
				for _, s := range slots {
					assert.LessOrEqual(t, s.Occupied, s.Capacity)
				}
			}
		})
	}
}

func TestStopLineHoldsOnRed(t *testing.T) {
	cfg := quietConfig()
	clock := NewClock(cfg)
	geo := NewGeometry(cfg)

	// 8-phase cycle opens with N/S protected left, so an eastbound
	// through vehicle faces red.
	v := &models.Vehicle{
		ID:       "east-1",
		Pos:      geo.PointAt(models.East, 0, 300),
		Heading:  models.East,
		Lane:     0,
		Intent:   models.TurnStraight,
		Speed:    cfg.MaxSpeed,
		MaxSpeed: cfg.MaxSpeed,
	}
	clock.Engine().AddVehicle(v)

	for i := 0; i < 100; i++ {
		clock.Tick(cfg.TickInterval)
	}

	got := clock.Engine().Vehicle("east-1")
	require.NotNil(t, got)
	assert.True(t, got.WaitingForSignal)
	assert.Zero(t, got.Speed)
	assert.Greater(t, geo.StopLineDist(models.East, got.Pos), 0.0, "must hold before the line")
}

func TestDeadlockLivenessForcedAdvance(t *testing.T) {
	cfg := quietConfig()
	clock := NewClock(cfg)

	mk := func(id string, heading models.Direction, x, y float64) *models.Vehicle {
		return &models.Vehicle{
			ID:       id,
			Pos:      orb.Point{x, y},
			Heading:  heading,
			Lane:     1,
			Intent:   models.TurnLeft,
			Turning:  true,
			MaxSpeed: cfg.MaxSpeed,
		}
	}

	// Four left turners locked inside the footprint, each inside
	// another's turn exclusion radius.
	clock.Engine().AddVehicle(mk("dl-north", models.North, 410, 404))
	clock.Engine().AddVehicle(mk("dl-south", models.South, 390, 396))
	clock.Engine().AddVehicle(mk("dl-east", models.East, 396, 410))
	clock.Engine().AddVehicle(mk("dl-west", models.West, 404, 390))

	moved := -1.0
	for i := 0; i < 100; i++ {
		clock.Tick(cfg.TickInterval)
		v := clock.Engine().Vehicle("dl-north")
		require.NotNil(t, v)
		if v.Speed > 0 {
			moved = float64(i+1) * cfg.TickInterval
			break
		}
	}

	require.Greater(t, moved, 0.0, "deadlocked vehicle never moved")
	assert.LessOrEqual(t, moved, cfg.ForcedAdvanceWait+0.5,
		"bounded-wait guarantee exceeded")
}

func TestParkUnparkRoundTrip(t *testing.T) {
	cfg := quietConfig()
	clock := NewClock(cfg)
	geo := NewGeometry(cfg)
	curb := clock.Curb()
	engine := clock.Engine()

	curb.UpdateSlots(20, 0)

	v := &models.Vehicle{
		ID:       "parker",
		Pos:      geo.PointAt(models.North, 0, 460),
		Heading:  models.North,
		Lane:     0,
		Intent:   models.TurnStraight,
		MaxSpeed: cfg.MaxSpeed,
	}
	engine.AddVehicle(v)

	slot := curb.RequestSlotAhead("parker", v.Pos, models.North)
	require.NotNil(t, slot)

	engine.vehicles["parker"].TargetSlot = slot.ID
	engine.vehicles["parker"].ParkingTransition = true

	for i := 0; i < 600; i++ {
		clock.Tick(cfg.TickInterval)
		if engine.Vehicle("parker").Parked {
			break
		}
	}

	got := engine.Vehicle("parker")
	require.True(t, got.Parked, "vehicle should reach its slot")
	assert.Zero(t, got.Speed)
	assert.Equal(t, slot.Pos, got.Pos)
	assert.Equal(t, 1, curb.SlotByID(slot.ID).Occupied)

	engine.Unpark("parker")
	got = engine.Vehicle("parker")
	assert.False(t, got.Parked)
	assert.Greater(t, got.Speed, 0.0)

	freed := curb.SlotByID(slot.ID)
	require.NotNil(t, freed)
	assert.Zero(t, freed.Occupied)
	assert.Empty(t, freed.VehicleID)
}

func TestParkingTransitionYieldsToBlockedLane(t *testing.T) {
	cfg := quietConfig()
	clock := NewClock(cfg)
	geo := NewGeometry(cfg)
	engine := clock.Engine()
	curb := clock.Curb()

	slot := &models.ParkingSlot{
		ID:          "slot_hold",
		Pos:         geo.CurbPoint(models.North, 350, cfg.CurbOffset),
		Orientation: models.North,
		ZoneID:      "curb_north_in",
		Capacity:    1,
		Occupied:    1,
		VehicleID:   "parker",
		AutoManaged: true,
	}
	curb.slots[slot.ID] = slot

	// The blocker holds at the red stop line; the bound slot lies
	// beyond it in the same curb lane.
	engine.AddVehicle(&models.Vehicle{
		ID:      "blocker",
		Pos:     geo.PointAt(models.North, 0, 330),
		Heading: models.North,
		Lane:    0,
		Intent:  models.TurnStraight,
	})
	engine.AddVehicle(&models.Vehicle{
		ID:      "parker",
		Pos:     geo.PointAt(models.North, 0, 310),
		Heading: models.North,
		Lane:    0,
		Intent:  models.TurnStraight,
	})
	engine.vehicles["parker"].TargetSlot = slot.ID
	engine.vehicles["parker"].ParkingTransition = true

	for i := 0; i < 200; i++ {
		clock.Tick(cfg.TickInterval)
		parker := engine.Vehicle("parker")
		blocker := engine.Vehicle("blocker")
		require.GreaterOrEqual(t, Dist(parker.Pos, blocker.Pos), cfg.HardRadius, "tick %d", i)
	}

	parker := engine.Vehicle("parker")
	assert.True(t, parker.ParkingTransition, "transition holds until the lane clears")
	assert.False(t, parker.Parked)
	assert.Zero(t, parker.Speed)
}

func TestFollowerBrakesInsideSafeDistance(t *testing.T) {
	cfg := quietConfig()
	clock := NewClock(cfg)
	geo := NewGeometry(cfg)
	engine := clock.Engine()

	engine.AddVehicle(&models.Vehicle{
		ID:      "lead",
		Pos:     geo.PointAt(models.East, 0, 114),
		Heading: models.East,
		Lane:    0,
		Intent:  models.TurnStraight,
	})
	engine.AddVehicle(&models.Vehicle{
		ID:      "follower",
		Pos:     geo.PointAt(models.East, 0, 100),
		Heading: models.East,
		Lane:    0,
		Intent:  models.TurnStraight,
		Speed:   10,
	})

	clock.Tick(cfg.TickInterval)

	// Gap 14 sits between the contact clamp and two vehicle lengths:
	// the follower brakes hard but does not stop dead.
	got := engine.Vehicle("follower")
	assert.InDelta(t, 10-cfg.Deceleration*cfg.TickInterval, got.Speed, 1e-9)

	// Inside the minimum safe distance the speed clamps to zero.
	engine.AddVehicle(&models.Vehicle{
		ID:      "tail",
		Pos:     geo.PointAt(models.East, 0, 90),
		Heading: models.East,
		Lane:    0,
		Intent:  models.TurnStraight,
		Speed:   10,
	})
	clock.Tick(cfg.TickInterval)
	assert.Zero(t, engine.Vehicle("tail").Speed)
}

func TestBoundaryRespawn(t *testing.T) {
	cfg := quietConfig()
	clock := NewClock(cfg)
	geo := NewGeometry(cfg)

	v := &models.Vehicle{
		ID:       "looper",
		Pos:      geo.PointAt(models.North, 0, 795),
		Heading:  models.North,
		Lane:     0,
		Intent:   models.TurnStraight,
		Speed:    cfg.MaxSpeed,
		MaxSpeed: cfg.MaxSpeed,
	}
	clock.Engine().AddVehicle(v)

	for i := 0; i < 40; i++ {
		clock.Tick(cfg.TickInterval)
	}

	got := clock.Engine().Vehicle("looper")
	require.NotNil(t, got)
	assert.Less(t, geo.Progress(got.Heading, got.Pos), 100.0,
		"vehicle should have wrapped to the entry boundary")
}

func TestDynamicSafeDistance(t *testing.T) {
	cfg := DefaultConfig()
	clock := NewClock(cfg)
	e := clock.Engine()

	// The standstill gap floors at two vehicle lengths.
	assert.InDelta(t, 2*cfg.VehicleLength, e.dynamicSafeDistance(0), 1e-9)
	expected := 10*cfg.ReactionTime + 2*cfg.VehicleLength
	assert.InDelta(t, expected, e.dynamicSafeDistance(10), 1e-9)
}
