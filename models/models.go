package models

import "github.com/paulmach/orb"

// Direction is one of the four approaches feeding the intersection.
// It doubles as the vehicle heading: a vehicle approaching from the
// south heads North, and so on.
type Direction string

const (
	North Direction = "north"
	South Direction = "south"
	East  Direction = "east"
	West  Direction = "west"
)

var Directions = []Direction{North, South, East, West}

func (d Direction) Opposite() Direction {
	switch d {
	case North:
		return South
	case South:
		return North
	case East:
		return West
	case West:
		return East
	default:
		return d
	}
}

// Left is the heading after a left turn from d.
func (d Direction) Left() Direction {
	switch d {
	case North:
		return West
	case South:
		return East
	case East:
		return North
	case West:
		return South
	default:
		return d
	}
}

func (d Direction) Right() Direction {
	switch d {
	case North:
		return East
	case South:
		return West
	case East:
		return South
	case West:
		return North
	default:
		return d
	}
}

func (d Direction) Vertical() bool {
	return d == North || d == South
}

type TurnIntent string

const (
	TurnStraight TurnIntent = "straight"
	TurnLeft     TurnIntent = "left"
	TurnRight    TurnIntent = "right"
)

type LightState string

const (
	LightRed    LightState = "red"
	LightYellow LightState = "yellow"
	LightGreen  LightState = "green"
)

// Vehicle is the unit of simulation. Position and speed are in world
// units; all timers are simulated seconds. Slot and lane references are
// ids/indices resolved through the owning registries, never pointers.
type Vehicle struct {
	ID       string     `json:"id"`
	Pos      orb.Point  `json:"pos"`
	Speed    float64    `json:"speed"`
	MaxSpeed float64    `json:"maxSpeed"`
	Heading  Direction  `json:"heading"`
	Lane     int        `json:"lane"`
	Intent   TurnIntent `json:"intent"`

	WaitingForSignal  bool `json:"waitingForSignal"`
	Parked            bool `json:"parked"`
	ParkingTransition bool `json:"parkingTransition"`
	ChangingLane      bool `json:"changingLane"`
	Turning           bool `json:"turning"`

	TargetLane int    `json:"-"`
	TargetSlot string `json:"targetSlot,omitempty"`

	// TurnStage is 0 until the pivot point is crossed, 1 while the new
	// heading realigns, and meaningless once Turning is false.
	TurnStage int `json:"-"`

	IntersectionWait float64 `json:"-"`
	Priority         float64 `json:"priority,omitempty"`
	BoundaryWait     int     `json:"-"`
}

type Signal struct {
	ID            string     `json:"id"`
	Approach      Direction  `json:"approach"`
	Through       LightState `json:"through"`
	ProtectedLeft LightState `json:"protectedLeft"`
	Countdown     float64    `json:"countdown"`
}

// ParkingSlot is a curb-space slot owned by the orchestrator. VehicleID
// is a weak back-reference: the vehicle may unpark without the slot
// knowing, occupancy must be cleared explicitly.
type ParkingSlot struct {
	ID          string    `json:"id"`
	Pos         orb.Point `json:"pos"`
	Orientation Direction `json:"orientation"`
	ZoneID      string    `json:"zoneId"`
	Capacity    int       `json:"capacity"`
	Occupied    int       `json:"occupied"`
	VehicleID   string    `json:"vehicleId,omitempty"`
	Priority    int       `json:"priority"`
	RiskScore   float64   `json:"riskScore"`
	AutoManaged bool      `json:"autoManaged"`
}

// CongestionSnapshot is the derived 0-100 congestion value fed back to
// the curb orchestrator.
type CongestionSnapshot struct {
	Value          float64 `json:"value"`
	ActiveVehicles int     `json:"activeVehicles"`
	InIntersection int     `json:"inIntersection"`
	SimSeconds     float64 `json:"simSeconds"`
}

type Metrics struct {
	TickCount       int64   `json:"tickCount"`
	SimSeconds      float64 `json:"simSeconds"`
	SpeedFactor     float64 `json:"speedFactor"`
	Running         bool    `json:"running"`
	ActiveVehicles  int     `json:"activeVehicles"`
	ParkedVehicles  int     `json:"parkedVehicles"`
	WaitingVehicles int     `json:"waitingVehicles"`
	Congestion      float64 `json:"congestion"`
	SlotCount       int     `json:"slotCount"`
	SlotUtilization float64 `json:"slotUtilization"`
}
