package sim

// Config collects every tunable of the core. Rates are per simulated
// second, distances in world units, durations in simulated seconds.
type Config struct {
	WorldSize     float64
	RoadHalfWidth float64
	LaneWidth     float64
	NumLanes      int
	VehicleLength float64

	MaxVehicles     int
	SpawnRate       float64
	InitialVehicles int

	MaxSpeed          float64
	Acceleration      float64
	Deceleration      float64
	ReactionTime      float64
	MinSafeDistance   float64
	HardRadius        float64
	LookaheadDistance float64

	ApproachZone        float64
	OncomingScanWindow  float64
	TurnExclusionRadius float64

	LaneChangeRate    float64
	LaneClearance     float64
	LaneChangeTrigger float64

	DeadlockWait       float64
	ReverseWait        float64
	ForcedAdvanceWait  float64
	ConflictRadius     float64
	ReverseNudgeSpeed  float64
	ForcedAdvanceSpeed float64
	MajorAxisBonus     float64

	BoundaryClearance float64
	MaxBoundaryWait   int

	ParkRate            float64
	UnparkRate          float64
	ParkingSearchRadius float64
	ParkingApproachSpd  float64
	ParkTolerance       float64
	ResumeSpeed         float64

	SlotCeiling       int
	SlotCapacity      int
	SlotSpacing       float64
	SlotClearance     float64
	CurbOffset        float64
	RebalanceInterval float64
	RiskThreshold     float64
	RiskCongestionCap float64
	EmergencyDuration float64

	// Congestion band edges and the slot targets below each edge.
	// Band order: >High -> 0, >Mid -> MidTarget, >Low -> LowTarget,
	// else BaseTarget.
	BandHigh   float64
	BandMid    float64
	BandLow    float64
	MidTarget  int
	LowTarget  int
	BaseTarget int

	ProtectedLeft bool
	GreenThrough  float64
	GreenLeft     float64
	Yellow        float64
	AllRed        float64

	TickInterval float64
	Seed         int64
}

func DefaultConfig() Config {
	return Config{
		WorldSize:     800,
		RoadHalfWidth: 40,
		LaneWidth:     20,
		NumLanes:      2,
		VehicleLength: 8,

		MaxVehicles:     40,
		SpawnRate:       0.35,
		InitialVehicles: 12,

		MaxSpeed:          14,
		Acceleration:      6,
		Deceleration:      12,
		ReactionTime:      0.8,
		MinSafeDistance:   12,
		HardRadius:        6,
		LookaheadDistance: 90,

		ApproachZone:        70,
		OncomingScanWindow:  140,
		TurnExclusionRadius: 18,

		LaneChangeRate:    12,
		LaneClearance:     16,
		LaneChangeTrigger: 45,

		DeadlockWait:       1.5,
		ReverseWait:        3.0,
		ForcedAdvanceWait:  4.0,
		ConflictRadius:     55,
		ReverseNudgeSpeed:  2,
		ForcedAdvanceSpeed: 4,
		MajorAxisBonus:     0.5,

		BoundaryClearance: 20,
		MaxBoundaryWait:   600,

		ParkRate:            0.02,
		UnparkRate:          0.01,
		ParkingSearchRadius: 180,
		ParkingApproachSpd:  5,
		ParkTolerance:       2.5,
		ResumeSpeed:         6,

		SlotCeiling:       25,
		SlotCapacity:      1,
		SlotSpacing:       14,
		SlotClearance:     10,
		CurbOffset:        50,
		RebalanceInterval: 5,
		RiskThreshold:     0.6,
		RiskCongestionCap: 40,
		EmergencyDuration: 120,

		BandHigh:   70,
		BandMid:    50,
		BandLow:    30,
		MidTarget:  5,
		LowTarget:  15,
		BaseTarget: 25,

		ProtectedLeft: true,
		GreenThrough:  28,
		GreenLeft:     25,
		Yellow:        5,
		AllRed:        1,

		TickInterval: 0.05,
		Seed:         1,
	}
}
