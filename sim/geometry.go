package sim

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/yessjun/stay-sub000/models"
)

// Geometry fixes one consistent road layout: a square world with the
// intersection at its center, right-hand traffic, two travel lanes per
// approach. Lane 0 is the curb lane. Screen coordinates: +x east,
// +y south, so a northbound vehicle moves -y.
type Geometry struct {
	World     float64
	Center    orb.Point
	HalfWidth float64
	LaneWidth float64
	NumLanes  int
}

func NewGeometry(cfg Config) Geometry {
	c := cfg.WorldSize / 2
	return Geometry{
		World:     cfg.WorldSize,
		Center:    orb.Point{c, c},
		HalfWidth: cfg.RoadHalfWidth,
		LaneWidth: cfg.LaneWidth,
		NumLanes:  cfg.NumLanes,
	}
}

func (g Geometry) HeadingVec(d models.Direction) orb.Point {
	switch d {
	case models.North:
		return orb.Point{0, -1}
	case models.South:
		return orb.Point{0, 1}
	case models.East:
		return orb.Point{1, 0}
	default:
		return orb.Point{-1, 0}
	}
}

func (g Geometry) laneOffset(lane int) float64 {
	return g.LaneWidth/2 + float64(g.NumLanes-1-lane)*g.LaneWidth
}

// LaneCenter returns the lateral coordinate (x for vertical travel,
// y for horizontal) of the given lane's centerline.
func (g Geometry) LaneCenter(d models.Direction, lane int) float64 {
	off := g.laneOffset(lane)
	switch d {
	case models.North:
		return g.Center[0] + off
	case models.South:
		return g.Center[0] - off
	case models.East:
		return g.Center[1] + off
	default:
		return g.Center[1] - off
	}
}

func (g Geometry) Lateral(d models.Direction, p orb.Point) float64 {
	if d.Vertical() {
		return p[0]
	}
	return p[1]
}

func (g Geometry) SetLateral(d models.Direction, p orb.Point, v float64) orb.Point {
	if d.Vertical() {
		p[0] = v
	} else {
		p[1] = v
	}
	return p
}

// Progress is the longitudinal distance travelled from the world entry
// boundary: 0 at spawn, World at exit.
func (g Geometry) Progress(d models.Direction, p orb.Point) float64 {
	switch d {
	case models.North:
		return g.World - p[1]
	case models.South:
		return p[1]
	case models.East:
		return p[0]
	default:
		return g.World - p[0]
	}
}

func (g Geometry) PointAt(d models.Direction, lane int, s float64) orb.Point {
	lat := g.LaneCenter(d, lane)
	switch d {
	case models.North:
		return orb.Point{lat, g.World - s}
	case models.South:
		return orb.Point{lat, s}
	case models.East:
		return orb.Point{s, lat}
	default:
		return orb.Point{g.World - s, lat}
	}
}

// CurbPoint is the slot anchor just outside lane 0 at progress s.
func (g Geometry) CurbPoint(d models.Direction, s float64, offset float64) orb.Point {
	p := g.PointAt(d, 0, s)
	extra := offset - g.laneOffset(0)
	switch d {
	case models.North:
		p[0] += extra
	case models.South:
		p[0] -= extra
	case models.East:
		p[1] += extra
	default:
		p[1] -= extra
	}
	return p
}

// DistAhead is the signed longitudinal distance from a to b along d.
// Positive when b lies ahead of a.
func (g Geometry) DistAhead(d models.Direction, a, b orb.Point) float64 {
	v := g.HeadingVec(d)
	return (b[0]-a[0])*v[0] + (b[1]-a[1])*v[1]
}

// StopLineDist is positive before the line, negative past it.
func (g Geometry) StopLineDist(d models.Direction, p orb.Point) float64 {
	stop := g.Progress(d, g.Center) - g.HalfWidth
	return stop - g.Progress(d, p)
}

func (g Geometry) InFootprint(p orb.Point) bool {
	return abs(p[0]-g.Center[0]) <= g.HalfWidth && abs(p[1]-g.Center[1]) <= g.HalfWidth
}

func (g Geometry) SpawnPoint(d models.Direction, lane int) orb.Point {
	return g.PointAt(d, lane, 0)
}

func (g Geometry) OutOfBounds(p orb.Point) bool {
	return p[0] < 0 || p[1] < 0 || p[0] > g.World || p[1] > g.World
}

// TurnPivotLat is the lateral coordinate, measured on the OLD heading's
// longitudinal axis, at which a turning vehicle rotates: the centerline
// of the target lane of the new heading.
func (g Geometry) TurnPivotLat(from models.Direction, intent models.TurnIntent) (models.Direction, int, float64) {
	var to models.Direction
	var lane int
	if intent == models.TurnLeft {
		to = from.Left()
		lane = g.NumLanes - 1
	} else {
		to = from.Right()
		lane = 0
	}
	return to, lane, g.LaneCenter(to, lane)
}

// TurnLane is the lane a vehicle must occupy to execute intent: left
// turns from the inner lane, right turns from the curb lane.
func (g Geometry) TurnLane(intent models.TurnIntent) (int, bool) {
	switch intent {
	case models.TurnLeft:
		return g.NumLanes - 1, true
	case models.TurnRight:
		return 0, true
	default:
		return 0, false
	}
}

func Dist(a, b orb.Point) float64 {
	return planar.Distance(a, b)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
