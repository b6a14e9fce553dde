package model

import (
	"fmt"
	"math"
)

// Point is a board coordinate in micrometres.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Distance returns the Euclidean distance between two points in micrometres.
func (p Point) Distance(q Point) float64 {
	return math.Hypot(float64(p.X-q.X), float64(p.Y-q.Y))
}

func (p Point) String() string {
	return fmt.Sprintf("(%.3f, %.3f)", MM(p.X), MM(p.Y))
}

// MM converts micrometres to millimetres.
func MM(um int) float64 {
	return float64(um) / 1000.0
}

// UM converts millimetres to micrometres, rounding to the nearest micrometre.
func UM(mm float64) int {
	return int(math.Round(mm * 1000.0))
}

// BitKind tells a plunging drill bit apart from a side-cutting router bit.
type BitKind int

const (
	Drill BitKind = iota
	Router
)

func (k BitKind) String() string {
	switch k {
	case Router:
		return "Router"
	default:
		return "Drill"
	}
}

// Bit identifies a physical tool. Diameter and kind together are the identity:
// a 1.0mm drill and a 1.0mm router are different tools.
type Bit struct {
	Diameter int     `json:"diameter_um"`
	Kind     BitKind `json:"kind"`
}

// DrillBit returns a drill bit of the given diameter in micrometres.
func DrillBit(um int) Bit {
	return Bit{Diameter: um, Kind: Drill}
}

// RouterBit returns a router bit of the given diameter in micrometres.
func RouterBit(um int) Bit {
	return Bit{Diameter: um, Kind: Router}
}

// String formats the bit the way operators write it in rack strings:
// "0.8" for a drill, "R0.8" for a router.
func (b Bit) String() string {
	if b.Kind == Router {
		return fmt.Sprintf("R%g", MM(b.Diameter))
	}
	return fmt.Sprintf("%g", MM(b.Diameter))
}

// Less orders drills before routers, then by ascending diameter.
func (b Bit) Less(o Bit) bool {
	if b.Kind != o.Kind {
		return b.Kind < o.Kind
	}
	return b.Diameter < o.Diameter
}

// Segment is one element of a router toolpath. When Arc is true the segment
// is a circular arc around Center with the given Radius, counter-clockwise
// unless Clockwise is set. An arc whose start equals its end is a full circle.
type Segment struct {
	Start     Point `json:"start"`
	End       Point `json:"end"`
	Arc       bool  `json:"arc,omitempty"`
	Center    Point `json:"center,omitempty"`
	Radius    int   `json:"radius,omitempty"`
	Clockwise bool  `json:"clockwise,omitempty"`
}

// Length returns the cut length in micrometres.
func (s Segment) Length() float64 {
	if !s.Arc || s.Radius == 0 {
		return s.Start.Distance(s.End)
	}
	a0 := math.Atan2(float64(s.Start.Y-s.Center.Y), float64(s.Start.X-s.Center.X))
	a1 := math.Atan2(float64(s.End.Y-s.Center.Y), float64(s.End.X-s.Center.X))
	sweep := a1 - a0
	if s.Clockwise {
		sweep = -sweep
	}
	for sweep <= 1e-12 {
		sweep += 2 * math.Pi
	}
	return float64(s.Radius) * sweep
}

// RouteVector is an ordered router toolpath for one slot or outline feature.
// It only grows.
type RouteVector struct {
	Segments []Segment `json:"segments"`
}

// AddSegment appends a straight cut.
func (v *RouteVector) AddSegment(start, end Point) {
	v.Segments = append(v.Segments, Segment{Start: start, End: end})
}

// AddArc appends an arc cut around center.
func (v *RouteVector) AddArc(start, end, center Point, radius int, clockwise bool) {
	v.Segments = append(v.Segments, Segment{Start: start, End: end, Arc: true, Center: center, Radius: radius, Clockwise: clockwise})
}

// Start returns the first point of the path.
func (v RouteVector) Start() Point {
	if len(v.Segments) == 0 {
		return Point{}
	}
	return v.Segments[0].Start
}

// End returns the last point of the path.
func (v RouteVector) End() Point {
	if len(v.Segments) == 0 {
		return Point{}
	}
	return v.Segments[len(v.Segments)-1].End
}

// Length returns the total cut length in micrometres.
func (v RouteVector) Length() float64 {
	var total float64
	for _, s := range v.Segments {
		total += s.Length()
	}
	return total
}

// MachiningWhat selects which features a run machines. Flags combine freely.
type MachiningWhat int

const (
	DrillPTH     MachiningWhat = 1 << iota // plated holes and plated slots
	DrillNPTH                              // non-plated holes and slots
	RouteOutline                           // board outline

	DrillAll         = DrillPTH | DrillNPTH
	DrillAndRouteAll = DrillAll | RouteOutline
)

// Has reports whether every flag in f is set.
func (w MachiningWhat) Has(f MachiningWhat) bool {
	return w&f == f
}

// Includes reports whether a hole with the given plating is selected.
func (w MachiningWhat) Includes(plated bool) bool {
	if plated {
		return w.Has(DrillPTH)
	}
	return w.Has(DrillNPTH)
}

// ToolPath holds everything assigned to one bit.
type ToolPath struct {
	Bit    Bit           `json:"bit"`
	Slot   int           `json:"slot"` // rack slot, 0 when not racked
	Points []Point       `json:"points,omitempty"`
	Routes []RouteVector `json:"routes,omitempty"`
}

// Hits returns the number of plunges the bit makes.
func (tp ToolPath) Hits() int {
	return len(tp.Points) + len(tp.Routes)
}

// RouteLength returns the total routed length in micrometres.
func (tp ToolPath) RouteLength() float64 {
	var total float64
	for _, r := range tp.Routes {
		total += r.Length()
	}
	return total
}

// ToolAssignment maps every bit used by a run to its work, in machining order:
// drills by ascending diameter first, routers after so pre-drilled holes are
// routed last.
type ToolAssignment struct {
	Tools []ToolPath `json:"tools"`
}

// Find returns the path for bit, or nil.
func (ta *ToolAssignment) Find(bit Bit) *ToolPath {
	for i := range ta.Tools {
		if ta.Tools[i].Bit == bit {
			return &ta.Tools[i]
		}
	}
	return nil
}

// Bits returns the bits in machining order.
func (ta ToolAssignment) Bits() []Bit {
	bits := make([]Bit, len(ta.Tools))
	for i, t := range ta.Tools {
		bits[i] = t.Bit
	}
	return bits
}

// TotalHits returns the number of plunges over all tools.
func (ta ToolAssignment) TotalHits() int {
	total := 0
	for _, t := range ta.Tools {
		total += t.Hits()
	}
	return total
}
