package model

import (
	"fmt"
	"math"
)

// Hole is either a Round hole or an Oblong slot.
type Hole interface {
	// Start is the hole centre, or the first end of a slot.
	Start() Point
	// Width is the drilled diameter in micrometres.
	Width() int
	IsPlated() bool
	isHole()
}

// Round is a plain drilled hole.
type Round struct {
	X        int  `json:"x"`
	Y        int  `json:"y"`
	Diameter int  `json:"diameter"`
	Plated   bool `json:"plated"`
}

func (r Round) Start() Point   { return Point{X: r.X, Y: r.Y} }
func (r Round) Width() int     { return r.Diameter }
func (r Round) IsPlated() bool { return r.Plated }
func (Round) isHole()          {}

func (r Round) String() string {
	return fmt.Sprintf("%6.2f %s", MM(r.Diameter), r.Start())
}

// Oblong is a slot of width Diameter running from (X, Y) to (X2, Y2).
type Oblong struct {
	X        int     `json:"x"`
	Y        int     `json:"y"`
	X2       int     `json:"x2"`
	Y2       int     `json:"y2"`
	Diameter int     `json:"diameter"`
	Plated   bool    `json:"plated"`
	Distance float64 `json:"distance"` // centre to centre span
}

// NewOblong builds a slot and computes its span.
func NewOblong(x, y, x2, y2, diameter int, plated bool) Oblong {
	return Oblong{
		X: x, Y: y, X2: x2, Y2: y2,
		Diameter: diameter,
		Plated:   plated,
		Distance: math.Hypot(float64(x-x2), float64(y-y2)),
	}
}

func (o Oblong) Start() Point   { return Point{X: o.X, Y: o.Y} }
func (o Oblong) End() Point     { return Point{X: o.X2, Y: o.Y2} }
func (o Oblong) Width() int     { return o.Diameter }
func (o Oblong) IsPlated() bool { return o.Plated }
func (Oblong) isHole()          {}

func (o Oblong) String() string {
	return fmt.Sprintf("O%6.2f %s-%s", MM(o.Diameter), o.Start(), o.End())
}

// Inventory lists every feature of a board that needs machining. It says
// nothing about how the features are machined.
type Inventory struct {
	Name    string
	Holes   []Hole
	Outline []RouteVector
}

// CountByPlating returns the number of plated and non-plated holes.
func (inv Inventory) CountByPlating() (plated, unplated int) {
	for _, h := range inv.Holes {
		if h.IsPlated() {
			plated++
		} else {
			unplated++
		}
	}
	return plated, unplated
}
