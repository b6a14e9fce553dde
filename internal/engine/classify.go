package engine

import (
	"fmt"
	"math"

	"github.com/piwi3910/pcbdrill/internal/model"
)

// InvariantError reports input the engine can never handle, such as a hole
// with no diameter. It means a bug upstream, not a board issue.
type InvariantError struct {
	Op     string
	Detail string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("%s: invariant violated: %s", e.Op, e.Detail)
}

// Group is the work collected for one requested bit.
type Group struct {
	Bit    model.Bit
	Points []model.Point
	Routes []model.RouteVector
}

// Groups keeps work per bit in first-seen order.
type Groups struct {
	order []model.Bit
	byBit map[model.Bit]*Group
}

func newGroups() *Groups {
	return &Groups{byBit: map[model.Bit]*Group{}}
}

func (g *Groups) get(bit model.Bit) *Group {
	grp, ok := g.byBit[bit]
	if !ok {
		grp = &Group{Bit: bit}
		g.byBit[bit] = grp
		g.order = append(g.order, bit)
	}
	return grp
}

// List returns the groups in first-seen order.
func (g *Groups) List() []Group {
	out := make([]Group, len(g.order))
	for i, b := range g.order {
		out[i] = *g.byBit[b]
	}
	return out
}

// Len returns the number of groups.
func (g *Groups) Len() int { return len(g.order) }

// Classify turns every selected hole into drill points and route vectors,
// grouped by the bit each needs.
func Classify(inv model.Inventory, what model.MachiningWhat, settings model.Settings) (*Groups, error) {
	groups := newGroups()
	divisor := settings.SlotPeckDivisor
	if divisor <= 0 {
		divisor = 4
	}

	for i, h := range inv.Holes {
		if h.Width() <= 0 {
			return nil, &InvariantError{Op: "classify", Detail: fmt.Sprintf("hole %d has diameter %d", i, h.Width())}
		}
		if !what.Includes(h.IsPlated()) {
			continue
		}

		start := h.Start()
		drill := groups.get(model.DrillBit(h.Width()))
		drill.Points = append(drill.Points, start)

		o, ok := h.(model.Oblong)
		if !ok {
			continue
		}
		d := float64(o.Diameter)

		// Second plunge at the start so the bit has material to bite into
		if o.Distance >= 0.75*d {
			drill.Points = append(drill.Points, start)
		}

		if o.Distance <= 2*d {
			// peck spacing follows the slot ends, not the stored span
			length := start.Distance(o.End())
			drill.Points = append(drill.Points, interpolate(start, o.End(), length, d/float64(divisor))...)
		} else {
			var v model.RouteVector
			v.AddSegment(start, o.End())
			route := groups.get(model.RouterBit(o.Diameter))
			route.Routes = append(route.Routes, v)
		}
	}

	if what.Has(model.RouteOutline) && len(inv.Outline) > 0 {
		if settings.EdgeRouterDiameter <= 0 {
			return nil, &InvariantError{Op: "classify", Detail: "edge router diameter must be positive"}
		}
		edge := groups.get(model.RouterBit(settings.EdgeRouterDiameter))
		edge.Routes = append(edge.Routes, inv.Outline...)
	}

	return groups, nil
}

// interpolate returns the points strictly between a and b at the given
// spacing along the line.
func interpolate(a, b model.Point, distance, spacing float64) []model.Point {
	if spacing <= 0 {
		return nil
	}
	num := int(distance / spacing)
	if num < 2 {
		return nil
	}
	pts := make([]model.Point, 0, num-1)
	dx := float64(b.X - a.X)
	dy := float64(b.Y - a.Y)
	for i := 1; i < num; i++ {
		f := float64(i) / float64(num)
		pts = append(pts, model.Point{
			X: a.X + int(math.Round(dx*f)),
			Y: a.Y + int(math.Round(dy*f)),
		})
	}
	return pts
}
