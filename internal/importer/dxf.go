package importer

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/yofu/dxf"
	"github.com/yofu/dxf/entity"

	"github.com/piwi3910/pcbdrill/internal/model"
)

// segment is one straight or arc piece of an outline awaiting chaining.
type segment struct {
	start, end model.Point
	arc        *arcInfo
}

type arcInfo struct {
	center    model.Point
	radius    int
	clockwise bool
}

func (s segment) reversed() segment {
	r := segment{start: s.end, end: s.start}
	if s.arc != nil {
		a := *s.arc
		a.clockwise = !a.clockwise
		r.arc = &a
	}
	return r
}

// ImportDXF imports holes and the board outline from a DXF file. Units are
// millimetres. CIRCLE entities become round holes and closed four vertex
// LWPOLYLINEs with two half-circle bulges become slots. Entities on a layer
// whose name contains NPTH are non-plated. LINE, ARC and LWPOLYLINE entities
// on a layer containing EDGE or OUTLINE are chained into the outline.
func ImportDXF(path string) ImportResult {
	result := ImportResult{}

	drawing, err := dxf.Open(path)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot open DXF file: %v", err))
		return result
	}

	entities := drawing.Entities()
	if len(entities) == 0 {
		result.Errors = append(result.Errors, "DXF file contains no entities")
		return result
	}

	result.Inventory.Name = boardName(path)
	var segments []segment
	skipped := 0
	for _, ent := range entities {
		layer := layerName(ent)
		plated := !strings.Contains(layer, "NPTH")
		outline := strings.Contains(layer, "EDGE") || strings.Contains(layer, "OUTLINE")

		switch e := ent.(type) {
		case *entity.Circle:
			if outline {
				segments = append(segments, circleSegment(e))
				continue
			}
			d := model.UM(2 * e.Radius)
			if d <= 0 {
				result.Warnings = append(result.Warnings, "Skipped CIRCLE with zero radius")
				continue
			}
			result.Inventory.Holes = append(result.Inventory.Holes, model.Round{
				X: model.UM(e.Center[0]), Y: model.UM(e.Center[1]), Diameter: d, Plated: plated,
			})

		case *entity.LwPolyline:
			if outline {
				segments = append(segments, polylineSegments(e.Vertices, e.Bulges, e.Closed)...)
				continue
			}
			slot, ok := slotFromPolyline(e.Vertices, e.Bulges, plated)
			if !ok {
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("Skipped LWPOLYLINE with %d vertices that is not a slot", len(e.Vertices)))
				continue
			}
			result.Inventory.Holes = append(result.Inventory.Holes, slot)

		case *entity.Line:
			if outline {
				segments = append(segments, segment{start: pt(e.Start), end: pt(e.End)})
			} else {
				skipped++
			}

		case *entity.Arc:
			if outline {
				segments = append(segments, arcSegment(e))
			} else {
				skipped++
			}

		default:
			// Unsupported entity types are silently skipped
		}
	}
	if skipped > 0 {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Skipped %d LINE/ARC entities outside an outline layer", skipped))
	}

	result.Inventory.Outline = chainSegments(segments, 10)

	if len(result.Inventory.Holes) == 0 && len(result.Inventory.Outline) == 0 {
		result.Errors = append(result.Errors, "No holes or outline found in DXF file")
	}
	return result
}

func layerName(e entity.Entity) string {
	l := e.Layer()
	if l == nil {
		return ""
	}
	return strings.ToUpper(l.Name())
}

func pt(v []float64) model.Point {
	if len(v) < 2 {
		return model.Point{}
	}
	return model.Point{X: model.UM(v[0]), Y: model.UM(v[1])}
}

// slotFromPolyline recognises the usual slot drawing: four vertices, with
// half-circle bulges (|b| = 1) on two opposite edges. The arc chord midpoints
// are the slot ends and the chord length is the slot width.
func slotFromPolyline(vertices [][]float64, bulges []float64, plated bool) (model.Oblong, bool) {
	if len(vertices) != 4 || len(bulges) < 4 {
		return model.Oblong{}, false
	}
	half := func(b float64) bool { return math.Abs(math.Abs(b)-1) < 0.01 }

	first := -1
	for i := 0; i < 2; i++ {
		if half(bulges[i]) && half(bulges[i+2]) && !half(bulges[i+1]) && !half(bulges[(i+3)%4]) {
			first = i
		}
	}
	if first < 0 {
		return model.Oblong{}, false
	}

	mid := func(i int) (model.Point, int) {
		a, b := pt(vertices[i]), pt(vertices[(i+1)%4])
		return model.Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}, int(math.Round(a.Distance(b)))
	}
	p1, w1 := mid(first)
	p2, w2 := mid(first + 2)
	if w1 <= 0 || abs(w1-w2) > 10 {
		return model.Oblong{}, false
	}
	return model.NewOblong(p1.X, p1.Y, p2.X, p2.Y, w1, plated), true
}

// polylineSegments converts LWPOLYLINE vertices to segments. A bulge on a
// vertex turns the edge to the next vertex into an arc.
func polylineSegments(vertices [][]float64, bulges []float64, closed bool) []segment {
	n := len(vertices)
	edges := n - 1
	if closed {
		edges = n
	}
	var segs []segment
	for i := 0; i < edges; i++ {
		p1 := pt(vertices[i])
		p2 := pt(vertices[(i+1)%n])
		bulge := 0.0
		if i < len(bulges) {
			bulge = bulges[i]
		}
		if math.Abs(bulge) > 1e-9 {
			segs = append(segs, bulgeSegment(p1, p2, bulge))
		} else {
			segs = append(segs, segment{start: p1, end: p2})
		}
	}
	return segs
}

// bulgeSegment builds the arc between two endpoints for a DXF bulge factor.
// The bulge is the tangent of 1/4 the included angle, negative for clockwise.
func bulgeSegment(p1, p2 model.Point, bulge float64) segment {
	x1, y1 := model.MM(p1.X), model.MM(p1.Y)
	x2, y2 := model.MM(p2.X), model.MM(p2.Y)

	// Chord midpoint and length
	mx := (x1 + x2) / 2
	my := (y1 + y2) / 2
	dx := x2 - x1
	dy := y2 - y1
	chordLen := math.Sqrt(dx*dx + dy*dy)
	if chordLen < 1e-9 {
		return segment{start: p1, end: p2}
	}

	// Sagitta and radius
	sagitta := math.Abs(bulge) * chordLen / 2
	radius := (chordLen*chordLen/(4*sagitta) + sagitta) / 2

	// perpendicular direction from chord midpoint
	perpX := -dy / chordLen
	perpY := dx / chordLen
	dist := radius - sagitta
	if bulge < 0 {
		perpX, perpY = -perpX, -perpY
	}
	center := model.Point{X: model.UM(mx + perpX*dist), Y: model.UM(my + perpY*dist)}

	return segment{start: p1, end: p2, arc: &arcInfo{
		center:    center,
		radius:    model.UM(radius),
		clockwise: bulge < 0,
	}}
}

// arcSegment converts a DXF ARC entity. DXF arcs always run counter-clockwise
// from the start angle to the end angle.
func arcSegment(a *entity.Arc) segment {
	cx, cy := a.Circle.Center[0], a.Circle.Center[1]
	r := a.Circle.Radius
	startRad := a.Angle[0] * math.Pi / 180
	endRad := a.Angle[1] * math.Pi / 180
	return segment{
		start: model.Point{X: model.UM(cx + r*math.Cos(startRad)), Y: model.UM(cy + r*math.Sin(startRad))},
		end:   model.Point{X: model.UM(cx + r*math.Cos(endRad)), Y: model.UM(cy + r*math.Sin(endRad))},
		arc:   &arcInfo{center: model.Point{X: model.UM(cx), Y: model.UM(cy)}, radius: model.UM(r)},
	}
}

// circleSegment turns an outline circle into a full-circle arc starting at
// its rightmost point.
func circleSegment(c *entity.Circle) segment {
	center := model.Point{X: model.UM(c.Center[0]), Y: model.UM(c.Center[1])}
	r := model.UM(c.Radius)
	start := model.Point{X: center.X + r, Y: center.Y}
	return segment{start: start, end: start, arc: &arcInfo{center: center, radius: r}}
}

// chainSegments connects individual segments into route vectors.
// tolerance is the maximum distance in micrometres between endpoints to
// consider them connected. Segments are flipped as needed so every vector
// runs head to tail.
func chainSegments(segs []segment, tolerance float64) []model.RouteVector {
	if len(segs) == 0 {
		return nil
	}

	used := make([]bool, len(segs))
	var vectors []model.RouteVector

	for {
		// Find the first unused segment
		startIdx := -1
		for i, u := range used {
			if !u {
				startIdx = i
				break
			}
		}
		if startIdx == -1 {
			break
		}

		chain := []segment{segs[startIdx]}
		used[startIdx] = true

		// Try to extend the chain
		changed := true
		for changed && !closedChain(chain, tolerance) {
			changed = false
			tail := chain[len(chain)-1].end

			for i, seg := range segs {
				if used[i] {
					continue
				}
				if pointsClose(tail, seg.start, tolerance) {
					chain = append(chain, seg)
					used[i] = true
					changed = true
					break
				}
				if pointsClose(tail, seg.end, tolerance) {
					chain = append(chain, seg.reversed())
					used[i] = true
					changed = true
					break
				}
			}
		}

		var v model.RouteVector
		for _, s := range chain {
			if s.arc != nil {
				v.AddArc(s.start, s.end, s.arc.center, s.arc.radius, s.arc.clockwise)
			} else {
				v.AddSegment(s.start, s.end)
			}
		}
		vectors = append(vectors, v)
	}

	// Longest first for consistent ordering
	sort.SliceStable(vectors, func(i, j int) bool {
		return vectors[i].Length() > vectors[j].Length()
	})

	return vectors
}

func closedChain(chain []segment, tolerance float64) bool {
	return pointsClose(chain[0].start, chain[len(chain)-1].end, tolerance)
}

// pointsClose checks whether two points are within the given tolerance.
func pointsClose(a, b model.Point, tolerance float64) bool {
	return a.Distance(b) <= tolerance
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
