package gcode

import (
	"fmt"
	"math"
	"strings"

	"github.com/piwi3910/pcbdrill/internal/engine"
	"github.com/piwi3910/pcbdrill/internal/model"
)

// Generator produces a drilling and routing program from a plan.
type Generator struct {
	Settings model.Settings
	profile  model.GCodeProfile
	depth    engine.DepthModel
}

func New(settings model.Settings) *Generator {
	return NewWithProfile(settings, model.GetProfile(settings.GCodeProfile))
}

// NewWithProfile uses profile instead of the one named in settings.
func NewWithProfile(settings model.Settings, profile model.GCodeProfile) *Generator {
	return &Generator{
		Settings: settings,
		profile:  profile,
		depth:    engine.NewDepthModel(settings),
	}
}

// Generate produces the whole program. Tools are emitted in plan order and
// each tool's points and routes in the order the travel optimiser chose.
func (g *Generator) Generate(plan model.Plan) string {
	var b strings.Builder

	g.writeHeader(&b, plan)

	for i, tp := range plan.Assignment.Tools {
		if i > 0 && g.profile.SpindleStop != "" {
			b.WriteString(g.profile.SpindleStop + "\n")
		}
		g.writeTool(&b, tp, i+1, plan.RackCapacity == 0)
	}

	g.writeFooter(&b)
	return b.String()
}

func (g *Generator) writeHeader(b *strings.Builder, plan model.Plan) {
	p := g.profile

	b.WriteString(g.comment(fmt.Sprintf("pcbdrill GCode: %s (plan %s)", plan.Board, plan.ID)))
	b.WriteString(g.comment(fmt.Sprintf("Tools: %d, Hits: %d, Travel: %.1f mm",
		plan.ToolChanges(), plan.Assignment.TotalHits(), model.MM(int(plan.Travel)))))
	b.WriteString(g.comment(fmt.Sprintf("Board: %.2f mm, Safe Z: %.2f mm",
		model.MM(g.Settings.BoardThickness), model.MM(g.Settings.SafeZ))))
	if plan.RackCapacity == 0 {
		b.WriteString(g.comment("Rack: manual tool change"))
	} else {
		b.WriteString(g.comment(fmt.Sprintf("Rack: %d slots", plan.RackCapacity)))
	}
	b.WriteString(g.comment(fmt.Sprintf("Profile: %s", p.Name)))
	b.WriteString("\n")

	// Write startup codes
	for _, code := range p.StartCode {
		b.WriteString(code + "\n")
	}

	// Initial safe Z retract
	b.WriteString(fmt.Sprintf("%s Z%s\n", p.RapidMove, g.mm(g.Settings.SafeZ)))
	b.WriteString("\n")
}

func (g *Generator) writeFooter(b *strings.Builder) {
	p := g.profile

	b.WriteString("\n")
	b.WriteString(g.comment("=== Job complete ==="))

	// Write end codes
	for _, code := range p.EndCode {
		// Replace [SafeZ] placeholder
		code = strings.ReplaceAll(code, "[SafeZ]", g.mm(g.Settings.SafeZ))
		b.WriteString(code + "\n")
	}

	// Spindle stop
	if p.SpindleStop != "" && !containsLine(p.EndCode, p.SpindleStop) {
		b.WriteString(p.SpindleStop + "\n")
	}
}

func (g *Generator) writeTool(b *strings.Builder, tp model.ToolPath, n int, manual bool) {
	p := g.profile
	d := tp.Bit.Diameter

	b.WriteString(g.comment(fmt.Sprintf("--- Tool %d: %s %.2f mm, %d hits ---",
		n, strings.ToLower(tp.Bit.Kind.String()), model.MM(d), tp.Hits())))

	b.WriteString(fmt.Sprintf("%s Z%s\n", p.RapidMove, g.mm(g.Settings.SafeZ)))
	if manual || tp.Slot == 0 || p.ToolChange == "" {
		b.WriteString(g.comment(fmt.Sprintf("Load bit %s", tp.Bit)))
		if p.Pause != "" {
			b.WriteString(p.Pause + "\n")
		}
	} else {
		b.WriteString(fmt.Sprintf(p.ToolChange+"\n", tp.Slot))
	}

	if p.SpindleStart != "" {
		b.WriteString(fmt.Sprintf(p.SpindleStart+"\n", g.SpindleSpeed()))
	}

	zFeed := g.format(g.ZFeed(d))
	bottom := g.mm(-g.CutDepth(tp.Bit))
	for _, pt := range tp.Points {
		b.WriteString(fmt.Sprintf("%s X%s Y%s\n", p.RapidMove, g.mm(pt.X), g.mm(pt.Y)))
		b.WriteString(fmt.Sprintf("%s Z%s F%s\n", p.FeedMove, bottom, zFeed))
		b.WriteString(fmt.Sprintf("%s Z%s\n", p.RapidMove, g.mm(g.Settings.SafeZ)))
	}

	for _, rv := range tp.Routes {
		g.writeRoute(b, rv, bottom, zFeed)
	}

	b.WriteString("\n")
}

func (g *Generator) writeRoute(b *strings.Builder, rv model.RouteVector, bottom, zFeed string) {
	p := g.profile
	if len(rv.Segments) == 0 {
		return
	}
	feed := g.format(g.Settings.RouterFeed)

	start := rv.Start()
	b.WriteString(fmt.Sprintf("%s X%s Y%s\n", p.RapidMove, g.mm(start.X), g.mm(start.Y)))
	b.WriteString(fmt.Sprintf("%s Z%s F%s\n", p.FeedMove, bottom, zFeed))

	for _, s := range rv.Segments {
		if !s.Arc || s.Radius == 0 {
			b.WriteString(fmt.Sprintf("%s X%s Y%s F%s\n", p.FeedMove, g.mm(s.End.X), g.mm(s.End.Y), feed))
			continue
		}
		// I, J are relative offsets from arc start to arc center
		cmd := p.ArcCCW
		if s.Clockwise {
			cmd = p.ArcCW
		}
		b.WriteString(fmt.Sprintf("%s X%s Y%s I%s J%s F%s\n", cmd,
			g.mm(s.End.X), g.mm(s.End.Y),
			g.mm(s.Center.X-s.Start.X), g.mm(s.Center.Y-s.Start.Y), feed))
	}

	b.WriteString(fmt.Sprintf("%s Z%s\n", p.RapidMove, g.mm(g.Settings.SafeZ)))
}

// CutDepth is how far below the board surface a bit plunges, in micrometres.
// Drills go deep enough for the full diameter to exit; routers only need the
// straight shaft clearance.
func (g *Generator) CutDepth(bit model.Bit) int {
	if bit.Kind == model.Router {
		return g.Settings.BoardThickness + g.Settings.MinExitDepth
	}
	return g.Settings.BoardThickness + int(math.Round(g.depth.RequiredExitDepth(bit.Diameter)))
}

// ZFeed is the plunge rate in mm/min: 1500 / sqrt(d) for d in mm, clamped to
// the configured range.
func (g *Generator) ZFeed(diameter int) float64 {
	if diameter <= 0 {
		return g.Settings.MinZFeed
	}
	f := 1000 * 1.5 * math.Pow(model.MM(diameter), -0.5)
	return math.Max(g.Settings.MinZFeed, math.Min(g.Settings.MaxZFeed, f))
}

// SpindleSpeed returns the configured speed clamped to the spindle's range.
func (g *Generator) SpindleSpeed() int {
	return max(g.Settings.MinSpindleSpeed, min(g.Settings.MaxSpindleSpeed, g.Settings.SpindleSpeed))
}

// comment wraps text in the profile's comment syntax.
func (g *Generator) comment(text string) string {
	return g.profile.CommentPrefix + " " + text + g.profile.CommentSuffix + "\n"
}

// format formats a value according to the profile's decimal places.
func (g *Generator) format(v float64) string {
	format := fmt.Sprintf("%%.%df", g.profile.DecimalPlaces)
	return fmt.Sprintf(format, v)
}

// mm formats a micrometre value as millimetres.
func (g *Generator) mm(um int) string {
	return g.format(model.MM(um))
}

func containsLine(lines []string, s string) bool {
	for _, l := range lines {
		if l == s {
			return true
		}
	}
	return false
}
