// Package export writes plans to printable and spreadsheet formats: a PDF
// job sheet, QR-coded bit labels and an Excel tool table.
package export

import (
	"fmt"
	"math"

	"github.com/go-pdf/fpdf"

	"github.com/piwi3910/pcbdrill/internal/model"
)

// toolColor represents an RGB color for one tool's features.
type toolColor struct {
	R, G, B int
}

var toolColors = []toolColor{
	{R: 76, G: 175, B: 80},  // green
	{R: 33, G: 150, B: 243}, // blue
	{R: 255, G: 152, B: 0},  // orange
	{R: 156, G: 39, B: 176}, // purple
	{R: 0, G: 188, B: 212},  // cyan
	{R: 244, G: 67, B: 54},  // red
	{R: 255, G: 235, B: 59}, // yellow
	{R: 121, G: 85, B: 72},  // brown
}

// Page layout constants (A4 landscape in mm).
const (
	pageWidth    = 297.0
	pageHeight   = 210.0
	marginLeft   = 15.0
	marginRight  = 15.0
	marginTop    = 15.0
	marginBottom = 15.0
	headerHeight = 12.0
	legendHeight = 20.0
	drawAreaTop  = marginTop + headerHeight + 5.0
	rackQRSize   = 50.0
)

// RackSlot is one entry of the rack QR code payload.
type RackSlot struct {
	Slot int    `json:"slot"`
	Bit  string `json:"bit"`
}

// extent is the bounding box of everything a plan machines, in micrometres.
type extent struct {
	minX, minY, maxX, maxY int
}

func (e extent) width() int  { return e.maxX - e.minX }
func (e extent) height() int { return e.maxY - e.minY }

func planExtent(plan model.Plan) (extent, bool) {
	e := extent{minX: math.MaxInt, minY: math.MaxInt, maxX: math.MinInt, maxY: math.MinInt}
	found := false
	grow := func(p model.Point, r int) {
		e.minX = min(e.minX, p.X-r)
		e.minY = min(e.minY, p.Y-r)
		e.maxX = max(e.maxX, p.X+r)
		e.maxY = max(e.maxY, p.Y+r)
		found = true
	}
	for _, tp := range plan.Assignment.Tools {
		r := tp.Bit.Diameter / 2
		for _, p := range tp.Points {
			grow(p, r)
		}
		for _, rv := range tp.Routes {
			for _, s := range rv.Segments {
				grow(s.Start, r)
				grow(s.End, r)
				if s.Arc {
					grow(s.Center, s.Radius+r)
				}
			}
		}
	}
	return e, found
}

// ExportPDF generates a job sheet for the plan: a drill map page with every
// tool's holes and routes in its own colour, followed by a rack page listing
// the slots with a QR code of the slot assignment and the run warnings.
func ExportPDF(path string, plan model.Plan) error {
	if len(plan.Assignment.Tools) == 0 {
		return fmt.Errorf("no tools to export")
	}

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, marginBottom)

	pdf.AddPage()
	renderDrillMap(pdf, plan)

	pdf.AddPage()
	if err := renderRackPage(pdf, plan); err != nil {
		return fmt.Errorf("failed to render rack page: %w", err)
	}

	return pdf.OutputFileAndClose(path)
}

// renderDrillMap draws all features of a plan on the current PDF page.
func renderDrillMap(pdf *fpdf.Fpdf, plan model.Plan) {
	// Title
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetXY(marginLeft, marginTop)
	title := fmt.Sprintf("Drill map: %s (plan %s)", plan.Board, plan.ID)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, headerHeight, title, "", 0, "L", false, 0, "")

	ext, ok := planExtent(plan)

	// Stats line
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetXY(marginLeft, marginTop+headerHeight)
	stats := fmt.Sprintf("Tools: %d | Hits: %d | Travel: %.1f mm",
		plan.ToolChanges(), plan.Assignment.TotalHits(), plan.Travel/1000)
	if ok {
		stats += fmt.Sprintf(" | Extent: %.1f x %.1f mm", model.MM(ext.width()), model.MM(ext.height()))
	}
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 5, stats, "", 0, "L", false, 0, "")
	if !ok {
		return
	}

	// Calculate drawing area
	drawWidth := pageWidth - marginLeft - marginRight
	drawHeight := pageHeight - drawAreaTop - marginBottom - legendHeight

	// Scale to fit the board extent within the drawing area
	scale := math.Min(drawWidth/math.Max(model.MM(ext.width()), 1), drawHeight/math.Max(model.MM(ext.height()), 1))

	canvasW := model.MM(ext.width()) * scale
	canvasH := model.MM(ext.height()) * scale

	// Center the drawing horizontally
	offsetX := marginLeft + (drawWidth-canvasW)/2
	offsetY := drawAreaTop

	// Board coordinates have Y up, the page has Y down
	toPage := func(p model.Point) (float64, float64) {
		return offsetX + model.MM(p.X-ext.minX)*scale, offsetY + canvasH - model.MM(p.Y-ext.minY)*scale
	}

	// Board background (solder mask green)
	pdf.SetFillColor(220, 235, 220)
	pdf.SetDrawColor(100, 100, 100)
	pdf.SetLineWidth(0.3)
	pdf.Rect(offsetX, offsetY, canvasW, canvasH, "FD")

	for i, tp := range plan.Assignment.Tools {
		col := toolColors[i%len(toolColors)]
		pdf.SetFillColor(col.R, col.G, col.B)
		pdf.SetDrawColor(col.R, col.G, col.B)

		r := math.Max(model.MM(tp.Bit.Diameter)/2*scale, 0.3)
		for _, p := range tp.Points {
			x, y := toPage(p)
			pdf.Circle(x, y, r, "F")
		}

		pdf.SetLineWidth(math.Max(model.MM(tp.Bit.Diameter)*scale, 0.2))
		for _, rv := range tp.Routes {
			for _, s := range rv.Segments {
				pts := segmentPoints(s, 16)
				for j := 1; j < len(pts); j++ {
					x1, y1 := toPage(pts[j-1])
					x2, y2 := toPage(pts[j])
					pdf.Line(x1, y1, x2, y2)
				}
			}
		}
	}
	pdf.SetLineWidth(0.3)

	drawToolLegend(pdf, plan, offsetY+canvasH+5)
}

// segmentPoints approximates a segment by a polyline.
func segmentPoints(s model.Segment, n int) []model.Point {
	if !s.Arc || s.Radius == 0 {
		return []model.Point{s.Start, s.End}
	}
	a0 := math.Atan2(float64(s.Start.Y-s.Center.Y), float64(s.Start.X-s.Center.X))
	sweep := s.Length() / float64(s.Radius)
	if s.Clockwise {
		sweep = -sweep
	}
	pts := make([]model.Point, n+1)
	for i := 0; i <= n; i++ {
		a := a0 + sweep*float64(i)/float64(n)
		pts[i] = model.Point{
			X: s.Center.X + int(math.Round(float64(s.Radius)*math.Cos(a))),
			Y: s.Center.Y + int(math.Round(float64(s.Radius)*math.Sin(a))),
		}
	}
	return pts
}

// drawToolLegend renders a compact legend of tools at the bottom of the map page.
func drawToolLegend(pdf *fpdf.Fpdf, plan model.Plan, startY float64) {
	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(marginLeft, startY)
	pdf.CellFormat(30, 4, "Tools:", "", 0, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	xPos := marginLeft + 32
	maxX := pageWidth - marginRight

	for i, tp := range plan.Assignment.Tools {
		col := toolColors[i%len(toolColors)]
		label := fmt.Sprintf("%s (%d)", toolName(tp), tp.Hits())
		labelW := pdf.GetStringWidth(label) + 6

		// Wrap to next line if needed
		if xPos+labelW > maxX {
			startY += 5
			xPos = marginLeft
		}

		// Color swatch
		pdf.SetFillColor(col.R, col.G, col.B)
		pdf.Rect(xPos, startY+0.5, 3, 3, "F")

		// Label text
		pdf.SetXY(xPos+4, startY)
		pdf.CellFormat(labelW-4, 4, label, "", 0, "L", false, 0, "")

		xPos += labelW + 2
	}
}

func toolName(tp model.ToolPath) string {
	if tp.Slot > 0 {
		return fmt.Sprintf("T%02d %s", tp.Slot, tp.Bit)
	}
	return tp.Bit.String()
}

// CollectRackSlots returns the QR payload for the rack page.
func CollectRackSlots(plan model.Plan) []RackSlot {
	slots := make([]RackSlot, 0, len(plan.Assignment.Tools))
	for _, tp := range plan.Assignment.Tools {
		slots = append(slots, RackSlot{Slot: tp.Slot, Bit: tp.Bit.String()})
	}
	return slots
}

// renderRackPage draws the tool table, the rack QR code and the warnings.
func renderRackPage(pdf *fpdf.Fpdf, plan model.Plan) error {
	// Title
	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetXY(marginLeft, marginTop)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 10, "Rack and Tools", "", 0, "L", false, 0, "")

	// Separator line
	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.5)
	pdf.Line(marginLeft, marginTop+12, pageWidth-marginRight, marginTop+12)

	y := marginTop + 18

	summaryItems := []struct {
		label string
		value string
	}{
		{"Board", plan.Board},
		{"Created", plan.CreatedAt.Format("2006-01-02 15:04")},
		{"Rack", rackLabel(plan.RackCapacity)},
		{"Tool Changes", fmt.Sprintf("%d", plan.ToolChanges())},
		{"Total Hits", fmt.Sprintf("%d", plan.Assignment.TotalHits())},
	}

	pdf.SetFont("Helvetica", "", 10)
	for _, item := range summaryItems {
		pdf.SetXY(marginLeft+5, y)
		pdf.CellFormat(40, 6, item.label+":", "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(80, 6, item.value, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		y += 7
	}

	// QR code of the slot assignment, top right
	qrX := pageWidth - marginRight - rackQRSize
	if err := placeQR(pdf, "rack_qr", CollectRackSlots(plan), qrX, marginTop+16, rackQRSize); err != nil {
		return err
	}

	y += 5

	// Table header
	colWidths := []float64{20, 30, 25, 25, 35}
	headers := []string{"Slot", "Bit", "Kind", "Hits", "Routed (mm)"}

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	xPos := marginLeft
	for i, header := range headers {
		pdf.SetXY(xPos, y)
		pdf.CellFormat(colWidths[i], 6, header, "1", 0, "C", true, 0, "")
		xPos += colWidths[i]
	}
	y += 6

	// Table rows
	pdf.SetFont("Helvetica", "", 9)
	for i, tp := range plan.Assignment.Tools {
		xPos = marginLeft
		slot := "-"
		if tp.Slot > 0 {
			slot = fmt.Sprintf("T%02d", tp.Slot)
		}
		rowData := []string{
			slot,
			fmt.Sprintf("%.2f mm", model.MM(tp.Bit.Diameter)),
			tp.Bit.Kind.String(),
			fmt.Sprintf("%d", tp.Hits()),
			fmt.Sprintf("%.1f", tp.RouteLength()/1000),
		}

		// Alternate row background
		if i%2 == 0 {
			pdf.SetFillColor(245, 245, 245)
		} else {
			pdf.SetFillColor(255, 255, 255)
		}

		for j, cell := range rowData {
			pdf.SetXY(xPos, y)
			pdf.CellFormat(colWidths[j], 6, cell, "1", 0, "C", true, 0, "")
			xPos += colWidths[j]
		}
		y += 6
	}

	if len(plan.Warnings) > 0 {
		y += 8
		pdf.SetFont("Helvetica", "B", 11)
		pdf.SetTextColor(200, 0, 0)
		pdf.SetXY(marginLeft, y)
		pdf.CellFormat(200, 7, fmt.Sprintf("Warnings (%d)", len(plan.Warnings)), "", 0, "L", false, 0, "")
		y += 8

		pdf.SetFont("Helvetica", "", 8)
		pdf.SetTextColor(0, 0, 0)
		for _, w := range plan.Warnings {
			if y > pageHeight-marginBottom-10 {
				pdf.AddPage()
				y = marginTop
			}
			pdf.SetXY(marginLeft+5, y)
			pdf.MultiCell(pageWidth-marginLeft-marginRight-10, 4, "- "+w.Summary, "", "L", false)
			y = pdf.GetY()
			for _, h := range w.Hints {
				pdf.SetXY(marginLeft+10, y)
				pdf.MultiCell(pageWidth-marginLeft-marginRight-15, 4, h, "", "L", false)
				y = pdf.GetY()
			}
			y += 1
		}
	}

	// Footer
	pdf.SetFont("Helvetica", "I", 8)
	pdf.SetTextColor(120, 120, 120)
	pdf.SetXY(marginLeft, pageHeight-marginBottom)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 4, "Generated by pcbdrill", "", 0, "C", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
	return nil
}

func rackLabel(capacity int) string {
	if capacity == 0 {
		return "manual tool change"
	}
	return fmt.Sprintf("%d slots", capacity)
}
