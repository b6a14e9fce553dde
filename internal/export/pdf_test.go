package export

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/piwi3910/pcbdrill/internal/model"
)

// buildTestPlan creates a realistic plan for testing.
func buildTestPlan() model.Plan {
	var outline model.RouteVector
	outline.AddSegment(model.Point{X: 0, Y: 0}, model.Point{X: 50000, Y: 0})
	outline.AddArc(model.Point{X: 50000, Y: 0}, model.Point{X: 50000, Y: 30000}, model.Point{X: 50000, Y: 15000}, 15000, false)
	outline.AddSegment(model.Point{X: 50000, Y: 30000}, model.Point{X: 0, Y: 30000})
	outline.AddSegment(model.Point{X: 0, Y: 30000}, model.Point{X: 0, Y: 0})

	plan := model.NewPlan("blinky", model.DrillAndRouteAll)
	plan.RackCapacity = 10
	plan.Travel = 123456
	plan.Assignment = model.ToolAssignment{Tools: []model.ToolPath{
		{Bit: model.DrillBit(800), Slot: 1, Points: []model.Point{{X: 10000, Y: 10000}, {X: 12540, Y: 10000}, {X: 15080, Y: 10000}}},
		{Bit: model.DrillBit(1000), Slot: 2, Points: []model.Point{{X: 20000, Y: 20000}}},
		{Bit: model.RouterBit(1500), Slot: 3, Routes: []model.RouteVector{outline}},
	}}
	plan.Warnings = []model.Warning{
		{Summary: "Exit depth required 1.46mm for 1.80mm bit", Hints: []string{"is greater than the depth allowed 1.50mm", "Switching to routing"}},
	}
	return plan
}

func TestExportPDF_CreatesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "job.pdf")

	err := ExportPDF(path, buildTestPlan())
	if err != nil {
		t.Fatalf("ExportPDF returned error: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("PDF file was not created: %v", err)
	}
	if info.Size() == 0 {
		t.Fatal("PDF file is empty")
	}
	// Two pages plus an embedded QR image
	if info.Size() < 500 {
		t.Errorf("PDF file seems too small: %d bytes", info.Size())
	}
}

func TestExportPDF_EmptyPlan(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.pdf")

	err := ExportPDF(path, model.NewPlan("empty", model.DrillAll))
	if err == nil {
		t.Fatal("expected error for empty plan, got nil")
	}
}

func TestExportPDF_ManualRack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manual.pdf")

	plan := buildTestPlan()
	plan.RackCapacity = 0
	for i := range plan.Assignment.Tools {
		plan.Assignment.Tools[i].Slot = 0
	}

	if err := ExportPDF(path, plan); err != nil {
		t.Fatalf("ExportPDF returned error: %v", err)
	}
}

func TestExportPDF_ManyWarnings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "warnings.pdf")

	plan := buildTestPlan()
	for i := 0; i < 80; i++ {
		plan.Warnings = append(plan.Warnings, model.Warning{Summary: fmt.Sprintf("No drill bit within tolerance for %d", i)})
	}

	if err := ExportPDF(path, plan); err != nil {
		t.Fatalf("ExportPDF returned error: %v", err)
	}
}

func TestExportPDF_InvalidPath(t *testing.T) {
	err := ExportPDF("/nonexistent/dir/job.pdf", buildTestPlan())
	if err == nil {
		t.Error("expected error for invalid path, got nil")
	}
}

func TestPlanExtent(t *testing.T) {
	ext, ok := planExtent(buildTestPlan())
	if !ok {
		t.Fatal("expected an extent")
	}
	// The arc bulges to x = 50 + 15mm, widened by the router radius
	if ext.maxX != 65750 {
		t.Errorf("expected maxX 65750, got %d", ext.maxX)
	}
	if ext.minX != -750 || ext.minY != -750 {
		t.Errorf("expected min corner (-750, -750), got (%d, %d)", ext.minX, ext.minY)
	}

	if _, ok := planExtent(model.NewPlan("empty", model.DrillAll)); ok {
		t.Error("expected no extent for an empty plan")
	}
}

func TestSegmentPoints(t *testing.T) {
	line := model.Segment{Start: model.Point{X: 0, Y: 0}, End: model.Point{X: 10, Y: 0}}
	if pts := segmentPoints(line, 8); len(pts) != 2 {
		t.Errorf("expected 2 points for a line, got %d", len(pts))
	}

	arc := model.Segment{
		Start: model.Point{X: 1000, Y: 0}, End: model.Point{X: -1000, Y: 0},
		Arc: true, Center: model.Point{}, Radius: 1000,
	}
	pts := segmentPoints(arc, 4)
	if len(pts) != 5 {
		t.Fatalf("expected 5 points, got %d", len(pts))
	}
	// Counter-clockwise half circle passes through the top
	if pts[2] != (model.Point{X: 0, Y: 1000}) {
		t.Errorf("expected midpoint (0, 1000), got %v", pts[2])
	}
	if pts[4] != arc.End {
		t.Errorf("expected last point %v, got %v", arc.End, pts[4])
	}

	arc.Clockwise = true
	pts = segmentPoints(arc, 4)
	if pts[2] != (model.Point{X: 0, Y: -1000}) {
		t.Errorf("expected clockwise midpoint (0, -1000), got %v", pts[2])
	}
}

func TestCollectRackSlots(t *testing.T) {
	slots := CollectRackSlots(buildTestPlan())
	if len(slots) != 3 {
		t.Fatalf("expected 3 slots, got %d", len(slots))
	}
	if slots[0] != (RackSlot{Slot: 1, Bit: "0.8"}) {
		t.Errorf("unexpected first slot %+v", slots[0])
	}
	if slots[2] != (RackSlot{Slot: 3, Bit: "R1.5"}) {
		t.Errorf("unexpected router slot %+v", slots[2])
	}
}
