package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/pcbdrill/internal/engine"
	"github.com/piwi3910/pcbdrill/internal/gcode"
	"github.com/piwi3910/pcbdrill/internal/model"
	"github.com/piwi3910/pcbdrill/internal/rack"
	"github.com/piwi3910/pcbdrill/internal/store"
)

func samplePlan() model.Plan {
	plan := model.NewPlan("blinky", model.DrillAll)
	plan.RackCapacity = 4
	plan.Travel = 12500
	var route model.RouteVector
	route.AddSegment(model.Point{X: 0, Y: 0}, model.Point{X: 3000, Y: 0})
	plan.Assignment.Tools = []model.ToolPath{
		{Bit: model.DrillBit(800), Slot: 1, Points: []model.Point{{X: 0, Y: 0}, {X: 1000, Y: 0}}},
		{Bit: model.RouterBit(1000), Slot: 2, Routes: []model.RouteVector{route}},
	}
	plan.Warnings = []model.Warning{{Summary: "0.75 mm holes drilled with 0.8", Hints: []string{"x 2"}}}
	return plan
}

func TestFormatTable_AlignsColumns(t *testing.T) {
	lines := formatTable([]string{"A", "Num"}, [][]string{{"long", "1"}, {"x", "100"}}, map[int]bool{1: true})
	require.Len(t, lines, 3)
	assert.Equal(t, "A     Num", lines[0])
	assert.Equal(t, "long    1", lines[1])
	assert.Equal(t, "x     100", lines[2])
}

func TestFormatTable_Empty(t *testing.T) {
	assert.Nil(t, formatTable(nil, nil, nil))
}

func TestPlan(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, false).Plan(samplePlan())
	out := buf.String()

	assert.Contains(t, out, "for blinky")
	assert.Contains(t, out, "2 tools, 3 hits, 12.5 mm travel, 4 slot rack")
	assert.Contains(t, out, "T01")
	assert.Contains(t, out, "R1")
	assert.Contains(t, out, "3.0")
	assert.NotContains(t, out, "\x1b[")
}

func TestPlan_Manual(t *testing.T) {
	plan := samplePlan()
	plan.RackCapacity = 0
	plan.Assignment.Tools[0].Slot = 0

	var buf bytes.Buffer
	New(&buf, false).Plan(plan)
	assert.Contains(t, buf.String(), "manual tool change")
}

func TestRack_ShowsEmptySlots(t *testing.T) {
	rk := rack.New(3)
	require.NoError(t, rk.Set(2, model.DrillBit(1000)))

	var buf bytes.Buffer
	New(&buf, false).Rack("main", rk)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")

	require.Len(t, lines, 5)
	assert.Equal(t, "main (3 slots, 1 loaded)", lines[0])
	assert.Contains(t, lines[2], "T01")
	assert.Contains(t, lines[2], "-")
	assert.Contains(t, lines[3], "Drill")
}

func TestWarnings(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, false)
	r.Warnings(nil)
	assert.Empty(t, buf.String())

	r.Warnings(samplePlan().Warnings)
	assert.Contains(t, buf.String(), "1 warnings")
	assert.Contains(t, buf.String(), "! 0.75 mm holes")
	assert.Contains(t, buf.String(), "x 2")
}

func TestProgram(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, false).Program("out.nc", gcode.Stats{ToolLoads: 3, Plunges: []int{2, 1, 4}, RapidLength: 120.34, CutLength: 8})

	assert.Equal(t, "GCode out.nc: 3 tool loads, 120.3 mm rapid, 8.0 mm cut\n", buf.String())
}

func TestWear(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, false)
	r.Wear(nil)
	assert.Contains(t, buf.String(), "No runs recorded")

	buf.Reset()
	r.Wear([]store.WearTotal{{Bit: model.DrillBit(800), Runs: 2, Hits: 40, LastUsed: time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)}})
	assert.Contains(t, buf.String(), "0.8")
	assert.Contains(t, buf.String(), "40")
}

func TestRuns(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, false).Runs([]store.Run{{ID: "abc12345", Board: "blinky", CreatedAt: time.Now(), Tools: 3, Hits: 10}})
	assert.Contains(t, buf.String(), "abc12345")
	assert.Contains(t, buf.String(), "blinky")
}

func TestComparison(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, false).Comparison([]engine.ComparisonResult{
		{Scenario: engine.ComparisonScenario{Name: "Current"}, ToolCount: 3, Hits: 12, Travel: 5000},
		{Scenario: engine.ComparisonScenario{Name: "Tight tolerance"}, ToolCount: 5, Hits: 12, WarningCount: 2},
	})
	out := buf.String()
	assert.Contains(t, out, "Scenario")
	assert.Contains(t, out, "Tight tolerance")
	assert.Contains(t, out, "5.0")
}

func TestShouldUseColor_NonFile(t *testing.T) {
	assert.False(t, ShouldUseColor(&bytes.Buffer{}))
}

func TestShouldUseColor_NoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	assert.False(t, ShouldUseColor(&bytes.Buffer{}))
}
