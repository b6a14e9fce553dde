// Package report renders plans, racks and wear totals for the terminal.
package report

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/piwi3910/pcbdrill/internal/engine"
	"github.com/piwi3910/pcbdrill/internal/gcode"
	"github.com/piwi3910/pcbdrill/internal/model"
	"github.com/piwi3910/pcbdrill/internal/rack"
	"github.com/piwi3910/pcbdrill/internal/store"
)

// Renderer writes reports to w, styled when color is enabled.
type Renderer struct {
	w     io.Writer
	color bool

	title   lipgloss.Style
	header  lipgloss.Style
	muted   lipgloss.Style
	warning lipgloss.Style
	hint    lipgloss.Style
}

func New(w io.Writer, color bool) *Renderer {
	r := &Renderer{w: w, color: color}
	if color {
		lr := lipgloss.NewRenderer(w)
		r.title = lr.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
		r.header = lr.NewStyle().Foreground(lipgloss.Color("#8C8C8C")).Bold(true)
		r.muted = lr.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
		r.warning = lr.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
		r.hint = lr.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
	}
	return r
}

// ShouldUseColor reports whether w is a terminal and NO_COLOR is unset.
func ShouldUseColor(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}

func (r *Renderer) style(s lipgloss.Style, text string) string {
	if !r.color {
		return text
	}
	return s.Render(text)
}

func (r *Renderer) println(line string) {
	fmt.Fprintln(r.w, line)
}

func (r *Renderer) table(headers []string, rows [][]string, rightAlign map[int]bool) {
	lines := formatTable(headers, rows, rightAlign)
	for i, line := range lines {
		if i == 0 && len(headers) > 0 {
			line = r.style(r.header, line)
		}
		r.println("  " + line)
	}
}

// Plan prints the plan summary and its tool table.
func (r *Renderer) Plan(plan model.Plan) {
	r.println(r.style(r.title, fmt.Sprintf("Plan %s for %s", plan.ID, plan.Board)))
	rackDesc := "manual tool change"
	if plan.RackCapacity > 0 {
		rackDesc = fmt.Sprintf("%d slot rack", plan.RackCapacity)
	}
	r.println(r.style(r.muted, fmt.Sprintf("  %d tools, %d hits, %.1f mm travel, %s",
		plan.ToolChanges(), plan.Assignment.TotalHits(), plan.Travel/1000, rackDesc)))

	rows := make([][]string, 0, len(plan.Assignment.Tools))
	for _, tp := range plan.Assignment.Tools {
		rows = append(rows, []string{
			slotLabel(tp.Slot),
			tp.Bit.String(),
			tp.Bit.Kind.String(),
			strconv.Itoa(len(tp.Points)),
			strconv.Itoa(len(tp.Routes)),
			fmt.Sprintf("%.1f", tp.RouteLength()/1000),
		})
	}
	r.table([]string{"Slot", "Bit", "Kind", "Holes", "Routes", "Routed mm"}, rows, map[int]bool{3: true, 4: true, 5: true})
}

// Rack prints every slot of a rack, empty ones included.
func (r *Renderer) Rack(name string, rk *rack.Rack) {
	size := "manual"
	if !rk.IsManual() {
		size = fmt.Sprintf("%d slots", rk.Size())
	}
	if name == "" {
		name = "rack"
	}
	r.println(r.style(r.title, fmt.Sprintf("%s (%s, %d loaded)", name, size, rk.Loaded())))

	n := max(rk.Size(), rk.Len())
	rows := make([][]string, 0, n)
	for slot := 1; slot <= n; slot++ {
		bit, ok := rk.Get(slot)
		if !ok {
			rows = append(rows, []string{slotLabel(slot), "-", ""})
			continue
		}
		rows = append(rows, []string{slotLabel(slot), bit.String(), bit.Kind.String()})
	}
	r.table([]string{"Slot", "Bit", "Kind"}, rows, nil)
}

// Program prints the travel totals read back from a written GCode file.
func (r *Renderer) Program(path string, s gcode.Stats) {
	r.println(r.style(r.muted, fmt.Sprintf("GCode %s: %d tool loads, %.1f mm rapid, %.1f mm cut",
		path, s.ToolLoads, s.RapidLength, s.CutLength)))
}

// Warnings prints the warning log in order.
func (r *Renderer) Warnings(warnings []model.Warning) {
	if len(warnings) == 0 {
		return
	}
	r.println(r.style(r.warning, fmt.Sprintf("%d warnings", len(warnings))))
	for _, w := range warnings {
		r.println(r.style(r.warning, "  ! "+w.Summary))
		for _, h := range w.Hints {
			r.println(r.style(r.hint, "      "+h))
		}
	}
}

// Wear prints cumulative bit use from the wear log.
func (r *Renderer) Wear(totals []store.WearTotal) {
	if len(totals) == 0 {
		r.println(r.style(r.muted, "No runs recorded"))
		return
	}
	rows := make([][]string, 0, len(totals))
	for _, w := range totals {
		last := ""
		if !w.LastUsed.IsZero() {
			last = w.LastUsed.Local().Format("2006-01-02")
		}
		rows = append(rows, []string{
			w.Bit.String(),
			w.Bit.Kind.String(),
			strconv.Itoa(w.Runs),
			strconv.Itoa(w.Hits),
			fmt.Sprintf("%.1f", w.Routed/1000),
			last,
		})
	}
	r.table([]string{"Bit", "Kind", "Runs", "Hits", "Routed mm", "Last used"}, rows, map[int]bool{2: true, 3: true, 4: true})
}

// Runs prints recorded plans, newest first.
func (r *Renderer) Runs(runs []store.Run) {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			run.ID,
			run.Board,
			run.CreatedAt.Local().Format("2006-01-02 15:04"),
			strconv.Itoa(run.Tools),
			strconv.Itoa(run.Hits),
			strconv.Itoa(run.Warnings),
		})
	}
	r.table([]string{"Plan", "Board", "Created", "Tools", "Hits", "Warnings"}, rows, map[int]bool{3: true, 4: true, 5: true})
}

// Comparison prints one row per scenario.
func (r *Renderer) Comparison(results []engine.ComparisonResult) {
	rows := make([][]string, 0, len(results))
	for _, c := range results {
		rows = append(rows, []string{
			c.Scenario.Name,
			strconv.Itoa(c.ToolCount),
			strconv.Itoa(c.Hits),
			fmt.Sprintf("%.1f", c.RoutedLength/1000),
			fmt.Sprintf("%.1f", c.Travel/1000),
			strconv.Itoa(c.WarningCount),
		})
	}
	r.table([]string{"Scenario", "Tools", "Hits", "Routed mm", "Travel mm", "Warnings"}, rows,
		map[int]bool{1: true, 2: true, 3: true, 4: true, 5: true})
}

func slotLabel(slot int) string {
	if slot == 0 {
		return "-"
	}
	return fmt.Sprintf("T%02d", slot)
}

func formatTable(headers []string, rows [][]string, rightAlignCols map[int]bool) []string {
	colCount := len(headers)
	for _, row := range rows {
		if len(row) > colCount {
			colCount = len(row)
		}
	}
	if colCount == 0 {
		return nil
	}

	widths := make([]int, colCount)
	for i, header := range headers {
		widths[i] = lipgloss.Width(header)
	}
	for _, row := range rows {
		for i := 0; i < colCount; i++ {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	lines := make([]string, 0, len(rows)+1)
	if len(headers) > 0 {
		lines = append(lines, formatRow(headers, widths, rightAlignCols))
	}
	for _, row := range rows {
		lines = append(lines, formatRow(row, widths, rightAlignCols))
	}
	return lines
}

func formatRow(row []string, widths []int, rightAlignCols map[int]bool) string {
	var b strings.Builder
	for i := 0; i < len(widths); i++ {
		cell := ""
		if i < len(row) {
			cell = row[i]
		}
		if i > 0 {
			b.WriteString("  ")
		}
		b.WriteString(padCell(cell, widths[i], rightAlignCols[i]))
	}
	return strings.TrimRight(b.String(), " ")
}

func padCell(value string, width int, rightAlign bool) string {
	valueWidth := lipgloss.Width(value)
	if valueWidth >= width {
		return value
	}
	padding := width - valueWidth
	if rightAlign {
		return strings.Repeat(" ", padding) + value
	}
	return value + strings.Repeat(" ", padding)
}
