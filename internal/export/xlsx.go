package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/piwi3910/pcbdrill/internal/model"
)

const (
	toolsSheet = "Tools"
	holesSheet = "Holes"
)

var (
	toolHeaders = []interface{}{"Order", "Slot", "Bit", "Kind", "Diameter (mm)", "Holes", "Routes", "Hits", "Routed (mm)"}
	holeHeaders = []interface{}{"Order", "Slot", "Bit", "Sequence", "Type", "X (mm)", "Y (mm)", "X2 (mm)", "Y2 (mm)"}
)

// ExportToolTable writes the plan as a workbook: a Tools sheet with one row
// per tool and a Holes sheet with every plunge and route in machining order.
func ExportToolTable(path string, plan model.Plan) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), toolsSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	if _, err := f.NewSheet(holesSheet); err != nil {
		return fmt.Errorf("failed to add sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}

	if err := writeRow(f, toolsSheet, 1, toolHeaders); err != nil {
		return err
	}
	if err := writeRow(f, holesSheet, 1, holeHeaders); err != nil {
		return err
	}
	for _, sheet := range []string{toolsSheet, holesSheet} {
		if err := f.SetRowStyle(sheet, 1, 1, bold); err != nil {
			return fmt.Errorf("failed to style header: %w", err)
		}
	}

	holeRow := 2
	for i, tp := range plan.Assignment.Tools {
		row := []interface{}{
			i + 1, slotCell(tp.Slot), tp.Bit.String(), tp.Bit.Kind.String(),
			model.MM(tp.Bit.Diameter), len(tp.Points), len(tp.Routes), tp.Hits(),
			round(tp.RouteLength()/1000, 3),
		}
		if err := writeRow(f, toolsSheet, i+2, row); err != nil {
			return err
		}

		seq := 1
		for _, p := range tp.Points {
			row := []interface{}{i + 1, slotCell(tp.Slot), tp.Bit.String(), seq, "hole", model.MM(p.X), model.MM(p.Y)}
			if err := writeRow(f, holesSheet, holeRow, row); err != nil {
				return err
			}
			holeRow++
			seq++
		}
		for _, rv := range tp.Routes {
			start, end := rv.Start(), rv.End()
			row := []interface{}{i + 1, slotCell(tp.Slot), tp.Bit.String(), seq, "route",
				model.MM(start.X), model.MM(start.Y), model.MM(end.X), model.MM(end.Y)}
			if err := writeRow(f, holesSheet, holeRow, row); err != nil {
				return err
			}
			holeRow++
			seq++
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("failed to create cell reference: %w", err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}

// slotCell leaves the slot blank for manual tool changes.
func slotCell(slot int) interface{} {
	if slot == 0 {
		return ""
	}
	return slot
}

func round(v float64, places int) float64 {
	p := 1.0
	for range places {
		p *= 10
	}
	return float64(int64(v*p+0.5)) / p
}
