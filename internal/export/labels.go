package export

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/go-pdf/fpdf"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/piwi3910/pcbdrill/internal/model"
)

// BitLabel holds the data encoded into each bit label's QR code.
type BitLabel struct {
	Board    string  `json:"board"`
	PlanID   string  `json:"plan"`
	Slot     int     `json:"slot"`
	Bit      string  `json:"bit"`
	Kind     string  `json:"kind"`
	Diameter float64 `json:"diameter_mm"`
	Hits     int     `json:"hits"`
	Routed   float64 `json:"routed_mm,omitempty"`
}

// Label layout constants for Avery 5160-compatible labels (3 columns, 10 rows per page).
// Each label cell is approximately 66.7mm x 25.4mm on US Letter paper.
const (
	labelPageWidth  = 215.9 // US Letter width in mm
	labelPageHeight = 279.4 // US Letter height in mm
	labelMarginTop  = 12.7  // mm
	labelMarginLeft = 4.8   // mm
	labelWidth      = 66.7  // mm per label
	labelHeight     = 25.4  // mm per label
	labelCols       = 3
	labelRows       = 10
	labelsPerPage   = labelCols * labelRows
	qrSize          = 20.0 // QR code size in mm
	labelPadding    = 2.0  // mm internal padding
)

// ExportBitLabels generates a PDF of QR-coded labels, one per tool in the
// plan, for sticking on bit boxes or rack positions. Labels are laid out on
// a standard label sheet (Avery 5160 / 3 columns x 10 rows on US Letter).
func ExportBitLabels(path string, plan model.Plan) error {
	labels := CollectBitLabels(plan)
	if len(labels) == 0 {
		return fmt.Errorf("no tools to generate labels for")
	}

	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetAutoPageBreak(false, 0)

	for i, label := range labels {
		// Add new page when needed
		if i%labelsPerPage == 0 {
			pdf.AddPage()
		}

		posOnPage := i % labelsPerPage
		col := posOnPage % labelCols
		row := posOnPage / labelCols

		x := labelMarginLeft + float64(col)*labelWidth
		y := labelMarginTop + float64(row)*labelHeight

		if err := renderLabel(pdf, x, y, label, i); err != nil {
			return fmt.Errorf("failed to render label for %s: %w", label.Bit, err)
		}
	}

	return pdf.OutputFileAndClose(path)
}

// renderLabel draws a single label at the given position.
func renderLabel(pdf *fpdf.Fpdf, x, y float64, info BitLabel, idx int) error {
	// Draw light border for cutting guide
	pdf.SetDrawColor(200, 200, 200)
	pdf.SetLineWidth(0.1)
	pdf.Rect(x, y, labelWidth, labelHeight, "D")

	qrX := x + labelWidth - qrSize - labelPadding
	qrY := y + (labelHeight-qrSize)/2
	if err := placeQR(pdf, fmt.Sprintf("label_%d", idx), info, qrX, qrY, qrSize); err != nil {
		return err
	}

	// Text area (left side of label)
	textX := x + labelPadding
	textW := labelWidth - qrSize - 3*labelPadding

	// Bit name (bold, larger)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(textX, y+labelPadding)
	title := fmt.Sprintf("%.2f mm %s", info.Diameter, info.Kind)
	pdf.CellFormat(textW, 5, title, "", 1, "L", false, 0, "")

	// Slot
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetXY(textX, y+labelPadding+6)
	slot := "Manual change"
	if info.Slot > 0 {
		slot = fmt.Sprintf("Slot T%02d", info.Slot)
	}
	pdf.CellFormat(textW, 3.5, slot, "", 1, "L", false, 0, "")

	// Board and usage info
	pdf.SetFont("Helvetica", "", 6)
	pdf.SetTextColor(100, 100, 100)
	pdf.SetXY(textX, y+labelPadding+10.5)
	board := info.Board
	if pdf.GetStringWidth(board) > textW {
		for len(board) > 0 && pdf.GetStringWidth(board+"...") > textW {
			board = board[:len(board)-1]
		}
		board += "..."
	}
	pdf.CellFormat(textW, 3, board, "", 1, "L", false, 0, "")
	pdf.SetXY(textX, y+labelPadding+14)
	usage := fmt.Sprintf("%d hits", info.Hits)
	if info.Routed > 0 {
		usage += fmt.Sprintf(", %.0f mm routed", info.Routed)
	}
	pdf.CellFormat(textW, 3, usage, "", 0, "L", false, 0, "")

	// Reset text color
	pdf.SetTextColor(0, 0, 0)

	return nil
}

// placeQR encodes v as JSON into a QR code image at the given position.
func placeQR(pdf *fpdf.Fpdf, name string, v any, x, y, size float64) error {
	qrData, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal QR payload: %w", err)
	}

	qrPNG, err := qrcode.Encode(string(qrData), qrcode.Medium, 256)
	if err != nil {
		return fmt.Errorf("failed to generate QR code: %w", err)
	}

	pdf.RegisterImageOptionsReader(name, fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(qrPNG))
	pdf.ImageOptions(name, x, y, size, size, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	return nil
}

// CollectBitLabels extracts label information from a plan, in tool order.
func CollectBitLabels(plan model.Plan) []BitLabel {
	var labels []BitLabel
	for _, tp := range plan.Assignment.Tools {
		labels = append(labels, BitLabel{
			Board:    plan.Board,
			PlanID:   plan.ID,
			Slot:     tp.Slot,
			Bit:      tp.Bit.String(),
			Kind:     tp.Bit.Kind.String(),
			Diameter: model.MM(tp.Bit.Diameter),
			Hits:     tp.Hits(),
			Routed:   tp.RouteLength() / 1000,
		})
	}
	return labels
}
