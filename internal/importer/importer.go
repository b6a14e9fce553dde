// Package importer reads board hole inventories from CSV, Excel, DXF and
// board JSON files. CSV and Excel imports detect the delimiter and map
// columns by case-insensitive header names.
package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/piwi3910/pcbdrill/internal/model"
	"github.com/piwi3910/pcbdrill/internal/project"
)

// ImportResult holds the results of an import operation.
type ImportResult struct {
	Inventory model.Inventory
	Errors    []string
	Warnings  []string
}

// OK reports whether the import produced a usable inventory.
func (r ImportResult) OK() bool {
	return len(r.Errors) == 0
}

// ColumnMapping maps semantic column roles to their indices in the data.
type ColumnMapping struct {
	Type     int
	X        int
	Y        int
	X2       int
	Y2       int
	Diameter int
	Plated   int
}

// headerAliases maps canonical column names to their accepted aliases (all lowercase).
var headerAliases = map[string][]string{
	"type":     {"type", "kind", "shape", "hole type"},
	"x":        {"x", "x1", "pos x", "posx", "start x"},
	"y":        {"y", "y1", "pos y", "posy", "start y"},
	"x2":       {"x2", "end x", "endx"},
	"y2":       {"y2", "end y", "endy"},
	"diameter": {"diameter", "dia", "d", "size", "drill", "width", "drill size"},
	"plated":   {"plated", "pth", "plating", "plated through"},
}

// DetectCSVDelimiter reads the file content and determines the most likely CSV delimiter.
// It tries comma, semicolon, tab, and pipe. The delimiter that produces the most
// consistent (non-one) column count across lines wins.
func DetectCSVDelimiter(data []byte) rune {
	candidates := []rune{',', ';', '\t', '|'}
	bestDelimiter := ','
	bestScore := 0

	for _, delim := range candidates {
		reader := csv.NewReader(bytes.NewReader(data))
		reader.Comma = delim
		reader.LazyQuotes = true
		reader.FieldsPerRecord = -1

		records, err := reader.ReadAll()
		if err != nil || len(records) < 1 {
			continue
		}

		firstCols := len(records[0])
		if firstCols < 2 {
			continue
		}

		score := 0
		for _, row := range records {
			if len(row) == firstCols {
				score++
			}
		}

		weighted := score*10 + firstCols
		if weighted > bestScore {
			bestScore = weighted
			bestDelimiter = delim
		}
	}

	return bestDelimiter
}

// DetectColumns examines a header row and returns a ColumnMapping. Returns
// the positional mapping type, x, y, x2, y2, diameter, plated and false when
// the row is not a header.
func DetectColumns(row []string) (ColumnMapping, bool) {
	mapping := ColumnMapping{Type: -1, X: -1, Y: -1, X2: -1, Y2: -1, Diameter: -1, Plated: -1}
	slots := map[string]*int{
		"type": &mapping.Type, "x": &mapping.X, "y": &mapping.Y,
		"x2": &mapping.X2, "y2": &mapping.Y2,
		"diameter": &mapping.Diameter, "plated": &mapping.Plated,
	}

	isHeader := false
	for i, cell := range row {
		normalized := strings.ToLower(strings.TrimSpace(cell))
		for role, aliases := range headerAliases {
			for _, alias := range aliases {
				if normalized == alias && *slots[role] == -1 {
					*slots[role] = i
					isHeader = true
				}
			}
		}
	}

	if !isHeader {
		return ColumnMapping{Type: 0, X: 1, Y: 2, X2: 3, Y2: 4, Diameter: 5, Plated: 6}, false
	}
	return mapping, true
}

// parsePlated accepts the usual spellings. Blank means plated.
func parsePlated(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "yes", "y", "true", "1", "pth", "plated":
		return true, true
	case "no", "n", "false", "0", "npth", "unplated", "non-plated":
		return false, true
	default:
		return true, false
	}
}

// getCell safely retrieves a cell value from a row by column index.
func getCell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func parseMM(row []string, idx int, name, rowLabel string) (int, string) {
	s := getCell(row, idx)
	if s == "" {
		return 0, fmt.Sprintf("%s: Missing %s value", rowLabel, name)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Sprintf("%s: Invalid %s '%s'", rowLabel, name, s)
	}
	return model.UM(v), ""
}

// parseRow extracts a hole from a row. Values are millimetres. Returns the
// hole, any error message and any warning message.
func parseRow(row []string, mapping ColumnMapping, rowLabel string) (model.Hole, string, string) {
	x, errMsg := parseMM(row, mapping.X, "x", rowLabel)
	if errMsg != "" {
		return nil, errMsg, ""
	}
	y, errMsg := parseMM(row, mapping.Y, "y", rowLabel)
	if errMsg != "" {
		return nil, errMsg, ""
	}
	dia, errMsg := parseMM(row, mapping.Diameter, "diameter", rowLabel)
	if errMsg != "" {
		return nil, errMsg, ""
	}
	if dia <= 0 {
		return nil, fmt.Sprintf("%s: Diameter must be positive", rowLabel), ""
	}

	var warning string
	plated, ok := parsePlated(getCell(row, mapping.Plated))
	if !ok {
		warning = fmt.Sprintf("%s: Unknown plating '%s', assuming plated", rowLabel, getCell(row, mapping.Plated))
	}

	kind := strings.ToLower(getCell(row, mapping.Type))
	if kind == "" && getCell(row, mapping.X2) != "" {
		kind = "oblong"
	}
	switch kind {
	case "", "round", "hole", "r", "via", "pad":
		return model.Round{X: x, Y: y, Diameter: dia, Plated: plated}, "", warning
	case "oblong", "slot", "o":
		x2, errMsg := parseMM(row, mapping.X2, "x2", rowLabel)
		if errMsg != "" {
			return nil, errMsg, ""
		}
		y2, errMsg := parseMM(row, mapping.Y2, "y2", rowLabel)
		if errMsg != "" {
			return nil, errMsg, ""
		}
		if x2 == x && y2 == y {
			return model.Round{X: x, Y: y, Diameter: dia, Plated: plated}, "",
				fmt.Sprintf("%s: Slot has no length, imported as a round hole", rowLabel)
		}
		return model.NewOblong(x, y, x2, y2, dia, plated), "", warning
	default:
		return nil, fmt.Sprintf("%s: Unknown hole type '%s'", rowLabel, kind), ""
	}
}

// isEmptyRow returns true if the row has no meaningful content.
func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// Import picks the importer from the file extension.
func Import(path string) ImportResult {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt", ".tsv":
		return ImportCSV(path)
	case ".xlsx", ".xlsm":
		return ImportExcel(path)
	case ".dxf":
		return ImportDXF(path)
	case ".json":
		inv, err := project.LoadBoard(path)
		if err != nil {
			return ImportResult{Errors: []string{fmt.Sprintf("Cannot read board file: %v", err)}}
		}
		return ImportResult{Inventory: inv}
	default:
		return ImportResult{Errors: []string{fmt.Sprintf("Unsupported file type '%s'", filepath.Ext(path))}}
	}
}

// ImportCSV imports holes from a CSV file.
func ImportCSV(path string) ImportResult {
	result := ImportResult{}

	data, err := os.ReadFile(path)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot open file: %v", err))
		return result
	}

	if len(bytes.TrimSpace(data)) == 0 {
		result.Errors = append(result.Errors, "File is empty")
		return result
	}

	delimiter := DetectCSVDelimiter(data)
	if delimiter != ',' {
		delimName := map[rune]string{';': "semicolon", '\t': "tab", '|': "pipe"}[delimiter]
		result.Warnings = append(result.Warnings, fmt.Sprintf("Detected %s delimiter", delimName))
	}

	res := ImportCSVFromReader(bytes.NewReader(data), delimiter)
	res.Warnings = append(result.Warnings, res.Warnings...)
	res.Inventory.Name = boardName(path)
	return res
}

// ImportCSVFromReader imports holes from a CSV reader with a known delimiter.
func ImportCSVFromReader(reader io.Reader, delimiter rune) ImportResult {
	result := ImportResult{}

	csvReader := csv.NewReader(reader)
	csvReader.Comma = delimiter
	csvReader.LazyQuotes = true
	csvReader.FieldsPerRecord = -1
	csvReader.Comment = '#'

	records, err := csvReader.ReadAll()
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot read CSV: %v", err))
		return result
	}

	if len(records) == 0 {
		result.Errors = append(result.Errors, "File is empty")
		return result
	}

	return importFromRows(records, "Line")
}

// ImportExcel imports holes from the first sheet of an Excel file.
func ImportExcel(path string) ImportResult {
	result := ImportResult{}

	f, err := excelize.OpenFile(path)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot open Excel file: %v", err))
		return result
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		result.Errors = append(result.Errors, "Excel file has no sheets")
		return result
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot read Excel data: %v", err))
		return result
	}

	if len(rows) == 0 {
		result.Errors = append(result.Errors, "Sheet is empty")
		return result
	}

	res := importFromRows(rows, "Row")
	res.Inventory.Name = boardName(path)
	return res
}

// importFromRows is the shared import logic for both CSV and Excel data.
func importFromRows(rows [][]string, rowPrefix string) ImportResult {
	result := ImportResult{}

	mapping, hasHeader := DetectColumns(rows[0])
	startRow := 0
	if hasHeader {
		startRow = 1

		missing := []string{}
		if mapping.X == -1 {
			missing = append(missing, "X")
		}
		if mapping.Y == -1 {
			missing = append(missing, "Y")
		}
		if mapping.Diameter == -1 {
			missing = append(missing, "Diameter")
		}
		if len(missing) > 0 {
			result.Errors = append(result.Errors, fmt.Sprintf("Required columns not found in header: %s", strings.Join(missing, ", ")))
			return result
		}
	} else if _, err := strconv.ParseFloat(getCell(rows[0], mapping.X), 64); err != nil {
		// Unrecognised header: skip it and use positional mapping
		startRow = 1
		result.Warnings = append(result.Warnings, "Unrecognised header row, using column order type, x, y, x2, y2, diameter, plated")
	}

	for i := startRow; i < len(rows); i++ {
		row := rows[i]
		if isEmptyRow(row) {
			continue
		}

		rowLabel := fmt.Sprintf("%s %d", rowPrefix, i+1)
		hole, errMsg, warning := parseRow(row, mapping, rowLabel)
		if errMsg != "" {
			result.Errors = append(result.Errors, errMsg)
			continue
		}
		if warning != "" {
			result.Warnings = append(result.Warnings, warning)
		}
		result.Inventory.Holes = append(result.Inventory.Holes, hole)
	}

	if len(result.Inventory.Holes) == 0 && len(result.Errors) == 0 {
		result.Errors = append(result.Errors, "No holes found")
	}
	return result
}

func boardName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}
