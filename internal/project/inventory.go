package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/piwi3910/pcbdrill/internal/model"
)

// boardFile is the JSON form of a board inventory. Holes carry a type tag
// since model.Hole is an interface.
type boardFile struct {
	Version string              `json:"version"`
	Name    string              `json:"name"`
	Holes   []holeRecord        `json:"holes"`
	Outline []model.RouteVector `json:"outline,omitempty"`
}

type holeRecord struct {
	Type     string `json:"type"` // "round" or "oblong"
	X        int    `json:"x"`
	Y        int    `json:"y"`
	X2       int    `json:"x2,omitempty"`
	Y2       int    `json:"y2,omitempty"`
	Diameter int    `json:"diameter"`
	Plated   bool   `json:"plated"`
}

const boardVersion = "1"

// SaveBoard writes a board inventory to a JSON file, coordinates in
// micrometres. It creates parent directories if they do not exist.
func SaveBoard(path string, inv model.Inventory) error {
	bf := boardFile{Version: boardVersion, Name: inv.Name, Outline: inv.Outline}
	for _, h := range inv.Holes {
		switch v := h.(type) {
		case model.Round:
			bf.Holes = append(bf.Holes, holeRecord{Type: "round", X: v.X, Y: v.Y, Diameter: v.Diameter, Plated: v.Plated})
		case model.Oblong:
			bf.Holes = append(bf.Holes, holeRecord{Type: "oblong", X: v.X, Y: v.Y, X2: v.X2, Y2: v.Y2, Diameter: v.Diameter, Plated: v.Plated})
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(bf, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadBoard reads a board inventory written by SaveBoard.
func LoadBoard(path string) (model.Inventory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Inventory{}, err
	}
	var bf boardFile
	if err := json.Unmarshal(data, &bf); err != nil {
		return model.Inventory{}, fmt.Errorf("failed to parse board file: %w", err)
	}
	if bf.Version == "" {
		return model.Inventory{}, fmt.Errorf("invalid board file: missing version field")
	}

	inv := model.Inventory{Name: bf.Name, Outline: bf.Outline}
	for i, r := range bf.Holes {
		switch r.Type {
		case "round", "":
			inv.Holes = append(inv.Holes, model.Round{X: r.X, Y: r.Y, Diameter: r.Diameter, Plated: r.Plated})
		case "oblong":
			inv.Holes = append(inv.Holes, model.NewOblong(r.X, r.Y, r.X2, r.Y2, r.Diameter, r.Plated))
		default:
			return model.Inventory{}, fmt.Errorf("hole %d: unknown type %q", i+1, r.Type)
		}
	}
	if inv.Name == "" {
		inv.Name = filepath.Base(path)
	}
	return inv, nil
}
