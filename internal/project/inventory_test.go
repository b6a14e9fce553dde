package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/piwi3910/pcbdrill/internal/model"
)

func TestSaveAndLoadBoard(t *testing.T) {
	path := filepath.Join(t.TempDir(), "boards", "board.json")
	var edge model.RouteVector
	edge.AddSegment(model.Point{X: 0, Y: 0}, model.Point{X: 10000, Y: 0})

	inv := model.Inventory{
		Name: "blinky",
		Holes: []model.Hole{
			model.Round{X: 100, Y: 200, Diameter: 800, Plated: true},
			model.NewOblong(0, 0, 3000, 4000, 1000, false),
		},
		Outline: []model.RouteVector{edge},
	}

	if err := SaveBoard(path, inv); err != nil {
		t.Fatalf("SaveBoard failed: %v", err)
	}
	loaded, err := LoadBoard(path)
	if err != nil {
		t.Fatalf("LoadBoard failed: %v", err)
	}

	if loaded.Name != "blinky" {
		t.Errorf("expected name blinky, got %s", loaded.Name)
	}
	if len(loaded.Holes) != 2 {
		t.Fatalf("expected 2 holes, got %d", len(loaded.Holes))
	}
	if r, ok := loaded.Holes[0].(model.Round); !ok || r.Diameter != 800 || !r.Plated {
		t.Errorf("unexpected first hole %#v", loaded.Holes[0])
	}
	o, ok := loaded.Holes[1].(model.Oblong)
	if !ok {
		t.Fatalf("expected oblong, got %#v", loaded.Holes[1])
	}
	if o.Distance != 5000 || o.Plated {
		t.Errorf("unexpected slot %#v", o)
	}
	if len(loaded.Outline) != 1 || loaded.Outline[0].End() != (model.Point{X: 10000, Y: 0}) {
		t.Errorf("outline not restored: %#v", loaded.Outline)
	}
}

func TestLoadBoardRejectsUnknownType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.json")
	data := `{"version":"1","holes":[{"type":"star","x":1,"y":1,"diameter":800}]}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadBoard(path); err == nil {
		t.Error("expected error for unknown hole type")
	}
}

func TestLoadBoardMissingVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.json")
	if err := os.WriteFile(path, []byte(`{"holes":[]}`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadBoard(path); err == nil {
		t.Error("expected error for missing version")
	}
}
