package gcode

import (
	"math"
	"testing"
)

func TestParseGCode_NoMoves(t *testing.T) {
	for name, code := range map[string]string{
		"empty":    "",
		"comments": "; pcbdrill GCode: blinky\n(Load bit 0.8)\n",
		"setup":    "G90\nG21\nG17\nM3 S24000\nT2 M6\nM0\n",
	} {
		if moves := ParseGCode(code); len(moves) != 0 {
			t.Errorf("%s: expected no moves, got %d", name, len(moves))
		}
	}
}

func TestParseGCode_SingleHole(t *testing.T) {
	code := `G0 X12.700 Y3.810
G0 Z2.000
G1 Z-2.300 F300.0
G0 Z2.000
`
	moves := ParseGCode(code)
	if len(moves) != 4 {
		t.Fatalf("expected 4 moves, got %d", len(moves))
	}

	want := []MoveType{MoveRapid, MoveRetract, MovePlunge, MoveRetract}
	for i, m := range moves {
		if m.Type != want[i] {
			t.Errorf("move %d: expected type %d, got %d", i, want[i], m.Type)
		}
	}

	if moves[0].ToX != 12.7 || moves[0].ToY != 3.81 {
		t.Errorf("expected rapid to (12.7,3.81), got (%.3f, %.3f)", moves[0].ToX, moves[0].ToY)
	}
	p := moves[2]
	if p.FromZ != 2 || p.ToZ != -2.3 {
		t.Errorf("expected plunge from Z2 to Z-2.3, got %.3f to %.3f", p.FromZ, p.ToZ)
	}
	if p.ToX != 12.7 || p.ToY != 3.81 {
		t.Errorf("plunge should stay at the hole, got (%.3f, %.3f)", p.ToX, p.ToY)
	}
	if p.FeedRate != 300 {
		t.Errorf("expected plunge feed 300, got %.1f", p.FeedRate)
	}
}

func TestParseGCode_SlotRoute(t *testing.T) {
	code := `G0 X5.000 Y5.000
G1 Z-2.300 F250.0
G1 X9.000 Y5.000 F600.0 ; slot
G1 X9.000 Y7.500
G0 Z2.000
`
	moves := ParseGCode(code)
	if len(moves) != 5 {
		t.Fatalf("expected 5 moves, got %d", len(moves))
	}

	cut := moves[2]
	if cut.Type != MoveFeed {
		t.Errorf("expected MoveFeed, got %d", cut.Type)
	}
	if cut.FromX != 5 || cut.ToX != 9 || cut.ToY != 5 {
		t.Errorf("expected cut (5,5)-(9,5), got (%.3f,%.3f)-(%.3f,%.3f)", cut.FromX, cut.FromY, cut.ToX, cut.ToY)
	}

	// F carries over to the next line
	next := moves[3]
	if next.FeedRate != 600 {
		t.Errorf("expected sticky feed 600, got %.1f", next.FeedRate)
	}
	if next.FromX != 9 || next.FromY != 5 || next.ToY != 7.5 {
		t.Errorf("expected (9,5)-(9,7.5), got (%.3f,%.3f)-(%.3f,%.3f)", next.FromX, next.FromY, next.ToX, next.ToY)
	}
}

func TestParseGCode_DrillSequence(t *testing.T) {
	code := `; pcbdrill GCode: blinky
G90
G21
G0 Z2.000

; --- Tool 1: drill 0.80 mm, 2 hits ---
G0 Z2.000
T1 M6
M3 S24000
G0 X10.000 Y10.000
G1 Z-2.712 F1677.050
G0 Z2.000
G0 X20.000 Y10.000
G1 Z-2.712 F1677.050
G0 Z2.000
M5
M2
`
	moves := ParseGCode(code)

	plunges := 0
	for _, m := range moves {
		if m.Type == MovePlunge {
			plunges++
			if m.Tool != 1 {
				t.Errorf("expected plunge on tool 1, got %d", m.Tool)
			}
		}
	}
	if plunges != 2 {
		t.Errorf("expected 2 plunges, got %d", plunges)
	}
	if moves[1].Tool != 0 || moves[2].Tool != 1 {
		t.Errorf("expected tool index to change at T1 M6, got %d then %d", moves[1].Tool, moves[2].Tool)
	}
}

func TestClassifyMove(t *testing.T) {
	tests := []struct {
		name         string
		rapid        bool
		fromZ, toZ   float64
		fromX, fromY float64
		toX, toY     float64
		want         MoveType
	}{
		{"hop between holes", true, 2, 2, 1, 1, 4, 1, MoveRapid},
		{"rapid out of hole", true, -2.3, 2, 4, 1, 4, 1, MoveRetract},
		{"rapid up from zero", true, 0, 2, 0, 0, 0, 0, MoveRetract},
		{"route along slot", false, -2.3, -2.3, 5, 5, 9, 5, MoveFeed},
		{"drill plunge", false, 2, -2.3, 4, 1, 4, 1, MovePlunge},
		{"feed out of hole", false, -2.3, 0, 4, 1, 4, 1, MoveRetract},
		{"route with Z noise", false, -2.3, -2.3001, 5, 5, 9, 5, MoveFeed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyMove(tt.rapid, tt.fromZ, tt.toZ, tt.fromX, tt.fromY, tt.toX, tt.toY)
			if got != tt.want {
				t.Errorf("classifyMove() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseGCode_Arc(t *testing.T) {
	code := "G0 X1.000 Y0.000\nG3 X0.000 Y1.000 I-1.000 J0.000 F600\nG2 X1.000 Y0.000 I0.000 J-1.000\n"
	moves := ParseGCode(code)
	if len(moves) != 3 {
		t.Fatalf("expected 3 moves, got %d", len(moves))
	}

	ccw := moves[1]
	if ccw.Type != MoveArc || ccw.Clockwise {
		t.Errorf("expected counter-clockwise arc, got type %d clockwise %v", ccw.Type, ccw.Clockwise)
	}
	if ccw.I != -1 || ccw.J != 0 {
		t.Errorf("expected I-1 J0, got I%.3f J%.3f", ccw.I, ccw.J)
	}
	if math.Abs(ccw.XYLength()-math.Pi/2) > 1e-9 {
		t.Errorf("expected quarter circle length %.6f, got %.6f", math.Pi/2, ccw.XYLength())
	}

	cw := moves[2]
	if !cw.Clockwise {
		t.Error("expected G2 to be clockwise")
	}
	if math.Abs(cw.XYLength()-math.Pi/2) > 1e-9 {
		t.Errorf("expected quarter circle length %.6f, got %.6f", math.Pi/2, cw.XYLength())
	}
}

func TestParseGCode_FullCircle(t *testing.T) {
	code := "G0 X2.000 Y0.000\nG3 X2.000 Y0.000 I-1.000 J0.000\n"
	moves := ParseGCode(code)
	if got := moves[1].XYLength(); math.Abs(got-2*math.Pi) > 1e-9 {
		t.Errorf("expected full circle length %.6f, got %.6f", 2*math.Pi, got)
	}
}

func TestParseGCode_PauseStartsNewTool(t *testing.T) {
	code := "M0\nG0 X1 Y1\nG1 Z-1 F100\nG0 Z1\nM0\nG0 X2 Y2\nG1 Z-1\n"
	s := Summarize(ParseGCode(code))
	if s.ToolLoads != 2 {
		t.Fatalf("expected 2 tool loads, got %d", s.ToolLoads)
	}
	if s.Plunges[0] != 1 || s.Plunges[1] != 1 {
		t.Errorf("expected one plunge per load, got %v", s.Plunges)
	}
}

func TestSummarize(t *testing.T) {
	code := `T1 M6
G0 X0 Y0
G0 X3 Y4
G1 Z-1 F100
G1 X6 Y4 F600
G0 Z1
T2 M6
G0 X6 Y0
G1 Z-1
G1 Z-1.5
`
	s := Summarize(ParseGCode(code))
	if s.ToolLoads != 2 {
		t.Fatalf("expected 2 tool loads, got %d", s.ToolLoads)
	}
	if s.Plunges[0] != 1 || s.Plunges[1] != 2 {
		t.Errorf("unexpected plunges %v", s.Plunges)
	}
	if math.Abs(s.RapidLength-9) > 1e-9 {
		t.Errorf("expected rapid length 9, got %.3f", s.RapidLength)
	}
	if math.Abs(s.CutLength-3) > 1e-9 {
		t.Errorf("expected cut length 3, got %.3f", s.CutLength)
	}
}

func TestParseGCode_NegativeCoordinates(t *testing.T) {
	code := "G0 X-10.500 Y-20.250\n"
	moves := ParseGCode(code)
	if len(moves) != 1 {
		t.Fatalf("expected 1 move, got %d", len(moves))
	}
	if moves[0].ToX != -10.5 || moves[0].ToY != -20.25 {
		t.Errorf("expected to (-10.5,-20.25), got (%.3f, %.3f)", moves[0].ToX, moves[0].ToY)
	}
}
