package gcode

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/piwi3910/pcbdrill/internal/model"
)

// MoveType represents the type of CNC toolpath movement.
type MoveType int

const (
	MoveRapid   MoveType = iota // G0: rapid positioning (no cutting)
	MoveFeed                    // G1: linear feed (cutting move in XY plane)
	MovePlunge                  // G1 with Z decreasing: plunging into material
	MoveRetract                 // G0/G1 with Z increasing: retracting from material
	MoveArc                     // G2/G3: circular feed
)

// GCodeMove represents a single parsed movement from GCode.
type GCodeMove struct {
	Type      MoveType
	FromX     float64
	FromY     float64
	FromZ     float64
	ToX       float64
	ToY       float64
	ToZ       float64
	I         float64 // arc centre offset from the start
	J         float64
	Clockwise bool
	FeedRate  float64
	Tool      int // 1-based index of the tool load the move belongs to, 0 before the first
}

// XYLength returns the distance travelled in the XY plane.
func (m GCodeMove) XYLength() float64 {
	if m.Type != MoveArc {
		return math.Hypot(m.ToX-m.FromX, m.ToY-m.FromY)
	}
	cx, cy := m.FromX+m.I, m.FromY+m.J
	r := math.Hypot(m.I, m.J)
	sweep := math.Atan2(m.ToY-cy, m.ToX-cx) - math.Atan2(m.FromY-cy, m.FromX-cx)
	if m.Clockwise {
		sweep = -sweep
	}
	for sweep <= 1e-12 {
		sweep += 2 * math.Pi
	}
	return r * sweep
}

var (
	coordRe = regexp.MustCompile(`([XYZFIJ])([-]?\d+\.?\d*)`)
	toolRe  = regexp.MustCompile(`\bT(\d+)\s*M0?6\b`)
	pauseRe = regexp.MustCompile(`^M0?0$`)
)

// ParseGCode parses a GCode string into a slice of structured moves.
// It tracks absolute position state and classifies each G0/G1/G2/G3 command
// by its movement characteristics. Tool changes (Tn M6) and operator pauses
// (M0) start a new tool load.
func ParseGCode(code string) []GCodeMove {
	var moves []GCodeMove

	// Current machine state
	curX, curY, curZ := 0.0, 0.0, 0.0
	curFeed := 0.0
	tool := 0

	lines := strings.Split(code, "\n")

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		// Strip inline comments (semicolon or parenthetical)
		if idx := strings.Index(line, ";"); idx >= 0 {
			line = line[:idx]
		}
		if idx := strings.Index(line, "("); idx >= 0 {
			if end := strings.Index(line, ")"); end > idx {
				line = line[:idx] + line[end+1:]
			}
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		upper := strings.ToUpper(line)
		if toolRe.MatchString(upper) || pauseRe.MatchString(upper) {
			tool++
			continue
		}

		// Determine command type
		word := upper
		if i := strings.IndexByte(upper, ' '); i >= 0 {
			word = upper[:i]
		}
		var isRapid, isArc, clockwise bool
		switch word {
		case "G0", "G00":
			isRapid = true
		case "G1", "G01":
		case "G2", "G02":
			isArc, clockwise = true, true
		case "G3", "G03":
			isArc = true
		default:
			continue
		}

		// Parse coordinates from this line
		newX, newY, newZ, newFeed := curX, curY, curZ, curFeed
		var offI, offJ float64
		matches := coordRe.FindAllStringSubmatch(upper, -1)
		for _, m := range matches {
			val, err := strconv.ParseFloat(m[2], 64)
			if err != nil {
				continue
			}
			switch m[1] {
			case "X":
				newX = val
			case "Y":
				newY = val
			case "Z":
				newZ = val
			case "F":
				newFeed = val
			case "I":
				offI = val
			case "J":
				offJ = val
			}
		}

		moveType := MoveArc
		if !isArc {
			moveType = classifyMove(isRapid, curZ, newZ, curX, curY, newX, newY)
		}

		moves = append(moves, GCodeMove{
			Type:      moveType,
			FromX:     curX,
			FromY:     curY,
			FromZ:     curZ,
			ToX:       newX,
			ToY:       newY,
			ToZ:       newZ,
			I:         offI,
			J:         offJ,
			Clockwise: clockwise,
			FeedRate:  newFeed,
			Tool:      tool,
		})

		curX, curY, curZ, curFeed = newX, newY, newZ, newFeed
	}

	return moves
}

// classifyMove determines the MoveType based on movement characteristics.
func classifyMove(isRapid bool, fromZ, toZ, fromX, fromY, toX, toY float64) MoveType {
	zDelta := toZ - fromZ
	hasXY := fromX != toX || fromY != toY

	switch {
	case isRapid:
		if zDelta > 0 {
			return MoveRetract
		}
		return MoveRapid
	case zDelta < -0.001 && !hasXY:
		// Z going down (more negative) without XY movement = plunge
		return MovePlunge
	case zDelta > 0.001 && !hasXY:
		// Z going up without XY movement = retract
		return MoveRetract
	default:
		return MoveFeed
	}
}

// Stats summarises a parsed program.
type Stats struct {
	ToolLoads   int
	Plunges     []int   // per tool load, index 0 is the first load
	RapidLength float64 // XY travel at rapid, mm
	CutLength   float64 // XY travel while feeding, mm
}

// Summarize counts plunges per tool load and totals XY travel.
func Summarize(moves []GCodeMove) Stats {
	var s Stats
	for _, m := range moves {
		if m.Tool > s.ToolLoads {
			s.ToolLoads = m.Tool
			for len(s.Plunges) < s.ToolLoads {
				s.Plunges = append(s.Plunges, 0)
			}
		}
		switch m.Type {
		case MovePlunge:
			if m.Tool > 0 {
				s.Plunges[m.Tool-1]++
			}
		case MoveRapid, MoveRetract:
			s.RapidLength += m.XYLength()
		case MoveFeed, MoveArc:
			s.CutLength += m.XYLength()
		}
	}
	return s
}

// Check parses program back and compares it with plan: one load per tool
// and one plunge per hit.
func Check(plan model.Plan, program string) (Stats, error) {
	s := Summarize(ParseGCode(program))
	tools := plan.Assignment.Tools
	if s.ToolLoads != len(tools) {
		return s, fmt.Errorf("program loads %d tools, plan has %d", s.ToolLoads, len(tools))
	}
	for i, tp := range tools {
		if s.Plunges[i] != tp.Hits() {
			return s, fmt.Errorf("tool %d (%s): %d plunges, plan has %d hits", i+1, tp.Bit, s.Plunges[i], tp.Hits())
		}
	}
	return s, nil
}
