package model

import (
	"os"
	"path/filepath"
	"slices"
)

// Settings holds every tunable of a machining run. It is built once at
// startup (defaults merged with the user's overrides) and passed by value;
// nothing changes it afterwards. Lengths are micrometres unless noted.
type Settings struct {
	// Stock bit catalogs, ascending.
	DrillSizes  []int `json:"drill_sizes"`
	RouterSizes []int `json:"router_sizes"`

	// Size matching tolerances in percent. Oversizing is preferred since
	// plating shrinks holes.
	MaxOversizePct  float64 `json:"max_oversize_pct"`
	MaxDownsizePct  float64 `json:"max_downsize_pct"`
	MinBitDiameter  int     `json:"min_bit_diameter"` // absolute range accepted in racks
	MaxBitDiameter  int     `json:"max_bit_diameter"`
	SlotPeckDivisor int     `json:"slot_peck_divisor"` // peck spacing is width / divisor

	// Bit geometry and backing (martyr) board
	PointAngleDeg   float64 `json:"point_angle_deg"`
	MinExitDepth    int     `json:"min_exit_depth"`    // straight shaft past the board
	MaxBackingDepth int     `json:"max_backing_depth"` // deepest allowed cut into the backing board

	EdgeRouterDiameter int    `json:"edge_router_diameter"`
	RackSize           int    `json:"rack_size"` // slots for a generated rack file, 0 = manual
	RackFile           string `json:"rack_file"`

	// Travel optimisation: exact solver up to this many points, heuristic above
	TravelExactLimit int `json:"travel_exact_limit"`
	TravelMaxPasses  int `json:"travel_max_passes"`

	// Program formatting
	GCodeProfile    string  `json:"gcode_profile"`
	BoardThickness  int     `json:"board_thickness"`
	SafeZ           int     `json:"safe_z"`
	SpindleSpeed    int     `json:"spindle_speed"` // RPM
	MinSpindleSpeed int     `json:"min_spindle_speed"`
	MaxSpindleSpeed int     `json:"max_spindle_speed"`
	MinZFeed        float64 `json:"min_z_feed"` // mm/min
	MaxZFeed        float64 `json:"max_z_feed"`
	RouterFeed      float64 `json:"router_feed"` // table feed, mm/min
}

// DefaultConfigDir returns ~/.pcbdrill, or ./.pcbdrill when there is no home.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".pcbdrill")
}

func DefaultSettings() Settings {
	return Settings{
		DrillSizes:         []int{500, 600, 700, 800, 1000, 1200, 1400, 1500, 2000},
		RouterSizes:        []int{800, 1000, 1500},
		MaxOversizePct:     5,
		MaxDownsizePct:     10,
		MinBitDiameter:     100,
		MaxBitDiameter:     6000,
		SlotPeckDivisor:    4,
		PointAngleDeg:      135,
		MinExitDepth:       700,
		MaxBackingDepth:    1500,
		EdgeRouterDiameter: 1500,
		RackSize:           0,
		RackFile:           filepath.Join(DefaultConfigDir(), "rack.yaml"),
		TravelExactLimit:   12,
		TravelMaxPasses:    50,
		GCodeProfile:       "Generic",
		BoardThickness:     1600,
		SafeZ:              2000,
		SpindleSpeed:       24000,
		MinSpindleSpeed:    10000,
		MaxSpindleSpeed:    24000,
		MinZFeed:           200,
		MaxZFeed:           2000,
		RouterFeed:         600,
	}
}

// IsStandardDrill reports whether um is in the drill catalog.
func (s Settings) IsStandardDrill(um int) bool {
	return slices.Contains(s.DrillSizes, um)
}

// IsStandardRouter reports whether um is in the router catalog.
func (s Settings) IsStandardRouter(um int) bool {
	return slices.Contains(s.RouterSizes, um)
}

// IsStandard reports whether the bit is a stock catalog item for its kind.
func (s Settings) IsStandard(b Bit) bool {
	if b.Kind == Router {
		return s.IsStandardRouter(b.Diameter)
	}
	return s.IsStandardDrill(b.Diameter)
}

// Catalog returns the stock sizes for a bit kind.
func (s Settings) Catalog(kind BitKind) []int {
	if kind == Router {
		return s.RouterSizes
	}
	return s.DrillSizes
}

// WithinAbsoluteRange reports whether a diameter is physically plausible.
func (s Settings) WithinAbsoluteRange(um int) bool {
	return um >= s.MinBitDiameter && um <= s.MaxBitDiameter
}
