package project

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/BurntSushi/toml"

	"github.com/piwi3910/pcbdrill/internal/model"
)

// DefaultSettingsPath returns ~/.pcbdrill/settings.toml.
func DefaultSettingsPath() string {
	return filepath.Join(model.DefaultConfigDir(), "settings.toml")
}

// FileConfig is the settings file. Every field is optional and overrides the
// built-in default. Lengths are millimetres.
type FileConfig struct {
	Bits   BitsConfig   `toml:"bits"`
	Depth  DepthConfig  `toml:"depth"`
	Rack   RackConfig   `toml:"rack"`
	Travel TravelConfig `toml:"travel"`
	GCode  GCodeConfig  `toml:"gcode"`
}

type BitsConfig struct {
	Drills      []float64 `toml:"drills"`
	Routers     []float64 `toml:"routers"`
	OversizePct *float64  `toml:"oversize-pct"`
	DownsizePct *float64  `toml:"downsize-pct"`
	Min         *float64  `toml:"min"`
	Max         *float64  `toml:"max"`
	PeckDivisor *int      `toml:"peck-divisor"`
	EdgeRouter  *float64  `toml:"edge-router"`
}

type DepthConfig struct {
	PointAngle  *float64 `toml:"point-angle"`
	MinExit     *float64 `toml:"min-exit"`
	MaxBacking  *float64 `toml:"max-backing"`
	BoardHeight *float64 `toml:"board-thickness"`
}

type RackConfig struct {
	Size *int    `toml:"size"`
	File *string `toml:"file"`
}

type TravelConfig struct {
	ExactLimit *int `toml:"exact-limit"`
	MaxPasses  *int `toml:"max-passes"`
}

type GCodeConfig struct {
	Profile         *string  `toml:"profile"`
	SafeZ           *float64 `toml:"safe-z"`
	SpindleSpeed    *int     `toml:"spindle-speed"`
	MinSpindleSpeed *int     `toml:"min-spindle-speed"`
	MaxSpindleSpeed *int     `toml:"max-spindle-speed"`
	MinZFeed        *float64 `toml:"min-z-feed"`
	MaxZFeed        *float64 `toml:"max-z-feed"`
	RouterFeed      *float64 `toml:"router-feed"`
}

// LoadConfig reads a TOML settings file. A missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("settings path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat settings: %w", err)
	}
	var cfg FileConfig
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode settings: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown settings key %q in %s", undecoded[0].String(), path)
	}
	return cfg, nil
}

// LoadSettings returns the defaults with the file at path applied on top.
func LoadSettings(path string) (model.Settings, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return model.Settings{}, err
	}
	s := cfg.Apply(model.DefaultSettings())
	if err := Validate(s); err != nil {
		return model.Settings{}, fmt.Errorf("invalid settings in %s: %w", path, err)
	}
	return s, nil
}

// Apply returns base with every set field of the file overriding it.
func (c FileConfig) Apply(base model.Settings) model.Settings {
	s := base
	if c.Bits.Drills != nil {
		s.DrillSizes = toUM(c.Bits.Drills)
	}
	if c.Bits.Routers != nil {
		s.RouterSizes = toUM(c.Bits.Routers)
	}
	setFloat(&s.MaxOversizePct, c.Bits.OversizePct)
	setFloat(&s.MaxDownsizePct, c.Bits.DownsizePct)
	setUM(&s.MinBitDiameter, c.Bits.Min)
	setUM(&s.MaxBitDiameter, c.Bits.Max)
	setInt(&s.SlotPeckDivisor, c.Bits.PeckDivisor)
	setUM(&s.EdgeRouterDiameter, c.Bits.EdgeRouter)

	setFloat(&s.PointAngleDeg, c.Depth.PointAngle)
	setUM(&s.MinExitDepth, c.Depth.MinExit)
	setUM(&s.MaxBackingDepth, c.Depth.MaxBacking)
	setUM(&s.BoardThickness, c.Depth.BoardHeight)

	setInt(&s.RackSize, c.Rack.Size)
	if c.Rack.File != nil {
		s.RackFile = expandHome(*c.Rack.File)
	}

	setInt(&s.TravelExactLimit, c.Travel.ExactLimit)
	setInt(&s.TravelMaxPasses, c.Travel.MaxPasses)

	if c.GCode.Profile != nil {
		s.GCodeProfile = *c.GCode.Profile
	}
	setUM(&s.SafeZ, c.GCode.SafeZ)
	setInt(&s.SpindleSpeed, c.GCode.SpindleSpeed)
	setInt(&s.MinSpindleSpeed, c.GCode.MinSpindleSpeed)
	setInt(&s.MaxSpindleSpeed, c.GCode.MaxSpindleSpeed)
	setFloat(&s.MinZFeed, c.GCode.MinZFeed)
	setFloat(&s.MaxZFeed, c.GCode.MaxZFeed)
	setFloat(&s.RouterFeed, c.GCode.RouterFeed)
	return s
}

// Validate rejects settings the engine cannot work with.
func Validate(s model.Settings) error {
	switch {
	case len(s.DrillSizes) == 0:
		return fmt.Errorf("drill catalog is empty")
	case s.MaxOversizePct < 0 || s.MaxDownsizePct < 0 || s.MaxDownsizePct >= 100:
		return fmt.Errorf("size tolerances must be between 0 and 100 percent")
	case s.MinBitDiameter <= 0 || s.MaxBitDiameter < s.MinBitDiameter:
		return fmt.Errorf("bit diameter range %g-%gmm is invalid", model.MM(s.MinBitDiameter), model.MM(s.MaxBitDiameter))
	case s.PointAngleDeg <= 0 || s.PointAngleDeg >= 180:
		return fmt.Errorf("point angle %g is not between 0 and 180 degrees", s.PointAngleDeg)
	case s.SlotPeckDivisor <= 0:
		return fmt.Errorf("peck divisor must be positive")
	case s.EdgeRouterDiameter <= 0:
		return fmt.Errorf("edge router diameter must be positive")
	case s.RackSize < 0:
		return fmt.Errorf("rack size cannot be negative")
	}
	for _, um := range append(append([]int{}, s.DrillSizes...), s.RouterSizes...) {
		if !s.WithinAbsoluteRange(um) {
			return fmt.Errorf("catalog size %gmm is outside %g-%gmm", model.MM(um), model.MM(s.MinBitDiameter), model.MM(s.MaxBitDiameter))
		}
	}
	return nil
}

// SaveSettings writes every setting to path so the operator can edit it.
func SaveSettings(path string, s model.Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create settings file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(ToConfig(s)); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}

// ToConfig is the inverse of Apply on the defaults.
func ToConfig(s model.Settings) FileConfig {
	mm := func(um int) *float64 {
		v := model.MM(um)
		return &v
	}
	return FileConfig{
		Bits: BitsConfig{
			Drills:      toMM(s.DrillSizes),
			Routers:     toMM(s.RouterSizes),
			OversizePct: &s.MaxOversizePct,
			DownsizePct: &s.MaxDownsizePct,
			Min:         mm(s.MinBitDiameter),
			Max:         mm(s.MaxBitDiameter),
			PeckDivisor: &s.SlotPeckDivisor,
			EdgeRouter:  mm(s.EdgeRouterDiameter),
		},
		Depth: DepthConfig{
			PointAngle:  &s.PointAngleDeg,
			MinExit:     mm(s.MinExitDepth),
			MaxBacking:  mm(s.MaxBackingDepth),
			BoardHeight: mm(s.BoardThickness),
		},
		Rack:   RackConfig{Size: &s.RackSize, File: &s.RackFile},
		Travel: TravelConfig{ExactLimit: &s.TravelExactLimit, MaxPasses: &s.TravelMaxPasses},
		GCode: GCodeConfig{
			Profile:         &s.GCodeProfile,
			SafeZ:           mm(s.SafeZ),
			SpindleSpeed:    &s.SpindleSpeed,
			MinSpindleSpeed: &s.MinSpindleSpeed,
			MaxSpindleSpeed: &s.MaxSpindleSpeed,
			MinZFeed:        &s.MinZFeed,
			MaxZFeed:        &s.MaxZFeed,
			RouterFeed:      &s.RouterFeed,
		},
	}
}

// toUM converts a catalog to micrometres, ascending.
func toUM(mm []float64) []int {
	out := make([]int, len(mm))
	for i, v := range mm {
		out[i] = model.UM(v)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func toMM(um []int) []float64 {
	out := make([]float64, len(um))
	for i, v := range um {
		out[i] = model.MM(v)
	}
	return out
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setUM(dst *int, mm *float64) {
	if mm != nil {
		*dst = model.UM(*mm)
	}
}

func expandHome(path string) string {
	if len(path) < 2 || path[:2] != "~/" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
