package engine

import (
	"math"

	"github.com/piwi3910/pcbdrill/internal/model"
)

// DepthModel decides whether a drill bit can break through the board into
// the backing board without its tip going too deep.
type DepthModel struct {
	PointAngleDeg   float64
	MinExitDepth    int
	MaxBackingDepth int
}

func NewDepthModel(settings model.Settings) DepthModel {
	return DepthModel{
		PointAngleDeg:   settings.PointAngleDeg,
		MinExitDepth:    settings.MinExitDepth,
		MaxBackingDepth: settings.MaxBackingDepth,
	}
}

func (d DepthModel) ratio() float64 {
	return math.Tan((180 - d.PointAngleDeg) / 2 * math.Pi / 180)
}

// TipLength returns the length of the conical tip of a bit, in micrometres.
func (d DepthModel) TipLength(diameter int) float64 {
	return float64(diameter) * d.ratio()
}

// RequiredExitDepth is the depth into the backing board needed for the full
// diameter to exit the board.
func (d DepthModel) RequiredExitDepth(diameter int) float64 {
	return d.TipLength(diameter) + float64(d.MinExitDepth)
}

// CanExitCleanly reports whether the bit fits in the backing board.
func (d DepthModel) CanExitCleanly(diameter int) bool {
	return d.RequiredExitDepth(diameter) <= float64(d.MaxBackingDepth)
}

// MaxCleanDiameter returns the largest diameter that exits cleanly, or 0.
func (d DepthModel) MaxCleanDiameter() int {
	r := d.ratio()
	room := float64(d.MaxBackingDepth - d.MinExitDepth)
	if room < 0 {
		return 0
	}
	if r <= 0 {
		return math.MaxInt32
	}
	dia := int(math.Floor(room / r))
	for dia > 0 && !d.CanExitCleanly(dia) {
		dia--
	}
	for d.CanExitCleanly(dia + 1) {
		dia++
	}
	return dia
}
