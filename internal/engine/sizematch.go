package engine

import (
	"math"
	"slices"

	"github.com/piwi3910/pcbdrill/internal/model"
)

// Matcher finds the nearest stock bit size for a requested diameter.
// Oversizing is allowed up to OverPct since plating shrinks holes,
// downsizing up to DownPct.
type Matcher struct {
	OverPct float64
	DownPct float64
}

func NewMatcher(settings model.Settings) Matcher {
	return Matcher{OverPct: settings.MaxOversizePct, DownPct: settings.MaxDownsizePct}
}

// Match returns the candidate closest to requested within tolerance. With
// allowLarger false nothing above requested is considered. Candidates are
// scanned from the largest down, so on equal distance the larger one wins.
func (m Matcher) Match(requested int, candidates []int, allowLarger bool) (int, bool) {
	sorted := slices.Clone(candidates)
	slices.Sort(sorted)

	upper := float64(requested) * (1 + m.OverPct/100)
	lower := float64(requested) * (1 - m.DownPct/100)

	best, bestDiff := 0, math.MaxInt
	for i := len(sorted) - 1; i >= 0; i-- {
		size := sorted[i]
		if allowLarger {
			if float64(size) > upper {
				continue
			}
		} else if size > requested {
			continue
		}
		if float64(size) < lower {
			break
		}

		diff := requested - size
		if diff < 0 {
			diff = -diff
		}
		if diff == 0 {
			return size, true
		}
		if diff < bestDiff {
			best, bestDiff = size, diff
		}
	}
	return best, bestDiff != math.MaxInt
}
