package rack

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/piwi3910/pcbdrill/internal/model"
)

var rackSpecRE = regexp.MustCompile(`T(\d+):(R?)([\d.]+)`)

type specEntry struct {
	number int
	bit    model.Bit
}

// ParseSpec reads a rack string such as "T1:.4 T2:0.5 T8:R.6" (millimetres,
// R marks a router bit). Bad entries are skipped with a warning. A string
// with no entries at all yields an empty manual rack.
func ParseSpec(spec string, settings model.Settings) (*Rack, []model.Warning) {
	var diag model.Diagnostics

	matches := rackSpecRE.FindAllStringSubmatch(spec, -1)
	if len(matches) == 0 {
		if strings.TrimSpace(spec) != "" {
			diag.Warn("Bad syntax in rack '"+spec+"', defaulting to manual",
				"Use the form T1:0.8 T2:1.0 T3:R1.5",
				"It is recommended to ABORT the machining and fix the rack")
		}
		return NewManual(), diag.Entries()
	}

	var entries []specEntry
	seen := map[int]bool{}
	highest := 0
	for _, m := range matches {
		number, err := strconv.Atoi(m[1])
		if err != nil || number < 1 {
			diag.Warn(fmt.Sprintf("Bad tool number in '%s'", m[0]))
			continue
		}
		if seen[number] {
			diag.Warn(fmt.Sprintf("Bad rack: Tool %d appears more than once", number),
				"The later entry "+m[0]+" is ignored",
				"It is recommended to ABORT the machining and fix the rack")
			continue
		}

		mm, err := strconv.ParseFloat(m[3], 64)
		if err != nil {
			diag.Warn(fmt.Sprintf("Bad tool diameter '%s' for T%d", m[3], number))
			continue
		}
		um := model.UM(mm)
		if !settings.WithinAbsoluteRange(um) {
			diag.Warn(fmt.Sprintf("Invalid tool diameter %.2f mm for T%d found in the rack", mm, number),
				"It is recommended to ABORT the machining and fix the rack")
			continue
		}

		bit := model.DrillBit(um)
		if m[2] == "R" {
			bit = model.RouterBit(um)
		}
		if !settings.IsStandard(bit) {
			diag.Warn(fmt.Sprintf("T%d in the rack has a non standard diameter %s", number, bit))
		}
		seen[number] = true
		entries = append(entries, specEntry{number: number, bit: bit})
		highest = max(highest, number)
	}

	r := New(max(settings.RackSize, highest))
	for _, e := range entries {
		if _, _, err := r.AddBit(e.bit, e.number); err != nil {
			diag.Warn(fmt.Sprintf("T%d not loaded", e.number), err.Error())
		}
	}
	return r, diag.Entries()
}
