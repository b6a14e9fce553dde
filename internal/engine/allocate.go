package engine

import (
	"errors"
	"fmt"
	"slices"

	"github.com/piwi3910/pcbdrill/internal/model"
	"github.com/piwi3910/pcbdrill/internal/rack"
)

// Allocation is the outcome of assigning hole groups to bits.
type Allocation struct {
	Assignment model.ToolAssignment
	Rack       *rack.Rack // the input rack plus every bit the run loaded
	Warnings   []model.Warning
}

// Allocator assigns hole groups to rack bits, loading catalog bits when the
// rack has room, and falls back to pre-drill plus routing when a hole cannot
// be drilled cleanly.
type Allocator struct {
	settings model.Settings
	matcher  Matcher
	depth    DepthModel
}

func NewAllocator(settings model.Settings) *Allocator {
	return &Allocator{
		settings: settings,
		matcher:  NewMatcher(settings),
		depth:    NewDepthModel(settings),
	}
}

type allocation struct {
	a    *Allocator
	rack *rack.Rack
	work map[model.Bit]*model.ToolPath
	diag model.Diagnostics
}

// Allocate assigns every group. The current rack is not modified; the
// returned rack is a copy with the loaded bits added.
func (a *Allocator) Allocate(groups []Group, current *rack.Rack) Allocation {
	if current == nil {
		current = rack.NewManual()
	}
	run := &allocation{a: a, rack: current.Clone(), work: map[model.Bit]*model.ToolPath{}}

	for _, g := range groups {
		if g.Bit.Kind == model.Router {
			run.router(g)
		} else {
			run.drill(g)
		}
	}

	return Allocation{
		Assignment: run.assignment(),
		Rack:       run.rack,
		Warnings:   run.diag.Entries(),
	}
}

// match looks in the rack first, then in the catalog if a slot is free.
func (r *allocation) match(want model.Bit) (model.Bit, bool) {
	if size, ok := r.a.matcher.Match(want.Diameter, r.rack.Diameters(want.Kind), true); ok {
		return model.Bit{Diameter: size, Kind: want.Kind}, true
	}
	if r.rack.HasRoom() {
		if size, ok := r.a.matcher.Match(want.Diameter, r.a.settings.Catalog(want.Kind), true); ok {
			return model.Bit{Diameter: size, Kind: want.Kind}, true
		}
	}
	return model.Bit{}, false
}

func (r *allocation) drill(g Group) {
	bit, found := r.match(g.Bit)
	if found && r.a.depth.CanExitCleanly(bit.Diameter) {
		r.assign(bit, g.Points, g.Routes)
		return
	}

	if !found {
		r.diag.Warn(
			fmt.Sprintf("No drill bit within tolerance for %.3fmm (%d holes)", model.MM(g.Bit.Diameter), len(g.Points)),
			"Switching to routing",
		)
	} else {
		r.diag.Warn(
			fmt.Sprintf("Exit depth required %.3fmm for %smm bit", model.MM(int(r.a.depth.RequiredExitDepth(bit.Diameter))), bit),
			fmt.Sprintf("is greater than the depth allowed %.3fmm", model.MM(r.a.depth.MaxBackingDepth)),
			"Switching to routing",
		)
	}

	if pre, ok := r.preDrill(); ok {
		if pre.Diameter > g.Bit.Diameter {
			r.diag.Warn(
				fmt.Sprintf("Pre-drill bit %smm is larger than the %.3fmm holes", pre, model.MM(g.Bit.Diameter)),
				"The pilot pass cuts past the hole edge",
			)
		}
		r.assign(pre, g.Points, nil)
	} else {
		r.diag.Warn(
			fmt.Sprintf("No pre-drill bit for %.3fmm holes", model.MM(g.Bit.Diameter)),
			"The drill catalog is empty, the router plunges without a pilot hole",
		)
	}
	r.assign(model.RouterBit(g.Bit.Diameter), g.Points, g.Routes)
}

func (r *allocation) router(g Group) {
	bit, found := r.match(g.Bit)
	if !found {
		bit = g.Bit
		r.diag.Warn(
			fmt.Sprintf("No router bit within tolerance for %.3fmm", model.MM(g.Bit.Diameter)),
			fmt.Sprintf("A %smm router must be loaded", bit),
		)
	}
	r.assign(bit, g.Points, g.Routes)
}

// preDrill picks the largest catalog drill that exits cleanly, or else the
// largest catalog drill. It fails only on an empty catalog.
func (r *allocation) preDrill() (model.Bit, bool) {
	sizes := slices.Clone(r.a.settings.DrillSizes)
	if len(sizes) == 0 {
		return model.Bit{}, false
	}
	slices.Sort(sizes)

	for i := len(sizes) - 1; i >= 0; i-- {
		if r.a.depth.CanExitCleanly(sizes[i]) {
			return model.DrillBit(sizes[i]), true
		}
	}
	return model.DrillBit(sizes[len(sizes)-1]), true
}

// assign appends work to bit, loading the bit in the rack when needed.
func (r *allocation) assign(bit model.Bit, points []model.Point, routes []model.RouteVector) {
	tp, ok := r.work[bit]
	if !ok {
		tp = &model.ToolPath{Bit: bit}
		r.work[bit] = tp
		r.load(bit)
	}
	tp.Points = append(tp.Points, points...)
	tp.Routes = append(tp.Routes, routes...)
}

func (r *allocation) load(bit model.Bit) {
	if r.rack.Find(bit) != 0 {
		return
	}
	_, _, err := r.rack.AddBit(bit, 0)
	switch {
	case errors.Is(err, rack.ErrRackFull):
		r.diag.Warn(
			fmt.Sprintf("Rack is full, %smm bit needs a manual tool change", bit),
			fmt.Sprintf("Rack: %s", r.rack),
		)
	case err != nil:
		r.diag.Warn(fmt.Sprintf("Could not load %smm bit", bit), err.Error())
	}
}

// assignment returns the work drills first, each kind by ascending size.
func (r *allocation) assignment() model.ToolAssignment {
	bits := make([]model.Bit, 0, len(r.work))
	for b := range r.work {
		bits = append(bits, b)
	}
	slices.SortFunc(bits, func(a, b model.Bit) int {
		switch {
		case a.Less(b):
			return -1
		case b.Less(a):
			return 1
		}
		return 0
	})

	var ta model.ToolAssignment
	for _, b := range bits {
		tp := *r.work[b]
		tp.Slot = r.rack.Find(b)
		ta.Tools = append(ta.Tools, tp)
	}
	return ta
}
