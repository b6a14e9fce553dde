package engine

import (
	"github.com/piwi3910/pcbdrill/internal/model"
	"github.com/piwi3910/pcbdrill/internal/rack"
)

// Planner runs the whole pipeline for one board: classify, allocate, order.
type Planner struct {
	Settings model.Settings
}

func New(settings model.Settings) *Planner {
	return &Planner{Settings: settings}
}

// Result carries the plan and the rack the plan was made for.
type Result struct {
	Plan model.Plan
	Rack *rack.Rack
}

// Plan builds the machining plan for inv using the current rack. The rack is
// not modified. Only an InvariantError stops a run; every other issue is a
// warning on the plan.
func (p *Planner) Plan(inv model.Inventory, what model.MachiningWhat, current *rack.Rack) (Result, error) {
	groups, err := Classify(inv, what, p.Settings)
	if err != nil {
		return Result{}, err
	}

	alloc := NewAllocator(p.Settings).Allocate(groups.List(), current)

	travel := NewTravelOptimizer(p.Settings)
	plan := model.NewPlan(inv.Name, what)
	plan.RackCapacity = alloc.Rack.Size()
	plan.Warnings = alloc.Warnings

	for _, tp := range alloc.Assignment.Tools {
		tp.Points = travel.OrderPoints(tp.Points)
		tp.Routes = travel.OrderRoutes(tp.Routes)
		plan.Travel += toolTravel(tp)
		plan.Assignment.Tools = append(plan.Assignment.Tools, tp)
	}

	return Result{Plan: plan, Rack: alloc.Rack}, nil
}

// toolTravel is the XY distance between plunges of one tool, drill points
// first then routes.
func toolTravel(tp model.ToolPath) float64 {
	var total float64
	var last *model.Point
	hop := func(p model.Point) {
		if last != nil {
			total += last.Distance(p)
		}
		q := p
		last = &q
	}
	for _, p := range tp.Points {
		hop(p)
	}
	for _, r := range tp.Routes {
		hop(r.Start())
		q := r.End()
		last = &q
	}
	return total
}
