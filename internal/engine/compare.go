package engine

import (
	"fmt"

	"github.com/piwi3910/pcbdrill/internal/model"
	"github.com/piwi3910/pcbdrill/internal/rack"
)

// ComparisonScenario defines a named set of settings to compare.
type ComparisonScenario struct {
	Name     string
	Settings model.Settings
}

// ComparisonResult holds the plan and summary statistics for one scenario.
type ComparisonResult struct {
	Scenario     ComparisonScenario
	Result       Result
	ToolCount    int
	Hits         int
	RoutedLength float64 // micrometres
	Travel       float64 // micrometres
	WarningCount int
}

// CompareScenarios plans the same board under each scenario. Each scenario
// starts from the same rack. A scenario that hits an invariant error aborts
// the comparison since every scenario would.
func CompareScenarios(scenarios []ComparisonScenario, inv model.Inventory, what model.MachiningWhat, current *rack.Rack) ([]ComparisonResult, error) {
	results := make([]ComparisonResult, 0, len(scenarios))

	for _, scenario := range scenarios {
		res, err := New(scenario.Settings).Plan(inv, what, current)
		if err != nil {
			return nil, fmt.Errorf("scenario %q: %w", scenario.Name, err)
		}

		var routed float64
		for _, tp := range res.Plan.Assignment.Tools {
			routed += tp.RouteLength()
		}

		results = append(results, ComparisonResult{
			Scenario:     scenario,
			Result:       res,
			ToolCount:    res.Plan.ToolChanges(),
			Hits:         res.Plan.Assignment.TotalHits(),
			RoutedLength: routed,
			Travel:       res.Plan.Travel,
			WarningCount: len(res.Plan.Warnings),
		})
	}

	return results, nil
}

// BuildDefaultScenarios varies the size tolerances and backing board to show
// what-if alternatives to the current settings.
func BuildDefaultScenarios(base model.Settings) []ComparisonScenario {
	scenarios := []ComparisonScenario{
		{Name: "Current Settings", Settings: base},
	}

	exact := base
	exact.MaxOversizePct = 0
	exact.MaxDownsizePct = 0
	scenarios = append(scenarios, ComparisonScenario{Name: "Exact sizes only", Settings: exact})

	wide := base
	wide.MaxOversizePct = base.MaxOversizePct * 2
	wide.MaxDownsizePct = base.MaxDownsizePct * 2
	scenarios = append(scenarios, ComparisonScenario{
		Name:     fmt.Sprintf("Tolerance +%.0f%%/-%.0f%%", wide.MaxOversizePct, wide.MaxDownsizePct),
		Settings: wide,
	})

	deep := base
	deep.MaxBackingDepth = base.MaxBackingDepth * 2
	scenarios = append(scenarios, ComparisonScenario{
		Name:     fmt.Sprintf("Backing board %.1fmm", model.MM(deep.MaxBackingDepth)),
		Settings: deep,
	})

	return scenarios
}
