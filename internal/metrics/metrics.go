// Package metrics exposes a plan as Prometheus gauges, written in the
// node-exporter textfile format.
package metrics

import (
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/piwi3910/pcbdrill/internal/model"
)

const namespace = "pcbdrill"

// Collector holds the gauges for one plan on its own registry.
type Collector struct {
	Registry *prometheus.Registry

	toolHits    *prometheus.GaugeVec
	toolRouted  *prometheus.GaugeVec
	tools       prometheus.Gauge
	warnings    prometheus.Gauge
	travel      prometheus.Gauge
	rackSlots   prometheus.Gauge
	planCreated *prometheus.GaugeVec
}

func New() *Collector {
	labels := []string{"bit", "kind", "slot"}
	c := &Collector{
		Registry: prometheus.NewRegistry(),
		toolHits: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tool_hits",
			Help:      "Plunges per tool in the last plan.",
		}, labels),
		toolRouted: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tool_routed_millimetres",
			Help:      "Routed length per tool in the last plan.",
		}, labels),
		tools: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tools",
			Help:      "Number of tools used by the last plan.",
		}),
		warnings: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "warnings",
			Help:      "Warnings raised while planning.",
		}),
		travel: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "travel_millimetres",
			Help:      "Planned XY travel between plunges.",
		}),
		rackSlots: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rack_slots",
			Help:      "Rack capacity, 0 for manual tool change.",
		}),
		planCreated: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "plan_created_timestamp_seconds",
			Help:      "Creation time of the last plan.",
		}, []string{"board", "plan"}),
	}
	c.Registry.MustRegister(c.toolHits, c.toolRouted, c.tools, c.warnings, c.travel, c.rackSlots, c.planCreated)
	return c
}

// Observe replaces the gauges with the values of plan.
func (c *Collector) Observe(plan model.Plan) {
	c.toolHits.Reset()
	c.toolRouted.Reset()
	c.planCreated.Reset()

	for _, tp := range plan.Assignment.Tools {
		lv := []string{tp.Bit.String(), tp.Bit.Kind.String(), strconv.Itoa(tp.Slot)}
		c.toolHits.WithLabelValues(lv...).Set(float64(tp.Hits()))
		if tp.Bit.Kind == model.Router {
			c.toolRouted.WithLabelValues(lv...).Set(tp.RouteLength() / 1000)
		}
	}
	c.tools.Set(float64(plan.ToolChanges()))
	c.warnings.Set(float64(len(plan.Warnings)))
	c.travel.Set(plan.Travel / 1000)
	c.rackSlots.Set(float64(plan.RackCapacity))
	c.planCreated.WithLabelValues(plan.Board, plan.ID).Set(float64(plan.CreatedAt.Unix()))
}

// WriteTextfile writes the plan's metrics to path for the node exporter
// textfile collector.
func WriteTextfile(path string, plan model.Plan) error {
	c := New()
	c.Observe(plan)
	if err := prometheus.WriteToTextfile(path, c.Registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}
