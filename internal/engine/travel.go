package engine

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/piwi3910/pcbdrill/internal/model"
)

// maxExactPoints bounds the exact solver whatever the settings say; its
// memory grows as n * 2^n.
const maxExactPoints = 16

// TravelOptimizer orders the visits of one tool. Up to ExactLimit points it
// solves the open path exactly; above that it runs nearest neighbour plus
// 2-opt for at most MaxPasses passes.
type TravelOptimizer struct {
	ExactLimit int
	MaxPasses  int
}

func NewTravelOptimizer(settings model.Settings) TravelOptimizer {
	return TravelOptimizer{ExactLimit: settings.TravelExactLimit, MaxPasses: settings.TravelMaxPasses}
}

// Order returns a visiting order of points as indices.
func (t TravelOptimizer) Order(points []model.Point) []int {
	n := len(points)
	if n <= 2 {
		order := make([]int, n)
		for i := range order {
			order[i] = i
		}
		return order
	}
	if n <= min(t.ExactLimit, maxExactPoints) {
		return exactOrder(points)
	}
	order := nearestNeighbour(points)
	twoOpt(points, order, t.MaxPasses)
	return order
}

// OrderPoints returns the points in visiting order.
func (t TravelOptimizer) OrderPoints(points []model.Point) []model.Point {
	order := t.Order(points)
	out := make([]model.Point, len(order))
	for i, idx := range order {
		out[i] = points[idx]
	}
	return out
}

// OrderRoutes orders route vectors by their start points.
func (t TravelOptimizer) OrderRoutes(routes []model.RouteVector) []model.RouteVector {
	starts := make([]model.Point, len(routes))
	for i, r := range routes {
		starts[i] = r.Start()
	}
	order := t.Order(starts)
	out := make([]model.RouteVector, len(order))
	for i, idx := range order {
		out[i] = routes[idx]
	}
	return out
}

// PathLength returns the open path length through points in the given order.
func PathLength(points []model.Point, order []int) float64 {
	var total float64
	for i := 1; i < len(order); i++ {
		total += points[order[i-1]].Distance(points[order[i]])
	}
	return total
}

func distanceMatrix(points []model.Point) *mat.Dense {
	n := len(points)
	d := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			v := points[i].Distance(points[j])
			d.Set(i, j, v)
			d.Set(j, i, v)
		}
	}
	return d
}

// exactOrder is Held-Karp over subsets for an open path with a free start.
func exactOrder(points []model.Point) []int {
	n := len(points)
	dist := distanceMatrix(points)
	full := 1<<n - 1

	cost := make([][]float64, 1<<n)
	parent := make([][]int, 1<<n)
	for mask := range cost {
		cost[mask] = make([]float64, n)
		parent[mask] = make([]int, n)
		for j := range cost[mask] {
			cost[mask][j] = math.Inf(1)
			parent[mask][j] = -1
		}
	}
	for j := 0; j < n; j++ {
		cost[1<<j][j] = 0
	}

	for mask := 1; mask <= full; mask++ {
		for last := 0; last < n; last++ {
			if mask&(1<<last) == 0 || math.IsInf(cost[mask][last], 1) {
				continue
			}
			for next := 0; next < n; next++ {
				if mask&(1<<next) != 0 {
					continue
				}
				nm := mask | 1<<next
				c := cost[mask][last] + dist.At(last, next)
				if c < cost[nm][next] {
					cost[nm][next] = c
					parent[nm][next] = last
				}
			}
		}
	}

	end := 0
	for j := 1; j < n; j++ {
		if cost[full][j] < cost[full][end] {
			end = j
		}
	}

	order := make([]int, n)
	mask, cur := full, end
	for i := n - 1; i >= 0; i-- {
		order[i] = cur
		prev := parent[mask][cur]
		mask &^= 1 << cur
		cur = prev
	}
	return order
}

func nearestNeighbour(points []model.Point) []int {
	n := len(points)
	visited := make([]bool, n)
	order := make([]int, 0, n)
	cur := 0
	visited[0] = true
	order = append(order, 0)
	for len(order) < n {
		best, bestDist := -1, math.Inf(1)
		for j := 0; j < n; j++ {
			if visited[j] {
				continue
			}
			if d := points[cur].Distance(points[j]); d < bestDist {
				best, bestDist = j, d
			}
		}
		visited[best] = true
		order = append(order, best)
		cur = best
	}
	return order
}

// twoOpt improves an open path in place by reversing sub-paths, including
// ones that touch either end.
func twoOpt(points []model.Point, order []int, maxPasses int) {
	n := len(order)
	d := func(a, b int) float64 { return points[order[a]].Distance(points[order[b]]) }
	const eps = 1e-9

	for pass := 0; pass < maxPasses; pass++ {
		improved := false
		for i := 0; i < n-1; i++ {
			for j := i + 1; j < n; j++ {
				// reverse order[i..j]
				var before, after float64
				if i > 0 {
					before += d(i-1, i)
					after += d(i-1, j)
				}
				if j < n-1 {
					before += d(j, j+1)
					after += d(i, j+1)
				}
				if after < before-eps {
					reverse(order[i : j+1])
					improved = true
				}
			}
		}
		if !improved {
			return
		}
	}
}

func reverse(s []int) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
