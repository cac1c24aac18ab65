// Package route plans jump routes between visited systems. Edges connect
// systems within the ship's jump range, weighted by distance, so the
// shortest path is the fewest light years traveled, not the fewest jumps.
package route

import (
	"errors"
	"fmt"
	"math"

	"github.com/dominikbraun/graph"

	"prospector/internal/database"
)

// ErrNoRoute means no chain of in-range visited systems connects the
// endpoints.
var ErrNoRoute = errors.New("no route within jump range")

// Hop is one leg of a planned route.
type Hop struct {
	System     string
	DistanceLY float64 // from the previous hop
}

// Planner builds routes over a snapshot of visited systems.
type Planner struct {
	jumpRange float64
	systems   map[string]database.VisitedSystem
}

// NewPlanner indexes the systems that have known coordinates. Systems
// visited before position logging existed are unroutable and skipped.
func NewPlanner(systems []database.VisitedSystem, jumpRangeLY float64) *Planner {
	indexed := make(map[string]database.VisitedSystem, len(systems))
	for _, s := range systems {
		if s.HasPos {
			indexed[s.System] = s
		}
	}
	return &Planner{jumpRange: jumpRangeLY, systems: indexed}
}

// Distance returns the straight-line distance in light years between two
// known systems.
func (p *Planner) Distance(from, to string) (float64, error) {
	a, ok := p.systems[from]
	if !ok {
		return 0, fmt.Errorf("unknown system %q", from)
	}
	b, ok := p.systems[to]
	if !ok {
		return 0, fmt.Errorf("unknown system %q", to)
	}
	return dist(a, b), nil
}

// Plan returns the hops from one system to another, both inclusive. The
// first hop has distance zero.
func (p *Planner) Plan(from, to string) ([]Hop, error) {
	if _, ok := p.systems[from]; !ok {
		return nil, fmt.Errorf("unknown start system %q", from)
	}
	if _, ok := p.systems[to]; !ok {
		return nil, fmt.Errorf("unknown target system %q", to)
	}
	if from == to {
		return []Hop{{System: from}}, nil
	}

	g := graph.New(graph.StringHash, graph.Weighted())
	for name := range p.systems {
		_ = g.AddVertex(name)
	}
	names := make([]string, 0, len(p.systems))
	for name := range p.systems {
		names = append(names, name)
	}
	for i, a := range names {
		for _, b := range names[i+1:] {
			d := dist(p.systems[a], p.systems[b])
			if d <= p.jumpRange {
				// Integer weights; keep two decimals of precision.
				_ = g.AddEdge(a, b, graph.EdgeWeight(int(d*100)))
			}
		}
	}

	path, err := graph.ShortestPath(g, from, to)
	if err != nil {
		return nil, fmt.Errorf("%w: %s to %s", ErrNoRoute, from, to)
	}

	hops := make([]Hop, len(path))
	for i, name := range path {
		hop := Hop{System: name}
		if i > 0 {
			hop.DistanceLY = dist(p.systems[path[i-1]], p.systems[name])
		}
		hops[i] = hop
	}
	return hops, nil
}

// TotalDistance sums the leg distances of a route.
func TotalDistance(hops []Hop) float64 {
	total := 0.0
	for _, h := range hops {
		total += h.DistanceLY
	}
	return total
}

func dist(a, b database.VisitedSystem) float64 {
	dx, dy, dz := a.X-b.X, a.Y-b.Y, a.Z-b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
