package route

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prospector/internal/database"
)

func system(name string, x, y, z float64) database.VisitedSystem {
	return database.VisitedSystem{System: name, HasPos: true, X: x, Y: y, Z: z}
}

func TestPlanDirectHop(t *testing.T) {
	p := NewPlanner([]database.VisitedSystem{
		system("A", 0, 0, 0),
		system("B", 10, 0, 0),
	}, 15)

	hops, err := p.Plan("A", "B")
	require.NoError(t, err)
	require.Len(t, hops, 2)
	assert.Equal(t, "A", hops[0].System)
	assert.Equal(t, 0.0, hops[0].DistanceLY)
	assert.Equal(t, "B", hops[1].System)
	assert.InDelta(t, 10.0, hops[1].DistanceLY, 1e-9)
	assert.InDelta(t, 10.0, TotalDistance(hops), 1e-9)
}

func TestPlanMultiHop(t *testing.T) {
	// A and C are 20 ly apart, beyond the 12 ly range; B bridges them.
	p := NewPlanner([]database.VisitedSystem{
		system("A", 0, 0, 0),
		system("B", 10, 0, 0),
		system("C", 20, 0, 0),
	}, 12)

	hops, err := p.Plan("A", "C")
	require.NoError(t, err)
	require.Len(t, hops, 3)
	assert.Equal(t, []string{"A", "B", "C"}, []string{hops[0].System, hops[1].System, hops[2].System})
	assert.InDelta(t, 20.0, TotalDistance(hops), 1e-9)
}

func TestPlanPrefersShorterTotalDistance(t *testing.T) {
	// Both B and D bridge A to C; the route through B is shorter.
	p := NewPlanner([]database.VisitedSystem{
		system("A", 0, 0, 0),
		system("B", 10, 0, 0),
		system("D", 10, 8, 0),
		system("C", 20, 0, 0),
	}, 14)

	hops, err := p.Plan("A", "C")
	require.NoError(t, err)
	require.Len(t, hops, 3)
	assert.Equal(t, "B", hops[1].System)
}

func TestPlanNoRoute(t *testing.T) {
	p := NewPlanner([]database.VisitedSystem{
		system("A", 0, 0, 0),
		system("B", 100, 0, 0),
	}, 15)

	_, err := p.Plan("A", "B")
	assert.ErrorIs(t, err, ErrNoRoute)
}

func TestPlanUnknownEndpoints(t *testing.T) {
	p := NewPlanner([]database.VisitedSystem{system("A", 0, 0, 0)}, 15)

	_, err := p.Plan("A", "Nowhere")
	assert.Error(t, err)
	_, err = p.Plan("Nowhere", "A")
	assert.Error(t, err)
}

func TestPlanSameSystem(t *testing.T) {
	p := NewPlanner([]database.VisitedSystem{system("A", 0, 0, 0)}, 15)

	hops, err := p.Plan("A", "A")
	require.NoError(t, err)
	require.Len(t, hops, 1)
	assert.Equal(t, 0.0, TotalDistance(hops))
}

func TestPlannerSkipsSystemsWithoutCoordinates(t *testing.T) {
	p := NewPlanner([]database.VisitedSystem{
		system("A", 0, 0, 0),
		{System: "Old", HasPos: false},
	}, 15)

	_, err := p.Plan("A", "Old")
	assert.Error(t, err)
}

func TestDistance(t *testing.T) {
	p := NewPlanner([]database.VisitedSystem{
		system("A", 0, 0, 0),
		system("B", 3, 4, 0),
	}, 15)

	d, err := p.Distance("A", "B")
	require.NoError(t, err)
	assert.InDelta(t, 5.0, d, 1e-9)
}
