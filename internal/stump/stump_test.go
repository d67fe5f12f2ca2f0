package stump

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janpfeifer/multiboost/internal/data"
	"github.com/janpfeifer/multiboost/internal/sortedcol"
)

// Scenario 1 from spec §8: x=[0,0,1,1], y=[-1,-1,+1,+1], uniform weights.
func TestSearchFindsPerfectSplitScenario1(t *testing.T) {
	ds := data.NewDataset(1, []string{"pos"}, false)
	xs := []float64{0, 0, 1, 1}
	ys := []int8{-1, -1, 1, 1}
	for i := range xs {
		ds.AddExample(&data.Example{
			Dense:  []float64{xs[i]},
			Labels: []data.Label{{Y: ys[i], UserWeight: 1}},
		})
	}
	require.NoError(t, ds.InitWeights(data.Proportional))
	col := sortedcol.Build(ds, 0)
	view := data.NewInputData(ds)

	result := Search(col, view, 1)
	require.Equal(t, 0, result.BestClass)
	cut := result.PerClass[0]
	require.False(t, math.IsNaN(cut.Threshold))
	assert.InDelta(t, 0.5, cut.Threshold, 1e-9)
	// All 4 examples correctly separated at weight 1/4 each: edge magnitude is 1.0,
	// half-edge is 0.5.
	assert.InDelta(t, 0.5, math.Abs(cut.HalfEdge), 1e-9)
}

func TestSearchDegenerateReturnsNaN(t *testing.T) {
	ds := data.NewDataset(1, []string{"a"}, false)
	for i := 0; i < 3; i++ {
		ds.AddExample(&data.Example{Dense: []float64{1}, Labels: []data.Label{{Y: 1, UserWeight: 1}}})
	}
	require.NoError(t, ds.InitWeights(data.Proportional))
	col := sortedcol.Build(ds, 0)
	view := data.NewInputData(ds)

	result := Search(col, view, 1)
	assert.Equal(t, -1, result.BestClass)
	assert.True(t, math.IsNaN(result.PerClass[0].Threshold))
}

func TestSearchTieBreakPrefersEarliestCut(t *testing.T) {
	// Two candidate cuts with identical half-edge magnitude: the earliest one found
	// during the ascending sweep must win.
	ds := data.NewDataset(1, []string{"a"}, false)
	xs := []float64{0, 1, 2, 3}
	ys := []int8{-1, 1, -1, 1}
	for i := range xs {
		ds.AddExample(&data.Example{Dense: []float64{xs[i]}, Labels: []data.Label{{Y: ys[i], UserWeight: 1}}})
	}
	require.NoError(t, ds.InitWeights(data.Proportional))
	col := sortedcol.Build(ds, 0)
	view := data.NewInputData(ds)
	result := Search(col, view, 1)
	require.False(t, math.IsNaN(result.PerClass[0].Threshold))
	assert.InDelta(t, 0.5, result.PerClass[0].Threshold, 1e-9)
}
