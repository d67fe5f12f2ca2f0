package weak

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janpfeifer/multiboost/internal/config"
	"github.com/janpfeifer/multiboost/internal/data"
	"github.com/janpfeifer/multiboost/internal/sortedcol"
)

// perfectSplitDataset reproduces spec §8 scenario 1: x=[0,0,1,1], y=[-1,-1,+1,+1].
func perfectSplitDataset() *data.Dataset {
	ds := data.NewDataset(1, []string{"c0"}, false)
	mk := func(x float64, y int8) *data.Example {
		return &data.Example{Dense: []float64{x}, Labels: []data.Label{{Y: y, UserWeight: 1}}}
	}
	ds.AddExample(mk(0, -1))
	ds.AddExample(mk(0, -1))
	ds.AddExample(mk(1, 1))
	ds.AddExample(mk(1, 1))
	return ds
}

func trainedView(t *testing.T, ds *data.Dataset) (*data.InputData, *sortedcol.Set) {
	t.Helper()
	require.NoError(t, ds.InitWeights(data.SharePoints))
	return data.NewInputData(ds), sortedcol.BuildSet(ds)
}

func TestConstantVotesMajoritySign(t *testing.T) {
	ds := perfectSplitDataset()
	view, _ := trainedView(t, ds)
	c := NewConstant()
	require.NoError(t, c.Initialize(config.Params{}))
	_, err := c.Train(view, 1)
	require.NoError(t, err)
	// Two positive, two negative with equal weight: tie defaults to +1.
	assert.Equal(t, 1.0, c.vote[0])
}

func TestSingleStumpFindsPerfectSplit(t *testing.T) {
	ds := perfectSplitDataset()
	view, cols := trainedView(t, ds)
	s := NewStump(ModeSingleThreshold)
	s.SetColumns(cols)
	require.NoError(t, s.Initialize(config.Params{}))
	energy, err := s.Train(view, 1)
	require.NoError(t, err)
	assert.False(t, s.degenerate)
	assert.InDelta(t, 0.5, s.thresholds[0], 1e-9)
	assert.InDelta(t, 0, energy, 1e-9)
	for logical := 0; logical < view.Len(); logical++ {
		ex := view.Example(logical)
		want := float64(ex.Labels[0].Y)
		assert.Equal(t, want, s.Classify(ex, 0)*1, "example %d", logical)
	}
}

func TestSelectorStumpDegenerateFallsBackToConstant(t *testing.T) {
	ds := data.NewDataset(1, []string{"c0"}, false)
	mk := func(x float64, y int8) *data.Example {
		return &data.Example{Dense: []float64{x}, Labels: []data.Label{{Y: y, UserWeight: 1}}}
	}
	ds.AddExample(mk(0, 1))
	ds.AddExample(mk(0, 1))
	view, cols := trainedView(t, ds)
	s := NewStump(ModeSelector)
	s.SetColumns(cols)
	require.NoError(t, s.Initialize(config.Params{}))
	_, err := s.Train(view, 1)
	require.NoError(t, err)
	assert.True(t, s.degenerate)
}

func TestOneClassStumpOnlyOptimizesOneClass(t *testing.T) {
	ds := data.NewDataset(1, []string{"c0", "c1"}, false)
	mk := func(x float64, y0, y1 int8) *data.Example {
		return &data.Example{Dense: []float64{x}, Labels: []data.Label{
			{Y: y0, UserWeight: 1}, {Y: y1, UserWeight: 1},
		}}
	}
	ds.AddExample(mk(0, -1, 1))
	ds.AddExample(mk(0, -1, -1))
	ds.AddExample(mk(1, 1, 1))
	ds.AddExample(mk(1, 1, -1))
	view, cols := trainedView(t, ds)
	s := NewStump(ModeOneClass)
	s.SetColumns(cols)
	require.NoError(t, s.Initialize(config.Params{}))
	_, err := s.Train(view, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, s.optClass)
}

func TestHaarFindsIntervalAroundPositiveExamples(t *testing.T) {
	ds := data.NewDataset(1, []string{"c0"}, false)
	mk := func(x float64, y int8) *data.Example {
		return &data.Example{Dense: []float64{x}, Labels: []data.Label{{Y: y, UserWeight: 1}}}
	}
	ds.AddExample(mk(0, -1))
	ds.AddExample(mk(1, 1))
	ds.AddExample(mk(2, 1))
	ds.AddExample(mk(3, -1))
	view, cols := trainedView(t, ds)
	h := NewHaar()
	h.SetColumns(cols)
	require.NoError(t, h.Initialize(config.Params{}))
	_, err := h.Train(view, 1)
	require.NoError(t, err)
	assert.False(t, h.degenerate)
}

func TestTreeRoutesThroughChildSplits(t *testing.T) {
	ds := perfectSplitDataset()
	view, cols := trainedView(t, ds)
	tr := NewTree()
	tr.SetColumns(cols)
	require.NoError(t, tr.Initialize(config.Params{"depth": "1"}))
	_, err := tr.Train(view, 1)
	require.NoError(t, err)
	for logical := 0; logical < view.Len(); logical++ {
		ex := view.Example(logical)
		want := float64(ex.Labels[0].Y)
		got := tr.Classify(ex, 0)
		assert.Equal(t, want > 0, got > 0, "example %d", logical)
	}
}

func TestProductMultipliesFactorOutputs(t *testing.T) {
	ds := perfectSplitDataset()
	view, cols := trainedView(t, ds)
	p := NewProduct()
	p.SetColumns(cols)
	require.NoError(t, p.Initialize(config.Params{"factors": "2"}))
	_, err := p.Train(view, 1)
	require.NoError(t, err)
	assert.NotEmpty(t, p.children)
	for logical := 0; logical < view.Len(); logical++ {
		ex := view.Example(logical)
		want := 1.0
		for _, c := range p.children {
			want *= c.Classify(ex, 0)
		}
		assert.Equal(t, want, p.Classify(ex, 0), "example %d", logical)
	}
}

func TestBanditWrapperPersistsStateAcrossTrainCalls(t *testing.T) {
	ds := perfectSplitDataset()
	view, cols := trainedView(t, ds)
	bw := NewBanditWrapper()
	require.NoError(t, bw.Initialize(config.Params{"k": "1"}))
	bw.SetColumns(cols)
	_, err := bw.Train(view, 1)
	require.NoError(t, err)
	require.True(t, bw.algoReady)
	_, err = bw.Train(view, 1)
	require.NoError(t, err)
	assert.True(t, bw.algoReady)
}
