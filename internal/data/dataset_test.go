package data

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoClassFourExamples() *Dataset {
	ds := NewDataset(1, []string{"neg", "pos"}, false)
	mk := func(x float64, y0, y1 int8) *Example {
		return &Example{
			Dense: []float64{x},
			Labels: []Label{
				{Y: y0, UserWeight: 1},
				{Y: y1, UserWeight: 1},
			},
		}
	}
	ds.AddExample(mk(0, 1, -1))
	ds.AddExample(mk(0, 1, -1))
	ds.AddExample(mk(1, -1, 1))
	ds.AddExample(mk(1, -1, 1))
	return ds
}

func TestInitWeightsSumsToOne(t *testing.T) {
	for _, policy := range []WeightPolicy{SharePoints, ShareLabels, Proportional, Balanced} {
		ds := twoClassFourExamples()
		require.NoError(t, ds.InitWeights(policy), "policy=%v", policy)
		var sum float64
		for _, ex := range ds.Examples {
			for _, lbl := range ex.Labels {
				sum += lbl.Weight
				assert.Equal(t, lbl.Weight, lbl.InitWeight, "policy=%v: InitWeight must be frozen at init", policy)
			}
		}
		assert.InDelta(t, 1.0, sum, 1e-6, "policy=%v", policy)
	}
}

func TestSharePointsSplitsEvenlyAcrossSign(t *testing.T) {
	ds := twoClassFourExamples()
	require.NoError(t, ds.InitWeights(SharePoints))
	// Each example has exactly one positive and one negative label, so each label
	// gets half of 1/N.
	for _, ex := range ds.Examples {
		for _, lbl := range ex.Labels {
			assert.InDelta(t, 1.0/8.0, lbl.Weight, 1e-9)
		}
	}
}

func TestBalancedSplitsPerClass(t *testing.T) {
	ds := twoClassFourExamples()
	require.NoError(t, ds.InitWeights(Balanced))
	counts := ds.ClassCounts()
	require.Equal(t, 2, counts[0])
	require.Equal(t, 2, counts[1])
	for _, ex := range ds.Examples {
		for _, lbl := range ex.Labels {
			if lbl.Y > 0 {
				assert.InDelta(t, 1.0/(2*2*2), lbl.Weight, 1e-9)
			} else {
				assert.InDelta(t, 1.0/(2*2*2), lbl.Weight, 1e-9)
			}
		}
	}
}

func TestModalValueAndMissingRematerialization(t *testing.T) {
	ds := NewDataset(1, []string{"a"}, false)
	ds.AddExample(&Example{Dense: []float64{1}, Labels: []Label{{Y: 1}}})
	ds.AddExample(&Example{Dense: []float64{1}, Labels: []Label{{Y: 1}}})
	ds.AddExample(&Example{Dense: []float64{2}, Labels: []Label{{Y: 1}}})
	missing := &Example{Dense: []float64{math.NaN()}, Labels: []Label{{Y: 1}}}
	ds.AddExample(missing)

	assert.Equal(t, 1.0, ds.ModalValue(0))
	assert.Equal(t, 1.0, ds.ValueOrModal(missing, 0))
}

func TestSparseValueSynthesizesZero(t *testing.T) {
	ex := &Example{SparseIdx: []int{2, 5}, SparseVal: []float64{3.5, -1}}
	assert.True(t, ex.IsSparse())
	assert.True(t, math.IsNaN(ex.Value(0)))
	assert.Equal(t, 0.0, ex.SparseValueOrZero(0))
	assert.Equal(t, 3.5, ex.SparseValueOrZero(2))
}

func TestInputDataFilterPreservesRawOwnership(t *testing.T) {
	ds := twoClassFourExamples()
	full := NewInputData(ds)
	require.Equal(t, 4, full.Len())

	evens := full.Filter(func(raw int, ex *Example) bool { return raw%2 == 0 })
	assert.Equal(t, 2, evens.Len())
	assert.Same(t, ds.Examples[0], evens.Example(0))
	assert.Same(t, ds.Examples[2], evens.Example(1))
	assert.Equal(t, 0, evens.LogicalIndex(0))
	assert.Equal(t, -1, evens.LogicalIndex(1))

	// Filtering must never mutate the parent view or the dataset.
	assert.Equal(t, 4, full.Len())
	assert.Equal(t, 4, ds.NumExamples())

	full.Reset()
	assert.Equal(t, 4, full.Len())
}
