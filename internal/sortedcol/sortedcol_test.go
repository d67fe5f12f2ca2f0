package sortedcol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janpfeifer/multiboost/internal/data"
)

func TestBuildIsMonotoneAndTieBreaksOnRawIndex(t *testing.T) {
	ds := data.NewDataset(1, []string{"a"}, false)
	values := []float64{3, 1, 1, 2, 1}
	for _, v := range values {
		ds.AddExample(&data.Example{Dense: []float64{v}, Labels: []data.Label{{Y: 1}}})
	}
	col := Build(ds, 0)
	require.Equal(t, len(values), col.Len())

	view := data.NewInputData(ds)
	var gotRaw []int
	var gotVal []float64
	last := -1.0
	for logical, v := range col.Forward(view) {
		assert.GreaterOrEqual(t, v, last)
		last = v
		gotRaw = append(gotRaw, view.RawIndex(logical))
		gotVal = append(gotVal, v)
	}
	// Ties among raw indices 1, 2, 4 (all value 1) must come out in raw-index order.
	assert.Equal(t, []int{1, 2, 4, 3, 0}, gotRaw)
	assert.Equal(t, []float64{1, 1, 1, 2, 3}, gotVal)
}

func TestForwardSkipsFilteredExamples(t *testing.T) {
	ds := data.NewDataset(1, []string{"a"}, false)
	for _, v := range []float64{5, 4, 3, 2, 1} {
		ds.AddExample(&data.Example{Dense: []float64{v}, Labels: []data.Label{{Y: 1}}})
	}
	col := Build(ds, 0)
	full := data.NewInputData(ds)
	evens := full.Filter(func(raw int, ex *data.Example) bool { return raw%2 == 0 })

	var vals []float64
	for _, v := range col.Forward(evens) {
		vals = append(vals, v)
	}
	// Raw indices 0,2,4 have values 5,3,1: ascending order is 1,3,5.
	assert.Equal(t, []float64{1, 3, 5}, vals)
}

func TestReverseIsDescending(t *testing.T) {
	ds := data.NewDataset(1, []string{"a"}, false)
	for _, v := range []float64{1, 2, 3} {
		ds.AddExample(&data.Example{Dense: []float64{v}, Labels: []data.Label{{Y: 1}}})
	}
	col := Build(ds, 0)
	view := data.NewInputData(ds)
	var vals []float64
	for _, v := range col.Reverse(view) {
		vals = append(vals, v)
	}
	assert.Equal(t, []float64{3, 2, 1}, vals)
}

func TestSparseSynthesizesZeroEntries(t *testing.T) {
	ds := data.NewDataset(3, []string{"a"}, true)
	ds.AddExample(&data.Example{SparseIdx: []int{1}, SparseVal: []float64{5}, Labels: []data.Label{{Y: 1}}})
	ds.AddExample(&data.Example{SparseIdx: []int{0}, SparseVal: []float64{-2}, Labels: []data.Label{{Y: 1}}})
	col := Build(ds, 1)
	view := data.NewInputData(ds)
	var vals []float64
	for _, v := range col.Forward(view) {
		vals = append(vals, v)
	}
	// Example 1 has no entry for feature 1, so it synthesizes 0.
	assert.Equal(t, []float64{0, 5}, vals)
}
