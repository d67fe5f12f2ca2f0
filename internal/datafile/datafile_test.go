package datafile

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janpfeifer/multiboost/internal/data"
)

func sampleDataset() *data.Dataset {
	ds := data.NewDataset(2, []string{"a", "b"}, false)
	ds.AddExample(&data.Example{
		Name:  "ex0",
		Dense: []float64{0.5, 1.5},
		Labels: []data.Label{
			{Y: 1, UserWeight: 1},
			{Y: -1, UserWeight: 1},
		},
	})
	ds.AddExample(&data.Example{
		Name:  "ex1",
		Dense: []float64{2.5, 3.5},
		Labels: []data.Label{
			{Y: -1, UserWeight: 2},
			{Y: 1, UserWeight: 1},
		},
	})
	return ds
}

func TestEncodeDecodeRoundTripsDenseExamples(t *testing.T) {
	ds := sampleDataset()
	var buf bytes.Buffer
	require.NoError(t, Encode(ds, &buf))

	got, err := Decode(&buf)
	require.NoError(t, err)
	require.Equal(t, ds.NumFeatures, got.NumFeatures)
	require.Equal(t, ds.ClassNames, got.ClassNames)
	require.Len(t, got.Examples, 2)
	for i, ex := range got.Examples {
		want := ds.Examples[i]
		assert.Equal(t, want.Name, ex.Name)
		assert.Equal(t, want.Dense, ex.Dense)
		for l := range want.Labels {
			assert.Equal(t, want.Labels[l].Y, ex.Labels[l].Y)
			assert.Equal(t, want.Labels[l].UserWeight, ex.Labels[l].UserWeight)
		}
	}
}

func TestEncodeDecodeRoundTripsSparseExamples(t *testing.T) {
	ds := data.NewDataset(5, []string{"c0"}, true)
	ds.AddExample(&data.Example{
		Name:      "sparse0",
		SparseIdx: []int{1, 3},
		SparseVal: []float64{9, 7},
		Labels:    []data.Label{{Y: 1, UserWeight: 1}},
	})

	var buf bytes.Buffer
	require.NoError(t, Encode(ds, &buf))
	got, err := Decode(&buf)
	require.NoError(t, err)
	require.Len(t, got.Examples, 1)
	assert.Equal(t, []int{1, 3}, got.Examples[0].SparseIdx)
	assert.Equal(t, []float64{9, 7}, got.Examples[0].SparseVal)
	assert.True(t, got.Examples[0].IsSparse())
}

func TestDecodeRejectsMissingDatasetWrapper(t *testing.T) {
	_, err := Decode(bytes.NewBufferString("<notadataset>\n</notadataset>\n"))
	require.Error(t, err)
}
