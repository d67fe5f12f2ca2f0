package serialize

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteThenReadRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Open("multiboost")
	w.Open("weakLearner")
	w.StringField("name", "stump")
	w.FloatField("alpha", 1.0/3.0)
	w.IntField("attribute", 7)
	w.FloatsField("thresholds", []float64{0.5, -1.25, 3})
	w.Close("weakLearner")
	w.StageSeparator(2, 5, 0.75)
	w.Close("multiboost")
	require.NoError(t, w.Flush())

	r := NewReader(&buf)

	tok, ok, err := r.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "multiboost", tok.Tag)
	assert.False(t, tok.IsLeaf)

	tok, ok, err = r.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "weakLearner", tok.Tag)

	tok, ok, err = r.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "name", tok.Tag)
	assert.Equal(t, "stump", tok.Value)

	tok, ok, err = r.Next()
	require.NoError(t, err)
	alpha, err := tok.Float()
	require.NoError(t, err)
	assert.InDelta(t, 1.0/3.0, alpha, 1e-15)

	tok, ok, err = r.Next()
	require.NoError(t, err)
	attr, err := tok.Int()
	require.NoError(t, err)
	assert.Equal(t, 7, attr)

	tok, ok, err = r.Next()
	require.NoError(t, err)
	thresholds, err := tok.Floats()
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, -1.25, 3}, thresholds)

	tok, ok, err = r.Next() // </weakLearner>
	require.NoError(t, err)
	assert.True(t, tok.IsClose)
	assert.Equal(t, "weakLearner", tok.Tag)

	tok, ok, err = r.Next() // stageSeparator
	require.NoError(t, err)
	assert.True(t, tok.IsLeaf)
	assert.Equal(t, "stageSeparator", tok.Tag)
	assert.Equal(t, "2", tok.Attrs["idx"])
	assert.Equal(t, "5", tok.Attrs["nwhyp"])
	assert.Equal(t, "0.75", tok.Attrs["thresh"])

	tok, ok, err = r.Next() // </multiboost>
	require.NoError(t, err)
	assert.True(t, tok.IsClose)

	_, ok, err = r.Next()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSkipContainerSkipsUnknownTag(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Open("futureLearner")
	w.Open("nested")
	w.StringField("x", "1")
	w.Close("nested")
	w.Close("futureLearner")
	w.StringField("after", "ok")
	require.NoError(t, w.Flush())

	r := NewReader(&buf)
	tok, ok, err := r.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "futureLearner", tok.Tag)
	require.NoError(t, r.SkipContainer("futureLearner"))

	tok, ok, err = r.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "after", tok.Tag)
	assert.Equal(t, "ok", tok.Value)
}

func TestMismatchedTagsError(t *testing.T) {
	r := NewReader(bytes.NewBufferString("<a>1</b>\n"))
	_, _, err := r.Next()
	assert.Error(t, err)
}
