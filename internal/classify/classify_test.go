package classify

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janpfeifer/multiboost/internal/config"
	"github.com/janpfeifer/multiboost/internal/data"
	"github.com/janpfeifer/multiboost/internal/strong"
	"github.com/janpfeifer/multiboost/internal/weak"
)

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

func trainPerfectSplit(t *testing.T) *strong.Ensemble {
	t.Helper()
	ds := perfectSplitDataset()
	learner := &strong.AdaBoostMH{
		Dataset:  ds,
		Registry: weak.NewDefaultRegistry(),
		Opts: strong.Options{
			Iterations:      1,
			BaseLearnerName: "SingleStump",
			BaseLearnerCfg:  config.Params{},
		},
	}
	ensemble, err := learner.Train(context.Background())
	require.NoError(t, err)
	return ensemble
}

func TestClassifierWinnerTakesAllMatchesTrueLabel(t *testing.T) {
	ensemble := trainPerfectSplit(t)
	ds := perfectSplitDataset()
	c := &Classifier{Ensemble: ensemble, NumClasses: 1, Mode: WinnerTakesAll}
	for _, ex := range ds.Examples {
		pred := c.Classify(ex)
		assert.Equal(t, ex.Labels[0].Y > 0, pred.Scores[0] > 0, "example %q", ex.Name)
	}
}

func TestConfusionMatrixDiagonalOnPerfectlySeparableTwoClassDataset(t *testing.T) {
	ds := data.NewDataset(2, []string{"neg", "pos"}, false)
	mk := func(x float64, posClass int) *data.Example {
		labels := []data.Label{{Y: -1, UserWeight: 1}, {Y: -1, UserWeight: 1}}
		labels[posClass].Y = 1
		return &data.Example{Dense: []float64{x}, Labels: labels}
	}
	ds.AddExample(mk(0, 0))
	ds.AddExample(mk(0, 0))
	ds.AddExample(mk(1, 1))
	ds.AddExample(mk(1, 1))

	learner := &strong.AdaBoostMH{
		Dataset:  ds,
		Registry: weak.NewDefaultRegistry(),
		Opts: strong.Options{
			Iterations:      2,
			BaseLearnerName: "SingleStump",
			BaseLearnerCfg:  config.Params{},
		},
	}
	ensemble, err := learner.Train(context.Background())
	require.NoError(t, err)

	c := &Classifier{Ensemble: ensemble, NumClasses: 2, Mode: WinnerTakesAll}
	cm, err := NewConfusionMatrix(c, ds)
	require.NoError(t, err)
	assert.Equal(t, 4, cm.Counts[0][0]+cm.Counts[1][1])
}

func TestConfusionMatrixAccuracyCountsUnclassifiedAsWrong(t *testing.T) {
	cm := &ConfusionMatrix{
		ClassNames:   []string{"a", "b"},
		Counts:       [][]int{{3, 1}, {0, 4}},
		Unclassified: []int{0, 2},
	}
	acc := cm.Accuracy()
	assert.InDelta(t, 7.0/10.0, acc, 1e-9)
}

func TestConfusionMatrixRenderProducesOneLinePerClass(t *testing.T) {
	cm := &ConfusionMatrix{
		ClassNames:   []string{"a", "b"},
		Counts:       [][]int{{2, 0}, {0, 2}},
		Unclassified: []int{0, 0},
	}
	var buf bytes.Buffer
	cm.Render(&buf)
	lines := bytes.Count(buf.Bytes(), []byte("\n"))
	assert.Equal(t, 3, lines) // header + 2 class rows
}

func TestRestrictedZeroOneRejectsTiedScores(t *testing.T) {
	c := &Classifier{NumClasses: 2, Mode: RestrictedZeroOne}
	assert.Equal(t, -1, c.selectClass([]float64{1, 1}))
	assert.Equal(t, 0, c.selectClass([]float64{2, 1}))
}

func TestCascadeRejectsBelowStageThreshold(t *testing.T) {
	ds := perfectSplitDataset()
	require.NoError(t, ds.InitWeights(data.SharePoints))
	learner := &strong.AdaBoostMH{
		Dataset:  ds,
		Registry: weak.NewDefaultRegistry(),
		Opts: strong.Options{
			Iterations:      1,
			BaseLearnerName: "SingleStump",
			BaseLearnerCfg:  config.Params{},
		},
	}
	ensemble, err := learner.Train(context.Background())
	require.NoError(t, err)
	ensemble.StageThreshold[0] = 1e9 // impossibly high: every example is rejected

	c := &Classifier{Ensemble: ensemble, NumClasses: 1, Mode: WinnerTakesAll, Cascade: true}
	for _, ex := range ds.Examples {
		pred := c.Classify(ex)
		assert.True(t, pred.Rejected, "example %q", ex.Name)
	}
}
