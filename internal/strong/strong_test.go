package strong

import (
	"bytes"
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janpfeifer/multiboost/internal/config"
	"github.com/janpfeifer/multiboost/internal/data"
	"github.com/janpfeifer/multiboost/internal/serialize"
	"github.com/janpfeifer/multiboost/internal/weak"
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

// threeClassOneHotDataset reproduces spec §8 scenario 2: a three-class one-hot
// dataset with a feature that cleanly separates each class from the other two.
func threeClassOneHotDataset() *data.Dataset {
	ds := data.NewDataset(1, []string{"a", "b", "c"}, false)
	mk := func(x float64, active int) *data.Example {
		labels := make([]data.Label, 3)
		for i := range labels {
			y := int8(-1)
			if i == active {
				y = 1
			}
			labels[i] = data.Label{Y: y, UserWeight: 1}
		}
		return &data.Example{Dense: []float64{x}, Labels: labels}
	}
	ds.AddExample(mk(0, 0))
	ds.AddExample(mk(0, 0))
	ds.AddExample(mk(1, 1))
	ds.AddExample(mk(1, 1))
	ds.AddExample(mk(2, 2))
	ds.AddExample(mk(2, 2))
	return ds
}

func defaultOptions(iterations int) Options {
	return Options{
		Iterations:      iterations,
		BaseLearnerName: "SingleStump",
		BaseLearnerCfg:  config.Params{},
		EdgeOffset:      0,
		EdgeFloor:       -1,
	}
}

func TestAdaBoostMHPerfectSplitClassifiesAllExamplesInOneIteration(t *testing.T) {
	ds := perfectSplitDataset()
	learner := &AdaBoostMH{
		Dataset:  ds,
		Registry: weak.NewDefaultRegistry(),
		Opts:     defaultOptions(1),
	}
	ensemble, err := learner.Train(context.Background())
	require.NoError(t, err)
	require.Len(t, ensemble.Hypotheses, 1)
	for logical := 0; logical < ds.NumExamples(); logical++ {
		ex := ds.Examples[logical]
		want := float64(ex.Labels[0].Y)
		assert.Equal(t, want > 0, ensemble.Classify(ex, 0) > 0, "example %d", logical)
	}
}

func TestAdaBoostMHThreeClassProducesFiniteMarginsAfterThreeRounds(t *testing.T) {
	ds := threeClassOneHotDataset()
	learner := &AdaBoostMH{
		Dataset:  ds,
		Registry: weak.NewDefaultRegistry(),
		Opts:     defaultOptions(3),
	}
	ensemble, err := learner.Train(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, ensemble.Hypotheses)
	for _, h := range ensemble.Hypotheses {
		assert.False(t, math.IsNaN(h.Alpha()))
		assert.False(t, math.IsInf(h.Alpha(), 0))
	}
	for logical := 0; logical < ds.NumExamples(); logical++ {
		ex := ds.Examples[logical]
		for l := range ex.Labels {
			margin := ensemble.Classify(ex, l)
			assert.False(t, math.IsNaN(margin), "example %d class %d", logical, l)
		}
	}
}

func TestAdaBoostMHWeightsSumToOneAfterEveryUpdate(t *testing.T) {
	ds := perfectSplitDataset()
	require.NoError(t, ds.InitWeights(data.SharePoints))
	tc := newTrainContext(ds, weak.NewDefaultRegistry())
	opts := defaultOptions(1)
	h, _, err := trainOneRound(tc, opts)
	require.NoError(t, err)
	applyWeightUpdate(tc.view, h, tc.numClasses)

	var sum float64
	for logical := 0; logical < tc.view.Len(); logical++ {
		ex := tc.view.Example(logical)
		for _, lbl := range ex.Labels {
			sum += lbl.Weight
		}
	}
	assert.InDelta(t, 1.0, sum, 1e-6)
}

func TestAdaBoostMHResumeProducesSameModelAsOneShotTraining(t *testing.T) {
	fresh := &AdaBoostMH{
		Dataset:  perfectSplitDataset(),
		Registry: weak.NewDefaultRegistry(),
		Opts:     defaultOptions(3),
	}
	oneShot, err := fresh.Train(context.Background())
	require.NoError(t, err)

	firstHalf := &AdaBoostMH{
		Dataset:  perfectSplitDataset(),
		Registry: weak.NewDefaultRegistry(),
		Opts:     defaultOptions(1),
	}
	partial, err := firstHalf.Train(context.Background())
	require.NoError(t, err)

	resumed := &AdaBoostMH{
		Dataset:  perfectSplitDataset(),
		Registry: weak.NewDefaultRegistry(),
		Opts:     defaultOptions(3),
		Resume:   partial,
	}
	resumedEnsemble, err := resumed.Train(context.Background())
	require.NoError(t, err)

	require.Equal(t, len(oneShot.Hypotheses), len(resumedEnsemble.Hypotheses))
	for i := range oneShot.Hypotheses {
		assert.Equal(t, oneShot.Hypotheses[i].Alpha(), resumedEnsemble.Hypotheses[i].Alpha(), "hypothesis %d", i)
	}
}

func TestArcGVMarginFloorCorrectionNeverDividesByZero(t *testing.T) {
	ds := perfectSplitDataset()
	learner := &ArcGV{
		AdaBoostMH: AdaBoostMH{
			Dataset:  ds,
			Registry: weak.NewDefaultRegistry(),
			Opts:     defaultOptions(2),
		},
		MarginFloor: -0.999,
	}
	ensemble, err := learner.Train(context.Background())
	require.NoError(t, err)
	for _, h := range ensemble.Hypotheses {
		assert.False(t, math.IsNaN(h.Alpha()))
		assert.False(t, math.IsInf(h.Alpha(), 0))
	}
}

func TestFilterBoostProducesNonEmptyEnsembleOnPerfectSplit(t *testing.T) {
	ds := perfectSplitDataset()
	learner := &FilterBoost{
		Dataset:  ds,
		Registry: weak.NewDefaultRegistry(),
		Opts:     defaultOptions(3),
		C:        10,
		Seed:     1,
	}
	ensemble, err := learner.Train(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, ensemble.Hypotheses)
}

func TestFilterBoostOnlineUpdateModeReusesLearnerInstance(t *testing.T) {
	ds := perfectSplitDataset()
	learner := &FilterBoost{
		Dataset:  ds,
		Registry: weak.NewDefaultRegistry(),
		Opts:     defaultOptions(2),
		C:        10,
		Mode:     OnlineUpdate,
		Seed:     2,
	}
	ensemble, err := learner.Train(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, ensemble.Hypotheses)
	for i := 1; i < len(ensemble.Hypotheses); i++ {
		assert.Same(t, ensemble.Hypotheses[0], ensemble.Hypotheses[i])
	}
}

func TestEnsembleSerializeDeserializeRoundTripsStageThreshold(t *testing.T) {
	ds := perfectSplitDataset()
	learner := &AdaBoostMH{
		Dataset:  ds,
		Registry: weak.NewDefaultRegistry(),
		Opts:     defaultOptions(1),
	}
	ensemble, err := learner.Train(context.Background())
	require.NoError(t, err)
	ensemble.StageThreshold[0] = 0.25

	var buf bytes.Buffer
	w := serialize.NewWriter(&buf)
	ensemble.Serialize(w, "multiboost")
	require.NoError(t, w.Flush())

	r := serialize.NewReader(&buf)
	got, wrapperTag, err := Deserialize(r, weak.NewDefaultRegistry())
	require.NoError(t, err)
	assert.Equal(t, "multiboost", wrapperTag)
	require.Len(t, got.StageThreshold, 1)
	assert.InDelta(t, 0.25, got.StageThreshold[0], 1e-9)
}
