package strong

import (
	"context"
	"math"
	"math/rand"
	"time"

	"k8s.io/klog/v2"

	"github.com/janpfeifer/multiboost/internal/data"
	"github.com/janpfeifer/multiboost/internal/outinfo"
	"github.com/janpfeifer/multiboost/internal/weak"
)

// FilterBoostMode distinguishes the two per-iteration update strategies FilterBoost
// can use once it has drawn its rejection-sampled subsample (spec §6 supplemented
// feature: the original offers both a from-scratch retrain and a cheaper online
// update of the existing weak hypothesis).
type FilterBoostMode int

const (
	// RetrainFromScratch discards the previous round's hypothesis and trains a new
	// one on the fresh subsample.
	RetrainFromScratch FilterBoostMode = iota
	// OnlineUpdate reuses the same weak-learner instance, calling Train again on the
	// new subsample so algorithms that carry state across rounds (e.g. Bandit) keep it.
	OnlineUpdate
)

// FilterBoost implements spec §4.6's FilterBoost variant: at each iteration, draw a
// subsample of size C*ln(t+3) by rejection sampling with acceptance probability
// 1/(1+exp(margin)) averaged over an example's labels, then train (or update) the
// weak learner on that subsample.
type FilterBoost struct {
	Dataset  *data.Dataset
	TestSet  *data.Dataset
	Registry *weak.Registry
	Opts     Options
	Info     *outinfo.Writer

	C       float64 // subsample-size constant
	Mode    FilterBoostMode
	Seed    int64
}

func (f *FilterBoost) Name() string { return "FilterBoost" }

func (f *FilterBoost) Train(ctx context.Context) (*Ensemble, error) {
	if f.C <= 0 {
		f.C = 100
	}
	if err := f.Dataset.InitWeights(weightPolicyFrom(Options{BaseLearnerCfg: f.Opts.BaseLearnerCfg})); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(f.Seed))
	tc := newTrainContext(f.Dataset, f.Registry)
	ensemble := &Ensemble{BaseLearnerName: f.Opts.BaseLearnerName}
	trainTables := outinfo.NewTables(f.Dataset)
	var testTables *outinfo.Tables
	if f.TestSet != nil {
		testTables = outinfo.NewTables(f.TestSet)
	}
	if f.Info != nil {
		f.Info.Register("train", trainTables)
		if testTables != nil {
			f.Info.Register("test", testTables)
		}
		if err := f.Info.EmitHeader(); err != nil {
			return nil, err
		}
	}

	var reusable weak.Learner
	start := time.Now()
	for t := 0; t < f.Opts.Iterations; t++ {
		if checkTimeBudget(start, f.Opts.TimeLimit) {
			break
		}
		subsampleSize := int(f.C * math.Log(float64(t+3)))
		subsample := rejectionSample(tc.view, trainTables, subsampleSize, rng)
		if subsample.Len() == 0 {
			klog.Warningf("iteration %d: rejection sampling produced an empty subsample, skipping", t)
			continue
		}

		var h weak.Learner
		var err error
		if f.Mode == OnlineUpdate && reusable != nil {
			h = reusable
		} else {
			h, err = f.Registry.New(f.Opts.BaseLearnerName)
			if err != nil {
				return nil, err
			}
			if err := h.Initialize(f.Opts.BaseLearnerCfg); err != nil {
				return nil, err
			}
			weak.WireColumns(h, tc.columns)
		}
		energy, err := h.Train(subsample, tc.numClasses)
		if err != nil {
			return nil, err
		}
		if math.IsNaN(energy) {
			h = weak.NewConstant()
			_ = h.Initialize(nil)
			if _, err := h.Train(subsample, tc.numClasses); err != nil {
				return nil, err
			}
		}
		reusable = h

		edge := h.Edge(tc.view, tc.numClasses, false)
		if edge <= f.Opts.EdgeFloor {
			klog.Warningf("iteration %d: edge %v <= floor, continuing", t, edge)
			continue
		}

		applyWeightUpdate(tc.view, h, tc.numClasses)
		ensemble.Append(h)
		trainTables.Update(h.Alpha(), h.Classify)
		if testTables != nil {
			testTables.Update(h.Alpha(), h.Classify)
		}
		if f.Info != nil {
			if err := f.Info.EmitIteration(t); err != nil {
				return nil, err
			}
		}
	}
	return ensemble, nil
}

// rejectionSample draws a subsample of the given target size using acceptance
// probability 1/(1+exp(margin)) averaged over an example's labels (spec §4.6).
func rejectionSample(view *data.InputData, tables *outinfo.Tables, targetSize int, rng *rand.Rand) *data.InputData {
	if targetSize <= 0 {
		targetSize = 1
	}
	kept := make(map[int]bool)
	attempts := 0
	maxAttempts := targetSize * 50
	for len(kept) < targetSize && attempts < maxAttempts {
		attempts++
		logical := rng.Intn(view.Len())
		raw := view.RawIndex(logical)
		ex := view.Example(logical)
		var avgMargin float64
		for l := range ex.Labels {
			avgMargin += tables.M[raw][l]
		}
		if len(ex.Labels) > 0 {
			avgMargin /= float64(len(ex.Labels))
		}
		accept := 1.0 / (1.0 + math.Exp(avgMargin))
		if rng.Float64() < accept {
			kept[raw] = true
		}
	}
	return view.Filter(func(raw int, ex *data.Example) bool { return kept[raw] })
}
