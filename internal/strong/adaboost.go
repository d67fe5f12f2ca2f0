package strong

import (
	"context"
	"math"
	"time"

	"k8s.io/klog/v2"

	"github.com/janpfeifer/multiboost/internal/data"
	"github.com/janpfeifer/multiboost/internal/outinfo"
	"github.com/janpfeifer/multiboost/internal/weak"
)

// AdaBoostMH is the reference strong learner of spec §4.6.
type AdaBoostMH struct {
	Dataset  *data.Dataset
	TestSet  *data.Dataset
	Registry *weak.Registry
	Opts     Options
	Info     *outinfo.Writer // optional; nil disables per-iteration instrumentation

	// Resume is the ensemble to continue from, or nil for a fresh run.
	Resume *Ensemble
}

func (a *AdaBoostMH) Name() string { return "AdaBoostMH" }

// Train runs the AdaBoost.MH loop of spec §4.6: pick a weak learner each round, gate
// against a constant fallback, update weights, log, and repeat until the iteration
// budget, wall-clock budget or early-stopping rule stops it.
func (a *AdaBoostMH) Train(ctx context.Context) (*Ensemble, error) {
	if err := a.Dataset.InitWeights(weightPolicyFrom(a.Opts)); err != nil {
		return nil, err
	}
	tc := newTrainContext(a.Dataset, a.Registry)
	ensemble := &Ensemble{BaseLearnerName: a.Opts.BaseLearnerName}

	var testTables *outinfo.Tables
	if a.TestSet != nil {
		testTables = outinfo.NewTables(a.TestSet)
	}
	trainTables := outinfo.NewTables(a.Dataset)
	if a.Info != nil {
		a.Info.Register("train", trainTables)
		if testTables != nil {
			a.Info.Register("test", testTables)
		}
		if err := a.Info.EmitHeader(); err != nil {
			return nil, err
		}
	}

	startIter := 0
	if a.Resume != nil {
		ensemble = a.Resume
		for _, h := range ensemble.Hypotheses {
			trainTables.Update(h.Alpha(), h.Classify)
			applyWeightUpdate(tc.view, h, tc.numClasses)
			if testTables != nil {
				testTables.Update(h.Alpha(), h.Classify)
			}
		}
		startIter = len(ensemble.Hypotheses)
		klog.Infof("resumed training at iteration %d", startIter)
	}

	early := newEarlyStopState(a.Opts)
	metrics := outinfo.NewDefaultRegistry()
	e01Metric, _ := metrics.Get("e01")
	start := time.Now()

	for t := startIter; t < a.Opts.Iterations; t++ {
		if checkTimeBudget(start, a.Opts.TimeLimit) {
			klog.Infof("time budget exceeded at iteration %d, stopping cleanly", t)
			break
		}

		h, edge, err := trainOneRound(tc, a.Opts)
		if err != nil {
			return nil, err
		}
		if edge <= a.Opts.EdgeFloor {
			klog.Warningf("iteration %d: edge %v <= floor %v, logged and continuing", t, edge, a.Opts.EdgeFloor)
			continue
		}

		applyWeightUpdate(tc.view, h, tc.numClasses)
		ensemble.Append(h)
		trainTables.Update(h.Alpha(), h.Classify)
		if testTables != nil {
			testTables.Update(h.Alpha(), h.Classify)
		}
		if a.Info != nil {
			if err := a.Info.EmitIteration(t); err != nil {
				return nil, err
			}
		}

		if testTables != nil && early != nil {
			errVal := e01Metric.Compute(testTables)[0]
			if early.observe(t, errVal) {
				klog.Infof("early stopping triggered at iteration %d", t)
				break
			}
		}
	}
	return ensemble, nil
}

func weightPolicyFrom(opts Options) data.WeightPolicy {
	policy, err := data.ParseWeightPolicy(opts.BaseLearnerCfg["weightpolicy"])
	if err != nil {
		return data.SharePoints
	}
	return policy
}

// ArcGV wraps AdaBoostMH, subtracting a margin-floor correction from each round's
// alpha (spec §4.6): after choosing h_t, compute the running minimum per-example
// normalized margin, clamp it to a configured floor, and subtract
// 1/2*ln((1+rho_min)/(1-rho_min)) from alpha_t.
type ArcGV struct {
	AdaBoostMH
	MarginFloor float64 // clamp applied to rho_min before the correction; avoids a zero denominator
}

func (a *ArcGV) Name() string { return "ArcGV" }

func (a *ArcGV) Train(ctx context.Context) (*Ensemble, error) {
	if a.MarginFloor <= -1 || a.MarginFloor >= 1 {
		a.MarginFloor = -0.999
	}
	if err := a.Dataset.InitWeights(weightPolicyFrom(a.Opts)); err != nil {
		return nil, err
	}
	tc := newTrainContext(a.Dataset, a.Registry)
	ensemble := &Ensemble{BaseLearnerName: a.Opts.BaseLearnerName}
	trainTables := outinfo.NewTables(a.Dataset)
	var testTables *outinfo.Tables
	if a.TestSet != nil {
		testTables = outinfo.NewTables(a.TestSet)
	}
	if a.Info != nil {
		a.Info.Register("train", trainTables)
		if testTables != nil {
			a.Info.Register("test", testTables)
		}
		if err := a.Info.EmitHeader(); err != nil {
			return nil, err
		}
	}

	startIter := 0
	if a.Resume != nil {
		ensemble = a.Resume
		for _, h := range ensemble.Hypotheses {
			trainTables.Update(h.Alpha(), h.Classify)
			applyWeightUpdate(tc.view, h, tc.numClasses)
			if testTables != nil {
				testTables.Update(h.Alpha(), h.Classify)
			}
		}
		startIter = len(ensemble.Hypotheses)
		klog.Infof("resumed training at iteration %d", startIter)
	}

	start := time.Now()
	for t := startIter; t < a.Opts.Iterations; t++ {
		if checkTimeBudget(start, a.Opts.TimeLimit) {
			break
		}
		h, edge, err := trainOneRound(tc, a.Opts)
		if err != nil {
			return nil, err
		}
		if edge <= a.Opts.EdgeFloor {
			klog.Warningf("iteration %d: edge %v <= floor, continuing", t, edge)
			continue
		}

		rhoMin := minNormalizedMargin(tc.view, ensemble, h, tc.numClasses)
		if rhoMin < a.MarginFloor {
			rhoMin = a.MarginFloor
		}
		if upperBound := -a.MarginFloor; rhoMin > upperBound {
			rhoMin = upperBound
		}
		correction := 0.5 * math.Log((1+rhoMin)/(1-rhoMin))
		h.SetAlpha(h.Alpha() - correction)

		applyWeightUpdate(tc.view, h, tc.numClasses)
		ensemble.Append(h)
		trainTables.Update(h.Alpha(), h.Classify)
		if testTables != nil {
			testTables.Update(h.Alpha(), h.Classify)
		}
		if a.Info != nil {
			if err := a.Info.EmitIteration(t); err != nil {
				return nil, err
			}
		}
	}
	return ensemble, nil
}

// minNormalizedMargin computes min_{i,l} (sum_{s<=t} alpha_s h_s(x_i,l) y_i,l) /
// sum_s alpha_s, including the newly chosen (not-yet-appended) h at its current alpha.
func minNormalizedMargin(view *data.InputData, ensemble *Ensemble, h weak.Learner, numClasses int) float64 {
	var sumAlpha float64
	for _, prev := range ensemble.Hypotheses {
		sumAlpha += prev.Alpha()
	}
	sumAlpha += h.Alpha()
	if sumAlpha <= 0 {
		return 0
	}
	min := math.Inf(1)
	for logical := 0; logical < view.Len(); logical++ {
		ex := view.Example(logical)
		for l := 0; l < numClasses; l++ {
			var g float64
			for _, prev := range ensemble.Hypotheses {
				g += prev.Alpha() * prev.Classify(ex, l)
			}
			g += h.Alpha() * h.Classify(ex, l)
			margin := g * float64(ex.Labels[l].Y) / sumAlpha
			if margin < min {
				min = margin
			}
		}
	}
	if math.IsInf(min, 1) {
		return 0
	}
	return min
}
