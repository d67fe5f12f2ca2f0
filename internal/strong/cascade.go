package strong

import (
	"context"
	"math"
	"slices"
	"time"

	"k8s.io/klog/v2"

	"github.com/janpfeifer/multiboost/internal/data"
	"github.com/janpfeifer/multiboost/internal/sortedcol"
	"github.com/janpfeifer/multiboost/internal/weak"
)

// SoftCascade implements spec §4.6's soft-cascade variant: it trains a fresh ensemble,
// one weak hypothesis per round, and emits it with per-stage rejection thresholds,
// driven by a rejection-allowance vector drawn from an exponential profile that sums
// to 1 - targetDetectionRate. It does not take a pre-trained ensemble as input, and
// each round's class-balanced separation is only logged; it does not choose among
// candidate hypotheses.
type SoftCascade struct {
	Dataset           *data.Dataset
	Registry          *weak.Registry
	Opts              Options
	PositiveClass     int
	TargetDetection   float64 // d-hat
	ExpAlpha          float64 // speed/accuracy bias of the exponential profile, typically negative
	BootstrapPool     *data.Dataset // optional held-out pool to draw replacement negatives from
	BootstrapRate     float64
}

func (s *SoftCascade) Name() string { return "SoftCascade" }

// rejectionAllowance computes v_t for t=0..T-1: an exponential profile over T stages
// that sums to 1 - targetDetectionRate, biased by expAlpha (spec §4.6).
func rejectionAllowance(tTotal int, targetDetection, expAlpha float64) []float64 {
	budget := 1 - targetDetection
	if tTotal <= 0 {
		return nil
	}
	weights := make([]float64, tTotal)
	var sum float64
	for t := 0; t < tTotal; t++ {
		weights[t] = math.Exp(expAlpha * float64(t) / float64(tTotal))
		sum += weights[t]
	}
	v := make([]float64, tTotal)
	for t := range v {
		v[t] = budget * weights[t] / sum
	}
	return v
}

func (s *SoftCascade) Train(ctx context.Context) (*Ensemble, error) {
	if s.TargetDetection <= 0 {
		s.TargetDetection = 0.99
	}
	if err := s.Dataset.InitWeights(weightPolicyFrom(s.Opts)); err != nil {
		return nil, err
	}
	tc := newTrainContext(s.Dataset, s.Registry)
	ensemble := &Ensemble{BaseLearnerName: s.Opts.BaseLearnerName}
	v := rejectionAllowance(s.Opts.Iterations, s.TargetDetection, s.ExpAlpha)

	current := tc.view
	var allowedSoFar float64
	totalPositives := countClass(s.Dataset, s.PositiveClass, true)

	start := time.Now()
	for t := 0; t < s.Opts.Iterations; t++ {
		if checkTimeBudget(start, s.Opts.TimeLimit) {
			break
		}
		h, err := s.Registry.New(s.Opts.BaseLearnerName)
		if err != nil {
			return nil, err
		}
		if err := h.Initialize(s.Opts.BaseLearnerCfg); err != nil {
			return nil, err
		}
		weak.WireColumns(h, tc.columns)
		if _, err := h.Train(current, tc.numClasses); err != nil {
			return nil, err
		}

		edgePos, nPos, edgeNeg, nNeg := classBalancedEdge(current, h, s.PositiveClass)
		var sep float64
		if nPos > 0 {
			sep += edgePos / nPos
		}
		if nNeg > 0 {
			sep -= edgeNeg / nNeg
		}
		klog.V(2).Infof("stage iteration %d: class-balanced separation %v", t, sep)

		applyWeightUpdate(current, h, tc.numClasses)
		ensemble.Append(h)

		allowedSoFar += v[t]
		threshold := thresholdForFalseNegativeBudget(current, ensemble, s.PositiveClass, allowedSoFar, totalPositives)
		ensemble.StageThreshold[len(ensemble.StageThreshold)-1] = threshold

		current = current.Filter(func(raw int, ex *data.Example) bool {
			if ex.Labels[s.PositiveClass].Y > 0 {
				return true // never drop positives in the soft-cascade filter step
			}
			return ensemble.Classify(ex, s.PositiveClass) >= threshold
		})

		if s.BootstrapPool != nil && s.BootstrapRate > 0 {
			current = bootstrapReplace(current, s.BootstrapPool, s.PositiveClass, s.BootstrapRate)
		}
	}

	retained := countClass(retainedDataset(current), s.PositiveClass, true)
	if totalPositives > 0 {
		rate := float64(retained) / float64(totalPositives)
		if rate < s.TargetDetection {
			klog.Warningf("soft cascade retained positive fraction %v below target %v", rate, s.TargetDetection)
		}
	}
	return ensemble, nil
}

func classBalancedEdge(view *data.InputData, h weak.Learner, class int) (edgePos, nPos, edgeNeg, nNeg float64) {
	for logical := 0; logical < view.Len(); logical++ {
		ex := view.Example(logical)
		lbl := ex.Labels[class]
		hVal := h.Classify(ex, class)
		contribution := lbl.Weight * hVal * float64(lbl.Y)
		if lbl.Y > 0 {
			edgePos += contribution
			nPos++
		} else if lbl.Y < 0 {
			edgeNeg += -contribution
			nNeg++
		}
	}
	return
}

// thresholdForFalseNegativeBudget finds the largest score threshold that keeps the
// cumulative false-negative fraction among positives at or below allowedSoFar.
func thresholdForFalseNegativeBudget(view *data.InputData, ensemble *Ensemble, class int, allowedSoFar float64, totalPositives int) float64 {
	if totalPositives == 0 {
		return math.Inf(-1)
	}
	var scores []float64
	for logical := 0; logical < view.Len(); logical++ {
		ex := view.Example(logical)
		if ex.Labels[class].Y > 0 {
			scores = append(scores, ensemble.Classify(ex, class))
		}
	}
	if len(scores) == 0 {
		return math.Inf(-1)
	}
	slices.Sort(scores)
	maxDrop := int(allowedSoFar * float64(totalPositives))
	if maxDrop <= 0 {
		return scores[0]
	}
	if maxDrop >= len(scores) {
		return scores[len(scores)-1]
	}
	return scores[maxDrop]
}

func countClass(ds *data.Dataset, class int, positive bool) int {
	if ds == nil {
		return 0
	}
	var n int
	for _, ex := range ds.Examples {
		if class >= len(ex.Labels) {
			continue
		}
		if (ex.Labels[class].Y > 0) == positive {
			n++
		}
	}
	return n
}

// retainedDataset is a thin adapter letting countClass operate on the filtered view's
// remaining raw examples.
func retainedDataset(view *data.InputData) *data.Dataset {
	ds := &data.Dataset{}
	*ds = *view.Dataset
	examples := make([]*data.Example, view.Len())
	for i := 0; i < view.Len(); i++ {
		examples[i] = view.Example(i)
	}
	ds.Examples = examples
	return ds
}

// bootstrapReplace draws replacement negatives from pool to keep the training set's
// negative count from shrinking to nothing as the cascade filters progress (spec §6
// supplemented feature). current and pool are distinct Datasets, so the replacement
// examples are appended into a freshly built Dataset rather than merged by raw index.
func bootstrapReplace(current *data.InputData, pool *data.Dataset, class int, rate float64) *data.InputData {
	target := int(float64(current.Len()) * rate)
	if target <= 0 {
		return current
	}
	merged := &data.Dataset{}
	*merged = *current.Dataset
	examples := make([]*data.Example, 0, current.Len()+target)
	for i := 0; i < current.Len(); i++ {
		examples = append(examples, current.Example(i))
	}
	added := 0
	for _, ex := range pool.Examples {
		if added >= target {
			break
		}
		if ex.Labels[class].Y > 0 {
			continue
		}
		examples = append(examples, ex)
		added++
	}
	merged.Examples = examples
	return data.NewInputData(merged)
}

// VJCascade implements spec §4.6's Viola-Jones cascade: an outer loop over stages,
// each stage running AdaBoost.MH until its false-positive rate on a held-out
// validation set drops below f_max while its true-positive rate stays above d_min.
type VJCascade struct {
	Dataset       *data.Dataset
	Validation    *data.Dataset
	Registry      *weak.Registry
	Opts          Options
	PositiveClass int
	FMax          float64
	DMin          float64
	MaxStageIters int
	NumStages     int
}

func (v *VJCascade) Name() string { return "VJCascade" }

func (v *VJCascade) Train(ctx context.Context) (*Ensemble, error) {
	if v.FMax <= 0 {
		v.FMax = 0.6
	}
	if v.DMin <= 0 {
		v.DMin = 0.99
	}
	if v.MaxStageIters <= 0 {
		v.MaxStageIters = 10000
	}
	if v.NumStages <= 0 {
		v.NumStages = 10
	}
	if err := v.Dataset.InitWeights(weightPolicyFrom(v.Opts)); err != nil {
		return nil, err
	}

	ensemble := &Ensemble{BaseLearnerName: v.Opts.BaseLearnerName}
	trainView := data.NewInputData(v.Dataset)
	columns := sortedcol.BuildSet(v.Dataset)
	var validationView *data.InputData
	if v.Validation != nil {
		validationView = data.NewInputData(v.Validation)
	}

	for stage := 0; stage < v.NumStages; stage++ {
		tc := &trainContext{view: trainView, columns: columns, numClasses: v.Dataset.NumClasses(), registry: v.Registry}
		stageStart := len(ensemble.Hypotheses)
		var fpr, tpr float64 = 1, 1
		for iter := 0; iter < v.MaxStageIters; iter++ {
			h, edge, err := trainOneRound(tc, v.Opts)
			if err != nil {
				return nil, err
			}
			if edge <= v.Opts.EdgeFloor {
				continue
			}
			applyWeightUpdate(tc.view, h, tc.numClasses)
			ensemble.Append(h)

			if validationView != nil {
				fpr, tpr = evaluateStage(validationView, ensemble, v.PositiveClass)
			} else {
				fpr, tpr = evaluateStage(trainView, ensemble, v.PositiveClass)
			}
			if fpr <= v.FMax && tpr >= v.DMin {
				break
			}
		}
		if len(ensemble.Hypotheses) == stageStart {
			klog.Warningf("stage %d added no hypotheses, stopping cascade early", stage)
			break
		}

		thresholdView := trainView
		if validationView != nil {
			thresholdView = validationView
		}
		threshold := stageThresholdForTargets(thresholdView, ensemble, v.PositiveClass, v.DMin)
		ensemble.StageThreshold[len(ensemble.StageThreshold)-1] = threshold

		trainView = trainView.Filter(func(raw int, ex *data.Example) bool {
			if ex.Labels[v.PositiveClass].Y > 0 {
				return true
			}
			return ensemble.Classify(ex, v.PositiveClass) >= threshold
		})
		if validationView != nil {
			validationView = validationView.Filter(func(raw int, ex *data.Example) bool {
				if ex.Labels[v.PositiveClass].Y > 0 {
					return true
				}
				return ensemble.Classify(ex, v.PositiveClass) >= threshold
			})
		}

		if fpr <= v.FMax && countClass(retainedDataset(trainView), v.PositiveClass, false) == 0 {
			klog.Infof("cascade converged after %d stages: no negatives remain", stage+1)
			break
		}
	}
	return ensemble, nil
}

func evaluateStage(view *data.InputData, ensemble *Ensemble, class int) (fpr, tpr float64) {
	var tp, fn, fp, tn int
	for logical := 0; logical < view.Len(); logical++ {
		ex := view.Example(logical)
		score := ensemble.Classify(ex, class)
		predicted := score >= 0
		actual := ex.Labels[class].Y > 0
		switch {
		case actual && predicted:
			tp++
		case actual && !predicted:
			fn++
		case !actual && predicted:
			fp++
		default:
			tn++
		}
	}
	if tp+fn > 0 {
		tpr = float64(tp) / float64(tp+fn)
	}
	if fp+tn > 0 {
		fpr = float64(fp) / float64(fp+tn)
	}
	return
}

func stageThresholdForTargets(view *data.InputData, ensemble *Ensemble, class int, dMin float64) float64 {
	var positiveScores []float64
	for logical := 0; logical < view.Len(); logical++ {
		ex := view.Example(logical)
		if ex.Labels[class].Y > 0 {
			positiveScores = append(positiveScores, ensemble.Classify(ex, class))
		}
	}
	if len(positiveScores) == 0 {
		return math.Inf(-1)
	}
	slices.Sort(positiveScores)
	keepFrom := int((1 - dMin) * float64(len(positiveScores)))
	if keepFrom < 0 {
		keepFrom = 0
	}
	if keepFrom >= len(positiveScores) {
		keepFrom = len(positiveScores) - 1
	}
	return positiveScores[keepFrom]
}
