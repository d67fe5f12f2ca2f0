// Package strong implements the StrongLearner component of spec §4.6: the
// AdaBoost.MH training loop and its arc-gv, FilterBoost, soft-cascade and
// Viola-Jones-cascade variants, including weight updates, early stopping, wall-clock
// budget checks and resume semantics.
//
// Grounded on the teacher's internal/ai training loop shape (internal/ai/learner.go's
// "pick a move, score it, update state, log it" iteration) generalized from a game
// self-play loop to a boosting iteration loop, and on k8s.io/klog for per-iteration
// structured logging the way the teacher logs every game move.
package strong

import (
	"context"
	"math"
	"time"

	"k8s.io/klog/v2"

	"github.com/janpfeifer/multiboost/internal/boosterr"
	"github.com/janpfeifer/multiboost/internal/config"
	"github.com/janpfeifer/multiboost/internal/data"
	"github.com/janpfeifer/multiboost/internal/outinfo"
	"github.com/janpfeifer/multiboost/internal/serialize"
	"github.com/janpfeifer/multiboost/internal/sortedcol"
	"github.com/janpfeifer/multiboost/internal/weak"
)

// Options configures a training run, shared by every variant (spec §4.6, §6 CLI
// surface).
type Options struct {
	Iterations      int
	BaseLearnerName string
	BaseLearnerCfg  config.Params
	EdgeOffset      float64
	EdgeFloor       float64 // theta: iterations with edge <= EdgeFloor are logged and skipped, never abort
	UseConstantGate bool    // if true, replace h_t with the constant learner whenever its energy is no worse
	TimeLimit       time.Duration

	// Early stopping, only meaningful when AdaBoostMH.TestSet is non-nil.
	EarlyStopMinIter int
	EarlyStopBeta    float64
	EarlyStopLambda  float64
}

// Learner is the contract shared by every strong-learner variant (spec §4.6's
// "AdaBoostMH / ArcGV / FilterBoost / VJcascade / SoftCascade").
type Learner interface {
	Name() string
	Train(ctx context.Context) (*Ensemble, error)
}

// Ensemble is the ordered sequence of trained weak hypotheses plus their alphas,
// matching spec §3's Ensemble type. Each entry's alpha is already folded into
// hyp.Alpha(); StageThreshold records, for cascade variants, the rejection threshold active
// immediately after that index (NaN when none applies).
type Ensemble struct {
	BaseLearnerName string
	Hypotheses      []weak.Learner
	StageThreshold  []float64 // parallel to Hypotheses; NaN unless this index closes a stage
}

// Append adds a trained hypothesis with no stage threshold.
func (e *Ensemble) Append(h weak.Learner) {
	e.Hypotheses = append(e.Hypotheses, h)
	e.StageThreshold = append(e.StageThreshold, math.NaN())
}

// Classify sums every hypothesis's alpha-scaled vote for ex, class.
func (e *Ensemble) Classify(ex *data.Example, class int) float64 {
	var sum float64
	for _, h := range e.Hypotheses {
		sum += h.Alpha() * h.Classify(ex, class)
	}
	return sum
}

// Serialize writes the ensemble in the tagged format of spec §4.7. A stage threshold,
// when present, is written as a sibling field immediately after the hypothesis it
// closes -- keeping every weak learner's own Deserialize free of any lookahead past
// its own closing tag.
func (e *Ensemble) Serialize(w *serialize.Writer, wrapperTag string) {
	w.Open(wrapperTag)
	w.StringField("baseLearner", e.BaseLearnerName)
	for i, h := range e.Hypotheses {
		w.Open("hypothesis")
		w.StringField("weakLearner", h.Name())
		h.Serialize(w)
		w.Close("hypothesis")
		if !math.IsNaN(e.StageThreshold[i]) {
			w.FloatField("threshold", e.StageThreshold[i])
		}
	}
	w.Close(wrapperTag)
}

// Deserialize reads an ensemble written by Serialize, instantiating hypotheses via
// reg. The returned wrapperTag is whichever top-level tag the stream opens with
// (Serialize writes "multiboost" or "cascade"); its name is not checked. An
// unrecognized base-learner name inside is a LoadError
// (spec §7: structural failures on model load are fatal).
func Deserialize(r *serialize.Reader, reg *weak.Registry) (*Ensemble, string, error) {
	tok, ok, err := r.Next()
	if err != nil {
		return nil, "", err
	}
	if !ok || tok.IsClose || tok.IsLeaf {
		return nil, "", boosterr.NewLoad("expected a top-level model wrapper tag")
	}
	wrapperTag := tok.Tag
	e := &Ensemble{}
	for {
		tok, ok, err := r.Next()
		if err != nil {
			return nil, "", err
		}
		if !ok {
			return nil, "", boosterr.NewLoad("unexpected EOF inside <%s>", wrapperTag)
		}
		if tok.IsClose && tok.Tag == wrapperTag {
			return e, wrapperTag, nil
		}
		switch tok.Tag {
		case "baseLearner":
			e.BaseLearnerName = tok.Value
		case "hypothesis":
			if err := deserializeHypothesis(e, r, reg); err != nil {
				return nil, "", err
			}
		case "threshold":
			if len(e.StageThreshold) > 0 {
				v, err := tok.Float()
				if err != nil {
					return nil, "", err
				}
				e.StageThreshold[len(e.StageThreshold)-1] = v
			}
		case "stageSeparator":
			// Positional metadata only; the threshold it carries is redundant with
			// the per-hypothesis <threshold> sibling field, already captured above.
		default:
			if !tok.IsLeaf {
				if err := r.SkipContainer(tok.Tag); err != nil {
					return nil, "", err
				}
			}
		}
	}
}

func deserializeHypothesis(e *Ensemble, r *serialize.Reader, reg *weak.Registry) error {
	nameTok, ok, err := r.Next()
	if err != nil {
		return err
	}
	if !ok || nameTok.Tag != "weakLearner" {
		return boosterr.NewLoad("hypothesis missing <weakLearner> name")
	}
	h, err := reg.New(nameTok.Value)
	if err != nil {
		return err
	}
	if err := h.Deserialize(r); err != nil {
		return err
	}
	// h.Deserialize stops at the </hypothesis> close tag, since every field it writes
	// is a sibling leaf or a self-contained container closed before then.
	e.Hypotheses = append(e.Hypotheses, h)
	e.StageThreshold = append(e.StageThreshold, math.NaN())
	return nil
}

// trainContext carries the per-round mutable state a single boosting iteration needs:
// the active view, sorted columns, class count and weak-learner registry.
type trainContext struct {
	view       *data.InputData
	columns    *sortedcol.Set
	numClasses int
	registry   *weak.Registry
}

func newTrainContext(ds *data.Dataset, reg *weak.Registry) *trainContext {
	return &trainContext{
		view:       data.NewInputData(ds),
		columns:    sortedcol.BuildSet(ds),
		numClasses: ds.NumClasses(),
		registry:   reg,
	}
}

// trainOneRound runs a single weak-learner Train + constant-gate + alpha/edge
// computation, per spec §4.6's loop body. It does not mutate weights; callers apply
// the weight update themselves so variants can intercept it (arc-gv subtracts a
// margin-floor term from alpha first).
func trainOneRound(tc *trainContext, opts Options) (weak.Learner, float64, error) {
	h, err := tc.registry.New(opts.BaseLearnerName)
	if err != nil {
		return nil, 0, err
	}
	if err := h.Initialize(opts.BaseLearnerCfg); err != nil {
		return nil, 0, err
	}
	weak.WireColumns(h, tc.columns)

	energy, err := h.Train(tc.view, tc.numClasses)
	if err != nil {
		return nil, 0, err
	}
	if math.IsNaN(energy) {
		klog.Warningf("weak learner produced NaN energy, falling back to Constant")
		h = weak.NewConstant()
		if err := h.Initialize(config.Params{}); err != nil {
			return nil, 0, err
		}
		energy, err = h.Train(tc.view, tc.numClasses)
		if err != nil {
			return nil, 0, err
		}
	}

	if opts.UseConstantGate {
		c := weak.NewConstant()
		_ = c.Initialize(config.Params{})
		constEnergy, err := c.Train(tc.view, tc.numClasses)
		if err == nil && constEnergy <= energy {
			h = c
			energy = constEnergy
		}
	}

	edge := h.Edge(tc.view, tc.numClasses, false)
	return h, edge, nil
}

// applyWeightUpdate implements spec §4.6's `w_{i,l} <- w_{i,l} * exp(-alpha*h*y) / Z`.
func applyWeightUpdate(view *data.InputData, h weak.Learner, numClasses int) {
	alpha := h.Alpha()
	var z float64
	type delta struct {
		ex *data.Example
		l  int
		w  float64
	}
	updates := make([]delta, 0, view.Len()*numClasses)
	for logical := 0; logical < view.Len(); logical++ {
		ex := view.Example(logical)
		for l := 0; l < numClasses; l++ {
			lbl := &ex.Labels[l]
			hVal := h.Classify(ex, l)
			w := lbl.Weight * math.Exp(-alpha*hVal*float64(lbl.Y))
			updates = append(updates, delta{ex: ex, l: l, w: w})
			z += w
		}
	}
	if z <= 0 {
		klog.Warningf("weight update produced non-positive normalizer Z=%v, skipping renormalization", z)
		return
	}
	for _, u := range updates {
		u.ex.Labels[u.l].Weight = u.w / z
	}
}

// checkTimeBudget returns true if training should stop cleanly (spec §7's
// TimeBudgetExceeded: a clean stop, not an error).
func checkTimeBudget(start time.Time, limit time.Duration) bool {
	if limit <= 0 {
		return false
	}
	return time.Since(start) >= limit
}

// earlyStopState tracks the sliding-window early-stopping rule of spec §4.6.
type earlyStopState struct {
	window    []float64
	bestMean  float64
	bestIter  int
	minIter   int
	beta      float64
	lambda    float64
	armed     bool
}

func newEarlyStopState(opts Options) *earlyStopState {
	if opts.EarlyStopMinIter <= 0 {
		return nil
	}
	beta := opts.EarlyStopBeta
	if beta <= 0 {
		beta = 0.1
	}
	lambda := opts.EarlyStopLambda
	if lambda <= 0 {
		lambda = 1.1
	}
	return &earlyStopState{bestMean: math.Inf(1), minIter: opts.EarlyStopMinIter, beta: beta, lambda: lambda}
}

// observe records the test zero-one error at iteration t and reports whether training
// should stop now.
func (s *earlyStopState) observe(t int, testErr float64) (stop bool) {
	if s == nil {
		return false
	}
	s.window = append(s.window, testErr)
	windowSize := int(math.Ceil(s.beta * float64(t+1)))
	if windowSize < 1 {
		windowSize = 1
	}
	if len(s.window) > windowSize {
		s.window = s.window[len(s.window)-windowSize:]
	}
	var mean float64
	for _, v := range s.window {
		mean += v
	}
	mean /= float64(len(s.window))

	if t < s.minIter {
		return false
	}
	if mean < s.bestMean {
		s.bestMean = mean
		s.bestIter = t
		s.armed = true
	}
	if s.armed && float64(t) > s.lambda*float64(s.bestIter) {
		return true
	}
	return false
}
