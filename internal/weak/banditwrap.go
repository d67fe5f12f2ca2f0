package weak

import (
	"github.com/janpfeifer/multiboost/internal/bandit"
	"github.com/janpfeifer/multiboost/internal/config"
	"github.com/janpfeifer/multiboost/internal/data"
	"github.com/janpfeifer/multiboost/internal/serialize"
	"github.com/janpfeifer/multiboost/internal/sortedcol"
)

// BanditWrapper implements spec §4.3/§9's Bandit(Box<WeakLearner>, BanditState):
// it draws K candidate attributes from a bandit.Algorithm, restricts an inner Stump's
// threshold search to that subset, and feeds the resulting per-attribute edge back to
// the bandit as a reward so future rounds favor attributes that have paid off.
type BanditWrapper struct {
	algo       bandit.Algorithm
	algoName   string
	k          int
	inner      *Stump
	columns    *sortedcol.Set
	numFeatures int
	alpha      float64
	energy     float64
	algoReady  bool
	algoCfg    config.Params
}

// NewBanditWrapper returns a BanditWrapper defaulting to the UCBK algorithm; call
// Initialize to override via config.
func NewBanditWrapper() *BanditWrapper {
	return &BanditWrapper{algoName: "UCBK", k: 10}
}

func (bw *BanditWrapper) Name() string { return "Bandit" }

// SetColumns wires the sorted-column set and the number of candidate features the
// bandit draws over.
func (bw *BanditWrapper) SetColumns(columns *sortedcol.Set) {
	bw.columns = columns
	bw.numFeatures = columns.NumFeatures()
}

func (bw *BanditWrapper) Initialize(cfg config.Params) error {
	var err error
	bw.algoName, err = config.GetParamOr(cfg, "algorithm", "UCBK")
	if err != nil {
		return err
	}
	bw.k, err = config.GetParamOr(cfg, "k", 10)
	if err != nil {
		return err
	}
	bw.algo, err = bandit.NewDefaultRegistry().New(bw.algoName)
	if err != nil {
		return err
	}
	bw.algoCfg = cfg
	bw.inner = NewStump(ModeSingleThreshold)
	return bw.inner.Initialize(cfg)
}

// Train restricts search to a bandit-selected attribute subset and feeds the
// resulting edge back as a reward. The bandit's pull/reward bookkeeping persists only
// across Train calls on the same BanditWrapper instance: FilterBoost's OnlineUpdate
// mode reuses one instance, while trainOneRound creates a fresh learner every round,
// so under the other strong learners the bandit starts over each round.
func (bw *BanditWrapper) Train(view *data.InputData, numClasses int) (float64, error) {
	if bw.columns != nil && bw.numFeatures != bw.columns.NumFeatures() {
		bw.numFeatures = bw.columns.NumFeatures()
	}
	if !bw.algoReady {
		if err := bw.algo.Initialize(bw.numFeatures, bw.algoCfg); err != nil {
			return 0, err
		}
		bw.algoReady = true
	}
	k := bw.k
	if k > bw.numFeatures {
		k = bw.numFeatures
	}
	candidates := bw.algo.KBestActions(k)
	if len(candidates) == 0 {
		for j := 0; j < bw.numFeatures; j++ {
			candidates = append(candidates, j)
		}
	}

	bw.inner = NewStump(ModeSingleThreshold)
	bw.inner.SetColumns(bw.columns)
	bw.inner.SetAllowedFeatures(candidates)
	energy, err := bw.inner.Train(view, numClasses)
	if err != nil {
		return 0, err
	}
	if !bw.inner.degenerate {
		edge := bw.inner.Edge(view, numClasses, true)
		bw.algo.ReceiveReward(bw.inner.attribute, edge)
	}
	bw.alpha = bw.inner.Alpha()
	bw.energy = energy
	return energy, nil
}

func (bw *BanditWrapper) Classify(ex *data.Example, class int) float64 {
	return bw.inner.Classify(ex, class)
}

func (bw *BanditWrapper) Alpha() float64 { return bw.alpha }
func (bw *BanditWrapper) SetAlpha(alpha float64) {
	bw.alpha = alpha
	bw.inner.SetAlpha(alpha)
}

func (bw *BanditWrapper) Edge(view *data.InputData, numClasses int, normalized bool) float64 {
	return Edge(view, numClasses, bw.Classify, normalized)
}

func (bw *BanditWrapper) Serialize(w *serialize.Writer) {
	w.StringField("algorithm", bw.algoName)
	w.IntField("k", bw.k)
	w.Open("inner")
	bw.inner.Serialize(w)
	w.Close("inner")
	w.Open("banditState")
	bw.algo.Serialize(w)
	w.Close("banditState")
}

func (bw *BanditWrapper) Deserialize(r *serialize.Reader) error {
	for {
		tok, ok, err := r.Next()
		if err != nil {
			return err
		}
		if !ok || tok.IsClose {
			return nil
		}
		switch tok.Tag {
		case "algorithm":
			bw.algoName = tok.Value
			bw.algo, err = bandit.NewDefaultRegistry().New(bw.algoName)
		case "k":
			bw.k, err = tok.Int()
		case "inner":
			bw.inner = NewStump(ModeSingleThreshold)
			err = bw.inner.Deserialize(r)
		case "banditState":
			if bw.algo == nil {
				bw.algo, err = bandit.NewDefaultRegistry().New(bw.algoName)
			}
			if err == nil {
				err = bw.algo.Deserialize(r)
				bw.algoReady = true
			}
		default:
			if !tok.IsLeaf {
				err = r.SkipContainer(tok.Tag)
			}
		}
		if err != nil {
			return err
		}
	}
}
