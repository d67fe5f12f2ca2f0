package weak

import (
	"math"

	"github.com/janpfeifer/multiboost/internal/config"
	"github.com/janpfeifer/multiboost/internal/data"
	"github.com/janpfeifer/multiboost/internal/serialize"
	"github.com/janpfeifer/multiboost/internal/sortedcol"
	"github.com/janpfeifer/multiboost/internal/stump"
)

// Haar implements the box/interval weak learner of spec §4.3: h(x,l) fires when
// x_attribute falls inside [low, high], approximated by running the single-threshold
// search twice -- once on the ascending column to locate the rising edge, once on the
// descending view to locate the falling edge -- rather than by an exhaustive
// two-threshold scan.
type Haar struct {
	attribute  int
	low, high  float64
	polarity   []float64
	edgeOffset float64
	columns    *sortedcol.Set
	alpha      float64
	energy     float64
	degenerate bool
	constant   *Constant
}

// NewHaar returns an uninitialized Haar learner.
func NewHaar() *Haar { return &Haar{} }

func (h *Haar) Name() string { return "Haar" }

// SetColumns wires the sorted-column set, mirroring Stump.SetColumns.
func (h *Haar) SetColumns(columns *sortedcol.Set) { h.columns = columns }

func (h *Haar) Initialize(cfg config.Params) error {
	var err error
	h.edgeOffset, err = config.GetParamOr(cfg, "edgeoffset", 0.0)
	return err
}

func (h *Haar) Train(view *data.InputData, numClasses int) (float64, error) {
	type candidate struct {
		attr        int
		low, high   float64
		bestClass   int
		halfEdge    float64
	}
	var best *candidate

	for attr := 0; attr < h.columns.NumFeatures(); attr++ {
		col := h.columns.Column(attr)
		if col == nil {
			continue
		}
		rising := stump.Search(col, view, numClasses)
		if rising.BestClass < 0 {
			continue
		}
		falling := searchDescending(col, view, numClasses)
		if falling.BestClass < 0 {
			continue
		}
		lo := rising.PerClass[rising.BestClass].Threshold
		hi := falling.PerClass[rising.BestClass].Threshold
		if lo > hi {
			lo, hi = hi, lo
		}
		he := rising.PerClass[rising.BestClass].HalfEdge
		if best == nil || math.Abs(he) > math.Abs(best.halfEdge) {
			best = &candidate{attr: attr, low: lo, high: hi, bestClass: rising.BestClass, halfEdge: he}
		}
	}

	if best == nil {
		h.degenerate = true
		h.constant = NewConstant()
		energy, err := h.constant.Train(view, numClasses)
		h.energy = energy
		return energy, err
	}
	h.degenerate = false
	h.attribute = best.attr
	h.low, h.high = best.low, best.high

	h.polarity = make([]float64, numClasses)
	var epsPos, epsNeg, epsZero float64
	for l := 0; l < numClasses; l++ {
		p, n, _ := ClassEpsilons(view, l, func(ex *data.Example) float64 { return h.insideSign(ex) })
		if p >= n {
			h.polarity[l] = 1
		} else {
			h.polarity[l] = -1
		}
		p, n, z := ClassEpsilons(view, l, func(ex *data.Example) float64 { return h.polarity[l] * h.insideSign(ex) })
		epsPos += p
		epsNeg += n
		epsZero += z
	}
	h.alpha, h.energy = AlphaEnergy(epsPos, epsNeg, epsZero, h.edgeOffset)
	return h.energy, nil
}

// insideSign returns +1 if ex's attribute value falls within [low, high], -1 otherwise.
func (h *Haar) insideSign(ex *data.Example) float64 {
	x := ex.Value(h.attribute)
	if math.IsNaN(x) {
		if h.columns != nil {
			x = h.columns.Dataset().ValueOrModal(ex, h.attribute)
		} else {
			x = 0
		}
	}
	if x >= h.low && x <= h.high {
		return 1
	}
	return -1
}

func (h *Haar) Classify(ex *data.Example, class int) float64 {
	if h.degenerate {
		return h.constant.Classify(ex, class)
	}
	return h.polarity[class] * h.insideSign(ex)
}

func (h *Haar) Alpha() float64         { return h.alpha }
func (h *Haar) SetAlpha(alpha float64) { h.alpha = alpha }

func (h *Haar) Edge(view *data.InputData, numClasses int, normalized bool) float64 {
	return Edge(view, numClasses, h.Classify, normalized)
}

func (h *Haar) Serialize(w *serialize.Writer) {
	w.FloatField("alpha", h.alpha)
	if h.degenerate {
		w.StringField("degenerate", "true")
		h.constant.Serialize(w)
		return
	}
	w.IntField("attribute", h.attribute)
	w.FloatField("low", h.low)
	w.FloatField("high", h.high)
	w.FloatsField("polarity", h.polarity)
}

func (h *Haar) Deserialize(r *serialize.Reader) error {
	for {
		tok, ok, err := r.Next()
		if err != nil {
			return err
		}
		if !ok || tok.IsClose {
			return nil
		}
		switch tok.Tag {
		case "alpha":
			h.alpha, err = tok.Float()
		case "degenerate":
			h.degenerate = true
			h.constant = NewConstant()
			// The Constant's fields are the last ones written, and its Deserialize
			// consumes the enclosing close tag.
			return h.constant.Deserialize(r)
		case "attribute":
			h.attribute, err = tok.Int()
		case "low":
			h.low, err = tok.Float()
		case "high":
			h.high, err = tok.Float()
		case "polarity":
			h.polarity, err = tok.Floats()
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

// searchDescending runs the same running-half-edge algorithm as stump.Search but over
// the column's descending traversal, locating the best falling-edge threshold.
func searchDescending(col *sortedcol.Column, view *data.InputData, numClasses int) stump.Result {
	halfEdge := make([]float64, numClasses)
	for logical := 0; logical < view.Len(); logical++ {
		ex := view.Example(logical)
		for l, lbl := range ex.Labels {
			halfEdge[l] += 0.5 * lbl.Weight * float64(lbl.Y)
		}
	}

	best := make([]stump.Cut, numClasses)
	haveCut := make([]bool, numClasses)
	for l := range best {
		best[l] = stump.Cut{Threshold: math.NaN(), HalfEdge: math.NaN()}
	}

	prevLogical := -1
	var prevValue float64
	for logical, value := range col.Reverse(view) {
		if prevLogical >= 0 {
			prevEx := view.Example(prevLogical)
			for l, lbl := range prevEx.Labels {
				halfEdge[l] -= lbl.Weight * float64(lbl.Y)
			}
			if value < prevValue {
				threshold := (prevValue + value) / 2
				for l := 0; l < numClasses; l++ {
					he := halfEdge[l]
					if !haveCut[l] || math.Abs(he) > math.Abs(best[l].HalfEdge) {
						best[l] = stump.Cut{Threshold: threshold, HalfEdge: he}
						haveCut[l] = true
					}
				}
			}
		}
		prevLogical = logical
		prevValue = value
	}

	bestClass := -1
	var bestAbs float64
	for l, c := range best {
		if !haveCut[l] {
			continue
		}
		if bestClass == -1 || math.Abs(c.HalfEdge) > bestAbs {
			bestClass, bestAbs = l, math.Abs(c.HalfEdge)
		}
	}
	return stump.Result{Feature: col.Feature, PerClass: best, BestClass: bestClass}
}
