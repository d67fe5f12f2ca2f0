package weak

import (
	"math"

	"github.com/janpfeifer/multiboost/internal/config"
	"github.com/janpfeifer/multiboost/internal/data"
	"github.com/janpfeifer/multiboost/internal/serialize"
	"github.com/janpfeifer/multiboost/internal/sortedcol"
	"github.com/janpfeifer/multiboost/internal/stump"
)

// Mode distinguishes the three threshold-search-based stump variants of spec §4.3,
// which differ only in how Train interprets a stump.Result, not in their Classify
// shape.
type Mode int

const (
	// ModeSingleThreshold: one threshold shared by every class, per-class polarity.
	ModeSingleThreshold Mode = iota
	// ModeSelector: one attribute, a class-dependent threshold per class.
	ModeSelector
	// ModeOneClass: a single optimized class l*; the rest vote by constant polarity.
	ModeOneClass
)

func (m Mode) name() string {
	switch m {
	case ModeSelector:
		return "SelectorStump"
	case ModeOneClass:
		return "OneClassStump"
	default:
		return "SingleStump"
	}
}

// Stump implements the single-stump, selector-stump and one-class-stump variants of
// spec §4.3: h(x,l) = v_l * sign(x_attribute - threshold(l)), with the threshold
// either shared across classes (ModeSingleThreshold), per class (ModeSelector), or
// only meaningful for one optimized class (ModeOneClass, other classes fall back to
// their constant polarity).
type Stump struct {
	mode Mode

	attribute   int
	thresholds  []float64 // per class; all equal for ModeSingleThreshold/ModeOneClass
	polarity    []float64 // per class, -1 or +1
	optClass    int       // only meaningful for ModeOneClass
	edgeOffset  float64
	columns     *sortedcol.Set // supplied via SetColumns
	allowed     []int          // restricts Train to these feature indices only, if non-nil (see SetAllowedFeatures)
	alpha       float64
	energy      float64
	degenerate  bool
	constantTie *Constant // fallback used transparently when Train finds no cut
}

// NewStump returns a Stump configured for the given variant.
func NewStump(mode Mode) *Stump { return &Stump{mode: mode} }

func (s *Stump) Name() string { return s.mode.name() }

// SetColumns wires the pre-built sorted-column set the strong learner maintains for
// the active Dataset. It must be called before Train; kept out of Initialize because
// the column set is a training-context object, not a user configuration value.
func (s *Stump) SetColumns(columns *sortedcol.Set) { s.columns = columns }

// SetAllowedFeatures restricts Train to scan only the given feature indices, used by
// the bandit wrapper to train over a bandit-selected attribute subset (spec §4.3's
// "Bandit wrapper"). A nil or empty slice means "scan every feature", the default.
func (s *Stump) SetAllowedFeatures(features []int) { s.allowed = features }

func (s *Stump) Initialize(cfg config.Params) error {
	var err error
	s.edgeOffset, err = config.GetParamOr(cfg, "edgeoffset", 0.0)
	return err
}

// Train scans every numeric attribute's sorted column and keeps the best one
// according to the variant's selection rule (spec §4.3/§4.4). If no attribute has a
// non-degenerate cut, Train falls back to a Constant classifier and reports that
// fallback via s.degenerate.
func (s *Stump) Train(view *data.InputData, numClasses int) (float64, error) {
	type candidate struct {
		attr   int
		result stump.Result
	}
	var best *candidate
	var bestScore float64

	attrs := s.allowed
	if len(attrs) == 0 {
		attrs = make([]int, s.columns.NumFeatures())
		for i := range attrs {
			attrs[i] = i
		}
	}
	for _, attr := range attrs {
		col := s.columns.Column(attr)
		if col == nil {
			continue
		}
		result := stump.Search(col, view, numClasses)
		if result.BestClass < 0 {
			continue
		}
		score := candidateScore(s.mode, result)
		if best == nil || score > bestScore {
			c := candidate{attr: attr, result: result}
			best = &c
			bestScore = score
		}
	}

	if best == nil {
		s.degenerate = true
		s.constantTie = NewConstant()
		energy, err := s.constantTie.Train(view, numClasses)
		s.energy = energy
		return energy, err
	}
	s.degenerate = false
	s.attribute = best.attr
	s.thresholds = make([]float64, numClasses)
	s.polarity = make([]float64, numClasses)
	s.optClass = best.result.BestClass

	switch s.mode {
	case ModeSelector:
		for l := 0; l < numClasses; l++ {
			cut := best.result.PerClass[l]
			if math.IsNaN(cut.Threshold) {
				s.thresholds[l] = best.result.PerClass[s.optClass].Threshold
				s.polarity[l] = 0
				continue
			}
			s.thresholds[l] = cut.Threshold
			s.polarity[l] = sign(cut.HalfEdge)
			if s.polarity[l] == 0 {
				s.polarity[l] = 1
			}
		}
	case ModeOneClass:
		sharedThreshold := best.result.PerClass[s.optClass].Threshold
		for l := 0; l < numClasses; l++ {
			s.thresholds[l] = sharedThreshold
			if l == s.optClass {
				p := sign(best.result.PerClass[l].HalfEdge)
				if p == 0 {
					p = 1
				}
				s.polarity[l] = p
			} else {
				var wsum float64
				for logical := 0; logical < view.Len(); logical++ {
					lbl := view.Example(logical).Labels[l]
					wsum += lbl.Weight * float64(lbl.Y)
				}
				s.polarity[l] = sign(wsum)
				if s.polarity[l] == 0 {
					s.polarity[l] = 1
				}
			}
		}
	default: // ModeSingleThreshold
		sharedThreshold := best.result.PerClass[s.optClass].Threshold
		for l := 0; l < numClasses; l++ {
			s.thresholds[l] = sharedThreshold
			cut := best.result.PerClass[l]
			p := sign(cut.HalfEdge)
			if math.IsNaN(cut.HalfEdge) || p == 0 {
				// No signed half-edge for this class: it votes +1 on the shared cut.
				p = 1
			}
			s.polarity[l] = p
		}
	}

	var epsPos, epsNeg, epsZero float64
	classes := []int{}
	if s.mode == ModeOneClass {
		classes = []int{s.optClass}
	} else {
		for l := 0; l < numClasses; l++ {
			classes = append(classes, l)
		}
	}
	for _, l := range classes {
		p, n, z := ClassEpsilons(view, l, func(ex *data.Example) float64 { return s.Classify(ex, l) })
		epsPos += p
		epsNeg += n
		epsZero += z
	}
	s.alpha, s.energy = AlphaEnergy(epsPos, epsNeg, epsZero, s.edgeOffset)
	return s.energy, nil
}

// candidateScore ranks attributes: ModeOneClass and ModeSelector use the single
// largest |half-edge| across classes (the "one-class variant" rule of spec §4.4);
// ModeSingleThreshold sums the absolute half-edges of every class, each taken at that
// class's own best cut on the attribute; these cuts need not coincide with the one
// shared threshold Train then uses.
func candidateScore(mode Mode, r stump.Result) float64 {
	if mode != ModeSingleThreshold {
		return math.Abs(r.PerClass[r.BestClass].HalfEdge)
	}
	var sum float64
	for _, c := range r.PerClass {
		if !math.IsNaN(c.HalfEdge) {
			sum += math.Abs(c.HalfEdge)
		}
	}
	return sum
}

func (s *Stump) Classify(ex *data.Example, class int) float64 {
	if s.degenerate {
		return s.constantTie.Classify(ex, class)
	}
	if s.mode == ModeOneClass && class != s.optClass {
		// Other classes vote by their constant polarity, independent of x.
		return s.polarity[class]
	}
	x := ex.Value(s.attribute)
	if math.IsNaN(x) && s.columns != nil {
		x = s.columns.Dataset().ValueOrModal(ex, s.attribute)
	}
	return s.polarity[class] * sign(x-s.thresholds[class])
}

func (s *Stump) Alpha() float64         { return s.alpha }
func (s *Stump) SetAlpha(alpha float64) { s.alpha = alpha }

func (s *Stump) Edge(view *data.InputData, numClasses int, normalized bool) float64 {
	return Edge(view, numClasses, s.Classify, normalized)
}

func (s *Stump) Serialize(w *serialize.Writer) {
	w.FloatField("alpha", s.alpha)
	if s.degenerate {
		w.StringField("degenerate", "true")
		s.constantTie.Serialize(w)
		return
	}
	w.IntField("attribute", s.attribute)
	w.FloatsField("thresholds", s.thresholds)
	w.FloatsField("polarity", s.polarity)
	w.IntField("optClass", s.optClass)
}

func (s *Stump) Deserialize(r *serialize.Reader) error {
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
			s.alpha, err = tok.Float()
		case "degenerate":
			s.degenerate = true
			s.constantTie = NewConstant()
			// The Constant's fields are the last ones written, and its Deserialize
			// consumes the enclosing close tag.
			return s.constantTie.Deserialize(r)
		case "attribute":
			s.attribute, err = tok.Int()
		case "thresholds":
			s.thresholds, err = tok.Floats()
		case "polarity":
			s.polarity, err = tok.Floats()
		case "optClass":
			s.optClass, err = tok.Int()
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
