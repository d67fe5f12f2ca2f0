package weak

import (
	"github.com/janpfeifer/multiboost/internal/config"
	"github.com/janpfeifer/multiboost/internal/data"
	"github.com/janpfeifer/multiboost/internal/serialize"
	"github.com/janpfeifer/multiboost/internal/sortedcol"
)

// Product implements spec §4.3/§9's Product(Vec<WeakLearner>) combinator:
// h(x,l) = prod_i h_i(x,l), sharing a single alpha across all children. It is used to
// express conjunctions of simple stumps without a dedicated learner per conjunction
// shape.
type Product struct {
	children   []Learner
	numFactors int
	columns    *sortedcol.Set
	alpha      float64
	energy     float64
}

// NewProduct returns an uninitialized Product learner with the default factor count.
func NewProduct() *Product { return &Product{numFactors: 2} }

func (p *Product) Name() string { return "Product" }

// SetColumns stores the sorted-column set; Train passes it to each factor it creates.
func (p *Product) SetColumns(columns *sortedcol.Set) { p.columns = columns }

func (p *Product) Initialize(cfg config.Params) error {
	n, err := config.GetParamOr(cfg, "factors", 2)
	if err != nil {
		return err
	}
	p.numFactors = n
	return nil
}

// Train greedily trains each factor in turn on the residual weighting implied by the
// factors already chosen: factor i is trained as a SingleStump restricted to examples
// on which every previous factor outputs +1 for at least half of the classes, closely mirroring
// the teacher's staged feature-selection loops (internal/ai/features.go) adapted from
// move-feature scoring to weak-learner factor selection.
func (p *Product) Train(view *data.InputData, numClasses int) (float64, error) {
	p.children = nil
	current := view
	for i := 0; i < p.numFactors; i++ {
		factor := NewStump(ModeSingleThreshold)
		factor.SetColumns(p.columns)
		if _, err := factor.Train(current, numClasses); err != nil {
			return 0, err
		}
		p.children = append(p.children, factor)
		if i == p.numFactors-1 {
			break
		}
		next := current.Filter(func(raw int, ex *data.Example) bool {
			return p.agreesWithMajority(factor, ex, numClasses)
		})
		if next.Len() == 0 {
			break
		}
		current = next
	}

	var epsPos, epsNeg, epsZero float64
	for l := 0; l < numClasses; l++ {
		pp, nn, zz := ClassEpsilons(view, l, func(ex *data.Example) float64 { return p.Classify(ex, l) })
		epsPos += pp
		epsNeg += nn
		epsZero += zz
	}
	p.alpha, p.energy = AlphaEnergy(epsPos, epsNeg, epsZero, 0)
	return p.energy, nil
}

func (p *Product) agreesWithMajority(factor Learner, ex *data.Example, numClasses int) bool {
	var agree int
	for l := 0; l < numClasses; l++ {
		if factor.Classify(ex, l) > 0 {
			agree++
		}
	}
	return agree*2 >= numClasses
}

func (p *Product) Classify(ex *data.Example, class int) float64 {
	product := 1.0
	for _, c := range p.children {
		product *= c.Classify(ex, class)
	}
	return product
}

func (p *Product) Alpha() float64         { return p.alpha }
func (p *Product) SetAlpha(alpha float64) { p.alpha = alpha }

func (p *Product) Edge(view *data.InputData, numClasses int, normalized bool) float64 {
	return Edge(view, numClasses, p.Classify, normalized)
}

func (p *Product) Serialize(w *serialize.Writer) {
	w.FloatField("alpha", p.alpha)
	w.IntField("numFactors", len(p.children))
	for _, c := range p.children {
		w.Open("factor")
		w.StringField("weakLearner", c.Name())
		c.Serialize(w)
		w.Close("factor")
	}
}

// Deserialize reads a Product, reconstructing its factor learners by name from the
// default registry; DeserializeProduct does the same with a caller-supplied registry.
func (p *Product) Deserialize(r *serialize.Reader) error {
	return DeserializeProduct(p, r, NewDefaultRegistry())
}

// DeserializeProduct reads a Product's fields, instantiating factor learners from reg.
func DeserializeProduct(p *Product, r *serialize.Reader, reg *Registry) error {
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
			p.alpha, err = tok.Float()
		case "numFactors":
			_, err = tok.Int()
		case "factor":
			err = deserializeFactor(p, r, reg)
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

func deserializeFactor(p *Product, r *serialize.Reader, reg *Registry) error {
	nameTok, ok, err := r.Next()
	if err != nil {
		return err
	}
	if !ok || nameTok.Tag != "weakLearner" {
		return errUnregistered("<missing>")
	}
	factor, err := reg.New(nameTok.Value)
	if err != nil {
		return err
	}
	if err := factor.Deserialize(r); err != nil {
		return err
	}
	p.children = append(p.children, factor)
	// factor.Deserialize has already consumed the </factor> close tag.
	return nil
}
