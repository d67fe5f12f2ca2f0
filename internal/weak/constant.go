package weak

import (
	"github.com/janpfeifer/multiboost/internal/config"
	"github.com/janpfeifer/multiboost/internal/data"
	"github.com/janpfeifer/multiboost/internal/serialize"
)

// Constant implements h(x,l) = v_l in {-1,+1}, chosen per class to match the sign of
// the weighted-label sum (spec §4.3). It is the fallback used whenever a
// DegenerateWeakHypothesis is detected elsewhere in the family.
type Constant struct {
	alpha  float64
	vote   []float64 // per class, -1 or +1
	energy float64
}

// NewConstant returns an uninitialized Constant learner.
func NewConstant() *Constant { return &Constant{} }

func (c *Constant) Name() string { return "Constant" }

func (c *Constant) Initialize(config.Params) error { return nil }

func (c *Constant) Train(view *data.InputData, numClasses int) (float64, error) {
	c.vote = make([]float64, numClasses)
	var epsPos, epsNeg, epsZero float64
	for l := 0; l < numClasses; l++ {
		var wsum float64
		for logical := 0; logical < view.Len(); logical++ {
			lbl := view.Example(logical).Labels[l]
			wsum += lbl.Weight * float64(lbl.Y)
		}
		c.vote[l] = sign(wsum)
		if c.vote[l] == 0 {
			c.vote[l] = 1
		}
		p, n, z := ClassEpsilons(view, l, func(ex *data.Example) float64 { return c.vote[l] })
		epsPos += p
		epsNeg += n
		epsZero += z
	}
	_, c.energy = AlphaEnergy(epsPos, epsNeg, epsZero, 0)
	return c.energy, nil
}

func (c *Constant) Classify(ex *data.Example, class int) float64 {
	if class >= len(c.vote) {
		return 0
	}
	return c.vote[class]
}

func (c *Constant) Alpha() float64        { return c.alpha }
func (c *Constant) SetAlpha(alpha float64) { c.alpha = alpha }

func (c *Constant) Edge(view *data.InputData, numClasses int, normalized bool) float64 {
	return Edge(view, numClasses, c.Classify, normalized)
}

func (c *Constant) Serialize(w *serialize.Writer) {
	w.FloatField("alpha", c.alpha)
	w.FloatsField("vote", c.vote)
}

func (c *Constant) Deserialize(r *serialize.Reader) error {
	for {
		tok, ok, err := r.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if tok.IsClose {
			return nil
		}
		switch tok.Tag {
		case "alpha":
			c.alpha, err = tok.Float()
		case "vote":
			c.vote, err = tok.Floats()
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
