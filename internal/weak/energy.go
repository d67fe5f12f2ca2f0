package weak

import (
	"math"

	"github.com/janpfeifer/multiboost/internal/data"
)

// smoothing is zeta in spec §4.3's closed-form alpha: a small constant keeping alpha
// finite when a class has zero weighted error on one side.
const smoothing = 1e-3

// ClassEpsilons computes the weighted fractions of correct (epsPos), wrong (epsNeg)
// and abstaining (epsZero) predictions of predict for one class over view, per spec
// §4.3. A label is abstaining if y==0; a prediction is abstaining if predict==0.
func ClassEpsilons(view *data.InputData, class int, predict func(ex *data.Example) float64) (epsPos, epsNeg, epsZero float64) {
	for logical := 0; logical < view.Len(); logical++ {
		ex := view.Example(logical)
		lbl := ex.Labels[class]
		if lbl.Y == 0 {
			epsZero += lbl.Weight
			continue
		}
		h := predict(ex)
		switch {
		case h == 0:
			epsZero += lbl.Weight
		case h*float64(lbl.Y) > 0:
			epsPos += lbl.Weight
		default:
			epsNeg += lbl.Weight
		}
	}
	return
}

// AlphaEnergy computes the closed-form optimum alpha and the energy Z for a binary
// weak learner from its per-class (epsPos, epsNeg, epsZero), per spec §4.3.
//
// With no edge-offset: alpha = 1/2 * ln((epsPos+zeta)/(epsNeg+zeta)),
// Z = 2*sqrt(epsNeg*epsPos) + epsZero.
//
// With edge-offset theta>0: alpha = ln(-b + sqrt(b^2+c)) with
// b = theta*epsZero / (2*(1+theta)*epsNeg), c = (1-theta)*epsPos / ((1+theta)*epsNeg);
// if epsNeg is ~0, the degenerate form alpha = ln((1-theta)*epsPos / (theta*epsZero))
// is used instead.
func AlphaEnergy(epsPos, epsNeg, epsZero, edgeOffset float64) (alpha, energy float64) {
	energy = 2*math.Sqrt(epsNeg*epsPos) + epsZero
	if edgeOffset <= 0 {
		alpha = 0.5 * math.Log((epsPos+smoothing)/(epsNeg+smoothing))
		return
	}
	theta := edgeOffset
	if epsNeg < 1e-12 {
		if epsZero < 1e-12 {
			alpha = math.Inf(1)
			return
		}
		alpha = math.Log((1 - theta) * epsPos / (theta * epsZero))
		return
	}
	b := theta * epsZero / (2 * (1 + theta) * epsNeg)
	c := (1 - theta) * epsPos / ((1 + theta) * epsNeg)
	alpha = math.Log(-b + math.Sqrt(b*b+c))
	return
}

// Edge computes Sum_{i,l} w_{i,l} h(x_i,l) y_{i,l} for classify over every active
// example and every class of view, per spec §4.3. If normalized, the sum is divided
// by the total active weight.
func Edge(view *data.InputData, numClasses int, classify func(ex *data.Example, class int) float64, normalized bool) float64 {
	var edge, wsum float64
	for logical := 0; logical < view.Len(); logical++ {
		ex := view.Example(logical)
		for l := 0; l < numClasses; l++ {
			lbl := ex.Labels[l]
			h := classify(ex, l)
			edge += lbl.Weight * h * float64(lbl.Y)
			wsum += lbl.Weight
		}
	}
	if normalized && wsum > 0 {
		return edge / wsum
	}
	return edge
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
