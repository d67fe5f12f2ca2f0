package bandit

import (
	"math"
	"math/rand"

	"github.com/janpfeifer/multiboost/internal/config"
	"github.com/janpfeifer/multiboost/internal/serialize"
)

// Exp3 implements spec §4.5's Exp3 with exploration gamma in (0,1]: maintains a
// per-arm estimator Xhat, draws p[a] proportional to exp(Xhat[a]) with a
// numerical-stability max-shift, mixes in uniform exploration to get phat, and on a
// received reward r for arm a updates Xhat[a] += gamma*(r/phat[a])/numArms.
type Exp3 struct {
	core
	gamma float64
	xhat  []float64
	rng   *rand.Rand
	lastP []float64 // phat at the most recent NextAction call, needed by ReceiveReward
}

func NewExp3() *Exp3 { return &Exp3{gamma: 0.1} }

func (e *Exp3) Name() string { return "Exp3" }

func (e *Exp3) Initialize(numArms int, cfg config.Params) error {
	e.core = newCore(numArms)
	e.xhat = make([]float64, numArms)
	e.lastP = make([]float64, numArms)
	var err error
	if e.gamma, err = config.GetParamOr(cfg, "gamma", 0.1); err != nil {
		return err
	}
	seed, err := config.GetParamOr(cfg, "seed", 0)
	if err != nil {
		return err
	}
	e.rng = rand.New(rand.NewSource(int64(seed)))
	return nil
}

// probabilities computes p[a] = exp(Xhat[a] - max)/Sum and phat[a] = (1-gamma)*p[a] + gamma/A.
func (e *Exp3) probabilities() []float64 {
	maxX := math.Inf(-1)
	for _, x := range e.xhat {
		if x > maxX {
			maxX = x
		}
	}
	p := make([]float64, e.numArms)
	var sum float64
	for a, x := range e.xhat {
		p[a] = math.Exp(x - maxX)
		sum += p[a]
	}
	phat := make([]float64, e.numArms)
	for a := range phat {
		phat[a] = (1-e.gamma)*(p[a]/sum) + e.gamma/float64(e.numArms)
	}
	return phat
}

func (e *Exp3) NextAction() int {
	e.lastP = e.probabilities()
	r := e.rng.Float64()
	var cum float64
	for a, p := range e.lastP {
		cum += p
		if r <= cum {
			return a
		}
	}
	return e.numArms - 1
}

func (e *Exp3) ReceiveReward(arm int, reward float64) {
	phat := e.lastP[arm]
	if phat <= 0 {
		phat = e.gamma / float64(e.numArms)
	}
	e.xhat[arm] += e.gamma * (reward / phat) / float64(e.numArms)
	e.record(arm, reward)
}

func (e *Exp3) KBestActions(k int) []int {
	return kBestByScore(e.numArms, k, func(a int) float64 { return e.xhat[a] })
}

func (e *Exp3) Serialize(w *serialize.Writer) {
	e.serializeCore(w)
	w.FloatField("gamma", e.gamma)
	w.FloatsField("xhat", e.xhat)
}

func (e *Exp3) Deserialize(r *serialize.Reader) error {
	err := deserializeCoreLoop(r, func(tag string, tok serialize.Token) (bool, error) {
		if handled, err := e.deserializeCoreField(tag, tok); handled || err != nil {
			return handled, err
		}
		var err error
		switch tag {
		case "gamma":
			e.gamma, err = tok.Float()
		case "xhat":
			e.xhat, err = tok.Floats()
		default:
			return false, nil
		}
		return true, err
	})
	if err == nil {
		e.lastP = make([]float64, e.numArms)
		e.rng = rand.New(rand.NewSource(0))
	}
	return err
}

// Exp3G implements spec §4.5's Exp3.G with (eta, gamma): weights w are updated via a
// side-information matrix that counts consecutive (arm, previous-arm) transitions,
// and p[a] = (1-gamma)*softmax(w)[a] + gamma/t.
//
// The source's reward denominator sideInformation[arm][prevArm] can be zero right
// after a reset; per spec §9's open question on this exact update, this
// implementation guards the division instead of reproducing a divide-by-zero.
type Exp3G struct {
	core
	eta, gamma float64
	w          []float64
	sideInfo   [][]float64 // sideInfo[arm][prevArm]
	prevArm    int
	rng        *rand.Rand
	lastP      []float64
}

func NewExp3G() *Exp3G { return &Exp3G{eta: 0.1, gamma: 0.1, prevArm: -1} }

func (e *Exp3G) Name() string { return "Exp3G" }

func (e *Exp3G) Initialize(numArms int, cfg config.Params) error {
	e.core = newCore(numArms)
	e.w = make([]float64, numArms)
	e.sideInfo = make([][]float64, numArms)
	for a := range e.sideInfo {
		e.sideInfo[a] = make([]float64, numArms)
	}
	e.lastP = make([]float64, numArms)
	e.prevArm = -1
	var err error
	if e.eta, err = config.GetParamOr(cfg, "eta", 0.1); err != nil {
		return err
	}
	if e.gamma, err = config.GetParamOr(cfg, "gamma", 0.1); err != nil {
		return err
	}
	seed, err := config.GetParamOr(cfg, "seed", 0)
	if err != nil {
		return err
	}
	e.rng = rand.New(rand.NewSource(int64(seed)))
	return nil
}

func softmax(w []float64) []float64 {
	maxW := math.Inf(-1)
	for _, v := range w {
		if v > maxW {
			maxW = v
		}
	}
	out := make([]float64, len(w))
	var sum float64
	for i, v := range w {
		out[i] = math.Exp(v - maxW)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

func (e *Exp3G) probabilities() []float64 {
	sm := softmax(e.w)
	t := float64(e.round + e.numArms)
	p := make([]float64, e.numArms)
	for a := range p {
		p[a] = (1-e.gamma)*sm[a] + e.gamma/t
	}
	return p
}

func (e *Exp3G) NextAction() int {
	e.lastP = e.probabilities()
	r := e.rng.Float64()
	var cum float64
	chosen := e.numArms - 1
	for a, p := range e.lastP {
		cum += p
		if r <= cum {
			chosen = a
			break
		}
	}
	return chosen
}

func (e *Exp3G) ReceiveReward(arm int, reward float64) {
	if e.prevArm >= 0 {
		e.sideInfo[arm][e.prevArm]++
		denom := e.sideInfo[arm][e.prevArm]
		if denom > 0 {
			e.w[arm] += e.eta * reward / denom
		}
	} else {
		e.w[arm] += e.eta * reward
	}
	e.prevArm = arm
	e.record(arm, reward)
}

func (e *Exp3G) KBestActions(k int) []int {
	return kBestByScore(e.numArms, k, func(a int) float64 { return e.w[a] })
}

func (e *Exp3G) Serialize(w *serialize.Writer) {
	e.serializeCore(w)
	w.FloatField("eta", e.eta)
	w.FloatField("gamma", e.gamma)
	w.FloatsField("w", e.w)
	w.IntField("prevArm", e.prevArm)
	for a := range e.sideInfo {
		w.FloatsField("sideInfoRow", e.sideInfo[a])
	}
}

func (e *Exp3G) Deserialize(r *serialize.Reader) error {
	rowIdx := 0
	err := deserializeCoreLoop(r, func(tag string, tok serialize.Token) (bool, error) {
		if handled, err := e.deserializeCoreField(tag, tok); handled || err != nil {
			return handled, err
		}
		var err error
		switch tag {
		case "eta":
			e.eta, err = tok.Float()
		case "gamma":
			e.gamma, err = tok.Float()
		case "w":
			e.w, err = tok.Floats()
		case "prevArm":
			e.prevArm, err = tok.Int()
		case "sideInfoRow":
			if e.sideInfo == nil || len(e.sideInfo) != e.numArms {
				e.sideInfo = make([][]float64, e.numArms)
			}
			var row []float64
			row, err = tok.Floats()
			if err == nil && rowIdx < e.numArms {
				e.sideInfo[rowIdx] = row
				rowIdx++
			}
		default:
			return false, nil
		}
		return true, err
	})
	if err == nil {
		e.lastP = make([]float64, e.numArms)
		e.rng = rand.New(rand.NewSource(0))
	}
	return err
}

// Exp3G2 is Exp3.G but receives a full reward vector each round and updates every
// arm's weight unconditionally: w[a] += eta*r[a], with no side-information gating.
type Exp3G2 struct {
	core
	eta, gamma float64
	w          []float64
	rng        *rand.Rand
	lastP      []float64
}

func NewExp3G2() *Exp3G2 { return &Exp3G2{eta: 0.1, gamma: 0.1} }

func (e *Exp3G2) Name() string { return "Exp3G2" }

func (e *Exp3G2) Initialize(numArms int, cfg config.Params) error {
	e.core = newCore(numArms)
	e.w = make([]float64, numArms)
	e.lastP = make([]float64, numArms)
	var err error
	if e.eta, err = config.GetParamOr(cfg, "eta", 0.1); err != nil {
		return err
	}
	if e.gamma, err = config.GetParamOr(cfg, "gamma", 0.1); err != nil {
		return err
	}
	seed, err := config.GetParamOr(cfg, "seed", 0)
	if err != nil {
		return err
	}
	e.rng = rand.New(rand.NewSource(int64(seed)))
	return nil
}

func (e *Exp3G2) probabilities() []float64 {
	sm := softmax(e.w)
	t := float64(e.round + e.numArms)
	p := make([]float64, e.numArms)
	for a := range p {
		p[a] = (1-e.gamma)*sm[a] + e.gamma/t
	}
	return p
}

func (e *Exp3G2) NextAction() int {
	e.lastP = e.probabilities()
	r := e.rng.Float64()
	var cum float64
	chosen := e.numArms - 1
	for a, p := range e.lastP {
		cum += p
		if r <= cum {
			chosen = a
			break
		}
	}
	return chosen
}

// ReceiveReward updates the arm actually pulled; ReceiveRewardVector updates every
// arm at once, matching the full-information variant of spec §4.5.
func (e *Exp3G2) ReceiveReward(arm int, reward float64) {
	e.w[arm] += e.eta * reward
	e.record(arm, reward)
}

// ReceiveRewardVector applies a full per-arm reward vector, as Exp3.G2 requires.
func (e *Exp3G2) ReceiveRewardVector(rewards []float64) {
	for a, r := range rewards {
		e.w[a] += e.eta * r
	}
	best, bestR := 0, math.Inf(-1)
	for a, r := range rewards {
		if r > bestR {
			best, bestR = a, r
		}
	}
	e.record(best, rewards[best])
}

func (e *Exp3G2) KBestActions(k int) []int {
	return kBestByScore(e.numArms, k, func(a int) float64 { return e.w[a] })
}

func (e *Exp3G2) Serialize(w *serialize.Writer) {
	e.serializeCore(w)
	w.FloatField("eta", e.eta)
	w.FloatField("gamma", e.gamma)
	w.FloatsField("w", e.w)
}

func (e *Exp3G2) Deserialize(r *serialize.Reader) error {
	err := deserializeCoreLoop(r, func(tag string, tok serialize.Token) (bool, error) {
		if handled, err := e.deserializeCoreField(tag, tok); handled || err != nil {
			return handled, err
		}
		var err error
		switch tag {
		case "eta":
			e.eta, err = tok.Float()
		case "gamma":
			e.gamma, err = tok.Float()
		case "w":
			e.w, err = tok.Floats()
		default:
			return false, nil
		}
		return true, err
	})
	if err == nil {
		e.lastP = make([]float64, e.numArms)
		e.rng = rand.New(rand.NewSource(0))
	}
	return err
}
