package bandit

import (
	"math"
	"math/rand"

	"github.com/janpfeifer/multiboost/internal/config"
	"github.com/janpfeifer/multiboost/internal/serialize"
)

// UCBK implements spec §4.5's UCB-K: argmax_a X[a]/T[a] + sqrt(2*ln(t)/T[a]).
type UCBK struct {
	core
}

func NewUCBK() *UCBK { return &UCBK{} }

func (b *UCBK) Name() string { return "UCBK" }

func (b *UCBK) Initialize(numArms int, _ config.Params) error {
	b.core = newCore(numArms)
	return nil
}

func (b *UCBK) score(a int) float64 {
	t := float64(b.round + b.numArms)
	return b.mean(a) + math.Sqrt(2*lnSafe(t)/b.pulls[a])
}

func (b *UCBK) NextAction() int {
	best, bestScore := 0, math.Inf(-1)
	for a := 0; a < b.numArms; a++ {
		if s := b.score(a); s > bestScore {
			best, bestScore = a, s
		}
	}
	return best
}

func (b *UCBK) ReceiveReward(arm int, reward float64) { b.record(arm, reward) }

func (b *UCBK) KBestActions(k int) []int {
	return kBestByScore(b.numArms, k, b.score)
}

func (b *UCBK) Serialize(w *serialize.Writer) { b.serializeCore(w) }

func (b *UCBK) Deserialize(r *serialize.Reader) error {
	return deserializeCoreLoop(r, b.deserializeCoreField)
}

// UCBKV implements spec §4.5's UCB-KV, which adds a per-arm variance term:
// score = mean + sqrt(2*xi*V*ln(t)/T) + 3*c*xi*b*ln(t)/T, with xi=1, c=1/3, b=1.
type UCBKV struct {
	core
	sumSq []float64 // per-arm sum of squared rewards, for the running variance estimate
	xi, c, b float64
}

func NewUCBKV() *UCBKV { return &UCBKV{xi: 1, c: 1.0 / 3.0, b: 1} }

func (u *UCBKV) Name() string { return "UCBKV" }

func (u *UCBKV) Initialize(numArms int, cfg config.Params) error {
	u.core = newCore(numArms)
	u.sumSq = make([]float64, numArms)
	var err error
	if u.xi, err = config.GetParamOr(cfg, "xi", 1.0); err != nil {
		return err
	}
	if u.c, err = config.GetParamOr(cfg, "c", 1.0/3.0); err != nil {
		return err
	}
	u.b, err = config.GetParamOr(cfg, "b", 1.0)
	return err
}

func (u *UCBKV) variance(a int) float64 {
	n := u.pulls[a]
	if n <= 1 {
		return 0
	}
	mean := u.mean(a)
	v := u.sumSq[a]/n - mean*mean
	if v < 0 {
		return 0
	}
	return v
}

func (u *UCBKV) score(a int) float64 {
	t := float64(u.round + u.numArms)
	lt := lnSafe(t)
	n := u.pulls[a]
	return u.mean(a) +
		math.Sqrt(2*u.xi*u.variance(a)*lt/n) +
		3*u.c*u.xi*u.b*lt/n
}

func (u *UCBKV) NextAction() int {
	best, bestScore := 0, math.Inf(-1)
	for a := 0; a < u.numArms; a++ {
		if s := u.score(a); s > bestScore {
			best, bestScore = a, s
		}
	}
	return best
}

func (u *UCBKV) ReceiveReward(arm int, reward float64) {
	u.record(arm, reward)
	u.sumSq[arm] += reward * reward
}

func (u *UCBKV) KBestActions(k int) []int {
	return kBestByScore(u.numArms, k, u.score)
}

func (u *UCBKV) Serialize(w *serialize.Writer) {
	u.serializeCore(w)
	w.FloatsField("sumSq", u.sumSq)
	w.FloatField("xi", u.xi)
	w.FloatField("c", u.c)
	w.FloatField("b", u.b)
}

func (u *UCBKV) Deserialize(r *serialize.Reader) error {
	return deserializeCoreLoop(r, func(tag string, tok serialize.Token) (bool, error) {
		if handled, err := u.deserializeCoreField(tag, tok); handled || err != nil {
			return handled, err
		}
		var err error
		switch tag {
		case "sumSq":
			u.sumSq, err = tok.Floats()
		case "xi":
			u.xi, err = tok.Float()
		case "c":
			u.c, err = tok.Float()
		case "b":
			u.b, err = tok.Float()
		default:
			return false, nil
		}
		return true, err
	})
}

// UCBKRandomized implements spec §4.5's UCB-K-randomized: samples an arm with
// probability proportional to X[a]/T[a] (no exploration bonus).
type UCBKRandomized struct {
	core
	rng *rand.Rand
}

func NewUCBKRandomized() *UCBKRandomized { return &UCBKRandomized{} }

func (b *UCBKRandomized) Name() string { return "UCBKRandomized" }

func (b *UCBKRandomized) Initialize(numArms int, cfg config.Params) error {
	b.core = newCore(numArms)
	seed, err := config.GetParamOr(cfg, "seed", 0)
	if err != nil {
		return err
	}
	b.rng = rand.New(rand.NewSource(int64(seed)))
	return nil
}

func (b *UCBKRandomized) NextAction() int {
	weights := make([]float64, b.numArms)
	var total float64
	for a := 0; a < b.numArms; a++ {
		w := b.mean(a)
		if w < 0 {
			w = 0
		}
		weights[a] = w
		total += w
	}
	if total <= 0 {
		return b.rng.Intn(b.numArms)
	}
	r := b.rng.Float64() * total
	var cum float64
	for a, w := range weights {
		cum += w
		if r <= cum {
			return a
		}
	}
	return b.numArms - 1
}

func (b *UCBKRandomized) ReceiveReward(arm int, reward float64) { b.record(arm, reward) }

func (b *UCBKRandomized) KBestActions(k int) []int {
	return kBestByScore(b.numArms, k, func(a int) float64 { return b.mean(a) })
}

func (b *UCBKRandomized) Serialize(w *serialize.Writer) { b.serializeCore(w) }

func (b *UCBKRandomized) Deserialize(r *serialize.Reader) error {
	return deserializeCoreLoop(r, b.deserializeCoreField)
}
