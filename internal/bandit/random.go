package bandit

import (
	"math/rand"

	"github.com/janpfeifer/multiboost/internal/config"
	"github.com/janpfeifer/multiboost/internal/serialize"
)

// Random picks a uniformly random arm every round, ignoring reward history. It is
// the baseline bandit of spec §4.5, useful for isolating whether an exploration
// strategy is actually helping feature selection.
type Random struct {
	core
	rng *rand.Rand
}

// NewRandom returns an uninitialized Random bandit.
func NewRandom() *Random { return &Random{} }

func (b *Random) Name() string { return "Random" }

func (b *Random) Initialize(numArms int, cfg config.Params) error {
	b.core = newCore(numArms)
	seed, err := config.GetParamOr(cfg, "seed", 0)
	if err != nil {
		return err
	}
	b.rng = rand.New(rand.NewSource(int64(seed)))
	return nil
}

func (b *Random) NextAction() int {
	if b.numArms == 0 {
		return -1
	}
	return b.rng.Intn(b.numArms)
}

func (b *Random) ReceiveReward(arm int, reward float64) { b.record(arm, reward) }

func (b *Random) KBestActions(k int) []int {
	return kBestByScore(b.numArms, k, func(a int) float64 { return b.mean(a) })
}

func (b *Random) Serialize(w *serialize.Writer) { b.serializeCore(w) }

func (b *Random) Deserialize(r *serialize.Reader) error {
	return deserializeCoreLoop(r, b.deserializeCoreField)
}

// deserializeCoreLoop runs the common token loop shared by every bandit algorithm's
// Deserialize: read fields via handle until the container closes, skipping any
// container this algorithm doesn't recognize.
func deserializeCoreLoop(r *serialize.Reader, handle func(tag string, tok serialize.Token) (bool, error)) error {
	for {
		tok, ok, err := r.Next()
		if err != nil {
			return err
		}
		if !ok || tok.IsClose {
			return nil
		}
		handled, err := handle(tok.Tag, tok)
		if err != nil {
			return err
		}
		if !handled && !tok.IsLeaf {
			if err := r.SkipContainer(tok.Tag); err != nil {
				return err
			}
		}
	}
}
