// Package bandit implements the multi-armed bandit subsystem of spec §4.5, used by
// the bandit weak-learner wrapper as a feature-selection oracle: each arm corresponds
// to one candidate attribute, and the reward received after a training round is the
// weak learner's resulting edge on that attribute.
//
// Grounded on the teacher's ai/mcts.go selection-policy shape (UCB-flavored node
// selection over a tree of moves) generalized from "moves in a game" to "arms in a
// bandit", plus internal/ai/players.go's factory-by-name registration pattern.
package bandit

import (
	"math"

	"github.com/janpfeifer/multiboost/internal/config"
	"github.com/janpfeifer/multiboost/internal/serialize"
)

// Algorithm is the contract every bandit strategy satisfies (spec §4.5).
type Algorithm interface {
	Name() string
	Initialize(numArms int, cfg config.Params) error

	// NextAction draws (or deterministically picks) the next arm to pull.
	NextAction() int

	// ReceiveReward records the outcome of pulling arm with the given reward.
	ReceiveReward(arm int, reward float64)

	// KBestActions returns the k arms with the highest pull-weighted score, without
	// mutating state. Used by the bandit weak learner to restrict training to a
	// promising attribute subset.
	KBestActions(k int) []int

	Serialize(w *serialize.Writer)
	Deserialize(r *serialize.Reader) error
}

// Factory constructs a zero-value Algorithm of one kind.
type Factory func() Algorithm

// Registry maps an algorithm name to its Factory.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry { return &Registry{factories: make(map[string]Factory)} }

// Register adds a named factory.
func (r *Registry) Register(name string, f Factory) { r.factories[name] = f }

// New instantiates a fresh Algorithm of the given name.
func (r *Registry) New(name string) (Algorithm, error) {
	f, ok := r.factories[name]
	if !ok {
		return nil, errUnregistered(name)
	}
	return f(), nil
}

// NewDefaultRegistry pre-registers every Algorithm implemented in this package.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("Random", func() Algorithm { return NewRandom() })
	r.Register("UCBK", func() Algorithm { return NewUCBK() })
	r.Register("UCBKV", func() Algorithm { return NewUCBKV() })
	r.Register("UCBKRandomized", func() Algorithm { return NewUCBKRandomized() })
	r.Register("Exp3", func() Algorithm { return NewExp3() })
	r.Register("Exp3G", func() Algorithm { return NewExp3G() })
	r.Register("Exp3G2", func() Algorithm { return NewExp3G2() })
	return r
}

// core holds the per-arm pull count and cumulative reward bookkeeping shared by
// every UCB-flavored algorithm (spec §4.5's "Bandit state"). Each arm starts with one
// virtual pull so T[a] is never zero and the quantified invariant
// Sum_a T[a] = n + A (spec §8) holds from round zero.
type core struct {
	numArms int
	pulls   []float64 // T[a]
	reward  []float64 // X[a]
	round   int
}

func newCore(numArms int) core {
	c := core{numArms: numArms, pulls: make([]float64, numArms), reward: make([]float64, numArms)}
	for a := range c.pulls {
		c.pulls[a] = 1
	}
	return c
}

func (c *core) record(arm int, reward float64) {
	c.pulls[arm]++
	c.reward[arm] += reward
	c.round++
}

func (c *core) mean(arm int) float64 {
	if c.pulls[arm] <= 0 {
		return 0
	}
	return c.reward[arm] / c.pulls[arm]
}

// kBestByScore returns the k arms with the largest score(a), descending.
func kBestByScore(numArms, k int, score func(a int) float64) []int {
	type pair struct {
		arm   int
		score float64
	}
	pairs := make([]pair, numArms)
	for a := 0; a < numArms; a++ {
		pairs[a] = pair{arm: a, score: score(a)}
	}
	// Simple selection sort: numArms is small (a few hundred at most, the feature
	// count), so an O(numArms*k) partial sort avoids pulling in a heap for this size.
	out := make([]int, 0, k)
	used := make([]bool, numArms)
	for i := 0; i < k && i < numArms; i++ {
		best := -1
		for a := 0; a < numArms; a++ {
			if used[a] {
				continue
			}
			if best == -1 || pairs[a].score > pairs[best].score {
				best = a
			}
		}
		used[best] = true
		out = append(out, best)
	}
	return out
}

func (c *core) serializeCore(w *serialize.Writer) {
	w.IntField("numArms", c.numArms)
	w.FloatsField("pulls", c.pulls)
	w.FloatsField("reward", c.reward)
	w.IntField("round", c.round)
}

func (c *core) deserializeCoreField(tag string, tok serialize.Token) (handled bool, err error) {
	switch tag {
	case "numArms":
		c.numArms, err = tok.Int()
	case "pulls":
		c.pulls, err = tok.Floats()
	case "reward":
		c.reward, err = tok.Floats()
	case "round":
		c.round, err = tok.Int()
	default:
		return false, nil
	}
	return true, err
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func lnSafe(v float64) float64 {
	if v <= 0 {
		return 0
	}
	return math.Log(v)
}
