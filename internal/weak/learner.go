// Package weak implements the polymorphic weak-hypothesis family of spec §4.3: decision
// stump, selector stump, one-class stump, tree/indicator, product, Haar and the bandit
// wrapper, plus the energy/alpha mathematics that ties a weak learner's edge to the
// strong learner's weight update.
//
// Grounded on the teacher's ai.BoardScorer/ai.LearnerScorer interface family
// (internal/ai/ai.go): one shared interface, several concrete implementations, no
// inheritance chain -- the re-architecture spec §9 explicitly asks for (a tagged
// variant realized as a Go interface, not a class hierarchy).
package weak

import (
	"sync"

	"github.com/janpfeifer/multiboost/internal/config"
	"github.com/janpfeifer/multiboost/internal/data"
	"github.com/janpfeifer/multiboost/internal/serialize"
)

// Learner is the contract every weak hypothesis satisfies (spec §4.3).
type Learner interface {
	// Name is the registered factory name, used as the <weakLearner> tag's value.
	Name() string

	// Initialize parses algorithm-specific options from a configuration block.
	Initialize(cfg config.Params) error

	// Train scans view and returns the minimum energy found; it also sets the
	// learner's internal parameters (threshold, attribute, polarity, ...).
	Train(view *data.InputData, numClasses int) (energy float64, err error)

	// Classify returns a deterministic +-1 for stumps, or a real value for soft
	// learners, for example ex and class label.
	Classify(ex *data.Example, class int) float64

	Alpha() float64
	SetAlpha(alpha float64)

	// Edge returns Sum_{i,l} w_{i,l} h(x_i,l) y_{i,l}, normalized by the current
	// weight sum when requested.
	Edge(view *data.InputData, numClasses int, normalized bool) float64

	Serialize(w *serialize.Writer)
	Deserialize(r *serialize.Reader) error
}

// Factory constructs a zero-value Learner of one kind, ready for Initialize.
type Factory func() Learner

// Registry maps a weak-learner name to its Factory. Replaces the teacher's global
// registered-learners singleton with an explicit table passed through the training
// context, per spec §9.
type Registry struct {
	mu        sync.Mutex
	factories map[string]Factory
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a named factory. Re-registering the same name overwrites it.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// New instantiates a fresh Learner of the given name, or reports a LoadError-shaped
// error if name was never registered (spec §7: "unregistered weak-learner name in a
// model file" is a fatal structural failure).
func (r *Registry) New(name string) (Learner, error) {
	r.mu.Lock()
	f, ok := r.factories[name]
	r.mu.Unlock()
	if !ok {
		return nil, errUnregistered(name)
	}
	return f(), nil
}

// Names returns the registered learner names.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	return names
}

// NewDefaultRegistry returns a Registry with every weak-learner kind implemented in
// this package pre-registered under its canonical name.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("Constant", func() Learner { return NewConstant() })
	r.Register("SingleStump", func() Learner { return NewStump(ModeSingleThreshold) })
	r.Register("SelectorStump", func() Learner { return NewStump(ModeSelector) })
	r.Register("OneClassStump", func() Learner { return NewStump(ModeOneClass) })
	r.Register("Haar", func() Learner { return NewHaar() })
	r.Register("Tree", func() Learner { return NewTree() })
	r.Register("Product", func() Learner { return NewProduct() })
	r.Register("Bandit", func() Learner { return NewBanditWrapper() })
	return r
}
