// Package data implements the boosting engine's DataModel: dense/sparse examples,
// multi-label weight bookkeeping and filtered index views (spec §3, §4.1).
//
// Grounded on the teacher's internal/state.Board (owning examples) and
// internal/features.BoardId (per-column feature bookkeeping), adapted from a single
// game board into a column-oriented, multi-class training set.
package data

import (
	"math"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// AttrType is the declared type of a feature column.
type AttrType int

const (
	Numeric AttrType = iota
	Nominal
)

// Label is a (class-index, sign, weight, initial-weight) tuple, spec §3.
type Label struct {
	Class int
	// Y is -1, 0 (abstain) or +1.
	Y int8
	// UserWeight is the caller-supplied initial weight before any WeightPolicy scaling;
	// defaults to 1 when not given explicitly by the input format.
	UserWeight float64
	// Weight is the current boosting weight w_{i,l}; mutated only by the strong
	// learner's weight-update step (spec §5's shared-resource policy).
	Weight float64
	// InitWeight is w0, frozen at load time, used for weighted 0-1/Hamming metrics.
	InitWeight float64
}

// Example is one training row: either a dense feature vector or a sparse
// (indices, values) pair list, plus an ordered label vector of size K.
type Example struct {
	Name string

	// Dense holds the feature vector for dense examples; nil for sparse ones.
	Dense []float64

	// SparseIdx/SparseVal hold the (feature-index, value) pairs for sparse examples,
	// ascending by feature index; both nil for dense ones.
	SparseIdx []int
	SparseVal []float64
	sparsePos map[int]int // feature index -> position in SparseIdx/SparseVal

	Labels []Label
}

// IsSparse reports whether the example uses the sparse representation.
func (e *Example) IsSparse() bool { return e.Dense == nil }

// buildSparseIndex lazily builds the feature-index -> position map used by Value.
func (e *Example) buildSparseIndex() {
	if e.sparsePos != nil || !e.IsSparse() {
		return
	}
	e.sparsePos = make(map[int]int, len(e.SparseIdx))
	for pos, idx := range e.SparseIdx {
		e.sparsePos[idx] = pos
	}
}

// Value returns the raw value of feature j, or NaN if it is missing (dense: not set
// to a real number by the loader; sparse: absent from the pair list, which the spec
// treats as an explicit zero rather than missing -- callers that need "absent means
// zero" should use SparseValueOrZero instead).
func (e *Example) Value(j int) float64 {
	if !e.IsSparse() {
		if j < 0 || j >= len(e.Dense) {
			return math.NaN()
		}
		return e.Dense[j]
	}
	e.buildSparseIndex()
	if pos, ok := e.sparsePos[j]; ok {
		return e.SparseVal[pos]
	}
	return math.NaN()
}

// SparseValueOrZero returns the value of feature j, treating an absent sparse entry
// as an explicit zero (spec §4.2's "sparse columns synthesize zero-valued entries").
func (e *Example) SparseValueOrZero(j int) float64 {
	v := e.Value(j)
	if e.IsSparse() && math.IsNaN(v) {
		return 0
	}
	return v
}

// Dataset (spec's "RawData") owns the example list, class-name<->index map, per-feature
// nominal-value map, per-feature attribute type, per-class example counts and the
// dataset's dense/sparse representation. It is immutable after InitWeights (spec §5).
type Dataset struct {
	Examples      []*Example
	ClassNames    []string
	NumFeatures   int
	AttrTypes     []AttrType
	NominalValues map[int][]string // feature index -> ordered nominal value strings
	Sparse        bool

	classIndex map[string]int
	modal      map[int]float64
}

// NewDataset creates an empty Dataset with numFeatures columns and the given class names.
func NewDataset(numFeatures int, classNames []string, sparse bool) *Dataset {
	ds := &Dataset{
		ClassNames:    append([]string(nil), classNames...),
		NumFeatures:   numFeatures,
		AttrTypes:     make([]AttrType, numFeatures),
		NominalValues: make(map[int][]string),
		Sparse:        sparse,
		classIndex:    make(map[string]int, len(classNames)),
		modal:         make(map[int]float64),
	}
	for i, name := range ds.ClassNames {
		ds.classIndex[name] = i
	}
	return ds
}

// NumClasses returns K, the number of classes.
func (d *Dataset) NumClasses() int { return len(d.ClassNames) }

// NumExamples returns N.
func (d *Dataset) NumExamples() int { return len(d.Examples) }

// ClassIndex resolves a class name to its index.
func (d *Dataset) ClassIndex(name string) (int, bool) {
	idx, ok := d.classIndex[name]
	return idx, ok
}

// AddExample appends an example, initializing its label vector's UserWeight to 1 for
// any label left at the zero value.
func (d *Dataset) AddExample(e *Example) {
	if len(e.Labels) != d.NumClasses() {
		klog.Errorf("example %q has %d labels, dataset has %d classes", e.Name, len(e.Labels), d.NumClasses())
	}
	for i := range e.Labels {
		if e.Labels[i].UserWeight == 0 {
			e.Labels[i].UserWeight = 1
		}
		e.Labels[i].Class = i
	}
	d.Examples = append(d.Examples, e)
}

// ClassCounts returns, for each class, the number of examples with a positive (y=+1)
// label for that class.
func (d *Dataset) ClassCounts() []int {
	counts := make([]int, d.NumClasses())
	for _, ex := range d.Examples {
		for l, lbl := range ex.Labels {
			if lbl.Y > 0 {
				counts[l]++
			}
		}
	}
	return counts
}

// ModalValue returns the most frequent non-NaN value of feature j across all examples,
// computed once and cached. Used to re-materialize missing numeric values on demand
// (spec §3).
func (d *Dataset) ModalValue(j int) float64 {
	if v, ok := d.modal[j]; ok {
		return v
	}
	counts := make(map[float64]int)
	for _, ex := range d.Examples {
		v := ex.Value(j)
		if math.IsNaN(v) {
			continue
		}
		counts[v]++
	}
	var best float64
	bestCount := -1
	for v, c := range counts {
		if c > bestCount || (c == bestCount && v < best) {
			best, bestCount = v, c
		}
	}
	d.modal[j] = best
	return best
}

// ValueOrModal returns ex's value for feature j, re-materializing the column's modal
// value if the raw value is the NaN/missing sentinel.
func (d *Dataset) ValueOrModal(ex *Example, j int) float64 {
	v := ex.Value(j)
	if math.IsNaN(v) {
		return d.ModalValue(j)
	}
	return v
}

// InitWeights applies one of the four weight-initialization policies (spec §4.1) and
// freezes the result into InitWeight. It is idempotent only in the sense that calling
// it twice reinitializes from UserWeight both times.
func (d *Dataset) InitWeights(policy WeightPolicy) error {
	n := float64(d.NumExamples())
	if n == 0 {
		return errors.New("cannot initialize weights on an empty dataset")
	}
	k := float64(d.NumClasses())

	switch policy {
	case SharePoints:
		for _, ex := range d.Examples {
			var posSum, negSum float64
			for _, lbl := range ex.Labels {
				switch {
				case lbl.Y > 0:
					posSum += lbl.UserWeight
				case lbl.Y < 0:
					negSum += lbl.UserWeight
				}
			}
			var posMass, negMass float64
			switch {
			case posSum > 0 && negSum > 0:
				posMass, negMass = 1/(2*n), 1/(2*n)
			case posSum > 0:
				posMass = 1 / n
			case negSum > 0:
				negMass = 1 / n
			}
			for i, lbl := range ex.Labels {
				switch {
				case lbl.Y > 0 && posSum > 0:
					ex.Labels[i].Weight = posMass * lbl.UserWeight / posSum
				case lbl.Y < 0 && negSum > 0:
					ex.Labels[i].Weight = negMass * lbl.UserWeight / negSum
				default:
					ex.Labels[i].Weight = 0
				}
			}
		}

	case ShareLabels:
		for _, ex := range d.Examples {
			var wsum float64
			for _, lbl := range ex.Labels {
				if lbl.Y != 0 {
					wsum += lbl.UserWeight
				}
			}
			for i, lbl := range ex.Labels {
				if lbl.Y == 0 || wsum == 0 {
					ex.Labels[i].Weight = 0
					continue
				}
				ex.Labels[i].Weight = (1 / n) * lbl.UserWeight / wsum
			}
		}

	case Proportional:
		var total float64
		for _, ex := range d.Examples {
			for _, lbl := range ex.Labels {
				total += lbl.UserWeight
			}
		}
		if total == 0 {
			return errors.New("proportional weight policy: all input weights are zero")
		}
		for _, ex := range d.Examples {
			for i, lbl := range ex.Labels {
				ex.Labels[i].Weight = lbl.UserWeight / total
			}
		}

	case Balanced:
		counts := d.ClassCounts()
		for _, ex := range d.Examples {
			for i, lbl := range ex.Labels {
				nl := float64(counts[lbl.Class])
				switch {
				case lbl.Y > 0 && nl > 0:
					ex.Labels[i].Weight = 1 / (2 * k * nl)
				case lbl.Y < 0 && (n-nl) > 0:
					ex.Labels[i].Weight = 1 / (2 * k * (n - nl))
				default:
					ex.Labels[i].Weight = 0
				}
			}
		}

	default:
		return errors.Errorf("unknown weight policy %v", policy)
	}

	var sum float64
	for _, ex := range d.Examples {
		for i := range ex.Labels {
			ex.Labels[i].InitWeight = ex.Labels[i].Weight
			sum += ex.Labels[i].Weight
		}
	}
	if math.Abs(sum-1) > 1e-3 {
		// WeightInvariant (spec §7): logged as a warning, training continues.
		klog.Warningf("post-init weight sum is %.6f, expected 1.0 +- 1e-3 (policy=%v)", sum, policy)
	}
	return nil
}
