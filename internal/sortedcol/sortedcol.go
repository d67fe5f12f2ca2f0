// Package sortedcol implements the sorted-column data layout that makes threshold
// search on numeric attributes linear per feature (spec §4.2).
//
// Grounded on internal/genutil.SliceOrdering for the "index ordering of a slice"
// shape, but fixed to break ties deterministically on the original (raw) index --
// spec §9 explicitly calls out the teacher's unstable-sort tie-break as a defect to
// repair in the rewrite, rather than carry forward.
package sortedcol

import (
	"cmp"
	"iter"
	"math"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/janpfeifer/multiboost/internal/data"
)

// Column is the ascending (raw example index, value) sequence for one numeric
// feature, built once at load time.
type Column struct {
	Feature int

	// rawOrder and values are parallel, ascending-by-value slices: rawOrder[i] is the
	// Dataset raw index whose value is values[i]. Ties are broken by raw index
	// ascending, deterministically, regardless of sort implementation stability.
	rawOrder []int
	values   []float64
}

// Build constructs the sorted column for feature j over the whole Dataset. Dense
// examples with a NaN/missing value are excluded (callers needing a placeholder
// should re-materialize via Dataset.ValueOrModal before the column reaches this
// point); sparse examples absent from the column synthesize an explicit zero entry,
// per spec §3/§4.2.
func Build(ds *data.Dataset, feature int) *Column {
	raw := make([]int, 0, ds.NumExamples())
	vals := make([]float64, 0, ds.NumExamples())
	for i, ex := range ds.Examples {
		var v float64
		if ds.Sparse {
			v = ex.SparseValueOrZero(feature)
		} else {
			v = ex.Value(feature)
			if math.IsNaN(v) {
				continue
			}
		}
		raw = append(raw, i)
		vals = append(vals, v)
	}

	order := make([]int, len(raw))
	for i := range order {
		order[i] = i
	}
	slices.SortFunc(order, func(a, b int) int {
		if c := cmp.Compare(vals[a], vals[b]); c != 0 {
			return c
		}
		// Deterministic tie-break: earliest raw index wins (spec §9).
		return cmp.Compare(raw[a], raw[b])
	})

	c := &Column{
		Feature:  feature,
		rawOrder: make([]int, len(order)),
		values:   make([]float64, len(order)),
	}
	for i, pos := range order {
		c.rawOrder[i] = raw[pos]
		c.values[i] = vals[pos]
	}
	return c
}

// Len returns the number of (raw index, value) pairs in the full column.
func (c *Column) Len() int { return len(c.rawOrder) }

// Forward returns an ascending-value iterator of (logical index, value) pairs
// reprojected onto the active examples of view v; raw indices filtered out of v are
// skipped. Querying is O(N) per call, per spec §4.2.
func (c *Column) Forward(v *data.InputData) iter.Seq2[int, float64] {
	return func(yield func(int, float64) bool) {
		for i, raw := range c.rawOrder {
			logical := v.LogicalIndex(raw)
			if logical < 0 {
				continue
			}
			if !yield(logical, c.values[i]) {
				return
			}
		}
	}
}

// Reverse returns the same pairs as Forward but in descending value order.
func (c *Column) Reverse(v *data.InputData) iter.Seq2[int, float64] {
	return func(yield func(int, float64) bool) {
		for i := len(c.rawOrder) - 1; i >= 0; i-- {
			raw := c.rawOrder[i]
			logical := v.LogicalIndex(raw)
			if logical < 0 {
				continue
			}
			if !yield(logical, c.values[i]) {
				return
			}
		}
	}
}

// Set holds one Column per numeric feature of a Dataset, built once at load time.
type Set struct {
	ds      *data.Dataset
	columns []*Column // indexed by feature; nil for nominal features
}

// BuildSet builds sorted columns for every Numeric feature of ds. Each feature's
// column is independent of every other (Build only reads ds.Examples and writes to
// its own slot), so the per-feature builds run concurrently via errgroup.
func BuildSet(ds *data.Dataset) *Set {
	s := &Set{ds: ds, columns: make([]*Column, ds.NumFeatures)}
	var g errgroup.Group
	for j := 0; j < ds.NumFeatures; j++ {
		if ds.AttrTypes[j] != data.Numeric {
			continue
		}
		j := j
		g.Go(func() error {
			s.columns[j] = Build(ds, j)
			return nil
		})
	}
	_ = g.Wait()
	return s
}

// Column returns the sorted column for feature j, or nil if j is not numeric.
func (s *Set) Column(j int) *Column { return s.columns[j] }

// Dataset returns the Dataset this Set was built from, letting a Learner re-materialize
// a missing value via Dataset.ValueOrModal at classification time.
func (s *Set) Dataset() *data.Dataset { return s.ds }

// NumFeatures returns the number of feature columns (numeric and nominal).
func (s *Set) NumFeatures() int { return len(s.columns) }
