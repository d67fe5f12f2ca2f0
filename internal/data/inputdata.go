package data

// InputData is a filterable presentation over a Dataset (spec §3). It holds an
// indirection vector mapping logical index 0..N'-1 to raw Dataset indices, and an
// inverse map (-1 where filtered out). All iteration occurs over the filtered view;
// Reset restores the full view. Filtering never copies or reorders the underlying
// Dataset -- grounded on the arena+index re-architecture note in spec §9 ("Dataset
// owns everything, InputData holds (DatasetId, FilterVec, RawIndexMap)").
type InputData struct {
	Dataset      *Dataset
	logicalToRaw []int
	rawToLogical []int
}

// NewInputData returns the full (unfiltered) view over ds.
func NewInputData(ds *Dataset) *InputData {
	v := &InputData{Dataset: ds}
	v.Reset()
	return v
}

// Reset restores the full view (every raw example is visible, in raw order) and
// returns v for chaining.
func (v *InputData) Reset() *InputData {
	n := v.Dataset.NumExamples()
	v.logicalToRaw = make([]int, n)
	v.rawToLogical = make([]int, n)
	for i := 0; i < n; i++ {
		v.logicalToRaw[i] = i
		v.rawToLogical[i] = i
	}
	return v
}

// Len returns the number of examples visible in this view.
func (v *InputData) Len() int { return len(v.logicalToRaw) }

// RawIndex maps a logical index (0..Len()-1) to the owning Dataset's raw index.
func (v *InputData) RawIndex(logical int) int { return v.logicalToRaw[logical] }

// LogicalIndex maps a raw Dataset index to this view's logical index, or -1 if the
// example is filtered out of this view.
func (v *InputData) LogicalIndex(raw int) int {
	if raw < 0 || raw >= len(v.rawToLogical) {
		return -1
	}
	return v.rawToLogical[raw]
}

// Example returns the example at the given logical index.
func (v *InputData) Example(logical int) *Example {
	return v.Dataset.Examples[v.logicalToRaw[logical]]
}

// Filter returns a new view containing only the examples (by raw index) for which
// keep returns true. The underlying Dataset is untouched and is not shared mutably:
// the parent view's own logicalToRaw/rawToLogical slices are not modified.
func (v *InputData) Filter(keep func(raw int, ex *Example) bool) *InputData {
	child := &InputData{Dataset: v.Dataset}
	child.rawToLogical = make([]int, v.Dataset.NumExamples())
	for i := range child.rawToLogical {
		child.rawToLogical[i] = -1
	}
	child.logicalToRaw = make([]int, 0, v.Len())
	for _, raw := range v.logicalToRaw {
		ex := v.Dataset.Examples[raw]
		if keep(raw, ex) {
			child.rawToLogical[raw] = len(child.logicalToRaw)
			child.logicalToRaw = append(child.logicalToRaw, raw)
		}
	}
	return child
}

// All iterates the view in logical order, yielding (logical index, example) pairs.
func (v *InputData) All(yield func(logical int, ex *Example) bool) {
	for i, raw := range v.logicalToRaw {
		if !yield(i, v.Dataset.Examples[raw]) {
			return
		}
	}
}
