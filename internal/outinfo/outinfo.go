// Package outinfo implements the per-iteration instrumentation of spec §4.8: a
// configurable columnar emitter over posterior and margin tables shared across every
// registered dataset, reporting zero-one error, Hamming loss, weighted error, AUC,
// TPR/FPR, margins and edge once per boosting iteration.
//
// Grounded on the teacher's internal/ui/cli rendering loop (one line emitted per
// game/training tick) generalized from move-by-move console output to metric-by-metric
// boosting output.
package outinfo

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/janpfeifer/multiboost/internal/data"
)

// Tables holds the posterior and margin matrices for one registered dataset, plus the
// running sum of alphas used to normalize margins (spec §3's "Posterior table g" /
// "Margin table m").
type Tables struct {
	Dataset  *data.Dataset
	G        [][]float64 // [N][K] accumulated score
	M        [][]float64 // [N][K] margin = g * y
	SumAlpha float64
}

// NewTables allocates zero-valued posterior/margin tables sized to ds.
func NewTables(ds *data.Dataset) *Tables {
	t := &Tables{Dataset: ds, G: make([][]float64, ds.NumExamples()), M: make([][]float64, ds.NumExamples())}
	for i := range t.G {
		t.G[i] = make([]float64, ds.NumClasses())
		t.M[i] = make([]float64, ds.NumClasses())
	}
	return t
}

// Update folds one weak hypothesis (its unscaled output classify, times alpha) into the tables,
// incrementally, per spec §4.8 ("the framework maintains the per-dataset tables").
func (t *Tables) Update(alpha float64, classify func(ex *data.Example, class int) float64) {
	t.SumAlpha += alpha
	for i, ex := range t.Dataset.Examples {
		for l := 0; l < t.Dataset.NumClasses(); l++ {
			h := classify(ex, l)
			t.G[i][l] += alpha * h
			t.M[i][l] = t.G[i][l] * float64(ex.Labels[l].Y)
		}
	}
}

// Metric computes one column value (or a short slice of values, for multi-column
// metrics like ROC coordinates) from the current tables.
type Metric struct {
	Code   string
	Header []string
	Compute func(t *Tables) []float64
}

// Registry maps a three-letter metric code to its Metric, per spec §4.8's
// `{e01, w01, ham, wha, r01, wer, ber, mae, mar, edg, auc, tfr, sca, pos}`.
type Registry struct {
	metrics map[string]Metric
}

// NewDefaultRegistry registers every metric code named in spec §4.8.
func NewDefaultRegistry() *Registry {
	r := &Registry{metrics: make(map[string]Metric)}
	r.add("e01", []string{"e01"}, zeroOneError)
	r.add("w01", []string{"w01"}, weightedZeroOneError)
	r.add("ham", []string{"ham"}, hammingLoss)
	r.add("wha", []string{"wha"}, weightedHammingLoss)
	r.add("r01", []string{"r01"}, restrictedZeroOneError)
	r.add("wer", []string{"wer"}, weightedZeroOneError) // alias kept distinct per spec's listing
	r.add("ber", []string{"ber"}, balancedError)
	r.add("mae", []string{"mae"}, meanAbsoluteEdgeGap)
	r.add("mar", []string{"mar"}, minMargin)
	r.add("edg", []string{"edg"}, averageEdge)
	r.add("auc", []string{"auc"}, auc)
	r.add("tfr", []string{"tpr", "fpr"}, tprFpr)
	r.add("sca", []string{"sca"}, sumAlpha)
	r.add("pos", []string{"pos"}, positiveFraction)
	return r
}

func (r *Registry) add(code string, header []string, compute func(t *Tables) []float64) {
	r.metrics[code] = Metric{Code: code, Header: header, Compute: compute}
}

func (r *Registry) Get(code string) (Metric, bool) {
	m, ok := r.metrics[code]
	return m, ok
}

// Writer streams one line per iteration across a fixed set of metric codes, against
// one or more registered Tables (e.g. train and test, for --traintest).
type Writer struct {
	out     io.Writer
	reg     *Registry
	codes   []string
	tables  map[string]*Tables // name -> tables, e.g. "train"/"test"
	names   []string           // stable iteration order over tables
	sep     string
	wroteHeader bool
}

// NewWriter returns a Writer emitting the given metric codes for each named dataset.
func NewWriter(out io.Writer, reg *Registry, codes []string) *Writer {
	return &Writer{out: out, reg: reg, codes: codes, tables: make(map[string]*Tables), sep: "\t"}
}

// Register associates a name (e.g. "train", "test") with its Tables. Registration
// order determines column order in the emitted header and lines.
func (w *Writer) Register(name string, t *Tables) {
	if _, exists := w.tables[name]; !exists {
		w.names = append(w.names, name)
	}
	w.tables[name] = t
}

// EmitHeader writes the declarative column header, each metric contributing its own
// label(s) (spec §4.8).
func (w *Writer) EmitHeader() error {
	var cols []string
	cols = append(cols, "iter")
	for _, name := range w.names {
		for _, code := range w.codes {
			m, ok := w.reg.Get(code)
			if !ok {
				continue
			}
			for _, h := range m.Header {
				cols = append(cols, fmt.Sprintf("%s.%s", name, h))
			}
		}
	}
	_, err := fmt.Fprintln(w.out, strings.Join(cols, w.sep))
	w.wroteHeader = true
	return err
}

// EmitIteration writes one line of metric values for iteration t.
func (w *Writer) EmitIteration(t int) error {
	var cols []string
	cols = append(cols, fmt.Sprintf("%d", t))
	for _, name := range w.names {
		tables := w.tables[name]
		for _, code := range w.codes {
			m, ok := w.reg.Get(code)
			if !ok {
				continue
			}
			for _, v := range m.Compute(tables) {
				cols = append(cols, fmt.Sprintf("%.6g", v))
			}
		}
	}
	_, err := fmt.Fprintln(w.out, strings.Join(cols, w.sep))
	return err
}

func zeroOneError(t *Tables) []float64 {
	var wrong int
	for i, ex := range t.Dataset.Examples {
		pred := argmax(t.G[i])
		true_, ok := trueClass(ex)
		if ok && pred != true_ {
			wrong++
		}
	}
	return []float64{float64(wrong) / float64(len(t.Dataset.Examples))}
}

func weightedZeroOneError(t *Tables) []float64 {
	var wrong, total float64
	for i, ex := range t.Dataset.Examples {
		pred := argmax(t.G[i])
		true_, ok := trueClass(ex)
		if !ok {
			continue
		}
		w := ex.Labels[true_].InitWeight
		total += w
		if pred != true_ {
			wrong += w
		}
	}
	if total == 0 {
		return []float64{0}
	}
	return []float64{wrong / total}
}

func hammingLoss(t *Tables) []float64 {
	var wrong, total int
	for i, ex := range t.Dataset.Examples {
		for l := range ex.Labels {
			total++
			predSign := sign(t.G[i][l])
			if predSign != float64(ex.Labels[l].Y) && ex.Labels[l].Y != 0 {
				wrong++
			}
		}
	}
	if total == 0 {
		return []float64{0}
	}
	return []float64{float64(wrong) / float64(total)}
}

func weightedHammingLoss(t *Tables) []float64 {
	var wrong, total float64
	for i, ex := range t.Dataset.Examples {
		for l := range ex.Labels {
			lbl := ex.Labels[l]
			if lbl.Y == 0 {
				continue
			}
			total += lbl.InitWeight
			if sign(t.G[i][l]) != float64(lbl.Y) {
				wrong += lbl.InitWeight
			}
		}
	}
	if total == 0 {
		return []float64{0}
	}
	return []float64{wrong / total}
}

// restrictedZeroOneError implements spec §4.9's "min_l+ g - max_l- g > 0" acceptance
// rule: an example is correct only if its true class's score strictly exceeds every
// other class's score by a margin, not just the argmax.
func restrictedZeroOneError(t *Tables) []float64 {
	var wrong, total int
	for i, ex := range t.Dataset.Examples {
		true_, ok := trueClass(ex)
		if !ok {
			continue
		}
		total++
		maxOther := negInf
		for l, g := range t.G[i] {
			if l == true_ {
				continue
			}
			if g > maxOther {
				maxOther = g
			}
		}
		if t.G[i][true_]-maxOther <= 0 {
			wrong++
		}
	}
	if total == 0 {
		return []float64{0}
	}
	return []float64{float64(wrong) / float64(total)}
}

func balancedError(t *Tables) []float64 {
	perClassWrong := make([]int, t.Dataset.NumClasses())
	perClassTotal := make([]int, t.Dataset.NumClasses())
	for i, ex := range t.Dataset.Examples {
		true_, ok := trueClass(ex)
		if !ok {
			continue
		}
		perClassTotal[true_]++
		if argmax(t.G[i]) != true_ {
			perClassWrong[true_]++
		}
	}
	var sum float64
	var n int
	for l := range perClassTotal {
		if perClassTotal[l] == 0 {
			continue
		}
		sum += float64(perClassWrong[l]) / float64(perClassTotal[l])
		n++
	}
	if n == 0 {
		return []float64{0}
	}
	return []float64{sum / float64(n)}
}

func meanAbsoluteEdgeGap(t *Tables) []float64 {
	var sum float64
	var n int
	for _, row := range t.M {
		for _, m := range row {
			sum += abs(m)
			n++
		}
	}
	if n == 0 {
		return []float64{0}
	}
	return []float64{sum / float64(n)}
}

func minMargin(t *Tables) []float64 {
	min := posInf
	for _, row := range t.M {
		for _, m := range row {
			if t.SumAlpha > 0 {
				m /= t.SumAlpha
			}
			if m < min {
				min = m
			}
		}
	}
	if min == posInf {
		return []float64{0}
	}
	return []float64{min}
}

func averageEdge(t *Tables) []float64 {
	var sum float64
	var n int
	for _, row := range t.M {
		for _, m := range row {
			sum += m
			n++
		}
	}
	if n == 0 {
		return []float64{0}
	}
	return []float64{sum / float64(n)}
}

// auc computes a simple binary-style AUC by ranking examples of the first class
// against the rest, per the restricted positive/negative split used by the cascade
// variants. Multi-class datasets use a one-vs-rest AUC averaged over classes.
func auc(t *Tables) []float64 {
	var sum float64
	for l := 0; l < t.Dataset.NumClasses(); l++ {
		sum += aucForClass(t, l)
	}
	if t.Dataset.NumClasses() == 0 {
		return []float64{0}
	}
	return []float64{sum / float64(t.Dataset.NumClasses())}
}

func aucForClass(t *Tables, class int) float64 {
	type scored struct {
		score float64
		pos   bool
	}
	var items []scored
	for i, ex := range t.Dataset.Examples {
		lbl := ex.Labels[class]
		if lbl.Y == 0 {
			continue
		}
		items = append(items, scored{score: t.G[i][class], pos: lbl.Y > 0})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].score < items[j].score })
	var posCount, negCount int
	for _, it := range items {
		if it.pos {
			posCount++
		} else {
			negCount++
		}
	}
	if posCount == 0 || negCount == 0 {
		return 0.5
	}
	var rankSum float64
	for i, it := range items {
		if it.pos {
			rankSum += float64(i + 1)
		}
	}
	u := rankSum - float64(posCount*(posCount+1))/2
	return u / float64(posCount*negCount)
}

func tprFpr(t *Tables) []float64 {
	var tp, fn, fp, tn int
	for i, ex := range t.Dataset.Examples {
		true_, ok := trueClass(ex)
		if !ok {
			continue
		}
		pred := argmax(t.G[i])
		if true_ == 0 {
			if pred == 0 {
				tp++
			} else {
				fn++
			}
		} else {
			if pred == 0 {
				fp++
			} else {
				tn++
			}
		}
	}
	var tpr, fpr float64
	if tp+fn > 0 {
		tpr = float64(tp) / float64(tp+fn)
	}
	if fp+tn > 0 {
		fpr = float64(fp) / float64(fp+tn)
	}
	return []float64{tpr, fpr}
}

func sumAlpha(t *Tables) []float64 { return []float64{t.SumAlpha} }

func positiveFraction(t *Tables) []float64 {
	var pos, total int
	for i := range t.Dataset.Examples {
		if argmax(t.G[i]) == 0 {
			pos++
		}
		total++
	}
	if total == 0 {
		return []float64{0}
	}
	return []float64{float64(pos) / float64(total)}
}

var (
	posInf = math.Inf(1)
	negInf = math.Inf(-1)
)

func trueClass(ex *data.Example) (int, bool) {
	for l, lbl := range ex.Labels {
		if lbl.Y > 0 {
			return l, true
		}
	}
	return -1, false
}

func argmax(row []float64) int {
	best := 0
	for l, v := range row {
		if v > row[best] {
			best = l
		}
	}
	return best
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

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
