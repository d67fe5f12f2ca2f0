// Package classify implements the Classifier component of spec §4.9: replaying a
// serialized ensemble against a dataset, producing winner-takes-all or restricted-0-1
// predictions, short-circuiting through cascade stage thresholds, and rendering
// confusion matrices, ROC points and posteriors.
//
// Grounded on the teacher's internal/ui/cli rendering (lipgloss-styled board/table
// output) adapted from an ASCII game board to a confusion-matrix/posterior table.
package classify

import (
	"fmt"
	"io"
	"math"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/janpfeifer/multiboost/internal/boosterr"
	"github.com/janpfeifer/multiboost/internal/data"
	"github.com/janpfeifer/multiboost/internal/genutil"
	"github.com/janpfeifer/multiboost/internal/sortedcol"
	"github.com/janpfeifer/multiboost/internal/strong"
	"github.com/janpfeifer/multiboost/internal/weak"
)

// Mode selects how Classifier turns per-class scores into a single predicted label
// (spec §4.9).
type Mode int

const (
	// WinnerTakesAll predicts argmax_l g(x,l), always predicting some class.
	WinnerTakesAll Mode = iota
	// RestrictedZeroOne predicts argmax_l g(x,l) only if it beats every other class's
	// score by a strict positive margin; otherwise the example is left unclassified
	// (reported as class -1).
	RestrictedZeroOne
)

// Classifier replays a trained Ensemble against examples, per spec §4.9.
type Classifier struct {
	Ensemble   *strong.Ensemble
	NumClasses int
	Mode       Mode

	// Cascade, when true, short-circuits classification at the first stage whose
	// accumulated score falls below its StageThreshold, reporting the example as
	// rejected rather than continuing to evaluate later stages.
	Cascade bool

	// Dataset, when set, is used to build the sorted-column set Stump/Haar hypotheses
	// need to re-materialize a missing feature value via Dataset.ValueOrModal (spec
	// §3). NewConfusionMatrix, ROC and Posteriors all set it from the dataset they
	// replay against before classifying.
	Dataset *data.Dataset

	columnsWired bool
}

// wireColumns builds a sorted-column set over c.Dataset and wires it into every
// ColumnSetter hypothesis, once. A no-op if Dataset is nil.
func (c *Classifier) wireColumns() {
	if c.columnsWired || c.Dataset == nil {
		return
	}
	columns := sortedcol.BuildSet(c.Dataset)
	for _, h := range c.Ensemble.Hypotheses {
		weak.WireColumns(h, columns)
	}
	c.columnsWired = true
}

// Prediction is the outcome of classifying one example.
type Prediction struct {
	Class    int // predicted class, or -1 if RestrictedZeroOne found no winner
	Rejected bool
	RejectedAtStage int
	Scores   []float64
}

// Classify runs ex through the ensemble, applying cascade short-circuiting (if
// enabled) before the selection rule.
func (c *Classifier) Classify(ex *data.Example) Prediction {
	c.wireColumns()
	scores := make([]float64, c.NumClasses)
	if c.Cascade {
		rejectedAt, ok := c.evaluateCascade(ex, scores)
		if !ok {
			return Prediction{Class: -1, Rejected: true, RejectedAtStage: rejectedAt, Scores: scores}
		}
	} else {
		for l := 0; l < c.NumClasses; l++ {
			scores[l] = c.Ensemble.Classify(ex, l)
		}
	}
	return Prediction{Class: c.selectClass(scores), Scores: scores}
}

// evaluateCascade accumulates scores hypothesis by hypothesis, the way a
// soft-cascade/Viola-Jones model is meant to be replayed: whenever a stage boundary
// (a non-NaN StageThreshold) is reached, the accumulated class-0 score must meet or
// exceed it or the example is rejected right there (spec §4.6's cascade semantics,
// §4.9's "cascade short-circuit with rejection tracking").
func (c *Classifier) evaluateCascade(ex *data.Example, scores []float64) (rejectedAtStage int, ok bool) {
	stage := 0
	for i, h := range c.Ensemble.Hypotheses {
		alpha := h.Alpha()
		for l := 0; l < c.NumClasses; l++ {
			scores[l] += alpha * h.Classify(ex, l)
		}
		threshold := c.Ensemble.StageThreshold[i]
		if !math.IsNaN(threshold) {
			if scores[0] < threshold {
				return stage, false
			}
			stage++
		}
	}
	return 0, true
}

func (c *Classifier) selectClass(scores []float64) int {
	best := 0
	for l, v := range scores {
		if v > scores[best] {
			best = l
		}
	}
	if c.Mode == WinnerTakesAll {
		return best
	}
	maxOther := math.Inf(-1)
	for l, v := range scores {
		if l == best {
			continue
		}
		if v > maxOther {
			maxOther = v
		}
	}
	if scores[best]-maxOther <= 0 {
		return -1
	}
	return best
}

// ConfusionMatrix is a K x K count matrix plus per-class totals, rows indexed by true
// class, columns by predicted class. A column of -1 (unclassified, RestrictedZeroOne)
// is tracked separately in Unclassified.
type ConfusionMatrix struct {
	ClassNames   []string
	Counts       [][]int
	Unclassified []int // indexed by true class
}

// NewConfusionMatrix classifies every example of ds with c and tabulates the result.
// It returns a LoadError-shaped error if an example carries no positive label for any
// class (spec §7: malformed input is a structural failure, not a silent skip).
func NewConfusionMatrix(c *Classifier, ds *data.Dataset) (*ConfusionMatrix, error) {
	if c.Dataset == nil {
		c.Dataset = ds
	}
	cm := &ConfusionMatrix{
		ClassNames:   ds.ClassNames,
		Counts:       make([][]int, len(ds.ClassNames)),
		Unclassified: make([]int, len(ds.ClassNames)),
	}
	for i := range cm.Counts {
		cm.Counts[i] = make([]int, len(ds.ClassNames))
	}
	for _, ex := range ds.Examples {
		trueClass, ok := trueClassOf(ex)
		if !ok {
			return nil, boosterr.NewLoad("example %q has no positive label for any class", ex.Name)
		}
		pred := c.Classify(ex)
		if pred.Class < 0 {
			cm.Unclassified[trueClass]++
			continue
		}
		cm.Counts[trueClass][pred.Class]++
	}
	return cm, nil
}

func trueClassOf(ex *data.Example) (int, bool) {
	for l, lbl := range ex.Labels {
		if lbl.Y > 0 {
			return l, true
		}
	}
	return -1, false
}

// Accuracy returns the overall fraction of correctly classified examples, counting
// unclassified examples as wrong.
func (cm *ConfusionMatrix) Accuracy() float64 {
	var correct, total int
	for t := range cm.Counts {
		for p := range cm.Counts[t] {
			total += cm.Counts[t][p]
			if t == p {
				correct += cm.Counts[t][p]
			}
		}
		total += cm.Unclassified[t]
	}
	if total == 0 {
		return 0
	}
	return float64(correct) / float64(total)
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("13"))
	diagStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	cellStyle   = lipgloss.NewStyle().Width(6).Align(lipgloss.Right)
)

// Render writes a lipgloss-styled confusion matrix table to w, diagonal entries
// highlighted, always with a trailing "unclf" (unclassified) column.
func (cm *ConfusionMatrix) Render(w io.Writer) {
	var sb strings.Builder
	sb.WriteString(headerStyle.Render("true\\pred"))
	for _, name := range cm.ClassNames {
		sb.WriteString(" ")
		sb.WriteString(headerStyle.Render(cellStyle.Render(name)))
	}
	sb.WriteString(" ")
	sb.WriteString(headerStyle.Render(cellStyle.Render("unclf")))
	sb.WriteString("\n")

	for t, name := range cm.ClassNames {
		sb.WriteString(cellStyle.Render(name))
		for p := range cm.ClassNames {
			cell := cellStyle.Render(fmt.Sprintf("%d", cm.Counts[t][p]))
			if t == p {
				cell = diagStyle.Render(cell)
			}
			sb.WriteString(" ")
			sb.WriteString(cell)
		}
		sb.WriteString(" ")
		sb.WriteString(cellStyle.Render(fmt.Sprintf("%d", cm.Unclassified[t])))
		sb.WriteString("\n")
	}
	fmt.Fprint(w, sb.String())
}

// ROCPoint is one (false-positive-rate, true-positive-rate) sample, traced by sweeping
// the decision threshold of class 0 over every distinct score in the dataset.
type ROCPoint struct {
	Threshold float64
	FPR, TPR  float64
}

// ROC sweeps class 0's threshold and returns the ROC curve, per spec §4.9's "ROC/AUC
// ... per iteration" instrumentation, here computed once against a final model.
func ROC(c *Classifier, ds *data.Dataset) []ROCPoint {
	if c.Dataset == nil {
		c.Dataset = ds
	}
	type scored struct {
		score float64
		pos   bool
	}
	var items []scored
	for _, ex := range ds.Examples {
		if len(ex.Labels) == 0 {
			continue
		}
		pred := c.Classify(ex)
		items = append(items, scored{score: pred.Scores[0], pos: ex.Labels[0].Y > 0})
	}

	thresholds := genutil.MakeSet[float64](len(items))
	for _, it := range items {
		thresholds.Insert(it.score)
	}
	sortedThresholds := make([]float64, 0, len(thresholds))
	for th := range thresholds {
		sortedThresholds = append(sortedThresholds, th)
	}
	slices.Sort(sortedThresholds)

	points := make([]ROCPoint, 0, len(sortedThresholds))
	for _, th := range sortedThresholds {
		var tp, fn, fp, tn int
		for _, it := range items {
			predicted := it.score >= th
			switch {
			case it.pos && predicted:
				tp++
			case it.pos && !predicted:
				fn++
			case !it.pos && predicted:
				fp++
			default:
				tn++
			}
		}
		var tpr, fpr float64
		if tp+fn > 0 {
			tpr = float64(tp) / float64(tp+fn)
		}
		if fp+tn > 0 {
			fpr = float64(fp) / float64(fp+tn)
		}
		points = append(points, ROCPoint{Threshold: th, FPR: fpr, TPR: tpr})
	}
	return points
}

// Posteriors writes one line per example with its per-class posterior score, in the
// order the dataset holds them (spec §6's --posteriors flag).
func Posteriors(w io.Writer, c *Classifier, ds *data.Dataset) {
	if c.Dataset == nil {
		c.Dataset = ds
	}
	for _, ex := range ds.Examples {
		pred := c.Classify(ex)
		parts := make([]string, len(pred.Scores))
		for l, s := range pred.Scores {
			parts[l] = fmt.Sprintf("%.6g", s)
		}
		fmt.Fprintf(w, "%s\t%d\t%s\n", ex.Name, pred.Class, strings.Join(parts, "\t"))
	}
}
