// Package stump implements the threshold-search algorithm of spec §4.4: a single
// linear scan of a sorted column that maintains a running per-class half-edge and
// picks the best cut point.
package stump

import (
	"math"

	"github.com/janpfeifer/multiboost/internal/data"
	"github.com/janpfeifer/multiboost/internal/sortedcol"
)

// Cut is the best threshold found for one class on one attribute.
type Cut struct {
	// Threshold is NaN when no non-degenerate cut exists for this class -- the
	// caller must fall back to the constant weak learner (spec §4.4).
	Threshold float64
	HalfEdge  float64
}

// Result is the outcome of a threshold search over one attribute, for every class.
type Result struct {
	Feature int
	// PerClass[l] is the best cut for class l: the "multi-threshold" stump variant
	// uses every entry; the "one-class" variant only uses PerClass[BestClass].
	PerClass []Cut
	// BestClass is the class with the largest |HalfEdge| among PerClass, or -1 if
	// every class is degenerate.
	BestClass int
}

// Search scans the sorted column for one attribute over the active examples of view
// and returns the best threshold(s) per class, per spec §4.4.
//
// The running sum is accumulated in float64 (the spec's own "long double"
// instruction) and is never exponentiated here: exponentiation only happens once per
// boosting iteration, in the strong learner's weight update.
func Search(col *sortedcol.Column, view *data.InputData, numClasses int) Result {
	halfEdge := make([]float64, numClasses)
	for logical := 0; logical < view.Len(); logical++ {
		ex := view.Example(logical)
		for l, lbl := range ex.Labels {
			halfEdge[l] += 0.5 * lbl.Weight * float64(lbl.Y)
		}
	}

	best := make([]Cut, numClasses)
	haveCut := make([]bool, numClasses)
	for l := range best {
		best[l] = Cut{Threshold: math.NaN(), HalfEdge: math.NaN()}
	}

	prevLogical := -1
	var prevValue float64
	for logical, value := range col.Forward(view) {
		if prevLogical >= 0 {
			prevEx := view.Example(prevLogical)
			for l, lbl := range prevEx.Labels {
				halfEdge[l] -= lbl.Weight * float64(lbl.Y)
			}
			if value > prevValue {
				threshold := (prevValue + value) / 2
				for l := 0; l < numClasses; l++ {
					he := halfEdge[l]
					if !haveCut[l] || math.Abs(he) > math.Abs(best[l].HalfEdge) {
						best[l] = Cut{Threshold: threshold, HalfEdge: he}
						haveCut[l] = true
					}
				}
			}
		}
		prevLogical = logical
		prevValue = value
	}

	bestClass := -1
	var bestAbs float64
	for l, c := range best {
		if !haveCut[l] {
			continue
		}
		if bestClass == -1 || math.Abs(c.HalfEdge) > bestAbs {
			bestClass, bestAbs = l, math.Abs(c.HalfEdge)
		}
	}

	return Result{Feature: col.Feature, PerClass: best, BestClass: bestClass}
}
