package data

import "fmt"

// WeightPolicy selects how per-(example,label) weights are initialized at load time.
// See spec §4.1. Grounded on the enum-with-doc-comment style of the teacher's
// features.BoardId block.
type WeightPolicy int

const (
	// SharePoints (default) gives every example total mass 1/N, split between its
	// positive- and negative-labeled slots so the positive side collectively gets
	// 1/(2N) and the negative side 1/(2N) -- or the full 1/N if one side is empty --
	// then scaled by the user-provided initial per-label weight.
	SharePoints WeightPolicy = iota

	// ShareLabels normalizes per-example weight to 1/N and splits that mass among
	// the example's labels in proportion to their user-provided initial weight.
	ShareLabels

	// Proportional uses the input weights directly, then normalizes globally to sum to 1.
	Proportional

	// Balanced gives every class total mass 1/K, split evenly between the positive
	// and negative label-slots of that class.
	Balanced
)

func (p WeightPolicy) String() string {
	switch p {
	case SharePoints:
		return "sharepoints"
	case ShareLabels:
		return "sharelabels"
	case Proportional:
		return "proportional"
	case Balanced:
		return "balanced"
	default:
		return fmt.Sprintf("WeightPolicy(%d)", int(p))
	}
}

// ParseWeightPolicy maps the --weightpolicy CLI flag value to a WeightPolicy.
func ParseWeightPolicy(s string) (WeightPolicy, error) {
	switch s {
	case "", "sharepoints":
		return SharePoints, nil
	case "sharelabels":
		return ShareLabels, nil
	case "proportional":
		return Proportional, nil
	case "balanced":
		return Balanced, nil
	default:
		return SharePoints, fmt.Errorf("unknown weight policy %q", s)
	}
}
