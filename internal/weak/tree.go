package weak

import (
	"github.com/janpfeifer/multiboost/internal/config"
	"github.com/janpfeifer/multiboost/internal/data"
	"github.com/janpfeifer/multiboost/internal/serialize"
	"github.com/janpfeifer/multiboost/internal/sortedcol"
)

// treeNode is one decision node of a Tree weak learner: route is decided by the sign
// of split.Classify(ex, routeClass); left handles the negative branch, right the
// positive one. A leaf has left == right == nil.
type treeNode struct {
	split *Stump
	left  *treeNode
	right *treeNode
}

// Tree implements the tree/indicator combinator of spec §4.3/§9: rather than a
// class hierarchy of specialized stump subclasses, a Tree is a small binary tree of
// Stump split nodes whose leaves vote with their own Stump (a Constant when that
// Stump finds no cut), dispatched by an explicit struct
// instead of virtual calls.
type Tree struct {
	root       *treeNode
	maxDepth   int
	columns    *sortedcol.Set
	routeClass int
	alpha      float64
	energy     float64
}

// NewTree returns an uninitialized Tree learner.
func NewTree() *Tree { return &Tree{maxDepth: 2} }

func (t *Tree) Name() string { return "Tree" }

// SetColumns wires the sorted-column set, mirroring Stump.SetColumns.
func (t *Tree) SetColumns(columns *sortedcol.Set) { t.columns = columns }

func (t *Tree) Initialize(cfg config.Params) error {
	depth, err := config.GetParamOr(cfg, "depth", 2)
	if err != nil {
		return err
	}
	t.maxDepth = depth
	return nil
}

func (t *Tree) Train(view *data.InputData, numClasses int) (float64, error) {
	t.root = &treeNode{}
	if err := t.buildNode(t.root, view, numClasses, t.maxDepth); err != nil {
		return 0, err
	}
	var epsPos, epsNeg, epsZero float64
	for l := 0; l < numClasses; l++ {
		p, n, z := ClassEpsilons(view, l, func(ex *data.Example) float64 { return t.classifyNode(t.root, ex, l) })
		epsPos += p
		epsNeg += n
		epsZero += z
	}
	t.alpha, t.energy = AlphaEnergy(epsPos, epsNeg, epsZero, 0)
	return t.energy, nil
}

func (t *Tree) buildNode(n *treeNode, view *data.InputData, numClasses, depthLeft int) error {
	split := NewStump(ModeSingleThreshold)
	split.SetColumns(t.columns)
	if _, err := split.Train(view, numClasses); err != nil {
		return err
	}
	n.split = split
	if depthLeft <= 0 || split.degenerate {
		return nil
	}

	left := view.Filter(func(raw int, ex *data.Example) bool {
		return split.Classify(ex, t.routeClass) < 0
	})
	right := view.Filter(func(raw int, ex *data.Example) bool {
		return split.Classify(ex, t.routeClass) >= 0
	})
	if left.Len() == 0 || right.Len() == 0 {
		// Degenerate split on this route class: keep this node as a leaf over the
		// split's own vote rather than recursing into an empty child.
		return nil
	}

	n.left = &treeNode{}
	if err := t.buildNode(n.left, left, numClasses, depthLeft-1); err != nil {
		return err
	}
	n.right = &treeNode{}
	if err := t.buildNode(n.right, right, numClasses, depthLeft-1); err != nil {
		return err
	}
	return nil
}

func (t *Tree) classifyNode(n *treeNode, ex *data.Example, class int) float64 {
	if n.left == nil && n.right == nil {
		return n.split.Classify(ex, class)
	}
	if n.split.Classify(ex, t.routeClass) < 0 {
		return t.classifyNode(n.left, ex, class)
	}
	return t.classifyNode(n.right, ex, class)
}

func (t *Tree) Classify(ex *data.Example, class int) float64 {
	return t.classifyNode(t.root, ex, class)
}

func (t *Tree) Alpha() float64         { return t.alpha }
func (t *Tree) SetAlpha(alpha float64) { t.alpha = alpha }

func (t *Tree) Edge(view *data.InputData, numClasses int, normalized bool) float64 {
	return Edge(view, numClasses, t.Classify, normalized)
}

func (t *Tree) Serialize(w *serialize.Writer) {
	w.FloatField("alpha", t.alpha)
	w.IntField("maxDepth", t.maxDepth)
	w.IntField("routeClass", t.routeClass)
	w.Open("node")
	serializeNode(w, t.root)
	w.Close("node")
}

func serializeNode(w *serialize.Writer, n *treeNode) {
	w.Open("split")
	n.split.Serialize(w)
	w.Close("split")
	if n.left != nil {
		w.Open("left")
		serializeNode(w, n.left)
		w.Close("left")
	}
	if n.right != nil {
		w.Open("right")
		serializeNode(w, n.right)
		w.Close("right")
	}
}

func (t *Tree) Deserialize(r *serialize.Reader) error {
	for {
		tok, ok, err := r.Next()
		if err != nil {
			return err
		}
		if !ok || tok.IsClose {
			return nil
		}
		switch tok.Tag {
		case "alpha":
			t.alpha, err = tok.Float()
		case "maxDepth":
			t.maxDepth, err = tok.Int()
		case "routeClass":
			t.routeClass, err = tok.Int()
		case "node":
			t.root = &treeNode{}
			err = deserializeNode(r, t.root)
		default:
			if !tok.IsLeaf {
				err = r.SkipContainer(tok.Tag)
			}
		}
		if err != nil {
			return err
		}
	}
}

func deserializeNode(r *serialize.Reader, n *treeNode) error {
	for {
		tok, ok, err := r.Next()
		if err != nil {
			return err
		}
		if !ok || tok.IsClose {
			return nil
		}
		switch tok.Tag {
		case "split":
			n.split = NewStump(ModeSingleThreshold)
			err = n.split.Deserialize(r)
		case "left":
			n.left = &treeNode{}
			err = deserializeNode(r, n.left)
		case "right":
			n.right = &treeNode{}
			err = deserializeNode(r, n.right)
		default:
			if !tok.IsLeaf {
				err = r.SkipContainer(tok.Tag)
			}
		}
		if err != nil {
			return err
		}
	}
}
