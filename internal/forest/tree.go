// Package forest evaluates a trained random forest exported as flat node arrays.
package forest

import (
	"errors"
	"fmt"
)

// A Node is a split of the form "x[Feature] <= Threshold ? left : right".
type Node struct {
	// Feature is the column index tested by this split
	Feature int `json:"feature"`
	// Threshold is the cutoff; values less than or equal go left
	Threshold float64 `json:"threshold"`
	// Left is the index of the left subtree, in Nodes or in Leaves
	Left int `json:"left"`
	// LeftIsLeaf tells whether Left indexes Leaves
	LeftIsLeaf bool `json:"left_is_leaf"`
	Right       int  `json:"right"`
	RightIsLeaf bool `json:"right_is_leaf"`
}

// A Tree maps a feature vector to the fraction of positive training samples
// in the leaf it falls into.
type Tree struct {
	Nodes []Node `json:"nodes"`
	// Leaves holds the positive-class fraction of each leaf
	Leaves []float64 `json:"leaves"`
}

var errBadTree = errors.New("malformed tree")

// validate checks indices against width and that every node is reached at
// most once from the root, so traversal always terminates.
func (t *Tree) validate(width int) error {
	if len(t.Leaves) == 0 {
		return fmt.Errorf("%w: no leaves", errBadTree)
	}
	for _, l := range t.Leaves {
		if l < 0 || l > 1 {
			return fmt.Errorf("%w: leaf value %v outside [0,1]", errBadTree, l)
		}
	}
	if len(t.Nodes) == 0 {
		if len(t.Leaves) != 1 {
			return fmt.Errorf("%w: stump must have exactly one leaf", errBadTree)
		}
		return nil
	}

	visited := make([]bool, len(t.Nodes))
	stack := []int{0}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[i] {
			return fmt.Errorf("%w: node %d reachable twice", errBadTree, i)
		}
		visited[i] = true

		n := t.Nodes[i]
		if n.Feature < 0 || n.Feature >= width {
			return fmt.Errorf("%w: node %d tests feature %d of %d", errBadTree, i, n.Feature, width)
		}
		for _, c := range []struct {
			idx  int
			leaf bool
		}{{n.Left, n.LeftIsLeaf}, {n.Right, n.RightIsLeaf}} {
			if c.leaf {
				if c.idx < 0 || c.idx >= len(t.Leaves) {
					return fmt.Errorf("%w: node %d points at leaf %d", errBadTree, i, c.idx)
				}
				continue
			}
			if c.idx <= 0 || c.idx >= len(t.Nodes) {
				return fmt.Errorf("%w: node %d points at node %d", errBadTree, i, c.idx)
			}
			stack = append(stack, c.idx)
		}
	}
	return nil
}

// Leaf drops x down the tree and returns the index of the leaf it lands in.
// The tree must have been validated.
func (t *Tree) Leaf(x []float64) int {
	if len(t.Nodes) == 0 {
		return 0
	}
	cur := t.Nodes[0]
	for {
		if x[cur.Feature] <= cur.Threshold {
			if cur.LeftIsLeaf {
				return cur.Left
			}
			cur = t.Nodes[cur.Left]
		} else {
			if cur.RightIsLeaf {
				return cur.Right
			}
			cur = t.Nodes[cur.Right]
		}
	}
}

// Evaluate returns the positive-class fraction of the leaf x lands in.
func (t *Tree) Evaluate(x []float64) float64 {
	return t.Leaves[t.Leaf(x)]
}
