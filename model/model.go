// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package model defines the additive ensemble Sparrow produces:
// a sequence of decision trees whose predictions are summed to score
// an example. Prediction logic beyond this contract (tree growing,
// split finding) lives outside this package; model only carries the
// structure and the one-tree/whole-model scoring contract consumers
// rely on.
package model

// NoChild is the sentinel LeftChild/RightChild value marking a leaf.
const NoChild = -1

// Node is one node of a Tree. Node 0 is always the tree's root.
type Node struct {
	SplitIndex     int32
	SplitThreshold float32
	Prediction     float32
	LeftChild      int32
	RightChild     int32
}

// IsLeaf reports whether n is a leaf node.
func (n Node) IsLeaf() bool {
	return n.LeftChild == NoChild && n.RightChild == NoChild
}

// Tree is an ordered list of Nodes rooted at Nodes[0].
type Tree struct {
	Nodes []Node
}

// Predict walks the tree from the root, following the split at each
// internal node, and returns the prediction at the leaf reached.
func (t Tree) Predict(features []float32) float32 {
	idx := int32(0)
	for {
		n := t.Nodes[idx]
		if n.IsLeaf() {
			return n.Prediction
		}
		if int(n.SplitIndex) < len(features) && features[n.SplitIndex] < n.SplitThreshold {
			idx = n.LeftChild
		} else {
			idx = n.RightChild
		}
	}
}

// Model is an ordered sequence of Trees; a Model value is never
// mutated once constructed. Extending the ensemble always produces a
// new Model with one more Tree, so a reader holding a Model reference
// never observes a partial extension.
type Model struct {
	Trees []Tree
}

// Len returns the number of trees in m.
func (m Model) Len() int { return len(m.Trees) }

// Append returns a new Model with t appended; m is left unmodified.
func (m Model) Append(t Tree) Model {
	trees := make([]Tree, len(m.Trees)+1)
	copy(trees, m.Trees)
	trees[len(m.Trees)] = t
	return Model{Trees: trees}
}

// ScoreRange sums the predictions of trees [from, len(m.Trees)) for the
// given features. It is the core of incremental rescoring: a caller
// that already folded in trees [0, from) only needs the delta.
func (m Model) ScoreRange(features []float32, from uint32) float32 {
	var sum float32
	for i := int(from); i < len(m.Trees); i++ {
		sum += m.Trees[i].Predict(features)
	}
	return sum
}
