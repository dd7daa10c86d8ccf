package octree

import (
	"iter"
	"slices"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Walk visits every node in pre-order, children in octant order. Returning
// false from fn stops the walk.
func (t *Tree) Walk(fn func(Node) bool) {
	t.walk(0, fn)
}

func (t *Tree) walk(id NodeID, fn func(Node) bool) bool {
	n := t.nodes[id]
	if !fn(n) {
		return false
	}
	if n.IsLeaf() {
		return true
	}
	for k := 0; k < 8; k++ {
		if !t.walk(n.Child(k), fn) {
			return false
		}
	}
	return true
}

// Leaves returns the leaves in depth-first octant order. Each call starts a
// fresh traversal from the root.
func (t *Tree) Leaves() iter.Seq[Node] {
	return func(yield func(Node) bool) {
		t.walk(0, func(n Node) bool {
			if n.IsLeaf() {
				return yield(n)
			}
			return true
		})
	}
}

// LeafNodes collects Leaves into a slice.
func (t *Tree) LeafNodes() []Node {
	return slices.Collect(t.Leaves())
}

// Locate returns the leaf containing p and true, or false when p lies
// outside the root box.
func (t *Tree) Locate(p v3.Vec) (Node, bool) {
	n := t.nodes[0]
	if !n.Box.Contains(p) {
		return Node{}, false
	}
	for !n.IsLeaf() {
		n = t.nodes[n.Child(n.Box.OctantOf(p))]
	}
	return n, true
}
