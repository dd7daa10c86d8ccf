// Package octree builds the spatial tree that controls where an implicit
// function is sampled. The tree is stored as an arena of nodes addressed by
// index; the 8 children of a node are contiguous and ordered by the octant
// numbering of package bbox. A tree is built once and is read-only
// afterwards, so it may be traversed from several goroutines.
package octree

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/golang/glog"

	"github.com/chazu/isomesh/pkg/bbox"
	"github.com/chazu/isomesh/pkg/implicit"
)

// MaxDepthLimit caps the depth accepted by Build. An eager tree of this
// depth already has 8^10 leaves.
const MaxDepthLimit = 10

var (
	// ErrInvalidDepth is returned for a depth outside [0, MaxDepthLimit].
	ErrInvalidDepth = errors.New("octree: invalid max depth")
	// ErrNonFiniteBox is returned for a root box with NaN or infinite corners.
	ErrNonFiniteBox = errors.New("octree: non-finite root box")
	// ErrNoFunction is returned when adaptive subdivision has nothing to sample.
	ErrNoFunction = errors.New("octree: adaptive subdivision requires a function")
)

// NodeID addresses a node in the tree's arena.
type NodeID int32

// NoNode marks a missing parent or child.
const NoNode NodeID = -1

// Policy selects when a node is subdivided.
type Policy int

const (
	// Eager subdivides every node down to the maximum depth.
	Eager Policy = iota
	// Adaptive subdivides only cells that may contain the surface.
	Adaptive
)

func (p Policy) String() string {
	switch p {
	case Eager:
		return "eager"
	case Adaptive:
		return "adaptive"
	default:
		return "unknown"
	}
}

// ParsePolicy converts "eager" or "adaptive" (any case) to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "eager", "uniform":
		return Eager, nil
	case "adaptive", "":
		return Adaptive, nil
	}
	return 0, fmt.Errorf("octree: unknown policy %q, expected eager or adaptive", s)
}

// Node is one cell of the tree.
type Node struct {
	ID         NodeID    `json:"id"`
	Box        bbox.BBox `json:"box"`
	Depth      int       `json:"depth"`
	Parent     NodeID    `json:"parent"`
	FirstChild NodeID    `json:"first_child"` // NoNode for a leaf
}

// IsLeaf reports whether the node has no children.
func (n Node) IsLeaf() bool {
	return n.FirstChild == NoNode
}

// Child returns the ID of child octant i. It must not be called on a leaf.
func (n Node) Child(i int) NodeID {
	return n.FirstChild + NodeID(i)
}

// Tree is an octree over a root box.
type Tree struct {
	nodes    []Node
	leaves   int
	maxDepth int
	policy   Policy
}

type buildConfig struct {
	policy   Policy
	fn       implicit.Function
	minDepth int // < 0: chosen by Build
}

// Option configures Build.
type Option func(*buildConfig)

// WithPolicy sets the subdivision policy. The default is Eager.
func WithPolicy(p Policy) Option {
	return func(c *buildConfig) { c.policy = p }
}

// WithFunction sets the function sampled by adaptive subdivision.
func WithFunction(f implicit.Function) Option {
	return func(c *buildConfig) { c.fn = f }
}

// WithMinDepth makes adaptive subdivision split every cell above depth d
// before it starts pruning. Without it, Build picks 0 for an
// implicit.Distance and the maximum depth for any other function: corner
// samples alone cannot prove that a cell is free of surface, so adaptive
// subdivision of such a function degrades to eager. A lower value trades
// that guarantee for speed; features smaller than a cell at depth d may
// then be missed.
func WithMinDepth(d int) Option {
	return func(c *buildConfig) { c.minDepth = d }
}

// Build constructs a tree over box, subdividing at most maxDepth times.
//
// An empty box yields a single empty leaf. A depth of 0 yields a single leaf
// equal to the root. Adaptive subdivision splits every cell above the
// minimum depth (see WithMinDepth) and below it only cells that
// MayContainSurface reports. The first error returned by the function
// aborts the build.
func Build(box bbox.BBox, maxDepth int, opts ...Option) (*Tree, error) {
	cfg := buildConfig{policy: Eager, minDepth: -1}
	for _, o := range opts {
		o(&cfg)
	}

	if maxDepth < 0 || maxDepth > MaxDepthLimit {
		return nil, fmt.Errorf("%w: %d (want 0..%d)", ErrInvalidDepth, maxDepth, MaxDepthLimit)
	}
	if hasNaN(box) {
		return nil, fmt.Errorf("%w: %v", ErrNonFiniteBox, box)
	}
	t := &Tree{maxDepth: maxDepth, policy: cfg.policy}
	t.nodes = append(t.nodes, Node{ID: 0, Box: box, Parent: NoNode, FirstChild: NoNode})

	if box.IsEmpty() {
		t.leaves = 1
		return t, nil
	}
	if !box.IsFinite() {
		return nil, fmt.Errorf("%w: %v", ErrNonFiniteBox, box)
	}
	if cfg.policy == Adaptive {
		if cfg.fn == nil {
			return nil, ErrNoFunction
		}
		if cfg.minDepth < 0 {
			cfg.minDepth = maxDepth
			if _, ok := cfg.fn.(implicit.Distance); ok {
				cfg.minDepth = 0
			} else {
				glog.V(1).Infof("octree: %T is not a distance bound, refining adaptively from depth %d", cfg.fn, maxDepth)
			}
		}
	}

	// Breadth-first: appending the children of node i keeps every sibling
	// group contiguous.
	for i := 0; i < len(t.nodes); i++ {
		n := t.nodes[i]
		split, err := t.shouldSplit(n, cfg)
		if err != nil {
			return nil, fmt.Errorf("octree: sampling node %d at depth %d: %w", n.ID, n.Depth, err)
		}
		if !split {
			t.leaves++
			continue
		}
		first := NodeID(len(t.nodes))
		t.nodes[i].FirstChild = first
		for k, child := range n.Box.Octants() {
			t.nodes = append(t.nodes, Node{
				ID:         first + NodeID(k),
				Box:        child,
				Depth:      n.Depth + 1,
				Parent:     n.ID,
				FirstChild: NoNode,
			})
		}
	}

	glog.V(2).Infof("octree: built %d nodes, %d leaves over %v (depth %d, %s)",
		len(t.nodes), t.leaves, box, maxDepth, cfg.policy)
	return t, nil
}

func (t *Tree) shouldSplit(n Node, cfg buildConfig) (bool, error) {
	if n.Depth >= t.maxDepth {
		return false, nil
	}
	if cfg.policy == Eager || n.Depth < cfg.minDepth {
		return true, nil
	}
	return MayContainSurface(n.Box, cfg.fn)
}

// hasNaN reports whether any corner coordinate of box is NaN. Such a box
// is neither empty nor finite.
func hasNaN(box bbox.BBox) bool {
	for _, v := range []float64{box.Min.X, box.Min.Y, box.Min.Z, box.Max.X, box.Max.Y, box.Max.Z} {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

// MayContainSurface reports whether the surface of f may pass through box.
// It is true when the corners are not all on the same side, or when f is an
// implicit.Distance whose value at the centroid is no further from zero than
// half the box diagonal. Only the second test is conclusive: for any other
// function a false result means no corner disagrees, not that the box is
// free of surface.
func MayContainSurface(box bbox.BBox, f implicit.Function) (bool, error) {
	if field, ok := f.(implicit.Distance); ok {
		d, err := field.Evaluate(box.Centroid())
		if err != nil {
			return false, err
		}
		if math.Abs(d) <= box.HalfDiagonal() {
			return true, nil
		}
	}
	var inside, outside bool
	for _, c := range box.Corners() {
		in, err := f.Inside(c)
		if err != nil {
			return false, err
		}
		if in {
			inside = true
		} else {
			outside = true
		}
		if inside && outside {
			return true, nil
		}
	}
	return false, nil
}

// Root returns the root node.
func (t *Tree) Root() Node {
	return t.nodes[0]
}

// Box returns the root box.
func (t *Tree) Box() bbox.BBox {
	return t.nodes[0].Box
}

// Node returns the node with the given ID.
func (t *Tree) Node(id NodeID) Node {
	return t.nodes[id]
}

// Children returns the IDs of the children of id, nil for a leaf.
func (t *Tree) Children(id NodeID) []NodeID {
	n := t.nodes[id]
	if n.IsLeaf() {
		return nil
	}
	ids := make([]NodeID, 8)
	for k := range ids {
		ids[k] = n.Child(k)
	}
	return ids
}

// Len returns the number of nodes.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// LeafCount returns the number of leaves.
func (t *Tree) LeafCount() int {
	return t.leaves
}

// MaxDepth returns the depth limit the tree was built with.
func (t *Tree) MaxDepth() int {
	return t.maxDepth
}

// Policy returns the subdivision policy the tree was built with.
func (t *Tree) Policy() Policy {
	return t.policy
}
