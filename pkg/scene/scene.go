// Package scene defines the description produced by evaluating a scene
// script: a graph of shape nodes and the list of polygonization jobs to run
// over it.
//
// A Scene is built once per evaluation and is not mutated afterwards. Shapes
// are descriptions only; a kernel turns them into solids at tessellation.
package scene

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/chazu/isomesh/pkg/bbox"
	"github.com/chazu/isomesh/pkg/octree"
)

// NodeID is a content-addressed node identifier: the hex SHA-256 of the
// path that created the node.
type NodeID string

// ZeroID is the missing node.
const ZeroID NodeID = ""

// NewNodeID derives the ID for a creation path such as "sphere/ball".
func NewNodeID(path string) NodeID {
	sum := sha256.Sum256([]byte(path))
	return NodeID(hex.EncodeToString(sum[:]))
}

// IsZero reports whether id is ZeroID.
func (id NodeID) IsZero() bool {
	return id == ZeroID
}

// Short returns the first 8 hex digits, for messages.
func (id NodeID) Short() string {
	if len(id) <= 8 {
		return string(id)
	}
	return string(id[:8])
}

// Job asks for the surface of one shape to be extracted.
type Job struct {
	Name string `json:"name"`
	Root NodeID `json:"root"`
	// Bounds overrides the padded bounding box of the shape.
	Bounds *bbox.BBox    `json:"bounds,omitempty"`
	Depth  int           `json:"depth"`
	Policy octree.Policy `json:"policy"`
}

// DefaultDepth is used by jobs that do not set a depth.
const DefaultDepth = 6

// Scene is the output of evaluating a scene script.
type Scene struct {
	Nodes     map[NodeID]*Node  `json:"nodes"`
	NameIndex map[string]NodeID `json:"name_index"`
	Jobs      []Job             `json:"jobs"`
	Version   uint64            `json:"version"`
}

// New creates an empty scene.
func New() *Scene {
	return &Scene{
		Nodes:     make(map[NodeID]*Node),
		NameIndex: make(map[string]NodeID),
	}
}

// AddNode adds a node, replacing any node with the same ID.
func (s *Scene) AddNode(n *Node) {
	s.Nodes[n.ID] = n
	if n.Name != "" {
		s.NameIndex[n.Name] = n.ID
	}
}

// AddJob appends a job.
func (s *Scene) AddJob(j Job) {
	s.Jobs = append(s.Jobs, j)
}

// Get returns the node with the given ID, or nil.
func (s *Scene) Get(id NodeID) *Node {
	return s.Nodes[id]
}

// Lookup returns the node with the given user-assigned name, or nil.
func (s *Scene) Lookup(name string) *Node {
	id, ok := s.NameIndex[name]
	if !ok {
		return nil
	}
	return s.Nodes[id]
}

// MustLookup returns the node with the given name, or panics.
func (s *Scene) MustLookup(name string) *Node {
	n := s.Lookup(name)
	if n == nil {
		panic(fmt.Sprintf("scene: no node named %q", name))
	}
	return n
}

// Children returns the child nodes of n that exist in the scene.
func (s *Scene) Children(n *Node) []*Node {
	children := make([]*Node, 0, len(n.Children))
	for _, cid := range n.Children {
		if c := s.Nodes[cid]; c != nil {
			children = append(children, c)
		}
	}
	return children
}

// NodeCount returns the total number of nodes.
func (s *Scene) NodeCount() int {
	return len(s.Nodes)
}
