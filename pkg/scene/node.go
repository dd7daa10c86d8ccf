package scene

import (
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// NodeKind enumerates the types of nodes in the scene graph.
type NodeKind int

const (
	NodePrimitive NodeKind = iota // sphere, box, cylinder
	NodeBoolean                   // union, difference, intersection
	NodeTransform                 // translate, rotate
)

func (k NodeKind) String() string {
	switch k {
	case NodePrimitive:
		return "primitive"
	case NodeBoolean:
		return "boolean"
	case NodeTransform:
		return "transform"
	default:
		return "unknown"
	}
}

// Node is one shape in the scene graph.
type Node struct {
	ID       NodeID   `json:"id"`
	Kind     NodeKind `json:"kind"`
	Name     string   `json:"name,omitempty"`
	Children []NodeID `json:"children,omitempty"`
	Data     NodeData `json:"data"`
}

// NodeData is the interface for kind-specific node payloads.
type NodeData interface {
	nodeData() // marker method restricting implementations to this package
}

// SphereData is a sphere centred on the origin.
type SphereData struct {
	Radius float64 `json:"radius"`
}

func (SphereData) nodeData() {}

// BoxData is a box centred on the origin.
type BoxData struct {
	Size  v3.Vec  `json:"size"`
	Round float64 `json:"round,omitempty"` // edge rounding radius
}

func (BoxData) nodeData() {}

// CylinderData is a cylinder along z centred on the origin.
type CylinderData struct {
	Height float64 `json:"height"`
	Radius float64 `json:"radius"`
	Round  float64 `json:"round,omitempty"`
}

func (CylinderData) nodeData() {}

// BooleanOp selects how the children of a boolean node combine.
type BooleanOp int

const (
	OpUnion BooleanOp = iota
	OpDifference
	OpIntersection
)

func (op BooleanOp) String() string {
	switch op {
	case OpUnion:
		return "union"
	case OpDifference:
		return "difference"
	case OpIntersection:
		return "intersection"
	default:
		return "unknown"
	}
}

// BooleanData combines two or more children. Difference subtracts every
// later child from the first.
type BooleanData struct {
	Op BooleanOp `json:"op"`
}

func (BooleanData) nodeData() {}

// TransformData moves its single child. Rotation is applied before
// translation.
type TransformData struct {
	Translation *v3.Vec `json:"translation,omitempty"`
	Rotation    *v3.Vec `json:"rotation,omitempty"` // Euler angles in degrees
}

func (TransformData) nodeData() {}
