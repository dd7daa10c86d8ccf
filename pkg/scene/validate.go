package scene

import (
	"fmt"
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/isomesh/pkg/octree"
)

// ValidationSeverity indicates whether a validation finding blocks
// tessellation or is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // blocks tessellation
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	NodeID   NodeID             // which node has the problem (zero if not node-level)
	Job      string             // which job has the problem, if any
	Message  string             // human-readable description
	Severity ValidationSeverity // error or warning
}

func (e ValidationError) Error() string {
	switch {
	case e.Job != "":
		return fmt.Sprintf("[%s] job %q: %s", e.Severity, e.Job, e.Message)
	case !e.NodeID.IsZero():
		return fmt.Sprintf("[%s] node %s: %s", e.Severity, e.NodeID.Short(), e.Message)
	default:
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
}

// HasErrors reports whether any finding has error severity.
func HasErrors(errs []ValidationError) bool {
	for _, e := range errs {
		if e.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate runs all structural checks on the scene and returns the
// findings. An empty slice means the scene is valid. The scene is not
// modified.
func (s *Scene) Validate() []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateDAG(s)...)
	errs = append(errs, validateReferences(s)...)
	errs = append(errs, validateNames(s)...)
	errs = append(errs, validateShapes(s)...)
	errs = append(errs, validateJobs(s)...)
	errs = append(errs, validateOrphans(s)...)
	return errs
}

// validateDAG checks for cycles using DFS with 3-color marking.
func validateDAG(s *Scene) []ValidationError {
	const (
		white = iota
		gray
		black
	)

	color := make(map[NodeID]int)
	var errs []ValidationError

	var visit func(id NodeID) bool // returns true if cycle found
	visit = func(id NodeID) bool {
		switch color[id] {
		case black:
			return false
		case gray:
			errs = append(errs, ValidationError{
				NodeID:   id,
				Message:  fmt.Sprintf("cycle detected: node %s is part of a cycle", id.Short()),
				Severity: SeverityError,
			})
			return true
		}

		color[id] = gray
		node, ok := s.Nodes[id]
		if !ok {
			// Dangling reference; handled by validateReferences.
			color[id] = black
			return false
		}
		for _, childID := range node.Children {
			if visit(childID) {
				return true
			}
		}
		color[id] = black
		return false
	}

	for id := range s.Nodes {
		if color[id] == white && visit(id) {
			break
		}
	}
	return errs
}

// validateReferences checks that every child reference exists.
func validateReferences(s *Scene) []ValidationError {
	var errs []ValidationError
	for _, node := range s.Nodes {
		for _, childID := range node.Children {
			if _, ok := s.Nodes[childID]; !ok {
				errs = append(errs, ValidationError{
					NodeID:   node.ID,
					Message:  fmt.Sprintf("child reference %s does not exist", childID.Short()),
					Severity: SeverityError,
				})
			}
		}
	}
	return errs
}

// validateNames checks that every NameIndex entry references an existing
// node and that no two nodes share a name.
func validateNames(s *Scene) []ValidationError {
	var errs []ValidationError
	for name, id := range s.NameIndex {
		if _, ok := s.Nodes[id]; !ok {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("name index entry %q references non-existent node %s", name, id.Short()),
				Severity: SeverityError,
			})
		}
	}

	nameToNodes := make(map[string][]NodeID)
	for id, node := range s.Nodes {
		if node.Name != "" {
			nameToNodes[node.Name] = append(nameToNodes[node.Name], id)
		}
	}
	for name, ids := range nameToNodes {
		if len(ids) > 1 {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("duplicate name %q assigned to %d nodes", name, len(ids)),
				Severity: SeverityError,
			})
		}
	}
	return errs
}

// validateShapes checks that each node's payload matches its kind, has the
// right number of children, and carries usable dimensions.
func validateShapes(s *Scene) []ValidationError {
	var errs []ValidationError
	bad := func(n *Node, format string, args ...any) {
		errs = append(errs, ValidationError{
			NodeID:   n.ID,
			Message:  fmt.Sprintf(format, args...),
			Severity: SeverityError,
		})
	}

	for _, n := range s.Nodes {
		switch d := n.Data.(type) {
		case SphereData:
			if !positive(d.Radius) {
				bad(n, "sphere radius %g must be positive", d.Radius)
			}
		case BoxData:
			if !positive(d.Size.X) || !positive(d.Size.Y) || !positive(d.Size.Z) {
				bad(n, "box size %v must be positive", d.Size)
			}
			if !nonNegative(d.Round) {
				bad(n, "box rounding %g must not be negative", d.Round)
			}
		case CylinderData:
			if !positive(d.Height) || !positive(d.Radius) {
				bad(n, "cylinder height %g and radius %g must be positive", d.Height, d.Radius)
			}
			if !nonNegative(d.Round) {
				bad(n, "cylinder rounding %g must not be negative", d.Round)
			}
		case BooleanData:
			if len(n.Children) < 2 {
				bad(n, "%s needs at least 2 operands, got %d", d.Op, len(n.Children))
			}
		case TransformData:
			if len(n.Children) != 1 {
				bad(n, "transform needs exactly 1 child, got %d", len(n.Children))
			}
			for _, v := range []*v3.Vec{d.Translation, d.Rotation} {
				if v != nil && !finiteVec(*v) {
					bad(n, "transform has non-finite component %v", *v)
				}
			}
		case nil:
			bad(n, "%s node has no data", n.Kind)
			continue
		}

		if want := kindOf(n.Data); want != n.Kind {
			bad(n, "%s node carries %T", n.Kind, n.Data)
		}
		if n.Kind == NodePrimitive && len(n.Children) > 0 {
			bad(n, "primitive node has %d children", len(n.Children))
		}
	}
	return errs
}

func kindOf(d NodeData) NodeKind {
	switch d.(type) {
	case BooleanData:
		return NodeBoolean
	case TransformData:
		return NodeTransform
	default:
		return NodePrimitive
	}
}

// validateJobs checks job roots, names and polygonization settings.
func validateJobs(s *Scene) []ValidationError {
	var errs []ValidationError
	bad := func(j Job, format string, args ...any) {
		errs = append(errs, ValidationError{
			NodeID:   j.Root,
			Job:      j.Name,
			Message:  fmt.Sprintf(format, args...),
			Severity: SeverityError,
		})
	}

	seen := make(map[string]bool)
	for _, j := range s.Jobs {
		if j.Name == "" {
			bad(j, "job has no name")
		} else if seen[j.Name] {
			bad(j, "duplicate job name")
		}
		seen[j.Name] = true

		if j.Root.IsZero() {
			bad(j, "job has no shape")
		} else if _, ok := s.Nodes[j.Root]; !ok {
			bad(j, "shape %s does not exist", j.Root.Short())
		}
		if j.Depth < 0 || j.Depth > octree.MaxDepthLimit {
			bad(j, "depth %d outside [0, %d]", j.Depth, octree.MaxDepthLimit)
		}
		if j.Bounds != nil {
			if !j.Bounds.IsFinite() {
				bad(j, "bounds %s are not finite", j.Bounds)
			} else if j.Bounds.IsEmpty() {
				bad(j, "bounds %s are empty", j.Bounds)
			}
		}
	}
	return errs
}

// validateOrphans warns about nodes no job can reach.
func validateOrphans(s *Scene) []ValidationError {
	var errs []ValidationError
	if len(s.Nodes) == 0 {
		return errs
	}

	reachable := make(map[NodeID]bool)
	var queue []NodeID
	for _, j := range s.Jobs {
		if _, ok := s.Nodes[j.Root]; ok && !reachable[j.Root] {
			reachable[j.Root] = true
			queue = append(queue, j.Root)
		}
	}
	for len(queue) > 0 {
		node := s.Nodes[queue[0]]
		queue = queue[1:]
		if node == nil {
			continue
		}
		for _, childID := range node.Children {
			if !reachable[childID] {
				reachable[childID] = true
				queue = append(queue, childID)
			}
		}
	}

	for id, node := range s.Nodes {
		if reachable[id] {
			continue
		}
		name := node.Name
		if name == "" {
			name = id.Short()
		}
		errs = append(errs, ValidationError{
			NodeID:   id,
			Message:  fmt.Sprintf("node %q is not used by any job (orphan)", name),
			Severity: SeverityWarning,
		})
	}
	return errs
}

func positive(x float64) bool {
	return x > 0 && !math.IsInf(x, 0)
}

func nonNegative(x float64) bool {
	return x >= 0 && !math.IsInf(x, 0)
}

func finiteVec(v v3.Vec) bool {
	for _, c := range [3]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
