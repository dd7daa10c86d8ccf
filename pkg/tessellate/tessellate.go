// Package tessellate turns a scene into triangle meshes using a geometry
// kernel. One mesh is produced per polygonization job.
package tessellate

import (
	"errors"
	"fmt"

	"github.com/golang/glog"

	"github.com/chazu/isomesh/pkg/kernel"
	"github.com/chazu/isomesh/pkg/mesh"
	"github.com/chazu/isomesh/pkg/scene"
)

// ErrInvalidScene is returned when the scene fails validation.
var ErrInvalidScene = errors.New("tessellate: invalid scene")

type config struct {
	workers int
}

// Option configures Tessellate.
type Option func(*config)

// WithWorkers sets the number of extraction workers used for each job.
func WithWorkers(n int) Option {
	return func(c *config) { c.workers = n }
}

// builder builds kernel solids for scene nodes. Shared subtrees are built
// once.
type builder struct {
	s      *scene.Scene
	k      kernel.Kernel
	solids map[scene.NodeID]kernel.Solid
}

// Tessellate validates the scene, builds the solid of every job through k,
// and meshes it with the job's depth, policy and bounds. The tessellator is
// read-only and never mutates the scene.
func Tessellate(s *scene.Scene, k kernel.Kernel, opts ...Option) ([]*mesh.Polymesh, error) {
	if s == nil {
		return nil, nil
	}
	cfg := config{workers: 1}
	for _, o := range opts {
		o(&cfg)
	}

	for _, v := range s.Validate() {
		if v.Severity == scene.SeverityError {
			return nil, fmt.Errorf("%w: %s", ErrInvalidScene, v.Error())
		}
	}

	b := &builder{s: s, k: k, solids: make(map[scene.NodeID]kernel.Solid)}
	meshes := make([]*mesh.Polymesh, 0, len(s.Jobs))
	for _, job := range s.Jobs {
		solid, err := b.build(job.Root)
		if err != nil {
			return nil, fmt.Errorf("tessellate: job %q: %w", job.Name, err)
		}

		mo := kernel.DefaultMeshOptions()
		mo.Depth = job.Depth
		mo.Policy = job.Policy
		mo.Bounds = job.Bounds
		mo.Workers = cfg.workers

		m, err := k.ToMesh(solid, mo)
		if err != nil {
			return nil, fmt.Errorf("tessellate: job %q: ToMesh failed: %w", job.Name, err)
		}
		m.PartName = job.Name
		glog.V(1).Infof("tessellate: job %q: %d vertices, %d triangles", job.Name, m.VertexCount(), m.TriangleCount())
		meshes = append(meshes, m)
	}

	return meshes, nil
}

// build returns the solid for the node id, building its children first.
func (b *builder) build(id scene.NodeID) (kernel.Solid, error) {
	if solid, ok := b.solids[id]; ok {
		return solid, nil
	}
	n := b.s.Get(id)
	if n == nil {
		return nil, fmt.Errorf("node %s does not exist", id.Short())
	}

	var (
		solid kernel.Solid
		err   error
	)
	switch n.Kind {
	case scene.NodePrimitive:
		solid, err = b.primitive(n)
	case scene.NodeBoolean:
		solid, err = b.boolean(n)
	case scene.NodeTransform:
		solid, err = b.transform(n)
	default:
		err = fmt.Errorf("unknown node kind: %v", n.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", n.Kind, label(n), err)
	}

	b.solids[id] = solid
	return solid, nil
}

// label names a node for error messages: its name, else its short ID.
func label(n *scene.Node) string {
	if n.Name != "" {
		return fmt.Sprintf("%q", n.Name)
	}
	return n.ID.Short()
}

// primitive creates geometry for a primitive node.
func (b *builder) primitive(n *scene.Node) (kernel.Solid, error) {
	switch data := n.Data.(type) {
	case scene.SphereData:
		return b.k.Sphere(data.Radius)
	case scene.BoxData:
		return b.k.Box(data.Size.X, data.Size.Y, data.Size.Z, data.Round)
	case scene.CylinderData:
		return b.k.Cylinder(data.Height, data.Radius, data.Round)
	default:
		return nil, fmt.Errorf("unsupported data type %T", n.Data)
	}
}

// boolean folds the children of a boolean node left to right.
func (b *builder) boolean(n *scene.Node) (kernel.Solid, error) {
	bd, ok := n.Data.(scene.BooleanData)
	if !ok {
		return nil, fmt.Errorf("unexpected data type %T", n.Data)
	}
	var combine func(a, c kernel.Solid) (kernel.Solid, error)
	switch bd.Op {
	case scene.OpUnion:
		combine = b.k.Union
	case scene.OpDifference:
		combine = b.k.Difference
	case scene.OpIntersection:
		combine = b.k.Intersection
	default:
		return nil, fmt.Errorf("unknown boolean op %v", bd.Op)
	}

	var acc kernel.Solid
	for i, cid := range n.Children {
		child, err := b.build(cid)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			acc = child
			continue
		}
		if acc, err = combine(acc, child); err != nil {
			return nil, fmt.Errorf("%s: %w", bd.Op, err)
		}
	}
	if acc == nil {
		return nil, fmt.Errorf("no children")
	}
	return acc, nil
}

// transform rotates, then translates, its single child.
func (b *builder) transform(n *scene.Node) (kernel.Solid, error) {
	td, ok := n.Data.(scene.TransformData)
	if !ok {
		return nil, fmt.Errorf("unexpected data type %T", n.Data)
	}
	if len(n.Children) != 1 {
		return nil, fmt.Errorf("expected 1 child, got %d", len(n.Children))
	}
	solid, err := b.build(n.Children[0])
	if err != nil {
		return nil, err
	}

	if r := td.Rotation; r != nil && (r.X != 0 || r.Y != 0 || r.Z != 0) {
		if solid, err = b.k.Rotate(solid, r.X, r.Y, r.Z); err != nil {
			return nil, err
		}
	}
	if t := td.Translation; t != nil && (t.X != 0 || t.Y != 0 || t.Z != 0) {
		if solid, err = b.k.Translate(solid, t.X, t.Y, t.Z); err != nil {
			return nil, err
		}
	}
	return solid, nil
}
