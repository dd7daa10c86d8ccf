// Package kernel defines the abstract geometry kernel interface.
// A kernel builds bounded implicit solids and meshes them. The kernel
// abstraction allows swapping backends without changing the rest of the
// system.
package kernel

import (
	"errors"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/isomesh/pkg/bbox"
	"github.com/chazu/isomesh/pkg/implicit"
	"github.com/chazu/isomesh/pkg/mesh"
	"github.com/chazu/isomesh/pkg/octree"
)

// ErrForeignSolid is returned when a kernel is handed a solid that another
// kernel built.
var ErrForeignSolid = errors.New("kernel: solid was not built by this kernel")

// Solid is a signed distance field with finite bounds. Evaluate is negative
// inside the solid.
type Solid interface {
	implicit.Field
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() bbox.BBox
}

// MeshOptions controls how ToMesh samples a solid.
type MeshOptions struct {
	// Depth is the octree depth; the sampling grid has 2^Depth cells per axis.
	Depth  int
	Policy octree.Policy
	// Padding grows the bounding box by this fraction of its largest extent
	// on every side, so surfaces touching the box are still closed.
	Padding float64
	// Bounds, when set, replaces the padded bounding box.
	Bounds  *bbox.BBox
	Workers int
}

// DefaultMeshOptions returns depth 6, adaptive, 5% padding, one worker.
func DefaultMeshOptions() MeshOptions {
	return MeshOptions{
		Depth:   6,
		Policy:  octree.Adaptive,
		Padding: 0.05,
		Workers: 1,
	}
}

// Region returns the box ToMesh samples for s under these options.
func (o MeshOptions) Region(s Solid) bbox.BBox {
	if o.Bounds != nil {
		return *o.Bounds
	}
	b := s.BoundingBox()
	if b.IsEmpty() || o.Padding <= 0 {
		return b
	}
	pad := max(b.Extent.X, b.Extent.Y, b.Extent.Z) * o.Padding
	d := v3.Vec{X: pad, Y: pad, Z: pad}
	return bbox.New(b.Min.Sub(d), b.Max.Add(d))
}

// Kernel is the abstract geometry kernel interface.
type Kernel interface {
	// Primitives, centred on the origin.
	Sphere(radius float64) (Solid, error)
	Box(x, y, z, round float64) (Solid, error)
	Cylinder(height, radius, round float64) (Solid, error)

	// Boolean operations
	Union(a, b Solid) (Solid, error)
	Difference(a, b Solid) (Solid, error)
	Intersection(a, b Solid) (Solid, error)

	// Transforms
	Translate(s Solid, x, y, z float64) (Solid, error)
	Rotate(s Solid, x, y, z float64) (Solid, error) // Euler angles in degrees

	// Mesh output
	ToMesh(s Solid, opts MeshOptions) (*mesh.Polymesh, error)
}
