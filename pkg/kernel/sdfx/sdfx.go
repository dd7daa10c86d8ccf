// Package sdfx implements the kernel.Kernel interface using the
// github.com/deadsy/sdfx SDF-based CAD library.
//
// Solids are sdfx distance fields. By default they are meshed by the octree
// pipeline of this module; WithRenderer(RendererSDFX) uses sdfx's own
// uniform marching cubes renderer instead.
package sdfx

import (
	"context"
	"fmt"
	"math"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/golang/glog"

	"github.com/chazu/isomesh/pkg/bbox"
	"github.com/chazu/isomesh/pkg/implicit"
	"github.com/chazu/isomesh/pkg/kernel"
	"github.com/chazu/isomesh/pkg/mesh"
	"github.com/chazu/isomesh/pkg/octree"
	"github.com/chazu/isomesh/pkg/polygonize"
)

// Compile-time interface checks.
var (
	_ kernel.Kernel = (*SdfxKernel)(nil)
	_ kernel.Solid  = (*sdfxSolid)(nil)
)

// Renderer selects how ToMesh extracts the surface.
type Renderer int

const (
	// RendererOctree samples the solid on an octree and welds the result.
	RendererOctree Renderer = iota
	// RendererSDFX uses render.NewMarchingCubesUniform with 2^Depth cells
	// along the longest axis. Bounds and Policy are ignored.
	RendererSDFX
)

func (r Renderer) String() string {
	switch r {
	case RendererOctree:
		return "octree"
	case RendererSDFX:
		return "sdfx"
	default:
		return "unknown"
	}
}

// sdfxSolid wraps an sdf.SDF3 to implement kernel.Solid.
type sdfxSolid struct {
	implicit.SDF
}

// BoundingBox returns the axis-aligned bounding box.
func (s *sdfxSolid) BoundingBox() bbox.BBox {
	bb := s.S.BoundingBox()
	return bbox.New(bb.Min, bb.Max)
}

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct {
	renderer Renderer
}

// Option configures an SdfxKernel.
type Option func(*SdfxKernel)

// WithRenderer selects the surface extraction backend.
func WithRenderer(r Renderer) Option {
	return func(k *SdfxKernel) { k.renderer = r }
}

// New returns a new SdfxKernel.
func New(opts ...Option) *SdfxKernel {
	k := &SdfxKernel{}
	for _, o := range opts {
		o(k)
	}
	return k
}

// unwrap extracts the underlying sdf.SDF3 from a kernel.Solid.
func unwrap(s kernel.Solid) (sdf.SDF3, error) {
	ss, ok := s.(*sdfxSolid)
	if !ok {
		return nil, fmt.Errorf("%w: %T", kernel.ErrForeignSolid, s)
	}
	return ss.S, nil
}

func unwrap2(a, b kernel.Solid) (sdf.SDF3, sdf.SDF3, error) {
	sa, err := unwrap(a)
	if err != nil {
		return nil, nil, err
	}
	sb, err := unwrap(b)
	if err != nil {
		return nil, nil, err
	}
	return sa, sb, nil
}

// wrap creates a kernel.Solid from an sdf.SDF3.
func wrap(s sdf.SDF3) kernel.Solid {
	return &sdfxSolid{SDF: implicit.FromSDF(s)}
}

// Sphere creates a sphere of the given radius.
func (k *SdfxKernel) Sphere(radius float64) (kernel.Solid, error) {
	s, err := sdf.Sphere3D(radius)
	if err != nil {
		return nil, fmt.Errorf("sdfx: sphere: %w", err)
	}
	return wrap(s), nil
}

// Box creates a box with the given dimensions and edge rounding.
func (k *SdfxKernel) Box(x, y, z, round float64) (kernel.Solid, error) {
	s, err := sdf.Box3D(v3.Vec{X: x, Y: y, Z: z}, round)
	if err != nil {
		return nil, fmt.Errorf("sdfx: box: %w", err)
	}
	return wrap(s), nil
}

// Cylinder creates a cylinder along z with the given height and radius.
func (k *SdfxKernel) Cylinder(height, radius, round float64) (kernel.Solid, error) {
	s, err := sdf.Cylinder3D(height, radius, round)
	if err != nil {
		return nil, fmt.Errorf("sdfx: cylinder: %w", err)
	}
	return wrap(s), nil
}

// Union returns the union of two solids.
func (k *SdfxKernel) Union(a, b kernel.Solid) (kernel.Solid, error) {
	sa, sb, err := unwrap2(a, b)
	if err != nil {
		return nil, err
	}
	return wrap(sdf.Union3D(sa, sb)), nil
}

// Difference returns the difference a - b.
func (k *SdfxKernel) Difference(a, b kernel.Solid) (kernel.Solid, error) {
	sa, sb, err := unwrap2(a, b)
	if err != nil {
		return nil, err
	}
	return wrap(sdf.Difference3D(sa, sb)), nil
}

// Intersection returns the intersection of two solids.
func (k *SdfxKernel) Intersection(a, b kernel.Solid) (kernel.Solid, error) {
	sa, sb, err := unwrap2(a, b)
	if err != nil {
		return nil, err
	}
	return wrap(sdf.Intersect3D(sa, sb)), nil
}

// Translate moves a solid by (x, y, z).
func (k *SdfxKernel) Translate(s kernel.Solid, x, y, z float64) (kernel.Solid, error) {
	ss, err := unwrap(s)
	if err != nil {
		return nil, err
	}
	m := sdf.Translate3d(v3.Vec{X: x, Y: y, Z: z})
	return wrap(sdf.Transform3D(ss, m)), nil
}

// Rotate rotates a solid by Euler angles (degrees) around X, Y, Z axes.
func (k *SdfxKernel) Rotate(s kernel.Solid, x, y, z float64) (kernel.Solid, error) {
	ss, err := unwrap(s)
	if err != nil {
		return nil, err
	}
	xRad := x * math.Pi / 180.0
	yRad := y * math.Pi / 180.0
	zRad := z * math.Pi / 180.0

	m := sdf.RotateZ(zRad).Mul(sdf.RotateY(yRad)).Mul(sdf.RotateX(xRad))
	return wrap(sdf.Transform3D(ss, m)), nil
}

// ToMesh converts a solid to a triangle mesh.
func (k *SdfxKernel) ToMesh(s kernel.Solid, opts kernel.MeshOptions) (*mesh.Polymesh, error) {
	ss, err := unwrap(s)
	if err != nil {
		return nil, err
	}
	if k.renderer == RendererSDFX {
		return renderUniform(ss, opts.Depth)
	}

	region := opts.Region(s)
	cfg := polygonize.Config{
		Bounds: [2][3]float64{
			{region.Min.X, region.Min.Y, region.Min.Z},
			{region.Max.X, region.Max.Y, region.Max.Z},
		},
		Depth:   opts.Depth,
		Mode:    opts.Policy.String(),
		Workers: opts.Workers,
	}
	soup, err := polygonize.Run(context.Background(), s, cfg)
	if err != nil {
		return nil, fmt.Errorf("sdfx: %w", err)
	}
	return mesh.Weld(soup, 0), nil
}

// renderUniform meshes with sdfx's renderer, one unshared vertex triple per
// triangle. Depth obeys the octree limits; a non-finite triangle fails the
// whole mesh.
func renderUniform(s sdf.SDF3, depth int) (*mesh.Polymesh, error) {
	if depth < 0 || depth > octree.MaxDepthLimit {
		return nil, fmt.Errorf("sdfx: %w: %d (want 0..%d)", octree.ErrInvalidDepth, depth, octree.MaxDepthLimit)
	}
	cells := 1 << max(depth, 1)
	renderer := render.NewMarchingCubesUniform(cells)
	triangles := render.ToTriangles(s, renderer)

	soup := mesh.NewSoup(len(triangles))
	for i, tri := range triangles {
		if err := soup.Add(mesh.Triangle{tri[0], tri[1], tri[2]}); err != nil {
			return nil, fmt.Errorf("sdfx: uniform renderer triangle %d: %w", i, err)
		}
	}
	glog.V(1).Infof("sdfx: uniform renderer, %d cells, %d triangles", cells, soup.Len())
	return mesh.Flat(soup), nil
}
