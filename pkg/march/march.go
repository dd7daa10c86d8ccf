// Package march extracts a triangle surface from the leaves of an octree
// using marching cubes.
//
// Each leaf is sampled at its eight corners. The pattern of inside and
// outside corners selects a precomputed case listing which edges the surface
// crosses and how the crossing points are joined into triangles. Triangles
// are wound counter-clockwise when seen from outside the solid, so their
// normals point away from the inside.
//
// Cells sharing a face resolve ambiguous faces the same way and compute
// crossing points on shared edges bit-identically, so the output of a tree
// whose leaves tile the box without hanging surface faces is closed.
package march

import (
	"fmt"
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/golang/glog"

	"github.com/chazu/isomesh/pkg/bbox"
	"github.com/chazu/isomesh/pkg/implicit"
	"github.com/chazu/isomesh/pkg/mesh"
	"github.com/chazu/isomesh/pkg/octree"
)

// sampler evaluates cell corners. When the function is a Field crossing
// points are interpolated linearly from the corner values, otherwise they
// are placed at edge midpoints.
type sampler struct {
	fn    implicit.Function
	field implicit.Field
}

func newSampler(f implicit.Function) sampler {
	s := sampler{fn: f}
	if field, ok := f.(implicit.Field); ok {
		s.field = field
	}
	return s
}

// Extract polygonizes every leaf of tree, in leaf order. The first sampling
// failure aborts extraction and is returned with the failing leaf.
func Extract(tree *octree.Tree, f implicit.Function) (*mesh.Soup, error) {
	if f == nil {
		return nil, octree.ErrNoFunction
	}
	s := newSampler(f)
	out := mesh.NewSoup(0)
	leaves := 0
	for leaf := range tree.Leaves() {
		if err := s.cell(out, leaf.Box); err != nil {
			return nil, fmt.Errorf("march: leaf %d at depth %d: %w", leaf.ID, leaf.Depth, err)
		}
		leaves++
	}
	glog.V(2).Infof("march: %d leaves, %d triangles", leaves, out.Len())
	return out, nil
}

// Polygonize returns the triangles of a single cell.
func Polygonize(cell bbox.BBox, f implicit.Function) ([]mesh.Triangle, error) {
	if f == nil {
		return nil, octree.ErrNoFunction
	}
	out := mesh.NewSoup(5)
	if err := newSampler(f).cell(out, cell); err != nil {
		return nil, err
	}
	return out.Triangles(), nil
}

func (s sampler) cell(out *mesh.Soup, cell bbox.BBox) error {
	if cell.IsEmpty() {
		return nil
	}
	corners := cell.Corners()
	var values [8]float64
	var cfg uint8
	for c, p := range corners {
		in, v, err := s.sample(p)
		if err != nil {
			return fmt.Errorf("corner %v: %w", p, err)
		}
		values[c] = v
		if in {
			cfg |= 1 << c
		}
	}

	mask := edgeMask[cfg]
	if mask == 0 {
		return nil
	}
	var points [12]v3.Vec
	for e, ab := range edgeCorners {
		if mask&(1<<e) == 0 {
			continue
		}
		a, b := ab[0], ab[1]
		points[e] = s.crossing(corners[a], corners[b], values[a], values[b])
	}

	for _, poly := range cases[cfg] {
		if poly.center == nil {
			for _, t := range poly.tris {
				if err := out.Add(mesh.Triangle{points[t[0]], points[t[1]], points[t[2]]}); err != nil {
					return err
				}
			}
			continue
		}
		var c v3.Vec
		for _, e := range poly.center {
			c = c.Add(points[e])
		}
		c = c.MulScalar(1 / float64(len(poly.center)))
		n := len(poly.center)
		for i, e := range poly.center {
			if err := out.Add(mesh.Triangle{c, points[e], points[poly.center[(i+1)%n]]}); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s sampler) sample(p v3.Vec) (bool, float64, error) {
	if s.field == nil {
		in, err := s.fn.Inside(p)
		return in, 0, err
	}
	v, err := s.field.Evaluate(p)
	if err != nil {
		return false, 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false, 0, fmt.Errorf("%w: %v", implicit.ErrNonFinite, v)
	}
	return v < 0, v, nil
}

// crossing locates the surface on the edge from pa to pb. The endpoints are
// put in a fixed order first so that every cell sharing the edge computes
// the same bits.
func (s sampler) crossing(pa, pb v3.Vec, va, vb float64) v3.Vec {
	if lessVec(pb, pa) {
		pa, pb = pb, pa
		va, vb = vb, va
	}
	if s.field == nil {
		return pa.Add(pb).MulScalar(0.5)
	}
	t := va / (va - vb)
	return pa.Add(pb.Sub(pa).MulScalar(t))
}

func lessVec(a, b v3.Vec) bool {
	if a.X != b.X {
		return a.X < b.X
	}
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.Z < b.Z
}
