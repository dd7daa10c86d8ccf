package mesh

import (
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/isomesh/pkg/bbox"
)

// PointCloud is an unordered set of sample points, such as the distinct
// vertices of a welded mesh.
type PointCloud struct {
	points []v3.Vec
}

// NewPointCloud returns a cloud holding a copy of points.
func NewPointCloud(points []v3.Vec) *PointCloud {
	return &PointCloud{points: append([]v3.Vec(nil), points...)}
}

// FromPolymesh returns the vertices of m as a point cloud.
func FromPolymesh(m *Polymesh) *PointCloud {
	pc := &PointCloud{points: make([]v3.Vec, m.VertexCount())}
	for i := range pc.points {
		pc.points[i] = m.Vertex(i)
	}
	return pc
}

// Add appends a point.
func (pc *PointCloud) Add(p v3.Vec) {
	pc.points = append(pc.points, p)
}

// Len returns the number of points.
func (pc *PointCloud) Len() int {
	return len(pc.points)
}

// Points returns the points. The slice is shared with the cloud.
func (pc *PointCloud) Points() []v3.Vec {
	return pc.points
}

// Bounds returns the box enclosing every point.
func (pc *PointCloud) Bounds() bbox.BBox {
	b := bbox.Empty()
	for _, p := range pc.points {
		b.ExpandPoint(p)
	}
	return b
}
