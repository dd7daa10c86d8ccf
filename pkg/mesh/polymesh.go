package mesh

import (
	"math"

	"github.com/chewxy/math32"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Polymesh is a triangle mesh suitable for rendering.
// All arrays are flat: vertices has 3 floats per vertex (x,y,z),
// normals has 3 floats per vertex, indices has 3 uint32s per triangle.
type Polymesh struct {
	Vertices []float32 `json:"vertices"` // [x0,y0,z0, x1,y1,z1, ...]
	Normals  []float32 `json:"normals"`  // [nx0,ny0,nz0, ...]
	Indices  []uint32  `json:"indices"`  // [i0,i1,i2, ...] triangles
	PartName string    `json:"partName"`
}

// VertexCount returns the number of vertices.
func (m *Polymesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Polymesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Polymesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// Vertex returns vertex i.
func (m *Polymesh) Vertex(i int) v3.Vec {
	return v3.Vec{
		X: float64(m.Vertices[3*i]),
		Y: float64(m.Vertices[3*i+1]),
		Z: float64(m.Vertices[3*i+2]),
	}
}

// Flat converts a soup without sharing vertices: every triangle gets its
// own three vertices carrying the face normal.
func Flat(s *Soup) *Polymesh {
	numVerts := s.Len() * 3
	m := &Polymesh{
		Vertices: make([]float32, 0, numVerts*3),
		Normals:  make([]float32, 0, numVerts*3),
		Indices:  make([]uint32, 0, numVerts),
	}
	for i, tri := range s.Triangles() {
		n := tri.Normal()
		for j := 0; j < 3; j++ {
			v := tri[j]
			m.Vertices = append(m.Vertices, float32(v.X), float32(v.Y), float32(v.Z))
			m.Normals = append(m.Normals, float32(n.X), float32(n.Y), float32(n.Z))
			m.Indices = append(m.Indices, uint32(i*3+j))
		}
	}
	return m
}

type weldKey [3]int64

// Weld merges vertices of the soup that fall into the same cell of a grid
// with spacing eps and builds an indexed mesh. With eps <= 0 only bit-equal
// positions are merged. Triangles that collapse after merging are dropped.
// Vertex normals are the area-weighted average of the adjacent faces.
func Weld(s *Soup, eps float64) *Polymesh {
	index := make(map[weldKey]uint32, s.Len())
	var positions []v3.Vec
	var accum []v3.Vec
	indices := make([]uint32, 0, s.Len()*3)

	key := func(p v3.Vec) weldKey {
		if eps <= 0 {
			return weldKey{
				int64(math.Float64bits(p.X)),
				int64(math.Float64bits(p.Y)),
				int64(math.Float64bits(p.Z)),
			}
		}
		return weldKey{
			int64(math.Round(p.X / eps)),
			int64(math.Round(p.Y / eps)),
			int64(math.Round(p.Z / eps)),
		}
	}

	for _, tri := range s.Triangles() {
		var ids [3]uint32
		for j, p := range tri {
			k := key(p)
			id, ok := index[k]
			if !ok {
				id = uint32(len(positions))
				index[k] = id
				positions = append(positions, p)
				accum = append(accum, v3.Vec{})
			}
			ids[j] = id
		}
		if ids[0] == ids[1] || ids[1] == ids[2] || ids[0] == ids[2] {
			continue
		}
		// The unnormalised cross product weights by twice the area.
		n := tri.cross()
		for _, id := range ids {
			accum[id] = accum[id].Add(n)
		}
		indices = append(indices, ids[0], ids[1], ids[2])
	}

	m := &Polymesh{
		Vertices: make([]float32, 0, len(positions)*3),
		Normals:  make([]float32, 0, len(positions)*3),
		Indices:  indices,
	}
	for i, p := range positions {
		m.Vertices = append(m.Vertices, float32(p.X), float32(p.Y), float32(p.Z))
		nx, ny, nz := normalize32(float32(accum[i].X), float32(accum[i].Y), float32(accum[i].Z))
		m.Normals = append(m.Normals, nx, ny, nz)
	}
	return m
}

func normalize32(x, y, z float32) (float32, float32, float32) {
	l := math32.Sqrt(x*x + y*y + z*z)
	if l == 0 || math32.IsNaN(l) || math32.IsInf(l, 0) {
		return 0, 0, 0
	}
	return x / l, y / l, z / l
}
