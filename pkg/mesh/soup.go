// Package mesh holds the triangle output of surface extraction and the
// adapters that turn it into indexed, render-ready meshes.
//
// A Soup is the raw result: an ordered, append-only list of triangles with
// duplicated vertices at shared edges. Welding into a Polymesh is a separate
// step so that extraction stays stateless.
package mesh

import (
	"errors"
	"fmt"
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/isomesh/pkg/bbox"
)

// ErrNonFinite is returned when a triangle with a NaN or infinite coordinate
// is added to a Soup.
var ErrNonFinite = errors.New("mesh: non-finite vertex")

// Triangle is three ordered points. Counter-clockwise order, seen from the
// side the normal points to, is the front face.
type Triangle [3]v3.Vec

// Normal returns the unit normal given by the winding, or the zero vector
// for a degenerate triangle.
func (t Triangle) Normal() v3.Vec {
	n := t.cross()
	l := n.Length()
	if l == 0 {
		return v3.Vec{}
	}
	return n.MulScalar(1 / l)
}

// Area returns the triangle's area.
func (t Triangle) Area() float64 {
	return t.cross().Length() / 2
}

func (t Triangle) cross() v3.Vec {
	return t[1].Sub(t[0]).Cross(t[2].Sub(t[0]))
}

// IsFinite reports whether every coordinate is finite.
func (t Triangle) IsFinite() bool {
	for _, p := range t {
		for _, c := range [3]float64{p.X, p.Y, p.Z} {
			if math.IsNaN(c) || math.IsInf(c, 0) {
				return false
			}
		}
	}
	return true
}

// Soup is an ordered, growable list of triangles.
type Soup struct {
	tris []Triangle
}

// NewSoup returns an empty soup with room for n triangles.
func NewSoup(n int) *Soup {
	return &Soup{tris: make([]Triangle, 0, n)}
}

// Add appends t. Triangles with non-finite coordinates are rejected.
func (s *Soup) Add(t Triangle) error {
	if !t.IsFinite() {
		return fmt.Errorf("%w: %v", ErrNonFinite, t)
	}
	s.tris = append(s.tris, t)
	return nil
}

// Append appends every triangle of o, keeping their order.
func (s *Soup) Append(o *Soup) {
	s.tris = append(s.tris, o.tris...)
}

// Len returns the number of triangles.
func (s *Soup) Len() int {
	return len(s.tris)
}

// Triangles returns the triangles in insertion order. The slice is shared
// with the soup and must not be modified.
func (s *Soup) Triangles() []Triangle {
	return s.tris
}

// Bounds returns the box enclosing every vertex, empty for an empty soup.
func (s *Soup) Bounds() bbox.BBox {
	b := bbox.Empty()
	for _, t := range s.tris {
		for _, p := range t {
			b.ExpandPoint(p)
		}
	}
	return b
}
