package kernel

import (
	"math"
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/isomesh/pkg/bbox"
	"github.com/chazu/isomesh/pkg/implicit"
	"github.com/chazu/isomesh/pkg/mesh"
)

// --- Stub kernel ---

// stubSolid is a sphere about the origin.
type stubSolid struct {
	implicit.Sphere
}

func (s stubSolid) BoundingBox() bbox.BBox {
	r := s.Radius
	return bbox.FromCoords(-r, -r, -r, r, r, r)
}

// stubKernel is a minimal Kernel implementation that proves the interface
// is satisfiable. Every primitive is a sphere and every operation returns
// its first operand.
type stubKernel struct{}

func (k *stubKernel) Sphere(r float64) (Solid, error) {
	return stubSolid{implicit.Sphere{Radius: r}}, nil
}

func (k *stubKernel) Box(x, y, z, _ float64) (Solid, error) {
	return k.Sphere(math.Max(x, math.Max(y, z)) / 2)
}

func (k *stubKernel) Cylinder(h, r, _ float64) (Solid, error) {
	return k.Sphere(math.Max(h/2, r))
}

func (k *stubKernel) Union(a, _ Solid) (Solid, error)        { return a, nil }
func (k *stubKernel) Difference(a, _ Solid) (Solid, error)   { return a, nil }
func (k *stubKernel) Intersection(a, _ Solid) (Solid, error) { return a, nil }

func (k *stubKernel) Translate(s Solid, _, _, _ float64) (Solid, error) { return s, nil }
func (k *stubKernel) Rotate(s Solid, _, _, _ float64) (Solid, error)    { return s, nil }

func (k *stubKernel) ToMesh(_ Solid, _ MeshOptions) (*mesh.Polymesh, error) {
	return &mesh.Polymesh{}, nil
}

// Compile-time checks that the stubs implement the interfaces.
var _ Solid = stubSolid{}
var _ Kernel = (*stubKernel)(nil)

func TestStubKernelBoxBoundingBox(t *testing.T) {
	var k Kernel = &stubKernel{}
	s, err := k.Box(10, 20, 30, 0)
	if err != nil {
		t.Fatalf("Box() error = %v", err)
	}
	b := s.BoundingBox()
	if b.Min != (v3.Vec{X: -15, Y: -15, Z: -15}) {
		t.Errorf("Box min = %v, want [-15 -15 -15]", b.Min)
	}
	if b.Max != (v3.Vec{X: 15, Y: 15, Z: 15}) {
		t.Errorf("Box max = %v, want [15 15 15]", b.Max)
	}
}

func TestStubKernelToMesh(t *testing.T) {
	var k Kernel = &stubKernel{}
	s, _ := k.Sphere(1)
	m, err := k.ToMesh(s, DefaultMeshOptions())
	if err != nil {
		t.Fatalf("ToMesh() error = %v", err)
	}
	if m == nil {
		t.Fatal("ToMesh() returned nil mesh")
	}
	if !m.IsEmpty() {
		t.Error("stub ToMesh() should return empty mesh")
	}
}

// --- MeshOptions ---

func TestDefaultMeshOptions(t *testing.T) {
	o := DefaultMeshOptions()
	if o.Depth != 6 || o.Workers != 1 || o.Padding != 0.05 || o.Bounds != nil {
		t.Errorf("DefaultMeshOptions() = %+v", o)
	}
}

func TestRegion(t *testing.T) {
	s := stubSolid{implicit.Sphere{Radius: 5}}
	override := bbox.FromCoords(0, 0, 0, 1, 1, 1)

	tests := []struct {
		name string
		opts MeshOptions
		want bbox.BBox
	}{
		{"no padding", MeshOptions{}, bbox.FromCoords(-5, -5, -5, 5, 5, 5)},
		{"ten percent", MeshOptions{Padding: 0.1}, bbox.FromCoords(-6, -6, -6, 6, 6, 6)},
		{"override", MeshOptions{Padding: 0.1, Bounds: &override}, override},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.opts.Region(s)
			for _, pair := range [][2]v3.Vec{{got.Min, tt.want.Min}, {got.Max, tt.want.Max}} {
				if pair[0].Sub(pair[1]).Length() > 1e-12 {
					t.Errorf("Region() = %s, want %s", got, tt.want)
				}
			}
		})
	}
}
