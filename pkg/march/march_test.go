package march

import (
	"context"
	"errors"
	"math"
	"math/bits"
	"math/rand/v2"
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/isomesh/pkg/bbox"
	"github.com/chazu/isomesh/pkg/implicit"
	"github.com/chazu/isomesh/pkg/mesh"
	"github.com/chazu/isomesh/pkg/octree"
)

var demoBox = bbox.FromCoords(-10, -10, -10, 10, 10, 10)

// --- Case table ---

func TestTableUsesExactlyTheCrossingEdges(t *testing.T) {
	for cfg := 0; cfg < 256; cfg++ {
		var used uint16
		for _, p := range cases[cfg] {
			for _, tri := range p.tris {
				for _, e := range tri {
					used |= 1 << e
				}
			}
			for _, e := range p.center {
				used |= 1 << e
			}
		}
		assert.Equal(t, CrossingEdges(uint8(cfg)), used, "config %#02x", cfg)
	}
}

func TestTableComplementCrossesSameEdges(t *testing.T) {
	for cfg := 0; cfg < 256; cfg++ {
		assert.Equal(t, CrossingEdges(uint8(cfg)), CrossingEdges(^uint8(cfg)))
	}
	assert.Zero(t, TriangleCount(0))
	assert.Zero(t, TriangleCount(0xff))
}

// Within one cell, the edges used once must run along a cube face (they are
// matched by the neighbouring cell) and the edges used twice must not.
func TestTablePatchesCloseAcrossFaces(t *testing.T) {
	const centerBase = 100
	for cfg := 0; cfg < 256; cfg++ {
		directed := map[[2]int]int{}
		add := func(a, b int) { directed[[2]int{a, b}]++ }
		for i, p := range cases[cfg] {
			for _, tri := range p.tris {
				add(int(tri[0]), int(tri[1]))
				add(int(tri[1]), int(tri[2]))
				add(int(tri[2]), int(tri[0]))
			}
			n := len(p.center)
			for j, e := range p.center {
				next := int(p.center[(j+1)%n])
				add(centerBase+i, int(e))
				add(int(e), next)
				add(next, centerBase+i)
			}
		}
		for e, n := range directed {
			require.Equal(t, 1, n, "config %#02x: directed edge %v repeated", cfg, e)
			_, paired := directed[[2]int{e[1], e[0]}]
			onFace := e[0] < centerBase && e[1] < centerBase && sharesFace(uint8(e[0]), uint8(e[1]))
			assert.Equal(t, !paired, onFace, "config %#02x: edge %v", cfg, e)
		}
	}
}

func TestTriangleCountBound(t *testing.T) {
	most := 0
	for cfg := 0; cfg < 256; cfg++ {
		n := TriangleCount(uint8(cfg))
		if cfg == 0 || cfg == 255 {
			assert.Zero(t, n)
			continue
		}
		assert.Positive(t, n, "config %08b", cfg)
		most = max(most, n)
	}
	assert.Equal(t, 5, most)
}

func TestSingleCornerCase(t *testing.T) {
	in := [8]bool{true}
	cfg := Config(in)
	assert.Equal(t, uint8(1), cfg)
	assert.Equal(t, 3, bits.OnesCount16(CrossingEdges(cfg)))
	assert.Equal(t, 1, TriangleCount(cfg))
	for e := 0; e < 12; e++ {
		a, b := EdgeCorners(e)
		assert.Equal(t, a == 0 || b == 0, CrossingEdges(cfg)&(1<<e) != 0, "edge %d", e)
	}
}

// --- Single cell ---

func TestPolygonizeCornerCell(t *testing.T) {
	cell := bbox.FromCoords(0, 0, 0, 1, 1, 1)
	plane := implicit.FieldFunc(func(p v3.Vec) float64 { return p.X + p.Y + p.Z - 0.5 })

	tris, err := Polygonize(cell, plane)
	require.NoError(t, err)
	require.Len(t, tris, 1)
	assert.ElementsMatch(t,
		[]v3.Vec{{X: 0.5}, {Y: 0.5}, {Z: 0.5}},
		[]v3.Vec{tris[0][0], tris[0][1], tris[0][2]})
	assert.Greater(t, tris[0].Normal().Dot(v3.Vec{X: 1, Y: 1, Z: 1}), 0.0,
		"normal should point away from the inside corner")
}

func TestPolygonizeIndicatorUsesMidpoints(t *testing.T) {
	cell := bbox.FromCoords(0, 0, 0, 2, 2, 2)
	below := implicit.IndicatorFunc(func(p v3.Vec) bool { return p.Z < 1 })

	tris, err := Polygonize(cell, below)
	require.NoError(t, err)
	require.Len(t, tris, 2)
	for _, tri := range tris {
		for _, p := range tri {
			assert.Equal(t, 1.0, p.Z)
		}
		assert.Equal(t, v3.Vec{Z: 1}, tri.Normal())
	}
}

func TestPolygonizeEmptyCell(t *testing.T) {
	tris, err := Polygonize(bbox.Empty(), implicit.Everywhere)
	require.NoError(t, err)
	assert.Empty(t, tris)
}

func TestCrossingIsSymmetric(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 5))
	s := newSampler(implicit.Sphere{Radius: 1})
	for i := 0; i < 1000; i++ {
		a := v3.Vec{X: rng.Float64(), Y: rng.Float64(), Z: rng.Float64()}
		b := v3.Vec{X: rng.Float64(), Y: rng.Float64(), Z: rng.Float64()}
		va, vb := -rng.Float64(), rng.Float64()
		assert.Equal(t, s.crossing(a, b, va, vb), s.crossing(b, a, vb, va))
	}
}

// --- Whole trees ---

func sphereTree(t *testing.T, policy octree.Policy, f implicit.Function) *octree.Tree {
	t.Helper()
	tree, err := octree.Build(demoBox, 3, octree.WithPolicy(policy), octree.WithFunction(f))
	require.NoError(t, err)
	return tree
}

// signedVolume is positive for a closed mesh wound outward.
func signedVolume(s *mesh.Soup) float64 {
	var v float64
	for _, tri := range s.Triangles() {
		v += tri[0].Dot(tri[1].Cross(tri[2])) / 6
	}
	return v
}

func TestSphereIsClosed(t *testing.T) {
	sphere := implicit.Sphere{Radius: 5}
	tests := []struct {
		name   string
		policy octree.Policy
		f      implicit.Function
	}{
		{"eager field", octree.Eager, sphere},
		{"adaptive field", octree.Adaptive, sphere},
		{"eager indicator", octree.Eager, implicit.Indicator(sphere)},
		{"adaptive indicator", octree.Adaptive, implicit.Indicator(sphere)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			soup, err := Extract(sphereTree(t, tt.policy, tt.f), tt.f)
			require.NoError(t, err)
			require.Positive(t, soup.Len())
			for _, tri := range soup.Triangles() {
				require.True(t, tri.IsFinite())
			}
			assert.True(t, mesh.IsClosed(soup), "mesh has boundary edges")
			assert.True(t, mesh.IsConsistentlyOriented(soup))
			assert.Positive(t, signedVolume(soup), "mesh is wound inward")

			b := soup.Bounds()
			assert.True(t, bbox.FromCoords(-5, -5, -5, 5, 5, 5).Contains(b.Min))
			assert.True(t, bbox.FromCoords(-5, -5, -5, 5, 5, 5).Contains(b.Max))

			eager, err := Extract(sphereTree(t, octree.Eager, tt.f), tt.f)
			require.NoError(t, err)
			assert.Equal(t, eager.Len(), soup.Len())
			assert.Equal(t, mesh.EdgeUse(eager), mesh.EdgeUse(soup))
		})
	}
}

func TestSphereVerticesNearSurface(t *testing.T) {
	sphere := implicit.Sphere{Radius: 5}
	soup, err := Extract(sphereTree(t, octree.Eager, sphere), sphere)
	require.NoError(t, err)
	// Linear interpolation of an exact distance stays within a cell of the
	// surface.
	for _, tri := range soup.Triangles() {
		for _, p := range tri {
			assert.InDelta(t, 5, p.Length(), 2.5)
		}
	}
}

func TestAdaptiveMatchesEager(t *testing.T) {
	sphere := implicit.Sphere{Center: v3.Vec{X: 1, Y: -0.5, Z: 0.25}, Radius: 4.2}
	eager, err := Extract(sphereTree(t, octree.Eager, sphere), sphere)
	require.NoError(t, err)
	adaptive, err := Extract(sphereTree(t, octree.Adaptive, sphere), sphere)
	require.NoError(t, err)

	assert.Equal(t, eager.Len(), adaptive.Len())
	assert.Equal(t, mesh.EdgeUse(eager), mesh.EdgeUse(adaptive))
}

func TestConstantFunctionsProduceNothing(t *testing.T) {
	for _, f := range []implicit.Function{implicit.Everywhere, implicit.Nowhere} {
		tree, err := octree.Build(demoBox, 3)
		require.NoError(t, err)
		soup, err := Extract(tree, f)
		require.NoError(t, err)
		assert.Zero(t, soup.Len())
	}
}

func TestExtractIsDeterministic(t *testing.T) {
	sphere := implicit.Sphere{Radius: 5}
	tree := sphereTree(t, octree.Adaptive, sphere)
	a, err := Extract(tree, sphere)
	require.NoError(t, err)
	b, err := Extract(tree, sphere)
	require.NoError(t, err)
	assert.Equal(t, a.Triangles(), b.Triangles())
}

func TestExtractSamplesEightCornersPerLeaf(t *testing.T) {
	tree, err := octree.Build(demoBox, 2)
	require.NoError(t, err)
	f, counter := implicit.Counting(implicit.Sphere{Radius: 5})
	_, err = Extract(tree, f)
	require.NoError(t, err)
	assert.Equal(t, int64(8*tree.LeafCount()), counter.Calls())
}

// Random lattice fields hit ambiguous faces and the rarer cases. The
// lattice is outside along the border so the surface must close.
func TestRandomLatticeIsClosed(t *testing.T) {
	const n = 8
	box := bbox.FromCoords(0, 0, 0, n, n, n)
	for seed := uint64(1); seed <= 5; seed++ {
		rng := rand.New(rand.NewPCG(seed, 11))
		values := map[[3]int]float64{}
		for x := 1; x < n; x++ {
			for y := 1; y < n; y++ {
				for z := 1; z < n; z++ {
					v := rng.Float64()*2 - 1
					if math.Abs(v) < 0.05 {
						v = 0.5
					}
					values[[3]int{x, y, z}] = v
				}
			}
		}
		field := implicit.FieldFunc(func(p v3.Vec) float64 {
			k := [3]int{int(math.Round(p.X)), int(math.Round(p.Y)), int(math.Round(p.Z))}
			if v, ok := values[k]; ok {
				return v
			}
			return 1
		})

		tree, err := octree.Build(box, 3)
		require.NoError(t, err)
		soup, err := Extract(tree, field)
		require.NoError(t, err)
		require.Positive(t, soup.Len())
		assert.True(t, mesh.IsClosed(soup), "seed %d", seed)
		assert.True(t, mesh.IsConsistentlyOriented(soup), "seed %d", seed)
		assert.Positive(t, signedVolume(soup), "seed %d", seed)
	}
}

// --- Errors ---

type nanField struct{}

func (nanField) Evaluate(v3.Vec) (float64, error) { return math.NaN(), nil }
func (nanField) Inside(v3.Vec) (bool, error)      { return false, nil }

func TestExtractFailsFast(t *testing.T) {
	boom := errors.New("boom")
	tree, err := octree.Build(demoBox, 2)
	require.NoError(t, err)

	f, counter := implicit.Counting(implicit.Failing(boom))
	_, err = Extract(tree, f)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int64(1), counter.Calls())

	_, err = Extract(tree, nanField{})
	assert.ErrorIs(t, err, implicit.ErrNonFinite)

	_, err = Extract(tree, nil)
	assert.ErrorIs(t, err, octree.ErrNoFunction)
}

// --- Parallel ---

func TestExtractParallelMatchesSerial(t *testing.T) {
	sphere := implicit.Sphere{Radius: 5}
	for _, policy := range []octree.Policy{octree.Eager, octree.Adaptive} {
		tree := sphereTree(t, policy, sphere)
		serial, err := Extract(tree, sphere)
		require.NoError(t, err)
		for _, workers := range []int{0, 1, 2, 3, 8, 64} {
			par, err := ExtractParallel(context.Background(), tree, sphere, workers)
			require.NoError(t, err)
			assert.Equal(t, serial.Triangles(), par.Triangles(), "%s, %d workers", policy, workers)
		}
	}
}

func TestExtractParallelErrors(t *testing.T) {
	boom := errors.New("boom")
	tree, err := octree.Build(demoBox, 2)
	require.NoError(t, err)

	_, err = ExtractParallel(context.Background(), tree, implicit.Failing(boom), 4)
	assert.ErrorIs(t, err, boom)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = ExtractParallel(ctx, tree, implicit.Sphere{Radius: 5}, 4)
	assert.ErrorIs(t, err, context.Canceled)
	_, err = ExtractParallel(ctx, tree, implicit.Sphere{Radius: 5}, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSplit(t *testing.T) {
	assert.Nil(t, split(0, 4))
	assert.Equal(t, [][2]int{{0, 1}, {1, 2}}, split(2, 8))
	chunks := split(10, 3)
	require.Len(t, chunks, 3)
	assert.Equal(t, 0, chunks[0][0])
	assert.Equal(t, 10, chunks[2][1])
	for i := 1; i < len(chunks); i++ {
		assert.Equal(t, chunks[i-1][1], chunks[i][0])
	}
}
