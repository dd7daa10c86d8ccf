package march

import (
	"fmt"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Cube conventions.
//
// Corner c sits at the max coordinate on x, y and z when bit 0, 1 and 2 of c
// are set, matching bbox.BBox.Corners. The 12 edges join corners that differ
// in a single bit and are numbered x-edges first, then y, then z. Bit c of a
// configuration is set when corner c is inside.
var edgeCorners = [12][2]uint8{
	{0, 1}, {2, 3}, {4, 5}, {6, 7}, // x
	{0, 2}, {1, 3}, {4, 6}, {5, 7}, // y
	{0, 4}, {1, 5}, {2, 6}, {3, 7}, // z
}

// A face is identified by 2*axis + side, side 1 being the max side.
type face struct {
	axis  int
	high  bool
	cycle [4]uint8 // corners in cyclic order around the face
}

// polygon is one closed loop of crossing points within a cell. Either tris
// lists its triangulation by edge index, or center lists the loop, which is
// then fanned around the centroid of its points.
type polygon struct {
	tris   [][3]uint8
	center []uint8
}

var (
	faces     [6]face
	edgeFaces [12][2]int
	edgeMask  [256]uint16
	cases     [256][]polygon
)

func init() {
	for axis := 0; axis < 3; axis++ {
		bit := uint8(1) << axis
		bu := uint8(1) << ((axis + 1) % 3)
		bv := uint8(1) << ((axis + 2) % 3)
		for side := 0; side < 2; side++ {
			base := uint8(0)
			if side == 1 {
				base = bit
			}
			faces[2*axis+side] = face{
				axis:  axis,
				high:  side == 1,
				cycle: [4]uint8{base, base | bu, base | bu | bv, base | bv},
			}
		}
	}
	for e, ab := range edgeCorners {
		k := 0
		for axis := 0; axis < 3; axis++ {
			if (ab[0]^ab[1])&(1<<axis) != 0 {
				continue
			}
			side := int(ab[0]>>axis) & 1
			edgeFaces[e][k] = 2*axis + side
			k++
		}
	}
	for cfg := 0; cfg < 256; cfg++ {
		edgeMask[cfg] = crossingMask(uint8(cfg))
		cases[cfg] = buildCase(uint8(cfg))
	}
}

func inside(cfg, corner uint8) bool {
	return cfg>>corner&1 == 1
}

func crossingMask(cfg uint8) uint16 {
	var m uint16
	for e, ab := range edgeCorners {
		if inside(cfg, ab[0]) != inside(cfg, ab[1]) {
			m |= 1 << e
		}
	}
	return m
}

func edgeBetween(a, b uint8) uint8 {
	for e, ab := range edgeCorners {
		if (ab[0] == a && ab[1] == b) || (ab[0] == b && ab[1] == a) {
			return uint8(e)
		}
	}
	panic(fmt.Sprintf("march: corners %d and %d are not adjacent", a, b))
}

func sharesFace(e1, e2 uint8) bool {
	for _, f1 := range edgeFaces[e1] {
		for _, f2 := range edgeFaces[e2] {
			if f1 == f2 {
				return true
			}
		}
	}
	return false
}

// Positions in the unit cube, used only to orient segments.
func unitCorner(c uint8) v3.Vec {
	return v3.Vec{X: float64(c & 1), Y: float64(c >> 1 & 1), Z: float64(c >> 2 & 1)}
}

func unitMid(e uint8) v3.Vec {
	ab := edgeCorners[e]
	return unitCorner(ab[0]).Add(unitCorner(ab[1])).MulScalar(0.5)
}

func (f face) normal() v3.Vec {
	s := -1.0
	if f.high {
		s = 1
	}
	switch f.axis {
	case 0:
		return v3.Vec{X: s}
	case 1:
		return v3.Vec{Y: s}
	default:
		return v3.Vec{Z: s}
	}
}

// segments returns the directed surface segments crossing face f. A face
// with two crossing edges has one segment. A face with four (inside corners
// on a diagonal) has two, each cutting off one inside corner, so inside
// corners are never joined across a face. The choice depends only on the
// face's own corners, which both cells sharing the face see identically.
//
// A segment runs from edge [0] to edge [1] with the outside of the face on
// its left when viewed from outside the cube; the loops built from these
// segments then wind counter-clockwise around the outward surface normal.
func (f face) segments(cfg uint8) [][2]uint8 {
	c := f.cycle
	var crossing []int
	for k := 0; k < 4; k++ {
		if inside(cfg, c[k]) != inside(cfg, c[(k+1)%4]) {
			crossing = append(crossing, k)
		}
	}

	var segs [][2]uint8
	var dirs []v3.Vec
	switch len(crossing) {
	case 2:
		e1 := edgeBetween(c[crossing[0]], c[(crossing[0]+1)%4])
		e2 := edgeBetween(c[crossing[1]], c[(crossing[1]+1)%4])
		var in, out v3.Vec
		var nin, nout float64
		for _, corner := range c {
			if inside(cfg, corner) {
				in = in.Add(unitCorner(corner))
				nin++
			} else {
				out = out.Add(unitCorner(corner))
				nout++
			}
		}
		segs = append(segs, [2]uint8{e1, e2})
		dirs = append(dirs, out.MulScalar(1/nout).Sub(in.MulScalar(1/nin)))
	case 4:
		for k := 0; k < 4; k++ {
			if !inside(cfg, c[k]) {
				continue
			}
			e1 := edgeBetween(c[(k+3)%4], c[k])
			e2 := edgeBetween(c[k], c[(k+1)%4])
			mid := unitMid(e1).Add(unitMid(e2)).MulScalar(0.5)
			segs = append(segs, [2]uint8{e1, e2})
			dirs = append(dirs, mid.Sub(unitCorner(c[k])))
		}
	}

	n := f.normal()
	for i, s := range segs {
		along := dirs[i].Cross(n)
		if unitMid(s[1]).Sub(unitMid(s[0])).Dot(along) < 0 {
			segs[i] = [2]uint8{s[1], s[0]}
		}
	}
	return segs
}

func buildCase(cfg uint8) []polygon {
	mask := crossingMask(cfg)
	if mask == 0 {
		return nil
	}

	var next [12]int
	for e := range next {
		next[e] = -1
	}
	for _, f := range faces {
		for _, s := range f.segments(cfg) {
			if next[s[0]] != -1 {
				panic(fmt.Sprintf("march: config %#02x: edge %d leaves two faces", cfg, s[0]))
			}
			next[s[0]] = int(s[1])
		}
	}

	var polys []polygon
	var done uint16
	for start := uint8(0); start < 12; start++ {
		if mask&(1<<start) == 0 || done&(1<<start) != 0 {
			continue
		}
		var loop []uint8
		for e := start; ; {
			loop = append(loop, e)
			done |= 1 << e
			if next[e] < 0 {
				panic(fmt.Sprintf("march: config %#02x: edge %d has no successor", cfg, e))
			}
			e = uint8(next[e])
			if e == start {
				break
			}
		}
		polys = append(polys, triangulateLoop(loop))
	}
	return polys
}

// triangulateLoop fans the loop from a vertex whose diagonals all leave the
// faces of the cube: a diagonal between two points of one face would lie in
// that face and would not be matched by the neighbouring cell. When no such
// vertex exists the loop is fanned around its centroid instead.
func triangulateLoop(loop []uint8) polygon {
	n := len(loop)
	if n == 3 {
		return polygon{tris: [][3]uint8{{loop[0], loop[1], loop[2]}}}
	}
	for s := 0; s < n; s++ {
		if !fanIsValid(loop, s) {
			continue
		}
		var p polygon
		for i := 1; i < n-1; i++ {
			p.tris = append(p.tris, [3]uint8{loop[s], loop[(s+i)%n], loop[(s+i+1)%n]})
		}
		return p
	}
	return polygon{center: loop}
}

func fanIsValid(loop []uint8, s int) bool {
	n := len(loop)
	for j := 2; j < n-1; j++ {
		if sharesFace(loop[s], loop[(s+j)%n]) {
			return false
		}
	}
	return true
}

// Config packs corner classifications into a configuration index.
func Config(in [8]bool) uint8 {
	var cfg uint8
	for c, v := range in {
		if v {
			cfg |= 1 << c
		}
	}
	return cfg
}

// CrossingEdges returns the mask of edges whose corners disagree.
func CrossingEdges(cfg uint8) uint16 {
	return edgeMask[cfg]
}

// EdgeCorners returns the two corners joined by edge e.
func EdgeCorners(e int) (a, b int) {
	return int(edgeCorners[e][0]), int(edgeCorners[e][1])
}

// TriangleCount returns how many triangles configuration cfg emits.
func TriangleCount(cfg uint8) int {
	n := 0
	for _, p := range cases[cfg] {
		if p.center != nil {
			n += len(p.center)
		} else {
			n += len(p.tris)
		}
	}
	return n
}
