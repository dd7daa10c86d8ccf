package bbox

import (
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Octant numbering.
//
// Octants are split about the centroid. Seen from above (+z looking down),
// indices 0..3 are the upper (max-z) half taken in the order +x+y, +x-y,
// -x+y, -x-y relative to the centroid; indices 4..7 repeat the same order in
// the lower (min-z) half. In 1-based prose these are octants 1..8.
const (
	UpperPXPY = iota
	UpperPXNY
	UpperNXPY
	UpperNXNY
	LowerPXPY
	LowerPXNY
	LowerNXPY
	LowerNXNY
)

// OctantSides reports, for octant i, whether the child lies on the max side
// of the centroid on x, y and z.
func OctantSides(i int) (highX, highY, highZ bool) {
	q := i % 4
	return q < 2, q%2 == 0, i < 4
}

// Octant returns child i of the box. The child's coordinates are copies of
// either the parent's corners or its centroid, so children that share a face
// agree on it exactly. Octant of an empty box is empty.
func (b BBox) Octant(i int) BBox {
	if b.IsEmpty() {
		return Empty()
	}
	c := b.Centroid()
	lo, hi := b.Min, c
	highX, highY, highZ := OctantSides(i)
	if highX {
		lo.X, hi.X = c.X, b.Max.X
	}
	if highY {
		lo.Y, hi.Y = c.Y, b.Max.Y
	}
	if highZ {
		lo.Z, hi.Z = c.Z, b.Max.Z
	}
	return New(lo, hi)
}

// Octants splits the box into its 8 children in octant order.
func (b BBox) Octants() [8]BBox {
	var children [8]BBox
	for i := range children {
		children[i] = b.Octant(i)
	}
	return children
}

// OctantOf returns the index of the child that contains p. Points on the
// centroid plane belong to the max side. The result is meaningless for
// points outside the box.
func (b BBox) OctantOf(p v3.Vec) int {
	c := b.Centroid()
	q := 0
	if p.X < c.X {
		q += 2
	}
	if p.Y < c.Y {
		q++
	}
	if p.Z < c.Z {
		q += 4
	}
	return q
}
