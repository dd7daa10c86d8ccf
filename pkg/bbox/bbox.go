// Package bbox provides the axis-aligned bounding box used to partition space
// for surface extraction. A box is a value type: every operation either
// returns a new box or mutates the receiver through Expand/ExpandPoint, and
// Extent is recomputed after every mutation.
package bbox

import (
	"fmt"
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// BBox is an axis-aligned bounding box given by its min and max corners.
// Extent always equals Max - Min.
type BBox struct {
	Min    v3.Vec `json:"min"`
	Max    v3.Vec `json:"max"`
	Extent v3.Vec `json:"extent"`
}

// Empty returns a box that contains no points. Expanding it with a point
// yields the single-point box.
func Empty() BBox {
	inf := math.Inf(1)
	return New(v3.Vec{X: inf, Y: inf, Z: inf}, v3.Vec{X: -inf, Y: -inf, Z: -inf})
}

// FromPoint returns the degenerate box holding only p.
func FromPoint(p v3.Vec) BBox {
	return New(p, p)
}

// New returns the box with the given corners. The corners are taken as-is;
// a min component above the max component makes the box empty.
func New(min, max v3.Vec) BBox {
	return BBox{Min: min, Max: max, Extent: max.Sub(min)}
}

// FromCoords returns the box with the given corners, component wise.
func FromCoords(minX, minY, minZ, maxX, maxY, maxZ float64) BBox {
	return New(v3.Vec{X: minX, Y: minY, Z: minZ}, v3.Vec{X: maxX, Y: maxY, Z: maxZ})
}

// IsEmpty reports whether the box contains no points.
func (b BBox) IsEmpty() bool {
	return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z
}

// IsFinite reports whether both corners have finite coordinates.
func (b BBox) IsFinite() bool {
	return finite(b.Min) && finite(b.Max)
}

func finite(v v3.Vec) bool {
	for _, c := range [3]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// Expand grows the box to the smallest box containing both b and o.
// Expanding by an empty box changes nothing.
func (b *BBox) Expand(o BBox) {
	if o.IsEmpty() {
		return
	}
	b.Min = b.Min.Min(o.Min)
	b.Max = b.Max.Max(o.Max)
	b.Extent = b.Max.Sub(b.Min)
}

// ExpandPoint grows the box to include p.
func (b *BBox) ExpandPoint(p v3.Vec) {
	b.Min = b.Min.Min(p)
	b.Max = b.Max.Max(p)
	b.Extent = b.Max.Sub(b.Min)
}

// Contains reports whether p lies within the box, boundary included.
func (b BBox) Contains(p v3.Vec) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// SurfaceArea returns the total area of the six faces, 0 for an empty box.
func (b BBox) SurfaceArea() float64 {
	if b.IsEmpty() {
		return 0
	}
	e := b.Extent
	return 2 * (e.X*e.Y + e.Y*e.Z + e.X*e.Z)
}

// Volume returns the enclosed volume, 0 for an empty box.
func (b BBox) Volume() float64 {
	if b.IsEmpty() {
		return 0
	}
	return b.Extent.X * b.Extent.Y * b.Extent.Z
}

// Centroid returns the center of the box.
func (b BBox) Centroid() v3.Vec {
	return v3.Vec{
		X: (b.Min.X + b.Max.X) / 2,
		Y: (b.Min.Y + b.Max.Y) / 2,
		Z: (b.Min.Z + b.Max.Z) / 2,
	}
}

// HalfDiagonal returns half the length of the box diagonal.
func (b BBox) HalfDiagonal() float64 {
	if b.IsEmpty() {
		return 0
	}
	return b.Extent.Length() / 2
}

// Corners returns the 8 corners of the box. Corner i takes the max
// coordinate on x, y and z when bit 0, 1 and 2 of i are set.
func (b BBox) Corners() [8]v3.Vec {
	var c [8]v3.Vec
	for i := range c {
		c[i] = v3.Vec{X: b.Min.X, Y: b.Min.Y, Z: b.Min.Z}
		if i&1 != 0 {
			c[i].X = b.Max.X
		}
		if i&2 != 0 {
			c[i].Y = b.Max.Y
		}
		if i&4 != 0 {
			c[i].Z = b.Max.Z
		}
	}
	return c
}

func (b BBox) String() string {
	return fmt.Sprintf("[%g %g %g] - [%g %g %g]",
		b.Min.X, b.Min.Y, b.Min.Z, b.Max.X, b.Max.Y, b.Max.Z)
}
