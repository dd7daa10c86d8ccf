package bbox

import (
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Ray is a half-line Origin + t*Direction.
type Ray struct {
	Origin    v3.Vec
	Direction v3.Vec
}

// At returns the point at parameter t.
func (r Ray) At(t float64) v3.Vec {
	return r.Origin.Add(r.Direction.MulScalar(t))
}

// Intersect clips the parametric range [t0, t1] of r against the box using
// the slab test. On a hit it returns the narrowed range and true. On a miss
// it returns t0, t1 unchanged and false. A zero direction component is a ray
// parallel to that slab pair; it hits only if the origin lies between them.
func (b BBox) Intersect(r Ray, t0, t1 float64) (float64, float64, bool) {
	if b.IsEmpty() {
		return t0, t1, false
	}
	lo, hi := t0, t1
	for axis := 0; axis < 3; axis++ {
		o, d := component(r.Origin, axis), component(r.Direction, axis)
		mn, mx := component(b.Min, axis), component(b.Max, axis)
		if d == 0 {
			if o < mn || o > mx {
				return t0, t1, false
			}
			continue
		}
		inv := 1 / d
		near, far := (mn-o)*inv, (mx-o)*inv
		if near > far {
			near, far = far, near
		}
		if near > lo {
			lo = near
		}
		if far < hi {
			hi = far
		}
		if lo > hi {
			return t0, t1, false
		}
	}
	return lo, hi, true
}

func component(v v3.Vec, axis int) float64 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}
