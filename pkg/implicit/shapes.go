package implicit

import (
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Sphere is the signed distance to a sphere.
type Sphere struct {
	Center v3.Vec
	Radius float64
}

// Evaluate implements Field.
func (s Sphere) Evaluate(p v3.Vec) (float64, error) {
	return checkFinite(p.Sub(s.Center).Length() - s.Radius)
}

// Inside implements Function.
func (s Sphere) Inside(p v3.Vec) (bool, error) {
	return insideOf(s, p)
}

// IsDistanceBound implements Distance.
func (Sphere) IsDistanceBound() {}

// SDF adapts an sdfx solid to Distance. The sdfx primitives, booleans and
// rigid transforms all yield distance bounds.
type SDF struct {
	S sdf.SDF3
}

// FromSDF wraps an sdfx solid.
func FromSDF(s sdf.SDF3) SDF {
	return SDF{S: s}
}

// Evaluate implements Field.
func (s SDF) Evaluate(p v3.Vec) (float64, error) {
	return checkFinite(s.S.Evaluate(p))
}

// Inside implements Function.
func (s SDF) Inside(p v3.Vec) (bool, error) {
	return insideOf(s, p)
}

// IsDistanceBound implements Distance.
func (SDF) IsDistanceBound() {}

// Compile-time interface checks.
var (
	_ Distance = Sphere{}
	_ Distance = SDF{}
	_ Distance = DistanceFunc(nil)
	_ Field    = FieldFunc(nil)
	_ Function = IndicatorFunc(nil)
	_ Function = Everywhere
)
