// Package implicit defines the oracle sampled by the octree and the surface
// extractor: a function classifying points in space as inside or outside a
// solid, optionally exposing a signed scalar value.
//
// Scalar values follow the signed-distance convention used by sdfx:
// negative is inside, zero or positive is outside.
package implicit

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ErrNonFinite is returned when a field produces NaN or an infinity.
var ErrNonFinite = errors.New("implicit: non-finite field value")

// Function classifies a point. Implementations must be safe for concurrent
// use and must return the same answer for the same point.
type Function interface {
	Inside(p v3.Vec) (bool, error)
}

// Field is a Function that also exposes a signed scalar. Inside(p) must
// agree with Evaluate(p) < 0.
type Field interface {
	Function
	Evaluate(p v3.Vec) (float64, error)
}

// Distance is a Field whose magnitude never exceeds the distance from p to
// the surface: |Evaluate(p)| > r proves that no surface passes within r of p.
// Exact and conservative signed distances qualify. Scaled or otherwise
// steeper fields do not, and must not implement this interface.
type Distance interface {
	Field
	IsDistanceBound()
}

// IndicatorFunc adapts a plain boolean test to Function.
type IndicatorFunc func(p v3.Vec) bool

// Inside implements Function.
func (f IndicatorFunc) Inside(p v3.Vec) (bool, error) {
	return f(p), nil
}

// FieldFunc adapts a scalar function to Field.
type FieldFunc func(p v3.Vec) float64

// Evaluate implements Field.
func (f FieldFunc) Evaluate(p v3.Vec) (float64, error) {
	return checkFinite(f(p))
}

// Inside implements Function.
func (f FieldFunc) Inside(p v3.Vec) (bool, error) {
	return insideOf(f, p)
}

// DistanceFunc adapts a signed distance bound to Distance.
type DistanceFunc func(p v3.Vec) float64

// Evaluate implements Field.
func (f DistanceFunc) Evaluate(p v3.Vec) (float64, error) {
	return checkFinite(f(p))
}

// Inside implements Function.
func (f DistanceFunc) Inside(p v3.Vec) (bool, error) {
	return insideOf(f, p)
}

// IsDistanceBound implements Distance.
func (DistanceFunc) IsDistanceBound() {}

func checkFinite(d float64) (float64, error) {
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return 0, fmt.Errorf("%w: %v", ErrNonFinite, d)
	}
	return d, nil
}

func insideOf(f Field, p v3.Vec) (bool, error) {
	d, err := f.Evaluate(p)
	if err != nil {
		return false, err
	}
	return d < 0, nil
}

// Constant classifies every point the same way.
type Constant bool

const (
	// Everywhere is inside at every point.
	Everywhere Constant = true
	// Nowhere is outside at every point.
	Nowhere Constant = false
)

// Inside implements Function.
func (c Constant) Inside(v3.Vec) (bool, error) {
	return bool(c), nil
}

// Indicator hides the scalar of a field so only its sign is visible.
// Extraction over an indicator places crossing points at edge midpoints.
func Indicator(f Field) Function {
	return indicator{f: f}
}

type indicator struct{ f Field }

func (i indicator) Inside(p v3.Vec) (bool, error) { return i.f.Inside(p) }

// Failing returns a function whose every query fails with err.
func Failing(err error) Function {
	return failing{err: err}
}

type failing struct{ err error }

func (f failing) Inside(v3.Vec) (bool, error)       { return false, f.err }
func (f failing) Evaluate(v3.Vec) (float64, error) { return 0, f.err }

// Counter records how often a wrapped function was queried.
type Counter struct {
	calls atomic.Int64
}

// Calls returns the number of Inside and Evaluate queries so far.
func (c *Counter) Calls() int64 {
	return c.calls.Load()
}

// Counting wraps fn so every query is recorded on the returned Counter.
// The wrapper is a Field or a Distance whenever fn is.
func Counting(fn Function) (Function, *Counter) {
	c := &Counter{}
	if d, ok := fn.(Distance); ok {
		return countingDistance{countingField{c: c, f: d}}, c
	}
	if f, ok := fn.(Field); ok {
		return countingField{c: c, f: f}, c
	}
	return countingFunc{c: c, fn: fn}, c
}

type countingFunc struct {
	c  *Counter
	fn Function
}

func (cf countingFunc) Inside(p v3.Vec) (bool, error) {
	cf.c.calls.Add(1)
	return cf.fn.Inside(p)
}

type countingField struct {
	c *Counter
	f Field
}

func (cf countingField) Inside(p v3.Vec) (bool, error) {
	cf.c.calls.Add(1)
	return cf.f.Inside(p)
}

func (cf countingField) Evaluate(p v3.Vec) (float64, error) {
	cf.c.calls.Add(1)
	return cf.f.Evaluate(p)
}

type countingDistance struct{ countingField }

func (countingDistance) IsDistanceBound() {}
