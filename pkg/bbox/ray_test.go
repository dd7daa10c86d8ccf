package bbox

import (
	"math"
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
)

func TestIntersect(t *testing.T) {
	b := FromCoords(-1, -1, -1, 1, 1, 1)
	inf := math.Inf(1)

	tests := []struct {
		name    string
		ray     Ray
		t0, t1  float64
		wantHit bool
		wantT0  float64
		wantT1  float64
	}{
		{
			name:    "through x axis",
			ray:     Ray{Origin: v3.Vec{X: -5}, Direction: v3.Vec{X: 1}},
			t0:      0, t1: inf,
			wantHit: true, wantT0: 4, wantT1: 6,
		},
		{
			name:    "negative direction",
			ray:     Ray{Origin: v3.Vec{Y: 5}, Direction: v3.Vec{Y: -2}},
			t0:      0, t1: inf,
			wantHit: true, wantT0: 2, wantT1: 3,
		},
		{
			name:    "from inside",
			ray:     Ray{Origin: v3.Vec{}, Direction: v3.Vec{Z: 1}},
			t0:      0, t1: inf,
			wantHit: true, wantT0: 0, wantT1: 1,
		},
		{
			name:    "parallel outside slab",
			ray:     Ray{Origin: v3.Vec{X: -5, Y: 2}, Direction: v3.Vec{X: 1}},
			t0:      0, t1: inf,
			wantHit: false, wantT0: 0, wantT1: inf,
		},
		{
			name:    "range ends before box",
			ray:     Ray{Origin: v3.Vec{X: -5}, Direction: v3.Vec{X: 1}},
			t0:      0, t1: 3,
			wantHit: false, wantT0: 0, wantT1: 3,
		},
		{
			name:    "diagonal miss",
			ray:     Ray{Origin: v3.Vec{X: -5, Y: 3}, Direction: v3.Vec{X: 1, Y: 1}},
			t0:      0, t1: inf,
			wantHit: false, wantT0: 0, wantT1: inf,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t0, t1, hit := b.Intersect(tt.ray, tt.t0, tt.t1)
			assert.Equal(t, tt.wantHit, hit)
			assert.InDelta(t, tt.wantT0, t0, 1e-12)
			if math.IsInf(tt.wantT1, 1) {
				assert.True(t, math.IsInf(t1, 1))
			} else {
				assert.InDelta(t, tt.wantT1, t1, 1e-12)
			}
			if hit {
				assert.True(t, b.Contains(tt.ray.At((t0+t1)/2)))
			}
		})
	}
}

func TestIntersectEmptyBox(t *testing.T) {
	r := Ray{Origin: v3.Vec{}, Direction: v3.Vec{X: 1}}
	_, _, hit := Empty().Intersect(r, 0, 10)
	assert.False(t, hit)
}
