// Package polygonize runs the whole isosurface pipeline: it builds an octree
// over the configured bounds, then extracts the surface from its leaves.
package polygonize

import (
	"context"
	"fmt"
	"time"

	"github.com/golang/glog"

	"github.com/chazu/isomesh/pkg/implicit"
	"github.com/chazu/isomesh/pkg/march"
	"github.com/chazu/isomesh/pkg/mesh"
	"github.com/chazu/isomesh/pkg/octree"
)

// Stats describes a finished run.
type Stats struct {
	Nodes     int
	Leaves    int
	Triangles int
	Build     time.Duration
	Extract   time.Duration
}

// Run polygonizes f within cfg.Bounds.
func Run(ctx context.Context, f implicit.Function, cfg Config) (*mesh.Soup, error) {
	soup, _, err := RunWithStats(ctx, f, cfg)
	return soup, err
}

// RunWithStats is Run, also reporting tree size and timings.
func RunWithStats(ctx context.Context, f implicit.Function, cfg Config) (*mesh.Soup, Stats, error) {
	var st Stats
	if f == nil {
		return nil, st, octree.ErrNoFunction
	}
	if err := cfg.Validate(); err != nil {
		return nil, st, err
	}
	policy, _ := cfg.Policy()

	start := time.Now()
	tree, err := octree.Build(cfg.Box(), cfg.Depth, octree.WithPolicy(policy), octree.WithFunction(f))
	if err != nil {
		return nil, st, fmt.Errorf("polygonize: building tree: %w", err)
	}
	st.Build = time.Since(start)
	st.Nodes = tree.Len()
	st.Leaves = tree.LeafCount()

	start = time.Now()
	soup, err := march.ExtractParallel(ctx, tree, f, cfg.Workers)
	if err != nil {
		return nil, st, fmt.Errorf("polygonize: extracting surface: %w", err)
	}
	st.Extract = time.Since(start)
	st.Triangles = soup.Len()

	glog.V(1).Infof("polygonize: %s depth %d over %s: %d nodes, %d leaves, %d triangles (build %v, extract %v)",
		policy, cfg.Depth, cfg.Box(), st.Nodes, st.Leaves, st.Triangles, st.Build, st.Extract)
	return soup, st, nil
}
