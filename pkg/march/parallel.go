package march

import (
	"context"
	"fmt"

	"github.com/golang/glog"
	"golang.org/x/sync/errgroup"

	"github.com/chazu/isomesh/pkg/implicit"
	"github.com/chazu/isomesh/pkg/mesh"
	"github.com/chazu/isomesh/pkg/octree"
)

// chunksPerWorker trades scheduling overhead for balance between workers.
const chunksPerWorker = 4

// ExtractParallel is Extract spread over up to workers goroutines. Leaves are
// split into contiguous chunks, each polygonized into a private soup, and
// the soups are concatenated in chunk order, so the result is identical to
// Extract's. f must be safe for concurrent use.
//
// The first error cancels the remaining chunks and is returned. Cancelling
// ctx stops extraction with ctx's error.
func ExtractParallel(ctx context.Context, tree *octree.Tree, f implicit.Function, workers int) (*mesh.Soup, error) {
	if workers <= 1 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return Extract(tree, f)
	}
	if f == nil {
		return nil, octree.ErrNoFunction
	}

	leaves := tree.LeafNodes()
	chunks := split(len(leaves), workers*chunksPerWorker)
	parts := make([]*mesh.Soup, len(chunks))
	s := newSampler(f)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, ch := range chunks {
		g.Go(func() error {
			out := mesh.NewSoup(0)
			for _, leaf := range leaves[ch[0]:ch[1]] {
				if err := ctx.Err(); err != nil {
					return err
				}
				if err := s.cell(out, leaf.Box); err != nil {
					return fmt.Errorf("march: leaf %d at depth %d: %w", leaf.ID, leaf.Depth, err)
				}
			}
			parts[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, p := range parts {
		total += p.Len()
	}
	out := mesh.NewSoup(total)
	for _, p := range parts {
		out.Append(p)
	}
	glog.V(2).Infof("march: %d leaves in %d chunks, %d triangles", len(leaves), len(chunks), out.Len())
	return out, nil
}

// split divides n items into at most k contiguous [lo, hi) ranges of nearly
// equal size.
func split(n, k int) [][2]int {
	if n == 0 {
		return nil
	}
	if k > n {
		k = n
	}
	chunks := make([][2]int, 0, k)
	for i := 0; i < k; i++ {
		chunks = append(chunks, [2]int{i * n / k, (i + 1) * n / k})
	}
	return chunks
}
