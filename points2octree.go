package octree

import (
	"context"
	"sort"

	"github.com/parallel-octree/octree/comm"
	"github.com/parallel-octree/octree/dist"
)

// PointsToOctree implements spec §4.11: given locally held boid positions
// and a maximum points-per-leaf npMax, it returns a globally sorted,
// non-overlapping, complete linear octree on the root where every leaf
// covers at most npMax input points -- except a leaf already at Dmax,
// which is kept regardless of its count, since it cannot be split further
// (the documented resolution of the refinement loop's termination edge
// case).
//
// The refinement loop counts each candidate block with the broadcast
// variant of sorted_range_count_distributed: every rank in turn is root
// and broadcasts its own blocks one by one, so all ranks count the same
// range in each call and the sum is that block's global count. This is a
// collective every rank must call with matching structure; since ranks
// can accumulate different numbers of candidate blocks as splits proceed,
// each round first all-reduce-maxes the local queue length so every rank
// takes exactly that many turns per root, a root that has run out
// standing in with an inverted (empty) range that counts zero rather than
// skipping the call.
func (sp *Space) PointsToOctree(ctx context.Context, c comm.Comm, positions [][]float64, gridExtent float64, npMax int) ([]Octant, error) {
	finest := make([]Octant, len(positions))
	for i, pos := range positions {
		finest[i] = sp.AnchorForPosition(pos, gridExtent)
	}

	codec := sp.OctantCodec()
	sorted, err := dist.SampleSort(ctx, c, finest, sp.Less, codec)
	if err != nil {
		return nil, err
	}

	blocks, redistributed, err := sp.BlockPartition(ctx, c, sorted)
	if err != nil {
		return nil, err
	}

	active := append([]Octant{}, blocks...)
	var result []Octant
	for {
		maxN, err := dist.AllReduceMaxUint64(ctx, c, uint64(len(active)))
		if err != nil {
			return nil, err
		}
		if maxN == 0 {
			break
		}

		var nextActive []Octant
		for j := 0; j < c.Size()*int(maxN); j++ {
			root, i := j/int(maxN), j%int(maxN)
			have := c.Rank() == root && i < len(active)
			var lhs, rhs Octant
			var b Octant
			if have {
				b = active[i]
				lhs, rhs = b, sp.DLD(b)
			} else {
				// stand-in query: only root's range is used, and an
				// inverted range counts zero, but every rank still
				// issues the matching collective call.
				b = sp.Root()
				lhs, rhs = sp.DLD(b), b
			}

			count, err := dist.SortedRangeCountBroadcast(ctx, c, redistributed, root, lhs, rhs, sp.Less, codec)
			if err != nil {
				return nil, err
			}
			if !have {
				continue
			}
			if count > uint64(npMax) && b.Depth < sp.Dmax {
				nextActive = append(nextActive, sp.Children(b)...)
			} else {
				result = append(result, b)
			}
		}
		active = nextActive
	}

	sort.Slice(result, func(i, j int) bool { return sp.Less(result[i], result[j]) })
	return result, nil
}
