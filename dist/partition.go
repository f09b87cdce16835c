package dist

import (
	"context"
	"sort"

	"github.com/parallel-octree/octree/comm"
)

// Partition redistributes a globally sorted distributed sequence so each
// rank's local weight differs from total/P by at most one unit -- the
// integer-rounding slack k = total mod P goes to the lowest-indexed k
// ranks (spec.md §4.4). Order is preserved: an element globally before
// another stays so. It runs Scan to get each element's global inclusive
// weight position, computes per-rank weight-range boundaries from the
// grand total, buckets local elements by which boundary range their
// position falls in, and all-to-all exchanges buckets.
func Partition[T any](ctx context.Context, c comm.Comm, xs []T, w func(T) uint64, codec Codec[T]) ([]T, error) {
	incl, err := Scan(ctx, c, xs, w)
	if err != nil {
		return nil, err
	}
	total, err := Total(ctx, c, xs, w)
	if err != nil {
		return nil, err
	}

	size := c.Size()
	base := total / uint64(size)
	k := total % uint64(size)
	boundary := make([]uint64, size+1)
	for p := 0; p < size; p++ {
		share := base
		if uint64(p) < k {
			share++
		}
		boundary[p+1] = boundary[p] + share
	}

	buckets := make([][]T, size)
	for i, x := range xs {
		startPos := incl[i] - w(x)
		p := sort.Search(size, func(p int) bool { return boundary[p+1] > startPos })
		if p >= size {
			p = size - 1
		}
		buckets[p] = append(buckets[p], x)
	}

	outgoing := make([][]byte, size)
	for b := range buckets {
		outgoing[b] = codec.EncodeSlice(buckets[b])
	}
	incoming, err := allToAll(ctx, c, tagSplitBucket, outgoing)
	if err != nil {
		return nil, err
	}

	// incoming[src] fragments are already in global order relative to one
	// another (ascending source rank == ascending global position, since
	// the input was globally sorted), so a straight concatenation by rank
	// is the merge step -- no comparisons needed.
	var result []T
	for src := 0; src < size; src++ {
		result = append(result, codec.DecodeSlice(incoming[src])...)
	}

	if err := c.Barrier(ctx); err != nil {
		return nil, err
	}
	return result, nil
}
