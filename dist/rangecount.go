package dist

import (
	"context"
	"sort"

	"github.com/parallel-octree/octree/comm"
)

// SortedCountDistributed returns the number of elements in the logical
// distributed sequence that are less-than-or-equal to bound, using a
// local binary search (the sequence is sorted) followed by an all-reduce
// sum (spec.md's `sorted_count_distributed`, the single-bound sibling of
// SortedRangeCountDistributed).
func SortedCountDistributed[T any](ctx context.Context, c comm.Comm, xs []T, bound T, less func(a, b T) bool) (uint64, error) {
	// first index i such that xs[i] > bound; that index is the count of
	// elements <= bound, since xs is locally sorted.
	idx := sort.Search(len(xs), func(i int) bool { return less(bound, xs[i]) })
	return allReduceSumUint64(ctx, c, uint64(idx))
}

// SortedRangeCountDistributed returns the number of elements x in the
// logical distributed sequence with lhs <= x <= rhs (spec.md §4.10): a
// local binary search for both bounds, then an all-reduce sum.
func SortedRangeCountDistributed[T any](ctx context.Context, c comm.Comm, xs []T, lhs, rhs T, less func(a, b T) bool) (uint64, error) {
	lo := sort.Search(len(xs), func(i int) bool { return !less(xs[i], lhs) })
	hi := sort.Search(len(xs), func(i int) bool { return less(rhs, xs[i]) })
	local := 0
	if hi > lo {
		local = hi - lo
	}
	return allReduceSumUint64(ctx, c, uint64(local))
}

// SortedRangeCountBroadcast is the broadcast-from-root variant spec.md
// §4.10 names for when lhs/rhs are only known on one process: root's
// bounds are broadcast to every rank before the collective count.
func SortedRangeCountBroadcast[T any](ctx context.Context, c comm.Comm, xs []T, root int, lhs, rhs T, less func(a, b T) bool, codec Codec[T]) (uint64, error) {
	lhsData, err := c.Broadcast(ctx, root, codec.Encode(lhs))
	if err != nil {
		return 0, err
	}
	rhsData, err := c.Broadcast(ctx, root, codec.Encode(rhs))
	if err != nil {
		return 0, err
	}
	return SortedRangeCountDistributed(ctx, c, xs, codec.Decode(lhsData), codec.Decode(rhsData), less)
}
