package dist

import (
	"context"
	"sort"

	"github.com/parallel-octree/octree/comm"
	"github.com/parallel-octree/octree/internal/merge"
)

// SampleSort brings an arbitrary distributed sequence into global sorted
// order (spec.md §4.5): local sort, evenly-spaced local samples gathered
// to rank 0, rank 0 merges the sample arrays and broadcasts evenly-spaced
// global splitters, each rank buckets its local slice against the
// splitters and all-to-all exchanges buckets, then merges what it
// received. P=1 is a documented precondition of the distributed entry
// point: callers with a single rank fall through to a plain local sort.
func SampleSort[T any](ctx context.Context, c comm.Comm, xs []T, less func(a, b T) bool, codec Codec[T]) ([]T, error) {
	local := append(make([]T, 0, len(xs)), xs...)
	sort.Slice(local, func(i, j int) bool { return less(local[i], local[j]) })

	size := c.Size()
	if size == 1 {
		return local, nil
	}

	const root = 0
	rank := c.Rank()
	samples := pickEvenSamples(local, size-1, less)

	if rank != root {
		if err := c.Send(ctx, root, tagSampleSend, codec.EncodeSlice(samples)); err != nil {
			return nil, err
		}
	}

	var splitters []T
	if rank == root {
		allSamples := make([][]T, size)
		allSamples[root] = samples
		for src := 0; src < size; src++ {
			if src == root {
				continue
			}
			data, err := c.Recv(ctx, src, tagSampleSend)
			if err != nil {
				return nil, err
			}
			allSamples[src] = codec.DecodeSlice(data)
		}
		merged := merge.Many(allSamples, less)
		splitters = pickEvenSamples(merged, size-1, less)
	}

	splitData, err := c.Broadcast(ctx, root, codec.EncodeSlice(splitters))
	if err != nil {
		return nil, err
	}
	splitters = codec.DecodeSlice(splitData)

	buckets := make([][]T, size)
	bi := 0
	for _, x := range local {
		for bi < len(splitters) && !less(x, splitters[bi]) {
			bi++
		}
		buckets[bi] = append(buckets[bi], x)
	}

	outgoing := make([][]byte, size)
	for b := range buckets {
		outgoing[b] = codec.EncodeSlice(buckets[b])
	}
	incoming, err := allToAll(ctx, c, tagSplitBucket, outgoing)
	if err != nil {
		return nil, err
	}

	incomingT := make([][]T, size)
	for i, data := range incoming {
		incomingT[i] = codec.DecodeSlice(data)
	}
	result := merge.Many(incomingT, less)

	if err := c.Barrier(ctx); err != nil {
		return nil, err
	}
	return result, nil
}

// pickEvenSamples returns k elements of sorted, evenly spaced by index;
// sorted must already be in ascending order under less.
func pickEvenSamples[T any](sorted []T, k int, less func(a, b T) bool) []T {
	n := len(sorted)
	if n == 0 || k <= 0 {
		return nil
	}
	out := make([]T, 0, k)
	for i := 1; i <= k; i++ {
		idx := i * n / (k + 1)
		if idx >= n {
			idx = n - 1
		}
		out = append(out, sorted[idx])
	}
	return out
}
