package dist

import (
	"context"

	"github.com/parallel-octree/octree/comm"
)

// Scan computes, per spec.md §4.3, the inclusive prefix sum of w over the
// logical distributed sequence xs_0 ++ xs_1 ++ ... ++ xs_{P-1}: result[i]
// on rank p equals the sum of w over every element lexicographically at
// or before (p, i). It runs a local scan, then a single point-to-point
// shift of the exclusive running total from rank p-1 to rank p (the
// "cross-process inclusive scan of the local totals" spec.md calls for),
// then a local offset pass.
func Scan[T any](ctx context.Context, c comm.Comm, xs []T, w func(T) uint64) ([]uint64, error) {
	local := make([]uint64, len(xs))
	var running uint64
	for i, x := range xs {
		running += w(x)
		local[i] = running
	}
	localTotal := running

	var exclusive uint64
	if c.Rank() > 0 {
		data, err := c.Recv(ctx, c.Rank()-1, tagScanShift)
		if err != nil {
			return nil, err
		}
		exclusive = Uint64Codec.Decode(data)
	}
	if c.Rank() < c.Size()-1 {
		inclusive := exclusive + localTotal
		if err := c.Send(ctx, c.Rank()+1, tagScanShift, Uint64Codec.Encode(inclusive)); err != nil {
			return nil, err
		}
	}

	for i := range local {
		local[i] += exclusive
	}

	if err := c.Barrier(ctx); err != nil {
		return nil, err
	}
	return local, nil
}

// Total returns the sum of w over the whole distributed sequence, every
// rank receiving the same value; it is Scan's last element all-reduced,
// exposed separately since several callers (Partition) need only the
// grand total, not the full per-element scan.
func Total[T any](ctx context.Context, c comm.Comm, xs []T, w func(T) uint64) (uint64, error) {
	var local uint64
	for _, x := range xs {
		local += w(x)
	}
	return allReduceSumUint64(ctx, c, local)
}
