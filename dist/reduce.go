package dist

import (
	"context"
	"fmt"

	"github.com/parallel-octree/octree/comm"
	"golang.org/x/sync/errgroup"
)

// reserved tags for this package's internal collectives; kept well clear
// of the tag a caller of Send/Recv would plausibly pick, and of comm's own
// reserved broadcast/barrier tags (which live in a separate negative
// range private to each comm implementation).
const (
	tagReduceGather = 1000
	tagScanShift    = 1001
	tagSampleSend   = 1002
	tagSplitBucket  = 1003
	tagAllToAll     = 1004
)

// allReduceSumUint64 sums local across every rank and returns the total to
// all ranks, via gather-to-rank-0 then Broadcast -- the simplest correct
// realization of spec.md §4.10's "all-reduce sum" step; P is assumed
// small enough that a root-centered reduce is not a bottleneck, consistent
// with this module's reference-implementation scope.
func allReduceSumUint64(ctx context.Context, c comm.Comm, local uint64) (uint64, error) {
	const root = 0
	if c.Rank() != root {
		if err := c.Send(ctx, root, tagReduceGather, Uint64Codec.Encode(local)); err != nil {
			return 0, err
		}
	}
	var total uint64
	if c.Rank() == root {
		total = local
		for src := 0; src < c.Size(); src++ {
			if src == root {
				continue
			}
			data, err := c.Recv(ctx, src, tagReduceGather)
			if err != nil {
				return 0, err
			}
			total += Uint64Codec.Decode(data)
		}
	}
	data, err := c.Broadcast(ctx, root, Uint64Codec.Encode(total))
	if err != nil {
		return 0, err
	}
	return Uint64Codec.Decode(data), nil
}

// AllReduceMaxUint64 returns the maximum of local across every rank, to
// every rank, via gather-to-rank-0 then Broadcast. Exported for callers
// like points2octree's refinement loop that need to round-synchronize a
// per-rank work queue of divergent length before every rank can safely
// issue the same number of matching collective calls per round.
func AllReduceMaxUint64(ctx context.Context, c comm.Comm, local uint64) (uint64, error) {
	const root = 0
	if c.Rank() != root {
		if err := c.Send(ctx, root, tagReduceGather, Uint64Codec.Encode(local)); err != nil {
			return 0, err
		}
	}
	var max uint64
	if c.Rank() == root {
		max = local
		for src := 0; src < c.Size(); src++ {
			if src == root {
				continue
			}
			data, err := c.Recv(ctx, src, tagReduceGather)
			if err != nil {
				return 0, err
			}
			if v := Uint64Codec.Decode(data); v > max {
				max = v
			}
		}
	}
	data, err := c.Broadcast(ctx, root, Uint64Codec.Encode(max))
	if err != nil {
		return 0, err
	}
	return Uint64Codec.Decode(data), nil
}

// allReduceAndBool reduces local with logical AND across every rank.
func allReduceAndBool(ctx context.Context, c comm.Comm, local bool) (bool, error) {
	var v uint64
	if local {
		v = 1
	}
	// AND over {0,1} is equivalent to "sum == size".
	sum, err := allReduceSumUint64(ctx, c, v)
	if err != nil {
		return false, err
	}
	return sum == uint64(c.Size()), nil
}

// allToAll exchanges outgoing[dest] with every other rank, returning
// incoming[src]; outgoing[self] passes through untouched (no network
// round-trip to yourself, matching comm.Comm's "cannot send to self"
// contract). This is the shared plumbing behind Partition's and
// SampleSort's bucket exchanges, so it lives here rather than being
// duplicated.
func allToAll(ctx context.Context, c comm.Comm, tag int, outgoing [][]byte) ([][]byte, error) {
	size := c.Size()
	if len(outgoing) != size {
		return nil, fmt.Errorf("dist: allToAll: len(outgoing)=%d, want %d", len(outgoing), size)
	}
	incoming := make([][]byte, size)
	incoming[c.Rank()] = outgoing[c.Rank()]

	g, gctx := errgroup.WithContext(ctx)
	for dest := 0; dest < size; dest++ {
		if dest == c.Rank() {
			continue
		}
		dest := dest
		g.Go(func() error { return c.Send(gctx, dest, tag, outgoing[dest]) })
	}
	for src := 0; src < size; src++ {
		if src == c.Rank() {
			continue
		}
		src := src
		g.Go(func() error {
			data, err := c.Recv(gctx, src, tag)
			if err != nil {
				return err
			}
			incoming[src] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return incoming, nil
}
