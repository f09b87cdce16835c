package dist

import (
	"context"

	"github.com/parallel-octree/octree/comm"
)

const (
	tagDedupFirst = 1005
	tagSortedLast = 1006
)

// relayLastElement carries the nearest preceding non-empty rank's "last
// element" down the chain of ranks 0..P-1, one hop at a time: rank p
// receives whatever rank p-1 is carrying, and if rank p itself has
// nothing of its own (present is false), it forwards that same value on
// to rank p+1 instead of its own absent one. A plain immediate-neighbor
// exchange only ever reaches a literal neighbor, so an empty rank sitting
// between two non-empty ranks would silently break the chain; this walks
// the relay past however many empty ranks sit in a row. The pass is
// inherently sequential (rank p+1 cannot send until it has received from
// rank p), which is fine since it is already a one-direction, one-hop-
// per-rank pipeline, not a broadcast.
func relayLastElement[T any](ctx context.Context, c comm.Comm, codec Codec[T], tag int, own T, ownPresent bool) (carryIn T, carryInPresent bool, err error) {
	rank, size := c.Rank(), c.Size()
	if rank >= 1 {
		data, rerr := c.Recv(ctx, rank-1, tag)
		if rerr != nil {
			return carryIn, false, rerr
		}
		carryIn, carryInPresent = decodeOptional(codec, data)
	}
	carryOut, carryOutPresent := own, ownPresent
	if !ownPresent {
		carryOut, carryOutPresent = carryIn, carryInPresent
	}
	if rank+1 < size {
		if serr := c.Send(ctx, rank+1, tag, encodeOptional(codec, carryOut, carryOutPresent)); serr != nil {
			return carryIn, carryInPresent, serr
		}
	}
	return carryIn, carryInPresent, nil
}

// RemoveDuplicates collapses each maximal run of eq-adjacent elements in a
// globally sorted distributed sequence to its first element (spec.md
// §4.6). Sortedness guarantees every run is contiguous globally, so after
// a local collapse only a cross-process boundary check is needed: each
// rank relays its collapsed last element down the chain (relayLastElement,
// past any empty ranks in between) to the nearest rank with something of
// its own, which pops its own first element iff it is eq to what it
// received -- the global first occurrence of a run always lives on the
// lower-ranked side of a boundary, so the later rank is the one that gives
// way.
func RemoveDuplicates[T any](ctx context.Context, c comm.Comm, xs []T, eq func(a, b T) bool, codec Codec[T]) ([]T, error) {
	local := make([]T, 0, len(xs))
	for _, x := range xs {
		if n := len(local); n > 0 && eq(local[n-1], x) {
			continue
		}
		local = append(local, x)
	}

	var own T
	ownPresent := len(local) > 0
	if ownPresent {
		own = local[len(local)-1]
	}
	prevLast, present, err := relayLastElement(ctx, c, codec, tagDedupFirst, own, ownPresent)
	if err != nil {
		return nil, err
	}
	if present && len(local) > 0 && eq(prevLast, local[0]) {
		local = local[1:]
	}

	if err := c.Barrier(ctx); err != nil {
		return nil, err
	}
	return local, nil
}

// IsSortedDistributed checks, collectively, that the logical distributed
// sequence is non-decreasing under less both within each rank's local
// slice and across every rank boundary: a cheap precondition check before
// CompleteOctree and the property-test oracle for Testable Property 1.
func IsSortedDistributed[T any](ctx context.Context, c comm.Comm, xs []T, less func(a, b T) bool, codec Codec[T]) (bool, error) {
	localOK := true
	for i := 1; i < len(xs); i++ {
		if less(xs[i], xs[i-1]) {
			localOK = false
			break
		}
	}

	var own T
	ownPresent := len(xs) > 0
	if ownPresent {
		own = xs[len(xs)-1]
	}
	prevLast, present, err := relayLastElement(ctx, c, codec, tagSortedLast, own, ownPresent)
	if err != nil {
		return false, err
	}
	boundaryOK := true
	if present && len(xs) > 0 && less(xs[0], prevLast) {
		boundaryOK = false
	}

	result, err := allReduceAndBool(ctx, c, localOK && boundaryOK)
	if err != nil {
		return false, err
	}
	if err := c.Barrier(ctx); err != nil {
		return false, err
	}
	return result, nil
}
