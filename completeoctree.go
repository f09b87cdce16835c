package octree

import (
	"context"

	"github.com/parallel-octree/octree/comm"
	"github.com/parallel-octree/octree/dist"
)

// tagCompleteOctreeFront is the point-to-point tag algorithm 4's step 3
// uses; chosen well outside package dist's reserved 1000-1006 range so the
// two packages' tags never alias on the same Comm.
const tagCompleteOctreeFront = 2000

// CompleteOctree implements algorithm 4 (spec §4.8): given a distributed,
// globally sorted set of octants that spans (but does not necessarily
// cover) the root, it returns a globally sorted, non-overlapping,
// duplicate-free linear octree covering the entire root domain.
//
// Step 1 (remove_duplicates, linearise, partition) is delegated to
// package dist and to Linearise. Steps 2-5 are the boundary-sentinel and
// gap-filling logic: rank 0 is given a lower sentinel, the first child of
// ca(dfd(root), front), unless its front already starts at dfd(root); the
// highest-indexed rank that actually holds data is given an upper
// sentinel, the last child of ca(back, dld(root)), unless its back
// already ends at dld(root); each rank (but the last with data) learns
// its successor's first element so it can complete_region the gap
// locally, and every element is emitted alongside the region that fills
// the gap to its successor -- except the last element of the last
// rank-with-data's augmented list (the upper sentinel, or that rank's own
// final octant when no upper sentinel was needed), which step 5 emits
// explicitly, since it is never used as the left side of a pair.
//
// dist.Partition assigns the post-dedup/linearise total's k = total mod P
// leftover units of weight to the lowest-indexed ranks, so whenever the
// total is smaller than P -- routinely the case when this is called on a
// handful of coarse candidate blocks against a large process count, as
// BlockPartition and PointsToOctree both do -- emptiness forms a trailing
// suffix of high-indexed ranks that can include the literal last rank.
// Gating the upper sentinel/final-emit on the literal rank == size-1
// would then never run it at all, losing the tail of the domain and the
// true last rank's own final octant; an all-reduce-max over "rank index,
// if this rank holds data" finds the real last rank to gate on instead.
func (sp *Space) CompleteOctree(ctx context.Context, c comm.Comm, input []Octant) ([]Octant, error) {
	codec := sp.OctantCodec()

	deduped, err := dist.RemoveDuplicates(ctx, c, input, Octant.Equal, codec)
	if err != nil {
		return nil, err
	}
	lin, err := sp.Linearise(ctx, c, deduped)
	if err != nil {
		return nil, err
	}
	local, err := dist.Partition(ctx, c, lin, func(Octant) uint64 { return 1 }, codec)
	if err != nil {
		return nil, err
	}

	rank, size := c.Rank(), c.Size()
	root := sp.Root()

	var presentMarker uint64
	if len(local) > 0 {
		presentMarker = uint64(rank + 1)
	}
	highestPresent, err := dist.AllReduceMaxUint64(ctx, c, presentMarker)
	if err != nil {
		return nil, err
	}
	lastRank := int(highestPresent) - 1

	augmented := append([]Octant{}, local...)

	// a front that already starts at dfd(root) leaves nothing before it.
	if rank == 0 && len(local) > 0 && !sp.DFD(local[0]).Equal(sp.DFD(root)) {
		cca := sp.ClosestCommonAncestor(sp.DFD(root), local[0])
		prepend := sp.Children(cca)[0]
		augmented = append([]Octant{prepend}, augmented...)
	}

	var appendSentinel Octant
	haveAppendSentinel := false
	// a back that already ends at dld(root) leaves nothing after it.
	if lastRank >= 0 && rank == lastRank && len(local) > 0 && !sp.DLD(local[len(local)-1]).Equal(sp.DLD(root)) {
		cca := sp.ClosestCommonAncestor(local[len(local)-1], sp.DLD(root))
		children := sp.Children(cca)
		appendSentinel = children[len(children)-1]
		haveAppendSentinel = true
	}

	if rank >= 1 {
		front := local
		var fv Octant
		present := len(front) > 0
		if present {
			fv = front[0]
		}
		if err := c.Send(ctx, rank-1, tagCompleteOctreeFront, encodeOptionalOctant(codec, fv, present)); err != nil {
			return nil, err
		}
	}
	if rank+1 < size {
		data, err := c.Recv(ctx, rank+1, tagCompleteOctreeFront)
		if err != nil {
			return nil, err
		}
		next, present := decodeOptionalOctant(codec, data)
		if present {
			augmented = append(augmented, next)
		} else if haveAppendSentinel {
			augmented = append(augmented, appendSentinel)
		}
	} else if haveAppendSentinel {
		augmented = append(augmented, appendSentinel)
	}

	var out []Octant
	for i := 0; i+1 < len(augmented); i++ {
		l, r := augmented[i], augmented[i+1]
		out = append(out, l)
		if sp.Less(l, r) {
			out = append(out, sp.CompleteRegion(l, r)...)
		}
	}
	if rank == lastRank && len(augmented) > 0 {
		out = append(out, augmented[len(augmented)-1])
	}

	if err := c.Barrier(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

func encodeOptionalOctant(codec dist.Codec[Octant], o Octant, present bool) []byte {
	if !present {
		return nil
	}
	return codec.Encode(o)
}

func decodeOptionalOctant(codec dist.Codec[Octant], data []byte) (Octant, bool) {
	if len(data) == 0 {
		return Octant{}, false
	}
	return codec.Decode(data), true
}
