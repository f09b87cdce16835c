package octree

import (
	"context"
	"sort"

	"github.com/parallel-octree/octree/comm"
	"github.com/parallel-octree/octree/dist"
)

// tagBlockPartitionReshuffle is the point-to-point tag used by step 3's
// re-shuffle of F; outside both dist's and CompleteOctree's reserved tag
// ranges.
const tagBlockPartitionReshuffle = 2001

// BlockPartition implements spec §4.9: given a globally sorted distributed
// sequence F of fine-grained octants, it returns a globally sorted
// distributed block set G that is a complete linear octree for the root,
// and a re-distribution of F such that each process's local slice of F is
// exactly the elements G's local slice covers.
func (sp *Space) BlockPartition(ctx context.Context, c comm.Comm, f []Octant) (g []Octant, fRedistributed []Octant, err error) {
	var localBlocks []Octant
	if len(f) > 0 {
		front, back := f[0], f[len(f)-1]
		var t []Octant
		if sp.Less(front, back) {
			t = sp.CompleteRegion(front, back)
		}
		minDepth := uint8(255)
		for _, o := range t {
			if o.Depth < minDepth {
				minDepth = o.Depth
			}
		}
		for _, o := range t {
			if o.Depth == minDepth {
				localBlocks = append(localBlocks, o)
			}
		}
	}

	g, err = sp.CompleteOctree(ctx, c, localBlocks)
	if err != nil {
		return nil, nil, err
	}

	size := c.Size()
	codec := sp.OctantCodec()
	received := make([][]Octant, size)

	for root := 0; root < size; root++ {
		var bounds [2]Octant
		havebounds := false
		if c.Rank() == root && len(g) > 0 {
			bounds = [2]Octant{g[0], sp.DLD(g[len(g)-1])}
			havebounds = true
		}
		data, err := c.Broadcast(ctx, root, encodeOptionalBounds(codec, bounds, havebounds))
		if err != nil {
			return nil, nil, err
		}
		rootBounds, present := decodeOptionalBounds(codec, data)
		if !present {
			if err := c.Barrier(ctx); err != nil {
				return nil, nil, err
			}
			continue
		}

		lo := sort.Search(len(f), func(i int) bool { return !sp.Less(f[i], rootBounds[0]) })
		hi := sort.Search(len(f), func(i int) bool { return sp.Less(rootBounds[1], f[i]) })
		var slice []Octant
		if hi > lo {
			slice = f[lo:hi]
		}

		if c.Rank() != root {
			if err := c.Send(ctx, root, tagBlockPartitionReshuffle, codec.EncodeSlice(slice)); err != nil {
				return nil, nil, err
			}
		} else {
			// pieces is indexed by source rank so concatenation below
			// reproduces global (ascending-rank) order, regardless of
			// the order Recv calls happen to return in.
			pieces := make([][]Octant, size)
			pieces[root] = slice
			for src := 0; src < size; src++ {
				if src == root {
					continue
				}
				d, err := c.Recv(ctx, src, tagBlockPartitionReshuffle)
				if err != nil {
					return nil, nil, err
				}
				pieces[src] = codec.DecodeSlice(d)
			}
			for src := 0; src < size; src++ {
				received[root] = append(received[root], pieces[src]...)
			}
		}
		if err := c.Barrier(ctx); err != nil {
			return nil, nil, err
		}
	}

	// received[rank] is already ascending-rank order, and each per-source
	// piece is itself a sorted sub-range of the globally sorted F, so the
	// concatenation above is already globally sorted -- no merge needed.
	return g, received[c.Rank()], nil
}

func encodeOptionalBounds(codec dist.Codec[Octant], bounds [2]Octant, present bool) []byte {
	if !present {
		return nil
	}
	return codec.EncodeSlice(bounds[:])
}

func decodeOptionalBounds(codec dist.Codec[Octant], data []byte) ([2]Octant, bool) {
	if len(data) == 0 {
		return [2]Octant{}, false
	}
	vs := codec.DecodeSlice(data)
	return [2]Octant{vs[0], vs[1]}, true
}
