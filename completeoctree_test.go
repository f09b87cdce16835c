package octree

import (
	"context"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/parallel-octree/octree/comm"
)

// runOctreeAcrossRanks calls fn once per rank concurrently, failing the
// test on the first error any rank returns.
func runOctreeAcrossRanks(t *testing.T, ranks []comm.Comm, fn func(ctx context.Context, c comm.Comm) error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	for _, r := range ranks {
		r := r
		g.Go(func() error { return fn(gctx, r) })
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("collective failed: %v", err)
	}
}

// assertCompleteLinearOctree checks Testable Property 5: the union of the
// global output (concatenated in rank order) covers the root cube exactly
// with pairwise disjoint interiors, is globally Morton-sorted, and
// contains no ancestor relation between any two elements (Property 3).
func assertCompleteLinearOctree(t *testing.T, sp *Space, perRank [][]Octant) {
	t.Helper()
	var all []Octant
	for _, local := range perRank {
		all = append(all, local...)
	}
	if len(all) == 0 {
		t.Fatalf("complete octree is empty")
	}

	order := func(o Octant) uint64 { return sp.Morton(o) >> depthBits }
	want := uint64(0)
	for i, o := range all {
		if i > 0 && !sp.Less(all[i-1], o) {
			t.Fatalf("output not globally sorted at index %d: %v then %v", i, all[i-1], o)
		}
		lo, hi := order(sp.DFD(o)), order(sp.DLD(o))
		if lo != want {
			t.Fatalf("gap/overlap before element %d (%v): expected finest cell %d, got %d", i, o, want, lo)
		}
		want = hi + 1
	}
	maxOrder := uint64(1) << uint(sp.D*int(sp.Dmax))
	if want != maxOrder {
		t.Fatalf("coverage ends at finest cell %d, want %d (root cube not fully covered)", want, maxOrder)
	}

	for i := range all {
		for j := range all {
			if i == j {
				continue
			}
			if sp.IsAncestor(all[i], all[j]) {
				t.Fatalf("%v is an ancestor of %v; output is not linearised", all[i], all[j])
			}
		}
	}
}

func TestCompleteOctreeSingleRankAlreadyComplete(t *testing.T) {
	sp := mustSpaceCR(t, 2, 2)
	ranks := comm.NewLocal(1)

	input := [][]Octant{{{Anchor: Coord{2, 0}, Depth: 1}}}
	var out [][]Octant
	runOctreeAcrossRanks(t, ranks, func(ctx context.Context, c comm.Comm) error {
		o, err := sp.CompleteOctree(ctx, c, input[c.Rank()])
		if err != nil {
			return err
		}
		if out == nil {
			out = make([][]Octant, 1)
		}
		out[c.Rank()] = o
		return nil
	})
	assertCompleteLinearOctree(t, sp, out)
}

// TestCompleteOctreeDegenerateSentinel exercises scenario S3: three
// widely separated depth-Dmax leaves, one per process, must be completed
// into a linear octree covering the whole root cube, including the two
// degenerate sentinel cases (process 0's seed sits at dfd(root), process
// P-1's seed sits at dld(root)) that the source leaves ambiguous.
func TestCompleteOctreeDegenerateSentinel(t *testing.T) {
	sp := mustSpaceCR(t, 2, 5)
	ranks := comm.NewLocal(3)

	input := [][]Octant{
		{{Anchor: Coord{0, 0}, Depth: 5}},
		{{Anchor: Coord{16, 16}, Depth: 5}},
		{{Anchor: Coord{31, 31}, Depth: 5}},
	}
	out := make([][]Octant, 3)
	runOctreeAcrossRanks(t, ranks, func(ctx context.Context, c comm.Comm) error {
		o, err := sp.CompleteOctree(ctx, c, input[c.Rank()])
		out[c.Rank()] = o
		return err
	})
	assertCompleteLinearOctree(t, sp, out)
}

// TestCompleteOctreeMoreRanksThanOctants exercises the case dist.Partition
// routinely produces when P exceeds the deduped/linearised input size: a
// trailing suffix of empty high-indexed ranks that includes the literal
// last rank. The upper sentinel and the true last octant's emission must
// be gated on the highest rank that actually holds data, not on rank ==
// size-1, or the tail of the domain silently goes missing.
func TestCompleteOctreeMoreRanksThanOctants(t *testing.T) {
	sp := mustSpaceCR(t, 2, 3)
	const p = 4
	ranks := comm.NewLocal(p)

	// only two octants total, spread across the first two of four ranks;
	// ranks 2 and 3 start with nothing at all.
	input := [][]Octant{
		{{Anchor: Coord{0, 0}, Depth: 3}},
		{{Anchor: Coord{7, 7}, Depth: 3}},
		{},
		{},
	}
	out := make([][]Octant, p)
	runOctreeAcrossRanks(t, ranks, func(ctx context.Context, c comm.Comm) error {
		o, err := sp.CompleteOctree(ctx, c, input[c.Rank()])
		out[c.Rank()] = o
		return err
	})
	assertCompleteLinearOctree(t, sp, out)
}

func TestCompleteOctreeIdempotentOnAlreadyCompleteInput(t *testing.T) {
	sp := mustSpaceCR(t, 2, 2)
	ranks := comm.NewLocal(2)

	// The full set of depth-1 children already forms a complete linear
	// octree; running it through CompleteOctree again should return the
	// same multiset.
	root := sp.Root()
	children := sp.Children(root)
	input := [][]Octant{children[:2], children[2:]}

	out := make([][]Octant, 2)
	runOctreeAcrossRanks(t, ranks, func(ctx context.Context, c comm.Comm) error {
		o, err := sp.CompleteOctree(ctx, c, input[c.Rank()])
		out[c.Rank()] = o
		return err
	})
	assertCompleteLinearOctree(t, sp, out)

	var total int
	for _, o := range out {
		total += len(o)
	}
	if total != len(children) {
		t.Fatalf("CompleteOctree on an already-complete octree produced %d octants, want %d", total, len(children))
	}
}
