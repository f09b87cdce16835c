package octree

import (
	"context"

	"github.com/parallel-octree/octree/comm"
	"github.com/parallel-octree/octree/dist"
)

// Linearise collapses every run of a globally sorted, duplicate-free
// distributed octant sequence whose first element is an ancestor of the
// rest (spec §4.6): remove_duplicates(seq, ancestor). Each run collapses
// to its first, coarsest element: the ancestor is kept and its
// descendants are dropped. The result contains no octant that is an
// ancestor of another, and is idempotent.
func (sp *Space) Linearise(ctx context.Context, c comm.Comm, local []Octant) ([]Octant, error) {
	ancestorOrSelf := func(a, b Octant) bool {
		return a.Equal(b) || sp.IsAncestor(a, b)
	}
	return dist.RemoveDuplicates(ctx, c, local, ancestorOrSelf, sp.OctantCodec())
}
