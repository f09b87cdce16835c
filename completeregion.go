package octree

// CompleteRegion implements algorithm 3 (spec §4.7): given a < b by Morton
// key, it returns the minimal list of non-overlapping octants covering the
// open interval (M(a), M(b)) exactly. The result is Morton-sorted by
// construction, since Children produces its 2^D results in Morton order,
// and contains neither a, b, nor an ancestor of either.
//
// This is purely local; it never touches a Comm, unlike every other
// algorithm in this package.
func (sp *Space) CompleteRegion(a, b Octant) []Octant {
	sp.validate("CompleteRegion", a)
	sp.validate("CompleteRegion", b)
	if !sp.Less(a, b) {
		panic(newPrecondition("CompleteRegion", "a must sort strictly before b"))
	}

	ma, mb := sp.Morton(a), sp.Morton(b)
	var out []Octant
	// Depth-first, Morton-order-preserving: each child of the work queue is
	// fully resolved (emitted, or expanded and recursed into) before its
	// next sibling is visited, so descendants of an earlier child always
	// land in out before a later sibling.
	var visit func(w Octant)
	visit = func(w Octant) {
		mw := sp.Morton(w)
		switch {
		case ma < mw && mw < mb && !sp.IsAncestor(w, b):
			out = append(out, w)
		case sp.IsAncestor(w, a) || sp.IsAncestor(w, b):
			if w.Depth < sp.Dmax {
				for _, c := range sp.Children(w) {
					visit(c)
				}
			}
		}
	}
	for _, w := range sp.Children(sp.ClosestCommonAncestor(a, b)) {
		visit(w)
	}
	return out
}
