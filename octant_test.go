package octree

import "testing"

func mustSpace(t *testing.T, d int, dmax uint8) *Space {
	t.Helper()
	sp, err := NewSpace(d, dmax)
	if err != nil {
		t.Fatalf("NewSpace(%d, %d): %v", d, dmax, err)
	}
	return sp
}

func TestNewSpaceOverflow(t *testing.T) {
	tests := []struct {
		d       int
		dmax    uint8
		wantErr bool
	}{
		{2, 5, false},
		{3, 19, false},  // 3*19+5 = 62
		{3, 20, true},   // 3*20+5 = 65 > 64
		{2, 29, false},  // 2*29+5 = 63
		{2, 30, true},   // 2*30+5 = 65
		{4, 5, true},    // D must be 2 or 3
		{2, 0, true},
	}
	for _, tc := range tests {
		_, err := NewSpace(tc.d, tc.dmax)
		if (err != nil) != tc.wantErr {
			t.Errorf("NewSpace(%d, %d): err=%v, wantErr=%v", tc.d, tc.dmax, err, tc.wantErr)
		}
	}
}

func TestRootInvariants(t *testing.T) {
	sp := mustSpace(t, 3, 5)
	root := sp.Root()
	if root.Depth != 0 {
		t.Errorf("root depth = %d, want 0", root.Depth)
	}
	for _, a := range root.Anchor {
		if a != 0 {
			t.Errorf("root anchor = %v, want all zero", root.Anchor)
		}
	}
}

func TestParentChildRoundTrip(t *testing.T) {
	sp := mustSpace(t, 2, 5)
	o := Octant{Anchor: Coord{12, 20}, Depth: 5}
	for depth := o.Depth; depth > 0; depth-- {
		children := sp.Children(sp.Parent(o))
		found := false
		for _, c := range children {
			if c.Equal(o) {
				found = true
			}
		}
		if !found {
			t.Fatalf("children(parent(%v)) does not contain %v", o, o)
		}
		o = sp.Parent(o)
	}
}

func TestChildrenMortonAscending(t *testing.T) {
	sp := mustSpace(t, 3, 5)
	root := sp.Root()
	children := sp.Children(root)
	if len(children) != 8 {
		t.Fatalf("len(children) = %d, want 8", len(children))
	}
	for i := 1; i < len(children); i++ {
		if !sp.Less(children[i-1], children[i]) {
			t.Errorf("children[%d]=%v not < children[%d]=%v in Morton order", i-1, children[i-1], i, children[i])
		}
	}
}

func TestParentOfRootPanics(t *testing.T) {
	sp := mustSpace(t, 2, 5)
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("Parent(root) did not panic")
		}
	}()
	sp.Parent(sp.Root())
}

func TestChildrenAtDmaxPanics(t *testing.T) {
	sp := mustSpace(t, 2, 3)
	leaf := Octant{Anchor: Coord{0, 0}, Depth: 3}
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("Children(depth=Dmax) did not panic")
		}
	}()
	sp.Children(leaf)
}

func TestSiblingsOfRootEmpty(t *testing.T) {
	sp := mustSpace(t, 2, 5)
	if sibs := sp.Siblings(sp.Root()); len(sibs) != 0 {
		t.Errorf("Siblings(root) = %v, want empty", sibs)
	}
}

func TestSiblingsExcludesSelf(t *testing.T) {
	sp := mustSpace(t, 3, 4)
	root := sp.Root()
	child := sp.Children(root)[3]
	sibs := sp.Siblings(child)
	if len(sibs) != 7 {
		t.Fatalf("len(siblings) = %d, want 7", len(sibs))
	}
	for _, s := range sibs {
		if s.Equal(child) {
			t.Errorf("siblings(%v) contains itself", child)
		}
	}
}

func TestIsAncestorDescendant(t *testing.T) {
	sp := mustSpace(t, 2, 5)
	root := sp.Root()
	child := sp.Children(root)[2]
	grandchild := sp.Children(child)[1]

	if !sp.IsAncestor(root, grandchild) {
		t.Error("root should be ancestor of grandchild")
	}
	if sp.IsAncestor(grandchild, root) {
		t.Error("grandchild should not be ancestor of root")
	}
	if sp.IsAncestor(root, root) {
		t.Error("an octant is not its own ancestor")
	}
	if !sp.IsDescendant(grandchild, root) {
		t.Error("grandchild should be descendant of root")
	}
	if !sp.IsChild(child, root) {
		t.Error("child should be IsChild of root")
	}
	if sp.IsChild(grandchild, root) {
		t.Error("grandchild should not be IsChild of root")
	}
}

func TestDFDDLD(t *testing.T) {
	sp := mustSpace(t, 2, 5)
	o := Octant{Anchor: Coord{8, 16}, Depth: 2}
	dfd := sp.DFD(o)
	dld := sp.DLD(o)

	if dfd.Depth != sp.Dmax || dld.Depth != sp.Dmax {
		t.Fatalf("dfd/dld must be at Dmax, got %d/%d", dfd.Depth, dld.Depth)
	}
	if !dfd.Anchor.equal(o.Anchor) {
		t.Errorf("dfd anchor = %v, want %v", dfd.Anchor, o.Anchor)
	}
	side := sp.cellSize(o.Depth)
	for d := range dld.Anchor {
		if want := o.Anchor[d] + side - 1; dld.Anchor[d] != want {
			t.Errorf("dld.Anchor[%d] = %d, want %d", d, dld.Anchor[d], want)
		}
	}
	if !sp.Less(dfd, dld) {
		t.Error("dfd should sort before dld")
	}
}

func TestClosestCommonAncestorSelfAndAncestry(t *testing.T) {
	sp := mustSpace(t, 2, 5)
	root := sp.Root()
	child := sp.Children(root)[1]
	grandchild := sp.Children(child)[2]

	if ca := sp.ClosestCommonAncestor(grandchild, grandchild); !ca.Equal(grandchild) {
		t.Errorf("ca(x,x) = %v, want %v", ca, grandchild)
	}
	if ca := sp.ClosestCommonAncestor(root, grandchild); !ca.Equal(root) {
		t.Errorf("ca(root, descendant) = %v, want root", ca)
	}
	if ca := sp.ClosestCommonAncestor(grandchild, root); !ca.Equal(root) {
		t.Errorf("ca(descendant, root) = %v, want root", ca)
	}
}

func TestClosestCommonAncestorDisjoint(t *testing.T) {
	sp := mustSpace(t, 2, 3)
	a := Octant{Anchor: Coord{0, 0}, Depth: 3}
	b := Octant{Anchor: Coord{7, 7}, Depth: 3}
	ca := sp.ClosestCommonAncestor(a, b)
	if ca.Depth != 0 {
		t.Errorf("ca(opposite corners) depth = %d, want 0 (root)", ca.Depth)
	}
	if !sp.IsAncestor(ca, a) || !sp.IsAncestor(ca, b) {
		t.Errorf("ca %v must be ancestor of both %v and %v", ca, a, b)
	}
}

func TestClosestCommonAncestorIsDeepestCommonAncestor(t *testing.T) {
	sp := mustSpace(t, 2, 4)
	// a and b share the top two bits (both in the "lower-left" quadrant's
	// upper-right sub-quadrant) but diverge below that.
	a := Octant{Anchor: Coord{4, 4}, Depth: 4}  // 0100, 0100
	b := Octant{Anchor: Coord{5, 6}, Depth: 4}  // 0101, 0110
	ca := sp.ClosestCommonAncestor(a, b)

	if !sp.IsAncestor(ca, a) || !sp.IsAncestor(ca, b) {
		t.Fatalf("ca %v not ancestor of both %v, %v", ca, a, b)
	}
	// any deeper candidate at ca.Depth+1 must fail to be a common ancestor
	for _, deeper := range sp.Children(ca) {
		if sp.IsAncestor(deeper, a) && sp.IsAncestor(deeper, b) {
			t.Fatalf("ca %v not the deepest: child %v is also a common ancestor", ca, deeper)
		}
	}
}

func TestMortonOrdersByDepthOnSharedAnchor(t *testing.T) {
	sp := mustSpace(t, 2, 4)
	shallow := Octant{Anchor: Coord{0, 0}, Depth: 1}
	deep := Octant{Anchor: Coord{0, 0}, Depth: 3}
	if !sp.Less(shallow, deep) {
		t.Error("shallower octant with same anchor should sort first")
	}
}

func TestMortonFromMortonRoundTrip(t *testing.T) {
	sp := mustSpace(t, 3, 5)
	o := Octant{Anchor: Coord{5, 9, 17}, Depth: 3}
	got := sp.FromMorton(sp.Morton(o))
	if !got.Equal(o) {
		t.Errorf("FromMorton(Morton(%v)) = %v", o, got)
	}
}

func TestAnchorForPosition(t *testing.T) {
	sp := mustSpace(t, 2, 3)
	o := sp.AnchorForPosition([]float64{3.5, 7.9}, 8.0)
	if o.Depth != sp.Dmax {
		t.Fatalf("AnchorForPosition depth = %d, want Dmax", o.Depth)
	}
	if o.Anchor[0] != 3 || o.Anchor[1] != 7 {
		t.Errorf("AnchorForPosition anchor = %v, want [3 7]", o.Anchor)
	}
}
