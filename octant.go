// Copyright (c) 2024 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package octree

import (
	"math/bits"
)

// Parent returns the parent of o: depth-1, anchor with the bit at position
// Dmax-depth cleared on every coordinate. Parent(root) is a precondition
// violation (spec §4.1) and panics with *PreconditionError.
func (sp *Space) Parent(o Octant) Octant {
	sp.validate("Parent", o)
	if o.Depth == 0 {
		panic(newPrecondition("Parent", "root has no parent"))
	}
	bit := uint32(1) << (sp.Dmax - o.Depth)
	anchor := make(Coord, sp.D)
	for d := range anchor {
		anchor[d] = o.Anchor[d] &^ bit
	}
	return Octant{Anchor: anchor, Depth: o.Depth - 1}
}

// Children returns the 2^D children of o at depth+1, in Morton-ascending
// order: child k's coordinate d gets an added 2^(Dmax-depth-1) iff bit d of
// k is set. Children at depth Dmax is a precondition violation.
func (sp *Space) Children(o Octant) []Octant {
	sp.validate("Children", o)
	if o.Depth == sp.Dmax {
		panic(newPrecondition("Children", "octant at Dmax has no children"))
	}
	step := uint32(1) << (sp.Dmax - o.Depth - 1)
	n := 1 << sp.D
	out := make([]Octant, n)
	for k := 0; k < n; k++ {
		anchor := o.Anchor.Clone()
		for d := 0; d < sp.D; d++ {
			if k&(1<<d) != 0 {
				anchor[d] += step
			}
		}
		out[k] = Octant{Anchor: anchor, Depth: o.Depth + 1}
	}
	return out
}

// Siblings returns the 2^D-1 children of Parent(o) other than o itself, in
// Morton-ascending order. The root has no siblings.
func (sp *Space) Siblings(o Octant) []Octant {
	sp.validate("Siblings", o)
	if o.Depth == 0 {
		return nil
	}
	parent := sp.Parent(o)
	children := sp.Children(parent)
	out := make([]Octant, 0, len(children)-1)
	for _, c := range children {
		if !c.Equal(o) {
			out = append(out, c)
		}
	}
	return out
}

// IsAncestor reports whether a is a strict ancestor of b: depth(a) <
// depth(b) and b's anchor lies in a's cube.
func (sp *Space) IsAncestor(a, b Octant) bool {
	sp.validate("IsAncestor", a)
	sp.validate("IsAncestor", b)
	if a.Depth >= b.Depth {
		return false
	}
	shift := sp.Dmax - a.Depth
	for d := 0; d < sp.D; d++ {
		if a.Anchor[d]>>shift != b.Anchor[d]>>shift {
			return false
		}
	}
	return true
}

// IsDescendant reports whether a is a strict descendant of b.
func (sp *Space) IsDescendant(a, b Octant) bool {
	return sp.IsAncestor(b, a)
}

// IsChild reports whether a is an immediate child of b.
func (sp *Space) IsChild(a, b Octant) bool {
	return a.Depth == b.Depth+1 && sp.IsAncestor(b, a)
}

// DFD returns the deepest first descendant of o: same anchor, depth Dmax.
func (sp *Space) DFD(o Octant) Octant {
	sp.validate("DFD", o)
	return Octant{Anchor: o.Anchor.Clone(), Depth: sp.Dmax}
}

// DLD returns the deepest last descendant of o: anchor shifted by
// 2^(Dmax-depth)-1 on every axis, depth Dmax.
func (sp *Space) DLD(o Octant) Octant {
	sp.validate("DLD", o)
	offset := sp.cellSize(o.Depth) - 1
	anchor := make(Coord, sp.D)
	for d := range anchor {
		anchor[d] = o.Anchor[d] + offset
	}
	return Octant{Anchor: anchor, Depth: sp.Dmax}
}

// ClosestCommonAncestor returns the deepest octant that is an ancestor of
// (or equal to) both a and b.
//
// Spec §9's design notes prefer the coordinate-XOR / count-leading-zeros
// formulation over "walk up until ancestor of other", since it is O(1) in
// Dmax and its termination is obvious; we use it here. Spec §9 also flags an
// unresolved ambiguity in the source for the degenerate case where one
// octant is already an ancestor of the other (the source's "TODO: problem
// here" in complete_octree's sentinel step). We resolve it explicitly
// (documented in SPEC_FULL.md's Open Questions): when a is an ancestor of b
// (or vice versa, or a==b), the closest common ancestor is simply a (resp.
// b) itself -- a non-strict "ancestor-or-self" reading of closest common
// ancestor, rather than requiring a third octant strictly shallower than
// both.
func (sp *Space) ClosestCommonAncestor(a, b Octant) Octant {
	sp.validate("ClosestCommonAncestor", a)
	sp.validate("ClosestCommonAncestor", b)

	if a.Equal(b) {
		return a
	}
	if sp.IsAncestor(a, b) {
		return a
	}
	if sp.IsAncestor(b, a) {
		return b
	}

	matchDepth := int(sp.Dmax)
	for d := 0; d < sp.D; d++ {
		x := a.Anchor[d] ^ b.Anchor[d]
		m := int(sp.Dmax) - bits.Len32(x)
		if m < matchDepth {
			matchDepth = m
		}
	}
	if md := min(int(a.Depth), int(b.Depth)); matchDepth > md {
		matchDepth = md
	}

	clearBits := uint(sp.Dmax) - uint(matchDepth)
	mask := ^(uint32(1)<<clearBits - 1)
	anchor := make(Coord, sp.D)
	for d := range anchor {
		anchor[d] = a.Anchor[d] & mask
	}
	return Octant{Anchor: anchor, Depth: uint8(matchDepth)}
}
