// Copyright (c) 2024 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package octree

// Please read spec.md §3 "Morton key" to understand the bit layout below;
// this plays the role bart's base_index.go plays for CIDR prefixes: a single
// totally-ordered integer key an octant maps to and from, with the hot path
// (Less, used by every sort/scan/partition in package dist) reduced to pure
// integer arithmetic, never floating point, per spec §9's design notes.

// Morton computes M(o): bit 5+i*D+d equals bit i of anchor[d], for
// 0 <= i < Dmax, 0 <= d < D; bits 0..4 are depth & 0x1F. Two octants with
// the same anchor but different depths compare by depth, because depth
// lives in the low bits: the shallower (coarser) octant sorts first.
func (sp *Space) Morton(o Octant) uint64 {
	var m uint64
	for d := 0; d < sp.D; d++ {
		a := o.Anchor[d]
		for i := 0; i < int(sp.Dmax); i++ {
			if a&(1<<uint(i)) != 0 {
				m |= 1 << uint(depthBits+i*sp.D+d)
			}
		}
	}
	m |= uint64(o.Depth) & depthMask
	return m
}

// Less reports whether a sorts strictly before b under the Morton order:
// the total order every distributed collective in package dist is
// parametrized with when operating on octants.
func (sp *Space) Less(a, b Octant) bool {
	return sp.Morton(a) < sp.Morton(b)
}

// FromMorton is the inverse of Morton: it reconstructs the octant a key
// denotes. Used by tests.
func (sp *Space) FromMorton(m uint64) Octant {
	anchor := make(Coord, sp.D)
	for d := 0; d < sp.D; d++ {
		var a uint32
		for i := 0; i < int(sp.Dmax); i++ {
			bitPos := uint(depthBits + i*sp.D + d)
			if m&(1<<bitPos) != 0 {
				a |= 1 << uint(i)
			}
		}
		anchor[d] = a
	}
	return Octant{Anchor: anchor, Depth: uint8(m & depthMask)}
}
