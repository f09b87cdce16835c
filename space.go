// Copyright (c) 2024 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package octree

import "fmt"

// depthBits is the low bits of a Morton key reserved for the depth tag
// (spec §3: "bits 0..4 are depth & 0x1F").
const (
	depthBits = 5
	depthMask = 1<<depthBits - 1
	maxDepth  = depthMask // depth must fit in 5 bits
)

// Space is the runtime configuration an octree is built against: the number
// of spatial dimensions D (2 or 3) and the deepest admissible level Dmax.
// It is immutable after NewSpace and safe for concurrent use by every rank,
// the way bart's baseIndex lookup tables are immutable package state shared
// by every Table[V] -- except here the dimensions are runtime config, so we
// carry them on a value instead of baking them into package-level tables.
type Space struct {
	D    int
	Dmax uint8
}

// NewSpace validates D and Dmax against spec §7's overflow rule
// (D*Dmax+5 <= 64, so a Morton key always fits in a uint64) and returns a
// ready-to-use Space. This is the startup-time stand-in for the spec's
// "caught at compile time" overflow check: Go has no user-level constant
// assertions over values that start as runtime configuration (D, Dmax come
// from package config), so NewSpace is the one mandatory gate every caller
// passes through before touching an Octant.
func NewSpace(d int, dmax uint8) (*Space, error) {
	if d != 2 && d != 3 {
		return nil, fmt.Errorf("octree: NewSpace: D must be 2 or 3, got %d", d)
	}
	if dmax == 0 {
		return nil, fmt.Errorf("octree: NewSpace: Dmax must be >= 1, got %d", dmax)
	}
	if int(dmax) > maxDepth {
		return nil, fmt.Errorf("octree: NewSpace: Dmax must fit in %d bits, got %d", depthBits, dmax)
	}
	if d*int(dmax)+depthBits > 64 {
		return nil, fmt.Errorf("octree: NewSpace: overflow, D*Dmax+5 = %d exceeds 64 (D=%d, Dmax=%d)", d*int(dmax)+depthBits, d, dmax)
	}
	return &Space{D: d, Dmax: dmax}, nil
}

// Root returns the octant covering the entire index space: depth 0, anchor
// all zeros.
func (sp *Space) Root() Octant {
	return Octant{Anchor: make(Coord, sp.D), Depth: 0}
}

// Coord is a D-tuple of non-negative integers in [0, 2^Dmax), one per axis.
type Coord []uint32

// Clone returns a copy of c.
func (c Coord) Clone() Coord {
	out := make(Coord, len(c))
	copy(out, c)
	return out
}

func (c Coord) equal(o Coord) bool {
	if len(c) != len(o) {
		return false
	}
	for i := range c {
		if c[i] != o[i] {
			return false
		}
	}
	return true
}

// Octant is a node of the 2^D-ary tree: an anchor aligned to the octant's
// cell size plus the depth at which it lives. Octants are plain values,
// freely copied; every operation below returns a new Octant rather than
// mutating its receiver's arguments.
type Octant struct {
	Anchor Coord
	Depth  uint8
}

// Equal reports whether a and b denote the same octant.
func (a Octant) Equal(b Octant) bool {
	return a.Depth == b.Depth && a.Anchor.equal(b.Anchor)
}

// String renders an octant as "(a0,a1,...)/depth", convenient in test
// failure messages and optional progress logging.
func (a Octant) String() string {
	return fmt.Sprintf("%v/%d", []uint32(a.Anchor), a.Depth)
}

// cellSize returns 2^(Dmax-depth), the side length of an octant at depth.
func (sp *Space) cellSize(depth uint8) uint32 {
	return 1 << (sp.Dmax - depth)
}

// validate panics with a *PreconditionError if o does not belong to sp:
// wrong dimensionality, depth out of range, or anchor not aligned.
func (sp *Space) validate(op string, o Octant) {
	if len(o.Anchor) != sp.D {
		panic(newPrecondition(op, fmt.Sprintf("anchor has %d coordinates, space has D=%d", len(o.Anchor), sp.D)))
	}
	if o.Depth > sp.Dmax {
		panic(newPrecondition(op, fmt.Sprintf("depth %d exceeds Dmax %d", o.Depth, sp.Dmax)))
	}
	if o.Depth < sp.Dmax {
		low := sp.cellSize(o.Depth) - 1
		for _, a := range o.Anchor {
			if a&low != 0 {
				panic(newPrecondition(op, fmt.Sprintf("anchor %v not aligned to cell size %d at depth %d", []uint32(o.Anchor), low+1, o.Depth)))
			}
		}
	}
}
