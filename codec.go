package octree

import (
	"github.com/parallel-octree/octree/comm"
	"github.com/parallel-octree/octree/dist"
)

// OctantCodec returns the fixed-width wire codec for this space's octants
// (spec §6): an anchor of D uint32 coordinates followed by the depth, each
// widened to 8 bytes and packed with comm.EncodeUint64Slice so every
// collective in package dist that exchanges octants agrees on the layout
// bit-for-bit regardless of D.
func (sp *Space) OctantCodec() dist.Codec[Octant] {
	width := 8 * (sp.D + 1)
	return dist.Codec[Octant]{
		Width: width,
		Encode: func(o Octant) []byte {
			vs := make([]uint64, sp.D+1)
			for d := 0; d < sp.D; d++ {
				vs[d] = uint64(o.Anchor[d])
			}
			vs[sp.D] = uint64(o.Depth)
			return comm.EncodeUint64Slice(vs)
		},
		Decode: func(b []byte) Octant {
			vs := comm.DecodeUint64Slice(b)
			anchor := make(Coord, sp.D)
			for d := 0; d < sp.D; d++ {
				anchor[d] = uint32(vs[d])
			}
			return Octant{Anchor: anchor, Depth: uint8(vs[sp.D])}
		},
	}
}
