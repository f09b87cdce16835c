// Package dist implements the generic bulk-synchronous collectives
// spec.md §4.3-§4.10 describes: distributed scan, weighted partition,
// sample sort, sorted-range count, remove-duplicates. None of them are
// octree-specific -- they are parametrized on a total order and, where
// needed, a u64 weight function, per spec.md §9's "trait-like bounds, not
// baked into one container" design note -- so they live in their own
// package, reusable on any ordered/weighted element type. Package octree
// supplies the Octant-specific Codec/order/weight and calls into here.
package dist

import "github.com/parallel-octree/octree/comm"

// Codec turns a T into a fixed-width wire record and back: spec.md §6's
// "all collectives that exchange octants must agree on this layout
// bit-for-bit" requirement made generic. Width must equal len(Encode(x))
// for every x -- every collective below packs slices of T as
// concatenated fixed-width records, never a length-prefixed variant
// format, so a short/garbled frame fails loudly in DecodeSlice rather
// than silently misaligning.
type Codec[T any] struct {
	Encode func(T) []byte
	Decode func([]byte) T
	Width  int
}

// EncodeSlice packs xs as Width-byte records back to back.
func (c Codec[T]) EncodeSlice(xs []T) []byte {
	buf := make([]byte, 0, len(xs)*c.Width)
	for _, x := range xs {
		buf = append(buf, c.Encode(x)...)
	}
	return buf
}

// DecodeSlice is the inverse of EncodeSlice; it panics if len(data) is not
// a multiple of Width, a malformed-frame programmer error.
func (c Codec[T]) DecodeSlice(data []byte) []T {
	if c.Width <= 0 {
		panic("dist: Codec.DecodeSlice: Width must be positive")
	}
	if len(data)%c.Width != 0 {
		panic("dist: Codec.DecodeSlice: data length not a multiple of Width")
	}
	n := len(data) / c.Width
	out := make([]T, n)
	for i := range out {
		out[i] = c.Decode(data[i*c.Width : (i+1)*c.Width])
	}
	return out
}

// Uint64Codec is the Codec for a bare uint64, used by tests and by the
// internal reductions and scan shift that carry raw weights or counts.
var Uint64Codec = Codec[uint64]{
	Encode: func(v uint64) []byte { return comm.EncodeUint64Slice([]uint64{v}) },
	Decode: func(b []byte) uint64 { return comm.DecodeUint64Slice(b)[0] },
	Width:  8,
}

// encodeOptional prepends a one-byte presence flag to an encoded T,
// spec.md §7's "empty-sequence edge cases ... must handle it" requirement
// made concrete for the cross-boundary exchange in dedup.go:
// a rank with an empty local slice has no first/last element to offer,
// and must still participate in the exchange round.
func encodeOptional[T any](codec Codec[T], v T, present bool) []byte {
	out := make([]byte, 1+codec.Width)
	if present {
		out[0] = 1
		copy(out[1:], codec.Encode(v))
	}
	return out
}

func decodeOptional[T any](codec Codec[T], data []byte) (v T, present bool) {
	if len(data) != 1+codec.Width {
		panic("dist: decodeOptional: unexpected frame length")
	}
	if data[0] == 0 {
		return v, false
	}
	return codec.Decode(data[1:]), true
}
