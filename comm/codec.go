// Copyright (c) 2024 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package comm

import "encoding/binary"

// EncodeUint64Slice lays out vs as a fixed-width, big-endian byte tuple:
// spec.md §6's wire format for an octant is exactly "anchor[0..D], depth"
// as a tuple of unsigned integers, so this one primitive (not an Octant
// type, which comm does not import, to keep this package domain-agnostic)
// covers it: callers in package octree encode Octant as
// EncodeUint64Slice(append(anchor-as-uint64, uint64(depth))).
func EncodeUint64Slice(vs []uint64) []byte {
	buf := make([]byte, 8*len(vs))
	for i, v := range vs {
		binary.BigEndian.PutUint64(buf[i*8:], v)
	}
	return buf
}

// DecodeUint64Slice is the inverse of EncodeUint64Slice; it panics if
// len(data) is not a multiple of 8, a programmer error (malformed frame),
// not a reportable runtime condition.
func DecodeUint64Slice(data []byte) []uint64 {
	if len(data)%8 != 0 {
		panic("comm: DecodeUint64Slice: data length not a multiple of 8")
	}
	out := make([]uint64, len(data)/8)
	for i := range out {
		out[i] = binary.BigEndian.Uint64(data[i*8:])
	}
	return out
}
