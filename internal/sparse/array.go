// Copyright (c) 2024 Karl Gaissmaier
// SPDX-License-Identifier: MIT

// Package sparse implements a generic sparse array with popcount
// compression, indexed by a small bounded key (a child-octant slot,
// 0..2^D-1) rather than a byte-wide CIDR octet.
package sparse

import (
	"github.com/parallel-octree/octree/internal/bitset"
)

// Array is a sparse array with popcount compression and payload T, backed
// by a single-word bitset since every domain it indexes here (child slots
// of a 2^D-ary node) fits in 64 bits.
type Array[T any] struct {
	bitset.Set64
	Items []T
}

// Len returns the number of items in the sparse array.
func (s *Array[T]) Len() int {
	return len(s.Items)
}

// Copy returns a shallow copy of the Array. The elements are copied by
// assignment; this is not a deep clone.
func (s *Array[T]) Copy() *Array[T] {
	if s == nil {
		return nil
	}
	var items []T
	if s.Items != nil {
		items = make([]T, len(s.Items), cap(s.Items))
		copy(items, s.Items)
	}
	return &Array[T]{s.Set64, items}
}

// InsertAt inserts val at slot i. If the slot is already occupied, val
// overwrites it and InsertAt reports true.
func (s *Array[T]) InsertAt(i uint, val T) (exists bool) {
	if s.Len() != 0 && s.Test(i) {
		s.Items[s.Rank0(i)] = val
		return true
	}
	s.Set64 = s.Set(i)
	s.insertItem(val, s.Rank0(i))
	return false
}

// DeleteAt removes the value at slot i, shifting the tail left.
func (s *Array[T]) DeleteAt(i uint) (val T, exists bool) {
	if s.Len() == 0 || !s.Test(i) {
		return
	}
	idx := s.Rank0(i)
	val = s.Items[idx]
	s.deleteItem(idx)
	s.Set64 = s.Clear(i)
	return val, true
}

// Get returns the value at slot i, if present.
func (s *Array[T]) Get(i uint) (val T, ok bool) {
	if s.Test(i) {
		return s.Items[s.Rank0(i)], true
	}
	return
}

// MustGet returns the value at slot i; the caller must have already
// confirmed presence with Test, or this may panic.
func (s *Array[T]) MustGet(i uint) T {
	return s.Items[s.Rank0(i)]
}

func (s *Array[T]) insertItem(item T, i int) {
	if len(s.Items) < cap(s.Items) {
		s.Items = s.Items[:len(s.Items)+1]
	} else {
		var zero T
		s.Items = append(s.Items, zero)
	}
	copy(s.Items[i+1:], s.Items[i:])
	s.Items[i] = item
}

func (s *Array[T]) deleteItem(i int) {
	var zero T
	l := len(s.Items) - 1
	copy(s.Items[i:], s.Items[i+1:])
	s.Items[l] = zero
	s.Items = s.Items[:l]
}
