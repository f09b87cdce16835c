// Copyright (c) 2024 Karl Gaissmaier
// SPDX-License-Identifier: MIT

// Package octree implements a Morton-ordered linear octree/quadtree and the
// octree-shaped algorithms built on top of it: complete-region (algorithm 3),
// complete-octree / block-partition (algorithm 4), and points2octree.
//
// The generic bulk-synchronous building blocks these algorithms are built
// from — distributed scan, weighted partition, sample sort, sorted-range
// count, remove-duplicates — live in package dist, since they are not
// specific to octants: they operate on any ordered, optionally weighted
// element type, driven by a package comm communicator.
//
// Octants are values: (Anchor, Depth). Dmax and D (the number of spatial
// dimensions, 2 or 3) are runtime configuration, carried on a *Space rather
// than baked in as package-level constants, so a process can build several
// spaces at different resolutions without global state. A Space is created
// once with NewSpace and is safe for concurrent use by every rank, since it
// never mutates after construction.
package octree
