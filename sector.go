// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package sparse

import "golang.org/x/exp/slices"

// Region is an axis aligned hypercube of cells sharing one value.
type Region struct {
	// Origin is the lowest coordinate of the region on each axis.
	Origin []uint
	// Side is the number of cells along every axis. Zero stands for
	// 2^UintSize, the root region of a MaxDepth tree.
	Side uint
}

// Contains reports whether key lies inside the region.
func (r Region) Contains(key []uint) bool {
	if len(key) != len(r.Origin) {
		return false
	}
	last := r.Side - 1
	for i, c := range key {
		if c < r.Origin[i] || c-r.Origin[i] > last {
			return false
		}
	}
	return true
}

// Cells returns the number of cells covered by the region, saturating at
// the maximum uint.
func (r Region) Cells() uint {
	n := uint(1)
	for range r.Origin {
		if r.Side == 0 || n > ^uint(0)/r.Side {
			return ^uint(0)
		}
		n *= r.Side
	}
	return n
}

// sector selects the child of a subdivided region that holds key and
// rewrites key into that child's frame. It returns the sector index and the
// bisector of the child.
func sector(key []uint, bisector uint) (int, uint) {
	sct := 0
	for i := range key {
		if key[i] >= bisector {
			key[i] -= bisector
			sct |= 1 << i
		}
	}
	return sct, bisector / 2
}

// sideOf returns the side length of a region with the given bisector. It
// wraps to 0 for the root of a MaxDepth tree; side-1 is the last offset in
// every case.
func sideOf(bisector uint) uint {
	if bisector == 0 {
		return 1
	}
	return bisector * 2
}

// childOrigin returns the origin of sector sct of a region at origin whose
// bisector is bisector.
func childOrigin(origin []uint, sct int, bisector uint) []uint {
	o := slices.Clone(origin)
	for i := range o {
		if sct&(1<<i) != 0 {
			o[i] += bisector
		}
	}
	return o
}
