// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package sparse

// Iterator is used to iterate over the uniform regions of a tree in sector
// order, the same order Walk uses.
type Iterator[V comparable] struct {
	node    Node[V]
	stack   []iterEntry[V]
	pos     Node[V]
	dims    int
	bisec   uint
	started bool
}

// iterEntry is a node of the frontier together with the geometry of its
// region.
type iterEntry[V comparable] struct {
	node     Node[V]
	origin   []uint
	bisector uint
}

// Iterator returns an Iterator over the regions of the tree. The tree must
// not be written while the iterator is in use.
func (t *SparseTree[V]) Iterator() *Iterator[V] {
	return &Iterator[V]{
		node:  t.root,
		dims:  t.dims,
		bisec: t.bisector,
	}
}

// Front returns the current node that has been iterated to.
func (i *Iterator[V]) Front() Node[V] {
	return i.pos
}

// Next returns the next uniform region and its value, or false once every
// region has been returned.
func (i *Iterator[V]) Next() (Region, V, bool) {
	var zero V

	if !i.started {
		i.started = true
		if i.node != nil {
			i.stack = []iterEntry[V]{{node: i.node, origin: make([]uint, i.dims), bisector: i.bisec}}
		}
	}

	for len(i.stack) > 0 {
		n := len(i.stack)
		e := i.stack[n-1]
		i.stack = i.stack[:n-1]

		if e.node.isLeaf() {
			i.pos = e.node
			return Region{Origin: e.origin, Side: sideOf(e.bisector)}, e.node.getValue(), true
		}

		// Push in reverse so sector 0 is visited first.
		children := e.node.getChildren()
		for sct := len(children) - 1; sct >= 0; sct-- {
			i.stack = append(i.stack, iterEntry[V]{
				node:     children[sct],
				origin:   childOrigin(e.origin, sct, e.bisector),
				bisector: e.bisector / 2,
			})
		}
	}
	i.pos = nil
	return Region{}, zero, false
}
