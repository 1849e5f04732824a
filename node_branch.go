// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package sparse

import "golang.org/x/exp/slices"

// NodeBranch is a subdivided region. It holds exactly one child per sector,
// so len(children) is 2^N for an N dimensional tree.
type NodeBranch[V comparable] struct {
	mutateWatch
	id       uint64
	children []Node[V]
}

func (n *NodeBranch[V]) getId() uint64 {
	return n.id
}

func (n *NodeBranch[V]) setId(id uint64) {
	n.id = id
}

func (n *NodeBranch[V]) isLeaf() bool {
	return false
}

func (n *NodeBranch[V]) getValue() V {
	var zero V
	return zero
}

func (n *NodeBranch[V]) setValue(V) {
	// no-op
}

func (n *NodeBranch[V]) getNumChildren() int {
	return len(n.children)
}

func (n *NodeBranch[V]) getChild(index int) Node[V] {
	return n.children[index]
}

func (n *NodeBranch[V]) setChild(index int, child Node[V]) {
	n.children[index] = child
}

func (n *NodeBranch[V]) getChildren() []Node[V] {
	return n.children
}

// clone copies the child slice but not the children themselves; they stay
// shared until written.
func (n *NodeBranch[V]) clone() Node[V] {
	children := make([]Node[V], len(n.children))
	copy(children, n.children)
	return &NodeBranch[V]{
		id:       n.id,
		children: children,
	}
}

func (n *NodeBranch[V]) Value() V {
	var zero V
	return zero
}

func (n *NodeBranch[V]) Children() []Node[V] {
	return slices.Clone(n.children)
}

// uniform reports whether every child is a uniform region holding the same
// value, returning that value.
func (n *NodeBranch[V]) uniform() (V, bool) {
	var zero V
	first := n.children[0]
	if !first.isLeaf() {
		return zero, false
	}
	value := first.getValue()
	for _, ch := range n.children[1:] {
		if !ch.isLeaf() || ch.getValue() != value {
			return zero, false
		}
	}
	return value, true
}
