// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package sparse

// NodeLeaf is a uniform region.
type NodeLeaf[V comparable] struct {
	mutateWatch
	id    uint64
	value V
}

func (n *NodeLeaf[V]) getId() uint64 {
	return n.id
}

func (n *NodeLeaf[V]) setId(id uint64) {
	n.id = id
}

func (n *NodeLeaf[V]) isLeaf() bool {
	return true
}

func (n *NodeLeaf[V]) getValue() V {
	return n.value
}

func (n *NodeLeaf[V]) setValue(value V) {
	n.value = value
}

func (n *NodeLeaf[V]) getNumChildren() int {
	return 0
}

func (n *NodeLeaf[V]) getChild(int) Node[V] {
	return nil
}

func (n *NodeLeaf[V]) setChild(int, Node[V]) {
	// no-op
}

func (n *NodeLeaf[V]) getChildren() []Node[V] {
	return nil
}

func (n *NodeLeaf[V]) clone() Node[V] {
	return &NodeLeaf[V]{
		id:    n.id,
		value: n.value,
	}
}

func (n *NodeLeaf[V]) Value() V {
	return n.value
}

func (n *NodeLeaf[V]) Children() []Node[V] {
	return nil
}
