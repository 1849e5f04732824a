// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package sparse

import "sync/atomic"

// Node is a region of the tree. It is either a *NodeLeaf, a region in which
// every cell holds the same value, or a *NodeBranch, a region subdivided into
// one child per sector.
type Node[V comparable] interface {
	getId() uint64
	setId(uint64)
	isLeaf() bool
	getValue() V
	setValue(V)
	getNumChildren() int
	getChild(int) Node[V]
	setChild(int, Node[V])
	getChildren() []Node[V]
	clone() Node[V]
	getMutateCh() chan struct{}
	notifyMutate()

	// Value returns the value of a uniform region. It is the zero value for
	// a subdivided region.
	Value() V
	// Children returns a copy of the sectors of a subdivided region, indexed
	// by sector mask. It is nil for a uniform region.
	Children() []Node[V]
}

// mutateWatch holds the channel closed when a node is written or replaced.
// The channel is created on first use, so nodes nobody watches carry none.
type mutateWatch struct {
	mutateCh atomic.Pointer[chan struct{}]
}

func (w *mutateWatch) getMutateCh() chan struct{} {
	ch := w.mutateCh.Load()
	if ch != nil {
		return *ch
	}

	// No chan yet, create one
	newCh := make(chan struct{})

	if w.mutateCh.CompareAndSwap(nil, &newCh) {
		return newCh
	}
	return *w.mutateCh.Load()
}

// notifyMutate closes the current channel, if any, and detaches it so the
// next watcher gets a fresh one.
func (w *mutateWatch) notifyMutate() {
	if ch := w.mutateCh.Swap(nil); ch != nil {
		close(*ch)
	}
}
