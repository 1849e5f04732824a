// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package sparse

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"
)

// Txn is a batch of writes against a private copy of a tree. Nothing is
// visible through the tree until Commit.
//
// The tree writes through a Txn as well; such internal transactions write
// every node they own in place.
type Txn[V comparable] struct {
	tree *SparseTree[V]
	root Node[V]

	// Nodes with an id at or below watermark may be reachable from outside
	// the transaction and are copied before being written.
	watermark  uint64
	generation uint64

	delta  delta
	closed bool

	// trackMutate closes the watch channels of written and replaced nodes
	// once the transaction is installed.
	trackMutate bool
	tracked     []Node[V]
}

// Txn starts a new transaction that can be used to mutate the tree. Writes to
// the tree made while the transaction is open cause its Commit to fail.
func (t *SparseTree[V]) Txn() *Txn[V] {
	t.watermark = t.ids.Load()
	return &Txn[V]{
		tree:       t,
		root:       t.root,
		watermark:  t.watermark,
		generation: t.counters.generation.Load(),
	}
}

// TrackMutate can be used to toggle if mutations are tracked. If this is enabled
// then the watch channels of every region the transaction writes, splits,
// collapses or replaces are closed when it is committed.
func (t *Txn[V]) TrackMutate(track bool) {
	t.trackMutate = track
	if !track {
		t.tracked = nil
	}
}

// GetWatch returns the value of the cell at key as seen by the transaction
// along with a channel closed when the uniform region holding it is mutated.
func (t *Txn[V]) GetWatch(key []uint) (<-chan struct{}, V, error) {
	var zero V
	if t.closed {
		return nil, zero, ErrTxnClosed
	}
	if err := t.tree.validate(key); err != nil {
		return nil, zero, err
	}
	t.tree.watching = true
	leaf := searchLeaf(t.root, t.tree.bisector, slices.Clone(key))
	return leaf.getMutateCh(), leaf.getValue(), nil
}

// Get returns the value of the cell at key as seen by the transaction.
func (t *Txn[V]) Get(key []uint) (V, error) {
	var zero V
	if t.closed {
		return zero, ErrTxnClosed
	}
	if err := t.tree.validate(key); err != nil {
		return zero, err
	}
	return search(t.root, t.tree.bisector, slices.Clone(key)), nil
}

// Set stores value in the cell at key.
func (t *Txn[V]) Set(key []uint, value V) error {
	if t.closed {
		return ErrTxnClosed
	}
	if err := t.tree.validate(key); err != nil {
		return err
	}
	t.set(key, value)
	return nil
}

// Swap stores value in the cell at key and returns the value it held.
func (t *Txn[V]) Swap(key []uint, value V) (V, error) {
	var zero V
	if t.closed {
		return zero, ErrTxnClosed
	}
	if err := t.tree.validate(key); err != nil {
		return zero, err
	}
	return t.swap(key, value), nil
}

// Fill stores value in every cell of the inclusive box [lo, hi].
func (t *Txn[V]) Fill(lo, hi []uint, value V) error {
	if t.closed {
		return ErrTxnClosed
	}
	if err := t.tree.validateRegion(lo, hi); err != nil {
		return err
	}
	t.fill(lo, hi, value)
	return nil
}

// Commit installs the transaction's writes into the tree.
func (t *Txn[V]) Commit() error {
	if t.closed {
		return ErrTxnClosed
	}
	t.closed = true
	if gen := t.tree.counters.generation.Load(); gen != t.generation {
		return errors.Wrapf(ErrTxnConflict, "tree moved from generation %d to %d", t.generation, gen)
	}
	tree := t.tree
	tree.install(t)
	if tree.cache != nil {
		tree.cache.Purge()
	}
	if ce := tree.logger.Check(zap.DebugLevel, "committed transaction"); ce != nil {
		ce.Write(
			zap.Uint64("generation", tree.counters.generation.Load()),
			zap.Uint64("writes", t.delta.writes),
			zap.Int64("nodes", t.delta.nodes),
		)
	}
	return nil
}

// Abort discards the transaction.
func (t *Txn[V]) Abort() {
	t.closed = true
	t.root = nil
	t.tracked = nil
}

// notify closes the watch channels of every tracked node.
func (t *Txn[V]) notify() {
	for _, n := range t.tracked {
		n.notifyMutate()
	}
	t.tracked = nil
}

func (t *Txn[V]) trackNode(n Node[V]) {
	if t.trackMutate {
		t.tracked = append(t.tracked, n)
	}
}

// trackSubtree tracks n and every node below it.
func (t *Txn[V]) trackSubtree(n Node[V]) {
	if !t.trackMutate {
		return
	}
	t.trackNode(n)
	for _, ch := range n.getChildren() {
		t.trackSubtree(ch)
	}
}

func (t *Txn[V]) set(key []uint, value V) {
	t.delta.writes++
	t.root = t.recursiveSet(t.root, t.tree.bisector, slices.Clone(key), value, nil)
}

func (t *Txn[V]) swap(key []uint, value V) V {
	var old V
	t.delta.writes++
	t.root = t.recursiveSet(t.root, t.tree.bisector, slices.Clone(key), value, &old)
	return old
}

func (t *Txn[V]) fill(lo, hi []uint, value V) {
	t.delta.writes++
	t.root = t.recursiveFill(t.root, make([]uint, len(lo)), t.tree.bisector, lo, hi, value)
	if ce := t.tree.logger.Check(zap.DebugLevel, "filled region"); ce != nil {
		ce.Write(zap.Uints("lo", lo), zap.Uints("hi", hi))
	}
}

// writeNode returns a node that may be written in place: n itself when the
// transaction owns it, a copy otherwise.
func (t *Txn[V]) writeNode(n Node[V]) Node[V] {
	t.trackNode(n)
	if n.getId() > t.watermark {
		return n
	}
	nc := n.clone()
	nc.setId(t.tree.ids.Add(1))
	return nc
}

func (t *Txn[V]) allocLeaf(value V) Node[V] {
	return &NodeLeaf[V]{
		id:    t.tree.ids.Add(1),
		value: value,
	}
}

// recursiveSet writes value at key below n and returns the node replacing
// n. When prev is not nil it receives the value the cell held before.
func (t *Txn[V]) recursiveSet(n Node[V], bisector uint, key []uint, value V, prev *V) Node[V] {
	if n.isLeaf() {
		old := n.getValue()
		if prev != nil {
			*prev = old
		}
		if old == value {
			return n
		}
		// At the deepest level a region is a single cell.
		if bisector == 0 {
			n = t.writeNode(n)
			n.setValue(value)
			return n
		}
		return t.recursiveSet(t.split(n, bisector), bisector, key, value, nil)
	}

	sct, next := sector(key, bisector)
	child := n.getChild(sct)
	newChild := t.recursiveSet(child, next, key, value, prev)
	if newChild != child {
		n = t.writeNode(n)
		n.setChild(sct, newChild)
	}
	return t.collapse(n, bisector)
}

// recursiveFill writes value to every cell of the box [lo, hi] that lies in
// the region of n, which starts at origin. The region must intersect the box.
func (t *Txn[V]) recursiveFill(n Node[V], origin []uint, bisector uint, lo, hi []uint, value V) Node[V] {
	if covers(origin, sideOf(bisector), lo, hi) {
		if n.isLeaf() {
			if n.getValue() == value {
				return n
			}
			n = t.writeNode(n)
			n.setValue(value)
			return n
		}
		t.delta.nodes -= int64(countNodes(n) - 1)
		t.trackSubtree(n)
		return t.allocLeaf(value)
	}

	// A region of one cell is either covered or disjoint, so bisector > 0.
	if n.isLeaf() {
		if n.getValue() == value {
			return n
		}
		n = t.split(n, bisector)
	}
	childSide := sideOf(bisector / 2)
	for sct := 0; sct < n.getNumChildren(); sct++ {
		co := childOrigin(origin, sct, bisector)
		if !intersects(co, childSide, lo, hi) {
			continue
		}
		child := n.getChild(sct)
		newChild := t.recursiveFill(child, co, bisector/2, lo, hi, value)
		if newChild != child {
			n = t.writeNode(n)
			n.setChild(sct, newChild)
		}
	}
	return t.collapse(n, bisector)
}

// split replaces a uniform region by a subdivided one whose sectors all hold
// the region's value.
func (t *Txn[V]) split(n Node[V], bisector uint) Node[V] {
	t.trackNode(n)
	value := n.getValue()
	children := make([]Node[V], t.tree.fanout)
	for i := range children {
		children[i] = t.allocLeaf(value)
	}
	t.delta.nodes += int64(len(children))
	t.delta.splits++
	if ce := t.tree.logger.Check(zap.DebugLevel, "split uniform region"); ce != nil {
		ce.Write(zap.Uint("bisector", bisector), zap.Int("sectors", len(children)))
	}
	return &NodeBranch[V]{
		id:       t.tree.ids.Add(1),
		children: children,
	}
}

// collapse replaces a subdivided region whose sectors are all uniform with
// the same value by a single uniform region.
func (t *Txn[V]) collapse(n Node[V], bisector uint) Node[V] {
	branch := n.(*NodeBranch[V])
	value, ok := branch.uniform()
	if !ok {
		return n
	}
	t.delta.nodes -= int64(len(branch.children))
	t.delta.collapses++
	t.trackSubtree(branch)
	if ce := t.tree.logger.Check(zap.DebugLevel, "collapsed region"); ce != nil {
		ce.Write(zap.Uint("bisector", bisector))
	}
	return t.allocLeaf(value)
}

// covers reports whether the region at origin with the given side lies
// inside the box [lo, hi].
func covers(origin []uint, side uint, lo, hi []uint) bool {
	for i := range origin {
		if lo[i] > origin[i] || origin[i]+side-1 > hi[i] {
			return false
		}
	}
	return true
}

// intersects reports whether the region at origin with the given side
// shares a cell with the box [lo, hi].
func intersects(origin []uint, side uint, lo, hi []uint) bool {
	for i := range origin {
		if origin[i] > hi[i] || origin[i]+side-1 < lo[i] {
			return false
		}
	}
	return true
}
