// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package sparse

import (
	"encoding/binary"
	"math/bits"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"
)

const (
	// MaxDimensions bounds the fan-out of a subdivided region to 2^16 sectors.
	MaxDimensions = 16

	// MaxDepth is the deepest tree whose bisector still fits in a uint. At
	// this depth every uint is a valid coordinate.
	MaxDepth = bits.UintSize + 1
)

// SparseTree is a dense N dimensional grid of values in which every region
// whose cells share one value is stored as a single node.
//
// A SparseTree is not safe for concurrent use. Stats may be read while a
// single goroutine mutates the tree.
type SparseTree[V comparable] struct {
	root     Node[V]
	dims     int
	depth    uint
	bisector uint
	fanout   int

	// ids is shared between a tree and its clones so that node ids are
	// unique across every tree that may hold a node.
	ids *atomic.Uint64
	// watermark is the highest id that may be reachable from another tree or
	// an open transaction. Such nodes are copied before they are written.
	watermark uint64

	// watching is set once a watch channel was handed out; until then
	// writes skip mutation tracking.
	watching bool

	counters  counters
	cache     *lru.Cache[string, V]
	cacheSize int
	logger    *zap.Logger
}

// WalkFn is used when walking the tree. Takes a
// uniform region and its value, returning if iteration should
// be terminated.
type WalkFn[V comparable] func(r Region, v V) bool

// DfsFn is called for every node in a pre-order walk.
type DfsFn[V comparable] func(n Node[V])

// New returns a tree of dims dimensions whose domain has a side of
// 2^(depth-1) cells on every axis, each holding initial.
func New[V comparable](dims int, depth uint, initial V, opts ...Option) (*SparseTree[V], error) {
	if dims < 1 || dims > MaxDimensions {
		return nil, errors.Wrapf(ErrInvalidDimensions, "got %d, want 1 to %d", dims, MaxDimensions)
	}
	if depth < 1 || depth > MaxDepth {
		return nil, errors.Wrapf(ErrInvalidDepth, "got %d, want 1 to %d", depth, MaxDepth)
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}

	t := &SparseTree[V]{
		dims:      dims,
		depth:     depth,
		fanout:    1 << dims,
		ids:       &atomic.Uint64{},
		cacheSize: cfg.cacheSize,
		logger:    cfg.logger,
	}
	if depth > 1 {
		t.bisector = 1 << (depth - 2)
	}
	if err := t.initCache(); err != nil {
		return nil, err
	}
	t.root = &NodeLeaf[V]{
		id:    t.ids.Add(1),
		value: initial,
	}
	t.counters.nodes.Store(1)
	return t, nil
}

func (t *SparseTree[V]) initCache() error {
	if t.cacheSize <= 0 {
		return nil
	}
	cache, err := lru.New[string, V](t.cacheSize)
	if err != nil {
		return errors.Wrap(err, "sparse: creating read cache")
	}
	t.cache = cache
	return nil
}

// Clone returns an independent copy of the tree in constant time. The two
// trees share their nodes until either one writes to them.
func (t *SparseTree[V]) Clone() *SparseTree[V] {
	t.watermark = t.ids.Load()
	nt := &SparseTree[V]{
		root:      t.root,
		dims:      t.dims,
		depth:     t.depth,
		bisector:  t.bisector,
		fanout:    t.fanout,
		ids:       t.ids,
		watermark: t.watermark,
		cacheSize: t.cacheSize,
		logger:    t.logger,
		watching:  t.watching,
	}
	nt.counters.copyFrom(&t.counters)
	if err := nt.initCache(); err != nil {
		nt.logger.Warn("read cache disabled on clone", zap.Error(err))
	}
	return nt
}

// Depth returns the depth the tree was created with.
func (t *SparseTree[V]) Depth() uint {
	return t.depth
}

// Dimensions returns the number of components of every key.
func (t *SparseTree[V]) Dimensions() int {
	return t.dims
}

// Side returns the number of cells along each axis of the domain. A tree of
// MaxDepth spans 2^UintSize cells per axis, which is reported as 0.
func (t *SparseTree[V]) Side() uint {
	return sideOf(t.bisector)
}

// Root returns the root node of the tree which can be used for richer
// query operations.
func (t *SparseTree[V]) Root() Node[V] {
	return t.root
}

// NodeCount returns the number of nodes in the tree. A tree whose cells all
// hold the same value has exactly one node.
func (t *SparseTree[V]) NodeCount() int {
	return int(t.counters.nodes.Load())
}

// Stats returns the current counters of the tree.
func (t *SparseTree[V]) Stats() Stats {
	return t.counters.snapshot(t.fanout)
}

// Get returns the value of the cell at key.
func (t *SparseTree[V]) Get(key []uint) (V, error) {
	var zero V
	if err := t.validate(key); err != nil {
		return zero, err
	}
	if t.cache == nil {
		return search(t.root, t.bisector, slices.Clone(key)), nil
	}
	ck := cacheKey(key)
	if v, ok := t.cache.Get(ck); ok {
		return v, nil
	}
	v := search(t.root, t.bisector, slices.Clone(key))
	t.cache.Add(ck, v)
	return v, nil
}

// GetWatch returns the value of the cell at key along with a channel that is
// closed when the uniform region holding the cell is written, split,
// collapsed or replaced. Writes elsewhere in the tree leave it open. Trees
// sharing the region through Clone close it when either of them writes it.
func (t *SparseTree[V]) GetWatch(key []uint) (<-chan struct{}, V, error) {
	var zero V
	if err := t.validate(key); err != nil {
		return nil, zero, err
	}
	t.watching = true
	leaf := searchLeaf(t.root, t.bisector, slices.Clone(key))
	return leaf.getMutateCh(), leaf.getValue(), nil
}

// Set stores value in the cell at key.
func (t *SparseTree[V]) Set(key []uint, value V) error {
	if err := t.validate(key); err != nil {
		return err
	}
	txn := t.writer()
	txn.set(key, value)
	t.install(txn)
	if t.cache != nil {
		t.cache.Add(cacheKey(key), value)
	}
	return nil
}

// Swap stores value in the cell at key and returns the value it held
// before.
func (t *SparseTree[V]) Swap(key []uint, value V) (V, error) {
	var zero V
	if err := t.validate(key); err != nil {
		return zero, err
	}
	txn := t.writer()
	old := txn.swap(key, value)
	t.install(txn)
	if t.cache != nil {
		t.cache.Add(cacheKey(key), value)
	}
	return old, nil
}

// Fill stores value in every cell of the box whose lowest and highest
// corners are lo and hi, both inclusive.
func (t *SparseTree[V]) Fill(lo, hi []uint, value V) error {
	if err := t.validateRegion(lo, hi); err != nil {
		return err
	}
	txn := t.writer()
	txn.fill(lo, hi, value)
	t.install(txn)
	if t.cache != nil {
		t.cache.Purge()
	}
	return nil
}

// Walk is used to walk every uniform region of the tree in sector order.
func (t *SparseTree[V]) Walk(fn WalkFn[V]) {
	recursiveWalk(t.root, make([]uint, t.dims), t.bisector, fn)
}

// DFS walks every node of the tree in pre-order.
func (t *SparseTree[V]) DFS(fn DfsFn[V]) {
	t.DFSNode(t.root, fn)
}

// DFSNode walks n and its descendants in pre-order.
func (t *SparseTree[V]) DFSNode(n Node[V], fn DfsFn[V]) {
	fn(n)
	for _, ch := range n.getChildren() {
		t.DFSNode(ch, fn)
	}
}

// writer returns a transaction that writes the tree's unshared nodes in
// place.
func (t *SparseTree[V]) writer() *Txn[V] {
	return &Txn[V]{
		tree:        t,
		root:        t.root,
		watermark:   t.watermark,
		generation:  t.counters.generation.Load(),
		trackMutate: t.watching,
	}
}

func (t *SparseTree[V]) install(txn *Txn[V]) {
	t.root = txn.root
	t.counters.apply(txn.delta)
	txn.closed = true
	txn.notify()
}

func (t *SparseTree[V]) validate(key []uint) error {
	if len(key) != t.dims {
		return errors.Wrapf(ErrInvalidCoordinate, "key has %d components, tree has %d dimensions", len(key), t.dims)
	}
	for i, c := range key {
		if !t.inDomain(c) {
			return errors.Wrapf(ErrInvalidCoordinate, "component %d is %d, depth %d allows below 2^%d", i, c, t.depth, t.depth-1)
		}
	}
	return nil
}

// inDomain reports whether c is a valid coordinate component. A depth 1
// tree has a single cell and a zero bisector.
func (t *SparseTree[V]) inDomain(c uint) bool {
	if t.bisector == 0 {
		return c == 0
	}
	return c/2 < t.bisector
}

func (t *SparseTree[V]) validateRegion(lo, hi []uint) error {
	if err := t.validate(lo); err != nil {
		return err
	}
	if err := t.validate(hi); err != nil {
		return err
	}
	for i := range lo {
		if lo[i] > hi[i] {
			return errors.Wrapf(ErrInvalidRegion, "axis %d: %d > %d", i, lo[i], hi[i])
		}
	}
	return nil
}

// search returns the value of the cell at key below n. key is consumed.
func search[V comparable](n Node[V], bisector uint, key []uint) V {
	return searchLeaf(n, bisector, key).getValue()
}

// searchLeaf descends from n to the uniform region holding key. key is
// consumed.
func searchLeaf[V comparable](n Node[V], bisector uint, key []uint) Node[V] {
	for !n.isLeaf() {
		var sct int
		sct, bisector = sector(key, bisector)
		n = n.getChild(sct)
	}
	return n
}

// recursiveWalk is used to do a pre-order walk of a node
// recursively. Returns true if the walk should be aborted
func recursiveWalk[V comparable](n Node[V], origin []uint, bisector uint, fn WalkFn[V]) bool {
	if n.isLeaf() {
		return fn(Region{Origin: origin, Side: sideOf(bisector)}, n.getValue())
	}
	for sct, ch := range n.getChildren() {
		if recursiveWalk(ch, childOrigin(origin, sct, bisector), bisector/2, fn) {
			return true
		}
	}
	return false
}

// countNodes returns the size of the subtree rooted at n.
func countNodes[V comparable](n Node[V]) int {
	count := 1
	for _, ch := range n.getChildren() {
		count += countNodes(ch)
	}
	return count
}

func cacheKey(key []uint) string {
	buf := make([]byte, 0, len(key)*binary.MaxVarintLen64)
	for _, c := range key {
		buf = binary.AppendUvarint(buf, uint64(c))
	}
	return string(buf)
}
