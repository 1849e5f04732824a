// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package sparse

import "sync/atomic"

// Stats is a point in time view of the shape and history of a tree.
type Stats struct {
	// Nodes is the number of nodes reachable from the root, uniform and
	// subdivided alike.
	Nodes int
	// Leaves is the number of uniform regions.
	Leaves int
	// Branches is the number of subdivided regions.
	Branches int

	Splits    uint64
	Collapses uint64
	Writes    uint64

	// Generation is bumped on every committed mutation.
	Generation uint64
}

// counters are updated by the single mutator and may be read concurrently,
// which lets a metrics collector scrape a tree that is being written.
type counters struct {
	nodes      atomic.Int64
	splits     atomic.Uint64
	collapses  atomic.Uint64
	writes     atomic.Uint64
	generation atomic.Uint64
}

// delta accumulates counter changes inside a transaction until commit.
type delta struct {
	nodes     int64
	splits    uint64
	collapses uint64
	writes    uint64
}

func (c *counters) apply(d delta) {
	c.nodes.Add(d.nodes)
	c.splits.Add(d.splits)
	c.collapses.Add(d.collapses)
	c.writes.Add(d.writes)
	c.generation.Add(1)
}

func (c *counters) copyFrom(o *counters) {
	c.nodes.Store(o.nodes.Load())
	c.splits.Store(o.splits.Load())
	c.collapses.Store(o.collapses.Load())
	c.writes.Store(o.writes.Load())
	c.generation.Store(o.generation.Load())
}

func (c *counters) snapshot(fanout int) Stats {
	nodes := int(c.nodes.Load())
	// Every branch owns exactly fanout children and the root has no parent.
	branches := (nodes - 1) / fanout
	return Stats{
		Nodes:      nodes,
		Leaves:     nodes - branches,
		Branches:   branches,
		Splits:     c.splits.Load(),
		Collapses:  c.collapses.Load(),
		Writes:     c.writes.Load(),
		Generation: c.generation.Load(),
	}
}
