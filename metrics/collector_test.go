// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package metrics

import (
	"fmt"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	sparse "github.com/absolutelightning/go-sparse-tree"
)

func TestCollector(t *testing.T) {
	t.Parallel()

	tree, err := sparse.New[int](2, 2, 0)
	require.NoError(t, err)
	require.NoError(t, tree.Set([]uint{0, 0}, 1))

	c := NewCollector("grid", tree)
	require.NoError(t, prometheus.NewPedanticRegistry().Register(c))
	require.Equal(t, 6, testutil.CollectAndCount(c))

	expected := `
# HELP sparse_tree_nodes Number of nodes in the tree
# TYPE sparse_tree_nodes gauge
sparse_tree_nodes{tree="grid"} 5
# HELP sparse_tree_splits_total Number of uniform regions split by divergent writes
# TYPE sparse_tree_splits_total counter
sparse_tree_splits_total{tree="grid"} 1
# HELP sparse_tree_subdivided_regions Number of subdivided regions in the tree
# TYPE sparse_tree_subdivided_regions gauge
sparse_tree_subdivided_regions{tree="grid"} 1
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected),
		"sparse_tree_nodes", "sparse_tree_splits_total", "sparse_tree_subdivided_regions"))

	require.NoError(t, tree.Set([]uint{0, 0}, 0))
	expected = `
# HELP sparse_tree_collapses_total Number of subdivided regions collapsed back to uniform
# TYPE sparse_tree_collapses_total counter
sparse_tree_collapses_total{tree="grid"} 1
# HELP sparse_tree_uniform_regions Number of uniform regions in the tree
# TYPE sparse_tree_uniform_regions gauge
sparse_tree_uniform_regions{tree="grid"} 1
# HELP sparse_tree_writes_total Number of write operations applied to the tree
# TYPE sparse_tree_writes_total counter
sparse_tree_writes_total{tree="grid"} 2
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected),
		"sparse_tree_collapses_total", "sparse_tree_uniform_regions", "sparse_tree_writes_total"))
}

func TestCollector_ScrapeWhileWriting(t *testing.T) {
	t.Parallel()

	tree, err := sparse.New[int](2, 6, 0)
	require.NoError(t, err)
	c := NewCollector("busy", tree)

	const writes = 2000
	done := make(chan struct{})
	var g errgroup.Group
	g.Go(func() error {
		defer close(done)
		for i := 0; i < writes; i++ {
			x, y := uint(i*7)%32, uint(i*13)%32
			if err := tree.Set([]uint{x, y}, i%3); err != nil {
				return err
			}
			if i%50 == 0 {
				if err := tree.Fill([]uint{0, 0}, []uint{x, y}, i%3); err != nil {
					return err
				}
			}
		}
		return nil
	})
	g.Go(func() error {
		for {
			select {
			case <-done:
				return nil
			default:
			}
			if n := testutil.CollectAndCount(c); n != 6 {
				return fmt.Errorf("collected %d metrics, want 6", n)
			}
			s := tree.Stats()
			if s.Nodes < 1 || s.Leaves < 1 {
				return fmt.Errorf("inconsistent snapshot %+v", s)
			}
		}
	})
	require.NoError(t, g.Wait())

	s := tree.Stats()
	require.Equal(t, uint64(writes+writes/50), s.Writes)
	require.Equal(t, tree.NodeCount(), s.Nodes)
	require.Equal(t, s.Nodes, s.Leaves+s.Branches)
}
