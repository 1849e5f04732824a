// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

// Package metrics exposes the counters of a sparse tree to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	sparse "github.com/absolutelightning/go-sparse-tree"
)

// Source is anything that reports tree statistics, typically a
// *sparse.SparseTree.
type Source interface {
	Stats() sparse.Stats
}

// Collector is a prometheus.Collector reporting the shape of one tree.
// Scraping is safe while a single goroutine writes the tree.
type Collector struct {
	src Source

	nodes     *prometheus.Desc
	leaves    *prometheus.Desc
	branches  *prometheus.Desc
	splits    *prometheus.Desc
	collapses *prometheus.Desc
	writes    *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector returns a collector for src. Every metric carries the constant
// label tree=name so several trees can be registered side by side.
func NewCollector(name string, src Source) *Collector {
	labels := prometheus.Labels{"tree": name}
	desc := func(metric, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName("sparse", "tree", metric), help, nil, labels)
	}
	return &Collector{
		src:       src,
		nodes:     desc("nodes", "Number of nodes in the tree"),
		leaves:    desc("uniform_regions", "Number of uniform regions in the tree"),
		branches:  desc("subdivided_regions", "Number of subdivided regions in the tree"),
		splits:    desc("splits_total", "Number of uniform regions split by divergent writes"),
		collapses: desc("collapses_total", "Number of subdivided regions collapsed back to uniform"),
		writes:    desc("writes_total", "Number of write operations applied to the tree"),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.nodes
	ch <- c.leaves
	ch <- c.branches
	ch <- c.splits
	ch <- c.collapses
	ch <- c.writes
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.src.Stats()
	ch <- prometheus.MustNewConstMetric(c.nodes, prometheus.GaugeValue, float64(s.Nodes))
	ch <- prometheus.MustNewConstMetric(c.leaves, prometheus.GaugeValue, float64(s.Leaves))
	ch <- prometheus.MustNewConstMetric(c.branches, prometheus.GaugeValue, float64(s.Branches))
	ch <- prometheus.MustNewConstMetric(c.splits, prometheus.CounterValue, float64(s.Splits))
	ch <- prometheus.MustNewConstMetric(c.collapses, prometheus.CounterValue, float64(s.Collapses))
	ch <- prometheus.MustNewConstMetric(c.writes, prometheus.CounterValue, float64(s.Writes))
}
