// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package sparse

import "go.uber.org/zap"

type config struct {
	logger    *zap.Logger
	cacheSize int
}

// Option configures a SparseTree.
type Option func(*config)

// WithLogger sets the logger used for debug events such as splits and
// collapses. A nil logger disables logging.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithReadCache keeps the last n looked up cells in an LRU cache in front of
// the tree. A size of zero disables the cache.
func WithReadCache(n int) Option {
	return func(c *config) {
		c.cacheSize = n
	}
}

func defaultConfig() config {
	return config{
		logger: zap.NewNop(),
	}
}
