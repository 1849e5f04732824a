// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package sparse

import "github.com/pkg/errors"

var (
	// ErrInvalidDepth is returned by New when the depth is zero or too large
	// for the bisector to be represented.
	ErrInvalidDepth = errors.New("sparse: invalid depth")

	// ErrInvalidDimensions is returned by New for an unsupported dimension count.
	ErrInvalidDimensions = errors.New("sparse: invalid dimension count")

	// ErrInvalidCoordinate is returned when a key has the wrong length or a
	// component outside the domain of the tree.
	ErrInvalidCoordinate = errors.New("sparse: invalid coordinate")

	// ErrInvalidRegion is returned by Fill when a lower corner exceeds its
	// upper corner.
	ErrInvalidRegion = errors.New("sparse: invalid region")

	// ErrTxnConflict is returned on Commit when the tree was written after the
	// transaction started.
	ErrTxnConflict = errors.New("sparse: transaction conflict")

	// ErrTxnClosed is returned when a committed or aborted transaction is used.
	ErrTxnClosed = errors.New("sparse: transaction closed")
)
