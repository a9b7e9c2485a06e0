// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gpu

import (
	"fmt"
	"slices"

	"github.com/gomlx/gpulayout/pkg/support/sets"
	"github.com/pkg/errors"
)

// ErrMalformedDimensionNumbers is returned (wrapped) when the dimension numbers of a dot or convolution
// refer to axes out-of-bounds, repeat an axis, or are otherwise inconsistent with the operands.
var ErrMalformedDimensionNumbers = errors.New("malformed dimension numbers")

// DimGroup is the role of an axis of a dot operand.
type DimGroup int

//go:generate go tool enumer -type=DimGroup -trimprefix=DimGroup -output=gen_dimgroup_enumer.go classify.go

const (
	// DimGroupBatch axes are replicated independently across the parallel matrix multiplications.
	DimGroupBatch DimGroup = iota

	// DimGroupContraction axes are summed over.
	DimGroupContraction

	// DimGroupFree axes are neither batch nor contracted: they survive into the result.
	DimGroupFree
)

// DimGroups is the partition of the axes of an operand into batch, contraction and free axes.
type DimGroups struct {
	Batch, Contraction, Free []int
}

// Get returns the axes of the given group.
func (g DimGroups) Get(group DimGroup) []int {
	switch group {
	case DimGroupBatch:
		return g.Batch
	case DimGroupContraction:
		return g.Contraction
	case DimGroupFree:
		return g.Free
	}
	return nil
}

// String implements fmt.Stringer.
func (g DimGroups) String() string {
	return fmt.Sprintf("batch=%v, contraction=%v, free=%v", g.Batch, g.Contraction, g.Free)
}

// Rank returns the total number of axes in the groups.
func (g DimGroups) Rank() int { return len(g.Batch) + len(g.Contraction) + len(g.Free) }

// ClassifyDims partitions the axes {0, ..., rank-1} of an operand into groups.
//
// Batch and Contraction keep the order given, since the i-th batch (or contracting) axis of one dot operand is
// paired with the i-th of the other. Free holds the remaining axes in increasing order.
//
// It returns an error wrapping ErrMalformedDimensionNumbers if an axis is out-of-bounds, repeated, or
// is both a batch and a contraction axis.
func ClassifyDims(rank int, batch, contraction []int) (groups DimGroups, err error) {
	used := sets.Make[int](rank)
	for _, group := range []struct {
		name string
		axes []int
	}{{"batch", batch}, {"contracting", contraction}} {
		for _, axis := range group.axes {
			if axis < 0 || axis >= rank {
				return groups, errors.Wrapf(ErrMalformedDimensionNumbers, "%s axis %d out-of-bounds for rank %d", group.name, axis, rank)
			}
			if !used.InsertNew(axis) {
				return groups, errors.Wrapf(ErrMalformedDimensionNumbers, "%s axis %d given more than once (batch=%v, contracting=%v)",
					group.name, axis, batch, contraction)
			}
		}
	}
	groups.Batch = slices.Clone(batch)
	groups.Contraction = slices.Clone(contraction)
	groups.Free = make([]int, 0, rank-len(used))
	for axis := range rank {
		if !used.Has(axis) {
			groups.Free = append(groups.Free, axis)
		}
	}
	if groups.Batch == nil {
		groups.Batch = []int{}
	}
	if groups.Contraction == nil {
		groups.Contraction = []int{}
	}
	return groups, nil
}
