// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package shapes

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/gomlx/gpulayout/pkg/support/sets"
	"github.com/gomlx/gpulayout/pkg/support/xslices"
	"github.com/pkg/errors"
)

// Layout describes the physical ordering of the axes of an array in memory.
//
// MinorToMajor lists the axes starting from the most-minor one (the one whose consecutive
// elements are adjacent in memory) up to the most-major one. A valid layout for a rank-r
// shape is a permutation of {0, ..., r-1}.
//
// The zero value (MinorToMajor == nil) means "no layout assigned".
type Layout struct {
	MinorToMajor []int
}

// MakeLayout creates a Layout from the axes given in minor-to-major order.
func MakeLayout(minorToMajor ...int) Layout {
	if minorToMajor == nil {
		minorToMajor = []int{}
	}
	return Layout{MinorToMajor: slices.Clone(minorToMajor)}
}

// MakeLayoutFromMajorToMinor creates a Layout from the axes given in major-to-minor order,
// which is how one usually reads a row-major array declaration.
func MakeLayoutFromMajorToMinor(majorToMinor ...int) Layout {
	return MakeLayout(xslices.Reversed(majorToMinor)...)
}

// DefaultLayout returns the row-major layout for the given rank: axis 0 is the most-major
// and axis rank-1 the most-minor.
func DefaultLayout(rank int) Layout {
	return MakeLayoutFromMajorToMinor(xslices.Iota(0, rank)...)
}

// FortranLayout returns the column-major layout on the two minor-most axes of the given rank,
// the remaining axes keep the default order. It panics for rank < 2.
func FortranLayout(rank int) Layout {
	if rank < 2 {
		panic(errors.Errorf("FortranLayout requires rank >= 2, got rank %d", rank))
	}
	layout := DefaultLayout(rank)
	layout.MinorToMajor[0], layout.MinorToMajor[1] = layout.MinorToMajor[1], layout.MinorToMajor[0]
	return layout
}

// Rank returns the number of axes in the layout.
func (l Layout) Rank() int { return len(l.MinorToMajor) }

// MajorToMinor returns the axes from the most-major to the most-minor.
func (l Layout) MajorToMinor() []int { return xslices.Reversed(l.MinorToMajor) }

// Major returns the most-major axis. It panics for empty layouts.
func (l Layout) Major() int { return l.MinorToMajor[len(l.MinorToMajor)-1] }

// PhysicalPosition returns the position of axis in the minor-to-major order, or -1 if not present.
func (l Layout) PhysicalPosition(axis int) int { return slices.Index(l.MinorToMajor, axis) }

// Validate returns an error if the layout is not a permutation of {0..rank-1}.
func (l Layout) Validate(rank int) error {
	if l.MinorToMajor == nil {
		return errors.Errorf("layout not set, expected a permutation of rank %d", rank)
	}
	if len(l.MinorToMajor) != rank {
		return errors.Errorf("layout %s has %d axes, expected rank %d", l, len(l.MinorToMajor), rank)
	}
	seen := sets.Make[int](rank)
	for _, axis := range l.MinorToMajor {
		if axis < 0 || axis >= rank {
			return errors.Errorf("layout %s has axis %d out-of-bounds for rank %d", l, axis, rank)
		}
		if !seen.InsertNew(axis) {
			return errors.Errorf("layout %s has axis %d repeated", l, axis)
		}
	}
	return nil
}

// Equal returns whether both layouts have the same axes order. Two unset layouts are equal.
func (l Layout) Equal(l2 Layout) bool {
	if (l.MinorToMajor == nil) != (l2.MinorToMajor == nil) {
		return false
	}
	return slices.Equal(l.MinorToMajor, l2.MinorToMajor)
}

// IsDefault returns whether the layout is the row-major layout for its rank.
func (l Layout) IsDefault() bool {
	return l.MinorToMajor != nil && l.Equal(DefaultLayout(l.Rank()))
}

// Clone returns a deep copy of the layout.
func (l Layout) Clone() Layout {
	return Layout{MinorToMajor: slices.Clone(l.MinorToMajor)}
}

// String returns the minor-to-major order within curly braces, e.g.: "{1,0}".
func (l Layout) String() string {
	if l.MinorToMajor == nil {
		return "{unset}"
	}
	return "{" + strings.Join(xslices.Map(l.MinorToMajor, strconv.Itoa), ",") + "}"
}

// GoString implements fmt.GoStringer.
func (l Layout) GoString() string {
	return fmt.Sprintf("shapes.MakeLayout(%s)", strings.Join(xslices.Map(l.MinorToMajor, strconv.Itoa), ", "))
}

// MoveAxisToMajor returns a copy of the layout with axis moved to the most-major position,
// keeping the relative order of the other axes.
func (l Layout) MoveAxisToMajor(axis int) Layout {
	moved := make([]int, 0, len(l.MinorToMajor))
	for _, a := range l.MinorToMajor {
		if a != axis {
			moved = append(moved, a)
		}
	}
	moved = append(moved, axis)
	return Layout{MinorToMajor: moved}
}

// ThroughPermutation maps a layout given in terms of the axes of the output of a transpose
// to the layout of the transpose operand that makes the transpose a bitcast (no data movement).
//
// permutation follows the transpose convention: output axis i is operand axis permutation[i].
func (l Layout) ThroughPermutation(permutation []int) Layout {
	return Layout{MinorToMajor: xslices.Map(l.MinorToMajor, func(axis int) int { return permutation[axis] })}
}

// InversePermutation returns the permutation that undoes permutation.
func InversePermutation(permutation []int) []int {
	inverse := make([]int, len(permutation))
	for to, from := range permutation {
		inverse[from] = to
	}
	return inverse
}
