// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package shapes defines Shape and Layout and associated tools.
//
// Shape represents the logical shape (DType and dimensions) of a value flowing through
// a dataflow graph, optionally together with the physical Layout of its elements in memory.
//
// ## Glossary
//
//   - Rank: number of axes (dimensions) of a tensor.
//   - Axis: the index of a dimension. Dimensions are identified by position, not by name.
//   - Dimension: the size of a tensor along one of its axes.
//   - Layout: a permutation of the axes, listed from the most-minor (fastest varying in memory)
//     to the most-major. See Layout.
//   - Tuple: a shape made of other shapes, used for instructions that return more than one buffer.
//
// Example: `shapes.Make(dtypes.Float32, 2, 3)` has rank 2; with its default layout `{1,0}`
// axis 1 is contiguous in memory (row-major).
package shapes

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
)

// Shape represents the shape of a value, and optionally its physical layout.
//
// Use Make to create a new shape.
type Shape struct {
	DType       dtypes.DType
	Dimensions  []int
	Layout      Layout  // Physical ordering, if HasLayout(). Not used for tuples.
	TupleShapes []Shape // Shapes of the tuple, if this is a tuple.
}

// Make returns a Shape structure filled with the values given, without a layout.
// See MakeTuple for tuple shapes.
func Make(dtype dtypes.DType, dimensions ...int) Shape {
	s := Shape{Dimensions: slices.Clone(dimensions), DType: dtype}
	for _, dim := range dimensions {
		if dim <= 0 {
			exceptions.Panicf("shapes.Make(%s): cannot create a shape with an axis with dimension <= 0", s)
		}
	}
	return s
}

// MakeWithLayout returns a Shape with the given dimensions and a layout given in minor-to-major order.
// It panics if the layout is not a permutation of the axes.
func MakeWithLayout(dtype dtypes.DType, dimensions []int, minorToMajor []int) Shape {
	s := Make(dtype, dimensions...)
	layout := MakeLayout(minorToMajor...)
	if err := layout.Validate(s.Rank()); err != nil {
		exceptions.Panicf("shapes.MakeWithLayout(%s): %v", s, err)
	}
	s.Layout = layout
	return s
}

// Invalid returns an invalid shape.
//
// Invalid().Ok() == false.
func Invalid() Shape {
	return Shape{DType: dtypes.InvalidDType}
}

// Ok returns whether this is a valid Shape. A "zero" shape, that is just instantiating it with Shape{} will be invalid.
func (s Shape) Ok() bool { return s.DType != dtypes.InvalidDType || len(s.TupleShapes) > 0 }

// Rank of the shape, that is, the number of dimensions.
func (s Shape) Rank() int { return len(s.Dimensions) }

// IsScalar returns whether the shape represents a scalar, that is there are no dimensions (rank==0).
func (s Shape) IsScalar() bool { return s.Ok() && !s.IsTuple() && s.Rank() == 0 }

// Dim returns the dimension of the given axis. axis can take negative numbers, in which
// case it counts as starting from the end -- so axis=-1 refers to the last axis.
// Like with a slice indexing, it panics for an out-of-bound axis.
func (s Shape) Dim(axis int) int {
	adjustedAxis := axis
	if adjustedAxis < 0 {
		adjustedAxis += s.Rank()
	}
	if adjustedAxis < 0 || adjustedAxis >= s.Rank() {
		exceptions.Panicf("Shape.Dim(%d) out-of-bounds for rank %d (shape=%s)", axis, s.Rank(), s)
	}
	return s.Dimensions[adjustedAxis]
}

// HasLayout returns whether a physical layout was assigned to the shape.
func (s Shape) HasLayout() bool { return s.Layout.MinorToMajor != nil }

// WithLayout returns a copy of the shape with the given layout. It doesn't validate the layout.
func (s Shape) WithLayout(layout Layout) Shape {
	s2 := s.Clone()
	s2.Layout = layout.Clone()
	return s2
}

// WithDefaultLayout returns a copy of the shape with the default (row-major) layout.
func (s Shape) WithDefaultLayout() Shape {
	return s.WithLayout(DefaultLayout(s.Rank()))
}

// WithoutLayout returns a copy of the shape with the layout cleared.
func (s Shape) WithoutLayout() Shape {
	s2 := s.Clone()
	s2.Layout = Layout{}
	return s2
}

// Shape returns a shallow copy of itself.
func (s Shape) Shape() Shape { return s }

// String implements stringer, pretty-prints the shape. The layout, if present, is printed in
// minor-to-major order within curly braces.
func (s Shape) String() string {
	if s.TupleSize() > 0 {
		parts := make([]string, 0, s.TupleSize())
		for _, tuple := range s.TupleShapes {
			parts = append(parts, tuple.String())
		}
		return fmt.Sprintf("Tuple<%s>", strings.Join(parts, ", "))
	}
	var layoutStr string
	if s.HasLayout() {
		layoutStr = s.Layout.String()
	}
	if s.Rank() == 0 {
		return fmt.Sprintf("(%s)%s", s.DType, layoutStr)
	}
	return fmt.Sprintf("(%s)%v%s", s.DType, s.Dimensions, layoutStr)
}

// Size returns the number of elements of DType are needed for this shape. It's the product of all dimensions.
func (s Shape) Size() (size int) {
	size = 1
	for _, d := range s.Dimensions {
		size *= d
	}
	return
}

// Memory returns the memory used to store an array of the given shape, the same as the size in bytes.
// For tuples, it's the sum of the memory of its elements.
func (s Shape) Memory() uintptr {
	if s.IsTuple() {
		var total uintptr
		for _, element := range s.TupleShapes {
			total += element.Memory()
		}
		return total
	}
	return s.DType.Memory() * uintptr(s.Size())
}

// MakeTuple returns a shape representing a tuple of elements with the given shapes.
func MakeTuple(elements ...Shape) Shape {
	return Shape{DType: dtypes.InvalidDType, Dimensions: nil, TupleShapes: elements}
}

// IsTuple returns whether the shape represents a tuple.
func (s Shape) IsTuple() bool {
	return s.DType == dtypes.InvalidDType && len(s.TupleShapes) > 0
}

// TupleSize returns the number of elements in the tuple, if it is a tuple.
func (s Shape) TupleSize() int {
	return len(s.TupleShapes)
}

// Equal compares two shapes for equality: dtype and dimensions are compared, layouts are ignored.
func (s Shape) Equal(s2 Shape) bool {
	if s.DType != s2.DType {
		return false
	}
	if s.IsTuple() {
		if s.TupleSize() != s2.TupleSize() {
			return false
		}
		for ii, element := range s.TupleShapes {
			if !element.Equal(s2.TupleShapes[ii]) {
				return false
			}
		}
		return true
	}
	return slices.Equal(s.Dimensions, s2.Dimensions)
}

// EqualWithLayout compares dtype, dimensions and layouts of the two shapes.
func (s Shape) EqualWithLayout(s2 Shape) bool {
	if !s.Equal(s2) {
		return false
	}
	if s.IsTuple() {
		for ii, element := range s.TupleShapes {
			if !element.EqualWithLayout(s2.TupleShapes[ii]) {
				return false
			}
		}
		return true
	}
	return s.HasLayout() == s2.HasLayout() && s.Layout.Equal(s2.Layout)
}

// Clone returns a new deep copy of the shape.
func (s Shape) Clone() (s2 Shape) {
	s2.DType = s.DType
	s2.Dimensions = slices.Clone(s.Dimensions)
	s2.Layout = s.Layout.Clone()
	if s.TupleSize() > 0 {
		s2.TupleShapes = make([]Shape, 0, len(s.TupleShapes))
		for _, subShape := range s.TupleShapes {
			s2.TupleShapes = append(s2.TupleShapes, subShape.Clone())
		}
	}
	return
}
