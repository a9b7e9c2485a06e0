// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package hlo

import (
	"fmt"
	"slices"
)

// DotDimensionNumbers declares the batch and contracting axes of each operand of a Dot.
//
// The i-th lhs batch axis is paired with the i-th rhs batch axis, and likewise for the
// contracting axes. All other axes are "free" (non-contracting, non-batch) and are crossed.
// The result axes are: batch axes (in the lhs order), then lhs free axes, then rhs free axes.
type DotDimensionNumbers struct {
	LhsBatch, LhsContracting []int
	RhsBatch, RhsContracting []int
}

// Clone returns a deep copy of the dimension numbers.
func (d DotDimensionNumbers) Clone() DotDimensionNumbers {
	return DotDimensionNumbers{
		LhsBatch:       slices.Clone(d.LhsBatch),
		LhsContracting: slices.Clone(d.LhsContracting),
		RhsBatch:       slices.Clone(d.RhsBatch),
		RhsContracting: slices.Clone(d.RhsContracting),
	}
}

// String implements fmt.Stringer.
func (d DotDimensionNumbers) String() string {
	return fmt.Sprintf("lhs_batch=%v, lhs_contracting=%v, rhs_batch=%v, rhs_contracting=%v",
		d.LhsBatch, d.LhsContracting, d.RhsBatch, d.RhsContracting)
}

// ConvolutionDimensionNumbers defines the interpretation of the input/kernel/output tensor axes
// of a convolution. There must be the same number of spatial axes for each of the 3 tensors.
// The input and output have batch and feature axes, the kernel has input feature and output
// feature axes.
//
// Another common term for "feature" is "channels", and for "kernel" is "filter".
type ConvolutionDimensionNumbers struct {
	InputBatch, InputFeature int
	InputSpatial             []int

	KernelInputFeature, KernelOutputFeature int
	KernelSpatial                           []int

	OutputBatch, OutputFeature int
	OutputSpatial              []int
}

// Clone returns a deep copy of the structure.
func (c ConvolutionDimensionNumbers) Clone() ConvolutionDimensionNumbers {
	c2 := c
	c2.InputSpatial = slices.Clone(c.InputSpatial)
	c2.KernelSpatial = slices.Clone(c.KernelSpatial)
	c2.OutputSpatial = slices.Clone(c.OutputSpatial)
	return c2
}

// NumSpatialDims returns the number of spatial axes declared for the input.
func (c ConvolutionDimensionNumbers) NumSpatialDims() int {
	return len(c.InputSpatial)
}

// String implements fmt.Stringer.
func (c ConvolutionDimensionNumbers) String() string {
	return fmt.Sprintf("input(b=%d, f=%d, s=%v) kernel(i=%d, o=%d, s=%v) output(b=%d, f=%d, s=%v)",
		c.InputBatch, c.InputFeature, c.InputSpatial,
		c.KernelInputFeature, c.KernelOutputFeature, c.KernelSpatial,
		c.OutputBatch, c.OutputFeature, c.OutputSpatial)
}

// DefaultConvolutionDimensionNumbers returns the dimension numbers for the "channels first"
// arrangement (NCHW input and output, OIHW kernel) with the given number of spatial axes.
func DefaultConvolutionDimensionNumbers(numSpatial int) ConvolutionDimensionNumbers {
	spatial := make([]int, numSpatial)
	for ii := range spatial {
		spatial[ii] = ii + 2
	}
	return ConvolutionDimensionNumbers{
		InputBatch:          0,
		InputFeature:        1,
		InputSpatial:        spatial,
		KernelOutputFeature: 0,
		KernelInputFeature:  1,
		KernelSpatial:       slices.Clone(spatial),
		OutputBatch:         0,
		OutputFeature:       1,
		OutputSpatial:       slices.Clone(spatial),
	}
}
