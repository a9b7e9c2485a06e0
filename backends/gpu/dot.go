// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gpu

import (
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/gpulayout/backends/layout"
	"github.com/gomlx/gpulayout/pkg/core/hlo"
	"github.com/gomlx/gpulayout/pkg/core/shapes"
	"github.com/gomlx/gpulayout/pkg/support/xslices"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

var (
	// dotOperandsOrder is the default layout of dot operands, from most-major to most-minor.
	dotOperandsOrder = []DimGroup{DimGroupBatch, DimGroupContraction, DimGroupFree}

	// dotOperandsMinorContractionOrder is used for integer dots and, if configured, for BFloat16 dots.
	dotOperandsMinorContractionOrder = []DimGroup{DimGroupBatch, DimGroupFree, DimGroupContraction}
)

// addDotConstraints requires the layouts a GEMM library call needs for the dot operands and produces
// for its result.
func (la *LayoutAssignment) addDotConstraints(dot *hlo.Instruction, constraints *layout.Constraints) error {
	dims := dot.DotDimensionNumbers()
	if dims == nil || dot.OperandCount() != 2 {
		return errors.Wrapf(ErrMalformedDimensionNumbers, "dot requires 2 operands and dimension numbers")
	}
	if len(dims.LhsBatch) != len(dims.RhsBatch) || len(dims.LhsContracting) != len(dims.RhsContracting) {
		return errors.Wrapf(ErrMalformedDimensionNumbers, "lhs and rhs have a different number of batch or contracting axes (%s)", dims)
	}
	minorContraction := la.dotNeedsMinorContraction(dot)
	mode := "default"
	if minorContraction {
		mode = "minor contraction"
	}
	lhsGroups, err := setDotOperandLayout(constraints, dot, 0, dims.LhsBatch, dims.LhsContracting, minorContraction)
	if err != nil {
		return err
	}
	rhsGroups, err := setDotOperandLayout(constraints, dot, 1, dims.RhsBatch, dims.RhsContracting, minorContraction)
	if err != nil {
		return err
	}

	// Result axes are the batch axes, followed by the lhs free ("rows") and the rhs free ("cols") axes:
	// the default layout keeps that order, with the batch most-major.
	rank := dot.Shape().Rank()
	if dot.Shape().IsTuple() || rank != len(lhsGroups.Batch)+len(lhsGroups.Free)+len(rhsGroups.Free) {
		return errors.Wrapf(ErrMalformedDimensionNumbers, "dot result %s doesn't match operands %s and %s (%s)",
			dot.Shape(), dot.Operand(0).Shape(), dot.Operand(1).Shape(), dims)
	}
	resultLayout := shapes.DefaultLayout(rank)
	if userLayout, found := supportedUserLayout(dot, constraints); found {
		resultLayout = userLayout
	}
	if klog.V(2).Enabled() {
		klog.Infof("gpu layout: dot %s (%s mode): lhs %s, rhs %s, result %s", dot.Name(), mode,
			lhsGroups, rhsGroups, resultLayout)
	}
	return constraints.SetResultLayout(dot, resultLayout)
}

// dotNeedsMinorContraction returns whether the dot operands must have the contracting axes most-minor:
// Int8 matrix multiplications accumulated in Int32, and BFloat16 dots if so configured.
func (la *LayoutAssignment) dotNeedsMinorContraction(dot *hlo.Instruction) bool {
	lhs, rhs, out := dot.Operand(0).Shape(), dot.Operand(1).Shape(), dot.Shape()
	if lhs.DType == dtypes.Int8 && rhs.DType == dtypes.Int8 && out.DType == dtypes.Int32 &&
		lhs.Rank() == 2 && rhs.Rank() == 2 {
		return true
	}
	return la.config.EnsureMinorDotContractionDims &&
		lhs.DType == dtypes.BFloat16 && rhs.DType == dtypes.BFloat16 && out.DType == dtypes.BFloat16
}

// setDotOperandLayout requires the layout of the dot operand #operandIdx. An operand that already comes in
// a layout the GEMM library can consume keeps it, except in minor contraction mode, where the order
// (Batch, Free, Contraction) is mandatory. Otherwise, it gets (Batch, Contraction, Free).
func setDotOperandLayout(constraints *layout.Constraints, dot *hlo.Instruction, operandIdx int,
	batch, contraction []int, minorContraction bool) (DimGroups, error) {
	order := dotOperandsOrder
	if minorContraction {
		order = dotOperandsMinorContractionOrder
	}
	operandShape := dot.Operand(operandIdx).Shape()
	if !minorContraction && operandShape.HasLayout() {
		groups, err := ClassifyDims(operandShape.Rank(), batch, contraction)
		if err != nil {
			return groups, errors.WithMessagef(err, "operand #%d (%s)", operandIdx, operandShape)
		}
		if DotOperandCanUseLayout(groups, operandShape.Layout) {
			return groups, constraints.SetOperandLayout(dot, operandIdx, operandShape.Layout)
		}
	}
	return setOperandGroupsLayout(constraints, dot, operandIdx, batch, contraction, order...)
}

// DotOperandCanUseLayout returns whether a GEMM library call can consume a dot operand with the given
// axes groups in the given layout: each group physically contiguous and in its logical order, with the
// batch axes the most-major. Contraction and free axes may come in either order, since the library can
// read a transposed matrix.
func DotOperandCanUseLayout(groups DimGroups, operandLayout shapes.Layout) bool {
	if operandLayout.Validate(groups.Rank()) != nil {
		return false
	}
	for _, axes := range [][]int{groups.Batch, groups.Contraction, groups.Free} {
		if !isContiguousMajorToMinor(operandLayout, axes) {
			return false
		}
	}
	return isMostMajor(operandLayout, groups.Batch)
}

// supportedUserLayout returns the first layout required by a user of dot for it that the GEMM library
// can produce (see DotCanSupportLayout).
func supportedUserLayout(dot *hlo.Instruction, constraints *layout.Constraints) (shapes.Layout, bool) {
	for _, user := range dot.Users() {
		for _, operandIdx := range user.OperandIndices(dot) {
			userLayout, found := constraints.OperandLayout(user, operandIdx)
			if found && DotCanSupportLayout(dot, userLayout) {
				return userLayout, true
			}
			if found {
				klog.V(3).Infof("gpu layout: dot %s can't produce %s, required by %s", dot.Name(), userLayout, user.Name())
			}
		}
	}
	return shapes.Layout{}, false
}

// DotCanSupportLayout returns whether a GEMM library call can produce the result of dot in the given layout
// without a separate transposition: the batch axes, the lhs free axes ("rows") and the rhs free axes ("cols")
// must each be physically contiguous and in their logical order, with the batch axes the most-major.
// Rows and cols may come in either order, since the library can produce a transposed matrix.
func DotCanSupportLayout(dot *hlo.Instruction, resultLayout shapes.Layout) bool {
	dims := dot.DotDimensionNumbers()
	shape := dot.Shape()
	if dims == nil || shape.IsTuple() || dot.OperandCount() != 2 || resultLayout.Validate(shape.Rank()) != nil {
		return false
	}
	numBatch := len(dims.LhsBatch)
	numRows := dot.Operand(0).Shape().Rank() - numBatch - len(dims.LhsContracting)
	numCols := shape.Rank() - numBatch - numRows
	if numRows < 0 || numCols < 0 {
		return false
	}
	batch := xslices.Iota(0, numBatch)
	rows := xslices.Iota(numBatch, numRows)
	cols := xslices.Iota(numBatch+numRows, numCols)
	if !isContiguousMajorToMinor(resultLayout, batch) || !isContiguousMajorToMinor(resultLayout, rows) ||
		!isContiguousMajorToMinor(resultLayout, cols) {
		return false
	}
	return isMostMajor(resultLayout, batch)
}

// isMostMajor returns whether the group of axes, contiguous and given from the most-major to the most-minor,
// occupies the most-major physical positions.
func isMostMajor(l shapes.Layout, axes []int) bool {
	return len(axes) == 0 || l.Major() == axes[0]
}

// isContiguousMajorToMinor returns whether the axes occupy consecutive physical positions, in the order
// given from the most-major to the most-minor.
func isContiguousMajorToMinor(l shapes.Layout, axes []int) bool {
	if len(axes) == 0 {
		return true
	}
	first := l.PhysicalPosition(axes[0])
	for ii, axis := range axes {
		if l.PhysicalPosition(axis) != first-ii {
			return false
		}
	}
	return true
}
