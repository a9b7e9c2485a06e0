// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gpu

import (
	"github.com/gomlx/gpulayout/backends/layout"
	"github.com/gomlx/gpulayout/pkg/core/hlo"
	"github.com/gomlx/gpulayout/pkg/core/shapes"
	"github.com/gomlx/gpulayout/pkg/support/xslices"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// addTransposeOfDotConstraints handles a transpose whose operand is a dot used only by it: if the dot can
// produce its result already transposed, it requires it so, and the transpose becomes a bitcast.
func (la *LayoutAssignment) addTransposeOfDotConstraints(transpose *hlo.Instruction, constraints *layout.Constraints) error {
	if !la.config.TransposeToBitcast {
		return nil
	}
	dot := transpose.Operand(0)
	if dot.Opcode() != hlo.OpcodeDot || dot.UserCount() > 1 {
		return nil
	}
	dotLayout := shapes.MakeLayoutFromMajorToMinor(transpose.Dimensions()...)
	if !DotCanSupportLayout(dot, dotLayout) {
		return nil
	}
	klog.V(2).Infof("gpu layout: transpose %s of dot %s becomes a bitcast with dot layout %s",
		transpose.Name(), dot.Name(), dotLayout)
	return constraints.SetOperandLayout(transpose, 0, dotLayout)
}

// addFftConstraints: the FFT library works on the default layout.
func addFftConstraints(fft *hlo.Instruction, constraints *layout.Constraints) error {
	operandRank := fft.Operand(0).Shape().Rank()
	if err := constraints.SetOperandLayout(fft, 0, shapes.DefaultLayout(operandRank)); err != nil {
		return err
	}
	return constraints.SetResultLayout(fft, shapes.DefaultLayout(fft.Shape().Rank()))
}

// addSortConstraints: multi-dimensional sorts require the keys, the values sorted along and their results
// all in the same (default) layout.
func addSortConstraints(sort *hlo.Instruction, constraints *layout.Constraints) error {
	keysRank := sort.Operand(0).Shape().Rank()
	if keysRank <= 1 {
		return nil
	}
	keysLayout := shapes.DefaultLayout(keysRank)
	for ii := range sort.OperandCount() {
		if err := constraints.SetOperandLayout(sort, ii, keysLayout); err != nil {
			return err
		}
	}
	if !sort.Shape().IsTuple() {
		return constraints.SetResultLayout(sort, keysLayout)
	}
	for ii := range sort.Shape().TupleSize() {
		if err := constraints.SetBufferLayout(sort, ii, keysLayout); err != nil {
			return err
		}
	}
	return nil
}

// addTriangularSolveConstraints: the BLAS triangular solver takes and returns column-major matrices.
func addTriangularSolveConstraints(solve *hlo.Instruction, constraints *layout.Constraints) error {
	rank := solve.Shape().Rank()
	if rank < 2 {
		return errors.Errorf("triangular solve requires rank >= 2, got %s", solve.Shape())
	}
	fortran := shapes.FortranLayout(rank)
	for ii := range 2 {
		if err := constraints.SetOperandLayout(solve, ii, fortran); err != nil {
			return err
		}
	}
	return constraints.SetResultLayout(solve, fortran)
}

// addCollectiveConstraints: all-gather, reduce-scatter and all-to-all are only supported with the gathered,
// scattered or split axis as the most-major.
func addCollectiveConstraints(collective *hlo.Instruction, constraints *layout.Constraints) error {
	dims := collective.Dimensions()
	rank := collective.Shape().Rank()
	if collective.Shape().IsTuple() || len(dims) != 1 || !xslices.AllInRange(dims, rank) {
		return errors.Errorf("%s requires one axis in its dimensions, got %v for shape %s",
			collective.Opcode(), dims, collective.Shape())
	}
	return constraints.SetResultLayout(collective, shapes.DefaultLayout(rank).MoveAxisToMajor(dims[0]))
}
