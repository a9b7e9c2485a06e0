// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gpu

import (
	"slices"

	"github.com/gomlx/gpulayout/backends/layout"
	"github.com/gomlx/gpulayout/pkg/core/hlo"
	"github.com/gomlx/gpulayout/pkg/core/shapes"
	"github.com/pkg/errors"
)

// BuildLayout returns the layout with the given groups of axes concatenated from the most-major to
// the most-minor. The groups must form a permutation of {0, ..., n-1}, where n is the total number of axes.
//
// E.g.: BuildLayout([]int{0}, []int{2}, []int{1}) returns the layout {1,2,0} (minor-to-major).
func BuildLayout(groupsMajorToMinor ...[]int) (shapes.Layout, error) {
	majorToMinor := slices.Concat(groupsMajorToMinor...)
	layout := shapes.MakeLayoutFromMajorToMinor(majorToMinor...)
	if err := layout.Validate(len(majorToMinor)); err != nil {
		return shapes.Layout{}, errors.Wrapf(ErrMalformedDimensionNumbers, "axes groups %v: %v", groupsMajorToMinor, err)
	}
	return layout, nil
}

// LayoutFromGroups returns the layout with the groups concatenated in the given order, from the most-major
// to the most-minor. Each group must be listed exactly once.
//
// Dot operands usually take (DimGroupBatch, DimGroupContraction, DimGroupFree): the free axes most-minor.
func LayoutFromGroups(groups DimGroups, orderMajorToMinor ...DimGroup) (shapes.Layout, error) {
	if len(orderMajorToMinor) != 3 {
		return shapes.Layout{}, errors.Errorf("LayoutFromGroups requires the 3 groups ordered, got %v", orderMajorToMinor)
	}
	ordered := make([][]int, 0, 3)
	seen := make(map[DimGroup]bool, 3)
	for _, group := range orderMajorToMinor {
		if !group.IsADimGroup() || seen[group] {
			return shapes.Layout{}, errors.Errorf("LayoutFromGroups requires each of the 3 groups once, got %v", orderMajorToMinor)
		}
		seen[group] = true
		ordered = append(ordered, groups.Get(group))
	}
	return BuildLayout(ordered...)
}

// setOperandGroupsLayout classifies the axes of the operand #operandIdx of instr, and requires it to be
// in the layout with the groups in the given order.
func setOperandGroupsLayout(constraints *layout.Constraints, instr *hlo.Instruction, operandIdx int,
	batch, contraction []int, orderMajorToMinor ...DimGroup) (DimGroups, error) {
	operand := instr.Operand(operandIdx)
	groups, err := ClassifyDims(operand.Shape().Rank(), batch, contraction)
	if err != nil {
		return groups, errors.WithMessagef(err, "operand #%d (%s)", operandIdx, operand.Shape())
	}
	operandLayout, err := LayoutFromGroups(groups, orderMajorToMinor...)
	if err != nil {
		return groups, err
	}
	return groups, constraints.SetOperandLayout(instr, operandIdx, operandLayout)
}
