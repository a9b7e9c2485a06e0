// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package shapes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeLayout(t *testing.T) {
	l := MakeLayoutFromMajorToMinor(0, 2, 1)
	assert.Equal(t, []int{1, 2, 0}, l.MinorToMajor)
	assert.Equal(t, []int{0, 2, 1}, l.MajorToMinor())
	assert.Equal(t, 0, l.Major())
	assert.Equal(t, 2, l.PhysicalPosition(0))
	assert.Equal(t, -1, l.PhysicalPosition(5))
	assert.Equal(t, "{1,2,0}", l.String())

	assert.Equal(t, []int{2, 1, 0}, DefaultLayout(3).MinorToMajor)
	assert.True(t, DefaultLayout(3).IsDefault())
	assert.False(t, l.IsDefault())
	assert.NotNil(t, DefaultLayout(0).MinorToMajor)
	assert.True(t, DefaultLayout(0).IsDefault())
	assert.False(t, Layout{}.IsDefault())
	assert.Equal(t, "{unset}", Layout{}.String())
}

func TestLayoutValidate(t *testing.T) {
	require.NoError(t, MakeLayout(1, 2, 0).Validate(3))
	require.NoError(t, MakeLayout().Validate(0))
	require.Error(t, Layout{}.Validate(0))
	require.Error(t, MakeLayout(1, 0).Validate(3))
	require.Error(t, MakeLayout(1, 1, 0).Validate(3))
	require.Error(t, MakeLayout(1, 3, 0).Validate(3))
	require.Error(t, MakeLayout(-1, 1, 0).Validate(3))
}

func TestLayoutEqual(t *testing.T) {
	assert.True(t, Layout{}.Equal(Layout{}))
	assert.False(t, Layout{}.Equal(MakeLayout()))
	assert.True(t, MakeLayout(1, 0).Equal(MakeLayout(1, 0)))
	assert.False(t, MakeLayout(1, 0).Equal(MakeLayout(0, 1)))

	l := MakeLayout(1, 0)
	clone := l.Clone()
	clone.MinorToMajor[0] = 0
	assert.Equal(t, []int{1, 0}, l.MinorToMajor)
}

func TestFortranLayout(t *testing.T) {
	assert.Equal(t, []int{0, 1}, FortranLayout(2).MinorToMajor)
	assert.Equal(t, []int{2, 3, 1, 0}, FortranLayout(4).MinorToMajor)
	assert.Panics(t, func() { _ = FortranLayout(1) })
}

func TestMoveAxisToMajor(t *testing.T) {
	assert.Equal(t, []int{2, 0, 1}, DefaultLayout(3).MoveAxisToMajor(1).MinorToMajor)
	assert.Equal(t, []int{2, 1, 0}, DefaultLayout(3).MoveAxisToMajor(0).MinorToMajor)
	assert.Equal(t, []int{1, 0, 2}, MakeLayout(2, 1, 0).MoveAxisToMajor(2).MinorToMajor)
}

func TestThroughPermutation(t *testing.T) {
	// Transpose [A, B, C] -> [C, A, B]: output axis i is operand axis perm[i].
	perm := []int{2, 0, 1}
	operandLayout := DefaultLayout(3).ThroughPermutation(perm)
	// Output major-to-minor (C, A, B) means the operand must be laid out major-to-minor as (2, 0, 1).
	assert.Equal(t, []int{2, 0, 1}, operandLayout.MajorToMinor())

	inverse := InversePermutation(perm)
	assert.Equal(t, []int{1, 2, 0}, inverse)
	assert.Equal(t, DefaultLayout(3).MinorToMajor, operandLayout.ThroughPermutation(inverse).MinorToMajor)
}
