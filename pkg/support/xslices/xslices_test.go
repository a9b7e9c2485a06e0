// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package xslices

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIota(t *testing.T) {
	assert.Equal(t, []int{3, 4, 5}, Iota(3, 3))
	assert.Equal(t, []int64{}, Iota(int64(0), 0))
}

func TestReversed(t *testing.T) {
	in := []int{0, 1, 2}
	assert.Equal(t, []int{2, 1, 0}, Reversed(in))
	assert.Equal(t, []int{0, 1, 2}, in, "input must not be modified")
	assert.Empty(t, Reversed([]int(nil)))
}

func TestMap(t *testing.T) {
	assert.Equal(t, []string{"1", "2"}, Map([]int{1, 2}, strconv.Itoa))
	assert.Empty(t, Map([]int(nil), strconv.Itoa))
}

func TestAllInRange(t *testing.T) {
	assert.True(t, AllInRange([]int{0, 2}, 3))
	assert.False(t, AllInRange([]int{0, 3}, 3))
	assert.False(t, AllInRange([]int{-1}, 3))
	assert.True(t, AllInRange([]int{}, 0))
}

func TestFlagValue(t *testing.T) {
	f := &genericSliceFlagImpl[int]{parserFn: strconv.Atoi}
	require.NoError(t, f.Set("1, 2,3"))
	assert.Equal(t, []int{1, 2, 3}, f.parsedSlice)
	assert.Equal(t, "1,2,3", f.String())
	require.Error(t, f.Set("x"))
	require.NoError(t, f.Set(""))
	assert.Empty(t, f.parsedSlice)
}
