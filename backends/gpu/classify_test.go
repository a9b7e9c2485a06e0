// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gpu

import (
	"slices"
	"testing"

	"github.com/gomlx/gpulayout/pkg/support/xslices"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyDims(t *testing.T) {
	groups, err := ClassifyDims(4, []int{0}, []int{3})
	require.NoError(t, err)
	assert.Equal(t, []int{0}, groups.Batch)
	assert.Equal(t, []int{3}, groups.Contraction)
	assert.Equal(t, []int{1, 2}, groups.Free)
	assert.Equal(t, 4, groups.Rank())
	assert.Equal(t, "batch=[0], contraction=[3], free=[1 2]", groups.String())

	// Batch and contraction axes keep the declared order: it pairs them with the other operand.
	groups, err = ClassifyDims(5, []int{3, 0}, []int{4, 1})
	require.NoError(t, err)
	assert.Equal(t, []int{3, 0}, groups.Get(DimGroupBatch))
	assert.Equal(t, []int{4, 1}, groups.Get(DimGroupContraction))
	assert.Equal(t, []int{2}, groups.Get(DimGroupFree))

	groups, err = ClassifyDims(2, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, groups.Batch)
	assert.NotNil(t, groups.Batch)
	assert.Empty(t, groups.Contraction)
	assert.Equal(t, []int{0, 1}, groups.Free)

	groups, err = ClassifyDims(0, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, groups.Rank())
}

func TestClassifyDimsPartition(t *testing.T) {
	for _, tc := range []struct {
		rank               int
		batch, contraction []int
	}{
		{3, []int{0}, []int{2}},
		{3, []int{0}, []int{1}},
		{2, nil, []int{1}},
		{2, []int{0, 1}, nil},
		{6, []int{5, 1}, []int{0, 3}},
		{4, nil, nil},
	} {
		groups, err := ClassifyDims(tc.rank, tc.batch, tc.contraction)
		require.NoError(t, err)
		all := slices.Concat(groups.Batch, groups.Contraction, groups.Free)
		slices.Sort(all)
		assert.Equal(t, xslices.Iota(0, tc.rank), all, "groups %s must cover each axis of rank %d exactly once", groups, tc.rank)
	}
}

func TestClassifyDimsErrors(t *testing.T) {
	for name, tc := range map[string]struct {
		rank               int
		batch, contraction []int
	}{
		"batch out-of-bounds":       {3, []int{3}, nil},
		"negative contraction":      {3, nil, []int{-1}},
		"repeated batch":            {3, []int{0, 0}, nil},
		"repeated contraction":      {3, nil, []int{1, 1}},
		"both batch and contracted": {3, []int{1}, []int{1}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ClassifyDims(tc.rank, tc.batch, tc.contraction)
			require.ErrorIs(t, err, ErrMalformedDimensionNumbers)
		})
	}
}
