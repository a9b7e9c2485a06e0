// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package shapes

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/assert"
)

func TestStrides(t *testing.T) {
	assert.Equal(t, []int{12, 4, 1}, Make(dtypes.Float32, 2, 3, 4).Strides())
	assert.Equal(t, []int{1, 2}, MakeWithLayout(dtypes.Float32, []int{2, 3}, []int{0, 1}).Strides())

	// NHWC layout of a logical NCHW tensor: the feature axis is the most-minor.
	nhwc := MakeWithLayout(dtypes.Float16, []int{8, 16, 5, 7}, []int{1, 3, 2, 0})
	assert.Equal(t, []int{16 * 5 * 7, 1, 7 * 16, 16}, nhwc.Strides())

	assert.Nil(t, Make(dtypes.Int32).Strides())
	assert.Nil(t, MakeTuple(Make(dtypes.Int32, 2)).Strides())
}
