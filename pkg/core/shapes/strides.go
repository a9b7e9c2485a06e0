// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package shapes

// Strides returns the distance, in elements (not bytes), between consecutive indices of each axis,
// following the shape's layout, or the default (row-major) layout if none was assigned.
//
// E.g.: for dimensions [2, 3], the default layout {1,0} gives strides [3, 1], and the layout {0,1}
// gives strides [1, 2].
func (s Shape) Strides() (strides []int) {
	rank := s.Rank()
	if rank == 0 || s.IsTuple() {
		return
	}
	layout := s.Layout
	if !s.HasLayout() {
		layout = DefaultLayout(rank)
	}
	strides = make([]int, rank)
	currentStride := 1
	for _, axis := range layout.MinorToMajor {
		strides[axis] = currentStride
		currentStride *= s.Dimensions[axis]
	}
	return
}
