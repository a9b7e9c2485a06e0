// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package shapes

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/require"
)

func TestShape(t *testing.T) {
	invalidShape := Invalid()
	require.False(t, invalidShape.Ok())

	shape0 := Make(dtypes.Float64)
	require.True(t, shape0.Ok())
	require.True(t, shape0.IsScalar())
	require.False(t, shape0.IsTuple())
	require.Equal(t, 0, shape0.Rank())
	require.Equal(t, 1, shape0.Size())
	require.Equal(t, 8, int(shape0.Memory()))

	shape1 := Make(dtypes.Float32, 4, 3, 2)
	require.True(t, shape1.Ok())
	require.False(t, shape1.IsScalar())
	require.Equal(t, 3, shape1.Rank())
	require.Equal(t, 4*3*2, shape1.Size())
	require.Equal(t, 4*4*3*2, int(shape1.Memory()))
	require.False(t, shape1.HasLayout())
	require.Equal(t, "(Float32)[4 3 2]", shape1.String())

	require.Panics(t, func() { _ = Make(dtypes.Float32, 2, 0) })
}

func TestDim(t *testing.T) {
	shape := Make(dtypes.Float32, 4, 3, 2)
	require.Equal(t, 4, shape.Dim(0))
	require.Equal(t, 2, shape.Dim(2))
	require.Equal(t, 4, shape.Dim(-3))
	require.Equal(t, 2, shape.Dim(-1))
	require.Panics(t, func() { _ = shape.Dim(3) })
	require.Panics(t, func() { _ = shape.Dim(-4) })
}

func TestShapeLayout(t *testing.T) {
	shape := Make(dtypes.Float32, 4, 3)
	withLayout := shape.WithLayout(MakeLayout(0, 1))
	require.True(t, withLayout.HasLayout())
	require.False(t, shape.HasLayout(), "WithLayout must not modify the original")
	require.True(t, shape.Equal(withLayout), "Equal ignores layouts")
	require.False(t, shape.EqualWithLayout(withLayout))
	require.True(t, withLayout.EqualWithLayout(MakeWithLayout(dtypes.Float32, []int{4, 3}, []int{0, 1})))
	require.False(t, withLayout.EqualWithLayout(shape.WithDefaultLayout()))
	require.Equal(t, "(Float32)[4 3]{0,1}", withLayout.String())
	require.False(t, withLayout.WithoutLayout().HasLayout())

	require.Panics(t, func() { _ = MakeWithLayout(dtypes.Float32, []int{4, 3}, []int{0, 0}) })

	scalar := Make(dtypes.Int32).WithDefaultLayout()
	require.True(t, scalar.HasLayout())
	require.Equal(t, "(Int32){}", scalar.String())
}

func TestTuple(t *testing.T) {
	tuple := MakeTuple(Make(dtypes.Float32, 2, 3), Make(dtypes.Uint8, 16))
	require.True(t, tuple.IsTuple())
	require.True(t, tuple.Ok())
	require.False(t, tuple.IsScalar())
	require.Equal(t, 2, tuple.TupleSize())
	require.Equal(t, 2*3*4+16, int(tuple.Memory()))
	require.Equal(t, "Tuple<(Float32)[2 3], (Uint8)[16]>", tuple.String())

	clone := tuple.Clone()
	require.True(t, clone.Equal(tuple))
	clone.TupleShapes[0].Dimensions[0] = 7
	require.Equal(t, 2, tuple.TupleShapes[0].Dimensions[0])
	require.False(t, clone.Equal(tuple))
}
