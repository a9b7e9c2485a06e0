// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gpu

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/gpulayout/backends/layout"
	"github.com/gomlx/gpulayout/pkg/core/hlo"
	"github.com/gomlx/gpulayout/pkg/core/shapes"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testAmpere = CUDADevice{Capability: Ampere, CuDNNVersion: Version{8, 9, 0}}

// addConstraints runs the GPU rules on c and returns the constraints registered.
func addConstraints(t *testing.T, la *LayoutAssignment, c *hlo.Computation) *layout.Constraints {
	constraints := layout.NewConstraints()
	require.NoError(t, la.AddBackendConstraints(c, constraints))
	return constraints
}

// requireLayout checks the layout registered for the slot of instr, given in minor-to-major order.
func requireLayout(t *testing.T, constraints *layout.Constraints, instr *hlo.Instruction, slot layout.Slot, minorToMajor ...int) {
	got, found := constraints.Get(instr, slot)
	require.Truef(t, found, "no layout registered for %s of %s", slot, instr.Name())
	require.Equalf(t, minorToMajor, got.MinorToMajor, "layout of %s of %s", slot, instr.Name())
}

func buildDot(lhsShape, rhsShape shapes.Shape, dims hlo.DotDimensionNumbers, outDType dtypes.DType) (*hlo.Computation, *hlo.Instruction) {
	b := hlo.NewBuilder("dot")
	lhs := b.Parameter(lhsShape)
	rhs := b.Parameter(rhsShape)
	dot := b.DotWithOutputDType(lhs, rhs, dims, outDType)
	return b.Build(dot), dot
}

func TestDotBatchedMatMul(t *testing.T) {
	c, dot := buildDot(shapes.Make(dtypes.Float32, 8, 2, 3), shapes.Make(dtypes.Float32, 8, 3, 5),
		hlo.DotDimensionNumbers{
			LhsBatch: []int{0}, LhsContracting: []int{2},
			RhsBatch: []int{0}, RhsContracting: []int{1},
		}, dtypes.Float32)
	constraints := addConstraints(t, New(testAmpere, DefaultConfig()), c)

	// lhs: batch [0], contraction [2], free [1]; rhs: batch [0], contraction [1], free [2].
	requireLayout(t, constraints, dot, layout.OperandSlot(0), 1, 2, 0)
	requireLayout(t, constraints, dot, layout.OperandSlot(1), 2, 1, 0)
	// Result: batch most-major, lhs free next and rhs free most-minor.
	requireLayout(t, constraints, dot, layout.ResultSlot, 2, 1, 0)
	assert.Equal(t, 3, constraints.Len())
}

func TestDotWithoutContraction(t *testing.T) {
	for name, tc := range map[string]struct {
		lhs, rhs shapes.Shape
		dims     hlo.DotDimensionNumbers
	}{
		"batched outer product": {shapes.Make(dtypes.Float32, 4, 2), shapes.Make(dtypes.Float32, 4, 3),
			hlo.DotDimensionNumbers{LhsBatch: []int{0}, RhsBatch: []int{0}}},
		"outer product": {shapes.Make(dtypes.Float32, 2), shapes.Make(dtypes.Float32, 3), hlo.DotDimensionNumbers{}},
		"scalar product": {shapes.Make(dtypes.Float32), shapes.Make(dtypes.Float32, 3), hlo.DotDimensionNumbers{}},
	} {
		t.Run(name, func(t *testing.T) {
			c, dot := buildDot(tc.lhs, tc.rhs, tc.dims, dtypes.Float32)
			constraints := addConstraints(t, New(testAmpere, DefaultConfig()), c)
			for ii, operand := range dot.Operands() {
				l, found := constraints.OperandLayout(dot, ii)
				require.True(t, found)
				require.NoError(t, l.Validate(operand.Shape().Rank()))
			}
			l, found := constraints.ResultLayout(dot)
			require.True(t, found)
			require.NoError(t, l.Validate(dot.Shape().Rank()))
			assert.True(t, l.IsDefault())

			r := must.M1(layout.Assign(hlo.NewModule(name, c), New(testAmpere, DefaultConfig())))
			assert.Empty(t, r.Copies())
		})
	}
}

func TestDotMinorContraction(t *testing.T) {
	dims := hlo.DotDimensionNumbers{LhsContracting: []int{1}, RhsContracting: []int{0}}
	for _, tc := range []struct {
		name             string
		dtype, outDType  dtypes.DType
		config           Config
		wantLhs, wantRhs []int
	}{
		{"float32", dtypes.Float32, dtypes.Float32, DefaultConfig(), []int{0, 1}, []int{1, 0}},
		{"int8", dtypes.Int8, dtypes.Int32, DefaultConfig(), []int{1, 0}, []int{0, 1}},
		{"int8 to int8", dtypes.Int8, dtypes.Int8, DefaultConfig(), []int{0, 1}, []int{1, 0}},
		{"bfloat16", dtypes.BFloat16, dtypes.BFloat16, DefaultConfig(), []int{0, 1}, []int{1, 0}},
		{"bfloat16 minor contraction", dtypes.BFloat16, dtypes.BFloat16,
			Config{TransposeToBitcast: true, EnsureMinorDotContractionDims: true}, []int{1, 0}, []int{0, 1}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c, dot := buildDot(shapes.Make(tc.dtype, 4, 8), shapes.Make(tc.dtype, 8, 16), dims, tc.outDType)
			constraints := addConstraints(t, New(testAmpere, tc.config), c)
			requireLayout(t, constraints, dot, layout.OperandSlot(0), tc.wantLhs...)
			requireLayout(t, constraints, dot, layout.OperandSlot(1), tc.wantRhs...)
			requireLayout(t, constraints, dot, layout.ResultSlot, 1, 0)
		})
	}
}

func TestDotMalformed(t *testing.T) {
	for name, dims := range map[string]hlo.DotDimensionNumbers{
		"contracting out-of-bounds": {LhsContracting: []int{2}, RhsContracting: []int{0}},
		"batch and contracting":     {LhsBatch: []int{0}, LhsContracting: []int{0}, RhsBatch: []int{0}, RhsContracting: []int{0}},
		"unpaired batch":            {LhsBatch: []int{0}, LhsContracting: []int{1}, RhsContracting: []int{0}},
		"repeated contracting":      {LhsContracting: []int{1, 1}, RhsContracting: []int{0, 1}},
	} {
		t.Run(name, func(t *testing.T) {
			b := hlo.NewBuilder("malformed")
			lhs := b.Parameter(shapes.Make(dtypes.Float32, 3, 3))
			rhs := b.Parameter(shapes.Make(dtypes.Float32, 3, 3))
			dot := b.Add(hlo.OpcodeDot, shapes.Make(dtypes.Float32, 3, 3), []*hlo.Instruction{lhs, rhs},
				hlo.WithDotDimensionNumbers(dims))
			c := b.Build(dot)
			err := New(testAmpere, DefaultConfig()).AddBackendConstraints(c, layout.NewConstraints())
			require.ErrorIs(t, err, ErrMalformedDimensionNumbers)

			_, err = layout.Assign(hlo.NewModule(name, c), New(testAmpere, DefaultConfig()))
			require.ErrorIs(t, err, ErrMalformedDimensionNumbers)
		})
	}
}

func TestDotCanSupportLayout(t *testing.T) {
	_, batched := buildDot(shapes.Make(dtypes.Float32, 8, 2, 3), shapes.Make(dtypes.Float32, 8, 3, 5),
		hlo.DotDimensionNumbers{LhsBatch: []int{0}, LhsContracting: []int{2}, RhsBatch: []int{0}, RhsContracting: []int{1}},
		dtypes.Float32)
	assert.True(t, DotCanSupportLayout(batched, shapes.MakeLayout(2, 1, 0)))
	assert.True(t, DotCanSupportLayout(batched, shapes.MakeLayout(1, 2, 0)), "transposed matrices")
	assert.False(t, DotCanSupportLayout(batched, shapes.MakeLayout(0, 2, 1)), "batch most-minor")
	assert.False(t, DotCanSupportLayout(batched, shapes.MakeLayout(2, 0, 1)), "batch between rows and cols")
	assert.False(t, DotCanSupportLayout(batched, shapes.MakeLayout(1, 0)), "wrong rank")

	// Two lhs free axes ("rows") must stay together and in order.
	_, rows := buildDot(shapes.Make(dtypes.Float32, 2, 3, 4), shapes.Make(dtypes.Float32, 4, 5),
		hlo.DotDimensionNumbers{LhsContracting: []int{2}, RhsContracting: []int{0}}, dtypes.Float32)
	assert.True(t, DotCanSupportLayout(rows, shapes.MakeLayout(2, 1, 0)))
	assert.True(t, DotCanSupportLayout(rows, shapes.MakeLayout(1, 0, 2)))
	assert.False(t, DotCanSupportLayout(rows, shapes.MakeLayout(0, 1, 2)), "rows reversed")
	assert.False(t, DotCanSupportLayout(rows, shapes.MakeLayout(1, 2, 0)), "rows split")
}

func TestDotPrefersUserLayout(t *testing.T) {
	build := func(dotHasOtherUser bool) (*hlo.Module, *hlo.Instruction, *hlo.Instruction) {
		b := hlo.NewBuilder("main")
		x := b.Parameter(shapes.Make(dtypes.Float32, 2, 3))
		y := b.Parameter(shapes.Make(dtypes.Float32, 3, 4))
		dot := b.Dot(x, y, hlo.DotDimensionNumbers{LhsContracting: []int{1}, RhsContracting: []int{0}})
		transpose := b.Transpose(dot, 1, 0)
		root := transpose
		if dotHasOtherUser {
			root = b.Tuple(transpose, dot)
		}
		return hlo.NewModule("transpose_of_dot", b.Build(root)), dot, transpose
	}

	t.Run("single user", func(t *testing.T) {
		module, dot, transpose := build(false)
		constraints := addConstraints(t, New(testAmpere, DefaultConfig()), module.Entry())
		requireLayout(t, constraints, transpose, layout.OperandSlot(0), 0, 1)
		requireLayout(t, constraints, dot, layout.ResultSlot, 0, 1)

		r := must.M1(layout.Assign(module, New(testAmpere, DefaultConfig())))
		assert.True(t, r.TransposeIsBitcast(transpose))
		assert.Equal(t, []int{1, 0}, r.Layout(transpose).MinorToMajor)
		assert.Empty(t, r.Copies())
	})

	t.Run("transposes not bitcast", func(t *testing.T) {
		module, dot, transpose := build(false)
		config := DefaultConfig()
		config.TransposeToBitcast = false
		constraints := addConstraints(t, New(testAmpere, config), module.Entry())
		_, found := constraints.OperandLayout(transpose, 0)
		assert.False(t, found)
		requireLayout(t, constraints, dot, layout.ResultSlot, 1, 0)

		r := must.M1(layout.Assign(module, New(testAmpere, config)))
		assert.False(t, r.TransposeIsBitcast(transpose))
		assert.Empty(t, r.Copies())
	})

	t.Run("dot with other users", func(t *testing.T) {
		module, dot, transpose := build(true)
		constraints := addConstraints(t, New(testAmpere, DefaultConfig()), module.Entry())
		_, found := constraints.OperandLayout(transpose, 0)
		assert.False(t, found)
		requireLayout(t, constraints, dot, layout.ResultSlot, 1, 0)
	})
}

func TestDotSkipsUnsupportedUserLayout(t *testing.T) {
	b := hlo.NewBuilder("main")
	lhs := b.Parameter(shapes.Make(dtypes.Float32, 4, 3, 5))
	rhs := b.Parameter(shapes.Make(dtypes.Float32, 4, 5, 3))
	dot := b.Dot(lhs, rhs, hlo.DotDimensionNumbers{
		LhsBatch: []int{0}, LhsContracting: []int{2},
		RhsBatch: []int{0}, RhsContracting: []int{1},
	})

	// First user: a convolution reading the dot result with the batch axis in the middle, which
	// requires the layout {2,0,1}: a GEMM can't produce it.
	convDims := hlo.ConvolutionDimensionNumbers{
		InputBatch: 1, InputFeature: 0, InputSpatial: []int{2},
		KernelOutputFeature: 0, KernelInputFeature: 1, KernelSpatial: []int{2},
		OutputBatch: 0, OutputFeature: 1, OutputSpatial: []int{2},
	}
	kernel := b.Parameter(shapes.Make(dtypes.Float32, 2, 4, 1))
	conv := b.ConvolutionCustomCall(ConvForwardTarget, shapes.Make(dtypes.Float32, 3, 2, 3), 1024, convDims, dot, kernel)

	// Second user: a triangular solve, which requires the column-major layout {1,2,0}.
	solve := b.TriangularSolve(dot, b.Parameter(shapes.Make(dtypes.Float32, 4, 3, 2)))
	c := b.Build(b.Tuple(b.GetTupleElement(conv, 0), solve))

	constraints := addConstraints(t, New(testAmpere, DefaultConfig()), c)
	requireLayout(t, constraints, conv, layout.OperandSlot(0), 2, 0, 1)
	requireLayout(t, constraints, solve, layout.OperandSlot(0), 1, 2, 0)
	requireLayout(t, constraints, dot, layout.ResultSlot, 1, 2, 0)
}

func TestDotKeepsOperandLayout(t *testing.T) {
	build := func(dtype, outDType dtypes.DType, rhsLayout shapes.Layout) (*hlo.Module, *hlo.Instruction) {
		b := hlo.NewBuilder("main")
		x := b.Parameter(shapes.Make(dtype, 2, 3))
		y := b.Parameter(shapes.MakeWithLayout(dtype, []int{3, 4}, rhsLayout.MinorToMajor))
		dot := b.DotWithOutputDType(x, y, hlo.DotDimensionNumbers{LhsContracting: []int{1}, RhsContracting: []int{0}}, outDType)
		return hlo.NewModule("column_major_rhs", b.Build(dot)), dot
	}

	t.Run("column-major rhs", func(t *testing.T) {
		module, dot := build(dtypes.Float32, dtypes.Float32, shapes.MakeLayout(0, 1))
		constraints := addConstraints(t, New(testAmpere, DefaultConfig()), module.Entry())
		requireLayout(t, constraints, dot, layout.OperandSlot(0), 0, 1)
		requireLayout(t, constraints, dot, layout.OperandSlot(1), 0, 1)

		r := must.M1(layout.Assign(module, New(testAmpere, DefaultConfig())))
		assert.Empty(t, r.Copies())
		rhsLayout, found := r.OperandLayout(dot, 1)
		require.True(t, found)
		assert.Equal(t, []int{0, 1}, rhsLayout.MinorToMajor)
	})

	t.Run("minor contraction", func(t *testing.T) {
		// Int8 matrix multiplications require the contraction axis most-minor: the rhs is transposed anyway.
		module, dot := build(dtypes.Int8, dtypes.Int32, shapes.MakeLayout(1, 0))
		constraints := addConstraints(t, New(testAmpere, DefaultConfig()), module.Entry())
		requireLayout(t, constraints, dot, layout.OperandSlot(1), 0, 1)

		r := must.M1(layout.Assign(module, New(testAmpere, DefaultConfig())))
		require.Len(t, r.Copies(), 1)
	})
}

func TestDotOperandCanUseLayout(t *testing.T) {
	// Operand [batch, contraction, free].
	groups := must.M1(ClassifyDims(3, []int{0}, []int{1}))
	assert.True(t, DotOperandCanUseLayout(groups, shapes.MakeLayout(2, 1, 0)))
	assert.True(t, DotOperandCanUseLayout(groups, shapes.MakeLayout(1, 2, 0)), "transposed matrix")
	assert.False(t, DotOperandCanUseLayout(groups, shapes.MakeLayout(0, 2, 1)), "batch most-minor")
	assert.False(t, DotOperandCanUseLayout(groups, shapes.MakeLayout(2, 0, 1)), "batch in the middle")
	assert.False(t, DotOperandCanUseLayout(groups, shapes.MakeLayout(1, 0)), "wrong rank")

	// Two free axes must stay together and in order.
	groups = must.M1(ClassifyDims(3, nil, []int{2}))
	assert.True(t, DotOperandCanUseLayout(groups, shapes.MakeLayout(2, 1, 0)))
	assert.True(t, DotOperandCanUseLayout(groups, shapes.MakeLayout(1, 0, 2)))
	assert.False(t, DotOperandCanUseLayout(groups, shapes.MakeLayout(0, 1, 2)), "free axes reversed")
	assert.False(t, DotOperandCanUseLayout(groups, shapes.MakeLayout(1, 2, 0)), "free axes split")
}
