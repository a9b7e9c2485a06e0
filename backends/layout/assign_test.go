// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package layout

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/gpulayout/pkg/core/hlo"
	"github.com/gomlx/gpulayout/pkg/core/shapes"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testBackend implements Backend with closures, defaulting to no constraints and the default
// mutability policy.
type testBackend struct {
	add       func(computation *hlo.Computation, constraints *Constraints) error
	canChange func(instr *hlo.Instruction) bool
}

func (b *testBackend) Name() string { return "test" }

func (b *testBackend) AddBackendConstraints(computation *hlo.Computation, constraints *Constraints) error {
	if b.add == nil {
		return nil
	}
	return b.add(computation, constraints)
}

func (b *testBackend) InstructionCanChangeLayout(instr *hlo.Instruction) bool {
	if b.canChange == nil {
		return DefaultInstructionCanChangeLayout(instr)
	}
	return b.canChange(instr)
}

// buildTransposeModule: transpose(negate(x)), where x has a column-major layout.
func buildTransposeModule() (module *hlo.Module, x, neg, transpose *hlo.Instruction) {
	b := hlo.NewBuilder("main")
	x = b.Parameter(shapes.MakeWithLayout(dtypes.Float32, []int{2, 3}, []int{0, 1}))
	neg = b.Elementwise(hlo.OpcodeNegate, x)
	transpose = b.Transpose(neg, 1, 0)
	module = hlo.NewModule("transpose", b.Build(transpose))
	return
}

func TestAssignTranspose(t *testing.T) {
	module, x, neg, transpose := buildTransposeModule()

	t.Run("changeable", func(t *testing.T) {
		r, err := Assign(module, &testBackend{})
		require.NoError(t, err)
		assert.Equal(t, 1, r.Constraints().Len(), "only the parameter layout")
		assert.Equal(t, []int{0, 1}, r.Layout(x).MinorToMajor)
		assert.Equal(t, []int{0, 1}, r.Layout(neg).MinorToMajor, "element-wise ops keep their operand layout")
		assert.Equal(t, []int{1, 0}, r.Layout(transpose).MinorToMajor)
		assert.True(t, r.CanChangeLayout(transpose))
		assert.True(t, r.TransposeIsBitcast(transpose))
		assert.False(t, r.TransposeIsBitcast(neg))
		assert.Empty(t, r.Copies())
	})

	t.Run("fixed", func(t *testing.T) {
		r, err := Assign(module, &testBackend{canChange: func(instr *hlo.Instruction) bool {
			return instr.Opcode() != hlo.OpcodeTranspose && DefaultInstructionCanChangeLayout(instr)
		}})
		require.NoError(t, err)
		assert.False(t, r.CanChangeLayout(transpose))
		assert.Equal(t, []int{0, 1}, r.Layout(transpose).MinorToMajor, "the transpose moves the data")
		assert.False(t, r.TransposeIsBitcast(transpose))
		assert.Empty(t, r.Copies())
	})
}

func TestAssignCopies(t *testing.T) {
	b := hlo.NewBuilder("main")
	x := b.Parameter(shapes.MakeWithLayout(dtypes.Float32, []int{2, 3}, []int{0, 1}))
	y := b.Parameter(shapes.Make(dtypes.Float32, 3, 4))
	dot := b.Dot(x, y, hlo.DotDimensionNumbers{LhsContracting: []int{1}, RhsContracting: []int{0}})
	sum := b.Elementwise(hlo.OpcodeAdd, dot, dot)
	module := hlo.NewModule("copies", b.Build(sum))

	backend := &testBackend{add: func(_ *hlo.Computation, constraints *Constraints) error {
		for ii := range 2 {
			if err := constraints.SetOperandLayout(dot, ii, shapes.MakeLayout(1, 0)); err != nil {
				return err
			}
		}
		return constraints.SetResultLayout(dot, shapes.MakeLayout(0, 1))
	}}
	r, err := Assign(module, backend)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 0}, r.Layout(y).MinorToMajor, "unconstrained parameters adopt their user's requirement")
	assert.Equal(t, []int{0, 1}, r.Layout(sum).MinorToMajor)
	copies := r.Copies()
	require.Len(t, copies, 1)
	assert.Same(t, dot, copies[0].User)
	assert.Equal(t, 0, copies[0].OperandIndex)
	assert.Equal(t, []int{0, 1}, copies[0].From.MinorToMajor)
	assert.Equal(t, []int{1, 0}, copies[0].To.MinorToMajor)

	layout, found := r.OperandLayout(sum, 1)
	require.True(t, found)
	assert.Equal(t, []int{0, 1}, layout.MinorToMajor)
}

func TestAssignTuples(t *testing.T) {
	b := hlo.NewBuilder("main")
	x := b.Parameter(shapes.Make(dtypes.Float32, 1, 2, 5, 5))
	w := b.Parameter(shapes.Make(dtypes.Float32, 3, 2, 2, 2))
	conv := b.ConvolutionCustomCall("conv", shapes.Make(dtypes.Float32, 1, 3, 4, 4), 16,
		hlo.DefaultConvolutionDimensionNumbers(2), x, w)
	gte := b.GetTupleElement(conv, 0)
	module := hlo.NewModule("tuples", b.Build(b.Tuple(gte, x)))

	nhwc := shapes.MakeLayout(1, 3, 2, 0)
	r, err := Assign(module, &testBackend{add: func(_ *hlo.Computation, constraints *Constraints) error {
		return constraints.SetBufferLayout(conv, 0, nhwc)
	}})
	require.NoError(t, err)
	convShape := r.Shape(conv)
	require.True(t, convShape.IsTuple())
	assert.True(t, convShape.TupleShapes[0].Layout.Equal(nhwc))
	assert.True(t, convShape.TupleShapes[1].Layout.Equal(shapes.MakeLayout(0)))
	assert.True(t, r.Layout(gte).Equal(nhwc))
	root := r.Shape(module.Entry().Root())
	assert.True(t, root.TupleShapes[0].Layout.Equal(nhwc))
	assert.True(t, root.TupleShapes[1].Layout.IsDefault())
	_, found := r.OperandLayout(gte, 0)
	assert.False(t, found, "tuple operands have no layout")
}

func TestAssignErrors(t *testing.T) {
	module, _, _, transpose := buildTransposeModule()

	_, err := Assign(module, &testBackend{add: func(_ *hlo.Computation, constraints *Constraints) error {
		if err := constraints.SetOperandLayout(transpose, 0, shapes.MakeLayout(1, 0)); err != nil {
			return err
		}
		return constraints.SetOperandLayout(transpose, 0, shapes.MakeLayout(0, 1))
	}})
	require.ErrorIs(t, err, ErrConflictingConstraint)

	sentinel := errors.New("unsupported")
	_, err = Assign(module, &testBackend{add: func(*hlo.Computation, *Constraints) error {
		panic(errors.Wrap(sentinel, "backend failed"))
	}})
	require.ErrorIs(t, err, sentinel, "panics are converted to errors")

	_, err = Assign(hlo.NewModule("empty", nil), &testBackend{})
	require.Error(t, err)
}

func TestRegistry(t *testing.T) {
	var gotConfig string
	Register("test", func(config string) Backend {
		gotConfig = config
		return &testBackend{}
	})
	backend := NewWithConfig("test:a,b")
	assert.Equal(t, "test", backend.Name())
	assert.Equal(t, "a,b", gotConfig)

	NewWithConfig("test")
	assert.Equal(t, "", gotConfig)

	t.Setenv(GOMLX_LAYOUT_BACKEND, "test:from_env")
	New()
	assert.Equal(t, "from_env", gotConfig)

	require.Panics(t, func() { NewWithConfig("unknown:x") })
}
