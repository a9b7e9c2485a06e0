// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package hlo

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/gpulayout/pkg/core/shapes"
	"github.com/gomlx/gpulayout/pkg/support/sets"
)

// Builder creates a Computation, one instruction at a time.
//
// Errors in the construction (invalid shapes, operands from another builder, ...) panic with
// an error, following the exceptions convention used throughout graph building.
type Builder struct {
	computation *Computation
	built       bool
}

// NewBuilder returns a builder for a computation with the given name.
func NewBuilder(name string) *Builder {
	return &Builder{
		computation: &Computation{
			name:   name,
			byName: make(map[string]*Instruction),
		},
	}
}

// Add appends a new instruction with an explicitly given shape. Shape inference is not
// performed and opcode-specific metadata is not validated: that is left to the consumers.
func (b *Builder) Add(opcode Opcode, shape shapes.Shape, operands []*Instruction, options ...Option) *Instruction {
	if b.built {
		exceptions.Panicf("hlo.Builder(%q): cannot add instructions after Build()", b.computation.name)
	}
	if !opcode.IsAOpcode() || opcode == OpcodeInvalid || opcode == OpcodeLast {
		exceptions.Panicf("hlo.Builder(%q): invalid opcode %s", b.computation.name, opcode)
	}
	if !shape.Ok() {
		exceptions.Panicf("hlo.Builder(%q): invalid shape for %s instruction", b.computation.name, opcode)
	}
	c := b.computation
	for ii, operand := range operands {
		if operand == nil || operand.id >= len(c.instructions) || c.instructions[operand.id] != operand {
			exceptions.Panicf("hlo.Builder(%q): operand #%d of %s doesn't belong to this computation",
				c.name, ii, opcode)
		}
	}
	instr := &Instruction{
		id:       len(c.instructions),
		opcode:   opcode,
		shape:    shape.Clone(),
		operands: slices.Clone(operands),
	}
	for _, option := range options {
		option(instr)
	}
	if instr.name == "" {
		instr.name = fmt.Sprintf("%s.%d", strings.ToLower(opcode.String()), instr.id)
	}
	if _, found := c.byName[instr.name]; found {
		exceptions.Panicf("hlo.Builder(%q): duplicate instruction name %q", c.name, instr.name)
	}
	seen := sets.Make[*Instruction](len(operands))
	for _, operand := range operands {
		if seen.InsertNew(operand) {
			operand.users = append(operand.users, instr)
		}
	}
	c.instructions = append(c.instructions, instr)
	c.byName[instr.name] = instr
	return instr
}

// Parameter adds the next parameter of the computation. If shape has a layout, it is
// considered fixed by the caller (the entry computation layout).
func (b *Builder) Parameter(shape shapes.Shape, options ...Option) *Instruction {
	param := b.Add(OpcodeParameter, shape, nil, options...)
	param.parameterNumber = len(b.computation.parameters)
	b.computation.parameters = append(b.computation.parameters, param)
	return param
}

// Constant adds a constant of the given shape. Values are not represented.
func (b *Builder) Constant(shape shapes.Shape, options ...Option) *Instruction {
	return b.Add(OpcodeConstant, shape, nil, options...)
}

// Elementwise adds an element-wise operation: the result has the shape of the first operand,
// and all operands must have the same dimensions.
func (b *Builder) Elementwise(opcode Opcode, operands ...*Instruction) *Instruction {
	if !opcode.IsElementwise() {
		exceptions.Panicf("hlo.Builder.Elementwise: %s is not an element-wise opcode", opcode)
	}
	if len(operands) == 0 {
		exceptions.Panicf("hlo.Builder.Elementwise(%s): no operands given", opcode)
	}
	shape := operands[0].shape.WithoutLayout()
	for _, operand := range operands[1:] {
		if !slices.Equal(operand.shape.Dimensions, shape.Dimensions) {
			exceptions.Panicf("hlo.Builder.Elementwise(%s): operands with different dimensions %s and %s",
				opcode, shape, operand.shape)
		}
	}
	return b.Add(opcode, shape, operands)
}

// Convert adds a conversion of x to dtype.
func (b *Builder) Convert(x *Instruction, dtype dtypes.DType) *Instruction {
	shape := x.shape.WithoutLayout()
	shape.DType = dtype
	return b.Add(OpcodeConvert, shape, []*Instruction{x})
}

// Copy adds a copy of x, which may change its layout.
func (b *Builder) Copy(x *Instruction) *Instruction {
	return b.Add(OpcodeCopy, x.shape.WithoutLayout(), []*Instruction{x})
}

// Transpose adds a transpose of x: output axis i is the axis permutation[i] of x.
func (b *Builder) Transpose(x *Instruction, permutation ...int) *Instruction {
	rank := x.shape.Rank()
	if len(permutation) != rank || shapes.MakeLayout(permutation...).Validate(rank) != nil {
		exceptions.Panicf("hlo.Builder.Transpose: invalid permutation %v for operand %s", permutation, x.shape)
	}
	shape := x.shape.WithoutLayout()
	for ii, axis := range permutation {
		shape.Dimensions[ii] = x.shape.Dimensions[axis]
	}
	return b.Add(OpcodeTranspose, shape, []*Instruction{x}, WithDimensions(permutation...))
}

// Reshape adds a reshape of x to the given dimensions, which must have the same size.
func (b *Builder) Reshape(x *Instruction, dimensions ...int) *Instruction {
	shape := shapes.Make(x.shape.DType, dimensions...)
	if shape.Size() != x.shape.Size() {
		exceptions.Panicf("hlo.Builder.Reshape: cannot reshape %s to %v", x.shape, dimensions)
	}
	return b.Add(OpcodeReshape, shape, []*Instruction{x})
}

// Dot adds a general dot product, with the result dtype equal to the operands' dtype.
func (b *Builder) Dot(lhs, rhs *Instruction, dims DotDimensionNumbers, options ...Option) *Instruction {
	return b.DotWithOutputDType(lhs, rhs, dims, lhs.shape.DType, options...)
}

// DotWithOutputDType adds a general dot product whose result has the given dtype (e.g.: Int8
// operands accumulated into an Int32 result).
//
// The result dimensions are the batch dimensions, followed by the lhs free dimensions and
// then the rhs free dimensions.
func (b *Builder) DotWithOutputDType(lhs, rhs *Instruction, dims DotDimensionNumbers, dtype dtypes.DType, options ...Option) *Instruction {
	if len(dims.LhsBatch) != len(dims.RhsBatch) || len(dims.LhsContracting) != len(dims.RhsContracting) {
		exceptions.Panicf("hlo.Builder.Dot: lhs and rhs have a different number of batch or contracting axes: %s", dims)
	}
	lhsFree := freeAxes(lhs.shape.Rank(), dims.LhsBatch, dims.LhsContracting)
	rhsFree := freeAxes(rhs.shape.Rank(), dims.RhsBatch, dims.RhsContracting)
	if lhsFree == nil || rhsFree == nil {
		exceptions.Panicf("hlo.Builder.Dot: invalid dimension numbers (%s) for lhs %s and rhs %s", dims, lhs.shape, rhs.shape)
	}
	for ii, lhsAxis := range dims.LhsBatch {
		if lhs.shape.Dimensions[lhsAxis] != rhs.shape.Dimensions[dims.RhsBatch[ii]] {
			exceptions.Panicf("hlo.Builder.Dot: batch dimensions don't match for lhs %s and rhs %s (%s)", lhs.shape, rhs.shape, dims)
		}
	}
	for ii, lhsAxis := range dims.LhsContracting {
		if lhs.shape.Dimensions[lhsAxis] != rhs.shape.Dimensions[dims.RhsContracting[ii]] {
			exceptions.Panicf("hlo.Builder.Dot: contracting dimensions don't match for lhs %s and rhs %s (%s)", lhs.shape, rhs.shape, dims)
		}
	}
	outputDims := make([]int, 0, len(dims.LhsBatch)+len(lhsFree)+len(rhsFree))
	for _, axis := range dims.LhsBatch {
		outputDims = append(outputDims, lhs.shape.Dimensions[axis])
	}
	for _, axis := range lhsFree {
		outputDims = append(outputDims, lhs.shape.Dimensions[axis])
	}
	for _, axis := range rhsFree {
		outputDims = append(outputDims, rhs.shape.Dimensions[axis])
	}
	options = append([]Option{WithDotDimensionNumbers(dims)}, options...)
	return b.Add(OpcodeDot, shapes.Make(dtype, outputDims...), []*Instruction{lhs, rhs}, options...)
}

// freeAxes returns the axes not in batch or contracting, in increasing order. It returns nil
// if the axes are out-of-bounds or repeated.
func freeAxes(rank int, batch, contracting []int) []int {
	used := sets.Make[int](rank)
	for _, axis := range slices.Concat(batch, contracting) {
		if axis < 0 || axis >= rank || !used.InsertNew(axis) {
			return nil
		}
	}
	free := make([]int, 0, rank-len(used))
	for axis := range rank {
		if !used.Has(axis) {
			free = append(free, axis)
		}
	}
	return free
}

// CustomCall adds a call to an external library function identified by target.
func (b *Builder) CustomCall(target string, shape shapes.Shape, operands []*Instruction, options ...Option) *Instruction {
	options = append([]Option{WithCustomCallTarget(target)}, options...)
	return b.Add(OpcodeCustomCall, shape, operands, options...)
}

// ConvolutionCustomCall adds a call to a DNN library convolution. Like the library call, it returns
// a tuple with the convolution result and a scratch buffer of scratchBytes (> 0) bytes.
func (b *Builder) ConvolutionCustomCall(target string, result shapes.Shape, scratchBytes int,
	dims ConvolutionDimensionNumbers, operands ...*Instruction) *Instruction {
	shape := shapes.MakeTuple(result, shapes.Make(dtypes.Uint8, scratchBytes))
	return b.CustomCall(target, shape, operands, WithConvolutionDimensionNumbers(dims))
}

// GetTupleElement adds the extraction of the element index of the tuple x.
func (b *Builder) GetTupleElement(x *Instruction, index int) *Instruction {
	if !x.shape.IsTuple() || index < 0 || index >= x.shape.TupleSize() {
		exceptions.Panicf("hlo.Builder.GetTupleElement: invalid index %d for %s", index, x.shape)
	}
	return b.Add(OpcodeGetTupleElement, x.shape.TupleShapes[index].WithoutLayout(), []*Instruction{x}, WithTupleIndex(index))
}

// Tuple adds a tuple made of the values of the operands.
func (b *Builder) Tuple(operands ...*Instruction) *Instruction {
	elements := make([]shapes.Shape, len(operands))
	for ii, operand := range operands {
		elements[ii] = operand.shape.WithoutLayout()
	}
	return b.Add(OpcodeTuple, shapes.MakeTuple(elements...), operands)
}

// Fft adds a Fourier transform of x. The shape is kept.
func (b *Builder) Fft(x *Instruction) *Instruction {
	return b.Add(OpcodeFft, x.shape.WithoutLayout(), []*Instruction{x})
}

// Sort adds a sort of keys (the first operand) along axis, with the other operands permuted
// along. With more than one operand the result is a tuple.
func (b *Builder) Sort(axis int, operands ...*Instruction) *Instruction {
	if len(operands) == 0 {
		exceptions.Panicf("hlo.Builder.Sort: no operands given")
	}
	keys := operands[0]
	if axis < 0 || axis >= keys.shape.Rank() {
		exceptions.Panicf("hlo.Builder.Sort: axis %d out-of-bounds for keys %s", axis, keys.shape)
	}
	if len(operands) == 1 {
		return b.Add(OpcodeSort, keys.shape.WithoutLayout(), operands, WithDimensions(axis))
	}
	elements := make([]shapes.Shape, len(operands))
	for ii, operand := range operands {
		if !slices.Equal(operand.shape.Dimensions, keys.shape.Dimensions) {
			exceptions.Panicf("hlo.Builder.Sort: operand #%d %s doesn't match keys %s", ii, operand.shape, keys.shape)
		}
		elements[ii] = operand.shape.WithoutLayout()
	}
	return b.Add(OpcodeSort, shapes.MakeTuple(elements...), operands, WithDimensions(axis))
}

// TriangularSolve adds the solution x of a·x = rhs, for a batch of triangular matrices a.
// The result has the shape of rhs.
func (b *Builder) TriangularSolve(a, rhs *Instruction) *Instruction {
	if a.shape.Rank() < 2 || a.shape.Rank() != rhs.shape.Rank() {
		exceptions.Panicf("hlo.Builder.TriangularSolve: invalid operands %s and %s", a.shape, rhs.shape)
	}
	return b.Add(OpcodeTriangularSolve, rhs.shape.WithoutLayout(), []*Instruction{a, rhs})
}

// Collective adds a cross-device collective (AllGather, ReduceScatter or AllToAll) over the given
// axis of x, with the given result shape.
func (b *Builder) Collective(opcode Opcode, x *Instruction, axis int, shape shapes.Shape) *Instruction {
	if !opcode.IsCollective() {
		exceptions.Panicf("hlo.Builder.Collective: %s is not a collective", opcode)
	}
	if axis < 0 || axis >= shape.Rank() {
		exceptions.Panicf("hlo.Builder.Collective(%s): axis %d out-of-bounds for %s", opcode, axis, shape)
	}
	return b.Add(opcode, shape, []*Instruction{x}, WithDimensions(axis))
}

// Build finalizes the computation with the given root. The builder can't be used afterward.
func (b *Builder) Build(root *Instruction) *Computation {
	if b.built {
		exceptions.Panicf("hlo.Builder(%q): Build() called twice", b.computation.name)
	}
	c := b.computation
	if root == nil || root.id >= len(c.instructions) || c.instructions[root.id] != root {
		exceptions.Panicf("hlo.Builder(%q): root doesn't belong to this computation", c.name)
	}
	c.root = root
	b.built = true
	return c
}
