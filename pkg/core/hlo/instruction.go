// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package hlo

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gpulayout/pkg/core/shapes"
)

// Instruction is a node of a Computation. Its shape, operands and metadata are fixed once
// it is added to a Builder; only the list of users grows while the computation is built.
type Instruction struct {
	id       int
	name     string
	opcode   Opcode
	shape    shapes.Shape
	operands []*Instruction
	users    []*Instruction

	// Opcode specific metadata.
	dotDims          *DotDimensionNumbers
	convDims         *ConvolutionDimensionNumbers
	dimensions       []int
	customCallTarget string
	parameterNumber  int
	tupleIndex       int
}

// ID is unique within the Computation, and follows insertion order.
func (instr *Instruction) ID() int { return instr.id }

// Name of the instruction, unique within the Computation.
func (instr *Instruction) Name() string { return instr.name }

// Opcode returns the kind of instruction.
func (instr *Instruction) Opcode() Opcode { return instr.opcode }

// Shape returns a copy of the shape of the value produced by the instruction. The layout, if set, is
// the one the graph was built with (e.g.: the entry computation layout for parameters).
func (instr *Instruction) Shape() shapes.Shape { return instr.shape.Clone() }

// OperandCount returns the number of operands.
func (instr *Instruction) OperandCount() int { return len(instr.operands) }

// Operand returns the i-th operand. It panics if i is out-of-bounds.
func (instr *Instruction) Operand(i int) *Instruction {
	if i < 0 || i >= len(instr.operands) {
		exceptions.Panicf("operand %d out-of-bounds for %s with %d operands", i, instr.name, len(instr.operands))
	}
	return instr.operands[i]
}

// Operands returns a copy of the list of operands.
func (instr *Instruction) Operands() []*Instruction { return slices.Clone(instr.operands) }

// Users returns a copy of the instructions that use this one as an operand, in insertion order.
// An instruction that uses this one more than once is listed once.
func (instr *Instruction) Users() []*Instruction { return slices.Clone(instr.users) }

// UserCount returns the number of distinct users.
func (instr *Instruction) UserCount() int { return len(instr.users) }

// OperandIndices returns the positions at which operand appears in this instruction's operands.
func (instr *Instruction) OperandIndices(operand *Instruction) []int {
	var indices []int
	for ii, op := range instr.operands {
		if op == operand {
			indices = append(indices, ii)
		}
	}
	return indices
}

// DotDimensionNumbers returns a copy of the dot metadata, or nil if not set.
func (instr *Instruction) DotDimensionNumbers() *DotDimensionNumbers {
	if instr.dotDims == nil {
		return nil
	}
	dims := instr.dotDims.Clone()
	return &dims
}

// ConvolutionDimensionNumbers returns a copy of the convolution metadata, or nil if not set.
func (instr *Instruction) ConvolutionDimensionNumbers() *ConvolutionDimensionNumbers {
	if instr.convDims == nil {
		return nil
	}
	dims := instr.convDims.Clone()
	return &dims
}

// Dimensions returns the opcode-specific list of axes: the permutation of a Transpose,
// or the gather/scatter/split axis of a collective.
func (instr *Instruction) Dimensions() []int { return slices.Clone(instr.dimensions) }

// CustomCallTarget returns the name of the external function a CustomCall delegates to.
func (instr *Instruction) CustomCallTarget() string { return instr.customCallTarget }

// ParameterNumber returns the position of a Parameter in the Computation's signature.
func (instr *Instruction) ParameterNumber() int { return instr.parameterNumber }

// TupleIndex returns the index extracted by a GetTupleElement.
func (instr *Instruction) TupleIndex() int { return instr.tupleIndex }

// String returns a one-line description of the instruction, e.g.:
// "dot.3 = (Float32)[2 3 5] Dot(p0.0, p1.1)".
func (instr *Instruction) String() string {
	var sb strings.Builder
	_, _ = fmt.Fprintf(&sb, "%s = %s %s(", instr.name, instr.shape, instr.opcode)
	for ii, op := range instr.operands {
		if ii > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(op.name)
	}
	sb.WriteString(")")
	switch {
	case instr.dotDims != nil:
		_, _ = fmt.Fprintf(&sb, ", %s", instr.dotDims)
	case instr.convDims != nil:
		_, _ = fmt.Fprintf(&sb, ", %s", instr.convDims)
	}
	if len(instr.dimensions) > 0 {
		_, _ = fmt.Fprintf(&sb, ", dimensions=%v", instr.dimensions)
	}
	if instr.customCallTarget != "" {
		_, _ = fmt.Fprintf(&sb, ", custom_call_target=%q", instr.customCallTarget)
	}
	return sb.String()
}

// Option configures opcode-specific metadata of an instruction being added with Builder.Add.
type Option func(instr *Instruction)

// WithName sets the name of the instruction. By default, it is the lower-case opcode name
// followed by the instruction id.
func WithName(name string) Option {
	return func(instr *Instruction) { instr.name = name }
}

// WithDotDimensionNumbers sets the Dot metadata.
func WithDotDimensionNumbers(dims DotDimensionNumbers) Option {
	return func(instr *Instruction) {
		clone := dims.Clone()
		instr.dotDims = &clone
	}
}

// WithConvolutionDimensionNumbers sets the convolution metadata, for convolutions and for
// custom calls to convolution libraries.
func WithConvolutionDimensionNumbers(dims ConvolutionDimensionNumbers) Option {
	return func(instr *Instruction) {
		clone := dims.Clone()
		instr.convDims = &clone
	}
}

// WithDimensions sets the opcode-specific list of axes. See Instruction.Dimensions.
func WithDimensions(dims ...int) Option {
	return func(instr *Instruction) { instr.dimensions = slices.Clone(dims) }
}

// WithCustomCallTarget sets the target of a CustomCall.
func WithCustomCallTarget(target string) Option {
	return func(instr *Instruction) { instr.customCallTarget = target }
}

// WithTupleIndex sets the index of a GetTupleElement.
func WithTupleIndex(index int) Option {
	return func(instr *Instruction) { instr.tupleIndex = index }
}
