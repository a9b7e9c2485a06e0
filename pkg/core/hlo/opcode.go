// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package hlo

// Opcode enumerates the kinds of instructions in a Computation.
type Opcode int

//go:generate go tool enumer -type=Opcode -trimprefix=Opcode -output=gen_opcode_enumer.go opcode.go

const (
	OpcodeInvalid Opcode = iota
	OpcodeParameter
	OpcodeConstant
	OpcodeTuple
	OpcodeGetTupleElement

	OpcodeAbs
	OpcodeAdd
	OpcodeMultiply
	OpcodeNegate
	OpcodeConvert

	OpcodeBitcast
	OpcodeBroadcast
	OpcodeCopy
	OpcodeReshape
	OpcodeTranspose

	OpcodeDot
	OpcodeConvolution
	OpcodeCustomCall
	OpcodeFft
	OpcodeSort
	OpcodeTriangularSolve

	OpcodeAllGather
	OpcodeAllToAll
	OpcodeReduceScatter

	// OpcodeLast should always be kept the last, it is used as a counter/marker for Opcode.
	OpcodeLast
)

// IsElementwise returns whether the opcode operates independently on each element, so
// the result has the same dimensions as its (non-scalar) operands.
func (op Opcode) IsElementwise() bool {
	switch op {
	case OpcodeAbs, OpcodeAdd, OpcodeMultiply, OpcodeNegate, OpcodeConvert:
		return true
	default:
		return false
	}
}

// IsCollective returns whether the opcode is a cross-device collective that moves a
// chosen dimension across devices.
func (op Opcode) IsCollective() bool {
	return op == OpcodeAllGather || op == OpcodeAllToAll || op == OpcodeReduceScatter
}
