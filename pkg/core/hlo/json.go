// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package hlo

import (
	"encoding/json"
	"io"
	"os"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/gpulayout/pkg/core/shapes"
	"github.com/gomlx/gpulayout/pkg/support/fsutil"
	"github.com/pkg/errors"
)

// jsonModule is the serialized form of a Module read by ReadModuleJSON.
//
// Example:
//
//	{"name": "matmul", "entry": {"name": "main", "root": "dot", "instructions": [
//	  {"name": "x", "opcode": "Parameter", "shape": {"dtype": "Float32", "dimensions": [2, 3]}},
//	  {"name": "y", "opcode": "Parameter", "shape": {"dtype": "Float32", "dimensions": [3, 4], "layout": [0, 1]}},
//	  {"name": "dot", "opcode": "Dot", "operands": ["x", "y"], "shape": {"dtype": "Float32", "dimensions": [2, 4]},
//	   "dot_dimension_numbers": {"lhs_contracting": [1], "rhs_contracting": [0]}}]}}
type jsonModule struct {
	Name  string          `json:"name"`
	Entry jsonComputation `json:"entry"`
}

type jsonComputation struct {
	Name         string            `json:"name"`
	Root         string            `json:"root"`
	Instructions []jsonInstruction `json:"instructions"`
}

type jsonInstruction struct {
	Name             string                    `json:"name"`
	Opcode           string                    `json:"opcode"`
	Shape            jsonShape                 `json:"shape"`
	Operands         []string                  `json:"operands,omitempty"`
	DotDims          *jsonDotDimensionNumbers  `json:"dot_dimension_numbers,omitempty"`
	ConvDims         *jsonConvDimensionNumbers `json:"convolution_dimension_numbers,omitempty"`
	Dimensions       []int                     `json:"dimensions,omitempty"`
	CustomCallTarget string                    `json:"custom_call_target,omitempty"`
	TupleIndex       int                       `json:"tuple_index,omitempty"`
}

// jsonShape has either DType and Dimensions set, or Tuple.
type jsonShape struct {
	DType      string      `json:"dtype,omitempty"`
	Dimensions []int       `json:"dimensions,omitempty"`
	Layout     []int       `json:"layout,omitempty"` // Minor-to-major.
	Tuple      []jsonShape `json:"tuple,omitempty"`
}

type jsonDotDimensionNumbers struct {
	LhsBatch       []int `json:"lhs_batch"`
	LhsContracting []int `json:"lhs_contracting"`
	RhsBatch       []int `json:"rhs_batch"`
	RhsContracting []int `json:"rhs_contracting"`
}

type jsonConvDimensionNumbers struct {
	InputBatch          int   `json:"input_batch"`
	InputFeature        int   `json:"input_feature"`
	InputSpatial        []int `json:"input_spatial"`
	KernelInputFeature  int   `json:"kernel_input_feature"`
	KernelOutputFeature int   `json:"kernel_output_feature"`
	KernelSpatial       []int `json:"kernel_spatial"`
	OutputBatch         int   `json:"output_batch"`
	OutputFeature       int   `json:"output_feature"`
	OutputSpatial       []int `json:"output_spatial"`
}

// LoadModuleJSON reads a Module from a JSON file. See ReadModuleJSON.
// A leading "~" in path is expanded to the home directory.
func LoadModuleJSON(path string) (*Module, error) {
	path, err := fsutil.ReplaceTilde(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open HLO module file %q", path)
	}
	defer func() { _ = f.Close() }()
	module, err := ReadModuleJSON(f)
	if err != nil {
		return nil, errors.WithMessagef(err, "while reading %q", path)
	}
	return module, nil
}

// ReadModuleJSON reads a Module serialized as JSON.
//
// Shapes are given explicitly (no shape inference is done) and instructions must be listed
// after their operands. Opcodes and dtypes are given by name, e.g. "Dot" and "Float32".
// Parameters are numbered in the order they appear.
func ReadModuleJSON(r io.Reader) (*Module, error) {
	var jm jsonModule
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&jm); err != nil {
		return nil, errors.Wrap(err, "failed to decode HLO module JSON")
	}
	var entry *Computation
	err := exceptions.TryCatch[error](func() { entry = jm.Entry.build() })
	if err != nil {
		return nil, errors.WithMessagef(err, "invalid module %q", jm.Name)
	}
	return NewModule(jm.Name, entry), nil
}

// build panics with an error if the computation is invalid.
func (jc *jsonComputation) build() *Computation {
	b := NewBuilder(jc.Name)
	for _, ji := range jc.Instructions {
		opcode, err := OpcodeString(ji.Opcode)
		if err != nil {
			panic(errors.Wrapf(err, "instruction %q", ji.Name))
		}
		shape, err := ji.Shape.toShape()
		if err != nil {
			panic(errors.WithMessagef(err, "instruction %q", ji.Name))
		}
		operands := make([]*Instruction, len(ji.Operands))
		for ii, operandName := range ji.Operands {
			operands[ii] = b.computation.byName[operandName]
			if operands[ii] == nil {
				exceptions.Panicf("instruction %q: operand %q not defined before its use", ji.Name, operandName)
			}
		}
		options := []Option{WithName(ji.Name)}
		if ji.DotDims != nil {
			options = append(options, WithDotDimensionNumbers(DotDimensionNumbers(*ji.DotDims)))
		}
		if ji.ConvDims != nil {
			options = append(options, WithConvolutionDimensionNumbers(ConvolutionDimensionNumbers(*ji.ConvDims)))
		}
		if ji.Dimensions != nil {
			options = append(options, WithDimensions(ji.Dimensions...))
		}
		if ji.CustomCallTarget != "" {
			options = append(options, WithCustomCallTarget(ji.CustomCallTarget))
		}
		if opcode == OpcodeGetTupleElement {
			options = append(options, WithTupleIndex(ji.TupleIndex))
		}
		if opcode == OpcodeParameter {
			b.Parameter(shape, options...)
		} else {
			b.Add(opcode, shape, operands, options...)
		}
	}
	root := b.computation.byName[jc.Root]
	if root == nil {
		exceptions.Panicf("root instruction %q not found in computation %q", jc.Root, jc.Name)
	}
	return b.Build(root)
}

func (js jsonShape) toShape() (shape shapes.Shape, err error) {
	if len(js.Tuple) > 0 {
		elements := make([]shapes.Shape, len(js.Tuple))
		for ii, element := range js.Tuple {
			elements[ii], err = element.toShape()
			if err != nil {
				return
			}
		}
		return shapes.MakeTuple(elements...), nil
	}
	dtype, found := dtypes.MapOfNames[js.DType]
	if !found || dtype == dtypes.InvalidDType {
		return shapes.Invalid(), errors.Errorf("unknown dtype %q", js.DType)
	}
	err = exceptions.TryCatch[error](func() {
		if js.Layout == nil {
			shape = shapes.Make(dtype, js.Dimensions...)
		} else {
			shape = shapes.MakeWithLayout(dtype, js.Dimensions, js.Layout)
		}
	})
	return
}
