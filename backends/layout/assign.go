// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package layout

import (
	"fmt"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gpulayout/pkg/core/hlo"
	"github.com/gomlx/gpulayout/pkg/core/shapes"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Copy is a layout change the engine had to insert because an instruction requires an operand in a
// layout different from the one it was produced with.
type Copy struct {
	User         *hlo.Instruction
	OperandIndex int
	From, To     shapes.Layout
}

// String implements fmt.Stringer.
func (c Copy) String() string {
	return fmt.Sprintf("copy %s -> %s for operand #%d (%s) of %s",
		c.From, c.To, c.OperandIndex, c.User.Operand(c.OperandIndex).Name(), c.User.Name())
}

// Result of an assignment: the layout of every instruction result and required operand.
type Result struct {
	computation *hlo.Computation
	constraints *Constraints

	canChange      map[*hlo.Instruction]bool
	shapes         map[*hlo.Instruction]shapes.Shape
	operandLayouts map[constraintKey]shapes.Layout
	copies         []Copy
}

// Assign runs the layout assignment of the entry computation of module, with the requirements of backend.
//
// Errors returned by the backend (or panics while it runs) fail the assignment as a whole. Constraints
// registered before the failure are not rolled back: the assignment is discarded.
func Assign(module *hlo.Module, backend Backend) (*Result, error) {
	computation := module.Entry()
	if computation == nil || computation.Root() == nil {
		return nil, errors.Errorf("module %q has no entry computation", module.Name())
	}
	r := &Result{
		computation:    computation,
		constraints:    NewConstraints(),
		canChange:      make(map[*hlo.Instruction]bool, computation.InstructionCount()),
		shapes:         make(map[*hlo.Instruction]shapes.Shape, computation.InstructionCount()),
		operandLayouts: make(map[constraintKey]shapes.Layout),
	}
	for _, param := range computation.Parameters() {
		if param.Shape().IsTuple() || !param.Shape().HasLayout() {
			continue
		}
		if err := r.constraints.SetResultLayout(param, param.Shape().Layout); err != nil {
			return nil, errors.WithMessagef(err, "module %q", module.Name())
		}
	}

	var backendErr error
	err := exceptions.TryCatch[error](func() {
		backendErr = backend.AddBackendConstraints(computation, r.constraints)
		if backendErr == nil {
			r.propagate(backend)
		}
	})
	if err == nil {
		err = backendErr
	}
	if err != nil {
		return nil, errors.WithMessagef(err, "layout assignment of module %q with backend %q failed", module.Name(), backend.Name())
	}
	klog.V(1).Infof("layout assignment of module %q with backend %q: %d instructions, %d constraints, %d copies",
		module.Name(), backend.Name(), computation.InstructionCount(), r.constraints.Len(), len(r.copies))
	return r, nil
}

// propagate assigns result layouts in post-order (operands first), and then works out the
// operand layouts required by each instruction.
func (r *Result) propagate(backend Backend) {
	postOrder := r.computation.MakeInstructionPostOrder()
	for _, instr := range postOrder {
		r.canChange[instr] = backend.InstructionCanChangeLayout(instr)
		r.shapes[instr] = r.chooseResultShape(instr)
	}
	for _, instr := range postOrder {
		for ii, operand := range instr.Operands() {
			r.requireOperand(instr, ii, operand)
		}
	}
}

func (r *Result) chooseResultShape(instr *hlo.Instruction) shapes.Shape {
	shape := instr.Shape().Clone()
	if shape.IsTuple() {
		for ii := range shape.TupleShapes {
			element := &shape.TupleShapes[ii]
			if layout, found := r.constraints.BufferLayout(instr, ii); found {
				element.Layout = layout
			} else if instr.Opcode() == hlo.OpcodeTuple {
				*element = r.shapes[instr.Operand(ii)].Clone()
			} else {
				*element = withDefaultLayouts(*element)
			}
		}
		return shape
	}
	shape.Layout = r.chooseResultLayout(instr)
	return shape
}

// chooseResultLayout for a non-tuple result, in order of preference: its constraint; the layout of the
// tuple element it extracts; the layout of its operand if it can't change layout; a layout required
// by one of its users; the layout that makes a transpose a bitcast; the default layout.
func (r *Result) chooseResultLayout(instr *hlo.Instruction) shapes.Layout {
	if layout, found := r.constraints.ResultLayout(instr); found {
		return layout
	}
	rank := instr.Shape().Rank()
	if instr.Opcode() == hlo.OpcodeGetTupleElement {
		return r.shapes[instr.Operand(0)].TupleShapes[instr.TupleIndex()].Layout.Clone()
	}
	if !r.canChange[instr] && instr.OperandCount() > 0 {
		operandShape := r.shapes[instr.Operand(0)]
		if !operandShape.IsTuple() && operandShape.Rank() == rank {
			return operandShape.Layout.Clone()
		}
	}
	for _, user := range instr.Users() {
		for _, operandIdx := range user.OperandIndices(instr) {
			if layout, found := r.constraints.OperandLayout(user, operandIdx); found {
				return layout
			}
		}
	}
	if instr.Opcode() == hlo.OpcodeTranspose {
		operandLayout := r.shapes[instr.Operand(0)].Layout
		return operandLayout.ThroughPermutation(shapes.InversePermutation(instr.Dimensions()))
	}
	return shapes.DefaultLayout(rank)
}

func (r *Result) requireOperand(instr *hlo.Instruction, operandIdx int, operand *hlo.Instruction) {
	produced := r.shapes[operand]
	if produced.IsTuple() {
		return
	}
	required, found := r.constraints.OperandLayout(instr, operandIdx)
	if !found {
		result := r.shapes[instr]
		if !r.canChange[instr] && !result.IsTuple() && result.Rank() == produced.Rank() {
			required = result.Layout.Clone()
		} else {
			required = produced.Layout.Clone()
		}
	}
	r.operandLayouts[constraintKey{instr, OperandSlot(operandIdx)}] = required
	if !required.Equal(produced.Layout) {
		c := Copy{User: instr, OperandIndex: operandIdx, From: produced.Layout.Clone(), To: required}
		klog.V(2).Infof("layout assignment: %s", c)
		r.copies = append(r.copies, c)
	}
}

func withDefaultLayouts(shape shapes.Shape) shapes.Shape {
	if shape.IsTuple() {
		for ii, element := range shape.TupleShapes {
			shape.TupleShapes[ii] = withDefaultLayouts(element)
		}
		return shape
	}
	return shape.WithDefaultLayout()
}

// Computation returns the computation that was assigned.
func (r *Result) Computation() *hlo.Computation { return r.computation }

// Constraints returns the constraints registered for the assignment.
func (r *Result) Constraints() *Constraints { return r.constraints }

// Shape returns the shape of the result of instr, with its assigned layout (or layouts, for tuples).
func (r *Result) Shape(instr *hlo.Instruction) shapes.Shape {
	shape, found := r.shapes[instr]
	if !found {
		exceptions.Panicf("layout.Result: instruction %s is not part of computation %q", instr.Name(), r.computation.Name())
	}
	return shape.Clone()
}

// Layout returns the layout assigned to the non-tuple result of instr.
func (r *Result) Layout(instr *hlo.Instruction) shapes.Layout {
	return r.Shape(instr).Layout
}

// OperandLayout returns the layout in which instr receives its operand #operandIdx. It returns false
// for tuple operands.
func (r *Result) OperandLayout(instr *hlo.Instruction, operandIdx int) (shapes.Layout, bool) {
	layout, found := r.operandLayouts[constraintKey{instr, OperandSlot(operandIdx)}]
	return layout.Clone(), found
}

// CanChangeLayout returns the answer the backend gave for instr.
func (r *Result) CanChangeLayout(instr *hlo.Instruction) bool { return r.canChange[instr] }

// Copies returns the layout changes inserted, in post-order of the users.
func (r *Result) Copies() []Copy { return append([]Copy(nil), r.copies...) }

// TransposeIsBitcast returns whether instr is a transpose the engine was allowed to turn into a
// bitcast, and whose assigned layouts make it one: no data is moved.
func (r *Result) TransposeIsBitcast(instr *hlo.Instruction) bool {
	if instr.Opcode() != hlo.OpcodeTranspose || !r.canChange[instr] {
		return false
	}
	operandLayout, found := r.OperandLayout(instr, 0)
	if !found {
		return false
	}
	return operandLayout.Equal(r.Layout(instr).ThroughPermutation(instr.Dimensions()))
}
