// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package layout

import (
	"fmt"

	"github.com/gomlx/gpulayout/pkg/core/hlo"
	"github.com/gomlx/gpulayout/pkg/core/shapes"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// ErrConflictingConstraint is returned (wrapped) when a layout is registered for a slot that already
// holds a different layout.
var ErrConflictingConstraint = errors.New("conflicting layout constraint")

type slotKind int8

const (
	slotOperand slotKind = iota
	slotResult
	slotBuffer
)

// Slot identifies where a layout constraint applies: one operand of an instruction, its
// (non-tuple) result, or one element of its tuple result.
type Slot struct {
	kind  slotKind
	index int
}

// OperandSlot returns the slot of the operand #i of an instruction.
func OperandSlot(i int) Slot { return Slot{kind: slotOperand, index: i} }

// ResultSlot is the slot of the value produced by an instruction with a non-tuple shape.
var ResultSlot = Slot{kind: slotResult}

// TupleResultSlot returns the slot of the element #i of the tuple produced by an instruction.
func TupleResultSlot(i int) Slot { return Slot{kind: slotBuffer, index: i} }

// IsOperand returns whether the slot refers to an operand, see OperandIndex.
func (s Slot) IsOperand() bool { return s.kind == slotOperand }

// OperandIndex returns the operand index, or -1 if the slot is not an operand.
func (s Slot) OperandIndex() int {
	if s.kind != slotOperand {
		return -1
	}
	return s.index
}

// TupleIndex returns the tuple element index, or -1 if the slot is not a tuple result element.
func (s Slot) TupleIndex() int {
	if s.kind != slotBuffer {
		return -1
	}
	return s.index
}

// String implements fmt.Stringer.
func (s Slot) String() string {
	switch s.kind {
	case slotOperand:
		return fmt.Sprintf("operand #%d", s.index)
	case slotBuffer:
		return fmt.Sprintf("result{%d}", s.index)
	default:
		return "result"
	}
}

// Constraint is a layout required for one slot of one instruction.
type Constraint struct {
	Instruction *hlo.Instruction
	Slot        Slot
	Layout      shapes.Layout
}

// String implements fmt.Stringer.
func (c Constraint) String() string {
	return fmt.Sprintf("%s of %s: %s", c.Slot, c.Instruction.Name(), c.Layout)
}

type constraintKey struct {
	instr *hlo.Instruction
	slot  Slot
}

// Constraints is the set of layouts required so far for one assignment. Once set, a layout
// can't be changed for the slot: setting the same layout again is a no-op, and setting a
// different one fails with ErrConflictingConstraint.
//
// It is not safe for concurrent use: each assignment creates its own.
type Constraints struct {
	byKey map[constraintKey]int
	list  []Constraint
}

// NewConstraints returns an empty set of constraints.
func NewConstraints() *Constraints {
	return &Constraints{byKey: make(map[constraintKey]int)}
}

// Len returns the number of registered constraints.
func (c *Constraints) Len() int { return len(c.list) }

// All returns a copy of the constraints, in the order they were registered.
func (c *Constraints) All() []Constraint {
	all := make([]Constraint, len(c.list))
	for ii, constraint := range c.list {
		all[ii] = constraint
		all[ii].Layout = constraint.Layout.Clone()
	}
	return all
}

// Get returns the layout registered for the slot of instr, if any.
func (c *Constraints) Get(instr *hlo.Instruction, slot Slot) (layout shapes.Layout, found bool) {
	idx, found := c.byKey[constraintKey{instr, slot}]
	if !found {
		return
	}
	return c.list[idx].Layout.Clone(), true
}

// OperandLayout returns the layout required for the operand #i of instr, if any.
func (c *Constraints) OperandLayout(instr *hlo.Instruction, i int) (shapes.Layout, bool) {
	return c.Get(instr, OperandSlot(i))
}

// ResultLayout returns the layout required for the (non-tuple) result of instr, if any.
func (c *Constraints) ResultLayout(instr *hlo.Instruction) (shapes.Layout, bool) {
	return c.Get(instr, ResultSlot)
}

// BufferLayout returns the layout required for the element #i of the tuple result of instr, if any.
func (c *Constraints) BufferLayout(instr *hlo.Instruction, i int) (shapes.Layout, bool) {
	return c.Get(instr, TupleResultSlot(i))
}

// SetOperandLayout requires the operand #i of instr to be given to it with the given layout.
func (c *Constraints) SetOperandLayout(instr *hlo.Instruction, i int, layout shapes.Layout) error {
	if i < 0 || i >= instr.OperandCount() {
		return errors.Errorf("%s: operand #%d out-of-bounds (%d operands)", instr.Name(), i, instr.OperandCount())
	}
	return c.set(instr, OperandSlot(i), instr.Operand(i).Shape(), layout)
}

// SetResultLayout requires the (non-tuple) result of instr to be produced with the given layout.
// Use SetBufferLayout for instructions with a tuple result.
func (c *Constraints) SetResultLayout(instr *hlo.Instruction, layout shapes.Layout) error {
	return c.set(instr, ResultSlot, instr.Shape(), layout)
}

// SetBufferLayout requires the element #i of the tuple result of instr to be produced with the given layout.
func (c *Constraints) SetBufferLayout(instr *hlo.Instruction, i int, layout shapes.Layout) error {
	shape := instr.Shape()
	if !shape.IsTuple() {
		return errors.Errorf("%s: cannot set the layout of tuple element #%d of non-tuple result %s", instr.Name(), i, shape)
	}
	if i < 0 || i >= shape.TupleSize() {
		return errors.Errorf("%s: tuple element #%d out-of-bounds for %s", instr.Name(), i, shape)
	}
	return c.set(instr, TupleResultSlot(i), shape.TupleShapes[i], layout)
}

func (c *Constraints) set(instr *hlo.Instruction, slot Slot, shape shapes.Shape, layout shapes.Layout) error {
	if shape.IsTuple() {
		return errors.Errorf("%s of %s: cannot set a layout for tuple shape %s", slot, instr.Name(), shape)
	}
	if err := layout.Validate(shape.Rank()); err != nil {
		return errors.WithMessagef(err, "%s of %s with shape %s", slot, instr.Name(), shape)
	}
	key := constraintKey{instr, slot}
	if idx, found := c.byKey[key]; found {
		current := c.list[idx].Layout
		if current.Equal(layout) {
			return nil
		}
		return errors.Wrapf(ErrConflictingConstraint, "%s of %s: layout %s already required, can't require %s",
			slot, instr.Name(), current, layout)
	}
	c.byKey[key] = len(c.list)
	c.list = append(c.list, Constraint{Instruction: instr, Slot: slot, Layout: layout.Clone()})
	if klog.V(3).Enabled() {
		klog.Infof("layout constraint: %s of %s = %s", slot, instr.Name(), layout)
	}
	return nil
}
