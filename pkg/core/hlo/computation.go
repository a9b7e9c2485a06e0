// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package hlo holds a minimal, read-only representation of a dataflow program:
// a Module with an entry Computation made of Instruction nodes, each with fully resolved
// shapes and the dimension-number metadata of dots and convolutions.
//
// Computations are created with a Builder (see NewBuilder) or read from JSON (see ReadModuleJSON),
// and are not modified afterward.
package hlo

import (
	"fmt"
	"slices"
	"strings"
)

// Computation is a graph of instructions with one root, whose value is the computation's result.
type Computation struct {
	name         string
	instructions []*Instruction
	root         *Instruction
	parameters   []*Instruction
	byName       map[string]*Instruction
}

// Name of the computation.
func (c *Computation) Name() string { return c.name }

// Root returns the instruction whose value is the result of the computation.
func (c *Computation) Root() *Instruction { return c.root }

// Instructions returns all instructions in insertion order (which is also a topological order).
func (c *Computation) Instructions() []*Instruction { return slices.Clone(c.instructions) }

// InstructionCount returns the number of instructions.
func (c *Computation) InstructionCount() int { return len(c.instructions) }

// Parameters returns the parameters ordered by ParameterNumber.
func (c *Computation) Parameters() []*Instruction { return slices.Clone(c.parameters) }

// InstructionByName returns the instruction with the given name, or nil if there is none.
func (c *Computation) InstructionByName(name string) *Instruction { return c.byName[name] }

// MakeInstructionPostOrder returns all instructions ordered such that every instruction comes
// after its operands. Instructions reachable from the root come first, in depth-first order of
// their operands; instructions not reachable from the root follow, in insertion order.
func (c *Computation) MakeInstructionPostOrder() []*Instruction {
	postOrder := make([]*Instruction, 0, len(c.instructions))
	visited := make([]bool, len(c.instructions))
	type frame struct {
		instr     *Instruction
		nextInput int
	}
	visit := func(start *Instruction) {
		if visited[start.id] {
			return
		}
		visited[start.id] = true
		stack := []frame{{instr: start}}
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.nextInput < len(top.instr.operands) {
				operand := top.instr.operands[top.nextInput]
				top.nextInput++
				if !visited[operand.id] {
					visited[operand.id] = true
					stack = append(stack, frame{instr: operand})
				}
				continue
			}
			postOrder = append(postOrder, top.instr)
			stack = stack[:len(stack)-1]
		}
	}
	if c.root != nil {
		visit(c.root)
	}
	for _, instr := range c.instructions {
		visit(instr)
	}
	return postOrder
}

// String returns a multi-line listing of the computation.
func (c *Computation) String() string {
	var sb strings.Builder
	_, _ = fmt.Fprintf(&sb, "computation %s {\n", c.name)
	for _, instr := range c.instructions {
		prefix := "  "
		if instr == c.root {
			prefix = "  ROOT "
		}
		_, _ = fmt.Fprintf(&sb, "%s%s\n", prefix, instr)
	}
	sb.WriteString("}")
	return sb.String()
}

// Module is a compilation unit: one entry computation.
type Module struct {
	name  string
	entry *Computation
}

// NewModule creates a module with the given entry computation.
func NewModule(name string, entry *Computation) *Module {
	return &Module{name: name, entry: entry}
}

// Name of the module.
func (m *Module) Name() string { return m.name }

// Entry returns the entry computation.
func (m *Module) Entry() *Computation { return m.entry }
