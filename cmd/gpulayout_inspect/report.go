// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/gpulayout/backends/gpu"
	"github.com/gomlx/gpulayout/backends/layout"
	"github.com/gomlx/gpulayout/internal/workerspool"
	"github.com/gomlx/gpulayout/pkg/core/hlo"
	"github.com/gomlx/gpulayout/pkg/support/sets"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"k8s.io/klog/v2"
)

// reportOptions select what is printed by report.
type reportOptions struct {
	Constraints, Layouts bool

	// Opcodes to include in the listings. If empty, all are included.
	Opcodes []hlo.Opcode

	// Progress displays a progress bar in the standard error while the modules are assigned.
	Progress bool
}

func (opts reportOptions) includes(instr *hlo.Instruction) bool {
	return len(opts.Opcodes) == 0 || slices.Contains(opts.Opcodes, instr.Opcode())
}

// reportAll reports each of the modules in modulePaths, assigning up to parallelism of them concurrently.
// The reports are written to w in the order given. It returns the first error, in the same order.
func reportAll(w io.Writer, modulePaths []string, backend layout.Backend, opts reportOptions, parallelism int) error {
	buffers := make([]bytes.Buffer, len(modulePaths))
	errs := make([]error, len(modulePaths))
	var bar *progressbar.ProgressBar
	if opts.Progress {
		bar = progressbar.Default(int64(len(modulePaths)), "Assigning layouts")
	}
	pool := workerspool.New(parallelism)
	for ii, modulePath := range modulePaths {
		pool.WaitToStart(func() {
			errs[ii] = report(&buffers[ii], modulePath, backend, opts)
			if bar != nil {
				_ = bar.Add(1)
			}
		})
	}
	pool.Wait()
	for ii := range modulePaths {
		if errs[ii] != nil {
			return errs[ii]
		}
		if _, err := buffers[ii].WriteTo(w); err != nil {
			return errors.Wrap(err, "failed to write report")
		}
	}
	return nil
}

// report loads the module in modulePath, assigns its layouts with backend and writes the tables to w.
func report(w io.Writer, modulePath string, backend layout.Backend, opts reportOptions) error {
	module, err := hlo.LoadModuleJSON(modulePath)
	if err != nil {
		return err
	}
	result, err := layout.Assign(module, backend)
	if err != nil {
		return errors.WithMessagef(err, "layout assignment of %q with backend %q", module.Name(), backend.Name())
	}
	klog.V(1).Infof("%s: %d constraints, %d copies", modulePath, result.Constraints().Len(), len(result.Copies()))

	copied := sets.Make[*hlo.Instruction]()
	for _, c := range result.Copies() {
		copied.Insert(c.User)
	}
	writeTitle(w, "Summary")
	writeSummary(w, module, backend, result)
	if opts.Constraints {
		writeTitle(w, "Constraints")
		writeConstraints(w, result, opts)
	}
	if opts.Layouts {
		writeTitle(w, "Layouts")
		writeLayouts(w, result, copied, opts)
	}
	if len(result.Copies()) > 0 {
		writeTitle(w, "Copies")
		writeCopies(w, result)
	}
	return nil
}

func writeSummary(w io.Writer, module *hlo.Module, backend layout.Backend, result *layout.Result) {
	table := newReportTable(right(""), left(""))
	table.add(plainRow, "module", module.Name())
	table.add(plainRow, "backend", backend.Name())
	if gpuBackend, ok := backend.(*gpu.LayoutAssignment); ok {
		table.add(plainRow, "device", fmt.Sprintf("%v", gpuBackend.Device()))
		table.add(plainRow, "config", gpuBackend.Config().String())
	}
	computation := result.Computation()
	table.add(plainRow, "# instructions", humanize.Comma(int64(computation.InstructionCount())))
	table.add(plainRow, "# constraints", humanize.Comma(int64(result.Constraints().Len())))

	var numBitcasts int
	for _, instr := range computation.Instructions() {
		if result.TransposeIsBitcast(instr) {
			numBitcasts++
		}
	}
	table.add(plainRow, "# transposes as bitcasts", humanize.Comma(int64(numBitcasts)))

	copies := result.Copies()
	var copiedBytes uintptr
	for _, c := range copies {
		copiedBytes += c.User.Operand(c.OperandIndex).Shape().Memory()
	}
	table.add(kindIf(len(copies) > 0), "# copies", humanize.Comma(int64(len(copies))))
	table.add(kindIf(len(copies) > 0), "copied bytes", humanize.Bytes(uint64(copiedBytes)))
	table.writeTo(w)
}

func writeConstraints(w io.Writer, result *layout.Result, opts reportOptions) {
	table := newReportTable(left("Instruction"), left("Opcode"), left("Slot"), left("Layout"))
	for _, c := range result.Constraints().All() {
		if !opts.includes(c.Instruction) {
			continue
		}
		table.add(plainRow, c.Instruction.Name(), c.Instruction.Opcode().String(), c.Slot.String(), c.Layout.String())
	}
	table.writeTo(w)
}

func writeLayouts(w io.Writer, result *layout.Result, copied sets.Set[*hlo.Instruction], opts reportOptions) {
	table := newReportTable(left("Instruction"), left("Opcode"), left("Shape"), left("Strides"),
		left("Operand Layouts"), right("Bytes"), left("Notes"))
	for _, instr := range result.Computation().MakeInstructionPostOrder() {
		if !opts.includes(instr) {
			continue
		}
		shape := result.Shape(instr)
		operandLayouts := make([]string, instr.OperandCount())
		for ii := range operandLayouts {
			if l, found := result.OperandLayout(instr, ii); found {
				operandLayouts[ii] = l.String()
			} else {
				operandLayouts[ii] = "-"
			}
		}
		var notes []string
		if !result.CanChangeLayout(instr) {
			notes = append(notes, "fixed")
		}
		if result.TransposeIsBitcast(instr) {
			notes = append(notes, "bitcast")
		}
		if copied.Has(instr) {
			notes = append(notes, "copy")
		}
		var strides string
		if !shape.IsTuple() {
			strides = fmt.Sprintf("%v", shape.Strides())
		}
		table.add(kindIf(copied.Has(instr)), instr.Name(), instr.Opcode().String(), shape.String(), strides,
			strings.Join(operandLayouts, " "), humanize.Bytes(uint64(shape.Memory())), strings.Join(notes, ","))
	}
	table.writeTo(w)
}

func writeCopies(w io.Writer, result *layout.Result) {
	table := newReportTable(left("User"), left("Operand"), left("From"), left("To"), right("Bytes"))
	for _, c := range result.Copies() {
		operand := c.User.Operand(c.OperandIndex)
		table.add(copyRow, c.User.Name(), fmt.Sprintf("#%d (%s)", c.OperandIndex, operand.Name()),
			c.From.String(), c.To.String(), humanize.Bytes(uint64(operand.Shape().Memory())))
	}
	table.writeTo(w)
}
