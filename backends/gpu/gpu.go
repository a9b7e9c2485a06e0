// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package gpu implements the layout requirements of GPU devices, as a layout.Backend.
//
// Dots and convolutions on GPUs are executed by vendor libraries (GEMM and DNN libraries), which require
// their operands and produce their results in specific layouts. The LayoutAssignment registers those
// layouts as constraints before the generic propagation runs, and tells the engine which instructions
// may have their layout changed.
//
// Example:
//
//	device := must.M1(gpu.ParseDevice("cuda:8.0,cudnn=8.9"))
//	result, err := layout.Assign(module, gpu.New(device, gpu.DefaultConfig()))
//
// The backend is also registered in the layout package as "gpu", configured with
// "<device>[;<options>]" (see ParseDevice and ParseConfig). E.g.:
// layout.NewWithConfig("gpu:rocm:gfx90a;no_transpose_to_bitcast").
package gpu

import (
	"slices"
	"strings"

	"github.com/gomlx/gpulayout/backends/layout"
	"github.com/gomlx/gpulayout/pkg/core/hlo"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// BackendName to be used with layout.NewWithConfig.
const BackendName = "gpu"

func init() {
	layout.Register(BackendName, NewWithConfig)
}

// LayoutAssignment implements layout.Backend for a GPU device. It is immutable, and can be used for
// concurrent assignments of different modules.
type LayoutAssignment struct {
	device DeviceCapabilities
	config Config
}

var _ layout.Backend = (*LayoutAssignment)(nil)

// New returns the GPU layout backend for the given device and configuration.
func New(device DeviceCapabilities, config Config) *LayoutAssignment {
	return &LayoutAssignment{device: device, config: config}
}

// NewWithConfig is the layout.Constructor of the GPU backend. The config is formatted as
// "<device>[;<options>]", where the device is parsed by ParseDevice and the options by ParseConfig.
// If no options are given, they are read from the environment (see ConfigFromEnv).
//
// It panics if the configuration is invalid.
func NewWithConfig(config string) layout.Backend {
	deviceStr, optionsStr, hasOptions := strings.Cut(config, ";")
	if deviceStr == "" {
		deviceStr = "cuda:" + Ampere.String()
	}
	device := must.M1(ParseDevice(deviceStr))
	var cfg Config
	if hasOptions {
		cfg = must.M1(ParseConfig(optionsStr))
	} else {
		cfg = must.M1(ConfigFromEnv())
	}
	return New(device, cfg)
}

// Name implements layout.Backend.
func (la *LayoutAssignment) Name() string { return BackendName }

// Device returns the device the layouts are assigned for.
func (la *LayoutAssignment) Device() DeviceCapabilities { return la.device }

// Config returns the configuration of the layout assignment.
func (la *LayoutAssignment) Config() Config { return la.config }

// AddBackendConstraints implements layout.Backend. The instructions are visited in reverse post-order
// (users before their operands), so a rule can take into account the layouts already required by the users.
func (la *LayoutAssignment) AddBackendConstraints(computation *hlo.Computation, constraints *layout.Constraints) error {
	numBefore := constraints.Len()
	for _, instr := range slices.Backward(computation.MakeInstructionPostOrder()) {
		var err error
		switch instr.Opcode() {
		case hlo.OpcodeDot:
			err = la.addDotConstraints(instr, constraints)
		case hlo.OpcodeCustomCall:
			if IsConvCustomCall(instr) {
				err = la.addConvConstraints(instr, constraints)
			}
		case hlo.OpcodeTranspose:
			err = la.addTransposeOfDotConstraints(instr, constraints)
		case hlo.OpcodeFft:
			err = addFftConstraints(instr, constraints)
		case hlo.OpcodeSort:
			err = addSortConstraints(instr, constraints)
		case hlo.OpcodeTriangularSolve:
			err = addTriangularSolveConstraints(instr, constraints)
		case hlo.OpcodeAllGather, hlo.OpcodeReduceScatter, hlo.OpcodeAllToAll:
			err = addCollectiveConstraints(instr, constraints)
		}
		if err != nil {
			return errors.WithMessagef(err, "gpu layout constraints for %s", instr)
		}
	}
	klog.V(1).Infof("gpu layout: computation %q on %v: %d constraints added",
		computation.Name(), la.device, constraints.Len()-numBefore)
	return nil
}

// InstructionCanChangeLayout implements layout.Backend.
//
// Transposes can change layout (and become bitcasts) only if Config.TransposeToBitcast is set. Batch
// normalization library calls keep their layout.
func (la *LayoutAssignment) InstructionCanChangeLayout(instr *hlo.Instruction) bool {
	switch {
	case instr.Opcode() == hlo.OpcodeTranspose:
		return la.config.TransposeToBitcast
	case IsBatchNormCustomCall(instr):
		return false
	}
	return layout.DefaultInstructionCanChangeLayout(instr)
}
