// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package layout implements a small reference layout assignment engine, and defines the Backend
// interface through which device backends inject their layout requirements.
//
// The engine runs in two phases for the entry computation of a module:
//
//  1. Constraints: parameter layouts given in the module are registered, then the Backend's
//     AddBackendConstraints registers the layouts mandated by the device (e.g.: by the libraries
//     used to run dots and convolutions).
//  2. Propagation: every instruction gets a layout for its result, honoring the constraints and
//     the Backend's InstructionCanChangeLayout answer. Where an instruction requires an operand
//     in a layout different from the one it was produced with, a Copy is recorded.
//
// The propagation is intentionally simple: it is not a general solver, and it exists so the
// backends can be exercised end to end.
package layout

import (
	"os"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gpulayout/pkg/core/hlo"
)

// Backend is implemented by device backends to inject their layout requirements.
type Backend interface {
	// Name returns the short name of the backend. E.g.: "gpu".
	Name() string

	// AddBackendConstraints registers in constraints the layouts required by the backend for the
	// instructions of the computation. It is called once per assignment, before propagation.
	AddBackendConstraints(computation *hlo.Computation, constraints *Constraints) error

	// InstructionCanChangeLayout returns whether the engine is free to choose the layout of the
	// result of instr independently of its operands. If false, the result takes the layout of
	// its operand (so e.g. a transpose moves the data).
	InstructionCanChangeLayout(instr *hlo.Instruction) bool
}

// DefaultInstructionCanChangeLayout is the answer of the engine for backends without special cases:
// element-wise operations keep the layout of their operands, everything else can change it.
func DefaultInstructionCanChangeLayout(instr *hlo.Instruction) bool {
	return !instr.Opcode().IsElementwise()
}

// Constructor takes a config string (optionally empty) and returns a Backend.
type Constructor func(config string) Backend

var (
	registeredConstructors = make(map[string]Constructor)
	firstRegistered        string
)

// Register backend with the given name, and a constructor that takes as input a configuration
// string that is passed along to the backend.
//
// To be safe, call Register during initialization of a package.
func Register(name string, constructor Constructor) {
	if len(registeredConstructors) == 0 {
		firstRegistered = name
	}
	registeredConstructors[name] = constructor
}

// GOMLX_LAYOUT_BACKEND is the environment variable with the default backend configuration to use.
//
// The format is the same as for NewWithConfig.
const GOMLX_LAYOUT_BACKEND = "GOMLX_LAYOUT_BACKEND"

// New returns a new default Backend: configured by the environment variable GOMLX_LAYOUT_BACKEND
// if set, or the first registered backend with an empty configuration otherwise.
//
// It panics if no backend was registered.
func New() Backend {
	config, _ := os.LookupEnv(GOMLX_LAYOUT_BACKEND)
	return NewWithConfig(config)
}

// NewWithConfig takes a configuration string formatted as "<backend_name>:<backend_configuration>".
// The "<backend_name>" is the name of a registered backend (e.g.: "gpu") and "<backend_configuration>"
// is backend specific (e.g.: for "gpu", it's the device and the options).
func NewWithConfig(config string) Backend {
	if len(registeredConstructors) == 0 {
		exceptions.Panicf(`no registered layout backends -- maybe import the GPU one with import _ "github.com/gomlx/gpulayout/backends/gpu"?`)
	}
	backendName := firstRegistered
	backendConfig := config
	if idx := strings.Index(config, ":"); idx != -1 {
		backendName = config[:idx]
		backendConfig = config[idx+1:]
	} else if _, found := registeredConstructors[config]; found {
		backendName = config
		backendConfig = ""
	}
	constructor, found := registeredConstructors[backendName]
	if !found {
		exceptions.Panicf("can't find layout backend %q for configuration %q given", backendName, config)
	}
	return constructor(backendConfig)
}
