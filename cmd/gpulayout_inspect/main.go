// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// gpulayout_inspect runs the GPU layout assignment on a module serialized as JSON, and prints
// the constraints registered by the backend, the layouts assigned and the copies required.
//
// Usage:
//
//	gpulayout_inspect -device=cuda:8.0,cudnn=8.9 -config=no_transpose_to_bitcast module.json
//
// Several module files can be given: they are assigned concurrently, and reported in the order given.
//
// Alternatively, any registered layout backend can be selected with -backend, e.g.:
// -backend="gpu:rocm:gfx90a;force_conv_nhwc".
package main

import (
	"flag"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gpulayout/backends/gpu"
	"github.com/gomlx/gpulayout/backends/layout"
	"github.com/gomlx/gpulayout/pkg/core/hlo"
	"github.com/gomlx/gpulayout/pkg/support/xslices"
	"github.com/janpfeifer/must"
	"github.com/muesli/termenv"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

var (
	flagDevice = flag.String("device", "cuda:8.0,cudnn=8.9",
		"Device to assign layouts for: \"cuda:<compute capability>[,cudnn=<version>]\" or "+
			"\"rocm:<gcn arch name>[,miopen=<version>]\".")
	flagConfig = flag.String("config", "", "Comma-separated options of the GPU layout assignment, "+
		"e.g. \"no_transpose_to_bitcast,force_conv_nchw\". If empty, $"+gpu.GOMLX_GPU_LAYOUT+" is used.")
	flagBackend = flag.String("backend", "", "If set, overrides -device and -config and creates the "+
		"backend with layout.NewWithConfig, formatted as \"<backend_name>:<backend_configuration>\".")

	flagConstraints = flag.Bool("constraints", true, "Lists the constraints registered by the backend.")
	flagLayouts     = flag.Bool("layouts", true, "Lists the layouts assigned to every instruction.")
	flagOpcodes     = xslices.Flag("opcodes", nil,
		"Comma-separated list of opcodes (e.g. \"Dot,CustomCall\") to include in the listings. Defaults to all.",
		hlo.OpcodeString)

	flagProgress = flag.Bool("progress", false, "Displays a progress bar while the modules are assigned.")
	flagColor    = flag.Bool("color", true, "Uses colors in the tables, if the terminal supports them.")

	flagParallelism = flag.Int("parallelism", 0, "Maximum number of modules assigned concurrently. "+
		"If <= 0, the number of CPUs is used.")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		klog.Errorf("Missing module JSON file(s) to read from. See 'gpulayout_inspect -help'")
		os.Exit(1)
	}
	if !*flagColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
	backend := must.M1(newBackend())
	opts := reportOptions{
		Constraints: *flagConstraints,
		Layouts:     *flagLayouts,
		Opcodes:     *flagOpcodes,
		Progress:    *flagProgress,
	}
	if err := reportAll(os.Stdout, args, backend, opts, *flagParallelism); err != nil {
		klog.Fatalf("Failed with error: %+v", err)
	}
}

// newBackend creates the layout backend selected by the flags.
func newBackend() (backend layout.Backend, err error) {
	if *flagBackend != "" {
		err = exceptions.TryCatch[error](func() { backend = layout.NewWithConfig(*flagBackend) })
		return
	}
	device, err := gpu.ParseDevice(*flagDevice)
	if err != nil {
		return nil, errors.WithMessage(err, "invalid -device")
	}
	var config gpu.Config
	if *flagConfig != "" {
		config, err = gpu.ParseConfig(*flagConfig)
	} else {
		config, err = gpu.ConfigFromEnv()
	}
	if err != nil {
		return nil, errors.WithMessage(err, "invalid -config")
	}
	return gpu.New(device, config), nil
}
