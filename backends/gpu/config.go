// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gpu

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Config holds the compile-time options of the GPU layout assignment.
type Config struct {
	// TransposeToBitcast allows the layout assignment to choose layouts that turn transposes into bitcasts
	// (no data movement). If false, every transpose keeps a fixed layout and moves the data.
	TransposeToBitcast bool

	// ForceConvNCHW forces floating point convolutions to use the NCHW format. It takes precedence over ForceConvNHWC.
	ForceConvNCHW bool

	// ForceConvNHWC forces floating point convolutions to use the NHWC format.
	ForceConvNHWC bool

	// EnsureMinorDotContractionDims makes BFloat16 dots take their operands with the contracting axes most-minor,
	// as integer dots always do.
	EnsureMinorDotContractionDims bool
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{TransposeToBitcast: true}
}

// String returns the configuration formatted as the options accepted by ParseConfig.
func (c Config) String() string {
	var options []string
	if c.TransposeToBitcast {
		options = append(options, "transpose_to_bitcast")
	} else {
		options = append(options, "no_transpose_to_bitcast")
	}
	if c.ForceConvNCHW {
		options = append(options, "force_conv_nchw")
	}
	if c.ForceConvNHWC {
		options = append(options, "force_conv_nhwc")
	}
	if c.EnsureMinorDotContractionDims {
		options = append(options, "minor_dot_contraction")
	}
	return strings.Join(options, ",")
}

// GOMLX_GPU_LAYOUT is the environment variable with the options used by ConfigFromEnv.
const GOMLX_GPU_LAYOUT = "GOMLX_GPU_LAYOUT"

// ParseConfig parses a comma-separated list of options, applied on top of DefaultConfig.
//
// The options are:
//
//   - "transpose_to_bitcast" and "no_transpose_to_bitcast": see Config.TransposeToBitcast.
//   - "force_conv_nchw": see Config.ForceConvNCHW.
//   - "force_conv_nhwc": see Config.ForceConvNHWC.
//   - "minor_dot_contraction": see Config.EnsureMinorDotContractionDims.
//
// Empty options are ignored, so an empty string returns the DefaultConfig.
func ParseConfig(options string) (Config, error) {
	config := DefaultConfig()
	for _, option := range strings.Split(options, ",") {
		option = strings.ToLower(strings.TrimSpace(option))
		switch option {
		case "":
		case "transpose_to_bitcast":
			config.TransposeToBitcast = true
		case "no_transpose_to_bitcast":
			config.TransposeToBitcast = false
		case "force_conv_nchw":
			config.ForceConvNCHW = true
		case "force_conv_nhwc":
			config.ForceConvNHWC = true
		case "minor_dot_contraction":
			config.EnsureMinorDotContractionDims = true
		default:
			return config, errors.Errorf("unknown GPU layout option %q in %q", option, options)
		}
	}
	if config.ForceConvNCHW && config.ForceConvNHWC {
		klog.Warningf("GPU layout options %q force both NCHW and NHWC convolutions, NCHW takes precedence", options)
	}
	return config, nil
}

// ConfigFromEnv parses the options in the environment variable GOMLX_GPU_LAYOUT, or returns
// the DefaultConfig if it is not set.
func ConfigFromEnv() (Config, error) {
	options, found := os.LookupEnv(GOMLX_GPU_LAYOUT)
	if !found {
		return DefaultConfig(), nil
	}
	config, err := ParseConfig(options)
	if err != nil {
		return config, errors.WithMessagef(err, "environment variable %s", GOMLX_GPU_LAYOUT)
	}
	return config, nil
}
