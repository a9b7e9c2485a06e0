// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	config, err := ParseConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), config)
	assert.True(t, config.TransposeToBitcast)

	config, err = ParseConfig(" no_transpose_to_bitcast, Force_Conv_NHWC,,minor_dot_contraction ")
	require.NoError(t, err)
	assert.Equal(t, Config{ForceConvNHWC: true, EnsureMinorDotContractionDims: true}, config)

	config, err = ParseConfig("no_transpose_to_bitcast,transpose_to_bitcast,force_conv_nchw")
	require.NoError(t, err)
	assert.Equal(t, Config{TransposeToBitcast: true, ForceConvNCHW: true}, config)

	_, err = ParseConfig("force_conv_nchw,unknown")
	require.ErrorContains(t, err, "unknown")
}

func TestConfigString(t *testing.T) {
	assert.Equal(t, "transpose_to_bitcast", DefaultConfig().String())
	config := Config{ForceConvNCHW: true, EnsureMinorDotContractionDims: true}
	assert.Equal(t, "no_transpose_to_bitcast,force_conv_nchw,minor_dot_contraction", config.String())
	parsed, err := ParseConfig(config.String())
	require.NoError(t, err)
	assert.Equal(t, config, parsed)
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv(GOMLX_GPU_LAYOUT, "no_transpose_to_bitcast")
	config, err := ConfigFromEnv()
	require.NoError(t, err)
	assert.False(t, config.TransposeToBitcast)

	t.Setenv(GOMLX_GPU_LAYOUT, "bogus")
	_, err = ConfigFromEnv()
	require.ErrorContains(t, err, GOMLX_GPU_LAYOUT)
}
