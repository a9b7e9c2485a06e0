// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gpu

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Platform of the GPU: it defines which DNN library runs the convolutions.
type Platform int

//go:generate go tool enumer -type=Platform -trimprefix=Platform -output=gen_platform_enumer.go device.go

const (
	PlatformCUDA Platform = iota
	PlatformROCm
)

// ComputeCapability of a CUDA device, e.g.: 8.0 for Ampere A100.
type ComputeCapability struct {
	Major, Minor int
}

// Well known CUDA compute capabilities.
var (
	Volta  = ComputeCapability{7, 0}
	Ampere = ComputeCapability{8, 0}
)

// IsAtLeast returns whether cc is the same or newer than other.
func (cc ComputeCapability) IsAtLeast(other ComputeCapability) bool {
	return cc.Major > other.Major || (cc.Major == other.Major && cc.Minor >= other.Minor)
}

// String implements fmt.Stringer.
func (cc ComputeCapability) String() string { return fmt.Sprintf("%d.%d", cc.Major, cc.Minor) }

// Version of a library, e.g.: cuDNN 8.9.7.
type Version struct {
	Major, Minor, Patch int
}

// IsAtLeast returns whether v is the same or newer than other.
func (v Version) IsAtLeast(other Version) bool {
	if v.Major != other.Major {
		return v.Major > other.Major
	}
	if v.Minor != other.Minor {
		return v.Minor > other.Minor
	}
	return v.Patch >= other.Patch
}

// String implements fmt.Stringer.
func (v Version) String() string { return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch) }

// ParseVersion parses versions like "8.9" or "8.9.7".
func ParseVersion(s string) (v Version, err error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) > 3 {
		return v, errors.Errorf("invalid version %q, expected <major>[.<minor>[.<patch>]]", s)
	}
	numbers := make([]int, 3)
	for ii, part := range parts {
		numbers[ii], err = strconv.Atoi(part)
		if err != nil || numbers[ii] < 0 {
			return Version{}, errors.Errorf("invalid version %q, expected <major>[.<minor>[.<patch>]]", s)
		}
	}
	return Version{numbers[0], numbers[1], numbers[2]}, nil
}

// DeviceCapabilities is the read-only description of the target device used to choose layouts.
type DeviceCapabilities interface {
	// Platform of the device.
	Platform() Platform

	// ComputeCapability of CUDA devices. It is the zero value for other platforms.
	ComputeCapability() ComputeCapability

	// DNNVersion is the version of the DNN library (cuDNN or MIOpen) used for convolutions.
	DNNVersion() Version

	// SupportsNHWC returns whether the device has fast kernels for convolutions with the
	// feature (channels) axis most-minor.
	SupportsNHWC() bool
}

// CUDADevice describes an NVIDIA GPU.
type CUDADevice struct {
	Capability   ComputeCapability
	CuDNNVersion Version
}

var _ DeviceCapabilities = CUDADevice{}

// DefaultCuDNNVersion is used by ParseDevice when no version is given.
var DefaultCuDNNVersion = Version{9, 0, 0}

// Platform implements DeviceCapabilities.
func (d CUDADevice) Platform() Platform { return PlatformCUDA }

// ComputeCapability implements DeviceCapabilities.
func (d CUDADevice) ComputeCapability() ComputeCapability { return d.Capability }

// DNNVersion implements DeviceCapabilities.
func (d CUDADevice) DNNVersion() Version { return d.CuDNNVersion }

// SupportsNHWC implements DeviceCapabilities: tensor cores were introduced with Volta.
func (d CUDADevice) SupportsNHWC() bool { return d.Capability.IsAtLeast(Volta) }

// String implements fmt.Stringer.
func (d CUDADevice) String() string {
	return fmt.Sprintf("cuda:%s,cudnn=%s", d.Capability, d.CuDNNVersion)
}

// ROCmDevice describes an AMD GPU.
type ROCmDevice struct {
	// GCNArchName, e.g.: "gfx90a".
	GCNArchName   string
	MIOpenVersion Version
}

var _ DeviceCapabilities = ROCmDevice{}

// rocmArchsWithNHWC lists the GCN architectures with fast NHWC convolutions.
var rocmArchsWithNHWC = []string{"gfx908", "gfx90a", "gfx940", "gfx941", "gfx942"}

// Platform implements DeviceCapabilities.
func (d ROCmDevice) Platform() Platform { return PlatformROCm }

// ComputeCapability implements DeviceCapabilities.
func (d ROCmDevice) ComputeCapability() ComputeCapability { return ComputeCapability{} }

// DNNVersion implements DeviceCapabilities.
func (d ROCmDevice) DNNVersion() Version { return d.MIOpenVersion }

// SupportsNHWC implements DeviceCapabilities.
func (d ROCmDevice) SupportsNHWC() bool {
	arch, _, _ := strings.Cut(d.GCNArchName, ":") // Drop feature flags, as in "gfx90a:sramecc+:xnack-".
	return slices.Contains(rocmArchsWithNHWC, arch)
}

// String implements fmt.Stringer.
func (d ROCmDevice) String() string {
	return fmt.Sprintf("rocm:%s,miopen=%s", d.GCNArchName, d.MIOpenVersion)
}

// ParseDevice parses a device description formatted as "<platform>:<model>[,<library>=<version>]".
//
// Examples:
//
//   - "cuda:8.0,cudnn=8.9": CUDA device with compute capability 8.0 and cuDNN 8.9.
//   - "rocm:gfx90a,miopen=2.19": ROCm device with the given GCN architecture.
func ParseDevice(description string) (DeviceCapabilities, error) {
	platformName, rest, found := strings.Cut(strings.TrimSpace(description), ":")
	if !found {
		return nil, errors.Errorf("invalid device %q, expected <platform>:<model>[,<library>=<version>]", description)
	}
	platform, err := PlatformString(platformName)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid device %q", description)
	}
	parts := strings.Split(rest, ",")
	model := strings.TrimSpace(parts[0])
	libraryVersions := make(map[string]Version, len(parts)-1)
	for _, part := range parts[1:] {
		library, versionStr, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			return nil, errors.Errorf("invalid device %q: expected <library>=<version>, got %q", description, part)
		}
		version, err := ParseVersion(versionStr)
		if err != nil {
			return nil, errors.WithMessagef(err, "invalid device %q", description)
		}
		libraryVersions[strings.ToLower(library)] = version
	}

	switch platform {
	case PlatformCUDA:
		ccVersion, err := ParseVersion(model)
		if err != nil || strings.Count(model, ".") != 1 {
			return nil, errors.Errorf("invalid device %q: compute capability must be given as <major>.<minor>, got %q",
				description, model)
		}
		device := CUDADevice{
			Capability:   ComputeCapability{ccVersion.Major, ccVersion.Minor},
			CuDNNVersion: DefaultCuDNNVersion,
		}
		for library, version := range libraryVersions {
			if library != "cudnn" {
				return nil, errors.Errorf("invalid device %q: unknown library %q for CUDA", description, library)
			}
			device.CuDNNVersion = version
		}
		return device, nil

	case PlatformROCm:
		if !strings.HasPrefix(model, "gfx") {
			return nil, errors.Errorf("invalid device %q: expected a GCN architecture name like \"gfx90a\", got %q",
				description, model)
		}
		device := ROCmDevice{GCNArchName: model}
		for library, version := range libraryVersions {
			if library != "miopen" {
				return nil, errors.Errorf("invalid device %q: unknown library %q for ROCm", description, library)
			}
			device.MIOpenVersion = version
		}
		return device, nil
	}
	return nil, errors.Errorf("invalid device %q: platform %s not supported", description, platform)
}
