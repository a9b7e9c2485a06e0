// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gpu

import (
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/gpulayout/backends/layout"
	"github.com/gomlx/gpulayout/pkg/core/hlo"
	"github.com/gomlx/gpulayout/pkg/core/shapes"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// ErrUnsupportedConvolution is returned (wrapped) when a DNN library convolution has a configuration
// for which no supported layout exists.
var ErrUnsupportedConvolution = errors.New("unsupported convolution configuration")

// Custom call targets of the DNN library (cuDNN, or MIOpen on ROCm).
const (
	ConvForwardTarget               = "__cudnn$convForward"
	ConvBackwardInputTarget         = "__cudnn$convBackwardInput"
	ConvBackwardFilterTarget        = "__cudnn$convBackwardFilter"
	ConvBiasActivationForwardTarget = "__cudnn$convBiasActivationForward"

	BatchNormForwardInferenceTarget = "__cudnn$batchNormForwardInference"
	BatchNormForwardTrainingTarget  = "__cudnn$batchNormForwardTraining"
	BatchNormBackwardTarget         = "__cudnn$batchNormBackward"
)

type convKind int

const (
	convForward convKind = iota
	convBackwardInput
	convBackwardFilter
	convBiasActivationForward
)

var convKindByTarget = map[string]convKind{
	ConvForwardTarget:               convForward,
	ConvBackwardInputTarget:         convBackwardInput,
	ConvBackwardFilterTarget:        convBackwardFilter,
	ConvBiasActivationForwardTarget: convBiasActivationForward,
}

// IsConvCustomCall returns whether instr is a call to a DNN library convolution.
func IsConvCustomCall(instr *hlo.Instruction) bool {
	if instr.Opcode() != hlo.OpcodeCustomCall {
		return false
	}
	_, found := convKindByTarget[instr.CustomCallTarget()]
	return found
}

// IsBatchNormCustomCall returns whether instr is a call to a DNN library batch normalization.
func IsBatchNormCustomCall(instr *hlo.Instruction) bool {
	if instr.Opcode() != hlo.OpcodeCustomCall {
		return false
	}
	switch instr.CustomCallTarget() {
	case BatchNormForwardInferenceTarget, BatchNormForwardTrainingTarget, BatchNormBackwardTarget:
		return true
	}
	return false
}

// ConvFormat is the physical format of the tensors of a DNN library convolution. The names list the
// axes from the most-major to the most-minor: N for batch, C for feature (channels), H and W for spatial.
//
// The filter follows the corresponding format: OIHW for NCHW, OHWI for NHWC, OIHW plus the vector axis
// for NCHW_VECT_C (O for output feature and I for input feature).
type ConvFormat int

//go:generate go tool enumer -type=ConvFormat -trimprefix=ConvFormat -output=gen_convformat_enumer.go conv.go

const (
	// ConvFormatNCHW has the feature axis major to the spatial axes.
	ConvFormatNCHW ConvFormat = iota

	// ConvFormatNHWC has the feature axis most-minor.
	ConvFormatNHWC

	// ConvFormatNCHW_VECT_C is NCHW with a trailing most-minor axis holding a small vector of features.
	// It is used for Int8 convolutions.
	ConvFormatNCHW_VECT_C
)

// Minimum cuDNN version with fast NHWC convolutions.
var cudnnVersionForNHWC = Version{7, 3, 0}

// SelectConvFormat returns the format used for a convolution whose input has the given dtype and rank,
// with numSpatial spatial axes.
//
// Integer convolutions use NCHW_VECT_C for Int8 inputs of rank 5 with 2 spatial axes, and NHWC otherwise.
// For floating point convolutions the Config.ForceConvNCHW and Config.ForceConvNHWC options are honored;
// otherwise NHWC is only used for 2D half-precision convolutions, on devices that have fast kernels
// for them: CUDA Volta (Float16) or Ampere (BFloat16) and newer, and ROCm architectures supporting it.
func SelectConvFormat(device DeviceCapabilities, config Config, dtype dtypes.DType, numSpatial, rank int) ConvFormat {
	if dtype.IsInt() {
		if dtype == dtypes.Int8 && numSpatial == 2 && rank == 5 {
			return ConvFormatNCHW_VECT_C
		}
		return ConvFormatNHWC
	}
	if config.ForceConvNCHW {
		return ConvFormatNCHW
	}
	if config.ForceConvNHWC {
		return ConvFormatNHWC
	}
	if (dtype != dtypes.Float16 && dtype != dtypes.BFloat16) || numSpatial != 2 {
		return ConvFormatNCHW
	}
	switch device.Platform() {
	case PlatformCUDA:
		cc := device.ComputeCapability()
		capable := (dtype == dtypes.Float16 && cc.IsAtLeast(Volta)) || (dtype == dtypes.BFloat16 && cc.IsAtLeast(Ampere))
		if capable && device.DNNVersion().IsAtLeast(cudnnVersionForNHWC) {
			return ConvFormatNHWC
		}
	case PlatformROCm:
		if device.SupportsNHWC() {
			return ConvFormatNHWC
		}
	}
	return ConvFormatNCHW
}

// convTensor is one of the logical tensors (input, filter or output) of a convolution, mapped to the
// slot of the custom call that holds it.
type convTensor struct {
	name  string
	shape shapes.Shape
	slot  layout.Slot
}

func (t convTensor) set(instr *hlo.Instruction, constraints *layout.Constraints, l shapes.Layout) error {
	if t.slot.IsOperand() {
		return constraints.SetOperandLayout(instr, t.slot.OperandIndex(), l)
	}
	return constraints.SetBufferLayout(instr, t.slot.TupleIndex(), l)
}

// addConvConstraints requires the layouts of the format selected for a DNN library convolution, for its
// input, filter and output.
func (la *LayoutAssignment) addConvConstraints(instr *hlo.Instruction, constraints *layout.Constraints) error {
	kind, found := convKindByTarget[instr.CustomCallTarget()]
	if !found {
		return errors.Wrapf(ErrUnsupportedConvolution, "unknown convolution target %q", instr.CustomCallTarget())
	}
	dims := instr.ConvolutionDimensionNumbers()
	if dims == nil {
		return errors.Wrapf(ErrMalformedDimensionNumbers, "convolution %q has no dimension numbers", instr.CustomCallTarget())
	}
	shape := instr.Shape()
	if !shape.IsTuple() || shape.TupleShapes[0].IsTuple() {
		return errors.Wrapf(ErrUnsupportedConvolution, "convolution %q must return a (result, scratch) tuple, got %s",
			instr.CustomCallTarget(), shape)
	}
	if instr.OperandCount() < 2 {
		return errors.Wrapf(ErrUnsupportedConvolution, "convolution %q requires at least 2 operands, got %d",
			instr.CustomCallTarget(), instr.OperandCount())
	}
	if kind != convBiasActivationForward && instr.OperandCount() > 2 {
		return errors.Wrapf(ErrUnsupportedConvolution, "convolution %q has %d operands, only fused convolutions (%q) take more than 2",
			instr.CustomCallTarget(), instr.OperandCount(), ConvBiasActivationForwardTarget)
	}
	numSpatial := dims.NumSpatialDims()
	if numSpatial < 1 || numSpatial > 3 {
		return errors.Wrapf(ErrUnsupportedConvolution, "convolution %q with %d spatial axes, only 1, 2 or 3 are supported",
			instr.CustomCallTarget(), numSpatial)
	}
	if len(dims.KernelSpatial) != numSpatial || len(dims.OutputSpatial) != numSpatial {
		return errors.Wrapf(ErrMalformedDimensionNumbers, "convolution %q has a different number of spatial axes for input, kernel and output (%s)",
			instr.CustomCallTarget(), dims)
	}

	operand := func(name string, i int) convTensor {
		return convTensor{name: name, shape: instr.Operand(i).Shape(), slot: layout.OperandSlot(i)}
	}
	result := func(name string) convTensor {
		return convTensor{name: name, shape: shape.TupleShapes[0], slot: layout.TupleResultSlot(0)}
	}
	var input, filter, output convTensor
	switch kind {
	case convForward, convBiasActivationForward:
		input, filter, output = operand("input", 0), operand("filter", 1), result("output")
	case convBackwardInput:
		input, filter, output = result("input"), operand("filter", 1), operand("output", 0)
	case convBackwardFilter:
		input, filter, output = operand("input", 0), result("filter"), operand("output", 1)
	}

	format := SelectConvFormat(la.device, la.config, input.shape.DType, numSpatial, input.shape.Rank())
	inputLayout, err := convTensorLayout(format, input, dims.InputBatch, dims.InputFeature, dims.InputSpatial)
	if err != nil {
		return err
	}
	filterLayout, err := convTensorLayout(format, filter, dims.KernelOutputFeature, dims.KernelInputFeature, dims.KernelSpatial)
	if err != nil {
		return err
	}
	outputLayout, err := convTensorLayout(format, output, dims.OutputBatch, dims.OutputFeature, dims.OutputSpatial)
	if err != nil {
		return err
	}
	klog.V(2).Infof("gpu layout: convolution %s (%s) uses format %s: input %s, filter %s, output %s",
		instr.Name(), instr.CustomCallTarget(), format, inputLayout, filterLayout, outputLayout)

	for _, tensorLayout := range []struct {
		tensor convTensor
		layout shapes.Layout
	}{{input, inputLayout}, {filter, filterLayout}, {output, outputLayout}} {
		if err := tensorLayout.tensor.set(instr, constraints, tensorLayout.layout); err != nil {
			return errors.WithMessagef(err, "convolution %s in format %s", tensorLayout.tensor.name, format)
		}
	}
	// The side input of fused convolutions is added to the output.
	if kind == convBiasActivationForward && instr.OperandCount() == 4 {
		if err := constraints.SetOperandLayout(instr, 3, outputLayout); err != nil {
			return errors.WithMessagef(err, "convolution side input in format %s", format)
		}
	}
	return nil
}

// convTensorLayout returns the layout of a convolution tensor in the given format. For the filter, major is
// the output feature axis and feature the input feature axis; for input and output, major is the batch axis.
// The spatial axes keep the order given.
func convTensorLayout(format ConvFormat, tensor convTensor, major, feature int, spatial []int) (shapes.Layout, error) {
	if tensor.shape.IsTuple() {
		return shapes.Layout{}, errors.Wrapf(ErrUnsupportedConvolution, "convolution %s has tuple shape %s", tensor.name, tensor.shape)
	}
	rank := tensor.shape.Rank()
	expectedRank := 2 + len(spatial)
	if format == ConvFormatNCHW_VECT_C {
		expectedRank++
	}
	if rank != expectedRank {
		return shapes.Layout{}, errors.Wrapf(ErrUnsupportedConvolution, "convolution %s %s has rank %d, format %s with %d spatial axes requires rank %d",
			tensor.name, tensor.shape, rank, format, len(spatial), expectedRank)
	}
	// The classification validates the axes, and the "free" axes left are the vector axes of NCHW_VECT_C.
	declared := append([]int{major, feature}, spatial...)
	groups, err := ClassifyDims(rank, declared, nil)
	if err != nil {
		return shapes.Layout{}, errors.WithMessagef(err, "convolution %s", tensor.name)
	}
	switch format {
	case ConvFormatNHWC:
		return BuildLayout([]int{major}, spatial, []int{feature})
	case ConvFormatNCHW_VECT_C:
		return BuildLayout([]int{major, feature}, spatial, groups.Free)
	default:
		return BuildLayout([]int{major, feature}, spatial)
	}
}
