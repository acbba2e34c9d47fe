package nn

import (
	"fmt"

	"golang.org/x/exp/rand"

	"github.com/born-ml/convbench/internal/tensor"
)

// ConvUnit applies convolution, then batch normalization, then ReLU if the
// activation flag is set:
//
//	y = ReLU(BN(Conv(x)))   activation = true
//	y = BN(Conv(x))         activation = false
//
// The convolution has stride 1, so padding = (kernel-1)/2 keeps the spatial
// size of the input.
type ConvUnit[B tensor.Backend] struct {
	conv       *Conv2D[B]
	norm       *BatchNorm2D[B]
	activation bool
}

// NewConvUnit creates a ConvUnit mapping in to out channels.
func NewConvUnit[B tensor.Backend](in, out, kernel, padding int, activation bool, rng *rand.Rand, backend B) *ConvUnit[B] {
	return &ConvUnit[B]{
		conv:       NewConv2D(in, out, kernel, kernel, 1, padding, true, rng, backend),
		norm:       NewBatchNorm2D(out, backend),
		activation: activation,
	}
}

// Forward applies the unit.
func (u *ConvUnit[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	output := u.norm.Forward(u.conv.Forward(input))
	if u.activation {
		output = output.ReLU()
	}
	return output
}

// Parameters returns the convolution and normalization parameters.
func (u *ConvUnit[B]) Parameters() []*Parameter[B] {
	return append(u.conv.Parameters(), u.norm.Parameters()...)
}

// SetTraining switches the normalization layer's mode.
func (u *ConvUnit[B]) SetTraining(training bool) {
	u.norm.SetTraining(training)
}

// Conv returns the convolution layer.
func (u *ConvUnit[B]) Conv() *Conv2D[B] {
	return u.conv
}

// Norm returns the normalization layer.
func (u *ConvUnit[B]) Norm() *BatchNorm2D[B] {
	return u.norm
}

// Activation reports whether the unit ends with ReLU.
func (u *ConvUnit[B]) Activation() bool {
	return u.activation
}

// InChannels returns the number of input channels.
func (u *ConvUnit[B]) InChannels() int {
	return u.conv.InChannels()
}

// OutChannels returns the number of output channels.
func (u *ConvUnit[B]) OutChannels() int {
	return u.conv.OutChannels()
}

// String returns a string representation of the unit.
func (u *ConvUnit[B]) String() string {
	k := u.conv.KernelSize()
	return fmt.Sprintf("ConvUnit(%d -> %d, kernel=%d, padding=%d, relu=%v)",
		u.conv.InChannels(), u.conv.OutChannels(), k[0], u.conv.Padding(), u.activation)
}

// samePadding reports whether a stride-1 convolution with the given kernel
// and padding preserves spatial size.
func samePadding(kernel, padding int) bool {
	return 2*padding == kernel-1
}
