package nn

import (
	"fmt"

	"golang.org/x/exp/rand"

	"github.com/born-ml/convbench/internal/tensor"
)

// ResidualUnit adds a skip connection around two ConvUnits:
//
//	y = ReLU(x + BN(Conv(ReLU(BN(Conv(x))))))
//
// Both ConvUnits keep the channel count and the spatial size, so the sum is
// always well formed. If the residual path is driven to zero the unit
// reduces to ReLU(x).
type ResidualUnit[B tensor.Backend] struct {
	first  *ConvUnit[B]
	second *ConvUnit[B]
}

// NewResidualUnit creates a ResidualUnit over channels feature maps.
//
// Panics unless 2*padding == kernel-1.
func NewResidualUnit[B tensor.Backend](channels, kernel, padding int, rng *rand.Rand, backend B) *ResidualUnit[B] {
	if !samePadding(kernel, padding) {
		panic(fmt.Sprintf("residual unit: kernel %d with padding %d does not preserve spatial size", kernel, padding))
	}
	return &ResidualUnit[B]{
		first:  NewConvUnit(channels, channels, kernel, padding, true, rng, backend),
		second: NewConvUnit(channels, channels, kernel, padding, false, rng, backend),
	}
}

// Forward applies the unit.
func (u *ResidualUnit[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	residual := u.second.Forward(u.first.Forward(input))
	return residual.Add(input).ReLU()
}

// Parameters returns the parameters of both ConvUnits.
func (u *ResidualUnit[B]) Parameters() []*Parameter[B] {
	return append(u.first.Parameters(), u.second.Parameters()...)
}

// SetTraining propagates the mode to both ConvUnits.
func (u *ResidualUnit[B]) SetTraining(training bool) {
	u.first.SetTraining(training)
	u.second.SetTraining(training)
}

// First returns the ConvUnit applied to the input.
func (u *ResidualUnit[B]) First() *ConvUnit[B] {
	return u.first
}

// Second returns the ConvUnit whose output is added to the input.
func (u *ResidualUnit[B]) Second() *ConvUnit[B] {
	return u.second
}

// String returns a string representation of the unit.
func (u *ResidualUnit[B]) String() string {
	k := u.first.Conv().KernelSize()
	return fmt.Sprintf("ResidualUnit(%d, kernel=%d)", u.first.OutChannels(), k[0])
}
