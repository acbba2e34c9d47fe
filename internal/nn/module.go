// Package nn implements the neural network building blocks used by convbench.
//
// This package provides:
//   - Module interface: base interface for all NN components
//   - Parameter: trainable tensors
//   - Layers: Conv2D, BatchNorm2D, Linear, ReLU, GlobalAvgPool2D, Flatten
//   - Sequential: container for stacking layers
//   - Units: ConvUnit, ResidualUnit and BranchUnit, the blocks compared by
//     the topologies
//   - CrossEntropyLoss and prediction helpers
package nn

import (
	"github.com/born-ml/convbench/internal/tensor"
)

// Module is the base interface for all neural network components.
//
// Every NN module must implement:
//   - Forward: Compute output from input
//   - Parameters: Return all trainable parameters
//
// Modules can be composed to build complex architectures:
//
//	model := nn.NewSequential[Backend](
//	    nn.NewConvUnit(3, 16, 3, 1, true, rng, backend),
//	    nn.NewGlobalAvgPool2D(backend),
//	    nn.NewFlatten[Backend](),
//	    nn.NewLinear(16, 10, rng, backend),
//	)
//
// Type parameter B must satisfy the tensor.Backend interface.
type Module[B tensor.Backend] interface {
	// Forward computes the output of the module given an input tensor.
	Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]

	// Parameters returns all trainable parameters of this module,
	// including those of nested modules.
	Parameters() []*Parameter[B]
}

// Trainable is implemented by modules that behave differently in training
// and evaluation mode (batch normalization and every container holding it).
type Trainable interface {
	SetTraining(training bool)
}

// SetTraining switches m to training or evaluation mode if it supports it.
func SetTraining[B tensor.Backend](m Module[B], training bool) {
	if t, ok := m.(Trainable); ok {
		t.SetTraining(training)
	}
}

// NumParameters returns the total number of scalar parameters of m.
func NumParameters[B tensor.Backend](m Module[B]) int {
	n := 0
	for _, p := range m.Parameters() {
		n += p.Tensor().NumElements()
	}
	return n
}
