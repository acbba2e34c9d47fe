// Package optim implements optimization algorithms for training neural networks.
//
// This package provides:
//   - Optimizer interface: Base interface for all optimizers
//   - SGD: Stochastic Gradient Descent with momentum
//   - Adam: Adaptive Moment Estimation
//
// Updates are written directly into the parameter storage, so they are never
// recorded on an autodiff tape and parameters keep their identity across
// steps.
//
// Example usage:
//
//	optimizer := optim.NewSGD(model.Parameters(), optim.SGDConfig{LR: 0.01, Momentum: 0.9}, backend)
//
//	for _, batch := range batches {
//	    optimizer.ZeroGrad()
//	    backend.Tape().Clear()
//	    loss := criterion.Forward(model.Forward(batch.Images), batch.Labels)
//	    nn.CollectGrads(model.Parameters(), autodiff.Backward(loss, backend))
//	    optimizer.Step()
//	}
package optim

import (
	"github.com/born-ml/convbench/internal/nn"
	"github.com/born-ml/convbench/internal/tensor"
)

// Optimizer is the base interface for all optimization algorithms.
//
// All optimizers must implement:
//   - Step: Apply gradient updates to parameters
//   - ZeroGrad: Clear gradients before next iteration
//   - GetLR: Get current learning rate (for monitoring)
type Optimizer interface {
	// Step applies the gradients attached to the parameters (see
	// nn.CollectGrads) and updates them in place. Parameters without a
	// gradient are left unchanged.
	Step()

	// ZeroGrad clears all parameter gradients, so a Step without a new
	// backward pass is a no-op.
	ZeroGrad()

	// GetLR returns the current learning rate.
	GetLR() float32
}

// getGradient returns the gradient attached to param, or nil if it has none
// (cleared by ZeroGrad, or not part of the last computation graph).
func getGradient[B tensor.Backend](param *nn.Parameter[B]) []float32 {
	if param == nil || param.Grad() == nil {
		return nil
	}
	return param.Grad().Data()
}
