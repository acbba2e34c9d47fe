// Package ops defines the differentiable operations recorded by the autodiff tape.
//
// Each operation keeps the tensors its backward pass needs and computes input
// gradients from the output gradient, delegating the arithmetic to a backend:
//   - AddOp, MulOp: element-wise with broadcasting (gradients reduced via SumTo)
//   - MatMulOp, TransposeOp, ReshapeOp
//   - ReLUOp
//   - Conv2DOp, BatchNorm2DOp, GlobalAvgPool2DOp
//   - CrossEntropyOp
package ops

import "github.com/born-ml/convbench/internal/tensor"

// Operation represents a differentiable operation in the computation graph.
// Each operation records its inputs and output during the forward pass,
// and computes input gradients during the backward pass.
type Operation interface {
	// Backward computes gradients for inputs given the output gradient.
	// The result is aligned with Inputs(); a nil entry means the input
	// receives no gradient (e.g. integer targets).
	Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor

	// Inputs returns the input tensors for this operation.
	Inputs() []*tensor.RawTensor

	// Output returns the output tensor produced by this operation.
	Output() *tensor.RawTensor
}
