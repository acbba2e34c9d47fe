package ops

import "github.com/born-ml/convbench/internal/tensor"

// BatchNorm2DOp records training-mode batch normalization.
//
// The batch mean and variance computed in the forward pass are kept so the
// backward pass normalizes with exactly the same statistics.
type BatchNorm2DOp struct {
	x, gamma, beta *tensor.RawTensor
	mean, variance *tensor.RawTensor
	output         *tensor.RawTensor
	eps            float32
}

// NewBatchNorm2DOp creates a new BatchNorm2DOp.
func NewBatchNorm2DOp(x, gamma, beta, mean, variance, output *tensor.RawTensor, eps float32) *BatchNorm2DOp {
	return &BatchNorm2DOp{
		x:        x,
		gamma:    gamma,
		beta:     beta,
		mean:     mean,
		variance: variance,
		output:   output,
		eps:      eps,
	}
}

// Inputs returns [x, gamma, beta].
func (op *BatchNorm2DOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.x, op.gamma, op.beta}
}

// Output returns the normalized tensor.
func (op *BatchNorm2DOp) Output() *tensor.RawTensor {
	return op.output
}

// Backward returns gradients for x, gamma and beta.
func (op *BatchNorm2DOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	dx, dgamma, dbeta := backend.BatchNorm2DBackward(op.x, op.gamma, op.mean, op.variance, outputGrad, op.eps)
	return []*tensor.RawTensor{dx, dgamma, dbeta}
}
