package ops

import "github.com/born-ml/convbench/internal/tensor"

// reduceBroadcast sums grad down to targetShape, undoing any broadcasting
// applied in the forward pass.
func reduceBroadcast(grad *tensor.RawTensor, targetShape tensor.Shape, backend tensor.Backend) *tensor.RawTensor {
	if grad.Shape().Equal(targetShape) {
		return grad
	}
	return backend.SumTo(grad, targetShape)
}
