// Package autodiff implements automatic differentiation using the decorator pattern.
//
// AutodiffBackend wraps any Backend implementation and adds gradient tracking
// through a GradientTape.
//
// Architecture:
//   - Decorator pattern: AutodiffBackend[B] wraps any Backend implementation
//   - GradientTape: records operations during the forward pass
//   - ops.Operation: each differentiable op implements its backward pass
//   - Reverse-mode AD: gradients flow from the loss back to the parameters
//
// Usage:
//
//	backend := autodiff.New(cpu.New())
//	backend.Tape().StartRecording()
//	loss := criterion.Forward(model.Forward(x), y)
//	grads := autodiff.Backward(loss, backend)
package autodiff

import (
	"github.com/born-ml/convbench/internal/autodiff/ops"
	"github.com/born-ml/convbench/internal/tensor"
)

// AutodiffBackend wraps a Backend and adds automatic differentiation.
// It implements the tensor.Backend interface and records operations in a GradientTape.
//
// Type parameter B must satisfy the tensor.Backend interface.
type AutodiffBackend[B tensor.Backend] struct {
	inner B             // Wrapped backend
	tape  *GradientTape // Records operations for backpropagation
}

// New creates a new AutodiffBackend wrapping the given backend.
func New[B tensor.Backend](backend B) *AutodiffBackend[B] {
	return &AutodiffBackend[B]{
		inner: backend,
		tape:  NewGradientTape(),
	}
}

// Tape returns the gradient tape for manual control:
// starting/stopping recording and clearing it between iterations.
func (b *AutodiffBackend[B]) Tape() *GradientTape {
	return b.tape
}

// Inner returns the wrapped backend for direct access.
func (b *AutodiffBackend[B]) Inner() B {
	return b.inner
}

// Name returns the backend name.
func (b *AutodiffBackend[B]) Name() string {
	return "Autodiff(" + b.inner.Name() + ")"
}

// Device returns the compute device.
func (b *AutodiffBackend[B]) Device() tensor.Device {
	return b.inner.Device()
}

// record appends op to the tape when recording.
func (b *AutodiffBackend[B]) record(op ops.Operation) {
	if b.tape.IsRecording() {
		b.tape.Record(op)
	}
}

// Add performs element-wise addition and records the operation.
func (b *AutodiffBackend[B]) Add(a, c *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Add(a, c)
	b.record(ops.NewAddOp(a, c, result))
	return result
}

// Mul performs element-wise multiplication and records the operation.
func (b *AutodiffBackend[B]) Mul(a, c *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Mul(a, c)
	b.record(ops.NewMulOp(a, c, result))
	return result
}

// SumTo is only used by backward passes and is not recorded.
func (b *AutodiffBackend[B]) SumTo(x *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	return b.inner.SumTo(x, shape)
}

// MatMul performs matrix multiplication and records the operation.
func (b *AutodiffBackend[B]) MatMul(a, c *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.MatMul(a, c)
	b.record(ops.NewMatMulOp(a, c, result))
	return result
}

// Transpose transposes a 2D tensor and records the operation.
func (b *AutodiffBackend[B]) Transpose(t *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Transpose(t)
	b.record(ops.NewTransposeOp(t, result))
	return result
}

// Reshape reshapes a tensor and records the operation.
func (b *AutodiffBackend[B]) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	result := b.inner.Reshape(t, newShape)
	b.record(ops.NewReshapeOp(t, result))
	return result
}

// ReLU applies max(0, x) and records the operation.
func (b *AutodiffBackend[B]) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.ReLU(x)
	b.record(ops.NewReLUOp(x, result))
	return result
}

// Conv2D performs 2D convolution and records the operation.
func (b *AutodiffBackend[B]) Conv2D(input, kernel *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	result := b.inner.Conv2D(input, kernel, stride, padding)
	b.record(ops.NewConv2DOp(input, kernel, result, stride, padding))
	return result
}

// Conv2DInputBackward delegates to the inner backend.
func (b *AutodiffBackend[B]) Conv2DInputBackward(input, kernel, grad *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	return b.inner.Conv2DInputBackward(input, kernel, grad, stride, padding)
}

// Conv2DKernelBackward delegates to the inner backend.
func (b *AutodiffBackend[B]) Conv2DKernelBackward(input, kernel, grad *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	return b.inner.Conv2DKernelBackward(input, kernel, grad, stride, padding)
}

// BatchNorm2D normalizes with batch statistics and records the operation.
func (b *AutodiffBackend[B]) BatchNorm2D(x, gamma, beta *tensor.RawTensor, eps float32) (out, mean, variance *tensor.RawTensor) {
	out, mean, variance = b.inner.BatchNorm2D(x, gamma, beta, eps)
	b.record(ops.NewBatchNorm2DOp(x, gamma, beta, mean, variance, out, eps))
	return out, mean, variance
}

// BatchNorm2DInference normalizes with running statistics. It is used in
// evaluation mode only and is not recorded.
func (b *AutodiffBackend[B]) BatchNorm2DInference(x, gamma, beta, mean, variance *tensor.RawTensor, eps float32) *tensor.RawTensor {
	return b.inner.BatchNorm2DInference(x, gamma, beta, mean, variance, eps)
}

// BatchNorm2DBackward delegates to the inner backend.
func (b *AutodiffBackend[B]) BatchNorm2DBackward(x, gamma, mean, variance, grad *tensor.RawTensor, eps float32) (dx, dgamma, dbeta *tensor.RawTensor) {
	return b.inner.BatchNorm2DBackward(x, gamma, mean, variance, grad, eps)
}

// GlobalAvgPool2D pools over H and W and records the operation.
func (b *AutodiffBackend[B]) GlobalAvgPool2D(x *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.GlobalAvgPool2D(x)
	b.record(ops.NewGlobalAvgPool2DOp(x, result))
	return result
}

// GlobalAvgPool2DBackward delegates to the inner backend.
func (b *AutodiffBackend[B]) GlobalAvgPool2DBackward(x, grad *tensor.RawTensor) *tensor.RawTensor {
	return b.inner.GlobalAvgPool2DBackward(x, grad)
}

// Softmax is used for prediction only and is not recorded.
func (b *AutodiffBackend[B]) Softmax(x *tensor.RawTensor) *tensor.RawTensor {
	return b.inner.Softmax(x)
}

// Argmax is not differentiable and is not recorded.
func (b *AutodiffBackend[B]) Argmax(x *tensor.RawTensor) *tensor.RawTensor {
	return b.inner.Argmax(x)
}

// CrossEntropy computes the mean loss and records the operation.
func (b *AutodiffBackend[B]) CrossEntropy(logits, targets *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.CrossEntropy(logits, targets)
	b.record(ops.NewCrossEntropyOp(logits, targets, result))
	return result
}

// CrossEntropyBackward delegates to the inner backend.
func (b *AutodiffBackend[B]) CrossEntropyBackward(logits, targets, grad *tensor.RawTensor) *tensor.RawTensor {
	return b.inner.CrossEntropyBackward(logits, targets, grad)
}
