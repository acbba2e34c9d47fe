package tensor

// Backend defines the operations a compute backend provides.
//
// Forward operations return freshly allocated tensors (Reshape returns a
// view). The *Backward methods compute input gradients for the matching
// forward operation and are used by the autodiff tape; they are never
// recorded themselves.
//
// Implementations:
//   - cpu.CPUBackend: pure Go, gonum BLAS for matrix products
//   - autodiff.AutodiffBackend: decorator that records operations on a tape
type Backend interface {
	// Element-wise binary operations with NumPy-style broadcasting.
	Add(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor

	// SumTo reduces x by summation to shape, the inverse of broadcasting.
	SumTo(x *RawTensor, shape Shape) *RawTensor

	// Matrix operations (2D only).
	MatMul(a, b *RawTensor) *RawTensor
	Transpose(t *RawTensor) *RawTensor

	// Reshape returns a view of t with a new shape.
	Reshape(t *RawTensor, newShape Shape) *RawTensor

	// ReLU computes max(0, x) element-wise.
	ReLU(x *RawTensor) *RawTensor

	// Conv2D: input [N, C_in, H, W], kernel [C_out, C_in, K_h, K_w].
	Conv2D(input, kernel *RawTensor, stride, padding int) *RawTensor
	Conv2DInputBackward(input, kernel, grad *RawTensor, stride, padding int) *RawTensor
	Conv2DKernelBackward(input, kernel, grad *RawTensor, stride, padding int) *RawTensor

	// BatchNorm2D normalizes [N, C, H, W] per channel using batch statistics.
	// It returns the output plus the per-channel mean and biased variance.
	BatchNorm2D(x, gamma, beta *RawTensor, eps float32) (out, mean, variance *RawTensor)
	// BatchNorm2DInference normalizes with the supplied running statistics.
	BatchNorm2DInference(x, gamma, beta, mean, variance *RawTensor, eps float32) *RawTensor
	BatchNorm2DBackward(x, gamma, mean, variance, grad *RawTensor, eps float32) (dx, dgamma, dbeta *RawTensor)

	// GlobalAvgPool2D averages [N, C, H, W] over H and W into [N, C, 1, 1].
	GlobalAvgPool2D(x *RawTensor) *RawTensor
	GlobalAvgPool2DBackward(x, grad *RawTensor) *RawTensor

	// Softmax over the last dimension of a 2D tensor.
	Softmax(x *RawTensor) *RawTensor
	// Argmax over the last dimension of a 2D tensor, as int32 [N].
	Argmax(x *RawTensor) *RawTensor

	// CrossEntropy returns mean(-log_softmax(logits)[targets]) as a [1] tensor.
	CrossEntropy(logits, targets *RawTensor) *RawTensor
	CrossEntropyBackward(logits, targets, grad *RawTensor) *RawTensor

	// Metadata
	Name() string
	Device() Device
}
