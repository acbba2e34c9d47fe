package nn

import (
	"github.com/born-ml/convbench/internal/tensor"
)

// Parameter represents a trainable parameter in a neural network.
//
// The optimizer updates the tensor's data in place, so the underlying
// RawTensor stays the same object for the lifetime of the model. Gradients
// computed by the autodiff tape are keyed by that RawTensor and attached
// with CollectGrads.
//
// Example:
//
//	weight := nn.NewParameter("conv2d.weight", weightTensor)
//	nn.CollectGrads(model.Parameters(), autodiff.Backward(loss, backend))
//	dW := weight.Grad()
type Parameter[B tensor.Backend] struct {
	name   string                     // Parameter name (e.g., "weight", "bias")
	tensor *tensor.Tensor[float32, B] // The parameter tensor
	grad   *tensor.Tensor[float32, B] // Gradient of the last backward pass
}

// NewParameter creates a new trainable parameter.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[float32, B]) *Parameter[B] {
	return &Parameter[B]{
		name:   name,
		tensor: t,
	}
}

// Name returns the parameter name.
func (p *Parameter[B]) Name() string {
	return p.name
}

// Tensor returns the parameter tensor.
func (p *Parameter[B]) Tensor() *tensor.Tensor[float32, B] {
	return p.tensor
}

// Grad returns the gradient tensor, or nil before a backward pass.
func (p *Parameter[B]) Grad() *tensor.Tensor[float32, B] {
	return p.grad
}

// SetGrad sets the gradient tensor.
func (p *Parameter[B]) SetGrad(grad *tensor.Tensor[float32, B]) {
	p.grad = grad
}

// ZeroGrad clears the gradient tensor.
//
// This should be called before each training iteration so gradients of a
// previous batch are never applied twice.
func (p *Parameter[B]) ZeroGrad() {
	p.grad = nil
}

// CollectGrads attaches gradients from a backward pass to params.
// Parameters that did not take part in the computation keep a nil gradient.
func CollectGrads[B tensor.Backend](params []*Parameter[B], grads map[*tensor.RawTensor]*tensor.RawTensor) {
	for _, p := range params {
		if g, ok := grads[p.tensor.Raw()]; ok {
			p.grad = tensor.New[float32](g, p.tensor.Backend())
		}
	}
}
