package nn

import (
	"fmt"

	"github.com/born-ml/convbench/internal/tensor"
)

// GlobalAvgPool2D averages each channel over its spatial extent:
// [N, C, H, W] → [N, C, 1, 1].
type GlobalAvgPool2D[B tensor.Backend] struct {
	backend B
}

// NewGlobalAvgPool2D creates a global average pooling layer.
func NewGlobalAvgPool2D[B tensor.Backend](backend B) *GlobalAvgPool2D[B] {
	return &GlobalAvgPool2D[B]{backend: backend}
}

// Forward pools the input.
func (p *GlobalAvgPool2D[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return tensor.New[float32, B](p.backend.GlobalAvgPool2D(input.Raw()), p.backend)
}

// Parameters returns an empty slice.
func (p *GlobalAvgPool2D[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{}
}

// String returns a string representation of the layer.
func (p *GlobalAvgPool2D[B]) String() string {
	return "GlobalAvgPool2D()"
}

// Flatten reshapes [N, d1, d2, ...] into [N, d1*d2*...].
type Flatten[B tensor.Backend] struct{}

// NewFlatten creates a Flatten layer.
func NewFlatten[B tensor.Backend]() *Flatten[B] {
	return &Flatten[B]{}
}

// Forward flattens all but the batch dimension.
func (f *Flatten[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := input.Shape()
	if len(shape) < 2 {
		panic(fmt.Sprintf("flatten: expected at least 2D input, got shape %v", shape))
	}
	return input.Reshape(shape[0], shape[1:].NumElements())
}

// Parameters returns an empty slice.
func (f *Flatten[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{}
}

// String returns a string representation of the layer.
func (f *Flatten[B]) String() string {
	return "Flatten()"
}
