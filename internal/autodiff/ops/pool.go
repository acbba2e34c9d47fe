package ops

import "github.com/born-ml/convbench/internal/tensor"

// GlobalAvgPool2DOp records a global average pool [N, C, H, W] → [N, C, 1, 1].
//
// Each input position receives outputGrad / (H*W) of its channel.
type GlobalAvgPool2DOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

// NewGlobalAvgPool2DOp creates a new GlobalAvgPool2DOp.
func NewGlobalAvgPool2DOp(input, output *tensor.RawTensor) *GlobalAvgPool2DOp {
	return &GlobalAvgPool2DOp{input: input, output: output}
}

// Inputs returns the input tensors.
func (op *GlobalAvgPool2DOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the output tensor.
func (op *GlobalAvgPool2DOp) Output() *tensor.RawTensor {
	return op.output
}

// Backward spreads the pooled gradient evenly over each spatial map.
func (op *GlobalAvgPool2DOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.GlobalAvgPool2DBackward(op.input, outputGrad)}
}
