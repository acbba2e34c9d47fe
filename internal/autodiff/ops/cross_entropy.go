package ops

import "github.com/born-ml/convbench/internal/tensor"

// CrossEntropyOp represents the fused softmax + negative log-likelihood loss.
//
// Forward:
//
//	loss = mean_b( logsumexp(logits_b) - logits_b[target_b] )
//
// Backward:
//
//	∂L/∂logits = (softmax(logits) - onehot(targets)) / batch_size
//
// Targets are class indices and receive no gradient.
type CrossEntropyOp struct {
	logits  *tensor.RawTensor // [batch, classes]
	targets *tensor.RawTensor // [batch] int32
	output  *tensor.RawTensor // [1]
}

// NewCrossEntropyOp creates a new CrossEntropyOp.
func NewCrossEntropyOp(logits, targets, output *tensor.RawTensor) *CrossEntropyOp {
	return &CrossEntropyOp{
		logits:  logits,
		targets: targets,
		output:  output,
	}
}

// Inputs returns [logits, targets].
func (op *CrossEntropyOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.logits, op.targets}
}

// Output returns the scalar loss tensor.
func (op *CrossEntropyOp) Output() *tensor.RawTensor {
	return op.output
}

// Backward computes the logits gradient; the targets entry is nil.
func (op *CrossEntropyOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.CrossEntropyBackward(op.logits, op.targets, outputGrad), nil}
}
