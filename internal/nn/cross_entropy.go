package nn

import (
	"fmt"

	"github.com/born-ml/convbench/internal/tensor"
)

// CrossEntropyLoss computes the mean cross-entropy between logits and
// integer class labels.
//
// Forward:
//
//	loss = mean_b( logsumexp(logits_b) - logits_b[target_b] )
//
// Softmax and log are fused and computed with the log-sum-exp trick, so
// large logits do not overflow. On an autodiff backend the loss is
// recorded on the tape and its gradient flows to the logits.
type CrossEntropyLoss[B tensor.Backend] struct {
	backend B
}

// NewCrossEntropyLoss creates a new cross-entropy loss function.
func NewCrossEntropyLoss[B tensor.Backend](backend B) *CrossEntropyLoss[B] {
	return &CrossEntropyLoss[B]{backend: backend}
}

// Forward computes the loss.
//
// logits: [batch, classes]; targets: [batch] class indices.
// Returns a [1] tensor holding the mean loss.
func (c *CrossEntropyLoss[B]) Forward(
	logits *tensor.Tensor[float32, B],
	targets *tensor.Tensor[int32, B],
) *tensor.Tensor[float32, B] {
	return tensor.New[float32, B](c.backend.CrossEntropy(logits.Raw(), targets.Raw()), c.backend)
}

// Parameters returns an empty slice (loss functions have no trainable parameters).
func (c *CrossEntropyLoss[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{}
}

// Predict returns the top-1 class of each row of logits: the index of the
// maximum post-softmax score.
func Predict[B tensor.Backend](logits *tensor.Tensor[float32, B]) *tensor.Tensor[int32, B] {
	backend := logits.Backend()
	probs := backend.Softmax(logits.Raw())
	return tensor.New[int32, B](backend.Argmax(probs), backend)
}

// Correct counts predictions equal to their labels.
func Correct[B tensor.Backend](predictions, labels *tensor.Tensor[int32, B]) int {
	p, l := predictions.Data(), labels.Data()
	if len(p) != len(l) {
		panic(fmt.Sprintf("correct: %d predictions for %d labels", len(p), len(l)))
	}

	n := 0
	for i := range p {
		if p[i] == l[i] {
			n++
		}
	}
	return n
}
