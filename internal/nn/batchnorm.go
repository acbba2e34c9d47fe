package nn

import (
	"fmt"

	"github.com/born-ml/convbench/internal/tensor"
)

// Default batch normalization hyperparameters.
const (
	DefaultBatchNormEps      = 1e-5
	DefaultBatchNormMomentum = 0.1
)

// BatchNorm2D normalizes each channel of a [N, C, H, W] input:
//
//	y = gamma * (x - mean) / sqrt(var + eps) + beta
//
// In training mode the batch statistics are used and folded into running
// estimates:
//
//	running = (1 - momentum) * running + momentum * batch
//
// with the unbiased batch variance. In evaluation mode the running
// estimates are used, so the output no longer depends on the rest of the
// batch.
type BatchNorm2D[B tensor.Backend] struct {
	numFeatures int
	eps         float32
	momentum    float32
	training    bool

	gamma *Parameter[B] // [C], initialized to 1
	beta  *Parameter[B] // [C], initialized to 0

	runningMean *tensor.RawTensor // [C]
	runningVar  *tensor.RawTensor // [C]

	backend B
}

// NewBatchNorm2D creates a batch normalization layer in training mode.
func NewBatchNorm2D[B tensor.Backend](numFeatures int, backend B) *BatchNorm2D[B] {
	if numFeatures <= 0 {
		panic(fmt.Sprintf("batchnorm2d: invalid number of features %d", numFeatures))
	}

	runningVar := tensor.MustRaw(tensor.Shape{numFeatures}, tensor.Float32, backend.Device())
	runningVar.Fill(1)

	return &BatchNorm2D[B]{
		numFeatures: numFeatures,
		eps:         DefaultBatchNormEps,
		momentum:    DefaultBatchNormMomentum,
		training:    true,
		gamma:       NewParameter("batchnorm2d.weight", Ones(tensor.Shape{numFeatures}, backend)),
		beta:        NewParameter("batchnorm2d.bias", Zeros(tensor.Shape{numFeatures}, backend)),
		runningMean: tensor.MustRaw(tensor.Shape{numFeatures}, tensor.Float32, backend.Device()),
		runningVar:  runningVar,
		backend:     backend,
	}
}

// Forward normalizes the input.
func (bn *BatchNorm2D[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := input.Shape()
	if len(shape) != 4 {
		panic(fmt.Sprintf("batchnorm2d: expected 4D input [N,C,H,W], got shape %v", shape))
	}
	if shape[1] != bn.numFeatures {
		panic(fmt.Sprintf("batchnorm2d: input channels %d != expected %d", shape[1], bn.numFeatures))
	}

	gamma, beta := bn.gamma.Tensor().Raw(), bn.beta.Tensor().Raw()

	if !bn.training {
		out := bn.backend.BatchNorm2DInference(input.Raw(), gamma, beta, bn.runningMean, bn.runningVar, bn.eps)
		return tensor.New[float32, B](out, bn.backend)
	}

	out, mean, variance := bn.backend.BatchNorm2D(input.Raw(), gamma, beta, bn.eps)
	bn.updateRunningStats(mean.AsFloat32(), variance.AsFloat32(), shape[0]*shape[2]*shape[3])
	return tensor.New[float32, B](out, bn.backend)
}

func (bn *BatchNorm2D[B]) updateRunningStats(mean, variance []float32, count int) {
	correction := float32(1)
	if count > 1 {
		correction = float32(count) / float32(count-1)
	}

	rm, rv := bn.runningMean.AsFloat32(), bn.runningVar.AsFloat32()
	for c := range rm {
		rm[c] = (1-bn.momentum)*rm[c] + bn.momentum*mean[c]
		rv[c] = (1-bn.momentum)*rv[c] + bn.momentum*variance[c]*correction
	}
}

// SetTraining switches between batch statistics (true) and running
// statistics (false).
func (bn *BatchNorm2D[B]) SetTraining(training bool) {
	bn.training = training
}

// Training reports whether the layer is in training mode.
func (bn *BatchNorm2D[B]) Training() bool {
	return bn.training
}

// Parameters returns [gamma, beta].
func (bn *BatchNorm2D[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{bn.gamma, bn.beta}
}

// RunningMean returns the running mean estimate.
func (bn *BatchNorm2D[B]) RunningMean() []float32 {
	return bn.runningMean.AsFloat32()
}

// RunningVar returns the running variance estimate.
func (bn *BatchNorm2D[B]) RunningVar() []float32 {
	return bn.runningVar.AsFloat32()
}

// String returns a string representation of the layer.
func (bn *BatchNorm2D[B]) String() string {
	return fmt.Sprintf("BatchNorm2D(%d, eps=%g, momentum=%g)", bn.numFeatures, bn.eps, bn.momentum)
}
