package cpu

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/born-ml/convbench/internal/tensor"
)

func TestSoftmax_RowsSumToOne(t *testing.T) {
	backend := New()
	out := backend.Softmax(raw(t, tensor.Shape{2, 3}, 1, 2, 3, 1000, 1000, 1000))

	ys := out.AsFloat32()
	assert.InDelta(t, 1.0, ys[0]+ys[1]+ys[2], 1e-6)
	assert.Less(t, ys[0], ys[1])
	assert.Less(t, ys[1], ys[2])
	for _, v := range ys[3:] {
		assert.InDelta(t, 1.0/3, v, 1e-6)
	}
}

func TestArgmax(t *testing.T) {
	backend := New()
	out := backend.Argmax(raw(t, tensor.Shape{3, 3}, 0.1, 0.7, 0.2, 5, -1, 0, 2, 2, 1))

	assert.Equal(t, tensor.Int32, out.DType())
	assert.Equal(t, []int32{1, 0, 0}, out.AsInt32(), "ties resolve to the lowest index")
}

func TestCrossEntropy_UniformLogits(t *testing.T) {
	backend := New()
	logits := raw(t, tensor.Shape{2, 4})

	loss := backend.CrossEntropy(logits, labels(t, 0, 3))

	assert.Equal(t, tensor.Shape{1}, loss.Shape())
	assert.InDelta(t, math.Log(4), loss.AsFloat32()[0], 1e-6)
}

func TestCrossEntropy_StableForLargeLogits(t *testing.T) {
	backend := New()
	loss := backend.CrossEntropy(raw(t, tensor.Shape{1, 2}, 1000, 0), labels(t, 0))
	assert.InDelta(t, 0, loss.AsFloat32()[0], 1e-6)

	loss = backend.CrossEntropy(raw(t, tensor.Shape{1, 2}, 1000, 0), labels(t, 1))
	assert.InDelta(t, 1000, loss.AsFloat32()[0], 1e-3)
}

func TestCrossEntropy_TargetOutOfRangePanics(t *testing.T) {
	backend := New()
	assert.Panics(t, func() {
		backend.CrossEntropy(raw(t, tensor.Shape{1, 2}), labels(t, 2))
	})
	assert.Panics(t, func() {
		backend.CrossEntropy(raw(t, tensor.Shape{2, 2}), labels(t, 0))
	})
}

func TestCrossEntropyBackward(t *testing.T) {
	backend := New()
	logits := raw(t, tensor.Shape{2, 2})
	grad := raw(t, tensor.Shape{1}, 1)

	dz := backend.CrossEntropyBackward(logits, labels(t, 0, 1), grad)

	// (softmax - onehot) / batch with softmax = 0.5 everywhere.
	assert.InDeltaSlice(t, []float32{-0.25, 0.25, 0.25, -0.25}, dz.AsFloat32(), 1e-6)
}
