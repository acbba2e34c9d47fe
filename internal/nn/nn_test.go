package nn_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/convbench/internal/autodiff"
	"github.com/born-ml/convbench/internal/backend/cpu"
	"github.com/born-ml/convbench/internal/nn"
	"github.com/born-ml/convbench/internal/tensor"
)

type Backend = *autodiff.AutodiffBackend[*cpu.CPUBackend]

func fromSlice(t *testing.T, data []float32, shape tensor.Shape, backend *cpu.CPUBackend) *tensor.Tensor[float32, *cpu.CPUBackend] {
	t.Helper()
	x, err := tensor.FromSlice(data, shape, backend)
	require.NoError(t, err)
	return x
}

func TestLinear_Forward(t *testing.T) {
	backend := cpu.New()
	layer := nn.NewLinear(3, 2, nn.NewRNG(1), backend)
	copy(layer.Weight().Tensor().Data(), []float32{1, 0, -1, 2, 2, 2})
	copy(layer.Bias().Tensor().Data(), []float32{0.5, -0.5})

	x := fromSlice(t, []float32{1, 2, 3, 0, 1, 0}, tensor.Shape{2, 3}, backend)
	y := layer.Forward(x)

	assert.Equal(t, tensor.Shape{2, 2}, y.Shape())
	assert.Equal(t, []float32{-1.5, 11.5, 0.5, 1.5}, y.Data())
	assert.Len(t, layer.Parameters(), 2)
}

func TestLinear_WrongFeaturesPanics(t *testing.T) {
	backend := cpu.New()
	layer := nn.NewLinear(3, 2, nn.NewRNG(1), backend)
	assert.Panics(t, func() {
		layer.Forward(tensor.Zeros[float32](tensor.Shape{1, 4}, backend))
	})
}

func TestConv2D_ForwardAddsBias(t *testing.T) {
	backend := cpu.New()
	conv := nn.NewConv2D(1, 2, 1, 1, 1, 0, true, nn.NewRNG(1), backend)
	copy(conv.Weight().Tensor().Data(), []float32{1, -1})
	copy(conv.Bias().Tensor().Data(), []float32{10, 20})

	x := fromSlice(t, []float32{1, 2, 3, 4}, tensor.Shape{1, 1, 2, 2}, backend)
	y := conv.Forward(x)

	assert.Equal(t, tensor.Shape{1, 2, 2, 2}, y.Shape())
	assert.Equal(t, []float32{11, 12, 13, 14, 19, 18, 17, 16}, y.Data())
	assert.Equal(t, [2]int{2, 2}, conv.ComputeOutputSize(2, 2))
}

func TestConv2D_InvalidArgumentsPanic(t *testing.T) {
	backend := cpu.New()
	assert.Panics(t, func() { nn.NewConv2D(0, 2, 3, 3, 1, 1, true, nn.NewRNG(1), backend) })
	assert.Panics(t, func() { nn.NewConv2D(1, 2, 3, 3, 0, 1, true, nn.NewRNG(1), backend) })
	assert.Panics(t, func() { nn.NewConv2D(1, 2, 3, 3, 1, -1, true, nn.NewRNG(1), backend) })

	conv := nn.NewConv2D(3, 2, 3, 3, 1, 1, true, nn.NewRNG(1), backend)
	assert.Panics(t, func() {
		conv.Forward(tensor.Zeros[float32](tensor.Shape{1, 2, 4, 4}, backend))
	})
}

func TestBatchNorm2D_TrainingUpdatesRunningStats(t *testing.T) {
	backend := cpu.New()
	bn := nn.NewBatchNorm2D(1, backend)

	// Constant input: batch mean 2, batch variance 0.
	x := tensor.Full[float32](tensor.Shape{2, 1, 2, 2}, 2, backend)
	y := bn.Forward(x)

	for _, v := range y.Data() {
		assert.InDelta(t, 0, v, 1e-6)
	}
	assert.InDelta(t, 0.2, bn.RunningMean()[0], 1e-6)
	assert.InDelta(t, 0.9, bn.RunningVar()[0], 1e-6)
}

func TestBatchNorm2D_EvalUsesRunningStats(t *testing.T) {
	backend := cpu.New()
	bn := nn.NewBatchNorm2D(2, backend)
	bn.SetTraining(false)
	assert.False(t, bn.Training())

	x := fromSlice(t, []float32{1, -1, 4, 8}, tensor.Shape{1, 2, 1, 2}, backend)
	y := bn.Forward(x)

	// Fresh running stats are mean 0, variance 1.
	assert.InDeltaSlice(t, []float32{1, -1, 4, 8}, y.Data(), 1e-4)
	assert.Equal(t, []float32{0, 0}, bn.RunningMean(), "eval mode must not update statistics")
}

func TestGlobalAvgPool2DAndFlatten(t *testing.T) {
	backend := cpu.New()
	head := nn.NewSequential[*cpu.CPUBackend](
		nn.NewGlobalAvgPool2D(backend),
		nn.NewFlatten[*cpu.CPUBackend](),
	)

	x := fromSlice(t, []float32{1, 3, 5, 7, 2, 2, 2, 2}, tensor.Shape{1, 2, 2, 2}, backend)
	y := head.Forward(x)

	assert.Equal(t, tensor.Shape{1, 2}, y.Shape())
	assert.Equal(t, []float32{4, 2}, y.Data())
	assert.Empty(t, head.Parameters())
}

func TestSequential_CollectsParametersAndModes(t *testing.T) {
	backend := cpu.New()
	norm := nn.NewBatchNorm2D(4, backend)
	model := nn.NewSequential[*cpu.CPUBackend](
		nn.NewConv2D(3, 4, 3, 3, 1, 1, true, nn.NewRNG(1), backend),
		norm,
		nn.NewReLU[*cpu.CPUBackend](),
	)

	assert.Equal(t, 3, model.Len())
	assert.Len(t, model.Parameters(), 4)
	assert.Equal(t, 4*3*3*3+4+4+4, nn.NumParameters[*cpu.CPUBackend](model))

	nn.SetTraining[*cpu.CPUBackend](model, false)
	assert.False(t, norm.Training())
	nn.SetTraining[*cpu.CPUBackend](model, true)
	assert.True(t, norm.Training())

	assert.Panics(t, func() { model.Module(3) })
}

func TestCrossEntropyLoss_AndPredict(t *testing.T) {
	backend := cpu.New()
	criterion := nn.NewCrossEntropyLoss(backend)

	logits := fromSlice(t, []float32{2, 0, 0, 0, 3, 0}, tensor.Shape{2, 3}, backend)
	labels, err := tensor.FromSlice([]int32{0, 2}, tensor.Shape{2}, backend)
	require.NoError(t, err)

	loss := criterion.Forward(logits, labels)
	assert.Equal(t, tensor.Shape{1}, loss.Shape())
	assert.Greater(t, loss.Item(), float32(0))

	predictions := nn.Predict(logits)
	assert.Equal(t, []int32{0, 1}, predictions.Data())
	assert.Equal(t, 1, nn.Correct(predictions, labels))
}

func TestNewRNG_ReproducibleInitialization(t *testing.T) {
	backend := cpu.New()

	rngA := nn.NewRNG(7)
	a := nn.NewConv2D(2, 3, 3, 3, 1, 1, true, rngA, backend)
	l1 := nn.NewLinear(4, 2, rngA, backend)
	rngB := nn.NewRNG(7)
	b := nn.NewConv2D(2, 3, 3, 3, 1, 1, true, rngB, backend)
	l2 := nn.NewLinear(4, 2, rngB, backend)

	assert.Equal(t, a.Weight().Tensor().Data(), b.Weight().Tensor().Data())
	assert.Equal(t, l1.Weight().Tensor().Data(), l2.Weight().Tensor().Data())
}

// Building another model in between must not disturb a model's weights.
func TestNewRNG_SourcesAreIndependent(t *testing.T) {
	backend := cpu.New()

	want := nn.NewLinear(4, 2, nn.NewRNG(7), backend)

	nn.NewConv2D(2, 8, 3, 3, 1, 1, true, nn.NewRNG(7), backend)
	nn.NewLinear(16, 16, nn.NewRNG(99), backend)
	again := nn.NewLinear(4, 2, nn.NewRNG(7), backend)

	assert.Equal(t, want.Weight().Tensor().Data(), again.Weight().Tensor().Data())
}

func TestXavier_WithinBound(t *testing.T) {
	backend := cpu.New()
	w := nn.Xavier(nn.NewRNG(3), 10, 20, tensor.Shape{20, 10}, backend)
	for _, v := range w.Data() {
		assert.LessOrEqual(t, v, float32(0.4473))
		assert.GreaterOrEqual(t, v, float32(-0.4473))
	}
}

func TestCollectGrads_AttachesParameterGradients(t *testing.T) {
	backend := autodiff.New(cpu.New())
	layer := nn.NewLinear(2, 3, nn.NewRNG(1), backend)
	criterion := nn.NewCrossEntropyLoss(backend)

	x, err := tensor.FromSlice([]float32{1, 2, -1, 0.5}, tensor.Shape{2, 2}, backend)
	require.NoError(t, err)
	labels, err := tensor.FromSlice([]int32{1, 2}, tensor.Shape{2}, backend)
	require.NoError(t, err)

	backend.Tape().StartRecording()
	loss := criterion.Forward(layer.Forward(x), labels)
	grads := autodiff.Backward(loss, backend)
	nn.CollectGrads(layer.Parameters(), grads)

	for _, p := range layer.Parameters() {
		require.NotNil(t, p.Grad(), p.Name())
		assert.Equal(t, p.Tensor().Shape(), p.Grad().Shape(), p.Name())
		p.ZeroGrad()
		assert.Nil(t, p.Grad())
	}
}
