package optim_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/convbench/internal/autodiff"
	"github.com/born-ml/convbench/internal/backend/cpu"
	"github.com/born-ml/convbench/internal/nn"
	"github.com/born-ml/convbench/internal/optim"
	"github.com/born-ml/convbench/internal/tensor"
)

type Backend = *autodiff.AutodiffBackend[*cpu.CPUBackend]

func param(t *testing.T, backend Backend, values ...float32) *nn.Parameter[Backend] {
	t.Helper()
	x, err := tensor.FromSlice(values, tensor.Shape{len(values)}, backend)
	require.NoError(t, err)
	return nn.NewParameter("x", x)
}

// setGrad attaches a gradient to p the way nn.CollectGrads does after a
// backward pass.
func setGrad(t *testing.T, backend Backend, p *nn.Parameter[Backend], values ...float32) {
	t.Helper()
	g, err := tensor.FromSlice(values, p.Tensor().Shape(), backend)
	require.NoError(t, err)
	p.SetGrad(g)
}

func TestSGD_SimpleUpdate(t *testing.T) {
	backend := autodiff.New(cpu.New())
	p := param(t, backend, 2.0)
	optimizer := optim.NewSGD([]*nn.Parameter[Backend]{p}, optim.SGDConfig{LR: 0.1}, backend)

	setGrad(t, backend, p, 1.0)
	optimizer.Step()

	assert.InDelta(t, 1.9, p.Tensor().Data()[0], 1e-6)
	assert.Equal(t, float32(0.1), optimizer.GetLR())
}

func TestSGD_Momentum(t *testing.T) {
	backend := autodiff.New(cpu.New())
	p := param(t, backend, 1.0)
	optimizer := optim.NewSGD([]*nn.Parameter[Backend]{p}, optim.SGDConfig{LR: 0.1, Momentum: 0.9}, backend)

	setGrad(t, backend, p, 1.0)
	optimizer.Step() // v = 1, x = 0.9
	optimizer.Step() // v = 1.9, x = 0.71

	assert.InDelta(t, 0.71, p.Tensor().Data()[0], 1e-6)
}

func TestSGD_SkipsParametersWithoutGradient(t *testing.T) {
	backend := autodiff.New(cpu.New())
	p := param(t, backend, 1.0, 2.0)
	optimizer := optim.NewSGD([]*nn.Parameter[Backend]{p}, optim.SGDConfig{}, backend)

	optimizer.Step()

	assert.Equal(t, []float32{1, 2}, p.Tensor().Data())
	assert.Equal(t, float32(0.01), optimizer.GetLR(), "default learning rate")
}

func TestSGD_ZeroGrad(t *testing.T) {
	backend := autodiff.New(cpu.New())
	p := param(t, backend, 1.0)
	p.SetGrad(tensor.Ones[float32](tensor.Shape{1}, backend))
	optimizer := optim.NewSGD([]*nn.Parameter[Backend]{p}, optim.SGDConfig{LR: 0.1}, backend)

	optimizer.ZeroGrad()

	assert.Nil(t, p.Grad())
}

// A step after ZeroGrad with no new backward pass must not reapply the
// previous batch's gradient.
func TestOptimizers_ZeroGradStopsStaleUpdates(t *testing.T) {
	backend := autodiff.New(cpu.New())

	p := param(t, backend, 1.0)
	q := param(t, backend, 1.0)
	optimizers := map[string]optim.Optimizer{
		"sgd":  optim.NewSGD([]*nn.Parameter[Backend]{p}, optim.SGDConfig{LR: 0.1, Momentum: 0.9}, backend),
		"adam": optim.NewAdam([]*nn.Parameter[Backend]{q}, optim.AdamConfig{LR: 0.1}, backend),
	}
	params := map[string]*nn.Parameter[Backend]{"sgd": p, "adam": q}

	for name, optimizer := range optimizers {
		x := params[name]
		setGrad(t, backend, x, 1.0)
		optimizer.Step()
		after := x.Tensor().Data()[0]
		assert.Less(t, after, float32(1), name)

		optimizer.ZeroGrad()
		optimizer.Step()
		assert.Equal(t, after, x.Tensor().Data()[0], "%s applied a cleared gradient", name)
	}
}

func TestAdam_FirstStepMovesByLR(t *testing.T) {
	backend := autodiff.New(cpu.New())
	p := param(t, backend, 1.0, -1.0)
	optimizer := optim.NewAdam([]*nn.Parameter[Backend]{p}, optim.AdamConfig{LR: 0.01}, backend)

	// After bias correction the first step is lr * sign(grad).
	setGrad(t, backend, p, 0.5, -3)
	optimizer.Step()

	assert.InDelta(t, 0.99, p.Tensor().Data()[0], 1e-5)
	assert.InDelta(t, -0.99, p.Tensor().Data()[1], 1e-5)
	assert.Equal(t, 1, optimizer.GetTimestep())
}

func TestAdam_Defaults(t *testing.T) {
	backend := autodiff.New(cpu.New())
	optimizer := optim.NewAdam([]*nn.Parameter[Backend]{}, optim.AdamConfig{}, backend)
	assert.Equal(t, float32(0.001), optimizer.GetLR())
	assert.Zero(t, optimizer.GetTimestep())
}

// A few SGD steps on a linear classifier must reduce the training loss.
func TestSGD_ReducesLoss(t *testing.T) {
	backend := autodiff.New(cpu.New())
	model := nn.NewLinear(2, 2, nn.NewRNG(1), backend)
	criterion := nn.NewCrossEntropyLoss(backend)
	optimizer := optim.NewSGD(model.Parameters(), optim.SGDConfig{LR: 0.5}, backend)

	x, err := tensor.FromSlice([]float32{1, 0, 0, 1, 2, 0, 0, 2}, tensor.Shape{4, 2}, backend)
	require.NoError(t, err)
	labels, err := tensor.FromSlice([]int32{0, 1, 0, 1}, tensor.Shape{4}, backend)
	require.NoError(t, err)

	step := func() float32 {
		optimizer.ZeroGrad()
		backend.Tape().Clear()
		backend.Tape().StartRecording()
		loss := criterion.Forward(model.Forward(x), labels)
		nn.CollectGrads(model.Parameters(), autodiff.Backward(loss, backend))
		backend.Tape().StopRecording()
		optimizer.Step()
		return loss.Item()
	}

	first := step()
	var last float32
	for i := 0; i < 20; i++ {
		last = step()
	}
	assert.Less(t, last, first)
}
