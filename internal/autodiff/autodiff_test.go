package autodiff_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/convbench/internal/autodiff"
	"github.com/born-ml/convbench/internal/backend/cpu"
	"github.com/born-ml/convbench/internal/tensor"
)

type Backend = *autodiff.AutodiffBackend[*cpu.CPUBackend]

var _ tensor.Backend = Backend(nil)

func TestAutodiffBackend_Name(t *testing.T) {
	backend := autodiff.New(cpu.New())
	assert.Equal(t, "Autodiff(CPU)", backend.Name())
	assert.Equal(t, tensor.CPU, backend.Device())
	assert.Equal(t, "CPU", backend.Inner().Name())
}

func TestGradientTape_RecordsOnlyWhileRecording(t *testing.T) {
	backend := autodiff.New(cpu.New())
	x := tensor.Ones[float32](tensor.Shape{2}, backend)

	_ = x.Add(x)
	assert.Equal(t, 0, backend.Tape().NumOps())

	backend.Tape().StartRecording()
	_ = x.Add(x).ReLU()
	assert.Equal(t, 2, backend.Tape().NumOps())

	backend.Tape().StopRecording()
	_ = x.Mul(x)
	assert.Equal(t, 2, backend.Tape().NumOps())

	backend.Tape().Clear()
	assert.Equal(t, 0, backend.Tape().NumOps())
	assert.False(t, backend.Tape().IsRecording())
}

func TestGradientTape_InferenceOpsAreNotRecorded(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	logits, err := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{2, 2}, backend)
	require.NoError(t, err)
	_ = backend.Softmax(logits.Raw())
	_ = backend.Argmax(logits.Raw())

	assert.Equal(t, 0, backend.Tape().NumOps())
}

func TestBackward_SquareViaMul(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	x, err := tensor.FromSlice([]float32{3}, tensor.Shape{1}, backend)
	require.NoError(t, err)
	y := x.Mul(x) // y = x²

	grads := autodiff.Backward(y, backend)

	require.Contains(t, grads, x.Raw())
	assert.InDelta(t, 6.0, grads[x.Raw()].AsFloat32()[0], 1e-6)
}

func TestBackward_SkipConnectionAccumulates(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	x, err := tensor.FromSlice([]float32{1, -2}, tensor.Shape{2}, backend)
	require.NoError(t, err)
	w, err := tensor.FromSlice([]float32{3, 3}, tensor.Shape{2}, backend)
	require.NoError(t, err)

	// y = x*w + x, so dy/dx = w + 1.
	y := x.Mul(w).Add(x)
	grads := autodiff.Backward(y, backend)

	assert.Equal(t, []float32{4, 4}, grads[x.Raw()].AsFloat32())
	assert.Equal(t, []float32{1, -2}, grads[w.Raw()].AsFloat32())
}

func TestBackward_NoOpsPanics(t *testing.T) {
	backend := autodiff.New(cpu.New())
	x := tensor.Ones[float32](tensor.Shape{1}, backend)
	assert.Panics(t, func() { autodiff.Backward(x, backend) })
}

func TestBackward_DoesNotRecordGradientKernels(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	x := tensor.Ones[float32](tensor.Shape{2, 2}, backend)
	y := x.MatMul(x)
	_ = autodiff.Backward(y, backend)

	assert.Equal(t, 1, backend.Tape().NumOps())
	assert.True(t, backend.Tape().IsRecording())
}

func TestBackward_CrossEntropyMatchesBackend(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	logits, err := tensor.FromSlice([]float32{0.5, -1, 2, 0, 0, 0}, tensor.Shape{2, 3}, backend)
	require.NoError(t, err)
	targets, err := tensor.FromSlice([]int32{2, 1}, tensor.Shape{2}, backend)
	require.NoError(t, err)

	loss := tensor.New[float32](backend.CrossEntropy(logits.Raw(), targets.Raw()), backend)
	grads := autodiff.Backward(loss, backend)

	one := tensor.MustRaw(tensor.Shape{1}, tensor.Float32, tensor.CPU)
	one.Fill(1)
	want := cpu.New().CrossEntropyBackward(logits.Raw(), targets.Raw(), one)

	assert.InDeltaSlice(t, want.AsFloat32(), grads[logits.Raw()].AsFloat32(), 1e-6)
	assert.NotContains(t, grads, targets.Raw())
}
