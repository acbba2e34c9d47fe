package cpu

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/exp/rand"

	"github.com/born-ml/convbench/internal/tensor"
)

func TestBatchNorm2D_NormalizesPerChannel(t *testing.T) {
	backend := New()
	// N=2, C=2, H=1, W=2. Channel 0 holds 1..4, channel 1 holds a constant.
	x := raw(t, tensor.Shape{2, 2, 1, 2}, 1, 2, 7, 7, 3, 4, 7, 7)
	gamma := raw(t, tensor.Shape{2}, 1, 1)
	beta := raw(t, tensor.Shape{2}, 0, 0.5)

	out, mean, variance := backend.BatchNorm2D(x, gamma, beta, 1e-5)

	assert.InDeltaSlice(t, []float32{2.5, 7}, mean.AsFloat32(), 1e-6)
	assert.InDeltaSlice(t, []float32{1.25, 0}, variance.AsFloat32(), 1e-6)

	is := 1 / math.Sqrt(1.25+1e-5)
	ys := out.AsFloat32()
	assert.InDelta(t, -1.5*is, ys[0], 1e-4)
	assert.InDelta(t, -0.5*is, ys[1], 1e-4)
	assert.InDelta(t, 0.5*is, ys[4], 1e-4)
	assert.InDelta(t, 1.5*is, ys[5], 1e-4)
	// Zero-variance channel collapses to beta.
	assert.InDelta(t, 0.5, ys[2], 1e-4)
	assert.InDelta(t, 0.5, ys[7], 1e-4)
}

func TestBatchNorm2DInference_UsesGivenStatistics(t *testing.T) {
	backend := New()
	x := raw(t, tensor.Shape{1, 1, 1, 2}, 3, 5)
	gamma := raw(t, tensor.Shape{1}, 2)
	beta := raw(t, tensor.Shape{1}, 1)
	mean := raw(t, tensor.Shape{1}, 4)
	variance := raw(t, tensor.Shape{1}, 1)

	out := backend.BatchNorm2DInference(x, gamma, beta, mean, variance, 0)
	assert.InDeltaSlice(t, []float32{-1, 3}, out.AsFloat32(), 1e-6)
}

func TestBatchNorm2DBackward_MatchesFiniteDifference(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	backend := New()
	const eps = 1e-5

	x := randomRaw(t, rng, tensor.Shape{2, 2, 2, 2})
	gamma := raw(t, tensor.Shape{2}, 1.5, -0.5)
	beta := raw(t, tensor.Shape{2}, 0.1, 0.2)
	dy := randomRaw(t, rng, x.Shape())

	// L = <BN(x), dy>
	loss := func() float64 {
		out, _, _ := backend.BatchNorm2D(x, gamma, beta, eps)
		return dot(out.AsFloat32(), dy.AsFloat32())
	}

	_, mean, variance := backend.BatchNorm2D(x, gamma, beta, eps)
	dx, dgamma, dbeta := backend.BatchNorm2DBackward(x, gamma, mean, variance, dy, eps)

	check := func(name string, param *tensor.RawTensor, analytic []float32) {
		const h = 1e-2
		data := param.AsFloat32()
		for i := range data {
			orig := data[i]
			data[i] = orig + h
			plus := loss()
			data[i] = orig - h
			minus := loss()
			data[i] = orig
			assert.InDelta(t, (plus-minus)/(2*h), analytic[i], 5e-2, "%s[%d]", name, i)
		}
	}

	check("x", x, dx.AsFloat32())
	check("gamma", gamma, dgamma.AsFloat32())
	check("beta", beta, dbeta.AsFloat32())
}

func TestBatchNorm2D_RejectsNon4D(t *testing.T) {
	backend := New()
	assert.Panics(t, func() {
		backend.BatchNorm2D(raw(t, tensor.Shape{2, 2}), raw(t, tensor.Shape{2}), raw(t, tensor.Shape{2}), 1e-5)
	})
}
