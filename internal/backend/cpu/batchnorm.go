package cpu

import (
	"fmt"
	"math"

	"github.com/born-ml/convbench/internal/parallel"
	"github.com/born-ml/convbench/internal/tensor"
)

// BatchNorm2D normalizes x [N, C, H, W] per channel with batch statistics:
//
//	y = gamma * (x - mean) / sqrt(var + eps) + beta
//
// mean and var are taken over N, H and W. The variance returned is the biased
// (population) estimate used for normalization.
func (cpu *CPUBackend) BatchNorm2D(x, gamma, beta *tensor.RawTensor, eps float32) (out, mean, variance *tensor.RawTensor) {
	n, c, hw := batchNormDims("batchnorm2d", x, gamma, beta)
	count := float64(n * hw)

	out = cpu.alloc("batchnorm2d", x.Shape())
	mean = cpu.alloc("batchnorm2d", tensor.Shape{c})
	variance = cpu.alloc("batchnorm2d", tensor.Shape{c})

	xs, ys := x.AsFloat32(), out.AsFloat32()
	g, b := gamma.AsFloat32(), beta.AsFloat32()
	means, vars := mean.AsFloat32(), variance.AsFloat32()

	parallel.For(c, func(ch int) {
		var sum float64
		for s := 0; s < n; s++ {
			for _, v := range xs[(s*c+ch)*hw : (s*c+ch+1)*hw] {
				sum += float64(v)
			}
		}
		mu := sum / count

		var sq float64
		for s := 0; s < n; s++ {
			for _, v := range xs[(s*c+ch)*hw : (s*c+ch+1)*hw] {
				d := float64(v) - mu
				sq += d * d
			}
		}
		sigma2 := sq / count

		means[ch] = float32(mu)
		vars[ch] = float32(sigma2)
		normalizeChannel(xs, ys, n, c, hw, ch, float32(mu), invStd(float32(sigma2), eps), g[ch], b[ch])
	}, cpu.workers)

	return out, mean, variance
}

// BatchNorm2DInference normalizes x with fixed (running) statistics.
func (cpu *CPUBackend) BatchNorm2DInference(x, gamma, beta, mean, variance *tensor.RawTensor, eps float32) *tensor.RawTensor {
	n, c, hw := batchNormDims("batchnorm2d_inference", x, gamma, beta, mean, variance)

	out := cpu.alloc("batchnorm2d_inference", x.Shape())
	xs, ys := x.AsFloat32(), out.AsFloat32()
	g, b := gamma.AsFloat32(), beta.AsFloat32()
	means, vars := mean.AsFloat32(), variance.AsFloat32()

	parallel.For(c, func(ch int) {
		normalizeChannel(xs, ys, n, c, hw, ch, means[ch], invStd(vars[ch], eps), g[ch], b[ch])
	}, cpu.workers)
	return out
}

// BatchNorm2DBackward computes gradients of BatchNorm2D in training mode.
//
// With x̂ = (x - mean) * invstd and m = N*H*W elements per channel:
//
//	dbeta  = Σ dy
//	dgamma = Σ dy * x̂
//	dx     = gamma * invstd / m * (m*dy - dbeta - x̂*dgamma)
func (cpu *CPUBackend) BatchNorm2DBackward(x, gamma, mean, variance, grad *tensor.RawTensor, eps float32) (dx, dgamma, dbeta *tensor.RawTensor) {
	n, c, hw := batchNormDims("batchnorm2d_backward", x, gamma, mean, variance)
	if !grad.Shape().Equal(x.Shape()) {
		panic(fmt.Sprintf("batchnorm2d_backward: gradient shape %v != input shape %v", grad.Shape(), x.Shape()))
	}
	m := float32(n * hw)

	dx = cpu.alloc("batchnorm2d_backward", x.Shape())
	dgamma = cpu.alloc("batchnorm2d_backward", tensor.Shape{c})
	dbeta = cpu.alloc("batchnorm2d_backward", tensor.Shape{c})

	xs, dys, dxs := x.AsFloat32(), grad.AsFloat32(), dx.AsFloat32()
	g, means, vars := gamma.AsFloat32(), mean.AsFloat32(), variance.AsFloat32()
	dg, db := dgamma.AsFloat32(), dbeta.AsFloat32()

	parallel.For(c, func(ch int) {
		mu, is := means[ch], invStd(vars[ch], eps)

		var sumDy, sumDyXhat float32
		for s := 0; s < n; s++ {
			base := (s*c + ch) * hw
			for i := base; i < base+hw; i++ {
				sumDy += dys[i]
				sumDyXhat += dys[i] * (xs[i] - mu) * is
			}
		}
		db[ch] = sumDy
		dg[ch] = sumDyXhat

		scale := g[ch] * is / m
		for s := 0; s < n; s++ {
			base := (s*c + ch) * hw
			for i := base; i < base+hw; i++ {
				xhat := (xs[i] - mu) * is
				dxs[i] = scale * (m*dys[i] - sumDy - xhat*sumDyXhat)
			}
		}
	}, cpu.workers)

	return dx, dgamma, dbeta
}

// batchNormDims validates x as [N, C, H, W] and every per-channel tensor as [C].
func batchNormDims(op string, x *tensor.RawTensor, perChannel ...*tensor.RawTensor) (n, c, hw int) {
	shape := x.Shape()
	if len(shape) != 4 {
		panic(fmt.Sprintf("%s: expected 4D input [N,C,H,W], got shape %v", op, shape))
	}
	n, c, hw = shape[0], shape[1], shape[2]*shape[3]
	for _, p := range perChannel {
		if p.NumElements() != c {
			panic(fmt.Sprintf("%s: per-channel tensor must have %d elements, got shape %v", op, c, p.Shape()))
		}
	}
	return n, c, hw
}

func normalizeChannel(xs, ys []float32, n, c, hw, ch int, mu, is, g, b float32) {
	for s := 0; s < n; s++ {
		base := (s*c + ch) * hw
		for i := base; i < base+hw; i++ {
			ys[i] = g*(xs[i]-mu)*is + b
		}
	}
}

func invStd(variance, eps float32) float32 {
	return float32(1 / math.Sqrt(float64(variance+eps)))
}
