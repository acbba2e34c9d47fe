package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"

	"github.com/born-ml/convbench/internal/tensor"
)

// naiveConv2D is a direct 7-loop convolution used as a reference.
func naiveConv2D(in []float32, n, cIn, h, w int, k []float32, cOut, kh, kw, stride, padding int) []float32 {
	hOut := (h+2*padding-kh)/stride + 1
	wOut := (w+2*padding-kw)/stride + 1
	out := make([]float32, n*cOut*hOut*wOut)
	for b := 0; b < n; b++ {
		for co := 0; co < cOut; co++ {
			for oh := 0; oh < hOut; oh++ {
				for ow := 0; ow < wOut; ow++ {
					var sum float32
					for ci := 0; ci < cIn; ci++ {
						for i := 0; i < kh; i++ {
							for j := 0; j < kw; j++ {
								ih, iw := oh*stride-padding+i, ow*stride-padding+j
								if ih < 0 || ih >= h || iw < 0 || iw >= w {
									continue
								}
								sum += in[((b*cIn+ci)*h+ih)*w+iw] * k[((co*cIn+ci)*kh+i)*kw+j]
							}
						}
					}
					out[((b*cOut+co)*hOut+oh)*wOut+ow] = sum
				}
			}
		}
	}
	return out
}

func TestConv2D_KnownValues(t *testing.T) {
	backend := New()
	// 1x1x3x3 input, 1x1x2x2 kernel of ones, no padding.
	input := raw(t, tensor.Shape{1, 1, 3, 3}, 1, 2, 3, 4, 5, 6, 7, 8, 9)
	kernel := raw(t, tensor.Shape{1, 1, 2, 2}, 1, 1, 1, 1)

	out := backend.Conv2D(input, kernel, 1, 0)

	assert.Equal(t, tensor.Shape{1, 1, 2, 2}, out.Shape())
	assert.Equal(t, []float32{12, 16, 24, 28}, out.AsFloat32())
}

func TestConv2D_MatchesNaive(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	backend := New()

	cases := []struct {
		name                          string
		n, cIn, h, w, cOut, k, s, pad int
	}{
		{"same_k3", 2, 3, 6, 6, 4, 3, 1, 1},
		{"same_k5", 1, 2, 7, 5, 3, 5, 1, 2},
		{"valid_k1", 2, 4, 4, 4, 2, 1, 1, 0},
		{"strided", 1, 2, 8, 8, 2, 3, 2, 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := randomRaw(t, rng, tensor.Shape{tc.n, tc.cIn, tc.h, tc.w})
			kernel := randomRaw(t, rng, tensor.Shape{tc.cOut, tc.cIn, tc.k, tc.k})

			out := backend.Conv2D(input, kernel, tc.s, tc.pad)
			want := naiveConv2D(input.AsFloat32(), tc.n, tc.cIn, tc.h, tc.w,
				kernel.AsFloat32(), tc.cOut, tc.k, tc.k, tc.s, tc.pad)

			require.Len(t, out.AsFloat32(), len(want))
			assert.InDeltaSlice(t, want, out.AsFloat32(), 1e-4)
		})
	}
}

func TestConv2D_SamePaddingKeepsSpatialSize(t *testing.T) {
	backend := New()
	for _, k := range []int{1, 3, 5} {
		input := raw(t, tensor.Shape{2, 3, 8, 8})
		kernel := raw(t, tensor.Shape{5, 3, k, k})
		out := backend.Conv2D(input, kernel, 1, (k-1)/2)
		assert.Equal(t, tensor.Shape{2, 5, 8, 8}, out.Shape(), "kernel %d", k)
	}
}

func TestConv2D_ChannelMismatchPanics(t *testing.T) {
	backend := New()
	assert.Panics(t, func() {
		backend.Conv2D(raw(t, tensor.Shape{1, 3, 4, 4}), raw(t, tensor.Shape{2, 2, 3, 3}), 1, 1)
	})
}

// The backward kernels are checked through the adjoint identity:
// <conv(x, k), dy> == <x, dX(dy)> == <k, dK(dy)>, since conv is bilinear.
func TestConv2DBackward_AdjointIdentity(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	backend := New()

	for _, tc := range []struct{ stride, padding int }{{1, 1}, {1, 0}, {2, 1}} {
		input := randomRaw(t, rng, tensor.Shape{2, 3, 5, 5})
		kernel := randomRaw(t, rng, tensor.Shape{4, 3, 3, 3})
		out := backend.Conv2D(input, kernel, tc.stride, tc.padding)
		grad := randomRaw(t, rng, out.Shape())

		dx := backend.Conv2DInputBackward(input, kernel, grad, tc.stride, tc.padding)
		dk := backend.Conv2DKernelBackward(input, kernel, grad, tc.stride, tc.padding)
		require.Equal(t, input.Shape(), dx.Shape())
		require.Equal(t, kernel.Shape(), dk.Shape())

		lhs := dot(out.AsFloat32(), grad.AsFloat32())
		assert.InDelta(t, lhs, dot(input.AsFloat32(), dx.AsFloat32()), 1e-3)
		assert.InDelta(t, lhs, dot(kernel.AsFloat32(), dk.AsFloat32()), 1e-3)
	}
}

func TestConv2DBackward_GradShapeMismatchPanics(t *testing.T) {
	backend := New()
	input := raw(t, tensor.Shape{1, 1, 4, 4})
	kernel := raw(t, tensor.Shape{1, 1, 3, 3})
	assert.Panics(t, func() {
		backend.Conv2DInputBackward(input, kernel, raw(t, tensor.Shape{1, 1, 4, 4}), 1, 0)
	})
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
