package cpu

import (
	"fmt"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"

	"github.com/born-ml/convbench/internal/parallel"
	"github.com/born-ml/convbench/internal/tensor"
)

// convGeometry holds the dimensions of one Conv2D call.
type convGeometry struct {
	n, cIn, h, w    int
	cOut, kh, kw    int
	hOut, wOut      int
	stride, padding int
}

func newConvGeometry(op string, input, kernel tensor.Shape, stride, padding int) convGeometry {
	if len(input) != 4 {
		panic(fmt.Sprintf("%s: input must be 4D [N,C,H,W], got %dD", op, len(input)))
	}
	if len(kernel) != 4 {
		panic(fmt.Sprintf("%s: kernel must be 4D [C_out,C_in,K_h,K_w], got %dD", op, len(kernel)))
	}
	if input[1] != kernel[1] {
		panic(fmt.Sprintf("%s: input channels %d != kernel channels %d", op, input[1], kernel[1]))
	}
	if stride <= 0 || padding < 0 {
		panic(fmt.Sprintf("%s: invalid stride=%d padding=%d", op, stride, padding))
	}

	g := convGeometry{
		n: input[0], cIn: input[1], h: input[2], w: input[3],
		cOut: kernel[0], kh: kernel[2], kw: kernel[3],
		stride: stride, padding: padding,
	}
	g.hOut = (g.h+2*padding-g.kh)/stride + 1
	g.wOut = (g.w+2*padding-g.kw)/stride + 1
	if g.hOut <= 0 || g.wOut <= 0 {
		panic(fmt.Sprintf("%s: invalid output dimensions: out_h=%d, out_w=%d (check stride/padding)", op, g.hOut, g.wOut))
	}
	return g
}

// patch is the im2col row count: one row per (c_in, kh, kw) tap.
func (g convGeometry) patch() int { return g.cIn * g.kh * g.kw }

// spatial is the number of output positions per channel.
func (g convGeometry) spatial() int { return g.hOut * g.wOut }

func (g convGeometry) inSize() int  { return g.cIn * g.h * g.w }
func (g convGeometry) outSize() int { return g.cOut * g.spatial() }

func (g convGeometry) outShape() tensor.Shape {
	return tensor.Shape{g.n, g.cOut, g.hOut, g.wOut}
}

// Conv2D performs 2D convolution using im2col and a BLAS GEMM per sample.
//
// Input shape:  [batch, in_channels, height, width]
// Kernel shape: [out_channels, in_channels, kernel_h, kernel_w]
// Output shape: [batch, out_channels, out_h, out_w]
//
// For each sample the input patches are unrolled into a [C_in*K_h*K_w, H_out*W_out]
// column matrix, so the output channel block is kernel @ col, already laid out
// as [C_out, H_out, W_out].
func (cpu *CPUBackend) Conv2D(input, kernel *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	g := newConvGeometry("conv2d", input.Shape(), kernel.Shape(), stride, padding)
	output := cpu.alloc("conv2d", g.outShape())

	in, out := input.AsFloat32(), output.AsFloat32()
	kernelMat := general(g.cOut, g.patch(), kernel.AsFloat32())

	parallel.Range(g.n, func(start, end int) {
		col := make([]float32, g.patch()*g.spatial())
		for n := start; n < end; n++ {
			im2col(col, in[n*g.inSize():(n+1)*g.inSize()], g)
			blas32.Gemm(blas.NoTrans, blas.NoTrans, 1,
				kernelMat,
				general(g.patch(), g.spatial(), col),
				0,
				general(g.cOut, g.spatial(), out[n*g.outSize():(n+1)*g.outSize()]),
			)
		}
	}, cpu.workers)

	return output
}

// im2col unrolls one sample [C_in, H, W] into col [C_in*K_h*K_w, H_out*W_out].
// Taps that fall into the zero padding are written as 0.
func im2col(col, img []float32, g convGeometry) {
	spatial := g.spatial()
	for c := 0; c < g.cIn; c++ {
		for ki := 0; ki < g.kh; ki++ {
			for kj := 0; kj < g.kw; kj++ {
				row := col[((c*g.kh+ki)*g.kw+kj)*spatial:]
				for oh := 0; oh < g.hOut; oh++ {
					ih := oh*g.stride - g.padding + ki
					for ow := 0; ow < g.wOut; ow++ {
						iw := ow*g.stride - g.padding + kj
						idx := oh*g.wOut + ow
						if ih < 0 || ih >= g.h || iw < 0 || iw >= g.w {
							row[idx] = 0
							continue
						}
						row[idx] = img[(c*g.h+ih)*g.w+iw]
					}
				}
			}
		}
	}
}

// col2im is the adjoint of im2col: it accumulates col back into img.
func col2im(img, col []float32, g convGeometry) {
	spatial := g.spatial()
	for c := 0; c < g.cIn; c++ {
		for ki := 0; ki < g.kh; ki++ {
			for kj := 0; kj < g.kw; kj++ {
				row := col[((c*g.kh+ki)*g.kw+kj)*spatial:]
				for oh := 0; oh < g.hOut; oh++ {
					ih := oh*g.stride - g.padding + ki
					if ih < 0 || ih >= g.h {
						continue
					}
					for ow := 0; ow < g.wOut; ow++ {
						iw := ow*g.stride - g.padding + kj
						if iw < 0 || iw >= g.w {
							continue
						}
						img[(c*g.h+ih)*g.w+iw] += row[oh*g.wOut+ow]
					}
				}
			}
		}
	}
}
