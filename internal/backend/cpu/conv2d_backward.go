package cpu

import (
	"fmt"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"

	"github.com/born-ml/convbench/internal/parallel"
	"github.com/born-ml/convbench/internal/tensor"
)

// Conv2DInputBackward computes ∂L/∂input for Conv2D.
//
// Per sample: dcol = kernelᵀ @ grad, then col2im scatters dcol back onto the
// input positions each tap was read from.
func (cpu *CPUBackend) Conv2DInputBackward(input, kernel, grad *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	g := newConvGeometry("conv2d_input_backward", input.Shape(), kernel.Shape(), stride, padding)
	checkConvGrad("conv2d_input_backward", grad, g)

	inputGrad := cpu.alloc("conv2d_input_backward", input.Shape())
	dx, dy := inputGrad.AsFloat32(), grad.AsFloat32()
	kernelMat := general(g.cOut, g.patch(), kernel.AsFloat32())

	parallel.Range(g.n, func(start, end int) {
		dcol := make([]float32, g.patch()*g.spatial())
		for n := start; n < end; n++ {
			blas32.Gemm(blas.Trans, blas.NoTrans, 1,
				kernelMat,
				general(g.cOut, g.spatial(), dy[n*g.outSize():(n+1)*g.outSize()]),
				0,
				general(g.patch(), g.spatial(), dcol),
			)
			col2im(dx[n*g.inSize():(n+1)*g.inSize()], dcol, g)
		}
	}, cpu.workers)

	return inputGrad
}

// Conv2DKernelBackward computes ∂L/∂kernel for Conv2D.
//
// Accumulates grad_n @ col_nᵀ over the batch. The accumulation runs in
// sample order on one goroutine.
func (cpu *CPUBackend) Conv2DKernelBackward(input, kernel, grad *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	g := newConvGeometry("conv2d_kernel_backward", input.Shape(), kernel.Shape(), stride, padding)
	checkConvGrad("conv2d_kernel_backward", grad, g)

	kernelGrad := cpu.alloc("conv2d_kernel_backward", kernel.Shape())
	in, dy := input.AsFloat32(), grad.AsFloat32()
	dkMat := general(g.cOut, g.patch(), kernelGrad.AsFloat32())
	col := make([]float32, g.patch()*g.spatial())

	for n := 0; n < g.n; n++ {
		im2col(col, in[n*g.inSize():(n+1)*g.inSize()], g)
		blas32.Gemm(blas.NoTrans, blas.Trans, 1,
			general(g.cOut, g.spatial(), dy[n*g.outSize():(n+1)*g.outSize()]),
			general(g.patch(), g.spatial(), col),
			1,
			dkMat,
		)
	}

	return kernelGrad
}

func checkConvGrad(op string, grad *tensor.RawTensor, g convGeometry) {
	if !grad.Shape().Equal(g.outShape()) {
		panic(fmt.Sprintf("%s: gradient shape %v != output shape %v", op, grad.Shape(), g.outShape()))
	}
}
