// Package cpu implements the CPU backend in pure Go, using gonum BLAS for
// matrix products.
package cpu

import (
	"fmt"

	"github.com/born-ml/convbench/internal/parallel"
	"github.com/born-ml/convbench/internal/tensor"
)

// CPUBackend implements tensor operations on CPU.
//
// All operations work on float32 data except Argmax (int32 output) and the
// int32 targets consumed by CrossEntropy.
//
// Per-sample convolution and per-channel normalization loops are split
// across goroutines according to the backend's parallel.Config. Each
// output element is computed by exactly one goroutine, so results do not
// depend on the worker count.
type CPUBackend struct {
	device  tensor.Device
	workers parallel.Config
}

var _ tensor.Backend = (*CPUBackend)(nil)

// New creates a new CPU backend.
func New() *CPUBackend {
	return &CPUBackend{
		device:  tensor.CPU,
		workers: parallel.DefaultConfig(),
	}
}

// SetParallel replaces the parallel execution settings.
func (cpu *CPUBackend) SetParallel(cfg parallel.Config) {
	cpu.workers = cfg
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// Device returns the compute device.
func (cpu *CPUBackend) Device() tensor.Device {
	return cpu.device
}

// Add performs element-wise addition with NumPy-style broadcasting.
func (cpu *CPUBackend) Add(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("add", a, b, func(x, y float32) float32 { return x + y })
}

// Mul performs element-wise multiplication with NumPy-style broadcasting.
func (cpu *CPUBackend) Mul(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("mul", a, b, func(x, y float32) float32 { return x * y })
}

// binary applies f element-wise, broadcasting a and b to a common shape.
func (cpu *CPUBackend) binary(name string, a, b *tensor.RawTensor, f func(x, y float32) float32) *tensor.RawTensor {
	outShape, needsBroadcast, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(fmt.Sprintf("%s: %v", name, err))
	}

	result := cpu.alloc(name, outShape)
	aData, bData, out := a.AsFloat32(), b.AsFloat32(), result.AsFloat32()

	if !needsBroadcast {
		for i := range out {
			out[i] = f(aData[i], bData[i])
		}
		return result
	}

	aStrides := tensor.BroadcastStrides(a.Shape(), outShape)
	bStrides := tensor.BroadcastStrides(b.Shape(), outShape)
	forEachIndex(outShape, aStrides, bStrides, func(i, aOff, bOff int) {
		out[i] = f(aData[aOff], bData[bOff])
	})

	return result
}

// SumTo reduces x by summation to the given shape.
//
// shape must broadcast to x's shape; this undoes broadcasting when
// propagating gradients to a smaller operand.
func (cpu *CPUBackend) SumTo(x *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	if x.Shape().Equal(shape) {
		return x.Clone()
	}

	full, _, err := tensor.BroadcastShapes(shape, x.Shape())
	if err != nil || !full.Equal(x.Shape()) {
		panic(fmt.Sprintf("sum_to: cannot reduce %v to %v", x.Shape(), shape))
	}

	result := cpu.alloc("sum_to", shape)
	xData, out := x.AsFloat32(), result.AsFloat32()

	// Walk x in order; the second stride set is unused.
	targetStrides := tensor.BroadcastStrides(shape, x.Shape())
	forEachIndex(x.Shape(), targetStrides, targetStrides, func(i, off, _ int) {
		out[off] += xData[i]
	})

	return result
}

// ReLU computes max(0, x) element-wise.
func (cpu *CPUBackend) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	result := cpu.alloc("relu", x.Shape())
	out := result.AsFloat32()
	for i, v := range x.AsFloat32() {
		if v > 0 {
			out[i] = v
		}
	}
	return result
}

// Reshape returns a view of t with a new shape.
func (cpu *CPUBackend) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	view, err := t.Reshape(newShape)
	if err != nil {
		panic(fmt.Sprintf("reshape: %v", err))
	}
	return view
}

// Transpose swaps rows and columns of a 2D tensor.
func (cpu *CPUBackend) Transpose(t *tensor.RawTensor) *tensor.RawTensor {
	shape := t.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("transpose: expected 2D tensor, got shape %v", shape))
	}
	rows, cols := shape[0], shape[1]

	result := cpu.alloc("transpose", tensor.Shape{cols, rows})
	src, dst := t.AsFloat32(), result.AsFloat32()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			dst[j*rows+i] = src[i*cols+j]
		}
	}
	return result
}

// alloc creates a zeroed float32 tensor, panicking with the op name on failure.
func (cpu *CPUBackend) alloc(op string, shape tensor.Shape) *tensor.RawTensor {
	r, err := tensor.NewRaw(shape, tensor.Float32, cpu.device)
	if err != nil {
		panic(fmt.Sprintf("%s: failed to create result tensor: %v", op, err))
	}
	return r
}

// forEachIndex walks shape in row-major order, calling fn with the flat
// index and the matching offsets under two stride sets.
func forEachIndex(shape tensor.Shape, aStrides, bStrides []int, fn func(i, aOff, bOff int)) {
	n := shape.NumElements()
	index := make([]int, len(shape))
	aOff, bOff := 0, 0

	for i := 0; i < n; i++ {
		fn(i, aOff, bOff)

		for d := len(shape) - 1; d >= 0; d-- {
			index[d]++
			aOff += aStrides[d]
			bOff += bStrides[d]
			if index[d] < shape[d] {
				break
			}
			aOff -= aStrides[d] * shape[d]
			bOff -= bStrides[d] * shape[d]
			index[d] = 0
		}
	}
}
