package cpu

import (
	"fmt"

	"github.com/born-ml/convbench/internal/parallel"
	"github.com/born-ml/convbench/internal/tensor"
)

// GlobalAvgPool2D averages every channel over its spatial extent:
// [N, C, H, W] → [N, C, 1, 1].
func (cpu *CPUBackend) GlobalAvgPool2D(x *tensor.RawTensor) *tensor.RawTensor {
	shape := x.Shape()
	if len(shape) != 4 {
		panic(fmt.Sprintf("global_avg_pool2d: expected 4D input [N,C,H,W], got shape %v", shape))
	}
	nc, hw := shape[0]*shape[1], shape[2]*shape[3]

	result := cpu.alloc("global_avg_pool2d", tensor.Shape{shape[0], shape[1], 1, 1})
	xs, out := x.AsFloat32(), result.AsFloat32()
	parallel.For(nc, func(i int) {
		var sum float32
		for _, v := range xs[i*hw : (i+1)*hw] {
			sum += v
		}
		out[i] = sum / float32(hw)
	}, cpu.workers.WithMinChunk(64))
	return result
}

// GlobalAvgPool2DBackward spreads each pooled gradient evenly over the
// H*W positions it averaged.
func (cpu *CPUBackend) GlobalAvgPool2DBackward(x, grad *tensor.RawTensor) *tensor.RawTensor {
	shape := x.Shape()
	if len(shape) != 4 {
		panic(fmt.Sprintf("global_avg_pool2d_backward: expected 4D input, got shape %v", shape))
	}
	nc, hw := shape[0]*shape[1], shape[2]*shape[3]
	if grad.NumElements() != nc {
		panic(fmt.Sprintf("global_avg_pool2d_backward: gradient shape %v does not match %v", grad.Shape(), shape))
	}

	result := cpu.alloc("global_avg_pool2d_backward", shape)
	dy, dx := grad.AsFloat32(), result.AsFloat32()
	for i := 0; i < nc; i++ {
		v := dy[i] / float32(hw)
		for j := i * hw; j < (i+1)*hw; j++ {
			dx[j] = v
		}
	}
	return result
}
