package cpu

import (
	"fmt"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"

	"github.com/born-ml/convbench/internal/tensor"
)

// MatMul performs 2D matrix multiplication: [M, K] @ [K, N] → [M, N].
func (cpu *CPUBackend) MatMul(a, b *tensor.RawTensor) *tensor.RawTensor {
	aShape, bShape := a.Shape(), b.Shape()
	if len(aShape) != 2 || len(bShape) != 2 {
		panic(fmt.Sprintf("matmul: expected 2D operands, got %v and %v", aShape, bShape))
	}
	if aShape[1] != bShape[0] {
		panic(fmt.Sprintf("matmul: inner dimensions differ: %v @ %v", aShape, bShape))
	}

	m, k, n := aShape[0], aShape[1], bShape[1]
	result := cpu.alloc("matmul", tensor.Shape{m, n})

	blas32.Gemm(blas.NoTrans, blas.NoTrans, 1,
		general(m, k, a.AsFloat32()),
		general(k, n, b.AsFloat32()),
		0,
		general(m, n, result.AsFloat32()),
	)

	return result
}

// general wraps a dense row-major slice as a BLAS matrix.
func general(rows, cols int, data []float32) blas32.General {
	return blas32.General{Rows: rows, Cols: cols, Stride: cols, Data: data}
}
