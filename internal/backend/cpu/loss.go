package cpu

import (
	"fmt"
	"math"

	"github.com/born-ml/convbench/internal/tensor"
)

// Softmax computes a numerically stable softmax over each row of a 2D tensor.
func (cpu *CPUBackend) Softmax(x *tensor.RawTensor) *tensor.RawTensor {
	rows, cols := dims2D("softmax", x)
	result := cpu.alloc("softmax", x.Shape())
	xs, out := x.AsFloat32(), result.AsFloat32()
	for r := 0; r < rows; r++ {
		softmaxRow(out[r*cols:(r+1)*cols], xs[r*cols:(r+1)*cols])
	}
	return result
}

// Argmax returns the column index of the maximum of each row of a 2D tensor
// as an int32 tensor of shape [rows]. Ties resolve to the lowest index.
func (cpu *CPUBackend) Argmax(x *tensor.RawTensor) *tensor.RawTensor {
	rows, cols := dims2D("argmax", x)
	result, err := tensor.NewRaw(tensor.Shape{rows}, tensor.Int32, cpu.device)
	if err != nil {
		panic(fmt.Sprintf("argmax: failed to create result tensor: %v", err))
	}

	xs, out := x.AsFloat32(), result.AsInt32()
	for r := 0; r < rows; r++ {
		row := xs[r*cols : (r+1)*cols]
		best := 0
		for j := 1; j < cols; j++ {
			if row[j] > row[best] {
				best = j
			}
		}
		out[r] = int32(best)
	}
	return result
}

// CrossEntropy computes the mean negative log-likelihood of targets under
// softmax(logits), using the log-sum-exp trick:
//
//	loss = mean_b( logsumexp(z_b) - z_b[target_b] )
//
// logits: [batch, classes] float32; targets: [batch] int32. Output: [1].
func (cpu *CPUBackend) CrossEntropy(logits, targets *tensor.RawTensor) *tensor.RawTensor {
	batch, classes := checkCrossEntropy("cross_entropy", logits, targets)
	zs, ts := logits.AsFloat32(), targets.AsInt32()

	var total float64
	for b := 0; b < batch; b++ {
		row := zs[b*classes : (b+1)*classes]
		total += logSumExp(row) - float64(row[ts[b]])
	}

	result := cpu.alloc("cross_entropy", tensor.Shape{1})
	result.AsFloat32()[0] = float32(total / float64(batch))
	return result
}

// CrossEntropyBackward computes ∂L/∂logits = grad * (softmax(z) - onehot) / batch.
func (cpu *CPUBackend) CrossEntropyBackward(logits, targets, grad *tensor.RawTensor) *tensor.RawTensor {
	batch, classes := checkCrossEntropy("cross_entropy_backward", logits, targets)
	scale := grad.AsFloat32()[0] / float32(batch)

	result := cpu.alloc("cross_entropy_backward", logits.Shape())
	zs, ts, dz := logits.AsFloat32(), targets.AsInt32(), result.AsFloat32()
	for b := 0; b < batch; b++ {
		row := dz[b*classes : (b+1)*classes]
		softmaxRow(row, zs[b*classes:(b+1)*classes])
		row[ts[b]] -= 1
		for j := range row {
			row[j] *= scale
		}
	}
	return result
}

func checkCrossEntropy(op string, logits, targets *tensor.RawTensor) (batch, classes int) {
	batch, classes = dims2D(op, logits)
	if len(targets.Shape()) != 1 || targets.Shape()[0] != batch {
		panic(fmt.Sprintf("%s: targets shape %v does not match batch size %d", op, targets.Shape(), batch))
	}
	for i, t := range targets.AsInt32() {
		if t < 0 || int(t) >= classes {
			panic(fmt.Sprintf("%s: target %d at index %d out of range [0, %d)", op, t, i, classes))
		}
	}
	return batch, classes
}

func dims2D(op string, x *tensor.RawTensor) (rows, cols int) {
	shape := x.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("%s: expected 2D tensor, got shape %v", op, shape))
	}
	return shape[0], shape[1]
}

func softmaxRow(dst, src []float32) {
	maxVal := src[0]
	for _, v := range src[1:] {
		if v > maxVal {
			maxVal = v
		}
	}

	var sum float64
	for j, v := range src {
		e := math.Exp(float64(v - maxVal))
		dst[j] = float32(e)
		sum += e
	}
	for j := range dst {
		dst[j] = float32(float64(dst[j]) / sum)
	}
}

func logSumExp(row []float32) float64 {
	maxVal := row[0]
	for _, v := range row[1:] {
		if v > maxVal {
			maxVal = v
		}
	}
	var sum float64
	for _, v := range row {
		sum += math.Exp(float64(v - maxVal))
	}
	return float64(maxVal) + math.Log(sum)
}
