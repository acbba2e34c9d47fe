package nn

import (
	"fmt"

	"golang.org/x/exp/rand"

	"github.com/born-ml/convbench/internal/tensor"
)

// BranchUnit sums two parallel paths computed from the same input:
//
//	A = BN(Conv_k1(ReLU(BN(Conv_k1(x)))))
//	B = BN(Conv_k2(x))
//	y = ReLU(A + B)
//
// Path A stacks two small kernels; path B covers a similar receptive field
// with one wider kernel. Both paths must produce the same spatial size,
// which holds when each (kernel, padding) pair preserves it.
type BranchUnit[B tensor.Backend] struct {
	pathA *Sequential[B]
	pathB *ConvUnit[B]
}

// NewBranchUnit creates a BranchUnit mapping in to out channels.
//
// Panics unless both (k1, p1) and (k2, p2) preserve spatial size.
func NewBranchUnit[B tensor.Backend](in, out, k1, p1, k2, p2 int, rng *rand.Rand, backend B) *BranchUnit[B] {
	if !samePadding(k1, p1) || !samePadding(k2, p2) {
		panic(fmt.Sprintf("branch unit: paths (kernel %d, padding %d) and (kernel %d, padding %d) produce different spatial sizes",
			k1, p1, k2, p2))
	}
	return &BranchUnit[B]{
		pathA: NewSequential[B](
			NewConvUnit(in, out, k1, p1, true, rng, backend),
			NewConvUnit(out, out, k1, p1, false, rng, backend),
		),
		pathB: NewConvUnit(in, out, k2, p2, false, rng, backend),
	}
}

// Forward applies the unit.
func (u *BranchUnit[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	a := u.pathA.Forward(input)
	b := u.pathB.Forward(input)
	return a.Add(b).ReLU()
}

// Parameters returns the parameters of path A followed by path B.
func (u *BranchUnit[B]) Parameters() []*Parameter[B] {
	return append(u.pathA.Parameters(), u.pathB.Parameters()...)
}

// SetTraining propagates the mode to both paths.
func (u *BranchUnit[B]) SetTraining(training bool) {
	u.pathA.SetTraining(training)
	u.pathB.SetTraining(training)
}

// PathA returns the two-ConvUnit path.
func (u *BranchUnit[B]) PathA() Module[B] {
	return u.pathA
}

// PathB returns the single wide-kernel path.
func (u *BranchUnit[B]) PathB() Module[B] {
	return u.pathB
}

// String returns a string representation of the unit.
func (u *BranchUnit[B]) String() string {
	a := u.pathA.Module(0).(*ConvUnit[B]).Conv()
	b := u.pathB.Conv()
	return fmt.Sprintf("BranchUnit(%d -> %d, kernels=%d/%d)",
		a.InChannels(), a.OutChannels(), a.KernelSize()[0], b.KernelSize()[0])
}
