package topology

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"

	"github.com/born-ml/convbench/internal/nn"
	"github.com/born-ml/convbench/internal/tensor"
)

// Network is a built topology: its units followed by the classification
// head. It owns all of its parameters.
type Network[B tensor.Backend] struct {
	name       string
	numClasses int
	features   int
	units      []nn.Module[B]
	head       *nn.Sequential[B]
}

// Build validates spec and constructs its network for numClasses outputs.
//
// All weights are drawn from rng in unit order, so the same spec built from
// equally seeded sources gives identical networks.
func Build[B tensor.Backend](spec Spec, numClasses int, rng *rand.Rand, backend B) (*Network[B], error) {
	if numClasses < 2 {
		return nil, errors.Errorf("topology %q: need at least 2 classes, got %d", spec.Name, numClasses)
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	units := make([]nn.Module[B], 0, len(spec.Units))
	for _, u := range spec.Units {
		units = append(units, buildUnit(u, rng, backend))
	}

	head := nn.NewSequential[B](
		nn.NewGlobalAvgPool2D(backend),
		nn.NewFlatten[B](),
		nn.NewLinear(spec.OutChannels(), numClasses, rng, backend),
	)

	return &Network[B]{
		name:       spec.Name,
		numClasses: numClasses,
		features:   spec.OutChannels(),
		units:      units,
		head:       head,
	}, nil
}

func buildUnit[B tensor.Backend](u UnitSpec, rng *rand.Rand, backend B) nn.Module[B] {
	switch u.Kind {
	case KindResidual:
		return nn.NewResidualUnit(u.In, u.Kernel, u.Padding, rng, backend)
	case KindBranch:
		return nn.NewBranchUnit(u.In, u.Out, u.Kernel, u.Padding, u.AltKernel, u.AltPadding, rng, backend)
	default:
		return nn.NewConvUnit(u.In, u.Out, u.Kernel, u.Padding, u.Activation, rng, backend)
	}
}

// Forward maps images [N, C, H, W] to logits [N, numClasses].
func (n *Network[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	output := input
	for _, unit := range n.units {
		output = unit.Forward(output)
	}
	return n.head.Forward(output)
}

// Parameters returns the parameters of every unit followed by the head's.
func (n *Network[B]) Parameters() []*nn.Parameter[B] {
	var params []*nn.Parameter[B]
	for _, unit := range n.units {
		params = append(params, unit.Parameters()...)
	}
	return append(params, n.head.Parameters()...)
}

// SetTraining switches every batch normalization layer between batch and
// running statistics.
func (n *Network[B]) SetTraining(training bool) {
	for _, unit := range n.units {
		nn.SetTraining(unit, training)
	}
	n.head.SetTraining(training)
}

// Name returns the topology name.
func (n *Network[B]) Name() string {
	return n.name
}

// NumClasses returns the width of the output layer.
func (n *Network[B]) NumClasses() int {
	return n.numClasses
}

// Units returns the body of the network, without the head.
func (n *Network[B]) Units() []nn.Module[B] {
	return n.units
}

// NumParameters returns the number of scalar parameters.
func (n *Network[B]) NumParameters() int {
	return nn.NumParameters[B](n)
}

// String lists the units and the head.
func (n *Network[B]) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (%d parameters)\n", n.name, n.NumParameters())
	for i, unit := range n.units {
		fmt.Fprintf(&sb, "  (%d): %v\n", i, unit)
	}
	fmt.Fprintf(&sb, "  head: GlobalAvgPool2D -> Flatten -> Linear(%d, %d)", n.features, n.numClasses)
	return sb.String()
}
