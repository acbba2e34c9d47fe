package topology

import (
	"strings"

	"github.com/pkg/errors"
)

// Names of the fixed topologies.
const (
	PlainDeepName = "plain-deep"
	PlainWideName = "plain-wide"
	ResidualName  = "residual"
	BranchingName = "branching"
)

// ImageChannels is the number of input channels of every fixed topology.
const ImageChannels = 3

func conv(in, out, kernel int) UnitSpec {
	return UnitSpec{Kind: KindConv, In: in, Out: out, Kernel: kernel, Padding: (kernel - 1) / 2, Activation: true}
}

func residual(channels int) UnitSpec {
	return UnitSpec{Kind: KindResidual, In: channels, Out: channels, Kernel: 3, Padding: 1}
}

func branch(channels int) UnitSpec {
	return UnitSpec{
		Kind: KindBranch, In: channels, Out: channels,
		Kernel: 3, Padding: 1,
		AltKernel: 5, AltPadding: 2,
	}
}

// PlainDeep is ten ConvUnits: a 5x5 stem followed by 3x3 units, with the
// channel count doubling from 16 to 32 to 64.
func PlainDeep() Spec {
	return Spec{
		Name: PlainDeepName,
		Units: []UnitSpec{
			conv(ImageChannels, 16, 5),
			conv(16, 16, 3),
			conv(16, 16, 3),
			conv(16, 32, 3),
			conv(32, 32, 3),
			conv(32, 32, 3),
			conv(32, 64, 3),
			conv(64, 64, 3),
			conv(64, 64, 3),
			conv(64, 64, 3),
		},
	}
}

// PlainWide is seven ConvUnits alternating 3x3 and 5x5 kernels over the same
// 16-32-64 channel progression.
func PlainWide() Spec {
	return Spec{
		Name: PlainWideName,
		Units: []UnitSpec{
			conv(ImageChannels, 16, 3),
			conv(16, 16, 5),
			conv(16, 32, 3),
			conv(32, 32, 5),
			conv(32, 64, 3),
			conv(64, 64, 5),
			conv(64, 64, 3),
		},
	}
}

// Residual follows each channel-changing ConvUnit with a ResidualUnit.
func Residual() Spec {
	return Spec{
		Name: ResidualName,
		Units: []UnitSpec{
			conv(ImageChannels, 16, 5),
			residual(16),
			conv(16, 32, 3),
			residual(32),
			conv(32, 64, 3),
			residual(64),
		},
	}
}

// Branching follows each channel-changing ConvUnit with a BranchUnit
// (3x3 pair against a single 5x5).
func Branching() Spec {
	return Spec{
		Name: BranchingName,
		Units: []UnitSpec{
			conv(ImageChannels, 16, 5),
			branch(16),
			conv(16, 32, 3),
			branch(32),
			conv(32, 64, 3),
			branch(64),
		},
	}
}

// All returns the four fixed topologies in comparison order.
func All() []Spec {
	return []Spec{PlainDeep(), PlainWide(), Residual(), Branching()}
}

// ByName looks up fixed topologies by name. An empty list selects all.
func ByName(names ...string) ([]Spec, error) {
	if len(names) == 0 {
		return All(), nil
	}

	known := make(map[string]Spec)
	var valid []string
	for _, s := range All() {
		known[s.Name] = s
		valid = append(valid, s.Name)
	}

	specs := make([]Spec, 0, len(names))
	for _, name := range names {
		s, ok := known[strings.TrimSpace(name)]
		if !ok {
			return nil, errors.Errorf("unknown topology %q (valid: %s)", name, strings.Join(valid, ", "))
		}
		specs = append(specs, s)
	}
	return specs, nil
}
