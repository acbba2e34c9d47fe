// Package topology describes the compared network architectures as data and
// builds them into trainable networks.
//
// A Spec is an ordered list of UnitSpecs; Build validates it and turns it
// into a Network made of nn units followed by the classification head
// (global average pool, flatten, linear).
package topology

import (
	"fmt"

	"github.com/pkg/errors"
)

// UnitKind selects the block a UnitSpec builds.
type UnitKind int

const (
	// KindConv is a single nn.ConvUnit.
	KindConv UnitKind = iota
	// KindResidual is an nn.ResidualUnit (In must equal Out).
	KindResidual
	// KindBranch is an nn.BranchUnit with kernels Kernel and AltKernel.
	KindBranch
)

func (k UnitKind) String() string {
	switch k {
	case KindConv:
		return "conv"
	case KindResidual:
		return "residual"
	case KindBranch:
		return "branch"
	default:
		return fmt.Sprintf("UnitKind(%d)", int(k))
	}
}

// UnitSpec describes one unit of a topology.
type UnitSpec struct {
	Kind    UnitKind
	In      int
	Out     int
	Kernel  int
	Padding int

	// AltKernel and AltPadding configure the single-ConvUnit path of a
	// Branch unit.
	AltKernel  int
	AltPadding int

	// Activation applies to Conv units; Residual and Branch units always end
	// with ReLU.
	Activation bool
}

// Spec is a named, ordered list of units.
type Spec struct {
	Name  string
	Units []UnitSpec
}

// InChannels returns the number of channels the first unit expects.
func (s Spec) InChannels() int {
	if len(s.Units) == 0 {
		return 0
	}
	return s.Units[0].In
}

// OutChannels returns the number of channels the last unit produces.
func (s Spec) OutChannels() int {
	if len(s.Units) == 0 {
		return 0
	}
	return s.Units[len(s.Units)-1].Out
}

// Validate checks channel chaining and that every summed unit keeps its
// spatial size, so shape problems surface before any weight is allocated.
func (s Spec) Validate() error {
	if s.Name == "" {
		return errors.New("topology has no name")
	}
	if len(s.Units) == 0 {
		return errors.Errorf("topology %q has no units", s.Name)
	}

	for i, u := range s.Units {
		if err := u.validate(); err != nil {
			return errors.Wrapf(err, "topology %q unit %d (%s)", s.Name, i, u.Kind)
		}
		if i > 0 && u.In != s.Units[i-1].Out {
			return errors.Errorf("topology %q unit %d (%s): expects %d input channels, previous unit produces %d",
				s.Name, i, u.Kind, u.In, s.Units[i-1].Out)
		}
	}
	return nil
}

func (u UnitSpec) validate() error {
	if u.In <= 0 || u.Out <= 0 {
		return errors.Errorf("invalid channels %d -> %d", u.In, u.Out)
	}
	if u.Kernel <= 0 || u.Padding < 0 {
		return errors.Errorf("invalid kernel %d / padding %d", u.Kernel, u.Padding)
	}

	switch u.Kind {
	case KindConv:
		return nil
	case KindResidual:
		if u.In != u.Out {
			return errors.Errorf("skip connection needs equal channels, got %d -> %d", u.In, u.Out)
		}
		if !preservesSize(u.Kernel, u.Padding) {
			return errors.Errorf("kernel %d with padding %d changes the spatial size of the summed path", u.Kernel, u.Padding)
		}
		return nil
	case KindBranch:
		if u.AltKernel <= 0 || u.AltPadding < 0 {
			return errors.Errorf("invalid alternate kernel %d / padding %d", u.AltKernel, u.AltPadding)
		}
		if !preservesSize(u.Kernel, u.Padding) || !preservesSize(u.AltKernel, u.AltPadding) {
			return errors.Errorf("paths (kernel %d, padding %d) and (kernel %d, padding %d) produce different spatial sizes",
				u.Kernel, u.Padding, u.AltKernel, u.AltPadding)
		}
		return nil
	default:
		return errors.Errorf("unknown unit kind %d", int(u.Kind))
	}
}

// preservesSize reports whether a stride-1 convolution keeps H and W.
func preservesSize(kernel, padding int) bool {
	return 2*padding == kernel-1
}
