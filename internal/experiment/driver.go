package experiment

import (
	"github.com/pkg/errors"

	"github.com/born-ml/convbench/internal/autodiff"
	"github.com/born-ml/convbench/internal/backend/cpu"
	"github.com/born-ml/convbench/internal/dataset"
	"github.com/born-ml/convbench/internal/nn"
	"github.com/born-ml/convbench/internal/topology"
)

// Data is the train/validation split every topology is run on.
type Data struct {
	Train *dataset.Dataset
	Valid *dataset.Dataset
}

// NewCPUBackend returns a fresh autodiff backend over the CPU backend.
func NewCPUBackend() *autodiff.AutodiffBackend[*cpu.CPUBackend] {
	return autodiff.New(cpu.New())
}

// RunAll runs every topology in specs once, in order, and collects the
// histories in a Table.
//
// Each topology gets its own backend from newBackend, parameters
// initialized from cfg.Seed, a fresh optimizer with the shared learning
// rate and the same training order. The first failure stops the driver;
// the table then holds the topologies completed so far.
func RunAll[B autodiff.BackwardCapable](
	specs []topology.Spec,
	cfg Config,
	data Data,
	newBackend func() B,
	reporter Reporter,
) (*Table, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config")
	}
	if len(specs) == 0 {
		return nil, errors.New("no topologies to run")
	}
	if data.Train == nil || data.Valid == nil {
		return nil, errors.New("missing training or validation data")
	}
	for _, d := range []*dataset.Dataset{data.Train, data.Valid} {
		if d.NumClasses > cfg.NumClasses {
			return nil, errors.Errorf("dataset has %d classes, network predicts %d", d.NumClasses, cfg.NumClasses)
		}
	}

	table := NewTable()
	for _, spec := range specs {
		history, err := runTopology(spec, cfg, data, newBackend(), reporter)
		if err != nil {
			return table, err
		}
		table.Add(spec.Name, history)
	}
	return table, nil
}

func runTopology[B autodiff.BackwardCapable](
	spec topology.Spec,
	cfg Config,
	data Data,
	backend B,
	reporter Reporter,
) (History, error) {
	network, err := topology.Build(spec, cfg.NumClasses, nn.NewRNG(cfg.Seed), backend)
	if err != nil {
		return nil, errors.Wrap(err, "build")
	}

	optimizer, err := NewOptimizer(cfg, network.Parameters(), backend)
	if err != nil {
		return nil, err
	}

	train, err := dataset.NewLoader(data.Train, cfg.BatchSize, true, cfg.Seed, backend)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: training data", spec.Name)
	}
	valid, err := dataset.NewLoader(data.Valid, cfg.BatchSize, false, cfg.Seed, backend)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: validation data", spec.Name)
	}

	return Run[B](network, optimizer, train, valid, backend, cfg, reporter)
}
