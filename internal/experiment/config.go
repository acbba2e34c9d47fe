// Package experiment trains and evaluates topologies side by side and
// collects their per-epoch metrics.
package experiment

import (
	"github.com/pkg/errors"

	"github.com/born-ml/convbench/internal/nn"
	"github.com/born-ml/convbench/internal/optim"
	"github.com/born-ml/convbench/internal/tensor"
)

// Optimizer names accepted by Config.Optimizer.
const (
	OptimizerSGD  = "sgd"
	OptimizerAdam = "adam"
)

// Config holds the scalar settings shared by every topology run.
type Config struct {
	BatchSize    int
	LearningRate float32
	Epochs       int
	NumClasses   int
	Seed         uint64  // parameter init and training shuffle
	Optimizer    string  // OptimizerSGD or OptimizerAdam
	Momentum     float32 // SGD only
}

// DefaultConfig returns the settings used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		BatchSize:    64,
		LearningRate: 0.001,
		Epochs:       10,
		NumClasses:   10,
		Seed:         42,
		Optimizer:    OptimizerAdam,
		Momentum:     0.9,
	}
}

// Validate rejects unusable settings.
func (c Config) Validate() error {
	switch {
	case c.BatchSize <= 0:
		return errors.Errorf("batch size must be positive, got %d", c.BatchSize)
	case c.LearningRate <= 0:
		return errors.Errorf("learning rate must be positive, got %g", c.LearningRate)
	case c.Epochs <= 0:
		return errors.Errorf("epoch count must be positive, got %d", c.Epochs)
	case c.NumClasses < 2:
		return errors.Errorf("need at least 2 classes, got %d", c.NumClasses)
	case c.Momentum < 0 || c.Momentum >= 1:
		return errors.Errorf("momentum must be in [0, 1), got %g", c.Momentum)
	}

	switch c.Optimizer {
	case OptimizerSGD, OptimizerAdam:
		return nil
	default:
		return errors.Errorf("unknown optimizer %q (valid: %s, %s)", c.Optimizer, OptimizerSGD, OptimizerAdam)
	}
}

// NewOptimizer creates a fresh optimizer over params with the configured
// learning rate.
func NewOptimizer[B tensor.Backend](cfg Config, params []*nn.Parameter[B], backend B) (optim.Optimizer, error) {
	switch cfg.Optimizer {
	case OptimizerSGD:
		return optim.NewSGD(params, optim.SGDConfig{
			LR:       cfg.LearningRate,
			Momentum: cfg.Momentum,
		}, backend), nil
	case OptimizerAdam:
		return optim.NewAdam(params, optim.AdamConfig{
			LR:    cfg.LearningRate,
			Betas: [2]float32{0.9, 0.999},
			Eps:   1e-8,
		}, backend), nil
	default:
		return nil, errors.Errorf("unknown optimizer %q", cfg.Optimizer)
	}
}
