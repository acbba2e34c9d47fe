package experiment_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/convbench/internal/experiment"
	"github.com/born-ml/convbench/internal/nn"
	"github.com/born-ml/convbench/internal/optim"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	require.NoError(t, experiment.DefaultConfig().Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*experiment.Config)
		want   string
	}{
		{"batch", func(c *experiment.Config) { c.BatchSize = 0 }, "batch size"},
		{"lr", func(c *experiment.Config) { c.LearningRate = -1 }, "learning rate"},
		{"epochs", func(c *experiment.Config) { c.Epochs = 0 }, "epoch count"},
		{"classes", func(c *experiment.Config) { c.NumClasses = 1 }, "at least 2 classes"},
		{"momentum", func(c *experiment.Config) { c.Momentum = 1 }, "momentum"},
		{"optimizer", func(c *experiment.Config) { c.Optimizer = "" }, "unknown optimizer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := experiment.DefaultConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestNewOptimizer(t *testing.T) {
	backend := experiment.NewCPUBackend()
	params := []*nn.Parameter[Backend]{}

	cfg := experiment.DefaultConfig()
	cfg.LearningRate = 0.05

	cfg.Optimizer = experiment.OptimizerSGD
	opt, err := experiment.NewOptimizer(cfg, params, backend)
	require.NoError(t, err)
	assert.IsType(t, &optim.SGD[Backend]{}, opt)
	assert.InDelta(t, 0.05, opt.GetLR(), 1e-9)

	cfg.Optimizer = experiment.OptimizerAdam
	opt, err = experiment.NewOptimizer(cfg, params, backend)
	require.NoError(t, err)
	assert.IsType(t, &optim.Adam[Backend]{}, opt)
	assert.InDelta(t, 0.05, opt.GetLR(), 1e-9)

	cfg.Optimizer = "lbfgs"
	_, err = experiment.NewOptimizer(cfg, params, backend)
	assert.Error(t, err)
}
