package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/convbench/internal/dataset"
)

func TestPrintDataSummary_ShowsClassDistribution(t *testing.T) {
	d, err := dataset.Synthetic(dataset.SyntheticConfig{Samples: 7, Classes: 3, Channels: 3, Height: 4, Width: 4, Seed: 1})
	require.NoError(t, err)

	var buf bytes.Buffer
	printDataSummary(&buf, "Train", d)

	assert.Equal(t, "  Train: 7 samples (3x4x4), per class [0:3 1:2 2:2]\n", buf.String())
}

func TestSplitNames(t *testing.T) {
	assert.Nil(t, splitNames("  "))
	assert.Equal(t, []string{"plain_deep", "residual"}, splitNames("plain_deep,residual"))
}
