package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/exp/rand"

	"github.com/born-ml/convbench/internal/parallel"
	"github.com/born-ml/convbench/internal/tensor"
)

// Splitting work across goroutines must not change any result bit.
func TestCPUBackend_ParallelMatchesSequential(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	x := randomRaw(t, rng, tensor.Shape{6, 3, 5, 5})
	k := randomRaw(t, rng, tensor.Shape{4, 3, 3, 3})
	dy := randomRaw(t, rng, tensor.Shape{6, 4, 5, 5})
	gamma := randomRaw(t, rng, tensor.Shape{3})
	beta := randomRaw(t, rng, tensor.Shape{3})

	seq := New()
	seq.SetParallel(parallel.Sequential())
	par := New()
	par.SetParallel(parallel.Config{Enabled: true, NumWorkers: 4, MinChunkSize: 1})

	assert.Equal(t, seq.Conv2D(x, k, 1, 1).AsFloat32(), par.Conv2D(x, k, 1, 1).AsFloat32())
	assert.Equal(t,
		seq.Conv2DInputBackward(x, k, dy, 1, 1).AsFloat32(),
		par.Conv2DInputBackward(x, k, dy, 1, 1).AsFloat32())

	seqOut, seqMean, seqVar := seq.BatchNorm2D(x, gamma, beta, 1e-5)
	parOut, parMean, parVar := par.BatchNorm2D(x, gamma, beta, 1e-5)
	assert.Equal(t, seqOut.AsFloat32(), parOut.AsFloat32())
	assert.Equal(t, seqMean.AsFloat32(), parMean.AsFloat32())
	assert.Equal(t, seqVar.AsFloat32(), parVar.AsFloat32())

	seqDx, seqDg, seqDb := seq.BatchNorm2DBackward(x, gamma, seqMean, seqVar, x, 1e-5)
	parDx, parDg, parDb := par.BatchNorm2DBackward(x, gamma, parMean, parVar, x, 1e-5)
	assert.Equal(t, seqDx.AsFloat32(), parDx.AsFloat32())
	assert.Equal(t, seqDg.AsFloat32(), parDg.AsFloat32())
	assert.Equal(t, seqDb.AsFloat32(), parDb.AsFloat32())

	assert.Equal(t, seq.GlobalAvgPool2D(x).AsFloat32(), par.GlobalAvgPool2D(x).AsFloat32())
}
