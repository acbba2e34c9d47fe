package dataset

import (
	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// SyntheticConfig describes a generated dataset.
type SyntheticConfig struct {
	Samples  int
	Classes  int
	Channels int
	Height   int
	Width    int
	Noise    float64 // standard deviation of per-pixel noise (default 0.5)
	Seed     uint64
}

// Synthetic generates a learnable classification problem: every class has a
// random prototype image in [0, 1] and each sample is its class prototype
// plus Gaussian noise. Labels cycle through the classes so every class is
// represented.
func Synthetic(cfg SyntheticConfig) (*Dataset, error) {
	if cfg.Samples <= 0 {
		return nil, errors.Errorf("synthetic: invalid sample count %d", cfg.Samples)
	}
	if cfg.Noise == 0 {
		cfg.Noise = 0.5
	}

	d := &Dataset{
		Channels:   cfg.Channels,
		Height:     cfg.Height,
		Width:      cfg.Width,
		NumClasses: cfg.Classes,
	}
	if d.Channels <= 0 || d.Height <= 0 || d.Width <= 0 || d.NumClasses < 2 {
		return nil, errors.Errorf("synthetic: invalid geometry %dx%dx%d with %d classes",
			cfg.Channels, cfg.Height, cfg.Width, cfg.Classes)
	}

	src := rand.New(rand.NewSource(cfg.Seed))
	size := d.ImageSize()

	prototypes := make([][]float32, cfg.Classes)
	for c := range prototypes {
		prototypes[c] = make([]float32, size)
		for i := range prototypes[c] {
			prototypes[c][i] = float32(src.Float64())
		}
	}

	noise := distuv.Normal{Mu: 0, Sigma: cfg.Noise, Src: src}
	d.Images = make([][]float32, cfg.Samples)
	d.Labels = make([]int32, cfg.Samples)
	for s := 0; s < cfg.Samples; s++ {
		label := s % cfg.Classes
		img := make([]float32, size)
		for i, p := range prototypes[label] {
			img[i] = p + float32(noise.Rand())
		}
		d.Images[s] = img
		d.Labels[s] = int32(label)
	}

	// Mix classes so both halves of a Split see every class.
	src.Shuffle(cfg.Samples, func(i, j int) {
		d.Images[i], d.Images[j] = d.Images[j], d.Images[i]
		d.Labels[i], d.Labels[j] = d.Labels[j], d.Labels[i]
	})

	return d, nil
}
