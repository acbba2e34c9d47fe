// Package dataset provides labelled image data for the benchmark: the
// CIFAR-10 binary format, a synthetic generator, per-channel normalization,
// train/validation splitting and a batching loader.
package dataset

import (
	"math"

	"github.com/pkg/errors"
)

// Dataset holds images in channel-major [C, H, W] layout with their labels.
type Dataset struct {
	Images     [][]float32 // [num_samples][C*H*W]
	Labels     []int32     // [num_samples]
	Channels   int
	Height     int
	Width      int
	NumClasses int
}

// Len returns the number of samples.
func (d *Dataset) Len() int {
	return len(d.Images)
}

// ImageSize returns the number of values per image.
func (d *Dataset) ImageSize() int {
	return d.Channels * d.Height * d.Width
}

// Validate checks that images and labels agree with the declared geometry.
func (d *Dataset) Validate() error {
	if d.Channels <= 0 || d.Height <= 0 || d.Width <= 0 {
		return errors.Errorf("invalid image geometry %dx%dx%d", d.Channels, d.Height, d.Width)
	}
	if d.NumClasses < 2 {
		return errors.Errorf("need at least 2 classes, got %d", d.NumClasses)
	}
	if len(d.Images) != len(d.Labels) {
		return errors.Errorf("image count (%d) != label count (%d)", len(d.Images), len(d.Labels))
	}

	size := d.ImageSize()
	for i, img := range d.Images {
		if len(img) != size {
			return errors.Errorf("image %d has %d values, want %d", i, len(img), size)
		}
		if l := d.Labels[i]; l < 0 || int(l) >= d.NumClasses {
			return errors.Errorf("label %d of sample %d out of range [0, %d)", l, i, d.NumClasses)
		}
	}
	return nil
}

// Split returns the first (1 - validRatio) of the samples as the training
// set and the rest as the validation set. The slices are shared with d.
func (d *Dataset) Split(validRatio float64) (train, valid *Dataset, err error) {
	if validRatio <= 0 || validRatio >= 1 {
		return nil, nil, errors.Errorf("validation ratio must be in (0, 1), got %g", validRatio)
	}

	n := d.Len()
	splitIdx := n - int(math.Round(float64(n)*validRatio))
	if splitIdx == 0 || splitIdx == n {
		return nil, nil, errors.Errorf("cannot split %d samples with validation ratio %g", n, validRatio)
	}

	return d.slice(0, splitIdx), d.slice(splitIdx, n), nil
}

func (d *Dataset) slice(from, to int) *Dataset {
	return &Dataset{
		Images:     d.Images[from:to],
		Labels:     d.Labels[from:to],
		Channels:   d.Channels,
		Height:     d.Height,
		Width:      d.Width,
		NumClasses: d.NumClasses,
	}
}

// ClassCounts returns the number of samples per class.
func (d *Dataset) ClassCounts() []int {
	counts := make([]int, d.NumClasses)
	for _, l := range d.Labels {
		if int(l) < len(counts) {
			counts[l]++
		}
	}
	return counts
}
