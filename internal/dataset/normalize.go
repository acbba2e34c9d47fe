package dataset

import (
	"gonum.org/v1/gonum/stat"

	"github.com/pkg/errors"
)

// ChannelStats returns the mean and standard deviation of every channel
// over all pixels of all images.
func ChannelStats(d *Dataset) (mean, std []float64, err error) {
	if d.Len() == 0 {
		return nil, nil, errors.New("channel stats: empty dataset")
	}

	plane := d.Height * d.Width
	values := make([]float64, d.Len()*plane)
	mean = make([]float64, d.Channels)
	std = make([]float64, d.Channels)

	for c := 0; c < d.Channels; c++ {
		for s, img := range d.Images {
			for i, v := range img[c*plane : (c+1)*plane] {
				values[s*plane+i] = float64(v)
			}
		}
		mean[c], std[c] = stat.MeanStdDev(values, nil)
	}
	return mean, std, nil
}

// Normalize rescales every channel in place to (x - mean) / std. Channels
// with zero deviation are only centered.
func Normalize(d *Dataset, mean, std []float64) error {
	if len(mean) != d.Channels || len(std) != d.Channels {
		return errors.Errorf("normalize: got %d means and %d deviations for %d channels", len(mean), len(std), d.Channels)
	}

	plane := d.Height * d.Width
	for _, img := range d.Images {
		for c := 0; c < d.Channels; c++ {
			m := float32(mean[c])
			inv := float32(1)
			if std[c] > 0 {
				inv = float32(1 / std[c])
			}
			px := img[c*plane : (c+1)*plane]
			for i := range px {
				px[i] = (px[i] - m) * inv
			}
		}
	}
	return nil
}
