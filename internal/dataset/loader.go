package dataset

import (
	"github.com/pkg/errors"
	"golang.org/x/exp/rand"

	"github.com/born-ml/convbench/internal/tensor"
)

// Batch is one mini-batch of images [N, C, H, W] and labels [N].
type Batch[B tensor.Backend] struct {
	Images *tensor.Tensor[float32, B]
	Labels *tensor.Tensor[int32, B]
	Size   int
}

// Loader turns a Dataset into mini-batches on a backend.
//
// With shuffling enabled every call to Batches draws a new order from the
// loader's own seeded source, so epochs differ but runs are reproducible.
type Loader[B tensor.Backend] struct {
	data      *Dataset
	batchSize int
	shuffle   bool
	rng       *rand.Rand
	backend   B
}

// NewLoader creates a loader over d.
func NewLoader[B tensor.Backend](d *Dataset, batchSize int, shuffle bool, seed uint64, backend B) (*Loader[B], error) {
	if batchSize <= 0 {
		return nil, errors.Errorf("loader: invalid batch size %d", batchSize)
	}
	if err := d.Validate(); err != nil {
		return nil, errors.Wrap(err, "loader")
	}
	if d.Len() == 0 {
		return nil, errors.New("loader: empty dataset")
	}

	return &Loader[B]{
		data:      d,
		batchSize: batchSize,
		shuffle:   shuffle,
		rng:       rand.New(rand.NewSource(seed)),
		backend:   backend,
	}, nil
}

// NumBatches returns the number of batches per pass. The last batch may be
// smaller than the batch size.
func (l *Loader[B]) NumBatches() int {
	return (l.data.Len() + l.batchSize - 1) / l.batchSize
}

// Batches returns one full pass over the data.
func (l *Loader[B]) Batches() ([]*Batch[B], error) {
	n := l.data.Len()
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	if l.shuffle {
		l.rng.Shuffle(n, func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
	}

	size := l.data.ImageSize()
	batches := make([]*Batch[B], 0, l.NumBatches())
	for start := 0; start < n; start += l.batchSize {
		end := min(start+l.batchSize, n)
		count := end - start

		images, err := tensor.NewRaw(
			tensor.Shape{count, l.data.Channels, l.data.Height, l.data.Width},
			tensor.Float32,
			l.backend.Device(),
		)
		if err != nil {
			return nil, errors.Wrap(err, "create images tensor")
		}
		labels, err := tensor.NewRaw(tensor.Shape{count}, tensor.Int32, l.backend.Device())
		if err != nil {
			return nil, errors.Wrap(err, "create labels tensor")
		}

		imageData, labelData := images.AsFloat32(), labels.AsInt32()
		for j, idx := range indices[start:end] {
			copy(imageData[j*size:(j+1)*size], l.data.Images[idx])
			labelData[j] = l.data.Labels[idx]
		}

		batches = append(batches, &Batch[B]{
			Images: tensor.New[float32, B](images, l.backend),
			Labels: tensor.New[int32, B](labels, l.backend),
			Size:   count,
		})
	}
	return batches, nil
}
