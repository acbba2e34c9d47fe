package dataset

import (
	"bufio"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// CIFAR-10 binary format: each record is one label byte followed by
// 3*32*32 pixel bytes, red plane first, then green, then blue.
const (
	CIFARChannels   = 3
	CIFARHeight     = 32
	CIFARWidth      = 32
	CIFARClasses    = 10
	CIFARImageBytes = CIFARChannels * CIFARHeight * CIFARWidth
	CIFARRecordSize = 1 + CIFARImageBytes
)

// CIFAR-10 batch file names inside the extracted cifar-10-batches-bin directory.
var (
	CIFARTrainFiles = []string{
		"data_batch_1.bin",
		"data_batch_2.bin",
		"data_batch_3.bin",
		"data_batch_4.bin",
		"data_batch_5.bin",
	}
	CIFARTestFiles = []string{"test_batch.bin"}
)

// LoadCIFAR10 reads the training or test split from dir, scaling pixels to
// [0, 1]. maxSamples limits the number of samples read (0 = all).
func LoadCIFAR10(dir string, train bool, maxSamples int) (*Dataset, error) {
	files := CIFARTestFiles
	if train {
		files = CIFARTrainFiles
	}

	d := &Dataset{
		Channels:   CIFARChannels,
		Height:     CIFARHeight,
		Width:      CIFARWidth,
		NumClasses: CIFARClasses,
	}
	for _, name := range files {
		remaining := 0
		if maxSamples > 0 {
			remaining = maxSamples - d.Len()
			if remaining <= 0 {
				break
			}
		}

		path := filepath.Join(dir, name)
		part, err := readCIFARFile(path, remaining)
		if err != nil {
			return nil, err
		}
		d.Images = append(d.Images, part.Images...)
		d.Labels = append(d.Labels, part.Labels...)
	}
	return d, nil
}

func readCIFARFile(path string, maxSamples int) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open CIFAR-10 batch")
	}
	defer f.Close()

	d, err := ReadCIFAR10(f, maxSamples)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return d, nil
}

// ReadCIFAR10 decodes CIFAR-10 binary records from r until EOF or until
// maxSamples records have been read (0 = no limit).
func ReadCIFAR10(r io.Reader, maxSamples int) (*Dataset, error) {
	br := bufio.NewReaderSize(r, 64*CIFARRecordSize)
	record := make([]byte, CIFARRecordSize)

	d := &Dataset{
		Channels:   CIFARChannels,
		Height:     CIFARHeight,
		Width:      CIFARWidth,
		NumClasses: CIFARClasses,
	}
	for maxSamples <= 0 || d.Len() < maxSamples {
		_, err := io.ReadFull(br, record)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "record %d", d.Len())
		}

		label := record[0]
		if int(label) >= CIFARClasses {
			return nil, errors.Errorf("record %d: label %d out of range [0, %d)", d.Len(), label, CIFARClasses)
		}

		img := make([]float32, CIFARImageBytes)
		for i, px := range record[1:] {
			img[i] = float32(px) / 255.0
		}
		d.Images = append(d.Images, img)
		d.Labels = append(d.Labels, int32(label))
	}
	return d, nil
}
