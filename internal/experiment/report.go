package experiment

import (
	"fmt"
	"io"
)

// Reporter receives progress from a run.
type Reporter interface {
	EpochDone(topology string, epoch, epochs int, r Record)
}

// WriterReporter writes one line per epoch.
type WriterReporter struct {
	W io.Writer
}

// EpochDone implements Reporter.
func (w WriterReporter) EpochDone(topology string, epoch, epochs int, r Record) {
	fmt.Fprintf(w.W, "%-12s epoch %2d/%d: train_loss=%.4f valid_loss=%.4f accuracy=%.2f%%\n",
		topology, epoch+1, epochs, r.TrainLoss, r.ValidLoss, r.Accuracy)
}

// NopReporter discards progress.
type NopReporter struct{}

// EpochDone implements Reporter.
func (NopReporter) EpochDone(string, int, int, Record) {}
