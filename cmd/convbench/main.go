// Command convbench trains the fixed CNN topologies on the same data and
// prints their per-epoch loss and accuracy side by side.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/born-ml/convbench/internal/dataset"
	"github.com/born-ml/convbench/internal/experiment"
	"github.com/born-ml/convbench/internal/topology"
)

func main() {
	defaults := experiment.DefaultConfig()

	dataDir := flag.String("data", "./data/cifar-10-batches-bin", "Directory containing the CIFAR-10 binary batches")
	useSynthetic := flag.Bool("synthetic", false, "Use a generated dataset instead of CIFAR-10")
	maxSamples := flag.Int("samples", 0, "Max training samples to load (0 = all)")
	imageSize := flag.Int("size", 32, "Image height and width for synthetic data")
	epochs := flag.Int("epochs", defaults.Epochs, "Number of training epochs per topology")
	batchSize := flag.Int("batch", defaults.BatchSize, "Batch size")
	lr := flag.Float64("lr", float64(defaults.LearningRate), "Learning rate shared by all topologies")
	optimizer := flag.String("optimizer", defaults.Optimizer, "Optimizer: sgd or adam")
	momentum := flag.Float64("momentum", float64(defaults.Momentum), "SGD momentum")
	seed := flag.Uint64("seed", defaults.Seed, "Seed for initialization, shuffling and synthetic data")
	names := flag.String("topologies", "", "Comma-separated topologies to run (default: all)")
	validSplit := flag.Float64("valid-split", 0, "Hold out this fraction of the training data for validation instead of using the test set")
	csvPath := flag.String("csv", "", "Write the per-epoch table to this CSV file")
	flag.Parse()

	cfg := experiment.Config{
		BatchSize:    *batchSize,
		LearningRate: float32(*lr),
		Epochs:       *epochs,
		NumClasses:   dataset.CIFARClasses,
		Seed:         *seed,
		Optimizer:    strings.ToLower(*optimizer),
		Momentum:     float32(*momentum),
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	specs, err := topology.ByName(splitNames(*names)...)
	if err != nil {
		log.Fatalf("Invalid topologies: %v", err)
	}

	var data experiment.Data
	if *useSynthetic {
		fmt.Println("Using synthetic data...")
		data, err = syntheticData(*maxSamples, *imageSize, *validSplit, cfg)
	} else {
		fmt.Printf("Loading CIFAR-10 from: %s\n", *dataDir)
		data, err = cifarData(*dataDir, *maxSamples, *validSplit)
	}
	if err != nil {
		log.Fatalf("Failed to load data: %v", err)
	}

	mean, std, err := dataset.ChannelStats(data.Train)
	if err != nil {
		log.Fatalf("Failed to compute channel statistics: %v", err)
	}
	for _, d := range []*dataset.Dataset{data.Train, data.Valid} {
		if err := dataset.Normalize(d, mean, std); err != nil {
			log.Fatalf("Failed to normalize data: %v", err)
		}
	}

	printDataSummary(os.Stdout, "Train", data.Train)
	printDataSummary(os.Stdout, "Valid", data.Valid)
	fmt.Printf("  Optimizer: %s (lr=%g), batch size %d, %d epochs\n", cfg.Optimizer, cfg.LearningRate, cfg.BatchSize, cfg.Epochs)
	fmt.Println()

	table, err := experiment.RunAll(specs, cfg, data, experiment.NewCPUBackend, experiment.WriterReporter{W: os.Stdout})
	if err != nil {
		log.Fatalf("Experiment aborted: %+v", err)
	}

	fmt.Println()
	if err := table.WriteSummary(os.Stdout); err != nil {
		log.Fatalf("Failed to print summary: %v", err)
	}

	if *csvPath != "" {
		if err := writeCSV(*csvPath, table); err != nil {
			log.Fatalf("Failed to write CSV: %v", err)
		}
		fmt.Printf("\nWrote %s\n", *csvPath)
	}
}

func splitNames(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func cifarData(dir string, maxSamples int, validSplit float64) (experiment.Data, error) {
	train, err := dataset.LoadCIFAR10(dir, true, maxSamples)
	if err != nil {
		return experiment.Data{}, err
	}
	if validSplit > 0 {
		t, v, err := train.Split(validSplit)
		if err != nil {
			return experiment.Data{}, err
		}
		return experiment.Data{Train: t, Valid: v}, nil
	}

	test, err := dataset.LoadCIFAR10(dir, false, maxSamples)
	if err != nil {
		return experiment.Data{}, err
	}
	return experiment.Data{Train: train, Valid: test}, nil
}

func syntheticData(samples, size int, validSplit float64, cfg experiment.Config) (experiment.Data, error) {
	if samples <= 0 {
		samples = 1000
	}
	if validSplit <= 0 {
		validSplit = 0.2
	}

	all, err := dataset.Synthetic(dataset.SyntheticConfig{
		Samples:  samples,
		Classes:  cfg.NumClasses,
		Channels: topology.ImageChannels,
		Height:   size,
		Width:    size,
		Seed:     cfg.Seed,
	})
	if err != nil {
		return experiment.Data{}, err
	}

	train, valid, err := all.Split(validSplit)
	if err != nil {
		return experiment.Data{}, err
	}
	return experiment.Data{Train: train, Valid: valid}, nil
}

// printDataSummary writes the sample count and per-class distribution of d.
func printDataSummary(w io.Writer, name string, d *dataset.Dataset) {
	counts := d.ClassCounts()
	parts := make([]string, len(counts))
	for c, n := range counts {
		parts[c] = fmt.Sprintf("%d:%d", c, n)
	}
	fmt.Fprintf(w, "  %s: %d samples (%dx%dx%d), per class [%s]\n",
		name, d.Len(), d.Channels, d.Height, d.Width, strings.Join(parts, " "))
}

func writeCSV(path string, table *experiment.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create csv")
	}
	if err := table.WriteCSV(f); err != nil {
		f.Close()
		return err
	}
	return errors.Wrap(f.Close(), "close csv")
}
