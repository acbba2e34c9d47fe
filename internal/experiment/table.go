package experiment

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

type cellKey struct {
	topology string
	metric   string
	epoch    int
}

// Table holds metric values keyed by (topology, metric, epoch). Topologies
// keep the order in which they were first added.
type Table struct {
	order  []string
	epochs map[string]int
	cells  map[cellKey]float64
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{
		epochs: make(map[string]int),
		cells:  make(map[cellKey]float64),
	}
}

// Set stores one cell.
func (t *Table) Set(topology, metric string, epoch int, value float64) {
	if _, ok := t.epochs[topology]; !ok {
		t.order = append(t.order, topology)
	}
	t.epochs[topology] = max(t.epochs[topology], epoch+1)
	t.cells[cellKey{topology, metric, epoch}] = value
}

// Get returns one cell.
func (t *Table) Get(topology, metric string, epoch int) (float64, bool) {
	v, ok := t.cells[cellKey{topology, metric, epoch}]
	return v, ok
}

// Add stores every record of h under topology.
func (t *Table) Add(topology string, h History) {
	for epoch, r := range h {
		for _, m := range Metrics {
			v, _ := r.Value(m)
			t.Set(topology, m, epoch, v)
		}
	}
}

// Topologies returns the topology names in insertion order.
func (t *Table) Topologies() []string {
	return append([]string(nil), t.order...)
}

// Epochs returns the number of epochs recorded for topology.
func (t *Table) Epochs(topology string) int {
	return t.epochs[topology]
}

// Series returns one metric of one topology across its epochs.
func (t *Table) Series(topology, metric string) []float64 {
	n := t.epochs[topology]
	out := make([]float64, 0, n)
	for epoch := 0; epoch < n; epoch++ {
		if v, ok := t.Get(topology, metric, epoch); ok {
			out = append(out, v)
		}
	}
	return out
}

// WriteCSV writes one row per epoch and one "<topology>/<metric>" column
// per topology and metric. Missing cells are left empty.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	header := []string{"epoch"}
	rows := 0
	for _, name := range t.order {
		for _, m := range Metrics {
			header = append(header, name+"/"+m)
		}
		rows = max(rows, t.epochs[name])
	}
	if err := cw.Write(header); err != nil {
		return errors.Wrap(err, "write csv header")
	}

	for epoch := 0; epoch < rows; epoch++ {
		row := []string{strconv.Itoa(epoch + 1)}
		for _, name := range t.order {
			for _, m := range Metrics {
				cell := ""
				if v, ok := t.Get(name, m, epoch); ok {
					cell = strconv.FormatFloat(v, 'f', 6, 64)
				}
				row = append(row, cell)
			}
		}
		if err := cw.Write(row); err != nil {
			return errors.Wrapf(err, "write csv row %d", epoch+1)
		}
	}

	cw.Flush()
	return errors.Wrap(cw.Error(), "flush csv")
}

// Summary condenses one topology's run.
type Summary struct {
	Topology       string
	Epochs         int
	FinalTrainLoss float64
	FinalValidLoss float64
	FinalAccuracy  float64
	BestAccuracy   float64
	BestEpoch      int // 0-based
	MinValidLoss   float64
}

// Summaries returns one Summary per topology with at least one epoch.
func (t *Table) Summaries() []Summary {
	out := make([]Summary, 0, len(t.order))
	for _, name := range t.order {
		train := t.Series(name, MetricTrainLoss)
		valid := t.Series(name, MetricValidLoss)
		acc := t.Series(name, MetricAccuracy)
		if len(train) == 0 || len(valid) == 0 || len(acc) == 0 {
			continue
		}

		best := floats.MaxIdx(acc)
		out = append(out, Summary{
			Topology:       name,
			Epochs:         t.epochs[name],
			FinalTrainLoss: train[len(train)-1],
			FinalValidLoss: valid[len(valid)-1],
			FinalAccuracy:  acc[len(acc)-1],
			BestAccuracy:   acc[best],
			BestEpoch:      best,
			MinValidLoss:   floats.Min(valid),
		})
	}
	return out
}

// WriteSummary prints Summaries as an aligned text table.
func (t *Table) WriteSummary(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "topology\tepochs\ttrain_loss\tvalid_loss\taccuracy\tbest_accuracy\tbest_epoch\t")
	for _, s := range t.Summaries() {
		fmt.Fprintf(tw, "%s\t%d\t%.4f\t%.4f\t%.2f\t%.2f\t%d\t\n",
			s.Topology, s.Epochs, s.FinalTrainLoss, s.FinalValidLoss,
			s.FinalAccuracy, s.BestAccuracy, s.BestEpoch+1)
	}
	return errors.Wrap(tw.Flush(), "flush summary")
}
