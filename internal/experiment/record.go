package experiment

// Metric names used as Table keys.
const (
	MetricTrainLoss = "train_loss"
	MetricValidLoss = "valid_loss"
	MetricAccuracy  = "accuracy"
)

// Metrics lists every metric name in column order.
var Metrics = []string{MetricTrainLoss, MetricValidLoss, MetricAccuracy}

// Record holds the metrics of one epoch. Accuracy is a percentage in [0, 100].
type Record struct {
	TrainLoss float64
	ValidLoss float64
	Accuracy  float64
}

// Value returns the metric with the given name.
func (r Record) Value(metric string) (float64, bool) {
	switch metric {
	case MetricTrainLoss:
		return r.TrainLoss, true
	case MetricValidLoss:
		return r.ValidLoss, true
	case MetricAccuracy:
		return r.Accuracy, true
	default:
		return 0, false
	}
}

// History is the ordered per-epoch record of one topology run.
type History []Record

// Series returns one metric across all epochs.
func (h History) Series(metric string) []float64 {
	out := make([]float64, 0, len(h))
	for _, r := range h {
		if v, ok := r.Value(metric); ok {
			out = append(out, v)
		}
	}
	return out
}
