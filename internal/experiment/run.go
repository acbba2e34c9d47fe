package experiment

import (
	"github.com/pkg/errors"

	"github.com/born-ml/convbench/internal/autodiff"
	"github.com/born-ml/convbench/internal/dataset"
	"github.com/born-ml/convbench/internal/nn"
	"github.com/born-ml/convbench/internal/optim"
	"github.com/born-ml/convbench/internal/tensor"
)

// Model is a named network the loop can train.
type Model[B tensor.Backend] interface {
	nn.Module[B]
	Name() string
}

// BatchSource yields one full pass of batches per call.
type BatchSource[B tensor.Backend] interface {
	Batches() ([]*dataset.Batch[B], error)
}

// Run trains model for cfg.Epochs epochs and evaluates it after each one.
//
// Every epoch trains on one pass of train, then evaluates on one pass of
// valid with the tape stopped and the model in evaluation mode. Errors from
// the batch sources are returned unchanged. A panic from the engine (shape
// mismatch, bad argument) aborts the run and is returned as an error naming
// the model and epoch. The records of completed epochs are returned in
// both cases.
func Run[B autodiff.BackwardCapable](
	model Model[B],
	optimizer optim.Optimizer,
	train, valid BatchSource[B],
	backend B,
	cfg Config,
	reporter Reporter,
) (history History, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config")
	}
	if reporter == nil {
		reporter = NopReporter{}
	}

	tape := backend.GetTape()
	epoch := 0
	defer func() {
		if r := recover(); r != nil {
			tape.StopRecording()
			tape.Clear()
			err = errors.Errorf("%s: epoch %d: %v", model.Name(), epoch+1, r)
		}
	}()

	criterion := nn.NewCrossEntropyLoss(backend)
	history = make(History, 0, cfg.Epochs)
	for ; epoch < cfg.Epochs; epoch++ {
		trainLoss, err := trainEpoch(model, optimizer, train, criterion, backend)
		if err != nil {
			return history, err
		}

		validLoss, accuracy, err := evaluate(model, valid, criterion, backend)
		if err != nil {
			return history, err
		}

		rec := Record{TrainLoss: trainLoss, ValidLoss: validLoss, Accuracy: accuracy}
		history = append(history, rec)
		reporter.EpochDone(model.Name(), epoch, cfg.Epochs, rec)
	}
	return history, nil
}

// trainEpoch runs one optimization step per batch and returns the mean loss.
func trainEpoch[B autodiff.BackwardCapable](
	model Model[B],
	optimizer optim.Optimizer,
	source BatchSource[B],
	criterion *nn.CrossEntropyLoss[B],
	backend B,
) (float64, error) {
	batches, err := source.Batches()
	if err != nil {
		return 0, err
	}
	if len(batches) == 0 {
		return 0, errors.Errorf("%s: no training batches", model.Name())
	}

	nn.SetTraining[B](model, true)
	tape := backend.GetTape()
	tape.StartRecording()
	defer func() {
		tape.StopRecording()
		tape.Clear()
	}()

	total := 0.0
	for _, batch := range batches {
		optimizer.ZeroGrad()
		tape.Clear()

		logits := model.Forward(batch.Images)
		loss := criterion.Forward(logits, batch.Labels)
		nn.CollectGrads(model.Parameters(), autodiff.Backward(loss, backend))
		optimizer.Step()

		total += float64(loss.Item())
	}
	return total / float64(len(batches)), nil
}

// evaluate returns the mean loss and the top-1 accuracy in percent.
func evaluate[B autodiff.BackwardCapable](
	model Model[B],
	source BatchSource[B],
	criterion *nn.CrossEntropyLoss[B],
	backend B,
) (loss, accuracy float64, err error) {
	batches, err := source.Batches()
	if err != nil {
		return 0, 0, err
	}
	if len(batches) == 0 {
		return 0, 0, errors.Errorf("%s: no validation batches", model.Name())
	}

	backend.GetTape().StopRecording()
	nn.SetTraining[B](model, false)
	defer nn.SetTraining[B](model, true)

	total := 0.0
	correct, seen := 0, 0
	for _, batch := range batches {
		logits := model.Forward(batch.Images)
		total += float64(criterion.Forward(logits, batch.Labels).Item())
		correct += nn.Correct(nn.Predict(logits), batch.Labels)
		seen += batch.Size
	}
	return total / float64(len(batches)), 100 * float64(correct) / float64(seen), nil
}
