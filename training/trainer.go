package training

import (
	"fmt"
	"math/rand"

	"github.com/medvision-ml/covidtrain/checkpoints"
	"github.com/medvision-ml/covidtrain/dataset"
	"github.com/medvision-ml/covidtrain/history"
	"github.com/medvision-ml/covidtrain/neural"
)

// covidClass is the label index of the covid-positive class. Sensitivity is
// the recall of this class.
const covidClass = 1

// Trainer owns one training run: model, optimizer, data pipeline, LR
// schedule, best-model tracking, and reporting.
type Trainer struct {
	cfg Config

	model     neural.Model
	criterion *neural.CrossEntropyLoss
	opt       *neural.Adam

	sampler    *BalancedSampler
	testLoader *DataLoader

	scheduler *ReduceLROnPlateauScheduler
	policy    *CheckpointPolicy
	evaluator Evaluator
	plotter   Plotter
	saver     *checkpoints.CheckpointSaver
	store     *history.Store

	startEpoch int
}

// NewTrainer validates the configuration, builds the model and data
// pipeline, and restores checkpoint state when resuming. Any failure here is
// fatal: a run never starts half-configured.
func NewTrainer(cfg Config) (*Trainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	fmt.Println(DetectDevice().String())

	rng := rand.New(rand.NewSource(cfg.Seed))
	inputDim := cfg.ImageSize * cfg.ImageSize

	model, err := neural.Build(cfg.Model, cfg.NumClasses, inputDim, rng)
	if err != nil {
		return nil, err
	}
	fmt.Printf("model selected: %s\n", model.Name())

	opt, err := neural.NewAdam(model.Parameters(), float32(cfg.LearningRate))
	if err != nil {
		return nil, err
	}

	trainSplit, err := dataset.LoadLabelFile(cfg.TrainLabels)
	if err != nil {
		return nil, fmt.Errorf("training labels: %v", err)
	}
	testSplit, err := dataset.LoadLabelFile(cfg.TestLabels)
	if err != nil {
		return nil, fmt.Errorf("test labels: %v", err)
	}

	majority := dataset.NewXRayDataset(cfg.TrainFolder, trainSplit.NonCovid, cfg.ImageSize)
	minority := dataset.NewXRayDataset(cfg.TrainFolder, trainSplit.Covid, cfg.ImageSize)
	sampler, err := NewBalancedSampler(majority, minority, cfg.BatchSize, cfg.CovidPercent, rng)
	if err != nil {
		return nil, err
	}

	testSet := dataset.NewXRayDataset(cfg.TestFolder, testSplit.All(), cfg.ImageSize)
	testLoader, err := NewDataLoader(testSet, cfg.BatchSize, false, false, rng)
	if err != nil {
		return nil, fmt.Errorf("test pool: %v", err)
	}

	evaluator, err := NewClassificationEvaluator(cfg.NumClasses, covidClass)
	if err != nil {
		return nil, err
	}

	format := checkpoints.FormatJSON
	if cfg.CheckpointBinary {
		format = checkpoints.FormatBinary
	}

	var plotter Plotter = NopPlotter{}
	if cfg.PlotURL != "" {
		plotter = NewSidecarPlotter(cfg.PlotURL, cfg.RunName)
	}

	t := &Trainer{
		cfg:        cfg,
		model:      model,
		criterion:  neural.NewCrossEntropyLoss(cfg.ClassWeights),
		opt:        opt,
		sampler:    sampler,
		testLoader: testLoader,
		scheduler:  NewReduceLROnPlateauScheduler(cfg.Factor, cfg.Patience, 0, "max"),
		policy:     NewCheckpointPolicy(cfg.accuracyGate()),
		evaluator:  evaluator,
		plotter:    plotter,
		saver:      checkpoints.NewCheckpointSaver(format),
	}

	if cfg.HistoryDB != "" {
		store, err := history.Open(cfg.HistoryDB)
		if err != nil {
			return nil, fmt.Errorf("run history: %v", err)
		}
		t.store = store
	}

	if cfg.Resume != "" {
		if err := t.resume(cfg.Resume); err != nil {
			return nil, fmt.Errorf("failed to resume from %s: %v", cfg.Resume, err)
		}
	}

	return t, nil
}

// Run executes the configured number of epochs. Each epoch trains over the
// combined batches, evaluates on the held-out set, steps the LR schedule on
// validation accuracy, and checkpoints when the best-model policy fires.
func (t *Trainer) Run() error {
	fmt.Println("Start training...")

	var runID int64
	if t.store != nil {
		id, err := t.store.StartRun(t.cfg.RunName, t.model.Name())
		if err != nil {
			return fmt.Errorf("run history: %v", err)
		}
		runID = id
	}

	for epoch := t.startEpoch; epoch < t.cfg.Epochs; epoch++ {
		trainLoss, trainAcc, err := t.runTrainingEpoch(epoch)
		if err != nil {
			return fmt.Errorf("epoch %d: %v", epoch, err)
		}

		sensitivity, accuracy, err := t.evaluator.Evaluate(t.model, t.testLoader)
		if err != nil {
			return fmt.Errorf("epoch %d validation: %v", epoch, err)
		}

		newLR := t.scheduler.Step(accuracy, float64(t.opt.LR()))
		t.opt.SetLR(float32(newLR))

		improved, err := t.policy.Observe(accuracy, sensitivity)
		if err != nil {
			return fmt.Errorf("epoch %d validation: %v", epoch, err)
		}
		if improved {
			fmt.Println("BEST MODEL FOUND!")
			if err := t.saveCheckpoint(epoch, accuracy); err != nil {
				return fmt.Errorf("epoch %d: %v", epoch, err)
			}
		}

		fmt.Printf("** Validation: %f (best_sensitivity) - %f (current acc) - %d (patience)\n",
			t.policy.BestSensitivity(), accuracy, t.policy.PatienceCounter())

		t.plotter.Plot("sensitivity", "test", epoch, sensitivity)
		t.plotter.Plot("accuracy", "test", epoch, accuracy)

		if t.store != nil {
			record := history.EpochRecord{
				Epoch:         epoch,
				TrainLoss:     trainLoss,
				TrainAccuracy: trainAcc,
				Sensitivity:   sensitivity,
				Accuracy:      accuracy,
				LearningRate:  newLR,
				Checkpointed:  improved,
			}
			if err := t.store.RecordEpoch(runID, record); err != nil {
				return fmt.Errorf("run history: %v", err)
			}
		}
	}

	if t.store != nil {
		if err := t.store.FinishRun(runID); err != nil {
			return fmt.Errorf("run history: %v", err)
		}
		if err := t.store.Close(); err != nil {
			return fmt.Errorf("run history: %v", err)
		}
	}
	return nil
}

// saveCheckpoint persists the full training state. The stored epoch is the
// next one to run, so a resume continues rather than repeats.
func (t *Trainer) saveCheckpoint(epoch int, accuracy float64) error {
	checkpoint := &checkpoints.Checkpoint{
		Epoch:           epoch + 1,
		ModelName:       t.model.Name(),
		BestSensitivity: t.policy.BestSensitivity(),
		PatienceCounter: t.policy.PatienceCounter(),
		Accuracy:        accuracy,
		Weights:         neural.ExtractWeights(t.model),
		OptimizerState:  t.opt.State(),
	}
	return t.saver.SaveCheckpoint(checkpoint, t.cfg.CheckpointPath)
}

// resume restores model weights, optimizer state, and best-model tracking
// from a checkpoint. A missing or incompatible checkpoint aborts the run.
func (t *Trainer) resume(path string) error {
	checkpoint, err := t.saver.LoadCheckpoint(path)
	if err != nil {
		return err
	}

	if checkpoint.ModelName != t.model.Name() {
		return fmt.Errorf("checkpoint is for model %q, configured model is %q",
			checkpoint.ModelName, t.model.Name())
	}

	if err := neural.LoadWeights(t.model, checkpoint.Weights); err != nil {
		return err
	}
	if checkpoint.OptimizerState != nil {
		if err := t.opt.LoadState(checkpoint.OptimizerState); err != nil {
			return err
		}
	}
	if err := t.policy.Restore(checkpoint.BestSensitivity, checkpoint.PatienceCounter); err != nil {
		return err
	}

	t.startEpoch = checkpoint.Epoch
	fmt.Printf("resumed from %s at epoch %d (best sensitivity %f)\n",
		path, t.startEpoch, checkpoint.BestSensitivity)
	return nil
}
