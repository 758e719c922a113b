package training

import (
	"fmt"
)

// DefaultAccuracyGate is the minimum validation accuracy an epoch must reach
// before its sensitivity is compared against the best so far.
const DefaultAccuracyGate = 0.80

// Config is the full configuration surface of a training run.
type Config struct {
	// Model selection and shape.
	Model      string // "covidnet" or "resnet"
	NumClasses int
	ImageSize  int // square input edge; feature dim is ImageSize*ImageSize

	// Optimization.
	LearningRate float64
	ClassWeights []float32 // loss weights, one per class; empty means uniform

	// Batch composition.
	BatchSize    int
	CovidPercent float64 // fraction of each batch drawn from the covid pool

	// Plateau LR schedule.
	Factor   float64 // multiplicative LR reduction
	Patience int     // non-improving epochs before a reduction

	Epochs int
	Seed   int64

	// Data locations.
	TrainLabels string
	TrainFolder string
	TestLabels  string
	TestFolder  string

	// Checkpointing.
	Resume           string // optional checkpoint to resume from
	CheckpointPath   string
	CheckpointBinary bool // binary wire format instead of JSON

	// Reporting.
	RunName   string
	PlotURL   string // empty disables the plotting sidecar
	HistoryDB string // empty disables the sqlite run history

	// AccuracyGate overrides DefaultAccuracyGate when positive.
	AccuracyGate float64
}

// Validate performs the fatal startup checks. Every violation here is a
// configuration error: training cannot proceed.
func (c *Config) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("no model selected")
	}
	if c.NumClasses < 2 {
		return fmt.Errorf("need at least 2 classes, got %d", c.NumClasses)
	}
	if c.ImageSize <= 0 {
		return fmt.Errorf("image size must be positive, got %d", c.ImageSize)
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("learning rate must be positive, got %g", c.LearningRate)
	}
	if len(c.ClassWeights) > 0 && len(c.ClassWeights) != c.NumClasses {
		return fmt.Errorf("class weight count mismatch: %d weights for %d classes",
			len(c.ClassWeights), c.NumClasses)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("batch size must be at least 1, got %d", c.BatchSize)
	}
	if c.CovidPercent < 0 || c.CovidPercent > 1 {
		return fmt.Errorf("covid percent must be in [0,1], got %g", c.CovidPercent)
	}
	if c.Factor <= 0 || c.Factor >= 1 {
		return fmt.Errorf("scheduler factor must be in (0,1), got %g", c.Factor)
	}
	if c.Patience < 1 {
		return fmt.Errorf("scheduler patience must be at least 1, got %d", c.Patience)
	}
	if c.Epochs < 1 {
		return fmt.Errorf("epoch count must be at least 1, got %d", c.Epochs)
	}
	if c.TrainLabels == "" || c.TrainFolder == "" {
		return fmt.Errorf("training label file and image folder are required")
	}
	if c.TestLabels == "" || c.TestFolder == "" {
		return fmt.Errorf("test label file and image folder are required")
	}
	if c.CheckpointPath == "" {
		return fmt.Errorf("checkpoint path is required")
	}
	return nil
}

func (c *Config) accuracyGate() float64 {
	if c.AccuracyGate > 0 {
		return c.AccuracyGate
	}
	return DefaultAccuracyGate
}
