// Command train runs the covid chest X-ray classifier training loop.
package main

import (
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/medvision-ml/covidtrain/training"
)

func main() {
	var cfg training.Config
	var classWeights string

	flag.StringVar(&cfg.Model, "model", "covidnet", "model architecture: covidnet or resnet")
	flag.IntVar(&cfg.NumClasses, "classes", 2, "number of output classes")
	flag.IntVar(&cfg.ImageSize, "image-size", 64, "square input edge in pixels")
	flag.Float64Var(&cfg.LearningRate, "lr", 0.001, "initial learning rate")
	flag.StringVar(&classWeights, "class-weights", "", "comma-separated loss weights, one per class")
	flag.IntVar(&cfg.BatchSize, "batch", 32, "combined batch size")
	flag.Float64Var(&cfg.CovidPercent, "covid-percent", 0.3, "fraction of each batch drawn from the covid pool")
	flag.Float64Var(&cfg.Factor, "factor", 0.1, "LR reduction factor on plateau")
	flag.IntVar(&cfg.Patience, "patience", 10, "non-improving epochs before an LR reduction")
	flag.IntVar(&cfg.Epochs, "epochs", 50, "number of training epochs")
	flag.Int64Var(&cfg.Seed, "seed", 42, "random seed")
	flag.StringVar(&cfg.TrainLabels, "train-txt", "", "training label file")
	flag.StringVar(&cfg.TrainFolder, "train-folder", "", "training image folder")
	flag.StringVar(&cfg.TestLabels, "test-txt", "", "test label file")
	flag.StringVar(&cfg.TestFolder, "test-folder", "", "test image folder")
	flag.StringVar(&cfg.Resume, "resume", "", "checkpoint to resume from")
	flag.StringVar(&cfg.CheckpointPath, "checkpoint", "best_model.ckpt", "best-model checkpoint path")
	flag.BoolVar(&cfg.CheckpointBinary, "checkpoint-binary", false, "write checkpoints in the binary wire format")
	flag.StringVar(&cfg.RunName, "name", "covidtrain", "run name for plotting and history")
	flag.StringVar(&cfg.PlotURL, "plot-url", "", "plotting sidecar base URL (empty disables)")
	flag.StringVar(&cfg.HistoryDB, "history-db", "", "sqlite run history path (empty disables)")
	flag.Float64Var(&cfg.AccuracyGate, "accuracy-gate", 0, "minimum validation accuracy before checkpointing (0 uses the default)")
	flag.Parse()

	if classWeights != "" {
		weights, err := parseWeights(classWeights)
		if err != nil {
			log.Fatalf("invalid -class-weights: %v", err)
		}
		cfg.ClassWeights = weights
	}

	trainer, err := training.NewTrainer(cfg)
	if err != nil {
		log.Fatal(err)
	}
	if err := trainer.Run(); err != nil {
		log.Fatal(err)
	}
}

func parseWeights(csv string) ([]float32, error) {
	parts := strings.Split(csv, ",")
	weights := make([]float32, len(parts))
	for i, part := range parts {
		value, err := strconv.ParseFloat(strings.TrimSpace(part), 32)
		if err != nil {
			return nil, fmt.Errorf("weight %d: %v", i, err)
		}
		weights[i] = float32(value)
	}
	return weights, nil
}
