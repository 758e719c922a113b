package training

import (
	"fmt"

	"github.com/medvision-ml/covidtrain/neural"
)

// Evaluator is the validation oracle: given a model and held-out data it
// returns the sensitivity of the positive class and the overall accuracy,
// both in [0,1]. Implementations must not mutate model parameters.
type Evaluator interface {
	Evaluate(model neural.Model, loader *DataLoader) (sensitivity, accuracy float64, err error)
}

// ClassificationEvaluator evaluates a classifier over a test loader using a
// confusion matrix. Sensitivity is the recall of PositiveClass.
type ClassificationEvaluator struct {
	NumClasses    int
	PositiveClass int
}

// NewClassificationEvaluator creates an evaluator for the given class count
// and positive (covid) class index.
func NewClassificationEvaluator(numClasses, positiveClass int) (*ClassificationEvaluator, error) {
	if numClasses < 2 {
		return nil, fmt.Errorf("need at least 2 classes, got %d", numClasses)
	}
	if positiveClass < 0 || positiveClass >= numClasses {
		return nil, fmt.Errorf("positive class %d out of range [0, %d)", positiveClass, numClasses)
	}
	return &ClassificationEvaluator{
		NumClasses:    numClasses,
		PositiveClass: positiveClass,
	}, nil
}

// Evaluate runs one inference pass over the loader. Forward is invoked in
// inference mode: no activations are cached and no gradients accumulate.
func (e *ClassificationEvaluator) Evaluate(model neural.Model, loader *DataLoader) (float64, float64, error) {
	cm := NewConfusionMatrix(e.NumClasses)

	loader.Reset()
	for {
		batch, err := loader.Next()
		if err != nil {
			return 0, 0, fmt.Errorf("failed to fetch validation batch: %v", err)
		}
		if batch == nil {
			break
		}

		logits := model.Forward(batch.Features, false)
		if err := cm.Update(logits, batch.Labels); err != nil {
			return 0, 0, err
		}
	}

	if cm.TotalSamples == 0 {
		return 0, 0, fmt.Errorf("validation set produced no samples")
	}

	return cm.Recall(e.PositiveClass), cm.Accuracy(), nil
}
