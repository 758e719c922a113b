package training

import (
	"fmt"
)

// ArgMax returns the index of the largest value in a logit row.
func ArgMax(row []float32) int {
	maxIdx := 0
	maxVal := row[0]
	for i, v := range row[1:] {
		if v > maxVal {
			maxVal = v
			maxIdx = i + 1
		}
	}
	return maxIdx
}

// ConfusionMatrix accumulates classification results across batches.
type ConfusionMatrix struct {
	NumClasses   int
	Matrix       [][]int // [true_class][predicted_class]
	TotalSamples int
}

// NewConfusionMatrix creates a confusion matrix for numClasses classes.
func NewConfusionMatrix(numClasses int) *ConfusionMatrix {
	matrix := make([][]int, numClasses)
	for i := range matrix {
		matrix[i] = make([]int, numClasses)
	}
	return &ConfusionMatrix{
		NumClasses: numClasses,
		Matrix:     matrix,
	}
}

// Reset clears the confusion matrix.
func (cm *ConfusionMatrix) Reset() {
	for i := range cm.Matrix {
		for j := range cm.Matrix[i] {
			cm.Matrix[i][j] = 0
		}
	}
	cm.TotalSamples = 0
}

// Update records arg-max predictions for one batch of logits.
func (cm *ConfusionMatrix) Update(logits [][]float32, labels []int32) error {
	if len(logits) != len(labels) {
		return fmt.Errorf("batch size mismatch: %d logits rows, %d labels", len(logits), len(labels))
	}

	for i, row := range logits {
		if len(row) != cm.NumClasses {
			return fmt.Errorf("class count mismatch: expected %d, got %d", cm.NumClasses, len(row))
		}
		trueClass := int(labels[i])
		if trueClass < 0 || trueClass >= cm.NumClasses {
			return fmt.Errorf("label %d out of range [0, %d)", trueClass, cm.NumClasses)
		}
		cm.Matrix[trueClass][ArgMax(row)]++
		cm.TotalSamples++
	}

	return nil
}

// Accuracy returns the overall classification accuracy.
func (cm *ConfusionMatrix) Accuracy() float64 {
	if cm.TotalSamples == 0 {
		return 0
	}
	correct := 0
	for i := 0; i < cm.NumClasses; i++ {
		correct += cm.Matrix[i][i]
	}
	return float64(correct) / float64(cm.TotalSamples)
}

// Recall returns the sensitivity of one class: the fraction of its true
// instances predicted correctly.
func (cm *ConfusionMatrix) Recall(class int) float64 {
	if class < 0 || class >= cm.NumClasses {
		return 0
	}
	tp := cm.Matrix[class][class]
	actual := 0
	for _, count := range cm.Matrix[class] {
		actual += count
	}
	if actual == 0 {
		return 0
	}
	return float64(tp) / float64(actual)
}

// Precision returns the fraction of predictions for one class that were
// correct.
func (cm *ConfusionMatrix) Precision(class int) float64 {
	if class < 0 || class >= cm.NumClasses {
		return 0
	}
	tp := cm.Matrix[class][class]
	predicted := 0
	for i := 0; i < cm.NumClasses; i++ {
		predicted += cm.Matrix[i][class]
	}
	if predicted == 0 {
		return 0
	}
	return float64(tp) / float64(predicted)
}
