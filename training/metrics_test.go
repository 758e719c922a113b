package training

import (
	"math"
	"testing"
)

func TestArgMax(t *testing.T) {
	tests := []struct {
		row      []float32
		expected int
	}{
		{[]float32{0.1, 0.9}, 1},
		{[]float32{3, 1, 2}, 0},
		{[]float32{-5, -1, -3}, 1},
		{[]float32{1, 1}, 0}, // first wins on ties
	}
	for _, tt := range tests {
		if got := ArgMax(tt.row); got != tt.expected {
			t.Errorf("ArgMax(%v) = %d, expected %d", tt.row, got, tt.expected)
		}
	}
}

func TestConfusionMatrixMetrics(t *testing.T) {
	cm := NewConfusionMatrix(2)

	// Logits arranged for: TP=3, FN=1, TN=4, FP=2 with class 1 positive.
	logits := [][]float32{
		{0, 1}, {0, 1}, {0, 1}, {1, 0}, // four true positives, one missed
		{1, 0}, {1, 0}, {1, 0}, {1, 0}, // four true negatives
		{0, 1}, {0, 1}, // two false positives
	}
	labels := []int32{1, 1, 1, 1, 0, 0, 0, 0, 0, 0}

	if err := cm.Update(logits, labels); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if cm.TotalSamples != 10 {
		t.Errorf("expected 10 samples, got %d", cm.TotalSamples)
	}
	if math.Abs(cm.Accuracy()-0.7) > 1e-12 {
		t.Errorf("expected accuracy 0.7, got %v", cm.Accuracy())
	}
	if math.Abs(cm.Recall(1)-0.75) > 1e-12 {
		t.Errorf("expected recall 0.75, got %v", cm.Recall(1))
	}
	if math.Abs(cm.Precision(1)-0.6) > 1e-12 {
		t.Errorf("expected precision 0.6, got %v", cm.Precision(1))
	}
}

func TestConfusionMatrixIncrementalUpdates(t *testing.T) {
	whole := NewConfusionMatrix(3)
	parts := NewConfusionMatrix(3)

	logits := [][]float32{
		{2, 0, 1}, {0, 2, 1}, {1, 0, 2}, {2, 1, 0}, {0, 1, 2},
	}
	labels := []int32{0, 1, 1, 2, 2}

	if err := whole.Update(logits, labels); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	for i := range logits {
		if err := parts.Update(logits[i:i+1], labels[i:i+1]); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
	}

	if whole.Accuracy() != parts.Accuracy() {
		t.Errorf("accuracy differs: %v vs %v", whole.Accuracy(), parts.Accuracy())
	}
	for class := 0; class < 3; class++ {
		if whole.Recall(class) != parts.Recall(class) {
			t.Errorf("recall(%d) differs: %v vs %v", class, whole.Recall(class), parts.Recall(class))
		}
	}
}

func TestConfusionMatrixErrors(t *testing.T) {
	cm := NewConfusionMatrix(2)

	if err := cm.Update([][]float32{{0, 1}}, []int32{0, 1}); err == nil {
		t.Error("expected error for size mismatch")
	}
	if err := cm.Update([][]float32{{0, 1}}, []int32{5}); err == nil {
		t.Error("expected error for out-of-range label")
	}
}

func TestConfusionMatrixEmpty(t *testing.T) {
	cm := NewConfusionMatrix(2)
	if cm.Accuracy() != 0 || cm.Recall(1) != 0 || cm.Precision(1) != 0 {
		t.Error("empty matrix should report zero metrics")
	}
}
