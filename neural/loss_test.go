package neural

import (
	"math"
	"testing"
)

func TestCrossEntropyUniform(t *testing.T) {
	criterion := NewCrossEntropyLoss(nil)

	// Equal logits over two classes: loss is ln(2) regardless of the label.
	loss, err := criterion.Forward([][]float32{{0, 0}}, []int32{0})
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	if math.Abs(loss-math.Ln2) > 1e-9 {
		t.Errorf("expected ln(2)=%f, got %f", math.Ln2, loss)
	}
}

func TestCrossEntropyWeightedMean(t *testing.T) {
	criterion := NewCrossEntropyLoss([]float32{2, 1})

	logits := [][]float32{{1, 0}, {0, 0}}
	labels := []int32{0, 1}

	loss, err := criterion.Forward(logits, labels)
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}

	// Weighted mean: (w0*nll0 + w1*nll1) / (w0 + w1).
	nll0 := -math.Log(math.Exp(1) / (math.Exp(1) + 1))
	nll1 := math.Ln2
	expected := (2*nll0 + 1*nll1) / 3
	if math.Abs(loss-expected) > 1e-6 {
		t.Errorf("expected %f, got %f", expected, loss)
	}
}

func TestCrossEntropyBackward(t *testing.T) {
	criterion := NewCrossEntropyLoss(nil)

	grads, err := criterion.Backward([][]float32{{0, 0}}, []int32{0})
	if err != nil {
		t.Fatalf("Backward failed: %v", err)
	}

	// probs are [0.5, 0.5]; gradient is (p - onehot) / batch.
	if math.Abs(float64(grads[0][0])+0.5) > 1e-6 || math.Abs(float64(grads[0][1])-0.5) > 1e-6 {
		t.Errorf("expected [-0.5 0.5], got %v", grads[0])
	}
}

func TestCrossEntropyBackwardRowsSumToZero(t *testing.T) {
	criterion := NewCrossEntropyLoss([]float32{1, 5, 2})

	logits := [][]float32{{0.3, -1.2, 2.5}, {1.1, 0.4, -0.7}}
	grads, err := criterion.Backward(logits, []int32{2, 1})
	if err != nil {
		t.Fatalf("Backward failed: %v", err)
	}

	for i, row := range grads {
		var sum float64
		for _, g := range row {
			sum += float64(g)
		}
		if math.Abs(sum) > 1e-6 {
			t.Errorf("row %d gradient sums to %g, expected 0", i, sum)
		}
	}
}

func TestCrossEntropyValidation(t *testing.T) {
	tests := []struct {
		name    string
		weights []float32
		logits  [][]float32
		labels  []int32
	}{
		{"empty batch", nil, nil, nil},
		{"size mismatch", nil, [][]float32{{0, 0}}, []int32{0, 1}},
		{"label out of range", nil, [][]float32{{0, 0}}, []int32{2}},
		{"negative label", nil, [][]float32{{0, 0}}, []int32{-1}},
		{"weight count mismatch", []float32{1, 2, 3}, [][]float32{{0, 0}}, []int32{0}},
	}

	for _, tt := range tests {
		criterion := NewCrossEntropyLoss(tt.weights)
		if _, err := criterion.Forward(tt.logits, tt.labels); err == nil {
			t.Errorf("%s: expected Forward error", tt.name)
		}
		if _, err := criterion.Backward(tt.logits, tt.labels); err == nil {
			t.Errorf("%s: expected Backward error", tt.name)
		}
	}
}
