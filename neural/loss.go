package neural

import (
	"fmt"
	"math"
)

// CrossEntropyLoss is softmax cross-entropy over logits with optional
// per-class weights. The reduction is the weighted mean: each sample's
// negative log-likelihood is scaled by the weight of its true class and the
// sum is divided by the total weight of the batch, matching the convention
// of weighted NLL in the major frameworks.
type CrossEntropyLoss struct {
	weights []float32
}

// NewCrossEntropyLoss creates a weighted cross-entropy criterion. A nil or
// empty weight slice means uniform class weights.
func NewCrossEntropyLoss(classWeights []float32) *CrossEntropyLoss {
	weights := make([]float32, len(classWeights))
	copy(weights, classWeights)
	return &CrossEntropyLoss{weights: weights}
}

func (c *CrossEntropyLoss) classWeight(class int32) float32 {
	if len(c.weights) == 0 {
		return 1
	}
	return c.weights[class]
}

func (c *CrossEntropyLoss) validate(logits [][]float32, labels []int32) error {
	if len(logits) == 0 {
		return fmt.Errorf("empty batch")
	}
	if len(logits) != len(labels) {
		return fmt.Errorf("batch size mismatch: %d logits rows, %d labels", len(logits), len(labels))
	}
	numClasses := len(logits[0])
	if len(c.weights) > 0 && len(c.weights) != numClasses {
		return fmt.Errorf("class weight count mismatch: %d weights, %d classes", len(c.weights), numClasses)
	}
	for i, label := range labels {
		if label < 0 || int(label) >= numClasses {
			return fmt.Errorf("label %d out of range [0, %d) at index %d", label, numClasses, i)
		}
	}
	return nil
}

// softmaxRow computes a numerically stable softmax of one logit row.
func softmaxRow(logits []float32) []float64 {
	maxLogit := logits[0]
	for _, v := range logits[1:] {
		if v > maxLogit {
			maxLogit = v
		}
	}

	probs := make([]float64, len(logits))
	var sum float64
	for i, v := range logits {
		e := math.Exp(float64(v - maxLogit))
		probs[i] = e
		sum += e
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

// Forward returns the weighted mean cross-entropy of the batch.
func (c *CrossEntropyLoss) Forward(logits [][]float32, labels []int32) (float64, error) {
	if err := c.validate(logits, labels); err != nil {
		return 0, err
	}

	var lossSum, weightSum float64
	for i, row := range logits {
		probs := softmaxRow(row)
		w := float64(c.classWeight(labels[i]))
		lossSum += w * -math.Log(math.Max(probs[labels[i]], 1e-12))
		weightSum += w
	}

	return lossSum / weightSum, nil
}

// Backward returns the gradient of the weighted mean loss with respect to
// the logits.
func (c *CrossEntropyLoss) Backward(logits [][]float32, labels []int32) ([][]float32, error) {
	if err := c.validate(logits, labels); err != nil {
		return nil, err
	}

	var weightSum float64
	for _, label := range labels {
		weightSum += float64(c.classWeight(label))
	}

	grads := make([][]float32, len(logits))
	for i, row := range logits {
		probs := softmaxRow(row)
		w := float64(c.classWeight(labels[i]))

		grad := make([]float32, len(row))
		for j := range row {
			p := probs[j]
			if int32(j) == labels[i] {
				p -= 1
			}
			grad[j] = float32(w * p / weightSum)
		}
		grads[i] = grad
	}

	return grads, nil
}
