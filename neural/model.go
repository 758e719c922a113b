package neural

import (
	"fmt"
	"math/rand"
)

// Model is the contract the training loop consumes: a classifier producing
// raw logits with explicit backpropagation and parameter access.
type Model interface {
	Name() string

	// Forward returns logits for a batch of flat feature vectors. When train
	// is true, activations are cached so a subsequent Backward can run.
	Forward(x [][]float32, train bool) [][]float32

	// Backward propagates the loss gradient with respect to the logits and
	// accumulates parameter gradients.
	Backward(dlogits [][]float32)

	Parameters() []*Parameter
	ZeroGrad()
}

// Registered architecture names. The set is closed: anything else is a
// configuration error, never a silent fallthrough.
const (
	CovidNet = "covidnet"
	ResNet   = "resnet"
)

// Build constructs a model variant by name.
func Build(name string, numClasses, inputDim int, rng *rand.Rand) (Model, error) {
	if numClasses < 2 {
		return nil, fmt.Errorf("need at least 2 classes, got %d", numClasses)
	}
	if inputDim <= 0 {
		return nil, fmt.Errorf("invalid input dimension %d", inputDim)
	}

	switch name {
	case CovidNet:
		return newCovidNet(numClasses, inputDim, rng)
	case ResNet:
		return newResNet(numClasses, inputDim, rng)
	default:
		return nil, fmt.Errorf("unknown model %q (supported: %s, %s)", name, CovidNet, ResNet)
	}
}
