package neural

import (
	"fmt"
	"math/rand"
)

// newCovidNet builds the plain deep feed-forward variant: three ReLU hidden
// layers narrowing toward the class logits.
func newCovidNet(numClasses, inputDim int, rng *rand.Rand) (Model, error) {
	sizes := []int{inputDim, 512, 256, 128, numClasses}

	net := &feedForwardNet{name: CovidNet}
	for i := 0; i < len(sizes)-1; i++ {
		relu := i < len(sizes)-2 // final layer emits raw logits
		layer, err := NewDense(fmt.Sprintf("fc%d", i+1), sizes[i], sizes[i+1], relu, rng)
		if err != nil {
			return nil, err
		}
		net.layers = append(net.layers, layer)
	}

	return net, nil
}
