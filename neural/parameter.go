package neural

import (
	"fmt"
	"math"
	"math/rand"
)

// Parameter is a named, trainable tensor with its accumulated gradient.
// Data and Grad are flat row-major buffers; Shape describes the logical layout.
type Parameter struct {
	Name  string
	Shape []int
	Data  []float32
	Grad  []float32
}

// NewParameter creates a zero-initialized parameter with the given shape.
func NewParameter(name string, shape []int) (*Parameter, error) {
	if len(shape) == 0 {
		return nil, fmt.Errorf("shape cannot be empty")
	}

	size := 1
	for _, dim := range shape {
		if dim <= 0 {
			return nil, fmt.Errorf("invalid shape dimension: %d", dim)
		}
		size *= dim
	}

	shapeCopy := make([]int, len(shape))
	copy(shapeCopy, shape)

	return &Parameter{
		Name:  name,
		Shape: shapeCopy,
		Data:  make([]float32, size),
		Grad:  make([]float32, size),
	}, nil
}

// NumElems returns the total number of elements in the parameter.
func (p *Parameter) NumElems() int {
	return len(p.Data)
}

// ZeroGrad clears the accumulated gradient.
func (p *Parameter) ZeroGrad() {
	for i := range p.Grad {
		p.Grad[i] = 0
	}
}

// kaimingInit fills data with He-uniform values scaled by fan-in.
// Standard initialization for ReLU networks.
func kaimingInit(data []float32, fanIn int, rng *rand.Rand) {
	bound := float32(math.Sqrt(6.0 / float64(fanIn)))
	for i := range data {
		data[i] = (rng.Float32()*2 - 1) * bound
	}
}
