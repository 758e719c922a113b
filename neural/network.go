package neural

import (
	"fmt"
	"math/rand"
)

// Dense is a fully connected layer with an optional fused ReLU activation.
// The weight is stored row-major as [outFeatures][inFeatures].
type Dense struct {
	weight *Parameter
	bias   *Parameter

	inFeatures  int
	outFeatures int
	relu        bool

	// Cached activations from the last training forward pass.
	input  [][]float32
	preact [][]float32
}

// NewDense creates a dense layer with He-uniform initialized weights.
func NewDense(name string, inFeatures, outFeatures int, relu bool, rng *rand.Rand) (*Dense, error) {
	if inFeatures <= 0 || outFeatures <= 0 {
		return nil, fmt.Errorf("invalid layer size %dx%d for %s", inFeatures, outFeatures, name)
	}

	weight, err := NewParameter(fmt.Sprintf("%s.weight", name), []int{outFeatures, inFeatures})
	if err != nil {
		return nil, err
	}
	bias, err := NewParameter(fmt.Sprintf("%s.bias", name), []int{outFeatures})
	if err != nil {
		return nil, err
	}

	kaimingInit(weight.Data, inFeatures, rng)

	return &Dense{
		weight:      weight,
		bias:        bias,
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
		relu:        relu,
	}, nil
}

// Forward computes the layer output for a batch of flat feature vectors.
// When train is true the inputs and pre-activations are cached for Backward.
func (d *Dense) Forward(x [][]float32, train bool) [][]float32 {
	out := make([][]float32, len(x))
	var preact [][]float32
	if d.relu {
		preact = make([][]float32, len(x))
	}

	for b, row := range x {
		y := make([]float32, d.outFeatures)
		for o := 0; o < d.outFeatures; o++ {
			sum := d.bias.Data[o]
			w := d.weight.Data[o*d.inFeatures : (o+1)*d.inFeatures]
			for i, v := range row {
				sum += w[i] * v
			}
			y[o] = sum
		}

		if d.relu {
			pre := make([]float32, d.outFeatures)
			copy(pre, y)
			preact[b] = pre
			for o := range y {
				if y[o] < 0 {
					y[o] = 0
				}
			}
		}
		out[b] = y
	}

	if train {
		d.input = x
		d.preact = preact
	}

	return out
}

// Backward accumulates weight and bias gradients from the upstream gradient
// and returns the gradient with respect to the layer input. Must follow a
// training-mode Forward call.
func (d *Dense) Backward(dout [][]float32) [][]float32 {
	dx := make([][]float32, len(dout))

	for b, dy := range dout {
		if d.relu {
			masked := make([]float32, len(dy))
			for o, g := range dy {
				if d.preact[b][o] > 0 {
					masked[o] = g
				}
			}
			dy = masked
		}

		row := d.input[b]
		dxRow := make([]float32, d.inFeatures)
		for o, g := range dy {
			if g == 0 {
				continue
			}
			d.bias.Grad[o] += g
			w := d.weight.Data[o*d.inFeatures : (o+1)*d.inFeatures]
			wg := d.weight.Grad[o*d.inFeatures : (o+1)*d.inFeatures]
			for i, v := range row {
				wg[i] += g * v
				dxRow[i] += g * w[i]
			}
		}
		dx[b] = dxRow
	}

	return dx
}

// Parameters returns the layer's trainable parameters.
func (d *Dense) Parameters() []*Parameter {
	return []*Parameter{d.weight, d.bias}
}

// feedForwardNet chains dense layers into a classifier ending in raw logits.
type feedForwardNet struct {
	name   string
	layers []*Dense
}

func (n *feedForwardNet) Name() string { return n.name }

func (n *feedForwardNet) Forward(x [][]float32, train bool) [][]float32 {
	out := x
	for _, layer := range n.layers {
		out = layer.Forward(out, train)
	}
	return out
}

func (n *feedForwardNet) Backward(dlogits [][]float32) {
	grad := dlogits
	for i := len(n.layers) - 1; i >= 0; i-- {
		grad = n.layers[i].Backward(grad)
	}
}

func (n *feedForwardNet) Parameters() []*Parameter {
	var params []*Parameter
	for _, layer := range n.layers {
		params = append(params, layer.Parameters()...)
	}
	return params
}

func (n *feedForwardNet) ZeroGrad() {
	for _, p := range n.Parameters() {
		p.ZeroGrad()
	}
}
