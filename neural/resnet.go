package neural

import (
	"fmt"
	"math/rand"
)

const (
	resnetWidth  = 256
	resnetBlocks = 2
)

// residualBlock is two dense layers with an identity skip connection and a
// ReLU applied to the sum, keeping the feature width constant.
type residualBlock struct {
	fc1 *Dense // with ReLU
	fc2 *Dense // linear

	// Pre-ReLU sum cached during training for the backward mask.
	sum [][]float32
}

func newResidualBlock(name string, width int, rng *rand.Rand) (*residualBlock, error) {
	fc1, err := NewDense(name+".fc1", width, width, true, rng)
	if err != nil {
		return nil, err
	}
	fc2, err := NewDense(name+".fc2", width, width, false, rng)
	if err != nil {
		return nil, err
	}
	return &residualBlock{fc1: fc1, fc2: fc2}, nil
}

func (b *residualBlock) forward(x [][]float32, train bool) [][]float32 {
	h := b.fc1.Forward(x, train)
	y := b.fc2.Forward(h, train)

	out := make([][]float32, len(x))
	var sum [][]float32
	if train {
		sum = make([][]float32, len(x))
	}

	for i := range x {
		s := make([]float32, len(y[i]))
		for j := range s {
			s[j] = y[i][j] + x[i][j]
		}
		if train {
			cached := make([]float32, len(s))
			copy(cached, s)
			sum[i] = cached
		}
		for j := range s {
			if s[j] < 0 {
				s[j] = 0
			}
		}
		out[i] = s
	}

	if train {
		b.sum = sum
	}
	return out
}

func (b *residualBlock) backward(dout [][]float32) [][]float32 {
	// Gradient through the post-sum ReLU.
	ds := make([][]float32, len(dout))
	for i, dy := range dout {
		row := make([]float32, len(dy))
		for j, g := range dy {
			if b.sum[i][j] > 0 {
				row[j] = g
			}
		}
		ds[i] = row
	}

	dh := b.fc2.Backward(ds)
	dx := b.fc1.Backward(dh)

	// Add the skip path.
	for i := range dx {
		for j := range dx[i] {
			dx[i][j] += ds[i][j]
		}
	}
	return dx
}

func (b *residualBlock) parameters() []*Parameter {
	return append(b.fc1.Parameters(), b.fc2.Parameters()...)
}

// resNet projects the input to a fixed width, runs residual blocks, and maps
// to class logits.
type resNet struct {
	proj   *Dense
	blocks []*residualBlock
	head   *Dense
}

func newResNet(numClasses, inputDim int, rng *rand.Rand) (Model, error) {
	proj, err := NewDense("proj", inputDim, resnetWidth, true, rng)
	if err != nil {
		return nil, err
	}

	blocks := make([]*residualBlock, 0, resnetBlocks)
	for i := 0; i < resnetBlocks; i++ {
		block, err := newResidualBlock(fmt.Sprintf("block%d", i+1), resnetWidth, rng)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, block)
	}

	head, err := NewDense("head", resnetWidth, numClasses, false, rng)
	if err != nil {
		return nil, err
	}

	return &resNet{proj: proj, blocks: blocks, head: head}, nil
}

func (n *resNet) Name() string { return ResNet }

func (n *resNet) Forward(x [][]float32, train bool) [][]float32 {
	out := n.proj.Forward(x, train)
	for _, block := range n.blocks {
		out = block.forward(out, train)
	}
	return n.head.Forward(out, train)
}

func (n *resNet) Backward(dlogits [][]float32) {
	grad := n.head.Backward(dlogits)
	for i := len(n.blocks) - 1; i >= 0; i-- {
		grad = n.blocks[i].backward(grad)
	}
	n.proj.Backward(grad)
}

func (n *resNet) Parameters() []*Parameter {
	params := n.proj.Parameters()
	for _, block := range n.blocks {
		params = append(params, block.parameters()...)
	}
	return append(params, n.head.Parameters()...)
}

func (n *resNet) ZeroGrad() {
	for _, p := range n.Parameters() {
		p.ZeroGrad()
	}
}
