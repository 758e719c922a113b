package neural

import (
	"fmt"
	"strings"

	"github.com/medvision-ml/covidtrain/checkpoints"
)

// ExtractWeights snapshots all model parameters as checkpoint weight tensors.
func ExtractWeights(m Model) []checkpoints.WeightTensor {
	params := m.Parameters()
	weights := make([]checkpoints.WeightTensor, 0, len(params))

	for _, p := range params {
		data := make([]float32, len(p.Data))
		copy(data, p.Data)
		shape := make([]int, len(p.Shape))
		copy(shape, p.Shape)

		kind := "weight"
		if strings.HasSuffix(p.Name, ".bias") {
			kind = "bias"
		}

		weights = append(weights, checkpoints.WeightTensor{
			Name:  p.Name,
			Shape: shape,
			Data:  data,
			Type:  kind,
		})
	}

	return weights
}

// LoadWeights restores model parameters from checkpoint weight tensors,
// matching by parameter name and validating shapes.
func LoadWeights(m Model, weights []checkpoints.WeightTensor) error {
	byName := make(map[string]checkpoints.WeightTensor, len(weights))
	for _, w := range weights {
		byName[w.Name] = w
	}

	for _, p := range m.Parameters() {
		w, ok := byName[p.Name]
		if !ok {
			return fmt.Errorf("checkpoint is missing weight %q", p.Name)
		}
		if len(w.Data) != len(p.Data) {
			return fmt.Errorf("weight %q size mismatch: model %d, checkpoint %d",
				p.Name, len(p.Data), len(w.Data))
		}
		if len(w.Shape) != len(p.Shape) {
			return fmt.Errorf("weight %q rank mismatch: model %v, checkpoint %v",
				p.Name, p.Shape, w.Shape)
		}
		for i, dim := range p.Shape {
			if w.Shape[i] != dim {
				return fmt.Errorf("weight %q shape mismatch: model %v, checkpoint %v",
					p.Name, p.Shape, w.Shape)
			}
		}
		copy(p.Data, w.Data)
	}

	return nil
}
