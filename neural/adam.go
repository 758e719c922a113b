package neural

import (
	"fmt"
	"math"

	"github.com/medvision-ml/covidtrain/checkpoints"
)

// Adam implements the Adam optimizer over a model's parameters, with state
// extraction for checkpointing.
type Adam struct {
	params []*Parameter

	lr    float32
	beta1 float32
	beta2 float32
	eps   float32

	stepCount uint64
	m         [][]float32 // first moment per parameter
	v         [][]float32 // second moment per parameter
}

// NewAdam creates an Adam optimizer with the standard beta/epsilon defaults.
func NewAdam(params []*Parameter, lr float32) (*Adam, error) {
	if len(params) == 0 {
		return nil, fmt.Errorf("no parameters to optimize")
	}
	if lr <= 0 {
		return nil, fmt.Errorf("learning rate must be positive, got %g", lr)
	}

	m := make([][]float32, len(params))
	v := make([][]float32, len(params))
	for i, p := range params {
		m[i] = make([]float32, p.NumElems())
		v[i] = make([]float32, p.NumElems())
	}

	return &Adam{
		params: params,
		lr:     lr,
		beta1:  0.9,
		beta2:  0.999,
		eps:    1e-8,
		m:      m,
		v:      v,
	}, nil
}

// Step applies one Adam update using the gradients currently accumulated on
// the parameters.
func (a *Adam) Step() {
	a.stepCount++

	biasCorr1 := 1.0 - math.Pow(float64(a.beta1), float64(a.stepCount))
	biasCorr2 := 1.0 - math.Pow(float64(a.beta2), float64(a.stepCount))

	for pi, p := range a.params {
		m := a.m[pi]
		v := a.v[pi]
		for i, g := range p.Grad {
			m[i] = a.beta1*m[i] + (1-a.beta1)*g
			v[i] = a.beta2*v[i] + (1-a.beta2)*g*g

			mHat := float64(m[i]) / biasCorr1
			vHat := float64(v[i]) / biasCorr2

			p.Data[i] -= float32(float64(a.lr) * mHat / (math.Sqrt(vHat) + float64(a.eps)))
		}
	}
}

// ZeroGrad clears the gradients of all managed parameters.
func (a *Adam) ZeroGrad() {
	for _, p := range a.params {
		p.ZeroGrad()
	}
}

// LR returns the current learning rate.
func (a *Adam) LR() float32 {
	return a.lr
}

// SetLR updates the learning rate; used by the plateau scheduler.
func (a *Adam) SetLR(lr float32) {
	a.lr = lr
}

// StepCount returns the number of optimization steps taken.
func (a *Adam) StepCount() uint64 {
	return a.stepCount
}

// State extracts the full optimizer state for checkpointing.
func (a *Adam) State() *checkpoints.OptimizerState {
	state := &checkpoints.OptimizerState{
		Type: "Adam",
		Parameters: map[string]float64{
			"learning_rate": float64(a.lr),
			"beta1":         float64(a.beta1),
			"beta2":         float64(a.beta2),
			"epsilon":       float64(a.eps),
			"step_count":    float64(a.stepCount),
		},
	}

	for pi, p := range a.params {
		mData := make([]float32, len(a.m[pi]))
		copy(mData, a.m[pi])
		vData := make([]float32, len(a.v[pi]))
		copy(vData, a.v[pi])

		shape := make([]int, len(p.Shape))
		copy(shape, p.Shape)

		state.StateData = append(state.StateData,
			checkpoints.OptimizerTensor{
				Name:      fmt.Sprintf("m_%d", pi),
				Shape:     shape,
				Data:      mData,
				StateType: "momentum",
			},
			checkpoints.OptimizerTensor{
				Name:      fmt.Sprintf("v_%d", pi),
				Shape:     shape,
				Data:      vData,
				StateType: "variance",
			},
		)
	}

	return state
}

// LoadState restores optimizer state from a checkpoint.
func (a *Adam) LoadState(state *checkpoints.OptimizerState) error {
	if state == nil {
		return fmt.Errorf("nil optimizer state")
	}
	if state.Type != "Adam" {
		return fmt.Errorf("state type mismatch: expected Adam, got %s", state.Type)
	}
	if len(state.StateData) != 2*len(a.params) {
		return fmt.Errorf("state tensor count mismatch: expected %d, got %d",
			2*len(a.params), len(state.StateData))
	}

	for _, tensor := range state.StateData {
		var pi int
		var dst []float32
		switch tensor.StateType {
		case "momentum":
			if _, err := fmt.Sscanf(tensor.Name, "m_%d", &pi); err != nil {
				return fmt.Errorf("malformed momentum tensor name %q", tensor.Name)
			}
		case "variance":
			if _, err := fmt.Sscanf(tensor.Name, "v_%d", &pi); err != nil {
				return fmt.Errorf("malformed variance tensor name %q", tensor.Name)
			}
		default:
			return fmt.Errorf("unknown optimizer state type %q", tensor.StateType)
		}

		if pi < 0 || pi >= len(a.params) {
			return fmt.Errorf("state tensor %q references parameter %d of %d", tensor.Name, pi, len(a.params))
		}
		if tensor.StateType == "momentum" {
			dst = a.m[pi]
		} else {
			dst = a.v[pi]
		}
		if len(tensor.Data) != len(dst) {
			return fmt.Errorf("state tensor %q size mismatch: expected %d, got %d",
				tensor.Name, len(dst), len(tensor.Data))
		}
		copy(dst, tensor.Data)
	}

	if lr, ok := state.Parameters["learning_rate"]; ok {
		a.lr = float32(lr)
	}
	if steps, ok := state.Parameters["step_count"]; ok {
		a.stepCount = uint64(steps)
	}

	return nil
}
