package training

import (
	"fmt"
)

// CheckpointPolicy decides each epoch whether the current model is the new
// best. It is an accuracy-gated strict-improvement ratchet on the covid
// sensitivity: epochs below the accuracy gate are never compared, and a
// sensitivity that merely ties the best never saves.
type CheckpointPolicy struct {
	bestSensitivity float64
	patienceCounter int
	accuracyGate    float64
}

// NewCheckpointPolicy creates a policy with the given accuracy gate.
func NewCheckpointPolicy(accuracyGate float64) *CheckpointPolicy {
	if accuracyGate <= 0 {
		accuracyGate = DefaultAccuracyGate
	}
	return &CheckpointPolicy{accuracyGate: accuracyGate}
}

// Observe applies one epoch's validation metrics and reports whether a
// checkpoint should be written. Metrics outside [0,1] indicate an upstream
// contract violation and are rejected before touching the best tracker.
func (p *CheckpointPolicy) Observe(accuracy, sensitivity float64) (bool, error) {
	if accuracy < 0 || accuracy > 1 {
		return false, fmt.Errorf("accuracy %g outside [0,1]", accuracy)
	}
	if sensitivity < 0 || sensitivity > 1 {
		return false, fmt.Errorf("sensitivity %g outside [0,1]", sensitivity)
	}

	if accuracy < p.accuracyGate {
		return false, nil
	}

	if sensitivity > p.bestSensitivity {
		p.bestSensitivity = sensitivity
		return true, nil
	}
	return false, nil
}

// BestSensitivity returns the best qualifying sensitivity seen so far.
func (p *CheckpointPolicy) BestSensitivity() float64 {
	return p.bestSensitivity
}

// PatienceCounter returns the persisted patience field. It is carried
// through checkpoints for compatibility but does not drive any decision.
func (p *CheckpointPolicy) PatienceCounter() int {
	return p.patienceCounter
}

// Restore loads policy state from a checkpoint.
func (p *CheckpointPolicy) Restore(bestSensitivity float64, patienceCounter int) error {
	if bestSensitivity < 0 || bestSensitivity > 1 {
		return fmt.Errorf("checkpoint best sensitivity %g outside [0,1]", bestSensitivity)
	}
	p.bestSensitivity = bestSensitivity
	p.patienceCounter = patienceCounter
	return nil
}
