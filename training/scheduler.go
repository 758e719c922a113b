package training

// ReduceLROnPlateauScheduler reduces the learning rate when a monitored
// metric has stopped improving for a configured number of epochs.
type ReduceLROnPlateauScheduler struct {
	Factor    float64 // factor by which the learning rate will be reduced
	Patience  int     // epochs with no improvement before LR is reduced
	Threshold float64 // threshold for measuring the new optimum
	Mode      string  // "min" or "max"

	bestMetric  float64
	badEpochs   int
	currentLR   float64
	initialized bool
}

// NewReduceLROnPlateauScheduler creates a plateau-based scheduler.
func NewReduceLROnPlateauScheduler(factor float64, patience int, threshold float64, mode string) *ReduceLROnPlateauScheduler {
	if factor <= 0 || factor >= 1 {
		factor = 0.1
	}
	if patience <= 0 {
		patience = 10
	}
	if threshold < 0 {
		threshold = 1e-4
	}
	if mode != "min" && mode != "max" {
		mode = "min"
	}

	return &ReduceLROnPlateauScheduler{
		Factor:    factor,
		Patience:  patience,
		Threshold: threshold,
		Mode:      mode,
	}
}

// Step updates plateau tracking with this epoch's metric and returns the
// learning rate to use going forward.
func (s *ReduceLROnPlateauScheduler) Step(metric float64, currentLR float64) float64 {
	if !s.initialized {
		s.bestMetric = metric
		s.currentLR = currentLR
		s.initialized = true
		return currentLR
	}

	improved := false
	if s.Mode == "min" {
		improved = metric < s.bestMetric-s.Threshold
	} else {
		improved = metric > s.bestMetric+s.Threshold
	}

	if improved {
		s.bestMetric = metric
		s.badEpochs = 0
	} else {
		s.badEpochs++
		if s.badEpochs >= s.Patience {
			s.currentLR *= s.Factor
			s.badEpochs = 0
		}
	}

	return s.currentLR
}

// BadEpochs returns the number of consecutive non-improving epochs seen
// since the last improvement or reduction.
func (s *ReduceLROnPlateauScheduler) BadEpochs() int {
	return s.badEpochs
}
