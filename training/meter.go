package training

// AverageMeter tracks a weighted running average of a scalar metric. The
// final average depends only on the multiset of (value, weight) pairs fed to
// Update, not on their order.
type AverageMeter struct {
	val       float64
	weighted  float64
	weightSum float64
}

// Reset clears the meter for a new epoch.
func (m *AverageMeter) Reset() {
	m.val = 0
	m.weighted = 0
	m.weightSum = 0
}

// Update records one observation with the given weight (typically the batch
// size that produced it).
func (m *AverageMeter) Update(value float64, weight int) {
	m.val = value
	m.weighted += value * float64(weight)
	m.weightSum += float64(weight)
}

// Value returns the most recently recorded value.
func (m *AverageMeter) Value() float64 {
	return m.val
}

// Average returns the weighted average of all recorded values.
func (m *AverageMeter) Average() float64 {
	if m.weightSum == 0 {
		return 0
	}
	return m.weighted / m.weightSum
}
