package training

import (
	"fmt"
	"math"
	"math/rand"
)

// MinorityQuota returns how many samples of each batch come from the
// minority pool: round(batchSize*fraction), never less than one.
func MinorityQuota(batchSize int, fraction float64) int {
	quota := int(math.Round(float64(batchSize) * fraction))
	if quota < 1 {
		quota = 1
	}
	return quota
}

// BalancedSampler produces combined batches drawn from a majority
// (non-covid) and a minority (covid) pool at a configured mixing ratio. The
// majority pool drives epoch length; the minority portion of every batch is
// drawn from a freshly shuffled view of the full minority pool, so minority
// samples may repeat within an epoch.
type BalancedSampler struct {
	majority  *DataLoader
	minority  Dataset
	batchSize int
	quota     int
	rng       *rand.Rand
}

// NewBalancedSampler validates the batch composition and builds the sampler.
// An empty minority pool or a quota that leaves no room for majority samples
// is a fatal configuration error.
func NewBalancedSampler(majority, minority Dataset, batchSize int, fraction float64, rng *rand.Rand) (*BalancedSampler, error) {
	if batchSize < 1 {
		return nil, fmt.Errorf("batch size must be at least 1, got %d", batchSize)
	}
	if fraction < 0 || fraction > 1 {
		return nil, fmt.Errorf("minority fraction must be in [0,1], got %g", fraction)
	}
	if minority.Len() == 0 {
		return nil, fmt.Errorf("minority pool is empty: training cannot proceed")
	}

	quota := MinorityQuota(batchSize, fraction)
	majorityPerBatch := batchSize - quota
	if majorityPerBatch < 1 {
		return nil, fmt.Errorf("minority quota %d leaves no majority samples in a batch of %d",
			quota, batchSize)
	}

	majorityLoader, err := NewDataLoader(majority, majorityPerBatch, true, true, rng)
	if err != nil {
		return nil, fmt.Errorf("majority pool: %v", err)
	}

	return &BalancedSampler{
		majority:  majorityLoader,
		minority:  minority,
		batchSize: batchSize,
		quota:     quota,
		rng:       rng,
	}, nil
}

// NumBatches returns the epoch length: the number of full majority batches.
func (s *BalancedSampler) NumBatches() int {
	return s.majority.NumBatches()
}

// Quota returns the number of minority samples per batch.
func (s *BalancedSampler) Quota() int {
	return s.quota
}

// Reset starts a new epoch over the majority pool.
func (s *BalancedSampler) Reset() {
	s.majority.Reset()
}

// Next returns the next combined batch (majority samples first, then the
// minority draw), or nil when the majority pool is exhausted for this epoch.
func (s *BalancedSampler) Next() (*Batch, error) {
	majorityBatch, err := s.majority.Next()
	if err != nil {
		return nil, err
	}
	if majorityBatch == nil {
		return nil, nil
	}

	minorityBatch, err := s.drawMinority()
	if err != nil {
		return nil, err
	}

	combined := &Batch{
		Features: make([][]float32, 0, s.batchSize),
		Labels:   make([]int32, 0, s.batchSize),
	}
	combined.Features = append(combined.Features, majorityBatch.Features...)
	combined.Features = append(combined.Features, minorityBatch.Features...)
	combined.Labels = append(combined.Labels, majorityBatch.Labels...)
	combined.Labels = append(combined.Labels, minorityBatch.Labels...)

	return combined, nil
}

// drawMinority samples the minority quota from a fresh shuffle of the whole
// minority pool. If the pool is smaller than the quota, the draw restarts
// from the beginning of the same shuffled order.
func (s *BalancedSampler) drawMinority() (*Batch, error) {
	perm := s.rng.Perm(s.minority.Len())

	indices := make([]int, s.quota)
	for i := 0; i < s.quota; i++ {
		indices[i] = perm[i%len(perm)]
	}

	batch, err := loadBatch(s.minority, indices)
	if err != nil {
		return nil, fmt.Errorf("failed to load minority batch: %v", err)
	}
	return batch, nil
}
