package training

import (
	"math/rand"
	"testing"
)

// constDataset serves index-valued features with a fixed label.
type constDataset struct {
	n     int
	label int32
	dim   int
}

func (d *constDataset) Len() int { return d.n }

func (d *constDataset) Get(idx int) ([]float32, int32, error) {
	features := make([]float32, d.dim)
	features[0] = float32(idx)
	return features, d.label, nil
}

func TestMinorityQuota(t *testing.T) {
	tests := []struct {
		batchSize int
		fraction  float64
		expected  int
	}{
		{10, 0.3, 3},
		{10, 0.25, 3}, // 2.5 rounds up
		{10, 0.24, 2},
		{32, 0.3, 10},
		{10, 0.0, 1}, // floor of one minority sample
		{4, 0.01, 1},
	}

	for _, tt := range tests {
		if got := MinorityQuota(tt.batchSize, tt.fraction); got != tt.expected {
			t.Errorf("MinorityQuota(%d, %g) = %d, expected %d",
				tt.batchSize, tt.fraction, got, tt.expected)
		}
	}
}

func TestBalancedSamplerBatchComposition(t *testing.T) {
	majority := &constDataset{n: 50, label: 0, dim: 4}
	minority := &constDataset{n: 12, label: 1, dim: 4}
	rng := rand.New(rand.NewSource(3))

	sampler, err := NewBalancedSampler(majority, minority, 10, 0.3, rng)
	if err != nil {
		t.Fatalf("NewBalancedSampler failed: %v", err)
	}
	if sampler.Quota() != 3 {
		t.Fatalf("expected quota 3, got %d", sampler.Quota())
	}
	// 50 majority samples at 7 per batch, partial batch dropped.
	if sampler.NumBatches() != 7 {
		t.Fatalf("expected 7 batches, got %d", sampler.NumBatches())
	}

	sampler.Reset()
	batches := 0
	for {
		batch, err := sampler.Next()
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		if batch == nil {
			break
		}
		batches++

		if batch.Size() != 10 {
			t.Fatalf("batch %d has size %d, expected 10", batches, batch.Size())
		}

		var covid int
		for _, label := range batch.Labels {
			if label == 1 {
				covid++
			}
		}
		if covid != 3 {
			t.Errorf("batch %d has %d covid samples, expected 3", batches, covid)
		}
		// Majority first, then the minority draw.
		for i, label := range batch.Labels {
			if i < 7 && label != 0 {
				t.Errorf("batch %d position %d: expected majority label", batches, i)
			}
			if i >= 7 && label != 1 {
				t.Errorf("batch %d position %d: expected minority label", batches, i)
			}
		}
	}
	if batches != sampler.NumBatches() {
		t.Errorf("produced %d batches, expected %d", batches, sampler.NumBatches())
	}
}

func TestBalancedSamplerSmallMinorityWraps(t *testing.T) {
	majority := &constDataset{n: 20, label: 0, dim: 2}
	minority := &constDataset{n: 2, label: 1, dim: 2}
	rng := rand.New(rand.NewSource(9))

	sampler, err := NewBalancedSampler(majority, minority, 8, 0.5, rng)
	if err != nil {
		t.Fatalf("NewBalancedSampler failed: %v", err)
	}
	// Quota 4 from a pool of 2: draws must repeat within the batch.
	if sampler.Quota() != 4 {
		t.Fatalf("expected quota 4, got %d", sampler.Quota())
	}

	sampler.Reset()
	batch, err := sampler.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if batch == nil {
		t.Fatal("expected a batch")
	}
	if batch.Size() != 8 {
		t.Fatalf("expected batch size 8, got %d", batch.Size())
	}

	seen := map[float32]int{}
	for i := 4; i < 8; i++ {
		seen[batch.Features[i][0]]++
	}
	// Both minority samples appear exactly twice.
	if len(seen) != 2 || seen[0] != 2 || seen[1] != 2 {
		t.Errorf("unexpected minority draw distribution: %v", seen)
	}
}

func TestBalancedSamplerErrors(t *testing.T) {
	majority := &constDataset{n: 20, label: 0, dim: 2}
	minority := &constDataset{n: 5, label: 1, dim: 2}
	empty := &constDataset{n: 0, label: 1, dim: 2}
	rng := rand.New(rand.NewSource(1))

	if _, err := NewBalancedSampler(majority, empty, 10, 0.3, rng); err == nil {
		t.Error("expected error for empty minority pool")
	}
	if _, err := NewBalancedSampler(majority, minority, 0, 0.3, rng); err == nil {
		t.Error("expected error for zero batch size")
	}
	if _, err := NewBalancedSampler(majority, minority, 10, 1.5, rng); err == nil {
		t.Error("expected error for fraction above 1")
	}
	// Quota consumes the whole batch: no room for majority samples.
	if _, err := NewBalancedSampler(majority, minority, 2, 0.9, rng); err == nil {
		t.Error("expected error when quota fills the batch")
	}
}

func TestBalancedSamplerResetStartsNewEpoch(t *testing.T) {
	majority := &constDataset{n: 12, label: 0, dim: 2}
	minority := &constDataset{n: 3, label: 1, dim: 2}
	rng := rand.New(rand.NewSource(5))

	sampler, err := NewBalancedSampler(majority, minority, 4, 0.25, rng)
	if err != nil {
		t.Fatalf("NewBalancedSampler failed: %v", err)
	}

	for epoch := 0; epoch < 2; epoch++ {
		sampler.Reset()
		count := 0
		for {
			batch, err := sampler.Next()
			if err != nil {
				t.Fatalf("Next failed: %v", err)
			}
			if batch == nil {
				break
			}
			count++
		}
		if count != sampler.NumBatches() {
			t.Errorf("epoch %d produced %d batches, expected %d", epoch, count, sampler.NumBatches())
		}
	}
}
