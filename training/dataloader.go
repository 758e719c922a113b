package training

import (
	"fmt"
	"math/rand"
	"sync"
)

// Dataset defines the methods all datasets must implement.
type Dataset interface {
	Len() int
	Get(idx int) (features []float32, label int32, err error)
}

// Batch is a fixed-size collection of flat feature vectors with their labels.
type Batch struct {
	Features [][]float32
	Labels   []int32
}

// Size returns the number of samples in the batch.
func (b *Batch) Size() int {
	return len(b.Labels)
}

// DataLoader provides batching and per-epoch shuffling over a Dataset.
type DataLoader struct {
	dataset   Dataset
	batchSize int
	shuffle   bool
	dropLast  bool
	rng       *rand.Rand
	indices   []int
	position  int
	mutex     sync.Mutex
}

// NewDataLoader creates a DataLoader. With dropLast set, a trailing partial
// batch is discarded so every batch has exactly batchSize samples.
func NewDataLoader(dataset Dataset, batchSize int, shuffle, dropLast bool, rng *rand.Rand) (*DataLoader, error) {
	if batchSize < 1 {
		return nil, fmt.Errorf("batch size must be at least 1, got %d", batchSize)
	}
	if dataset.Len() == 0 {
		return nil, fmt.Errorf("dataset is empty")
	}
	if dropLast && dataset.Len() < batchSize {
		return nil, fmt.Errorf("dataset has %d samples, fewer than one batch of %d",
			dataset.Len(), batchSize)
	}

	indices := make([]int, dataset.Len())
	for i := range indices {
		indices[i] = i
	}

	return &DataLoader{
		dataset:   dataset,
		batchSize: batchSize,
		shuffle:   shuffle,
		dropLast:  dropLast,
		rng:       rng,
		indices:   indices,
	}, nil
}

// NumBatches returns the number of batches in one epoch.
func (dl *DataLoader) NumBatches() int {
	if dl.dropLast {
		return len(dl.indices) / dl.batchSize
	}
	return (len(dl.indices) + dl.batchSize - 1) / dl.batchSize
}

// Reset rewinds the loader for a new epoch, reshuffling if configured.
func (dl *DataLoader) Reset() {
	dl.mutex.Lock()
	defer dl.mutex.Unlock()

	dl.position = 0

	if dl.shuffle {
		for i := len(dl.indices) - 1; i > 0; i-- {
			j := dl.rng.Intn(i + 1)
			dl.indices[i], dl.indices[j] = dl.indices[j], dl.indices[i]
		}
	}
}

// Next returns the next batch, or nil when the epoch is complete.
func (dl *DataLoader) Next() (*Batch, error) {
	dl.mutex.Lock()
	defer dl.mutex.Unlock()

	limit := len(dl.indices)
	if dl.dropLast {
		limit = dl.NumBatches() * dl.batchSize
	}
	if dl.position >= limit {
		return nil, nil // end of epoch
	}

	batchEnd := dl.position + dl.batchSize
	if batchEnd > limit {
		batchEnd = limit
	}

	batchIndices := dl.indices[dl.position:batchEnd]
	dl.position = batchEnd

	batch, err := loadBatch(dl.dataset, batchIndices)
	if err != nil {
		return nil, fmt.Errorf("failed to load batch: %v", err)
	}
	return batch, nil
}

// HasNext reports whether more batches remain in the current epoch.
func (dl *DataLoader) HasNext() bool {
	dl.mutex.Lock()
	defer dl.mutex.Unlock()

	limit := len(dl.indices)
	if dl.dropLast {
		limit = dl.NumBatches() * dl.batchSize
	}
	return dl.position < limit
}

// loadBatch gathers samples by index into a batch.
func loadBatch(dataset Dataset, indices []int) (*Batch, error) {
	if len(indices) == 0 {
		return nil, fmt.Errorf("empty batch indices")
	}

	batch := &Batch{
		Features: make([][]float32, 0, len(indices)),
		Labels:   make([]int32, 0, len(indices)),
	}

	for _, idx := range indices {
		features, label, err := dataset.Get(idx)
		if err != nil {
			return nil, fmt.Errorf("failed to load sample %d: %v", idx, err)
		}
		batch.Features = append(batch.Features, features)
		batch.Labels = append(batch.Labels, label)
	}

	return batch, nil
}

// SliceDataset is a basic in-memory Dataset for tests and simple use cases.
type SliceDataset struct {
	features [][]float32
	labels   []int32
}

// NewSliceDataset creates a SliceDataset from parallel slices.
func NewSliceDataset(features [][]float32, labels []int32) (*SliceDataset, error) {
	if len(features) != len(labels) {
		return nil, fmt.Errorf("features and labels must have the same length: got %d and %d",
			len(features), len(labels))
	}
	return &SliceDataset{features: features, labels: labels}, nil
}

// Len returns the number of samples in the dataset.
func (ds *SliceDataset) Len() int {
	return len(ds.labels)
}

// Get returns the sample at the given index.
func (ds *SliceDataset) Get(idx int) ([]float32, int32, error) {
	if idx < 0 || idx >= len(ds.labels) {
		return nil, 0, fmt.Errorf("index %d out of range [0, %d)", idx, len(ds.labels))
	}
	return ds.features[idx], ds.labels[idx], nil
}
