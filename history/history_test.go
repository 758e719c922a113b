package history

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreRunLifecycle(t *testing.T) {
	store := openTestStore(t)

	runID, err := store.StartRun("exp-1", "covidnet")
	require.NoError(t, err)

	runs, err := store.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "exp-1", runs[0].Name)
	assert.Equal(t, "covidnet", runs[0].Model)
	assert.Nil(t, runs[0].FinishedAt)

	require.NoError(t, store.FinishRun(runID))

	runs, err = store.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.NotNil(t, runs[0].FinishedAt)
}

func TestStoreEpochRecords(t *testing.T) {
	store := openTestStore(t)

	runID, err := store.StartRun("exp-2", "resnet")
	require.NoError(t, err)

	records := []EpochRecord{
		{Epoch: 0, TrainLoss: 0.9, TrainAccuracy: 0.6, Sensitivity: 0.5, Accuracy: 0.7, LearningRate: 0.001},
		{Epoch: 1, TrainLoss: 0.5, TrainAccuracy: 0.8, Sensitivity: 0.85, Accuracy: 0.82, LearningRate: 0.001, Checkpointed: true},
	}
	for _, r := range records {
		require.NoError(t, store.RecordEpoch(runID, r))
	}

	stored, err := store.RunEpochs(runID)
	require.NoError(t, err)
	assert.Equal(t, records, stored)
}

func TestStoreRunsAreIsolated(t *testing.T) {
	store := openTestStore(t)

	first, err := store.StartRun("a", "covidnet")
	require.NoError(t, err)
	second, err := store.StartRun("b", "covidnet")
	require.NoError(t, err)

	require.NoError(t, store.RecordEpoch(first, EpochRecord{Epoch: 0, Accuracy: 0.5}))
	require.NoError(t, store.RecordEpoch(second, EpochRecord{Epoch: 0, Accuracy: 0.9}))

	epochs, err := store.RunEpochs(first)
	require.NoError(t, err)
	require.Len(t, epochs, 1)
	assert.Equal(t, 0.5, epochs[0].Accuracy)

	// Newest first.
	runs, err := store.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "b", runs[0].Name)
}

func TestOpenCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "history.db")
	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Close())
}
