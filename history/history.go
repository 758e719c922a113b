// Package history records training runs and their per-epoch metrics in a
// local sqlite database, so past runs can be compared without rerunning.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store is a sqlite-backed run history.
type Store struct {
	db *sql.DB
}

// EpochRecord is one epoch's metrics for a run.
type EpochRecord struct {
	Epoch         int
	TrainLoss     float64
	TrainAccuracy float64
	Sensitivity   float64
	Accuracy      float64
	LearningRate  float64
	Checkpointed  bool
}

// RunRecord is a stored training run.
type RunRecord struct {
	ID         int64
	Name       string
	Model      string
	StartedAt  time.Time
	FinishedAt *time.Time
}

// Open opens (or creates) the history database at dbPath.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %v", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %v", err)
	}

	store := &Store{db: db}
	if err := store.createTables(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		model TEXT NOT NULL,
		started_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		finished_at TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS epochs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL,
		epoch INTEGER NOT NULL,
		train_loss FLOAT,
		train_accuracy FLOAT,
		sensitivity FLOAT,
		accuracy FLOAT,
		learning_rate FLOAT,
		checkpointed BOOLEAN,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (run_id) REFERENCES runs(id)
	);

	CREATE INDEX IF NOT EXISTS idx_epochs_run ON epochs(run_id, epoch);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create history tables: %v", err)
	}
	return nil
}

// StartRun inserts a new run and returns its id.
func (s *Store) StartRun(name, model string) (int64, error) {
	result, err := s.db.Exec(
		"INSERT INTO runs (name, model) VALUES (?, ?)",
		name, model,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to record run start: %v", err)
	}
	return result.LastInsertId()
}

// RecordEpoch appends one epoch's metrics to a run.
func (s *Store) RecordEpoch(runID int64, record EpochRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO epochs (run_id, epoch, train_loss, train_accuracy,
			sensitivity, accuracy, learning_rate, checkpointed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, record.Epoch, record.TrainLoss, record.TrainAccuracy,
		record.Sensitivity, record.Accuracy, record.LearningRate, record.Checkpointed,
	)
	if err != nil {
		return fmt.Errorf("failed to record epoch %d: %v", record.Epoch, err)
	}
	return nil
}

// FinishRun marks a run as completed.
func (s *Store) FinishRun(runID int64) error {
	_, err := s.db.Exec(
		"UPDATE runs SET finished_at = CURRENT_TIMESTAMP WHERE id = ?",
		runID,
	)
	if err != nil {
		return fmt.Errorf("failed to record run finish: %v", err)
	}
	return nil
}

// RunEpochs returns a run's epoch records ordered by epoch.
func (s *Store) RunEpochs(runID int64) ([]EpochRecord, error) {
	rows, err := s.db.Query(`
		SELECT epoch, train_loss, train_accuracy, sensitivity, accuracy,
			learning_rate, checkpointed
		FROM epochs WHERE run_id = ? ORDER BY epoch`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query epochs: %v", err)
	}
	defer rows.Close()

	var records []EpochRecord
	for rows.Next() {
		var r EpochRecord
		if err := rows.Scan(&r.Epoch, &r.TrainLoss, &r.TrainAccuracy,
			&r.Sensitivity, &r.Accuracy, &r.LearningRate, &r.Checkpointed); err != nil {
			return nil, fmt.Errorf("failed to scan epoch row: %v", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Runs returns all stored runs, newest first.
func (s *Store) Runs() ([]RunRecord, error) {
	rows, err := s.db.Query(
		"SELECT id, name, model, started_at, finished_at FROM runs ORDER BY id DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %v", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.ID, &r.Name, &r.Model, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %v", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
