package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage creates a file-backed SQLite storage instance. WAL mode
// keeps concurrent notifier writers from serializing on the file lock.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_journal=WAL&_sync=NORMAL&_busy_timeout=5000&_foreign_keys=ON", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &SQLiteStorage{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

// NewMemory creates an in-memory instance for tests. A single connection is
// enforced so the shared in-memory database is not dropped between calls.
func NewMemory() (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", "file::memory:?_foreign_keys=ON")
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &SQLiteStorage{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

// migrate runs database migrations.
func (s *SQLiteStorage) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		timestamp_ms INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS run_txs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL,
		tx_hash TEXT NOT NULL,
		timestamp_ms INTEGER NOT NULL,
		FOREIGN KEY (run_id) REFERENCES runs(id)
	);

	CREATE INDEX IF NOT EXISTS idx_run_txs_run ON run_txs(run_id);

	CREATE TABLE IF NOT EXISTS named_contracts (
		name TEXT PRIMARY KEY,
		address TEXT NOT NULL,
		tx_hash TEXT NOT NULL
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return nil
}

// InsertRun records a new run and returns its identifier.
func (s *SQLiteStorage) InsertRun(ctx context.Context, name string, timestampMs int64) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (name, timestamp_ms) VALUES (?, ?)`,
		name, timestampMs,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read run id: %w", err)
	}
	return id, nil
}

// InsertRunTx records a sent transaction for a run.
func (s *SQLiteStorage) InsertRunTx(ctx context.Context, runID int64, txHash string, timestampMs int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO run_txs (run_id, tx_hash, timestamp_ms) VALUES (?, ?, ?)`,
		runID, txHash, timestampMs,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run tx: %w", err)
	}
	return nil
}

// RunTxs returns all transactions recorded for a run, in insert order.
func (s *SQLiteStorage) RunTxs(ctx context.Context, runID int64) ([]RunTx, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, tx_hash, timestamp_ms FROM run_txs WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query run txs: %w", err)
	}
	defer rows.Close()

	var txs []RunTx
	for rows.Next() {
		var tx RunTx
		if err := rows.Scan(&tx.RunID, &tx.TxHash, &tx.TimestampMs); err != nil {
			return nil, fmt.Errorf("failed to scan run tx: %w", err)
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

// ListRuns returns the most recent runs, newest first.
func (s *SQLiteStorage) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, timestamp_ms FROM runs ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.Name, &run.TimestampMs); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// InsertNamedContract records a deployed contract address, replacing any
// previous deployment under the same name.
func (s *SQLiteStorage) InsertNamedContract(ctx context.Context, name, address, txHash string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO named_contracts (name, address, tx_hash) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET address = excluded.address, tx_hash = excluded.tx_hash`,
		name, address, txHash,
	)
	if err != nil {
		return fmt.Errorf("failed to insert named contract: %w", err)
	}
	return nil
}

// NamedContract returns the recorded contract, or nil when unknown.
func (s *SQLiteStorage) NamedContract(ctx context.Context, name string) (*NamedContract, error) {
	var nc NamedContract
	err := s.db.QueryRowContext(ctx,
		`SELECT name, address, tx_hash FROM named_contracts WHERE name = ?`,
		name,
	).Scan(&nc.Name, &nc.Address, &nc.TxHash)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query named contract: %w", err)
	}
	return &nc, nil
}

// Close releases the database handle.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
