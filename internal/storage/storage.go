// Package storage provides persistence for load-test runs: one row per run,
// one row per sent transaction, and the addresses of plan-deployed contracts.
package storage

import "context"

// Run represents one load-test run.
type Run struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	TimestampMs int64  `json:"timestampMs"`
}

// RunTx records a single sent transaction within a run.
type RunTx struct {
	RunID       int64  `json:"runId"`
	TxHash      string `json:"txHash"`
	TimestampMs int64  `json:"timestampMs"`
}

// NamedContract records a contract deployed by a plan's create phase, keyed
// by the plan's symbolic name.
type NamedContract struct {
	Name     string `json:"name"`
	Address  string `json:"address"`
	TxHash   string `json:"txHash"`
}

// Storage is the persistence contract consumed by the generator core. The
// implementation must support concurrent writers: send-completion notifier
// tasks insert run transactions in parallel.
type Storage interface {
	// InsertRun records a new run and returns its identifier.
	InsertRun(ctx context.Context, name string, timestampMs int64) (int64, error)

	// InsertRunTx records a sent transaction for a run.
	InsertRunTx(ctx context.Context, runID int64, txHash string, timestampMs int64) error

	// RunTxs returns all transactions recorded for a run, in insert order.
	RunTxs(ctx context.Context, runID int64) ([]RunTx, error)

	// ListRuns returns the most recent runs, newest first.
	ListRuns(ctx context.Context, limit int) ([]Run, error)

	// InsertNamedContract records a deployed contract address.
	InsertNamedContract(ctx context.Context, name, address, txHash string) error

	// NamedContract returns the recorded contract, or nil when unknown.
	NamedContract(ctx context.Context, name string) (*NamedContract, error)

	// Close releases the underlying handle.
	Close() error
}
