package scenario

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/gateway-fm/txforge/internal/storage"
)

// RunIDKey is the metadata key a dispatcher may use to override the run
// identifier for a single send.
const RunIDKey = "run_id"

// OnTxSent is invoked exactly once per transaction, after it has left the
// dispatch boundary. Implementations must not delay the caller: any side
// work runs on a detached task. The returned channel is nil when no side
// work was spawned, otherwise it is closed when the task finishes, letting
// an orchestrator optionally await batch settlement.
type OnTxSent interface {
	OnTxSent(txHash common.Hash, req *NamedTxRequest, extra map[string]string) <-chan struct{}
}

// NoopCallback performs no post-send work.
type NoopCallback struct{}

// NewNoopCallback creates a no-op notifier.
func NewNoopCallback() *NoopCallback {
	return &NoopCallback{}
}

// OnTxSent returns immediately with no background task.
func (c *NoopCallback) OnTxSent(common.Hash, *NamedTxRequest, map[string]string) <-chan struct{} {
	return nil
}

// LogCallback persists every sent transaction asynchronously. The run
// identifier is fixed at construction; a malformed RunIDKey override in the
// metadata map is an error for that task only and skips persistence rather
// than falling back to a default run.
type LogCallback struct {
	db     storage.Storage
	runID  int64
	logger *slog.Logger
	now    func() time.Time
}

// NewLogCallback creates a logging notifier bound to a run.
func NewLogCallback(db storage.Storage, runID int64, logger *slog.Logger) *LogCallback {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogCallback{
		db:     db,
		runID:  runID,
		logger: logger,
		now:    time.Now,
	}
}

// OnTxSent spawns a detached task persisting (runID, txHash, timestamp).
// Persistence failures abort only the spawned task, never the batch.
func (c *LogCallback) OnTxSent(txHash common.Hash, req *NamedTxRequest, extra map[string]string) <-chan struct{} {
	runID := c.runID
	if raw, ok := extra[RunIDKey]; ok {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.logger.Error("invalid run_id override, dropping tx log",
				slog.String("run_id", raw),
				slog.String("tx", txHash.Hex()),
			)
			return nil
		}
		runID = parsed
	}

	timestamp := c.now().UnixMilli()
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := c.db.InsertRunTx(context.Background(), runID, txHash.Hex(), timestamp); err != nil {
			c.logger.Error("failed to persist sent tx",
				slog.Int64("run_id", runID),
				slog.String("tx", txHash.Hex()),
				slog.String("error", err.Error()),
			)
		}
	}()
	return done
}
