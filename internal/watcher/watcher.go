// Package watcher follows chain head announcements over WebSocket and
// mirrors them into the run metrics.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gorilla/websocket"

	"github.com/gateway-fm/txforge/internal/metrics"
)

// Config holds watcher settings.
type Config struct {
	// WSURL is the WebSocket endpoint. When empty it is derived from RPCURL.
	WSURL   string
	RPCURL  string
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// Watcher subscribes to newHeads and records block height and gas usage.
type Watcher struct {
	wsURL   string
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates a watcher. Returns an error when no endpoint can be resolved.
func New(cfg Config) (*Watcher, error) {
	wsURL := cfg.WSURL
	if wsURL == "" {
		wsURL = DeriveWSURL(cfg.RPCURL)
	}
	if wsURL == "" {
		return nil, fmt.Errorf("no WebSocket endpoint configured")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		wsURL:   wsURL,
		metrics: cfg.Metrics,
		logger:  logger,
	}, nil
}

// DeriveWSURL converts an HTTP RPC URL to its WebSocket equivalent.
// Non-HTTP URLs are returned unchanged.
func DeriveWSURL(rpcURL string) string {
	switch {
	case strings.HasPrefix(rpcURL, "http://"):
		return "ws://" + strings.TrimPrefix(rpcURL, "http://")
	case strings.HasPrefix(rpcURL, "https://"):
		return "wss://" + strings.TrimPrefix(rpcURL, "https://")
	default:
		return rpcURL
	}
}

// newHeadMsg is the subscription notification envelope for eth_subscribe.
type newHeadMsg struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  *struct {
		Result struct {
			Number  string `json:"number"`
			GasUsed string `json:"gasUsed"`
		} `json:"result"`
	} `json:"params"`
}

// Run connects, subscribes to newHeads, and consumes headers until the
// context is canceled or the connection drops. Connection failures are
// returned so the caller can decide whether to reconnect.
func (w *Watcher) Run(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, w.wsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", w.wsURL, err)
	}
	defer conn.Close()

	// Close the connection when the context ends so ReadJSON unblocks.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	subscribe := map[string]interface{}{
		"jsonrpc": "2.0",
		"method":  "eth_subscribe",
		"params":  []string{"newHeads"},
		"id":      1,
	}
	if err := conn.WriteJSON(subscribe); err != nil {
		return fmt.Errorf("failed to subscribe to newHeads: %w", err)
	}
	w.logger.Info("watching chain heads", slog.String("url", w.wsURL))

	for {
		var msg newHeadMsg
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				return nil
			}
			return fmt.Errorf("read failed: %w", err)
		}
		// The subscription confirmation has no params; skip it.
		if msg.Params == nil {
			continue
		}
		w.processHead(msg.Params.Result.Number, msg.Params.Result.GasUsed)
	}
}

func (w *Watcher) processHead(numberHex, gasUsedHex string) {
	number, err := hexutil.DecodeUint64(numberHex)
	if err != nil {
		w.logger.Debug("skipping malformed head", slog.String("number", numberHex))
		return
	}
	gasUsed, _ := hexutil.DecodeUint64(gasUsedHex)

	if w.metrics != nil {
		w.metrics.BlockHeight.Set(float64(number))
		w.metrics.BlockGasUsed.Set(float64(gasUsed))
	}
	w.logger.Debug("new head",
		slog.Uint64("number", number),
		slog.Uint64("gas_used", gasUsed),
	)
}
