// Package spammer dispatches materialized transaction batches: it signs each
// request with the scenario-chosen signer, submits it in index order, and
// fires the send-completion notifier. Notifier side work runs detached and
// never delays the next transaction.
package spammer

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/gateway-fm/txforge/internal/metrics"
	"github.com/gateway-fm/txforge/internal/rpc"
	"github.com/gateway-fm/txforge/internal/scenario"
)

// Config holds dispatch parameters.
type Config struct {
	Client         rpc.Client
	ChainID        *big.Int
	GasTipCap      *big.Int
	GasFeeCap      *big.Int // nil or zero = auto from eth_gasPrice
	GasLimit       uint64   // per function call
	DeployGasLimit uint64   // per contract deployment
	Interval       time.Duration
	Callback       scenario.OnTxSent
	Metrics        *metrics.Metrics
	Logger         *slog.Logger
}

// Spammer sends batches against one endpoint.
type Spammer struct {
	client         rpc.Client
	chainID        *big.Int
	gasTipCap      *big.Int
	gasFeeCap      *big.Int
	gasLimit       uint64
	deployGasLimit uint64
	interval       time.Duration
	callback       scenario.OnTxSent
	metrics        *metrics.Metrics
	logger         *slog.Logger

	handles []<-chan struct{}
}

// New creates a spammer.
func New(cfg Config) *Spammer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	callback := cfg.Callback
	if callback == nil {
		callback = scenario.NewNoopCallback()
	}
	gasLimit := cfg.GasLimit
	if gasLimit == 0 {
		gasLimit = 500000
	}
	deployGasLimit := cfg.DeployGasLimit
	if deployGasLimit == 0 {
		deployGasLimit = 3000000
	}
	return &Spammer{
		client:         cfg.Client,
		chainID:        cfg.ChainID,
		gasTipCap:      cfg.GasTipCap,
		gasFeeCap:      cfg.GasFeeCap,
		gasLimit:       gasLimit,
		deployGasLimit: deployGasLimit,
		interval:       cfg.Interval,
		callback:       callback,
		metrics:        cfg.Metrics,
		logger:         logger,
	}
}

// SendBatch signs and submits the requests in index order. The notifier is
// fired once per submitted transaction, after submission; its handles are
// collected for an optional Wait. A context abort stops further dispatch but
// does not retract in-flight notifier tasks.
func (sp *Spammer) SendBatch(ctx context.Context, scn *scenario.Scenario, reqs []*scenario.NamedTxRequest, extra map[string]string) ([]common.Hash, error) {
	feeCap, err := sp.resolveFeeCap(ctx)
	if err != nil {
		return nil, err
	}

	hashes := make([]common.Hash, 0, len(reqs))
	for i, req := range reqs {
		if err := ctx.Err(); err != nil {
			return hashes, err
		}

		hash, err := sp.sendOne(ctx, scn, req, i, feeCap)
		if err != nil {
			sp.countSent(req, "error")
			return hashes, fmt.Errorf("tx %d (%s): %w", i, req.Name, err)
		}
		sp.countSent(req, "ok")
		hashes = append(hashes, hash)

		if done := sp.callback.OnTxSent(hash, req, extra); done != nil {
			sp.handles = append(sp.handles, done)
		}

		if sp.interval > 0 && i < len(reqs)-1 {
			select {
			case <-ctx.Done():
				return hashes, ctx.Err()
			case <-time.After(sp.interval):
			}
		}
	}
	return hashes, nil
}

func (sp *Spammer) sendOne(ctx context.Context, scn *scenario.Scenario, req *scenario.NamedTxRequest, index int, feeCap *big.Int) (common.Hash, error) {
	signer := scn.SignerFor(req, index)

	nonce := signer.ReserveNonce()
	defer nonce.Rollback()

	gasLimit := sp.gasLimit
	if req.To == nil {
		gasLimit = sp.deployGasLimit
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   sp.chainID,
		Nonce:     nonce.Value(),
		GasTipCap: sp.gasTipCap,
		GasFeeCap: feeCap,
		Gas:       gasLimit,
		To:        req.To,
		Value:     req.Value,
		Data:      req.Data,
	})
	signed, err := types.SignTx(tx, types.NewLondonSigner(sp.chainID), signer.PrivateKey)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign: %w", err)
	}
	raw, err := signed.MarshalBinary()
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to encode: %w", err)
	}

	hash, err := sp.client.SendRawTransaction(ctx, raw)
	if err != nil {
		return common.Hash{}, err
	}
	nonce.Commit()

	sp.logger.Debug("sent tx",
		slog.String("name", req.Name),
		slog.String("hash", hash.Hex()),
		slog.Uint64("nonce", nonce.Value()),
	)
	return hash, nil
}

// Wait blocks until every notifier task spawned so far has finished. Default
// behavior is fire-and-forget; callers that need batch settlement call this.
func (sp *Spammer) Wait() {
	for _, done := range sp.handles {
		<-done
	}
	sp.handles = nil
}

// Deploy submits a create-phase request, waits for its receipt, and
// registers the deployed address with the scenario.
func (sp *Spammer) Deploy(ctx context.Context, scn *scenario.Scenario, req *scenario.NamedTxRequest) (common.Address, error) {
	if req.ContractName == "" {
		return common.Address{}, fmt.Errorf("%s is not a deployment request", req.Name)
	}

	feeCap, err := sp.resolveFeeCap(ctx)
	if err != nil {
		return common.Address{}, err
	}
	hash, err := sp.sendOne(ctx, scn, req, 0, feeCap)
	if err != nil {
		return common.Address{}, fmt.Errorf("deploy %s: %w", req.ContractName, err)
	}

	addr, err := sp.awaitDeployment(ctx, hash)
	if err != nil {
		return common.Address{}, fmt.Errorf("deploy %s: %w", req.ContractName, err)
	}
	if err := scn.RegisterContract(ctx, req.ContractName, addr, hash); err != nil {
		return common.Address{}, err
	}
	if sp.metrics != nil {
		sp.metrics.ContractsDeployed.Inc()
	}
	return addr, nil
}

// DeployAll materializes and executes the whole create phase in declared
// order, making each deployed address available to subsequent steps.
func (sp *Spammer) DeployAll(ctx context.Context, scn *scenario.Scenario) error {
	reqs, err := scn.LoadTxs(ctx, scenario.CreateRequest())
	if err != nil {
		return err
	}
	for _, req := range reqs {
		addr, err := sp.Deploy(ctx, scn, req)
		if err != nil {
			return err
		}
		sp.logger.Info("deployed contract",
			slog.String("name", req.ContractName),
			slog.String("address", addr.Hex()),
		)
	}
	return nil
}

func (sp *Spammer) awaitDeployment(ctx context.Context, hash common.Hash) (common.Address, error) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return common.Address{}, ctx.Err()
		case <-ticker.C:
		}

		receipt, err := sp.client.GetTransactionReceipt(ctx, hash)
		if err != nil {
			sp.logger.Debug("receipt poll failed", slog.String("error", err.Error()))
			continue
		}
		if receipt == nil {
			continue
		}
		if receipt.Status != 1 {
			return common.Address{}, fmt.Errorf("deployment tx %s reverted", hash.Hex())
		}
		if receipt.ContractAddress == nil {
			return common.Address{}, fmt.Errorf("deployment tx %s has no contract address", hash.Hex())
		}
		return *receipt.ContractAddress, nil
	}
}

// resolveFeeCap returns the configured fee cap, or derives one from the
// node's gas price when unset.
func (sp *Spammer) resolveFeeCap(ctx context.Context) (*big.Int, error) {
	if sp.gasFeeCap != nil && sp.gasFeeCap.Sign() > 0 {
		return sp.gasFeeCap, nil
	}
	gasPrice, err := sp.client.GetGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch gas price: %w", err)
	}
	feeCap := new(big.Int).SetUint64(gasPrice)
	feeCap.Mul(feeCap, big.NewInt(2))
	if sp.gasTipCap != nil {
		feeCap.Add(feeCap, sp.gasTipCap)
	}
	return feeCap, nil
}

func (sp *Spammer) countSent(req *scenario.NamedTxRequest, status string) {
	if sp.metrics == nil {
		return
	}
	sp.metrics.TxSent.WithLabelValues(req.Phase.String(), status).Inc()
}
