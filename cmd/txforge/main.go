// txforge generates and sends transaction load from a declarative TOML plan:
// deploy the plan's contracts, run its one-time setup calls, then fire a
// batch of spam transactions with deterministic fuzzing.
package main

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gateway-fm/txforge/internal/account"
	"github.com/gateway-fm/txforge/internal/config"
	"github.com/gateway-fm/txforge/internal/fuzz"
	"github.com/gateway-fm/txforge/internal/metrics"
	"github.com/gateway-fm/txforge/internal/plan"
	"github.com/gateway-fm/txforge/internal/rpc"
	"github.com/gateway-fm/txforge/internal/scenario"
	"github.com/gateway-fm/txforge/internal/spammer"
	"github.com/gateway-fm/txforge/internal/storage"
	"github.com/gateway-fm/txforge/internal/watcher"
)

func main() {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	var level slog.Level
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	testPlan, err := plan.LoadFile(cfg.PlanPath)
	if err != nil {
		return err
	}

	seed := fuzz.NewSeed()
	if cfg.SeedHex != "" {
		if seed, err = fuzz.SeedFromHex(cfg.SeedHex); err != nil {
			return err
		}
	}
	logger.Info("fuzzing seed", "seed", seed.String())

	signers, err := account.FromHexKeys(cfg.SignerKeys())
	if err != nil {
		return err
	}

	client := rpc.NewHTTPClient(rpc.DefaultClientConfig(cfg.RPCURL))
	for _, signer := range signers {
		if err := signer.Resync(ctx, client); err != nil {
			return err
		}
	}

	db, err := storage.NewSQLiteStorage(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	var m *metrics.Metrics
	if cfg.MetricsAddr != "" {
		m = metrics.New(nil)
		go func() {
			logger.Info("metrics listening", "addr", cfg.MetricsAddr)
			if err := http.ListenAndServe(cfg.MetricsAddr, promhttp.Handler()); err != nil {
				logger.Error("metrics server failed", "error", err)
			}
		}()
	}

	if w, err := watcher.New(watcher.Config{
		WSURL:   cfg.WSURL,
		RPCURL:  cfg.RPCURL,
		Metrics: m,
		Logger:  logger,
	}); err == nil {
		go func() {
			if err := w.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Warn("head watcher stopped", "error", err)
			}
		}()
	}

	scn, err := scenario.New(scenario.Config{
		Plan:    testPlan,
		Seed:    seed,
		Signers: signers,
		DB:      db,
		Client:  client,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	// Prep sends (deployments and setup) are not recorded as run txs.
	prep := spammer.New(spammer.Config{
		Client:         client,
		ChainID:        big.NewInt(cfg.ChainID),
		GasTipCap:      big.NewInt(cfg.GasTipCap),
		GasFeeCap:      feeCap(cfg),
		GasLimit:       cfg.GasLimit,
		DeployGasLimit: cfg.DeployGasLimit,
		Metrics:        m,
		Logger:         logger,
	})

	if _, err := testPlan.CreateSteps(); err == nil {
		if err := prep.DeployAll(ctx, scn); err != nil {
			return err
		}
	}
	if _, err := testPlan.SetupSteps(); err == nil {
		setupTxs, err := scn.LoadTxs(ctx, scenario.SetupRequest())
		if err != nil {
			return err
		}
		countGenerated(m, "setup", len(setupTxs))
		if _, err := prep.SendBatch(ctx, scn, setupTxs, nil); err != nil {
			return err
		}
	}

	if _, err := testPlan.SpamSteps(); err != nil {
		if errors.Is(err, plan.ErrNoSpam) {
			logger.Info("plan has no spam phase, done")
			return nil
		}
		return err
	}

	runName := cfg.RunName
	if runName == "" {
		runName = filepath.Base(cfg.PlanPath)
	}
	runID, err := db.InsertRun(ctx, runName, time.Now().UnixMilli())
	if err != nil {
		return err
	}
	logger.Info("starting run", "run_id", runID, "name", runName, "count", cfg.SpamCount)

	spam := spammer.New(spammer.Config{
		Client:         client,
		ChainID:        big.NewInt(cfg.ChainID),
		GasTipCap:      big.NewInt(cfg.GasTipCap),
		GasFeeCap:      feeCap(cfg),
		GasLimit:       cfg.GasLimit,
		DeployGasLimit: cfg.DeployGasLimit,
		Interval:       cfg.TxInterval,
		Callback:       scenario.NewLogCallback(db, runID, logger),
		Metrics:        m,
		Logger:         logger,
	})

	spamTxs, err := scn.LoadTxs(ctx, scenario.SpamRequest(cfg.SpamCount, nil))
	if err != nil {
		return err
	}
	countGenerated(m, "spam", len(spamTxs))

	start := time.Now()
	hashes, err := spam.SendBatch(ctx, scn, spamTxs, nil)
	spam.Wait()
	logger.Info("run finished",
		"run_id", runID,
		"sent", len(hashes),
		"elapsed", time.Since(start).String(),
	)
	return err
}

// feeCap returns the configured fee cap, or nil for auto-derivation.
func feeCap(cfg *config.Config) *big.Int {
	if cfg.GasFeeCap > 0 {
		return big.NewInt(cfg.GasFeeCap)
	}
	return nil
}

func countGenerated(m *metrics.Metrics, phase string, n int) {
	if m != nil {
		m.TxGenerated.WithLabelValues(phase).Add(float64(n))
	}
}
