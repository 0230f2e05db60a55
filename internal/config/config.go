// Package config handles configuration loading and validation.
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds generator configuration.
type Config struct {
	RPCURL       string
	WSURL        string // WebSocket URL for newHeads (empty = derive from RPCURL)
	PlanPath     string // Path to the TOML test plan
	DatabasePath string // Path to SQLite database file
	RunName      string // Label stored with the run record
	SeedHex      string // Fuzzing seed as hex (empty = random per run)

	ChainID        int64
	GasTipCap      int64 // EIP-1559 priority fee (tip) in wei
	GasFeeCap      int64 // EIP-1559 max fee per gas in wei (0 = auto from chain)
	GasLimit       uint64
	DeployGasLimit uint64

	SpamCount  int           // Spam transactions per batch
	TxInterval time.Duration // Delay between sends within a batch

	PrivateKeys string // Comma-separated signer keys in hex
	MetricsAddr string // Prometheus listen address (empty = disabled)
}

// Defaults
const (
	DefaultRPCURL         = "http://localhost:8545"
	DefaultChainID        = 31337
	DefaultGasTipCap      = 1000000000 // 1 Gwei
	DefaultGasFeeCap      = 0          // 0 = auto-calculate from chain gas price
	DefaultGasLimit       = 500000
	DefaultDeployGasLimit = 3000000
	DefaultDatabasePath   = "./data/txforge.db"
	DefaultSpamCount      = 100
	DefaultMetricsAddr    = ":9090"
)

// Load reads configuration from environment variables and command-line flags.
// Command-line flags take precedence over environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		RPCURL:         DefaultRPCURL,
		ChainID:        DefaultChainID,
		GasTipCap:      DefaultGasTipCap,
		GasFeeCap:      DefaultGasFeeCap,
		GasLimit:       DefaultGasLimit,
		DeployGasLimit: DefaultDeployGasLimit,
		DatabasePath:   DefaultDatabasePath,
		SpamCount:      DefaultSpamCount,
		MetricsAddr:    DefaultMetricsAddr,
	}

	// Load from environment variables first
	if v := os.Getenv("RPC_URL"); v != "" {
		cfg.RPCURL = v
	}
	if v := os.Getenv("WS_URL"); v != "" {
		cfg.WSURL = v
	}
	if v := os.Getenv("PLAN_PATH"); v != "" {
		cfg.PlanPath = v
	}
	if v := os.Getenv("DATABASE_PATH"); v != "" {
		cfg.DatabasePath = v
	}
	if v := os.Getenv("SEED"); v != "" {
		cfg.SeedHex = v
	}
	if v := os.Getenv("PRIVATE_KEYS"); v != "" {
		cfg.PrivateKeys = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	if v := os.Getenv("CHAIN_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil && id > 0 {
			cfg.ChainID = id
		}
	}
	if v := os.Getenv("GAS_TIP_CAP"); v != "" {
		if tip, err := strconv.ParseInt(v, 10, 64); err == nil && tip > 0 {
			cfg.GasTipCap = tip
		}
	}
	if v := os.Getenv("GAS_FEE_CAP"); v != "" {
		if fee, err := strconv.ParseInt(v, 10, 64); err == nil && fee >= 0 {
			cfg.GasFeeCap = fee
		}
	}

	// Define command-line flags
	var (
		rpcURL      = flag.String("rpc", cfg.RPCURL, "Execution node RPC URL")
		wsURL       = flag.String("ws", cfg.WSURL, "WebSocket URL for newHeads (default: derived from -rpc)")
		planPath    = flag.String("plan", cfg.PlanPath, "Path to the TOML test plan")
		dbPath      = flag.String("db", cfg.DatabasePath, "Path to the SQLite database")
		runName     = flag.String("name", "", "Run label (default: plan file name)")
		seedHex     = flag.String("seed", cfg.SeedHex, "Fuzzing seed in hex (default: random)")
		chainID     = flag.Int64("chainid", cfg.ChainID, "Chain ID")
		gasTipCap   = flag.Int64("gastipcap", cfg.GasTipCap, "EIP-1559 priority fee (tip) in wei")
		gasFeeCap   = flag.Int64("gasfeecap", cfg.GasFeeCap, "EIP-1559 max fee per gas in wei (0=auto)")
		gasLimit    = flag.Uint64("gaslimit", cfg.GasLimit, "Gas limit for function calls")
		deployGas   = flag.Uint64("deploygaslimit", cfg.DeployGasLimit, "Gas limit for contract deployments")
		spamCount   = flag.Int("count", cfg.SpamCount, "Spam transactions per batch")
		txInterval  = flag.Duration("interval", 0, "Delay between sends within a batch")
		privateKeys = flag.String("keys", cfg.PrivateKeys, "Comma-separated signer private keys in hex")
		metricsAddr = flag.String("metrics", cfg.MetricsAddr, "Prometheus listen address (empty = disabled)")
	)

	flag.Parse()

	cfg.RPCURL = *rpcURL
	cfg.WSURL = *wsURL
	cfg.PlanPath = *planPath
	cfg.DatabasePath = *dbPath
	cfg.RunName = *runName
	cfg.SeedHex = *seedHex
	cfg.ChainID = *chainID
	cfg.GasTipCap = *gasTipCap
	cfg.GasFeeCap = *gasFeeCap
	cfg.GasLimit = *gasLimit
	cfg.DeployGasLimit = *deployGas
	cfg.SpamCount = *spamCount
	cfg.TxInterval = *txInterval
	cfg.PrivateKeys = *privateKeys
	cfg.MetricsAddr = *metricsAddr

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SignerKeys splits the configured private keys.
func (c *Config) SignerKeys() []string {
	if c.PrivateKeys == "" {
		return nil
	}
	parts := strings.Split(c.PrivateKeys, ",")
	keys := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			keys = append(keys, p)
		}
	}
	return keys
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.RPCURL == "" {
		return fmt.Errorf("RPC URL is required")
	}
	if c.PlanPath == "" {
		return fmt.Errorf("plan path is required")
	}
	if c.ChainID <= 0 {
		return fmt.Errorf("chain ID must be positive")
	}
	if c.GasTipCap <= 0 {
		return fmt.Errorf("gas tip cap must be positive")
	}
	// GasFeeCap can be 0 (auto-calculate from chain) or positive
	if c.GasFeeCap < 0 {
		return fmt.Errorf("gas fee cap cannot be negative")
	}
	if c.GasLimit == 0 {
		return fmt.Errorf("gas limit must be positive")
	}
	if c.DeployGasLimit == 0 {
		return fmt.Errorf("deploy gas limit must be positive")
	}
	if c.SpamCount <= 0 {
		return fmt.Errorf("spam count must be positive")
	}
	if c.TxInterval < 0 {
		return fmt.Errorf("tx interval cannot be negative")
	}
	if len(c.SignerKeys()) == 0 {
		return fmt.Errorf("at least one signer private key is required")
	}
	return nil
}
