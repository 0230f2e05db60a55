package config

import (
	"reflect"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		RPCURL:         "http://localhost:8545",
		PlanPath:       "./plans/uniswap.toml",
		DatabasePath:   DefaultDatabasePath,
		ChainID:        31337,
		GasTipCap:      1000000000,
		GasFeeCap:      0,
		GasLimit:       500000,
		DeployGasLimit: 3000000,
		SpamCount:      100,
		PrivateKeys:    "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80",
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing RPC URL",
			mutate:  func(c *Config) { c.RPCURL = "" },
			wantErr: true,
		},
		{
			name:    "missing plan path",
			mutate:  func(c *Config) { c.PlanPath = "" },
			wantErr: true,
		},
		{
			name:    "invalid chain ID",
			mutate:  func(c *Config) { c.ChainID = 0 },
			wantErr: true,
		},
		{
			name:    "zero gas tip cap",
			mutate:  func(c *Config) { c.GasTipCap = 0 },
			wantErr: true,
		},
		{
			name:    "negative gas fee cap",
			mutate:  func(c *Config) { c.GasFeeCap = -1 },
			wantErr: true,
		},
		{
			name:    "auto gas fee cap is valid",
			mutate:  func(c *Config) { c.GasFeeCap = 0 },
			wantErr: false,
		},
		{
			name:    "zero gas limit",
			mutate:  func(c *Config) { c.GasLimit = 0 },
			wantErr: true,
		},
		{
			name:    "zero deploy gas limit",
			mutate:  func(c *Config) { c.DeployGasLimit = 0 },
			wantErr: true,
		},
		{
			name:    "zero spam count",
			mutate:  func(c *Config) { c.SpamCount = 0 },
			wantErr: true,
		},
		{
			name:    "negative interval",
			mutate:  func(c *Config) { c.TxInterval = -time.Second },
			wantErr: true,
		},
		{
			name:    "no signer keys",
			mutate:  func(c *Config) { c.PrivateKeys = "" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Config.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSignerKeys(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{
			name: "empty",
			raw:  "",
			want: nil,
		},
		{
			name: "single key",
			raw:  "0xabc",
			want: []string{"0xabc"},
		},
		{
			name: "multiple with whitespace",
			raw:  "0xabc, 0xdef ,0x123",
			want: []string{"0xabc", "0xdef", "0x123"},
		},
		{
			name: "trailing comma",
			raw:  "0xabc,",
			want: []string{"0xabc"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{PrivateKeys: tt.raw}
			got := cfg.SignerKeys()
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SignerKeys() = %v, want %v", got, tt.want)
			}
		})
	}
}
