package main

import (
	"flag"
	"os"
	"strings"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr []string
	}{
		{
			name: "valid config",
			cfg: Config{
				StockFund:             defaultStockFund,
				MCXFund:               defaultSegmentFund,
				ForexFund:             defaultSegmentFund,
				CryptoFund:            defaultSegmentFund,
				LiquidationEpsilon:    defaultLiquidationEpsilon,
				ReconcileIntervalSecs: defaultReconcileIntervalSecs,
				DatabaseEndpoint:      "http://localhost:4001",
			},
			wantErr: nil,
		},
		{
			name: "missing database endpoint",
			cfg: Config{
				StockFund:             defaultStockFund,
				LiquidationEpsilon:    defaultLiquidationEpsilon,
				ReconcileIntervalSecs: defaultReconcileIntervalSecs,
			},
			wantErr: []string{"database endpoint cannot be an empty string"},
		},
		{
			name: "negative starting fund",
			cfg: Config{
				StockFund:             -1,
				LiquidationEpsilon:    defaultLiquidationEpsilon,
				ReconcileIntervalSecs: defaultReconcileIntervalSecs,
				DatabaseEndpoint:      "http://localhost:4001",
			},
			wantErr: []string{"starting funds cannot be negative"},
		},
		{
			name: "non-positive tunables",
			cfg: Config{
				DatabaseEndpoint: "http://localhost:4001",
			},
			wantErr: []string{
				"liquidation epsilon must be positive",
				"reconcile interval must be positive",
			},
		},
		{
			name: "unpaired dhan credentials",
			cfg: Config{
				LiquidationEpsilon:    defaultLiquidationEpsilon,
				ReconcileIntervalSecs: defaultReconcileIntervalSecs,
				DatabaseEndpoint:      "http://localhost:4001",
				DhanClientID:          "client",
			},
			wantErr: []string{"dhan client id and access token must be provided together"},
		},
		{
			name: "unpaired binance credentials",
			cfg: Config{
				LiquidationEpsilon:    defaultLiquidationEpsilon,
				ReconcileIntervalSecs: defaultReconcileIntervalSecs,
				DatabaseEndpoint:      "http://localhost:4001",
				BinanceSecret:         "secret",
			},
			wantErr: []string{"binance api key and secret must be provided together"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if len(tt.wantErr) == 0 {
				if err != nil {
					t.Errorf("expected no error, got: %v", err)
				}
			} else {
				if err == nil {
					t.Errorf("expected error(s) %v, got none", tt.wantErr)
					return
				}
				for _, want := range tt.wantErr {
					if !strings.Contains(err.Error(), want) {
						t.Errorf("expected error to contain %q, got %v", want, err)
					}
				}
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	// Save and restore original os.Args and environment
	origArgs := os.Args
	origEnv := os.Environ()
	defer func() {
		os.Args = origArgs
		for _, kv := range origEnv {
			parts := strings.SplitN(kv, "=", 2)
			if len(parts) == 2 {
				os.Setenv(parts[0], parts[1])
			}
		}
	}()

	tests := []struct {
		name        string
		env         map[string]string
		args        []string
		expectErr   bool
		expectInErr []string
		expectCfg   Config
	}{
		{
			name: "all from env",
			env: map[string]string{
				"dbendpoint": "http://localhost:4001",
				"stockfund":  "250000",
			},
			args:      []string{"cmd"},
			expectErr: false,
			expectCfg: Config{
				DatabaseEndpoint:      "http://localhost:4001",
				StockFund:             250000,
				MCXFund:               defaultSegmentFund,
				ForexFund:             defaultSegmentFund,
				CryptoFund:            defaultSegmentFund,
				LiquidationEpsilon:    defaultLiquidationEpsilon,
				ReconcileIntervalSecs: defaultReconcileIntervalSecs,
			},
		},
		{
			name:      "all from flags",
			env:       map[string]string{},
			args:      []string{"cmd", "-dbendpoint=http://localhost:4001", "-cryptofund=750000", "-reconcileintervalsecs=60"},
			expectErr: false,
			expectCfg: Config{
				DatabaseEndpoint:      "http://localhost:4001",
				StockFund:             defaultStockFund,
				MCXFund:               defaultSegmentFund,
				ForexFund:             defaultSegmentFund,
				CryptoFund:            750000,
				LiquidationEpsilon:    defaultLiquidationEpsilon,
				ReconcileIntervalSecs: 60,
			},
		},
		{
			name:        "missing database endpoint",
			env:         map[string]string{},
			args:        []string{"cmd"},
			expectErr:   true,
			expectInErr: []string{"database endpoint cannot be an empty string"},
		},
		{
			name: "unpaired shoonya credentials",
			env: map[string]string{
				"dbendpoint":    "http://localhost:4001",
				"shoonyauserid": "user",
			},
			args:        []string{"cmd"},
			expectErr:   true,
			expectInErr: []string{"shoonya user id and session token must be provided together"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Reset flags for each test
			flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ExitOnError)

			// Set environment variables
			for k, v := range tt.env {
				os.Setenv(k, v)
			}

			// Set command-line arguments
			os.Args = tt.args

			var cfg Config
			err := loadConfig(&cfg, "")

			if tt.expectErr {
				if err == nil {
					t.Fatalf("expected error, got nil")
				}
				for _, want := range tt.expectInErr {
					if !strings.Contains(err.Error(), want) {
						t.Errorf("expected error to contain %q, got %v", want, err)
					}
				}
			} else {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				if cfg.DatabaseEndpoint != tt.expectCfg.DatabaseEndpoint {
					t.Errorf("DatabaseEndpoint: got %v, want %v", cfg.DatabaseEndpoint, tt.expectCfg.DatabaseEndpoint)
				}
				if cfg.StockFund != tt.expectCfg.StockFund {
					t.Errorf("StockFund: got %v, want %v", cfg.StockFund, tt.expectCfg.StockFund)
				}
				if cfg.MCXFund != tt.expectCfg.MCXFund {
					t.Errorf("MCXFund: got %v, want %v", cfg.MCXFund, tt.expectCfg.MCXFund)
				}
				if cfg.ForexFund != tt.expectCfg.ForexFund {
					t.Errorf("ForexFund: got %v, want %v", cfg.ForexFund, tt.expectCfg.ForexFund)
				}
				if cfg.CryptoFund != tt.expectCfg.CryptoFund {
					t.Errorf("CryptoFund: got %v, want %v", cfg.CryptoFund, tt.expectCfg.CryptoFund)
				}
				if cfg.LiquidationEpsilon != tt.expectCfg.LiquidationEpsilon {
					t.Errorf("LiquidationEpsilon: got %v, want %v", cfg.LiquidationEpsilon, tt.expectCfg.LiquidationEpsilon)
				}
				if cfg.ReconcileIntervalSecs != tt.expectCfg.ReconcileIntervalSecs {
					t.Errorf("ReconcileIntervalSecs: got %v, want %v", cfg.ReconcileIntervalSecs, tt.expectCfg.ReconcileIntervalSecs)
				}
			}

			// Clean up env
			for k := range tt.env {
				os.Unsetenv(k)
			}
		})
	}
}
