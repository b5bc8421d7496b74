package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	// defaultStockFund is the default starting stock cash pool.
	defaultStockFund = float64(1_000_000)
	// defaultSegmentFund is the default starting cash pool for the
	// mcx, forex and crypto segments.
	defaultSegmentFund = float64(500_000)
	// defaultLiquidationEpsilon is the default full liquidation tolerance.
	defaultLiquidationEpsilon = 1e-4
	// defaultReconcileIntervalSecs is the default external holdings
	// refresh interval in seconds.
	defaultReconcileIntervalSecs = 30
)

// Config is the configuration struct for the service.
type Config struct {
	// StockFund is the starting stock cash pool.
	StockFund float64
	// MCXFund is the starting mcx cash pool.
	MCXFund float64
	// ForexFund is the starting forex cash pool.
	ForexFund float64
	// CryptoFund is the starting crypto cash pool.
	CryptoFund float64
	// LiquidationEpsilon is the full liquidation tolerance.
	LiquidationEpsilon float64
	// ReconcileIntervalSecs is the external holdings refresh interval in seconds.
	ReconcileIntervalSecs int
	// DatabaseEndpoint is the database connection endpoint.
	DatabaseEndpoint string
	// DatabaseUser is the database user.
	DatabaseUser string
	// DatabasePass is the database user pass.
	DatabasePass string
	// DhanClientID is the dhan client id.
	DhanClientID string
	// DhanAccessToken is the dhan access token.
	DhanAccessToken string
	// ShoonyaUserID is the shoonya user id.
	ShoonyaUserID string
	// ShoonyaSessionToken is the shoonya session token.
	ShoonyaSessionToken string
	// BinanceAPIKey is the binance api key.
	BinanceAPIKey string
	// BinanceSecret is the binance api secret.
	BinanceSecret string
	// CoinDCXAPIKey is the coindcx api key.
	CoinDCXAPIKey string
	// CoinDCXSecret is the coindcx api secret.
	CoinDCXSecret string
	// CoinSwitchAPIKey is the coinswitch api key.
	CoinSwitchAPIKey string

	registeredFlags map[string]bool
}

// Validate asserts the config sane inputs.
func (cfg *Config) Validate() error {
	var errs error

	if cfg.DatabaseEndpoint == "" {
		errs = errors.Join(errs, fmt.Errorf("database endpoint cannot be an empty string"))
	}
	if cfg.StockFund < 0 || cfg.MCXFund < 0 || cfg.ForexFund < 0 || cfg.CryptoFund < 0 {
		errs = errors.Join(errs, fmt.Errorf("starting funds cannot be negative"))
	}
	if cfg.LiquidationEpsilon <= 0 {
		errs = errors.Join(errs, fmt.Errorf("liquidation epsilon must be positive"))
	}
	if cfg.ReconcileIntervalSecs <= 0 {
		errs = errors.Join(errs, fmt.Errorf("reconcile interval must be positive"))
	}
	if (cfg.DhanClientID == "") != (cfg.DhanAccessToken == "") {
		errs = errors.Join(errs, fmt.Errorf("dhan client id and access token must be provided together"))
	}
	if (cfg.ShoonyaUserID == "") != (cfg.ShoonyaSessionToken == "") {
		errs = errors.Join(errs, fmt.Errorf("shoonya user id and session token must be provided together"))
	}
	if (cfg.BinanceAPIKey == "") != (cfg.BinanceSecret == "") {
		errs = errors.Join(errs, fmt.Errorf("binance api key and secret must be provided together"))
	}
	if (cfg.CoinDCXAPIKey == "") != (cfg.CoinDCXSecret == "") {
		errs = errors.Join(errs, fmt.Errorf("coindcx api key and secret must be provided together"))
	}

	return errs
}

// registerFlag registers command line arguments of any type and tracks them to avoid reregistration.
func (cfg *Config) registerFlag(name string, value interface{}, usage string) error {
	if cfg.registeredFlags == nil {
		cfg.registeredFlags = make(map[string]bool)
	}

	if cfg.registeredFlags[name] {
		return nil
	}

	cfg.registeredFlags[name] = true

	defValue := os.Getenv(name)
	val := reflect.ValueOf(value)
	if val.Kind() != reflect.Ptr || val.IsNil() {
		return fmt.Errorf("%s: value must be a non-nil pointer", name)
	}

	switch val.Elem().Kind() {
	case reflect.String:
		flag.StringVar(value.(*string), name, defValue, usage)
	case reflect.Bool:
		var def bool
		if defValue != "" {
			def, _ = strconv.ParseBool(defValue)
		}
		flag.BoolVar(value.(*bool), name, def, usage)
	case reflect.Int:
		var def int
		if defValue != "" {
			def, _ = strconv.Atoi(defValue)
		}
		flag.IntVar(value.(*int), name, def, usage)
	case reflect.Float64:
		var def float64
		if defValue != "" {
			def, _ = strconv.ParseFloat(defValue, 64)
		}
		flag.Float64Var(value.(*float64), name, def, usage)
	case reflect.Slice:
		// Only handle []string
		if val.Elem().Type().Elem().Kind() == reflect.String {
			var def []string
			if defValue != "" {
				def = strings.Split(defValue, ",")
			}
			flag.Func(name, usage, func(s string) error {
				*value.(*[]string) = strings.Split(s, ",")
				return nil
			})
			// Set default if not provided via flag
			if len(def) > 0 {
				*value.(*[]string) = def
			}
		} else {
			return fmt.Errorf("%s: unsupported slice type", name)
		}
	default:
		return fmt.Errorf("%s: unsupported type", name)
	}

	return nil
}

// loadConfig loads the configuration from environment variables and command line flags.
func loadConfig(cfg *Config, path string) error {
	if path == "" {
		path = ".env"
	}

	// Check if the expected .env file exists before loading it.
	_, err := os.Stat(path)
	if err == nil {
		err := godotenv.Load(path)
		if err != nil {
			return fmt.Errorf("loading .env file: %w", err)
		}
	}

	// Register command line arguments using loaded environment variables as defaults.
	flags := []struct {
		name  string
		value interface{}
		usage string
	}{
		{"stockfund", &cfg.StockFund, "the starting stock cash pool"},
		{"mcxfund", &cfg.MCXFund, "the starting mcx cash pool"},
		{"forexfund", &cfg.ForexFund, "the starting forex cash pool"},
		{"cryptofund", &cfg.CryptoFund, "the starting crypto cash pool"},
		{"liquidationepsilon", &cfg.LiquidationEpsilon, "the full liquidation tolerance"},
		{"reconcileintervalsecs", &cfg.ReconcileIntervalSecs, "the holdings refresh interval in seconds"},
		{"dbendpoint", &cfg.DatabaseEndpoint, "the database connection endpoint"},
		{"dbuser", &cfg.DatabaseUser, "the database user"},
		{"dbpass", &cfg.DatabasePass, "the database user pass"},
		{"dhanclientid", &cfg.DhanClientID, "the dhan client id"},
		{"dhanaccesstoken", &cfg.DhanAccessToken, "the dhan access token"},
		{"shoonyauserid", &cfg.ShoonyaUserID, "the shoonya user id"},
		{"shoonyasessiontoken", &cfg.ShoonyaSessionToken, "the shoonya session token"},
		{"binanceapikey", &cfg.BinanceAPIKey, "the binance api key"},
		{"binancesecret", &cfg.BinanceSecret, "the binance api secret"},
		{"coindcxapikey", &cfg.CoinDCXAPIKey, "the coindcx api key"},
		{"coindcxsecret", &cfg.CoinDCXSecret, "the coindcx api secret"},
		{"coinswitchapikey", &cfg.CoinSwitchAPIKey, "the coinswitch api key"},
	}
	for _, f := range flags {
		err = cfg.registerFlag(f.name, f.value, f.usage)
		if err != nil {
			return err
		}
	}

	// Parse command-line flags.
	flag.Parse()

	// Unset funds and tunables fall back to their defaults.
	if cfg.StockFund == 0 {
		cfg.StockFund = defaultStockFund
	}
	if cfg.MCXFund == 0 {
		cfg.MCXFund = defaultSegmentFund
	}
	if cfg.ForexFund == 0 {
		cfg.ForexFund = defaultSegmentFund
	}
	if cfg.CryptoFund == 0 {
		cfg.CryptoFund = defaultSegmentFund
	}
	if cfg.LiquidationEpsilon == 0 {
		cfg.LiquidationEpsilon = defaultLiquidationEpsilon
	}
	if cfg.ReconcileIntervalSecs == 0 {
		cfg.ReconcileIntervalSecs = defaultReconcileIntervalSecs
	}

	return cfg.Validate()
}
