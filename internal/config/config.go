package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"vibeguard/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Monitor   MonitorConfig   `mapstructure:"monitor"`
	Sentiment SentimentConfig `mapstructure:"sentiment"`
	Price     PriceConfig     `mapstructure:"price"`
	Risk      RiskConfig      `mapstructure:"risk"`
	Chain     ChainConfig     `mapstructure:"chain"`
	Demo      DemoConfig      `mapstructure:"demo"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Export    ExportConfig    `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// StorageConfig locates the JSON data files.
type StorageConfig struct {
	DataDir        string `mapstructure:"data_dir"`
	HistoryLimit   int    `mapstructure:"history_limit"`
	MaxRiskSamples int    `mapstructure:"max_risk_samples"`
}

// MonitorConfig governs the protection loop.
type MonitorConfig struct {
	Interval      time.Duration `mapstructure:"interval"`
	StartupDelay  time.Duration `mapstructure:"startup_delay"`
	Cooldown      time.Duration `mapstructure:"cooldown"`
	AutoDisable   bool          `mapstructure:"auto_disable"`
	SkipImmediate bool          `mapstructure:"skip_immediate"`
}

// SentimentConfig covers the social-sentiment feed.
type SentimentConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`
	StaleWindow    time.Duration `mapstructure:"stale_window"`
}

// PriceConfig covers the market-data feed.
type PriceConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`
	StaleWindow    time.Duration `mapstructure:"stale_window"`
}

// RiskConfig parameterises the reasoning endpoint.
type RiskConfig struct {
	BaseURL               string        `mapstructure:"base_url"`
	APIKey                string        `mapstructure:"api_key"`
	ModelHigh             string        `mapstructure:"model_high"`
	ModelLow              string        `mapstructure:"model_low"`
	FallbackModels        []string      `mapstructure:"fallback_models"`
	BadSentimentThreshold float64       `mapstructure:"bad_sentiment_threshold"`
	RequestTimeout        time.Duration `mapstructure:"request_timeout"`
	ModelListTTL          time.Duration `mapstructure:"model_list_ttl"`
	ReportOutcomes        bool          `mapstructure:"report_outcomes"`
}

// ChainConfig covers on-chain execution.
type ChainConfig struct {
	RPCURL          string        `mapstructure:"rpc_url"`
	PrivateKey      string        `mapstructure:"private_key"`
	RegistryAddress string        `mapstructure:"registry_address"`
	RouterAddress   string        `mapstructure:"router_address"`
	DeploymentPath  string        `mapstructure:"deployment_path"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ReceiptTimeout  time.Duration `mapstructure:"receipt_timeout"`
}

// DemoConfig 描述演示上下文注入参数。
type DemoConfig struct {
	DefaultTTL time.Duration `mapstructure:"default_ttl"`
}

// MetricsConfig exposes the Prometheus listener.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("VIBEGUARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "vibeguard")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("storage.data_dir", "data")
	v.SetDefault("storage.history_limit", 500)
	v.SetDefault("storage.max_risk_samples", 5000)

	v.SetDefault("monitor.interval", "30s")
	v.SetDefault("monitor.startup_delay", "0s")
	v.SetDefault("monitor.cooldown", "10m")
	v.SetDefault("monitor.auto_disable", false)
	v.SetDefault("monitor.skip_immediate", false)

	v.SetDefault("sentiment.base_url", "https://api.cryptoracle.io/v1")
	v.SetDefault("sentiment.request_timeout", "10s")
	v.SetDefault("sentiment.cache_ttl", "2m")
	v.SetDefault("sentiment.stale_window", "30m")

	v.SetDefault("price.base_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("price.request_timeout", "10s")
	v.SetDefault("price.cache_ttl", "1m")
	v.SetDefault("price.stale_window", "30m")

	v.SetDefault("risk.base_url", "https://api.kalibr.ai/v1")
	v.SetDefault("risk.model_high", "gpt-4o")
	v.SetDefault("risk.model_low", "gpt-4o-mini")
	v.SetDefault("risk.fallback_models", []string{"gpt-4o-mini", "gpt-4.1-mini"})
	v.SetDefault("risk.bad_sentiment_threshold", 30.0)
	v.SetDefault("risk.request_timeout", "30s")
	v.SetDefault("risk.model_list_ttl", "10m")
	v.SetDefault("risk.report_outcomes", false)

	v.SetDefault("chain.rpc_url", "http://127.0.0.1:8545")
	v.SetDefault("chain.deployment_path", "deployments/latest.json")
	v.SetDefault("chain.request_timeout", "15s")
	v.SetDefault("chain.receipt_timeout", "2m")

	v.SetDefault("demo.default_ttl", "3m")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", ":9090")

	v.SetDefault("export.max_data_points", 100000)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Monitor.Interval <= 0 {
		return fmt.Errorf("monitor.interval must be greater than zero")
	}
	if c.Monitor.Cooldown <= 0 {
		return fmt.Errorf("monitor.cooldown must be greater than zero")
	}
	if c.Storage.DataDir == "" {
		return fmt.Errorf("storage.data_dir 必须配置")
	}
	if c.Storage.HistoryLimit <= 0 {
		return fmt.Errorf("storage.history_limit must be greater than zero")
	}
	if c.Risk.BadSentimentThreshold < 0 || c.Risk.BadSentimentThreshold > 100 {
		return fmt.Errorf("risk.bad_sentiment_threshold must be within [0, 100]")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Demo.DefaultTTL < 0 {
		return fmt.Errorf("demo.default_ttl cannot be negative")
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
