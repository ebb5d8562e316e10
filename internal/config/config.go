// Package config loads the monitor's configuration from a YAML file with
// environment overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AssetConfig is one monitored asset as written in the config file.
type AssetConfig struct {
	Name     string `mapstructure:"name"`
	Ticker   string `mapstructure:"ticker"`
	Decimals uint32 `mapstructure:"decimals"`
	Address  string `mapstructure:"address"`
}

// PoolConfig is one monitored lending pool.
type PoolConfig struct {
	Name    string `mapstructure:"name"`
	Address string `mapstructure:"address"`
}

// Config is the full runtime configuration.
type Config struct {
	NATSURL     string `mapstructure:"nats_url"`
	PostgresURL string `mapstructure:"postgres_url"` // empty disables the audit trail
	MetricsAddr string `mapstructure:"metrics_addr"`
	RouterURL   string `mapstructure:"router_url"`

	RPCEndpoints []string      `mapstructure:"rpc_endpoints"`
	RPCTimeout   time.Duration `mapstructure:"rpc_timeout"`

	PriceRefreshInterval time.Duration `mapstructure:"price_refresh_interval"`
	SweepInterval        time.Duration `mapstructure:"sweep_interval"`

	AuditBatchSize    int           `mapstructure:"audit_batch_size"`
	AuditFlushTimeout time.Duration `mapstructure:"audit_flush_timeout"`

	Assets []AssetConfig `mapstructure:"assets"`
	Pools  []PoolConfig  `mapstructure:"pools"`
}

// Load reads the config file at path and applies LIQ_-prefixed
// environment overrides, e.g. LIQ_NATS_URL.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	v.SetDefault("nats_url", "nats://localhost:4222")
	v.SetDefault("metrics_addr", ":9100")
	v.SetDefault("rpc_timeout", 10*time.Second)
	v.SetDefault("price_refresh_interval", 10*time.Second)
	v.SetDefault("sweep_interval", 10*time.Second)
	v.SetDefault("audit_batch_size", 50)
	v.SetDefault("audit_flush_timeout", 2*time.Second)

	v.SetEnvPrefix("LIQ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if len(c.RPCEndpoints) == 0 {
		return fmt.Errorf("config: at least one rpc_endpoints entry is required")
	}
	if c.RouterURL == "" {
		return fmt.Errorf("config: router_url is required")
	}
	if len(c.Assets) == 0 {
		return fmt.Errorf("config: at least one asset is required")
	}
	if len(c.Pools) == 0 {
		return fmt.Errorf("config: at least one pool is required")
	}
	for _, a := range c.Assets {
		if a.Ticker == "" || a.Address == "" {
			return fmt.Errorf("config: asset %q needs ticker and address", a.Name)
		}
	}
	for _, p := range c.Pools {
		if p.Name == "" || p.Address == "" {
			return fmt.Errorf("config: pool %q needs name and address", p.Name)
		}
	}
	return nil
}
