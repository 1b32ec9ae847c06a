package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the settings required to boot the guard service.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Clients  ClientsConfig  `yaml:"clients"`
	Cache    CacheConfig    `yaml:"cache"`
	Matching MatchingConfig `yaml:"matching"`
	Hints    HintsConfig    `yaml:"hints"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig controls HTTP listener behaviour.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// ClientsConfig groups upstream integrations.
type ClientsConfig struct {
	Core CoreClientConfig `yaml:"core"`
}

// CoreClientConfig configures access to the forecast core data APIs.
type CoreClientConfig struct {
	BaseURL     string        `yaml:"baseURL"`
	OptionsPath string        `yaml:"optionsPath"`
	QueryPath   string        `yaml:"queryPath"`
	Timeout     time.Duration `yaml:"timeout"`
}

// CacheConfig controls filter-options caching: the in-process TTL store plus
// the optional shared Valkey mirror.
type CacheConfig struct {
	OptionsTTL time.Duration `yaml:"optionsTTL"`
	Valkey     ValkeyConfig  `yaml:"valkey"`
}

// ValkeyConfig configures the shared Valkey/Redis mirror.
type ValkeyConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Addr         string        `yaml:"addr"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	TLS          bool          `yaml:"tls"`
}

// MatchingConfig carries the fuzzy-matching thresholds.
type MatchingConfig struct {
	HighConfidence float64 `yaml:"highConfidence"`
	MinConfidence  float64 `yaml:"minConfidence"`
	MaxSuggestions int     `yaml:"maxSuggestions"`
	PreviewLimit   int     `yaml:"previewLimit"`
}

// HintsConfig controls hint-pack loading for the diagnosis engine.
type HintsConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("FORECAST_GUARD_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":8085",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Clients: ClientsConfig{
			Core: CoreClientConfig{
				OptionsPath: "/api/v1/forecast/filter-options",
				QueryPath:   "/api/v1/forecast/query",
				Timeout:     5 * time.Second,
			},
		},
		Cache: CacheConfig{
			OptionsTTL: 300 * time.Second,
			Valkey: ValkeyConfig{
				Enabled:      false,
				DialTimeout:  2 * time.Second,
				ReadTimeout:  500 * time.Millisecond,
				WriteTimeout: 500 * time.Millisecond,
			},
		},
		Matching: MatchingConfig{
			HighConfidence: 0.90,
			MinConfidence:  0.60,
			MaxSuggestions: 3,
			PreviewLimit:   3,
		},
		Hints:   HintsConfig{Path: "configs/hints/default.yaml"},
		Logging: LoggingConfig{Level: "info", JSON: false},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FORECAST_GUARD_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("FORECAST_GUARD_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("FORECAST_CORE_BASE_URL"); v != "" {
		cfg.Clients.Core.BaseURL = v
	}
	if v := os.Getenv("FORECAST_CORE_OPTIONS_PATH"); v != "" {
		cfg.Clients.Core.OptionsPath = v
	}
	if v := os.Getenv("FORECAST_CORE_QUERY_PATH"); v != "" {
		cfg.Clients.Core.QueryPath = v
	}
	if v := os.Getenv("FORECAST_CORE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Clients.Core.Timeout = d
		}
	}
	if v := os.Getenv("FORECAST_GUARD_OPTIONS_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.OptionsTTL = d
		}
	}
	if v := os.Getenv("FORECAST_GUARD_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("FORECAST_GUARD_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("FORECAST_GUARD_HINTS_PATH"); v != "" {
		cfg.Hints.Path = v
	}
	if v := os.Getenv("FORECAST_GUARD_HIGH_CONFIDENCE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Matching.HighConfidence = f
		}
	}
	if v := os.Getenv("FORECAST_GUARD_MIN_CONFIDENCE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Matching.MinConfidence = f
		}
	}
	if v := os.Getenv("FORECAST_GUARD_MAX_SUGGESTIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Matching.MaxSuggestions = n
		}
	}
	if v := os.Getenv("FORECAST_GUARD_VALKEY_ENABLED"); v != "" {
		cfg.Cache.Valkey.Enabled = strings.EqualFold(v, "true") || strings.EqualFold(v, "1")
	}
	if v := os.Getenv("FORECAST_GUARD_VALKEY_ADDR"); v != "" {
		cfg.Cache.Valkey.Addr = v
	}
	if v := os.Getenv("FORECAST_GUARD_VALKEY_USERNAME"); v != "" {
		cfg.Cache.Valkey.Username = v
	}
	if v := os.Getenv("FORECAST_GUARD_VALKEY_PASSWORD"); v != "" {
		cfg.Cache.Valkey.Password = v
	}
	if v := os.Getenv("FORECAST_GUARD_VALKEY_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Cache.Valkey.DB = db
		}
	}
	if v := os.Getenv("FORECAST_GUARD_VALKEY_TLS"); strings.EqualFold(v, "true") || strings.EqualFold(v, "1") {
		cfg.Cache.Valkey.TLS = true
	}
	if v := os.Getenv("FORECAST_GUARD_VALKEY_DIAL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.Valkey.DialTimeout = d
		}
	}
	if v := os.Getenv("FORECAST_GUARD_VALKEY_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.Valkey.ReadTimeout = d
		}
	}
	if v := os.Getenv("FORECAST_GUARD_VALKEY_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.Valkey.WriteTimeout = d
		}
	}
}
