// Package config loads application configuration from file and environment
// and bootstraps the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Rules    RulesConfig    `yaml:"rules" mapstructure:"rules"`
	Classify ClassifyConfig `yaml:"classify" mapstructure:"classify"`
	Engine   EngineConfig   `yaml:"engine" mapstructure:"engine"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// RulesConfig locates the domain-normalization ruleset. An empty path means
// the built-in ruleset.
type RulesConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ClassifyConfig holds classification thresholds. Revenue boundaries are
// whole-currency amounts.
type ClassifyConfig struct {
	SizeSmallMax      int     `yaml:"size_small_max" mapstructure:"size_small_max"`
	SizeMediumMax     int     `yaml:"size_medium_max" mapstructure:"size_medium_max"`
	RevenueLowMax     float64 `yaml:"revenue_low_max" mapstructure:"revenue_low_max"`
	RevenueGrowingMax float64 `yaml:"revenue_growing_max" mapstructure:"revenue_growing_max"`
	RevenueMediumMax  float64 `yaml:"revenue_medium_max" mapstructure:"revenue_medium_max"`
	ActiveDays        int     `yaml:"active_days" mapstructure:"active_days"`
	RecentDays        int     `yaml:"recent_days" mapstructure:"recent_days"`
	DormantDays       int     `yaml:"dormant_days" mapstructure:"dormant_days"`
}

// EngineConfig configures a consolidation run.
type EngineConfig struct {
	Workers         int `yaml:"workers" mapstructure:"workers"`
	TimeBudgetSecs  int `yaml:"time_budget_secs" mapstructure:"time_budget_secs"`
	ImportBatchSize int `yaml:"import_batch_size" mapstructure:"import_batch_size"`
}

// ServerConfig configures the status server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CONSOLIDATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("engine.workers", 4)
	v.SetDefault("engine.time_budget_secs", 0)
	v.SetDefault("engine.import_batch_size", 5000)
	v.SetDefault("classify.size_small_max", 5)
	v.SetDefault("classify.size_medium_max", 20)
	v.SetDefault("classify.revenue_low_max", 5000)
	v.SetDefault("classify.revenue_growing_max", 25000)
	v.SetDefault("classify.revenue_medium_max", 100000)
	v.SetDefault("classify.active_days", 90)
	v.SetDefault("classify.recent_days", 365)
	v.SetDefault("classify.dormant_days", 730)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
