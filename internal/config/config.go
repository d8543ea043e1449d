// Package config loads application configuration from file and environment.
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
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Import  ImportConfig  `yaml:"import" mapstructure:"import"`
	Trust   TrustConfig   `yaml:"trust" mapstructure:"trust"`
	Sources SourcesConfig `yaml:"sources" mapstructure:"sources"`
	Fetch   FetchConfig   `yaml:"fetch" mapstructure:"fetch"`
	DLQ     DLQConfig     `yaml:"dlq" mapstructure:"dlq"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the Postgres repository.
type StoreConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ImportConfig configures batch import behavior.
type ImportConfig struct {
	StagingDir         string  `yaml:"staging_dir" mapstructure:"staging_dir"`
	MaxParallelResolve int     `yaml:"max_parallel_resolve" mapstructure:"max_parallel_resolve"`
	MinValidRate       float64 `yaml:"min_valid_rate" mapstructure:"min_valid_rate"`
}

// TrustConfig configures trust scoring weights and decay windows.
// Weights sum to 1.0.
type TrustConfig struct {
	IdentifierWeight  float64 `yaml:"identifier_weight" mapstructure:"identifier_weight"`
	SourceWeight      float64 `yaml:"source_weight" mapstructure:"source_weight"`
	DataWeight        float64 `yaml:"data_weight" mapstructure:"data_weight"`
	ConsistencyWeight float64 `yaml:"consistency_weight" mapstructure:"consistency_weight"`
	ReputationWeight  float64 `yaml:"reputation_weight" mapstructure:"reputation_weight"`

	ReputationDecayDays int     `yaml:"reputation_decay_days" mapstructure:"reputation_decay_days"`
	BlacklistPenalty    float64 `yaml:"blacklist_penalty" mapstructure:"blacklist_penalty"`
	BlacklistWindowDays int     `yaml:"blacklist_window_days" mapstructure:"blacklist_window_days"`

	MinTrust        float64 `yaml:"min_trust" mapstructure:"min_trust"`
	MinCompleteness float64 `yaml:"min_completeness" mapstructure:"min_completeness"`
	DriftThreshold  float64 `yaml:"drift_threshold" mapstructure:"drift_threshold"`
}

// SourcesConfig maps source registry names to authority levels in [0,1].
// Unknown sources fall back to DefaultAuthority.
type SourcesConfig struct {
	Authority        map[string]float64 `yaml:"authority" mapstructure:"authority"`
	DefaultAuthority float64            `yaml:"default_authority" mapstructure:"default_authority"`
}

// AuthorityFor returns the configured authority level for a source.
func (s SourcesConfig) AuthorityFor(source string) float64 {
	if a, ok := s.Authority[strings.ToLower(source)]; ok {
		return a
	}
	return s.DefaultAuthority
}

// FetchConfig configures source file downloads.
type FetchConfig struct {
	UserAgent      string  `yaml:"user_agent" mapstructure:"user_agent"`
	MaxRetries     int     `yaml:"max_retries" mapstructure:"max_retries"`
	RequestsPerSec float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
	TimeoutSecs    int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// DLQConfig configures the local rejected-record store.
type DLQConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ServerConfig configures the reporting HTTP server.
type ServerConfig struct {
	Port           int     `yaml:"port" mapstructure:"port"`
	RequestsPerSec float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
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
	v.SetEnvPrefix("VESSELMDM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("import.staging_dir", "/tmp/vessel-mdm/staging")
	v.SetDefault("import.max_parallel_resolve", 8)
	v.SetDefault("import.min_valid_rate", 0.90)
	v.SetDefault("trust.identifier_weight", 0.30)
	v.SetDefault("trust.source_weight", 0.25)
	v.SetDefault("trust.data_weight", 0.20)
	v.SetDefault("trust.consistency_weight", 0.15)
	v.SetDefault("trust.reputation_weight", 0.10)
	v.SetDefault("trust.reputation_decay_days", 1095)
	v.SetDefault("trust.blacklist_penalty", 0.30)
	v.SetDefault("trust.blacklist_window_days", 365)
	v.SetDefault("trust.min_trust", 0.7)
	v.SetDefault("trust.min_completeness", 0.6)
	v.SetDefault("trust.drift_threshold", 0.15)
	v.SetDefault("sources.default_authority", 0.5)
	v.SetDefault("fetch.user_agent", "vessel-mdm/1.0")
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.requests_per_sec", 2)
	v.SetDefault("fetch.timeout_secs", 120)
	v.SetDefault("dlq.path", "/tmp/vessel-mdm/rejects.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.requests_per_sec", 20)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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
