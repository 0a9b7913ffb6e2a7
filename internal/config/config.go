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
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Spotify   SpotifyConfig   `yaml:"spotify" mapstructure:"spotify"`
	Feed      FeedConfig      `yaml:"feed" mapstructure:"feed"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Parser    ParserConfig    `yaml:"parser" mapstructure:"parser"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the ledger backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// SpotifyConfig holds Spotify API credentials and the show to process.
type SpotifyConfig struct {
	ClientID       string  `yaml:"client_id" mapstructure:"client_id"`
	ClientSecret   string  `yaml:"client_secret" mapstructure:"client_secret"`
	ShowID         string  `yaml:"show_id" mapstructure:"show_id"`
	RequestsPerSec float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
	TimeoutSecs    int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// FeedConfig configures the RSS episode source used when no Spotify
// credentials are configured.
type FeedConfig struct {
	URL         string `yaml:"url" mapstructure:"url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// AnthropicConfig holds settings for the fallback parser's model calls.
type AnthropicConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	Model       string `yaml:"model" mapstructure:"model"`
	MaxTokens   int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// ParserConfig tunes the split heuristic and the escalation policy.
type ParserConfig struct {
	MinCandidates   int      `yaml:"min_candidates" mapstructure:"min_candidates"`
	AcceptThreshold float64  `yaml:"accept_threshold" mapstructure:"accept_threshold"`
	LowCountPenalty float64  `yaml:"low_count_penalty" mapstructure:"low_count_penalty"`
	MaxFieldLen     int      `yaml:"max_field_len" mapstructure:"max_field_len"`
	NamePrefixes    []string `yaml:"name_prefixes" mapstructure:"name_prefixes"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
	DelayMs     int `yaml:"delay_ms" mapstructure:"delay_ms"`
}

// ServerConfig configures the HTTP API.
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
	v.SetEnvPrefix("READLIST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "readlist.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("spotify.show_id", "3oB5noYIwEB2dMAREj2F7S")
	v.SetDefault("spotify.requests_per_sec", 5)
	v.SetDefault("spotify.timeout_secs", 30)
	v.SetDefault("feed.timeout_secs", 30)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("anthropic.timeout_secs", 60)
	v.SetDefault("parser.min_candidates", 5)
	v.SetDefault("parser.accept_threshold", 0.6)
	v.SetDefault("parser.low_count_penalty", 0.5)
	v.SetDefault("parser.max_field_len", 300)
	v.SetDefault("batch.concurrency", 4)
	v.SetDefault("batch.delay_ms", 0)

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

// Validate checks the settings the extraction pipeline cannot run without.
// A missing model key is a startup failure, not a per-episode one: the
// fallback parser must always be available once a batch begins.
func (c *Config) Validate() error {
	if c.Anthropic.Key == "" {
		return eris.New("config: anthropic.key is required (READLIST_ANTHROPIC_KEY)")
	}
	if c.Spotify.ClientID == "" && c.Feed.URL == "" {
		return eris.New("config: either spotify credentials or feed.url must be set")
	}
	if c.Spotify.ClientID != "" && c.Spotify.ClientSecret == "" {
		return eris.New("config: spotify.client_secret is required when spotify.client_id is set")
	}
	if c.Parser.AcceptThreshold < 0 || c.Parser.AcceptThreshold > 1 {
		return eris.Errorf("config: parser.accept_threshold %v out of range [0,1]", c.Parser.AcceptThreshold)
	}
	return nil
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
