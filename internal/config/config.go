// Package config loads application configuration from file and environment
// and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/verify-cli/internal/inactivity"
	"github.com/sells-group/verify-cli/internal/model"
	"github.com/sells-group/verify-cli/internal/score"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig        `yaml:"store" mapstructure:"store"`
	Numcheck   SourceConfig       `yaml:"numcheck" mapstructure:"numcheck"`
	Twilio     SourceConfig       `yaml:"twilio" mapstructure:"twilio"`
	Wachat     SourceConfig       `yaml:"wachat" mapstructure:"wachat"`
	Advisor    AdvisorConfig      `yaml:"advisor" mapstructure:"advisor"`
	Retry      RetryConfig        `yaml:"retry" mapstructure:"retry"`
	Breaker    BreakerConfig      `yaml:"breaker" mapstructure:"breaker"`
	Scoring    score.Weights      `yaml:"scoring" mapstructure:"scoring"`
	Inactivity inactivity.Weights `yaml:"inactivity" mapstructure:"inactivity"`
	Heuristics HeuristicsConfig   `yaml:"heuristics" mapstructure:"heuristics"`
	Pipeline   PipelineConfig     `yaml:"pipeline" mapstructure:"pipeline"`
	Batch      BatchConfig        `yaml:"batch" mapstructure:"batch"`
	Server     ServerConfig       `yaml:"server" mapstructure:"server"`
	Log        LogConfig          `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the persistence backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// SourceConfig holds one external source's endpoint and credential sets.
type SourceConfig struct {
	BaseURL      string  `yaml:"base_url" mapstructure:"base_url"`
	Key          string  `yaml:"key" mapstructure:"key"`
	Secret       string  `yaml:"secret" mapstructure:"secret"`
	BackupKey    string  `yaml:"backup_key" mapstructure:"backup_key"`
	BackupSecret string  `yaml:"backup_secret" mapstructure:"backup_secret"`
	RateLimitRPS float64 `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
}

// Credentials builds the primary/backup pair for the resilience layer.
func (s SourceConfig) Credentials() model.CredentialPair {
	pair := model.CredentialPair{
		Primary: model.Credentials{Key: s.Key, Secret: s.Secret, Label: "primary"},
	}
	if s.BackupKey != "" {
		pair.Backup = &model.Credentials{Key: s.BackupKey, Secret: s.BackupSecret, Label: "backup"}
	}
	return pair
}

// AdvisorConfig configures the optional LLM advisory check.
type AdvisorConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Key     string `yaml:"key" mapstructure:"key"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// RetryConfig configures the retry state machine.
type RetryConfig struct {
	MaxAttempts    int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	BaseDelayMs    int     `yaml:"base_delay_ms" mapstructure:"base_delay_ms"`
	MaxDelayMs     int     `yaml:"max_delay_ms" mapstructure:"max_delay_ms"`
	Multiplier     float64 `yaml:"multiplier" mapstructure:"multiplier"`
	JitterFraction float64 `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
}

// BreakerConfig configures per-source circuit breakers.
type BreakerConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// HeuristicsConfig points at the optional data-table override file.
type HeuristicsConfig struct {
	TablesPath string `yaml:"tables_path" mapstructure:"tables_path"`
}

// PipelineConfig configures orchestration behavior.
type PipelineConfig struct {
	// TimeoutSecs bounds one whole validation run; on expiry the pipeline
	// cancels outstanding calls and returns a partial result.
	TimeoutSecs int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent"`
}

// ServerConfig configures the webhook server.
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
	v.SetEnvPrefix("VERIFY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "verify.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("batch.max_concurrent", 5)
	v.SetDefault("pipeline.timeout_secs", 60)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.base_delay_ms", 2000)
	v.SetDefault("retry.max_delay_ms", 30000)
	v.SetDefault("retry.multiplier", 2.0)
	v.SetDefault("retry.jitter_fraction", 0.0)
	v.SetDefault("breaker.failure_threshold", 5)
	v.SetDefault("breaker.reset_timeout_secs", 30)
	v.SetDefault("numcheck.base_url", "https://api.numcheck.io/v1")
	v.SetDefault("numcheck.rate_limit_rps", 10)
	v.SetDefault("twilio.base_url", "https://lookups.twilio.com/v2")
	v.SetDefault("twilio.rate_limit_rps", 10)
	v.SetDefault("wachat.base_url", "https://graph.wachat.example.com/v17.0")
	v.SetDefault("wachat.rate_limit_rps", 5)
	v.SetDefault("advisor.enabled", false)
	v.SetDefault("advisor.model", "claude-haiku-4-5-20251001")

	setWeightDefaults(v)

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

// setWeightDefaults registers the scoring and inactivity tables so every
// weight is individually overridable.
func setWeightDefaults(v *viper.Viper) {
	sw := score.DefaultWeights()
	v.SetDefault("scoring.invalid", sw.Invalid)
	v.SetDefault("scoring.unknown_line_type", sw.UnknownLineType)
	v.SetDefault("scoring.conflict", sw.Conflict)
	v.SetDefault("scoring.per_retry_attempt", sw.PerRetryAttempt)
	v.SetDefault("scoring.landline_presence", sw.LandlinePresence)
	v.SetDefault("scoring.presence_skipped", sw.PresenceSkipped)
	v.SetDefault("scoring.presence_bonus", sw.PresenceBonus)
	v.SetDefault("scoring.business_bonus", sw.BusinessBonus)
	v.SetDefault("scoring.high_risk_single", sw.HighRiskSingle)
	v.SetDefault("scoring.inactivity_factor", sw.InactivityFactor)

	iw := inactivity.DefaultWeights()
	v.SetDefault("inactivity.high_failure_rate", iw.HighFailureRate)
	v.SetDefault("inactivity.mod_failure_rate", iw.ModFailureRate)
	v.SetDefault("inactivity.stale_two_years", iw.StaleTwoYears)
	v.SetDefault("inactivity.stale_one_year", iw.StaleOneYear)
	v.SetDefault("inactivity.stale_six_months", iw.StaleSixMonths)
	v.SetDefault("inactivity.stale_one_month", iw.StaleOneMonth)
	v.SetDefault("inactivity.carrier_inactive", iw.CarrierInactive)
	v.SetDefault("inactivity.landline", iw.Landline)
	v.SetDefault("inactivity.voip", iw.VoIP)
	v.SetDefault("inactivity.low_adoption", iw.LowAdoption)
	v.SetDefault("inactivity.inactive_threshold", iw.InactiveThreshold)
	v.SetDefault("inactivity.low_adoption_threshold", iw.LowAdoptionThreshold)
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
