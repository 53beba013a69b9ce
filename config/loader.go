// Package config is Argus's configuration surface: a Config struct
// loaded with defaults -> YAML file -> environment variable
// precedence, adapted from the teacher's config.Loader builder
// (config/loader.go), restructured around spec.md §6's flat,
// unprefixed environment variable names (PORT, HOT_WINDOW_DAYS, ...)
// instead of the teacher's "AGENTFLOW_"-prefixed scheme.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is Argus's complete runtime configuration.
type Config struct {
	// Port is the HTTP listen port (§6: PORT, default 3000).
	Port int `yaml:"port" env:"PORT"`
	// HotWindowDays bounds the created-at filter search applies
	// (§6: HOT_WINDOW_DAYS, default 90).
	HotWindowDays int `yaml:"hot_window_days" env:"HOT_WINDOW_DAYS"`
	// ProcessOwnMessages processes outbound messages as ingestion
	// candidates (§6: PROCESS_OWN_MESSAGES, default true).
	ProcessOwnMessages bool `yaml:"process_own_messages" env:"PROCESS_OWN_MESSAGES"`
	// SkipGroupMessages drops messages from group chats (§6:
	// SKIP_GROUP_MESSAGES, default false).
	SkipGroupMessages bool `yaml:"skip_group_messages" env:"SKIP_GROUP_MESSAGES"`
	// AITierMode forces a tier or leaves the orchestrator in auto mode
	// (§6: AI_TIER_MODE, one of auto/force-T1/force-T2/force-T3).
	AITierMode string `yaml:"ai_tier_mode" env:"AI_TIER_MODE"`
	// AICooldownBaseSec is the base cooldown after a first tier-1
	// failure (§6: AI_COOLDOWN_BASE_SEC, default 30).
	AICooldownBaseSec int `yaml:"ai_cooldown_base_sec" env:"AI_COOLDOWN_BASE_SEC"`
	// AICacheTTLSec is the tier-3 response cache's TTL (§6:
	// AI_CACHE_TTL_SEC, default 3600).
	AICacheTTLSec int `yaml:"ai_cache_ttl_sec" env:"AI_CACHE_TTL_SEC"`
	// AICacheMaxSize is the tier-3 response cache's capacity (§6:
	// AI_CACHE_MAX_SIZE, default 500).
	AICacheMaxSize int `yaml:"ai_cache_max_size" env:"AI_CACHE_MAX_SIZE"`
	// BackupRetentionDays is the daily-snapshot retention window (§6:
	// BACKUP_RETENTION_DAYS, default 7).
	BackupRetentionDays int `yaml:"backup_retention_days" env:"BACKUP_RETENTION_DAYS"`
	// DebugErrors is loaded from DEBUG_ERRORS (default false). No
	// component reads it: errs.SafeCallOptions.DebugRethrow is never set
	// from it, so errs.SafeCall swallows errors whatever its value.
	DebugErrors bool `yaml:"debug_errors" env:"DEBUG_ERRORS"`
	// HybridAlpha weights HybridSearch's keyword/vector fusion
	// (1=vector only). A value of 0 or below is replaced by 0.5, so
	// keyword-only scoring cannot be selected through this setting.
	HybridAlpha float64 `yaml:"hybrid_alpha" env:"HYBRID_ALPHA"`
	// MatchCacheCapacity bounds the context-matcher's FIFO result
	// cache (§4.10 step 6, default 200).
	MatchCacheCapacity int `yaml:"match_cache_capacity" env:"MATCH_CACHE_CAPACITY"`

	Server    ServerConfig    `yaml:"server" env:"SERVER"`
	Database  DatabaseConfig  `yaml:"database" env:"DATABASE"`
	Redis     RedisConfig     `yaml:"redis" env:"REDIS"`
	LLM       LLMConfig       `yaml:"llm" env:"LLM"`
	Log       LogConfig       `yaml:"log" env:"LOG"`
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
}

// ServerConfig is the ambient HTTP-server stack the spec's domain
// table leaves unspecified.
type ServerConfig struct {
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	RateLimitRPS    float64       `yaml:"rate_limit_rps" env:"RATE_LIMIT_RPS"`
	RateLimitBurst  int           `yaml:"rate_limit_burst" env:"RATE_LIMIT_BURST"`
}

// DatabaseConfig selects and configures the GORM dialector.
type DatabaseConfig struct {
	Driver          string        `yaml:"driver" env:"DRIVER"` // postgres, mysql, sqlite
	Host            string        `yaml:"host" env:"HOST"`
	Port            int           `yaml:"port" env:"PORT"`
	User            string        `yaml:"user" env:"USER"`
	Password        string        `yaml:"password" env:"PASSWORD"`
	Name            string        `yaml:"name" env:"NAME"`
	SSLMode         string        `yaml:"ssl_mode" env:"SSL_MODE"`
	MaxOpenConns    int           `yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
}

// DSN returns the connection string for d.Driver.
func (d *DatabaseConfig) DSN() string {
	switch d.Driver {
	case "postgres":
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
		)
	case "mysql":
		return fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?parseTime=true",
			d.User, d.Password, d.Host, d.Port, d.Name,
		)
	case "sqlite":
		return d.Name
	default:
		return ""
	}
}

// RedisConfig configures the push-subscriptions collection's client.
type RedisConfig struct {
	Addr         string `yaml:"addr" env:"ADDR"`
	Password     string `yaml:"password" env:"PASSWORD"`
	DB           int    `yaml:"db" env:"DB"`
	PoolSize     int    `yaml:"pool_size" env:"POOL_SIZE"`
	MinIdleConns int    `yaml:"min_idle_conns" env:"MIN_IDLE_CONNS"`
}

// LLMConfig configures internal/llmclient's OpenAI-compatible wire
// client, the tier-1 path.
type LLMConfig struct {
	APIKey       string        `yaml:"api_key" env:"API_KEY"`
	BaseURL      string        `yaml:"base_url" env:"BASE_URL"`
	ChatModel    string        `yaml:"chat_model" env:"CHAT_MODEL"`
	EmbedModel   string        `yaml:"embed_model" env:"EMBED_MODEL"`
	Organization string        `yaml:"organization" env:"ORGANIZATION"`
	Timeout      time.Duration `yaml:"timeout" env:"TIMEOUT"`
	MaxRetries   int           `yaml:"max_retries" env:"MAX_RETRIES"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level            string   `yaml:"level" env:"LEVEL"` // debug, info, warn, error
	Format           string   `yaml:"format" env:"FORMAT"` // json, console
	OutputPaths      []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	EnableCaller     bool     `yaml:"enable_caller" env:"ENABLE_CALLER"`
	EnableStacktrace bool     `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// TelemetryConfig configures internal/telemetry's OTel SDK setup.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled" env:"ENABLED"`
	OTLPEndpoint string  `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	ServiceName  string  `yaml:"service_name" env:"SERVICE_NAME"`
	SampleRate   float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// Loader loads a Config with defaults -> YAML -> environment
// precedence (Builder pattern, same shape as the teacher's
// config.Loader).
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader creates a Loader with no env prefix, matching spec.md §6's
// flat variable names (PORT, not ARGUS_PORT).
func NewLoader() *Loader {
	return &Loader{validators: make([]func(*Config) error, 0)}
}

// WithConfigPath sets an optional YAML config file path.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix overrides the (default empty) environment variable
// prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator registers a post-load validation function.
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load builds a Config: defaults, then an optional YAML file, then
// environment variable overrides, then every registered validator.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("load config from file: %w", err)
		}
	}

	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := envTag
		if prefix != "" {
			envKey = prefix + "_" + envTag
		}

		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("set %s: %w", envKey, err)
		}
	}

	return nil
}

func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			iv, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(iv)
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		uv, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetUint(uv)

	case reflect.Float32, reflect.Float64:
		fv, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(fv)

	case reflect.Bool:
		bv, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(bv)

	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// MustLoad loads a Config, panicking on failure — used at process
// startup where there is no sensible fallback.
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// Validate checks the loaded Config for internally inconsistent values.
func (c *Config) Validate() error {
	var problems []string

	if c.Port <= 0 || c.Port > 65535 {
		problems = append(problems, "invalid port")
	}
	if c.HotWindowDays < 0 {
		problems = append(problems, "hot_window_days must not be negative")
	}
	switch c.AITierMode {
	case "auto", "force-T1", "force-T2", "force-T3":
	default:
		problems = append(problems, "ai_tier_mode must be one of auto, force-T1, force-T2, force-T3")
	}
	if c.HybridAlpha < 0 || c.HybridAlpha > 1 {
		problems = append(problems, "hybrid_alpha must be between 0 and 1")
	}

	if len(problems) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(problems, "; "))
	}
	return nil
}
