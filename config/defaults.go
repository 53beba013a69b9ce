package config

import "time"

// DefaultConfig returns spec.md §6's documented defaults plus sensible
// ambient values for the sections the spec leaves unspecified.
func DefaultConfig() *Config {
	return &Config{
		Port:                3000,
		HotWindowDays:       90,
		ProcessOwnMessages:  true,
		SkipGroupMessages:   false,
		AITierMode:          "auto",
		AICooldownBaseSec:   30,
		AICacheTTLSec:       3600,
		AICacheMaxSize:      500,
		BackupRetentionDays: 7,
		DebugErrors:         false,
		HybridAlpha:         0.5,
		MatchCacheCapacity:  200,

		Server:    DefaultServerConfig(),
		Database:  DefaultDatabaseConfig(),
		Redis:     DefaultRedisConfig(),
		LLM:       DefaultLLMConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

// DefaultServerConfig returns the ambient HTTP server defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		RateLimitRPS:    50,
		RateLimitBurst:  100,
	}
}

// DefaultDatabaseConfig returns a local sqlite file default, suitable
// for a single-process deployment with no external database.
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver:          "sqlite",
		Name:            "data/argus.db",
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
	}
}

// DefaultRedisConfig returns the push-subscriptions store's defaults.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:         "localhost:6379",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
	}
}

// DefaultLLMConfig returns internal/llmclient's defaults.
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		BaseURL:    "https://api.openai.com/v1",
		ChatModel:  "gpt-4o-mini",
		EmbedModel: "text-embedding-3-small",
		Timeout:    45 * time.Second,
		MaxRetries: 1,
	}
}

// DefaultLogConfig returns zap's production-leaning defaults.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:        "info",
		Format:       "json",
		OutputPaths:  []string{"stdout"},
		EnableCaller: true,
	}
}

// DefaultTelemetryConfig returns telemetry disabled by default —
// enabling it requires an OTLP collector endpoint.
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:     false,
		ServiceName: "argus",
		SampleRate:  0.1,
	}
}
