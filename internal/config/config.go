package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// EngineConfig holds the matching and dispatch tunables.
type EngineConfig struct {
	RadiusKm            float64       `mapstructure:"radius_km"`
	DailyLimit          int           `mapstructure:"daily_limit"`
	DispatchConcurrency int           `mapstructure:"dispatch_concurrency"`
	PerSendTimeout      time.Duration `mapstructure:"per_send_timeout"`
	RetryCount          int           `mapstructure:"retry_count"`
	GatewayRateLimit    float64       `mapstructure:"gateway_rate_limit"` // sends per second, 0 = unlimited
}

// GatewayConfig configures the external push delivery gateway.
type GatewayConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
}

// KafkaConfig configures the stale-token signal producer. When Brokers is
// empty the signal is logged and dropped instead of published.
type KafkaConfig struct {
	Brokers         string `mapstructure:"brokers"`
	StaleTokenTopic string `mapstructure:"stale_token_topic"`
}

type Config struct {
	DatabaseURL string        `mapstructure:"database_url"`
	ServerPort  string        `mapstructure:"server_port"`
	JWTSecret   string        `mapstructure:"jwt_secret"`
	Engine      EngineConfig  `mapstructure:"engine"`
	Gateway     GatewayConfig `mapstructure:"gateway"`
	Kafka       KafkaConfig   `mapstructure:"kafka"`
}

// Load reads the configuration from a YAML file and returns a Config instance.
func Load() *Config {
	v := viper.New()

	// Look for config in the current directory and ./config
	v.AddConfigPath(".")
	v.SetConfigName("config")
	v.AddConfigPath("./config")
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		log.Fatalf("Error reading config file: %v", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		log.Fatalf("Error unmarshalling config: %v", err)
	}

	// Fallback defaults
	if config.ServerPort == "" {
		config.ServerPort = "8080"
	}
	if config.JWTSecret == "" {
		log.Fatal("JWT secret must be set in the config file")
	}
	if config.Gateway.BaseURL == "" {
		log.Fatal("Push gateway base_url must be set in the config file")
	}

	ApplyEngineDefaults(&config.Engine)

	if config.Kafka.StaleTokenTopic == "" {
		config.Kafka.StaleTokenTopic = "token.invalidated"
	}

	return &config
}

// ApplyEngineDefaults fills zero-valued engine options with their defaults.
func ApplyEngineDefaults(engine *EngineConfig) {
	if engine.RadiusKm <= 0 {
		engine.RadiusKm = 20
	}
	if engine.DailyLimit <= 0 {
		engine.DailyLimit = 3
	}
	if engine.DispatchConcurrency <= 0 {
		engine.DispatchConcurrency = 25
	}
	if engine.PerSendTimeout <= 0 {
		engine.PerSendTimeout = 10 * time.Second
	}
	if engine.RetryCount <= 0 {
		engine.RetryCount = 1
	}
}
