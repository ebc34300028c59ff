package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"
	"github.com/tinywideclouds/go-microservice-base/pkg/middleware"
)

type YamlCorsConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	Role           string   `yaml:"role"`
}

type YamlRedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Enabled  bool   `yaml:"enabled"`
	TTL      string `yaml:"ttl"`
}

type YamlFanoutConfig struct {
	BatchSize          int    `yaml:"batch_size"`
	MaxInFlightBatches int    `yaml:"max_in_flight_batches"`
	DispatchTimeout    string `yaml:"dispatch_timeout"`
	CleanupTimeout     string `yaml:"cleanup_timeout"`
}

// YamlConfig is the structure that mirrors the raw config.yaml file.
type YamlConfig struct {
	ProjectID              string           `yaml:"project_id"`
	ListenAddr             string           `yaml:"listen_addr"`
	TopicID                string           `yaml:"topic_id"`
	SubscriptionID         string           `yaml:"subscription_id"`
	SubscriptionDLQTopicID string           `yaml:"subscription_dlq_topic_id"`
	CorsConfig             YamlCorsConfig   `yaml:"cors"`
	RedisConfig            YamlRedisConfig  `yaml:"redis"`
	FanoutConfig           YamlFanoutConfig `yaml:"fanout"`
	NumPipelineWorkers     int              `yaml:"num_pipeline_workers"`
}

// NewConfigFromYaml converts the YamlConfig into a clean, base Config struct.
func NewConfigFromYaml(baseCfg *YamlConfig, logger *slog.Logger) (*Config, error) {
	logger.Debug("Mapping YAML config to base config struct")

	redisTTL, err := parseOptionalDuration(baseCfg.RedisConfig.TTL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis.ttl: %w", err)
	}
	dispatchTimeout, err := parseOptionalDuration(baseCfg.FanoutConfig.DispatchTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid fanout.dispatch_timeout: %w", err)
	}
	cleanupTimeout, err := parseOptionalDuration(baseCfg.FanoutConfig.CleanupTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid fanout.cleanup_timeout: %w", err)
	}

	cfg := &Config{
		ProjectID:      baseCfg.ProjectID,
		ListenAddr:     baseCfg.ListenAddr,
		TopicID:        baseCfg.TopicID,
		SubscriptionID: baseCfg.SubscriptionID,
		CorsConfig: middleware.CorsConfig{
			AllowedOrigins: baseCfg.CorsConfig.AllowedOrigins,
			Role:           middleware.CorsRole(baseCfg.CorsConfig.Role),
		},
		Redis: RedisConfig{
			Addr:     baseCfg.RedisConfig.Addr,
			Password: baseCfg.RedisConfig.Password,
			DB:       baseCfg.RedisConfig.DB,
			Enabled:  baseCfg.RedisConfig.Enabled,
			TTL:      redisTTL,
		},
		Fanout: FanoutConfig{
			BatchSize:          baseCfg.FanoutConfig.BatchSize,
			MaxInFlightBatches: baseCfg.FanoutConfig.MaxInFlightBatches,
			DispatchTimeout:    dispatchTimeout,
			CleanupTimeout:     cleanupTimeout,
		},
		SubscriptionDLQTopicID: baseCfg.SubscriptionDLQTopicID,
		NumPipelineWorkers:     baseCfg.NumPipelineWorkers,
	}

	if cfg.SubscriptionID != "" {
		cfg.PubsubConsumerConfig = messagepipeline.NewGooglePubsubConsumerDefaults(cfg.SubscriptionID)
	}

	logger.Debug("YAML config mapping complete",
		"project_id", cfg.ProjectID,
		"listen_addr", cfg.ListenAddr,
		"subscription_id", cfg.SubscriptionID,
	)

	return cfg, nil
}

func parseOptionalDuration(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	return time.ParseDuration(raw)
}
