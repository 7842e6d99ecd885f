//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package config loads the ctxagent configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"trpc.group/trpc-go/trpc-ctxagent-go/log"
)

const (
	// EnvPrefix prefixes every environment override, e.g.
	// CTXAGENT_CHECKPOINT_BACKEND -> checkpoint.backend.
	EnvPrefix = "CTXAGENT_"

	maxConfigFileSize = 1024 * 1024
)

// Checkpoint backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config is the full ctxagent configuration.
type Config struct {
	Model      ModelConfig      `koanf:"model"`
	Agent      AgentConfig      `koanf:"agent"`
	Checkpoint CheckpointConfig `koanf:"checkpoint"`
	Tools      ToolsConfig      `koanf:"tools"`
	Runner     RunnerConfig     `koanf:"runner"`
	Log        LogConfig        `koanf:"log"`
	Telemetry  TelemetryConfig  `koanf:"telemetry"`
}

// ModelConfig selects the OpenAI-compatible model service.
type ModelConfig struct {
	Name        string  `koanf:"name"`
	APIKey      string  `koanf:"api_key"`
	BaseURL     string  `koanf:"base_url"`
	Temperature float64 `koanf:"temperature"`
}

// AgentConfig holds the agent's loop limits.
type AgentConfig struct {
	MaxReplans    int `koanf:"max_replans"`
	MaxToolRounds int `koanf:"max_tool_rounds"`
	MaxSteps      int `koanf:"max_steps"`
}

// CheckpointConfig selects where thread history is kept.
type CheckpointConfig struct {
	Backend      string        `koanf:"backend"`
	SQLitePath   string        `koanf:"sqlite_path"`
	RedisURL     string        `koanf:"redis_url"`
	RedisPrefix  string        `koanf:"redis_prefix"`
	RedisTTL     time.Duration `koanf:"redis_ttl"`
	MaxPerThread int           `koanf:"max_per_thread"`
}

// ToolsConfig configures the file tools.
type ToolsConfig struct {
	BaseDir        string `koanf:"base_dir"`
	MaxFileSize    int64  `koanf:"max_file_size"`
	MaxOutputBytes int    `koanf:"max_output_bytes"`
}

// RunnerConfig configures batch runs.
type RunnerConfig struct {
	PoolSize int `koanf:"pool_size"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `koanf:"level"`
}

// TelemetryConfig configures OTLP export. EndpointURL and Headers apply to
// traces; EndpointURL needs the http protocol.
type TelemetryConfig struct {
	Enabled     bool              `koanf:"enabled"`
	Endpoint    string            `koanf:"endpoint"`
	EndpointURL string            `koanf:"endpoint_url"`
	Headers     map[string]string `koanf:"headers"`
	Protocol    string            `koanf:"protocol"`
	ServiceName string            `koanf:"service_name"`
}

// legacyEnv maps the plain variables the tool has always honoured.
var legacyEnv = map[string]string{
	"OPENAI_API_KEY":  "model.api_key",
	"OPENAI_BASE_URL": "model.base_url",
	"MODEL_NAME":      "model.name",
}

// Load reads the YAML file at path (optional when empty), layers the
// environment on top, applies defaults and validates the result.
//
// Precedence, highest first:
//  1. CTXAGENT_* variables (CTXAGENT_MODEL_API_KEY -> model.api_key)
//  2. OPENAI_API_KEY, OPENAI_BASE_URL, MODEL_NAME
//  3. the YAML file
//  4. defaults
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		content, err := readFile(path)
		if err != nil {
			return nil, err
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	for name, key := range legacyEnv {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			if err := k.Set(key, v); err != nil {
				return nil, fmt.Errorf("failed to apply %s: %w", name, err)
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// envKey maps CTXAGENT_SECTION_FIELD_NAME to section.field_name.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}

func readFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Model.Name == "" {
		cfg.Model.Name = "gpt-4"
	}
	if cfg.Model.Temperature == 0 {
		cfg.Model.Temperature = 0.1
	}
	if cfg.Agent.MaxReplans == 0 {
		cfg.Agent.MaxReplans = 3
	}
	if cfg.Agent.MaxToolRounds == 0 {
		cfg.Agent.MaxToolRounds = 5
	}
	if cfg.Agent.MaxSteps == 0 {
		cfg.Agent.MaxSteps = 100
	}
	if cfg.Checkpoint.Backend == "" {
		cfg.Checkpoint.Backend = BackendMemory
	}
	if cfg.Checkpoint.Backend == BackendSQLite && cfg.Checkpoint.SQLitePath == "" {
		cfg.Checkpoint.SQLitePath = "ctxagent.db"
	}
	if cfg.Checkpoint.RedisPrefix == "" {
		cfg.Checkpoint.RedisPrefix = "ctxagent"
	}
	if cfg.Tools.BaseDir == "" {
		cfg.Tools.BaseDir = "."
	}
	if cfg.Runner.PoolSize == 0 {
		cfg.Runner.PoolSize = 4
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = log.LevelInfo
	}
	if cfg.Telemetry.Protocol == "" {
		cfg.Telemetry.Protocol = "grpc"
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "ctxagent"
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Checkpoint.Backend {
	case BackendMemory, BackendSQLite:
	case BackendRedis:
		if c.Checkpoint.RedisURL == "" {
			return errors.New("checkpoint.redis_url is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown checkpoint backend %q", c.Checkpoint.Backend)
	}
	if c.Agent.MaxReplans < 0 || c.Agent.MaxToolRounds < 0 || c.Agent.MaxSteps < 0 {
		return errors.New("agent limits must not be negative")
	}
	if c.Checkpoint.MaxPerThread < 0 {
		return errors.New("checkpoint.max_per_thread must not be negative")
	}
	if c.Runner.PoolSize < 0 {
		return errors.New("runner.pool_size must not be negative")
	}
	if !log.ValidLevel(c.Log.Level) {
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}
	if p := c.Telemetry.Protocol; p != "grpc" && p != "http" {
		return fmt.Errorf("unknown telemetry protocol %q", p)
	}
	if c.Telemetry.EndpointURL != "" && c.Telemetry.Protocol != "http" {
		return errors.New("telemetry.endpoint_url requires the http protocol")
	}
	return nil
}
