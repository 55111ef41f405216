package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ListenAddr string              `json:"listen_addr" yaml:"listen_addr"`
	Database   DatabaseConfig      `json:"database" yaml:"database"`
	Auth       AuthConfig          `json:"auth" yaml:"auth"`
	Security   SecurityConfig      `json:"security" yaml:"security"`
	Upstream   UpstreamConfig      `json:"upstream" yaml:"upstream"`
	Runs       RunsConfig          `json:"runs" yaml:"runs"`
	Observer   ObservabilityConfig `json:"observability" yaml:"observability"`
	Limits     QuickCheckLimits    `json:"limits" yaml:"limits"`
}

type DatabaseConfig struct {
	DSN            string `json:"dsn" yaml:"dsn"`
	MaxConns       int32  `json:"max_conns" yaml:"max_conns"`
	MigrationsPath string `json:"migrations_path" yaml:"migrations_path"`
}

type AuthConfig struct {
	SessionTTL string `json:"session_ttl" yaml:"session_ttl"`
	CookieName string `json:"cookie_name" yaml:"cookie_name"`
}

type SecurityConfig struct {
	AdminToken string `json:"admin_token" yaml:"admin_token"`
}

// UpstreamConfig describes the Gemini-compatible endpoint probes go to.
type UpstreamConfig struct {
	BaseURL    string `json:"base_url" yaml:"base_url"`
	Model      string `json:"model" yaml:"model"`
	TimeoutSec int    `json:"timeout_sec" yaml:"timeout_sec"`
	// MaxRPM caps outbound probe requests per minute across all runs.
	MaxRPM int `json:"max_rpm" yaml:"max_rpm"`
}

type RunsConfig struct {
	MaxParallelRuns   int `json:"max_parallel_runs" yaml:"max_parallel_runs"`
	DefaultWorkers    int `json:"default_workers" yaml:"default_workers"`
	MaxKeysPerRun     int `json:"max_keys_per_run" yaml:"max_keys_per_run"`
	QuickCheckMaxKeys int `json:"quick_check_max_keys" yaml:"quick_check_max_keys"`
}

type ObservabilityConfig struct {
	OTLPEndpoint string  `json:"otlp_endpoint" yaml:"otlp_endpoint"`
	ServiceName  string  `json:"service_name" yaml:"service_name"`
	SampleRatio  float64 `json:"sample_ratio" yaml:"sample_ratio"`
}

type QuickCheckLimits struct {
	QuickCheckRPM int `json:"quick_check_rpm" yaml:"quick_check_rpm"`
}

func DefaultConfig() Config {
	return Config{
		ListenAddr: ":8080",
		Database: DatabaseConfig{
			MaxConns:       10,
			MigrationsPath: "./migrations",
		},
		Auth: AuthConfig{
			SessionTTL: "8h",
			CookieName: "keycheck_session",
		},
		Upstream: UpstreamConfig{
			BaseURL:    "https://generativelanguage.googleapis.com",
			Model:      "gemini-2.0-flash-lite",
			TimeoutSec: 10,
			MaxRPM:     300,
		},
		Runs: RunsConfig{
			MaxParallelRuns:   2,
			DefaultWorkers:    10,
			MaxKeysPerRun:     500,
			QuickCheckMaxKeys: 5,
		},
		Observer: ObservabilityConfig{
			ServiceName: "keycheck-api",
			SampleRatio: 1,
		},
		Limits: QuickCheckLimits{
			QuickCheckRPM: 6,
		},
	}
}

func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse yaml config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse json config: %w", err)
		}
	default:
		if yamlErr := yaml.Unmarshal(data, &cfg); yamlErr == nil {
			break
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, errors.New("config format not recognized (expected yaml/json)")
		}
	}
	normalizeConfig(&cfg)
	return cfg, nil
}

func normalizeConfig(cfg *Config) {
	if cfg == nil {
		return
	}
	if strings.TrimSpace(cfg.ListenAddr) == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	if strings.TrimSpace(cfg.Database.MigrationsPath) == "" {
		cfg.Database.MigrationsPath = "./migrations"
	}
	if strings.TrimSpace(cfg.Auth.CookieName) == "" {
		cfg.Auth.CookieName = "keycheck_session"
	}
	if strings.TrimSpace(cfg.Auth.SessionTTL) == "" {
		cfg.Auth.SessionTTL = "8h"
	}
	if strings.TrimSpace(cfg.Upstream.BaseURL) == "" {
		cfg.Upstream.BaseURL = "https://generativelanguage.googleapis.com"
	}
	if strings.TrimSpace(cfg.Upstream.Model) == "" {
		cfg.Upstream.Model = "gemini-2.0-flash-lite"
	}
	if cfg.Upstream.TimeoutSec <= 0 {
		cfg.Upstream.TimeoutSec = 10
	}
	if cfg.Upstream.MaxRPM <= 0 {
		cfg.Upstream.MaxRPM = 300
	}
	if cfg.Runs.MaxParallelRuns <= 0 {
		cfg.Runs.MaxParallelRuns = 2
	}
	if cfg.Runs.DefaultWorkers <= 0 {
		cfg.Runs.DefaultWorkers = 10
	}
	if cfg.Runs.MaxKeysPerRun <= 0 {
		cfg.Runs.MaxKeysPerRun = 500
	}
	if cfg.Runs.QuickCheckMaxKeys <= 0 {
		cfg.Runs.QuickCheckMaxKeys = 5
	}
	if cfg.Observer.SampleRatio <= 0 || cfg.Observer.SampleRatio > 1 {
		cfg.Observer.SampleRatio = 1
	}
	if strings.TrimSpace(cfg.Observer.ServiceName) == "" {
		cfg.Observer.ServiceName = "keycheck-api"
	}
	if cfg.Limits.QuickCheckRPM <= 0 {
		cfg.Limits.QuickCheckRPM = 6
	}
}
