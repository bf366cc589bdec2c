// Copyright 2025 Allan Butler
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads process-level settings for the grocer CLI.
//
// Values are resolved in order: built-in defaults, an optional YAML file,
// then environment variables. Environment names are DATA_CSV, INDEX_DIR,
// DB_PATH (GRAPH_PATH is accepted as an alias), INDEX_BACKEND,
// EMBEDDING_MODEL, EMBEDDING_HOST, LLM_MODEL (DSPY_MODEL is accepted as an
// alias), LLM_HOST, OFFLINE, LOG_LEVEL, USE_NEO4J, NEO4J_URI, NEO4J_USER,
// NEO4J_PASSWORD and NEO4J_DATABASE.
// Command-line flags override all of them.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/allanbutler/kg-rag-grocery/ai"
)

// Similarity index backends.
const (
	BackendBadger    = "badger"
	BackendSQLiteVec = "sqlitevec"
)

var (
	// ErrInvalidBackend is returned for an unknown index backend.
	ErrInvalidBackend = errors.New("invalid index backend")

	// ErrInvalidConfig is returned when a required setting is missing or out of range.
	ErrInvalidConfig = errors.New("invalid config")
)

// Config holds every process-level setting.
type Config struct {
	DataCSV        string `mapstructure:"data_csv"`
	DBPath         string `mapstructure:"db_path"`
	IndexDir       string `mapstructure:"index_dir"`
	IndexBackend   string `mapstructure:"index_backend"`
	EmbeddingModel string `mapstructure:"embedding_model"`
	EmbeddingHost  string `mapstructure:"embedding_host"`
	LLMModel       string `mapstructure:"llm_model"`
	LLMHost        string `mapstructure:"llm_host"`
	Offline        bool   `mapstructure:"offline"` // Run without embedding or LLM services
	LogLevel       string `mapstructure:"log_level"`
	BatchSize      int    `mapstructure:"batch_size"`
	Workers        int    `mapstructure:"workers"`

	// The entity graph lives in Neo4j instead of the badger store when UseNeo4j is set.
	UseNeo4j      bool   `mapstructure:"use_neo4j"`
	Neo4jURI      string `mapstructure:"neo4j_uri"`
	Neo4jUser     string `mapstructure:"neo4j_user"`
	Neo4jPassword string `mapstructure:"neo4j_password"`
	Neo4jDatabase string `mapstructure:"neo4j_database"`
}

// env lists the environment variables bound to each key. The first name wins.
var env = map[string][]string{
	"data_csv":        {"DATA_CSV"},
	"db_path":         {"DB_PATH", "GRAPH_PATH"},
	"index_dir":       {"INDEX_DIR"},
	"index_backend":   {"INDEX_BACKEND"},
	"embedding_model": {"EMBEDDING_MODEL"},
	"embedding_host":  {"EMBEDDING_HOST"},
	"llm_model":       {"LLM_MODEL", "DSPY_MODEL"},
	"llm_host":        {"LLM_HOST"},
	"offline":         {"OFFLINE"},
	"log_level":       {"LOG_LEVEL"},
	"batch_size":      {"BATCH_SIZE"},
	"workers":         {"WORKERS"},
	"use_neo4j":       {"USE_NEO4J"},
	"neo4j_uri":       {"NEO4J_URI"},
	"neo4j_user":      {"NEO4J_USER"},
	"neo4j_password":  {"NEO4J_PASSWORD"},
	"neo4j_database":  {"NEO4J_DATABASE"},
}

func setDefaults(v *viper.Viper) {
	aiDefaults := ai.DefaultConfig()
	v.SetDefault("data_csv", filepath.Join("data", "sample_products.csv"))
	v.SetDefault("db_path", filepath.Join("artifacts", "db"))
	v.SetDefault("index_dir", filepath.Join("artifacts", "index"))
	v.SetDefault("index_backend", BackendBadger)
	v.SetDefault("embedding_model", aiDefaults.EmbeddingModel)
	v.SetDefault("embedding_host", aiDefaults.EmbeddingHost)
	v.SetDefault("llm_model", aiDefaults.LLMModel)
	v.SetDefault("llm_host", aiDefaults.LLMHost)
	v.SetDefault("offline", false)
	v.SetDefault("log_level", "info")
	v.SetDefault("batch_size", 64)
	v.SetDefault("workers", 0)
	v.SetDefault("use_neo4j", false)
	v.SetDefault("neo4j_uri", "bolt://localhost:7687")
	v.SetDefault("neo4j_user", "neo4j")
	v.SetDefault("neo4j_password", "password")
	v.SetDefault("neo4j_database", "neo4j")
}

// Load resolves the configuration. path names an optional YAML file; an
// empty path skips the file layer.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	for key, names := range env {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.IndexBackend = strings.ToLower(strings.TrimSpace(cfg.IndexBackend))
	return &cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.IndexBackend {
	case BackendBadger:
	case BackendSQLiteVec:
		if c.IndexDir == "" {
			return fmt.Errorf("%w: index_dir is required for the %s backend", ErrInvalidConfig, BackendSQLiteVec)
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidBackend, c.IndexBackend)
	}
	if c.DBPath == "" {
		return fmt.Errorf("%w: db_path is required", ErrInvalidConfig)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("%w: batch_size must be positive, got %d", ErrInvalidConfig, c.BatchSize)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative, got %d", ErrInvalidConfig, c.Workers)
	}
	if c.UseNeo4j && c.Neo4jURI == "" {
		return fmt.Errorf("%w: neo4j_uri is required when use_neo4j is set", ErrInvalidConfig)
	}
	if _, err := c.SlogLevel(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if !c.Offline {
		if err := c.AI().Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}
	return nil
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// AI returns the provider configuration.
func (c *Config) AI() *ai.Config {
	return ai.NewConfig(
		ai.WithEmbeddingHost(c.EmbeddingHost),
		ai.WithLLMHost(c.LLMHost),
		ai.WithEmbeddingModel(c.EmbeddingModel),
		ai.WithLLMModel(c.LLMModel),
	)
}

// IndexPath returns the sqlite-vec database file inside IndexDir.
func (c *Config) IndexPath() string {
	return filepath.Join(c.IndexDir, "products.db")
}
