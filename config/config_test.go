package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, names := range env {
		for _, name := range names {
			if _, ok := os.LookupEnv(name); ok {
				t.Setenv(name, "")
				os.Unsetenv(name)
			}
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("data", "sample_products.csv"), cfg.DataCSV)
	assert.Equal(t, filepath.Join("artifacts", "db"), cfg.DBPath)
	assert.Equal(t, BackendBadger, cfg.IndexBackend)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 64, cfg.BatchSize)
	assert.False(t, cfg.Offline)
	require.NoError(t, cfg.Validate())
}

func TestLoadEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATA_CSV", "/data/products.xlsx")
	t.Setenv("INDEX_DIR", "/tmp/index")
	t.Setenv("INDEX_BACKEND", " SQLiteVec ")
	t.Setenv("EMBEDDING_MODEL", "text-embedding-3-small")
	t.Setenv("LLM_HOST", "http://llm:8080")
	t.Setenv("OFFLINE", "true")
	t.Setenv("BATCH_SIZE", "16")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/data/products.xlsx", cfg.DataCSV)
	assert.Equal(t, "/tmp/index", cfg.IndexDir)
	assert.Equal(t, BackendSQLiteVec, cfg.IndexBackend)
	assert.Equal(t, "text-embedding-3-small", cfg.EmbeddingModel)
	assert.Equal(t, "http://llm:8080", cfg.LLMHost)
	assert.True(t, cfg.Offline)
	assert.Equal(t, 16, cfg.BatchSize)
	assert.Equal(t, filepath.Join("/tmp/index", "products.db"), cfg.IndexPath())
}

func TestLoadGraphPathAlias(t *testing.T) {
	clearEnv(t)
	t.Setenv("GRAPH_PATH", "/var/lib/grocer")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/grocer", cfg.DBPath)

	t.Setenv("DB_PATH", "/srv/db")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "/srv/db", cfg.DBPath)
}

func TestLoadModelAlias(t *testing.T) {
	clearEnv(t)
	t.Setenv("DSPY_MODEL", "gpt-4o-mini")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", cfg.LLMModel)

	t.Setenv("LLM_MODEL", "llama3")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "llama3", cfg.LLMModel)
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "grocer.yaml")
	require.NoError(t, os.WriteFile(path, []byte("db_path: /opt/db\nlog_level: debug\nworkers: 4\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/opt/db", cfg.DBPath)
	assert.Equal(t, 4, cfg.Workers)
	level, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	t.Setenv("LOG_LEVEL", "warn")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadNeo4j(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.False(t, cfg.UseNeo4j)
	assert.Equal(t, "bolt://localhost:7687", cfg.Neo4jURI)
	assert.Equal(t, "neo4j", cfg.Neo4jUser)

	t.Setenv("USE_NEO4J", "true")
	t.Setenv("NEO4J_URI", "neo4j://graph:7687")
	t.Setenv("NEO4J_PASSWORD", "s3cret")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.True(t, cfg.UseNeo4j)
	assert.Equal(t, "neo4j://graph:7687", cfg.Neo4jURI)
	assert.Equal(t, "s3cret", cfg.Neo4jPassword)
	require.NoError(t, cfg.Validate())
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"unknown backend", func(c *Config) { c.IndexBackend = "faiss" }, ErrInvalidBackend},
		{"sqlitevec without dir", func(c *Config) { c.IndexBackend = BackendSQLiteVec; c.IndexDir = "" }, ErrInvalidConfig},
		{"empty db path", func(c *Config) { c.DBPath = "" }, ErrInvalidConfig},
		{"zero batch", func(c *Config) { c.BatchSize = 0 }, ErrInvalidConfig},
		{"negative workers", func(c *Config) { c.Workers = -1 }, ErrInvalidConfig},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, ErrInvalidConfig},
		{"missing llm model", func(c *Config) { c.LLMModel = "" }, ErrInvalidConfig},
		{"neo4j without uri", func(c *Config) { c.UseNeo4j = true; c.Neo4jURI = "" }, ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("")
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.wantErr)
		})
	}

	t.Run("offline skips ai settings", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		cfg.Offline = true
		cfg.LLMModel = ""
		assert.NoError(t, cfg.Validate())
	})
}

func TestAIConfig(t *testing.T) {
	clearEnv(t)
	t.Setenv("EMBEDDING_HOST", "http://embed:11434")
	cfg, err := Load("")
	require.NoError(t, err)

	aiCfg := cfg.AI()
	require.NoError(t, aiCfg.Validate())
	assert.Equal(t, "http://embed:11434/v1", aiCfg.EmbeddingHost)
	assert.Equal(t, cfg.LLMModel, aiCfg.LLMModel)
}
