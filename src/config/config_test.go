package config_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"scholarbot/src/config"
)

func validConfig() config.Config {
	return config.Config{
		OllamaTimeout:  120 * time.Second,
		IndexBackend:   config.IndexBackendMemory,
		DataRoot:       "./data",
		ChunkSize:      600,
		ChunkOverlap:   100,
		TopK:           4,
		PerDocumentCap: 2,
		MinSimilarity:  0.25,
		HistoryWindow:  5,
		EmbedBatchSize: 16,
		RetryMax:       3,
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		wantOK bool
	}{
		{
			name:   "valid",
			mutate: func(c *config.Config) {},
			wantOK: true,
		},
		{
			name:   "weaviate backend",
			mutate: func(c *config.Config) { c.IndexBackend = config.IndexBackendWeaviate },
			wantOK: true,
		},
		{
			name:   "zero chunk size",
			mutate: func(c *config.Config) { c.ChunkSize = 0 },
		},
		{
			name:   "negative overlap",
			mutate: func(c *config.Config) { c.ChunkOverlap = -1 },
		},
		{
			name:   "overlap not smaller than chunk size",
			mutate: func(c *config.Config) { c.ChunkOverlap = 600 },
		},
		{
			name:   "zero top k",
			mutate: func(c *config.Config) { c.TopK = 0 },
		},
		{
			name:   "zero per document cap",
			mutate: func(c *config.Config) { c.PerDocumentCap = 0 },
		},
		{
			name:   "similarity out of range",
			mutate: func(c *config.Config) { c.MinSimilarity = 1.5 },
		},
		{
			name:   "negative history window",
			mutate: func(c *config.Config) { c.HistoryWindow = -1 },
		},
		{
			name:   "zero embed batch size",
			mutate: func(c *config.Config) { c.EmbedBatchSize = 0 },
		},
		{
			name:   "negative retry max",
			mutate: func(c *config.Config) { c.RetryMax = -1 },
		},
		{
			name:   "zero ollama timeout",
			mutate: func(c *config.Config) { c.OllamaTimeout = 0 },
		},
		{
			name:   "unknown index backend",
			mutate: func(c *config.Config) { c.IndexBackend = "elastic" },
		},
		{
			name:   "empty data root",
			mutate: func(c *config.Config) { c.DataRoot = "" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantOK {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Validate() error = nil, want ErrConfig")
			}
			if !errors.Is(err, config.ErrConfig) {
				t.Errorf("Validate() error = %v, want ErrConfig", err)
			}
		})
	}
}

func TestPostgresDSN(t *testing.T) {
	cfg := validConfig()
	cfg.PostgresHost = "db"
	cfg.PostgresPort = "5433"
	cfg.PostgresUser = "bot"
	cfg.PostgresPassword = "secret"
	cfg.PostgresDB = "scholarbot"

	dsn := cfg.PostgresDSN()
	for _, want := range []string{"host=db", "port=5433", "user=bot", "password=secret", "dbname=scholarbot", "sslmode=disable"} {
		if !strings.Contains(dsn, want) {
			t.Errorf("PostgresDSN() = %q, missing %q", dsn, want)
		}
	}
}
