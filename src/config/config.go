// Package config builds a validated snapshot of the viper settings so wiring
// code fails fast on bad values instead of deep inside the pipeline.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

var ErrConfig = errors.New("invalid configuration")

const (
	IndexBackendMemory   = "memory"
	IndexBackendWeaviate = "weaviate"
)

type Config struct {
	OllamaURL           string
	EmbedModel          string
	GenerateModel       string
	Temperature         float64
	OllamaTimeout       time.Duration
	UnstructuredURL     string
	WeaviateURL         string
	IndexBackend        string
	DataRoot            string
	ChunkSize           int
	ChunkOverlap        int
	TopK                int
	PerDocumentCap      int
	MinSimilarity       float64
	HistoryWindow       int
	EmbedBatchSize      int
	RetryMax            int
	MaintenanceInterval uint64

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	AMQPURL     string
	UseJobQueue bool

	ServerPort      string
	ShutdownTimeout time.Duration
}

// Load reads the current viper state into a Config and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		OllamaURL:           viper.GetString("ollama.url"),
		EmbedModel:          viper.GetString("ollama.embed_model"),
		GenerateModel:       viper.GetString("ollama.generate_model"),
		Temperature:         viper.GetFloat64("ollama.temperature"),
		UnstructuredURL:     viper.GetString("unstructured.url"),
		WeaviateURL:         viper.GetString("weaviate.url"),
		IndexBackend:        viper.GetString("rag.index_backend"),
		DataRoot:            viper.GetString("rag.data_root"),
		ChunkSize:           viper.GetInt("rag.chunk_size"),
		ChunkOverlap:        viper.GetInt("rag.overlap"),
		TopK:                viper.GetInt("rag.top_k"),
		PerDocumentCap:      viper.GetInt("rag.per_document_cap"),
		MinSimilarity:       viper.GetFloat64("rag.min_similarity"),
		HistoryWindow:       viper.GetInt("rag.history_window"),
		EmbedBatchSize:      viper.GetInt("rag.embed_batch_size"),
		RetryMax:            viper.GetInt("rag.retry_max"),
		MaintenanceInterval: viper.GetUint64("rag.maintenance_interval"),

		PostgresHost:     viper.GetString("postgres.host"),
		PostgresPort:     viper.GetString("postgres.port"),
		PostgresUser:     viper.GetString("postgres.user"),
		PostgresPassword: viper.GetString("postgres.password"),
		PostgresDB:       viper.GetString("postgres.db"),

		MinioEndpoint:  viper.GetString("minio.endpoint"),
		MinioAccessKey: viper.GetString("minio.access_key"),
		MinioSecretKey: viper.GetString("minio.secret_key"),
		MinioBucket:    viper.GetString("minio.document_bucket"),
		MinioUseSSL:    viper.GetBool("minio.use_ssl"),

		AMQPURL:     viper.GetString("amqp.url"),
		UseJobQueue: viper.GetBool("amqp.enabled"),

		ServerPort: viper.GetString("server.port"),
	}

	timeout, err := time.ParseDuration(viper.GetString("server.shutdown_timeout"))
	if err != nil {
		return nil, fmt.Errorf("%w: server.shutdown_timeout: %v", ErrConfig, err)
	}
	cfg.ShutdownTimeout = timeout

	ollamaTimeout, err := time.ParseDuration(viper.GetString("ollama.timeout"))
	if err != nil {
		return nil, fmt.Errorf("%w: ollama.timeout: %v", ErrConfig, err)
	}
	cfg.OllamaTimeout = ollamaTimeout

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: rag.chunk_size must be positive, got %d", ErrConfig, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 {
		return fmt.Errorf("%w: rag.overlap must not be negative, got %d", ErrConfig, c.ChunkOverlap)
	}
	if c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: rag.overlap (%d) must be smaller than rag.chunk_size (%d)",
			ErrConfig, c.ChunkOverlap, c.ChunkSize)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("%w: rag.top_k must be positive, got %d", ErrConfig, c.TopK)
	}
	if c.PerDocumentCap <= 0 {
		return fmt.Errorf("%w: rag.per_document_cap must be positive, got %d", ErrConfig, c.PerDocumentCap)
	}
	if c.MinSimilarity < -1 || c.MinSimilarity > 1 {
		return fmt.Errorf("%w: rag.min_similarity must be within [-1, 1], got %g", ErrConfig, c.MinSimilarity)
	}
	if c.HistoryWindow < 0 {
		return fmt.Errorf("%w: rag.history_window must not be negative, got %d", ErrConfig, c.HistoryWindow)
	}
	if c.EmbedBatchSize <= 0 {
		return fmt.Errorf("%w: rag.embed_batch_size must be positive, got %d", ErrConfig, c.EmbedBatchSize)
	}
	if c.RetryMax < 0 {
		return fmt.Errorf("%w: rag.retry_max must not be negative, got %d", ErrConfig, c.RetryMax)
	}
	if c.OllamaTimeout <= 0 {
		return fmt.Errorf("%w: ollama.timeout must be positive, got %s", ErrConfig, c.OllamaTimeout)
	}
	switch c.IndexBackend {
	case IndexBackendMemory, IndexBackendWeaviate:
	default:
		return fmt.Errorf("%w: rag.index_backend must be %q or %q, got %q",
			ErrConfig, IndexBackendMemory, IndexBackendWeaviate, c.IndexBackend)
	}
	if c.DataRoot == "" {
		return fmt.Errorf("%w: rag.data_root must not be empty", ErrConfig)
	}
	return nil
}

// PostgresDSN assembles the gorm connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		c.PostgresHost, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresPort)
}
