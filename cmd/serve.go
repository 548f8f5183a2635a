package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/pkg/amqp"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	weaviateClient "github.com/weaviate/weaviate-go-client/v4/weaviate"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	v1 "scholarbot/handler/http/v1"
	"scholarbot/src/config"
	"scholarbot/src/core/rag"
	"scholarbot/src/fsutil"
	"scholarbot/src/infrastructure/integrations/ollama"
	"scholarbot/src/infrastructure/integrations/unstructured"
	jobctrl "scholarbot/src/infrastructure/job"
	"scholarbot/src/log"
	"scholarbot/src/storage/minioctrl"
	"scholarbot/src/storage/postgres/documentctrl"
	"scholarbot/src/storage/postgres/historyctrl"
	"scholarbot/src/storage/postgres/systemctrl"
	"scholarbot/src/storage/vectorindex"
	weaviateStore "scholarbot/src/storage/weaviate"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the assistant HTTP server",
	Long:  `The serve command starts an HTTP server exposing document ingestion and grounded question answering.`,
	Run:   RunServer,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	settingDefaultConfig()
}

func RunServer(cmd *cobra.Command, args []string) {
	cfg, err := config.Load()
	if err != nil {
		log.Error(err, "Invalid configuration")
		return
	}

	ctx := context.Background()

	// Initialize PostgreSQL connection
	db, err := gorm.Open(postgres.Open(cfg.PostgresDSN()), &gorm.Config{})
	if err != nil {
		log.Error(err, "Failed to connect to database")
		return
	}

	documentService := documentctrl.NewDocumentService(db)
	historyService := historyctrl.NewHistoryService(db)
	systemService := systemctrl.NewSystemService(db)
	for _, migrate := range []func() error{
		documentService.Migrate,
		historyService.Migrate,
		systemService.Migrate,
	} {
		if err := migrate(); err != nil {
			log.Error(err, "Failed to migrate database")
			return
		}
	}

	// Initialize Ollama client
	oc := ollama.NewClient(cfg.OllamaURL, &http.Client{
		Timeout: cfg.OllamaTimeout,
	})
	provider := ollama.NewProvider(oc, cfg.EmbedModel, cfg.GenerateModel, cfg.Temperature)

	// Initialize vector store
	var store rag.VectorStore
	switch cfg.IndexBackend {
	case config.IndexBackendWeaviate:
		wc := weaviateClient.New(weaviateClient.Config{
			Host:   cfg.WeaviateURL,
			Scheme: "http",
		})
		ws := weaviateStore.NewStore(wc)
		if err := ws.EnsureSchema(ctx); err != nil {
			log.Error(err, "Failed to prepare weaviate schema")
			return
		}
		store = ws
	default:
		idx, err := vectorindex.NewIndex(filepath.Join(cfg.DataRoot, "index.json"))
		if err != nil {
			log.Error(err, "Failed to open vector index")
			return
		}
		store = idx
	}

	// Initialize MinIO blob store
	blobs, err := minioctrl.NewBlobStore(
		cfg.MinioEndpoint,
		cfg.MinioAccessKey,
		cfg.MinioSecretKey,
		cfg.MinioBucket,
		cfg.MinioUseSSL,
	)
	if err != nil {
		log.Error(err, "Failed to create blob store")
		return
	}
	if err := blobs.EnsureBucket(ctx); err != nil {
		log.Error(err, "Failed to prepare blob bucket")
		return
	}

	// Initialize ingestion pipeline
	chunker, err := rag.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		log.Error(err, "Invalid chunking configuration")
		return
	}
	extractor := rag.NewExtractor(unstructured.NewService(cfg.UnstructuredURL, nil))
	embedder := rag.NewEmbedder(provider, cfg.EmbedBatchSize, cfg.RetryMax)
	ingestor := rag.NewIngestor(
		documentService,
		store,
		blobs,
		extractor,
		chunker,
		embedder,
		fsutil.NewLocalFileStore(),
		cfg.RetryMax,
	)

	// Initialize maintenance with the persisted query counter
	maint, err := rag.NewMaintenance(ctx, cfg.MaintenanceInterval, systemService)
	if err != nil {
		log.Error(err, "Failed to restore maintenance state")
		return
	}
	maint.AddHook(embedder.ReleaseBuffers)
	if idx, ok := store.(*vectorindex.Index); ok {
		maint.AddHook(idx.Compact)
	}

	// Initialize answering pipeline
	retriever := rag.NewRetriever(embedder, store, rag.RetrieverConfig{
		TopK:           cfg.TopK,
		PerDocumentCap: cfg.PerDocumentCap,
		MinSimilarity:  cfg.MinSimilarity,
		MaxRetry:       cfg.RetryMax,
	})
	answerer := rag.NewAnswerer(retriever, provider, historyService, documentService, maint, rag.AnswererConfig{
		HistoryWindow: cfg.HistoryWindow,
		MaxRetry:      cfg.RetryMax,
	})

	// Initialize optional job queue for background folder ingestion
	var jobService *jobctrl.JobService
	if cfg.UseJobQueue {
		logger := watermill.NewStdLogger(false, false)
		publisher, err := amqp.NewPublisher(
			amqp.NewDurableQueueConfig(cfg.AMQPURL),
			logger,
		)
		if err != nil {
			log.Error(err, "Failed to create AMQP publisher")
			return
		}
		defer publisher.Close()

		jobRepo, err := jobctrl.NewPostgresJobRepository(db)
		if err != nil {
			log.Error(err, "Failed to create job repository")
			return
		}
		if err := jobRepo.Migrate(); err != nil {
			log.Error(err, "Failed to migrate jobs table")
			return
		}
		jobService = jobctrl.NewJobService(publisher, jobRepo, logger, ingestor)
	}

	// Initialize HTTP handler
	handler := v1.NewHandler(ingestor, answerer, historyService, store, maint, oc, jobService)

	// Setup gin router
	r := gin.Default()

	// Register routes
	handler.RegisterRoutes(r)

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// Start server in a goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(err, "Failed to start server")
			return
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	// Create context with timeout for shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	// Attempt graceful shutdown
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(err, "Server forced to shutdown")
	}

	// Close database connection
	sqlDB, err := db.DB()
	if err != nil {
		log.Error(err, "Failed to get underlying *sql.DB")
	} else {
		if err := sqlDB.Close(); err != nil {
			log.Error(err, "Error closing database connection")
		}
	}

	log.Info("Server exited")
}
