package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/spf13/cobra"
	weaviateClient "github.com/weaviate/weaviate-go-client/v4/weaviate"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"scholarbot/src/config"
	"scholarbot/src/core/rag"
	"scholarbot/src/fsutil"
	"scholarbot/src/infrastructure/integrations/ollama"
	"scholarbot/src/infrastructure/integrations/unstructured"
	jobctrl "scholarbot/src/infrastructure/job"
	"scholarbot/src/log"
	"scholarbot/src/storage/minioctrl"
	"scholarbot/src/storage/postgres/documentctrl"
	"scholarbot/src/storage/vectorindex"
	weaviateStore "scholarbot/src/storage/weaviate"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the background ingestion worker",
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
	settingDefaultConfig()
}

func runWorker(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := watermill.NewStdLogger(false, false)
	ctx := context.Background()

	// Initialize PostgreSQL connection
	db, err := gorm.Open(postgres.Open(cfg.PostgresDSN()), &gorm.Config{})
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	// Initialize AMQP publisher
	amqpPublisher, err := amqp.NewPublisher(
		amqp.NewDurableQueueConfig(cfg.AMQPURL),
		logger,
	)
	if err != nil {
		return err
	}
	defer amqpPublisher.Close()

	// Initialize AMQP subscriber
	subscriberConfig := amqp.NewDurableQueueConfig(cfg.AMQPURL)
	subscriberConfig.Consume.NoRequeueOnNack = true
	amqpSubscriber, err := amqp.NewSubscriber(subscriberConfig, logger)
	if err != nil {
		return err
	}
	defer amqpSubscriber.Close()

	// Initialize router
	router, err := message.NewRouter(message.RouterConfig{}, logger)
	if err != nil {
		return err
	}

	// Add middleware
	router.AddMiddleware(
		middleware.Recoverer,
		middleware.CorrelationID,
		middleware.Retry{
			MaxRetries:      3,
			InitialInterval: time.Second,
			Logger:          logger,
		}.Middleware,
	)

	ingestor, err := buildIngestor(ctx, cfg, db)
	if err != nil {
		return err
	}

	jobRepo, err := jobctrl.NewPostgresJobRepository(db)
	if err != nil {
		return err
	}
	if err := jobRepo.Migrate(); err != nil {
		return err
	}
	jobService := jobctrl.NewJobService(amqpPublisher, jobRepo, logger, ingestor)

	// Add handler for processing jobs
	router.AddNoPublisherHandler(
		"job_processor",
		jobctrl.QueueTopic,
		amqpSubscriber,
		func(msg *message.Message) error {
			return jobService.ProcessJobMessage(msg)
		},
	)

	// Run the router
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		if err := router.Run(runCtx); err != nil {
			log.Error(err, "Router stopped with error")
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	<-c

	log.Info("Shutting down...")
	cancel()
	<-router.Running()
	log.Info("Router stopped")

	return nil
}

// buildIngestor wires a full ingestion pipeline from configuration. Both the
// worker and the ingest command use it.
func buildIngestor(ctx context.Context, cfg *config.Config, db *gorm.DB) (*rag.Ingestor, error) {
	documentService := documentctrl.NewDocumentService(db)
	if err := documentService.Migrate(); err != nil {
		return nil, err
	}

	oc := ollama.NewClient(cfg.OllamaURL, &http.Client{
		Timeout: cfg.OllamaTimeout,
	})
	provider := ollama.NewProvider(oc, cfg.EmbedModel, cfg.GenerateModel, cfg.Temperature)

	var store rag.VectorStore
	switch cfg.IndexBackend {
	case config.IndexBackendWeaviate:
		wc := weaviateClient.New(weaviateClient.Config{
			Host:   cfg.WeaviateURL,
			Scheme: "http",
		})
		ws := weaviateStore.NewStore(wc)
		if err := ws.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		store = ws
	default:
		idx, err := vectorindex.NewIndex(filepath.Join(cfg.DataRoot, "index.json"))
		if err != nil {
			return nil, err
		}
		store = idx
	}

	blobs, err := minioctrl.NewBlobStore(
		cfg.MinioEndpoint,
		cfg.MinioAccessKey,
		cfg.MinioSecretKey,
		cfg.MinioBucket,
		cfg.MinioUseSSL,
	)
	if err != nil {
		return nil, err
	}
	if err := blobs.EnsureBucket(ctx); err != nil {
		return nil, err
	}

	chunker, err := rag.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, err
	}

	return rag.NewIngestor(
		documentService,
		store,
		blobs,
		rag.NewExtractor(unstructured.NewService(cfg.UnstructuredURL, nil)),
		chunker,
		rag.NewEmbedder(provider, cfg.EmbedBatchSize, cfg.RetryMax),
		fsutil.NewLocalFileStore(),
		cfg.RetryMax,
	), nil
}
