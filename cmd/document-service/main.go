package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ViVictory11/Paperless/pkg/api"
	"github.com/ViVictory11/Paperless/pkg/database"
	"github.com/ViVictory11/Paperless/pkg/listener"
	"github.com/ViVictory11/Paperless/pkg/rabbitmq"
	"github.com/ViVictory11/Paperless/pkg/resultstore"
	"github.com/ViVictory11/Paperless/pkg/search"
	"github.com/ViVictory11/Paperless/pkg/storage"
)

func main() {
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	port := getEnv("PORT", "8080")

	rabbitHost := getEnv("RABBITMQ_HOST", "rabbitmq")
	rabbitUser := getEnv("RABBITMQ_USER", "user")
	rabbitPass := getEnv("RABBITMQ_PASS", "pass")
	workQueue := getEnv("RABBITMQ_QUEUE", "document_queue")
	resultQueue := getEnv("RABBITMQ_RESULT_QUEUE", "result_queue")
	listenerConcurrency := getEnvInt("LISTENER_CONCURRENCY", 1)

	minioEndpoint := getEnv("MINIO_ENDPOINT", "minio:9000")
	minioAccessKey := getEnv("MINIO_ROOT_USER", "minioadmin")
	minioSecretKey := getEnv("MINIO_ROOT_PASSWORD", "minioadmin")
	minioUseSSL := getEnv("MINIO_USE_SSL", "false") == "true"
	bucketName := getEnv("BUCKET_NAME", "documents")

	postgresHost := getEnv("POSTGRES_HOST", "localhost")
	postgresPort := getEnv("POSTGRES_PORT", "5432")
	postgresUser := getEnv("POSTGRES_USER", "paperless")
	postgresPassword := getEnv("POSTGRES_PASSWORD", "paperless")
	postgresDB := getEnv("POSTGRES_DB", "paperless")
	postgresMaxPool := getEnvInt("POSTGRES_MAX_POOL_SIZE", 10)

	elasticAddr := getEnv("ELASTICSEARCH_URL", "http://elasticsearch:9200")

	resultStoreKind := getEnv("RESULT_STORE", "memory")
	redisHost := getEnv("REDIS_HOST", "localhost")
	redisPort := getEnv("REDIS_PORT", "6379")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgresDB(database.Config{
		Host:     postgresHost,
		Port:     postgresPort,
		User:     postgresUser,
		Password: postgresPassword,
		DBName:   postgresDB,
		MaxPool:  postgresMaxPool,
	})
	if err != nil {
		logger.Fatal("failed to initialize PostgreSQL", zap.Error(err))
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		logger.Fatal("failed to migrate database", zap.Error(err))
	}
	logger.Info("PostgreSQL connected", zap.String("host", postgresHost))

	store, err := storage.New(ctx, storage.Config{
		Endpoint:  minioEndpoint,
		AccessKey: minioAccessKey,
		SecretKey: minioSecretKey,
		UseSSL:    minioUseSSL,
		Bucket:    bucketName,
	}, logger)
	if err != nil {
		logger.Fatal("failed to initialize MinIO", zap.Error(err))
	}
	logger.Info("MinIO connected", zap.String("endpoint", minioEndpoint))

	searchSvc, err := search.New(elasticAddr, logger)
	if err != nil {
		logger.Fatal("failed to initialize Elasticsearch client", zap.Error(err))
	}
	if err := searchSvc.EnsureIndex(ctx); err != nil {
		// Indexing retries the bootstrap on every write, so this is not fatal.
		logger.Warn("failed to ensure search index", zap.Error(err))
	}

	var results resultstore.Store
	if resultStoreKind == "redis" {
		redisStore, err := resultstore.NewRedisStore(redisHost, redisPort)
		if err != nil {
			logger.Fatal("failed to initialize Redis result store", zap.Error(err))
		}
		defer redisStore.Close()
		results = redisStore
		logger.Info("Redis result store connected", zap.String("host", redisHost))
	} else {
		results = resultstore.NewMemoryStore()
	}

	// A dead broker disables the listener and the OCR trigger but leaves the
	// rest of the HTTP API serving.
	var queue api.Publisher
	broker, err := rabbitmq.Dial(rabbitmq.URL(rabbitHost, rabbitUser, rabbitPass), logger)
	if err != nil {
		logger.Error("RabbitMQ broker unreachable, result listener disabled", zap.Error(err))
	} else {
		defer broker.Close()
		queue = broker

		resultListener := listener.New(results, db, searchSvc, logger)
		go func() {
			if err := broker.Subscribe(ctx, resultQueue, listenerConcurrency, resultListener.Handle); err != nil {
				logger.Error("result listener stopped", zap.Error(err))
			}
		}()
	}

	server := api.NewServer(db, store, results, searchSvc, queue, workQueue, logger)
	httpServer := &http.Server{
		Addr:    ":" + port,
		Handler: server.Router(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("document service listening", zap.String("port", port))
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("http server failed", zap.Error(err))
	}
	logger.Info("document service stopped")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
