package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ViVictory11/Paperless/pkg/ocr"
	"github.com/ViVictory11/Paperless/pkg/rabbitmq"
	"github.com/ViVictory11/Paperless/pkg/storage"
	"github.com/ViVictory11/Paperless/pkg/summarize"
	"github.com/ViVictory11/Paperless/pkg/worker"
)

func main() {
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	rabbitHost := getEnv("RABBITMQ_HOST", "rabbitmq")
	rabbitUser := getEnv("RABBITMQ_USER", "user")
	rabbitPass := getEnv("RABBITMQ_PASS", "pass")
	workQueue := getEnv("RABBITMQ_QUEUE", "document_queue")
	resultQueue := getEnv("RABBITMQ_RESULT_QUEUE", "result_queue")
	concurrency := getEnvInt("WORKER_CONCURRENCY", 1)

	minioEndpoint := getEnv("MINIO_ENDPOINT", "minio:9000")
	minioAccessKey := getEnv("MINIO_ROOT_USER", "minioadmin")
	minioSecretKey := getEnv("MINIO_ROOT_PASSWORD", "minioadmin")
	minioUseSSL := getEnv("MINIO_USE_SSL", "false") == "true"
	bucketName := getEnv("BUCKET_NAME", "documents")

	geminiKey := getEnv("GEMINI_API_KEY", "")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	engine := ocr.NewEngine(logger)

	var summarizer worker.Summarizer
	if geminiKey != "" {
		summarizer = summarize.NewClient(geminiKey, logger)
	} else {
		logger.Warn("GEMINI_API_KEY not set, summarization disabled")
	}

	broker, err := rabbitmq.Dial(rabbitmq.URL(rabbitHost, rabbitUser, rabbitPass), logger)
	if err != nil {
		logger.Fatal("RabbitMQ broker unreachable", zap.Error(err))
	}
	defer broker.Close()

	w := worker.New(store, engine, summarizer, broker, resultQueue, logger)

	logger.Info("OCR worker ready",
		zap.String("workQueue", workQueue),
		zap.String("resultQueue", resultQueue),
		zap.Int("concurrency", concurrency))

	if err := broker.Subscribe(ctx, workQueue, concurrency, w.Handle); err != nil {
		logger.Fatal("consumer stopped", zap.Error(err))
	}
	logger.Info("OCR worker stopped")
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
