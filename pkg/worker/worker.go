// Package worker turns request-leg OCR jobs from the work queue into
// result-leg jobs on the result queue.
package worker

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/ViVictory11/Paperless/pkg/types"
)

// ObjectDownloader fetches a stored PDF by its object name.
type ObjectDownloader interface {
	Download(ctx context.Context, objectName string) ([]byte, error)
}

// TextExtractor runs OCR over PDF bytes.
type TextExtractor interface {
	ExtractText(ctx context.Context, pdf []byte, language string) (string, error)
}

// Summarizer produces a best-effort summary; "" means no summary.
type Summarizer interface {
	Summarize(ctx context.Context, text string) string
}

// Publisher publishes a message to a named queue.
type Publisher interface {
	Publish(queueName string, v any) error
}

// Worker processes one job message at a time. It never fails a job: OCR
// errors collapse to empty text and summarization errors to an absent
// summary, so every valid request produces exactly one result message.
type Worker struct {
	storage     ObjectDownloader
	engine      TextExtractor
	summarizer  Summarizer
	publisher   Publisher
	resultQueue string
	logger      *zap.Logger
}

// New creates a Worker. summarizer may be nil when summarization is not
// configured; summaries then stay absent regardless of the request.
func New(
	storage ObjectDownloader,
	engine TextExtractor,
	summarizer Summarizer,
	publisher Publisher,
	resultQueue string,
	logger *zap.Logger,
) *Worker {
	return &Worker{
		storage:     storage,
		engine:      engine,
		summarizer:  summarizer,
		publisher:   publisher,
		resultQueue: resultQueue,
		logger:      logger,
	}
}

// Handle processes a single raw delivery from the work queue. Messages that
// do not parse as a job are logged and dropped.
func (w *Worker) Handle(ctx context.Context, body []byte) {
	var job types.OcrJob
	if err := json.Unmarshal(body, &job); err != nil {
		w.logger.Error("invalid JSON in received message", zap.Error(err))
		return
	}
	if job.DocumentID == "" {
		w.logger.Warn("invalid OCR message received: missing document id")
		return
	}

	w.logger.Info("processing OCR job",
		zap.String("documentId", job.DocumentID),
		zap.String("objectName", job.ObjectName))

	job.OcrText = w.extract(ctx, &job)

	// An interrupted handler never publishes its result leg: with auto-ack
	// the request is gone either way, and an empty result would overwrite
	// any text the document already has in the index.
	if ctx.Err() != nil {
		w.logger.Warn("shutdown interrupted OCR job, no result published",
			zap.String("documentId", job.DocumentID))
		return
	}

	if job.IsSummaryAllowed && w.summarizer != nil {
		job.Summary = w.summarizer.Summarize(ctx, job.OcrText)
	}

	if err := w.publisher.Publish(w.resultQueue, &job); err != nil {
		w.logger.Error("failed to publish OCR result",
			zap.String("documentId", job.DocumentID),
			zap.Error(err))
		return
	}

	w.logger.Info("sent OCR result",
		zap.String("documentId", job.DocumentID),
		zap.Int("textChars", len(job.OcrText)),
		zap.Bool("hasSummary", job.Summary != ""))
}

// extract downloads and OCRs the document, collapsing every failure to an
// empty string so the request/result round trip always completes.
func (w *Worker) extract(ctx context.Context, job *types.OcrJob) string {
	pdf, err := w.storage.Download(ctx, job.ObjectName)
	if err != nil {
		w.logger.Error("failed to fetch document from storage",
			zap.String("documentId", job.DocumentID),
			zap.String("objectName", job.ObjectName),
			zap.Error(err))
		return ""
	}

	text, err := w.engine.ExtractText(ctx, pdf, job.Language)
	if err != nil {
		w.logger.Error("OCR failed",
			zap.String("documentId", job.DocumentID),
			zap.Error(err))
		return ""
	}
	return text
}
