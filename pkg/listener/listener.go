// Package listener consumes result-leg OCR jobs and fans them out to the
// result store, the durable catalog and the search index.
package listener

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ViVictory11/Paperless/pkg/resultstore"
	"github.com/ViVictory11/Paperless/pkg/types"
)

// SummaryWriter persists a summary onto the catalog row for id.
type SummaryWriter interface {
	SaveSummary(ctx context.Context, id uuid.UUID, summary string) error
}

// Indexer writes a document into the search index.
type Indexer interface {
	Index(ctx context.Context, doc types.IndexedDocument) error
}

// Listener handles result-queue deliveries. Catalog and index failures are
// logged and isolated from each other; nothing here retries.
type Listener struct {
	results resultstore.Store
	catalog SummaryWriter
	index   Indexer
	logger  *zap.Logger
}

// New creates a Listener.
func New(results resultstore.Store, catalog SummaryWriter, index Indexer, logger *zap.Logger) *Listener {
	return &Listener{
		results: results,
		catalog: catalog,
		index:   index,
		logger:  logger,
	}
}

// Handle processes a single raw delivery from the result queue.
//
// Only non-empty OCR text is written to the result store. A document whose
// OCR failed therefore keeps polling as "not ready" indefinitely; that is
// deliberate, the pipeline has no explicit failure state.
func (l *Listener) Handle(ctx context.Context, body []byte) {
	var msg types.OcrJob
	if err := json.Unmarshal(body, &msg); err != nil {
		l.logger.Error("invalid JSON in OCR result", zap.Error(err))
		return
	}
	if msg.DocumentID == "" {
		l.logger.Warn("invalid OCR result received: missing document id")
		return
	}

	if msg.HasResult() {
		if err := l.results.Save(ctx, msg.DocumentID, msg.OcrText); err != nil {
			l.logger.Error("failed to store OCR result",
				zap.String("documentId", msg.DocumentID),
				zap.Error(err))
		} else {
			l.logger.Info("stored OCR result",
				zap.String("documentId", msg.DocumentID),
				zap.Int("textChars", len(msg.OcrText)))
		}
	}

	if msg.Summary != "" {
		l.saveSummary(ctx, &msg)
	}

	doc := types.IndexedDocument{
		DocumentID:       msg.DocumentID,
		FileName:         displayName(&msg),
		OriginalFileName: msg.OriginalFileName,
		Content:          msg.OcrText,
		Summary:          msg.Summary,
	}
	if err := l.index.Index(ctx, doc); err != nil {
		l.logger.Error("failed to index document",
			zap.String("documentId", msg.DocumentID),
			zap.Error(err))
	}
}

func (l *Listener) saveSummary(ctx context.Context, msg *types.OcrJob) {
	id, err := uuid.Parse(msg.DocumentID)
	if err != nil {
		l.logger.Error("cannot save summary: document id is not a UUID",
			zap.String("documentId", msg.DocumentID),
			zap.Error(err))
		return
	}

	if err := l.catalog.SaveSummary(ctx, id, msg.Summary); err != nil {
		l.logger.Error("failed to save summary",
			zap.String("documentId", msg.DocumentID),
			zap.Error(err))
		return
	}

	l.logger.Info("summary saved", zap.String("documentId", msg.DocumentID))
}

func displayName(msg *types.OcrJob) string {
	if msg.OriginalFileName != "" {
		return msg.OriginalFileName
	}
	return msg.ObjectName
}
