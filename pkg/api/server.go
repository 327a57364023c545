// Package api exposes the document service HTTP surface: the catalog CRUD,
// the multipart upload that triggers the OCR pipeline, the polling endpoint
// for OCR results, full-text search and the explicit OCR re-trigger.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"go.uber.org/zap"

	"github.com/ViVictory11/Paperless/pkg/database"
	"github.com/ViVictory11/Paperless/pkg/ocr"
	"github.com/ViVictory11/Paperless/pkg/resultstore"
	"github.com/ViVictory11/Paperless/pkg/types"
)

const maxUploadBytes = 64 << 20

// Catalog is the durable document catalog the API reads and writes.
type Catalog interface {
	ListDocuments(ctx context.Context) ([]database.Document, error)
	GetDocument(ctx context.Context, id uuid.UUID) (*database.Document, error)
	CreateDocument(ctx context.Context, doc *database.Document) error
	DeleteDocument(ctx context.Context, id uuid.UUID) (bool, error)
	GetSummary(ctx context.Context, id uuid.UUID) (string, error)
}

// ObjectStore stores and removes document PDFs.
type ObjectStore interface {
	Upload(ctx context.Context, r io.Reader, size int64, objectName, contentType string) (string, error)
	Delete(ctx context.Context, objectName string) error
}

// Searcher serves full-text queries and index deletions.
type Searcher interface {
	Search(ctx context.Context, query string) ([]types.IndexedDocument, error)
	Delete(ctx context.Context, documentID string) error
}

// Publisher publishes a message to a named queue.
type Publisher interface {
	Publish(queueName string, v any) error
}

// Server wires the HTTP handlers to their collaborators. queue may be nil
// when the broker was unreachable at startup; uploads then succeed without
// triggering OCR and clients use the re-trigger endpoint later.
type Server struct {
	catalog   Catalog
	storage   ObjectStore
	results   resultstore.Store
	search    Searcher
	queue     Publisher
	workQueue string
	logger    *zap.Logger
}

// NewServer creates a Server.
func NewServer(
	catalog Catalog,
	storage ObjectStore,
	results resultstore.Store,
	search Searcher,
	queue Publisher,
	workQueue string,
	logger *zap.Logger,
) *Server {
	return &Server{
		catalog:   catalog,
		storage:   storage,
		results:   results,
		search:    search,
		queue:     queue,
		workQueue: workQueue,
		logger:    logger,
	}
}

// Router builds the chi router for the service.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "service": "document-service"})
	})

	r.Route("/api/documents", func(r chi.Router) {
		r.Get("/", s.listDocuments)
		r.Post("/", s.uploadDocument)
		r.Get("/search", s.searchDocuments)
		r.Get("/{id}", s.getDocument)
		r.Delete("/{id}", s.deleteDocument)
		r.Get("/{id}/result", s.getResult)
		r.Post("/{id}/ocr", s.retriggerOCR)
	})

	return r
}

func (s *Server) listDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.catalog.ListDocuments(r.Context())
	if err != nil {
		s.logger.Error("failed to list documents", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list documents")
		return
	}
	if docs == nil {
		docs = []database.Document{}
	}
	writeJSON(w, http.StatusOK, docs)
}

func (s *Server) getDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	doc, err := s.catalog.GetDocument(r.Context(), id)
	if err != nil {
		s.logger.Error("failed to get document", zap.String("id", id.String()), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to get document")
		return
	}
	if doc == nil {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// uploadDocument accepts a multipart PDF, stores it, creates the catalog row
// and publishes the request-leg job message. A broker failure is logged but
// does not fail the upload; the document can be re-triggered later.
func (s *Server) uploadDocument(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > maxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "upload exceeds size limit")
		return
	}
	// Bounds chunked bodies too, which carry no Content-Length.
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	pageCount, err := pdfapi.PageCount(bytes.NewReader(data), nil)
	if err != nil || pageCount == 0 {
		writeError(w, http.StatusBadRequest, "file is not a valid PDF")
		return
	}

	id := uuid.New()
	objectName := ObjectName(id)

	ctx := r.Context()
	if _, err := s.storage.Upload(ctx, bytes.NewReader(data), int64(len(data)), objectName, "application/pdf"); err != nil {
		s.logger.Error("failed to upload document to storage", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to store document")
		return
	}

	doc := &database.Document{
		ID:          id,
		FileName:    header.Filename,
		ContentType: "application/pdf",
		SizeBytes:   int64(len(data)),
		UploadedAt:  time.Now().UTC(),
	}
	if err := s.catalog.CreateDocument(ctx, doc); err != nil {
		s.logger.Error("failed to create catalog row", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create document")
		return
	}

	s.publishJob(doc, r.FormValue("language"), r.FormValue("summarize") != "false")

	s.logger.Info("document uploaded",
		zap.String("id", id.String()),
		zap.String("fileName", header.Filename),
		zap.Int("pages", pageCount))
	writeJSON(w, http.StatusCreated, doc)
}

func (s *Server) deleteDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	removed, err := s.catalog.DeleteDocument(ctx, id)
	if err != nil {
		s.logger.Error("failed to delete document", zap.String("id", id.String()), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to delete document")
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}

	// Storage and index cleanup is best effort.
	if err := s.storage.Delete(ctx, ObjectName(id)); err != nil {
		s.logger.Warn("failed to delete stored object", zap.String("id", id.String()), zap.Error(err))
	}
	if err := s.search.Delete(ctx, id.String()); err != nil {
		s.logger.Warn("failed to delete index entry", zap.String("id", id.String()), zap.Error(err))
	}

	w.WriteHeader(http.StatusNoContent)
}

// getResult is the polling endpoint. While no OCR result has been stored the
// document reports as still processing; completion is never pushed.
func (s *Server) getResult(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	text, found, err := s.results.Get(ctx, id.String())
	if err != nil {
		s.logger.Error("failed to read result store", zap.String("id", id.String()), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to read result")
		return
	}
	if !found {
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "processing"})
		return
	}

	summary, err := s.catalog.GetSummary(ctx, id)
	if err != nil {
		s.logger.Warn("failed to read summary", zap.String("id", id.String()), zap.Error(err))
		summary = ""
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"text":    text,
		"summary": summary,
	})
}

func (s *Server) searchDocuments(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "missing query parameter q")
		return
	}

	docs, err := s.search.Search(r.Context(), query)
	if err != nil {
		s.logger.Error("search failed", zap.String("query", query), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	if docs == nil {
		docs = []types.IndexedDocument{}
	}
	writeJSON(w, http.StatusOK, docs)
}

// retriggerOCR publishes a fresh request-leg message for an existing
// document. This is the documented re-submission mechanism; the broker never
// retries on its own.
func (s *Server) retriggerOCR(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	doc, err := s.catalog.GetDocument(r.Context(), id)
	if err != nil {
		s.logger.Error("failed to get document", zap.String("id", id.String()), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to get document")
		return
	}
	if doc == nil {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}

	if s.queue == nil {
		writeError(w, http.StatusServiceUnavailable, "message broker unavailable")
		return
	}
	if !s.publishJob(doc, r.URL.Query().Get("language"), r.URL.Query().Get("summarize") != "false") {
		writeError(w, http.StatusServiceUnavailable, "failed to queue OCR job")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (s *Server) publishJob(doc *database.Document, language string, summaryAllowed bool) bool {
	if s.queue == nil {
		s.logger.Warn("message broker unavailable, OCR not triggered",
			zap.String("id", doc.ID.String()))
		return false
	}

	if language == "" {
		language = ocr.DefaultLanguage
	}
	job := types.OcrJob{
		DocumentID:       doc.ID.String(),
		ObjectName:       ObjectName(doc.ID),
		OriginalFileName: doc.FileName,
		Language:         language,
		IsSummaryAllowed: summaryAllowed,
	}

	if err := s.queue.Publish(s.workQueue, &job); err != nil {
		s.logger.Error("failed to publish OCR job",
			zap.String("id", doc.ID.String()),
			zap.Error(err))
		return false
	}
	return true
}

// ObjectName derives the storage object name for a document id. It is
// deterministic so the re-trigger endpoint can rebuild it without the
// catalog storing it.
func ObjectName(id uuid.UUID) string {
	return id.String() + ".pdf"
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid document id")
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
