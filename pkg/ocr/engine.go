// Package ocr turns stored PDFs into plain text. Pages are rendered with
// MuPDF (go-fitz), cleaned up for recognition and fed to Tesseract
// (gosseract) one by one.
package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/otiai10/gosseract/v2"
	"go.uber.org/zap"
)

const (
	// renderDPI is deliberately high; scanned documents recognize far
	// better at 400 DPI than at the MuPDF default.
	renderDPI = 400.0

	// DefaultLanguage is the Tesseract hint used when a request carries none.
	DefaultLanguage = "deu+eng"
)

// Engine extracts text from PDF bytes.
//
// ExtractText keeps "ran but found nothing" ("", nil) distinguishable from
// "failed" ("", err); callers that put the result on the wire collapse both
// to an empty string.
type Engine struct {
	logger *zap.Logger
}

// NewEngine creates a new Engine.
func NewEngine(logger *zap.Logger) *Engine {
	return &Engine{logger: logger}
}

// ExtractText rasterizes every page of the PDF at 400 DPI in grayscale,
// preprocesses it and runs Tesseract with the given language hint. Page
// texts are joined with a line break and the result is trimmed.
func (e *Engine) ExtractText(ctx context.Context, pdf []byte, language string) (string, error) {
	doc, err := fitz.NewFromMemory(pdf)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	if language == "" {
		language = DefaultLanguage
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(strings.Split(language, "+")...); err != nil {
		return "", fmt.Errorf("failed to set OCR language %q: %w", language, err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		return "", fmt.Errorf("failed to set page segmentation mode: %w", err)
	}

	pageCount := doc.NumPage()
	var builder strings.Builder

	for page := 0; page < pageCount; page++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		img, err := doc.ImageDPI(page, renderDPI)
		if err != nil {
			return "", fmt.Errorf("failed to render page %d: %w", page+1, err)
		}

		prepared := Prepare(img)

		var buf bytes.Buffer
		if err := png.Encode(&buf, prepared); err != nil {
			return "", fmt.Errorf("failed to encode page %d: %w", page+1, err)
		}

		if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
			return "", fmt.Errorf("failed to load page %d into Tesseract: %w", page+1, err)
		}

		text, err := client.Text()
		if err != nil {
			return "", fmt.Errorf("failed to recognize page %d: %w", page+1, err)
		}

		if strings.TrimSpace(text) != "" {
			builder.WriteString(text)
			builder.WriteString("\n")
		}
	}

	result := strings.TrimSpace(builder.String())
	if result == "" {
		e.logger.Warn("OCR completed but returned no text", zap.Int("pages", pageCount))
	}
	return result, nil
}
