package types

// OcrJob is the single message flowing through both queues. The ingestion
// side publishes it as an OCR request; the worker publishes the same record
// back on the result queue with OcrText (and optionally Summary) filled in.
type OcrJob struct {
	DocumentID       string `json:"documentId"`
	ObjectName       string `json:"objectName"`
	OriginalFileName string `json:"originalFileName"`
	Language         string `json:"language"` // Tesseract language hint, e.g. "deu+eng"
	OcrText          string `json:"ocrText,omitempty"`
	IsSummaryAllowed bool   `json:"isSummaryAllowed"`
	Summary          string `json:"summary,omitempty"`
}

// HasResult reports whether the message is a result leg.
func (j *OcrJob) HasResult() bool {
	return j.OcrText != ""
}

// IndexedDocument is the shape stored in the search index. FileName is the
// display name shown in search results; it falls back to the storage object
// name when the upload carried no original file name.
type IndexedDocument struct {
	DocumentID       string `json:"documentId"`
	FileName         string `json:"fileName"`
	OriginalFileName string `json:"originalFileName"`
	Content          string `json:"content"`
	Summary          string `json:"summary,omitempty"`
}
