package document

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gamma-omg/docqa/readers"
)

// ChunkStore persists a processed document's chunks in the external index.
type ChunkStore interface {
	Add(ctx context.Context, doc *Document) error
}

// Processor validates an upload and drives it through the processing state
// machine: PROCESSING, then PROCESSED or FAILED. A returned document always
// carries its final status; failed documents record the cause in metadata.
type Processor struct {
	maxFileSize int
	allowed     map[Type]struct{}
	extractors  map[Type]readers.Extractor
	chunker     *Chunker
	store       ChunkStore
	log         *slog.Logger
}

type ProcessorConfig struct {
	MaxFileSize  int
	AllowedTypes []Type
	Extractors   map[Type]readers.Extractor
	Chunker      *Chunker
	Store        ChunkStore
	Log          *slog.Logger
}

func NewProcessor(cfg ProcessorConfig) *Processor {
	allowed := make(map[Type]struct{}, len(cfg.AllowedTypes))
	for _, t := range cfg.AllowedTypes {
		allowed[t] = struct{}{}
	}

	return &Processor{
		maxFileSize: cfg.MaxFileSize,
		allowed:     allowed,
		extractors:  cfg.Extractors,
		chunker:     cfg.Chunker,
		store:       cfg.Store,
		log:         cfg.Log,
	}
}

func (p *Processor) Process(ctx context.Context, ownerID string, up Upload) (*Document, error) {
	doc := &Document{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Filename:    up.Filename,
		Type:        up.Type,
		Size:        up.Size,
		Status:      StatusProcessing,
		Tags:        slices.Clone(up.Tags),
		Description: up.Description,
		UploadedAt:  time.Now().UTC(),
		Metadata:    map[string]any{},
	}
	for k, v := range up.Metadata {
		doc.Metadata[k] = v
	}

	if err := p.validate(up); err != nil {
		return p.fail(doc, err)
	}

	text, err := p.extract(up)
	if err != nil {
		return p.fail(doc, err)
	}
	doc.Metadata["text_length"] = len(text)

	doc.Chunks = p.chunker.Chunk(text, doc.ID)
	doc.Summary = summarize(text)

	if err := p.store.Add(ctx, doc); err != nil {
		return p.fail(doc, &IndexError{Err: err})
	}

	doc.Status = StatusProcessed
	doc.ProcessedAt = time.Now().UTC()
	p.log.Info("document processed",
		"document_id", doc.ID,
		"owner_id", ownerID,
		"filename", doc.Filename,
		"chunks", len(doc.Chunks))

	return doc, nil
}

func (p *Processor) fail(doc *Document, err error) (*Document, error) {
	doc.Status = StatusFailed
	doc.Metadata["error"] = err.Error()
	p.log.Warn("document processing failed",
		"document_id", doc.ID,
		"filename", doc.Filename,
		"error", err)

	return doc, err
}

func (p *Processor) validate(up Upload) error {
	if up.Size > p.maxFileSize {
		return &ValidationError{Reason: fmt.Sprintf(
			"file size %d exceeds maximum allowed size %d", up.Size, p.maxFileSize)}
	}
	if _, ok := p.allowed[up.Type]; !ok {
		return &ValidationError{Reason: fmt.Sprintf("file type %s is not allowed", up.Type)}
	}
	if len(up.Content) == 0 {
		return &ValidationError{Reason: "empty file content"}
	}
	if len(up.Content) != up.Size {
		return &ValidationError{Reason: "declared file size does not match actual content size"}
	}

	return checkSignature(up)
}

func checkSignature(up Upload) error {
	switch up.Type {
	case TypePDF:
		if !bytes.HasPrefix(up.Content, []byte("%PDF-")) {
			return &ValidationError{Reason: "file content does not appear to be a PDF"}
		}
	case TypeDOCX:
		if !bytes.HasPrefix(up.Content, []byte("PK")) {
			return &ValidationError{Reason: "file content does not appear to be a DOCX file"}
		}
	case TypeTXT, TypeMD:
		if _, err := readers.DecodeText(up.Content); err != nil {
			return &ValidationError{Reason: "file content does not appear to be valid text"}
		}
	}

	return nil
}

func (p *Processor) extract(up Upload) (string, error) {
	extractor, ok := p.extractors[up.Type]
	if !ok {
		return "", &readers.ExtractionError{Reason: fmt.Sprintf(
			"no extractor available for file type %s", up.Type)}
	}

	text, err := extractor.Extract(up.Content)
	if err != nil {
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", &readers.ExtractionError{Reason: "no text content could be extracted from the document"}
	}

	return text, nil
}

// summarize returns the first three sentences, or a 200 character prefix for
// short texts.
func summarize(text string) string {
	sentences := strings.SplitN(text, ". ", 4)
	if len(sentences) >= 3 {
		return strings.Join(sentences[:3], ". ") + "."
	}
	if len(text) > 200 {
		return text[:200] + "..."
	}

	return text
}
