package document

import "time"

type Type string

const (
	TypePDF  Type = "pdf"
	TypeTXT  Type = "txt"
	TypeDOCX Type = "docx"
	TypeMD   Type = "md"
)

type Status string

const (
	StatusUploaded   Status = "uploaded"
	StatusProcessing Status = "processing"
	StatusProcessed  Status = "processed"
	StatusFailed     Status = "failed"
)

// Upload carries a decoded document payload together with the metadata the
// caller declared for it. Size is the declared byte size, checked against
// len(Content) during validation.
type Upload struct {
	Filename    string
	Type        Type
	Size        int
	Content     []byte
	Tags        []string
	Description string
	Metadata    map[string]any
}

// Chunk is a bounded slice of a document's text. StartChar and EndChar are
// offsets into the extracted text before whitespace trimming.
type Chunk struct {
	ID         string
	DocumentID string
	Content    string
	Index      int
	StartChar  int
	EndChar    int
	Metadata   map[string]any
}

type Document struct {
	ID          string
	OwnerID     string
	Filename    string
	Type        Type
	Size        int
	Status      Status
	Tags        []string
	Description string
	Summary     string
	UploadedAt  time.Time
	ProcessedAt time.Time
	Chunks      []Chunk
	Metadata    map[string]any
}
