// Package readers extracts plain text from uploaded document payloads.
package readers

import "fmt"

// Extractor turns a raw document payload into plain text.
type Extractor interface {
	Extract(content []byte) (string, error)
}

// ExtractionError reports corrupt or unreadable document content.
type ExtractionError struct {
	Reason string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}

	return e.Reason
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}
