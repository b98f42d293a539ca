package document

import "fmt"

// ValidationError rejects an upload before any extraction happens. It is
// terminal: processing for the document never starts.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// IndexError reports a failure to persist chunk records in the external
// index. The whole batch is treated as not durable.
type IndexError struct {
	Err error
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("failed to store chunks in index: %v", e.Err)
}

func (e *IndexError) Unwrap() error {
	return e.Err
}
