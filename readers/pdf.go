package readers

import (
	"bytes"

	"code.sajari.com/docconv/v2"
)

type PdfExtractor struct {
}

func (e *PdfExtractor) Extract(content []byte) (string, error) {
	res, err := docconv.Convert(bytes.NewReader(content), "application/pdf", true)
	if err != nil {
		return "", &ExtractionError{Reason: "failed to extract text from pdf", Err: err}
	}

	return res.Body, nil
}
