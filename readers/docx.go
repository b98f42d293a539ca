package readers

import (
	"bytes"

	"code.sajari.com/docconv/v2"
)

const docxMime = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

type DocxExtractor struct {
}

func (e *DocxExtractor) Extract(content []byte) (string, error) {
	res, err := docconv.Convert(bytes.NewReader(content), docxMime, true)
	if err != nil {
		return "", &ExtractionError{Reason: "failed to extract text from docx", Err: err}
	}

	return res.Body, nil
}
