package readers

import (
	"errors"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// TextExtractor handles plain text payloads (txt, md).
type TextExtractor struct {
}

func (e *TextExtractor) Extract(content []byte) (string, error) {
	text, err := DecodeText(content)
	if err != nil {
		return "", &ExtractionError{Reason: "failed to extract text from file", Err: err}
	}

	return text, nil
}

// DecodeText decodes content as UTF-8, falling back to Latin-1 and then
// CP1252.
func DecodeText(content []byte) (string, error) {
	if utf8.Valid(content) {
		return string(content), nil
	}

	for _, cm := range []*charmap.Charmap{charmap.ISO8859_1, charmap.Windows1252} {
		decoded, err := cm.NewDecoder().Bytes(content)
		if err == nil {
			return string(decoded), nil
		}
	}

	return "", errors.New("could not decode file content with any supported encoding")
}
