package domain

import (
	"errors"
	"path/filepath"
	"strings"
)

// InputKind is the file family of a conversion input, sniffed by extension
// only. Deeper format inspection is out of scope.
type InputKind string

const (
	InputPDF  InputKind = "pdf"
	InputDoc  InputKind = "doc"
	InputDocx InputKind = "docx"
)

func DetectInputKind(path string) (InputKind, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	switch ext {
	case "pdf":
		return InputPDF, nil
	case "doc":
		return InputDoc, nil
	case "docx":
		return InputDocx, nil
	default:
		return "", WrapError(ErrUnsupportedInput, "detect input kind", errors.New(path))
	}
}
