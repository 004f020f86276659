package documents

import "errors"

var (
	ErrNotFound     = errors.New("document not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrNotPDF       = errors.New("file is not a valid PDF")
	ErrConflict     = errors.New("document is being processed")
	ErrTooLarge     = errors.New("file too large")
)
