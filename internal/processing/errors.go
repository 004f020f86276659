package processing

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"docinsight-backend/internal/extract"
	"docinsight-backend/internal/shared/storage/object"
)

const (
	ErrorCodeParseFailed = "parse_failed"
	ErrorCodeStorage     = "storage"
	ErrorCodeInternal    = "internal"
)

const maxErrorLen = 500

// stageError tags a pipeline failure with its classification.
type stageError struct {
	code string
	err  error
}

func (e *stageError) Error() string { return e.err.Error() }
func (e *stageError) Unwrap() error { return e.err }

func storageErr(format string, args ...any) error {
	return &stageError{code: ErrorCodeStorage, err: fmt.Errorf(format, args...)}
}

func classifyFailure(err error) string {
	if err == nil {
		return ErrorCodeInternal
	}
	if errors.Is(err, extract.ErrParse) || errors.Is(err, extract.ErrNotPDF) {
		return ErrorCodeParseFailed
	}
	var se *stageError
	if errors.As(err, &se) {
		return se.code
	}
	if errors.Is(err, object.ErrNotFound) {
		return ErrorCodeStorage
	}
	return ErrorCodeInternal
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(strings.ToValidUTF8(msg, ""))
	if len(msg) > maxErrorLen {
		n := maxErrorLen
		for n > 0 && !utf8.RuneStart(msg[n]) {
			n--
		}
		msg = msg[:n]
	}
	return msg
}

// errorMessage is what gets stored on a failed document.
func errorMessage(err error) string {
	return sanitizeError(fmt.Errorf("%s: %w", classifyFailure(err), err))
}
