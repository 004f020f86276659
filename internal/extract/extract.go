package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"docinsight-backend/internal/shared/storage/object"
)

const MimePDF = "application/pdf"

var pdfMagic = []byte("%PDF-")

var (
	// ErrNotPDF marks input that is not a structurally valid PDF.
	ErrNotPDF = errors.New("not a pdf")
	// ErrParse marks a PDF whose text could not be extracted.
	ErrParse = errors.New("pdf parse failed")
)

// HasMagic reports whether data starts with the PDF header.
func HasMagic(data []byte) bool {
	return bytes.HasPrefix(data, pdfMagic)
}

// ValidatePDF checks the header and runs pdfcpu in relaxed validation mode.
// Library used: github.com/pdfcpu/pdfcpu.
func ValidatePDF(data []byte) error {
	if !HasMagic(data) {
		return fmt.Errorf("%w: missing %%PDF- header", ErrNotPDF)
	}
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if err := api.Validate(bytes.NewReader(data), conf); err != nil {
		return fmt.Errorf("%w: %v", ErrNotPDF, err)
	}
	return nil
}

// ParsePages returns the plain text of every page, in order. Pages without
// content yield empty strings. A document without pages is a parse failure.
// Library used: github.com/ledongthuc/pdf.
func ParsePages(ctx context.Context, data []byte) (texts []string, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// The reader panics on some malformed content streams.
	defer func() {
		if r := recover(); r != nil {
			texts = nil
			err = fmt.Errorf("%w: %v", ErrParse, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	total := reader.NumPage()
	if total == 0 {
		return nil, fmt.Errorf("%w: document has no pages", ErrParse)
	}

	texts = make([]string, 0, total)
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			texts = append(texts, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %v", ErrParse, i, err)
		}
		texts = append(texts, strings.TrimSpace(text))
	}
	return texts, nil
}

// ReadObject loads a stored file fully into memory.
func ReadObject(ctx context.Context, store object.ObjectStore, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body, err := store.Open(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("open key=%s: %w", key, err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read key=%s: %w", key, err)
	}
	return data, nil
}

// PagesFromStore reads a stored PDF and extracts its page texts.
func PagesFromStore(ctx context.Context, store object.ObjectStore, key string) ([]string, error) {
	data, err := ReadObject(ctx, store, key)
	if err != nil {
		return nil, err
	}
	texts, err := ParsePages(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("extract key=%s: %w", key, err)
	}
	return texts, nil
}
