package extract

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"docinsight-backend/internal/shared/storage/object/local"
)

func TestValidatePDFAcceptsGeneratedFile(t *testing.T) {
	if err := ValidatePDF(BuildPDF("Quarterly report")); err != nil {
		t.Fatalf("expected generated pdf to validate, got %v", err)
	}
}

func TestValidatePDFRejectsMissingMagic(t *testing.T) {
	err := ValidatePDF([]byte("hello world"))
	if !errors.Is(err, ErrNotPDF) {
		t.Fatalf("expected ErrNotPDF, got %v", err)
	}
}

func TestValidatePDFRejectsHeaderOnly(t *testing.T) {
	err := ValidatePDF([]byte("%PDF-1.4\nthis is not a pdf body\n"))
	if !errors.Is(err, ErrNotPDF) {
		t.Fatalf("expected ErrNotPDF for header-only input, got %v", err)
	}
}

func TestParsePagesReturnsTextPerPage(t *testing.T) {
	texts, err := ParsePages(context.Background(), BuildPDF("Revenue grew", "Costs fell"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(texts) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(texts))
	}
	if !strings.Contains(texts[0], "Revenue") || !strings.Contains(texts[1], "Costs") {
		t.Fatalf("unexpected page texts: %q", texts)
	}
}

func TestParsePagesRejectsGarbage(t *testing.T) {
	_, err := ParsePages(context.Background(), []byte("%PDF-1.4 not really"))
	if !errors.Is(err, ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
}

func TestPagesFromStore(t *testing.T) {
	store := local.New(t.TempDir())
	ctx := context.Background()
	key, _, mime, err := store.Save(ctx, "user-1", "report.pdf", bytes.NewReader(BuildPDF("Stored page")))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if mime != MimePDF {
		t.Fatalf("expected sniffed mime %s, got %s", MimePDF, mime)
	}
	texts, err := PagesFromStore(ctx, store, key)
	if err != nil {
		t.Fatalf("pages from store: %v", err)
	}
	if len(texts) != 1 || !strings.Contains(texts[0], "Stored") {
		t.Fatalf("unexpected texts: %q", texts)
	}
}
