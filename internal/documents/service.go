package documents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"docinsight-backend/internal/extract"
	"docinsight-backend/internal/extractions"
	"docinsight-backend/internal/pages"
	"docinsight-backend/internal/shared/storage/object"
	"docinsight-backend/internal/shared/telemetry"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// ChatCleaner removes the chat history of a document.
type ChatCleaner interface {
	DeleteByDocument(ctx context.Context, documentID string) error
}

// Runner starts background processing of a document.
type Runner interface {
	Start(ctx context.Context, documentID string)
	Reprocess(ctx context.Context, documentID string) error
	// Cancel stops background work on the document and waits for it to end.
	Cancel(ctx context.Context, documentID string) error
}

// Service contains business logic for documents.
type Service struct {
	Store          object.ObjectStore
	Repo           Repo
	Pages          pages.Repo
	Extractions    extractions.Repo
	Chat           ChatCleaner
	Runner         Runner
	MaxUploadBytes int64
	// OnChange is called after a user's documents changed.
	OnChange func(userID string)
}

// Detail is a document with its analysis results.
type Detail struct {
	Document    Document
	Extractions []extractions.Extraction
}

// Upload validates the PDF, stores it, records the document and starts processing.
func (s *Service) Upload(ctx context.Context, userID, fileName string, r io.Reader) (Document, error) {
	fileName = strings.TrimSpace(fileName)
	if userID == "" || fileName == "" {
		return Document{}, fmt.Errorf("%w: file name is required", ErrInvalidInput)
	}
	if !strings.EqualFold(filepath.Ext(fileName), ".pdf") {
		return Document{}, fmt.Errorf("%w: only .pdf files are accepted", ErrNotPDF)
	}

	limit := s.MaxUploadBytes
	if limit <= 0 {
		limit = 20 << 20
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return Document{}, ErrTooLarge
		}
		return Document{}, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > limit {
		return Document{}, ErrTooLarge
	}
	if len(data) == 0 {
		return Document{}, fmt.Errorf("%w: file is empty", ErrInvalidInput)
	}
	if !extract.HasMagic(data) {
		return Document{}, fmt.Errorf("%w: missing PDF header", ErrNotPDF)
	}
	if sniffed := http.DetectContentType(data); sniffed != extract.MimePDF {
		return Document{}, fmt.Errorf("%w: detected %s", ErrNotPDF, sniffed)
	}
	if err := extract.ValidatePDF(data); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrNotPDF, err)
	}

	storageKey, size, _, err := s.Store.Save(ctx, userID, fileName, bytes.NewReader(data))
	if err != nil {
		return Document{}, fmt.Errorf("storage save: %w", err)
	}

	now := time.Now().UTC()
	doc := Document{
		ID:              uuid.NewString(),
		UserID:          userID,
		FileName:        fileName,
		MimeType:        extract.MimePDF,
		SizeBytes:       size,
		StorageProvider: s.Store.Provider(),
		StorageKey:      storageKey,
		Status:          StatusPending,
		Progress:        0,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.Repo.Create(ctx, doc); err != nil {
		if delErr := s.Store.Delete(context.Background(), storageKey); delErr != nil {
			telemetry.Warn("documents.orphan_file", map[string]any{
				"request_id":  telemetry.RequestIDFromContext(ctx),
				"storage_key": storageKey,
				"error":       delErr.Error(),
			})
		}
		return Document{}, fmt.Errorf("create document: %w", err)
	}
	s.changed(userID)

	if s.Runner != nil {
		s.Runner.Start(ctx, doc.ID)
	}
	return doc, nil
}

// List returns a page of the user's documents, newest first.
func (s *Service) List(ctx context.Context, userID string, filter ListFilter) ([]Document, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if filter.Status != "" && !ValidStatus(filter.Status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, filter.Status)
	}
	filter.Limit = ClampLimit(filter.Limit)
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.Repo.ListByUser(ctx, userID, filter)
}

// ClampLimit applies the default and maximum page size.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

// Get returns a document with its extractions.
func (s *Service) Get(ctx context.Context, userID, documentID string) (Detail, error) {
	doc, err := s.Repo.GetByID(ctx, userID, documentID)
	if err != nil {
		return Detail{}, err
	}
	list := []extractions.Extraction{}
	if s.Extractions != nil {
		list, err = s.Extractions.ListByDocument(ctx, doc.ID)
		if err != nil {
			return Detail{}, fmt.Errorf("list extractions: %w", err)
		}
	}
	return Detail{Document: doc, Extractions: list}, nil
}

// ListPages returns the extracted page texts of a document.
func (s *Service) ListPages(ctx context.Context, userID, documentID string) (Document, []pages.Page, error) {
	doc, err := s.Repo.GetByID(ctx, userID, documentID)
	if err != nil {
		return Document{}, nil, err
	}
	list, err := s.Pages.ListByDocument(ctx, doc.ID)
	if err != nil {
		return Document{}, nil, fmt.Errorf("list pages: %w", err)
	}
	return doc, list, nil
}

// Delete stops background processing of the document, removes its pages,
// extractions, chat history and stored file in parallel, then the document
// itself. Every child delete is attempted; if any fails the document row is
// kept so the delete can be retried.
func (s *Service) Delete(ctx context.Context, userID, documentID string) error {
	doc, err := s.Repo.GetByID(ctx, userID, documentID)
	if err != nil {
		return err
	}
	if s.Runner != nil {
		if err := s.Runner.Cancel(ctx, doc.ID); err != nil {
			return fmt.Errorf("cancel processing: %w", err)
		}
	}

	var g errgroup.Group
	children := map[string]func(context.Context) error{
		"pages": func(ctx context.Context) error { return s.Pages.DeleteByDocument(ctx, doc.ID) },
		"extractions": func(ctx context.Context) error {
			return s.Extractions.DeleteByDocument(ctx, doc.ID)
		},
		"file": func(ctx context.Context) error {
			if err := s.Store.Delete(ctx, doc.StorageKey); err != nil && !errors.Is(err, object.ErrNotFound) {
				return err
			}
			return nil
		},
	}
	if s.Chat != nil {
		children["chat"] = func(ctx context.Context) error { return s.Chat.DeleteByDocument(ctx, doc.ID) }
	}
	for name, del := range children {
		g.Go(func() error {
			if err := del(ctx); err != nil {
				telemetry.Error("documents.delete_child_failed", map[string]any{
					"request_id":  telemetry.RequestIDFromContext(ctx),
					"document_id": doc.ID,
					"child":       name,
					"error":       err.Error(),
				})
				return fmt.Errorf("delete %s: %w", name, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := s.Repo.Delete(ctx, doc.ID); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("delete document: %w", err)
	}
	s.changed(userID)
	return nil
}

// Reprocess clears previous results and runs the pipeline again.
func (s *Service) Reprocess(ctx context.Context, userID, documentID string) (Document, error) {
	doc, err := s.Repo.GetByID(ctx, userID, documentID)
	if err != nil {
		return Document{}, err
	}
	if doc.Status == StatusProcessing {
		return Document{}, ErrConflict
	}
	if s.Runner == nil {
		return Document{}, errors.New("processing runner not configured")
	}
	if err := s.Runner.Reprocess(ctx, doc.ID); err != nil {
		return Document{}, err
	}
	s.changed(userID)
	return s.Repo.GetByID(ctx, userID, documentID)
}

func (s *Service) changed(userID string) {
	if s.OnChange != nil {
		s.OnChange(userID)
	}
}
