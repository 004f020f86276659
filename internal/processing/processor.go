package processing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"docinsight-backend/internal/documents"
	"docinsight-backend/internal/extract"
	"docinsight-backend/internal/extractions"
	"docinsight-backend/internal/llm"
	"docinsight-backend/internal/pages"
	"docinsight-backend/internal/shared/metrics"
	"docinsight-backend/internal/shared/storage/object"
	"docinsight-backend/internal/shared/telemetry"
)

// Progress checkpoints written to the document while it is processed.
const (
	ProgressStarted   = 10
	ProgressParsed    = 25
	ProgressSaved     = 40
	ProgressAnalyzed  = 60
	ProgressPersisted = 80
	ProgressEnhancing = 90
	ProgressCompleted = 100
)

// Processor runs the document pipeline: parse, persist pages, analyze,
// persist extractions, complete, then enhance with the LLM in the background.
type Processor struct {
	Docs        documents.Repo
	Pages       pages.Repo
	Extractions extractions.Repo
	Store       object.ObjectStore
	// Assistant is optional; without a client no enhancement runs.
	Assistant *llm.Assistant
	Stages    []Stage
	OnChange  func(userID string)

	EnhanceTimeout time.Duration

	running   sync.Map // document ID -> *task
	enhancing sync.Map // document ID -> *task
	wg        sync.WaitGroup
}

// task is a cancellable unit of background work on one document.
type task struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func newTask(ctx context.Context) (context.Context, *task) {
	ctx, cancel := context.WithCancel(ctx)
	return ctx, &task{cancel: cancel, done: make(chan struct{})}
}

func (t *task) finish() {
	t.cancel()
	close(t.done)
}

// Start claims the document and processes it in a new goroutine. A document
// that is already being processed by this process is left alone.
func (p *Processor) Start(ctx context.Context, documentID string) {
	taskCtx, t, ok := p.claim(telemetry.DetachedContext(ctx), documentID)
	if !ok {
		telemetry.Info("processing.already_running", map[string]any{
			"request_id":  telemetry.RequestIDFromContext(ctx),
			"document_id": documentID,
		})
		return
	}
	p.launch(taskCtx, documentID, t)
}

// Reprocess clears previous results, resets the document to pending and
// starts a new run. A pending enhancement of the previous run is stopped
// first so it cannot overwrite the new results.
func (p *Processor) Reprocess(ctx context.Context, documentID string) error {
	if err := p.stop(ctx, &p.enhancing, documentID); err != nil {
		return err
	}
	taskCtx, t, ok := p.claim(telemetry.DetachedContext(ctx), documentID)
	if !ok {
		return documents.ErrConflict
	}
	if err := p.reset(ctx, documentID); err != nil {
		p.release(documentID, t)
		return err
	}
	p.launch(taskCtx, documentID, t)
	return nil
}

// Process runs the pipeline synchronously. The returned error is the reason
// the document ended in error, if it did.
func (p *Processor) Process(ctx context.Context, documentID string) error {
	taskCtx, t, ok := p.claim(ctx, documentID)
	if !ok {
		return documents.ErrConflict
	}
	defer p.release(documentID, t)
	return p.execute(taskCtx, documentID)
}

// Cancel stops the pipeline and any enhancement running for documentID and
// waits for them to return. Nothing is written for the document afterwards.
func (p *Processor) Cancel(ctx context.Context, documentID string) error {
	if err := p.stop(ctx, &p.running, documentID); err != nil {
		return err
	}
	return p.stop(ctx, &p.enhancing, documentID)
}

// Wait blocks until every task and enhancement started by p has returned.
func (p *Processor) Wait() {
	p.wg.Wait()
}

// Running reports whether documentID is being processed by this process.
func (p *Processor) Running(documentID string) bool {
	_, ok := p.running.Load(documentID)
	return ok
}

func (p *Processor) claim(ctx context.Context, documentID string) (context.Context, *task, bool) {
	taskCtx, t := newTask(ctx)
	if _, loaded := p.running.LoadOrStore(documentID, t); loaded {
		t.cancel()
		return nil, nil, false
	}
	return taskCtx, t, true
}

func (p *Processor) release(documentID string, t *task) {
	p.running.CompareAndDelete(documentID, t)
	t.finish()
}

func (p *Processor) stop(ctx context.Context, tasks *sync.Map, documentID string) error {
	v, ok := tasks.Load(documentID)
	if !ok {
		return nil
	}
	t := v.(*task)
	t.cancel()
	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Processor) launch(ctx context.Context, documentID string, t *task) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.release(documentID, t)
		_ = p.execute(ctx, documentID)
	}()
}

// startEnhancement registers the enhancement before the pipeline task is
// released so Cancel always finds one of the two.
func (p *Processor) startEnhancement(ctx context.Context, doc documents.Document) {
	if ctx.Err() != nil {
		return
	}
	enhanceCtx, t := newTask(telemetry.DetachedContext(ctx))
	if prev, loaded := p.enhancing.Swap(doc.ID, t); loaded {
		prev.(*task).cancel()
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer func() {
			p.enhancing.CompareAndDelete(doc.ID, t)
			t.finish()
		}()
		p.enhance(enhanceCtx, doc)
	}()
}

func (p *Processor) reset(ctx context.Context, documentID string) error {
	doc, err := p.Docs.Get(ctx, documentID)
	if err != nil {
		return err
	}
	if err := p.Pages.DeleteByDocument(ctx, doc.ID); err != nil {
		return fmt.Errorf("clear pages: %w", err)
	}
	if err := p.Extractions.DeleteByDocument(ctx, doc.ID); err != nil {
		return fmt.Errorf("clear extractions: %w", err)
	}
	if err := p.Docs.SetPageCount(ctx, doc.ID, 0); err != nil {
		return fmt.Errorf("reset page count: %w", err)
	}
	if err := p.Docs.UpdateStatus(ctx, doc.ID, documents.StatusUpdate{
		Status:          documents.StatusPending,
		Progress:        0,
		ClearTimestamps: true,
	}); err != nil {
		return fmt.Errorf("reset status: %w", err)
	}
	p.changed(doc.UserID)
	return nil
}

func (p *Processor) execute(ctx context.Context, documentID string) (err error) {
	doc, err := p.Docs.Get(ctx, documentID)
	if err != nil {
		telemetry.Error("processing.lookup_failed", map[string]any{
			"request_id":  telemetry.RequestIDFromContext(ctx),
			"document_id": documentID,
			"error":       sanitizeError(err),
		})
		return err
	}

	startedAt := time.Now().UTC()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			p.fail(ctx, doc, err, startedAt)
		}
	}()

	if err := p.Docs.UpdateStatus(ctx, doc.ID, documents.StatusUpdate{
		Status:              documents.StatusProcessing,
		Progress:            ProgressStarted,
		ProcessingStartedAt: &startedAt,
		ClearTimestamps:     true,
	}); err != nil {
		err = storageErr("set processing: %w", err)
		p.fail(ctx, doc, err, startedAt)
		return err
	}
	metrics.IncDocumentStarted()
	p.logStatus(ctx, doc, documents.StatusProcessing, doc.Status+"->"+documents.StatusProcessing, nil)
	p.changed(doc.UserID)

	if err := p.pipeline(ctx, doc); err != nil {
		if aborted(ctx, err) {
			p.logAbort(ctx, doc, err)
			return err
		}
		p.fail(ctx, doc, err, startedAt)
		return err
	}

	completedAt := time.Now().UTC()
	if err := p.Docs.UpdateStatus(ctx, doc.ID, documents.StatusUpdate{
		Status:      documents.StatusCompleted,
		Progress:    ProgressCompleted,
		CompletedAt: &completedAt,
	}); err != nil {
		if aborted(ctx, err) {
			p.logAbort(ctx, doc, err)
			return err
		}
		err = storageErr("set completed: %w", err)
		p.fail(ctx, doc, err, startedAt)
		return err
	}
	duration := completedAt.Sub(startedAt)
	metrics.IncDocumentCompleted(duration)
	p.logStatus(ctx, doc, documents.StatusCompleted, documents.StatusProcessing+"->"+documents.StatusCompleted, &duration)
	p.changed(doc.UserID)

	if p.enhancementEnabled() {
		p.startEnhancement(ctx, doc)
	}
	return nil
}

func (p *Processor) pipeline(ctx context.Context, doc documents.Document) error {
	texts, err := extract.PagesFromStore(ctx, p.Store, doc.StorageKey)
	if err != nil {
		return fmt.Errorf("document %s: %w", doc.ID, err)
	}
	if err := p.checkpoint(ctx, doc.ID, ProgressParsed); err != nil {
		return err
	}

	now := time.Now().UTC()
	list := pages.Build(doc.ID, texts, newID, now)
	if err := p.ensureExists(ctx, doc.ID); err != nil {
		return err
	}
	if err := p.Pages.ReplaceForDocument(ctx, doc.ID, list); err != nil {
		return storageErr("save pages: %w", err)
	}
	if err := p.Docs.SetPageCount(ctx, doc.ID, len(list)); err != nil {
		return storageErr("set page count: %w", err)
	}
	if err := p.checkpoint(ctx, doc.ID, ProgressSaved); err != nil {
		return err
	}

	stages := p.Stages
	if stages == nil {
		stages = DefaultStages()
	}
	results := Analyze(ctx, doc.ID, stages, texts)
	if err := p.checkpoint(ctx, doc.ID, ProgressAnalyzed); err != nil {
		return err
	}

	if err := p.ensureExists(ctx, doc.ID); err != nil {
		return err
	}
	for _, stage := range stages {
		ext, err := extractions.Encode(newID(), doc.ID, stage.Type, extractions.SourceNLP, results[stage.Type], now)
		if err != nil {
			return fmt.Errorf("encode %s: %w", stage.Type, err)
		}
		if err := p.Extractions.Upsert(ctx, ext); err != nil {
			return storageErr("save %s: %w", stage.Type, err)
		}
	}
	if err := p.checkpoint(ctx, doc.ID, ProgressPersisted); err != nil {
		return err
	}
	return p.checkpoint(ctx, doc.ID, ProgressEnhancing)
}

func (p *Processor) checkpoint(ctx context.Context, documentID string, progress int) error {
	if err := p.Docs.UpdateStatus(ctx, documentID, documents.StatusUpdate{
		Status:   documents.StatusProcessing,
		Progress: progress,
	}); err != nil {
		return storageErr("checkpoint %d: %w", progress, err)
	}
	return nil
}

// ensureExists guards child writes against a document deleted mid-run.
func (p *Processor) ensureExists(ctx context.Context, documentID string) error {
	if _, err := p.Docs.Get(ctx, documentID); err != nil {
		return storageErr("check document: %w", err)
	}
	return nil
}

// aborted reports whether err means the run was cancelled or the document
// deleted. Such runs end without touching the document.
func aborted(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, documents.ErrNotFound)
}

func (p *Processor) logAbort(ctx context.Context, doc documents.Document, err error) {
	telemetry.Info("processing.aborted", map[string]any{
		"request_id":  telemetry.RequestIDFromContext(ctx),
		"user_id":     doc.UserID,
		"document_id": doc.ID,
		"error":       sanitizeError(err),
	})
}

func (p *Processor) fail(ctx context.Context, doc documents.Document, err error, startedAt time.Time) {
	code := classifyFailure(err)
	msg := errorMessage(err)
	if updateErr := p.Docs.UpdateStatus(context.Background(), doc.ID, documents.StatusUpdate{
		Status:       documents.StatusError,
		Progress:     documents.ProgressFailed,
		ErrorMessage: msg,
	}); updateErr != nil {
		telemetry.Error("processing.fail_update_failed", map[string]any{
			"request_id":  telemetry.RequestIDFromContext(ctx),
			"document_id": doc.ID,
			"error":       updateErr.Error(),
			"cause":       msg,
		})
	}
	duration := time.Since(startedAt)
	metrics.IncDocumentFailed(duration)
	fields := map[string]any{"error_code": code, "error": msg}
	p.logStatus(ctx, doc, documents.StatusError, documents.StatusProcessing+"->"+documents.StatusError, &duration, fields)
	p.changed(doc.UserID)
}

func (p *Processor) logStatus(ctx context.Context, doc documents.Document, status, transition string, duration *time.Duration, extra ...map[string]any) {
	fields := map[string]any{
		"request_id":        telemetry.RequestIDFromContext(ctx),
		"user_id":           doc.UserID,
		"document_id":       doc.ID,
		"status":            status,
		"status_transition": transition,
	}
	if duration != nil {
		fields["duration_ms"] = float64(duration.Microseconds()) / 1000.0
	}
	for _, m := range extra {
		for k, v := range m {
			fields[k] = v
		}
	}
	if status == documents.StatusError {
		telemetry.Warn("document.status", fields)
		return
	}
	telemetry.Info("document.status", fields)
}

func (p *Processor) changed(userID string) {
	if p.OnChange != nil {
		p.OnChange(userID)
	}
}

func newID() string { return uuid.NewString() }

var _ documents.Runner = (*Processor)(nil)
