package processing

import (
	"context"
	"fmt"
	"time"

	"docinsight-backend/internal/documents"
	"docinsight-backend/internal/shared/metrics"
	"docinsight-backend/internal/shared/telemetry"
)

const (
	OrphanRequeued = "requeued"
	OrphanFailed   = "failed"
	OrphanSkipped  = "skipped"
)

// DefaultStaleAfter is how long a document may stay in processing before it
// counts as orphaned.
const DefaultStaleAfter = 10 * time.Minute

// RecoveryReport counts what a recovery pass did.
type RecoveryReport struct {
	Found    int
	Requeued int
	Failed   int
	Skipped  int
}

// Orphans lists documents stuck in processing for longer than staleAfter.
func (p *Processor) Orphans(ctx context.Context, staleAfter time.Duration) ([]documents.Document, error) {
	return p.Docs.ListStale(ctx, documents.StatusProcessing, staleCutoff(staleAfter))
}

func staleCutoff(staleAfter time.Duration) time.Time {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return time.Now().UTC().Add(-staleAfter)
}

// Requeue prepares one orphan for another run. The orphan is claimed in the
// database first; a document another process is still working on, or that a
// concurrent sweep already claimed, is skipped. A document whose source file
// is gone is marked as failed instead. The returned action is one of the
// Orphan* constants.
func (p *Processor) Requeue(ctx context.Context, doc documents.Document, staleAfter time.Duration) (string, error) {
	if p.Running(doc.ID) {
		return OrphanSkipped, nil
	}
	claimed, err := p.Docs.ClaimStale(ctx, doc.ID, staleCutoff(staleAfter))
	if err != nil {
		return "", fmt.Errorf("claim orphan %s: %w", doc.ID, err)
	}
	if !claimed {
		metrics.IncOrphan(OrphanSkipped)
		p.logOrphan(ctx, doc, OrphanSkipped)
		return OrphanSkipped, nil
	}
	exists, err := p.Store.Exists(ctx, doc.StorageKey)
	if err != nil {
		return "", fmt.Errorf("check source %s: %w", doc.ID, err)
	}
	if !exists {
		msg := errorMessage(storageErr("source file missing after restart"))
		if err := p.Docs.UpdateStatus(ctx, doc.ID, documents.StatusUpdate{
			Status:       documents.StatusError,
			Progress:     documents.ProgressFailed,
			ErrorMessage: msg,
		}); err != nil {
			return "", fmt.Errorf("mark orphan %s: %w", doc.ID, err)
		}
		metrics.IncOrphan(OrphanFailed)
		p.logOrphan(ctx, doc, OrphanFailed)
		p.changed(doc.UserID)
		return OrphanFailed, nil
	}
	if err := p.reset(ctx, doc.ID); err != nil {
		return "", fmt.Errorf("reset orphan %s: %w", doc.ID, err)
	}
	metrics.IncOrphan(OrphanRequeued)
	p.logOrphan(ctx, doc, OrphanRequeued)
	return OrphanRequeued, nil
}

// Recover requeues every orphan and starts it in the background.
func (p *Processor) Recover(ctx context.Context, staleAfter time.Duration) (RecoveryReport, error) {
	orphans, err := p.Orphans(ctx, staleAfter)
	if err != nil {
		return RecoveryReport{}, fmt.Errorf("list orphans: %w", err)
	}
	report := RecoveryReport{Found: len(orphans)}
	for _, doc := range orphans {
		action, err := p.Requeue(ctx, doc, staleAfter)
		if err != nil {
			telemetry.Error("processing.recover_failed", map[string]any{
				"request_id":  telemetry.RequestIDFromContext(ctx),
				"document_id": doc.ID,
				"error":       sanitizeError(err),
			})
			continue
		}
		report.Add(action)
		if action == OrphanRequeued {
			p.Start(ctx, doc.ID)
		}
	}
	return report, nil
}

// Add records the outcome of one Requeue call.
func (r *RecoveryReport) Add(action string) {
	switch action {
	case OrphanRequeued:
		r.Requeued++
	case OrphanFailed:
		r.Failed++
	case OrphanSkipped:
		r.Skipped++
	}
}

func (p *Processor) logOrphan(ctx context.Context, doc documents.Document, action string) {
	telemetry.Warn("processing.orphan", map[string]any{
		"request_id":  telemetry.RequestIDFromContext(ctx),
		"user_id":     doc.UserID,
		"document_id": doc.ID,
		"action":      action,
	})
}
