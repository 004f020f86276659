package main

// Sweep documents orphaned in processing and run them to completion:
//   go run ./cmd/recover -concurrency 4

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/semaphore"

	"docinsight-backend/internal/bootstrap"
	"docinsight-backend/internal/processing"
	"docinsight-backend/internal/shared/config"
	"docinsight-backend/internal/shared/telemetry"
)

const defaultConcurrency = 4

func main() {
	cfg := config.Load()
	concurrency := flag.Int("concurrency", defaultConcurrency, "documents processed at once")
	staleAfter := flag.Duration("stale-after", cfg.ProcessingStaleAfter, "age after which a processing document counts as orphaned")
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}
	telemetry.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}
	defer app.Close()

	report, err := sweep(ctx, app.Processor, *staleAfter, *concurrency)
	if err != nil {
		log.Fatalf("recover: %v", err)
	}
	telemetry.Info("recovery.done", map[string]any{
		"found":    report.Found,
		"requeued": report.Requeued,
		"failed":   report.Failed,
		"skipped":  report.Skipped,
	})
}

// sweep requeues each orphan and processes it synchronously, at most
// concurrency at a time.
func sweep(ctx context.Context, proc *processing.Processor, staleAfter time.Duration, concurrency int) (processing.RecoveryReport, error) {
	orphans, err := proc.Orphans(ctx, staleAfter)
	if err != nil {
		return processing.RecoveryReport{}, err
	}
	report := processing.RecoveryReport{Found: len(orphans)}

	sem := semaphore.NewWeighted(int64(max(1, concurrency)))
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, doc := range orphans {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)

			action, err := proc.Requeue(ctx, doc, staleAfter)
			if err != nil {
				telemetry.Error("recovery.requeue_failed", map[string]any{"document_id": doc.ID, "error": err.Error()})
				return
			}
			mu.Lock()
			report.Add(action)
			mu.Unlock()
			if action != processing.OrphanRequeued {
				return
			}
			if err := proc.Process(ctx, doc.ID); err != nil {
				telemetry.Warn("recovery.process_failed", map[string]any{"document_id": doc.ID, "error": err.Error()})
			}
		}()
	}
	wg.Wait()
	proc.Wait()
	return report, ctx.Err()
}
