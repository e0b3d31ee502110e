// Package worker contains the background processes around the sync
// pipeline: the scheduler that runs periodic SMS sync passes, and the
// report worker that reacts to completed syncs by exporting monthly
// reports.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/victoroki/MPESAAnalyzer/internal/amqp"
	"github.com/victoroki/MPESAAnalyzer/internal/core"
)

// TransactionLister reads persisted transactions for a time window.
type TransactionLister interface {
	ListRange(ctx context.Context, from, to time.Time) ([]core.Transaction, error)
}

// ReportExporter writes one monthly summary somewhere external.
type ReportExporter interface {
	ExportMonth(ctx context.Context, stats core.MonthlyStats) error
}

// SyncWorker consumes sync completion events and exports refreshed
// monthly reports for the window the sync may have touched.
type SyncWorker struct {
	store    TransactionLister
	exporter ReportExporter
	months   int
}

func NewSyncWorker(store TransactionLister, exporter ReportExporter, months int) *SyncWorker {
	if months <= 0 {
		months = 3
	}
	return &SyncWorker{
		store:    store,
		exporter: exporter,
		months:   months,
	}
}

// HandleSyncCompleted processes a single sync completion message from AMQP.
// It recomputes stats for the recent months and exports them concurrently.
func (w *SyncWorker) HandleSyncCompleted(ctx context.Context, msg *amqp.SyncCompletedMessage) error {
	slog.InfoContext(ctx, "Processing sync completed message",
		"inserted", msg.Inserted,
		"checkpoint", msg.Checkpoint)

	if msg.Inserted == 0 {
		slog.InfoContext(ctx, "No new transactions, skipping export")
		return nil
	}

	now := time.Now()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).
		AddDate(0, -(w.months - 1), 0)

	txs, err := w.store.ListRange(ctx, from, now)
	if err != nil {
		return fmt.Errorf("list transactions since %s: %w", from.Format("2006-01"), err)
	}

	monthly := core.LastNMonths(txs, now.Year(), now.Month(), w.months)

	g, gCtx := errgroup.WithContext(ctx)
	for _, stats := range monthly {
		g.Go(func() error {
			if err := w.exporter.ExportMonth(gCtx, stats); err != nil {
				return fmt.Errorf("export %d-%02d: %w", stats.Year, int(stats.Month), err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("export monthly reports: %w", err)
	}

	slog.InfoContext(ctx, "Exported monthly reports", "months", len(monthly))
	return nil
}
