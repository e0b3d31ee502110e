// Package services orchestrates ingestion from the message source into
// the local store.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/victoroki/MPESAAnalyzer/internal/core"
	"github.com/victoroki/MPESAAnalyzer/internal/parser"
	"github.com/victoroki/MPESAAnalyzer/internal/sms"
)

// TransactionStore is the slice of the persistence layer the sync
// engine depends on.
type TransactionStore interface {
	SaveTransactions(ctx context.Context, txs []core.Transaction) (int, error)
	LastScannedTimestamp(ctx context.Context) (int64, error)
	SetLastScannedTimestamp(ctx context.Context, ts int64) error
}

// SyncEngine incrementally ingests provider messages: fetch unseen
// messages since the checkpoint, parse, categorize, bulk-persist, then
// advance the checkpoint. Safe to call repeatedly; re-ingesting an
// already-seen message is a no-op thanks to insert-if-absent storage.
type SyncEngine struct {
	store TransactionStore
	inbox sms.MessageLister
	perms sms.PermissionChecker

	// Reentrancy guard: an overlapping Sync call returns immediately
	// with zero new transactions instead of running a second cycle.
	mu      sync.Mutex
	syncing bool
}

func NewSyncEngine(store TransactionStore, inbox sms.MessageLister, perms sms.PermissionChecker) *SyncEngine {
	return &SyncEngine{
		store: store,
		inbox: inbox,
		perms: perms,
	}
}

// Syncing reports whether a cycle is currently in flight.
func (e *SyncEngine) Syncing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.syncing
}

// Sync runs one ingestion cycle and returns the number of newly
// inserted transactions. Zero is a valid, common result. A concurrent
// call while a cycle is in flight returns 0 without touching the store.
//
// The checkpoint advances over ALL fetched candidate messages, parsed
// or not: unparsed provider traffic is low-value (ads, OTP-style
// notices) and refetching it every cycle would be wasted work. The
// checkpoint is only written after the batch is durably stored.
func (e *SyncEngine) Sync(ctx context.Context) (int, error) {
	e.mu.Lock()
	if e.syncing {
		e.mu.Unlock()
		slog.DebugContext(ctx, "Sync already in progress, skipping")
		return 0, nil
	}
	e.syncing = true
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.syncing = false
		e.mu.Unlock()
	}()

	granted, err := e.perms.CheckPermission(ctx)
	if err != nil {
		return 0, fmt.Errorf("check inbox permission: %w", err)
	}
	if !granted {
		return 0, sms.ErrPermissionDenied
	}

	checkpoint, err := e.store.LastScannedTimestamp(ctx)
	if err != nil {
		return 0, fmt.Errorf("read checkpoint: %w", err)
	}

	messages, err := e.inbox.List(ctx, sms.Filter{Box: "inbox", MinTimestamp: checkpoint})
	if err != nil {
		return 0, fmt.Errorf("list messages: %w", err)
	}

	var (
		parsed       []core.Transaction
		maxTimestamp = checkpoint
		candidates   int
	)
	for _, msg := range messages {
		if err := msg.Validate(); err != nil {
			slog.WarnContext(ctx, "Skipping malformed message record", "error", err)
			continue
		}
		if !msg.FromProvider() {
			continue
		}
		candidates++
		if msg.Timestamp > maxTimestamp {
			maxTimestamp = msg.Timestamp
		}

		tx := parser.Parse(msg.Body, msg.Timestamp)
		if tx == nil {
			continue
		}
		tx.ID = msg.NativeID
		if tx.ID == "" {
			tx.ID = fallbackID(tx, msg)
		}
		tx.SMSID = msg.NativeID
		parsed = append(parsed, *tx)
	}

	inserted, err := e.store.SaveTransactions(ctx, parsed)
	if err != nil {
		// Checkpoint stays put so the next call retries the same window.
		return 0, fmt.Errorf("persist transactions: %w", err)
	}

	if maxTimestamp > checkpoint {
		if err := e.store.SetLastScannedTimestamp(ctx, maxTimestamp); err != nil {
			return inserted, fmt.Errorf("advance checkpoint: %w", err)
		}
	}

	slog.InfoContext(ctx, "Sync cycle completed",
		"fetched", len(messages),
		"candidates", candidates,
		"parsed", len(parsed),
		"inserted", inserted,
		"checkpoint", maxTimestamp)

	return inserted, nil
}

// fallbackID derives a stable id for a message without a native id.
// The checkpoint window is inclusive, so the boundary message is
// refetched on the next cycle; a random id would defeat the
// insert-if-absent dedup and re-insert it every time. The confirmation
// code is unique per transaction when present; otherwise a name-based
// uuid over the message body and timestamp is stable across cycles.
func fallbackID(tx *core.Transaction, msg sms.Message) string {
	if tx.TransactionCode != "" {
		return tx.TransactionCode
	}
	seed := fmt.Sprintf("%d|%s", msg.Timestamp, msg.Body)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(seed)).String()
}
