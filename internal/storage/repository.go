package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/victoroki/MPESAAnalyzer/internal/core"

	_ "modernc.org/sqlite"
)

// StateKeyLastScanned is the sync_state key holding the ingestion
// checkpoint: the maximum source timestamp processed so far, stored as
// a decimal millisecond string.
const StateKeyLastScanned = "last_scanned_timestamp"

const txColumns = `id, sms_id, type, amount_cents, recipient, sender,
	balance_cents, transaction_code, date_ms, raw_message, category`

// ErrTransactionNotFound is returned when an update targets an id that
// does not exist.
var ErrTransactionNotFound = errors.New("transaction not found")

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SaveTransactions bulk-inserts transactions with insert-if-absent
// semantics: a row whose id already exists is left untouched. The whole
// batch runs in one database transaction, so a failure leaves nothing
// partially stored. Returns the number of rows actually inserted.
func (r *SQLiteRepository) SaveTransactions(ctx context.Context, txs []core.Transaction) (int, error) {
	if len(txs) == 0 {
		return 0, nil
	}

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	stmt, err := dbTx.PrepareContext(ctx, `INSERT OR IGNORE INTO transactions (`+txColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, tx := range txs {
		smsID := tx.SMSID
		if smsID == "" {
			smsID = tx.ID
		}
		res, err := stmt.ExecContext(ctx,
			tx.ID, smsID, string(tx.Type), tx.Amount.Cents,
			tx.Recipient, tx.Sender, tx.Balance.Cents,
			tx.TransactionCode, tx.Date.UnixMilli(), tx.RawMessage, tx.Category)
		if err != nil {
			return 0, fmt.Errorf("insert transaction %s: %w", tx.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("rows affected: %w", err)
		}
		inserted += int(n)
	}

	if err := dbTx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transactions: %w", err)
	}

	slog.InfoContext(ctx, "Transactions saved to SQLite",
		"batch", len(txs),
		"inserted", inserted)

	return inserted, nil
}

// UpdateCategory changes the category of a stored transaction in place.
// This is the only mutation allowed after insert.
func (r *SQLiteRepository) UpdateCategory(ctx context.Context, id, category string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET category = ? WHERE id = ?`, category, id)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("update category for %s: %w", id, ErrTransactionNotFound)
	}
	return nil
}

// ListRange returns transactions ordered by date descending, optionally
// bounded by [from, to]. Zero bounds are ignored.
func (r *SQLiteRepository) ListRange(ctx context.Context, from, to time.Time) ([]core.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions`
	var args []any
	switch {
	case !from.IsZero() && !to.IsZero():
		query += ` WHERE date_ms >= ? AND date_ms <= ?`
		args = append(args, from.UnixMilli(), to.UnixMilli())
	case !from.IsZero():
		query += ` WHERE date_ms >= ?`
		args = append(args, from.UnixMilli())
	case !to.IsZero():
		query += ` WHERE date_ms <= ?`
		args = append(args, to.UnixMilli())
	}
	query += ` ORDER BY date_ms DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()
	return scanTransactions(rows)
}

// ListAll returns the full transaction set, newest first.
func (r *SQLiteRepository) ListAll(ctx context.Context) ([]core.Transaction, error) {
	return r.ListRange(ctx, time.Time{}, time.Time{})
}

// ListPage returns one page of transactions ordered by date descending.
func (r *SQLiteRepository) ListPage(ctx context.Context, limit, offset int) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+txColumns+` FROM transactions ORDER BY date_ms DESC LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list transactions page: %w", err)
	}
	defer rows.Close()
	return scanTransactions(rows)
}

// GetState reads a scalar sync_state value; missing keys yield "".
func (r *SQLiteRepository) GetState(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM sync_state WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get sync state %s: %w", key, err)
	}
	return value, nil
}

// SetState upserts a scalar sync_state value.
func (r *SQLiteRepository) SetState(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO sync_state (key, value) VALUES (?, ?)`, key, value)
	if err != nil {
		return fmt.Errorf("set sync state %s: %w", key, err)
	}
	return nil
}

// LastScannedTimestamp returns the ingestion checkpoint in Unix
// milliseconds; 0 means no sync has completed yet.
func (r *SQLiteRepository) LastScannedTimestamp(ctx context.Context) (int64, error) {
	raw, err := r.GetState(ctx, StateKeyLastScanned)
	if err != nil {
		return 0, err
	}
	if raw == "" {
		return 0, nil
	}
	ts, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse checkpoint %q: %w", raw, err)
	}
	return ts, nil
}

// SetLastScannedTimestamp advances the ingestion checkpoint.
func (r *SQLiteRepository) SetLastScannedTimestamp(ctx context.Context, ts int64) error {
	return r.SetState(ctx, StateKeyLastScanned, strconv.FormatInt(ts, 10))
}

func scanTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	var out []core.Transaction
	for rows.Next() {
		var (
			tx      core.Transaction
			txType  string
			amount  int64
			balance int64
			dateMS  int64
		)
		if err := rows.Scan(&tx.ID, &tx.SMSID, &txType, &amount,
			&tx.Recipient, &tx.Sender, &balance,
			&tx.TransactionCode, &dateMS, &tx.RawMessage, &tx.Category); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		tx.Type = core.TxType(txType)
		tx.Amount = core.Money{Cents: amount}
		tx.Balance = core.Money{Cents: balance}
		tx.Date = time.UnixMilli(dateMS)
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}
