// Package storage persists the fund ledgers in SQLite. Every mutation runs
// as one transaction that re-reads the aggregate, applies the domain
// validation against that current state, and writes the result - two writers
// racing on the same aggregate are serialized by the database, so the
// ledger invariants hold regardless of what stale state a client saw.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"fundbook/internal/core"
)

// Export states for the committee spreadsheet sync.
const (
	ExportPending = "pending"
	ExportSynced  = "synced"
	ExportError   = "error"
)

// Aggregate kinds used in export bookkeeping and sync messages.
const (
	KindContribution = "contribution"
	KindWithdrawal   = "withdrawal"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// busy_timeout bounds how long a writer waits on a lock instead of
	// failing immediately; WAL lets reads proceed alongside the writer.
	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// dbtx is satisfied by both *sql.DB and *sql.Tx so loaders can run inside
// and outside mutations.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// withTx runs fn in a transaction. Domain errors from fn roll back and pass
// through; infrastructure failures surface as StoreUnavailableError.
func (r *Repository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return &core.StoreUnavailableError{Err: fmt.Errorf("begin transaction: %w", err)}
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return storeErr(err)
	}

	if err := tx.Commit(); err != nil {
		return &core.StoreUnavailableError{Err: fmt.Errorf("commit transaction: %w", err)}
	}
	return nil
}

// storeErr wraps infrastructure failures while letting domain errors through.
func storeErr(err error) error {
	if err == nil || core.IsValidation(err) || core.IsNotFound(err) {
		return err
	}
	var su *core.StoreUnavailableError
	if errors.As(err, &su) {
		return err
	}
	return &core.StoreUnavailableError{Err: err}
}

// --- contributions ---

// CreateContribution validates and persists a new contribution. The store
// assigns all ids; a positive initial payment is stored as the first
// installment.
func (r *Repository) CreateContribution(ctx context.Context, name string, promised, initial core.Money) (*core.Contribution, error) {
	now := time.Now().UTC()
	c, err := core.NewContribution(name, promised, initial, now)
	if err != nil {
		return nil, err
	}
	c.ID = uuid.New().String()
	c.Version = 1

	err = r.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO contributions (id, name, promised_paise, version, export_status, created_at) VALUES (?, ?, ?, ?, ?, ?)",
			c.ID, c.Name, c.Promised.Paise, c.Version, ExportPending, now.UnixMilli(),
		)
		if err != nil {
			return fmt.Errorf("insert contribution: %w", err)
		}
		for i := range c.Installments {
			c.Installments[i].ID = uuid.New().String()
			if err := insertInstallment(ctx, tx, c.ID, &c.Installments[i], i+1); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Contribution created",
		"id", c.ID,
		"name", c.Name,
		"promised_paise", c.Promised.Paise,
		"initial_paise", initial.Paise)
	return c, nil
}

// GetContribution returns the current snapshot for one contribution.
func (r *Repository) GetContribution(ctx context.Context, id string) (*core.Contribution, error) {
	c, err := loadContribution(ctx, r.db, id)
	if err != nil {
		return nil, storeErr(err)
	}
	return c, nil
}

// ListContributions returns all contributions in insertion order.
func (r *Repository) ListContributions(ctx context.Context) ([]core.Contribution, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, promised_paise, version, created_at FROM contributions ORDER BY created_at, rowid")
	if err != nil {
		return nil, storeErr(fmt.Errorf("list contributions: %w", err))
	}
	defer rows.Close()

	var out []core.Contribution
	index := make(map[string]int)
	for rows.Next() {
		var c core.Contribution
		var createdAt int64
		if err := rows.Scan(&c.ID, &c.Name, &c.Promised.Paise, &c.Version, &createdAt); err != nil {
			return nil, storeErr(fmt.Errorf("scan contribution: %w", err))
		}
		c.CreatedAt = time.UnixMilli(createdAt).UTC()
		index[c.ID] = len(out)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(fmt.Errorf("iterate contributions: %w", err))
	}

	instRows, err := r.db.QueryContext(ctx,
		"SELECT id, contribution_id, amount_paise, paid_at FROM installments ORDER BY contribution_id, seq")
	if err != nil {
		return nil, storeErr(fmt.Errorf("list installments: %w", err))
	}
	defer instRows.Close()

	for instRows.Next() {
		var in core.Installment
		var contribID string
		var paidAt int64
		if err := instRows.Scan(&in.ID, &contribID, &in.Amount.Paise, &paidAt); err != nil {
			return nil, storeErr(fmt.Errorf("scan installment: %w", err))
		}
		in.PaidAt = time.UnixMilli(paidAt).UTC()
		if i, ok := index[contribID]; ok {
			out[i].Installments = append(out[i].Installments, in)
		}
	}
	if err := instRows.Err(); err != nil {
		return nil, storeErr(fmt.Errorf("iterate installments: %w", err))
	}
	return out, nil
}

// AddInstallment appends a payment inside one atomic read-validate-write.
// The remaining-amount check runs against the row state in this transaction,
// not whatever the client last saw.
func (r *Repository) AddInstallment(ctx context.Context, id string, amount core.Money) (*core.Contribution, error) {
	var snap *core.Contribution
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		c, err := loadContribution(ctx, tx, id)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		inst, err := c.AddInstallment(amount, now)
		if err != nil {
			return err
		}
		inst.ID = uuid.New().String()
		if err := insertInstallment(ctx, tx, c.ID, inst, len(c.Installments)); err != nil {
			return err
		}
		if err := bumpVersion(ctx, tx, "contributions", c.ID); err != nil {
			return err
		}
		c.Version++
		snap = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Installment added",
		"contribution_id", snap.ID,
		"amount_paise", amount.Paise,
		"remaining_paise", snap.Remaining().Paise)
	return snap, nil
}

func loadContribution(ctx context.Context, q dbtx, id string) (*core.Contribution, error) {
	c := &core.Contribution{}
	var createdAt int64
	err := q.QueryRowContext(ctx,
		"SELECT id, name, promised_paise, version, created_at FROM contributions WHERE id = ?", id,
	).Scan(&c.ID, &c.Name, &c.Promised.Paise, &c.Version, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &core.NotFoundError{Kind: "contribution", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get contribution: %w", err)
	}
	c.CreatedAt = time.UnixMilli(createdAt).UTC()

	rows, err := q.QueryContext(ctx,
		"SELECT id, amount_paise, paid_at FROM installments WHERE contribution_id = ? ORDER BY seq", id)
	if err != nil {
		return nil, fmt.Errorf("get installments: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var in core.Installment
		var paidAt int64
		if err := rows.Scan(&in.ID, &in.Amount.Paise, &paidAt); err != nil {
			return nil, fmt.Errorf("scan installment: %w", err)
		}
		in.PaidAt = time.UnixMilli(paidAt).UTC()
		c.Installments = append(c.Installments, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate installments: %w", err)
	}
	return c, nil
}

func insertInstallment(ctx context.Context, tx *sql.Tx, contributionID string, in *core.Installment, seq int) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO installments (id, contribution_id, amount_paise, seq, paid_at) VALUES (?, ?, ?, ?, ?)",
		in.ID, contributionID, in.Amount.Paise, seq, in.PaidAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert installment: %w", err)
	}
	return nil
}

// --- withdrawal accounts ---

// CreateWithdrawalAccount validates and persists a new account with its
// first entry. Entry purpose may be empty.
func (r *Repository) CreateWithdrawalAccount(ctx context.Context, name string, amount core.Money, purpose string) (*core.WithdrawalAccount, error) {
	now := time.Now().UTC()
	a, err := core.NewWithdrawalAccount(name, amount, purpose, now)
	if err != nil {
		return nil, err
	}
	a.ID = uuid.New().String()
	a.Version = 1

	err = r.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO withdrawal_accounts (id, name, version, export_status, created_at) VALUES (?, ?, ?, ?, ?)",
			a.ID, a.Name, a.Version, ExportPending, now.UnixMilli(),
		)
		if err != nil {
			return fmt.Errorf("insert withdrawal account: %w", err)
		}
		a.Entries[0].ID = uuid.New().String()
		return insertEntry(ctx, tx, a.ID, &a.Entries[0], 1)
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Withdrawal account created",
		"id", a.ID,
		"name", a.Name,
		"amount_paise", amount.Paise)
	return a, nil
}

// GetWithdrawalAccount returns the current snapshot for one account.
func (r *Repository) GetWithdrawalAccount(ctx context.Context, id string) (*core.WithdrawalAccount, error) {
	a, err := loadAccount(ctx, r.db, id)
	if err != nil {
		return nil, storeErr(err)
	}
	return a, nil
}

// ListWithdrawalAccounts returns all accounts in insertion order.
func (r *Repository) ListWithdrawalAccounts(ctx context.Context) ([]core.WithdrawalAccount, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, version, created_at FROM withdrawal_accounts ORDER BY created_at, rowid")
	if err != nil {
		return nil, storeErr(fmt.Errorf("list withdrawal accounts: %w", err))
	}
	defer rows.Close()

	var out []core.WithdrawalAccount
	index := make(map[string]int)
	for rows.Next() {
		var a core.WithdrawalAccount
		var createdAt int64
		if err := rows.Scan(&a.ID, &a.Name, &a.Version, &createdAt); err != nil {
			return nil, storeErr(fmt.Errorf("scan withdrawal account: %w", err))
		}
		a.CreatedAt = time.UnixMilli(createdAt).UTC()
		index[a.ID] = len(out)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(fmt.Errorf("iterate withdrawal accounts: %w", err))
	}

	entryRows, err := r.db.QueryContext(ctx,
		"SELECT id, account_id, amount_paise, purpose, taken_at FROM withdrawal_entries ORDER BY account_id, seq")
	if err != nil {
		return nil, storeErr(fmt.Errorf("list entries: %w", err))
	}
	defer entryRows.Close()
	for entryRows.Next() {
		var e core.Entry
		var accountID string
		var takenAt int64
		if err := entryRows.Scan(&e.ID, &accountID, &e.Amount.Paise, &e.Purpose, &takenAt); err != nil {
			return nil, storeErr(fmt.Errorf("scan entry: %w", err))
		}
		e.TakenAt = time.UnixMilli(takenAt).UTC()
		if i, ok := index[accountID]; ok {
			out[i].Entries = append(out[i].Entries, e)
		}
	}
	if err := entryRows.Err(); err != nil {
		return nil, storeErr(fmt.Errorf("iterate entries: %w", err))
	}

	usageRows, err := r.db.QueryContext(ctx,
		"SELECT id, account_id, entry_id, amount_paise, purpose, spent_at FROM usages ORDER BY account_id, seq")
	if err != nil {
		return nil, storeErr(fmt.Errorf("list usages: %w", err))
	}
	defer usageRows.Close()
	for usageRows.Next() {
		var u core.Usage
		var accountID string
		var spentAt int64
		if err := usageRows.Scan(&u.ID, &accountID, &u.EntryID, &u.Amount.Paise, &u.Purpose, &spentAt); err != nil {
			return nil, storeErr(fmt.Errorf("scan usage: %w", err))
		}
		u.SpentAt = time.UnixMilli(spentAt).UTC()
		if i, ok := index[accountID]; ok {
			out[i].Usages = append(out[i].Usages, u)
		}
	}
	if err := usageRows.Err(); err != nil {
		return nil, storeErr(fmt.Errorf("iterate usages: %w", err))
	}
	return out, nil
}

// AddEntry appends a withdrawal transaction atomically.
func (r *Repository) AddEntry(ctx context.Context, id string, amount core.Money, purpose string) (*core.WithdrawalAccount, error) {
	var snap *core.WithdrawalAccount
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		a, err := loadAccount(ctx, tx, id)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		entry, err := a.AddEntry(amount, purpose, now)
		if err != nil {
			return err
		}
		entry.ID = uuid.New().String()
		if err := insertEntry(ctx, tx, a.ID, entry, len(a.Entries)); err != nil {
			return err
		}
		if err := bumpVersion(ctx, tx, "withdrawal_accounts", a.ID); err != nil {
			return err
		}
		a.Version++
		snap = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Withdrawal entry added",
		"account_id", snap.ID,
		"amount_paise", amount.Paise,
		"total_withdrawn_paise", snap.TotalWithdrawn().Paise)
	return snap, nil
}

// AddUsage allocates an expense against one entry. The remaining-for-entry
// check runs against current rows inside the transaction, so concurrent
// allocations against the same entry cannot jointly exceed it.
func (r *Repository) AddUsage(ctx context.Context, id, entryID string, amount core.Money, purpose string) (*core.WithdrawalAccount, error) {
	var snap *core.WithdrawalAccount
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		a, err := loadAccount(ctx, tx, id)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		usage, err := a.AddUsage(entryID, amount, purpose, now)
		if err != nil {
			return err
		}
		usage.ID = uuid.New().String()
		_, err = tx.ExecContext(ctx,
			"INSERT INTO usages (id, account_id, entry_id, amount_paise, purpose, seq, spent_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
			usage.ID, a.ID, usage.EntryID, usage.Amount.Paise, usage.Purpose, len(a.Usages), now.UnixMilli(),
		)
		if err != nil {
			return fmt.Errorf("insert usage: %w", err)
		}
		if err := bumpVersion(ctx, tx, "withdrawal_accounts", a.ID); err != nil {
			return err
		}
		a.Version++
		snap = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Usage recorded",
		"account_id", snap.ID,
		"entry_id", entryID,
		"amount_paise", amount.Paise,
		"purpose", purpose)
	return snap, nil
}

func loadAccount(ctx context.Context, q dbtx, id string) (*core.WithdrawalAccount, error) {
	a := &core.WithdrawalAccount{}
	var createdAt int64
	err := q.QueryRowContext(ctx,
		"SELECT id, name, version, created_at FROM withdrawal_accounts WHERE id = ?", id,
	).Scan(&a.ID, &a.Name, &a.Version, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &core.NotFoundError{Kind: "withdrawal account", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get withdrawal account: %w", err)
	}
	a.CreatedAt = time.UnixMilli(createdAt).UTC()

	rows, err := q.QueryContext(ctx,
		"SELECT id, amount_paise, purpose, taken_at FROM withdrawal_entries WHERE account_id = ? ORDER BY seq", id)
	if err != nil {
		return nil, fmt.Errorf("get entries: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var e core.Entry
		var takenAt int64
		if err := rows.Scan(&e.ID, &e.Amount.Paise, &e.Purpose, &takenAt); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.TakenAt = time.UnixMilli(takenAt).UTC()
		a.Entries = append(a.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}

	usageRows, err := q.QueryContext(ctx,
		"SELECT id, entry_id, amount_paise, purpose, spent_at FROM usages WHERE account_id = ? ORDER BY seq", id)
	if err != nil {
		return nil, fmt.Errorf("get usages: %w", err)
	}
	defer usageRows.Close()
	for usageRows.Next() {
		var u core.Usage
		var spentAt int64
		if err := usageRows.Scan(&u.ID, &u.EntryID, &u.Amount.Paise, &u.Purpose, &spentAt); err != nil {
			return nil, fmt.Errorf("scan usage: %w", err)
		}
		u.SpentAt = time.UnixMilli(spentAt).UTC()
		a.Usages = append(a.Usages, u)
	}
	if err := usageRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate usages: %w", err)
	}
	return a, nil
}

func insertEntry(ctx context.Context, tx *sql.Tx, accountID string, e *core.Entry, seq int) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO withdrawal_entries (id, account_id, amount_paise, purpose, seq, taken_at) VALUES (?, ?, ?, ?, ?, ?)",
		e.ID, accountID, e.Amount.Paise, e.Purpose, seq, e.TakenAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}

// bumpVersion marks the aggregate dirty for the export worker and advances
// its mutation counter.
func bumpVersion(ctx context.Context, tx *sql.Tx, table, id string) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE "+table+" SET version = version + 1, export_status = ? WHERE id = ?",
		ExportPending, id,
	)
	if err != nil {
		return fmt.Errorf("bump version: %w", err)
	}
	return nil
}

// --- export bookkeeping ---

// PendingExport identifies an aggregate whose latest version has not reached
// the committee spreadsheet yet.
type PendingExport struct {
	Kind    string
	ID      string
	Version int64
}

// PendingExports returns aggregates awaiting export, oldest first. This backs
// the worker's sweep in case sync messages were lost.
func (r *Repository) PendingExports(ctx context.Context, limit int) ([]PendingExport, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT kind, id, version FROM (
			SELECT 'contribution' AS kind, id, version, created_at FROM contributions WHERE export_status != ?
			UNION ALL
			SELECT 'withdrawal' AS kind, id, version, created_at FROM withdrawal_accounts WHERE export_status != ?
		) ORDER BY created_at LIMIT ?`,
		ExportSynced, ExportSynced, limit)
	if err != nil {
		return nil, storeErr(fmt.Errorf("list pending exports: %w", err))
	}
	defer rows.Close()

	var out []PendingExport
	for rows.Next() {
		var p PendingExport
		if err := rows.Scan(&p.Kind, &p.ID, &p.Version); err != nil {
			return nil, storeErr(fmt.Errorf("scan pending export: %w", err))
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(fmt.Errorf("iterate pending exports: %w", err))
	}
	return out, nil
}

// MarkExported records that the given version of the aggregate reached the
// spreadsheet. A mutation that committed after the worker read its snapshot
// holds a higher version; the guard leaves that row pending so the sweep
// exports the newer state even if its sync message was lost.
func (r *Repository) MarkExported(ctx context.Context, kind, id string, version int64) error {
	table, err := exportTable(kind)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		"UPDATE "+table+" SET export_status = ?, exported_at = ? WHERE id = ? AND version <= ?",
		ExportSynced, time.Now().UTC().UnixMilli(), id, version,
	)
	if err != nil {
		return storeErr(fmt.Errorf("mark exported: %w", err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr(fmt.Errorf("mark exported: %w", err))
	}
	if n > 0 {
		return nil
	}
	var current int64
	err = r.db.QueryRowContext(ctx,
		"SELECT version FROM "+table+" WHERE id = ?", id,
	).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return &core.NotFoundError{Kind: kind, ID: id}
	}
	if err != nil {
		return storeErr(fmt.Errorf("mark exported: %w", err))
	}
	// the row moved past the exported snapshot; it stays pending
	return nil
}

// MarkExportError records a failed export so the periodic sweep retries it.
// No version guard: error and pending both stay in the sweep.
func (r *Repository) MarkExportError(ctx context.Context, kind, id string) error {
	table, err := exportTable(kind)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		"UPDATE "+table+" SET export_status = ?, exported_at = ? WHERE id = ?",
		ExportError, time.Now().UTC().UnixMilli(), id,
	)
	if err != nil {
		return storeErr(fmt.Errorf("mark export error: %w", err))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return &core.NotFoundError{Kind: kind, ID: id}
	}
	return nil
}

func exportTable(kind string) (string, error) {
	switch kind {
	case KindContribution:
		return "contributions", nil
	case KindWithdrawal:
		return "withdrawal_accounts", nil
	default:
		return "", fmt.Errorf("unknown aggregate kind: %s", kind)
	}
}
