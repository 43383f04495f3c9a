// Package storage persists expense records in SQLite.
//
// Identifiers are opaque 24-hex-character strings assigned here at creation
// time. All failure modes are classified at the source into the tagged error
// variants from the core package, so no caller ever inspects driver errors.
package storage

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"spendlog/internal/core"

	sqlite3 "modernc.org/sqlite"
)

// SQLite primary-key and unique constraint extended result codes.
const (
	sqliteConstraintPrimaryKey = 1555
	sqliteConstraintUnique     = 2067
)

const expenseColumns = "id, amount_cents, category, description, date_ms, created_at_ms, updated_at_ms"

// SQLiteRepository is the expense store. A single repository owns the
// database handle for the life of the process; construct it at startup and
// close it during shutdown.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
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

// Create persists a new record and returns it with the generated id and
// timestamps. The draft is validated again here so code paths that bypass
// the transport schema still cannot write an invalid record.
func (r *SQLiteRepository) Create(ctx context.Context, d core.Draft) (core.Expense, error) {
	now := time.Now().UTC()
	if err := d.Validate(now); err != nil {
		return core.Expense{}, err
	}

	e := core.Expense{
		ID:          newExpenseID(now),
		Amount:      d.Amount,
		Category:    d.Category,
		Description: d.Description,
		Date:        d.Date.Truncate(time.Millisecond),
		CreatedAt:   now.Truncate(time.Millisecond),
		UpdatedAt:   now.Truncate(time.Millisecond),
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (`+expenseColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Amount.Cents, e.Category, e.Description,
		e.Date.UnixMilli(), e.CreatedAt.UnixMilli(), e.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return core.Expense{}, classifyErr(fmt.Errorf("insert expense: %w", err))
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", e.ID,
		"category", e.Category,
		"amount_cents", e.Amount.Cents)

	return e, nil
}

// List returns expenses matching the optional category filter, ordered by
// the requested sort column with insertion order as the tiebreak. Skip is
// applied before limit.
func (r *SQLiteRepository) List(ctx context.Context, q core.ListQuery) ([]core.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses`
	var args []any
	if q.Category != "" {
		query += ` WHERE category = ?`
		args = append(args, q.Category)
	}

	query += ` ORDER BY ` + sortColumn(q.SortBy)
	if q.Order == core.OrderDesc {
		query += ` DESC`
	} else {
		query += ` ASC`
	}
	query += `, rowid ASC`

	// SQLite requires a LIMIT clause before OFFSET; -1 means unbounded.
	limit := -1
	if q.Limit > 0 {
		limit = q.Limit
	}
	query += ` LIMIT ? OFFSET ?`
	args = append(args, limit, q.Skip)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	expenses := make([]core.Expense, 0)
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}

	return expenses, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (core.Expense, error) {
	if err := core.ValidateID(id); err != nil {
		return core.Expense{}, err
	}

	row := r.db.QueryRowContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE id = ?`, id)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, core.ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	return e, nil
}

// UpdateByID applies the supplied patch fields, re-validates the merged
// record and refreshes updatedAt. Concurrent updates to the same record are
// last-write-wins; there is no conflict detection.
func (r *SQLiteRepository) UpdateByID(ctx context.Context, id string, p core.Patch) (core.Expense, error) {
	existing, err := r.GetByID(ctx, id)
	if err != nil {
		return core.Expense{}, err
	}

	now := time.Now().UTC()
	updated := p.Apply(existing)
	draft := core.Draft{
		Amount:      updated.Amount,
		Category:    updated.Category,
		Description: updated.Description,
		Date:        updated.Date,
	}
	if err := draft.Validate(now); err != nil {
		return core.Expense{}, err
	}
	updated.UpdatedAt = now.Truncate(time.Millisecond)

	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses
		    SET amount_cents = ?, category = ?, description = ?, date_ms = ?, updated_at_ms = ?
		  WHERE id = ?`,
		updated.Amount.Cents, updated.Category, updated.Description,
		updated.Date.UnixMilli(), updated.UpdatedAt.UnixMilli(), id,
	)
	if err != nil {
		return core.Expense{}, classifyErr(fmt.Errorf("update expense: %w", err))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// Deleted between the read and the write.
		return core.Expense{}, core.ErrNotFound
	}

	slog.InfoContext(ctx, "Expense updated", "id", id)
	return updated, nil
}

// DeleteByID removes the record and returns it so the caller can confirm
// what was deleted. Hard delete, no tombstone.
func (r *SQLiteRepository) DeleteByID(ctx context.Context, id string) (core.Expense, error) {
	existing, err := r.GetByID(ctx, id)
	if err != nil {
		return core.Expense{}, err
	}

	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return core.Expense{}, fmt.Errorf("delete expense: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.Expense{}, core.ErrNotFound
	}

	slog.InfoContext(ctx, "Expense deleted", "id", id)
	return existing, nil
}

// SumByCategory totals amounts over every record, or over one category when
// the filter is non-empty. An empty result set sums to zero, never an error.
func (r *SQLiteRepository) SumByCategory(ctx context.Context, category string) (core.Money, error) {
	query := `SELECT COALESCE(SUM(amount_cents), 0) FROM expenses`
	var args []any
	if category != "" {
		query += ` WHERE category = ?`
		args = append(args, category)
	}

	var cents int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&cents); err != nil {
		return core.Money{}, fmt.Errorf("sum expenses: %w", err)
	}
	return core.Money{Cents: cents}, nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (core.Expense, error) {
	var (
		e                            core.Expense
		dateMS, createdMS, updatedMS int64
	)
	err := row.Scan(&e.ID, &e.Amount.Cents, &e.Category, &e.Description,
		&dateMS, &createdMS, &updatedMS)
	if err != nil {
		return core.Expense{}, err
	}
	e.Date = time.UnixMilli(dateMS).UTC()
	e.CreatedAt = time.UnixMilli(createdMS).UTC()
	e.UpdatedAt = time.UnixMilli(updatedMS).UTC()
	return e, nil
}

// newExpenseID builds a 24-hex-character identifier: a 4-byte unix timestamp
// followed by 8 random bytes, so ids sort roughly by creation time.
func newExpenseID(now time.Time) string {
	var buf [12]byte
	binary.BigEndian.PutUint32(buf[:4], uint32(now.Unix()))
	if _, err := rand.Read(buf[4:]); err != nil {
		binary.BigEndian.PutUint64(buf[4:], uint64(now.UnixNano()))
	}
	return hex.EncodeToString(buf[:])
}

// sortColumn maps an API sort field onto its column. The schema layer has
// already rejected anything outside the enum, so unknown values fall back to
// the date column rather than reaching the SQL string.
func sortColumn(f core.SortField) string {
	switch f {
	case core.SortByAmount:
		return "amount_cents"
	case core.SortByCreatedAt:
		return "created_at_ms"
	default:
		return "date_ms"
	}
}

// classifyErr maps driver-level constraint failures onto the tagged domain
// variants. Everything else passes through wrapped and is treated as
// internal by the service layer.
func classifyErr(err error) error {
	var se *sqlite3.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqliteConstraintPrimaryKey, sqliteConstraintUnique:
			return core.ErrDuplicateID
		}
	}
	return err
}
