package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"finanze/internal/core"
	applog "finanze/internal/log"
	"finanze/internal/ports"

	_ "modernc.org/sqlite"
)

// ownerTables are the tables DeleteOwnerRows and CountOwnerRows accept.
// Table names are interpolated into SQL, so nothing outside this set is allowed.
var ownerTables = map[ports.Table]bool{
	ports.TableExpenses:          true,
	ports.TableIncomes:           true,
	ports.TableRecurringExpenses: true,
	ports.TableMonths:            true,
	ports.TableCategories:        true,
}

type SQLiteRepository struct {
	db *sql.DB
}

var _ ports.ImportStore = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer; one connection keeps transactions from
	// failing with SQLITE_BUSY and makes them strictly serial.
	db.SetMaxOpenConns(1)

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

// BeginImport implements ports.ImportStore. The transaction is rolled back by
// database/sql if ctx is cancelled before Commit.
func (r *SQLiteRepository) BeginImport(ctx context.Context) (ports.ImportTx, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &importTx{tx: tx}, nil
}

type importTx struct {
	tx *sql.Tx
}

func (t *importTx) DeleteOwnerRows(ctx context.Context, table ports.Table, ownerID string) (int64, error) {
	if !ownerTables[table] {
		return 0, fmt.Errorf("delete from unknown table %q", table)
	}
	res, err := t.tx.ExecContext(ctx, "DELETE FROM "+string(table)+" WHERE owner_id = ?", ownerID)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete %s: rows affected: %w", table, err)
	}
	return n, nil
}

func (t *importTx) CreateCategory(ctx context.Context, ownerID, name string, sortOrder int) (string, error) {
	id := uuid.NewString()
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO categories (id, owner_id, name, sort_order) VALUES (?, ?, ?, ?)`,
		id, ownerID, name, sortOrder)
	if err != nil {
		return "", fmt.Errorf("create category %q: %w", name, err)
	}
	return id, nil
}

func (t *importTx) CreateMonth(ctx context.Context, ownerID string, m core.MonthEntry) (string, error) {
	id := uuid.NewString()
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO months (id, owner_id, year, month, salary_cents) VALUES (?, ?, ?, ?, ?)`,
		id, ownerID, m.Year, m.Month, core.ToCents(m.Salary))
	if err != nil {
		return "", fmt.Errorf("create month %04d-%02d: %w", m.Year, m.Month, err)
	}
	return id, nil
}

func (t *importTx) CreateExpense(ctx context.Context, ownerID, monthID, categoryID string, e core.ExpenseEntry) (string, error) {
	id := uuid.NewString()
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO expenses (id, owner_id, month_id, category_id, item_name, amount_cents, vendor, expense_date, comment)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, ownerID, monthID, categoryID, e.ItemName, core.ToCents(e.Amount),
		nullString(e.Vendor), e.ExpenseDate, nullString(e.Comment))
	if err != nil {
		return "", fmt.Errorf("create expense %q: %w", e.ItemName, err)
	}
	return id, nil
}

func (t *importTx) CreateIncome(ctx context.Context, ownerID, monthID string, i core.IncomeEntry) (string, error) {
	id := uuid.NewString()
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO incomes (id, owner_id, month_id, source, amount_cents, income_date, comment)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, ownerID, monthID, i.Source, core.ToCents(i.Amount), i.IncomeDate, nullString(i.Comment))
	if err != nil {
		return "", fmt.Errorf("create income %q: %w", i.Source, err)
	}
	return id, nil
}

func (t *importTx) Commit() error {
	return t.tx.Commit()
}

func (t *importTx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// OwnerStats counts the rows an owner has in every table an import replaces.
type OwnerStats struct {
	Categories        int `json:"categories"`
	Months            int `json:"months"`
	Expenses          int `json:"expenses"`
	Incomes           int `json:"incomes"`
	RecurringExpenses int `json:"recurringExpenses"`
}

// IsEmpty reports whether the owner has no financial data at all.
func (s OwnerStats) IsEmpty() bool {
	return s == OwnerStats{}
}

// CountOwnerRows returns how many rows of table belong to ownerID.
func (r *SQLiteRepository) CountOwnerRows(ctx context.Context, table ports.Table, ownerID string) (int, error) {
	if !ownerTables[table] {
		return 0, fmt.Errorf("count unknown table %q", table)
	}
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+string(table)+" WHERE owner_id = ?", ownerID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// Stats returns the owner's current row counts, shown before a destructive import.
func (r *SQLiteRepository) Stats(ctx context.Context, ownerID string) (OwnerStats, error) {
	var stats OwnerStats
	targets := []struct {
		table ports.Table
		dst   *int
	}{
		{ports.TableCategories, &stats.Categories},
		{ports.TableMonths, &stats.Months},
		{ports.TableExpenses, &stats.Expenses},
		{ports.TableIncomes, &stats.Incomes},
		{ports.TableRecurringExpenses, &stats.RecurringExpenses},
	}
	for _, target := range targets {
		n, err := r.CountOwnerRows(ctx, target.table, ownerID)
		if err != nil {
			return OwnerStats{}, err
		}
		*target.dst = n
	}
	return stats, nil
}

// Category is a stored category row.
type Category struct {
	ID        string
	Name      string
	SortOrder int
}

// ListCategories returns the owner's categories in sort order.
func (r *SQLiteRepository) ListCategories(ctx context.Context, ownerID string) ([]Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, sort_order FROM categories WHERE owner_id = ? ORDER BY sort_order, name`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.SortOrder); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// MonthSummary is a stored month with its totals.
type MonthSummary struct {
	ID           string
	Year         int
	Month        int
	SalaryCents  int64
	ExpenseCount int
	IncomeCount  int
}

// ListMonths returns the owner's months ascending by year and month.
func (r *SQLiteRepository) ListMonths(ctx context.Context, ownerID string) ([]MonthSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT m.id, m.year, m.month, m.salary_cents,
		       (SELECT COUNT(*) FROM expenses e WHERE e.month_id = m.id),
		       (SELECT COUNT(*) FROM incomes i WHERE i.month_id = m.id)
		FROM months m
		WHERE m.owner_id = ?
		ORDER BY m.year, m.month`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list months: %w", err)
	}
	defer rows.Close()

	var months []MonthSummary
	for rows.Next() {
		var m MonthSummary
		if err := rows.Scan(&m.ID, &m.Year, &m.Month, &m.SalaryCents, &m.ExpenseCount, &m.IncomeCount); err != nil {
			return nil, fmt.Errorf("scan month: %w", err)
		}
		months = append(months, m)
	}
	return months, rows.Err()
}

// StoredExpense is an expense row joined with its category name.
type StoredExpense struct {
	ID          string
	MonthID     string
	Category    string
	ItemName    string
	AmountCents int64
	Vendor      string
	ExpenseDate string
	Comment     string
}

// ListExpenses returns every expense of the owner ordered by date.
func (r *SQLiteRepository) ListExpenses(ctx context.Context, ownerID string) ([]StoredExpense, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT e.id, e.month_id, c.name, e.item_name, e.amount_cents,
		       COALESCE(e.vendor, ''), e.expense_date, COALESCE(e.comment, '')
		FROM expenses e
		JOIN categories c ON c.id = e.category_id
		WHERE e.owner_id = ?
		ORDER BY e.expense_date, e.item_name`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []StoredExpense
	for rows.Next() {
		var e StoredExpense
		if err := rows.Scan(&e.ID, &e.MonthID, &e.Category, &e.ItemName, &e.AmountCents,
			&e.Vendor, &e.ExpenseDate, &e.Comment); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

// RecurringExpense is a template the recurring processor turns into expenses.
type RecurringExpense struct {
	CategoryID  string
	ItemName    string
	AmountCents int64
	Every       string // daily, weekly, monthly or yearly
	StartDate   string
}

// CreateRecurringExpense stores a recurring expense template for an owner.
func (r *SQLiteRepository) CreateRecurringExpense(ctx context.Context, ownerID string, re RecurringExpense) (string, error) {
	id := uuid.NewString()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO recurring_expenses (id, owner_id, category_id, item_name, amount_cents, every, start_date)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, ownerID, re.CategoryID, re.ItemName, re.AmountCents, re.Every, re.StartDate)
	if err != nil {
		return "", fmt.Errorf("create recurring expense: %w", err)
	}

	slog.InfoContext(ctx, "Recurring expense saved to SQLite",
		applog.FieldComponent, applog.ComponentStorage,
		applog.FieldOwnerID, ownerID,
		applog.FieldRecurringID, id,
		applog.FieldItemName, re.ItemName,
		applog.FieldEvery, re.Every)

	return id, nil
}
