package ports

import (
	"context"
	"time"

	"finanze/internal/core"
)

// Table names an owner-scoped table the import wipes.
type Table string

const (
	TableExpenses          Table = "expenses"
	TableIncomes           Table = "incomes"
	TableRecurringExpenses Table = "recurring_expenses"
	TableMonths            Table = "months"
	TableCategories        Table = "categories"
)

// Ports for outbound adapters.
type (
	// ImportStore opens the transactional unit of work an import runs in.
	ImportStore interface {
		BeginImport(ctx context.Context) (ImportTx, error)
	}

	// ImportTx is a single store transaction. Every create returns the fresh
	// identifier of the inserted row. Rollback after Commit is a no-op.
	ImportTx interface {
		DeleteOwnerRows(ctx context.Context, table Table, ownerID string) (int64, error)
		CreateCategory(ctx context.Context, ownerID, name string, sortOrder int) (id string, err error)
		CreateMonth(ctx context.Context, ownerID string, m core.MonthEntry) (id string, err error)
		CreateExpense(ctx context.Context, ownerID, monthID, categoryID string, e core.ExpenseEntry) (id string, err error)
		CreateIncome(ctx context.Context, ownerID, monthID string, i core.IncomeEntry) (id string, err error)
		Commit() error
		Rollback() error
	}

	// ImportEvent is announced after an import commits.
	ImportEvent struct {
		OwnerID     string
		Result      core.ImportResult
		CompletedAt time.Time
	}

	// EventPublisher announces committed imports to other services.
	EventPublisher interface {
		PublishImportCompleted(ctx context.Context, ev ImportEvent) error
	}
)
