// Package importer replaces an owner's whole financial history with an
// import document in a single store transaction.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"finanze/internal/core"
	applog "finanze/internal/log"
	"finanze/internal/ports"
)

var (
	// ErrImportFailed wraps every infrastructure failure. The transaction has
	// been rolled back by the time it is returned.
	ErrImportFailed = errors.New("import failed")
	ErrMissingOwner = errors.New("owner id is required")
)

// wipeOrder lists owner tables children first so foreign keys hold at every step.
var wipeOrder = []ports.Table{
	ports.TableExpenses,
	ports.TableIncomes,
	ports.TableRecurringExpenses,
	ports.TableMonths,
	ports.TableCategories,
}

// Executor performs the wipe-and-load.
type Executor struct {
	store     ports.ImportStore
	publisher ports.EventPublisher
	locks     *ownerLocks
	now       func() time.Time
}

type Option func(*Executor)

// WithPublisher announces committed imports through p.
func WithPublisher(p ports.EventPublisher) Option {
	return func(e *Executor) { e.publisher = p }
}

func NewExecutor(store ports.ImportStore, opts ...Option) *Executor {
	e := &Executor{
		store: store,
		locks: newOwnerLocks(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Import validates doc and atomically replaces ownerID's data with it.
//
// Validation problems are returned as *core.ValidationError before anything is
// touched. Store failures roll back the whole transaction and are returned
// wrapped in ErrImportFailed. Expenses whose category does not resolve are
// dropped and listed in the result's Skipped warnings.
func (e *Executor) Import(ctx context.Context, ownerID string, doc *core.ImportDocument) (*core.ImportResult, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, ErrMissingOwner
	}
	if err := doc.Validate(); err != nil {
		slog.WarnContext(ctx, "Import document rejected",
			applog.FieldComponent, applog.ComponentImport,
			applog.FieldOperation, applog.OpValidate,
			applog.FieldOwnerID, ownerID,
			applog.FieldError, err,
			applog.FieldErrorType, applog.ErrorTypeValidation)
		return nil, err
	}

	release, err := e.locks.acquire(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	defer release()

	start := e.now()
	result, err := e.replace(ctx, ownerID, doc)
	if err != nil {
		slog.ErrorContext(ctx, "Import rolled back",
			applog.FieldComponent, applog.ComponentImport,
			applog.FieldOperation, applog.OpImport,
			applog.FieldOwnerID, ownerID,
			applog.FieldError, err)
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %w", ErrImportFailed, err)
	}

	slog.InfoContext(ctx, "Import committed",
		applog.FieldComponent, applog.ComponentImport,
		applog.FieldOperation, applog.OpImport,
		applog.FieldOwnerID, ownerID,
		"categories", result.CategoriesCreated,
		"months", result.MonthsCreated,
		"expenses", result.ExpensesCreated,
		"incomes", result.IncomesCreated,
		"skipped", len(result.Skipped),
		applog.FieldDuration, e.now().Sub(start).Milliseconds())

	e.publish(ctx, ownerID, result)
	return result, nil
}

func (e *Executor) replace(ctx context.Context, ownerID string, doc *core.ImportDocument) (*core.ImportResult, error) {
	tx, err := e.store.BeginImport(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	for _, table := range wipeOrder {
		n, err := tx.DeleteOwnerRows(ctx, table, ownerID)
		if err != nil {
			return nil, err
		}
		slog.DebugContext(ctx, "Wiped owner rows",
			applog.FieldComponent, applog.ComponentImport,
			applog.FieldOwnerID, ownerID,
			"table", string(table),
			"rows", n)
	}

	result := &core.ImportResult{}

	categoryIDs := make(map[string]string, len(doc.Categories))
	for i, name := range doc.Categories {
		id, err := tx.CreateCategory(ctx, ownerID, name, i)
		if err != nil {
			return nil, err
		}
		key := strings.ToLower(name)
		if _, ok := categoryIDs[key]; !ok {
			categoryIDs[key] = id
		}
		result.CategoriesCreated++
	}

	for _, m := range doc.Months {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		monthID, err := tx.CreateMonth(ctx, ownerID, m)
		if err != nil {
			return nil, err
		}
		result.MonthsCreated++

		for _, exp := range m.Expenses {
			categoryID, ok := categoryIDs[strings.ToLower(exp.CategoryName)]
			if !ok {
				result.Skipped = append(result.Skipped, core.Warning{
					Sheet:  fmt.Sprintf("%04d-%02d", m.Year, m.Month),
					Reason: fmt.Sprintf("expense %q dropped: category %q does not exist", exp.ItemName, exp.CategoryName),
				})
				continue
			}
			if _, err := tx.CreateExpense(ctx, ownerID, monthID, categoryID, exp); err != nil {
				return nil, err
			}
			result.ExpensesCreated++
		}

		for _, in := range m.Incomes {
			if _, err := tx.CreateIncome(ctx, ownerID, monthID, in); err != nil {
				return nil, err
			}
			result.IncomesCreated++
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return result, nil
}

func (e *Executor) publish(ctx context.Context, ownerID string, result *core.ImportResult) {
	if e.publisher == nil {
		return
	}
	ev := ports.ImportEvent{OwnerID: ownerID, Result: *result, CompletedAt: e.now().UTC()}
	if err := e.publisher.PublishImportCompleted(ctx, ev); err != nil {
		// The import is committed; a lost notification is only logged.
		slog.ErrorContext(ctx, "Failed to publish import completed event",
			applog.FieldComponent, applog.ComponentImport,
			applog.FieldOperation, applog.OpPublish,
			applog.FieldOwnerID, ownerID,
			applog.FieldError, err)
	}
}
