// Package expenses persists expense records. Every read and aggregate is
// scoped by the owning username; ownership checks for deletion are split into
// GetOwner + Delete so the service layer can distinguish "absent" from
// "owned by someone else".
package expenses

import (
	"context"

	"expense-api/internal/server/models"
)

type Repository interface {
	// Create inserts the expense and fills in the assigned id and creation
	// timestamp.
	Create(ctx context.Context, expense *models.Expense) (*models.Expense, error)

	// List returns the owner's expenses ordered by date descending, then id
	// descending (most recently created first within a day).
	List(ctx context.Context, owner string, limit, offset int) ([]models.Expense, error)

	// GetOwner returns the owning username of an expense, or
	// common.ErrorNotFound.
	GetOwner(ctx context.Context, id int64) (string, error)

	// Delete removes the expense by id. If the row is already gone (e.g. a
	// concurrent delete won the race) it returns common.ErrorNotFound.
	Delete(ctx context.Context, id int64) error

	// Summary returns the owner's overall total and per-category totals,
	// largest category first.
	Summary(ctx context.Context, owner string) (*models.Summary, error)

	// MonthlySummary returns per-month totals in chronological order,
	// optionally restricted to one calendar year (year == 0 means all years).
	MonthlySummary(ctx context.Context, owner string, year int) ([]models.MonthlyTotal, error)
}
