package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"expense-api/internal/common"
	"expense-api/internal/dbx"
	"expense-api/internal/server/config"
	"expense-api/internal/server/models"
	"expense-api/internal/server/repositories/repomanager"
	"github.com/shopspring/decimal"
)

const defaultListLimit = 100

// CreateExpenseInput carries the caller-supplied fields of a new expense.
// Description and Date are optional; defaults are resolved explicitly in
// Create before the persisted entity is constructed.
type CreateExpenseInput struct {
	Amount      decimal.Decimal
	Category    string
	Description string
	Date        *time.Time
}

// ExpenseService implements the ownership-scoped expense operations: create
// with validation and default resolution, paginated listing, guarded deletion,
// and the two aggregate reports.
type ExpenseService struct {
	db           *sql.DB
	repomanager  repomanager.RepositoryManager
	listMaxLimit int
	now          func() time.Time
}

func NewExpenseService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *ExpenseService {
	return &ExpenseService{
		db:           db,
		repomanager:  m,
		listMaxLimit: cfg.ListMaxLimit,
		now:          time.Now,
	}
}

// Create validates the input, resolves defaults (empty description, date =
// today), and persists the expense for the given owner. Invalid input is
// rejected before any storage call.
func (s *ExpenseService) Create(ctx context.Context, owner string, in CreateExpenseInput) (*models.Expense, error) {
	now := s.now()
	date := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if in.Date != nil {
		date = *in.Date
	}

	expense := &models.Expense{
		Amount:      in.Amount,
		Category:    in.Category,
		Description: in.Description,
		Date:        date,
		Owner:       owner,
	}
	if err := expense.Validate(); err != nil {
		return nil, err
	}

	repo := s.repomanager.Expenses(s.db)
	e, err := repo.Create(ctx, expense)
	if err != nil {
		return nil, fmt.Errorf("error creating expense: %w", err)
	}
	return e, nil
}

// List returns a page of the owner's expenses, newest date first. The limit
// defaults to 100, is capped by config, and offset is clamped to zero.
func (s *ExpenseService) List(ctx context.Context, owner string, limit, offset int) ([]models.Expense, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > s.listMaxLimit {
		limit = s.listMaxLimit
	}
	if offset < 0 {
		offset = 0
	}

	repo := s.repomanager.Expenses(s.db)
	result, err := repo.List(ctx, owner, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("error listing expenses: %w", err)
	}
	return result, nil
}

// Delete removes the expense with the given id on behalf of owner.
// An absent id yields common.ErrorNotFound; an id owned by another user
// yields common.ErrorForbidden and the record stays in storage. Two
// concurrent deletes race safely: the loser observes not found.
func (s *ExpenseService) Delete(ctx context.Context, owner string, id int64) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Expenses(tx)

		recordOwner, err := repo.GetOwner(ctx, id)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrorNotFound
			}
			return fmt.Errorf("error checking expense owner: %w", err)
		}
		if recordOwner != owner {
			return common.ErrorForbidden
		}

		if err := repo.Delete(ctx, id); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrorNotFound
			}
			return fmt.Errorf("error deleting expense: %w", err)
		}
		return nil
	})
}

// Summary returns the owner's total and per-category breakdown. Sums are
// computed by the database on NUMERIC values and stay decimal-exact.
func (s *ExpenseService) Summary(ctx context.Context, owner string) (*models.Summary, error) {
	repo := s.repomanager.Expenses(s.db)
	summary, err := repo.Summary(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("error building summary: %w", err)
	}
	return summary, nil
}

// MonthlySummary returns the owner's per-month totals in chronological order.
// year == 0 means no year filter.
func (s *ExpenseService) MonthlySummary(ctx context.Context, owner string, year int) ([]models.MonthlyTotal, error) {
	repo := s.repomanager.Expenses(s.db)
	result, err := repo.MonthlySummary(ctx, owner, year)
	if err != nil {
		return nil, fmt.Errorf("error building monthly summary: %w", err)
	}
	return result, nil
}
