package models

import (
	"fmt"
	"time"

	"expense-api/internal/common"
	"github.com/shopspring/decimal"
)

// Expense is a single spending record. Amount stays a decimal through storage
// and aggregation; float conversion happens only when serializing responses.
// Owner references the owning user's username and scopes every operation.
type Expense struct {
	ID          int64
	Amount      decimal.Decimal
	Category    string
	Description string
	Date        time.Time
	CreatedAt   time.Time
	Owner       string
}

// Validate checks the invariants that must hold before an expense reaches
// storage: positive amount and a non-empty category.
func (e *Expense) Validate() error {
	if !e.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be greater than 0", common.ErrorValidation)
	}
	if e.Category == "" {
		return fmt.Errorf("%w: category must not be empty", common.ErrorValidation)
	}
	return nil
}

// CategoryTotal is one row of the per-category breakdown.
type CategoryTotal struct {
	Category string
	Total    decimal.Decimal
}

// Summary aggregates a user's expenses: overall total plus the per-category
// breakdown ordered by descending total.
type Summary struct {
	Total      decimal.Decimal
	ByCategory []CategoryTotal
}

// MonthlyTotal is the sum of one calendar month; Month is the first day of
// that month.
type MonthlyTotal struct {
	Month time.Time
	Total decimal.Decimal
}
