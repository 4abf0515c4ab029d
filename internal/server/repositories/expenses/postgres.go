package expenses

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"expense-api/internal/common"
	"expense-api/internal/dbx"
	"expense-api/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Amounts are bound as strings and read back via ::text so that NUMERIC
// values never pass through float64 on the way to decimal.Decimal.

func (r *PostgresRepository) Create(ctx context.Context, expense *models.Expense) (*models.Expense, error) {

	query :=
		`INSERT INTO expenses (amount, category, description, date, owner)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		expense.Amount.String(), expense.Category, expense.Description, expense.Date, expense.Owner).
		Scan(&expense.ID, &expense.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}

	return expense, nil
}

func (r *PostgresRepository) List(ctx context.Context, owner string, limit, offset int) ([]models.Expense, error) {
	query :=
		`SELECT id, amount::text, category, description, date, created_at
		 FROM expenses
		 WHERE owner = $1
		 ORDER BY date DESC, id DESC
		 LIMIT $2 OFFSET $3
		 `

	rows, err := r.db.QueryContext(ctx, query, owner, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	defer rows.Close()

	result := []models.Expense{}
	for rows.Next() {
		e := models.Expense{Owner: owner}
		if err := rows.Scan(&e.ID, &e.Amount, &e.Category, &e.Description, &e.Date, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) GetOwner(ctx context.Context, id int64) (string, error) {
	query := `SELECT owner FROM expenses WHERE id = $1`

	var owner string
	err := r.db.QueryRowContext(ctx, query, id).Scan(&owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrorNotFound
		}
		return "", fmt.Errorf("error performing sql request: %w", err)
	}

	return owner, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM expenses WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading affected rows: %w", err)
	}
	if affected == 0 {
		// lost the race to a concurrent delete
		return common.ErrorNotFound
	}

	return nil
}

func (r *PostgresRepository) Summary(ctx context.Context, owner string) (*models.Summary, error) {

	totalQuery := `SELECT COALESCE(SUM(amount), 0)::text FROM expenses WHERE owner = $1`

	summary := &models.Summary{}
	if err := r.db.QueryRowContext(ctx, totalQuery, owner).Scan(&summary.Total); err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}

	byCategoryQuery :=
		`SELECT category, COALESCE(SUM(amount), 0)::text AS total
		 FROM expenses
		 WHERE owner = $1
		 GROUP BY category
		 ORDER BY SUM(amount) DESC
		 `

	rows, err := r.db.QueryContext(ctx, byCategoryQuery, owner)
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	defer rows.Close()

	summary.ByCategory = []models.CategoryTotal{}
	for rows.Next() {
		var ct models.CategoryTotal
		if err := rows.Scan(&ct.Category, &ct.Total); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		summary.ByCategory = append(summary.ByCategory, ct)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return summary, nil
}

func (r *PostgresRepository) MonthlySummary(ctx context.Context, owner string, year int) ([]models.MonthlyTotal, error) {

	query :=
		`SELECT date_trunc('month', date)::date AS month, COALESCE(SUM(amount), 0)::text AS total
		 FROM expenses
		 WHERE owner = $1
		 `
	args := []any{owner}

	if year != 0 {
		query += ` AND EXTRACT(YEAR FROM date) = $2`
		args = append(args, year)
	}
	query += ` GROUP BY month ORDER BY month`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	defer rows.Close()

	result := []models.MonthlyTotal{}
	for rows.Next() {
		var mt models.MonthlyTotal
		if err := rows.Scan(&mt.Month, &mt.Total); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		result = append(result, mt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return result, nil
}
