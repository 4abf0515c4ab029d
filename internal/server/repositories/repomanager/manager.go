// Package repomanager builds repositories over a shared database handle and
// runs schema migrations. The handle is always injected; no package keeps a
// global connection.
package repomanager

import (
	"context"
	"database/sql"

	"expense-api/internal/dbx"
	"expense-api/internal/server/repositories/expenses"
	"expense-api/internal/server/repositories/users"
)

type RepositoryManager interface {
	Users(db dbx.DBTX) users.Repository
	Expenses(db dbx.DBTX) expenses.Repository
	RunMigrations(ctx context.Context, db *sql.DB) error
}
