package repositories

import (
	"context"
	"database/sql"
)

// Queryer is the subset of database/sql shared by *sql.DB and *sql.Tx.
// Adapter methods take a Queryer so that a service can run a multi-table
// sequence inside one transaction.
type Queryer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Store provides access to the database in autocommit mode and scopes
// transactional work. RunInTx commits when fn returns nil and rolls back
// otherwise; the transaction handle never escapes fn.
type Store interface {
	Queryer() Queryer
	RunInTx(ctx context.Context, fn func(q Queryer) error) error
}
