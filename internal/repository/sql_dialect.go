package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/RealZimboGuy/flowstudio/internal/config"
)

// Dialect captures the differences between the supported databases.
type Dialect string

const (
	DialectPostgres Dialect = config.DATABASE_TYPE_POSTGRES
	DialectMySQL    Dialect = config.DATABASE_TYPE_MYSQL
	DialectSQLite   Dialect = config.DATABASE_TYPE_SQLLITE
)

// DialectFromConfig reads the configured database type.
func DialectFromConfig() (Dialect, error) {
	d := Dialect(config.GetSystemSettingString(config.DATABASE_TYPE))
	switch d {
	case DialectPostgres, DialectMySQL, DialectSQLite:
		return d, nil
	}
	return "", fmt.Errorf("unsupported database type %q", d)
}

// placeholder returns the correct bind variable for the given index.
// Postgres uses $1, $2... while MySQL and SQLite use ?
func (d Dialect) placeholder(i int) string {
	if d == DialectPostgres {
		return fmt.Sprintf("$%d", i)
	}
	return "?"
}

// placeholders returns n comma separated bind variables starting at index from.
func (d Dialect) placeholders(from, n int) string {
	pps := make([]string, 0, n)
	for i := 0; i < n; i++ {
		pps = append(pps, d.placeholder(from+i))
	}
	return strings.Join(pps, ", ")
}

func (d Dialect) supportsReturning() bool {
	return d == DialectPostgres
}

// formatTime renders a timestamp the way each driver stores it best.
func (d Dialect) formatTime(t time.Time) any {
	switch d {
	case DialectSQLite:
		return t.UTC().Format("2006-01-02 15:04:05.000")
	case DialectMySQL:
		return t.UTC().Format("2006-01-02 15:04:05.000000")
	default:
		return t.UTC()
	}
}

// insertReturningID runs an INSERT and returns the generated id, using
// RETURNING where the database supports it.
func (d Dialect) insertReturningID(ctx context.Context, q DBTX, query string, args ...any) (int64, error) {
	var id int64
	if d.supportsReturning() {
		if err := q.QueryRowContext(ctx, query+" RETURNING id", args...).Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}
